/*
Package semtok classifies the tokens of a Razor syntax tree for highlighting.

🎨 Overview:
-----------

	  syntax.Tree
	       |
	  walk blocks, remembering the enclosing tag, attribute
	  and directive
	       |
	       v
	  +-----------+     Encode      +------------------+
	  |  []Token  | --------------> | relative uint32s |
	  +-----------+                 +------------------+
	       |
	  razorc tokens

Every token lies on a single line: tokens that span line breaks (comments,
verbatim strings) are split per line. Plain markup text and whitespace are
not classified.

🔍 Token Types:
--------------

	@              -> razorTransition
	@inject        -> razorDirective
	<div>          -> markupElement   (+ razorTagHelper when bound)
	class="..."    -> markupAttribute / string
	if, var        -> keyword
	Model, x       -> variable        (+ declaration for directive members)
	"a", 1.5       -> string / number
	@* *@, <!-- -> -> comment
*/
package semtok
