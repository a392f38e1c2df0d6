package diagnostic

// Lexical diagnostics.
var (
	UnterminatedStringLiteral = Descriptor{"RZ1000", Error, `Unterminated string literal. Strings that start with a quotation mark (") must be terminated before the end of the line.`}
	UnterminatedCharLiteral   = Descriptor{"RZ1001", Error, `Unterminated character literal. Character literals that start with an apostrophe (') must be terminated before the end of the line.`}
	UnterminatedBlockComment  = Descriptor{"RZ1002", Error, `End of file was reached before the end of the block comment. All comments started with "/*" must be terminated with a matching "*/".`}
	UnterminatedRazorComment  = Descriptor{"RZ1003", Error, `End of file was reached before the end of the Razor comment. All Razor comments started with "@*" must be terminated with a matching "*@".`}
	UnrecognizedCharacter     = Descriptor{"RZ1004", Error, `Unrecognized character %q.`}
)

// Syntactic diagnostics.
var (
	UnexpectedCharacterAtStartOfCodeBlock  = Descriptor{"RZ1005", Error, `%q is not valid at the start of a code block. Only identifiers, keywords, comments, "(" and "{" are valid.`}
	ExpectedEndOfBlockBeforeEOF            = Descriptor{"RZ1006", Error, `The %s block is missing a closing %q character. Make sure you have a matching %q character for all the %q characters within this block.`}
	ExpectedCloseBracketBeforeEOF          = Descriptor{"RZ1007", Error, `An opening %q is missing the corresponding closing %q.`}
	UnexpectedWhitespaceAtStartOfCodeBlock = Descriptor{"RZ1008", Error, `A space or line break was encountered after the "@" character. Only valid identifiers, keywords, comments, "(" and "{" are valid at the start of a code block and they must occur immediately following "@" with no space in between.`}
	UnexpectedEndOfFileAtStartOfCodeBlock  = Descriptor{"RZ1009", Error, `End-of-file was found after the "@" character. "@" must be followed by a valid code block.`}
	UnexpectedNestedCodeBlock              = Descriptor{"RZ1010", Error, `Unexpected "{" after "@" character. Once inside the body of a code block you do not need to use "@{" to switch to code.`}
	UnexpectedKeywordAfterAt               = Descriptor{"RZ1011", Error, `Unexpected %q keyword after "@" character. Once inside code, you do not need to prefix constructs like %q with "@".`}
	MissingEndTag                          = Descriptor{"RZ1012", Error, `The %q element was not closed. All elements must be either self-closing or have a matching end tag.`}
	UnexpectedEndTag                       = Descriptor{"RZ1013", Error, `Encountered end tag %q with no matching start tag. Are your start/end tags properly balanced?`}
	TextTagCannotContainAttributes         = Descriptor{"RZ1014", Error, `"<text>" and "</text>" tags cannot contain attributes.`}
	UnfinishedTag                          = Descriptor{"RZ1015", Error, `The %q tag is missing its closing ">".`}
	ExpectedDirectiveToken                 = Descriptor{"RZ1016", Error, `The '%s' directive expects %s.`}
	UnexpectedDirectiveLiteral             = Descriptor{"RZ1017", Error, `Unexpected literal following the '%s' directive. Expected %s.`}
	DirectiveExpectsBlock                  = Descriptor{"RZ1018", Error, `The '%s' directive expects a block starting with "{".`}
	DirectiveMustBeFollowedByWhitespace    = Descriptor{"RZ1019", Error, `The '%s' directive must be followed by whitespace.`}
	InvalidTagHelperLookupText             = Descriptor{"RZ1020", Error, `Invalid tag helper directive look up text %q. The correct look up text format is: "name, assemblyName".`}
	InvalidTagHelperPrefix                 = Descriptor{"RZ1021", Error, `Invalid tag helper directive '%s' value. %q is not allowed in prefix %q.`}
	ReservedWord                           = Descriptor{"RZ1022", Error, `%q is a reserved word and cannot be used in implicit expressions. An explicit expression ("@()") must be used.`}
	AtInCodeMustBeFollowedByValidToken     = Descriptor{"RZ1023", Error, `The "@" character must be followed by a ":", "(", or an identifier. If you intended to switch to markup, use an HTML start tag.`}
	MissingWhileAfterDo                    = Descriptor{"RZ1025", Error, `The "do" block is missing its "while" condition.`}
	UnterminatedTextTag                    = Descriptor{"RZ1026", Error, `The "text" element was not closed. All elements must be either self-closing or have a matching end tag.`}
)

// Directive usage diagnostics.
var (
	DuplicateDirective             = Descriptor{"RZ2001", Error, `The '%s' directive may only occur once per document.`}
	DirectiveMustBeTopLevel        = Descriptor{"RZ2002", Error, `The '%s' directive is only allowed at the document level and cannot be nested within a code block or markup element.`}
	SectionsCannotBeNested         = Descriptor{"RZ2004", Error, `Section blocks ("@section Header { ... }") cannot be nested. Only one level of section blocks are allowed.`}
	DuplicateSection               = Descriptor{"RZ2005", Error, `Section '%s' is already defined.`}
	PageDirectiveMustPrecedeOthers = Descriptor{"RZ2007", Error, `The '@page' directive must precede all other elements defined in a Razor file.`}
	PageDirectiveCannotBeImported  = Descriptor{"RZ2008", Error, `The '@page' directive is not allowed in an imports file.`}
)

// Tag helper diagnostics.
var (
	TagHelperMustNotHaveEndTag       = Descriptor{"RZ3001", Error, `Found an end tag (</%s>) for tag helper '%s' with tag structure that disallows an end tag ('WithoutEndTag').`}
	TagHelperMissingCloseAngle       = Descriptor{"RZ3002", Error, `Missing close angle for tag helper '%s'.`}
	InvalidNestingOfChildTag         = Descriptor{"RZ3003", Error, `The <%s> tag is not allowed by parent <%s> tag helper. Only child tags with name(s) '%s' are allowed.`}
	MalformedTagHelper               = Descriptor{"RZ3005", Error, `Found a malformed '%s' tag helper. Tag helpers must have a start and end tag or be self closing.`}
	EmptyBoundAttribute              = Descriptor{"RZ3006", Error, `Attribute '%s' on tag helper element '%s' requires a value. Tag helper bound attributes of type '%s' cannot be empty or contain only whitespace.`}
	MinimizedBoundAttribute          = Descriptor{"RZ3007", Error, `Attribute '%s' on tag helper element '%s' requires a value. Tag helper bound attributes of type '%s' cannot be minimized.`}
	InconsistentTagStructure         = Descriptor{"RZ3008", Error, `Tag helpers '%s' and '%s' targeting element '%s' must not expect different tag structures.`}
	IndexerAttributeMissingKey       = Descriptor{"RZ3009", Error, `The tag helper attribute '%s' in element '%s' is missing a key. The syntax is '<%s %s{ key }="value">'.`}
	CannotHaveNonTagContent          = Descriptor{"RZ3010", Error, `The <%s> tag helper does not allow non-tag content. Only child tags with name(s) '%s' are allowed.`}
	TagHelperDescriptorProblem       = Descriptor{"RZ3012", Error, `Tag helper '%s': %s`}
	TagHelperLookupMatchedNothing    = Descriptor{"RZ3013", Warning, `Tag helper directive look up text %q did not match any tag helper.`}
	TagHelperRequiredAttributeValue  = Descriptor{"RZ3014", Warning, `Attribute '%s' on <%s> has a value that does not satisfy the tag helper '%s'.`}
	TagHelperAttributeMissingBinding = Descriptor{"RZ3015", Warning, `Attribute '%s' on tag helper element '%s' is bound by more than one tag helper with different types.`}
)

// Rendering diagnostics.
var (
	MissingTargetExtension = Descriptor{"RZ4001", Error, `No target extension is registered for intermediate node kind '%s'.`}
	UnsupportedNode        = Descriptor{"RZ4002", Error, `The node kind '%s' is not supported by the %s renderer.`}
)
