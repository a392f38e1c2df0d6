package taghelper

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"gitlab.com/tozd/go/errors"
)

// Selector strings describe required attributes compactly:
//
//	asp-for, [type=text], [name^=user], [href$=".pdf"], data-*
//
// A bare name (or "[name]") only requires presence; a trailing '*' makes the
// name a prefix; "=", "^=" and "$=" compare the value fully, by prefix and by
// suffix.
var (
	selectorLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "String", Pattern: `"(\\"|[^"])*"`},
		{Name: "Op", Pattern: `\^=|\$=|=`},
		{Name: "Punct", Pattern: `[\[\],]`},
		{Name: "Name", Pattern: `[^\s,\[\]=^$"']+`},
		{Name: "whitespace", Pattern: `\s+`},
	})

	selectorParser = participle.MustBuild[selectorAST](
		participle.Lexer(selectorLexer),
		participle.Elide("whitespace"),
		participle.Unquote("String"),
	)
)

type selectorAST struct {
	Attrs []*attrAST `parser:"@@ ( ',' @@ )*"`
}

type attrAST struct {
	Bracketed *bracketAST `parser:"  '[' @@ ']'"`
	Bare      string      `parser:"| @Name"`
}

type bracketAST struct {
	Name  string `parser:"@Name"`
	Op    string `parser:"( @Op"`
	Value string `parser:"  @(String | Name)? )?"`
}

// ParseRequiredAttributes turns a selector string into required attributes.
func ParseRequiredAttributes(selector string) ([]RequiredAttribute, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, nil
	}

	ast, err := selectorParser.ParseString("", selector)
	if err != nil {
		return nil, errors.Errorf("parsing required attribute selector %q: %w", selector, err)
	}

	out := make([]RequiredAttribute, 0, len(ast.Attrs))
	for _, a := range ast.Attrs {
		var req RequiredAttribute
		if a.Bracketed != nil {
			req.Name = a.Bracketed.Name
			req.Value = a.Bracketed.Value
			switch a.Bracketed.Op {
			case "=":
				req.ValueComparison = ValueFullMatch
			case "^=":
				req.ValueComparison = ValuePrefixMatch
			case "$=":
				req.ValueComparison = ValueSuffixMatch
			}
		} else {
			req.Name = a.Bare
		}
		if strings.HasSuffix(req.Name, "*") {
			req.Name = strings.TrimSuffix(req.Name, "*")
			req.NameComparison = PrefixMatch
		}
		if req.Name == "" {
			return nil, errors.Errorf("parsing required attribute selector %q: empty attribute name", selector)
		}
		out = append(out, req)
	}
	return out, nil
}

// FormatRequiredAttributes is the inverse of ParseRequiredAttributes.
func FormatRequiredAttributes(attrs []RequiredAttribute) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		name := a.Name
		if a.NameComparison == PrefixMatch {
			name += "*"
		}
		op := ""
		switch a.ValueComparison {
		case ValueFullMatch:
			op = "="
		case ValuePrefixMatch:
			op = "^="
		case ValueSuffixMatch:
			op = "$="
		}
		if op == "" {
			parts = append(parts, name)
			continue
		}
		parts = append(parts, "["+name+op+`"`+strings.ReplaceAll(a.Value, `"`, `\"`)+`"]`)
	}
	return strings.Join(parts, ", ")
}
