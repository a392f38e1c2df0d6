package semtok

import (
	"github.com/walteh/gorazor/pkg/position"
)

type TokenType uint32

const (
	TokenTransition TokenType = iota
	TokenDirective
	TokenElement
	TokenAttribute
	TokenKeyword
	TokenVariable
	TokenTypeName
	TokenNamespace
	TokenString
	TokenNumber
	TokenComment
	TokenOperator
)

var typeNames = []string{
	TokenTransition: "razorTransition",
	TokenDirective:  "razorDirective",
	TokenElement:    "markupElement",
	TokenAttribute:  "markupAttribute",
	TokenKeyword:    "keyword",
	TokenVariable:   "variable",
	TokenTypeName:   "type",
	TokenNamespace:  "namespace",
	TokenString:     "string",
	TokenNumber:     "number",
	TokenComment:    "comment",
	TokenOperator:   "operator",
}

func (me TokenType) String() string {
	if int(me) < len(typeNames) {
		return typeNames[me]
	}
	return "unknown"
}

// TokenModifier is a bit set.
type TokenModifier uint32

const (
	ModifierNone        TokenModifier = 0
	ModifierDeclaration TokenModifier = 1 << 0
	ModifierTagHelper   TokenModifier = 1 << 1
)

var modifierNames = []string{"declaration", "razorTagHelper"}

func (me TokenModifier) String() string {
	if me == ModifierNone {
		return "none"
	}
	out := ""
	for i, name := range modifierNames {
		if me&(1<<i) == 0 {
			continue
		}
		if out != "" {
			out += ","
		}
		out += name
	}
	return out
}

// Legend lists type and modifier names in the order Encode indexes them.
func Legend() (types, modifiers []string) {
	return append([]string(nil), typeNames...), append([]string(nil), modifierNames...)
}

type Token struct {
	Type     TokenType
	Modifier TokenModifier
	// Span covers the token on a single line.
	Span position.Span
	Text string
}

func (me Token) Range() position.Range {
	start := me.Span.Location.Place()
	end := start
	end.Character += me.Span.Length
	return position.Range{Start: start, End: end}
}
