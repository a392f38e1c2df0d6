// Package directive describes the "@name ..." grammar extensions a template
// engine recognizes and holds the registry the parser consults.
package directive

import (
	"fmt"
	"strings"
)

type Kind int

const (
	// SingleLine directives end with their last token.
	SingleLine Kind = iota
	// RazorBlock directives take a "{ ... }" body parsed as markup.
	RazorBlock
	// CodeBlock directives take a "{ ... }" body parsed as code.
	CodeBlock
)

func (me Kind) String() string {
	switch me {
	case SingleLine:
		return "SingleLine"
	case RazorBlock:
		return "RazorBlock"
	case CodeBlock:
		return "CodeBlock"
	}
	return fmt.Sprintf("Kind(%d)", int(me))
}

type Usage int

const (
	Unrestricted Usage = iota
	// FileScopedSinglyOccurring directives appear at most once, at the top level.
	FileScopedSinglyOccurring
	// FileScopedMultipleOccurring directives may repeat but only at the top level.
	FileScopedMultipleOccurring
)

func (me Usage) String() string {
	switch me {
	case Unrestricted:
		return "Unrestricted"
	case FileScopedSinglyOccurring:
		return "FileScopedSinglyOccurring"
	case FileScopedMultipleOccurring:
		return "FileScopedMultipleOccurring"
	}
	return fmt.Sprintf("Usage(%d)", int(me))
}

func (me Usage) FileScoped() bool {
	return me == FileScopedSinglyOccurring || me == FileScopedMultipleOccurring
}

type TokenKind int

const (
	Type TokenKind = iota
	Member
	String
	Namespace
	Attribute
	Boolean
	// Text consumes the rest of the line verbatim.
	Text
)

func (me TokenKind) String() string {
	switch me {
	case Type:
		return "Type"
	case Member:
		return "Member"
	case String:
		return "String"
	case Namespace:
		return "Namespace"
	case Attribute:
		return "Attribute"
	case Boolean:
		return "Boolean"
	case Text:
		return "Text"
	}
	return fmt.Sprintf("TokenKind(%d)", int(me))
}

// Expectation is the phrase used in diagnostics when a token is missing.
func (me TokenKind) Expectation() string {
	switch me {
	case Type:
		return "a type name"
	case Member:
		return "an identifier"
	case String:
		return "a string literal"
	case Namespace:
		return "a namespace name"
	case Attribute:
		return "an attribute"
	case Boolean:
		return "a boolean literal"
	case Text:
		return "a value"
	}
	return "a token"
}

type TokenDescriptor struct {
	Kind        TokenKind
	Name        string
	Description string
	Optional    bool
}

// Descriptor declares a directive. It is treated as immutable once registered
// and the pointer itself identifies it in syntax and IR trees.
type Descriptor struct {
	Directive   string
	DisplayName string
	Description string
	Kind        Kind
	Usage       Usage
	Tokens      []TokenDescriptor
}

// Signature is a comparable summary of the grammar a descriptor accepts.
func (me *Descriptor) Signature() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s/%s(", me.Directive, me.Kind, me.Usage)
	for i, t := range me.Tokens {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(t.Kind.String())
		if t.Optional {
			b.WriteString("?")
		}
	}
	b.WriteString(")")
	return b.String()
}

// RequiredTokens counts tokens that are not optional.
func (me *Descriptor) RequiredTokens() int {
	n := 0
	for _, t := range me.Tokens {
		if !t.Optional {
			n++
		}
	}
	return n
}
