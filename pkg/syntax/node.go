// Package syntax holds the tree the parser builds.
//
// A tree has two node kinds:
//
//	Block  (interior)  BlockType + ordered children
//	  |
//	  +-- Span (leaf)  SpanKind + tokens + chunk generator
//
// Spans partition the source document: every byte belongs to exactly one
// span and spans appear in document order. A block covers exactly the union
// of its children. Trees are never mutated after the parser returns them;
// rewriters build new blocks and share unchanged subtrees.
package syntax

import (
	"fmt"
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

type SpanKind int

const (
	SpanMarkup SpanKind = iota
	SpanCode
	SpanComment
	SpanTransition
	SpanMetaCode
)

func (me SpanKind) String() string {
	switch me {
	case SpanMarkup:
		return "Markup"
	case SpanCode:
		return "Code"
	case SpanComment:
		return "Comment"
	case SpanTransition:
		return "Transition"
	case SpanMetaCode:
		return "MetaCode"
	}
	return fmt.Sprintf("SpanKind(%d)", int(me))
}

type BlockType int

const (
	BlockMarkup BlockType = iota
	BlockStatement
	BlockExpression
	BlockComment
	BlockDirective
	BlockTagHelper
	BlockTag
	BlockAttribute
	BlockHtmlComment
)

func (me BlockType) String() string {
	switch me {
	case BlockMarkup:
		return "Markup"
	case BlockStatement:
		return "Statement"
	case BlockExpression:
		return "Expression"
	case BlockComment:
		return "Comment"
	case BlockDirective:
		return "Directive"
	case BlockTagHelper:
		return "TagHelper"
	case BlockTag:
		return "Tag"
	case BlockAttribute:
		return "Attribute"
	case BlockHtmlComment:
		return "HtmlComment"
	}
	return fmt.Sprintf("BlockType(%d)", int(me))
}

// Node is either a *Span or a *Block.
type Node interface {
	Location() position.Location
	Length() int
	SourceSpan() position.Span
	Content() string
	isNode()
}

type Span struct {
	Kind        SpanKind
	Tokens      []tokenizer.Token
	Generator   Generator
	EditHandler EditHandler
	// Start is kept explicitly so empty spans still have a position.
	Start position.Location
}

var _ Node = (*Span)(nil)

func (*Span) isNode() {}

func (me *Span) Location() position.Location { return me.Start }

func (me *Span) Length() int {
	n := 0
	for _, t := range me.Tokens {
		n += len(t.Content)
	}
	return n
}

func (me *Span) SourceSpan() position.Span {
	return position.NewSpan(me.Start, me.Length())
}

func (me *Span) Content() string {
	if len(me.Tokens) == 1 {
		return me.Tokens[0].Content
	}
	var b strings.Builder
	for _, t := range me.Tokens {
		b.WriteString(t.Content)
	}
	return b.String()
}

// Diagnostics collects the diagnostics of the span's tokens.
func (me *Span) Diagnostics() []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, t := range me.Tokens {
		out = append(out, t.Diagnostics...)
	}
	return out
}

type Block struct {
	Type BlockType
	// Name is the tag, attribute, directive or keyword the block was built for.
	Name        string
	Generator   Generator
	Children    []Node
	Diagnostics []diagnostic.Diagnostic
	Tag         *TagInfo
	Attribute   *AttributeInfo
	TagHelper   *TagHelperInfo
	// Start positions an empty block.
	Start position.Location
}

var _ Node = (*Block)(nil)

func (*Block) isNode() {}

func (me *Block) Location() position.Location {
	if len(me.Children) == 0 {
		return me.Start
	}
	return me.Children[0].Location()
}

func (me *Block) Length() int {
	if len(me.Children) == 0 {
		return 0
	}
	last := me.Children[len(me.Children)-1]
	return last.Location().AbsoluteIndex + last.Length() - me.Location().AbsoluteIndex
}

func (me *Block) SourceSpan() position.Span {
	return position.NewSpan(me.Location(), me.Length())
}

func (me *Block) Content() string {
	var b strings.Builder
	for _, c := range me.Children {
		b.WriteString(c.Content())
	}
	return b.String()
}

// WithChildren returns a shallow copy holding children.
func (me *Block) WithChildren(children []Node) *Block {
	out := *me
	out.Children = children
	return &out
}

// TagInfo describes a start or end tag block.
type TagInfo struct {
	Name        string
	EndTag      bool
	SelfClosing bool
	// Unfinished is set when the closing '>' is missing.
	Unfinished bool
	// OptOut marks "<!name>" tags, which never bind to tag helpers.
	OptOut bool
	Void   bool
}

type AttributeStyle int

const (
	DoubleQuotes AttributeStyle = iota
	SingleQuotes
	NoQuotes
	Minimized
)

func (me AttributeStyle) String() string {
	switch me {
	case DoubleQuotes:
		return "DoubleQuotes"
	case SingleQuotes:
		return "SingleQuotes"
	case NoQuotes:
		return "NoQuotes"
	case Minimized:
		return "Minimized"
	}
	return fmt.Sprintf("AttributeStyle(%d)", int(me))
}

// AttributeInfo describes an attribute block. Its first child is the prefix
// span (whitespace, name, '=', opening quote); when Closed the last child is
// the closing quote; the children in between are the value.
type AttributeInfo struct {
	Name   string
	Style  AttributeStyle
	Closed bool
	// Bound is set when the parser read the value as code for a tag helper.
	Bound bool
}

// AttributeValue returns the value children of an attribute block.
func (me *Block) AttributeValue() []Node {
	if me.Attribute == nil || len(me.Children) == 0 {
		return nil
	}
	end := len(me.Children)
	if me.Attribute.Closed && end > 1 {
		end--
	}
	return me.Children[1:end]
}

type TagMode int

const (
	StartTagAndEndTag TagMode = iota
	SelfClosing
	StartTagOnly
)

func (me TagMode) String() string {
	switch me {
	case StartTagAndEndTag:
		return "StartTagAndEndTag"
	case SelfClosing:
		return "SelfClosing"
	case StartTagOnly:
		return "StartTagOnly"
	}
	return fmt.Sprintf("TagMode(%d)", int(me))
}
