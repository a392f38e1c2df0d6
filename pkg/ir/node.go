// Package ir is the intermediate representation between the syntax tree and
// generated code.
//
//	Document
//	  +-- Namespace ── Using*
//	        +-- Class ── Field* Property* Method
//	                                        +-- HtmlContent / CSharpExpression / CSharpCode
//	                                        +-- HtmlAttribute ── *AttributeValue
//	                                        +-- TagHelper ── TagHelperBody, CreateTagHelper,
//	                                                         SetTagHelperProperty, AddTagHelperHtmlAttribute
//	                                        +-- Extension (rendered by a target extension)
//
// Node kinds are a closed set. Anything outside it is a KindExtension node
// whose payload names the capability the code generator must look up to
// write it. Lowering builds the tree once; passes then edit their own clone.
package ir

import (
	"fmt"
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
)

type Kind int

const (
	KindDocument Kind = iota
	KindNamespace
	KindUsing
	KindClass
	KindMethod
	KindField
	KindProperty
	KindDirective
	KindDirectiveToken
	KindMalformedDirective
	KindHtmlContent
	KindHtmlAttribute
	KindHtmlAttributeValue
	KindCSharpExpressionAttributeValue
	KindCSharpCodeAttributeValue
	KindCSharpExpression
	KindCSharpCode
	KindToken
	KindTagHelper
	KindTagHelperBody
	KindCreateTagHelper
	KindSetTagHelperProperty
	KindAddTagHelperHtmlAttribute
	KindExtension
)

var kindNames = [...]string{
	KindDocument:                       "Document",
	KindNamespace:                      "Namespace",
	KindUsing:                          "Using",
	KindClass:                          "Class",
	KindMethod:                         "Method",
	KindField:                          "Field",
	KindProperty:                       "Property",
	KindDirective:                      "Directive",
	KindDirectiveToken:                 "DirectiveToken",
	KindMalformedDirective:             "MalformedDirective",
	KindHtmlContent:                    "HtmlContent",
	KindHtmlAttribute:                  "HtmlAttribute",
	KindHtmlAttributeValue:             "HtmlAttributeValue",
	KindCSharpExpressionAttributeValue: "CSharpExpressionAttributeValue",
	KindCSharpCodeAttributeValue:       "CSharpCodeAttributeValue",
	KindCSharpExpression:               "CSharpExpression",
	KindCSharpCode:                     "CSharpCode",
	KindToken:                          "Token",
	KindTagHelper:                      "TagHelper",
	KindTagHelperBody:                  "TagHelperBody",
	KindCreateTagHelper:                "CreateTagHelper",
	KindSetTagHelperProperty:           "SetTagHelperProperty",
	KindAddTagHelperHtmlAttribute:      "AddTagHelperHtmlAttribute",
	KindExtension:                      "Extension",
}

func (me Kind) String() string {
	if me >= 0 && int(me) < len(kindNames) {
		return kindNames[me]
	}
	return fmt.Sprintf("Kind(%d)", int(me))
}

// Lang tells which language a token's content belongs to.
type Lang int

const (
	Html Lang = iota
	CSharp
)

func (me Lang) String() string {
	if me == CSharp {
		return "CSharp"
	}
	return "Html"
}

// Extension is the payload of a KindExtension node.
type Extension interface {
	// Capability names the target extension that writes the node.
	Capability() string
	// Describe renders the payload for serialization. It must be stable.
	Describe() string
	Clone() Extension
}

// TagHelperInfo is carried by the tag helper node kinds.
type TagHelperInfo struct {
	TagName string
	TagMode syntax.TagMode
	Binding *taghelper.Binding
	// Descriptor is the helper created or assigned to.
	Descriptor *taghelper.Descriptor
	// Field holds the helper instance in the generated class.
	Field     string
	Attribute taghelper.AttributeMatch
	Style     syntax.AttributeStyle
}

// Node is one intermediate node. Which fields are meaningful depends on Kind;
// the rest stay zero.
type Node struct {
	Kind Kind
	// Source is position.UndefinedSpan for synthesized nodes.
	Source      position.Span
	Children    []*Node
	Diagnostics []diagnostic.Diagnostic

	// Name is the declared name of namespaces, classes, methods, fields and
	// properties, the imported namespace of a Using and the attribute name of
	// attribute nodes.
	Name string
	// Content is the text of Token and DirectiveToken nodes.
	Content string
	Lang    Lang
	// Type is the declared type of fields, properties and methods, and the
	// base type of a class.
	Type       string
	Modifiers  []string
	Interfaces []string
	// Attributes holds C# attribute lists applied to a declaration.
	Attributes []string
	// Prefix and Suffix surround attribute values.
	Prefix string
	Suffix string

	Directive      *directive.Descriptor
	DirectiveToken *directive.TokenDescriptor
	TagHelper      *TagHelperInfo
	Extension      Extension
	// Annotations carry flags between passes.
	Annotations map[string]string
}

func New(kind Kind, source position.Span, children ...*Node) *Node {
	return &Node{Kind: kind, Source: source, Children: children}
}

// Synthesized builds a node that has no source.
func Synthesized(kind Kind, children ...*Node) *Node {
	return New(kind, position.UndefinedSpan, children...)
}

// NewToken builds a token carrying content in lang.
func NewToken(lang Lang, content string, source position.Span) *Node {
	return &Node{Kind: KindToken, Lang: lang, Content: content, Source: source}
}

// NewExtension wraps an extension payload.
func NewExtension(ext Extension, source position.Span, children ...*Node) *Node {
	return &Node{Kind: KindExtension, Extension: ext, Source: source, Children: children}
}

func (me *Node) HasSource() bool {
	return !me.Source.IsUndefined()
}

// Add appends children.
func (me *Node) Add(children ...*Node) {
	me.Children = append(me.Children, children...)
}

// Insert places n at index i of the children.
func (me *Node) Insert(i int, n ...*Node) {
	i = max(0, min(i, len(me.Children)))
	me.Children = append(me.Children[:i], append(n, me.Children[i:]...)...)
}

// Replace swaps old for the given nodes. It reports whether old was a child.
func (me *Node) Replace(old *Node, with ...*Node) bool {
	for i, c := range me.Children {
		if c == old {
			me.Children = append(me.Children[:i], append(with, me.Children[i+1:]...)...)
			return true
		}
	}
	return false
}

// Remove drops old from the children.
func (me *Node) Remove(old *Node) bool {
	return me.Replace(old)
}

// Report attaches a diagnostic to the node.
func (me *Node) Report(d diagnostic.Descriptor, span position.Span, args ...any) {
	if span.IsUndefined() {
		span = me.Source
	}
	me.Diagnostics = append(me.Diagnostics, d.New(span, args...))
}

func (me *Node) Annotate(key, value string) {
	if me.Annotations == nil {
		me.Annotations = map[string]string{}
	}
	me.Annotations[key] = value
}

func (me *Node) Annotation(key string) string {
	return me.Annotations[key]
}

// Text concatenates the content of the token children.
func (me *Node) Text() string {
	var b strings.Builder
	for _, c := range me.Children {
		if c.Kind == KindToken {
			b.WriteString(c.Content)
		}
	}
	return b.String()
}

// Tokens returns the token children.
func (me *Node) Tokens() []*Node {
	var out []*Node
	for _, c := range me.Children {
		if c.Kind == KindToken {
			out = append(out, c)
		}
	}
	return out
}

// DirectiveTokens returns the directive token children of a directive node.
func (me *Node) DirectiveTokens() []*Node {
	var out []*Node
	for _, c := range me.Children {
		if c.Kind == KindDirectiveToken {
			out = append(out, c)
		}
	}
	return out
}

// IsDirective reports whether the node is a directive, well formed or not,
// for d.
func (me *Node) IsDirective(d *directive.Descriptor) bool {
	return (me.Kind == KindDirective || me.Kind == KindMalformedDirective) && me.Directive == d
}
