package extension

import (
	"strings"

	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/syntax"
)

// PreallocatedRole says which part of a preallocated attribute a node writes.
type PreallocatedRole int

const (
	// PreallocatedDeclaration declares the static attribute on the class.
	PreallocatedDeclaration PreallocatedRole = iota
	// PreallocatedHtmlAttribute adds the attribute to the tag helper output.
	PreallocatedHtmlAttribute
	// PreallocatedProperty assigns the attribute value to a helper property.
	PreallocatedProperty
)

func (me PreallocatedRole) String() string {
	switch me {
	case PreallocatedHtmlAttribute:
		return "html-attribute"
	case PreallocatedProperty:
		return "property"
	}
	return "declaration"
}

// Preallocated replaces attribute nodes whose values are plain text with a
// single static TagHelperAttribute shared by every render of the page.
type Preallocated struct {
	Role     PreallocatedRole
	Variable string
	Name     string
	Value    string
	Style    syntax.AttributeStyle
	// HtmlValue wraps the value in an HtmlString, for attributes that are
	// written out rather than bound.
	HtmlValue bool
	// Target and TypeName describe the assigned property.
	Target   string
	TypeName string
}

var _ ir.Extension = (*Preallocated)(nil)

func (me *Preallocated) Capability() string  { return PreallocatedCapability }
func (me *Preallocated) Clone() ir.Extension { c := *me; return &c }

func (me *Preallocated) Describe() string {
	parts := []string{me.Role.String(), me.Variable}
	switch me.Role {
	case PreallocatedDeclaration:
		parts = append(parts, me.Name, me.Value, me.Style.String())
	case PreallocatedProperty:
		parts = append(parts, me.Target)
	}
	return strings.Join(parts, " ")
}

// Key identifies equal declarations so they can share one variable.
func (me *Preallocated) Key() string {
	html := "value"
	if me.HtmlValue {
		html = "html"
	}
	return strings.Join([]string{me.Name, me.Value, me.Style.String(), html}, "\x00")
}

type PreallocatedTargetExtension struct{}

func (PreallocatedTargetExtension) Capability() string { return PreallocatedCapability }

const (
	tagHelperAttributeType = "global::Microsoft.AspNetCore.Razor.TagHelpers.TagHelperAttribute"
	htmlStringType         = "global::Microsoft.AspNetCore.Html.HtmlString"
	htmlStylePrefix        = "global::Microsoft.AspNetCore.Razor.TagHelpers.HtmlAttributeValueStyle."
	executionContext       = "__tagHelperExecutionContext"
)

func (PreallocatedTargetExtension) WriteNode(ctx *codegen.Context, n *ir.Node) {
	p := n.Extension.(*Preallocated)
	w := ctx.Writer
	switch p.Role {
	case PreallocatedDeclaration:
		value := codegen.StringLiteral(p.Value)
		if p.HtmlValue {
			value = "new " + htmlStringType + "(" + value + ")"
		}
		w.WriteLine("private static readonly " + tagHelperAttributeType + " " + p.Variable + " = new " + tagHelperAttributeType +
			"(" + codegen.StringLiteral(p.Name) + ", " + value + ", " + htmlStylePrefix + p.Style.String() + ");")
	case PreallocatedHtmlAttribute:
		w.WriteLine(executionContext + ".AddHtmlAttribute(" + p.Variable + ");")
	case PreallocatedProperty:
		w.WriteLine(p.Target + " = (" + p.TypeName + ")" + p.Variable + ".Value;")
		w.WriteLine(executionContext + ".AddTagHelperAttribute(" + p.Variable + ");")
	}
}
