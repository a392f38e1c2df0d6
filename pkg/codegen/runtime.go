package codegen

import (
	"strconv"

	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/syntax"
)

// NodeWriter writes the content nodes of a method body. Runtime and design
// time output differ only here and in the target extensions.
type NodeWriter interface {
	WriteHtmlContent(ctx *Context, n *ir.Node)
	WriteCSharpExpression(ctx *Context, n *ir.Node)
	WriteCSharpCode(ctx *Context, n *ir.Node)
	WriteHtmlAttribute(ctx *Context, n *ir.Node)
	WriteHtmlAttributeValue(ctx *Context, n *ir.Node)
	WriteCSharpExpressionAttributeValue(ctx *Context, n *ir.Node)
	WriteCSharpCodeAttributeValue(ctx *Context, n *ir.Node)
	WriteTagHelper(ctx *Context, n *ir.Node)
}

const (
	executionContext   = "__tagHelperExecutionContext"
	tagHelperRunner    = "__tagHelperRunner"
	scopeManager       = "__tagHelperScopeManager"
	stringValueBuffer  = "__tagHelperStringValueBuffer"
	runtimeTagHelpers  = "global::Microsoft.AspNetCore.Razor.TagHelpers"
	runtimeHtmlStyle   = "global::Microsoft.AspNetCore.Razor.TagHelpers.HtmlAttributeValueStyle."
	runtimeTagModeType = "global::Microsoft.AspNetCore.Razor.TagHelpers.TagMode."
)

// RuntimeTagHelperFields are the class members runtime tag helper code uses.
func RuntimeTagHelperFields() []*ir.Node {
	field := func(typ, name, init string) *ir.Node {
		n := ir.Synthesized(ir.KindField)
		n.Modifiers = []string{"private"}
		n.Type = typ
		n.Name = name
		n.Content = init
		return n
	}
	return []*ir.Node{
		field("global::Microsoft.AspNetCore.Razor.Runtime.TagHelpers.TagHelperExecutionContext", executionContext, ""),
		field("global::Microsoft.AspNetCore.Razor.Runtime.TagHelpers.TagHelperRunner", tagHelperRunner,
			"new global::Microsoft.AspNetCore.Razor.Runtime.TagHelpers.TagHelperRunner()"),
		field("string", stringValueBuffer, ""),
		field("global::Microsoft.AspNetCore.Razor.Runtime.TagHelpers.TagHelperScopeManager", scopeManager,
			"new global::Microsoft.AspNetCore.Razor.Runtime.TagHelpers.TagHelperScopeManager(StartTagHelperWritingScope, EndTagHelperWritingScope)"),
	}
}

// RuntimeNodeWriter emits the calls a compiled page makes to write itself.
type RuntimeNodeWriter struct{}

var _ NodeWriter = RuntimeNodeWriter{}

func (RuntimeNodeWriter) WriteHtmlContent(ctx *Context, n *ir.Node) {
	if text := n.Text(); text != "" {
		ctx.Writer.WriteLine("WriteLiteral(" + StringLiteral(text) + ");")
	}
}

func (RuntimeNodeWriter) WriteCSharpExpression(ctx *Context, n *ir.Node) {
	if len(n.Tokens()) == 0 {
		return
	}
	ctx.WithLinePragma(MappedSpan(n), func() {
		ctx.Writer.Write("Write(")
		ctx.WriteTokens(n)
		ctx.Writer.WriteLine(");")
	})
}

func (RuntimeNodeWriter) WriteCSharpCode(ctx *Context, n *ir.Node) {
	writeCode(ctx, n)
}

// writeCode copies statements verbatim.
func writeCode(ctx *Context, n *ir.Node) {
	if len(n.Tokens()) == 0 {
		ctx.RenderChildren(n)
		return
	}
	span := MappedSpan(n)
	ctx.WithLinePragma(span, func() {
		if ctx.DesignTime() && !span.IsUndefined() {
			ctx.Writer.PadTo(span.CharacterIndex)
		}
		ctx.WriteTokens(n)
		ctx.Writer.NewLineIfNeeded()
	})
}

func (RuntimeNodeWriter) WriteHtmlAttribute(ctx *Context, n *ir.Node) {
	values := 0
	for _, c := range n.Children {
		switch c.Kind {
		case ir.KindHtmlAttributeValue, ir.KindCSharpExpressionAttributeValue, ir.KindCSharpCodeAttributeValue:
			values++
		}
	}
	start := n.Source.AbsoluteIndex
	suffixAt := n.Source.End() - len(n.Suffix)
	ctx.Writer.WriteLine("BeginWriteAttribute(" + StringLiteral(n.Name) + ", " +
		StringLiteral(n.Prefix) + ", " + strconv.Itoa(start) + ", " +
		StringLiteral(n.Suffix) + ", " + strconv.Itoa(suffixAt) + ", " + strconv.Itoa(values) + ");")
	ctx.RenderChildren(n)
	ctx.Writer.WriteLine("EndWriteAttribute();")
}

// valueArgs renders the position arguments shared by attribute value calls:
// prefix, prefix offset, then after the value, its offset and length.
func valueArgs(n *ir.Node) (prefix, after string) {
	prefixAt := n.Source.AbsoluteIndex
	valueAt := prefixAt + len(n.Prefix)
	length := n.Source.Length - len(n.Prefix)
	return StringLiteral(n.Prefix) + ", " + strconv.Itoa(prefixAt),
		strconv.Itoa(valueAt) + ", " + strconv.Itoa(length)
}

func (RuntimeNodeWriter) WriteHtmlAttributeValue(ctx *Context, n *ir.Node) {
	prefix, after := valueArgs(n)
	ctx.Writer.WriteLine("WriteAttributeValue(" + prefix + ", " + StringLiteral(n.Text()) + ", " + after + ", true);")
}

func (RuntimeNodeWriter) WriteCSharpExpressionAttributeValue(ctx *Context, n *ir.Node) {
	prefix, after := valueArgs(n)
	ctx.WithLinePragma(MappedSpan(n), func() {
		ctx.Writer.Write("WriteAttributeValue(" + prefix + ", ")
		ctx.WriteTokens(n)
		ctx.Writer.WriteLine(", " + after + ", false);")
	})
}

func (RuntimeNodeWriter) WriteCSharpCodeAttributeValue(ctx *Context, n *ir.Node) {
	prefix, after := valueArgs(n)
	w := ctx.Writer
	w.WriteLine("WriteAttributeValue(" + prefix + ", new global::Microsoft.AspNetCore.Mvc.Razor.HelperResult(async(__razor_attribute_value_writer) => {")
	w.Indent()
	w.WriteLine("PushWriter(__razor_attribute_value_writer);")
	ctx.RenderChildren(n)
	w.WriteLine("PopWriter();")
	w.Dedent()
	w.WriteLine("}), " + after + ", false);")
}

func tagMode(m syntax.TagMode) string {
	return runtimeTagModeType + m.String()
}

func htmlStyle(s syntax.AttributeStyle) string {
	return runtimeHtmlStyle + s.String()
}

func (me RuntimeNodeWriter) WriteTagHelper(ctx *Context, n *ir.Node) {
	w := ctx.Writer
	var body *ir.Node
	for _, c := range n.Children {
		if c.Kind == ir.KindTagHelperBody {
			body = c
		}
	}

	w.Write(executionContext + " = " + scopeManager + ".Begin(" + StringLiteral(n.TagHelper.TagName) + ", " +
		tagMode(n.TagHelper.TagMode) + ", " + StringLiteral(ctx.UniqueID()) + ", async() => {")
	w.NewLineIfNeeded()
	w.Indent()
	if body != nil {
		ctx.RenderChildren(body)
	}
	w.Dedent()
	w.WriteLine("}")
	w.WriteLine(");")

	for _, c := range n.Children {
		switch c.Kind {
		case ir.KindTagHelperBody:
		case ir.KindCreateTagHelper:
			w.WriteLine(c.TagHelper.Field + " = CreateTagHelper<global::" + c.TagHelper.Descriptor.TypeName + ">();")
			w.WriteLine(executionContext + ".Add(" + c.TagHelper.Field + ");")
		case ir.KindSetTagHelperProperty:
			me.writeSetProperty(ctx, c)
		case ir.KindAddTagHelperHtmlAttribute:
			me.writeAddAttribute(ctx, c)
		default:
			ctx.RenderNode(c)
		}
	}

	w.WriteLine("await " + tagHelperRunner + ".RunAsync(" + executionContext + ");")
	w.WriteLine("if (!" + executionContext + ".Output.IsContentModified)")
	w.OpenBrace()
	w.WriteLine("await " + executionContext + ".SetOutputContentAsync();")
	w.CloseBrace("")
	w.WriteLine("Write(" + executionContext + ".Output);")
	w.WriteLine(executionContext + " = " + scopeManager + ".End();")
}

// PropertyTarget is the member expression a SetTagHelperProperty assigns.
func PropertyTarget(n *ir.Node) string {
	th := n.TagHelper
	target := th.Field + "." + th.Attribute.Attribute.PropertyName
	if th.Attribute.Indexer {
		target += "[" + StringLiteral(th.Attribute.Key) + "]"
	}
	return target
}

// IsStringValue reports whether the property receives the attribute as
// written rather than as code.
func IsStringValue(n *ir.Node) bool {
	m := n.TagHelper.Attribute
	if m.Indexer {
		return m.Attribute.IsIndexerStringProperty()
	}
	return m.Attribute.IsStringProperty()
}

func (me RuntimeNodeWriter) writeSetProperty(ctx *Context, n *ir.Node) {
	w := ctx.Writer
	target := PropertyTarget(n)
	if IsStringValue(n) {
		w.WriteLine("BeginWriteTagHelperAttribute();")
		ctx.RenderChildren(n)
		w.WriteLine(stringValueBuffer + " = EndWriteTagHelperAttribute();")
		w.WriteLine(target + " = " + stringValueBuffer + ";")
	} else if n.TagHelper.Style == syntax.Minimized {
		w.WriteLine(target + " = true;")
	} else {
		expr := codeValue(n)
		ctx.WithLinePragma(MappedSpan(expr), func() {
			w.Write(target + " = ")
			ctx.WriteTokens(expr)
			w.WriteLine(";")
		})
	}
	w.WriteLine(executionContext + ".AddTagHelperAttribute(" + StringLiteral(n.Name) + ", " + target + ", " + htmlStyle(n.TagHelper.Style) + ");")
}

// codeValue returns the node holding the code of a bound property value.
func codeValue(n *ir.Node) *ir.Node {
	for _, c := range n.Children {
		if c.Kind == ir.KindCSharpExpression {
			return c
		}
	}
	return n
}

func (me RuntimeNodeWriter) writeAddAttribute(ctx *Context, n *ir.Node) {
	w := ctx.Writer
	style := htmlStyle(n.TagHelper.Style)
	if n.TagHelper.Style == syntax.Minimized {
		w.WriteLine(executionContext + ".AddHtmlAttribute(new " + runtimeTagHelpers + ".TagHelperAttribute(" + StringLiteral(n.Name) + "));")
		return
	}
	w.WriteLine("BeginAddHtmlAttributeValues(" + executionContext + ", " + StringLiteral(n.Name) + ", " + strconv.Itoa(len(n.Children)) + ", " + style + ");")
	for _, c := range n.Children {
		prefix, after := valueArgs(c)
		switch c.Kind {
		case ir.KindHtmlAttributeValue:
			w.WriteLine("AddHtmlAttributeValue(" + prefix + ", " + StringLiteral(c.Text()) + ", " + after + ", true);")
		case ir.KindCSharpExpressionAttributeValue:
			ctx.WithLinePragma(MappedSpan(c), func() {
				w.Write("AddHtmlAttributeValue(" + prefix + ", ")
				ctx.WriteTokens(c)
				w.WriteLine(", " + after + ", false);")
			})
		default:
			ctx.RenderNode(c)
		}
	}
	w.WriteLine("EndAddHtmlAttributeValues(" + executionContext + ");")
}
