package codegen

import (
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/syntax"
)

// designTimeTarget receives expression values so editors can type check them.
const designTimeTarget = "__o = "

// DesignTimeNodeWriter emits only the code an editor needs to understand
// the template: expressions, statements and tag helper bindings, each kept
// at its source column. Markup is dropped.
type DesignTimeNodeWriter struct{}

var _ NodeWriter = DesignTimeNodeWriter{}

func (DesignTimeNodeWriter) WriteHtmlContent(*Context, *ir.Node) {}

func (DesignTimeNodeWriter) WriteCSharpExpression(ctx *Context, n *ir.Node) {
	writeDesignTimeExpression(ctx, n)
}

func writeDesignTimeExpression(ctx *Context, n *ir.Node) {
	if len(n.Tokens()) == 0 {
		return
	}
	span := MappedSpan(n)
	if span.IsUndefined() {
		ctx.Writer.Write(designTimeTarget)
		ctx.WriteTokens(n)
		ctx.Writer.WriteLine(";")
		return
	}
	ctx.WithLinePragma(span, func() {
		ctx.Writer.PadTo(span.CharacterIndex - len(designTimeTarget))
		ctx.Writer.Write(designTimeTarget)
		ctx.WriteTokens(n)
		ctx.Writer.WriteLine(";")
	})
}

func (DesignTimeNodeWriter) WriteCSharpCode(ctx *Context, n *ir.Node) {
	writeCode(ctx, n)
}

func (DesignTimeNodeWriter) WriteHtmlAttribute(ctx *Context, n *ir.Node) {
	ctx.RenderChildren(n)
}

func (DesignTimeNodeWriter) WriteHtmlAttributeValue(*Context, *ir.Node) {}

func (DesignTimeNodeWriter) WriteCSharpExpressionAttributeValue(ctx *Context, n *ir.Node) {
	writeDesignTimeExpression(ctx, n)
}

func (DesignTimeNodeWriter) WriteCSharpCodeAttributeValue(ctx *Context, n *ir.Node) {
	ctx.RenderChildren(n)
}

func (DesignTimeNodeWriter) WriteTagHelper(ctx *Context, n *ir.Node) {
	w := ctx.Writer
	for _, c := range n.Children {
		switch c.Kind {
		case ir.KindTagHelperBody:
			ctx.RenderChildren(c)
		case ir.KindCreateTagHelper:
			w.WriteLine(c.TagHelper.Field + " = CreateTagHelper<global::" + c.TagHelper.Descriptor.TypeName + ">();")
		case ir.KindSetTagHelperProperty:
			target := PropertyTarget(c)
			if IsStringValue(c) {
				w.WriteLine(target + " = " + StringLiteral(ir.TextOf(c, ir.Html)) + ";")
				for _, v := range c.Children {
					if v.Kind == ir.KindCSharpExpression {
						writeDesignTimeExpression(ctx, v)
					}
				}
				continue
			}
			if c.TagHelper.Style == syntax.Minimized {
				w.WriteLine(target + " = true;")
				continue
			}
			expr := codeValue(c)
			ctx.WithLinePragma(MappedSpan(expr), func() {
				w.Write(target + " = ")
				ctx.WriteTokens(expr)
				w.WriteLine(";")
			})
		case ir.KindAddTagHelperHtmlAttribute:
			for _, v := range c.Children {
				if v.Kind == ir.KindCSharpExpressionAttributeValue {
					writeDesignTimeExpression(ctx, v)
				}
			}
		default:
			ctx.RenderNode(c)
		}
	}
}
