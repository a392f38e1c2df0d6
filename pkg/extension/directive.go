package extension

import (
	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/ir"
)

// DesignTimeDirective collects the directive tokens of a document so that
// design-time output can reference each one at its source position. Its
// children are DirectiveToken nodes.
type DesignTimeDirective struct{}

var _ ir.Extension = (*DesignTimeDirective)(nil)

func (me *DesignTimeDirective) Capability() string  { return DesignTimeDirectiveCapability }
func (me *DesignTimeDirective) Describe() string    { return "" }
func (me *DesignTimeDirective) Clone() ir.Extension { return &DesignTimeDirective{} }

type DesignTimeDirectiveTargetExtension struct{}

func (DesignTimeDirectiveTargetExtension) Capability() string {
	return DesignTimeDirectiveCapability
}

const typeHelper = "__typeHelper"

func (DesignTimeDirectiveTargetExtension) WriteNode(ctx *codegen.Context, n *ir.Node) {
	w := ctx.Writer
	w.Directive("#pragma warning disable 219")
	w.WriteLine("private void __RazorDirectiveTokenHelpers__()")
	w.OpenBrace()
	for _, tok := range n.Children {
		if tok.Kind != ir.KindDirectiveToken || tok.DirectiveToken == nil || tok.Content == "" {
			continue
		}
		if tok.DirectiveToken.Kind == directive.Attribute {
			continue
		}
		w.WriteLine("((global::System.Action)(() => {")
		ctx.WithLinePragma(tok.Source, func() { writeDirectiveToken(ctx, tok) })
		w.WriteLine("}")
		w.WriteLine("))();")
	}
	w.CloseBrace("")
	w.Directive("#pragma warning restore 219")
}

func writeDirectiveToken(ctx *codegen.Context, tok *ir.Node) {
	w := ctx.Writer
	mapped := func() {
		if tok.HasSource() {
			w.WriteMapped(tok.Source, tok.Content)
			return
		}
		w.Write(tok.Content)
	}
	switch tok.DirectiveToken.Kind {
	case directive.Type:
		mapped()
		w.WriteLine(" " + typeHelper + " = default(" + tok.Content + ");")
	case directive.Member:
		w.Write("global::System.Object ")
		mapped()
		w.WriteLine(" = null;")
	case directive.Namespace:
		w.Write("global::System.Object " + typeHelper + " = nameof(")
		mapped()
		w.WriteLine(");")
	case directive.String, directive.Boolean:
		w.Write("global::System.Object " + typeHelper + " = ")
		mapped()
		w.WriteLine(";")
	default:
		w.WriteLine("global::System.Object " + typeHelper + " = " + codegen.StringLiteral(tok.Content) + ";")
	}
}
