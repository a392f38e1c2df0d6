package extension

import (
	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/ir"
)

// Section is a "@section Name { ... }" body. Its children are the body.
type Section struct {
	Name string
}

var _ ir.Extension = (*Section)(nil)

func (me *Section) Capability() string  { return SectionCapability }
func (me *Section) Describe() string    { return me.Name }
func (me *Section) Clone() ir.Extension { c := *me; return &c }

// SectionTargetExtension writes sections as DefineSection calls taking the
// body as an async delegate.
type SectionTargetExtension struct{}

func (SectionTargetExtension) Capability() string { return SectionCapability }

func (SectionTargetExtension) WriteNode(ctx *codegen.Context, n *ir.Node) {
	section := n.Extension.(*Section)
	w := ctx.Writer
	lambda := "async() => {"
	if ctx.DesignTime() {
		lambda = "async(__razor_section_writer) => {"
	}
	w.WriteLine("DefineSection(" + codegen.StringLiteral(section.Name) + ", " + lambda)
	w.Indent()
	ctx.RenderChildren(n)
	w.Dedent()
	w.WriteLine("}")
	w.WriteLine(");")
}
