package extension

import (
	"strconv"
	"strings"

	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/ir"
)

// LiteralBytes writes a run of markup held in a precomputed UTF-8 buffer.
type LiteralBytes struct {
	// Field is the static buffer declared on the class.
	Field string
}

var _ ir.Extension = (*LiteralBytes)(nil)

func (me *LiteralBytes) Capability() string  { return LiteralBytesCapability }
func (me *LiteralBytes) Describe() string    { return me.Field }
func (me *LiteralBytes) Clone() ir.Extension { c := *me; return &c }

type LiteralBytesTargetExtension struct{}

func (LiteralBytesTargetExtension) Capability() string { return LiteralBytesCapability }

func (LiteralBytesTargetExtension) WriteNode(ctx *codegen.Context, n *ir.Node) {
	ctx.Writer.WriteLine("WriteLiteral(" + n.Extension.(*LiteralBytes).Field + ");")
}

// ByteArrayInitializer renders content as a C# byte array expression.
func ByteArrayInitializer(content string) string {
	var b strings.Builder
	b.WriteString("new byte[] { ")
	for i := 0; i < len(content); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(int(content[i])))
	}
	b.WriteString(" }")
	return b.String()
}
