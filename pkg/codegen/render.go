package codegen

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/position"
)

// Result is the generated code for one document.
type Result struct {
	Path        string
	Text        string
	Mappings    []Mapping
	Diagnostics []diagnostic.Diagnostic
}

// Index builds a lookup structure over the mappings.
func (me *Result) Index() *MappingIndex {
	return NewMappingIndex(me.Mappings)
}

// Context is the state shared by node writers and target extensions while
// one document renders.
type Context struct {
	Writer *Writer
	Target *Target
	Source *position.Document

	diagnostics []diagnostic.Diagnostic
	ids         int
}

func (me *Context) DesignTime() bool {
	return me.Target.Options.DesignTime
}

// LinePragmas reports whether mapped code is wrapped in "#line" directives.
func (me *Context) LinePragmas() bool {
	return !me.Target.Options.SuppressLinePragmas && me.Source != nil && me.Source.Path() != ""
}

// Report records a rendering problem on n. The tree is left untouched.
func (me *Context) Report(n *ir.Node, d diagnostic.Descriptor, args ...any) {
	me.diagnostics = append(me.diagnostics, d.New(n.Source, args...))
}

// UniqueID returns an identifier that is stable for a given document and
// call order.
func (me *Context) UniqueID() string {
	me.ids++
	path := ""
	if me.Source != nil {
		path = me.Source.Path()
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s#%d", path, me.ids))
	return strings.ReplaceAll(id.String(), "-", "")
}

// RenderChildren renders the children of n in order.
func (me *Context) RenderChildren(n *ir.Node) {
	for _, c := range n.Children {
		me.RenderNode(c)
	}
}

// RenderNode dispatches one node to the declaration writers, the node writer
// or the target extension registered for it.
func (me *Context) RenderNode(n *ir.Node) {
	nw := me.Target.NodeWriter
	switch n.Kind {
	case ir.KindDocument:
		me.RenderChildren(n)
	case ir.KindNamespace:
		me.writeNamespace(n)
	case ir.KindUsing:
		me.writeUsing(n)
	case ir.KindClass:
		me.writeClass(n)
	case ir.KindMethod:
		me.writeMethod(n)
	case ir.KindField:
		me.writeField(n)
	case ir.KindProperty:
		me.writeProperty(n)
	case ir.KindDirective, ir.KindDirectiveToken, ir.KindMalformedDirective:
		// Directives carry no output of their own.
	case ir.KindHtmlContent:
		nw.WriteHtmlContent(me, n)
	case ir.KindCSharpExpression:
		nw.WriteCSharpExpression(me, n)
	case ir.KindCSharpCode:
		nw.WriteCSharpCode(me, n)
	case ir.KindHtmlAttribute:
		nw.WriteHtmlAttribute(me, n)
	case ir.KindHtmlAttributeValue:
		nw.WriteHtmlAttributeValue(me, n)
	case ir.KindCSharpExpressionAttributeValue:
		nw.WriteCSharpExpressionAttributeValue(me, n)
	case ir.KindCSharpCodeAttributeValue:
		nw.WriteCSharpCodeAttributeValue(me, n)
	case ir.KindTagHelper:
		nw.WriteTagHelper(me, n)
	case ir.KindToken:
		if n.Lang == ir.CSharp {
			me.WriteToken(n)
		}
	case ir.KindExtension:
		me.writeExtension(n)
	default:
		me.Report(n, diagnostic.UnsupportedNode, n.Kind, me.mode())
	}
}

func (me *Context) mode() string {
	if me.DesignTime() {
		return "design-time"
	}
	return "runtime"
}

func (me *Context) writeExtension(n *ir.Node) {
	if n.Extension == nil {
		me.Report(n, diagnostic.MissingTargetExtension, "<nil>")
		return
	}
	ext, ok := me.Target.Extension(n.Extension.Capability())
	if !ok {
		me.Report(n, diagnostic.MissingTargetExtension, n.Extension.Capability())
		return
	}
	ext.WriteNode(me, n)
}

// WriteToken copies a token to the output, mapped when it has a source.
func (me *Context) WriteToken(t *ir.Node) {
	if t.HasSource() {
		me.Writer.WriteMapped(t.Source, t.Content)
		return
	}
	me.Writer.Write(t.Content)
}

// WriteTokens copies the CSharp token children of n.
func (me *Context) WriteTokens(n *ir.Node) {
	for _, c := range n.Children {
		if c.Kind == ir.KindToken && c.Lang == ir.CSharp {
			me.WriteToken(c)
		}
	}
}

// MappedSpan is the source span covering the tokens of n, or undefined when
// none of them has a source.
func MappedSpan(n *ir.Node) position.Span {
	out := position.UndefinedSpan
	for _, t := range n.Tokens() {
		if t.HasSource() {
			out = out.Union(t.Source)
		}
	}
	return out
}

// WithLinePragma wraps fn in "#line" directives pointing at span.
func (me *Context) WithLinePragma(span position.Span, fn func()) {
	if span.IsUndefined() || !me.LinePragmas() {
		fn()
		return
	}
	if span.FilePath == "" {
		span.FilePath = me.Source.Path()
	}
	me.Writer.BeginLinePragma(span)
	fn()
	me.Writer.EndLinePragma()
}

func (me *Context) writeNamespace(n *ir.Node) {
	w := me.Writer
	w.WriteLine("namespace " + n.Name)
	w.OpenBrace()
	w.Directive("#line hidden")
	me.RenderChildren(n)
	w.CloseBrace("")
}

func (me *Context) writeUsing(n *ir.Node) {
	w := me.Writer
	w.Write("using ")
	if n.HasSource() {
		w.WriteMapped(n.Source, n.Name)
	} else {
		w.Write(n.Name)
	}
	w.WriteLine(";")
}

func (me *Context) writeAttributes(n *ir.Node) {
	for _, a := range n.Attributes {
		me.Writer.WriteLine(a)
	}
}

func declaration(n *ir.Node, what string) string {
	var b strings.Builder
	for _, m := range n.Modifiers {
		b.WriteString(m)
		b.WriteByte(' ')
	}
	if what != "" {
		b.WriteString(what)
		b.WriteByte(' ')
	}
	return b.String()
}

func (me *Context) writeClass(n *ir.Node) {
	w := me.Writer
	me.writeAttributes(n)
	w.Write(declaration(n, "class") + n.Name)
	bases := n.Interfaces
	if n.Type != "" {
		bases = append([]string{n.Type}, bases...)
	}
	if len(bases) > 0 {
		w.Write(" : " + strings.Join(bases, ", "))
	}
	w.OpenBrace()
	me.RenderChildren(n)
	w.CloseBrace("")
}

func (me *Context) writeMethod(n *ir.Node) {
	w := me.Writer
	w.Directive("#pragma warning disable 1998")
	me.writeAttributes(n)
	w.Write(declaration(n, n.Type) + n.Name + "()")
	w.OpenBrace()
	me.RenderChildren(n)
	w.CloseBrace("")
	w.Directive("#pragma warning restore 1998")
}

func (me *Context) writeField(n *ir.Node) {
	w := me.Writer
	me.writeAttributes(n)
	w.Write(declaration(n, n.Type) + n.Name)
	if n.Content != "" {
		w.Write(" = " + n.Content)
	}
	w.WriteLine(";")
}

func (me *Context) writeProperty(n *ir.Node) {
	w := me.Writer
	me.writeAttributes(n)
	w.Write(declaration(n, n.Type) + n.Name)
	accessors := n.Content
	if accessors == "" {
		accessors = "{ get; set; }"
	}
	w.WriteLine(" " + accessors)
}

func (me *Context) writeChecksum() {
	alg := me.Target.Options.Checksum
	if alg == "" || me.Source == nil {
		return
	}
	guid, ok := checksumGuid(alg)
	if !ok {
		return
	}
	sum, err := me.Source.Checksum(alg)
	if err != nil {
		return
	}
	me.Writer.Directive(fmt.Sprintf(`#pragma checksum "%s" "{%s}" "%s"`, me.Source.Path(), guid, hex.EncodeToString(sum)))
}

// Render writes doc with target. It never fails: problems are reported in
// the result's diagnostics and the offending nodes are skipped.
func Render(ctx context.Context, doc *ir.Node, source *position.Document, target *Target) *Result {
	start := time.Now()
	path := target.Options.GeneratedPath
	if path == "" && source != nil && source.Path() != "" {
		path = source.Path() + ".g.cs"
	}

	rc := &Context{
		Writer: NewWriter(path, target.Options.Format),
		Target: target,
		Source: source,
	}
	rc.writeChecksum()
	rc.RenderNode(doc)

	diagnostic.Sort(rc.diagnostics)
	res := &Result{
		Path:        path,
		Text:        rc.Writer.String(),
		Mappings:    rc.Writer.Mappings(),
		Diagnostics: rc.diagnostics,
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Bool("design_time", target.Options.DesignTime).
		Int("mappings", len(res.Mappings)).
		Int("diagnostics", len(res.Diagnostics)).
		Dur("took", time.Since(start)).
		Msg("rendered document")
	return res
}
