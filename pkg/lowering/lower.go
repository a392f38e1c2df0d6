// Package lowering turns a syntax tree into an intermediate document and
// runs the passes that give directives and tag helpers their meaning.
//
//	syntax.Tree ──Lower──▶ Document
//	                         └─ Namespace
//	                              ├─ Using*
//	                              └─ Class
//	                                   └─ Method (template body)
//
//	Document ──Pipeline.Run──▶ Document'   (directive classifiers,
//	                                        tag helpers, optimizations)
package lowering

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
)

// Annotation keys shared by lowering and the passes.
const (
	// AnnotationImported marks directives that come from an imports file.
	AnnotationImported = "imported"
	// AnnotationNested marks directives found inside code or an element.
	AnnotationNested = "nested"
	// AnnotationModel records the resolved model type on the document.
	AnnotationModel = "model"
)

const (
	DefaultNamespace  = "Razor"
	DefaultBaseType   = "global::Microsoft.AspNetCore.Mvc.Razor.RazorPage<TModel>"
	DefaultModelType  = "dynamic"
	ExecuteMethodName = "ExecuteAsync"
	executeMethodType = "global::System.Threading.Tasks.Task"
)

// DefaultImports are the namespaces every document sees.
var DefaultImports = []string{
	"System",
	"System.Collections.Generic",
	"System.Linq",
	"System.Threading.Tasks",
	"Microsoft.AspNetCore.Mvc",
	"Microsoft.AspNetCore.Mvc.Rendering",
	"Microsoft.AspNetCore.Mvc.ViewFeatures",
}

type Options struct {
	DesignTime bool
	// Namespace defaults to DefaultNamespace.
	Namespace string
	// ClassName defaults to a name derived from the document path.
	ClassName string
	// BaseType may mention TModel, which the model pass substitutes.
	BaseType string
	// ModelType is used when the document has no @model directive.
	ModelType string
	// Imports defaults to DefaultImports. An empty, non-nil slice means none.
	Imports []string
	// LiteralBytes makes runtime output write markup from byte buffers.
	LiteralBytes bool
}

func (me Options) withDefaults() Options {
	if me.Namespace == "" {
		me.Namespace = DefaultNamespace
	}
	if me.BaseType == "" {
		me.BaseType = DefaultBaseType
	}
	if me.ModelType == "" {
		me.ModelType = DefaultModelType
	}
	if me.Imports == nil {
		me.Imports = DefaultImports
	}
	return me
}

// ClassNameFor derives a class name from a document path.
func ClassNameFor(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimSuffix(path, filepath.Ext(path))
	path = strings.TrimLeft(path, "/.")
	var b strings.Builder
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		return "Template"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

// Lower builds the intermediate document for tree. Directives and usings of
// the imports trees apply before the document's own.
func Lower(ctx context.Context, tree *syntax.Tree, opts Options, imports ...*syntax.Tree) *ir.Node {
	opts = opts.withDefaults()

	l := &lowerer{seen: map[string]bool{}}
	ns := ir.Synthesized(ir.KindNamespace)
	ns.Name = opts.Namespace

	class := ir.Synthesized(ir.KindClass)
	class.Name = opts.ClassName
	if class.Name == "" {
		class.Name = ClassNameFor(tree.Source.Path())
	}
	class.Modifiers = []string{"public"}
	class.Type = opts.BaseType

	method := ir.Synthesized(ir.KindMethod)
	method.Name = ExecuteMethodName
	method.Type = executeMethodType
	method.Modifiers = []string{"public", "async", "override"}

	for _, name := range opts.Imports {
		l.addUsing(name, position.UndefinedSpan)
	}
	for _, imp := range imports {
		l.lowerImport(method, imp)
	}
	l.lowerChildren(method, tree.Root.Children)

	// Parse problems stay visible in the intermediate tree.
	method.Diagnostics = append(method.Diagnostics, tree.Extra...)

	if opts.DesignTime {
		// Design-time expressions are assigned to this field.
		o := ir.Synthesized(ir.KindField)
		o.Name = "__o"
		o.Type = "global::System.Object"
		o.Modifiers = []string{"private", "static"}
		o.Content = "null"
		class.Add(o)
	}
	class.Add(method)
	ns.Add(l.usings...)
	ns.Add(class)
	doc := ir.New(ir.KindDocument, position.NewSpan(position.Location{FilePath: tree.Source.Path()}, tree.Source.Len()), ns)

	zerolog.Ctx(ctx).Debug().
		Str("path", tree.Source.Path()).
		Int("imports", len(imports)).
		Msg("lowered document")
	return doc
}

type lowerer struct {
	usings []*ir.Node
	seen   map[string]bool
	// nested counts the code blocks, directive bodies and tag helpers around
	// the current node; elements counts open markup elements.
	nested   int
	elements int
	imported bool
}

func (me *lowerer) addUsing(name string, source position.Span) {
	if name == "" || me.seen[name] {
		return
	}
	me.seen[name] = true
	u := ir.New(ir.KindUsing, source)
	u.Name = name
	me.usings = append(me.usings, u)
}

// lowerImport keeps only the usings and directives of an imports file.
func (me *lowerer) lowerImport(method *ir.Node, tree *syntax.Tree) {
	me.imported = true
	defer func() { me.imported = false }()
	for n := range syntax.Walk(tree.Root) {
		b, ok := n.(*syntax.Block)
		if !ok || b.Type != syntax.BlockDirective {
			continue
		}
		me.lowerDirective(method, b)
	}
}

func (me *lowerer) lowerChildren(parent *ir.Node, nodes []syntax.Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *syntax.Span:
			me.lowerSpan(parent, n)
		case *syntax.Block:
			me.lowerBlock(parent, n)
		}
	}
}

func (me *lowerer) lowerSpan(parent *ir.Node, s *syntax.Span) {
	if s.Length() == 0 {
		return
	}
	switch g := s.Generator.(type) {
	case syntax.MarkupGenerator:
		addHtml(parent, s.Content(), s.SourceSpan())
	case syntax.LiteralAttributeGenerator:
		addHtml(parent, g.Prefix.Value+g.Value.Value, s.SourceSpan())
	case syntax.StatementGenerator:
		addCode(parent, s)
	case syntax.ExpressionGenerator:
		expr := ir.New(ir.KindCSharpExpression, s.SourceSpan(), csharpToken(s))
		parent.Add(expr)
	}
}

// addHtml appends markup, extending the previous HtmlContent when the two
// are adjacent.
func addHtml(parent *ir.Node, text string, source position.Span) {
	tok := ir.NewToken(ir.Html, text, source)
	if n := len(parent.Children); n > 0 {
		last := parent.Children[n-1]
		if last.Kind == ir.KindHtmlContent && len(last.Diagnostics) == 0 && last.Source.End() == source.AbsoluteIndex {
			last.Add(tok)
			last.Source = last.Source.Union(source)
			return
		}
	}
	parent.Add(ir.New(ir.KindHtmlContent, source, tok))
}

func addCode(parent *ir.Node, s *syntax.Span) {
	tok := csharpToken(s)
	if n := len(parent.Children); n > 0 {
		last := parent.Children[n-1]
		if last.Kind == ir.KindCSharpCode && len(last.Diagnostics) == 0 && last.Source.End() == tok.Source.AbsoluteIndex {
			last.Add(tok)
			last.Source = last.Source.Union(tok.Source)
			return
		}
	}
	parent.Add(ir.New(ir.KindCSharpCode, tok.Source, tok))
}

func csharpToken(s *syntax.Span) *ir.Node {
	return ir.NewToken(ir.CSharp, s.Content(), s.SourceSpan())
}

func (me *lowerer) lowerBlock(parent *ir.Node, b *syntax.Block) {
	switch b.Type {
	case syntax.BlockComment:
		return
	case syntax.BlockExpression:
		me.lowerExpression(parent, b)
	case syntax.BlockStatement:
		me.nested++
		me.lowerChildren(parent, b.Children)
		me.nested--
		attach(parent, b)
	case syntax.BlockDirective:
		me.lowerDirective(parent, b)
	case syntax.BlockTag:
		me.trackElement(b)
		me.lowerChildren(parent, b.Children)
		attach(parent, b)
	case syntax.BlockAttribute:
		me.lowerAttribute(parent, b)
	case syntax.BlockTagHelper:
		me.lowerTagHelper(parent, b)
	default:
		me.lowerChildren(parent, b.Children)
		attach(parent, b)
	}
}

// attach keeps the diagnostics of a block that has no node of its own.
func attach(parent *ir.Node, b *syntax.Block) {
	parent.Diagnostics = append(parent.Diagnostics, b.Diagnostics...)
}

func (me *lowerer) trackElement(tag *syntax.Block) {
	info := tag.Tag
	if info == nil || info.OptOut {
		return
	}
	switch {
	case info.EndTag:
		me.elements = max(0, me.elements-1)
	case !info.SelfClosing && !info.Void && !info.Unfinished:
		me.elements++
	}
}

// lowerExpression emits the code of an expression block. Markup left inside
// it, such as whitespace, goes around the expression.
func (me *lowerer) lowerExpression(parent *ir.Node, b *syntax.Block) {
	expr := ir.New(ir.KindCSharpExpression, b.SourceSpan())
	expr.Diagnostics = append(expr.Diagnostics, b.Diagnostics...)
	var after []*syntax.Span
	for s := range syntax.Spans(b) {
		switch s.Generator.(type) {
		case syntax.ExpressionGenerator:
			if s.Kind == syntax.SpanCode && s.Length() > 0 {
				expr.Add(csharpToken(s))
			}
		case syntax.MarkupGenerator:
			if len(expr.Children) == 0 {
				addHtml(parent, s.Content(), s.SourceSpan())
			} else {
				after = append(after, s)
			}
		}
	}
	if span := tokenSpan(expr); !span.IsUndefined() {
		expr.Source = span
	}
	if len(expr.Children) > 0 || len(expr.Diagnostics) > 0 {
		parent.Add(expr)
	}
	for _, s := range after {
		addHtml(parent, s.Content(), s.SourceSpan())
	}
}

func tokenSpan(n *ir.Node) position.Span {
	out := position.UndefinedSpan
	for _, t := range n.Tokens() {
		out = out.Union(t.Source)
	}
	return out
}

func (me *lowerer) lowerDirective(parent *ir.Node, b *syntax.Block) {
	d, ok := syntax.DirectiveOf(b)
	if !ok {
		me.lowerUsing(parent, b)
		return
	}
	kind := ir.KindDirective
	if diagnostic.HasErrors(b.Diagnostics) {
		kind = ir.KindMalformedDirective
	}
	n := ir.New(kind, b.SourceSpan())
	n.Directive = d
	n.Diagnostics = append(n.Diagnostics, b.Diagnostics...)
	if me.imported {
		n.Annotate(AnnotationImported, "true")
	}
	if me.nested > 0 || me.elements > 0 {
		n.Annotate(AnnotationNested, "true")
	}

	me.nested++
	for _, c := range b.Children {
		switch c := c.(type) {
		case *syntax.Span:
			if g, ok := c.Generator.(syntax.DirectiveTokenGenerator); ok {
				tok := ir.New(ir.KindDirectiveToken, c.SourceSpan())
				tok.Content = c.Content()
				token := g.Token
				tok.DirectiveToken = &token
				n.Add(tok)
				continue
			}
			if !me.imported {
				me.lowerSpan(n, c)
			}
		case *syntax.Block:
			if !me.imported {
				me.lowerBlock(n, c)
			}
		}
	}
	me.nested--
	parent.Add(n)
}

func (me *lowerer) lowerUsing(parent *ir.Node, b *syntax.Block) {
	for s := range syntax.Spans(b) {
		g, ok := s.Generator.(syntax.AddImportGenerator)
		if !ok || g.Namespace == "" {
			continue
		}
		content := s.Content()
		i := strings.Index(content, g.Namespace)
		source := position.UndefinedSpan
		if i >= 0 {
			source = position.NewSpan(s.Start.Advance(content[:i]), len(g.Namespace))
		}
		me.addUsing(g.Namespace, source)
	}
	attach(parent, b)
}

// lowerAttribute turns a conditional attribute into an HtmlAttribute with
// one value node per piece. Other attributes are plain content.
func (me *lowerer) lowerAttribute(parent *ir.Node, b *syntax.Block) {
	g, ok := b.Generator.(syntax.AttributeBlockGenerator)
	if !ok {
		me.lowerChildren(parent, b.Children)
		attach(parent, b)
		return
	}
	attr := ir.New(ir.KindHtmlAttribute, b.SourceSpan())
	attr.Name = g.Name
	attr.Prefix = g.Prefix.Value
	attr.Suffix = g.Suffix.Value
	attr.Diagnostics = append(attr.Diagnostics, b.Diagnostics...)
	attr.Add(me.attributeValues(b.AttributeValue())...)
	parent.Add(attr)
}

// attributeValues lowers the value nodes of an attribute into attribute
// value nodes.
func (me *lowerer) attributeValues(nodes []syntax.Node) []*ir.Node {
	var out []*ir.Node
	for _, n := range nodes {
		switch n := n.(type) {
		case *syntax.Span:
			if n.Length() == 0 {
				continue
			}
			switch g := n.Generator.(type) {
			case syntax.LiteralAttributeGenerator:
				v := ir.New(ir.KindHtmlAttributeValue, n.SourceSpan())
				v.Prefix = g.Prefix.Value
				v.Add(ir.NewToken(ir.Html, g.Value.Value, position.NewSpan(g.Value.Location, len(g.Value.Value))))
				out = append(out, v)
			case syntax.MarkupGenerator:
				v := ir.New(ir.KindHtmlAttributeValue, n.SourceSpan(), ir.NewToken(ir.Html, n.Content(), n.SourceSpan()))
				out = append(out, v)
			case syntax.ExpressionGenerator:
				out = append(out, ir.New(ir.KindCSharpExpressionAttributeValue, n.SourceSpan(), csharpToken(n)))
			}
		case *syntax.Block:
			out = append(out, me.dynamicValue(n))
		}
	}
	return out
}

// dynamicValue lowers a dynamic attribute piece. A lone expression becomes an
// expression value; anything else is code that writes the value.
func (me *lowerer) dynamicValue(b *syntax.Block) *ir.Node {
	prefix := ""
	if g, ok := b.Generator.(syntax.DynamicAttributeGenerator); ok {
		prefix = g.Prefix.Value
	}
	var expr *syntax.Block
	for _, c := range b.Children {
		if cb, ok := c.(*syntax.Block); ok {
			if expr != nil || cb.Type != syntax.BlockExpression {
				expr = nil
				break
			}
			expr = cb
		}
	}
	if b.Type == syntax.BlockExpression {
		expr = b
	}

	if expr != nil {
		holder := ir.Synthesized(ir.KindMethod)
		me.lowerExpression(holder, expr)
		v := ir.New(ir.KindCSharpExpressionAttributeValue, b.SourceSpan())
		v.Prefix = prefix
		for _, c := range holder.Children {
			if c.Kind == ir.KindCSharpExpression {
				v.Add(c.Children...)
				v.Diagnostics = append(v.Diagnostics, c.Diagnostics...)
			}
		}
		return v
	}

	v := ir.New(ir.KindCSharpCodeAttributeValue, b.SourceSpan())
	v.Prefix = prefix
	for _, c := range b.Children {
		if s, ok := c.(*syntax.Span); ok && s.Kind == syntax.SpanMarkup && s.Generator == nil {
			// Whitespace before the value is the prefix.
			continue
		}
		me.lowerChildren(v, []syntax.Node{c})
	}
	return v
}

// lowerTagHelper builds a TagHelper node holding the body and one node per
// attribute: SetTagHelperProperty for bound attributes, one per matching
// helper, and AddTagHelperHtmlAttribute for the rest. Creating the helpers
// is left to the tag helper pass.
func (me *lowerer) lowerTagHelper(parent *ir.Node, b *syntax.Block) {
	info := b.TagHelper
	th := ir.New(ir.KindTagHelper, b.SourceSpan())
	th.TagHelper = &ir.TagHelperInfo{TagName: info.TagName, TagMode: info.TagMode, Binding: info.Binding}
	th.Diagnostics = append(th.Diagnostics, b.Diagnostics...)
	if info.StartTag != nil {
		th.Diagnostics = append(th.Diagnostics, info.StartTag.Diagnostics...)
	}

	if body := b.Body(); len(body) > 0 {
		bn := ir.New(ir.KindTagHelperBody, position.NewSpan(body[0].Location(), 0))
		for _, n := range body {
			bn.Source = bn.Source.Union(n.SourceSpan())
		}
		me.nested++
		saved := me.elements
		me.elements = 0
		me.lowerChildren(bn, body)
		me.elements = saved
		me.nested--
		th.Add(bn)
	}

	for _, a := range info.Attributes {
		matches := info.Binding.Bound(a.Name)
		if len(matches) == 0 {
			add := ir.New(ir.KindAddTagHelperHtmlAttribute, a.Block.SourceSpan())
			add.Name = a.Name
			add.TagHelper = &ir.TagHelperInfo{TagName: info.TagName, Style: a.Style}
			add.Diagnostics = append(add.Diagnostics, a.Block.Diagnostics...)
			if a.Style != syntax.Minimized {
				add.Add(me.attributeValues(a.Value())...)
			}
			th.Add(add)
			continue
		}
		for i, m := range matches {
			set := ir.New(ir.KindSetTagHelperProperty, a.Block.SourceSpan())
			set.Name = a.Name
			set.TagHelper = &ir.TagHelperInfo{
				TagName:    info.TagName,
				Descriptor: m.Descriptor,
				Attribute:  m.AttributeMatch,
				Style:      a.Style,
			}
			if i == 0 {
				set.Diagnostics = append(set.Diagnostics, a.Block.Diagnostics...)
			}
			if a.Style != syntax.Minimized {
				me.propertyValue(set, a)
			}
			th.Add(set)
		}
	}
	parent.Add(th)
}

// propertyValue lowers the value of a bound attribute. Values the parser read
// as code become one expression; string values stay markup with embedded
// expressions.
func (me *lowerer) propertyValue(set *ir.Node, a syntax.TagHelperAttribute) {
	value := a.Value()
	if a.Block.Attribute.Bound {
		expr := ir.New(ir.KindCSharpExpression, position.UndefinedSpan)
		for _, n := range value {
			if s, ok := n.(*syntax.Span); ok && s.Kind == syntax.SpanCode && s.Length() > 0 {
				expr.Add(csharpToken(s))
			}
		}
		expr.Source = tokenSpan(expr)
		set.Add(expr)
		return
	}
	me.lowerChildren(set, value)
}
