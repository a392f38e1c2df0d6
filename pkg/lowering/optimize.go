package lowering

import (
	"slices"
	"strconv"

	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/extension"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
)

// PreallocatedAttributePass replaces tag helper attributes whose values are
// plain text with shared static attributes. Runtime only.
type PreallocatedAttributePass struct{}

func (PreallocatedAttributePass) Name() string { return "preallocated-attributes" }
func (PreallocatedAttributePass) Phase() Phase { return PhaseOptimization }
func (PreallocatedAttributePass) Order() int   { return 0 }

func (PreallocatedAttributePass) Execute(doc *ir.Node, opts Options) {
	class := ir.ClassOf(doc)
	if opts.DesignTime || class == nil {
		return
	}
	vars := map[string]string{}
	var decls []*ir.Node
	declare := func(p *extension.Preallocated) string {
		if v, ok := vars[p.Key()]; ok {
			return v
		}
		p.Variable = "__tagHelperAttribute_" + strconv.Itoa(len(decls))
		vars[p.Key()] = p.Variable
		decls = append(decls, ir.NewExtension(p, position.UndefinedSpan))
		return p.Variable
	}

	for _, th := range ir.Find(doc, ir.KindTagHelper) {
		for _, c := range slices.Clone(th.Children) {
			if len(c.Diagnostics) > 0 || c.TagHelper == nil {
				continue
			}
			switch c.Kind {
			case ir.KindAddTagHelperHtmlAttribute:
				value, ok := attributeText(c)
				if !ok || c.TagHelper.Style == syntax.Minimized {
					continue
				}
				v := declare(&extension.Preallocated{
					Role:      extension.PreallocatedDeclaration,
					Name:      c.Name,
					Value:     value,
					Style:     c.TagHelper.Style,
					HtmlValue: true,
				})
				th.Replace(c, ir.NewExtension(&extension.Preallocated{Role: extension.PreallocatedHtmlAttribute, Variable: v, Name: c.Name}, c.Source))
			case ir.KindSetTagHelperProperty:
				if !codegen.IsStringValue(c) || c.TagHelper.Attribute.Indexer {
					continue
				}
				value, ok := contentText(c)
				if !ok {
					continue
				}
				v := declare(&extension.Preallocated{
					Role:  extension.PreallocatedDeclaration,
					Name:  c.Name,
					Value: value,
					Style: c.TagHelper.Style,
				})
				th.Replace(c, ir.NewExtension(&extension.Preallocated{
					Role:     extension.PreallocatedProperty,
					Variable: v,
					Name:     c.Name,
					Target:   codegen.PropertyTarget(c),
					TypeName: propertyType(c.TagHelper.Attribute),
				}, c.Source))
			}
		}
	}
	insertBeforeMethod(class, decls...)
}

// attributeText joins attribute values that are all literal.
func attributeText(n *ir.Node) (string, bool) {
	var out string
	for _, c := range n.Children {
		if c.Kind != ir.KindHtmlAttributeValue {
			return "", false
		}
		out += c.Prefix + c.Text()
	}
	return out, true
}

// contentText joins a property value made only of markup.
func contentText(n *ir.Node) (string, bool) {
	var out string
	for _, c := range n.Children {
		if c.Kind != ir.KindHtmlContent {
			return "", false
		}
		out += c.Text()
	}
	return out, true
}

// LiteralBytesPass moves markup into static UTF-8 buffers when
// Options.LiteralBytes is set. Runtime only.
type LiteralBytesPass struct{}

func (LiteralBytesPass) Name() string { return "literal-bytes" }
func (LiteralBytesPass) Phase() Phase { return PhaseOptimization }
func (LiteralBytesPass) Order() int   { return 10 }

func (LiteralBytesPass) Execute(doc *ir.Node, opts Options) {
	class := ir.ClassOf(doc)
	if opts.DesignTime || !opts.LiteralBytes || class == nil {
		return
	}
	type site struct{ n, parent *ir.Node }
	var sites []site
	for n, parent := range ir.WalkParents(doc) {
		if n.Kind == ir.KindHtmlContent && parent != nil && n.Text() != "" {
			sites = append(sites, site{n, parent})
		}
	}

	fields := map[string]string{}
	var decls []*ir.Node
	for _, s := range sites {
		text := s.n.Text()
		name, ok := fields[text]
		if !ok {
			name = "__razor_literal_" + strconv.Itoa(len(decls))
			fields[text] = name
			f := ir.Synthesized(ir.KindField)
			f.Name = name
			f.Type = "byte[]"
			f.Modifiers = []string{"private", "static", "readonly"}
			f.Content = extension.ByteArrayInitializer(text)
			decls = append(decls, f)
		}
		lit := ir.NewExtension(&extension.LiteralBytes{Field: name}, s.n.Source)
		lit.Diagnostics = s.n.Diagnostics
		s.parent.Replace(s.n, lit)
	}
	insertBeforeMethod(class, decls...)
}

// DirectiveRemovalPass drops directive nodes from runtime output. Whatever
// a directive still holds besides its tokens stays in place.
type DirectiveRemovalPass struct{}

func (DirectiveRemovalPass) Name() string { return "directive-removal" }
func (DirectiveRemovalPass) Phase() Phase { return PhaseOptimization }
func (DirectiveRemovalPass) Order() int   { return 100 }

func (DirectiveRemovalPass) Execute(doc *ir.Node, opts Options) {
	if opts.DesignTime {
		return
	}
	for _, n := range directiveNodes(doc) {
		unwrapDirective(doc, n)
	}
}

func unwrapDirective(doc, n *ir.Node) {
	parent := ir.ParentOf(doc, n)
	if parent == nil {
		return
	}
	var rest []*ir.Node
	for _, c := range n.Children {
		if c.Kind != ir.KindDirectiveToken {
			rest = append(rest, c)
		}
	}
	parent.Diagnostics = append(parent.Diagnostics, n.Diagnostics...)
	parent.Replace(n, rest...)
}

// DesignTimeDirectivePass gathers every directive token into one helper
// method so editors can resolve them, then drops the directives.
type DesignTimeDirectivePass struct{}

func (DesignTimeDirectivePass) Name() string { return "design-time-directives" }
func (DesignTimeDirectivePass) Phase() Phase { return PhaseOptimization }
func (DesignTimeDirectivePass) Order() int   { return 100 }

func (DesignTimeDirectivePass) Execute(doc *ir.Node, opts Options) {
	class := ir.ClassOf(doc)
	if !opts.DesignTime || class == nil {
		return
	}
	var tokens []*ir.Node
	nodes := directiveNodes(doc)
	for _, n := range nodes {
		for _, t := range n.DirectiveTokens() {
			tokens = append(tokens, ir.Clone(t))
		}
	}
	for _, n := range nodes {
		unwrapDirective(doc, n)
	}
	if len(tokens) > 0 {
		class.Insert(0, ir.NewExtension(&extension.DesignTimeDirective{}, position.UndefinedSpan, tokens...))
	}
}
