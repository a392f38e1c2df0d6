package parser

import (
	"slices"
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
)

// TagHelperDirective is one addTagHelper, removeTagHelper or tagHelperPrefix
// directive found in a document.
type TagHelperDirective struct {
	Directive string
	Value     string
	Span      position.Span
}

// DiscoverTagHelperDirectives lists the well-formed tag helper directives of
// tree in document order.
func DiscoverTagHelperDirectives(tree *syntax.Tree) []TagHelperDirective {
	var out []TagHelperDirective
	for n := range syntax.Walk(tree.Root) {
		b, ok := n.(*syntax.Block)
		if !ok || diagnostic.HasErrors(b.Diagnostics) {
			continue
		}
		d, ok := syntax.DirectiveOf(b)
		if !ok {
			continue
		}
		switch d.Directive {
		case directive.AddTagHelperDirective.Directive,
			directive.RemoveTagHelperDirective.Directive,
			directive.TagHelperPrefixDirective.Directive:
		default:
			continue
		}
		if value, span, ok := directiveValue(b); ok {
			out = append(out, TagHelperDirective{Directive: d.Directive, Value: value, Span: span})
		}
	}
	return out
}

// directiveValue returns the trimmed text of the first token of a directive.
func directiveValue(b *syntax.Block) (string, position.Span, bool) {
	for s := range syntax.Spans(b) {
		if _, ok := s.Generator.(syntax.DirectiveTokenGenerator); ok {
			return strings.TrimSpace(s.Content()), s.SourceSpan(), true
		}
	}
	return "", position.UndefinedSpan, false
}

// ResolveTagHelpers applies directives in order to the known descriptors and
// returns the binder for the document. Directives from imports come first.
// It returns a nil binder when no descriptor is in scope.
func ResolveTagHelpers(directives []TagHelperDirective, known []*taghelper.Descriptor) (*taghelper.Binder, []diagnostic.Diagnostic) {
	var diags []diagnostic.Diagnostic
	var scope []*taghelper.Descriptor
	prefix := ""

	for _, d := range directives {
		switch d.Directive {
		case directive.TagHelperPrefixDirective.Directive:
			prefix = unquote(d.Value)
			continue
		}
		lookup, err := taghelper.ParseLookup(d.Value)
		if err != nil {
			continue
		}
		matched := 0
		for _, desc := range known {
			if !lookup.Matches(desc) {
				continue
			}
			matched++
			if d.Directive == directive.RemoveTagHelperDirective.Directive {
				scope = slices.DeleteFunc(scope, func(o *taghelper.Descriptor) bool { return o == desc })
				continue
			}
			if !slices.Contains(scope, desc) {
				scope = append(scope, desc)
			}
		}
		if matched == 0 {
			diags = append(diags, diagnostic.TagHelperLookupMatchedNothing.New(d.Span, d.Value))
		}
	}
	if len(scope) == 0 {
		return nil, diags
	}

	valid := make([]*taghelper.Descriptor, 0, len(scope))
	for _, desc := range scope {
		checked := taghelper.Validate(desc)
		if !diagnostic.HasErrors(checked.Diagnostics) {
			valid = append(valid, desc)
			continue
		}
		span := position.UndefinedSpan
		for _, d := range directives {
			if lookup, err := taghelper.ParseLookup(d.Value); err == nil && lookup.Matches(desc) {
				span = d.Span
			}
		}
		for _, problem := range checked.Diagnostics {
			problem.Span = span
			diags = append(diags, problem)
		}
	}
	return taghelper.NewBinder(prefix, valid), diags
}

// RewriteTagHelpers nests the content of elements bound to tag helpers under
// TagHelper blocks. Tags are siblings in the parsed tree; the rewriter pairs
// start and end tags and moves everything between them into the new block.
func RewriteTagHelpers(tree *syntax.Tree, binder *taghelper.Binder) *syntax.Tree {
	r := &rewriter{binder: binder}
	root := r.rewriteBlock(tree.Root, "")
	if root == tree.Root && len(r.diags) == 0 {
		return tree
	}
	return &syntax.Tree{Source: tree.Source, Root: root, Extra: slices.Concat(tree.Extra, r.diags)}
}

type rewriter struct {
	binder *taghelper.Binder
	diags  []diagnostic.Diagnostic
}

type openElement struct {
	name     string
	helper   *syntax.Block
	children []syntax.Node
}

func (me *rewriter) rewriteBlock(b *syntax.Block, parentTag string) *syntax.Block {
	switch b.Type {
	case syntax.BlockTag, syntax.BlockAttribute, syntax.BlockComment, syntax.BlockHtmlComment:
		return b
	}
	children := me.rewriteChildren(b.Children, parentTag)
	if slices.Equal(children, b.Children) {
		return b
	}
	return b.WithChildren(children)
}

func (me *rewriter) rewriteChildren(nodes []syntax.Node, parentTag string) []syntax.Node {
	var out []syntax.Node
	var stack []*openElement
	startOnly := map[string]bool{}

	helper := func() *openElement {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].helper != nil {
				return stack[i]
			}
		}
		return nil
	}
	// direct is the helper whose immediate content is being read.
	direct := func() *openElement {
		if len(stack) > 0 && stack[len(stack)-1].helper != nil {
			return stack[len(stack)-1]
		}
		return nil
	}
	emit := func(n syntax.Node) {
		if h := helper(); h != nil {
			h.children = append(h.children, n)
			return
		}
		out = append(out, n)
	}
	parent := func() string {
		if len(stack) > 0 {
			return stack[len(stack)-1].name
		}
		return parentTag
	}
	// pop closes the innermost open element. A helper closed without its end
	// tag is malformed.
	pop := func(end *syntax.Block) {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.helper == nil {
			if end != nil {
				emit(end)
			}
			return
		}
		if end != nil {
			e.children = append(e.children, end)
			e.helper.TagHelper.EndTag = end
		} else {
			me.report(e.helper, diagnostic.MalformedTagHelper, e.helper.TagHelper.StartTag.SourceSpan(), e.name)
		}
		e.helper.Children = e.children
		emit(e.helper)
	}

	for _, n := range nodes {
		tag, ok := n.(*syntax.Block)
		if !ok || tag.Type != syntax.BlockTag || tag.Tag == nil || tag.Tag.OptOut {
			if ok && tag.Type != syntax.BlockTag {
				n = me.rewriteBlock(tag, parent())
			}
			me.checkContent(direct(), n)
			emit(n)
			continue
		}

		if tag.Tag.EndTag {
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if strings.EqualFold(stack[i].name, tag.Tag.Name) {
					idx = i
					break
				}
			}
			if idx < 0 {
				if startOnly[strings.ToLower(tag.Tag.Name)] {
					me.diags = append(me.diags, diagnostic.TagHelperMustNotHaveEndTag.New(tag.SourceSpan(), tag.Tag.Name, tag.Tag.Name))
				}
				emit(tag)
				continue
			}
			for len(stack)-1 > idx {
				pop(nil)
			}
			pop(tag)
			continue
		}

		if h := direct(); h != nil {
			me.checkChild(h, tag)
		}
		attrs := attributesOf(tag)
		binding := me.binder.Bind(tag.Tag.Name, elementAttributes(attrs), parent())
		if binding == nil {
			emit(tag)
			if !tag.Tag.SelfClosing && !tag.Tag.Void && !tag.Tag.Unfinished {
				stack = append(stack, &openElement{name: tag.Tag.Name})
			}
			continue
		}

		info := &syntax.TagHelperInfo{
			TagName:    tag.Tag.Name,
			Binding:    binding,
			Attributes: attrs,
			StartTag:   tag,
		}
		block := &syntax.Block{
			Type:      syntax.BlockTagHelper,
			Name:      tag.Tag.Name,
			Generator: syntax.TagHelperGenerator{},
			TagHelper: info,
			Children:  []syntax.Node{tag},
			Start:     tag.Location(),
		}
		if tag.Tag.Unfinished {
			me.report(block, diagnostic.TagHelperMissingCloseAngle, tag.SourceSpan(), tag.Tag.Name)
		}
		me.checkStructure(block)

		switch {
		case tag.Tag.SelfClosing:
			info.TagMode = syntax.SelfClosing
			emit(block)
		case binding.TagStructure() == taghelper.WithoutEndTag || tag.Tag.Void:
			info.TagMode = syntax.StartTagOnly
			startOnly[strings.ToLower(tag.Tag.Name)] = true
			emit(block)
		default:
			info.TagMode = syntax.StartTagAndEndTag
			stack = append(stack, &openElement{name: tag.Tag.Name, helper: block, children: block.Children})
		}
	}
	for len(stack) > 0 {
		pop(nil)
	}
	return out
}

func (me *rewriter) report(b *syntax.Block, d diagnostic.Descriptor, span position.Span, args ...any) {
	b.Diagnostics = append(b.Diagnostics, d.New(span, args...))
}

func attributesOf(tag *syntax.Block) []syntax.TagHelperAttribute {
	var out []syntax.TagHelperAttribute
	for _, c := range tag.Children {
		if a, ok := c.(*syntax.Block); ok && a.Type == syntax.BlockAttribute && a.Attribute != nil {
			out = append(out, syntax.TagHelperAttribute{Name: a.Name, Style: a.Attribute.Style, Block: a})
		}
	}
	return out
}

func elementAttributes(attrs []syntax.TagHelperAttribute) []taghelper.Attribute {
	out := make([]taghelper.Attribute, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, taghelper.Attribute{Name: a.Name, Value: valueText(a.Block)})
	}
	return out
}

// allowedChildren returns the child tag names the helper restricts its
// content to, or nil when it accepts anything.
func allowedChildren(h *openElement) []string {
	if h == nil {
		return nil
	}
	var allowed []string
	restricted := false
	for _, d := range h.helper.TagHelper.Binding.Descriptors {
		if d.AllowedChildTags != nil {
			restricted = true
			allowed = append(allowed, d.AllowedChildTags...)
		}
	}
	if !restricted {
		return nil
	}
	return allowed
}

func (me *rewriter) checkChild(h *openElement, tag *syntax.Block) {
	allowed := allowedChildren(h)
	if allowed == nil || slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, tag.Tag.Name) }) {
		return
	}
	me.report(h.helper, diagnostic.InvalidNestingOfChildTag, tag.SourceSpan(), tag.Tag.Name, h.name, strings.Join(allowed, ", "))
}

func (me *rewriter) checkContent(h *openElement, n syntax.Node) {
	allowed := allowedChildren(h)
	if allowed == nil {
		return
	}
	s, ok := n.(*syntax.Span)
	if !ok || s.Kind != syntax.SpanMarkup || strings.TrimSpace(s.Content()) == "" {
		return
	}
	me.report(h.helper, diagnostic.CannotHaveNonTagContent, s.SourceSpan(), h.name, strings.Join(allowed, ", "))
}

// checkStructure reports matched helpers that disagree on the tag structure.
func (me *rewriter) checkStructure(b *syntax.Block) {
	binding := b.TagHelper.Binding
	var first *taghelper.Descriptor
	want := taghelper.TagStructureUnspecified
	for _, d := range binding.Descriptors {
		for _, r := range binding.Rules[d] {
			if r.TagStructure == taghelper.TagStructureUnspecified {
				continue
			}
			if first == nil {
				first, want = d, r.TagStructure
				continue
			}
			if r.TagStructure != want {
				me.report(b, diagnostic.InconsistentTagStructure, b.TagHelper.StartTag.SourceSpan(), first.Name(), d.Name(), b.Name)
				return
			}
		}
	}
}
