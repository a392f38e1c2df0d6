package syntax

import (
	"fmt"
	"iter"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/taghelper"
)

// TagHelperInfo is attached to TagHelper blocks. The block's children are the
// start tag, the body and, for StartTagAndEndTag, the end tag.
type TagHelperInfo struct {
	TagName    string
	TagMode    TagMode
	Binding    *taghelper.Binding
	Attributes []TagHelperAttribute
	StartTag   *Block
	EndTag     *Block
}

// Body returns the children between the start and end tags.
func (me *Block) Body() []Node {
	if me.TagHelper == nil {
		return me.Children
	}
	start, end := 0, len(me.Children)
	if len(me.Children) > 0 && me.Children[0] == Node(me.TagHelper.StartTag) {
		start = 1
	}
	if me.TagHelper.EndTag != nil && end > start && me.Children[end-1] == Node(me.TagHelper.EndTag) {
		end--
	}
	return me.Children[start:end]
}

type TagHelperAttribute struct {
	Name  string
	Style AttributeStyle
	// Block is the attribute block inside the start tag.
	Block *Block
}

// Value returns the attribute's value nodes.
func (me TagHelperAttribute) Value() []Node {
	return me.Block.AttributeValue()
}

// Tree is the parser's result for one document.
type Tree struct {
	Source *position.Document
	Root   *Block
	// Diagnostics reported outside any node, such as rewriter findings.
	Extra []diagnostic.Diagnostic
}

// Diagnostics returns every diagnostic in the tree ordered by position.
func (me *Tree) Diagnostics() []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for n := range Walk(me.Root) {
		switch n := n.(type) {
		case *Span:
			out = append(out, n.Diagnostics()...)
		case *Block:
			out = append(out, n.Diagnostics...)
		}
	}
	out = append(out, me.Extra...)
	diagnostic.Sort(out)
	return out
}

// Walk yields n and all its descendants depth-first in document order.
func Walk(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		walk(n, yield)
	}
}

func walk(n Node, yield func(Node) bool) bool {
	if n == nil {
		return true
	}
	if !yield(n) {
		return false
	}
	if b, ok := n.(*Block); ok {
		for _, c := range b.Children {
			if !walk(c, yield) {
				return false
			}
		}
	}
	return true
}

// Spans yields the leaves under n in document order.
func Spans(n Node) iter.Seq[*Span] {
	return func(yield func(*Span) bool) {
		for x := range Walk(n) {
			if s, ok := x.(*Span); ok {
				if !yield(s) {
					return
				}
			}
		}
	}
}

var ErrPartition = errors.Base("spans do not partition the document")

// Validate checks that the spans of the tree cover the document exactly and
// that every block is contiguous.
func (me *Tree) Validate() error {
	next := 0
	for s := range Spans(me.Root) {
		if s.Start.AbsoluteIndex != next {
			return errors.Errorf("span %s starts at %d, expected %d: %w", s.Kind, s.Start.AbsoluteIndex, next, ErrPartition)
		}
		if got, err := me.Source.Slice(s.SourceSpan()); err != nil || got != s.Content() {
			return errors.Errorf("span %s at %d does not match source: %w", s.Kind, next, ErrPartition)
		}
		next += s.Length()
	}
	if next != me.Source.Len() {
		return errors.Errorf("spans end at %d, document has %d: %w", next, me.Source.Len(), ErrPartition)
	}
	for n := range Walk(me.Root) {
		b, ok := n.(*Block)
		if !ok {
			continue
		}
		at := b.Location().AbsoluteIndex
		for _, c := range b.Children {
			if c.Location().AbsoluteIndex != at {
				return errors.Errorf("%s block child at %d, expected %d: %w", b.Type, c.Location().AbsoluteIndex, at, ErrPartition)
			}
			at += c.Length()
		}
	}
	return nil
}

// Dump renders a node as an indented outline, one node per line.
func Dump(n Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := n.(type) {
	case *Span:
		fmt.Fprintf(b, "%s%s span %s [%d..%d) %q\n", indent, n.Kind, generatorName(n.Generator), n.Start.AbsoluteIndex, n.Start.AbsoluteIndex+n.Length(), n.Content())
	case *Block:
		name := ""
		if n.Name != "" {
			name = " " + n.Name
		}
		fmt.Fprintf(b, "%s%s block%s %s [%d..%d)\n", indent, n.Type, name, generatorName(n.Generator), n.Location().AbsoluteIndex, n.Location().AbsoluteIndex+n.Length())
		for _, c := range n.Children {
			dump(b, c, depth+1)
		}
	}
}

func generatorName(g Generator) string {
	switch g := g.(type) {
	case nil:
		return "-"
	case MarkupGenerator:
		return "markup"
	case ExpressionGenerator:
		return "expr"
	case StatementGenerator:
		return "stmt"
	case DirectiveGenerator:
		return "directive:" + g.Descriptor.Directive
	case DirectiveTokenGenerator:
		return "token:" + g.Token.Kind.String()
	case AttributeBlockGenerator:
		return "attr:" + g.Name
	case LiteralAttributeGenerator:
		return "literal-attr"
	case DynamicAttributeGenerator:
		return "dynamic-attr"
	case AddImportGenerator:
		return "import:" + g.Namespace
	case TagHelperGenerator:
		return "taghelper"
	}
	return fmt.Sprintf("%T", g)
}
