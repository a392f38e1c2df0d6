package ir

import (
	"iter"
	"maps"
	"slices"

	"github.com/walteh/gorazor/pkg/diagnostic"
)

// Walk yields n and its descendants depth-first in document order. The tree
// must not change shape while it is being walked.
func Walk(n *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		walk(n, nil, func(n, _ *Node) bool { return yield(n) })
	}
}

// WalkParents is Walk yielding each node with its parent; the root's parent
// is nil.
func WalkParents(n *Node) iter.Seq2[*Node, *Node] {
	return func(yield func(*Node, *Node) bool) {
		walk(n, nil, yield)
	}
}

func walk(n, parent *Node, yield func(*Node, *Node) bool) bool {
	if n == nil {
		return true
	}
	if !yield(n, parent) {
		return false
	}
	for _, c := range n.Children {
		if !walk(c, n, yield) {
			return false
		}
	}
	return true
}

// Find collects the nodes of kind under n, in document order.
func Find(n *Node, kind Kind) []*Node {
	var out []*Node
	for x := range Walk(n) {
		if x.Kind == kind {
			out = append(out, x)
		}
	}
	return out
}

// First returns the first node of kind under n.
func First(n *Node, kind Kind) *Node {
	for x := range Walk(n) {
		if x.Kind == kind {
			return x
		}
	}
	return nil
}

// ParentOf returns the parent of target under root.
func ParentOf(root, target *Node) *Node {
	for n, parent := range WalkParents(root) {
		if n == target {
			return parent
		}
	}
	return nil
}

// Clone copies the tree rooted at n. Descriptors and tag helper bindings are
// shared because they are immutable.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Diagnostics = slices.Clone(n.Diagnostics)
	out.Modifiers = slices.Clone(n.Modifiers)
	out.Interfaces = slices.Clone(n.Interfaces)
	out.Attributes = slices.Clone(n.Attributes)
	out.Annotations = maps.Clone(n.Annotations)
	if n.TagHelper != nil {
		th := *n.TagHelper
		out.TagHelper = &th
	}
	if n.Extension != nil {
		out.Extension = n.Extension.Clone()
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = Clone(c)
		}
	}
	return &out
}

// Diagnostics collects every diagnostic in the tree ordered by position.
func Diagnostics(n *Node) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for x := range Walk(n) {
		out = append(out, x.Diagnostics...)
	}
	diagnostic.Sort(out)
	return out
}

// Document-shape helpers. They return nil when lowering has not built the
// corresponding node.

func NamespaceOf(doc *Node) *Node { return First(doc, KindNamespace) }

func ClassOf(doc *Node) *Node { return First(doc, KindClass) }

func MethodOf(doc *Node) *Node { return First(doc, KindMethod) }

// TextOf concatenates the content of every lang token under n.
func TextOf(n *Node, lang Lang) string {
	var b []byte
	for x := range Walk(n) {
		if x.Kind == KindToken && x.Lang == lang {
			b = append(b, x.Content...)
		}
	}
	return string(b)
}
