package parser

import (
	"strings"

	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

// RewriteWhitespace moves whitespace to the block it belongs to:
//
//   - whitespace leading or trailing an expression block is markup of the
//     enclosing block, so it renders;
//   - a statement or directive alone on its line owns the line's indentation
//     and line break, so the line leaves no trace in the output.
//
// The input tree is not modified.
func RewriteWhitespace(tree *syntax.Tree) *syntax.Tree {
	root := rewriteWhitespace(tree.Root)
	if root == tree.Root {
		return tree
	}
	return &syntax.Tree{Source: tree.Source, Root: root, Extra: tree.Extra}
}

func rewriteWhitespace(b *syntax.Block) *syntax.Block {
	changed := false
	children := make([]syntax.Node, 0, len(b.Children))
	for _, c := range b.Children {
		cb, ok := c.(*syntax.Block)
		if !ok {
			children = append(children, c)
			continue
		}
		nb := rewriteWhitespace(cb)
		if nb != cb {
			changed = true
		}
		if nb.Type == syntax.BlockExpression {
			lead, rest, trail := hoistWhitespace(nb)
			if rest != nb {
				changed = true
			}
			if lead != nil {
				children = append(children, lead)
			}
			children = append(children, rest)
			if trail != nil {
				children = append(children, trail)
			}
			continue
		}
		children = append(children, nb)
	}
	if b.Type == syntax.BlockMarkup {
		var moved bool
		if children, moved = absorbLines(children); moved {
			changed = true
		}
	}
	if !changed {
		return b
	}
	return b.WithChildren(children)
}

func isWhitespaceSpan(n syntax.Node) bool {
	s, ok := n.(*syntax.Span)
	return ok && s.Kind == syntax.SpanMarkup && s.Length() > 0 && strings.TrimSpace(s.Content()) == ""
}

// hoistWhitespace splits whitespace-only markup spans off both ends of an
// expression block.
func hoistWhitespace(b *syntax.Block) (lead syntax.Node, rest *syntax.Block, trail syntax.Node) {
	children := b.Children
	if len(children) > 1 && isWhitespaceSpan(children[0]) {
		lead, children = children[0], children[1:]
	}
	if len(children) > 1 && isWhitespaceSpan(children[len(children)-1]) {
		trail, children = children[len(children)-1], children[:len(children)-1]
	}
	if lead == nil && trail == nil {
		return nil, b, nil
	}
	return lead, b.WithChildren(children), trail
}

// ownsLine reports whether a block absorbs the whitespace of its line.
func ownsLine(n syntax.Node) (*syntax.Block, bool) {
	b, ok := n.(*syntax.Block)
	if !ok || (b.Type != syntax.BlockStatement && b.Type != syntax.BlockDirective) || len(b.Children) == 0 {
		return nil, false
	}
	first, ok := b.Children[0].(*syntax.Span)
	return b, ok && first.Kind == syntax.SpanTransition
}

// absorbLines returns children with line whitespace moved into the blocks
// that own their lines, and whether anything moved.
func absorbLines(children []syntax.Node) ([]syntax.Node, bool) {
	changed := false
	for i := 0; i < len(children); i++ {
		b, ok := ownsLine(children[i])
		if !ok {
			continue
		}

		var prev *syntax.Span
		var indent []tokenizer.Token
		lineStart := b.Location()
		if i > 0 && children[i-1] != nil {
			p, ok := children[i-1].(*syntax.Span)
			if !ok || p.Kind != syntax.SpanMarkup {
				continue
			}
			k := len(p.Tokens)
			for k > 0 && p.Tokens[k-1].Kind == tokenizer.Whitespace {
				k--
			}
			if k > 0 && p.Tokens[k-1].Kind != tokenizer.NewLine {
				continue
			}
			prev, indent = p, p.Tokens[k:]
			if len(indent) > 0 {
				lineStart = indent[0].Span.Location
			}
		}
		if lineStart.CharacterIndex != 0 {
			continue
		}

		var next *syntax.Span
		var lineEnd []tokenizer.Token
		if i+1 < len(children) {
			n, ok := children[i+1].(*syntax.Span)
			if !ok || n.Kind != syntax.SpanMarkup {
				continue
			}
			k := 0
			for k < len(n.Tokens) && n.Tokens[k].Kind == tokenizer.Whitespace {
				k++
			}
			if k == len(n.Tokens) || n.Tokens[k].Kind != tokenizer.NewLine {
				continue
			}
			next, lineEnd = n, n.Tokens[:k+1]
		}
		if len(indent) == 0 && len(lineEnd) == 0 {
			continue
		}

		inner := make([]syntax.Node, 0, len(b.Children)+2)
		if len(indent) > 0 {
			inner = append(inner, silent(indent))
		}
		inner = append(inner, b.Children...)
		if len(lineEnd) > 0 {
			inner = append(inner, silent(lineEnd))
		}
		children[i] = b.WithChildren(inner)
		if prev != nil && len(indent) > 0 {
			children[i-1] = trimmed(prev, prev.Tokens[:len(prev.Tokens)-len(indent)])
		}
		if next != nil {
			children[i+1] = trimmed(next, next.Tokens[len(lineEnd):])
		}
		changed = true
	}
	if !changed {
		return children, false
	}
	out := children[:0]
	for _, c := range children {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, true
}

// silent is markup that does not render.
func silent(tokens []tokenizer.Token) *syntax.Span {
	return &syntax.Span{
		Kind:        syntax.SpanMarkup,
		Tokens:      tokens,
		EditHandler: syntax.EditHandler{Accepted: syntax.AcceptAllWhitespace},
		Start:       tokens[0].Span.Location,
	}
}

// trimmed is s holding only tokens, or nil when none are left.
func trimmed(s *syntax.Span, tokens []tokenizer.Token) syntax.Node {
	if len(tokens) == 0 {
		return nil
	}
	out := *s
	out.Tokens = tokens
	out.Start = tokens[0].Span.Location
	return &out
}
