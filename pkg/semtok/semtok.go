package semtok

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
)

// Tokens classifies every token of tree, in document order.
func Tokens(ctx context.Context, tree *syntax.Tree) []Token {
	if tree == nil || tree.Root == nil {
		return nil
	}
	v := &tokenVisitor{}
	v.visitBlock(tree.Root, false)
	zerolog.Ctx(ctx).Trace().Str("path", tree.Source.Path()).Int("tokens", len(v.tokens)).Msg("classified tokens")
	return v.tokens
}

// TokensInRange returns the tokens of tree that overlap span.
func TokensInRange(ctx context.Context, tree *syntax.Tree, span position.Span) []Token {
	var out []Token
	for _, t := range Tokens(ctx, tree) {
		if t.Span.Overlaps(span) {
			out = append(out, t)
		}
	}
	return out
}

// Encode packs tokens the way editors expect semantic tokens: five integers
// per token (line delta, start delta, length, type, modifiers), each
// position relative to the previous token.
func Encode(tokens []Token) []uint32 {
	out := make([]uint32, 0, len(tokens)*5)
	var line, char int
	for _, t := range tokens {
		p := t.Span.Location.Place()
		deltaLine := p.Line - line
		deltaChar := p.Character
		if deltaLine == 0 {
			deltaChar -= char
		}
		out = append(out,
			uint32(deltaLine),
			uint32(deltaChar),
			uint32(t.Span.Length),
			uint32(t.Type),
			uint32(t.Modifier),
		)
		line, char = p.Line, p.Character
	}
	return out
}
