package semtok

import (
	"strings"

	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

// tokenVisitor collects tokens in document order.
type tokenVisitor struct {
	tokens []Token
	// expectName is set after '<' (and an optional '/' or '!') inside a tag.
	expectName bool
}

func (me *tokenVisitor) visitBlock(b *syntax.Block, tagHelperTag bool) {
	for i, child := range b.Children {
		switch n := child.(type) {
		case *syntax.Span:
			me.visitSpan(n, b, i, tagHelperTag)
		case *syntax.Block:
			inTag := false
			switch {
			case b.Type == syntax.BlockTagHelper && b.TagHelper != nil:
				inTag = n == b.TagHelper.StartTag || n == b.TagHelper.EndTag
			case b.Type == syntax.BlockTag:
				inTag = tagHelperTag
			}
			me.visitBlock(n, inTag)
		}
	}
}

func (me *tokenVisitor) visitSpan(s *syntax.Span, parent *syntax.Block, index int, tagHelperTag bool) {
	switch {
	case parent.Type == syntax.BlockComment, parent.Type == syntax.BlockHtmlComment, s.Kind == syntax.SpanComment:
		me.all(s, TokenComment, ModifierNone)
	case s.Kind == syntax.SpanTransition:
		me.all(s, TokenTransition, ModifierNone)
	case s.Kind == syntax.SpanMetaCode:
		me.metaCode(s, parent)
	case s.Kind == syntax.SpanCode:
		me.code(s)
	case parent.Type == syntax.BlockTag:
		me.tag(s, tagHelperTag)
	case parent.Type == syntax.BlockAttribute:
		me.attribute(s, parent, index, tagHelperTag)
	default:
		for _, tok := range s.Tokens {
			if tok.Kind == tokenizer.Transition {
				me.emit(tok, TokenTransition, ModifierNone)
			}
		}
	}
}

func (me *tokenVisitor) all(s *syntax.Span, typ TokenType, mod TokenModifier) {
	for _, tok := range s.Tokens {
		if tok.Kind == tokenizer.Whitespace || tok.Kind == tokenizer.NewLine {
			continue
		}
		me.emit(tok, typ, mod)
	}
}

func (me *tokenVisitor) metaCode(s *syntax.Span, parent *syntax.Block) {
	for _, tok := range s.Tokens {
		switch {
		case tok.Kind == tokenizer.Identifier || tok.Kind == tokenizer.Keyword:
			if parent.Type == syntax.BlockDirective {
				me.emit(tok, TokenDirective, ModifierNone)
			} else {
				me.emit(tok, TokenKeyword, ModifierNone)
			}
		case tok.Kind.IsTrivia():
		default:
			me.emit(tok, TokenOperator, ModifierNone)
		}
	}
}

func (me *tokenVisitor) code(s *syntax.Span) {
	gen, isDirectiveToken := s.Generator.(syntax.DirectiveTokenGenerator)
	if isDirectiveToken && gen.Token.Kind == directive.Text {
		me.all(s, TokenString, ModifierNone)
		return
	}
	for _, tok := range s.Tokens {
		if isDirectiveToken && (tok.Kind == tokenizer.Identifier || tok.Kind == tokenizer.Keyword) {
			typ, mod := directiveTokenType(gen.Token.Kind)
			me.emit(tok, typ, mod)
			continue
		}
		if typ, ok := codeTokenType(tok.Kind); ok {
			me.emit(tok, typ, ModifierNone)
		}
	}
}

func directiveTokenType(kind directive.TokenKind) (TokenType, TokenModifier) {
	switch kind {
	case directive.Type, directive.Attribute:
		return TokenTypeName, ModifierNone
	case directive.Member:
		return TokenVariable, ModifierDeclaration
	case directive.Namespace:
		return TokenNamespace, ModifierNone
	case directive.Boolean:
		return TokenKeyword, ModifierNone
	}
	return TokenString, ModifierNone
}

func codeTokenType(kind tokenizer.Kind) (TokenType, bool) {
	switch kind {
	case tokenizer.Whitespace, tokenizer.NewLine, tokenizer.EOF, tokenizer.Unknown:
		return 0, false
	case tokenizer.Keyword:
		return TokenKeyword, true
	case tokenizer.Identifier:
		return TokenVariable, true
	case tokenizer.StringLiteral, tokenizer.CharacterLiteral:
		return TokenString, true
	case tokenizer.IntegerLiteral, tokenizer.RealLiteral:
		return TokenNumber, true
	case tokenizer.Comment, tokenizer.RazorCommentTransition, tokenizer.RazorCommentStar, tokenizer.RazorCommentLiteral:
		return TokenComment, true
	case tokenizer.Transition:
		return TokenTransition, true
	}
	return TokenOperator, true
}

func tagModifier(tagHelperTag bool) TokenModifier {
	if tagHelperTag {
		return ModifierTagHelper
	}
	return ModifierNone
}

func (me *tokenVisitor) tag(s *syntax.Span, tagHelperTag bool) {
	for _, tok := range s.Tokens {
		switch tok.Kind {
		case tokenizer.OpenAngle:
			me.expectName = true
			me.emit(tok, TokenOperator, ModifierNone)
		case tokenizer.ForwardSlash, tokenizer.Bang:
			me.emit(tok, TokenOperator, ModifierNone)
		case tokenizer.CloseAngle:
			me.expectName = false
			me.emit(tok, TokenOperator, ModifierNone)
		case tokenizer.Text:
			if me.expectName {
				me.emit(tok, TokenElement, tagModifier(tagHelperTag))
			}
			me.expectName = false
		case tokenizer.Transition:
			me.emit(tok, TokenTransition, ModifierNone)
		default:
			me.expectName = false
		}
	}
}

// attribute classifies the prefix span (name, '=', opening quote) and the
// literal parts of the value.
func (me *tokenVisitor) attribute(s *syntax.Span, attr *syntax.Block, index int, tagHelperTag bool) {
	if index > 0 {
		me.all(s, TokenString, ModifierNone)
		return
	}
	mod := tagModifier(tagHelperTag || (attr.Attribute != nil && attr.Attribute.Bound))
	seenEquals := false
	for _, tok := range s.Tokens {
		switch {
		case tok.Kind.IsTrivia():
		case tok.Kind == tokenizer.Equals:
			seenEquals = true
			me.emit(tok, TokenOperator, ModifierNone)
		case !seenEquals:
			me.emit(tok, TokenAttribute, mod)
		default:
			me.emit(tok, TokenString, ModifierNone)
		}
	}
}

// emit records tok, split at line breaks.
func (me *tokenVisitor) emit(tok tokenizer.Token, typ TokenType, mod TokenModifier) {
	loc := tok.Span.Location
	text := tok.Content
	for text != "" {
		i := strings.IndexAny(text, "\r\n")
		piece := text
		if i >= 0 {
			piece = text[:i]
		}
		if piece != "" {
			me.tokens = append(me.tokens, Token{
				Type:     typ,
				Modifier: mod,
				Span:     position.NewSpan(loc, len(piece)),
				Text:     piece,
			})
		}
		if i < 0 {
			return
		}
		brk := 1
		if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			brk = 2
		}
		loc = loc.Advance(text[:i+brk])
		text = text[i+brk:]
	}
}
