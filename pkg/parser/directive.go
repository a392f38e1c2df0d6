package parser

import (
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

type tokenResult int

const (
	tokenRead tokenResult = iota
	// tokenAbsent means an optional token was left out.
	tokenAbsent
	tokenFailed
)

// parseDirective reads a registered directive: its name, its tokens, then
// either the rest of the line or a braced body.
func (me *parser) parseDirective(ws, trans []tokenizer.Token, d *directive.Descriptor) {
	b := me.beginBlock(syntax.BlockDirective, d.Directive, syntax.DirectiveGenerator{Descriptor: d}, ws, trans)
	me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)

	for i, tok := range d.Tokens {
		res := me.parseDirectiveToken(b, d, tok, i)
		if res == tokenFailed {
			me.recoverLine()
			me.end()
			return
		}
		if res == tokenAbsent {
			break
		}
	}

	switch d.Kind {
	case directive.SingleLine:
		me.finishDirectiveLine(b, d)
	case directive.RazorBlock, directive.CodeBlock:
		me.parseDirectiveBody(b, d)
	}
	me.end()
	me.checkTagHelperDirective(b, d)
}

func (me *parser) parseDirectiveToken(b *syntax.Block, d *directive.Descriptor, tok directive.TokenDescriptor, index int) tokenResult {
	switch me.cur().Kind {
	case tokenizer.Whitespace:
	case tokenizer.NewLine, tokenizer.EOF:
		if tok.Optional {
			return tokenAbsent
		}
		me.errorf(b, diagnostic.ExpectedDirectiveToken, me.here(), d.Directive, tok.Kind.Expectation())
		return tokenFailed
	default:
		if index == 0 {
			me.errorf(b, diagnostic.DirectiveMustBeFollowedByWhitespace, me.cur().Span, d.Directive)
		} else {
			me.errorf(b, diagnostic.ExpectedDirectiveToken, me.cur().Span, d.Directive, tok.Kind.Expectation())
		}
		return tokenFailed
	}

	me.skipWhitespace()
	me.output(syntax.SpanCode, nil, syntax.AcceptWhitespace)
	if me.is(tokenizer.NewLine) || me.is(tokenizer.EOF) {
		if tok.Optional {
			return tokenAbsent
		}
		me.errorf(b, diagnostic.ExpectedDirectiveToken, me.here(), d.Directive, tok.Kind.Expectation())
		return tokenFailed
	}
	if !me.scanDirectiveToken(b, tok.Kind) {
		me.errorf(b, diagnostic.ExpectedDirectiveToken, me.cur().Span, d.Directive, tok.Kind.Expectation())
		return tokenFailed
	}
	me.output(syntax.SpanCode, syntax.DirectiveTokenGenerator{Token: tok}, syntax.AcceptNonWhitespace)
	return tokenRead
}

// scanDirectiveToken consumes one token of the given kind. It consumes
// nothing and returns false when the input does not start one.
func (me *parser) scanDirectiveToken(b *syntax.Block, kind directive.TokenKind) bool {
	switch kind {
	case directive.Type:
		return me.scanType()
	case directive.Member:
		if !me.is(tokenizer.Identifier) {
			return false
		}
		me.next()
		return true
	case directive.Namespace:
		if !me.is(tokenizer.Identifier) {
			return false
		}
		me.next()
		for me.is(tokenizer.Dot) && me.peek(1).Kind == tokenizer.Identifier {
			me.next()
			me.next()
		}
		return true
	case directive.String:
		if !me.is(tokenizer.StringLiteral) {
			return false
		}
		me.next()
		return true
	case directive.Attribute:
		if !me.is(tokenizer.LeftBracket) {
			return false
		}
		me.balance(b, tokenizer.LeftBracket, tokenizer.RightBracket)
		return true
	case directive.Boolean:
		if !me.is(tokenizer.Keyword, "true", "false") {
			return false
		}
		me.next()
		return true
	case directive.Text:
		n := 0
		for !me.is(tokenizer.NewLine) && !me.is(tokenizer.EOF) {
			if me.is(tokenizer.Whitespace) && (me.peek(1).Kind == tokenizer.NewLine || me.peek(1).Kind == tokenizer.EOF) {
				break
			}
			me.next()
			n++
		}
		return n > 0
	}
	return false
}

// scanType reads a type name such as "List<(int A, string B)>[]?". Whitespace
// ends it only outside brackets.
func (me *parser) scanType() bool {
	if !isMemberStart(me.cur()) && !me.is(tokenizer.LeftParen) {
		return false
	}
	depth := 0
	for {
		switch me.cur().Kind {
		case tokenizer.LessThan, tokenizer.LeftParen, tokenizer.LeftBracket:
			depth++
		case tokenizer.GreaterThan, tokenizer.RightParen, tokenizer.RightBracket:
			if depth == 0 {
				return true
			}
			depth--
		case tokenizer.Whitespace:
			if depth == 0 {
				return true
			}
		case tokenizer.NewLine, tokenizer.EOF, tokenizer.Semicolon, tokenizer.LeftBrace, tokenizer.RightBrace:
			return true
		case tokenizer.Identifier, tokenizer.Keyword, tokenizer.Dot, tokenizer.Comma, tokenizer.QuestionMark:
		case tokenizer.Operator:
			if !me.is(tokenizer.Operator, "::", "*") && depth == 0 {
				return true
			}
		default:
			if depth == 0 {
				return true
			}
		}
		me.next()
	}
}

// finishDirectiveLine accepts an optional ';' and reports anything else left
// on the line.
func (me *parser) finishDirectiveLine(b *syntax.Block, d *directive.Descriptor) {
	if i := me.peekPastWhitespace(0); me.peek(i).Kind == tokenizer.Semicolon {
		me.skipWhitespace()
		me.output(syntax.SpanCode, nil, syntax.AcceptWhitespace)
		me.next()
		me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
	}
	i := me.peekPastWhitespace(0)
	if k := me.peek(i).Kind; k == tokenizer.NewLine || k == tokenizer.EOF {
		return
	}
	me.errorf(b, diagnostic.UnexpectedDirectiveLiteral, me.peek(i).Span, d.Directive, "a line break")
	me.recoverLine()
}

// recoverLine puts the rest of the line into an error span.
func (me *parser) recoverLine() {
	me.flush()
	for !me.is(tokenizer.NewLine) && !me.is(tokenizer.EOF) {
		me.next()
	}
	me.output(syntax.SpanCode, nil, syntax.AcceptAnyExceptNewLine)
}

// parseDirectiveBody reads the braced body of a block directive: markup for
// razor blocks, code for code blocks.
func (me *parser) parseDirectiveBody(b *syntax.Block, d *directive.Descriptor) {
	me.skipTrivia()
	me.output(syntax.SpanCode, nil, syntax.AcceptAllWhitespace)
	if !me.is(tokenizer.LeftBrace) {
		me.errorf(b, diagnostic.DirectiveExpectsBlock, me.cur().Span, d.Directive)
		return
	}
	open := me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)

	closed := false
	if d.Kind == directive.RazorBlock {
		me.start(syntax.BlockMarkup, "", nil)
		base := len(me.tags)
		closed = me.parseMarkup(markupMode{braces: true, base: base}) == endBrace
		me.tags = me.tags[:base]
		me.end()
		me.use(codeGrammar)
	} else {
		closed = me.parseCodeBody(b)
	}
	if !closed {
		me.unterminated(b, open, d.Directive)
		return
	}
	me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
}

// parseUsingDirective reads "@using Some.Namespace", "@using static T" and
// "@using Alias = Some.Type".
func (me *parser) parseUsingDirective(ws, trans []tokenizer.Token) {
	b := me.beginBlock(syntax.BlockDirective, "using", nil, ws, trans)
	me.next()
	var ns strings.Builder
	for {
		t := me.cur()
		if t.Kind == tokenizer.NewLine || t.Kind == tokenizer.EOF || t.Kind == tokenizer.Semicolon {
			break
		}
		if t.Kind == tokenizer.Whitespace {
			if k := me.peek(1).Kind; k == tokenizer.NewLine || k == tokenizer.EOF || k == tokenizer.Semicolon {
				break
			}
		}
		ns.WriteString(t.Content)
		me.next()
	}
	namespace := strings.TrimSpace(ns.String())
	if namespace == "" {
		me.errorf(b, diagnostic.ExpectedDirectiveToken, me.cur().Span, "using", directive.Namespace.Expectation())
	}
	if i := me.peekPastWhitespace(0); me.peek(i).Kind == tokenizer.Semicolon {
		me.skipWhitespace()
		me.next()
	}
	me.output(syntax.SpanCode, syntax.AddImportGenerator{Namespace: namespace}, syntax.AcceptAnyExceptNewLine)
	me.end()
}

// checkTagHelperDirective validates the look up text and prefix of the tag
// helper directives.
func (me *parser) checkTagHelperDirective(b *syntax.Block, d *directive.Descriptor) {
	value, span, ok := directiveValue(b)
	if !ok {
		return
	}
	switch d.Directive {
	case directive.AddTagHelperDirective.Directive, directive.RemoveTagHelperDirective.Directive:
		if _, err := taghelper.ParseLookup(value); err != nil {
			me.errorf(b, diagnostic.InvalidTagHelperLookupText, span, value)
		}
	case directive.TagHelperPrefixDirective.Directive:
		prefix := unquote(value)
		if r, bad := taghelper.ValidatePrefix(prefix); bad {
			me.errorf(b, diagnostic.InvalidTagHelperPrefix, span, d.Directive, string(r), prefix)
		}
	}
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
