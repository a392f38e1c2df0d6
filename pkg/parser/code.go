package parser

import (
	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

// statementKeywords start a statement block when they follow '@'.
var statementKeywords = map[string]bool{
	"if": true, "for": true, "foreach": true, "while": true, "switch": true,
	"lock": true, "do": true, "try": true, "using": true,
}

// expressionKeywords may begin an implicit expression.
var expressionKeywords = map[string]bool{
	"await": true, "this": true, "base": true, "true": true, "false": true, "null": true,
	"new": true, "typeof": true, "default": true, "checked": true, "unchecked": true, "sizeof": true,
}

var closers = map[tokenizer.Kind]string{
	tokenizer.RightParen:   ")",
	tokenizer.RightBracket: "]",
	tokenizer.RightBrace:   "}",
}

// parseTransition parses the code construct that starts at the current '@'
// in markup. ws is markup whitespace directly before the '@': expressions
// take it along, everything else leaves it in the markup.
func (me *parser) parseTransition(ws []tokenizer.Token) {
	me.flush()
	me.next()
	trans := me.take()
	me.use(codeGrammar)

	tok := me.cur()
	switch tok.Kind {
	case tokenizer.EOF:
		b := me.beginExpression(ws, trans)
		me.errorf(b, diagnostic.UnexpectedEndOfFileAtStartOfCodeBlock, trans[0].Span)
		me.outputEmpty(syntax.SpanCode, syntax.ExpressionGenerator{}, syntax.AcceptNonWhitespace)
		me.end()
	case tokenizer.Whitespace, tokenizer.NewLine:
		b := me.beginExpression(ws, trans)
		me.errorf(b, diagnostic.UnexpectedWhitespaceAtStartOfCodeBlock, tok.Span)
		me.outputEmpty(syntax.SpanCode, syntax.ExpressionGenerator{}, syntax.AcceptNonWhitespace)
		me.end()
	case tokenizer.LeftParen:
		me.parseExplicitExpression(ws, trans)
	case tokenizer.LeftBrace:
		me.parseStatementBlock(ws, trans)
	case tokenizer.Identifier:
		if d, ok := me.directives.Lookup(tok.Content); ok {
			me.parseDirective(ws, trans, d)
			return
		}
		me.parseImplicitExpression(ws, trans)
	case tokenizer.Keyword:
		me.parseKeyword(ws, trans)
	default:
		b := me.beginExpression(ws, trans)
		me.errorf(b, diagnostic.UnexpectedCharacterAtStartOfCodeBlock, tok.Span, tok.Content)
		me.outputEmpty(syntax.SpanCode, syntax.ExpressionGenerator{}, syntax.AcceptNonWhitespace)
		me.end()
	}
}

func (me *parser) beginExpression(ws, trans []tokenizer.Token) *syntax.Block {
	b := me.start(syntax.BlockExpression, "", syntax.ExpressionGenerator{})
	if len(ws) > 0 {
		me.add(me.span(ws, syntax.SpanMarkup, syntax.MarkupGenerator{}, syntax.AcceptAny))
	}
	me.add(me.span(trans, syntax.SpanTransition, nil, syntax.AcceptNone))
	return b
}

// beginBlock leaves ws in the parent and opens a block that starts with the
// '@' transition.
func (me *parser) beginBlock(t syntax.BlockType, name string, gen syntax.Generator, ws, trans []tokenizer.Token) *syntax.Block {
	if len(ws) > 0 {
		me.add(me.span(ws, syntax.SpanMarkup, syntax.MarkupGenerator{}, syntax.AcceptAny))
	}
	b := me.start(t, name, gen)
	me.add(me.span(trans, syntax.SpanTransition, nil, syntax.AcceptNone))
	return b
}

func (me *parser) parseKeyword(ws, trans []tokenizer.Token) {
	kw := me.cur().Content
	switch {
	case kw == "using":
		if me.peek(me.peekPastWhitespace(1)).Kind == tokenizer.LeftParen {
			me.parseKeywordStatement(ws, trans)
			return
		}
		me.parseUsingDirective(ws, trans)
	case statementKeywords[kw]:
		me.parseKeywordStatement(ws, trans)
	default:
		if d, ok := me.directives.Lookup(kw); ok {
			me.parseDirective(ws, trans, d)
			return
		}
		if expressionKeywords[kw] {
			me.parseImplicitExpression(ws, trans)
			return
		}
		b := me.beginExpression(ws, trans)
		tok := me.next()
		me.errorf(b, diagnostic.ReservedWord, tok.Span, kw)
		me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
		me.end()
	}
}

func (me *parser) peekPastWhitespace(from int) int {
	for me.peek(from).Kind == tokenizer.Whitespace {
		from++
	}
	return from
}

// parseImplicitExpression reads "@name", "@a.b(c)[d]?.e" and "@await f()".
// A trailing '.' that is not followed by a member stays in the markup.
func (me *parser) parseImplicitExpression(ws, trans []tokenizer.Token) {
	b := me.beginExpression(ws, trans)
	if me.is(tokenizer.Keyword, "await") {
		me.next()
		if i := me.peekPastWhitespace(0); isMemberStart(me.peek(i)) {
			me.skipWhitespace()
		}
	}
	me.parseMemberChain(b)
	me.output(syntax.SpanCode, syntax.ExpressionGenerator{}, syntax.AcceptNonWhitespace)
	me.end()
}

func isMemberStart(t tokenizer.Token) bool {
	return t.Kind == tokenizer.Identifier || t.Kind == tokenizer.Keyword
}

func (me *parser) parseMemberChain(b *syntax.Block) {
	if isMemberStart(me.cur()) {
		me.next()
	}
	for {
		switch {
		case me.is(tokenizer.LeftParen):
			if !me.balance(b, tokenizer.LeftParen, tokenizer.RightParen) {
				return
			}
		case me.is(tokenizer.LeftBracket):
			if !me.balance(b, tokenizer.LeftBracket, tokenizer.RightBracket) {
				return
			}
		case me.is(tokenizer.Dot) && isMemberStart(me.peek(1)):
			me.next()
			me.next()
		case me.is(tokenizer.QuestionMark) && me.peek(1).Kind == tokenizer.Dot && isMemberStart(me.peek(2)):
			me.next()
			me.next()
			me.next()
		case me.is(tokenizer.QuestionMark) && me.peek(1).Kind == tokenizer.LeftBracket:
			me.next()
			if !me.balance(b, tokenizer.LeftBracket, tokenizer.RightBracket) {
				return
			}
		case me.is(tokenizer.Operator, "!") && me.peek(1).Kind == tokenizer.Dot && isMemberStart(me.peek(2)):
			me.next()
			me.next()
			me.next()
		default:
			return
		}
	}
}

// balance consumes from the current opener through its matching closer. At
// EOF it reports the missing closer on b and returns false.
func (me *parser) balance(b *syntax.Block, open, close tokenizer.Kind) bool {
	first := me.next()
	depth := 1
	for {
		switch me.cur().Kind {
		case tokenizer.EOF:
			me.errorf(b, diagnostic.ExpectedCloseBracketBeforeEOF, first.Span, first.Content, closers[close])
			return false
		case open:
			depth++
		case close:
			if depth--; depth == 0 {
				me.next()
				return true
			}
		}
		me.next()
	}
}

func (me *parser) parseExplicitExpression(ws, trans []tokenizer.Token) {
	b := me.beginExpression(ws, trans)
	open := me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)

	depth := 1
	for depth > 0 {
		switch me.cur().Kind {
		case tokenizer.EOF:
			depth = -1
			continue
		case tokenizer.LeftParen:
			depth++
		case tokenizer.RightParen:
			if depth--; depth == 0 {
				continue
			}
		}
		me.next()
	}
	code := me.output(syntax.SpanCode, syntax.ExpressionGenerator{}, syntax.AcceptAny)
	if code == nil {
		code = me.outputEmpty(syntax.SpanCode, syntax.ExpressionGenerator{}, syntax.AcceptAny)
	}
	if depth < 0 {
		me.errorf(b, diagnostic.ExpectedEndOfBlockBeforeEOF, open.Span, "explicit expression", ")", ")", "(")
		code.EditHandler.AutoCompleteString = ")"
		me.end()
		return
	}
	me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
	me.end()
}

// parseStatementBlock reads "@{ ... }". The braces are meta code.
func (me *parser) parseStatementBlock(ws, trans []tokenizer.Token) {
	b := me.beginBlock(syntax.BlockStatement, "", syntax.StatementGenerator{}, ws, trans)
	open := me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
	if !me.parseCodeBody(b) {
		me.unterminated(b, open, "code")
		me.end()
		return
	}
	me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
	me.end()
}

// unterminated reports a block missing its '}' and leaves an empty span an
// editor can complete.
func (me *parser) unterminated(b *syntax.Block, open tokenizer.Token, what string) {
	me.errorf(b, diagnostic.ExpectedEndOfBlockBeforeEOF, open.Span, what, "}", "}", "{")
	s := me.outputEmpty(syntax.SpanCode, syntax.StatementGenerator{}, syntax.AcceptAny)
	s.EditHandler.AutoCompleteString = "}"
}

// parseKeywordStatement reads "@if (...) { } else { }" and friends. The
// braces are ordinary code.
func (me *parser) parseKeywordStatement(ws, trans []tokenizer.Token) {
	kw := me.cur().Content
	b := me.beginBlock(syntax.BlockStatement, kw, syntax.StatementGenerator{}, ws, trans)
	me.parseStatementChain(b)
	me.end()
}

func (me *parser) parseStatementChain(b *syntax.Block) {
	for {
		kw := me.next().Content
		switch kw {
		case "else":
			if i := me.peekPastTrivia(); me.peek(i).Is(tokenizer.Keyword, "if") {
				me.skipTrivia()
				continue
			}
		case "do":
			if !me.parseBracedBody(b, kw) {
				return
			}
			i := me.peekPastTrivia()
			if !me.peek(i).Is(tokenizer.Keyword, "while") {
				me.errorf(b, diagnostic.MissingWhileAfterDo, me.peek(i).Span)
				return
			}
			me.skipTrivia()
			me.next()
			me.parseCondition(b)
			if i := me.peekPastWhitespace(0); me.peek(i).Kind == tokenizer.Semicolon {
				me.skipWhitespace()
				me.next()
			}
			return
		case "try", "finally":
		default:
			me.parseCondition(b)
		}

		if !me.parseBracedBody(b, kw) {
			return
		}
		next := me.peek(me.peekPastTrivia())
		switch {
		case kw == "if" && next.Is(tokenizer.Keyword, "else"),
			(kw == "try" || kw == "catch") && next.Is(tokenizer.Keyword, "catch", "finally"):
			me.skipTrivia()
		default:
			return
		}
	}
}

// parseCondition reads an optional parenthesized header, including a
// "when (...)" exception filter.
func (me *parser) parseCondition(b *syntax.Block) {
	if i := me.peekPastTrivia(); me.peek(i).Kind != tokenizer.LeftParen {
		return
	}
	me.skipTrivia()
	if !me.balance(b, tokenizer.LeftParen, tokenizer.RightParen) {
		return
	}
	if i := me.peekPastTrivia(); me.peek(i).Is(tokenizer.Keyword, "when") {
		me.skipTrivia()
		me.next()
		me.parseCondition(b)
	}
}

// parseBracedBody reads "{ ... }" after a statement header. A header without
// braces takes the rest of its statement.
func (me *parser) parseBracedBody(b *syntax.Block, kw string) bool {
	if i := me.peekPastTrivia(); me.peek(i).Kind != tokenizer.LeftBrace {
		for !me.is(tokenizer.EOF) && !me.is(tokenizer.NewLine) {
			if me.next().Kind == tokenizer.Semicolon {
				break
			}
		}
		return false
	}
	me.skipTrivia()
	open := me.next()
	if !me.parseCodeBody(b) {
		me.unterminated(b, open, kw)
		return false
	}
	me.next()
	return true
}

// parseCodeBody reads statements up to the '}' closing the body, which it
// leaves unconsumed. It returns false at EOF.
func (me *parser) parseCodeBody(b *syntax.Block) bool {
	me.use(codeGrammar)
	me.codeDepth++
	defer func() { me.codeDepth-- }()

	depth, parens := 0, 0
	atStatement := true
	for {
		tok := me.cur()
		switch tok.Kind {
		case tokenizer.EOF:
			me.flush()
			return false
		case tokenizer.RightBrace:
			if depth == 0 {
				me.flush()
				return true
			}
			depth--
			me.next()
			atStatement = true
		case tokenizer.LeftBrace:
			depth++
			me.next()
			atStatement = true
		case tokenizer.Semicolon, tokenizer.Colon:
			me.next()
			atStatement = parens == 0
		case tokenizer.LeftParen:
			parens++
			me.next()
			atStatement = false
		case tokenizer.RightParen:
			parens = max(parens-1, 0)
			me.next()
			atStatement = false
		case tokenizer.Whitespace, tokenizer.NewLine, tokenizer.Comment:
			me.next()
		case tokenizer.RazorCommentTransition:
			me.flush()
			me.parseRazorComment()
		case tokenizer.Transition:
			me.parseCodeTransition(b)
			atStatement = true
		case tokenizer.LessThan:
			if atStatement && parens == 0 && me.startsMarkup() {
				indent := me.takeIndent()
				me.flush()
				me.parseMarkupElement(indent)
				continue
			}
			me.next()
			atStatement = false
		default:
			me.next()
			atStatement = false
		}
	}
}

// startsMarkup reports whether the current '<' opens an element, an end tag
// or an HTML comment.
func (me *parser) startsMarkup() bool {
	next := me.peek(1)
	switch {
	case next.Kind == tokenizer.Identifier, next.Kind == tokenizer.Keyword:
		return true
	case next.Is(tokenizer.Operator, "!"):
		return true
	case next.Is(tokenizer.Operator, "/"):
		return isMemberStart(me.peek(2))
	}
	return false
}

// takeIndent removes the whitespace that precedes the current token on its
// line, when nothing else does.
func (me *parser) takeIndent() []tokenizer.Token {
	i := len(me.pending)
	for i > 0 && me.pending[i-1].Kind == tokenizer.Whitespace {
		i--
	}
	if i == len(me.pending) {
		return nil
	}
	at := me.pending[i].Span.AbsoluteIndex
	if c := me.doc.Content(); at > 0 && c[at-1] != '\n' && c[at-1] != '\r' {
		return nil
	}
	ws := append([]tokenizer.Token(nil), me.pending[i:]...)
	me.pending = me.pending[:i]
	return ws
}

// parseCodeTransition handles '@' inside a code body.
func (me *parser) parseCodeTransition(b *syntax.Block) {
	at := me.cur()
	next := me.peek(1)
	me.flush()
	switch {
	case next.Kind == tokenizer.Colon:
		me.parseMarkupLine()
	case next.Kind == tokenizer.LeftBrace:
		me.next()
		trans := me.take()
		nested := me.beginBlock(syntax.BlockStatement, "", syntax.StatementGenerator{}, nil, trans)
		me.errorf(nested, diagnostic.UnexpectedNestedCodeBlock, next.Span)
		open := me.next()
		me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
		if !me.parseCodeBody(nested) {
			me.unterminated(nested, open, "code")
			me.end()
			return
		}
		me.next()
		me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
		me.end()
	case next.Kind == tokenizer.Keyword && statementKeywords[next.Content]:
		me.errorf(b, diagnostic.UnexpectedKeywordAfterAt, next.Span, next.Content, next.Content)
		me.next()
		me.output(syntax.SpanTransition, nil, syntax.AcceptNone)
	case next.Kind == tokenizer.Identifier || next.Kind == tokenizer.Keyword:
		me.next()
		trans := me.take()
		if d, ok := me.directives.Lookup(next.Content); ok {
			me.parseDirective(nil, trans, d)
			return
		}
		me.parseImplicitExpression(nil, trans)
	case next.Kind == tokenizer.LeftParen:
		me.next()
		me.parseExplicitExpression(nil, me.take())
	default:
		me.next()
		me.errorf(b, diagnostic.AtInCodeMustBeFollowedByValidToken, at.Span)
		me.output(syntax.SpanTransition, nil, syntax.AcceptNone)
	}
}

// parseMarkupLine reads "@:" and the markup up to the end of the line.
func (me *parser) parseMarkupLine() {
	me.start(syntax.BlockMarkup, "", nil)
	me.next()
	me.output(syntax.SpanTransition, nil, syntax.AcceptNone)
	me.next()
	me.output(syntax.SpanMetaCode, nil, syntax.AcceptNone)
	base := len(me.tags)
	me.parseMarkup(markupMode{line: true, inCode: true, base: base})
	me.tags = me.tags[:base]
	me.end()
	me.use(codeGrammar)
}

// parseMarkupElement reads one element embedded in code, from its start tag
// through its matching end tag, plus the rest of the line when it is blank.
func (me *parser) parseMarkupElement(indent []tokenizer.Token) {
	block := me.start(syntax.BlockMarkup, "", nil)
	if len(indent) > 0 {
		me.add(me.span(indent, syntax.SpanMarkup, syntax.MarkupGenerator{}, syntax.AcceptAny))
	}
	me.use(markupGrammar)

	base := len(me.tags)
	first := me.peek(1)
	mode := markupMode{inCode: true, base: base, text: first.Is(tokenizer.Text, "text")}
	startAt := me.cur().Span

	info := me.parseTag(mode)
	if info != nil && !info.EndTag && !info.SelfClosing && !info.Void && !info.Unfinished {
		mode.element = info.Name
		if me.parseMarkup(mode) == endEOF {
			desc := diagnostic.MissingEndTag
			if mode.text {
				desc = diagnostic.UnterminatedTextTag
			}
			me.errorf(block, desc, startAt, info.Name)
		}
	}
	me.tags = me.tags[:base]

	i := me.peekPastWhitespace(0)
	if me.peek(i).Kind == tokenizer.NewLine {
		for range i + 1 {
			me.next()
		}
	}
	me.end()
	me.use(codeGrammar)
}
