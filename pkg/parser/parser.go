// Package parser turns a Razor document into a syntax tree.
//
// The parser is recursive descent over two tokenizers. It owns a single read
// position and, whenever it switches between markup and code, restarts the
// matching tokenizer from that position:
//
//	markup ──'@'──▶ code ──'<tag>' / '@:' / '}'──▶ markup
//
// Parsing never stops at an error. Problems are recorded as diagnostics on
// the nearest block and the parser resynchronizes, so the spans of the tree
// always cover the whole document.
package parser

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

type Options struct {
	// Directives defaults to directive.DefaultRegistry().
	Directives *directive.Registry
	// Binder, when set, makes the parser read bound attribute values as code
	// and rewrite matching elements into tag helper blocks.
	Binder *taghelper.Binder
	// Keywords defaults to tokenizer.DefaultKeywords.
	Keywords tokenizer.KeywordSet
}

// Parse builds the syntax tree of doc. It always returns a tree; errors are
// reported through the tree's diagnostics.
func Parse(ctx context.Context, doc *position.Document, opts Options) *syntax.Tree {
	p := newParser(doc, opts)
	tree := &syntax.Tree{Source: doc, Root: p.parseDocument()}
	tree = RewriteWhitespace(tree)
	if opts.Binder != nil {
		tree = RewriteTagHelpers(tree, opts.Binder)
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", doc.Path()).
		Int("length", doc.Len()).
		Bool("tag_helpers", opts.Binder != nil).
		Msg("parsed document")
	return tree
}

type grammar int

const (
	markupGrammar grammar = iota
	codeGrammar
)

type parser struct {
	doc        *position.Document
	directives *directive.Registry
	binder     *taghelper.Binder
	keywords   tokenizer.KeywordSet

	grammar grammar
	tz      tokenizer.Tokenizer
	// la holds tokens read from tz but not consumed yet.
	la []tokenizer.Token
	// at is the position just past the last consumed token.
	at position.Cursor
	// pending holds consumed tokens that are not in a span yet.
	pending []tokenizer.Token
	stack   []*syntax.Block
	// tags is the stack of open element names in markup.
	tags []string
	// codeDepth counts the code blocks enclosing the current position.
	codeDepth int
}

func newParser(doc *position.Document, opts Options) *parser {
	p := &parser{
		doc:        doc,
		directives: opts.Directives,
		binder:     opts.Binder,
		keywords:   opts.Keywords,
		at:         doc.Cursor(),
	}
	if p.directives == nil {
		p.directives = directive.DefaultRegistry()
	}
	if len(p.keywords.Words()) == 0 {
		p.keywords = tokenizer.DefaultKeywords
	}
	p.use(markupGrammar)
	return p
}

func (me *parser) parseDocument() *syntax.Block {
	root := me.start(syntax.BlockMarkup, "", nil)
	me.parseMarkup(markupMode{})
	me.end()
	return root
}

// use switches grammars, re-reading from the current position.
func (me *parser) use(g grammar) {
	if me.tz != nil && me.grammar == g {
		return
	}
	if len(me.stack) > 0 {
		me.flush()
	}
	me.grammar = g
	me.restart()
}

func (me *parser) restart() {
	me.la = nil
	if me.grammar == codeGrammar {
		me.tz = tokenizer.NewCode(me.at, me.keywords)
		return
	}
	me.tz = tokenizer.NewMarkup(me.at)
}

func (me *parser) peek(n int) tokenizer.Token {
	for len(me.la) <= n {
		me.la = append(me.la, me.tz.Next())
	}
	return me.la[n]
}

func (me *parser) cur() tokenizer.Token { return me.peek(0) }

func (me *parser) is(kind tokenizer.Kind, content ...string) bool {
	return me.cur().Is(kind, content...)
}

// next consumes the current token into pending. EOF is never consumed.
func (me *parser) next() tokenizer.Token {
	t := me.peek(0)
	if t.Kind == tokenizer.EOF {
		return t
	}
	me.la = me.la[1:]
	me.pending = append(me.pending, t)
	me.at = me.doc.CursorAt(t.Span.End())
	return t
}

// nextPart consumes the first n bytes of the current token and re-reads the
// remainder with the active grammar.
func (me *parser) nextPart(n int) {
	t := me.cur()
	if n >= len(t.Content) {
		me.next()
		return
	}
	part := tokenizer.Token{
		Kind:    t.Kind,
		Content: t.Content[:n],
		Span:    position.NewSpan(t.Span.Location, n),
	}
	me.pending = append(me.pending, part)
	me.at = me.doc.CursorAt(t.Span.AbsoluteIndex + n)
	me.restart()
}

// take removes and returns the pending tokens.
func (me *parser) take() []tokenizer.Token {
	t := me.pending
	me.pending = nil
	return t
}

func (me *parser) skipWhitespace() {
	for me.is(tokenizer.Whitespace) {
		me.next()
	}
}

func (me *parser) skipTrivia() {
	for me.cur().Kind.IsTrivia() {
		me.next()
	}
}

// peekPastTrivia returns the offset of the first lookahead token that is not
// whitespace, a newline or a comment.
func (me *parser) peekPastTrivia() int {
	i := 0
	for me.peek(i).Kind.IsTrivia() {
		i++
	}
	return i
}

func (me *parser) top() *syntax.Block {
	return me.stack[len(me.stack)-1]
}

func (me *parser) add(n syntax.Node) {
	me.top().Children = append(me.top().Children, n)
}

// output turns the pending tokens into a span of the current block.
func (me *parser) output(kind syntax.SpanKind, gen syntax.Generator, accepted syntax.AcceptedCharacters) *syntax.Span {
	if len(me.pending) == 0 {
		return nil
	}
	s := me.span(me.pending, kind, gen, accepted)
	me.pending = nil
	me.add(s)
	return s
}

// outputEmpty adds a zero length span at the current position.
func (me *parser) outputEmpty(kind syntax.SpanKind, gen syntax.Generator, accepted syntax.AcceptedCharacters) *syntax.Span {
	me.flush()
	s := &syntax.Span{Kind: kind, Generator: gen, EditHandler: syntax.EditHandler{Accepted: accepted}, Start: me.at.Location()}
	me.add(s)
	return s
}

func (me *parser) span(tokens []tokenizer.Token, kind syntax.SpanKind, gen syntax.Generator, accepted syntax.AcceptedCharacters) *syntax.Span {
	return &syntax.Span{
		Kind:        kind,
		Tokens:      tokens,
		Generator:   gen,
		EditHandler: syntax.EditHandler{Accepted: accepted},
		Start:       tokens[0].Span.Location,
	}
}

// flush outputs pending tokens with the defaults of the active grammar.
func (me *parser) flush() {
	if me.grammar == codeGrammar {
		me.output(syntax.SpanCode, syntax.StatementGenerator{}, syntax.AcceptAny)
		return
	}
	me.output(syntax.SpanMarkup, syntax.MarkupGenerator{}, syntax.AcceptAny)
}

// start opens a child block at the current position.
func (me *parser) start(t syntax.BlockType, name string, gen syntax.Generator) *syntax.Block {
	if len(me.stack) > 0 {
		me.flush()
	}
	b := &syntax.Block{Type: t, Name: name, Generator: gen, Start: me.at.Location()}
	me.stack = append(me.stack, b)
	return b
}

// end closes the innermost block and attaches it to its parent.
func (me *parser) end() *syntax.Block {
	me.flush()
	b := me.top()
	me.stack = me.stack[:len(me.stack)-1]
	if len(me.stack) > 0 {
		me.add(b)
	}
	return b
}

func (me *parser) errorf(b *syntax.Block, d diagnostic.Descriptor, span position.Span, args ...any) {
	if b == nil {
		b = me.top()
	}
	b.Diagnostics = append(b.Diagnostics, d.New(span, args...))
}

// here is a zero length span at the current position.
func (me *parser) here() position.Span {
	return position.NewSpan(me.at.Location(), 0)
}

// takeTrailingWhitespace removes the whitespace tokens at the end of pending
// that follow a non-whitespace token or the start of pending.
func (me *parser) takeTrailingWhitespace() []tokenizer.Token {
	i := len(me.pending)
	for i > 0 && me.pending[i-1].Kind == tokenizer.Whitespace {
		i--
	}
	if i == len(me.pending) {
		return nil
	}
	ws := append([]tokenizer.Token(nil), me.pending[i:]...)
	me.pending = me.pending[:i]
	return ws
}

func segment(tokens []tokenizer.Token, at position.Location) syntax.Segment {
	if len(tokens) == 0 {
		return syntax.Segment{Location: at}
	}
	return syntax.Segment{Value: joinTokens(tokens), Location: tokens[0].Span.Location}
}

func joinTokens(tokens []tokenizer.Token) string {
	n := 0
	for _, t := range tokens {
		n += len(t.Content)
	}
	b := make([]byte, 0, n)
	for _, t := range tokens {
		b = append(b, t.Content...)
	}
	return string(b)
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// looksLikeEmail reports whether the '@' at index sits between two
// alphanumeric characters, as in "name@example.com".
func (me *parser) looksLikeEmail(index int) bool {
	content := me.doc.Content()
	return index > 0 && index+1 < len(content) && isAlnum(content[index-1]) && isAlnum(content[index+1])
}
