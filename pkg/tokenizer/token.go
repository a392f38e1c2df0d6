// Package tokenizer turns template source into lazy token streams for the two
// grammars that interleave in a template: markup and embedded code.
//
// Both tokenizers start from a position.Cursor and can be restarted from any
// other cursor, which is how the parser switches grammars mid-document. They
// never fail: malformed input becomes a token carrying a diagnostic, and every
// stream ends with an EOF token.
package tokenizer

import (
	"fmt"
	"iter"
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
)

type Kind int

const (
	Unknown Kind = iota
	EOF

	// shared by both grammars
	Whitespace
	NewLine
	Transition
	RazorCommentTransition
	RazorCommentStar
	RazorCommentLiteral
	LeftBracket
	RightBracket
	QuestionMark
	Colon

	// markup
	Text
	OpenAngle
	CloseAngle
	ForwardSlash
	Bang
	Equals
	DoubleQuote
	SingleQuote
	DoubleHyphen

	// code
	Identifier
	Keyword
	IntegerLiteral
	RealLiteral
	CharacterLiteral
	StringLiteral
	Comment
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	Semicolon
	Comma
	Dot
	LessThan
	GreaterThan
	Assign
	Arrow
	Operator
)

var kindNames = map[Kind]string{
	Unknown:                "Unknown",
	EOF:                    "EOF",
	Whitespace:             "Whitespace",
	NewLine:                "NewLine",
	Transition:             "Transition",
	RazorCommentTransition: "RazorCommentTransition",
	RazorCommentStar:       "RazorCommentStar",
	RazorCommentLiteral:    "RazorCommentLiteral",
	LeftBracket:            "LeftBracket",
	RightBracket:           "RightBracket",
	QuestionMark:           "QuestionMark",
	Colon:                  "Colon",
	Text:                   "Text",
	OpenAngle:              "OpenAngle",
	CloseAngle:             "CloseAngle",
	ForwardSlash:           "ForwardSlash",
	Bang:                   "Bang",
	Equals:                 "Equals",
	DoubleQuote:            "DoubleQuote",
	SingleQuote:            "SingleQuote",
	DoubleHyphen:           "DoubleHyphen",
	Identifier:             "Identifier",
	Keyword:                "Keyword",
	IntegerLiteral:         "IntegerLiteral",
	RealLiteral:            "RealLiteral",
	CharacterLiteral:       "CharacterLiteral",
	StringLiteral:          "StringLiteral",
	Comment:                "Comment",
	LeftParen:              "LeftParen",
	RightParen:             "RightParen",
	LeftBrace:              "LeftBrace",
	RightBrace:             "RightBrace",
	Semicolon:              "Semicolon",
	Comma:                  "Comma",
	Dot:                    "Dot",
	LessThan:               "LessThan",
	GreaterThan:            "GreaterThan",
	Assign:                 "Assign",
	Arrow:                  "Arrow",
	Operator:               "Operator",
}

func (me Kind) String() string {
	if name, ok := kindNames[me]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(me))
}

// IsTrivia reports kinds the parsers usually skip over.
func (me Kind) IsTrivia() bool {
	return me == Whitespace || me == NewLine || me == Comment
}

type Token struct {
	Kind        Kind
	Content     string
	Span        position.Span
	Diagnostics []diagnostic.Diagnostic
}

func (me Token) String() string {
	return fmt.Sprintf("%s %q @%d", me.Kind, me.Content, me.Span.AbsoluteIndex)
}

// Is reports whether the token has kind k and, when content is given, that exact content.
func (me Token) Is(k Kind, content ...string) bool {
	if me.Kind != k {
		return false
	}
	if len(content) == 0 {
		return true
	}
	for _, c := range content {
		if me.Content == c {
			return true
		}
	}
	return false
}

// Tokenizer is the contract shared by the markup and code tokenizers.
type Tokenizer interface {
	// Next returns the next token. After the end it keeps returning EOF.
	Next() Token
	// Cursor is the position just past the last token returned by Next.
	Cursor() position.Cursor
}

// All drains a tokenizer lazily, including the final EOF token.
func All(t Tokenizer) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			tok := t.Next()
			if !yield(tok) || tok.Kind == EOF {
				return
			}
		}
	}
}

// queued is a token that has been scanned but not yet handed out.
type queued struct {
	tok   Token
	after position.Cursor
}

// base holds what both tokenizers share: the read cursor, the cursor of the
// last token handed out, and the queue of pre-scanned tokens.
type base struct {
	scan    position.Cursor
	emitted position.Cursor
	queue   []queued
}

func (me *base) Cursor() position.Cursor {
	return me.emitted
}

func (me *base) push(kind Kind, start, end position.Cursor, diags ...diagnostic.Diagnostic) {
	me.queue = append(me.queue, queued{
		tok: Token{
			Kind:        kind,
			Content:     start.Text(end),
			Span:        start.Span(end),
			Diagnostics: diags,
		},
		after: end,
	})
	me.scan = end
}

func (me *base) pop() Token {
	q := me.queue[0]
	me.queue = me.queue[1:]
	me.emitted = q.after
	return q.tok
}

func (me *base) eof() Token {
	me.emitted = me.scan
	return Token{Kind: EOF, Span: position.NewSpan(me.scan.Location(), 0)}
}

// scanRazorComment queues the pieces of "@* ... *@" starting at the cursor.
func (me *base) scanRazorComment(c position.Cursor) {
	at := c.Advance(1)
	star := at.Advance(1)
	me.push(RazorCommentTransition, c, at)
	me.push(RazorCommentStar, at, star)

	idx := strings.Index(star.Rest(), "*@")
	if idx < 0 {
		rest := star.Advance(len(star.Rest()))
		me.push(RazorCommentLiteral, star, rest, diagnostic.UnterminatedRazorComment.New(c.Span(star)))
		return
	}
	rest := star.Advance(idx)
	if idx > 0 {
		me.push(RazorCommentLiteral, star, rest)
	}
	closeStar := rest.Advance(1)
	me.push(RazorCommentStar, rest, closeStar)
	me.push(RazorCommentTransition, closeStar, closeStar.Advance(1))
}

// scanNewLine returns the cursor after a newline at c, or c when there is none.
func scanNewLine(c position.Cursor) position.Cursor {
	switch c.Peek(0) {
	case '\r':
		if c.Peek(1) == '\n' {
			return c.Advance(2)
		}
		return c.Advance(1)
	case '\n':
		return c.Advance(1)
	}
	return c
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\f' || b == '\v'
}

func isNewLine(b byte) bool {
	return b == '\r' || b == '\n'
}
