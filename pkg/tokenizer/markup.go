package tokenizer

import (
	"github.com/walteh/gorazor/pkg/position"
)

// Markup tokenizes HTML-like text. It knows tag punctuation, quotes, comment
// dashes and the '@' transition; everything else is Text.
type Markup struct {
	base
}

var _ Tokenizer = (*Markup)(nil)

func NewMarkup(c position.Cursor) *Markup {
	return &Markup{base: base{scan: c, emitted: c}}
}

var markupPunctuation = map[byte]Kind{
	'<':  OpenAngle,
	'>':  CloseAngle,
	'/':  ForwardSlash,
	'!':  Bang,
	'?':  QuestionMark,
	'[':  LeftBracket,
	']':  RightBracket,
	'=':  Equals,
	'"':  DoubleQuote,
	'\'': SingleQuote,
}

func (me *Markup) Next() Token {
	if len(me.queue) == 0 {
		me.scanOne()
	}
	if len(me.queue) == 0 {
		return me.eof()
	}
	return me.pop()
}

func (me *Markup) scanOne() {
	c := me.scan
	if c.EOF() {
		return
	}

	b := c.Peek(0)
	switch {
	case b == '@':
		if c.Peek(1) == '*' {
			me.scanRazorComment(c)
			return
		}
		me.push(Transition, c, c.Advance(1))
	case b == '-' && c.Peek(1) == '-':
		me.push(DoubleHyphen, c, c.Advance(2))
	case isNewLine(b):
		me.push(NewLine, c, scanNewLine(c))
	case isWhitespace(b):
		end := c
		for isWhitespace(end.Peek(0)) {
			end = end.Advance(1)
		}
		me.push(Whitespace, c, end)
	default:
		if kind, ok := markupPunctuation[b]; ok {
			me.push(kind, c, c.Advance(1))
			return
		}
		me.push(Text, c, c.Advance(textLength(c.Rest())))
	}
}

// textLength is the length of the leading run of plain text.
func textLength(s string) int {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '@' || isWhitespace(b) || isNewLine(b) {
			return max(i, 1)
		}
		if _, ok := markupPunctuation[b]; ok {
			return max(i, 1)
		}
		if b == '-' && i+1 < len(s) && s[i+1] == '-' {
			return max(i, 1)
		}
	}
	return len(s)
}
