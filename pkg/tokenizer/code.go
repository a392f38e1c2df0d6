package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
)

// Code tokenizes embedded C#-like code.
type Code struct {
	base
	keywords KeywordSet
}

var _ Tokenizer = (*Code)(nil)

func NewCode(c position.Cursor, keywords KeywordSet) *Code {
	if keywords.words == nil {
		keywords = DefaultKeywords
	}
	return &Code{base: base{scan: c, emitted: c}, keywords: keywords}
}

func (me *Code) Keywords() KeywordSet {
	return me.keywords
}

var codePunctuation = map[byte]Kind{
	'(': LeftParen,
	')': RightParen,
	'{': LeftBrace,
	'}': RightBrace,
	'[': LeftBracket,
	']': RightBracket,
	';': Semicolon,
	',': Comma,
	':': Colon,
	'<': LessThan,
	'>': GreaterThan,
}

// longest first
var codeOperators = []string{
	">>>=", "??=", "<<=",
	"=>", "==", "!=", "<=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=", "%=", "&=",
	"|=", "^=", "->", "::", "??", "<<",
	"+", "-", "*", "/", "%", "&", "|", "^", "!", "~",
}

func (me *Code) Next() Token {
	if len(me.queue) == 0 {
		me.scanOne()
	}
	if len(me.queue) == 0 {
		return me.eof()
	}
	return me.pop()
}

func (me *Code) scanOne() {
	c := me.scan
	if c.EOF() {
		return
	}

	b := c.Peek(0)
	switch {
	case isNewLine(b):
		me.push(NewLine, c, scanNewLine(c))
	case isWhitespace(b):
		end := c
		for isWhitespace(end.Peek(0)) {
			end = end.Advance(1)
		}
		me.push(Whitespace, c, end)
	case b == '@':
		switch c.Peek(1) {
		case '*':
			me.scanRazorComment(c)
		case '"':
			me.scanVerbatimString(c, c.Advance(1))
		case '$':
			if c.Peek(2) == '"' {
				me.scanInterpolatedString(c, c.Advance(2), true)
				return
			}
			me.push(Transition, c, c.Advance(1))
		default:
			me.push(Transition, c, c.Advance(1))
		}
	case b == '$' && c.Peek(1) == '"':
		me.scanInterpolatedString(c, c.Advance(1), false)
	case b == '$' && c.Peek(1) == '@' && c.Peek(2) == '"':
		me.scanInterpolatedString(c, c.Advance(2), true)
	case b == '"':
		me.scanString(c)
	case b == '\'':
		me.scanChar(c)
	case b == '/' && c.Peek(1) == '/':
		end := c
		for !end.EOF() && !isNewLine(end.Peek(0)) {
			end = end.Advance(1)
		}
		me.push(Comment, c, end)
	case b == '/' && c.Peek(1) == '*':
		idx := strings.Index(c.Rest()[2:], "*/")
		if idx < 0 {
			end := c.Advance(len(c.Rest()))
			me.push(Comment, c, end, diagnostic.UnterminatedBlockComment.New(c.Span(c.Advance(2))))
			return
		}
		me.push(Comment, c, c.Advance(idx+4))
	case isDigit(b) || (b == '.' && isDigit(c.Peek(1))):
		me.scanNumber(c)
	case b == '.':
		me.push(Dot, c, c.Advance(1))
	case b == '?':
		if c.HasPrefix("??") {
			me.scanOperator(c)
			return
		}
		me.push(QuestionMark, c, c.Advance(1))
	case b == '=':
		switch {
		case c.HasPrefix("=>"):
			me.push(Arrow, c, c.Advance(2))
		case c.HasPrefix("=="):
			me.push(Operator, c, c.Advance(2))
		default:
			me.push(Assign, c, c.Advance(1))
		}
	case b == '<' && (c.HasPrefix("<=") || c.HasPrefix("<<")):
		me.scanOperator(c)
	default:
		if kind, ok := codePunctuation[b]; ok {
			me.push(kind, c, c.Advance(1))
			return
		}
		if n := identifierLength(c.Rest()); n > 0 {
			end := c.Advance(n)
			kind := Identifier
			if me.keywords.Contains(c.Text(end)) {
				kind = Keyword
			}
			me.push(kind, c, end)
			return
		}
		if me.scanOperator(c) {
			return
		}
		_, size := utf8.DecodeRuneInString(c.Rest())
		end := c.Advance(size)
		me.push(Unknown, c, end, diagnostic.UnrecognizedCharacter.New(c.Span(end), c.Text(end)))
	}
}

func (me *Code) scanOperator(c position.Cursor) bool {
	for _, op := range codeOperators {
		if c.HasPrefix(op) {
			me.push(Operator, c, c.Advance(len(op)))
			return true
		}
	}
	return false
}

// scanString scans a regular string literal. It may not span lines.
func (me *Code) scanString(c position.Cursor) {
	end, ok := scanQuoted(c.Advance(1), '"')
	if !ok {
		me.push(StringLiteral, c, end, diagnostic.UnterminatedStringLiteral.New(c.Span(end)))
		return
	}
	me.push(StringLiteral, c, end)
}

func (me *Code) scanChar(c position.Cursor) {
	end, ok := scanQuoted(c.Advance(1), '\'')
	if !ok {
		me.push(CharacterLiteral, c, end, diagnostic.UnterminatedCharLiteral.New(c.Span(end)))
		return
	}
	me.push(CharacterLiteral, c, end)
}

// scanQuoted reads up to and including the closing quote, honouring backslash
// escapes. It stops before a newline when the literal is unterminated.
func scanQuoted(c position.Cursor, quote byte) (position.Cursor, bool) {
	rest := c.Rest()
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			if i+1 < len(rest) && !isNewLine(rest[i+1]) {
				i++
			}
		case quote:
			return c.Advance(i + 1), true
		case '\r', '\n':
			return c.Advance(i), false
		}
	}
	return c.Advance(len(rest)), false
}

// scanVerbatimString handles @"..." where "" is an escaped quote and newlines are allowed.
func (me *Code) scanVerbatimString(start, quote position.Cursor) {
	end, ok := scanVerbatim(quote.Advance(1))
	if !ok {
		me.push(StringLiteral, start, end, diagnostic.UnterminatedStringLiteral.New(start.Span(quote.Advance(1))))
		return
	}
	me.push(StringLiteral, start, end)
}

func scanVerbatim(c position.Cursor) (position.Cursor, bool) {
	rest := c.Rest()
	for i := 0; i < len(rest); i++ {
		if rest[i] != '"' {
			continue
		}
		if i+1 < len(rest) && rest[i+1] == '"' {
			i++
			continue
		}
		return c.Advance(i + 1), true
	}
	return c.Advance(len(rest)), false
}

// scanInterpolatedString handles $"..." and $@"...". Holes are skipped by
// brace depth, including nested string literals inside them.
func (me *Code) scanInterpolatedString(start, quote position.Cursor, verbatim bool) {
	rest := quote.Advance(1).Rest()
	depth := 0
	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		if depth == 0 {
			switch {
			case ch == '{' && i+1 < len(rest) && rest[i+1] == '{':
				i++
			case ch == '}' && i+1 < len(rest) && rest[i+1] == '}':
				i++
			case ch == '{':
				depth++
			case ch == '\\' && !verbatim:
				if i+1 < len(rest) {
					i++
				}
			case ch == '"' && verbatim && i+1 < len(rest) && rest[i+1] == '"':
				i++
			case ch == '"':
				me.push(StringLiteral, start, quote.Advance(i+2))
				return
			case isNewLine(ch) && !verbatim:
				end := quote.Advance(i + 1)
				me.push(StringLiteral, start, end, diagnostic.UnterminatedStringLiteral.New(start.Span(end)))
				return
			}
			continue
		}
		switch ch {
		case '{':
			depth++
		case '}':
			depth--
		case '"', '\'':
			end, ok := scanQuoted(quote.Advance(i+2), ch)
			if !ok {
				break
			}
			i = end.Index() - quote.Index() - 2
		}
	}
	end := quote.Advance(len(rest) + 1)
	me.push(StringLiteral, start, end, diagnostic.UnterminatedStringLiteral.New(start.Span(end)))
}

func (me *Code) scanNumber(c position.Cursor) {
	rest := c.Rest()
	i := 0
	isReal := false

	if len(rest) > 1 && rest[0] == '0' && (rest[1] == 'x' || rest[1] == 'X' || rest[1] == 'b' || rest[1] == 'B') {
		i = 2
		for i < len(rest) && (isHexDigit(rest[i]) || rest[i] == '_') {
			i++
		}
	} else {
		for i < len(rest) && (isDigit(rest[i]) || rest[i] == '_') {
			i++
		}
		if i+1 < len(rest) && rest[i] == '.' && isDigit(rest[i+1]) {
			isReal = true
			i++
			for i < len(rest) && (isDigit(rest[i]) || rest[i] == '_') {
				i++
			}
		}
		if i < len(rest) && (rest[i] == 'e' || rest[i] == 'E') {
			j := i + 1
			if j < len(rest) && (rest[j] == '+' || rest[j] == '-') {
				j++
			}
			if j < len(rest) && isDigit(rest[j]) {
				isReal = true
				i = j
				for i < len(rest) && isDigit(rest[i]) {
					i++
				}
			}
		}
		if i < len(rest) && strings.IndexByte("fFdDmM", rest[i]) >= 0 {
			isReal = true
			i++
		}
	}

	if !isReal {
		for n := 0; n < 2 && i < len(rest) && strings.IndexByte("uUlL", rest[i]) >= 0; n++ {
			i++
		}
	}

	kind := IntegerLiteral
	if isReal {
		kind = RealLiteral
	}
	me.push(kind, c, c.Advance(i))
}

func identifierLength(s string) int {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '_' || unicode.IsLetter(r) || (i > 0 && (unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Pc, r))) {
			i += size
			continue
		}
		break
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
