package syntax

import "strings"

// AcceptedCharacters is the set of characters an edit may insert into a span
// without forcing a re-parse of the surrounding block.
type AcceptedCharacters int

const (
	AcceptNone          AcceptedCharacters = 0
	AcceptNewLine       AcceptedCharacters = 1 << 0
	AcceptWhitespace    AcceptedCharacters = 1 << 1
	AcceptNonWhitespace AcceptedCharacters = 1 << 2

	AcceptAllWhitespace    = AcceptNewLine | AcceptWhitespace
	AcceptAnyExceptNewLine = AcceptWhitespace | AcceptNonWhitespace
	AcceptAny              = AcceptNewLine | AcceptWhitespace | AcceptNonWhitespace
)

type EditHandler struct {
	Accepted AcceptedCharacters
	// AutoCompleteString is what an editor should insert to close the block.
	AutoCompleteString string
}

// CanAcceptChange reports whether replacing [start, start+length) with text
// can be absorbed by span alone. Anything else means re-parsing the document.
func (me EditHandler) CanAcceptChange(span *Span, start, length int, text string) bool {
	if me.Accepted == AcceptNone {
		return false
	}
	begin := span.Start.AbsoluteIndex
	if start < begin || start+length > begin+span.Length() {
		return false
	}
	for _, r := range text {
		switch {
		case r == '\r' || r == '\n':
			if me.Accepted&AcceptNewLine == 0 {
				return false
			}
		case strings.ContainsRune(" \t\f\v", r):
			if me.Accepted&AcceptWhitespace == 0 {
				return false
			}
		default:
			if me.Accepted&AcceptNonWhitespace == 0 {
				return false
			}
		}
	}
	return true
}
