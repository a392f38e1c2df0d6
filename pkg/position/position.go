package position

import (
	"fmt"
)

// Place is a zero-based line/character pair, the shape editors speak.
type Place struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Place `json:"start"`
	End   Place `json:"end"`
}

// Location identifies a single point in a source document.
//
// All indexes are zero-based byte offsets into the UTF-8 content. Locations are
// ordered by AbsoluteIndex alone; the line and character fields are derived.
type Location struct {
	FilePath       string
	AbsoluteIndex  int
	LineIndex      int
	CharacterIndex int
}

// Undefined is used for synthesized nodes that have no source.
var Undefined = Location{AbsoluteIndex: -1, LineIndex: -1, CharacterIndex: -1}

func (me Location) IsUndefined() bool {
	return me.AbsoluteIndex < 0
}

func (me Location) Compare(other Location) int {
	switch {
	case me.AbsoluteIndex < other.AbsoluteIndex:
		return -1
	case me.AbsoluteIndex > other.AbsoluteIndex:
		return 1
	}
	return 0
}

func (me Location) Place() Place {
	return Place{Line: me.LineIndex, Character: me.CharacterIndex}
}

// Advance returns the location reached after reading text starting at me.
// A "\r\n" pair counts as a single line break, as does a lone '\r'.
func (me Location) Advance(text string) Location {
	out := me
	for i := 0; i < len(text); i++ {
		out.AbsoluteIndex++
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				continue
			}
			out.LineIndex++
			out.CharacterIndex = 0
		case '\n':
			out.LineIndex++
			out.CharacterIndex = 0
		default:
			out.CharacterIndex++
		}
	}
	return out
}

// String renders the location the way compilers print it: one-based line and column.
func (me Location) String() string {
	if me.IsUndefined() {
		return "(undefined)"
	}
	if me.FilePath == "" {
		return fmt.Sprintf("(%d,%d)", me.LineIndex+1, me.CharacterIndex+1)
	}
	return fmt.Sprintf("%s(%d,%d)", me.FilePath, me.LineIndex+1, me.CharacterIndex+1)
}

// Span is a contiguous range of source starting at Location.
type Span struct {
	Location
	Length int
}

var UndefinedSpan = Span{Location: Undefined}

func NewSpan(loc Location, length int) Span {
	return Span{Location: loc, Length: length}
}

// End is the exclusive absolute end index.
func (me Span) End() int {
	return me.AbsoluteIndex + me.Length
}

func (me Span) Contains(index int) bool {
	return index >= me.AbsoluteIndex && index < me.End()
}

// Overlaps reports whether the two spans share at least one byte. A zero-length
// span overlaps another when it falls inside it.
func (me Span) Overlaps(other Span) bool {
	if me.Length == 0 {
		return me.AbsoluteIndex >= other.AbsoluteIndex && me.AbsoluteIndex <= other.End()
	}
	if other.Length == 0 {
		return other.AbsoluteIndex >= me.AbsoluteIndex && other.AbsoluteIndex <= me.End()
	}
	return other.AbsoluteIndex < me.End() && other.End() > me.AbsoluteIndex
}

// Union returns the smallest span covering both. Undefined spans are ignored.
func (me Span) Union(other Span) Span {
	if me.IsUndefined() {
		return other
	}
	if other.IsUndefined() {
		return me
	}
	start := me.Location
	if other.AbsoluteIndex < start.AbsoluteIndex {
		start = other.Location
	}
	end := max(me.End(), other.End())
	return Span{Location: start, Length: end - start.AbsoluteIndex}
}

func (me Span) String() string {
	return fmt.Sprintf("%s+%d", me.Location.String(), me.Length)
}
