package position

import "strings"

// Cursor is a read position inside a document with an exclusive end bound.
// It is a value: advancing returns a new cursor and never changes the old one.
type Cursor struct {
	doc *Document
	loc Location
	end int
}

func (me *Document) Cursor() Cursor {
	return Cursor{doc: me, loc: Location{FilePath: me.path}, end: len(me.content)}
}

// CursorAt starts a cursor at the absolute index, clamped to the document.
func (me *Document) CursorAt(index int) Cursor {
	index = min(max(index, 0), len(me.content))
	loc, _ := me.Location(index)
	return Cursor{doc: me, loc: loc, end: len(me.content)}
}

func (me Cursor) Document() *Document { return me.doc }
func (me Cursor) Location() Location  { return me.loc }
func (me Cursor) Index() int          { return me.loc.AbsoluteIndex }
func (me Cursor) End() int            { return me.end }
func (me Cursor) EOF() bool           { return me.loc.AbsoluteIndex >= me.end }

// Bounded limits the cursor to end, which never grows past the current bound.
func (me Cursor) Bounded(end int) Cursor {
	me.end = min(max(end, me.loc.AbsoluteIndex), me.end)
	return me
}

// Peek returns the byte n positions ahead, or 0 past the bound.
func (me Cursor) Peek(n int) byte {
	i := me.loc.AbsoluteIndex + n
	if i < 0 || i >= me.end {
		return 0
	}
	return me.doc.content[i]
}

// Rest is the unread text up to the bound.
func (me Cursor) Rest() string {
	return me.doc.content[me.loc.AbsoluteIndex:me.end]
}

func (me Cursor) HasPrefix(s string) bool {
	return strings.HasPrefix(me.Rest(), s)
}

// Advance moves n bytes forward, stopping at the bound.
func (me Cursor) Advance(n int) Cursor {
	target := min(me.loc.AbsoluteIndex+n, me.end)
	if target == me.loc.AbsoluteIndex {
		return me
	}
	me.loc = me.loc.Advance(me.doc.content[me.loc.AbsoluteIndex:target])
	// a "\r\n" pair split by the bound resolves through the line table
	if target > 0 && me.doc.content[target-1] == '\r' {
		me.loc, _ = me.doc.Location(target)
	}
	return me
}

// Span covers the text between me and later.
func (me Cursor) Span(later Cursor) Span {
	return Span{Location: me.loc, Length: later.loc.AbsoluteIndex - me.loc.AbsoluteIndex}
}

func (me Cursor) Text(later Cursor) string {
	return me.doc.content[me.loc.AbsoluteIndex:later.loc.AbsoluteIndex]
}
