package codegen

import (
	"strconv"
	"strings"

	"github.com/walteh/gorazor/pkg/position"
)

// Writer accumulates generated text and knows where it is in it. Indentation
// is applied lazily at the first write on a line, and never inside the text
// of a single write, so source text can be copied through unchanged.
type Writer struct {
	b           strings.Builder
	format      Format
	depth       int
	loc         position.Location
	atLineStart bool
	mappings    []Mapping
}

func NewWriter(path string, format Format) *Writer {
	return &Writer{
		format:      format.normalized(),
		loc:         position.Location{FilePath: path},
		atLineStart: true,
	}
}

// Location is the position of the next byte to be written.
func (me *Writer) Location() position.Location {
	return me.loc
}

func (me *Writer) String() string {
	return me.b.String()
}

func (me *Writer) Mappings() []Mapping {
	return me.mappings
}

func (me *Writer) raw(s string) {
	if s == "" {
		return
	}
	me.b.WriteString(s)
	me.loc = me.loc.Advance(s)
	me.atLineStart = s[len(s)-1] == '\n' || (s[len(s)-1] == '\r')
}

func (me *Writer) indent() {
	if !me.atLineStart || me.depth == 0 {
		return
	}
	me.raw(me.format.indent(me.depth))
}

// Write appends s, indenting first when at the start of a line.
func (me *Writer) Write(s string) *Writer {
	if s == "" {
		return me
	}
	me.indent()
	me.raw(s)
	return me
}

// WriteLine appends s and a line break.
func (me *Writer) WriteLine(s string) *Writer {
	me.Write(s)
	me.raw(me.format.NewLine)
	return me
}

// NewLineIfNeeded ends the current line unless it is empty.
func (me *Writer) NewLineIfNeeded() *Writer {
	if !me.atLineStart {
		me.raw(me.format.NewLine)
	}
	return me
}

// WriteMapped appends text copied from span and records the mapping.
func (me *Writer) WriteMapped(span position.Span, text string) *Writer {
	if text == "" {
		return me
	}
	me.indent()
	me.mappings = append(me.mappings, Mapping{Original: span, Generated: position.NewSpan(me.loc, len(text))})
	me.raw(text)
	return me
}

// PadTo writes spaces up to column col of the current line, without
// indentation. Design-time output uses it to keep code at its source column.
func (me *Writer) PadTo(col int) *Writer {
	if n := col - me.loc.CharacterIndex; n > 0 {
		me.raw(strings.Repeat(" ", n))
		me.atLineStart = false
	}
	return me
}

func (me *Writer) Indent() *Writer {
	me.depth++
	return me
}

func (me *Writer) Dedent() *Writer {
	me.depth = max(0, me.depth-1)
	return me
}

// OpenBrace writes "{" on its own line and indents.
func (me *Writer) OpenBrace() *Writer {
	me.NewLineIfNeeded()
	me.WriteLine("{")
	return me.Indent()
}

// CloseBrace dedents and writes "}" followed by suffix.
func (me *Writer) CloseBrace(suffix string) *Writer {
	me.NewLineIfNeeded()
	me.Dedent()
	return me.WriteLine("}" + suffix)
}

// Directive writes a preprocessor line at column zero.
func (me *Writer) Directive(text string) *Writer {
	me.NewLineIfNeeded()
	me.raw(text)
	me.raw(me.format.NewLine)
	return me
}

// BeginLinePragma points the compiler at the source line of span.
func (me *Writer) BeginLinePragma(span position.Span) *Writer {
	return me.Directive("#line " + strconv.Itoa(span.LineIndex+1) + ` "` + span.FilePath + `"`)
}

func (me *Writer) EndLinePragma() *Writer {
	me.NewLineIfNeeded()
	me.raw(me.format.NewLine)
	me.Directive("#line default")
	return me.Directive("#line hidden")
}

// StringLiteral quotes s as a C# regular string literal.
func StringLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		case '\u0085', '\u2028', '\u2029':
			b.WriteString(`\u` + strconv.FormatInt(int64(r)+0x10000, 16)[1:])
		default:
			if r < 0x20 {
				b.WriteString(`\u` + strconv.FormatInt(int64(r)+0x10000, 16)[1:])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
