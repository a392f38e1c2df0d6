package position_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/pkg/position"
)

func TestDocumentLocation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		index    int
		wantLine int
		wantChar int
	}{
		{name: "empty text", text: "", index: 0, wantLine: 0, wantChar: 0},
		{name: "single line", text: "Hello, World!", index: 7, wantLine: 0, wantChar: 7},
		{name: "second line", text: "Hello\nWorld", index: 8, wantLine: 1, wantChar: 2},
		{name: "start of line", text: "Hello\nWorld", index: 6, wantLine: 1, wantChar: 0},
		{name: "crlf", text: "ab\r\ncd", index: 5, wantLine: 1, wantChar: 1},
		{name: "lone cr", text: "ab\rcd", index: 3, wantLine: 1, wantChar: 0},
		{name: "end of file", text: "a\nb", index: 3, wantLine: 1, wantChar: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := position.NewDocument("test.cshtml", tt.text)
			loc, err := doc.Location(tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLine, loc.LineIndex, "line")
			assert.Equal(t, tt.wantChar, loc.CharacterIndex, "character")
			assert.Equal(t, "test.cshtml", loc.FilePath)
		})
	}
}

func TestLocationAdvanceMatchesLineTable(t *testing.T) {
	text := "line one\r\nline two\nthree\rfour"
	doc := position.NewDocument("", text)
	start, err := doc.Location(0)
	require.NoError(t, err)

	for i := 0; i <= len(text); i++ {
		want, err := doc.Location(i)
		require.NoError(t, err)
		got := doc.CursorAt(0).Advance(i).Location()
		assert.Equal(t, want, got, "index %d", i)
		if i == len(text) {
			assert.Equal(t, want, start.Advance(text))
		}
	}
}

func TestDocumentOutOfRange(t *testing.T) {
	doc := position.NewDocument("", "abc")

	_, err := doc.At(3)
	assert.True(t, errors.Is(err, position.ErrOutOfRange))

	_, err = doc.CopyTo(2, make([]byte, 2))
	assert.True(t, errors.Is(err, position.ErrOutOfRange))

	_, err = doc.Slice(position.NewSpan(position.Location{AbsoluteIndex: 1}, 5))
	assert.True(t, errors.Is(err, position.ErrOutOfRange))

	_, err = doc.Location(4)
	assert.True(t, errors.Is(err, position.ErrOutOfRange))

	buf := make([]byte, 2)
	n, err := doc.CopyTo(1, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "bc", string(buf))

	b, err := doc.At(0)
	require.NoError(t, err)
	assert.Equal(t, byte('a'), b)
}

func TestSpanOverlaps(t *testing.T) {
	span := func(start, length int) position.Span {
		return position.NewSpan(position.Location{AbsoluteIndex: start}, length)
	}

	tests := []struct {
		name string
		a, b position.Span
		want bool
	}{
		{name: "disjoint", a: span(0, 2), b: span(2, 2), want: false},
		{name: "overlap", a: span(0, 3), b: span(2, 2), want: true},
		{name: "contained", a: span(0, 10), b: span(2, 2), want: true},
		{name: "zero length inside", a: span(3, 0), b: span(2, 2), want: true},
		{name: "zero length outside", a: span(9, 0), b: span(2, 2), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}

	assert.Equal(t, span(1, 6), span(1, 2).Union(span(5, 2)))
	assert.Equal(t, span(1, 2), position.UndefinedSpan.Union(span(1, 2)))
}

func TestReadDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/views/bom.cshtml", append([]byte{0xEF, 0xBB, 0xBF}, "<p>hi</p>"...), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/views/latin1.cshtml", []byte{'c', 'a', 'f', 0xE9}, 0o644))

	doc, err := position.ReadDocument(fs, "/views/bom.cshtml", "")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", doc.Content())
	assert.Equal(t, "/views/bom.cshtml", doc.Path())

	doc, err = position.ReadDocument(fs, "/views/latin1.cshtml", "iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "café", doc.Content())

	_, err = position.ReadDocument(fs, "/views/missing.cshtml", "")
	assert.Error(t, err)

	_, err = position.ReadDocument(fs, "/views/bom.cshtml", "not-an-encoding")
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	doc := position.NewDocument("", "abc")

	sum, err := doc.Checksum(position.ChecksumSHA1)
	require.NoError(t, err)
	assert.Len(t, sum, 20)

	sum, err = doc.Checksum(position.ChecksumSHA256)
	require.NoError(t, err)
	assert.Len(t, sum, 32)

	_, err = doc.Checksum("MD5")
	assert.Error(t, err)
}

func TestCursor(t *testing.T) {
	doc := position.NewDocument("", "hello world")
	c := doc.Cursor()

	assert.Equal(t, byte('h'), c.Peek(0))
	assert.True(t, c.HasPrefix("hello"))

	next := c.Advance(6)
	assert.Equal(t, 0, c.Index(), "advancing does not move the original")
	assert.Equal(t, 6, next.Index())
	assert.Equal(t, "hello ", c.Text(next))

	bounded := next.Bounded(8)
	assert.Equal(t, "wo", bounded.Rest())
	assert.Equal(t, byte(0), bounded.Peek(2))
	assert.True(t, bounded.Advance(10).EOF())
	assert.Equal(t, 8, bounded.Advance(10).Index())
}
