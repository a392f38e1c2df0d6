package position

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding/htmlindex"
)

var ErrOutOfRange = errors.Base("index out of range")

type ChecksumAlgorithm string

const (
	ChecksumSHA1   ChecksumAlgorithm = "SHA1"
	ChecksumSHA256 ChecksumAlgorithm = "SHA256"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is an immutable, line-indexed source buffer.
type Document struct {
	path     string
	encoding string
	content  string
	raw      []byte
	lines    []int
}

// NewDocument builds a document over in-memory UTF-8 content.
func NewDocument(path, content string) *Document {
	return newDocument(path, "utf-8", content, []byte(content))
}

// Decode builds a document from encoded bytes. An empty encoding means UTF-8;
// any other name is resolved through the WHATWG encoding index.
func Decode(path string, raw []byte, encoding string) (*Document, error) {
	name := strings.ToLower(strings.TrimSpace(encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return newDocument(path, "utf-8", string(bytes.TrimPrefix(raw, utf8BOM)), raw), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.Errorf("unknown encoding %q for %s: %w", encoding, path, err)
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, errors.Errorf("decoding %s as %s: %w", path, encoding, err)
	}

	return newDocument(path, name, string(bytes.TrimPrefix(decoded, utf8BOM)), raw), nil
}

// ReadDocument reads and decodes path from fs.
func ReadDocument(fs afero.Fs, path, encoding string) (*Document, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading source document %s: %w", path, err)
	}
	return Decode(path, raw, encoding)
}

func newDocument(path, encoding, content string, raw []byte) *Document {
	lines := []int{0}
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
			lines = append(lines, i+1)
		case '\n':
			lines = append(lines, i+1)
		}
	}
	return &Document{path: path, encoding: encoding, content: content, raw: raw, lines: lines}
}

func (me *Document) Path() string     { return me.path }
func (me *Document) Encoding() string { return me.encoding }
func (me *Document) Content() string  { return me.content }
func (me *Document) Len() int         { return len(me.content) }
func (me *Document) LineCount() int   { return len(me.lines) }

// At returns the byte at index.
func (me *Document) At(index int) (byte, error) {
	if index < 0 || index >= len(me.content) {
		return 0, errors.Errorf("reading %d of %d: %w", index, len(me.content), ErrOutOfRange)
	}
	return me.content[index], nil
}

// CopyTo fills dst with the content starting at index. The whole of dst must fit.
func (me *Document) CopyTo(index int, dst []byte) (int, error) {
	if index < 0 || index+len(dst) > len(me.content) {
		return 0, errors.Errorf("copying [%d,%d) of %d: %w", index, index+len(dst), len(me.content), ErrOutOfRange)
	}
	return copy(dst, me.content[index:]), nil
}

func (me *Document) Slice(span Span) (string, error) {
	if span.AbsoluteIndex < 0 || span.Length < 0 || span.End() > len(me.content) {
		return "", errors.Errorf("slicing %s of %d: %w", span, len(me.content), ErrOutOfRange)
	}
	return me.content[span.AbsoluteIndex:span.End()], nil
}

// Location resolves an absolute index; index == Len() is the end-of-file location.
func (me *Document) Location(index int) (Location, error) {
	if index < 0 || index > len(me.content) {
		return Undefined, errors.Errorf("locating %d of %d: %w", index, len(me.content), ErrOutOfRange)
	}
	line := sort.Search(len(me.lines), func(i int) bool { return me.lines[i] > index }) - 1
	return Location{
		FilePath:       me.path,
		AbsoluteIndex:  index,
		LineIndex:      line,
		CharacterIndex: index - me.lines[line],
	}, nil
}

// Line returns the text of line i without its terminator.
func (me *Document) Line(i int) string {
	if i < 0 || i >= len(me.lines) {
		return ""
	}
	end := len(me.content)
	if i+1 < len(me.lines) {
		end = me.lines[i+1]
	}
	return strings.TrimRight(me.content[me.lines[i]:end], "\r\n")
}

func (me *Document) Range(span Span) (Range, error) {
	start, err := me.Location(span.AbsoluteIndex)
	if err != nil {
		return Range{}, err
	}
	end, err := me.Location(span.End())
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start.Place(), End: end.Place()}, nil
}

// Checksum hashes the document's original bytes.
func (me *Document) Checksum(alg ChecksumAlgorithm) ([]byte, error) {
	switch alg {
	case ChecksumSHA1:
		sum := sha1.Sum(me.raw)
		return sum[:], nil
	case ChecksumSHA256:
		sum := sha256.Sum256(me.raw)
		return sum[:], nil
	}
	return nil, errors.Errorf("unsupported checksum algorithm %q", alg)
}
