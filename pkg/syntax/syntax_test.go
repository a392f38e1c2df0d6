package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

func span(doc *position.Document, kind syntax.SpanKind, start, end int) *syntax.Span {
	loc, err := doc.Location(start)
	if err != nil {
		panic(err)
	}
	content := doc.Content()[start:end]
	return &syntax.Span{
		Kind:      kind,
		Generator: syntax.MarkupGenerator{},
		Tokens:    []tokenizer.Token{{Kind: tokenizer.Text, Content: content, Span: position.NewSpan(loc, len(content))}},
		Start:     loc,
	}
}

func TestValidate(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "hello @name")

	good := &syntax.Tree{Source: doc, Root: &syntax.Block{Type: syntax.BlockMarkup, Children: []syntax.Node{
		span(doc, syntax.SpanMarkup, 0, 6),
		&syntax.Block{Type: syntax.BlockExpression, Children: []syntax.Node{
			span(doc, syntax.SpanTransition, 6, 7),
			span(doc, syntax.SpanCode, 7, 11),
		}},
	}}}
	require.NoError(t, good.Validate())

	gap := &syntax.Tree{Source: doc, Root: &syntax.Block{Type: syntax.BlockMarkup, Children: []syntax.Node{
		span(doc, syntax.SpanMarkup, 0, 6),
		span(doc, syntax.SpanCode, 7, 11),
	}}}
	err := gap.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, syntax.ErrPartition))

	short := &syntax.Tree{Source: doc, Root: &syntax.Block{Type: syntax.BlockMarkup, Children: []syntax.Node{
		span(doc, syntax.SpanMarkup, 0, 6),
	}}}
	assert.ErrorIs(t, short.Validate(), syntax.ErrPartition)
}

func TestWalkOrder(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "ab@c")
	root := &syntax.Block{Type: syntax.BlockMarkup, Children: []syntax.Node{
		span(doc, syntax.SpanMarkup, 0, 2),
		&syntax.Block{Type: syntax.BlockExpression, Children: []syntax.Node{
			span(doc, syntax.SpanTransition, 2, 3),
			span(doc, syntax.SpanCode, 3, 4),
		}},
	}}

	var got []string
	for n := range syntax.Walk(root) {
		switch n := n.(type) {
		case *syntax.Block:
			got = append(got, n.Type.String())
		case *syntax.Span:
			got = append(got, n.Content())
		}
	}
	assert.Equal(t, []string{"Markup", "ab", "Expression", "@", "c"}, got)

	var spans []string
	for s := range syntax.Spans(root) {
		spans = append(spans, s.Kind.String())
	}
	assert.Equal(t, []string{"Markup", "Transition", "Code"}, spans)
	assert.Equal(t, "ab@c", root.Content())
	assert.Equal(t, 4, root.Length())
}

func TestCanAcceptChange(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "@name")
	s := span(doc, syntax.SpanCode, 1, 5)

	tests := []struct {
		name     string
		accepted syntax.AcceptedCharacters
		start    int
		length   int
		text     string
		want     bool
	}{
		{name: "none", accepted: syntax.AcceptNone, start: 2, text: "x", want: false},
		{name: "identifier character", accepted: syntax.AcceptNonWhitespace, start: 5, text: "s", want: true},
		{name: "space into identifier", accepted: syntax.AcceptNonWhitespace, start: 3, text: " ", want: false},
		{name: "newline without acceptance", accepted: syntax.AcceptAnyExceptNewLine, start: 3, text: "\n", want: false},
		{name: "newline accepted", accepted: syntax.AcceptAny, start: 3, text: "a\nb", want: true},
		{name: "outside span", accepted: syntax.AcceptAny, start: 0, length: 2, text: "x", want: false},
		{name: "deletion", accepted: syntax.AcceptNonWhitespace, start: 2, length: 2, text: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := syntax.EditHandler{Accepted: tt.accepted}
			assert.Equal(t, tt.want, h.CanAcceptChange(s, tt.start, tt.length, tt.text))
		})
	}
}

func TestTagHelperBody(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "<x>hi</x>")
	start := &syntax.Block{Type: syntax.BlockTag, Children: []syntax.Node{span(doc, syntax.SpanMarkup, 0, 3)}}
	body := span(doc, syntax.SpanMarkup, 3, 5)
	end := &syntax.Block{Type: syntax.BlockTag, Children: []syntax.Node{span(doc, syntax.SpanMarkup, 5, 9)}}

	th := &syntax.Block{
		Type:      syntax.BlockTagHelper,
		Children:  []syntax.Node{start, body, end},
		TagHelper: &syntax.TagHelperInfo{TagName: "x", StartTag: start, EndTag: end},
	}
	assert.Equal(t, []syntax.Node{body}, th.Body())

	th.TagHelper.EndTag = nil
	assert.Equal(t, []syntax.Node{body, end}, th.Body())
}

func TestDump(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "a@b")
	root := &syntax.Block{Type: syntax.BlockMarkup, Children: []syntax.Node{
		span(doc, syntax.SpanMarkup, 0, 1),
		&syntax.Block{Type: syntax.BlockExpression, Generator: syntax.ExpressionGenerator{}, Children: []syntax.Node{
			&syntax.Span{Kind: syntax.SpanTransition, Tokens: span(doc, 0, 1, 2).Tokens, Start: span(doc, 0, 1, 2).Start},
			span(doc, syntax.SpanCode, 2, 3),
		}},
	}}

	want := `Markup block - [0..3)
  Markup span markup [0..1) "a"
  Expression block expr [1..3)
    Transition span - [1..2) "@"
    Code span markup [2..3) "b"
`
	assert.Equal(t, want, syntax.Dump(root))
}
