package semtok_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/engine"
	"github.com/walteh/gorazor/pkg/parser"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/semtok"
	"github.com/walteh/gorazor/pkg/taghelper"
)

func describe(tokens []semtok.Token) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		s := fmt.Sprintf("%s %q", t.Type, t.Text)
		if t.Modifier != semtok.ModifierNone {
			s += " " + t.Modifier.String()
		}
		out = append(out, s)
	}
	return out
}

func classify(t *testing.T, content string) []semtok.Token {
	t.Helper()
	tree := parser.Parse(context.Background(), position.NewDocument("a.cshtml", content), parser.Options{})
	return semtok.Tokens(context.Background(), tree)
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "directive",
			content: "@inject IClock Clock\n",
			want: []string{
				`razorTransition "@"`,
				`razorDirective "inject"`,
				`type "IClock"`,
				`variable "Clock" declaration`,
			},
		},
		{
			name:    "element with attribute",
			content: `<p class="a">hi</p>`,
			want: []string{
				`markupElement "p"`,
				`markupAttribute "class"`,
				`operator "="`,
				`string "a"`,
			},
		},
		{
			name:    "implicit expression",
			content: "<b>@Model.Name</b>",
			want: []string{
				`razorTransition "@"`,
				`variable "Model"`,
				`operator "."`,
				`variable "Name"`,
			},
		},
		{
			name:    "code block",
			content: "@{ int x = 42; }",
			want: []string{
				`keyword "int"`,
				`variable "x"`,
				`number "42"`,
			},
		},
		{
			name:    "html comment",
			content: "<!-- note -->",
			want:    []string{`comment "note"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describe(classify(t, tt.content))
			assert.Subset(t, got, tt.want)
		})
	}
}

func TestPlainTextIsNotClassified(t *testing.T) {
	assert.Empty(t, classify(t, "hello world"))
}

func TestMultiLineTokensAreSplit(t *testing.T) {
	tokens := classify(t, "@* one\ntwo *@")

	var comments []semtok.Token
	for _, tok := range tokens {
		if tok.Type == semtok.TokenComment {
			comments = append(comments, tok)
		}
	}
	require.NotEmpty(t, comments)
	for _, c := range comments {
		assert.NotContains(t, c.Text, "\n")
	}

	var lines []int
	for _, c := range comments {
		if c.Text == "two " {
			assert.Equal(t, position.Range{
				Start: position.Place{Line: 1, Character: 0},
				End:   position.Place{Line: 1, Character: 4},
			}, c.Range())
		}
		lines = append(lines, c.Span.LineIndex)
	}
	assert.Contains(t, lines, 0)
	assert.Contains(t, lines, 1)
}

func TestTagHelperModifier(t *testing.T) {
	desc := &taghelper.Descriptor{
		TypeName:         "Shop.WidgetTagHelper",
		AssemblyName:     "Shop",
		TagMatchingRules: []taghelper.TagMatchingRule{{TagName: "my-widget"}},
		BoundAttributes:  []taghelper.BoundAttribute{{Name: "count", TypeName: "int", PropertyName: "Count"}},
	}
	doc := position.NewDocument("a.cshtml", "@addTagHelper *, Shop\n<my-widget count=\"1\" />")
	res := engine.New(engine.WithTagHelpers(desc)).Parse(context.Background(), doc)
	require.NotNil(t, res.Binder)

	got := describe(semtok.Tokens(context.Background(), res.Syntax))
	assert.Subset(t, got, []string{
		`markupElement "my-widget" razorTagHelper`,
		`markupAttribute "count" razorTagHelper`,
		`number "1"`,
	})
}

func TestTokensInRange(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "<p>@a</p>\n<i>@b</i>")
	tree := parser.Parse(context.Background(), doc, parser.Options{})

	loc, err := doc.Location(10)
	require.NoError(t, err)
	got := describe(semtok.TokensInRange(context.Background(), tree, position.NewSpan(loc, doc.Len()-10)))
	assert.Contains(t, got, `variable "b"`)
	assert.NotContains(t, got, `variable "a"`)
}

func TestEncode(t *testing.T) {
	at := func(line, char, abs, length int) position.Span {
		return position.NewSpan(position.Location{AbsoluteIndex: abs, LineIndex: line, CharacterIndex: char}, length)
	}
	tokens := []semtok.Token{
		{Type: semtok.TokenTransition, Span: at(0, 2, 2, 1)},
		{Type: semtok.TokenVariable, Span: at(0, 3, 3, 5)},
		{Type: semtok.TokenKeyword, Modifier: semtok.ModifierDeclaration, Span: at(2, 4, 20, 2)},
	}
	assert.Equal(t, []uint32{
		0, 2, 1, uint32(semtok.TokenTransition), 0,
		0, 1, 5, uint32(semtok.TokenVariable), 0,
		2, 4, 2, uint32(semtok.TokenKeyword), uint32(semtok.ModifierDeclaration),
	}, semtok.Encode(tokens))
}

func TestLegend(t *testing.T) {
	types, mods := semtok.Legend()
	assert.Equal(t, "razorTransition", types[semtok.TokenTransition])
	assert.Equal(t, "operator", types[semtok.TokenOperator])
	assert.Equal(t, []string{"declaration", "razorTagHelper"}, mods)
	assert.Equal(t, "declaration,razorTagHelper", (semtok.ModifierDeclaration | semtok.ModifierTagHelper).String())
}
