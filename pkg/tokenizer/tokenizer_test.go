package tokenizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/diff"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

type tok struct {
	Kind    tokenizer.Kind
	Content string
}

func collect(t *testing.T, tz tokenizer.Tokenizer) ([]tok, []tokenizer.Token) {
	t.Helper()
	var simple []tok
	var full []tokenizer.Token
	for tk := range tokenizer.All(tz) {
		full = append(full, tk)
		if tk.Kind == tokenizer.EOF {
			break
		}
		simple = append(simple, tok{tk.Kind, tk.Content})
	}
	require.NotEmpty(t, full)
	require.Equal(t, tokenizer.EOF, full[len(full)-1].Kind, "stream must end with EOF")
	return simple, full
}

func TestMarkupTokenizer(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []tok
	}{
		{
			name: "element with attribute",
			src:  `<p class="a">hi</p>`,
			want: []tok{
				{tokenizer.OpenAngle, "<"}, {tokenizer.Text, "p"}, {tokenizer.Whitespace, " "},
				{tokenizer.Text, "class"}, {tokenizer.Equals, "="}, {tokenizer.DoubleQuote, `"`},
				{tokenizer.Text, "a"}, {tokenizer.DoubleQuote, `"`}, {tokenizer.CloseAngle, ">"},
				{tokenizer.Text, "hi"}, {tokenizer.OpenAngle, "<"}, {tokenizer.ForwardSlash, "/"},
				{tokenizer.Text, "p"}, {tokenizer.CloseAngle, ">"},
			},
		},
		{
			name: "transition and newline",
			src:  "a@b\r\nc",
			want: []tok{
				{tokenizer.Text, "a"}, {tokenizer.Transition, "@"}, {tokenizer.Text, "b"},
				{tokenizer.NewLine, "\r\n"}, {tokenizer.Text, "c"},
			},
		},
		{
			name: "html comment",
			src:  "<!-- x-y -->",
			want: []tok{
				{tokenizer.OpenAngle, "<"}, {tokenizer.Bang, "!"}, {tokenizer.DoubleHyphen, "--"},
				{tokenizer.Whitespace, " "}, {tokenizer.Text, "x-y"}, {tokenizer.Whitespace, " "},
				{tokenizer.DoubleHyphen, "--"}, {tokenizer.CloseAngle, ">"},
			},
		},
		{
			name: "razor comment",
			src:  "a@* note *@b",
			want: []tok{
				{tokenizer.Text, "a"}, {tokenizer.RazorCommentTransition, "@"}, {tokenizer.RazorCommentStar, "*"},
				{tokenizer.RazorCommentLiteral, " note "}, {tokenizer.RazorCommentStar, "*"},
				{tokenizer.RazorCommentTransition, "@"}, {tokenizer.Text, "b"},
			},
		},
		{
			name: "empty",
			src:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := position.NewDocument("", tt.src)
			got, _ := collect(t, tokenizer.NewMarkup(doc.Cursor()))
			if d := diff.DiffExportedOnly(tt.want, got); d != "" {
				t.Error(d)
			}
		})
	}
}

func TestCodeTokenizer(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []tok
	}{
		{
			name: "if statement",
			src:  "if (x.Count > 0) { }",
			want: []tok{
				{tokenizer.Keyword, "if"}, {tokenizer.Whitespace, " "}, {tokenizer.LeftParen, "("},
				{tokenizer.Identifier, "x"}, {tokenizer.Dot, "."}, {tokenizer.Identifier, "Count"},
				{tokenizer.Whitespace, " "}, {tokenizer.GreaterThan, ">"}, {tokenizer.Whitespace, " "},
				{tokenizer.IntegerLiteral, "0"}, {tokenizer.RightParen, ")"}, {tokenizer.Whitespace, " "},
				{tokenizer.LeftBrace, "{"}, {tokenizer.Whitespace, " "}, {tokenizer.RightBrace, "}"},
			},
		},
		{
			name: "numbers",
			src:  "1_000 0xFFu 3.14f 1e10 .5 10UL 2.ToString",
			want: []tok{
				{tokenizer.IntegerLiteral, "1_000"}, {tokenizer.Whitespace, " "},
				{tokenizer.IntegerLiteral, "0xFFu"}, {tokenizer.Whitespace, " "},
				{tokenizer.RealLiteral, "3.14f"}, {tokenizer.Whitespace, " "},
				{tokenizer.RealLiteral, "1e10"}, {tokenizer.Whitespace, " "},
				{tokenizer.RealLiteral, ".5"}, {tokenizer.Whitespace, " "},
				{tokenizer.IntegerLiteral, "10UL"}, {tokenizer.Whitespace, " "},
				{tokenizer.IntegerLiteral, "2"}, {tokenizer.Dot, "."}, {tokenizer.Identifier, "ToString"},
			},
		},
		{
			name: "strings",
			src:  `"a\"b" @"c""d" 'x' $"{a + "}"}"`,
			want: []tok{
				{tokenizer.StringLiteral, `"a\"b"`}, {tokenizer.Whitespace, " "},
				{tokenizer.StringLiteral, `@"c""d"`}, {tokenizer.Whitespace, " "},
				{tokenizer.CharacterLiteral, `'x'`}, {tokenizer.Whitespace, " "},
				{tokenizer.StringLiteral, `$"{a + "}"}"`},
			},
		},
		{
			name: "operators and generics",
			src:  "a?.b ?? List<int>=>x!=y",
			want: []tok{
				{tokenizer.Identifier, "a"}, {tokenizer.QuestionMark, "?"}, {tokenizer.Dot, "."},
				{tokenizer.Identifier, "b"}, {tokenizer.Whitespace, " "}, {tokenizer.Operator, "??"},
				{tokenizer.Whitespace, " "}, {tokenizer.Identifier, "List"}, {tokenizer.LessThan, "<"},
				{tokenizer.Keyword, "int"}, {tokenizer.GreaterThan, ">"}, {tokenizer.Arrow, "=>"},
				{tokenizer.Identifier, "x"}, {tokenizer.Operator, "!="}, {tokenizer.Identifier, "y"},
			},
		},
		{
			name: "comments and transition",
			src:  "// line\n/* block */@:",
			want: []tok{
				{tokenizer.Comment, "// line"}, {tokenizer.NewLine, "\n"}, {tokenizer.Comment, "/* block */"},
				{tokenizer.Transition, "@"}, {tokenizer.Colon, ":"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := position.NewDocument("", tt.src)
			got, full := collect(t, tokenizer.NewCode(doc.Cursor(), tokenizer.DefaultKeywords))
			if d := diff.DiffExportedOnly(tt.want, got); d != "" {
				t.Error(d)
			}
			for _, tk := range full {
				assert.Empty(t, tk.Diagnostics, "token %s", tk)
			}
		})
	}
}

func TestCodeTokenizerDiagnostics(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantID   string
		wantKind tokenizer.Kind
	}{
		{name: "unterminated string", src: "\"abc\nx", wantID: "RZ1000", wantKind: tokenizer.StringLiteral},
		{name: "unterminated char", src: "'a", wantID: "RZ1001", wantKind: tokenizer.CharacterLiteral},
		{name: "unterminated block comment", src: "/* abc", wantID: "RZ1002", wantKind: tokenizer.Comment},
		{name: "unterminated razor comment", src: "@* abc", wantID: "RZ1003", wantKind: tokenizer.RazorCommentLiteral},
		{name: "unknown character", src: "#", wantID: "RZ1004", wantKind: tokenizer.Unknown},
		{name: "unterminated verbatim", src: "@\"abc\n", wantID: "RZ1000", wantKind: tokenizer.StringLiteral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := position.NewDocument("", tt.src)
			_, full := collect(t, tokenizer.NewCode(doc.Cursor(), tokenizer.DefaultKeywords))

			var found bool
			for _, tk := range full {
				for _, d := range tk.Diagnostics {
					if d.ID == tt.wantID {
						found = true
						assert.Equal(t, tt.wantKind, tk.Kind)
					}
				}
			}
			assert.True(t, found, "expected diagnostic %s", tt.wantID)
		})
	}
}

func TestKeywordSets(t *testing.T) {
	doc := position.NewDocument("", "await x")

	got, _ := collect(t, tokenizer.NewCode(doc.Cursor(), tokenizer.DefaultKeywords))
	assert.Equal(t, tokenizer.Keyword, got[0].Kind)

	got, _ = collect(t, tokenizer.NewCode(doc.Cursor(), tokenizer.LegacyKeywords))
	assert.Equal(t, tokenizer.Identifier, got[0].Kind)

	custom := tokenizer.LegacyKeywords.With("x")
	got, _ = collect(t, tokenizer.NewCode(doc.Cursor(), custom))
	assert.Equal(t, tokenizer.Keyword, got[2].Kind)
	assert.False(t, tokenizer.DefaultKeywords.Contains("If"), "lookup is case sensitive")
}

func TestTokensPartitionInput(t *testing.T) {
	inputs := []string{
		"<div class=\"@x\">@foo.Bar(1, \"2\")</div>",
		"@{ var x = 1; } <!-- c --> @* r *@",
		"\"unterminated\n'x\n/* open",
		"héllo wörld @ünïcode ☃",
	}

	for _, src := range inputs {
		doc := position.NewDocument("", src)
		for name, tz := range map[string]tokenizer.Tokenizer{
			"markup": tokenizer.NewMarkup(doc.Cursor()),
			"code":   tokenizer.NewCode(doc.Cursor(), tokenizer.DefaultKeywords),
		} {
			t.Run(name, func(t *testing.T) {
				var b strings.Builder
				next := 0
				for tk := range tokenizer.All(tz) {
					assert.Equal(t, next, tk.Span.AbsoluteIndex, "token %s", tk)
					assert.Equal(t, len(tk.Content), tk.Span.Length)
					next = tk.Span.End()
					b.WriteString(tk.Content)
				}
				assert.Equal(t, src, b.String())
			})
		}
	}
}

func TestRestartFromCursor(t *testing.T) {
	doc := position.NewDocument("", "<b>@name</b>")
	markup := tokenizer.NewMarkup(doc.Cursor())

	for tk := markup.Next(); tk.Kind != tokenizer.Transition; tk = markup.Next() {
	}
	code := tokenizer.NewCode(markup.Cursor(), tokenizer.DefaultKeywords)
	ident := code.Next()
	assert.Equal(t, tokenizer.Identifier, ident.Kind)
	assert.Equal(t, "name", ident.Content)
	assert.Equal(t, 4, ident.Span.AbsoluteIndex)

	back := tokenizer.NewMarkup(code.Cursor())
	assert.Equal(t, tokenizer.OpenAngle, back.Next().Kind)

	bounded := tokenizer.NewMarkup(doc.Cursor().Bounded(3))
	got, _ := collect(t, bounded)
	assert.Len(t, got, 3)
}
