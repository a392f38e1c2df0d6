package diagnostic_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
)

func spanAt(doc *position.Document, start, length int) position.Span {
	loc, err := doc.Location(start)
	if err != nil {
		panic(err)
	}
	return position.NewSpan(loc, length)
}

func TestDescriptorNew(t *testing.T) {
	doc := position.NewDocument("Views/Index.cshtml", "<p>\n@if (true) {")
	d := diagnostic.ExpectedEndOfBlockBeforeEOF.New(spanAt(doc, 15, 1), "if", "}", "}", "{")

	assert.Equal(t, "RZ1006", d.ID)
	assert.Equal(t, diagnostic.Error, d.Severity)
	assert.Contains(t, d.Message, `The if block is missing a closing "}" character`)
	assert.Equal(t, `Views/Index.cshtml(2,12): error RZ1006: `+d.Message, d.String())
}

func TestSortAndCount(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "0123456789")
	list := []diagnostic.Diagnostic{
		diagnostic.UnrecognizedCharacter.New(spanAt(doc, 5, 1), '#'),
		diagnostic.TagHelperLookupMatchedNothing.New(spanAt(doc, 1, 1), "*, Nope"),
		diagnostic.UnterminatedStringLiteral.New(spanAt(doc, 1, 1)),
	}

	diagnostic.Sort(list)
	assert.Equal(t, []string{"RZ1000", "RZ3013", "RZ1004"}, []string{list[0].ID, list[1].ID, list[2].ID})

	errs, warns := diagnostic.Count(list)
	assert.Equal(t, 2, errs)
	assert.Equal(t, 1, warns)
	assert.True(t, diagnostic.HasErrors(list))
	assert.False(t, diagnostic.HasErrors(list[1:2]))
}

func TestMerge(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "0123456789")
	a := diagnostic.UnrecognizedCharacter.New(spanAt(doc, 5, 1), '#')
	b := diagnostic.UnterminatedStringLiteral.New(spanAt(doc, 1, 1))

	got := diagnostic.Merge([]diagnostic.Diagnostic{a, b}, nil, []diagnostic.Diagnostic{a})
	assert.Equal(t, []diagnostic.Diagnostic{b, a}, got)
	assert.Empty(t, diagnostic.Merge())
}

func TestVSCodeFormatter(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "ab\ncd")
	list := []diagnostic.Diagnostic{
		diagnostic.UnrecognizedCharacter.New(spanAt(doc, 3, 2), 'c'),
		diagnostic.TagHelperLookupMatchedNothing.New(spanAt(doc, 0, 1), "x"),
	}

	out, err := diagnostic.NewVSCodeFormatter().Format(doc, list)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	require.Len(t, got, 2)
	assert.EqualValues(t, 1, got[0]["severity"])
	assert.EqualValues(t, 2, got[1]["severity"])
	assert.Equal(t, "RZ1004", got[0]["code"])

	rng := got[0]["range"].(map[string]any)
	assert.EqualValues(t, map[string]any{"line": 1.0, "character": 0.0}, rng["start"])
	assert.EqualValues(t, map[string]any{"line": 1.0, "character": 2.0}, rng["end"])
}

func TestTextFormatterCaret(t *testing.T) {
	doc := position.NewDocument("a.cshtml", "<p>héllo @(</p>")
	d := diagnostic.ExpectedCloseBracketBeforeEOF.New(spanAt(doc, 11, 1), "(", ")")

	out, err := diagnostic.NewTextFormatter(false).Format(doc, []diagnostic.Diagnostic{d})
	require.NoError(t, err)

	assert.Equal(t,
		"a.cshtml(1,12): error RZ1007: An opening \"(\" is missing the corresponding closing \")\".\n"+
			"    <p>héllo @(</p>\n"+
			"              ^\n",
		string(out))
}
