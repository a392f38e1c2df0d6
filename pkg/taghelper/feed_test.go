package taghelper_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/diff"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/taghelper"
)

func TestDescriptorFeedRoundTrip(t *testing.T) {
	full := &taghelper.Descriptor{
		TypeName:     "Shop.InputTagHelper",
		AssemblyName: "Shop",
		DisplayName:  "InputTagHelper",
		TagMatchingRules: []taghelper.TagMatchingRule{
			{
				TagName:      "input",
				ParentTag:    "form",
				TagStructure: taghelper.WithoutEndTag,
				Attributes: []taghelper.RequiredAttribute{
					{Name: "asp-for"},
					{Name: "type", Value: "text", ValueComparison: taghelper.ValueFullMatch},
					{Name: "data-", NameComparison: taghelper.PrefixMatch},
				},
			},
		},
		BoundAttributes: []taghelper.BoundAttribute{
			{Name: "asp-for", TypeName: "ModelExpression", PropertyName: "For", Documentation: "bound model"},
			{TypeName: "System.Collections.Generic.IDictionary<string, string>", PropertyName: "RouteValues", IndexerNamePrefix: "asp-route-", IndexerTypeName: "string"},
			{Name: "kind", TypeName: "InputKind", PropertyName: "Kind", IsEnum: true},
		},
		AllowedChildTags: []string{},
		TagOutputHint:    "input",
		Documentation:    "renders an input",
		Metadata:         map[string]string{"Common.TypeName": "Shop.InputTagHelper"},
		Diagnostics: []diagnostic.Diagnostic{
			diagnostic.TagHelperDescriptorProblem.New(position.UndefinedSpan, "InputTagHelper", "problem"),
			{
				ID:       "RZ3999",
				Severity: diagnostic.Warning,
				Span:     position.NewSpan(position.Location{FilePath: "a.cshtml", AbsoluteIndex: 4, LineIndex: 1, CharacterIndex: 2}, 3),
				Message:  "custom",
			},
		},
	}
	minimal := &taghelper.Descriptor{
		TypeName:         "Shop.AnyTagHelper",
		AssemblyName:     "Shop",
		TagMatchingRules: []taghelper.TagMatchingRule{{TagName: taghelper.ElementCatchAll}},
	}
	want := []*taghelper.Descriptor{full, minimal}

	var first bytes.Buffer
	require.NoError(t, taghelper.WriteDescriptors(&first, want))

	got, err := taghelper.ReadDescriptors(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)
	if d := diff.DiffExportedOnly(want, got); d != "" {
		t.Fatal(d)
	}
	assert.NotNil(t, got[0].AllowedChildTags, "an empty child list forbids children")
	assert.False(t, got[0].AllowsChild("span"))
	assert.Nil(t, got[1].AllowedChildTags)
	assert.True(t, got[1].AllowsChild("span"))

	var second bytes.Buffer
	require.NoError(t, taghelper.WriteDescriptors(&second, got))
	assert.Equal(t, first.String(), second.String())
}

func TestReadDescriptorsErrors(t *testing.T) {
	tests := []struct {
		name string
		feed string
	}{
		{name: "not an array", feed: `{"TypeName": "A"}`},
		{name: "unknown field", feed: `[{"TypeName": "A", "Bogus": 1}]`},
		{name: "missing type name", feed: `[{"AssemblyName": "A"}]`},
		{name: "truncated", feed: `[{"TypeName": "A"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := taghelper.ReadDescriptors(strings.NewReader(tt.feed))
			require.Error(t, err)
		})
	}
}

func TestLoadDescriptors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "obj/taghelpers.json", []byte(`[
  {"TypeName": "A.B", "AssemblyName": "A", "TagMatchingRules": [{"TagName": "b", "TagStructure": 0}], "AllowedChildTags": null}
]`), 0o644))

	ds, err := taghelper.LoadDescriptors(fs, "obj/taghelpers.json")
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "A.B", ds[0].TypeName)
	assert.Equal(t, "b", ds[0].TagMatchingRules[0].TagName)

	_, err = taghelper.LoadDescriptors(fs, "obj/missing.json")
	require.Error(t, err)
}
