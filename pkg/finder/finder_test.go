package finder_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/finder"
)

func testFs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	for _, name := range []string{
		"site/Index.cshtml",
		"site/_ViewImports.cshtml",
		"site/Views/Home/About.cshtml",
		"site/Views/Home/About.cshtml.g.cs",
		"site/Pages/Partial.cshtml",
		"site/bin/Old.cshtml",
		"site/notes.txt",
	} {
		require.NoError(t, afero.WriteFile(fs, name, []byte("<p></p>"), 0o644))
	}
	return fs
}

func TestFindTemplates(t *testing.T) {
	tests := []struct {
		name    string
		opts    []finder.Option
		want    []string
		wantErr bool
	}{
		{
			name: "defaults",
			want: []string{
				"site/Index.cshtml",
				"site/Pages/Partial.cshtml",
				"site/Views/Home/About.cshtml",
			},
		},
		{
			name: "include narrowed",
			opts: []finder.Option{finder.WithInclude("Views/**/*.cshtml")},
			want: []string{"site/Views/Home/About.cshtml"},
		},
		{
			name: "no excludes",
			opts: []finder.Option{finder.WithExclude()},
			want: []string{
				"site/Index.cshtml",
				"site/Pages/Partial.cshtml",
				"site/Views/Home/About.cshtml",
				"site/_ViewImports.cshtml",
				"site/bin/Old.cshtml",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := finder.New(testFs(t), tt.opts...)
			require.NoError(t, err)

			got, err := f.FindTemplates(context.Background(), "site")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindTemplatesErrors(t *testing.T) {
	_, err := finder.New(afero.NewMemMapFs(), finder.WithInclude("[a"))
	assert.Error(t, err)

	f, err := finder.New(testFs(t))
	require.NoError(t, err)

	_, err = f.FindTemplates(context.Background(), "missing")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.FindTemplates(ctx, "site")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatch(t *testing.T) {
	f, err := finder.New(afero.NewMemMapFs())
	require.NoError(t, err)
	assert.True(t, f.Match("Views/Index.cshtml"))
	assert.False(t, f.Match("Views/_ViewImports.cshtml"))
	assert.False(t, f.Match("obj/Debug/x.cshtml"))
}
