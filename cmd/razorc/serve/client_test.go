package serve_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/cmd/razorc/serve"
)

func TestExpandResponseFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	write := func(name, content string) {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	write("/work/build.rsp", "# generated\n--out gen\n\n@nested/more.rsp Views\n")
	write("/work/nested/more.rsp", "--design-time  --parallel 2\n")
	write("/work/loop.rsp", "@loop.rsp\n")
	write("/abs.rsp", "Pages\n")

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr bool
	}{
		{
			name: "no response files",
			args: []string{"--out", "x", "Views"},
			want: []string{"--out", "x", "Views"},
		},
		{
			name: "nested relative to the including file",
			args: []string{"@build.rsp", "--no-color"},
			want: []string{"--out", "gen", "--design-time", "--parallel", "2", "Views", "--no-color"},
		},
		{
			name: "absolute path",
			args: []string{"@/abs.rsp"},
			want: []string{"Pages"},
		},
		{
			name: "lone at sign is an argument",
			args: []string{"@"},
			want: []string{"@"},
		},
		{
			name:    "cycle",
			args:    []string{"@loop.rsp"},
			wantErr: true,
		},
		{
			name:    "missing file",
			args:    []string{"@missing.rsp"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := serve.ExpandResponseFiles(fs, "/work", tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandResponseFilesTwiceIsNotACycle(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/w/a.rsp", []byte("x"), 0o644))

	got, err := serve.ExpandResponseFiles(fs, "/w", []string{"@a.rsp", "@a.rsp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "x"}, got)
}
