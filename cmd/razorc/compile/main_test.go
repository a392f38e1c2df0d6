package compile_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/cmd/razorc/compile"
	"github.com/walteh/gorazor/pkg/server"
	"github.com/walteh/gorazor/pkg/targz"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := compile.NewCompileCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCompileToOutDir(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFiles(t, src, map[string]string{
		"_ViewImports.cshtml":     "@using Shop.Models\n",
		"Views/Home/Index.cshtml": "<p>@(1+2)</p>",
		"Views/Home/About.cshtml": "<h1>About</h1>",
	})

	stdout, stderr, err := run(t, "--out", out, src)
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "compiled 2 templates: 0 errors, 0 warnings")

	for _, name := range []string{"Views/Home/Index.cshtml.g.cs", "Views/Home/About.cshtml.g.cs"} {
		data, err := os.ReadFile(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data)
	}
	_, err = os.Stat(filepath.Join(out, "_ViewImports.cshtml.g.cs"))
	assert.True(t, os.IsNotExist(err))
}

func TestCompileReportsErrors(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"broken.cshtml": "@if (true) {"})

	stdout, stderr, err := run(t, "--no-color", src)
	require.ErrorIs(t, err, compile.ErrCompilationFailed)
	assert.Contains(t, stderr, "RZ1006")
	assert.Contains(t, stdout, "compiled 1 templates:")

	// output is still written next to the source
	_, err = os.Stat(filepath.Join(src, "broken.cshtml.g.cs"))
	require.NoError(t, err)
}

func TestCompileJSONDiagnostics(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"broken.cshtml": "@if (true) {"})

	stdout, _, err := run(t, "--format", "json", "--out", t.TempDir(), src)
	require.ErrorIs(t, err, compile.ErrCompilationFailed)
	assert.Contains(t, stdout, `"path":`)
	assert.Contains(t, stdout, "RZ1006")
}

func TestCompileArchiveRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{"Views/Index.cshtml": "<p>@Model.Name</p>"})
	archive := filepath.Join(t.TempDir(), "out.tar.gz")

	_, _, err := run(t, "--archive", archive, src)
	require.NoError(t, err)

	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	fs, err := targz.Load(data, targz.LoadOptions{})
	require.NoError(t, err)
	ok, err := afero.Exists(fs, "Views/Index.cshtml.g.cs")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = os.Stat(filepath.Join(src, "Views/Index.cshtml.g.cs"))
	assert.True(t, os.IsNotExist(err), "archive mode writes nothing next to sources")
}

func TestCompileFromArchive(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, targz.Write(&buf, []targz.File{
		{Name: "Views/Index.cshtml", Data: []byte("<p>hello</p>")},
	}))
	dir := t.TempDir()
	from := filepath.Join(dir, "in.tar.gz")
	require.NoError(t, os.WriteFile(from, buf.Bytes(), 0o644))
	out := filepath.Join(dir, "out")

	stdout, _, err := run(t, "--from", from, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "compiled 1 templates")

	_, err = os.Stat(filepath.Join(out, "Views/Index.cshtml.g.cs"))
	require.NoError(t, err)
}

func TestCompileRejectsFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown format", args: []string{"--format", "xml"}},
		{name: "from without destination", args: []string{"--from", "x.tar.gz"}},
		{name: "watch from archive", args: []string{"--watch", "--from", "x.tar.gz", "--out", "o"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
		})
	}
}

func TestServerHandler(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"Pages/a.cshtml": "<p>a</p>",
		"Pages/b.cshtml": "@if (true) {",
	})

	h := compile.NewServerHandler()

	resp := h.Compile(context.Background(), server.NewCompileRequest(src, []string{"--out", "gen", "Pages/a.cshtml"}))
	require.NotNil(t, resp)
	assert.Equal(t, int32(0), resp.ReturnCode)
	assert.True(t, resp.UTF8Output)
	assert.Contains(t, resp.Output, "compiled 1 templates")
	_, err := os.Stat(filepath.Join(src, "gen", "Pages", "a.cshtml.g.cs"))
	require.NoError(t, err, "relative paths resolve against the request directory")

	resp = h.Compile(context.Background(), server.NewCompileRequest(src, []string{"--out", "gen", "Pages"}))
	assert.Equal(t, int32(1), resp.ReturnCode)
	assert.Contains(t, resp.Output, "RZ1006")
	assert.Contains(t, resp.Output, "compilation failed")
}
