package targz_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/targz"
)

func archive(t *testing.T, files ...targz.File) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, targz.Write(&buf, files))
	return buf.Bytes()
}

func TestWriteLoad(t *testing.T) {
	data := archive(t,
		targz.File{Name: "site/Views/Index.cshtml", Data: []byte("<p>@Model</p>")},
		targz.File{Name: "site/_ViewImports.cshtml", Data: []byte("@using Shop\n"), Mode: 0o600},
	)

	fs, err := targz.Load(data, targz.LoadOptions{})
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, "site/Views/Index.cshtml")
	require.NoError(t, err)
	assert.Equal(t, "<p>@Model</p>", string(got))

	info, err := fs.Stat("site/_ViewImports.cshtml")
	require.NoError(t, err)
	assert.Equal(t, "-rw-------", info.Mode().Perm().String())
}

func TestWriteIsDeterministic(t *testing.T) {
	files := []targz.File{{Name: "a.cshtml.g.cs", Data: []byte("class A {}")}}
	assert.Equal(t, archive(t, files...), archive(t, files...))
}

func TestLoadOptions(t *testing.T) {
	data := archive(t,
		targz.File{Name: "root/Views/Index.cshtml", Data: []byte("a")},
		targz.File{Name: "root/Views/notes.txt", Data: []byte("b")},
		targz.File{Name: "top.cshtml", Data: []byte("c")},
	)

	fs, err := targz.Load(data, targz.LoadOptions{
		StripComponents: 1,
		Filter:          func(name string) bool { return strings.HasSuffix(name, ".cshtml") },
	})
	require.NoError(t, err)

	ok, err := afero.Exists(fs, "Views/Index.cshtml")
	require.NoError(t, err)
	assert.True(t, ok)
	for _, name := range []string{"Views/notes.txt", "top.cshtml"} {
		ok, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.False(t, ok, name)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := targz.Load([]byte("not gzip"), targz.LoadOptions{})
	assert.Error(t, err)

	_, err = targz.Load(archive(t,
		targz.File{Name: "a.cshtml", Data: []byte("1")},
		targz.File{Name: "./a.cshtml", Data: []byte("2")},
	), targz.LoadOptions{})
	assert.ErrorContains(t, err, "duplicate")

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../evil.cshtml", Mode: 0o644, Size: 1, Typeflag: tar.TypeReg}))
	_, err = tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	_, err = targz.Load(buf.Bytes(), targz.LoadOptions{})
	assert.ErrorContains(t, err, "escapes")
}
