// Package targz reads template trees from and writes generated code to
// tar.gz archives.
package targz

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// File is one archive entry.
type File struct {
	Name string
	Data []byte
	// Mode defaults to 0644.
	Mode os.FileMode
}

// Write stores files in order. Entries carry no timestamps so equal input
// gives byte-identical archives.
func Write(w io.Writer, files []File) error {
	gzw := gzip.NewWriter(w)
	tw := tar.NewWriter(gzw)
	for _, f := range files {
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:     path.Clean(strings.TrimPrefix(f.Name, "/")),
			Mode:     int64(mode),
			Size:     int64(len(f.Data)),
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return errors.Errorf("writing header for %s: %w", f.Name, err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return errors.Errorf("writing %s: %w", f.Name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return errors.Errorf("closing tar: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return errors.Errorf("closing gzip: %w", err)
	}
	return nil
}

type LoadOptions struct {
	// StripComponents removes leading path components, like tar's
	// --strip-components.
	StripComponents int
	// Filter selects entries by their stripped name. Nil keeps everything.
	Filter func(name string) bool
}

// Load reads the regular files of a tar.gz archive into a memory file
// system. Entries that escape the archive root are rejected.
func Load(data []byte, opts LoadOptions) (afero.Fs, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Errorf("opening gzip: %w", err)
	}
	defer gzr.Close()

	fs := afero.NewMemMapFs()
	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("reading tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "/"))
		if name == ".." || strings.HasPrefix(name, "../") {
			return nil, errors.Errorf("entry %s escapes the archive", hdr.Name)
		}
		parts := strings.Split(name, "/")
		if len(parts) <= opts.StripComponents {
			continue
		}
		name = strings.Join(parts[opts.StripComponents:], "/")
		if opts.Filter != nil && !opts.Filter(name) {
			continue
		}

		if ok, _ := afero.Exists(fs, name); ok {
			return nil, errors.Errorf("duplicate entry %s", name)
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", hdr.Name, err)
		}
		if err := afero.WriteFile(fs, name, content, os.FileMode(hdr.Mode).Perm()); err != nil {
			return nil, errors.Errorf("storing %s: %w", name, err)
		}
	}
	return fs, nil
}
