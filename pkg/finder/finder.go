package finder

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// TemplateFinder locates the templates below a directory.
type TemplateFinder interface {
	FindTemplates(ctx context.Context, dir string) ([]string, error)
}

var (
	DefaultInclude = []string{"**/*.cshtml"}
	// DefaultExclude skips import documents, which compile only as part of
	// the templates they apply to, and build output directories.
	DefaultExclude = []string{"**/_ViewImports.cshtml", "**/bin/**", "**/obj/**"}
)

// Finder matches slash-separated paths relative to the searched directory
// against doublestar patterns.
type Finder struct {
	fs      afero.Fs
	include []string
	exclude []string
}

var _ TemplateFinder = (*Finder)(nil)

type Option func(*Finder)

func WithInclude(patterns ...string) Option {
	return func(f *Finder) { f.include = patterns }
}

func WithExclude(patterns ...string) Option {
	return func(f *Finder) { f.exclude = patterns }
}

func New(fs afero.Fs, opts ...Option) (*Finder, error) {
	f := &Finder{fs: fs, include: DefaultInclude, exclude: DefaultExclude}
	for _, opt := range opts {
		opt(f)
	}
	for _, p := range slices.Concat(f.include, f.exclude) {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid pattern %q", p)
		}
	}
	return f, nil
}

// FindTemplates returns the matching files below dir, sorted.
func (me *Finder) FindTemplates(ctx context.Context, dir string) ([]string, error) {
	var out []string
	err := afero.Walk(me.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matchAny(me.include, rel) && !matchAny(me.exclude, rel) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("finding templates in %s: %w", dir, err)
	}
	slices.Sort(out)
	return out, nil
}

// Match reports whether a single path would be selected.
func (me *Finder) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	return matchAny(me.include, rel) && !matchAny(me.exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
