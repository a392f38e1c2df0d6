package codegen

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Format controls the layout of generated code.
type Format struct {
	IndentSize int
	UseTabs    bool
	NewLine    string
}

var DefaultFormat = Format{IndentSize: 4, NewLine: "\n"}

func (me Format) normalized() Format {
	if me.IndentSize <= 0 {
		me.IndentSize = DefaultFormat.IndentSize
	}
	if me.NewLine == "" {
		me.NewLine = DefaultFormat.NewLine
	}
	return me
}

func (me Format) indent(depth int) string {
	if me.UseTabs {
		return strings.Repeat("\t", depth)
	}
	return strings.Repeat(" ", depth*me.IndentSize)
}

// FormatFromEditorConfig reads the .editorconfig file in dir and returns the
// format it sets for generated files named name. A missing file yields
// DefaultFormat.
func FormatFromEditorConfig(fs afero.Fs, dir, name string) (Format, error) {
	path := filepath.Join(dir, ".editorconfig")
	f, err := fs.Open(path)
	if err != nil {
		if exists, _ := afero.Exists(fs, path); !exists {
			return DefaultFormat, nil
		}
		return Format{}, errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	ec, err := editorconfig.Parse(f)
	if err != nil {
		return Format{}, errors.Errorf("parsing %s: %w", path, err)
	}
	def, err := ec.GetDefinitionForFilename(name)
	if err != nil {
		return Format{}, errors.Errorf("resolving %s for %s: %w", path, name, err)
	}

	out := DefaultFormat
	switch def.IndentStyle {
	case "tab":
		out.UseTabs = true
	case "space":
		out.UseTabs = false
	}
	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		out.IndentSize = n
	}
	switch def.EndOfLine {
	case "crlf":
		out.NewLine = "\r\n"
	case "cr":
		out.NewLine = "\r"
	case "lf":
		out.NewLine = "\n"
	}
	return out, nil
}
