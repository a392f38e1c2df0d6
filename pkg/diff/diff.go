// Package diff renders readable differences between expected and actual
// values for test failures.
package diff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

// exportedOnly skips every unexported struct field.
var exportedOnly = cmp.FilterPath(func(p cmp.Path) bool {
	sf, ok := p.Last().(cmp.StructField)
	if !ok {
		return false
	}
	r, _ := utf8.DecodeRuneInString(sf.Name())
	return !unicode.IsUpper(r)
}, cmp.Ignore())

// DiffExportedOnly compares the exported fields of want and got. It returns
// an empty string when they match.
func DiffExportedOnly[T any](want T, got T, opts ...cmp.Option) string {
	abc := cmp.Diff(got, want, append([]cmp.Option{exportedOnly}, opts...)...)
	if abc == "" {
		return ""
	}
	str := "\n\n"
	str += "to convert ACTUAL ⏩️ EXPECTED:\n\n"
	str += "add:    ➕\n"
	str += "remove: ➖\n"
	str += "\n"
	str += strings.TrimPrefix(strings.ReplaceAll(strings.ReplaceAll("\n"+abc, "\n-", "\n➖"), "\n+", "\n➕"), "\n")

	return str
}
