package taghelper

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Lookup is parsed addTagHelper / removeTagHelper text: "TypePattern, Assembly".
type Lookup struct {
	TypePattern  string
	AssemblyName string
}

var ErrInvalidLookup = errors.Base("invalid tag helper look up text")

// ParseLookup accepts optional surrounding quotes, as older templates wrote
// the look up text as a string literal.
func ParseLookup(text string) (Lookup, error) {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	typePattern, assembly, ok := strings.Cut(text, ",")
	typePattern, assembly = strings.TrimSpace(typePattern), strings.TrimSpace(assembly)
	if !ok || typePattern == "" || assembly == "" {
		return Lookup{}, errors.Errorf("%q: %w", text, ErrInvalidLookup)
	}
	return Lookup{TypePattern: typePattern, AssemblyName: assembly}, nil
}

// Matches reports whether d is selected by the look up. The type pattern is
// "*", a "Namespace.*" wildcard, or an exact type name.
func (me Lookup) Matches(d *Descriptor) bool {
	if !strings.EqualFold(me.AssemblyName, d.AssemblyName) {
		return false
	}
	switch {
	case me.TypePattern == "*":
		return true
	case strings.HasSuffix(me.TypePattern, "*"):
		return strings.HasPrefix(d.TypeName, strings.TrimSuffix(me.TypePattern, "*"))
	}
	return d.TypeName == me.TypePattern
}

// ValidatePrefix returns the first character not allowed in a tagHelperPrefix.
func ValidatePrefix(prefix string) (rune, bool) {
	return invalidCharacter(prefix, false)
}
