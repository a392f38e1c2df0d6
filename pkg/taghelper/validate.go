package taghelper

import (
	"fmt"
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
)

const invalidNameCharacters = " \t\r\n!@/<?[>]=\"'*"

func invalidCharacter(name string, allowStar bool) (rune, bool) {
	for _, r := range name {
		if r == '*' && allowStar {
			continue
		}
		if strings.ContainsRune(invalidNameCharacters, r) {
			return r, true
		}
	}
	return 0, false
}

// Validate returns a copy of d whose Diagnostics list every structural
// problem found in it. Existing diagnostics are kept first.
func Validate(d *Descriptor) *Descriptor {
	out := *d
	out.Diagnostics = append([]diagnostic.Diagnostic(nil), d.Diagnostics...)

	report := func(format string, args ...any) {
		out.Diagnostics = append(out.Diagnostics,
			diagnostic.TagHelperDescriptorProblem.New(position.UndefinedSpan, d.Name(), fmt.Sprintf(format, args...)))
	}

	if len(d.TagMatchingRules) == 0 {
		report("at least one tag matching rule is required")
	}
	for _, r := range d.TagMatchingRules {
		switch {
		case strings.TrimSpace(r.TagName) == "":
			report("tag name cannot be empty")
		case r.TagName != ElementCatchAll:
			if c, bad := invalidCharacter(r.TagName, false); bad {
				report("tag name %q contains invalid character %q", r.TagName, c)
			}
		}
		if r.ParentTag != "" {
			if c, bad := invalidCharacter(r.ParentTag, false); bad {
				report("parent tag %q contains invalid character %q", r.ParentTag, c)
			}
		}
		for _, a := range r.Attributes {
			if strings.TrimSpace(a.Name) == "" {
				report("required attribute name cannot be empty")
				continue
			}
			if c, bad := invalidCharacter(a.Name, false); bad {
				report("required attribute %q contains invalid character %q", a.Name, c)
			}
		}
	}

	for _, b := range d.BoundAttributes {
		if b.Name != "" && strings.HasPrefix(strings.ToLower(b.Name), "data-") {
			report("bound attribute %q cannot start with \"data-\"", b.Name)
		}
		if b.IndexerNamePrefix != "" && strings.HasPrefix(strings.ToLower(b.IndexerNamePrefix), "data-") {
			report("indexer prefix %q cannot start with \"data-\"", b.IndexerNamePrefix)
		}
		if b.Name == "" && b.IndexerNamePrefix == "" {
			report("bound attribute for property %q needs a name or an indexer prefix", b.PropertyName)
		}
	}
	return &out
}
