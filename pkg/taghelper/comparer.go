package taghelper

import (
	"hash/fnv"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Comparer defines descriptor equality. Runtime matching treats tag and
// attribute names case-insensitively and ignores the order of rules and
// attributes; tooling that round-trips descriptors wants everything exact.
type Comparer struct {
	CaseSensitive bool
	Ordered       bool
	// Diagnostics also compares embedded diagnostics and metadata.
	Diagnostics bool
}

var (
	DefaultComparer = Comparer{}
	StrictComparer  = Comparer{CaseSensitive: true, Ordered: true, Diagnostics: true}
)

func (me Comparer) name(s string) string {
	if me.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// keys renders each descriptor part as canonical strings so equality and
// hashing share one definition.
func (me Comparer) keys(d *Descriptor) []string {
	out := []string{"type:" + d.TypeName, "asm:" + d.AssemblyName, "hint:" + d.TagOutputHint}

	section := func(prefix string, items []string) {
		if !me.Ordered {
			items = slices.Clone(items)
			slices.Sort(items)
		}
		for _, it := range items {
			out = append(out, prefix+it)
		}
	}

	var rules []string
	for _, r := range d.TagMatchingRules {
		var attrs []string
		for _, a := range r.Attributes {
			attrs = append(attrs, strings.Join([]string{me.name(a.Name), strconv.Itoa(int(a.NameComparison)), a.Value, strconv.Itoa(int(a.ValueComparison))}, "\x1f"))
		}
		if !me.Ordered {
			slices.Sort(attrs)
		}
		rules = append(rules, strings.Join([]string{me.name(r.TagName), me.name(r.ParentTag), strconv.Itoa(int(r.TagStructure)), strings.Join(attrs, "\x1e")}, "\x1f"))
	}
	section("rule:", rules)

	var bound []string
	for _, b := range d.BoundAttributes {
		bound = append(bound, strings.Join([]string{me.name(b.Name), b.TypeName, b.PropertyName, me.name(b.IndexerNamePrefix), b.IndexerTypeName}, "\x1f"))
	}
	section("bound:", bound)

	if d.AllowedChildTags != nil {
		var children []string
		for _, c := range d.AllowedChildTags {
			children = append(children, me.name(c))
		}
		section("child:", children)
	}

	if me.Diagnostics {
		for _, k := range slices.Sorted(maps.Keys(d.Metadata)) {
			out = append(out, "meta:"+k+"="+d.Metadata[k])
		}
		for _, diag := range d.Diagnostics {
			out = append(out, "diag:"+diag.ID+":"+diag.Message)
		}
	}
	return out
}

func (me Comparer) Equal(a, b *Descriptor) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return slices.Equal(me.keys(a), me.keys(b))
}

func (me Comparer) Hash(d *Descriptor) uint64 {
	h := fnv.New64a()
	if d == nil {
		return h.Sum64()
	}
	for _, k := range me.keys(d) {
		_, _ = io.WriteString(h, k)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
