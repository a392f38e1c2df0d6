package taghelper

import (
	"cmp"
	"slices"
	"strings"
)

// Attribute is an attribute as written on an element.
type Attribute struct {
	Name  string
	Value string
}

// Binding is the outcome of matching one element against the known helpers.
type Binding struct {
	TagName              string
	TagNameWithoutPrefix string
	ParentTagName        string
	Prefix               string
	Attributes           []Attribute
	// Descriptors is sorted by type then assembly name so the result does not
	// depend on registration order.
	Descriptors []*Descriptor
	// Rules holds, per descriptor, the rules that matched.
	Rules map[*Descriptor][]TagMatchingRule
}

// IsAttributeMatch reports whether a descriptor matched only through a
// catch-all tag name, which the rewriter treats as attribute-driven.
func (me *Binding) IsAttributeMatch() bool {
	for _, rules := range me.Rules {
		for _, r := range rules {
			if r.TagName != ElementCatchAll {
				return false
			}
		}
	}
	return true
}

// TagStructure returns the first explicit structure requested by a matched rule.
func (me *Binding) TagStructure() TagStructure {
	for _, d := range me.Descriptors {
		for _, r := range me.Rules[d] {
			if r.TagStructure != TagStructureUnspecified {
				return r.TagStructure
			}
		}
	}
	return TagStructureUnspecified
}

// Bound resolves an attribute name against every matched descriptor, in
// descriptor order.
func (me *Binding) Bound(name string) []BoundMatch {
	var out []BoundMatch
	for _, d := range me.Descriptors {
		if m, ok := d.BoundAttributeFor(name); ok {
			out = append(out, BoundMatch{Descriptor: d, AttributeMatch: m})
		}
	}
	return out
}

type BoundMatch struct {
	Descriptor *Descriptor
	AttributeMatch
}

// Binder matches elements against a fixed descriptor set. It is immutable and
// safe for concurrent use.
type Binder struct {
	prefix      string
	descriptors []*Descriptor
	byTag       map[string][]*Descriptor
	catchAll    []*Descriptor
}

func NewBinder(prefix string, descriptors []*Descriptor) *Binder {
	b := &Binder{prefix: prefix, byTag: map[string][]*Descriptor{}}
	for _, d := range descriptors {
		if slices.ContainsFunc(b.descriptors, func(o *Descriptor) bool { return DefaultComparer.Equal(o, d) }) {
			continue
		}
		b.descriptors = append(b.descriptors, d)
		seen := map[string]bool{}
		for _, r := range d.TagMatchingRules {
			if r.TagName == ElementCatchAll {
				if !seen[ElementCatchAll] {
					b.catchAll = append(b.catchAll, d)
					seen[ElementCatchAll] = true
				}
				continue
			}
			key := strings.ToLower(prefix + r.TagName)
			if !seen[key] {
				b.byTag[key] = append(b.byTag[key], d)
				seen[key] = true
			}
		}
	}
	return b
}

func (me *Binder) Prefix() string { return me.prefix }

// Descriptors returns the de-duplicated descriptors in registration order.
func (me *Binder) Descriptors() []*Descriptor { return me.descriptors }

// HasPrefix reports whether tagName carries the binder's prefix. Without a
// prefix every tag qualifies.
func (me *Binder) HasPrefix(tagName string) bool {
	if me.prefix == "" {
		return true
	}
	return len(tagName) > len(me.prefix) && strings.EqualFold(tagName[:len(me.prefix)], me.prefix)
}

// Candidates lists descriptors that could match tagName by name alone, in
// registration order. The parser uses it to decide how to read attributes.
func (me *Binder) Candidates(tagName string) []*Descriptor {
	if !me.HasPrefix(tagName) {
		return nil
	}
	named := me.byTag[strings.ToLower(tagName)]
	if len(me.catchAll) == 0 {
		return named
	}
	var out []*Descriptor
	for _, d := range me.descriptors {
		if slices.Contains(named, d) || slices.Contains(me.catchAll, d) {
			out = append(out, d)
		}
	}
	return out
}

// Bind matches tagName with attrs under parentTag. It returns nil when no
// descriptor applies.
func (me *Binder) Bind(tagName string, attrs []Attribute, parentTag string) *Binding {
	if !me.HasPrefix(tagName) {
		return nil
	}
	bare := tagName[len(me.prefix):]
	parentBare := parentTag
	if parentTag != "" && me.HasPrefix(parentTag) {
		parentBare = parentTag[len(me.prefix):]
	}

	binding := &Binding{
		TagName:              tagName,
		TagNameWithoutPrefix: bare,
		ParentTagName:        parentTag,
		Prefix:               me.prefix,
		Attributes:           attrs,
		Rules:                map[*Descriptor][]TagMatchingRule{},
	}

	for _, d := range me.Candidates(tagName) {
		for _, r := range d.TagMatchingRules {
			if ruleMatches(r, bare, parentBare, attrs) {
				binding.Rules[d] = append(binding.Rules[d], r)
			}
		}
		if len(binding.Rules[d]) > 0 {
			binding.Descriptors = append(binding.Descriptors, d)
		}
	}
	if len(binding.Descriptors) == 0 {
		return nil
	}

	slices.SortStableFunc(binding.Descriptors, func(a, b *Descriptor) int {
		return cmp.Or(strings.Compare(a.TypeName, b.TypeName), strings.Compare(a.AssemblyName, b.AssemblyName))
	})
	return binding
}

func ruleMatches(r TagMatchingRule, tagName, parentTag string, attrs []Attribute) bool {
	if r.TagName != ElementCatchAll && !strings.EqualFold(r.TagName, tagName) {
		return false
	}
	if r.ParentTag != "" && !strings.EqualFold(r.ParentTag, parentTag) {
		return false
	}
	for _, req := range r.Attributes {
		if !slices.ContainsFunc(attrs, func(a Attribute) bool { return req.Matches(a.Name, a.Value) }) {
			return false
		}
	}
	return true
}
