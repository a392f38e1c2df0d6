package codegen

import (
	"github.com/tidwall/btree"

	"github.com/walteh/gorazor/pkg/position"
)

// Mapping ties a source span to the generated span holding the same text.
type Mapping struct {
	Original  position.Span
	Generated position.Span
}

// MappingIndex answers position lookups in either direction.
type MappingIndex struct {
	byOriginal  btree.Map[int, []Mapping]
	byGenerated btree.Map[int, []Mapping]
}

func NewMappingIndex(mappings []Mapping) *MappingIndex {
	idx := &MappingIndex{}
	for _, m := range mappings {
		add(&idx.byOriginal, m.Original.AbsoluteIndex, m)
		add(&idx.byGenerated, m.Generated.AbsoluteIndex, m)
	}
	return idx
}

func add(tree *btree.Map[int, []Mapping], key int, m Mapping) {
	list, _ := tree.Get(key)
	tree.Set(key, append(list, m))
}

// containing finds the latest-starting mapping whose side span holds index.
// Spans may nest, so the walk goes on past starts that end too early. The end
// of a span counts, so a caret just past a mapped word still resolves.
func containing(tree *btree.Map[int, []Mapping], index int, side func(Mapping) position.Span) (Mapping, bool) {
	var found Mapping
	ok := false
	tree.Descend(index, func(_ int, list []Mapping) bool {
		for _, m := range list {
			s := side(m)
			if index >= s.AbsoluteIndex && index <= s.End() {
				found, ok = m, true
				return false
			}
		}
		return true
	})
	return found, ok
}

func originalSide(m Mapping) position.Span  { return m.Original }
func generatedSide(m Mapping) position.Span { return m.Generated }

// Generated translates a source index into the generated text.
func (me *MappingIndex) Generated(index int) (int, bool) {
	m, ok := containing(&me.byOriginal, index, originalSide)
	if !ok {
		return 0, false
	}
	return m.Generated.AbsoluteIndex + index - m.Original.AbsoluteIndex, true
}

// Original translates a generated index back to the source.
func (me *MappingIndex) Original(index int) (int, bool) {
	m, ok := containing(&me.byGenerated, index, generatedSide)
	if !ok {
		return 0, false
	}
	return m.Original.AbsoluteIndex + index - m.Generated.AbsoluteIndex, true
}

func (me *MappingIndex) Len() int {
	n := 0
	me.byGenerated.Scan(func(_ int, list []Mapping) bool {
		n += len(list)
		return true
	})
	return n
}
