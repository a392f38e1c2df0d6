package tokenizer

import (
	"maps"
	"slices"
)

// KeywordSet is a case-sensitive keyword table for the code tokenizer.
type KeywordSet struct {
	words map[string]struct{}
}

func NewKeywordSet(words ...string) KeywordSet {
	set := KeywordSet{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		set.words[w] = struct{}{}
	}
	return set
}

func (me KeywordSet) Contains(word string) bool {
	_, ok := me.words[word]
	return ok
}

// With returns a copy that also contains words.
func (me KeywordSet) With(words ...string) KeywordSet {
	out := KeywordSet{words: maps.Clone(me.words)}
	if out.words == nil {
		out.words = map[string]struct{}{}
	}
	for _, w := range words {
		out.words[w] = struct{}{}
	}
	return out
}

func (me KeywordSet) Words() []string {
	return slices.Sorted(maps.Keys(me.words))
}

var reservedKeywords = []string{
	"abstract", "as", "base", "bool", "break", "byte", "case", "catch", "char", "checked",
	"class", "const", "continue", "decimal", "default", "delegate", "do", "double", "else",
	"enum", "event", "explicit", "extern", "false", "finally", "fixed", "float", "for",
	"foreach", "goto", "if", "implicit", "in", "int", "interface", "internal", "is", "lock",
	"long", "namespace", "new", "null", "object", "operator", "out", "override", "params",
	"private", "protected", "public", "readonly", "ref", "return", "sbyte", "sealed",
	"short", "sizeof", "stackalloc", "static", "string", "struct", "switch", "this", "throw",
	"true", "try", "typeof", "uint", "ulong", "unchecked", "unsafe", "ushort", "using",
	"virtual", "void", "volatile", "while",
}

// LegacyKeywords is the reserved word list only.
var LegacyKeywords = NewKeywordSet(reservedKeywords...)

// DefaultKeywords adds the contextual keywords the parser gives meaning to.
var DefaultKeywords = LegacyKeywords.With("await", "when")
