// Package taghelper models tag helper descriptors and binds them to markup
// elements by tag name, parent tag and required attributes.
package taghelper

import (
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
)

type TagStructure int

const (
	TagStructureUnspecified TagStructure = iota
	NormalOrSelfClosing
	WithoutEndTag
)

type NameComparison int

const (
	FullMatch NameComparison = iota
	PrefixMatch
)

type ValueComparison int

const (
	ValueNone ValueComparison = iota
	ValueFullMatch
	ValuePrefixMatch
	ValueSuffixMatch
)

// ElementCatchAll matches any tag name.
const ElementCatchAll = "*"

type RequiredAttribute struct {
	Name            string
	NameComparison  NameComparison
	Value           string
	ValueComparison ValueComparison
}

// Matches reports whether an element attribute satisfies the requirement.
// Names compare case-insensitively, values ordinally.
func (me RequiredAttribute) Matches(name, value string) bool {
	switch me.NameComparison {
	case PrefixMatch:
		if len(name) <= len(me.Name) || !strings.EqualFold(name[:len(me.Name)], me.Name) {
			return false
		}
	default:
		if !strings.EqualFold(name, me.Name) {
			return false
		}
	}

	switch me.ValueComparison {
	case ValueFullMatch:
		return value == me.Value
	case ValuePrefixMatch:
		return strings.HasPrefix(value, me.Value)
	case ValueSuffixMatch:
		return strings.HasSuffix(value, me.Value)
	}
	return true
}

type TagMatchingRule struct {
	TagName      string
	ParentTag    string
	TagStructure TagStructure
	Attributes   []RequiredAttribute
}

type BoundAttribute struct {
	Name              string
	TypeName          string
	PropertyName      string
	IndexerNamePrefix string
	IndexerTypeName   string
	IsEnum            bool
	Documentation     string
}

func isStringType(name string) bool {
	return name == "string" || name == "System.String"
}

func (me BoundAttribute) IsStringProperty() bool {
	return isStringType(me.TypeName)
}

func (me BoundAttribute) IsBooleanProperty() bool {
	return me.TypeName == "bool" || me.TypeName == "System.Boolean"
}

func (me BoundAttribute) IsIndexerStringProperty() bool {
	return isStringType(me.IndexerTypeName)
}

func (me BoundAttribute) HasIndexer() bool {
	return me.IndexerNamePrefix != ""
}

// Descriptor describes one tag helper type. Descriptors are shared read-only
// between compilations and never mutated once handed to a Binder.
type Descriptor struct {
	TypeName         string
	AssemblyName     string
	DisplayName      string
	TagMatchingRules []TagMatchingRule
	BoundAttributes  []BoundAttribute
	AllowedChildTags []string
	TagOutputHint    string
	Documentation    string
	Metadata         map[string]string
	Diagnostics      []diagnostic.Diagnostic
}

func (me *Descriptor) Name() string {
	if me.DisplayName != "" {
		return me.DisplayName
	}
	return me.TypeName
}

// AttributeMatch is the result of resolving an element attribute against a
// descriptor's bound attributes.
type AttributeMatch struct {
	Attribute BoundAttribute
	// Indexer is set when the match came from IndexerNamePrefix.
	Indexer bool
	// Key is the dictionary key for indexer matches.
	Key string
}

// BoundAttributeFor resolves an element attribute name. An exact name match
// always beats an indexer prefix match; among indexers the longest prefix wins.
func (me *Descriptor) BoundAttributeFor(name string) (AttributeMatch, bool) {
	for _, b := range me.BoundAttributes {
		if b.Name != "" && strings.EqualFold(b.Name, name) {
			return AttributeMatch{Attribute: b}, true
		}
	}

	best := -1
	for i, b := range me.BoundAttributes {
		p := b.IndexerNamePrefix
		if p == "" || len(name) < len(p) || !strings.EqualFold(name[:len(p)], p) {
			continue
		}
		if best < 0 || len(p) > len(me.BoundAttributes[best].IndexerNamePrefix) {
			best = i
		}
	}
	if best < 0 {
		return AttributeMatch{}, false
	}
	b := me.BoundAttributes[best]
	return AttributeMatch{Attribute: b, Indexer: true, Key: name[len(b.IndexerNamePrefix):]}, true
}

// AllowsChild reports whether tagName may appear directly inside this helper.
func (me *Descriptor) AllowsChild(tagName string) bool {
	if me.AllowedChildTags == nil {
		return true
	}
	for _, c := range me.AllowedChildTags {
		if strings.EqualFold(c, tagName) {
			return true
		}
	}
	return false
}

// DescriptorProvider supplies the descriptors known to a project.
type DescriptorProvider interface {
	TagHelpers() []*Descriptor
}

// StaticProvider is a fixed descriptor list.
type StaticProvider []*Descriptor

func (me StaticProvider) TagHelpers() []*Descriptor {
	return me
}
