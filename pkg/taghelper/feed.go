package taghelper

import (
	"encoding/json"
	"io"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/position"
)

// A descriptor feed is a JSON array of descriptors, usually produced by a
// build step that reflects over compiled assemblies. Enumerations are stored
// as their numeric values so a feed read and written again is unchanged.

type feedDescriptor struct {
	TypeName         string            `json:"TypeName"`
	AssemblyName     string            `json:"AssemblyName"`
	DisplayName      string            `json:"DisplayName,omitempty"`
	TagMatchingRules []feedRule        `json:"TagMatchingRules"`
	BoundAttributes  []feedAttribute   `json:"BoundAttributes,omitempty"`
	AllowedChildTags []string          `json:"AllowedChildTags"`
	TagOutputHint    string            `json:"TagOutputHint,omitempty"`
	Documentation    string            `json:"Documentation,omitempty"`
	Metadata         map[string]string `json:"Metadata,omitempty"`
	Diagnostics      []feedDiagnostic  `json:"Diagnostics,omitempty"`
}

type feedRule struct {
	TagName      string              `json:"TagName"`
	ParentTag    string              `json:"ParentTag,omitempty"`
	TagStructure TagStructure        `json:"TagStructure"`
	Attributes   []RequiredAttribute `json:"Attributes,omitempty"`
}

type feedAttribute struct {
	Name              string `json:"Name"`
	TypeName          string `json:"TypeName"`
	PropertyName      string `json:"PropertyName"`
	IndexerNamePrefix string `json:"IndexerNamePrefix,omitempty"`
	IndexerTypeName   string `json:"IndexerTypeName,omitempty"`
	IsEnum            bool   `json:"IsEnum,omitempty"`
	Documentation     string `json:"Documentation,omitempty"`
}

type feedDiagnostic struct {
	ID             string              `json:"Id"`
	Severity       diagnostic.Severity `json:"Severity"`
	Message        string              `json:"Message"`
	FilePath       string              `json:"FilePath,omitempty"`
	AbsoluteIndex  int                 `json:"AbsoluteIndex"`
	LineIndex      int                 `json:"LineIndex"`
	CharacterIndex int                 `json:"CharacterIndex"`
	Length         int                 `json:"Length"`
}

func toFeed(d *Descriptor) feedDescriptor {
	out := feedDescriptor{
		TypeName:         d.TypeName,
		AssemblyName:     d.AssemblyName,
		DisplayName:      d.DisplayName,
		AllowedChildTags: d.AllowedChildTags,
		TagOutputHint:    d.TagOutputHint,
		Documentation:    d.Documentation,
		Metadata:         d.Metadata,
	}
	for _, r := range d.TagMatchingRules {
		out.TagMatchingRules = append(out.TagMatchingRules, feedRule(r))
	}
	for _, a := range d.BoundAttributes {
		out.BoundAttributes = append(out.BoundAttributes, feedAttribute(a))
	}
	for _, diag := range d.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, feedDiagnostic{
			ID:             diag.ID,
			Severity:       diag.Severity,
			Message:        diag.Message,
			FilePath:       diag.Span.FilePath,
			AbsoluteIndex:  diag.Span.AbsoluteIndex,
			LineIndex:      diag.Span.LineIndex,
			CharacterIndex: diag.Span.CharacterIndex,
			Length:         diag.Span.Length,
		})
	}
	return out
}

func (me feedDescriptor) descriptor() *Descriptor {
	out := &Descriptor{
		TypeName:         me.TypeName,
		AssemblyName:     me.AssemblyName,
		DisplayName:      me.DisplayName,
		AllowedChildTags: me.AllowedChildTags,
		TagOutputHint:    me.TagOutputHint,
		Documentation:    me.Documentation,
		Metadata:         me.Metadata,
	}
	for _, r := range me.TagMatchingRules {
		out.TagMatchingRules = append(out.TagMatchingRules, TagMatchingRule(r))
	}
	for _, a := range me.BoundAttributes {
		out.BoundAttributes = append(out.BoundAttributes, BoundAttribute(a))
	}
	for _, d := range me.Diagnostics {
		loc := position.Location{
			FilePath:       d.FilePath,
			AbsoluteIndex:  d.AbsoluteIndex,
			LineIndex:      d.LineIndex,
			CharacterIndex: d.CharacterIndex,
		}
		out.Diagnostics = append(out.Diagnostics, diagnostic.Diagnostic{
			ID:       d.ID,
			Severity: d.Severity,
			Span:     position.NewSpan(loc, d.Length),
			Message:  d.Message,
		})
	}
	return out
}

// ReadDescriptors decodes a descriptor feed. Descriptors come back as
// written; structural checks happen when a document resolves them.
func ReadDescriptors(r io.Reader) ([]*Descriptor, error) {
	var feed []feedDescriptor
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&feed); err != nil {
		return nil, errors.Errorf("decoding descriptor feed: %w", err)
	}
	out := make([]*Descriptor, 0, len(feed))
	for i, f := range feed {
		if f.TypeName == "" {
			return nil, errors.Errorf("descriptor %d: missing TypeName", i)
		}
		out = append(out, f.descriptor())
	}
	return out, nil
}

// WriteDescriptors encodes ds as a descriptor feed.
func WriteDescriptors(w io.Writer, ds []*Descriptor) error {
	feed := make([]feedDescriptor, 0, len(ds))
	for _, d := range ds {
		feed = append(feed, toFeed(d))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(feed); err != nil {
		return errors.Errorf("encoding descriptor feed: %w", err)
	}
	return nil
}

// LoadDescriptors reads the descriptor feed at path.
func LoadDescriptors(fs afero.Fs, path string) ([]*Descriptor, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening descriptor feed: %w", err)
	}
	defer f.Close()
	ds, err := ReadDescriptors(f)
	if err != nil {
		return nil, errors.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
