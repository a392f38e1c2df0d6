package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/taghelper"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

// envOverrides are read from the environment. Unset variables leave the
// pointers nil so the file value stays.
type envOverrides struct {
	Namespace      *string  `envconfig:"RAZOR_NAMESPACE"`
	BaseType       *string  `envconfig:"RAZOR_BASE_TYPE"`
	ModelType      *string  `envconfig:"RAZOR_MODEL_TYPE"`
	Imports        []string `envconfig:"RAZOR_IMPORTS"`
	DesignTime     *bool    `envconfig:"RAZOR_DESIGN_TIME"`
	LiteralBytes   *bool    `envconfig:"RAZOR_LITERAL_BYTES"`
	Checksum       *string  `envconfig:"RAZOR_CHECKSUM"`
	LegacyKeywords *bool    `envconfig:"RAZOR_LEGACY_KEYWORDS"`
	Encoding       *string  `envconfig:"RAZOR_ENCODING"`
}

// ApplyEnv overlays RAZOR_* variables. lookup defaults to os.LookupEnv.
func (me *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var env envOverrides
	if err := envconfig.Process("", &env, lookup); err != nil {
		return errors.Errorf("reading environment: %w", err)
	}
	set(&me.Namespace, env.Namespace)
	set(&me.BaseType, env.BaseType)
	set(&me.ModelType, env.ModelType)
	set(&me.DesignTime, env.DesignTime)
	set(&me.LiteralBytes, env.LiteralBytes)
	set(&me.Checksum, env.Checksum)
	set(&me.LegacyKeywords, env.LegacyKeywords)
	set(&me.Encoding, env.Encoding)
	if env.Imports != nil {
		me.Imports = env.Imports
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (me *Config) Keywords() tokenizer.KeywordSet {
	if me.LegacyKeywords {
		return tokenizer.LegacyKeywords
	}
	return tokenizer.DefaultKeywords
}

func (me *Config) ChecksumAlgorithm() (position.ChecksumAlgorithm, error) {
	switch normalize(me.Checksum) {
	case "":
		return "", nil
	case "sha1":
		return position.ChecksumSHA1, nil
	case "sha256":
		return position.ChecksumSHA256, nil
	}
	return "", errors.Errorf("unknown checksum algorithm %q", me.Checksum)
}

// Registry returns the built-in directives plus the configured ones.
func (me *Config) Registry() (*directive.Registry, error) {
	extra, err := me.DirectiveDescriptors()
	if err != nil {
		return nil, err
	}
	r := directive.DefaultRegistry()
	if err := r.RegisterAll(extra...); err != nil {
		return nil, errors.Errorf("registering directives: %w", err)
	}
	return r, nil
}

func (me *Config) DirectiveDescriptors() ([]*directive.Descriptor, error) {
	var errs error
	out := make([]*directive.Descriptor, 0, len(me.Directives))
	for _, block := range me.Directives {
		d, err := block.descriptor()
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("directive %q: %w", block.Name, err))
			continue
		}
		out = append(out, d)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func (me *DirectiveBlock) descriptor() (*directive.Descriptor, error) {
	kind := directive.SingleLine
	if me.Kind != "" {
		k, err := parseEnum("kind", me.Kind, directive.SingleLine, directive.RazorBlock, directive.CodeBlock)
		if err != nil {
			return nil, err
		}
		kind = k
	}
	usage := directive.Unrestricted
	if me.Usage != "" {
		u, err := parseEnum("usage", me.Usage,
			directive.Unrestricted, directive.FileScopedSinglyOccurring, directive.FileScopedMultipleOccurring)
		if err != nil {
			return nil, err
		}
		usage = u
	}

	b := directive.Build(me.Name, kind).Usage(usage).Description(me.Description)
	for _, t := range me.Tokens {
		tk, err := parseEnum("token kind", t.Kind,
			directive.Type, directive.Member, directive.String, directive.Namespace,
			directive.Attribute, directive.Boolean, directive.Text)
		if err != nil {
			return nil, err
		}
		name := t.Name
		if name == "" {
			name = tk.String()
		}
		if t.Optional {
			b.Optional(tk, name)
			continue
		}
		switch tk {
		case directive.Type:
			b.Type(name)
		case directive.Member:
			b.Member(name)
		case directive.String:
			b.String(name)
		case directive.Namespace:
			b.Namespace(name)
		case directive.Attribute:
			b.Attribute(name)
		case directive.Boolean:
			b.Boolean(name)
		case directive.Text:
			b.Text(name)
		}
	}
	return b.Descriptor(), nil
}

// Descriptors builds the configured tag helpers in declaration order,
// followed by those of every feed.
func (me *Config) Descriptors() ([]*taghelper.Descriptor, error) {
	var errs error
	out := make([]*taghelper.Descriptor, 0, len(me.TagHelpers))
	for _, block := range me.TagHelpers {
		d, err := block.descriptor()
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("tag helper %q: %w", block.Type, err))
			continue
		}
		out = append(out, d)
	}
	for _, feed := range me.TagHelperFeeds {
		ds, err := me.loadFeed(feed)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		out = append(out, ds...)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func (me *Config) loadFeed(path string) ([]*taghelper.Descriptor, error) {
	fs := me.fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if !filepath.IsAbs(path) && me.dir != "" {
		path = filepath.Join(me.dir, path)
	}
	return taghelper.LoadDescriptors(fs, path)
}

func (me *TagHelperBlock) descriptor() (*taghelper.Descriptor, error) {
	d := &taghelper.Descriptor{
		TypeName:         me.Type,
		AssemblyName:     me.Assembly,
		DisplayName:      me.DisplayName,
		AllowedChildTags: me.AllowedChildren,
		TagOutputHint:    me.OutputHint,
	}
	if len(me.Tags) == 0 {
		return nil, errors.Errorf("no tag rules")
	}
	for _, t := range me.Tags {
		attrs, err := taghelper.ParseRequiredAttributes(t.Require)
		if err != nil {
			return nil, err
		}
		structure, err := parseTagStructure(t.Structure)
		if err != nil {
			return nil, err
		}
		d.TagMatchingRules = append(d.TagMatchingRules, taghelper.TagMatchingRule{
			TagName:      t.Name,
			ParentTag:    t.Parent,
			TagStructure: structure,
			Attributes:   attrs,
		})
	}
	for _, a := range me.Attributes {
		property := a.Property
		if property == "" {
			property = pascal(a.Name)
		}
		d.BoundAttributes = append(d.BoundAttributes, taghelper.BoundAttribute{
			Name:              a.Name,
			TypeName:          a.Type,
			PropertyName:      property,
			IndexerNamePrefix: a.IndexerPrefix,
			IndexerTypeName:   a.IndexerType,
			IsEnum:            a.Enum,
		})
	}
	return d, nil
}

func parseTagStructure(s string) (taghelper.TagStructure, error) {
	switch normalize(s) {
	case "", "unspecified":
		return taghelper.TagStructureUnspecified, nil
	case "normalorselfclosing":
		return taghelper.NormalOrSelfClosing, nil
	case "withoutendtag":
		return taghelper.WithoutEndTag, nil
	}
	return 0, errors.Errorf("unknown tag structure %q", s)
}

// pascal turns "max-length" into "MaxLength".
func pascal(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r == '-' || r == '_' || r == ':' {
			upper = true
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func normalize(s string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
}

// parseEnum matches s against the String form of values, ignoring case and
// separators, so "file_scoped_singly_occurring" names FileScopedSinglyOccurring.
func parseEnum[T fmt.Stringer](what, s string, values ...T) (T, error) {
	for _, v := range values {
		if normalize(v.String()) == normalize(s) {
			return v, nil
		}
	}
	var zero T
	return zero, errors.Errorf("unknown %s %q", what, s)
}
