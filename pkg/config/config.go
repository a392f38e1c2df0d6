// Package config loads engine settings from a YAML or HCL file, with
// RAZOR_* environment variables applied on top.
//
//	razor.yaml / razor.hcl ──Load──▶ Config ──ApplyEnv──▶ Config
//	                                    │
//	                                    ├── Descriptors()  tag helpers
//	                                    ├── Registry()     directives
//	                                    └── Keywords()     code grammar
package config

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFileNames are looked up, in order, when no config path is given.
var DefaultFileNames = []string{"razor.yaml", "razor.yml", "razor.hcl"}

// 📝 Config file structure
type Config struct {
	Namespace string   `yaml:"namespace,omitempty" hcl:"namespace,optional"`
	BaseType  string   `yaml:"base_type,omitempty" hcl:"base_type,optional"`
	ModelType string   `yaml:"model_type,omitempty" hcl:"model_type,optional"`
	Imports   []string `yaml:"imports,omitempty" hcl:"imports,optional"`
	// ImportFiles name the files, looked up in every parent directory of a
	// document, whose directives apply to it.
	ImportFiles []string `yaml:"import_files,omitempty" hcl:"import_files,optional"`

	DesignTime          bool   `yaml:"design_time,omitempty" hcl:"design_time,optional"`
	LiteralBytes        bool   `yaml:"literal_bytes,omitempty" hcl:"literal_bytes,optional"`
	Checksum            string `yaml:"checksum,omitempty" hcl:"checksum,optional"`
	LegacyKeywords      bool   `yaml:"legacy_keywords,omitempty" hcl:"legacy_keywords,optional"`
	SuppressLinePragmas bool   `yaml:"suppress_line_pragmas,omitempty" hcl:"suppress_line_pragmas,optional"`
	Encoding            string `yaml:"encoding,omitempty" hcl:"encoding,optional"`

	TagHelpers []*TagHelperBlock `yaml:"tag_helpers,omitempty" hcl:"tag_helper,block"`
	// TagHelperFeeds are JSON descriptor feeds, relative to the config file.
	TagHelperFeeds []string          `yaml:"tag_helper_feeds,omitempty" hcl:"tag_helper_feeds,optional"`
	Directives     []*DirectiveBlock `yaml:"directives,omitempty" hcl:"directive,block"`

	fs  afero.Fs
	dir string
}

// TagHelperBlock declares one tag helper type.
type TagHelperBlock struct {
	Type            string                 `yaml:"type" hcl:"type,label"`
	Assembly        string                 `yaml:"assembly,omitempty" hcl:"assembly,optional"`
	DisplayName     string                 `yaml:"display_name,omitempty" hcl:"display_name,optional"`
	Tags            []*TagRuleBlock        `yaml:"tags" hcl:"tag,block"`
	Attributes      []*BoundAttributeBlock `yaml:"attributes,omitempty" hcl:"attribute,block"`
	AllowedChildren []string               `yaml:"allowed_children,omitempty" hcl:"allowed_children,optional"`
	OutputHint      string                 `yaml:"output_hint,omitempty" hcl:"output_hint,optional"`
}

// TagRuleBlock is one tag matching rule. Require is a selector such as
// "asp-for, [type=text], data-*".
type TagRuleBlock struct {
	Name      string `yaml:"name" hcl:"name,label"`
	Parent    string `yaml:"parent,omitempty" hcl:"parent,optional"`
	Structure string `yaml:"structure,omitempty" hcl:"structure,optional"`
	Require   string `yaml:"require,omitempty" hcl:"require,optional"`
}

type BoundAttributeBlock struct {
	Name          string `yaml:"name" hcl:"name,label"`
	Type          string `yaml:"type" hcl:"type"`
	Property      string `yaml:"property,omitempty" hcl:"property,optional"`
	IndexerPrefix string `yaml:"indexer_prefix,omitempty" hcl:"indexer_prefix,optional"`
	IndexerType   string `yaml:"indexer_type,omitempty" hcl:"indexer_type,optional"`
	Enum          bool   `yaml:"enum,omitempty" hcl:"enum,optional"`
}

// DirectiveBlock declares a directive beyond the built-in set.
type DirectiveBlock struct {
	Name        string        `yaml:"name" hcl:"name,label"`
	Kind        string        `yaml:"kind,omitempty" hcl:"kind,optional"`
	Usage       string        `yaml:"usage,omitempty" hcl:"usage,optional"`
	Description string        `yaml:"description,omitempty" hcl:"description,optional"`
	Tokens      []*TokenBlock `yaml:"tokens,omitempty" hcl:"token,block"`
}

type TokenBlock struct {
	Kind     string `yaml:"kind" hcl:"kind,label"`
	Name     string `yaml:"name,omitempty" hcl:"name,optional"`
	Optional bool   `yaml:"optional,omitempty" hcl:"optional,optional"`
}

// Load reads the config at path. YAML is chosen by extension, anything else
// is parsed as HCL.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}
	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	cfg.fs, cfg.dir = fs, filepath.Dir(path)
	return cfg, nil
}

// Find returns the first of DefaultFileNames present in dir, or "".
func Find(fs afero.Fs, dir string) string {
	for _, name := range DefaultFileNames {
		path := filepath.Join(dir, name)
		if ok, _ := afero.Exists(fs, path); ok {
			return path
		}
	}
	return ""
}

// Resolve loads explicit when set, otherwise the configuration file found in
// dir, otherwise an empty configuration; environment overrides apply last.
func Resolve(fs afero.Fs, dir, explicit string, lookup func(string) (string, bool)) (*Config, error) {
	path := explicit
	if path == "" {
		path = Find(fs, dir)
	}
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = Load(fs, path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Parse(data []byte, path string) (*Config, error) {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		var cfg Config
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
		return &cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, ctx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &cfg, nil
}
