// Package codegen writes an intermediate tree as C# source.
//
//	ir.Document ──Render──▶ Writer ──▶ Result{Text, Mappings, Diagnostics}
//	                 │
//	                 ├── NodeWriter        runtime or design-time strategy
//	                 └── TargetExtension   one per extension capability
//
// Every piece of source text copied into the output is recorded as a
// Mapping, so tools can go from generated code back to the template.
package codegen

import (
	"github.com/google/uuid"

	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/position"
)

// Options select the rendering strategy.
type Options struct {
	DesignTime bool
	Format     Format
	// Checksum, when set, emits a "#pragma checksum" for the source document.
	Checksum position.ChecksumAlgorithm
	// SuppressLinePragmas drops "#line" directives around mapped code.
	SuppressLinePragmas bool
	// GeneratedPath names the output in mappings.
	GeneratedPath string
}

// TargetExtension writes the extension nodes of one capability.
type TargetExtension interface {
	Capability() string
	WriteNode(ctx *Context, n *ir.Node)
}

// Target is the rendering strategy for a compilation: the node writer for
// the mode plus the registered target extensions.
type Target struct {
	Options    Options
	NodeWriter NodeWriter
	extensions []TargetExtension
	byName     map[string]TargetExtension
}

func NewTarget(opts Options, extensions ...TargetExtension) *Target {
	t := &Target{Options: opts, byName: map[string]TargetExtension{}}
	if opts.DesignTime {
		t.NodeWriter = DesignTimeNodeWriter{}
	} else {
		t.NodeWriter = RuntimeNodeWriter{}
	}
	for _, e := range extensions {
		t.Register(e)
	}
	return t
}

// Register adds or replaces the extension for its capability.
func (me *Target) Register(e TargetExtension) {
	if _, ok := me.byName[e.Capability()]; !ok {
		me.extensions = append(me.extensions, e)
	} else {
		for i, old := range me.extensions {
			if old.Capability() == e.Capability() {
				me.extensions[i] = e
			}
		}
	}
	me.byName[e.Capability()] = e
}

// Extension returns the extension registered for a capability.
func (me *Target) Extension(capability string) (TargetExtension, bool) {
	e, ok := me.byName[capability]
	return e, ok
}

func (me *Target) Extensions() []TargetExtension {
	return me.extensions
}

// Lookup returns the first registered extension implementing T.
func Lookup[T any](t *Target) (T, bool) {
	for _, e := range t.extensions {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Checksum algorithm identifiers understood by "#pragma checksum".
var (
	sha1Guid   = uuid.MustParse("ff1816ec-aa5e-4d10-87f7-6f4963833460")
	sha256Guid = uuid.MustParse("8829d00f-11b8-4213-878b-770e8597ac16")
)

func checksumGuid(alg position.ChecksumAlgorithm) (uuid.UUID, bool) {
	switch alg {
	case position.ChecksumSHA1:
		return sha1Guid, true
	case position.ChecksumSHA256:
		return sha256Guid, true
	}
	return uuid.Nil, false
}
