// Package engine runs the whole compilation of one template.
//
//	Document ─▶ parse ─▶ discover tag helpers ─▶ re-parse with binder
//	         ─▶ lower (with imports) ─▶ passes ─▶ render ─▶ CodeDocument
//
// An Engine is immutable once built and may be shared by concurrent
// compilations.
package engine

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/config"
	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/extension"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/lowering"
	"github.com/walteh/gorazor/pkg/parser"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
	"github.com/walteh/gorazor/pkg/tokenizer"
)

// DefaultImportFiles are the import documents looked up by ProcessFile.
var DefaultImportFiles = []string{"_ViewImports.cshtml"}

type Engine struct {
	fs           afero.Fs
	directives   *directive.Registry
	descriptors  []*taghelper.Descriptor
	keywords     tokenizer.KeywordSet
	lowering     lowering.Options
	codegen      codegen.Options
	pipeline     *lowering.Pipeline
	extensions   []codegen.TargetExtension
	importFiles  []string
	encoding     string
	editorconfig bool
}

type Option func(*Engine)

// WithFs sets the file system ProcessFile reads from. Defaults to the OS.
func WithFs(fs afero.Fs) Option { return func(e *Engine) { e.fs = fs } }

func WithDirectives(r *directive.Registry) Option { return func(e *Engine) { e.directives = r } }

func WithKeywords(k tokenizer.KeywordSet) Option { return func(e *Engine) { e.keywords = k } }

// WithTagHelpers adds descriptors that addTagHelper directives can select.
func WithTagHelpers(ds ...*taghelper.Descriptor) Option {
	return func(e *Engine) { e.descriptors = append(e.descriptors, ds...) }
}

func WithDesignTime(on bool) Option {
	return func(e *Engine) {
		e.lowering.DesignTime = on
		e.codegen.DesignTime = on
	}
}

func WithLowering(opts lowering.Options) Option {
	return func(e *Engine) {
		opts.DesignTime = e.lowering.DesignTime
		e.lowering = opts
	}
}

func WithFormat(f codegen.Format) Option {
	return func(e *Engine) {
		e.codegen.Format = f
		e.editorconfig = false
	}
}

func WithChecksum(alg position.ChecksumAlgorithm) Option {
	return func(e *Engine) { e.codegen.Checksum = alg }
}

func WithoutLinePragmas() Option {
	return func(e *Engine) { e.codegen.SuppressLinePragmas = true }
}

// WithPasses runs extra lowering passes next to the defaults.
func WithPasses(passes ...lowering.Pass) Option {
	return func(e *Engine) { e.pipeline = e.pipeline.With(passes...) }
}

// WithTargetExtensions registers extra writers. An extension replaces a
// default one with the same capability.
func WithTargetExtensions(exts ...codegen.TargetExtension) Option {
	return func(e *Engine) { e.extensions = append(e.extensions, exts...) }
}

func WithImportFiles(names ...string) Option {
	return func(e *Engine) { e.importFiles = names }
}

func WithEncoding(name string) Option { return func(e *Engine) { e.encoding = name } }

func New(opts ...Option) *Engine {
	e := &Engine{
		fs:           afero.NewOsFs(),
		directives:   directive.DefaultRegistry(),
		keywords:     tokenizer.DefaultKeywords,
		pipeline:     lowering.DefaultPipeline(),
		extensions:   extension.TargetExtensions(),
		importFiles:  DefaultImportFiles,
		editorconfig: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig builds an engine from a loaded configuration. opts apply after
// the configuration.
func FromConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	descriptors, err := cfg.Descriptors()
	if err != nil {
		return nil, err
	}
	checksum, err := cfg.ChecksumAlgorithm()
	if err != nil {
		return nil, err
	}

	lopts := lowering.Options{
		Namespace:    cfg.Namespace,
		BaseType:     cfg.BaseType,
		ModelType:    cfg.ModelType,
		LiteralBytes: cfg.LiteralBytes,
	}
	if len(cfg.Imports) > 0 {
		lopts.Imports = slices.Concat(lowering.DefaultImports, cfg.Imports)
	}

	base := []Option{
		WithDirectives(registry),
		WithKeywords(cfg.Keywords()),
		WithTagHelpers(descriptors...),
		WithLowering(lopts),
		WithDesignTime(cfg.DesignTime),
		WithChecksum(checksum),
		WithEncoding(cfg.Encoding),
	}
	if cfg.SuppressLinePragmas {
		base = append(base, WithoutLinePragmas())
	}
	if len(cfg.ImportFiles) > 0 {
		base = append(base, WithImportFiles(cfg.ImportFiles...))
	}
	return New(append(base, opts...)...), nil
}

func (me *Engine) DesignTime() bool {
	return me.lowering.DesignTime
}

func (me *Engine) Directives() *directive.Registry {
	return me.directives
}

func (me *Engine) TagHelpers() []*taghelper.Descriptor {
	return slices.Clone(me.descriptors)
}

// ImportFiles names the import documents ProcessFile looks for.
func (me *Engine) ImportFiles() []string {
	return slices.Clone(me.importFiles)
}

// CodeDocument holds every artifact of one compilation.
type CodeDocument struct {
	Source  *position.Document
	Imports []*syntax.Tree
	// Syntax is the final tree, rewritten for tag helpers when any are in
	// scope.
	Syntax *syntax.Tree
	// Binder is nil when no tag helper is in scope.
	Binder *taghelper.Binder
	// Lowered is the document before the passes ran, Document after.
	Lowered  *ir.Node
	Document *ir.Node
	Output   *codegen.Result
	// Diagnostics from every stage, sorted and without duplicates.
	Diagnostics []diagnostic.Diagnostic
}

func (me *CodeDocument) HasErrors() bool {
	return diagnostic.HasErrors(me.Diagnostics)
}

func (me *Engine) parserOptions(binder *taghelper.Binder) parser.Options {
	return parser.Options{Directives: me.directives, Keywords: me.keywords, Binder: binder}
}

// Parse runs only the parsing stages: the returned document has Syntax,
// Imports, Binder and Diagnostics set.
func (me *Engine) Parse(ctx context.Context, doc *position.Document, imports ...*position.Document) *CodeDocument {
	out := &CodeDocument{Source: doc}
	var found []parser.TagHelperDirective
	for _, imp := range imports {
		tree := parser.Parse(ctx, imp, me.parserOptions(nil))
		out.Imports = append(out.Imports, tree)
		found = append(found, parser.DiscoverTagHelperDirectives(tree)...)
	}

	out.Syntax = parser.Parse(ctx, doc, me.parserOptions(nil))
	found = append(found, parser.DiscoverTagHelperDirectives(out.Syntax)...)

	var resolved []diagnostic.Diagnostic
	if len(found) > 0 {
		out.Binder, resolved = parser.ResolveTagHelpers(found, me.descriptors)
		if out.Binder != nil {
			out.Syntax = parser.Parse(ctx, doc, me.parserOptions(out.Binder))
		}
	}

	lists := [][]diagnostic.Diagnostic{resolved, out.Syntax.Diagnostics()}
	for _, tree := range out.Imports {
		lists = append(lists, tree.Diagnostics())
	}
	out.Diagnostics = diagnostic.Merge(lists...)
	return out
}

// Process compiles doc. imports apply in order, before the document itself.
// Problems with the template are reported as diagnostics; an error means the
// compilation was abandoned.
func (me *Engine) Process(ctx context.Context, doc *position.Document, imports ...*position.Document) (*CodeDocument, error) {
	return me.process(ctx, doc, me.codegen, imports...)
}

func (me *Engine) process(ctx context.Context, doc *position.Document, copts codegen.Options, imports ...*position.Document) (*CodeDocument, error) {
	if doc == nil {
		return nil, errors.Errorf("processing: no source document")
	}
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	out := me.Parse(ctx, doc, imports...)
	logger.Debug().Str("path", doc.Path()).Dur("took", time.Since(start)).Msg("parse phase done")

	out.Lowered = lowering.Lower(ctx, out.Syntax, me.lowering, out.Imports...)
	final, err := me.pipeline.Run(ctx, out.Lowered, me.lowering)
	if err != nil {
		return nil, errors.Errorf("lowering %s: %w", doc.Path(), err)
	}
	out.Document = final

	target := codegen.NewTarget(copts, me.extensions...)
	out.Output = codegen.Render(ctx, final, doc, target)
	out.Diagnostics = diagnostic.Merge(out.Diagnostics, ir.Diagnostics(final), out.Output.Diagnostics)

	errs, warns := diagnostic.Count(out.Diagnostics)
	logger.Debug().
		Str("path", doc.Path()).
		Int("errors", errs).
		Int("warnings", warns).
		Dur("took", time.Since(start)).
		Msg("processed document")
	return out, nil
}

// ProcessFile reads path from the engine's file system together with the
// import files found in its directory and every parent directory.
func (me *Engine) ProcessFile(ctx context.Context, path string) (*CodeDocument, error) {
	doc, err := position.ReadDocument(me.fs, path, me.encoding)
	if err != nil {
		return nil, err
	}
	imports, err := me.ImportsFor(path)
	if err != nil {
		return nil, err
	}

	copts := me.codegen
	if me.editorconfig {
		f, err := codegen.FormatFromEditorConfig(me.fs, filepath.Dir(path), filepath.Base(path)+".g.cs")
		if err != nil {
			return nil, err
		}
		copts.Format = f
	}
	return me.process(ctx, doc, copts, imports...)
}

// ImportsFor loads the import documents that apply to path, outermost
// directory first. path itself is never its own import.
func (me *Engine) ImportsFor(path string) ([]*position.Document, error) {
	var dirs []string
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		dirs = append(dirs, dir)
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	slices.Reverse(dirs)

	var out []*position.Document
	for _, dir := range dirs {
		for _, name := range me.importFiles {
			candidate := filepath.Join(dir, name)
			if filepath.Clean(candidate) == filepath.Clean(path) {
				continue
			}
			ok, err := afero.Exists(me.fs, candidate)
			if err != nil {
				return nil, errors.Errorf("checking import %s: %w", candidate, err)
			}
			if !ok {
				continue
			}
			doc, err := position.ReadDocument(me.fs, candidate, me.encoding)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
	}
	return out, nil
}
