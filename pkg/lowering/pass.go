package lowering

import (
	"cmp"
	"context"
	"slices"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/gorazor/pkg/ir"
)

type Phase int

const (
	// PhaseDirectives gives meaning to the registered directives.
	PhaseDirectives Phase = iota
	// PhaseTagHelpers turns bound elements into helper calls.
	PhaseTagHelpers
	// PhaseOptimization rewrites the tree for the selected output mode.
	PhaseOptimization
)

func (me Phase) String() string {
	switch me {
	case PhaseDirectives:
		return "directives"
	case PhaseTagHelpers:
		return "tag-helpers"
	}
	return "optimization"
}

// Pass rewrites a document in place. The pipeline hands every pass its own
// copy of the tree.
type Pass interface {
	Name() string
	Phase() Phase
	// Order sorts passes within a phase, lowest first.
	Order() int
	Execute(doc *ir.Node, opts Options)
}

type Pipeline struct {
	passes []Pass
}

// NewPipeline sorts passes by phase then order. Passes that tie keep the
// order they were given in.
func NewPipeline(passes ...Pass) *Pipeline {
	sorted := slices.Clone(passes)
	slices.SortStableFunc(sorted, func(a, b Pass) int {
		if c := cmp.Compare(a.Phase(), b.Phase()); c != 0 {
			return c
		}
		return cmp.Compare(a.Order(), b.Order())
	})
	return &Pipeline{passes: sorted}
}

// DefaultPipeline runs DefaultPasses.
func DefaultPipeline() *Pipeline {
	return NewPipeline(DefaultPasses()...)
}

// With returns a pipeline that also runs extra.
func (me *Pipeline) With(extra ...Pass) *Pipeline {
	return NewPipeline(append(slices.Clone(me.passes), extra...)...)
}

// Passes returns the passes in execution order.
func (me *Pipeline) Passes() []Pass {
	return slices.Clone(me.passes)
}

// Run applies every pass to a copy of doc and returns the result. doc itself
// is never modified. Cancellation is checked between passes.
func (me *Pipeline) Run(ctx context.Context, doc *ir.Node, opts Options) (*ir.Node, error) {
	opts = opts.withDefaults()
	logger := zerolog.Ctx(ctx)
	for _, p := range me.passes {
		if err := ctx.Err(); err != nil {
			return nil, errors.Errorf("before pass %s: %w", p.Name(), err)
		}
		doc = ir.Clone(doc)
		p.Execute(doc, opts)
		logger.Trace().Str("pass", p.Name()).Stringer("phase", p.Phase()).Msg("ran lowering pass")
	}
	return doc, nil
}

// DefaultPasses returns the built-in passes. Each one checks the output mode
// itself, so the same set serves runtime and design-time compilations.
func DefaultPasses() []Pass {
	return []Pass{
		UsageValidationPass{},
		NamespacePass{},
		InheritsPass{},
		ModelPass{},
		InjectPass{},
		ImplementsPass{},
		AttributePass{},
		PagePass{},
		FunctionsPass{},
		SectionPass{},
		TagHelperPass{},
		PreallocatedAttributePass{},
		LiteralBytesPass{},
		DirectiveRemovalPass{},
		DesignTimeDirectivePass{},
	}
}

// directiveNodes returns the directive nodes of doc in document order,
// imported ones first.
func directiveNodes(doc *ir.Node) []*ir.Node {
	var out []*ir.Node
	for n := range ir.Walk(doc) {
		if n.Kind == ir.KindDirective || n.Kind == ir.KindMalformedDirective {
			out = append(out, n)
		}
	}
	return out
}

// wellFormed returns the well formed directive nodes of one descriptor.
func wellFormed(doc *ir.Node, name string) []*ir.Node {
	var out []*ir.Node
	for _, n := range directiveNodes(doc) {
		if n.Kind == ir.KindDirective && n.Directive != nil && n.Directive.Directive == name {
			out = append(out, n)
		}
	}
	return out
}

// tokenValue returns the content of the i-th directive token, or "".
func tokenValue(n *ir.Node, i int) string {
	toks := n.DirectiveTokens()
	if i >= len(toks) {
		return ""
	}
	return toks[i].Content
}

// insertBeforeMethod places members on the class ahead of the template
// method, so declarations read first.
func insertBeforeMethod(class *ir.Node, members ...*ir.Node) {
	for i, c := range class.Children {
		if c.Kind == ir.KindMethod {
			class.Insert(i, members...)
			return
		}
	}
	class.Add(members...)
}
