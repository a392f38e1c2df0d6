package lowering

import (
	"fmt"
	"strings"

	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/extension"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/position"
)

const (
	injectAttribute   = "[global::Microsoft.AspNetCore.Mvc.Razor.Internal.RazorInjectAttribute]"
	injectAccessors   = "{ get; private set; }"
	routeTemplateAttr = "[global::Microsoft.AspNetCore.Razor.Hosting.RazorCompiledItemMetadataAttribute(\"RouteTemplate\", %s)]"
	modelPlaceholder  = "<TModel>"
)

// UsageValidationPass reports directives used where their usage forbids:
// nested file-scoped directives, repeated single-use directives, nested or
// repeated sections and a misplaced @page.
type UsageValidationPass struct{}

func (UsageValidationPass) Name() string { return "usage-validation" }
func (UsageValidationPass) Phase() Phase { return PhaseDirectives }
func (UsageValidationPass) Order() int   { return 0 }

func (UsageValidationPass) Execute(doc *ir.Node, _ Options) {
	type fileDirective struct{ file, name string }
	seen := map[fileDirective]bool{}
	for _, n := range directiveNodes(doc) {
		d := n.Directive
		if d == nil {
			continue
		}
		if d.Usage.FileScoped() && n.Annotation(AnnotationNested) == "true" {
			n.Report(diagnostic.DirectiveMustBeTopLevel, n.Source, d.Directive)
		}
		if d.Usage == directive.FileScopedSinglyOccurring {
			key := fileDirective{n.Source.FilePath, d.Directive}
			if seen[key] {
				n.Report(diagnostic.DuplicateDirective, n.Source, d.Directive)
			}
			seen[key] = true
		}
	}
	validateSections(doc)
	validatePage(doc)
}

func validateSections(doc *ir.Node) {
	names := map[string]bool{}
	for _, n := range directiveNodes(doc) {
		if n.Directive == nil || n.Directive.Directive != directive.SectionDirective.Directive {
			continue
		}
		for inner := range ir.Walk(n) {
			if inner != n && inner.Directive != nil && inner.Directive.Directive == n.Directive.Directive {
				inner.Report(diagnostic.SectionsCannotBeNested, inner.Source)
			}
		}
		if n.Kind != ir.KindDirective {
			continue
		}
		name := tokenValue(n, 0)
		if names[name] {
			n.Report(diagnostic.DuplicateSection, n.Source, name)
		}
		names[name] = true
	}
}

// validatePage checks that @page is not imported and that only whitespace
// and other directives come before it.
func validatePage(doc *ir.Node) {
	method := ir.MethodOf(doc)
	if method == nil {
		return
	}
	for _, n := range directiveNodes(doc) {
		if n.Directive == nil || n.Directive.Directive != directive.PageDirective.Directive {
			continue
		}
		if n.Annotation(AnnotationImported) == "true" {
			n.Report(diagnostic.PageDirectiveCannotBeImported, n.Source)
			continue
		}
		for _, c := range method.Children {
			if c == n {
				break
			}
			if !precedesPage(c) {
				n.Report(diagnostic.PageDirectiveMustPrecedeOthers, n.Source)
				break
			}
		}
	}
}

func precedesPage(n *ir.Node) bool {
	switch n.Kind {
	case ir.KindDirective, ir.KindMalformedDirective:
		return true
	case ir.KindHtmlContent:
		return strings.TrimSpace(n.Text()) == ""
	}
	return false
}

// lastValue returns the first token of the last well formed top-level use of
// a directive. Document directives follow imported ones, so they win.
func lastValue(doc *ir.Node, name string) (*ir.Node, string, bool) {
	var found *ir.Node
	for _, n := range wellFormed(doc, name) {
		if n.Annotation(AnnotationNested) != "true" && tokenValue(n, 0) != "" {
			found = n
		}
	}
	if found == nil {
		return nil, "", false
	}
	return found, tokenValue(found, 0), true
}

type NamespacePass struct{}

func (NamespacePass) Name() string { return "namespace" }
func (NamespacePass) Phase() Phase { return PhaseDirectives }
func (NamespacePass) Order() int   { return 10 }

func (NamespacePass) Execute(doc *ir.Node, _ Options) {
	if _, v, ok := lastValue(doc, directive.NamespaceDirective.Directive); ok {
		if ns := ir.NamespaceOf(doc); ns != nil {
			ns.Name = v
		}
	}
}

type InheritsPass struct{}

func (InheritsPass) Name() string { return "inherits" }
func (InheritsPass) Phase() Phase { return PhaseDirectives }
func (InheritsPass) Order() int   { return 20 }

func (InheritsPass) Execute(doc *ir.Node, _ Options) {
	if _, v, ok := lastValue(doc, directive.InheritsDirective.Directive); ok {
		if class := ir.ClassOf(doc); class != nil {
			class.Type = v
		}
	}
}

// ModelPass substitutes the model type into the base type. It runs before
// InjectPass, which substitutes it into injected property types.
type ModelPass struct{}

func (ModelPass) Name() string { return "model" }
func (ModelPass) Phase() Phase { return PhaseDirectives }
func (ModelPass) Order() int   { return 30 }

func (ModelPass) Execute(doc *ir.Node, opts Options) {
	model := opts.ModelType
	if _, v, ok := lastValue(doc, directive.ModelDirective.Directive); ok {
		model = v
	}
	doc.Annotate(AnnotationModel, model)
	if class := ir.ClassOf(doc); class != nil {
		class.Type = withModel(class.Type, model)
	}
}

func withModel(typeName, model string) string {
	return strings.ReplaceAll(typeName, modelPlaceholder, "<"+model+">")
}

// InjectPass adds a property per @inject. A later injection of the same
// property name replaces an earlier one.
type InjectPass struct{}

func (InjectPass) Name() string { return "inject" }
func (InjectPass) Phase() Phase { return PhaseDirectives }
func (InjectPass) Order() int   { return 40 }

func (InjectPass) Execute(doc *ir.Node, opts Options) {
	class := ir.ClassOf(doc)
	if class == nil {
		return
	}
	model := doc.Annotation(AnnotationModel)
	if model == "" {
		model = opts.ModelType
	}
	var order []string
	props := map[string]*ir.Node{}
	for _, n := range wellFormed(doc, directive.InjectDirective.Directive) {
		typeName, member := tokenValue(n, 0), tokenValue(n, 1)
		if typeName == "" || member == "" || n.Annotation(AnnotationNested) == "true" {
			continue
		}
		p := ir.New(ir.KindProperty, n.Source)
		p.Name = member
		p.Type = withModel(typeName, model)
		p.Modifiers = []string{"public"}
		p.Attributes = []string{injectAttribute}
		p.Content = injectAccessors
		if _, ok := props[member]; !ok {
			order = append(order, member)
		}
		props[member] = p
	}
	for _, name := range order {
		class.Add(props[name])
	}
}

type ImplementsPass struct{}

func (ImplementsPass) Name() string { return "implements" }
func (ImplementsPass) Phase() Phase { return PhaseDirectives }
func (ImplementsPass) Order() int   { return 50 }

func (ImplementsPass) Execute(doc *ir.Node, _ Options) {
	class := ir.ClassOf(doc)
	if class == nil {
		return
	}
	for _, n := range wellFormed(doc, directive.ImplementsDirective.Directive) {
		if v := tokenValue(n, 0); v != "" && n.Annotation(AnnotationNested) != "true" {
			class.Interfaces = append(class.Interfaces, v)
		}
	}
}

type AttributePass struct{}

func (AttributePass) Name() string { return "attribute" }
func (AttributePass) Phase() Phase { return PhaseDirectives }
func (AttributePass) Order() int   { return 60 }

func (AttributePass) Execute(doc *ir.Node, _ Options) {
	class := ir.ClassOf(doc)
	if class == nil {
		return
	}
	for _, n := range wellFormed(doc, directive.AttributeDirective.Directive) {
		if v := tokenValue(n, 0); v != "" && n.Annotation(AnnotationNested) != "true" {
			class.Attributes = append(class.Attributes, v)
		}
	}
}

// PagePass marks routable pages. A route template becomes class metadata.
type PagePass struct{}

func (PagePass) Name() string { return "page" }
func (PagePass) Phase() Phase { return PhaseDirectives }
func (PagePass) Order() int   { return 70 }

func (PagePass) Execute(doc *ir.Node, _ Options) {
	var page *ir.Node
	for _, n := range wellFormed(doc, directive.PageDirective.Directive) {
		if n.Annotation(AnnotationImported) != "true" {
			page = n
		}
	}
	if page == nil {
		return
	}
	doc.Annotate("page", "true")
	route := tokenValue(page, 0)
	if route == "" {
		return
	}
	if class := ir.ClassOf(doc); class != nil {
		class.Attributes = append(class.Attributes, fmt.Sprintf(routeTemplateAttr, route))
	}
}

// FunctionsPass moves the code of @functions blocks into the class. The
// directive itself stays behind for the later passes.
type FunctionsPass struct{}

func (FunctionsPass) Name() string { return "functions" }
func (FunctionsPass) Phase() Phase { return PhaseDirectives }
func (FunctionsPass) Order() int   { return 80 }

func (FunctionsPass) Execute(doc *ir.Node, _ Options) {
	class := ir.ClassOf(doc)
	if class == nil {
		return
	}
	for _, n := range wellFormed(doc, directive.FunctionsDirective.Directive) {
		var keep []*ir.Node
		for _, c := range n.Children {
			if c.Kind == ir.KindDirectiveToken {
				keep = append(keep, c)
				continue
			}
			class.Add(c)
		}
		n.Children = keep
	}
}

// SectionPass turns each @section into a section node placed right after
// the directive, which keeps only its tokens.
type SectionPass struct{}

func (SectionPass) Name() string { return "section" }
func (SectionPass) Phase() Phase { return PhaseDirectives }
func (SectionPass) Order() int   { return 90 }

func (SectionPass) Execute(doc *ir.Node, _ Options) {
	for _, n := range wellFormed(doc, directive.SectionDirective.Directive) {
		parent := ir.ParentOf(doc, n)
		if parent == nil {
			continue
		}
		var tokens, body []*ir.Node
		for _, c := range n.Children {
			if c.Kind == ir.KindDirectiveToken {
				tokens = append(tokens, c)
			} else {
				body = append(body, c)
			}
		}
		n.Children = tokens
		section := ir.NewExtension(&extension.Section{Name: tokenValue(n, 0)}, bodySpan(body), body...)
		parent.Replace(n, n, section)
	}
}

func bodySpan(body []*ir.Node) position.Span {
	out := position.UndefinedSpan
	for _, b := range body {
		out = out.Union(b.Source)
	}
	return out
}
