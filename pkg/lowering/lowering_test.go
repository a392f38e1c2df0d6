package lowering_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/extension"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/lowering"
	"github.com/walteh/gorazor/pkg/parser"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
)

const path = "Views/Home/Index.cshtml"

func parse(t *testing.T, content string, opts parser.Options) *syntax.Tree {
	t.Helper()
	return parser.Parse(context.Background(), position.NewDocument(path, content), opts)
}

func lower(t *testing.T, content string, opts lowering.Options, popts parser.Options) *ir.Node {
	t.Helper()
	ctx := context.Background()
	doc := lowering.Lower(ctx, parse(t, content, popts), opts)
	out, err := lowering.DefaultPipeline().Run(ctx, doc, opts)
	require.NoError(t, err)
	return out
}

func render(t *testing.T, content string, opts lowering.Options, popts parser.Options) (*codegen.Result, *position.Document) {
	t.Helper()
	ctx := context.Background()
	tree := parse(t, content, popts)
	doc := lowering.Lower(ctx, tree, opts)
	doc, err := lowering.DefaultPipeline().Run(ctx, doc, opts)
	require.NoError(t, err)
	target := codegen.NewTarget(codegen.Options{DesignTime: opts.DesignTime}, extension.TargetExtensions()...)
	return codegen.Render(ctx, doc, tree.Source, target), tree.Source
}

func diagnosticIDs(doc *ir.Node) []string {
	var out []string
	for _, d := range ir.Diagnostics(doc) {
		out = append(out, d.ID)
	}
	return out
}

func TestClassNameFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "Views/Home/Index.cshtml", want: "Views_Home_Index"},
		{path: "/Pages/Shared/_Layout.cshtml", want: "Pages_Shared__Layout"},
		{path: "404.cshtml", want: "_404"},
		{path: "", want: "Template"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, lowering.ClassNameFor(tt.path))
		})
	}
}

func TestLowerDocumentShape(t *testing.T) {
	doc := lowering.Lower(context.Background(), parse(t, "@using System.Text\n<p>hi</p>", parser.Options{}), lowering.Options{})

	ns := ir.NamespaceOf(doc)
	require.NotNil(t, ns)
	assert.Equal(t, lowering.DefaultNamespace, ns.Name)

	var usings []string
	for _, u := range ir.Find(doc, ir.KindUsing) {
		usings = append(usings, u.Name)
	}
	assert.Equal(t, append(append([]string{}, lowering.DefaultImports...), "System.Text"), usings)

	class := ir.ClassOf(doc)
	require.NotNil(t, class)
	assert.Equal(t, "Views_Home_Index", class.Name)
	assert.Equal(t, lowering.DefaultBaseType, class.Type)

	method := ir.MethodOf(doc)
	require.NotNil(t, method)
	assert.Equal(t, lowering.ExecuteMethodName, method.Name)

	html := ir.Find(method, ir.KindHtmlContent)
	require.Len(t, html, 1)
	assert.Equal(t, "<p>hi</p>", html[0].Text())
}

func TestInjectAddsProperty(t *testing.T) {
	doc := lower(t, "@inject List<string> Items\n<p>hi</p>", lowering.Options{}, parser.Options{})
	assert.Empty(t, diagnosticIDs(doc))

	props := ir.Find(doc, ir.KindProperty)
	require.Len(t, props, 1)
	assert.Equal(t, "Items", props[0].Name)
	assert.Equal(t, "List<string>", props[0].Type)
	assert.Equal(t, []string{"public"}, props[0].Modifiers)
	require.Len(t, props[0].Attributes, 1)
	assert.Contains(t, props[0].Attributes[0], "RazorInjectAttribute")
}

func TestModelIsSubstitutedBeforeInject(t *testing.T) {
	doc := lower(t, "@model Shop.Cart\n@inject IHelper<TModel> Helper\n", lowering.Options{}, parser.Options{})
	assert.Empty(t, diagnosticIDs(doc))

	class := ir.ClassOf(doc)
	assert.Equal(t, "global::Microsoft.AspNetCore.Mvc.Razor.RazorPage<Shop.Cart>", class.Type)

	props := ir.Find(doc, ir.KindProperty)
	require.Len(t, props, 1)
	assert.Equal(t, "IHelper<Shop.Cart>", props[0].Type)
}

func TestLaterInjectWins(t *testing.T) {
	doc := lower(t, "@inject A Thing\n@inject B Thing\n", lowering.Options{}, parser.Options{})

	props := ir.Find(doc, ir.KindProperty)
	require.Len(t, props, 1)
	assert.Equal(t, "B", props[0].Type)
}

func TestClassDirectives(t *testing.T) {
	content := "@namespace Shop.Views\n@inherits BasePage<TModel>\n@implements IDisposable\n@attribute [Authorize]\n"
	doc := lower(t, content, lowering.Options{}, parser.Options{})
	assert.Empty(t, diagnosticIDs(doc))

	assert.Equal(t, "Shop.Views", ir.NamespaceOf(doc).Name)
	class := ir.ClassOf(doc)
	assert.Equal(t, "BasePage<dynamic>", class.Type)
	assert.Equal(t, []string{"IDisposable"}, class.Interfaces)
	assert.Equal(t, []string{"[Authorize]"}, class.Attributes)
}

func TestFunctionsMoveToClass(t *testing.T) {
	doc := lower(t, "@functions {\n    int Count() => 1;\n}\n", lowering.Options{}, parser.Options{})

	class := ir.ClassOf(doc)
	var code string
	for _, c := range class.Children {
		if c.Kind == ir.KindCSharpCode {
			code += c.Text()
		}
	}
	assert.Contains(t, code, "int Count() => 1;")
	assert.Empty(t, ir.Find(ir.MethodOf(doc), ir.KindCSharpCode))
}

func TestRuntimeRemovesDirectives(t *testing.T) {
	doc := lower(t, "@model Shop.Cart\n<p></p>", lowering.Options{}, parser.Options{})
	assert.Empty(t, ir.Find(doc, ir.KindDirective))
}

func TestPipelineDoesNotModifyInput(t *testing.T) {
	ctx := context.Background()
	doc := lowering.Lower(ctx, parse(t, "@inject List<string> Items\n<p>@Items.Count</p>", parser.Options{}), lowering.Options{})
	before, err := ir.Serialize(doc)
	require.NoError(t, err)

	first, err := lowering.DefaultPipeline().Run(ctx, doc, lowering.Options{})
	require.NoError(t, err)
	second, err := lowering.DefaultPipeline().Run(ctx, doc, lowering.Options{})
	require.NoError(t, err)

	after, err := ir.Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	a, err := ir.Serialize(first)
	require.NoError(t, err)
	b, err := ir.Serialize(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPipelineStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := lowering.Lower(ctx, parse(t, "<p></p>", parser.Options{}), lowering.Options{})
	_, err := lowering.DefaultPipeline().Run(ctx, doc, lowering.Options{})
	require.ErrorIs(t, err, context.Canceled)
}

type markerPass struct {
	name  string
	phase lowering.Phase
	order int
}

func (me markerPass) Name() string                    { return me.name }
func (me markerPass) Phase() lowering.Phase           { return me.phase }
func (me markerPass) Order() int                      { return me.order }
func (markerPass) Execute(*ir.Node, lowering.Options) {}

func TestPipelineOrdersPasses(t *testing.T) {
	p := lowering.NewPipeline(
		markerPass{name: "late", phase: lowering.PhaseOptimization},
		markerPass{name: "second", phase: lowering.PhaseDirectives, order: 5},
		markerPass{name: "first", phase: lowering.PhaseDirectives},
		markerPass{name: "tie", phase: lowering.PhaseDirectives, order: 5},
	)
	var names []string
	for _, pass := range p.Passes() {
		names = append(names, pass.Name())
	}
	assert.Equal(t, []string{"first", "second", "tie", "late"}, names)
}

func TestDirectiveValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "duplicate model", content: "@model A\n@model B\n", want: "RZ2001"},
		{name: "model in element", content: "<div>\n@model A\n</div>", want: "RZ2002"},
		{name: "model in code", content: "@{\n@model A\n}", want: "RZ2002"},
		{name: "nested section", content: "@section A {\n@section B {\n}\n}", want: "RZ2004"},
		{name: "duplicate section", content: "@section A {\n}\n@section A {\n}", want: "RZ2005"},
		{name: "page after markup", content: "<p></p>\n@page\n", want: "RZ2007"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := lower(t, tt.content, lowering.Options{}, parser.Options{})
			assert.Contains(t, diagnosticIDs(doc), tt.want)
		})
	}
}

func TestPageFirstIsValid(t *testing.T) {
	doc := lower(t, "\n@page \"/cart\"\n<p></p>", lowering.Options{}, parser.Options{})
	assert.Empty(t, diagnosticIDs(doc))
	assert.Equal(t, "true", doc.Annotation("page"))
	assert.Contains(t, ir.ClassOf(doc).Attributes[0], `"/cart"`)
}

func TestImportedDirectives(t *testing.T) {
	ctx := context.Background()
	imports := parser.Parse(ctx, position.NewDocument("Views/_ViewImports.cshtml", "@using Shop\n@inject IClock Clock\n@page\n"), parser.Options{})
	tree := parse(t, "@inject IClock Time\n", parser.Options{})

	doc := lowering.Lower(ctx, tree, lowering.Options{}, imports)
	doc, err := lowering.DefaultPipeline().Run(ctx, doc, lowering.Options{})
	require.NoError(t, err)

	var usings []string
	for _, u := range ir.Find(doc, ir.KindUsing) {
		usings = append(usings, u.Name)
	}
	assert.Contains(t, usings, "Shop")

	var props []string
	for _, p := range ir.Find(doc, ir.KindProperty) {
		props = append(props, p.Name)
	}
	assert.Equal(t, []string{"Clock", "Time"}, props)
	assert.Equal(t, []string{"RZ2008"}, diagnosticIDs(doc))
}

func TestRuntimeRender(t *testing.T) {
	res, _ := render(t, "<p>@(1+2)</p>", lowering.Options{}, parser.Options{})
	require.Empty(t, res.Diagnostics)

	assert.Equal(t, path+".g.cs", res.Path)
	assert.Contains(t, res.Text, "namespace Razor")
	assert.Contains(t, res.Text, "public class Views_Home_Index : global::Microsoft.AspNetCore.Mvc.Razor.RazorPage<dynamic>")
	assert.Contains(t, res.Text, "public async override global::System.Threading.Tasks.Task ExecuteAsync()")
	assert.Contains(t, res.Text, `WriteLiteral("<p>");`)
	assert.Contains(t, res.Text, "Write(1+2);")
	assert.Contains(t, res.Text, `WriteLiteral("</p>");`)
	assert.Contains(t, res.Text, `#line 1 "`+path+`"`)
}

func TestRuntimeRenderConditionalAttribute(t *testing.T) {
	res, _ := render(t, `<div class="box @cls">x</div>`, lowering.Options{}, parser.Options{})
	require.Empty(t, res.Diagnostics)

	assert.Contains(t, res.Text, `BeginWriteAttribute("class", " class=\"", 4, "\"", 20, 2);`)
	assert.Contains(t, res.Text, `WriteAttributeValue("", 12, "box", 12, 3, true);`)
	assert.Contains(t, res.Text, `WriteAttributeValue(" ", 15, cls, 16, 4, false);`)
	assert.Contains(t, res.Text, "EndWriteAttribute();")
}

func TestRuntimeRenderSection(t *testing.T) {
	res, _ := render(t, "@section Scripts {\n<script></script>\n}", lowering.Options{}, parser.Options{})
	require.Empty(t, res.Diagnostics)

	assert.Contains(t, res.Text, `DefineSection("Scripts", async() => {`)
	assert.Contains(t, res.Text, `<script></script>`)
}

func TestRuntimeRenderLiteralBytes(t *testing.T) {
	res, _ := render(t, "<p>@x</p><p>@y</p>", lowering.Options{LiteralBytes: true}, parser.Options{})
	require.Empty(t, res.Diagnostics)

	assert.Contains(t, res.Text, "private static readonly byte[] __razor_literal_0 = new byte[] { 60, 112, 62 };")
	assert.Contains(t, res.Text, "WriteLiteral(__razor_literal_0);")
	assert.NotContains(t, res.Text, `WriteLiteral("<p>");`)
}

func TestDesignTimeRender(t *testing.T) {
	res, _ := render(t, "@inject List<string> Items\n<p>@Items.Count</p>", lowering.Options{DesignTime: true}, parser.Options{})
	require.Empty(t, res.Diagnostics)

	assert.Contains(t, res.Text, "private void __RazorDirectiveTokenHelpers__()")
	assert.Contains(t, res.Text, "List<string> __typeHelper = default(List<string>);")
	assert.Contains(t, res.Text, "global::System.Object Items = null;")
	assert.Contains(t, res.Text, "__o = Items.Count;")
	assert.NotContains(t, res.Text, "WriteLiteral")
}

func widgetBinder() *taghelper.Binder {
	d := &taghelper.Descriptor{
		TypeName:         "Shop.WidgetTagHelper",
		AssemblyName:     "Shop",
		TagMatchingRules: []taghelper.TagMatchingRule{{TagName: "my-widget"}},
		BoundAttributes: []taghelper.BoundAttribute{
			{Name: "count", TypeName: "int", PropertyName: "Count"},
			{Name: "title", TypeName: "string", PropertyName: "Title"},
			{Name: "items", TypeName: "System.Collections.Generic.IDictionary<string, string>", PropertyName: "Items", IndexerNamePrefix: "item-", IndexerTypeName: "string"},
		},
	}
	return taghelper.NewBinder("", []*taghelper.Descriptor{d})
}

func TestTagHelperLowering(t *testing.T) {
	doc := lower(t, `<my-widget count="1 + 2" title="hi" class="x" />`, lowering.Options{}, parser.Options{Binder: widgetBinder()})
	assert.Empty(t, diagnosticIDs(doc))

	helpers := ir.Find(doc, ir.KindTagHelper)
	require.Len(t, helpers, 1)
	var kinds []ir.Kind
	for _, c := range helpers[0].Children {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []ir.Kind{ir.KindCreateTagHelper, ir.KindSetTagHelperProperty, ir.KindExtension, ir.KindExtension}, kinds)

	var fields []string
	for _, f := range ir.Find(ir.ClassOf(doc), ir.KindField) {
		fields = append(fields, f.Name)
	}
	assert.Contains(t, fields, "__Shop_WidgetTagHelper")
	assert.Contains(t, fields, "__tagHelperExecutionContext")
}

func TestTagHelperRender(t *testing.T) {
	res, _ := render(t, `<my-widget count="1 + 2" title="hi" class="x" />`, lowering.Options{}, parser.Options{Binder: widgetBinder()})
	require.Empty(t, res.Diagnostics)

	assert.Contains(t, res.Text, "__Shop_WidgetTagHelper = CreateTagHelper<global::Shop.WidgetTagHelper>();")
	assert.Contains(t, res.Text, "__Shop_WidgetTagHelper.Count = 1 + 2;")
	assert.Contains(t, res.Text, "__Shop_WidgetTagHelper.Title = (string)__tagHelperAttribute_0.Value;")
	assert.Contains(t, res.Text, "__tagHelperExecutionContext.AddHtmlAttribute(__tagHelperAttribute_1);")
	assert.Contains(t, res.Text, "await __tagHelperRunner.RunAsync(__tagHelperExecutionContext);")
}

func TestTagHelperDiagnostics(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "empty bound value", content: `<my-widget count="" />`, want: "RZ3006"},
		{name: "minimized bound attribute", content: `<my-widget count />`, want: "RZ3007"},
		{name: "indexer without key", content: `<my-widget item-="a" />`, want: "RZ3009"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := lower(t, tt.content, lowering.Options{}, parser.Options{Binder: widgetBinder()})
			assert.Contains(t, diagnosticIDs(doc), tt.want)
		})
	}
}

func TestMappingsRoundTrip(t *testing.T) {
	sources := []string{
		"<p>@(1+2)</p>",
		"@{ var x = 1; }\n<p>@x</p>",
		`<div class="box @cls">x</div>`,
		"@inject List<string> Items\n@Items.Count",
		"@using System.Text\n<p></p>",
		"@section Scripts {\n<p>@DateTime.Now</p>\n}",
	}
	for _, designTime := range []bool{false, true} {
		for _, content := range sources {
			res, doc := render(t, content, lowering.Options{DesignTime: designTime}, parser.Options{})
			require.NotEmpty(t, res.Mappings, content)
			for _, m := range res.Mappings {
				original, err := doc.Slice(m.Original)
				require.NoError(t, err)
				generated := res.Text[m.Generated.AbsoluteIndex:m.Generated.End()]
				assert.Equal(t, original, generated, "design time %v: %q", designTime, content)
			}
		}
	}
}
