package extension_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/extension"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/position"
	"github.com/walteh/gorazor/pkg/syntax"
)

func span(start, length int) position.Span {
	return position.NewSpan(position.Location{AbsoluteIndex: start, CharacterIndex: start}, length)
}

func render(t *testing.T, designTime bool, members []*ir.Node, body ...*ir.Node) *codegen.Result {
	t.Helper()
	method := ir.Synthesized(ir.KindMethod, body...)
	method.Name = "ExecuteAsync"
	method.Type = "Task"
	class := ir.Synthesized(ir.KindClass, append(members, method)...)
	class.Name = "Page"
	ns := ir.Synthesized(ir.KindNamespace, class)
	ns.Name = "Razor"
	doc := ir.Synthesized(ir.KindDocument, ns)

	target := codegen.NewTarget(codegen.Options{DesignTime: designTime}, extension.TargetExtensions()...)
	res := codegen.Render(context.Background(), doc, position.NewDocument("a.cshtml", "@model IClock"), target)
	require.Empty(t, res.Diagnostics)
	return res
}

func TestByteArrayInitializer(t *testing.T) {
	assert.Equal(t, "new byte[] { 60, 112, 62 }", extension.ByteArrayInitializer("<p>"))
	assert.Equal(t, "new byte[] { 195, 169 }", extension.ByteArrayInitializer("é"))
	assert.Equal(t, "new byte[] {  }", extension.ByteArrayInitializer(""))
}

func TestSection(t *testing.T) {
	html := ir.New(ir.KindHtmlContent, span(0, 8), ir.NewToken(ir.Html, "<script>", span(0, 8)))
	section := ir.NewExtension(&extension.Section{Name: "Scripts"}, span(0, 8), html)

	tests := []struct {
		name       string
		designTime bool
		want       string
	}{
		{name: "runtime", want: `DefineSection("Scripts", async() => {`},
		{name: "design time", designTime: true, want: `DefineSection("Scripts", async(__razor_section_writer) => {`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := render(t, tt.designTime, nil, section)
			assert.Contains(t, res.Text, tt.want)
			assert.Contains(t, res.Text, "}\n")
			assert.Contains(t, res.Text, ");\n")
		})
	}

	res := render(t, false, nil, section)
	assert.Contains(t, res.Text, `WriteLiteral("<script>");`)
}

func TestLiteralBytes(t *testing.T) {
	res := render(t, false, nil, ir.NewExtension(&extension.LiteralBytes{Field: "__razor_literal_0"}, span(0, 3)))
	assert.Contains(t, res.Text, "WriteLiteral(__razor_literal_0);\n")
}

func TestPreallocated(t *testing.T) {
	decl := &extension.Preallocated{
		Role:      extension.PreallocatedDeclaration,
		Variable:  "__tagHelperAttribute_0",
		Name:      "class",
		Value:     "btn",
		Style:     syntax.DoubleQuotes,
		HtmlValue: true,
	}
	assert.Equal(t, "declaration __tagHelperAttribute_0 class btn DoubleQuotes", decl.Describe())

	same := decl.Clone().(*extension.Preallocated)
	same.Variable = ""
	assert.Equal(t, decl.Key(), same.Key())
	same.HtmlValue = false
	assert.NotEqual(t, decl.Key(), same.Key())

	prop := &extension.Preallocated{
		Role:     extension.PreallocatedProperty,
		Variable: "__tagHelperAttribute_1",
		Name:     "title",
		Target:   "__Shop_Widget.Title",
		TypeName: "string",
	}
	html := &extension.Preallocated{Role: extension.PreallocatedHtmlAttribute, Variable: "__tagHelperAttribute_0", Name: "class"}

	res := render(t, false,
		[]*ir.Node{ir.NewExtension(decl, position.UndefinedSpan)},
		ir.NewExtension(html, span(0, 1)),
		ir.NewExtension(prop, span(1, 1)),
	)
	assert.Contains(t, res.Text, "private static readonly global::Microsoft.AspNetCore.Razor.TagHelpers.TagHelperAttribute __tagHelperAttribute_0 = "+
		"new global::Microsoft.AspNetCore.Razor.TagHelpers.TagHelperAttribute(\"class\", new global::Microsoft.AspNetCore.Html.HtmlString(\"btn\"), "+
		"global::Microsoft.AspNetCore.Razor.TagHelpers.HtmlAttributeValueStyle.DoubleQuotes);")
	assert.Contains(t, res.Text, "__tagHelperExecutionContext.AddHtmlAttribute(__tagHelperAttribute_0);")
	assert.Contains(t, res.Text, "__Shop_Widget.Title = (string)__tagHelperAttribute_1.Value;")
	assert.Contains(t, res.Text, "__tagHelperExecutionContext.AddTagHelperAttribute(__tagHelperAttribute_1);")
}

func TestDesignTimeDirective(t *testing.T) {
	token := func(kind directive.TokenKind, content string, at int) *ir.Node {
		n := ir.New(ir.KindDirectiveToken, span(at, len(content)))
		n.Content = content
		n.DirectiveToken = &directive.TokenDescriptor{Kind: kind}
		return n
	}
	helper := ir.NewExtension(&extension.DesignTimeDirective{}, position.UndefinedSpan,
		token(directive.Type, "IClock", 7),
		token(directive.Member, "Clock", 14),
		token(directive.Namespace, "Shop.Web", 20),
		token(directive.String, `"/home"`, 30),
		token(directive.Attribute, "[Obsolete]", 40),
		token(directive.Type, "", 50),
	)

	res := render(t, true, []*ir.Node{helper})
	assert.Contains(t, res.Text, "private void __RazorDirectiveTokenHelpers__()")
	assert.Contains(t, res.Text, "IClock __typeHelper = default(IClock);")
	assert.Contains(t, res.Text, "global::System.Object Clock = null;")
	assert.Contains(t, res.Text, "global::System.Object __typeHelper = nameof(Shop.Web);")
	assert.Contains(t, res.Text, `global::System.Object __typeHelper = "/home";`)
	assert.NotContains(t, res.Text, "[Obsolete]")
	assert.Contains(t, res.Text, "#pragma warning disable 219")
	assert.Len(t, res.Mappings, 4)
}
