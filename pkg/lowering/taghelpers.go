package lowering

import (
	"strings"

	"github.com/walteh/gorazor/pkg/codegen"
	"github.com/walteh/gorazor/pkg/diagnostic"
	"github.com/walteh/gorazor/pkg/ir"
	"github.com/walteh/gorazor/pkg/syntax"
	"github.com/walteh/gorazor/pkg/taghelper"
)

// TagHelperPass creates the helpers of every TagHelper node, names the field
// each one lives in and checks the bound attribute values.
type TagHelperPass struct{}

func (TagHelperPass) Name() string { return "tag-helpers" }
func (TagHelperPass) Phase() Phase { return PhaseTagHelpers }
func (TagHelperPass) Order() int   { return 0 }

func (TagHelperPass) Execute(doc *ir.Node, opts Options) {
	helpers := ir.Find(doc, ir.KindTagHelper)
	class := ir.ClassOf(doc)
	if len(helpers) == 0 || class == nil {
		return
	}

	var members []*ir.Node
	if !opts.DesignTime {
		members = codegen.RuntimeTagHelperFields()
	}
	declared := map[string]bool{}
	for _, th := range helpers {
		info := th.TagHelper
		if info == nil || info.Binding == nil {
			continue
		}
		var creates []*ir.Node
		for _, d := range info.Binding.Descriptors {
			field := FieldName(d)
			if !declared[field] {
				declared[field] = true
				f := ir.Synthesized(ir.KindField)
				f.Name = field
				f.Type = "global::" + d.TypeName
				f.Modifiers = []string{"private"}
				members = append(members, f)
			}
			c := ir.Synthesized(ir.KindCreateTagHelper)
			c.TagHelper = &ir.TagHelperInfo{TagName: info.TagName, Descriptor: d, Field: field}
			creates = append(creates, c)
		}

		at := 0
		if len(th.Children) > 0 && th.Children[0].Kind == ir.KindTagHelperBody {
			at = 1
		}
		th.Insert(at, creates...)

		types := map[string]map[string]bool{}
		first := map[string]*ir.Node{}
		for _, c := range th.Children {
			if c.Kind != ir.KindSetTagHelperProperty {
				continue
			}
			c.TagHelper.Field = FieldName(c.TagHelper.Descriptor)
			validateProperty(c, info.TagName)

			name := strings.ToLower(c.Name)
			if types[name] == nil {
				types[name] = map[string]bool{}
				first[name] = c
			}
			types[name][propertyType(c.TagHelper.Attribute)] = true
		}
		for name, seen := range types {
			if len(seen) > 1 {
				n := first[name]
				n.Report(diagnostic.TagHelperAttributeMissingBinding, n.Source, n.Name, info.TagName)
			}
		}
	}
	insertBeforeMethod(class, members...)
}

// FieldName is the class field holding instances of a helper type.
func FieldName(d *taghelper.Descriptor) string {
	return "__" + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, d.TypeName)
}

func propertyType(m taghelper.AttributeMatch) string {
	if m.Indexer {
		return m.Attribute.IndexerTypeName
	}
	return m.Attribute.TypeName
}

func isBooleanType(name string) bool {
	return name == "bool" || name == "System.Boolean"
}

func validateProperty(n *ir.Node, tagName string) {
	m := n.TagHelper.Attribute
	typeName := propertyType(m)
	if m.Indexer && m.Key == "" {
		n.Report(diagnostic.IndexerAttributeMissingKey, n.Source, n.Name, tagName, tagName, n.Name)
		return
	}
	if codegen.IsStringValue(n) {
		return
	}
	if n.TagHelper.Style == syntax.Minimized {
		if !isBooleanType(typeName) {
			n.Report(diagnostic.MinimizedBoundAttribute, n.Source, n.Name, tagName, typeName)
		}
		return
	}
	if strings.TrimSpace(ir.TextOf(n, ir.CSharp)+ir.TextOf(n, ir.Html)) == "" {
		n.Report(diagnostic.EmptyBoundAttribute, n.Source, n.Name, tagName, typeName)
	}
}
