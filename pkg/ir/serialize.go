package ir

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"gitlab.com/tozd/go/errors"
)

// Serialize renders the tree as indented XML. Equal trees serialize to equal
// text, which is what pass idempotence is checked against.
func Serialize(n *Node) (string, error) {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalAttrVal = true
	doc.AddChild(element(n))
	doc.Indent(2)

	out, err := doc.WriteToString()
	if err != nil {
		return "", errors.Errorf("serializing intermediate tree: %w", err)
	}
	return out, nil
}

func element(n *Node) *etree.Element {
	el := etree.NewElement(n.Kind.String())
	attr := func(key, value string) {
		if value != "" {
			el.CreateAttr(key, value)
		}
	}

	if n.HasSource() {
		attr("source", fmt.Sprintf("%d+%d", n.Source.AbsoluteIndex, n.Source.Length))
	}
	attr("name", n.Name)
	attr("type", n.Type)
	attr("modifiers", strings.Join(n.Modifiers, " "))
	attr("interfaces", strings.Join(n.Interfaces, ", "))
	attr("attributes", strings.Join(n.Attributes, " "))
	attr("prefix", n.Prefix)
	attr("suffix", n.Suffix)
	if n.Directive != nil {
		attr("directive", n.Directive.Directive)
	}
	if n.DirectiveToken != nil {
		attr("token", n.DirectiveToken.Kind.String())
	}
	if th := n.TagHelper; th != nil {
		attr("tag", th.TagName)
		if n.Kind == KindTagHelper {
			attr("mode", th.TagMode.String())
		}
		if th.Descriptor != nil {
			attr("helper", th.Descriptor.TypeName)
		}
		attr("field", th.Field)
		if n.Kind == KindSetTagHelperProperty {
			attr("property", th.Attribute.Attribute.PropertyName)
			attr("key", th.Attribute.Key)
		}
		if n.Kind == KindSetTagHelperProperty || n.Kind == KindAddTagHelperHtmlAttribute {
			attr("style", th.Style.String())
		}
	}
	if n.Extension != nil {
		attr("capability", n.Extension.Capability())
		attr("payload", n.Extension.Describe())
	}
	for _, k := range slices.Sorted(maps.Keys(n.Annotations)) {
		attr("annotation-"+k, n.Annotations[k])
	}

	// Content goes in an attribute: indenting drops whitespace-only text.
	switch n.Kind {
	case KindToken:
		el.CreateAttr("lang", n.Lang.String())
		el.CreateAttr("content", n.Content)
	case KindDirectiveToken:
		el.CreateAttr("content", n.Content)
	}

	for _, d := range n.Diagnostics {
		de := el.CreateElement("Diagnostic")
		de.CreateAttr("id", d.ID)
		de.CreateAttr("severity", d.Severity.String())
		de.CreateAttr("at", fmt.Sprintf("%d+%d", d.Span.AbsoluteIndex, d.Span.Length))
		de.SetText(d.Message)
	}
	for _, c := range n.Children {
		el.AddChild(element(c))
	}
	return el
}
