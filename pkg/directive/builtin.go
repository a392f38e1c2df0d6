package directive

var (
	InjectDirective = Build("inject", SingleLine).
		Usage(FileScopedMultipleOccurring).
		Description("Inject a service from the application's service container into a property.").
		Type("TypeName").Member("PropertyName").
		Descriptor()

	ModelDirective = Build("model", SingleLine).
		Usage(FileScopedSinglyOccurring).
		Description("Specify the view or page model for the page.").
		Type("TypeName").
		Descriptor()

	NamespaceDirective = Build("namespace", SingleLine).
		Usage(FileScopedSinglyOccurring).
		Description("Specify the base namespace for the generated class.").
		Namespace("Namespace").
		Descriptor()

	PageDirective = Build("page", SingleLine).
		Usage(FileScopedSinglyOccurring).
		Description("Mark the page as a routable page with an optional route template.").
		Optional(String, "RouteTemplate").
		Descriptor()

	SectionDirective = Build("section", RazorBlock).
		Description("Define a section to be rendered in the configured layout page.").
		Member("SectionName").
		Descriptor()

	FunctionsDirective = Build("functions", CodeBlock).
		Description("Specify a code block to be copied into the generated class as members.").
		Descriptor()

	InheritsDirective = Build("inherits", SingleLine).
		Usage(FileScopedSinglyOccurring).
		Description("Specify the base class of the generated class.").
		Type("TypeName").
		Descriptor()

	ImplementsDirective = Build("implements", SingleLine).
		Usage(FileScopedMultipleOccurring).
		Description("Declare an interface implemented by the generated class.").
		Type("TypeName").
		Descriptor()

	AttributeDirective = Build("attribute", SingleLine).
		Usage(FileScopedMultipleOccurring).
		Description("Specify an attribute for the generated class.").
		Attribute("Attribute").
		Descriptor()

	AddTagHelperDirective = Build("addTagHelper", SingleLine).
		Description("Register tag helpers matching the look up text.").
		Text("LookupText").
		Descriptor()

	RemoveTagHelperDirective = Build("removeTagHelper", SingleLine).
		Description("Remove tag helpers matching the look up text.").
		Text("LookupText").
		Descriptor()

	TagHelperPrefixDirective = Build("tagHelperPrefix", SingleLine).
		Usage(FileScopedSinglyOccurring).
		Description("Require a prefix on elements that should be treated as tag helpers.").
		Text("Prefix").
		Descriptor()
)

// TagHelperDirectives are always recognized; they drive descriptor discovery.
func TagHelperDirectives() []*Descriptor {
	return []*Descriptor{AddTagHelperDirective, RemoveTagHelperDirective, TagHelperPrefixDirective}
}

// Builtins returns the standard directive set in registration order.
func Builtins() []*Descriptor {
	return []*Descriptor{
		InjectDirective, ModelDirective, NamespaceDirective, PageDirective, SectionDirective, FunctionsDirective,
		InheritsDirective, ImplementsDirective, AttributeDirective,
		AddTagHelperDirective, RemoveTagHelperDirective, TagHelperPrefixDirective,
	}
}

// DefaultRegistry returns a new registry holding Builtins.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range Builtins() {
		_ = r.Register(d)
	}
	return r
}
