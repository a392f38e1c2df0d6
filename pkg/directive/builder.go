package directive

// Builder assembles a Descriptor fluently.
//
//	directive.Build("inject", directive.SingleLine).
//		Type("TypeName").Member("PropertyName").
//		Descriptor()
type Builder struct {
	d Descriptor
}

func Build(name string, kind Kind) *Builder {
	return &Builder{d: Descriptor{Directive: name, DisplayName: name, Kind: kind}}
}

func (me *Builder) Usage(u Usage) *Builder {
	me.d.Usage = u
	return me
}

func (me *Builder) Description(desc string) *Builder {
	me.d.Description = desc
	return me
}

func (me *Builder) DisplayName(name string) *Builder {
	me.d.DisplayName = name
	return me
}

func (me *Builder) token(kind TokenKind, name string, optional bool) *Builder {
	me.d.Tokens = append(me.d.Tokens, TokenDescriptor{Kind: kind, Name: name, Optional: optional})
	return me
}

func (me *Builder) Type(name string) *Builder      { return me.token(Type, name, false) }
func (me *Builder) Member(name string) *Builder    { return me.token(Member, name, false) }
func (me *Builder) String(name string) *Builder    { return me.token(String, name, false) }
func (me *Builder) Namespace(name string) *Builder { return me.token(Namespace, name, false) }
func (me *Builder) Attribute(name string) *Builder { return me.token(Attribute, name, false) }
func (me *Builder) Boolean(name string) *Builder   { return me.token(Boolean, name, false) }
func (me *Builder) Text(name string) *Builder      { return me.token(Text, name, false) }

// Optional appends an optional token of the given kind.
func (me *Builder) Optional(kind TokenKind, name string) *Builder {
	return me.token(kind, name, true)
}

func (me *Builder) Descriptor() *Descriptor {
	d := me.d
	d.Tokens = append([]TokenDescriptor(nil), me.d.Tokens...)
	return &d
}
