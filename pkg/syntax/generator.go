package syntax

import (
	"github.com/walteh/gorazor/pkg/directive"
	"github.com/walteh/gorazor/pkg/position"
)

// Generator tells lowering what a node contributes to the output. A nil
// generator contributes nothing on its own.
type Generator interface {
	isGenerator()
}

type MarkupGenerator struct{}

type ExpressionGenerator struct{}

type StatementGenerator struct{}

// DirectiveGenerator marks a directive block. Descriptor identity ties the
// block to the registration that produced it.
type DirectiveGenerator struct {
	Descriptor *directive.Descriptor
}

type DirectiveTokenGenerator struct {
	Token directive.TokenDescriptor
}

// Segment is a piece of source text with its start location.
type Segment struct {
	Value    string
	Location position.Location
}

type AttributeBlockGenerator struct {
	Name   string
	Prefix Segment
	Suffix Segment
}

type LiteralAttributeGenerator struct {
	Prefix Segment
	Value  Segment
}

type DynamicAttributeGenerator struct {
	Prefix     Segment
	ValueStart position.Location
}

type AddImportGenerator struct {
	Namespace string
}

// TagHelperGenerator marks a tag helper block; the binding lives on the block.
type TagHelperGenerator struct{}

func (MarkupGenerator) isGenerator()           {}
func (ExpressionGenerator) isGenerator()       {}
func (StatementGenerator) isGenerator()        {}
func (DirectiveGenerator) isGenerator()        {}
func (DirectiveTokenGenerator) isGenerator()   {}
func (AttributeBlockGenerator) isGenerator()   {}
func (LiteralAttributeGenerator) isGenerator() {}
func (DynamicAttributeGenerator) isGenerator() {}
func (AddImportGenerator) isGenerator()        {}
func (TagHelperGenerator) isGenerator()        {}

// DirectiveOf returns the descriptor of a directive block.
func DirectiveOf(b *Block) (*directive.Descriptor, bool) {
	if b == nil || b.Type != BlockDirective {
		return nil, false
	}
	g, ok := b.Generator.(DirectiveGenerator)
	if !ok || g.Descriptor == nil {
		return nil, false
	}
	return g.Descriptor, true
}
