// Package extension holds the intermediate node kinds that live outside the
// core set, together with the target extensions that write them.
//
// Each payload names a capability; the code generator resolves it through
// its target registry when it meets the node:
//
//	ir.KindExtension{Section}              ──▶ "section"
//	ir.KindExtension{LiteralBytes}         ──▶ "literal-bytes"
//	ir.KindExtension{DesignTimeDirective}  ──▶ "design-time-directive"
//	ir.KindExtension{Preallocated*}        ──▶ "preallocated-attribute"
package extension

import (
	"github.com/walteh/gorazor/pkg/codegen"
)

const (
	SectionCapability             = "section"
	LiteralBytesCapability        = "literal-bytes"
	DesignTimeDirectiveCapability = "design-time-directive"
	PreallocatedCapability        = "preallocated-attribute"
)

// TargetExtensions returns the writers for every payload in this package.
func TargetExtensions() []codegen.TargetExtension {
	return []codegen.TargetExtension{
		SectionTargetExtension{},
		LiteralBytesTargetExtension{},
		DesignTimeDirectiveTargetExtension{},
		PreallocatedTargetExtension{},
	}
}
