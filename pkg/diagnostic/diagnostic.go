package diagnostic

import (
	"fmt"
	"slices"
	"strings"

	"github.com/walteh/gorazor/pkg/position"
)

// Severity of a diagnostic. Only errors fail a compilation.
type Severity int

const (
	Error Severity = iota + 1
	Warning
)

func (me Severity) String() string {
	switch me {
	case Error:
		return "error"
	case Warning:
		return "warning"
	}
	return fmt.Sprintf("severity(%d)", int(me))
}

// Descriptor is a catalog entry. Format is a fmt verb string filled by New.
type Descriptor struct {
	ID       string
	Severity Severity
	Format   string
}

func (me Descriptor) New(span position.Span, args ...any) Diagnostic {
	msg := me.Format
	if len(args) > 0 {
		msg = fmt.Sprintf(me.Format, args...)
	}
	return Diagnostic{ID: me.ID, Severity: me.Severity, Span: span, Message: msg}
}

// Diagnostic is a user-facing problem with the source being compiled.
type Diagnostic struct {
	ID       string
	Severity Severity
	Span     position.Span
	Message  string
}

func (me Diagnostic) IsError() bool {
	return me.Severity == Error
}

// String uses the classic compiler shape: path(line,col): error RZ1000: message.
func (me Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %s: %s", me.Span.Location, me.Severity, me.ID, me.Message)
}

func HasErrors(list []Diagnostic) bool {
	return slices.ContainsFunc(list, Diagnostic.IsError)
}

// Sort orders by file, position, then id. It is stable so equal entries keep
// their reporting order.
func Sort(list []Diagnostic) {
	slices.SortStableFunc(list, func(a, b Diagnostic) int {
		if c := strings.Compare(a.Span.FilePath, b.Span.FilePath); c != 0 {
			return c
		}
		if c := a.Span.Compare(b.Span.Location); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Count returns the number of errors and warnings.
func Count(list []Diagnostic) (errs, warnings int) {
	for _, d := range list {
		switch d.Severity {
		case Error:
			errs++
		case Warning:
			warnings++
		}
	}
	return errs, warnings
}

// Merge concatenates lists, sorts the result and drops exact duplicates. The
// same problem is often seen by more than one stage.
func Merge(lists ...[]Diagnostic) []Diagnostic {
	out := slices.Concat(lists...)
	Sort(out)
	return slices.Compact(out)
}
