package directive

import (
	"maps"
	"slices"
	"sync"

	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

var ErrConflict = errors.Base("conflicting directive registration")

// Registry maps directive names to descriptors. Lookups are safe for
// concurrent use; registration is expected to finish before parsing starts.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]*Descriptor
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byKey: map[string]*Descriptor{}}
}

// Register adds d. Re-registering the same signature is a no-op. A different
// signature for a name where either side is FileScopedSinglyOccurring is a
// configuration error; otherwise the later registration replaces the earlier.
func (me *Registry) Register(d *Descriptor) error {
	if d == nil || d.Directive == "" {
		return errors.Errorf("registering directive: descriptor has no name")
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	prev, ok := me.byKey[d.Directive]
	if !ok {
		me.byKey[d.Directive] = d
		me.order = append(me.order, d.Directive)
		return nil
	}
	if prev.Signature() == d.Signature() {
		return nil
	}
	if prev.Usage == FileScopedSinglyOccurring || d.Usage == FileScopedSinglyOccurring {
		return errors.WithDetails(
			errors.Errorf("directive %q registered as %s and %s: %w", d.Directive, prev.Signature(), d.Signature(), ErrConflict),
			"directive", d.Directive,
		)
	}
	me.byKey[d.Directive] = d
	return nil
}

// RegisterAll registers every descriptor and reports all failures together.
func (me *Registry) RegisterAll(ds ...*Descriptor) error {
	var err error
	for _, d := range ds {
		err = multierr.Append(err, me.Register(d))
	}
	return err
}

func (me *Registry) Lookup(name string) (*Descriptor, bool) {
	me.mu.RLock()
	defer me.mu.RUnlock()
	d, ok := me.byKey[name]
	return d, ok
}

// All returns descriptors in first-registration order.
func (me *Registry) All() []*Descriptor {
	me.mu.RLock()
	defer me.mu.RUnlock()
	out := make([]*Descriptor, 0, len(me.order))
	for _, name := range me.order {
		out = append(out, me.byKey[name])
	}
	return out
}

func (me *Registry) Names() []string {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return slices.Sorted(maps.Keys(me.byKey))
}

// Clone copies the registry so an engine can extend a shared base set.
func (me *Registry) Clone() *Registry {
	me.mu.RLock()
	defer me.mu.RUnlock()
	return &Registry{byKey: maps.Clone(me.byKey), order: slices.Clone(me.order)}
}
