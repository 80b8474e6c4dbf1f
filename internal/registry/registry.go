// Package registry keeps the ordered primary and fallback slot namespaces.
//
// Slots are registered once at setup and never removed. Order of
// registration is scan order: primaries are visited round-robin from the
// scheduler's cursor, fallbacks strictly in registration order.
package registry

import (
	"errors"
	"fmt"

	"github.com/hkaya/cortex-scheduler/internal/view"
)

// ErrNameConflict is returned when a name would live in both namespaces.
var ErrNameConflict = errors.New("registry: slot name already used in the other namespace")

// ErrInvalidName is returned for empty or reserved slot names.
var ErrInvalidName = errors.New("registry: invalid slot name")

// Class is the result of resolving a slot name.
type Class int

const (
	// Unknown means the name was never registered.
	Unknown Class = iota
	// Primary slots take part in round-robin selection.
	Primary
	// Fallback slots are consulted only when every primary slot is empty.
	Fallback
)

// String returns a human-readable name for the class
func (c Class) String() string {
	switch c {
	case Primary:
		return "primary"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Registry maps slot names to their queues, keeping insertion order in
// explicit slices (map iteration order is never relied upon).
//
// Not safe for concurrent use; guarded by the scheduler's state mutex.
type Registry struct {
	primaryOrder []string
	primary      map[string]*view.Queue

	fallbackOrder []string
	fallback      map[string]*view.Queue
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		primary:  make(map[string]*view.Queue),
		fallback: make(map[string]*view.Queue),
	}
}

// Register adds name as a primary slot and, when fallbackName is not empty,
// fallbackName as a fallback slot. Both additions are idempotent.
//
// Returns ErrInvalidName for empty or reserved names and ErrNameConflict when
// a name is already registered in the other namespace. Validation happens
// before any mutation: a failed call leaves the registry unchanged.
func (r *Registry) Register(name, fallbackName string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if _, ok := r.fallback[name]; ok {
		return fmt.Errorf("%w: %q is a fallback slot", ErrNameConflict, name)
	}
	if fallbackName != "" {
		if err := checkName(fallbackName); err != nil {
			return err
		}
		if fallbackName == name {
			return fmt.Errorf("%w: %q cannot be its own fallback", ErrNameConflict, name)
		}
		if _, ok := r.primary[fallbackName]; ok {
			return fmt.Errorf("%w: %q is a primary slot", ErrNameConflict, fallbackName)
		}
	}

	if _, ok := r.primary[name]; !ok {
		r.primary[name] = view.NewQueue()
		r.primaryOrder = append(r.primaryOrder, name)
	}
	if fallbackName != "" {
		if _, ok := r.fallback[fallbackName]; !ok {
			r.fallback[fallbackName] = view.NewQueue()
			r.fallbackOrder = append(r.fallbackOrder, fallbackName)
		}
	}
	return nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if name == view.BlackScreenSlot {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidName, name)
	}
	return nil
}

// Resolve classifies name.
func (r *Registry) Resolve(name string) Class {
	if _, ok := r.primary[name]; ok {
		return Primary
	}
	if _, ok := r.fallback[name]; ok {
		return Fallback
	}
	return Unknown
}

// Queue returns the queue of a registered slot, or nil.
func (r *Registry) Queue(name string) *view.Queue {
	if q, ok := r.primary[name]; ok {
		return q
	}
	return r.fallback[name]
}

// PrimaryLen returns the number of primary slots.
func (r *Registry) PrimaryLen() int { return len(r.primaryOrder) }

// PrimaryAt returns the i-th primary slot in registration order.
func (r *Registry) PrimaryAt(i int) (string, *view.Queue) {
	name := r.primaryOrder[i]
	return name, r.primary[name]
}

// Primaries returns primary slot names in registration order.
func (r *Registry) Primaries() []string {
	return append([]string(nil), r.primaryOrder...)
}

// Fallbacks returns fallback slot names in registration order.
func (r *Registry) Fallbacks() []string {
	return append([]string(nil), r.fallbackOrder...)
}

// FallbackAt returns the i-th fallback slot in registration order.
func (r *Registry) FallbackAt(i int) (string, *view.Queue) {
	name := r.fallbackOrder[i]
	return name, r.fallback[name]
}

// FallbackLen returns the number of fallback slots.
func (r *Registry) FallbackLen() int { return len(r.fallbackOrder) }
