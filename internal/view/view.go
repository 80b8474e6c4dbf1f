// Package view defines the unit of content rotated by the scheduler and the
// per-slot FIFO that holds it until selection.
package view

import (
	"fmt"
	"time"
)

// Kind tags the variant carried by a View.
type Kind int

const (
	// KindHTML is an HTML fragment shown for a fixed Duration.
	KindHTML Kind = iota
	// KindVideo is a video file whose length is decided by playback.
	KindVideo
	// KindNoop carries no content; it only fires callbacks.
	KindNoop
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindVideo:
		return "video"
	case KindNoop:
		return "noop"
	default:
		return "unknown"
	}
}

const (
	// BlackScreenSlot is reserved for the synthesized black screen.
	BlackScreenSlot = "__bs"

	// BlackScreenDuration is how long a black screen stays up.
	BlackScreenDuration = 1000 * time.Millisecond
)

// Callbacks are the optional lifecycle hooks of a single view.
//
// A nil field is a no-op. The scheduler fires each hook at most once, in the
// order Begin → Ready → (End | Error).
type Callbacks struct {
	Begin func()
	Ready func()
	End   func()
	Error func(err error)
}

// IsZero reports whether no hook is set.
func (c Callbacks) IsZero() bool {
	return c.Begin == nil && c.Ready == nil && c.End == nil && c.Error == nil
}

// View is a piece of content addressed to a slot.
//
// Ownership: created at submission, owned by the Queue it is pushed into until
// the scheduler pops it, discarded once its callbacks have fired.
type View struct {
	// ID is assigned at submission (uuid); used in logs and view-end events.
	ID string

	// OriginID is the ID of the submission a Track-mode replay mirrors;
	// empty for views that were submitted directly.
	OriginID string

	// Kind selects which of the content fields below are meaningful.
	Kind Kind

	// Slot is the name the view was submitted to.
	Slot string

	// Content and Duration are set for KindHTML.
	Content  string
	Duration time.Duration

	// File and Options are set for KindVideo. File is opaque to the scheduler
	// (path or URI); Options are passed through to the renderer untouched.
	File    string
	Options map[string]any

	Callbacks Callbacks

	// SubmittedAt is stamped by the scheduler when the view is accepted.
	SubmittedAt time.Time
}

// IsBlackScreen reports whether v is the synthesized black screen.
func (v *View) IsBlackScreen() bool {
	return v.Slot == BlackScreenSlot
}

// Renderable reports whether the view occupies a render cycle.
func (v *View) Renderable() bool {
	return v.Kind == KindHTML || v.Kind == KindVideo
}

// Shadow returns a copy of v without callbacks, used when mirroring a
// submission into the default-view cache so hooks never fire twice.
func (v *View) Shadow() *View {
	cp := *v
	cp.OriginID = v.ID
	cp.Callbacks = Callbacks{}
	if v.Options != nil {
		cp.Options = make(map[string]any, len(v.Options))
		for k, val := range v.Options {
			cp.Options[k] = val
		}
	}
	return &cp
}

// Replay returns a copy of shadow v stamped with id, so every render of the
// same cache entry is reported under its own ID.
func (v *View) Replay(id string) *View {
	cp := *v
	cp.ID = id
	return &cp
}

// String renders a compact description for logs.
func (v *View) String() string {
	switch v.Kind {
	case KindHTML:
		return fmt.Sprintf("%s view %s@%s (%v)", v.Kind, v.ID, v.Slot, v.Duration)
	case KindVideo:
		return fmt.Sprintf("%s view %s@%s (%s)", v.Kind, v.ID, v.Slot, v.File)
	default:
		return fmt.Sprintf("%s view %s@%s", v.Kind, v.ID, v.Slot)
	}
}

// NewBlackScreen synthesizes the fallback of last resort.
//
// onError is attached as the Error callback; the black screen has no other
// hooks.
func NewBlackScreen(id string, onError func(error)) *View {
	return &View{
		ID:        id,
		Kind:      KindHTML,
		Slot:      BlackScreenSlot,
		Content:   "",
		Duration:  BlackScreenDuration,
		Callbacks: Callbacks{Error: onError},
	}
}
