// Package eventbus fans view-end events out to host consumers (MQTT emitter,
// health report) without ever blocking the scheduler loop.
package eventbus

import (
	"errors"
	"time"

	"github.com/hkaya/cortex-scheduler/internal/view"
)

var (
	ErrBusClosed          = errors.New("eventbus: bus is closed")
	ErrSubscriberExists   = errors.New("eventbus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("eventbus: subscriber not found")
	ErrNilChannel         = errors.New("eventbus: nil channel provided")
)

// DropPolicy defines how the bus handles events when a subscriber cannot keep up
type DropPolicy int

const (
	// DropNew drops incoming events while the subscriber's channel is full
	DropNew DropPolicy = iota
	// DropOld keeps only the latest event
	DropOld
)

// Event describes one completed view.
type Event struct {
	Sequence   uint64    `json:"seq" msgpack:"seq"`
	ViewID     string    `json:"view_id" msgpack:"view_id"`
	OriginID   string    `json:"origin_id,omitempty" msgpack:"origin_id,omitempty"`
	Slot       string    `json:"slot" msgpack:"slot"`
	Kind       string    `json:"kind" msgpack:"kind"`
	DurationMs int64     `json:"duration_ms,omitempty" msgpack:"duration_ms,omitempty"`
	File       string    `json:"file,omitempty" msgpack:"file,omitempty"`
	EndedAt    time.Time `json:"ended_at" msgpack:"ended_at"`
}

// ViewEnded builds the event for v.
func ViewEnded(v view.View, at time.Time) Event {
	return Event{
		ViewID:     v.ID,
		OriginID:   v.OriginID,
		Slot:       v.Slot,
		Kind:       v.Kind.String(),
		DurationMs: v.Duration.Milliseconds(),
		File:       v.File,
		EndedAt:    at,
	}
}

// Receiver gives access to the latest event of a DropOld subscriber
type Receiver interface {
	Receive() (Event, bool)
	TryReceive() (Event, bool)
	Close()
}

// SubscriberStats tracks event distribution metrics
type SubscriberStats struct {
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped"`
}

// Bus distributes events to multiple subscribers
type Bus interface {
	Subscribe(id string, ch chan<- Event) error
	SubscribeLatest(id string) (Receiver, error)
	Publish(ev Event)
	Unsubscribe(id string) error
	Stats(id string) (*SubscriberStats, error)
	Published() uint64
	Close()
}
