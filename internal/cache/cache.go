// Package cache implements the default-view cache: the bounded buffer the
// scheduler reads when every primary and fallback slot is empty.
//
// Two modes:
//
//   - Queue: explicit default content, consumed FIFO (a read pops).
//   - Track: shadow of a live slot, replayed round-robin (a read advances a
//     cursor and never removes).
//
// In both modes the buffer holds at most Capacity views; a write into a full
// buffer evicts the oldest entry.
package cache

import "github.com/hkaya/cortex-scheduler/internal/view"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 10

// Mode selects how the buffer is read.
type Mode int

const (
	// ModeQueue consumes entries on read.
	ModeQueue Mode = iota
	// ModeTrack replays entries round-robin without consuming them.
	ModeTrack
)

// String returns a human-readable name for the mode
func (m Mode) String() string {
	switch m {
	case ModeQueue:
		return "queue"
	case ModeTrack:
		return "track"
	default:
		return "unknown"
	}
}

// Cache is a bounded ring of views.
//
// Not safe for concurrent use; the scheduler serializes access under its
// state mutex.
type Cache struct {
	mode     Mode
	capacity int

	ring  []*view.View // fixed-size backing array
	start int          // index of the oldest entry
	count int          // live entries, 0 ≤ count ≤ capacity

	// cursor is the logical offset (0 = oldest) of the next Track read.
	cursor int

	evictions uint64
}

// New creates an empty cache.
func New(mode Mode, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		mode:     mode,
		capacity: capacity,
		ring:     make([]*view.View, capacity),
	}
}

// Mode returns the read mode.
func (c *Cache) Mode() Mode { return c.mode }

// Capacity returns the maximum number of buffered views.
func (c *Cache) Capacity() int { return c.capacity }

// Len returns the number of buffered views.
func (c *Cache) Len() int { return c.count }

// Evictions returns how many views were dropped because the buffer was full.
func (c *Cache) Evictions() uint64 { return c.evictions }

// Put buffers v, evicting the oldest entry when full.
//
// Track mode keeps the cursor on the same logical entry across an eviction; if
// the cursor pointed at the evicted entry it moves to the new oldest one.
func (c *Cache) Put(v *view.View) {
	if c.count == c.capacity {
		c.ring[c.start] = nil
		c.start = (c.start + 1) % c.capacity
		c.count--
		c.evictions++
		if c.cursor > 0 {
			c.cursor--
		}
	}

	c.ring[(c.start+c.count)%c.capacity] = v
	c.count++
}

// Next returns the next default view, or nil when the buffer is empty.
//
// Queue mode pops the oldest entry. Track mode returns the entry under the
// cursor and advances it, wrapping at the end.
func (c *Cache) Next() *view.View {
	if c.count == 0 {
		return nil
	}

	if c.mode == ModeQueue {
		v := c.ring[c.start]
		c.ring[c.start] = nil
		c.start = (c.start + 1) % c.capacity
		c.count--
		return v
	}

	if c.cursor >= c.count {
		c.cursor = 0
	}
	v := c.ring[(c.start+c.cursor)%c.capacity]
	c.cursor = (c.cursor + 1) % c.count
	return v
}

// Snapshot returns the buffered views oldest first, without consuming them.
func (c *Cache) Snapshot() []*view.View {
	out := make([]*view.View, 0, c.count)
	for i := 0; i < c.count; i++ {
		out = append(out, c.ring[(c.start+i)%c.capacity])
	}
	return out
}
