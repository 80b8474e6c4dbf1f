package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hkaya/cortex-scheduler/internal/cache"
	"github.com/hkaya/cortex-scheduler/internal/view"
)

// SubmitView queues an HTML view.
//
// Fails with ErrRange unless 0 < duration ≤ MaxViewDuration (the bound itself
// is accepted), and with ErrUnknownSlot for unregistered slots.
func (s *Scheduler) SubmitView(slot, content string, duration time.Duration, callbacks view.Callbacks) error {
	if duration <= 0 || duration > s.cfg.MaxViewDuration {
		return fmt.Errorf("%w: %v not in (0, %v]", ErrRange, duration, s.cfg.MaxViewDuration)
	}

	return s.submit(&view.View{
		Kind:      view.KindHTML,
		Slot:      slot,
		Content:   content,
		Duration:  duration,
		Callbacks: callbacks,
	})
}

// SubmitVideo queues a video view. Its duration is decided by playback.
func (s *Scheduler) SubmitVideo(slot, file string, callbacks view.Callbacks, options map[string]any) error {
	return s.submit(&view.View{
		Kind:      view.KindVideo,
		Slot:      slot,
		File:      file,
		Options:   options,
		Callbacks: callbacks,
	})
}

// SubmitNoop queues a view that only fires its callbacks when selected and
// never occupies the display.
func (s *Scheduler) SubmitNoop(slot string, callbacks view.Callbacks) error {
	return s.submit(&view.View{
		Kind:      view.KindNoop,
		Slot:      slot,
		Callbacks: callbacks,
	})
}

// SubmitDefaultView submits an HTML view to the designated default slot,
// designating DefaultSlotName first when none was set.
func (s *Scheduler) SubmitDefaultView(content string, duration time.Duration, callbacks view.Callbacks) error {
	s.mu.Lock()
	if s.cache == nil {
		if err := s.setDefaultViewLocked(DefaultSlotName); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	slot := s.defaultSlot
	s.mu.Unlock()

	return s.SubmitView(slot, content, duration, callbacks)
}

// submit stamps and routes v.
//
// Routing:
//  1. Default slot, Queue mode: buffer into the cache and stop (Noop rejected)
//  2. Default slot, Track mode: mirror a callback-free copy, then continue
//  3. Push onto the primary or fallback queue, else ErrUnknownSlot
func (s *Scheduler) submit(v *view.View) error {
	v.ID = uuid.NewString()
	v.SubmittedAt = s.cfg.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && v.Slot == s.defaultSlot {
		if s.cache.Mode() == cache.ModeQueue {
			if v.Kind == view.KindNoop {
				return fmt.Errorf("%w: default view content must be renderable (got noop for %q)",
					ErrConfiguration, v.Slot)
			}
			s.cache.Put(v)
			s.counters(v.Slot).submitted++

			s.log.Debug("scheduler: default view buffered",
				"slot", v.Slot,
				"view_id", v.ID,
				"kind", v.Kind.String(),
				"cache_len", s.cache.Len(),
			)
			return nil
		}

		if v.Kind != view.KindNoop {
			s.cache.Put(v.Shadow())
		}
	}

	q := s.registry.Queue(v.Slot)
	if q == nil {
		return fmt.Errorf("%w: %q", ErrUnknownSlot, v.Slot)
	}
	q.Push(v)
	s.counters(v.Slot).submitted++

	s.log.Debug("scheduler: view submitted",
		"slot", v.Slot,
		"view_id", v.ID,
		"kind", v.Kind.String(),
		"duration", v.Duration,
		"pending", q.Len(),
	)
	return nil
}
