package engine

import (
	"time"

	"github.com/hkaya/cortex-scheduler/internal/cache"
)

// Stats returns a snapshot of operational state.
//
// IsIdle semantics:
//   - only meaningful while running (false otherwise)
//   - measured from the last completed render of the slot, or from start when
//     the slot never rendered
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	running := s.started && !s.isDone()
	now := s.cfg.Now()

	st := Stats{
		Running:                 running,
		StartedAt:               s.monitor.StartTime(),
		LastTickAt:              s.monitor.LastTick(),
		Cycles:                  s.cycles,
		BlackScreens:            s.blackScreens,
		ConsecutiveBlackScreens: s.monitor.ConsecutiveBlackScreens(),
		DefaultRenders:          s.defaultRenders,
		NoopViews:               s.noopViews,
		RenderFailures:          s.renderFailures,
		DefaultSlot:             s.defaultSlot,
		Slots:                   make(map[string]SlotStats),
	}

	if s.cache != nil {
		st.CacheMode = s.cache.Mode().String()
		st.CacheLen = s.cache.Len()
		st.CacheEvictions = s.cache.Evictions()
	}

	add := func(name, class string, pending int) {
		ss := SlotStats{Name: name, Class: class, Pending: pending}
		if c, ok := s.slots[name]; ok {
			ss.Submitted = c.submitted
			ss.Rendered = c.rendered
			ss.Failed = c.failed
			ss.LastRenderedAt = c.lastRenderedAt
		}
		if running {
			since := ss.LastRenderedAt
			if since.IsZero() {
				since = st.StartedAt
			}
			ss.IsIdle = now.Sub(since) > s.cfg.IdleThreshold
		}
		st.Slots[name] = ss
	}

	for i := 0; i < s.registry.PrimaryLen(); i++ {
		name, q := s.registry.PrimaryAt(i)
		add(name, "primary", q.Len())
	}
	for i := 0; i < s.registry.FallbackLen(); i++ {
		name, q := s.registry.FallbackAt(i)
		add(name, "fallback", q.Len())
	}
	if s.cache != nil && s.cache.Mode() == cache.ModeQueue {
		add(s.defaultSlot, "default", s.cache.Len())
	}

	return st
}

func (s *Scheduler) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Uptime returns how long ago Start was called (0 before Start).
func (s *Scheduler) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.monitor.StartTime()
	if start.IsZero() {
		return 0
	}
	return s.cfg.Now().Sub(start)
}
