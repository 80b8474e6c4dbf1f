package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hkaya/cortex-scheduler/internal/view"
)

// errExitRequested is the halt reason when Exit (or Stop) ended the loop.
var errExitRequested = errors.New("scheduler: exit requested")

// source tells where a selected view came from.
type source int

const (
	sourcePrimary source = iota
	sourceFallback
	sourceDefault
	sourceBlackScreen
)

func (s source) String() string {
	switch s {
	case sourcePrimary:
		return "primary"
	case sourceFallback:
		return "fallback"
	case sourceDefault:
		return "default"
	case sourceBlackScreen:
		return "black_screen"
	default:
		return "unknown"
	}
}

// resetsStreak reports whether completing a view from this source clears the
// black-screen streak.
func (s source) resetsStreak() bool {
	return s == sourcePrimary || s == sourceFallback
}

// selection is the outcome of one selection step.
type selection struct {
	view   *view.View
	source source

	// noops popped on the way; their callbacks fire before view renders.
	noops []*view.View
}

// loop runs cycles until exit is requested or ctx is cancelled.
//
// Cycle N+1 never starts before cycle N's completion. Selection, Noop
// callbacks, the render and the OnViewEnd hook all run on this goroutine.
func (s *Scheduler) loop(ctx context.Context) {
	var reason error
	defer func() { s.halted(reason) }()

	for {
		if s.exitRequested.Load() {
			reason = errExitRequested
			return
		}
		if err := ctx.Err(); err != nil {
			reason = err
			return
		}

		started := s.cfg.Now()
		sel := s.selectNext()

		for _, n := range sel.noops {
			s.fireNoop(n)
		}

		err := s.render(ctx, sel.view)
		s.complete(sel, err)
		if err == nil {
			s.viewEnded(sel.view)
		}

		s.log.Debug("scheduler: cycle completed",
			"slot", sel.view.Slot,
			"view_id", sel.view.ID,
			"source", sel.source.String(),
			"elapsed_ms", s.cfg.Now().Sub(started).Milliseconds(),
		)
	}
}

// selectNext picks the view for this cycle. It always returns a renderable
// view: the black screen is synthesized when nothing else is available.
//
// Algorithm:
//  1. Tick the health monitor
//  2. Scan up to len(primaries) slots starting at cursor, advancing the
//     cursor at each check; the first non-empty queue yields its head
//     - HTML/Video → render it
//     - Noop       → collect it and stop scanning primaries
//  3. Scan fallbacks in registration order, one pop per slot; a Noop is
//     collected and the scan moves on to the next fallback slot
//  4. Read the default-view cache (mode-appropriate)
//  5. Synthesize the black screen and extend the streak
func (s *Scheduler) selectNext() selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.monitor.Tick()
	s.cycles++

	var sel selection

	if n := s.registry.PrimaryLen(); n > 0 {
		for i := 0; i < n; i++ {
			_, q := s.registry.PrimaryAt(s.cursor % n)
			s.cursor = (s.cursor + 1) % n

			v := q.Pop()
			if v == nil {
				continue
			}
			if v.Kind == view.KindNoop {
				sel.noops = append(sel.noops, v)
				break
			}
			sel.view, sel.source = v, sourcePrimary
			return sel
		}
	}

	for i := 0; i < s.registry.FallbackLen(); i++ {
		_, q := s.registry.FallbackAt(i)

		v := q.Pop()
		if v == nil {
			continue
		}
		if v.Kind == view.KindNoop {
			sel.noops = append(sel.noops, v)
			continue
		}
		sel.view, sel.source = v, sourceFallback
		return sel
	}

	if s.cache != nil {
		if v := s.cache.Next(); v != nil {
			if v.OriginID != "" {
				v = v.Replay(uuid.NewString())
			}
			s.defaultRenders++
			sel.view, sel.source = v, sourceDefault
			return sel
		}
	}

	s.blackScreens++
	s.monitor.BlackScreen()

	bs := view.NewBlackScreen(uuid.NewString(), func(err error) {
		s.log.Error("scheduler: even black screens fail", "error", err)
	})
	bs.Duration = s.cfg.BlackScreenDuration
	bs.SubmittedAt = s.cfg.Now()

	sel.view, sel.source = bs, sourceBlackScreen
	return sel
}

// complete records the outcome of a rendered view.
func (s *Scheduler) complete(sel selection, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sel.source.resetsStreak() {
		s.monitor.ContentRendered()
	}
	if sel.view.IsBlackScreen() {
		if err != nil {
			s.renderFailures++
		}
		return
	}

	c := s.counters(sel.view.Slot)
	if err != nil {
		s.renderFailures++
		c.failed++
		return
	}
	c.rendered++
	c.lastRenderedAt = s.cfg.Now()
}

// fireNoop runs the callbacks of a Noop view: Begin then End. A Noop never
// reaches the renderer and has no duration.
func (s *Scheduler) fireNoop(v *view.View) {
	s.mu.Lock()
	s.noopViews++
	s.mu.Unlock()

	s.log.Debug("scheduler: noop view", "slot", v.Slot, "view_id", v.ID)

	s.invoke(v, "begin", v.Callbacks.Begin)
	s.invoke(v, "end", v.Callbacks.End)
}
