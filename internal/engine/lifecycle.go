package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hkaya/cortex-scheduler/internal/view"
)

type signalKind int

const (
	signalReady signalKind = iota
	signalEnd
	signalError
)

// signal is a VideoSignals call funnelled to the loop goroutine.
type signal struct {
	kind signalKind
	err  error
}

// render drives one view through its lifecycle and returns nil once End has
// fired, or the error handed to the Error callback.
//
// States: Begun → Swapping → Waiting → Ended, or Begun/Swapping/Waiting → Failed.
//
// Completion (single channel per render):
//   - HTML:  Ready right after the swap, then a timer of v.Duration
//   - Video: Ready, End and Error arrive from the renderer through sigs; the
//     first terminal signal wins, later ones land in the buffer unread
//
// Renderer calls get a context detached from cancellation: Exit and Start's
// ctx never abort the render in flight.
func (s *Scheduler) render(ctx context.Context, v *view.View) error {
	rctx := context.WithoutCancel(ctx)

	s.log.Debug("scheduler: rendering view",
		"slot", v.Slot,
		"view_id", v.ID,
		"kind", v.Kind.String(),
	)

	// Begun
	if err := s.invoke(v, "begin", v.Callbacks.Begin); err != nil {
		return s.fail(v, fmt.Errorf("%w: begin callback: %w", ErrRender, err))
	}

	// Swapping
	sigs := make(chan signal, 2)
	if err := s.swap(rctx, v, videoSignals(sigs)); err != nil {
		return s.fail(v, err)
	}

	// Waiting
	switch v.Kind {
	case view.KindVideo:
		if err := s.awaitVideo(v, sigs); err != nil {
			return s.fail(v, err)
		}
	default:
		s.invoke(v, "ready", v.Callbacks.Ready)

		timer := time.NewTimer(v.Duration)
		<-timer.C
	}

	// Ended
	s.invoke(v, "end", v.Callbacks.End)
	return nil
}

// videoSignals builds the signals handed to the renderer. Ready is sent at
// most once; End and Error share one slot so only the first terminal signal
// is delivered. The buffer fits both, so senders never block.
func videoSignals(sigs chan<- signal) VideoSignals {
	var readyOnce, doneOnce sync.Once

	return VideoSignals{
		Ready: func() {
			readyOnce.Do(func() { sigs <- signal{kind: signalReady} })
		},
		End: func() {
			doneOnce.Do(func() { sigs <- signal{kind: signalEnd} })
		},
		Error: func(err error) {
			doneOnce.Do(func() { sigs <- signal{kind: signalError, err: err} })
		},
	}
}

// swap asks the renderer to hide the surface, install the content and show
// it again. Errors and panics are wrapped with ErrRender.
func (s *Scheduler) swap(ctx context.Context, v *view.View, signals VideoSignals) (err error) {
	stage := "transition out"
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrRender, stage, r)
		}
	}()

	if err := s.renderer.TransitionOut(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, stage, err)
	}

	switch v.Kind {
	case view.KindHTML:
		stage = "install html"
		err = s.renderer.InstallHTML(ctx, v.Content)
	case view.KindVideo:
		stage = "install video"
		err = s.renderer.InstallVideo(ctx, v.File, v.Options, signals)
	default:
		return fmt.Errorf("%w: %s view is not renderable", ErrRender, v.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, stage, err)
	}

	stage = "transition in"
	if err := s.renderer.TransitionIn(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRender, stage, err)
	}
	return nil
}

// awaitVideo blocks until the renderer reports End or Error. Ready fires here,
// on the loop goroutine, so it never overlaps another callback of v.
func (s *Scheduler) awaitVideo(v *view.View, sigs <-chan signal) error {
	for sig := range sigs {
		switch sig.kind {
		case signalReady:
			s.invoke(v, "ready", v.Callbacks.Ready)
		case signalEnd:
			return nil
		case signalError:
			return fmt.Errorf("%w: video playback: %w", ErrRender, sig.err)
		}
	}
	return nil
}

// fail takes a view down the error path: log, then its Error callback.
func (s *Scheduler) fail(v *view.View, err error) error {
	s.log.Error("scheduler: view failed",
		"slot", v.Slot,
		"view_id", v.ID,
		"kind", v.Kind.String(),
		"error", err,
	)

	if v.Callbacks.Error != nil {
		s.invoke(v, "error", func() { v.Callbacks.Error(err) })
	}
	return err
}

// viewEnded runs the OnViewEnd hook with a copy of v, after the cycle's
// completion was recorded.
func (s *Scheduler) viewEnded(v *view.View) {
	hook := s.cfg.Hooks.OnViewEnd
	if hook == nil {
		return
	}
	cp := *v
	s.invoke(v, "on_view_end", func() { hook(cp) })
}

// invoke calls fn if set. A panic is recovered, logged, and returned so the
// begin stage can route it to the error path.
func (s *Scheduler) invoke(v *view.View, name string, fn func()) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", name, r)
			s.log.Warn("scheduler: callback panicked",
				"slot", v.Slot,
				"view_id", v.ID,
				"callback", name,
				"panic", r,
			)
		}
	}()
	fn()
	return nil
}
