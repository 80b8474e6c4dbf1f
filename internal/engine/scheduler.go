// Package engine implements the scheduling/fallback core.
//
// This package is INTERNAL - clients MUST use the public API in the root
// package.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hkaya/cortex-scheduler/internal/cache"
	"github.com/hkaya/cortex-scheduler/internal/health"
	"github.com/hkaya/cortex-scheduler/internal/registry"
	"github.com/hkaya/cortex-scheduler/internal/view"
)

// Scheduler is the concrete implementation of scheduler.Scheduler.
//
// Goroutine topology:
//   - 1 fixed: loop (spawned by Start, exits after the in-flight render once
//     Exit is requested or the Start context is cancelled)
//   - Renderer goroutines: owned by the Renderer, talk back only through
//     VideoSignals
//
// Thread-safety: all public methods are safe for concurrent use. State below
// mu is guarded by it; mu is held only across state transitions, never across
// a Renderer call or a user callback.
type Scheduler struct {
	cfg      Config
	renderer Renderer
	log      *slog.Logger

	// --- Scheduling State (guarded by mu) ---

	mu          sync.Mutex
	registry    *registry.Registry
	defaultSlot string       // "" until SetDefaultView
	cache       *cache.Cache // nil until SetDefaultView
	monitor     *health.Monitor
	cursor      int // round-robin index into the primary order

	// --- Operational Stats (guarded by mu) ---

	cycles         uint64
	blackScreens   uint64
	defaultRenders uint64
	noopViews      uint64
	renderFailures uint64
	slots          map[string]*slotCounters

	// --- Lifecycle ---

	started       bool        // guarded by mu
	exitRequested atomic.Bool // monotonic false→true
	done          chan struct{}
}

type slotCounters struct {
	submitted      uint64
	rendered       uint64
	failed         uint64
	lastRenderedAt time.Time
}

// New creates a scheduler bound to renderer.
//
// Fail-fast: a nil renderer is a configuration error.
func New(cfg Config, renderer Renderer) (*Scheduler, error) {
	if renderer == nil {
		return nil, fmt.Errorf("%w: renderer is required", ErrConfiguration)
	}
	cfg = cfg.withDefaults()

	s := &Scheduler{
		cfg:      cfg,
		renderer: renderer,
		log:      cfg.Logger,
		registry: registry.New(),
		monitor:  health.NewMonitor(cfg.Health, cfg.Now),
		slots:    make(map[string]*slotCounters),
		done:     make(chan struct{}),
	}

	s.log.Debug("scheduler: created",
		"max_view_duration", cfg.MaxViewDuration,
		"default_view_queue_len", cfg.DefaultViewQueueLen,
	)
	return s, nil
}

// Register adds a primary slot and an optional fallback slot.
//
// Idempotent for names already registered in the same namespace. Fails with
// ErrConfiguration when name (or fallback) is the default slot in Queue mode,
// or when the registry rejects the names.
func (s *Scheduler) Register(name, fallback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil && s.cache.Mode() == cache.ModeQueue &&
		(name == s.defaultSlot || fallback == s.defaultSlot) {
		return fmt.Errorf("%w: %q is the queue-mode default view; register it before SetDefaultView to track it",
			ErrConfiguration, s.defaultSlot)
	}

	if err := s.registry.Register(name, fallback); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	s.log.Info("scheduler: slot registered", "slot", name, "fallback", fallback)
	return nil
}

// SetDefaultView designates name as the fallback of last resort.
//
// Mode is decided by the registry at call time:
//   - name unregistered → Queue mode (submissions to name only fill the cache)
//   - name registered   → Track mode (submissions are delivered and mirrored)
//
// Only one designation is allowed per scheduler.
func (s *Scheduler) SetDefaultView(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDefaultViewLocked(name)
}

func (s *Scheduler) setDefaultViewLocked(name string) error {
	if s.cache != nil {
		return fmt.Errorf("%w: default view already set to %q", ErrConfiguration, s.defaultSlot)
	}
	if name == "" || name == view.BlackScreenSlot {
		return fmt.Errorf("%w: invalid default view name %q", ErrConfiguration, name)
	}

	mode := cache.ModeQueue
	if s.registry.Resolve(name) != registry.Unknown {
		mode = cache.ModeTrack
	}

	s.defaultSlot = name
	s.cache = cache.New(mode, s.cfg.DefaultViewQueueLen)

	s.log.Info("scheduler: default view set",
		"slot", name,
		"mode", mode.String(),
		"capacity", s.cache.Capacity(),
	)
	return nil
}

// Start launches the selection loop and returns immediately.
//
// Cancelling ctx has the same effect as Exit: the render in flight finishes,
// then the loop halts.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.monitor.Started()

	s.log.Info("scheduler: starting",
		"primary_slots", s.registry.Primaries(),
		"fallback_slots", s.registry.Fallbacks(),
		"default_slot", s.defaultSlot,
	)

	go s.loop(ctx)
	return nil
}

// Exit requests a cooperative halt. The render in flight is not aborted.
// Idempotent.
func (s *Scheduler) Exit() {
	if s.exitRequested.CompareAndSwap(false, true) {
		s.log.Info("scheduler: exit requested")
	}
}

// Done is closed once the loop has halted. Never closed if Start was not
// called.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Stop requests exit and waits for the loop to halt or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.Exit()

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

// CheckHealth evaluates the liveness/quality predicate.
func (s *Scheduler) CheckHealth() health.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.monitor.Check()
}

// counters returns the stats record of slot, creating it on first use.
// Caller holds mu.
func (s *Scheduler) counters(slot string) *slotCounters {
	c, ok := s.slots[slot]
	if !ok {
		c = &slotCounters{}
		s.slots[slot] = c
	}
	return c
}

// halted runs once when the loop exits.
func (s *Scheduler) halted(reason error) {
	s.mu.Lock()
	s.monitor.Stopped()
	cycles := s.cycles
	s.mu.Unlock()

	attrs := []any{"cycles", cycles}
	if reason != nil && !errors.Is(reason, errExitRequested) {
		attrs = append(attrs, "reason", reason)
	}
	s.log.Info("scheduler: halted", attrs...)
	close(s.done)
}
