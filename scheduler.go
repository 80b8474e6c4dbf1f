package scheduler

import (
	"context"
	"time"

	"github.com/hkaya/cortex-scheduler/internal/engine"
	"github.com/hkaya/cortex-scheduler/internal/health"
	"github.com/hkaya/cortex-scheduler/internal/view"
)

// View is re-exported from internal package.
// See internal/view/view.go for full documentation.
type View = view.View

// Kind tags the variant carried by a View.
type Kind = view.Kind

const (
	KindHTML  = view.KindHTML
	KindVideo = view.KindVideo
	KindNoop  = view.KindNoop
)

// Callbacks are the optional lifecycle hooks of a single view.
type Callbacks = view.Callbacks

// Renderer performs the visual transition and content swap.
// See internal/engine/types.go for the call contract.
type Renderer = engine.Renderer

// VideoSignals is handed to Renderer.InstallVideo.
type VideoSignals = engine.VideoSignals

// Hooks are observer callbacks consumed by the host.
type Hooks = engine.Hooks

// Config holds construction options. Zero fields take defaults.
type Config = engine.Config

// HealthConfig holds the CheckHealth thresholds.
type HealthConfig = health.Config

// HealthStatus is the answer of CheckHealth.
type HealthStatus = health.Status

// SchedulerStats is re-exported from internal package.
type SchedulerStats = engine.Stats

// SlotStats is re-exported from internal package.
type SlotStats = engine.SlotStats

const (
	// BlackScreenSlot tags the synthesized black screen.
	BlackScreenSlot = view.BlackScreenSlot

	// DefaultSlotName is designated by SubmitDefaultView when no default view
	// was set.
	DefaultSlotName = engine.DefaultSlotName
)

// Scheduler is the public interface of the slot rotation engine.
//
// Lifecycle: New() → Register()/SetDefaultView() → Submit*() → Start() → Exit()/Stop()
//
// Thread-safety: all methods are safe for concurrent use. Submissions are
// accepted before and after Start.
type Scheduler interface {
	// Register adds a primary slot and, when fallback is not empty, a
	// fallback slot. Idempotent per name.
	//
	// Errors: ErrConfiguration when a name collides across namespaces, is
	// reserved, or is the Queue-mode default slot.
	Register(name, fallback string) error

	// SetDefaultView designates the fallback of last resort.
	//
	//   - name unregistered → Queue mode: submissions to name fill the cache only
	//   - name registered   → Track mode: submissions are delivered and shadowed
	//
	// Errors: ErrConfiguration on a second call or a reserved name.
	SetDefaultView(name string) error

	// SubmitView queues an HTML view shown for duration.
	//
	// Errors: ErrRange unless 0 < duration ≤ MaxViewDuration, ErrUnknownSlot.
	SubmitView(slot, content string, duration time.Duration, callbacks Callbacks) error

	// SubmitVideo queues a video view; playback decides its duration.
	// options are passed to the Renderer untouched.
	SubmitVideo(slot, file string, callbacks Callbacks, options map[string]any) error

	// SubmitNoop queues a view that fires Begin and End when selected and
	// never occupies the display.
	//
	// Errors: ErrUnknownSlot, ErrConfiguration for the Queue-mode default slot.
	SubmitNoop(slot string, callbacks Callbacks) error

	// SubmitDefaultView submits an HTML view to the default slot,
	// designating DefaultSlotName (Queue mode) first when none was set.
	SubmitDefaultView(content string, duration time.Duration, callbacks Callbacks) error

	// Start spawns the selection loop and returns. Cancelling ctx acts like
	// Exit.
	//
	// Errors: ErrAlreadyStarted.
	Start(ctx context.Context) error

	// Exit requests a cooperative halt; the render in flight completes.
	// Idempotent.
	Exit()

	// Done is closed once the loop has halted.
	Done() <-chan struct{}

	// Stop calls Exit and waits for the loop to halt or ctx to expire.
	Stop(ctx context.Context) error

	// CheckHealth evaluates the liveness/quality predicate:
	//   - not running                   → healthy
	//   - no cycle for StallThreshold   → "scheduler stalled"
	//   - past grace and streak > limit → "sustained black screen"
	CheckHealth() HealthStatus

	// Stats returns a snapshot of operational counters.
	Stats() SchedulerStats

	// Uptime returns how long ago Start was called.
	Uptime() time.Duration
}

// DefaultConfig returns the configuration used for zero fields:
// MaxViewDuration 60s, DefaultViewQueueLen 10, black screen 1s, idle 10m.
func DefaultConfig() Config {
	return engine.DefaultConfig()
}

// New creates a scheduler bound to renderer.
//
// Errors: ErrConfiguration when renderer is nil.
func New(cfg Config, renderer Renderer) (Scheduler, error) {
	s, err := engine.New(cfg, renderer)
	if err != nil {
		return nil, err
	}
	return s, nil
}
