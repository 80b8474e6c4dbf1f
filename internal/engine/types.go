package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/hkaya/cortex-scheduler/internal/health"
	"github.com/hkaya/cortex-scheduler/internal/view"
)

const (
	// DefaultMaxViewDuration bounds the duration of HTML views.
	DefaultMaxViewDuration = 60 * time.Second

	// DefaultViewQueueLen is the default-view cache capacity.
	DefaultViewQueueLen = 10

	// DefaultIdleThreshold marks a slot idle in Stats when nothing was
	// rendered from it for this long.
	DefaultIdleThreshold = 10 * time.Minute

	// DefaultSlotName is designated (Queue mode) by SubmitDefaultView when no
	// default view was set explicitly.
	DefaultSlotName = "__dv"
)

// Renderer performs the visual transition and content swap.
//
// The scheduler calls TransitionOut → Install* → TransitionIn for every
// rendered view, from a single goroutine, never concurrently. Each call may
// block until the surface reaches the requested state.
//
// InstallVideo reports playback progress through signals rather than its
// return value: Ready once the first frame is visible, then exactly one of End
// or Error. Signals may be called from any goroutine; extra calls are ignored.
type Renderer interface {
	TransitionOut(ctx context.Context) error
	InstallHTML(ctx context.Context, content string) error
	InstallVideo(ctx context.Context, file string, options map[string]any, signals VideoSignals) error
	TransitionIn(ctx context.Context) error
}

// VideoSignals is handed to Renderer.InstallVideo.
type VideoSignals struct {
	Ready func()
	End   func()
	Error func(err error)
}

// Hooks are observer callbacks consumed by the host.
type Hooks struct {
	// OnViewEnd fires after every view that completed successfully (the
	// black screen and default views included). Called on the loop goroutine;
	// it must not block.
	OnViewEnd func(v view.View)
}

// Config holds scheduler construction options. Zero fields take defaults.
type Config struct {
	// MaxViewDuration is the inclusive upper bound for HTML view durations.
	MaxViewDuration time.Duration

	// DefaultViewQueueLen is the capacity of the default-view cache.
	DefaultViewQueueLen int

	// BlackScreenDuration is how long the synthesized black screen is shown
	// (default 1s).
	BlackScreenDuration time.Duration

	// IdleThreshold is used for SlotStats.IsIdle.
	IdleThreshold time.Duration

	// Health thresholds for CheckHealth.
	Health health.Config

	// Hooks are observer callbacks.
	Hooks Hooks

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now; injectable for tests.
	Now func() time.Time
}

// DefaultConfig returns the configuration used when fields are left zero.
func DefaultConfig() Config {
	return Config{
		MaxViewDuration:     DefaultMaxViewDuration,
		DefaultViewQueueLen: DefaultViewQueueLen,
		BlackScreenDuration: view.BlackScreenDuration,
		IdleThreshold:       DefaultIdleThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxViewDuration <= 0 {
		c.MaxViewDuration = d.MaxViewDuration
	}
	if c.DefaultViewQueueLen <= 0 {
		c.DefaultViewQueueLen = d.DefaultViewQueueLen
	}
	if c.BlackScreenDuration <= 0 {
		c.BlackScreenDuration = d.BlackScreenDuration
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = d.IdleThreshold
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Stats is a snapshot of scheduler operational state.
type Stats struct {
	// Running is true between Start and the loop halting.
	Running bool `json:"running"`

	StartedAt  time.Time `json:"started_at"`
	LastTickAt time.Time `json:"last_tick_at"`

	// Cycles counts selection-loop iterations.
	Cycles uint64 `json:"cycles"`

	// BlackScreens is the lifetime count of synthesized black screens;
	// ConsecutiveBlackScreens is the current streak used by CheckHealth.
	BlackScreens            uint64 `json:"black_screens"`
	ConsecutiveBlackScreens int    `json:"consecutive_black_screens"`

	// DefaultRenders counts views served from the default-view cache.
	DefaultRenders uint64 `json:"default_renders"`

	// NoopViews counts Noop views consumed by the loop.
	NoopViews uint64 `json:"noop_views"`

	// RenderFailures counts views that ended on the error path.
	RenderFailures uint64 `json:"render_failures"`

	// DefaultSlot is the designated default-slot name ("" if none).
	DefaultSlot    string `json:"default_slot,omitempty"`
	CacheMode      string `json:"cache_mode,omitempty"`
	CacheLen       int    `json:"cache_len"`
	CacheEvictions uint64 `json:"cache_evictions"`

	// Slots maps slot name to per-slot statistics.
	Slots map[string]SlotStats `json:"slots"`
}

// SlotStats tracks per-slot operational state.
type SlotStats struct {
	Name string `json:"name"`

	// Class is "primary", "fallback" or "default" (Queue-mode default slot).
	Class string `json:"class"`

	// Pending is the number of queued views.
	Pending int `json:"pending"`

	Submitted uint64 `json:"submitted"`
	Rendered  uint64 `json:"rendered"`
	Failed    uint64 `json:"failed"`

	// LastRenderedAt is when a view from this slot last finished rendering.
	LastRenderedAt time.Time `json:"last_rendered_at"`

	// IsIdle: running and nothing rendered from the slot for longer than
	// Config.IdleThreshold (measured from start when never rendered).
	IsIdle bool `json:"is_idle"`
}
