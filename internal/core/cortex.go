// Package core wires the scheduler to its host collaborators: display
// surface, video player, event bus, MQTT and the HTTP API.
package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	scheduler "github.com/hkaya/cortex-scheduler"
	"github.com/hkaya/cortex-scheduler/internal/config"
	"github.com/hkaya/cortex-scheduler/internal/control"
	"github.com/hkaya/cortex-scheduler/internal/emitter"
	"github.com/hkaya/cortex-scheduler/internal/eventbus"
	"github.com/hkaya/cortex-scheduler/internal/httpapi"
	"github.com/hkaya/cortex-scheduler/render"
	"github.com/hkaya/cortex-scheduler/render/gstvideo"
)

const (
	emitterSubscriber = "mqtt-emitter"
	latestSubscriber  = "latest-view"

	eventBuffer      = 64
	statsLogInterval = time.Minute
)

// Cortex is the main service orchestrator
type Cortex struct {
	cfg *config.Config

	// Core components
	surface *render.Surface
	player  *gstvideo.Player // nil when video is disabled
	sched   scheduler.Scheduler
	bus     eventbus.Bus
	latest  eventbus.Receiver

	// Host surfaces
	emitter        *emitter.MQTTEmitter
	controlHandler *control.Handler
	httpServer     *httpapi.Server

	// Lifecycle management
	started   time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	isRunning bool
}

// NewCortex loads configPath and builds the service
func NewCortex(configPath string) (*Cortex, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewCortexFromConfig(cfg)
}

// NewCortexFromConfig builds the service from a validated configuration
func NewCortexFromConfig(cfg *config.Config) (*Cortex, error) {
	slog.Info("configuration loaded",
		"instance_id", cfg.InstanceID,
		"slots", len(cfg.Slots),
		"video_enabled", cfg.Video.Enabled,
		"mqtt_enabled", cfg.MQTTEnabled(),
	)

	surface, err := render.NewSurface(render.SurfaceConfig{
		FadeStep:      cfg.Display.FadeStep,
		FrameInterval: time.Duration(cfg.Display.FrameIntervalMs) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create display surface: %w", err)
	}

	c := &Cortex{
		cfg:     cfg,
		surface: surface,
		bus:     eventbus.New(),
	}

	var video render.VideoBackend
	if cfg.Video.Enabled {
		c.player = gstvideo.NewPlayer(gstvideo.Config{VideoSink: cfg.Video.Sink})
		video = c.player
	}

	renderer, err := render.NewRenderer(surface, video, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	schedCfg := cfg.SchedulerConfig()
	schedCfg.Hooks.OnViewEnd = func(v scheduler.View) {
		c.bus.Publish(eventbus.ViewEnded(v, time.Now()))
	}
	c.sched, err = scheduler.New(schedCfg, renderer)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	if err := c.initializeSlots(); err != nil {
		return nil, err
	}

	c.latest, err = c.bus.SubscribeLatest(latestSubscriber)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s: %w", latestSubscriber, err)
	}

	if cfg.HTTP.Addr != "-" {
		c.httpServer = httpapi.NewServer(cfg.HTTP.Addr, cfg.InstanceID, c.sched, surface)
	}
	if cfg.MQTTEnabled() {
		c.emitter = emitter.NewMQTTEmitter(cfg)
		if c.httpServer != nil {
			c.httpServer.MQTTConnected = func() bool { return c.emitter.Stats().Connected }
		}
	}

	return c, nil
}

// initializeSlots registers slots, designates the default slot and seeds it
func (c *Cortex) initializeSlots() error {
	for _, s := range c.cfg.Slots {
		if err := c.sched.Register(s.Name, s.Fallback); err != nil {
			return fmt.Errorf("failed to register slot %q: %w", s.Name, err)
		}
	}

	dv := c.cfg.DefaultView
	if dv.Slot == "" {
		return nil
	}
	if err := c.sched.SetDefaultView(dv.Slot); err != nil {
		return fmt.Errorf("failed to set default view %q: %w", dv.Slot, err)
	}
	for i, v := range dv.Views {
		d := time.Duration(v.DurationMs) * time.Millisecond
		if err := c.sched.SubmitDefaultView(v.Content, d, scheduler.Callbacks{}); err != nil {
			return fmt.Errorf("failed to seed default view %d: %w", i, err)
		}
	}

	slog.Info("default view configured",
		"slot", dv.Slot,
		"seeded", len(dv.Views),
	)
	return nil
}

// Scheduler returns the wired scheduler
func (c *Cortex) Scheduler() scheduler.Scheduler { return c.sched }

// Run starts the service and blocks until ctx is cancelled or the scheduler
// halts (exit command)
func (c *Cortex) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("service is already running")
	}
	c.isRunning = true
	c.started = time.Now()
	c.mu.Unlock()

	// Publishers stop when Run returns, whether by signal or exit command
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slog.Info("cortex service starting", "instance_id", c.cfg.InstanceID)

	if c.httpServer != nil {
		c.httpServer.Start()
	}

	if c.emitter != nil {
		if err := c.startMQTT(ctx); err != nil {
			return err
		}
	}

	if err := c.sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logStats(ctx, statsLogInterval)
	}()

	slog.Info("cortex service running")

	select {
	case <-ctx.Done():
	case <-c.sched.Done():
		slog.Info("scheduler halted")
	}

	slog.Info("cortex service run loop exiting")
	return nil
}

// startMQTT connects the emitter, starts the control plane and the event and
// health publishers
func (c *Cortex) startMQTT(ctx context.Context) error {
	if err := c.emitter.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect mqtt: %w", err)
	}

	c.controlHandler = control.NewHandler(c.cfg, c.emitter.Client, c.sched)
	if err := c.controlHandler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start control plane: %w", err)
	}

	events := make(chan eventbus.Event, eventBuffer)
	if err := c.bus.Subscribe(emitterSubscriber, events); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", emitterSubscriber, err)
	}

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.emitter.Run(ctx, events)
	}()
	go func() {
		defer c.wg.Done()
		c.publishHealth(ctx, time.Duration(c.cfg.MQTT.HealthIntervalS)*time.Second)
	}()
	return nil
}

// HealthReport is published periodically on the health topic
type HealthReport struct {
	InstanceID     string                 `json:"instance_id"`
	Timestamp      time.Time              `json:"timestamp"`
	UptimeSeconds  int64                  `json:"uptime_seconds"`
	Health         scheduler.HealthStatus `json:"health"`
	Cycles         uint64                 `json:"cycles"`
	BlackScreens   uint64                 `json:"black_screens"`
	DefaultRenders uint64                 `json:"default_renders"`
	RenderFailures uint64                 `json:"render_failures"`
	EventsDropped  uint64                 `json:"events_dropped"`
	EventDropRate  float64                `json:"event_drop_rate"`
	LastView       *eventbus.Event        `json:"last_view,omitempty"`
	Video          *gstvideo.Stats        `json:"video,omitempty"`
}

// Health builds the current health report
func (c *Cortex) Health() HealthReport {
	stats := c.sched.Stats()
	r := HealthReport{
		InstanceID:     c.cfg.InstanceID,
		Timestamp:      time.Now().UTC(),
		UptimeSeconds:  int64(c.sched.Uptime().Seconds()),
		Health:         c.sched.CheckHealth(),
		Cycles:         stats.Cycles,
		BlackScreens:   stats.BlackScreens,
		DefaultRenders: stats.DefaultRenders,
		RenderFailures: stats.RenderFailures,
	}
	if st, err := c.bus.Stats(emitterSubscriber); err == nil {
		r.EventsDropped = st.Dropped
		r.EventDropRate = eventbus.DropRate(*st)
	}
	if ev, ok := c.latest.TryReceive(); ok {
		r.LastView = &ev
	}
	if c.player != nil {
		vs := c.player.Stats()
		r.Video = &vs
	}
	return r
}

func (c *Cortex) publishHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(c.Health())
			if err != nil {
				slog.Error("failed to marshal health report", "error", err)
				continue
			}
			if err := c.emitter.PublishHealth(payload); err != nil {
				slog.Warn("failed to publish health report", "error", err)
			}
		}
	}
}

// logStats logs a scheduler summary every interval
func (c *Cortex) logStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.sched.Done():
			return
		case <-ticker.C:
			stats := c.sched.Stats()
			idle := 0
			for _, s := range stats.Slots {
				if s.IsIdle {
					idle++
				}
			}
			slog.Info("scheduler stats",
				"cycles", stats.Cycles,
				"black_screens", stats.BlackScreens,
				"consecutive_black_screens", stats.ConsecutiveBlackScreens,
				"default_renders", stats.DefaultRenders,
				"render_failures", stats.RenderFailures,
				"events_published", c.bus.Published(),
				"idle_slots", idle,
			)
		}
	}
}

// ShutdownTimeout returns the configured graceful shutdown timeout
func (c *Cortex) ShutdownTimeout() time.Duration {
	return c.cfg.ShutdownTimeout()
}

// Shutdown performs graceful shutdown of all components
func (c *Cortex) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	slog.Info("shutting down cortex service")

	var errs []error

	// 1. Stop accepting commands
	if c.controlHandler != nil {
		if err := c.controlHandler.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop control handler: %w", err))
		}
	}

	// 2. Let the view in flight finish
	if err := c.sched.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}

	// 3. Tear down video playback
	if c.player != nil {
		c.player.Stop()
	}

	// 4. Wait for publishers; they exit with the run context
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("wait for goroutines: %w", ctx.Err()))
	}

	c.bus.Close()

	// 5. Disconnect MQTT
	if c.emitter != nil {
		if err := c.emitter.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("disconnect mqtt: %w", err))
		}
	}

	// 6. Stop HTTP API
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop http api: %w", err))
		}
	}

	c.mu.Lock()
	uptime := time.Since(c.started)
	c.isRunning = false
	c.mu.Unlock()

	slog.Info("cortex service shutdown complete", "uptime", uptime)
	return errors.Join(errs...)
}
