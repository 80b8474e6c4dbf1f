package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	scheduler "github.com/hkaya/cortex-scheduler"
	"github.com/hkaya/cortex-scheduler/render"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestServer(t *testing.T, cfg scheduler.Config) (*Server, scheduler.Scheduler, *render.Surface) {
	t.Helper()

	surface, err := render.NewSurface(render.SurfaceConfig{FrameInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("NewSurface failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := render.NewRenderer(surface, nil, logger)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	cfg.Logger = logger
	sched, err := scheduler.New(cfg, renderer)
	if err != nil {
		t.Fatalf("scheduler.New failed: %v", err)
	}
	return NewServer(":0", "kiosk-1", sched, surface), sched, surface
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	s, _, _ := newTestServer(t, scheduler.Config{})

	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("/health code = %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("/health body: %v", err)
	}
	if body["status"] != "alive" {
		t.Errorf("/health status = %v", body["status"])
	}
	if _, ok := body["uptime"]; !ok {
		t.Error("/health has no uptime")
	}
}

func TestReadiness(t *testing.T) {
	c := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s, sched, _ := newTestServer(t, scheduler.Config{
		Now:                 c.Now,
		BlackScreenDuration: time.Hour,
	})
	s.MQTTConnected = func() bool { return true }

	// Not running counts as healthy
	rec := get(t, s.Handler(), "/readiness")
	if rec.Code != http.StatusOK {
		t.Fatalf("/readiness before start = %d, want 200", rec.Code)
	}

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Exit()

	// The first black screen holds the loop while the clock moves on
	c.Advance(6 * time.Minute)

	rec = get(t, s.Handler(), "/readiness")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readiness stalled = %d, want 503", rec.Code)
	}
	var status ReadinessStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("/readiness body: %v", err)
	}
	if status.Status != "unavailable" || status.Reason != "scheduler stalled" || !status.Running || !status.MQTTConnected {
		t.Errorf("readiness = %+v", status)
	}
	if status.InstanceID != "kiosk-1" {
		t.Errorf("instance_id = %q", status.InstanceID)
	}
}

func TestStats(t *testing.T) {
	s, sched, _ := newTestServer(t, scheduler.Config{})
	if err := sched.Register("ads", "ads-fallback"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := sched.SubmitView("ads", "<p>x</p>", time.Second, scheduler.Callbacks{}); err != nil {
		t.Fatalf("SubmitView failed: %v", err)
	}

	rec := get(t, s.Handler(), "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("/stats code = %d", rec.Code)
	}
	var stats scheduler.SchedulerStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("/stats body: %v", err)
	}
	if stats.Slots["ads"].Pending != 1 || stats.Slots["ads-fallback"].Class != "fallback" {
		t.Errorf("slots = %+v", stats.Slots)
	}
}

func TestDisplay(t *testing.T) {
	s, _, surface := newTestServer(t, scheduler.Config{})
	surface.SetHTML("<h1>Welcome</h1>")

	rec := get(t, s.Handler(), "/display")
	if rec.Code != http.StatusOK {
		t.Fatalf("/display code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Welcome</h1>") {
		t.Errorf("/display body = %s", rec.Body.String())
	}

	noSurface := NewServer(":0", "kiosk-1", nil, nil)
	if rec := get(t, noSurface.Handler(), "/display"); rec.Code != http.StatusNotFound {
		t.Errorf("/display without surface = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t, scheduler.Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /stats = %d, want 405", rec.Code)
	}
}
