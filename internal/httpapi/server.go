// Package httpapi serves the liveness, readiness, stats and display endpoints
// of cortexd.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	scheduler "github.com/hkaya/cortex-scheduler"
	"github.com/hkaya/cortex-scheduler/render"
)

// ReadinessStatus is the /readiness body
type ReadinessStatus struct {
	Status        string `json:"status"` // "ready" or "unavailable"
	Reason        string `json:"reason,omitempty"`
	InstanceID    string `json:"instance_id"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Running       bool   `json:"running"`
	MQTTConnected bool   `json:"mqtt_connected"`
}

// Server exposes scheduler state over HTTP
type Server struct {
	instanceID string
	sched      scheduler.Scheduler
	surface    *render.Surface // nil disables /display
	started    time.Time

	// MQTTConnected reports the emitter connection; nil when MQTT is disabled
	MQTTConnected func() bool

	srv *http.Server
}

// NewServer creates the HTTP API bound to addr
func NewServer(addr, instanceID string, sched scheduler.Scheduler, surface *render.Surface) *Server {
	s := &Server{
		instanceID: instanceID,
		sched:      sched,
		surface:    surface,
		started:    time.Now(),
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the endpoint mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.LivenessHandler)
	mux.HandleFunc("GET /readiness", s.ReadinessHandler)
	mux.HandleFunc("GET /stats", s.StatsHandler)
	mux.HandleFunc("GET /display", s.DisplayHandler)
	return mux
}

// Start serves in a separate goroutine and does not block
func (s *Server) Start() {
	slog.Info("httpapi: starting server",
		"addr", s.srv.Addr,
		"endpoints", []string{"/health", "/readiness", "/stats", "/display"},
	)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("httpapi: server failed", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// LivenessHandler handles /health: 200 while the process is alive
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

// ReadinessHandler handles /readiness: 200 when CheckHealth is healthy,
// 503 with the reason otherwise
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.sched.CheckHealth()
	stats := s.sched.Stats()

	status := ReadinessStatus{
		Status:        "ready",
		InstanceID:    s.instanceID,
		UptimeSeconds: int64(s.sched.Uptime().Seconds()),
		Running:       stats.Running,
	}
	if s.MQTTConnected != nil {
		status.MQTTConnected = s.MQTTConnected()
	}

	code := http.StatusOK
	if !health.Healthy {
		code = http.StatusServiceUnavailable
		status.Status = "unavailable"
		status.Reason = health.Reason
	}
	writeJSON(w, code, status)
}

// StatsHandler handles /stats
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Stats())
}

// DisplayHandler handles /display: the current surface document
func (s *Server) DisplayHandler(w http.ResponseWriter, r *http.Request) {
	if s.surface == nil {
		http.Error(w, "display surface not available", http.StatusNotFound)
		return
	}
	page, err := s.surface.Snapshot()
	if err != nil {
		slog.Error("httpapi: display snapshot failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("httpapi: failed to encode response", "error", err)
	}
}
