package control

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	scheduler "github.com/hkaya/cortex-scheduler"
	"github.com/hkaya/cortex-scheduler/internal/config"
)

type nopRenderer struct{}

func (nopRenderer) TransitionOut(ctx context.Context) error               { return nil }
func (nopRenderer) InstallHTML(ctx context.Context, content string) error { return nil }
func (nopRenderer) TransitionIn(ctx context.Context) error                { return nil }
func (nopRenderer) InstallVideo(ctx context.Context, file string, options map[string]any, signals scheduler.VideoSignals) error {
	signals.Ready()
	signals.End()
	return nil
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type published struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
}

func (p *published) publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func newTestHandler(t *testing.T) (*Handler, scheduler.Scheduler, *published) {
	t.Helper()

	sched, err := scheduler.New(scheduler.Config{
		BlackScreenDuration: 5 * time.Millisecond,
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nopRenderer{})
	if err != nil {
		t.Fatalf("scheduler.New failed: %v", err)
	}
	if err := sched.Register("ads", "ads-fallback"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	cfg := &config.Config{InstanceID: "test"}
	cfg.MQTT.Topics.Control = "cortex/control/test"

	h := NewHandler(cfg, nil, sched)
	p := &published{}
	h.publish = p.publish
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return h, sched, p
}

func TestHandle(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		name      string
		cmd       Command
		wantError string
	}{
		{"submit view", Command{Command: CmdSubmitView, Slot: "ads", Content: "<p>hi</p>", DurationMs: 500}, ""},
		{"submit view to fallback", Command{Command: CmdSubmitView, Slot: "ads-fallback", Content: "x", DurationMs: 100}, ""},
		{"zero duration", Command{Command: CmdSubmitView, Slot: "ads", Content: "x"}, "out of range"},
		{"above max duration", Command{Command: CmdSubmitView, Slot: "ads", Content: "x", DurationMs: 60001}, "out of range"},
		{"unknown slot", Command{Command: CmdSubmitView, Slot: "nope", Content: "x", DurationMs: 100}, "unknown view slot"},
		{"submit video", Command{Command: CmdSubmitVideo, Slot: "ads", File: "clip.mp4"}, ""},
		{"submit noop", Command{Command: CmdSubmitNoop, Slot: "ads"}, ""},
		{"submit default view", Command{Command: CmdSubmitDefaultView, Content: "idle", DurationMs: 1000}, ""},
		{"missing command", Command{Slot: "ads"}, "missing command"},
		{"unknown command", Command{Command: "reboot"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.Handle(tt.cmd)
			if resp.CommandAck != tt.cmd.Command {
				t.Errorf("CommandAck = %q, want %q", resp.CommandAck, tt.cmd.Command)
			}
			if resp.Timestamp != "2024-05-01T12:00:00Z" {
				t.Errorf("Timestamp = %q", resp.Timestamp)
			}
			if tt.wantError == "" {
				if resp.Status != "success" {
					t.Errorf("status=%s error=%q, want success", resp.Status, resp.Error)
				}
				return
			}
			if resp.Status != "error" || !strings.Contains(resp.Error, tt.wantError) {
				t.Errorf("status=%s error=%q, want error containing %q", resp.Status, resp.Error, tt.wantError)
			}
		})
	}
}

func TestHandleGetStatus(t *testing.T) {
	h, sched, _ := newTestHandler(t)
	if err := sched.SubmitView("ads", "x", time.Second, scheduler.Callbacks{}); err != nil {
		t.Fatalf("SubmitView failed: %v", err)
	}

	resp := h.Handle(Command{Command: CmdGetStatus})
	if resp.Status != "success" {
		t.Fatalf("get_status failed: %s", resp.Error)
	}
	stats, ok := resp.Data["stats"].(scheduler.SchedulerStats)
	if !ok {
		t.Fatalf("stats has type %T", resp.Data["stats"])
	}
	if len(stats.Slots) != 2 {
		t.Errorf("stats.Slots = %d entries, want 2", len(stats.Slots))
	}
	if hs, ok := resp.Data["health"].(scheduler.HealthStatus); !ok || !hs.Healthy {
		t.Errorf("health = %+v, want healthy before start", resp.Data["health"])
	}
}

func TestHandleExit(t *testing.T) {
	h, sched, _ := newTestHandler(t)

	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	resp := h.Handle(Command{Command: CmdExit})
	if resp.Status != "success" {
		t.Fatalf("exit failed: %s", resp.Error)
	}

	select {
	case <-sched.Done():
		t.Logf("✅ scheduler halted after exit command")
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not halt after exit command")
	}
}

func TestMessageHandler(t *testing.T) {
	h, _, p := newTestHandler(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.processCommands(ctx)

	h.messageHandler(nil, fakeMessage{topic: "cortex/control/test", payload: []byte(`{not json`)})
	h.messageHandler(nil, fakeMessage{topic: "cortex/control/test",
		payload: []byte(`{"command":"submit_view","slot":"ads","content":"<b>x</b>","duration_ms":250}`)})

	deadline := time.Now().Add(2 * time.Second)
	for {
		p.mu.Lock()
		n := len(p.payloads)
		p.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d responses, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, topic := range p.topics {
		if topic != "cortex/control/test/response" {
			t.Errorf("response topic = %q", topic)
		}
	}

	var bad, good Response
	if err := json.Unmarshal(p.payloads[0], &bad); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if bad.Status != "error" || !strings.Contains(bad.Error, "invalid JSON") {
		t.Errorf("parse failure response = %+v", bad)
	}
	if err := json.Unmarshal(p.payloads[1], &good); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if good.Status != "success" || good.CommandAck != CmdSubmitView {
		t.Errorf("submit response = %+v", good)
	}
}
