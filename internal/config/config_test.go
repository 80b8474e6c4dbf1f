package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const fullYAML = `
instance_id: lobby-1
scheduler:
  max_view_duration_ms: 30000
  default_view_queue_len: 4
slots:
  - name: ads
    fallback: promos
  - name: news
default_view:
  views:
    - content: "<h1>Welcome</h1>"
      duration_ms: 10000
mqtt:
  broker: tcp://localhost:1883
  event_encoding: msgpack
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.ShutdownTimeout() != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout())
	}
	if cfg.DefaultView.Slot != "__dv" {
		t.Errorf("default_view.slot = %q, want __dv when views are seeded", cfg.DefaultView.Slot)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Video.Sink != "autovideosink" {
		t.Errorf("http.addr=%q video.sink=%q, want defaults", cfg.HTTP.Addr, cfg.Video.Sink)
	}

	wantTopics := MQTTTopics{
		Control: "cortex/control/lobby-1",
		Events:  "cortex/events/lobby-1",
		Health:  "cortex/health/lobby-1",
	}
	if diff := cmp.Diff(wantTopics, cfg.MQTT.Topics); diff != "" {
		t.Errorf("topics mismatch (-want +got):\n%s", diff)
	}
	if cfg.MQTT.ClientID != "cortexd-lobby-1" || cfg.MQTT.EventEncoding != "msgpack" || !cfg.MQTTEnabled() {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}

	sc := cfg.SchedulerConfig()
	if sc.MaxViewDuration != 30*time.Second || sc.DefaultViewQueueLen != 4 ||
		sc.BlackScreenDuration != time.Second || sc.IdleThreshold != 10*time.Minute {
		t.Errorf("scheduler config = %+v", sc)
	}
	if sc.Health.StallThreshold != 5*time.Minute || sc.Health.BlackScreenThreshold != 10 {
		t.Errorf("health config = %+v", sc.Health)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing instance", `slots: []`, "instance_id is required"},
		{"bad instance", `instance_id: Lobby_1`, "instance_id must match"},
		{"duplicate slot", "instance_id: a\nslots:\n  - name: x\n  - name: x\n", "declared twice"},
		{"self fallback", "instance_id: a\nslots:\n  - name: x\n    fallback: x\n", "own fallback"},
		{"fallback is primary", "instance_id: a\nslots:\n  - name: x\n    fallback: y\n  - name: y\n", "already a primary"},
		{"view too long", "instance_id: a\ndefault_view:\n  views:\n    - content: x\n      duration_ms: 70000\n", "duration_ms must be in"},
		{"bad encoding", "instance_id: a\nmqtt:\n  broker: tcp://b:1883\n  event_encoding: xml\n", "event_encoding"},
		{"negative", "instance_id: a\nhealth:\n  stall_threshold_s: -1\n", "must not be negative"},
		{"fade step", "instance_id: a\ndisplay:\n  fade_step: 2\n", "fade_step"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse err=%v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cortex.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Slots) != 2 || cfg.Slots[0].Fallback != "promos" {
		t.Errorf("slots = %+v", cfg.Slots)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded, want error")
	}
}
