package emitter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hkaya/cortex-scheduler/internal/config"
	"github.com/hkaya/cortex-scheduler/internal/eventbus"
)

func TestEncode(t *testing.T) {
	ev := eventbus.Event{Sequence: 7, ViewID: "v1", Slot: "ads", Kind: "html", DurationMs: 500,
		EndedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	js, err := Encode(EncodingJSON, ev)
	if err != nil {
		t.Fatalf("Encode(json) failed: %v", err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(js, &fromJSON); err != nil {
		t.Fatalf("json payload invalid: %v", err)
	}
	if fromJSON["view_id"] != "v1" || fromJSON["slot"] != "ads" {
		t.Errorf("json payload = %s", js)
	}

	mp, err := Encode(EncodingMsgpack, ev)
	if err != nil {
		t.Fatalf("Encode(msgpack) failed: %v", err)
	}
	var fromMsgpack map[string]any
	if err := msgpack.Unmarshal(mp, &fromMsgpack); err != nil {
		t.Fatalf("msgpack payload invalid: %v", err)
	}
	if fromMsgpack["view_id"] != "v1" || fromMsgpack["kind"] != "html" {
		t.Errorf("msgpack payload keys = %v", fromMsgpack)
	}
	t.Logf("✅ msgpack %d bytes, json %d bytes", len(mp), len(js))

	if _, err := Encode("xml", ev); err == nil {
		t.Error("Encode(xml) succeeded, want error")
	}
}

func TestPublishWhileDisconnected(t *testing.T) {
	cfg := &config.Config{InstanceID: "a"}
	cfg.MQTT.Topics.Events = "cortex/events/a"
	e := NewMQTTEmitter(cfg)

	if err := e.PublishEvent(eventbus.Event{Slot: "ads"}); err == nil {
		t.Error("PublishEvent while disconnected succeeded, want error")
	}
	if st := e.Stats(); st.Connected || st.Errors != 1 {
		t.Errorf("stats = %+v, want disconnected with 1 error", st)
	}
	if got := e.EventTopic("ads"); got != "cortex/events/a/ads" {
		t.Errorf("EventTopic = %q", got)
	}
}

func TestBrokerURL(t *testing.T) {
	tests := map[string]string{
		"localhost:1883":        "tcp://localhost:1883",
		"tcp://broker:1883":     "tcp://broker:1883",
		"ssl://broker:8883":     "ssl://broker:8883",
		"ws://broker:9001/mqtt": "ws://broker:9001/mqtt",
	}
	for in, want := range tests {
		if got := brokerURL(in); got != want {
			t.Errorf("brokerURL(%q) = %q, want %q", in, got, want)
		}
	}
}
