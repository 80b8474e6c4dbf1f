package emitter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hkaya/cortex-scheduler/internal/config"
	"github.com/hkaya/cortex-scheduler/internal/eventbus"
)

// MQTTEmitter publishes view-end events and health reports to the MQTT broker
type MQTTEmitter struct {
	cfg    *config.Config
	Client mqtt.Client // Exported for control plane

	mu        sync.RWMutex
	published map[string]uint64 // count per topic
	errors    uint64
	connected bool
}

// NewMQTTEmitter creates a new MQTT emitter
func NewMQTTEmitter(cfg *config.Config) *MQTTEmitter {
	return &MQTTEmitter{
		cfg:       cfg,
		published: make(map[string]uint64),
	}
}

// brokerURL adds the tcp scheme when the broker is a bare host:port
func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect establishes connection to MQTT broker
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(e.cfg.MQTT.Broker))
	opts.SetClientID(e.cfg.MQTT.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		slog.Info("emitter: mqtt connection established",
			"broker", e.cfg.MQTT.Broker,
			"client_id", e.cfg.MQTT.ClientID,
		)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		slog.Warn("emitter: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.MQTT.Broker,
		)
	}

	e.Client = mqtt.NewClient(opts)

	slog.Info("emitter: connecting to mqtt broker", "broker", e.cfg.MQTT.Broker)

	token := e.Client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// EventTopic returns the topic for events of slot: <events>/<slot>
func (e *MQTTEmitter) EventTopic(slot string) string {
	return fmt.Sprintf("%s/%s", e.cfg.MQTT.Topics.Events, slot)
}

// PublishEvent publishes one view-end event
func (e *MQTTEmitter) PublishEvent(ev eventbus.Event) error {
	payload, err := Encode(e.cfg.MQTT.EventEncoding, ev)
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return e.publish(e.EventTopic(ev.Slot), e.cfg.MQTT.QoS["events"], payload)
}

// PublishHealth publishes a health message
func (e *MQTTEmitter) PublishHealth(payload []byte) error {
	return e.publish(e.cfg.MQTT.Topics.Health, e.cfg.MQTT.QoS["health"], payload)
}

func (e *MQTTEmitter) publish(topic string, qos byte, payload []byte) error {
	if !e.isConnected() {
		e.countError()
		return fmt.Errorf("mqtt not connected")
	}

	token := e.Client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	slog.Debug("emitter: message published",
		"topic", topic,
		"qos", qos,
		"size", len(payload),
	)
	return nil
}

// Run publishes events from ch until ctx is done or ch is closed
func (e *MQTTEmitter) Run(ctx context.Context, ch <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := e.PublishEvent(ev); err != nil {
				slog.Warn("emitter: event dropped",
					"view_id", ev.ViewID,
					"slot", ev.Slot,
					"error", err,
				)
			}
		}
	}
}

// Disconnect closes the MQTT connection
func (e *MQTTEmitter) Disconnect() error {
	if e.Client != nil && e.Client.IsConnected() {
		e.Client.Disconnect(250) // 250ms grace period
		slog.Info("emitter: mqtt disconnected")
	}
	e.setConnected(false)
	return nil
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}
	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
