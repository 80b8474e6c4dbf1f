// Package control receives scheduler commands over MQTT and answers on the
// response topic.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	scheduler "github.com/hkaya/cortex-scheduler"
	"github.com/hkaya/cortex-scheduler/internal/config"
)

// Command names
const (
	CmdSubmitView        = "submit_view"
	CmdSubmitVideo       = "submit_video"
	CmdSubmitNoop        = "submit_noop"
	CmdSubmitDefaultView = "submit_default_view"
	CmdGetStatus         = "get_status"
	CmdExit              = "exit"
)

// Command represents an MQTT control command
type Command struct {
	Command    string         `json:"command"`
	Slot       string         `json:"slot,omitempty"`
	Content    string         `json:"content,omitempty"`
	DurationMs int            `json:"duration_ms,omitempty"`
	File       string         `json:"file,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// Response represents a command response
type Response struct {
	CommandAck string         `json:"command_ack"`
	Status     string         `json:"status"` // "success" or "error"
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// Handler handles MQTT control commands
type Handler struct {
	cfg      *config.Config
	client   mqtt.Client
	sched    scheduler.Scheduler
	commands chan Command

	// publish sends a response payload; replaced in tests
	publish func(topic string, payload []byte) error
	now     func() time.Time
}

// NewHandler creates a new control handler
func NewHandler(cfg *config.Config, client mqtt.Client, sched scheduler.Scheduler) *Handler {
	h := &Handler{
		cfg:      cfg,
		client:   client,
		sched:    sched,
		commands: make(chan Command, 10),
		now:      time.Now,
	}
	h.publish = h.publishMQTT
	return h
}

// ResponseTopic is <control>/response
func (h *Handler) ResponseTopic() string {
	return h.cfg.MQTT.Topics.Control + "/response"
}

// Start subscribes to the control topic and processes commands until ctx is done
func (h *Handler) Start(ctx context.Context) error {
	topic := h.cfg.MQTT.Topics.Control
	qos := h.cfg.MQTT.QoS["control"]

	token := h.client.Subscribe(topic, qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	slog.Info("control: subscribed to control topic", "topic", topic, "qos", qos)

	go h.processCommands(ctx)
	return nil
}

// Stop unsubscribes from the control topic
func (h *Handler) Stop() error {
	if h.client == nil || !h.client.IsConnected() {
		return nil
	}
	token := h.client.Unsubscribe(h.cfg.MQTT.Topics.Control)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("unsubscribe timeout")
	}
	return token.Error()
}

// messageHandler parses the payload and queues the command
func (h *Handler) messageHandler(client mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("control: failed to parse command",
			"error", err,
			"topic", msg.Topic(),
			"payload", string(msg.Payload()),
		)
		h.sendResponse(h.errorResponse("unknown", fmt.Errorf("invalid JSON: %w", err)))
		return
	}

	slog.Info("control: command received", "command", cmd.Command, "slot", cmd.Slot)

	select {
	case h.commands <- cmd:
	default:
		slog.Warn("control: command queue full, dropping command", "command", cmd.Command)
		h.sendResponse(h.errorResponse(cmd.Command, errors.New("command queue full")))
	}
}

// processCommands executes queued commands one at a time
func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.sendResponse(h.Handle(cmd))
		}
	}
}

// Handle executes cmd against the scheduler and returns the response
func (h *Handler) Handle(cmd Command) Response {
	var (
		data map[string]any
		err  error
	)

	switch cmd.Command {
	case CmdSubmitView:
		err = h.sched.SubmitView(cmd.Slot, cmd.Content, duration(cmd.DurationMs), h.viewCallbacks(cmd))
		data = map[string]any{"slot": cmd.Slot}

	case CmdSubmitVideo:
		err = h.sched.SubmitVideo(cmd.Slot, cmd.File, h.viewCallbacks(cmd), cmd.Options)
		data = map[string]any{"slot": cmd.Slot, "file": cmd.File}

	case CmdSubmitNoop:
		err = h.sched.SubmitNoop(cmd.Slot, h.viewCallbacks(cmd))
		data = map[string]any{"slot": cmd.Slot}

	case CmdSubmitDefaultView:
		err = h.sched.SubmitDefaultView(cmd.Content, duration(cmd.DurationMs), h.viewCallbacks(cmd))

	case CmdGetStatus:
		data = map[string]any{
			"instance_id": h.cfg.InstanceID,
			"uptime_s":    int64(h.sched.Uptime().Seconds()),
			"health":      h.sched.CheckHealth(),
			"stats":       h.sched.Stats(),
		}

	case CmdExit:
		h.sched.Exit()
		slog.Info("control: exit requested via MQTT")

	case "":
		err = errors.New("missing command")

	default:
		err = fmt.Errorf("unknown command: %s", cmd.Command)
	}

	if err != nil {
		slog.Warn("control: command failed", "command", cmd.Command, "slot", cmd.Slot, "error", err)
		return h.errorResponse(cmd.Command, err)
	}
	return h.successResponse(cmd.Command, data)
}

// viewCallbacks logs render failures of views submitted over MQTT
func (h *Handler) viewCallbacks(cmd Command) scheduler.Callbacks {
	return scheduler.Callbacks{
		Error: func(err error) {
			slog.Warn("control: submitted view failed",
				"command", cmd.Command,
				"slot", cmd.Slot,
				"error", err,
			)
		},
	}
}

func (h *Handler) successResponse(command string, data map[string]any) Response {
	return Response{
		CommandAck: command,
		Status:     "success",
		Data:       data,
		Timestamp:  h.now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) errorResponse(command string, err error) Response {
	return Response{
		CommandAck: command,
		Status:     "error",
		Error:      err.Error(),
		Timestamp:  h.now().UTC().Format(time.RFC3339),
	}
}

// sendResponse publishes resp on the response topic
func (h *Handler) sendResponse(resp Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("control: failed to marshal response", "error", err)
		return
	}
	if err := h.publish(h.ResponseTopic(), payload); err != nil {
		slog.Error("control: failed to publish response", "error", err, "command", resp.CommandAck)
	}
}

func (h *Handler) publishMQTT(topic string, payload []byte) error {
	token := h.client.Publish(topic, h.cfg.MQTT.QoS["control"], false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

func duration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
