package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks the configuration and fills defaults
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if cfg.ShutdownTimeoutS <= 0 {
		cfg.ShutdownTimeoutS = 5
	}

	if err := validateScheduler(&cfg.Scheduler); err != nil {
		return err
	}
	if err := validateHealth(&cfg.Health); err != nil {
		return err
	}
	if err := ValidateSlots(cfg.Slots); err != nil {
		return fmt.Errorf("slot validation failed: %w", err)
	}

	for i, v := range cfg.DefaultView.Views {
		if v.DurationMs <= 0 || v.DurationMs > cfg.Scheduler.MaxViewDurationMs {
			return fmt.Errorf("default_view.views[%d]: duration_ms must be in (0, %d], got %d",
				i, cfg.Scheduler.MaxViewDurationMs, v.DurationMs)
		}
	}
	if len(cfg.DefaultView.Views) > 0 && cfg.DefaultView.Slot == "" {
		cfg.DefaultView.Slot = "__dv"
	}

	if cfg.Display.FadeStep == 0 {
		cfg.Display.FadeStep = 0.15
	}
	if cfg.Display.FadeStep < 0 || cfg.Display.FadeStep > 1 {
		return fmt.Errorf("display.fade_step must be in (0, 1], got %v", cfg.Display.FadeStep)
	}
	if cfg.Display.FrameIntervalMs <= 0 {
		cfg.Display.FrameIntervalMs = 16
	}

	if cfg.Video.Sink == "" {
		cfg.Video.Sink = "autovideosink"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}

	return validateMQTT(cfg)
}

func validateScheduler(s *SchedulerConfig) error {
	if s.MaxViewDurationMs < 0 || s.DefaultViewQueueLen < 0 || s.BlackScreenDurationMs < 0 || s.IdleThresholdS < 0 {
		return fmt.Errorf("scheduler settings must not be negative")
	}
	if s.MaxViewDurationMs == 0 {
		s.MaxViewDurationMs = 60000
	}
	if s.DefaultViewQueueLen == 0 {
		s.DefaultViewQueueLen = 10
	}
	if s.BlackScreenDurationMs == 0 {
		s.BlackScreenDurationMs = 1000
	}
	if s.IdleThresholdS == 0 {
		s.IdleThresholdS = 600
	}
	return nil
}

func validateHealth(h *HealthConfig) error {
	if h.StallThresholdS < 0 || h.BlackScreenGraceS < 0 || h.BlackScreenThreshold < 0 {
		return fmt.Errorf("health thresholds must not be negative")
	}
	if h.StallThresholdS == 0 {
		h.StallThresholdS = 300
	}
	if h.BlackScreenGraceS == 0 {
		h.BlackScreenGraceS = 300
	}
	if h.BlackScreenThreshold == 0 {
		h.BlackScreenThreshold = 10
	}
	return nil
}

// ValidateSlots checks slot names: non-empty, unique, and a name is never
// both a primary and a fallback slot.
func ValidateSlots(slots []SlotConfig) error {
	primaries := make(map[string]bool, len(slots))
	for i, s := range slots {
		if s.Name == "" {
			return fmt.Errorf("slot %d: name is required", i)
		}
		if primaries[s.Name] {
			return fmt.Errorf("slot '%s' declared twice", s.Name)
		}
		if s.Name == s.Fallback {
			return fmt.Errorf("slot '%s' cannot be its own fallback", s.Name)
		}
		primaries[s.Name] = true
	}
	for _, s := range slots {
		if s.Fallback != "" && primaries[s.Fallback] {
			return fmt.Errorf("slot '%s': fallback '%s' is already a primary slot", s.Name, s.Fallback)
		}
	}
	return nil
}

func validateMQTT(cfg *Config) error {
	m := &cfg.MQTT
	if m.Broker == "" {
		return nil
	}

	switch m.EventEncoding {
	case "":
		m.EventEncoding = "json"
	case "json", "msgpack":
	default:
		return fmt.Errorf("mqtt.event_encoding must be 'json' or 'msgpack', got '%s'", m.EventEncoding)
	}

	if m.ClientID == "" {
		m.ClientID = fmt.Sprintf("cortexd-%s", cfg.InstanceID)
	}
	if m.Topics.Control == "" {
		m.Topics.Control = fmt.Sprintf("cortex/control/%s", cfg.InstanceID)
	}
	if m.Topics.Events == "" {
		m.Topics.Events = fmt.Sprintf("cortex/events/%s", cfg.InstanceID)
	}
	if m.Topics.Health == "" {
		m.Topics.Health = fmt.Sprintf("cortex/health/%s", cfg.InstanceID)
	}
	if m.QoS == nil {
		m.QoS = map[string]byte{
			"control": 1,
			"events":  1,
			"health":  0,
		}
	}
	if m.HealthIntervalS <= 0 {
		m.HealthIntervalS = 30
	}
	return nil
}
