package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	scheduler "github.com/hkaya/cortex-scheduler"
)

// Config represents the complete cortexd configuration
type Config struct {
	InstanceID       string            `yaml:"instance_id"`
	ShutdownTimeoutS int               `yaml:"shutdown_timeout_s"` // Graceful shutdown timeout in seconds (default: 5)
	Scheduler        SchedulerConfig   `yaml:"scheduler"`
	Health           HealthConfig      `yaml:"health"`
	Slots            []SlotConfig      `yaml:"slots"`
	DefaultView      DefaultViewConfig `yaml:"default_view"`
	Display          DisplayConfig     `yaml:"display"`
	Video            VideoConfig       `yaml:"video"`
	HTTP             HTTPConfig        `yaml:"http"`
	MQTT             MQTTConfig        `yaml:"mqtt"`
}

// SchedulerConfig contains rotation settings
type SchedulerConfig struct {
	MaxViewDurationMs     int `yaml:"max_view_duration_ms"`     // default 60000
	DefaultViewQueueLen   int `yaml:"default_view_queue_len"`   // default 10
	BlackScreenDurationMs int `yaml:"black_screen_duration_ms"` // default 1000
	IdleThresholdS        int `yaml:"idle_threshold_s"`         // default 600
}

// HealthConfig contains health predicate thresholds
type HealthConfig struct {
	StallThresholdS      int `yaml:"stall_threshold_s"`      // default 300
	BlackScreenGraceS    int `yaml:"black_screen_grace_s"`   // default 300
	BlackScreenThreshold int `yaml:"black_screen_threshold"` // default 10
}

// SlotConfig declares a primary slot and its optional fallback
type SlotConfig struct {
	Name     string `yaml:"name"`
	Fallback string `yaml:"fallback,omitempty"`
}

// DefaultViewConfig designates the default slot and seeds it
type DefaultViewConfig struct {
	Slot  string       `yaml:"slot"` // registered slot → track mode, otherwise queue mode
	Views []ViewConfig `yaml:"views"`
}

// ViewConfig is an HTML view submitted at startup
type ViewConfig struct {
	Content    string `yaml:"content"`
	DurationMs int    `yaml:"duration_ms"`
}

// DisplayConfig tunes the display surface fades
type DisplayConfig struct {
	FadeStep        float64 `yaml:"fade_step"`         // default 0.15
	FrameIntervalMs int     `yaml:"frame_interval_ms"` // default 16
}

// VideoConfig contains the GStreamer video backend settings
type VideoConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sink    string `yaml:"sink"` // default autovideosink
}

// HTTPConfig contains the health/stats API settings
type HTTPConfig struct {
	Addr string `yaml:"addr"` // default :8080, "-" disables
}

// MQTTConfig contains MQTT broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker          string          `yaml:"broker"`
	ClientID        string          `yaml:"client_id"`
	Topics          MQTTTopics      `yaml:"topics"`
	QoS             map[string]byte `yaml:"qos"`
	EventEncoding   string          `yaml:"event_encoding"`    // json | msgpack
	HealthIntervalS int             `yaml:"health_interval_s"` // default 30
}

// MQTTTopics contains topic names
type MQTTTopics struct {
	Control string `yaml:"control"`
	Events  string `yaml:"events"`
	Health  string `yaml:"health"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML configuration bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// SchedulerConfig maps the validated file settings onto scheduler.Config.
// Logger and Hooks are left for the caller.
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		MaxViewDuration:     ms(c.Scheduler.MaxViewDurationMs),
		DefaultViewQueueLen: c.Scheduler.DefaultViewQueueLen,
		BlackScreenDuration: ms(c.Scheduler.BlackScreenDurationMs),
		IdleThreshold:       seconds(c.Scheduler.IdleThresholdS),
		Health: scheduler.HealthConfig{
			StallThreshold:       seconds(c.Health.StallThresholdS),
			BlackScreenGrace:     seconds(c.Health.BlackScreenGraceS),
			BlackScreenThreshold: c.Health.BlackScreenThreshold,
		},
	}
}

// ShutdownTimeout returns the graceful shutdown timeout
func (c *Config) ShutdownTimeout() time.Duration {
	return seconds(c.ShutdownTimeoutS)
}

// MQTTEnabled reports whether a broker is configured
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

func ms(v int) time.Duration      { return time.Duration(v) * time.Millisecond }
func seconds(v int) time.Duration { return time.Duration(v) * time.Second }
