// Package health tracks scheduling cadence and black-screen frequency and
// answers the liveness/quality predicate polled by the host.
package health

import "time"

const (
	// DefaultStallThreshold is how long without a scheduling tick before the
	// loop is reported stalled.
	DefaultStallThreshold = 5 * time.Minute

	// DefaultBlackScreenGrace suppresses black-screen reports during startup.
	DefaultBlackScreenGrace = 5 * time.Minute

	// DefaultBlackScreenThreshold is the streak length that must be exceeded.
	DefaultBlackScreenThreshold = 10
)

// Reasons reported by Check.
const (
	ReasonStalled        = "scheduler stalled"
	ReasonSustainedBlack = "sustained black screen"
)

// Config holds the predicate thresholds. Zero fields take the defaults.
type Config struct {
	StallThreshold       time.Duration
	BlackScreenGrace     time.Duration
	BlackScreenThreshold int
}

func (c Config) withDefaults() Config {
	if c.StallThreshold <= 0 {
		c.StallThreshold = DefaultStallThreshold
	}
	if c.BlackScreenGrace <= 0 {
		c.BlackScreenGrace = DefaultBlackScreenGrace
	}
	if c.BlackScreenThreshold <= 0 {
		c.BlackScreenThreshold = DefaultBlackScreenThreshold
	}
	return c
}

// Status is the answer of the health predicate.
type Status struct {
	Healthy bool   `json:"healthy"`
	Reason  string `json:"reason,omitempty"`
}

// Monitor holds the health counters of one scheduler.
//
// Not safe for concurrent use; the scheduler guards it with its state mutex.
// No persistence: counters live for the process lifetime.
type Monitor struct {
	cfg Config
	now func() time.Time

	running   bool
	startTime time.Time
	lastTick  time.Time

	consecutiveBlackScreens int
}

// NewMonitor creates a monitor; now defaults to time.Now.
func NewMonitor(cfg Config, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{cfg: cfg.withDefaults(), now: now}
}

// Started marks the scheduler running and stamps the start time.
func (m *Monitor) Started() {
	t := m.now()
	m.running = true
	m.startTime = t
	m.lastTick = t
}

// Stopped marks the scheduler halted; a halted scheduler reports healthy.
func (m *Monitor) Stopped() {
	m.running = false
}

// Tick records the start of a scheduling cycle.
func (m *Monitor) Tick() {
	m.lastTick = m.now()
}

// BlackScreen records one synthesized black screen.
func (m *Monitor) BlackScreen() {
	m.consecutiveBlackScreens++
}

// ContentRendered resets the black-screen streak.
func (m *Monitor) ContentRendered() {
	m.consecutiveBlackScreens = 0
}

// ConsecutiveBlackScreens returns the current streak.
func (m *Monitor) ConsecutiveBlackScreens() int {
	return m.consecutiveBlackScreens
}

// StartTime returns when Started was called (zero before).
func (m *Monitor) StartTime() time.Time { return m.startTime }

// LastTick returns the time of the most recent cycle.
func (m *Monitor) LastTick() time.Time { return m.lastTick }

// Check evaluates the predicate.
//
// Order matters: a stalled loop is a stronger signal than a content problem,
// so it is reported first.
func (m *Monitor) Check() Status {
	if !m.running {
		return Status{Healthy: true}
	}

	now := m.now()
	if now.Sub(m.lastTick) > m.cfg.StallThreshold {
		return Status{Healthy: false, Reason: ReasonStalled}
	}
	if now.Sub(m.startTime) > m.cfg.BlackScreenGrace &&
		m.consecutiveBlackScreens > m.cfg.BlackScreenThreshold {
		return Status{Healthy: false, Reason: ReasonSustainedBlack}
	}
	return Status{Healthy: true}
}
