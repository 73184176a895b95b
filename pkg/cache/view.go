package cache

import (
	"fmt"

	"go.uber.org/zap"
)

// Zoom is the direction of a zoom operation.
type Zoom int

const (
	// ZoomIn halves the visible span.
	ZoomIn Zoom = iota
	// ZoomOut doubles the visible span.
	ZoomOut
)

// Scroll is the direction of a vertical pan.
type Scroll int

const (
	ScrollUp Scroll = iota
	ScrollDown
)

// scrollFraction of the half-range is moved per scroll step.
const scrollFraction = 5

// maxVoltageZoom bounds the voltage half-range to
// [initial/maxVoltageZoom, initial*maxVoltageZoom].
const maxVoltageZoom = 1 << 10

// State is the live-view session state.
type State int

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// RestartPolicy decides what happens to old pixels when a new sweep starts
// because the acquisition clock went backwards.
type RestartPolicy int

const (
	// RestartKeep rebases the origin and lets the new sweep overwrite old traces.
	RestartKeep RestartPolicy = iota
	// RestartClear also blanks the whole buffer.
	RestartClear
)

// ParseRestartPolicy converts a config value ("keep" or "clear").
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	switch s {
	case "keep", "":
		return RestartKeep, nil
	case "clear":
		return RestartClear, nil
	}
	return 0, fmt.Errorf("unknown sweep restart policy %q", s)
}

func (p RestartPolicy) String() string {
	if p == RestartClear {
		return "clear"
	}
	return "keep"
}

// ZoomTime halves or doubles the window width, re-derives the time axis and
// clears the buffer. It returns false without touching anything when the new
// width would leave the configured limits.
func (c *Cache) ZoomTime(z Zoom) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.window * 2
	if z == ZoomIn {
		w = c.window / 2
	}
	if (c.minWindow > 0 && w < c.minWindow) || (c.maxWindow > 0 && w > c.maxWindow) {
		return false
	}

	c.window = w
	c.clearLocked()
	c.logger.Debug("[cache] time zoom", zap.Float64("window", w))
	return true
}

// ZoomVoltage halves or doubles the voltage half-range around the current
// center. The half-range stays within maxVoltageZoom of its initial value;
// at the limit it returns false and nothing changes.
func (c *Cache) ZoomVoltage(z Zoom) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.halfRange * 2
	if z == ZoomIn {
		h = c.halfRange / 2
	}
	if h < c.initialHalfRange/maxVoltageZoom || h > c.initialHalfRange*maxVoltageZoom {
		return false
	}

	c.halfRange = h
	c.logger.Debug("[cache] voltage zoom", zap.Float64("halfRange", h))
	return true
}

// ScrollVoltage shifts the visible voltage window by a fifth of the half-range.
func (c *Cache) ScrollVoltage(s Scroll) {
	c.mu.Lock()
	defer c.mu.Unlock()

	step := c.halfRange / scrollFraction
	if s == ScrollDown {
		step = -step
	}
	c.center += step
}

// Reset restores the construction-time window and half-range, re-centers
// the voltage axis and clears the buffer.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = c.initialWindow
	c.halfRange = c.initialHalfRange
	c.center = 0
	c.clearLocked()
}

// Window returns the current window width in seconds.
func (c *Cache) Window() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.window
}

// VoltageRange returns the visible voltage interval.
func (c *Cache) VoltageRange() (lo, hi float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.center - c.halfRange, c.center + c.halfRange
}
