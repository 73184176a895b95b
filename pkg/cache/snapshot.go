package cache

// Snapshot is a point-in-time copy of the display buffer and view state.
// It shares no memory with the cache.
type Snapshot struct {
	Time      []float64   // Slot times within the window, [0, Window)
	Values    [][]float64 // Scaled values, [channel][slot]; NaN is a gap
	Sparse    bool        // Draw markers instead of a connected line
	Window    float64
	HalfRange float64
	Center    float64
	Origin    float64
	Cursor    int    // Slot after the most recent write
	Version   uint64 // Increases on every write or clear, unique across caches
	State     State
}

// Snapshot returns a consistent copy of the buffer for rendering.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Time:      append([]float64(nil), c.timeAxis...),
		Values:    make([][]float64, len(c.values)),
		Sparse:    c.sparse,
		Window:    c.window,
		HalfRange: c.halfRange,
		Center:    c.center,
		Origin:    c.origin,
		Cursor:    c.cursor,
		Version:   c.version,
		State:     c.state,
	}
	for ch, col := range c.values {
		s.Values[ch] = append([]float64(nil), col...)
	}
	return s
}

// Capacity returns the number of slots per channel.
func (s Snapshot) Capacity() int {
	return len(s.Time)
}

// Channels returns the number of channels.
func (s Snapshot) Channels() int {
	return len(s.Values)
}

// At returns the value of channel ch at slot.
func (s Snapshot) At(slot, ch int) float64 {
	return s.Values[ch][slot]
}

// Row returns all channel values at slot.
func (s Snapshot) Row(slot int) []float64 {
	row := make([]float64, len(s.Values))
	for ch := range s.Values {
		row[ch] = s.Values[ch][slot]
	}
	return row
}

// VoltageRange returns the visible voltage interval.
func (s Snapshot) VoltageRange() (lo, hi float64) {
	return s.Center - s.HalfRange, s.Center + s.HalfRange
}
