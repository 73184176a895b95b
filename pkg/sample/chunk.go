package sample

import (
	"fmt"
	"math"
)

// MaxChannels is the widest chunk the display pipeline accepts.
const MaxChannels = 4

// Chunk is a batch of samples delivered together: one timestamp per row
// and one value per channel in each row.
type Chunk struct {
	Time   []float64   // Absolute acquisition time (s), strictly increasing
	Values [][]float64 // Values[row][channel]
}

// NewChunk allocates a chunk with n rows of the given channel count.
func NewChunk(n, channels int) Chunk {
	c := Chunk{
		Time:   make([]float64, n),
		Values: make([][]float64, n),
	}
	flat := make([]float64, n*channels)
	for i := range c.Values {
		c.Values[i] = flat[i*channels : (i+1)*channels : (i+1)*channels]
	}
	return c
}

// Len returns the number of rows.
func (c Chunk) Len() int {
	return len(c.Time)
}

// Channels returns the row width, or 0 for an empty chunk.
func (c Chunk) Channels() int {
	if len(c.Values) == 0 {
		return 0
	}
	return len(c.Values[0])
}

// Start returns the first timestamp.
func (c Chunk) Start() float64 {
	return c.Time[0]
}

// End returns the last timestamp.
func (c Chunk) End() float64 {
	return c.Time[len(c.Time)-1]
}

// Span returns the time between the first and last row.
func (c Chunk) Span() float64 {
	if len(c.Time) == 0 {
		return 0
	}
	return c.End() - c.Start()
}

// Slice returns rows [from, to) sharing the underlying arrays.
func (c Chunk) Slice(from, to int) Chunk {
	return Chunk{Time: c.Time[from:to], Values: c.Values[from:to]}
}

// Column copies channel ch into a new slice.
func (c Chunk) Column(ch int) []float64 {
	col := make([]float64, len(c.Values))
	for i, row := range c.Values {
		col[i] = row[ch]
	}
	return col
}

// Validate checks the chunk shape against the expected channel count.
// A channels value of 0 accepts any consistent width up to MaxChannels.
func (c Chunk) Validate(channels int) error {
	if len(c.Time) == 0 {
		return ErrEmptyChunk
	}
	if len(c.Values) != len(c.Time) {
		return fmt.Errorf("%w: %d timestamps, %d rows", ErrRaggedChunk, len(c.Time), len(c.Values))
	}

	width := channels
	if width == 0 {
		width = len(c.Values[0])
	}
	if width < 1 {
		return fmt.Errorf("%w: rows have no values", ErrChannelMismatch)
	}
	if width > MaxChannels {
		return fmt.Errorf("%w: %d > %d", ErrTooManyChannels, width, MaxChannels)
	}

	for i, row := range c.Values {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrChannelMismatch, i, len(row), width)
		}
	}

	for i, t := range c.Time {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("%w: t[%d]=%g", ErrNonMonotonic, i, t)
		}
		if i > 0 && !(t > c.Time[i-1]) {
			return fmt.Errorf("%w: t[%d]=%g after t[%d]=%g", ErrNonMonotonic, i, t, i-1, c.Time[i-1])
		}
	}

	return nil
}
