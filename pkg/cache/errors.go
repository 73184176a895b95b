package cache

import "errors"

// Display cache construction errors
var (
	// ErrInvalidCapacity indicates a non-positive number of display slots
	ErrInvalidCapacity = errors.New("display capacity must be positive")

	// ErrInvalidWindow indicates a non-positive or out-of-limits window width
	ErrInvalidWindow = errors.New("invalid window width")

	// ErrInvalidRange indicates a non-positive voltage half-range
	ErrInvalidRange = errors.New("voltage half-range must be positive")

	// ErrInvalidChannels indicates a channel scale vector outside 1..MaxChannels
	ErrInvalidChannels = errors.New("invalid channel count")
)
