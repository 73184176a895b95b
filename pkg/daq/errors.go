package daq

import (
	"errors"
	"fmt"
)

// Device errors
var (
	// ErrAlreadyConnected indicates Connect on a running device
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotConnected indicates an operation that needs a running device
	ErrNotConnected = errors.New("not connected")
)

// ParseError reports a protocol line that could not be decoded.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("[daq] invalid line %q: %s", e.Line, e.Reason)
}
