package sample

import "errors"

// Chunk validation errors
var (
	// ErrEmptyChunk indicates a chunk with no rows
	ErrEmptyChunk = errors.New("chunk is empty")

	// ErrRaggedChunk indicates a timestamp column and value rows of different lengths
	ErrRaggedChunk = errors.New("chunk has mismatched time and value rows")

	// ErrChannelMismatch indicates a row whose width differs from the expected channel count
	ErrChannelMismatch = errors.New("chunk channel count mismatch")

	// ErrTooManyChannels indicates more channels than can be displayed
	ErrTooManyChannels = errors.New("too many channels")

	// ErrNonMonotonic indicates timestamps that are not strictly increasing
	ErrNonMonotonic = errors.New("chunk timestamps are not strictly increasing")

	// ErrInvalidBudget indicates a non-positive window width or capacity
	ErrInvalidBudget = errors.New("window width and capacity must be positive")
)
