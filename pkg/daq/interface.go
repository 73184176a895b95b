package daq

// Device defines the interface for acquisition devices (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Chunks() <-chan RawChunk
	IsConnected() bool
	Channels() int
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
