package daq

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/logging"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

const (
	// DefaultBaudRate is the USB CDC baud rate used by the firmware.
	DefaultBaudRate = 921600
	// DefaultBufferSize is the default size for the chunks channel buffer.
	DefaultBufferSize = 64
	// DefaultChunkSize is the number of rows per chunk when unset.
	DefaultChunkSize = 500
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial streams multi-channel ADC rows from the acquisition MCU.
//
// The firmware prints one line per sample:
//
//	micros,c0[,c1[,c2[,c3]]]
//
// where micros is the MCU clock and cN are raw ADC counts.
type Serial struct {
	port          string
	baudRate      int
	channels      int
	maxCount      uint64
	chunkSize     int
	flushInterval time.Duration
	logger        *zap.Logger

	conn      serial.Port
	chunks    chan RawChunk
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
}

// New creates a serial device for the given port and acquisition settings.
func New(port string, baudRate int, acq config.AcquisitionConfig, logger *zap.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	bits := acq.ADCBits
	if bits <= 0 {
		bits = 12
	}

	return &Serial{
		port:          port,
		baudRate:      baudRate,
		channels:      acq.Channels,
		maxCount:      1<<uint(bits) - 1,
		chunkSize:     acq.ChunkSize,
		flushInterval: acq.FlushInterval,
		logger:        logging.OrNop(logger),
		chunks:        make(chan RawChunk),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			desc := d.Name
			if d.IsUSB {
				desc = fmt.Sprintf("%s [%s:%s]", d.Product, d.VID, d.PID)
			}
			result = append(result, Port{Name: d.Name, Description: desc})
		}
		return result, nil
	}

	// Enumeration details are not available on every platform.
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading chunks.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		d.logger.Warn("[daq] failed to reset input buffer", zap.Error(err), zap.String("port", d.port))
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.conn = port
	d.cancel = cancel
	d.chunks = make(chan RawChunk, DefaultBufferSize)
	d.connected = true

	go d.readChunks(ctx, port, d.chunks)

	d.logger.Info("[daq] connected", zap.String("port", d.port), zap.Int("baudRate", d.baudRate))
	return nil
}

// Close closes the connection. The chunks channel is closed once the
// reader goroutine has drained.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.logger.Warn("[daq] error closing serial port", zap.Error(err), zap.String("port", d.port))
		}
		d.conn = nil
	}

	d.connected = false
	d.logger.Info("[daq] disconnected", zap.String("port", d.port))
	return nil
}

// Chunks returns the channel of the current connection.
func (d *Serial) Chunks() <-chan RawChunk {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.chunks
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Channels returns the number of ADC channels per row.
func (d *Serial) Channels() int {
	return d.channels
}

// readChunks reads lines until the port closes or ctx is cancelled.
func (d *Serial) readChunks(ctx context.Context, r io.Reader, out chan<- RawChunk) {
	defer close(out)

	b := newBatcher(d.chunkSize, d.flushInterval)
	emit := func(c RawChunk) bool {
		select {
		case out <- c:
		case <-ctx.Done():
			return false
		default:
			d.logger.Warn("[daq] chunks channel full, dropping chunk", zap.Int("rows", c.Len()))
		}
		return true
	}

	scanner := bufio.NewScanner(r)
	synced := false
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		micros, counts, err := parseLine(line, d.channels, d.maxCount)
		if err != nil {
			// The first line after opening is usually cut in half.
			if synced {
				d.logger.Warn("[daq] failed to parse line", zap.Error(err))
			}
			continue
		}
		synced = true

		for _, c := range b.add(micros, counts, time.Now()) {
			if !emit(c) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		d.logger.Warn("[daq] error reading from serial port", zap.Error(err), zap.String("port", d.port))
	}
	if b.pending() {
		emit(b.flush())
	}
}

// parseLine parses one protocol line into a timestamp and channel counts.
// Format: micros,c0[,c1...]
// Example: 1234567890,2048,1024
func parseLine(line string, channels int, maxCount uint64) (uint64, []uint16, error) {
	parts := strings.Split(line, ",")
	if len(parts) != channels+1 {
		return 0, nil, &ParseError{
			Line:   line,
			Reason: fmt.Sprintf("expected %d comma-separated values, got %d", channels+1, len(parts)),
		}
	}

	micros, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, nil, &ParseError{Line: line, Reason: "invalid timestamp: " + err.Error()}
	}

	counts := make([]uint16, channels)
	for i, p := range parts[1:] {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return 0, nil, &ParseError{Line: line, Reason: fmt.Sprintf("invalid count on channel %d: %v", i, err)}
		}
		if v > maxCount {
			return 0, nil, &ParseError{Line: line, Reason: fmt.Sprintf("count %d out of range (max %d) on channel %d", v, maxCount, i)}
		}
		counts[i] = uint16(v)
	}

	return micros, counts, nil
}
