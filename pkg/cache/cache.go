package cache

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/logging"
	"github.com/itohio/livescope/pkg/sample"
	"go.uber.org/zap"
)

// versions is shared by every Cache so that a snapshot of a replacement
// cache never reuses a version of the cache it replaced.
var versions atomic.Uint64

// UpdateInfo describes where a successful Update placed its rows.
type UpdateInfo struct {
	FirstSlot int  // Slot of the first reduced row
	Rows      int  // Number of reduced rows written (before wrapping)
	Sparse    bool // Rows were placed by sparse fill
	Restarted bool // The chunk started a new sweep
}

// Cache is the live display cache: a fixed-capacity ring of display points
// per channel plus the view state that addresses it.
//
// Chunks are reduced by a Downsampler and written at the slot computed from
// their timestamps relative to the sweep origin, wrapping around the ring.
// Update, Clear and the view operations hold the write lock; Snapshot copies
// under the read lock, so a renderer never observes a partial write.
type Cache struct {
	logger      *zap.Logger
	downsampler *sample.Downsampler

	capacity         int
	channels         int
	gap              int
	restart          RestartPolicy
	minWindow        float64
	maxWindow        float64
	initialWindow    float64
	initialHalfRange float64

	mu        sync.RWMutex
	timeAxis  []float64
	values    [][]float64 // [channel][slot]
	scale     []float64
	window    float64
	halfRange float64
	center    float64
	origin    float64 // Acquisition time of slot 0 in the current sweep
	lastWrite float64
	written   bool
	sparse    bool
	cursor    int
	version   uint64
	state     State

	callbacks []func(UpdateInfo)
	cbMu      sync.RWMutex
}

// New creates a display cache with one channel per entry of scales.
func New(cfg config.DisplayConfig, scales []float64, logger *zap.Logger) (*Cache, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.Capacity)
	}
	if !(cfg.WindowSeconds > 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidWindow, cfg.WindowSeconds)
	}
	if cfg.MaxWindowSeconds > 0 && cfg.MinWindowSeconds > cfg.MaxWindowSeconds {
		return nil, fmt.Errorf("%w: limits [%g, %g]", ErrInvalidWindow, cfg.MinWindowSeconds, cfg.MaxWindowSeconds)
	}
	if !(cfg.VoltageHalfRange > 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidRange, cfg.VoltageHalfRange)
	}
	if len(scales) < 1 || len(scales) > sample.MaxChannels {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, len(scales))
	}

	strategy, err := sample.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	restart, err := ParseRestartPolicy(cfg.SweepRestart)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}

	c := &Cache{
		logger:           logging.OrNop(logger),
		downsampler:      sample.NewDownsampler(strategy, rng),
		capacity:         cfg.Capacity,
		channels:         len(scales),
		gap:              max(cfg.BufferGap, 0),
		restart:          restart,
		minWindow:        cfg.MinWindowSeconds,
		maxWindow:        cfg.MaxWindowSeconds,
		initialWindow:    cfg.WindowSeconds,
		initialHalfRange: cfg.VoltageHalfRange,
		timeAxis:         make([]float64, cfg.Capacity),
		values:           make([][]float64, len(scales)),
		scale:            append([]float64(nil), scales...),
		window:           cfg.WindowSeconds,
		halfRange:        cfg.VoltageHalfRange,
	}
	for ch := range c.values {
		c.values[ch] = make([]float64, cfg.Capacity)
	}
	c.clearLocked()

	return c, nil
}

// Capacity returns the number of display slots per channel.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Channels returns the number of displayed channels.
func (c *Cache) Channels() int {
	return c.channels
}

// Update reduces chunk and writes it into the ring.
//
// A malformed chunk is logged and rejected with the buffer left unchanged.
// A chunk that ends before the last written time (or before the sweep
// origin) starts a new sweep: the origin is rebased to its first timestamp
// and, with RestartClear, the buffer is blanked first.
func (c *Cache) Update(chunk sample.Chunk) (UpdateInfo, error) {
	if err := chunk.Validate(c.channels); err != nil {
		c.logger.Warn("[cache] rejected chunk",
			zap.Error(err),
			zap.Int("rows", chunk.Len()),
			zap.Int("channels", chunk.Channels()),
			zap.Int("expectedChannels", c.channels))
		return UpdateInfo{}, fmt.Errorf("failed to update display cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var info UpdateInfo
	if chunk.End() < c.origin || (c.written && chunk.End() < c.lastWrite) {
		if c.restart == RestartClear {
			c.clearLocked()
		}
		c.logger.Debug("[cache] sweep restart",
			zap.Float64("chunkStart", chunk.Start()),
			zap.Float64("lastWrite", c.lastWrite),
			zap.Float64("origin", c.origin),
			zap.Stringer("policy", c.restart))
		c.origin = chunk.Start()
		info.Restarted = true
	}

	reduced, err := c.downsampler.Reduce(chunk, c.window, c.capacity)
	if err != nil {
		c.logger.Warn("[cache] failed to reduce chunk", zap.Error(err), zap.Int("rows", chunk.Len()))
		return UpdateInfo{}, fmt.Errorf("failed to reduce chunk: %w", err)
	}

	first := c.slotOf(reduced.Start())
	rows := reduced.Len()
	for i, row := range reduced.Values {
		slot := (first + i) % c.capacity
		for ch, v := range row {
			// Sparse rows carry NaN between samples; keep older markers there.
			if reduced.Sparse && math.IsNaN(v) {
				continue
			}
			c.values[ch][slot] = v * c.scale[ch]
		}
	}

	last := first + rows - 1
	if !reduced.Sparse {
		blank := min(c.gap, c.capacity-rows)
		for g := 1; g <= blank; g++ {
			slot := (last + g) % c.capacity
			for ch := range c.values {
				c.values[ch][slot] = math.NaN()
			}
		}
	}

	c.cursor = (last + 1) % c.capacity
	c.lastWrite = chunk.End()
	c.written = true
	c.sparse = reduced.Sparse
	c.version = versions.Add(1)

	info.FirstSlot = first
	info.Rows = rows
	info.Sparse = reduced.Sparse
	return info, nil
}

// slotOf maps an absolute timestamp to its slot in the current sweep.
func (c *Cache) slotOf(t float64) int {
	rel := math.Mod(t-c.origin, c.window)
	if rel < 0 {
		rel += c.window
	}
	slot := int(math.Round(rel / c.window * float64(c.capacity)))
	return min(max(slot, 0), c.capacity-1)
}

// Clear blanks every slot, re-derives the time axis from the window width and
// rebases the sweep origin to the last written acquisition time. The voltage
// view is left untouched.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Cache) clearLocked() {
	for i := range c.timeAxis {
		c.timeAxis[i] = float64(i) * c.window / float64(c.capacity)
	}
	for ch := range c.values {
		for i := range c.values[ch] {
			c.values[ch][i] = math.NaN()
		}
	}
	c.origin = c.lastWrite
	c.sparse = false
	c.cursor = 0
	c.version = versions.Add(1)
}

// Start moves the session to Streaming.
func (c *Cache) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Streaming {
		c.state = Streaming
		c.logger.Info("[cache] streaming started", zap.Float64("window", c.window), zap.Int("capacity", c.capacity))
	}
}

// Stop moves the session to Idle. Update still works, but OnUpdate
// callbacks are no longer invoked.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		c.state = Idle
		c.logger.Info("[cache] streaming stopped")
	}
}

// State returns the session state.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ProcessChunks feeds chunks from input into Update until input closes.
// The session is Streaming for the duration of the call. Rejected chunks are
// skipped; they have already been logged by Update.
func (c *Cache) ProcessChunks(input <-chan sample.Chunk) {
	c.Start()
	defer c.Stop()

	for chunk := range input {
		info, err := c.Update(chunk)
		if err != nil {
			continue
		}
		if c.State() == Streaming {
			c.notifyCallbacks(info)
		}
	}
}

// OnUpdate registers a callback invoked after every chunk ProcessChunks
// writes while streaming. The callback runs on the ingestion goroutine and
// should return quickly.
func (c *Cache) OnUpdate(callback func(UpdateInfo)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

func (c *Cache) notifyCallbacks(info UpdateInfo) {
	c.cbMu.RLock()
	callbacks := make([]func(UpdateInfo), len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(info)
		}
	}
}
