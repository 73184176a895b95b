package daq

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/logging"
	"go.uber.org/zap"
)

// Mock simulates an acquisition MCU for testing and development.
// Each channel carries a phase-shifted sine with noise around mid-scale;
// channel 0 additionally gets a one-sample spike every SpikePeriod.
type Mock struct {
	cfg      config.MockConfig
	acq      config.AcquisitionConfig
	maxCount float64
	logger   *zap.Logger

	chunks    chan RawChunk
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool

	// Simulation state, owned by the generator goroutine
	rng       *rand.Rand
	next      uint64 // index of the next sample to generate
	startTime time.Time
}

// NewMock creates a new mocked device instance.
func NewMock(cfg config.MockConfig, acq config.AcquisitionConfig, logger *zap.Logger) *Mock {
	if acq.Channels <= 0 {
		acq.Channels = 1
	}
	if acq.SampleRate <= 0 {
		acq.SampleRate = 1000
	}
	if acq.FlushInterval <= 0 {
		acq.FlushInterval = 50 * time.Millisecond
	}
	if acq.VRef <= 0 {
		acq.VRef = 3.3
	}
	bits := acq.ADCBits
	if bits <= 0 {
		bits = 12
	}

	return &Mock{
		cfg:      cfg,
		acq:      acq,
		maxCount: float64(uint64(1)<<uint(bits) - 1),
		logger:   logging.OrNop(logger),
		chunks:   make(chan RawChunk),
		rng:      rand.New(rand.NewPCG(1, 2)),
	}
}

// Connect starts generating chunks.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.chunks = make(chan RawChunk, DefaultBufferSize)
	m.done = make(chan struct{})
	m.connected = true
	m.next = 0
	m.startTime = time.Now()

	go m.generateChunks(ctx, m.chunks, m.done)

	m.logger.Info("[daq] mock connected",
		zap.Int("channels", m.acq.Channels),
		zap.Float64("sampleRate", m.acq.SampleRate))
	return nil
}

// Close stops the mocked device and waits for the generator to exit.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	done := m.done
	m.mu.Unlock()

	<-done
	m.logger.Info("[daq] mock disconnected")
	return nil
}

// Chunks returns the channel of the current connection.
func (m *Mock) Chunks() <-chan RawChunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chunks
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Channels returns the number of simulated channels.
func (m *Mock) Channels() int {
	return m.acq.Channels
}

// generateChunks emits everything due since the last tick once per flush interval.
func (m *Mock) generateChunks(ctx context.Context, out chan<- RawChunk, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	ticker := time.NewTicker(m.acq.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due := uint64(now.Sub(m.startTime).Seconds() * m.acq.SampleRate)
			for _, c := range m.generate(due, now) {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				default:
					m.logger.Warn("[daq] mock chunks channel full, dropping chunk", zap.Int("rows", c.Len()))
				}
			}
		}
	}
}

// generate produces rows [m.next, upto) and cuts them into chunks.
func (m *Mock) generate(upto uint64, now time.Time) []RawChunk {
	b := newBatcher(m.acq.ChunkSize, 0)
	var out []RawChunk

	for ; m.next < upto; m.next++ {
		micros, counts := m.sample(m.next)
		out = append(out, b.add(micros, counts, now)...)
	}
	if b.pending() {
		out = append(out, b.flush())
	}
	return out
}

// sample computes the simulated row for sample index i.
func (m *Mock) sample(i uint64) (uint64, []uint16) {
	t := float64(i) / m.acq.SampleRate

	micros := uint64(math.Round(t * 1e6))
	if m.cfg.ClockRollover > 0 {
		micros %= uint64(m.cfg.ClockRollover / time.Microsecond)
	}

	spikeEvery := uint64(m.cfg.SpikePeriod.Seconds() * m.acq.SampleRate)

	counts := make([]uint16, m.acq.Channels)
	for ch := range counts {
		phase := float64(ch) * math.Pi / 2
		v := m.acq.VRef/2 +
			m.cfg.Amplitude*math.Sin(2*math.Pi*m.cfg.Frequency*t+phase) +
			m.cfg.NoiseLevel*(2*m.rng.Float64()-1)
		if ch == 0 && spikeEvery > 0 && i > 0 && i%spikeEvery == 0 {
			v += m.cfg.SpikeAmplitude
		}
		counts[ch] = m.toCount(v)
	}

	return micros, counts
}

// toCount converts volts to a clamped ADC count.
func (m *Mock) toCount(v float64) uint16 {
	c := v / m.acq.VRef * m.maxCount
	if c < 0 {
		c = 0
	} else if c > m.maxCount {
		c = m.maxCount
	}
	return uint16(math.Round(c))
}
