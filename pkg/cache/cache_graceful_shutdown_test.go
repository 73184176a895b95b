package cache

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/itohio/livescope/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCache_ProcessChunks_GracefulShutdown tests that ProcessChunks returns
// and the session goes Idle once the input channel is closed.
func TestCache_ProcessChunks_GracefulShutdown(t *testing.T) {
	c := newTestCache(t, testConfig())

	var mu sync.Mutex
	var infos []UpdateInfo
	var states []State
	c.OnUpdate(func(info UpdateInfo) {
		mu.Lock()
		defer mu.Unlock()
		infos = append(infos, info)
		states = append(states, c.State())
	})

	input := make(chan sample.Chunk, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.ProcessChunks(input)
	}()

	input <- rampChunk(0.1, 0.005, 21, 1, constant(1))
	input <- rampChunk(0.3, 0.005, 21, 2, constant(1)) // rejected
	input <- rampChunk(0.5, 0.005, 21, 1, constant(1))
	input <- rampChunk(0.7, 0.005, 21, 1, constant(1))
	close(input)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ProcessChunks did not return after input closed")
	}

	assert.Equal(t, Idle, c.State())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, infos, 3)
	assert.Equal(t, []int{10, 50, 70}, []int{infos[0].FirstSlot, infos[1].FirstSlot, infos[2].FirstSlot})
	for _, s := range states {
		assert.Equal(t, Streaming, s)
	}
}

// TestCache_NoCallbacksWhenIdle tests that a direct Update outside a
// streaming session does not invoke callbacks.
func TestCache_NoCallbacksWhenIdle(t *testing.T) {
	c := newTestCache(t, testConfig())

	calls := 0
	c.OnUpdate(func(UpdateInfo) { calls++ })

	_, err := c.Update(rampChunk(0.1, 0.005, 21, 1, constant(1)))
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	c.Start()
	assert.Equal(t, Streaming, c.State())
	c.Stop()
	assert.Equal(t, Idle, c.State())
}

// TestCache_ConcurrentSnapshot writes full-window chunks of a single value
// while readers take snapshots. Every snapshot must hold exactly one value
// (or be entirely empty), never a mix of two writes.
func TestCache_ConcurrentSnapshot(t *testing.T) {
	cfg := testConfig()
	cfg.BufferGap = 0
	c := newTestCache(t, cfg)

	const writes = 200
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}

				s := c.Snapshot()
				if !assert.Equal(t, 100, s.Capacity()) {
					return
				}
				first := s.At(0, 0)
				for slot := 1; slot < s.Capacity(); slot++ {
					v := s.At(slot, 0)
					if math.IsNaN(first) {
						if !assert.True(t, math.IsNaN(v), "torn snapshot at slot %d", slot) {
							return
						}
					} else if !assert.Equal(t, first, v, "torn snapshot at slot %d", slot) {
						return
					}
				}
			}
		}()
	}

	for k := range writes {
		_, err := c.Update(rampChunk(float64(k), 0.001, 1000, 1, constant(float64(k))))
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	assert.Equal(t, float64(writes-1), c.Snapshot().At(50, 0))
}
