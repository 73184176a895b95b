package main

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/itohio/livescope/pkg/cache"
	"github.com/itohio/livescope/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testAppConfig() *config.Config {
	cfg := config.Default()
	cfg.Acquisition.SampleRate = 2000
	cfg.Acquisition.ChunkSize = 50
	cfg.Acquisition.FlushInterval = 10 * time.Millisecond
	cfg.Display.Capacity = 200
	cfg.Display.Seed = 1
	return cfg
}

func TestStartChainMockFeedsCache(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testAppConfig()

	c, err := cache.New(cfg.Display, cfg.Scales(), logger)
	require.NoError(t, err)

	var updates int
	done := make(chan struct{}, 1)
	c.OnUpdate(func(info cache.UpdateInfo) {
		updates++
		if updates == 3 {
			done <- struct{}{}
		}
	})

	chain, err := startChain(cfg, newDevice(cfg, true, logger), c, logger)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cache received no updates from the mock chain")
	}

	assert.Equal(t, cache.Streaming, c.State())
	require.NoError(t, chain.Close())
	assert.Equal(t, cache.Idle, c.State())

	snap := c.Snapshot()
	written := 0
	for slot := 0; slot < snap.Capacity(); slot++ {
		if !math.IsNaN(snap.At(slot, 0)) {
			written++
		}
	}
	assert.Positive(t, written)
}

func TestStartChainWithAveraging(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testAppConfig()
	cfg.Acquisition.AverageSamples = 5

	c, err := cache.New(cfg.Display, cfg.Scales(), logger)
	require.NoError(t, err)

	rows := make(chan int, 16)
	c.OnUpdate(func(info cache.UpdateInfo) {
		select {
		case rows <- info.Rows:
		default:
		}
	})

	chain, err := startChain(cfg, newDevice(cfg, true, logger), c, logger)
	require.NoError(t, err)
	defer chain.Close() //nolint:errcheck

	select {
	case n := <-rows:
		assert.Positive(t, n)
	case <-time.After(2 * time.Second):
		t.Fatal("no averaged chunks reached the cache")
	}
}

func TestStartChainChannelMismatch(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := testAppConfig()

	c, err := cache.New(cfg.Display, []float64{1, 1, 1}, logger)
	require.NoError(t, err)

	device := newDevice(cfg, true, logger)
	_, err = startChain(cfg, device, c, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 channels")
	assert.False(t, device.IsConnected())
}

func TestNilChainClose(t *testing.T) {
	var chain *acquisitionChain
	assert.NoError(t, chain.Close())
}

func TestStatusText(t *testing.T) {
	cfg := testAppConfig()
	c, err := cache.New(cfg.Display, cfg.Scales(), zaptest.NewLogger(t))
	require.NoError(t, err)

	text := statusText(c.Snapshot(), 1500, 7)
	assert.True(t, strings.HasPrefix(text, "idle |"), text)
	assert.Contains(t, text, "window 2s")
	assert.Contains(t, text, "-2..2")
	assert.Contains(t, text, "line")
	assert.Contains(t, text, "7 chunks")
	assert.Contains(t, text, "1500 pts/s")
}
