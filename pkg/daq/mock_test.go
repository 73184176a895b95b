package daq

import (
	"testing"
	"time"

	"github.com/itohio/livescope/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMock(mockCfg config.MockConfig) *Mock {
	return NewMock(mockCfg, config.AcquisitionConfig{
		Channels:      2,
		SampleRate:    1000,
		ChunkSize:     100,
		FlushInterval: 10 * time.Millisecond,
		VRef:          3.3,
		ADCBits:       12,
	}, nil)
}

func TestNewMock_Defaults(t *testing.T) {
	m := NewMock(config.MockConfig{}, config.AcquisitionConfig{}, nil)

	assert.Equal(t, 1, m.Channels())
	assert.Equal(t, float64(1000), m.acq.SampleRate)
	assert.Equal(t, float64(4095), m.maxCount)
	assert.False(t, m.IsConnected())
}

func TestMock_Generate(t *testing.T) {
	m := testMock(config.MockConfig{Amplitude: 1, Frequency: 5})

	chunks := m.generate(250, time.Now())

	// 250 rows cut at ChunkSize.
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, chunks[0].Len())
	assert.Equal(t, 100, chunks[1].Len())
	assert.Equal(t, 50, chunks[2].Len())
	assert.Equal(t, uint64(250), m.next)

	// 1 kHz sampling: 1000 us apart.
	assert.Equal(t, uint64(0), chunks[0].Micros[0])
	assert.Equal(t, uint64(1000), chunks[0].Micros[1])
	for _, c := range chunks {
		for _, row := range c.Counts {
			assert.Len(t, row, 2)
		}
	}

	// Nothing new is due.
	assert.Empty(t, m.generate(250, time.Now()))
}

func TestMock_ClockRollover(t *testing.T) {
	m := testMock(config.MockConfig{ClockRollover: 50 * time.Millisecond})

	chunks := m.generate(80, time.Now())

	// Rows 0..49 and 50..79, with the device clock restarting at 0.
	require.Len(t, chunks, 2)
	assert.Equal(t, 50, chunks[0].Len())
	assert.Equal(t, uint64(49000), chunks[0].Micros[49])
	assert.Equal(t, uint64(0), chunks[1].Micros[0])
}

func TestMock_Spike(t *testing.T) {
	m := testMock(config.MockConfig{SpikeAmplitude: 1.5, SpikePeriod: 100 * time.Millisecond})

	_, before := m.sample(99)
	_, spike := m.sample(100)

	// Flat signal at mid-scale, then +1.5 V on channel 0 only.
	assert.InDelta(t, 2048, int(before[0]), 1)
	assert.InDelta(t, 2048+1861, int(spike[0]), 2)
	assert.InDelta(t, 2048, int(spike[1]), 1)
}

func TestMock_ToCountClamps(t *testing.T) {
	m := testMock(config.MockConfig{})

	assert.Equal(t, uint16(0), m.toCount(-1))
	assert.Equal(t, uint16(4095), m.toCount(10))
	assert.Equal(t, uint16(4095), m.toCount(3.3))
}

func TestMock_GracefulShutdown(t *testing.T) {
	m := testMock(config.MockConfig{Amplitude: 1, Frequency: 5})

	require.NoError(t, m.Connect())
	assert.ErrorIs(t, m.Connect(), ErrAlreadyConnected)
	assert.True(t, m.IsConnected())

	chunks := m.Chunks()
	select {
	case c, ok := <-chunks:
		require.True(t, ok)
		assert.Positive(t, c.Len())
	case <-time.After(time.Second):
		t.Fatal("no chunk received from mock")
	}

	require.NoError(t, m.Close())
	assert.False(t, m.IsConnected())

	// Channel must be closed after drain.
	timeout := time.After(time.Second)
	for {
		select {
		case _, ok := <-chunks:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("chunks channel not closed after Close")
		}
	}
}
