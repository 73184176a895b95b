package daq

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/itohio/livescope/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		channels   int
		wantMicros uint64
		wantCounts []uint16
		wantErr    bool
	}{
		{
			name:       "single channel",
			line:       "1234567,2048",
			channels:   1,
			wantMicros: 1234567,
			wantCounts: []uint16{2048},
		},
		{
			name:       "four channels",
			line:       "10,0,1,4095,7",
			channels:   4,
			wantMicros: 10,
			wantCounts: []uint16{0, 1, 4095, 7},
		},
		{name: "too few values", line: "10,1", channels: 2, wantErr: true},
		{name: "too many values", line: "10,1,2,3", channels: 2, wantErr: true},
		{name: "bad timestamp", line: "abc,1", channels: 1, wantErr: true},
		{name: "negative count", line: "10,-1", channels: 1, wantErr: true},
		{name: "count out of range", line: "10,4096", channels: 1, wantErr: true},
		{name: "empty field", line: "10,", channels: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			micros, counts, err := parseLine(tt.line, tt.channels, 4095)
			if tt.wantErr {
				require.Error(t, err)
				var perr *ParseError
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.line, perr.Line)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMicros, micros)
			assert.Equal(t, tt.wantCounts, counts)
		})
	}
}

func TestSerial_ReadChunks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := New("test", 0, config.AcquisitionConfig{Channels: 2, ChunkSize: 3, ADCBits: 12}, zap.New(core))

	input := strings.Join([]string{
		"1,2", // partial first line, silently skipped
		"100,1,2",
		"200,3,4",
		"garbage",
		"300,5,6",
		"400,7,8",
		"50,9,10", // clock reset cuts the chunk
		"60,11,12",
	}, "\n") + "\n"

	out := make(chan RawChunk, 10)
	d.readChunks(t.Context(), strings.NewReader(input), out)

	var chunks []RawChunk
	for c := range out {
		chunks = append(chunks, c)
	}

	require.Len(t, chunks, 3)
	assert.Equal(t, []uint64{100, 200, 300}, chunks[0].Micros)
	assert.Equal(t, [][]uint16{{1, 2}, {3, 4}, {5, 6}}, chunks[0].Counts)
	assert.Equal(t, []uint64{400}, chunks[1].Micros)
	assert.Equal(t, []uint64{50, 60}, chunks[2].Micros)

	// Only the garbage line after sync is reported.
	assert.Equal(t, 1, logs.FilterMessage("[daq] failed to parse line").Len())
}

func TestSerial_NotConnected(t *testing.T) {
	d := New("nonexistent", 0, config.AcquisitionConfig{Channels: 1}, nil)
	assert.False(t, d.IsConnected())
	assert.NoError(t, d.Close())
	assert.Equal(t, 1, d.Channels())
}

func TestBatcher(t *testing.T) {
	now := time.Now()

	t.Run("cuts on size", func(t *testing.T) {
		b := newBatcher(2, 0)
		assert.Empty(t, b.add(1, []uint16{1}, now))
		done := b.add(2, []uint16{2}, now)
		require.Len(t, done, 1)
		assert.Equal(t, []uint64{1, 2}, done[0].Micros)
		assert.False(t, b.pending())
	})

	t.Run("cuts on age", func(t *testing.T) {
		b := newBatcher(100, 10*time.Millisecond)
		assert.Empty(t, b.add(1, []uint16{1}, now))
		done := b.add(2, []uint16{2}, now.Add(10*time.Millisecond))
		require.Len(t, done, 1)
		assert.Equal(t, 2, done[0].Len())
	})

	t.Run("cuts on clock reset", func(t *testing.T) {
		b := newBatcher(100, 0)
		b.add(10, []uint16{1}, now)
		b.add(20, []uint16{2}, now)
		done := b.add(5, []uint16{3}, now)
		require.Len(t, done, 1)
		assert.Equal(t, []uint64{10, 20}, done[0].Micros)
		assert.True(t, b.pending())
		assert.Equal(t, []uint64{5}, b.flush().Micros)
	})

	t.Run("repeated timestamp cuts", func(t *testing.T) {
		b := newBatcher(100, 0)
		b.add(10, []uint16{1}, now)
		done := b.add(10, []uint16{2}, now)
		require.Len(t, done, 1)
		assert.Equal(t, 1, done[0].Len())
	})
}
