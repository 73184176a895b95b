package sample

import (
	"testing"

	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/daq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestADCToVoltage(t *testing.T) {
	tests := []struct {
		name string
		adc  uint16
		bits int
		vref float64
		want float64
	}{
		{
			name: "zero ADC",
			adc:  0,
			bits: 12,
			vref: 3.3,
			want: 0.0,
		},
		{
			name: "max ADC",
			adc:  4095,
			bits: 12,
			vref: 3.3,
			want: 3.3,
		},
		{
			name: "half ADC",
			adc:  2047,
			bits: 12,
			vref: 3.3,
			want: 1.65, // Approximately
		},
		{
			name: "different VRef",
			adc:  2047,
			bits: 12,
			vref: 5.0,
			want: 2.5, // Approximately
		},
		{
			name: "10 bit ADC",
			adc:  1023,
			bits: 10,
			vref: 3.3,
			want: 3.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adcToVoltage(tt.adc, adcMax(tt.bits), tt.vref)
			assert.InDelta(t, tt.want, got, 0.01, "adcToVoltage(%d) = %f, want %f", tt.adc, got, tt.want)
		})
	}
}

func TestADCMax(t *testing.T) {
	assert.Equal(t, 4095.0, adcMax(12))
	assert.Equal(t, 4095.0, adcMax(0))
	assert.Equal(t, 65535.0, adcMax(16))
}

func TestConvertChunk(t *testing.T) {
	acq := config.AcquisitionConfig{VRef: 3.3, ADCBits: 12}
	raw := daq.RawChunk{
		Micros: []uint64{1_000_000, 1_000_500, 1_001_000},
		Counts: [][]uint16{{0, 4095}, {4095, 0}, {2048, 2048}},
	}

	c, err := convertChunk(raw, acq)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, 2, c.Channels())

	assert.InDelta(t, 1.0, c.Time[0], 1e-12)
	assert.InDelta(t, 1.0005, c.Time[1], 1e-12)
	assert.InDelta(t, 1.001, c.Time[2], 1e-12)

	assert.InDelta(t, 0.0, c.Values[0][0], 1e-9)
	assert.InDelta(t, 3.3, c.Values[0][1], 1e-9)
	assert.InDelta(t, 3.3, c.Values[1][0], 1e-9)
	assert.InDelta(t, 1.65, c.Values[2][1], 0.01)

	require.NoError(t, c.Validate(2))
}

func TestConvertChunk_Errors(t *testing.T) {
	acq := config.AcquisitionConfig{VRef: 3.3, ADCBits: 12}

	tests := []struct {
		name string
		raw  daq.RawChunk
		want error
	}{
		{
			name: "empty",
			raw:  daq.RawChunk{},
			want: ErrEmptyChunk,
		},
		{
			name: "ragged",
			raw: daq.RawChunk{
				Micros: []uint64{1, 2},
				Counts: [][]uint16{{1}},
			},
			want: ErrRaggedChunk,
		},
		{
			name: "row width differs",
			raw: daq.RawChunk{
				Micros: []uint64{1, 2},
				Counts: [][]uint16{{1, 2}, {3}},
			},
			want: ErrChannelMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := convertChunk(tt.raw, acq)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewConverter(t *testing.T) {
	acq := config.AcquisitionConfig{VRef: 3.3, ADCBits: 12}
	converter := NewConverter(acq, 10, nil)

	in := make(chan daq.RawChunk, 3)
	out := converter(in)

	in <- daq.RawChunk{Micros: []uint64{0, 100}, Counts: [][]uint16{{0}, {4095}}}
	in <- daq.RawChunk{Micros: []uint64{200}, Counts: [][]uint16{}} // dropped
	in <- daq.RawChunk{Micros: []uint64{300}, Counts: [][]uint16{{2048}}}
	close(in)

	var chunks []Chunk
	for c := range out {
		chunks = append(chunks, c)
	}

	require.Len(t, chunks, 2)
	assert.Equal(t, 2, chunks[0].Len())
	assert.InDelta(t, 0.0001, chunks[0].Time[1], 1e-12)
	assert.InDelta(t, 0.0003, chunks[1].Time[0], 1e-12)
}
