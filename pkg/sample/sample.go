package sample

import (
	"fmt"
	"time"

	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/daq"
	"github.com/itohio/livescope/pkg/logging"
	"go.uber.org/zap"
)

// Converter is a function type that converts a RawChunk channel to a Chunk channel.
type Converter func(in <-chan daq.RawChunk) <-chan Chunk

// NewConverter creates a converter that turns device clock microseconds into
// seconds and raw ADC counts into volts. Values stay in raw acquisition units;
// per-channel display scaling happens in the display cache.
func NewConverter(acq config.AcquisitionConfig, bufSize int, logger *zap.Logger) Converter {
	if bufSize <= 0 {
		bufSize = 100
	}
	logger = logging.OrNop(logger)

	return func(in <-chan daq.RawChunk) <-chan Chunk {
		out := make(chan Chunk, bufSize)

		go func() {
			defer close(out)

			for raw := range in {
				c, err := convertChunk(raw, acq)
				if err != nil {
					logger.Warn("[sample] failed to convert chunk", zap.Error(err), zap.Int("rows", raw.Len()))
					continue
				}

				select {
				case out <- c:
				case <-time.After(time.Second):
					logger.Warn("[sample] converter output channel full, dropping chunk", zap.Int("rows", c.Len()))
				}
			}
		}()

		return out
	}
}

// convertChunk converts a RawChunk to a Chunk using the acquisition settings.
func convertChunk(raw daq.RawChunk, acq config.AcquisitionConfig) (Chunk, error) {
	if raw.Len() == 0 {
		return Chunk{}, ErrEmptyChunk
	}
	if len(raw.Counts) != raw.Len() {
		return Chunk{}, fmt.Errorf("%w: %d timestamps, %d rows", ErrRaggedChunk, raw.Len(), len(raw.Counts))
	}

	channels := len(raw.Counts[0])
	maxCount := adcMax(acq.ADCBits)
	c := NewChunk(raw.Len(), channels)

	for i, us := range raw.Micros {
		c.Time[i] = microsToSeconds(us)
		if len(raw.Counts[i]) != channels {
			return Chunk{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrChannelMismatch, i, len(raw.Counts[i]), channels)
		}
		for ch, count := range raw.Counts[i] {
			c.Values[i][ch] = adcToVoltage(count, maxCount, acq.VRef)
		}
	}

	return c, nil
}

// microsToSeconds converts a device timestamp to seconds.
func microsToSeconds(us uint64) float64 {
	return float64(us) / 1e6
}

// adcMax returns the full-scale count for an ADC of the given resolution.
func adcMax(bits int) float64 {
	if bits <= 0 {
		bits = 12
	}
	return float64(uint64(1)<<uint(bits) - 1)
}

// adcToVoltage converts an ADC reading to voltage.
func adcToVoltage(adc uint16, maxCount, vref float64) float64 {
	return (float64(adc) / maxCount) * vref
}
