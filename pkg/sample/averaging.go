package sample

import (
	"math"
	"time"

	"github.com/itohio/livescope/pkg/logging"
	"go.uber.org/zap"
)

// NewAveragingConverter creates a converter stage that block-averages every
// windowSize consecutive rows of each chunk. This reduces noise and the rate
// fed to the display. The averaged row takes the timestamp of the block's
// last row. A trailing partial block is averaged over the rows it has.
func NewAveragingConverter(windowSize int, bufSize int, logger *zap.Logger) func(in <-chan Chunk) <-chan Chunk {
	if windowSize <= 0 {
		windowSize = 1
	}
	if bufSize <= 0 {
		bufSize = 100
	}
	logger = logging.OrNop(logger)

	return func(in <-chan Chunk) <-chan Chunk {
		out := make(chan Chunk, bufSize)

		go func() {
			defer close(out)

			for c := range in {
				if c.Len() == 0 {
					continue
				}
				avg := averageChunk(c, windowSize)

				select {
				case out <- avg:
				case <-time.After(time.Second):
					logger.Warn("[sample] averaging converter output channel full", zap.Int("rows", avg.Len()))
				}
			}
		}()

		return out
	}
}

// averageChunk averages consecutive blocks of windowSize rows.
// NaN values are left out of the mean; an all-NaN block stays NaN.
func averageChunk(c Chunk, windowSize int) Chunk {
	if windowSize <= 1 {
		return c
	}

	n := c.Len()
	channels := c.Channels()
	blocks := (n + windowSize - 1) / windowSize
	out := NewChunk(blocks, channels)

	for b := range blocks {
		lo := b * windowSize
		hi := min(lo+windowSize, n)

		for ch := range channels {
			var sum float64
			var count int
			for r := lo; r < hi; r++ {
				v := c.Values[r][ch]
				if math.IsNaN(v) {
					continue
				}
				sum += v
				count++
			}
			if count == 0 {
				out.Values[b][ch] = math.NaN()
			} else {
				out.Values[b][ch] = sum / float64(count)
			}
		}
		out.Time[b] = c.Time[hi-1]
	}

	return out
}
