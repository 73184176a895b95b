package sample

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"time"
)

// Strategy selects how dense chunks are reduced to the display budget.
type Strategy int

const (
	// StrategyMinMax keeps the extremes of every bucket, so narrow spikes survive.
	StrategyMinMax Strategy = iota
	// StrategyRandom keeps uniformly random rows. Cheap, but can miss transients.
	StrategyRandom
)

// ParseStrategy converts a config value ("minmax" or "random") to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "minmax", "":
		return StrategyMinMax, nil
	case "random":
		return StrategyRandom, nil
	}
	return 0, fmt.Errorf("unknown downsample strategy %q", s)
}

func (s Strategy) String() string {
	switch s {
	case StrategyMinMax:
		return "minmax"
	case StrategyRandom:
		return "random"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Reduced is a chunk ready to be placed into display slots.
// Sparse is true when the source was sparser than the display resolution:
// rows then sit at their nearest slot and the remaining slots hold NaN.
type Reduced struct {
	Chunk
	Sparse bool
}

// Downsampler reduces arbitrarily long chunks to a bounded number of rows.
type Downsampler struct {
	strategy Strategy
	rng      *rand.Rand
}

// NewDownsampler creates a downsampler. rng drives the random index
// selection; pass a seeded source for reproducible output. A nil rng is
// seeded from the clock.
func NewDownsampler(strategy Strategy, rng *rand.Rand) *Downsampler {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Downsampler{strategy: strategy, rng: rng}
}

// Strategy returns the reduction strategy used for dense chunks.
func (d *Downsampler) Strategy() Strategy {
	return d.strategy
}

// PointBudget returns how many display slots a span occupies in a window
// of the given width rendered with capacity slots.
func PointBudget(span, windowWidth float64, capacity int) int {
	return int(math.Round(span / windowWidth * float64(capacity)))
}

// TrimToWindow drops leading rows older than windowWidth before the last
// row. They would be overwritten by the trailing rows on the ring anyway.
func TrimToWindow(c Chunk, windowWidth float64) Chunk {
	if c.Len() == 0 || c.Span() <= windowWidth {
		return c
	}
	cutoff := c.End() - windowWidth
	first := sort.SearchFloat64s(c.Time, cutoff)
	return c.Slice(first, c.Len())
}

// Reduce downsamples c for a window of windowWidth seconds drawn with
// capacity slots.
//
// The point budget is round(span/windowWidth*capacity). If the budget is at
// least the number of rows the chunk is sparse and every row is placed at its
// nearest slot. A zero budget (a tiny chunk on a wide window) also falls back
// to sparse fill, with one slot per row up to capacity. Otherwise the
// configured strategy picks budget rows (random) or budget/2 min/max pairs
// (minmax).
//
// The output never has more than capacity+1 rows and always at least one.
func (d *Downsampler) Reduce(c Chunk, windowWidth float64, capacity int) (Reduced, error) {
	if c.Len() == 0 {
		return Reduced{}, ErrEmptyChunk
	}
	if !(windowWidth > 0) || capacity <= 0 {
		return Reduced{}, fmt.Errorf("%w: window %g, capacity %d", ErrInvalidBudget, windowWidth, capacity)
	}

	c = TrimToWindow(c, windowWidth)
	n := c.Len()
	budget := PointBudget(c.Span(), windowWidth, capacity)

	switch {
	case budget == 0:
		slots := min(n, capacity)
		step := 1.0
		if slots > 1 {
			step = c.Span() / float64(slots-1)
		}
		return Reduced{Chunk: sparseFill(c, slots, step), Sparse: true}, nil
	case budget >= n:
		return Reduced{Chunk: sparseFill(c, budget+1, windowWidth/float64(capacity)), Sparse: true}, nil
	}

	if d.strategy == StrategyRandom {
		return Reduced{Chunk: randomPick(c, budget, d.rng)}, nil
	}
	return Reduced{Chunk: minMaxPairs(c, max(1, budget/2))}, nil
}

// sparseFill places every row of c at the nearest of slots evenly spaced
// slots step seconds apart, starting at the chunk's first timestamp.
// Slots that receive no row hold NaN; a later row wins a shared slot.
func sparseFill(c Chunk, slots int, step float64) Chunk {
	channels := c.Channels()
	out := NewChunk(slots, channels)
	t0 := c.Start()

	for k := range slots {
		out.Time[k] = t0 + float64(k)*step
		for ch := range channels {
			out.Values[k][ch] = math.NaN()
		}
	}

	for r, t := range c.Time {
		k := int(math.Round((t - t0) / step))
		k = min(max(k, 0), slots-1)
		copy(out.Values[k], c.Values[r])
	}

	return out
}

// randomPick keeps count distinct rows of c chosen uniformly at random,
// in ascending time order.
func randomPick(c Chunk, count int, rng *rand.Rand) Chunk {
	idx := rng.Perm(c.Len())[:count]
	slices.Sort(idx)

	out := NewChunk(count, c.Channels())
	for i, r := range idx {
		out.Time[i] = c.Time[r]
		copy(out.Values[i], c.Values[r])
	}
	return out
}

// minMaxPairs partitions c into pairs contiguous buckets and emits two rows
// per bucket: first the per-channel minimum, then the per-channel maximum.
// The min row carries the bucket's first timestamp and the max row its last,
// so output time stays strictly increasing. NaN samples are ignored; a bucket
// with no finite sample for a channel yields NaN for that channel.
func minMaxPairs(c Chunk, pairs int) Chunk {
	n := c.Len()
	channels := c.Channels()
	out := NewChunk(2*pairs, channels)

	for k := range pairs {
		lo := k * n / pairs
		hi := (k + 1) * n / pairs

		minRow := out.Values[2*k]
		maxRow := out.Values[2*k+1]
		for ch := range channels {
			minRow[ch] = math.Inf(1)
			maxRow[ch] = math.Inf(-1)
		}

		for r := lo; r < hi; r++ {
			for ch, v := range c.Values[r] {
				if math.IsNaN(v) {
					continue
				}
				minRow[ch] = math.Min(minRow[ch], v)
				maxRow[ch] = math.Max(maxRow[ch], v)
			}
		}

		for ch := range channels {
			if math.IsInf(minRow[ch], 1) {
				minRow[ch] = math.NaN()
				maxRow[ch] = math.NaN()
			}
		}

		out.Time[2*k] = c.Time[lo]
		out.Time[2*k+1] = c.Time[hi-1]
	}

	return out
}
