package daq

import "time"

// RawChunk is a batch of rows as read from the device.
type RawChunk struct {
	Micros []uint64   // Device clock in microseconds; may reset between chunks
	Counts [][]uint16 // Counts[row][channel], raw ADC counts
}

// Len returns the number of rows.
func (c RawChunk) Len() int {
	return len(c.Micros)
}

// batcher groups rows into chunks. A chunk is cut when it reaches size rows,
// when it is older than maxAge, or when the device clock goes backwards so
// that every emitted chunk has increasing timestamps.
type batcher struct {
	size    int
	maxAge  time.Duration
	cur     RawChunk
	started time.Time
}

func newBatcher(size int, maxAge time.Duration) *batcher {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &batcher{size: size, maxAge: maxAge}
}

// add appends a row and returns any chunks completed by doing so.
func (b *batcher) add(micros uint64, counts []uint16, now time.Time) []RawChunk {
	var done []RawChunk

	if n := b.cur.Len(); n > 0 && micros <= b.cur.Micros[n-1] {
		done = append(done, b.flush())
	}
	if b.cur.Len() == 0 {
		b.started = now
		b.cur = RawChunk{
			Micros: make([]uint64, 0, b.size),
			Counts: make([][]uint16, 0, b.size),
		}
	}

	b.cur.Micros = append(b.cur.Micros, micros)
	b.cur.Counts = append(b.cur.Counts, counts)

	if b.cur.Len() >= b.size || (b.maxAge > 0 && now.Sub(b.started) >= b.maxAge) {
		done = append(done, b.flush())
	}
	return done
}

// flush returns the pending rows and starts a new chunk.
func (b *batcher) flush() RawChunk {
	c := b.cur
	b.cur = RawChunk{}
	return c
}

// pending reports whether rows are waiting to be flushed.
func (b *batcher) pending() bool {
	return b.cur.Len() > 0
}
