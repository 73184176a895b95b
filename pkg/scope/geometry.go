package scope

import (
	"math"
	"strconv"

	"fyne.io/fyne/v2"
	"github.com/chewxy/math32"
)

const (
	marginLeft   = float32(60)
	marginRight  = float32(20)
	marginTop    = float32(20)
	marginBottom = float32(40)
)

// plotArea is the pixel rectangle the traces are drawn into.
type plotArea struct {
	x, y, w, h float32
}

func newPlotArea(size fyne.Size) plotArea {
	return plotArea{
		x: marginLeft,
		y: marginTop,
		w: math32.Max(size.Width-marginLeft-marginRight, 1),
		h: math32.Max(size.Height-marginTop-marginBottom, 1),
	}
}

// mapX maps a slot time in [0, window) to a pixel column.
func (p plotArea) mapX(t, window float64) float32 {
	return p.x + float32(t/window)*p.w
}

// mapY maps a value to a pixel row. Values outside [lo, hi] are pinned to
// the plot edge.
func (p plotArea) mapY(v, lo, hi float64) float32 {
	frac := float32((v - lo) / (hi - lo))
	frac = math32.Max(0, math32.Min(1, frac))
	return p.y + p.h - frac*p.h
}

type segment struct {
	from, to fyne.Position
}

// traceSegments connects consecutive non-empty slots. The trace is broken at
// NaN slots and between the newest write (cursor-1) and the oldest data
// (cursor).
func traceSegments(times, values []float64, cursor int, window, lo, hi float64, p plotArea) []segment {
	segs := make([]segment, 0, len(values))
	for i := 1; i < len(values); i++ {
		if i == cursor || math.IsNaN(values[i-1]) || math.IsNaN(values[i]) {
			continue
		}
		segs = append(segs, segment{
			from: fyne.NewPos(p.mapX(times[i-1], window), p.mapY(values[i-1], lo, hi)),
			to:   fyne.NewPos(p.mapX(times[i], window), p.mapY(values[i], lo, hi)),
		})
	}
	return segs
}

// markerPositions returns the pixel center of every non-empty slot.
func markerPositions(times, values []float64, window, lo, hi float64, p plotArea) []fyne.Position {
	pos := make([]fyne.Position, 0)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		pos = append(pos, fyne.NewPos(p.mapX(times[i], window), p.mapY(v, lo, hi)))
	}
	return pos
}

// markerRadius shrinks markers as slots get denser, within [1, 3] pixels.
func markerRadius(p plotArea, capacity int) float32 {
	if capacity <= 0 {
		return 3
	}
	return math32.Max(1, math32.Min(3, p.w/float32(capacity)))
}

func formatVoltage(v float64, unit string) string {
	if math.Abs(v) < 1e-9 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64) + unit
}

func formatSeconds(s float64) string {
	decimals := 1
	if s < 1 {
		decimals = 3
	}
	return strconv.FormatFloat(s, 'f', decimals, 64) + "s"
}
