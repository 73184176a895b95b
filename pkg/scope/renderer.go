package scope

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/livescope/pkg/cache"
	"github.com/itohio/livescope/pkg/config"
)

var (
	gridColor   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	cursorColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	background *canvas.Rectangle

	// Objects list for Fyne, rebuilt on every Refresh
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the canvas objects from the current snapshot.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	snap := r.scope.snap
	hasSnap := r.scope.hasSnap
	channels := r.scope.channels
	r.scope.mu.RUnlock()

	r.objects = []fyne.CanvasObject{r.background}

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 || !hasSnap || snap.Window <= 0 {
		return
	}

	p := newPlotArea(size)
	lo, hi := snap.VoltageRange()

	r.drawGrid(p, snap.Window, lo, hi, unitOf(channels, 0))
	r.drawCursor(p, snap)

	for ch := range snap.Channels() {
		clr := channelColors[ch%len(channelColors)]
		if snap.Sparse {
			r.drawMarkers(p, snap, ch, lo, hi, clr)
		} else {
			r.drawTrace(p, snap, ch, lo, hi, clr)
		}
	}

	r.drawLegend(p, snap, channels)
}

// drawGrid draws the oscilloscope-style grid with axis labels.
func (r *scopeRenderer) drawGrid(p plotArea, window, lo, hi float64, unit string) {
	// Horizontal grid lines (voltage)
	numHLines := 8
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/float32(numHLines)
		r.addLine(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y), gridColor, 1)

		value := hi - float64(i)*(hi-lo)/float64(numHLines)
		text := canvas.NewText(formatVoltage(value, unit), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	// Vertical grid lines (time)
	numVLines := 10
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/float32(numVLines)
		r.addLine(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h), gridColor, 1)

		text := canvas.NewText(formatSeconds(float64(i)*window/float64(numVLines)), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.h+5))
		r.objects = append(r.objects, text)
	}
}

// drawCursor draws the sweep position as a vertical line.
func (r *scopeRenderer) drawCursor(p plotArea, snap cache.Snapshot) {
	if snap.Capacity() == 0 || snap.State != cache.Streaming {
		return
	}
	x := p.mapX(snap.Time[snap.Cursor%snap.Capacity()], snap.Window)
	r.addLine(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h), cursorColor, 1)
}

// drawTrace draws one channel as a line broken at gaps.
func (r *scopeRenderer) drawTrace(p plotArea, snap cache.Snapshot, ch int, lo, hi float64, clr color.Color) {
	for _, seg := range traceSegments(snap.Time, snap.Values[ch], snap.Cursor, snap.Window, lo, hi, p) {
		r.addLine(seg.from, seg.to, clr, 1.5)
	}
}

// drawMarkers draws one channel as isolated dots.
func (r *scopeRenderer) drawMarkers(p plotArea, snap cache.Snapshot, ch int, lo, hi float64, clr color.Color) {
	radius := markerRadius(p, snap.Capacity())
	for _, pos := range markerPositions(snap.Time, snap.Values[ch], snap.Window, lo, hi, p) {
		dot := canvas.NewCircle(clr)
		dot.Resize(fyne.NewSize(2*radius, 2*radius))
		dot.Move(fyne.NewPos(pos.X-radius, pos.Y-radius))
		r.objects = append(r.objects, dot)
	}
}

// drawLegend prints channel names and the session state in the top-left corner.
func (r *scopeRenderer) drawLegend(p plotArea, snap cache.Snapshot, channels []config.ChannelConfig) {
	y := p.y + 5
	for ch := range snap.Channels() {
		name := "CH" + strconv.Itoa(ch+1)
		if ch < len(channels) && channels[ch].Name != "" {
			name = channels[ch].Name
		}
		text := canvas.NewText(name, channelColors[ch%len(channelColors)])
		text.TextSize = 11
		text.Move(fyne.NewPos(p.x+10, y))
		r.objects = append(r.objects, text)
		y += 14
	}

	state := canvas.NewText(snap.State.String(), labelColor)
	state.TextSize = 11
	state.Alignment = fyne.TextAlignTrailing
	state.Move(fyne.NewPos(p.x+p.w-10, p.y+5))
	r.objects = append(r.objects, state)
}

func (r *scopeRenderer) addLine(from, to fyne.Position, clr color.Color, width float32) {
	line := canvas.NewLine(clr)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func unitOf(channels []config.ChannelConfig, ch int) string {
	if ch < len(channels) {
		return channels[ch].Unit
	}
	return "V"
}
