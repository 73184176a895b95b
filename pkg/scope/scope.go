package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/livescope/pkg/cache"
	"github.com/itohio/livescope/pkg/config"
)

// channelColors are the trace colors for channels 1-4.
var channelColors = []color.RGBA{
	{R: 255, G: 165, B: 0, A: 255},   // Orange
	{R: 100, G: 200, B: 255, A: 255}, // Light blue
	{R: 120, G: 230, B: 120, A: 255}, // Green
	{R: 230, G: 110, B: 200, A: 255}, // Magenta
}

// ScopeWidget is a custom Fyne widget that draws display cache snapshots as
// an oscilloscope trace.
type ScopeWidget struct {
	widget.BaseWidget

	channels []config.ChannelConfig

	// Data (protected by mu)
	mu      sync.RWMutex
	snap    cache.Snapshot
	hasSnap bool
}

// New creates a new ScopeWidget instance. channels provides the legend
// labels and units.
func New(channels []config.ChannelConfig) *ScopeWidget {
	s := &ScopeWidget{
		channels: channels,
	}
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// SetSnapshot stores a new snapshot and refreshes the widget when anything
// visible changed. Call it from the UI goroutine (fyne.Do).
func (s *ScopeWidget) SetSnapshot(snap cache.Snapshot) {
	s.mu.Lock()
	if s.hasSnap && !visiblyChanged(s.snap, snap) {
		s.mu.Unlock()
		return
	}
	s.snap = snap
	s.hasSnap = true
	s.mu.Unlock()

	// Refresh outside the lock; the renderer takes a read lock.
	s.Refresh()
}

// SetChannels replaces the legend labels.
func (s *ScopeWidget) SetChannels(channels []config.ChannelConfig) {
	s.mu.Lock()
	s.channels = channels
	s.mu.Unlock()
	s.Refresh()
}

func visiblyChanged(old, cur cache.Snapshot) bool {
	return old.Version != cur.Version ||
		old.Capacity() != cur.Capacity() ||
		old.Window != cur.Window ||
		old.HalfRange != cur.HalfRange ||
		old.Center != cur.Center ||
		old.Sparse != cur.Sparse ||
		old.State != cur.State
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	background := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:      s,
		background: background,
		objects:    []fyne.CanvasObject{background},
	}
}
