package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"github.com/itohio/livescope/pkg/cache"
)

// startRenderLoop takes a cache snapshot every refresh interval and hands it
// to the scope widget on the Fyne main thread. The returned function stops
// the loop.
func startRenderLoop(state *appState) func() {
	interval := state.cfg.Display.RefreshInterval
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := time.Now()
		var lastRows uint64
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				snap := state.cache.Load().Snapshot()

				rows := state.rows.Load()
				rate := float64(rows-lastRows) / now.Sub(last).Seconds()
				lastRows, last = rows, now
				status := statusText(snap, rate, state.updates.Load())

				fyne.Do(func() {
					state.scopeWidget.SetSnapshot(snap)
					state.status.SetText(status)
				})
			}
		}
	}()

	return func() { close(done) }
}

// statusText summarizes the view for the status bar.
func statusText(snap cache.Snapshot, rowsPerSecond float64, updates uint64) string {
	lo, hi := snap.VoltageRange()
	mode := "line"
	if snap.Sparse {
		mode = "markers"
	}
	return fmt.Sprintf("%s | window %.3gs | %.3g..%.3g | %s | %d chunks | %.0f pts/s",
		snap.State, snap.Window, lo, hi, mode, updates, rowsPerSecond)
}
