package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/livescope/pkg/cache"
	"go.uber.org/zap"
)

// createToolbar creates the application toolbar: Connect and Settings on the
// left, view controls on the right.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.MediaPlayIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	timeIn := widget.NewButtonWithIcon("t", theme.ZoomInIcon(), func() {
		handleZoomTime(state, cache.ZoomIn)
	})
	timeOut := widget.NewButtonWithIcon("t", theme.ZoomOutIcon(), func() {
		handleZoomTime(state, cache.ZoomOut)
	})
	voltIn := widget.NewButtonWithIcon("V", theme.ZoomInIcon(), func() {
		handleZoomVoltage(state, cache.ZoomIn)
	})
	voltOut := widget.NewButtonWithIcon("V", theme.ZoomOutIcon(), func() {
		handleZoomVoltage(state, cache.ZoomOut)
	})
	scrollUp := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() {
		state.cache.Load().ScrollVoltage(cache.ScrollUp)
	})
	scrollDown := widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() {
		state.cache.Load().ScrollVoltage(cache.ScrollDown)
	})
	reset := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), func() {
		state.cache.Load().Reset()
	})

	left := container.NewHBox(connectBtn, settingsBtn)
	right := container.NewHBox(timeIn, timeOut, voltIn, voltOut, scrollUp, scrollDown, reset)
	return container.NewBorder(nil, nil, left, right, nil)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.connected() {
		state.disconnect()
		state.connectBtn.SetIcon(theme.MediaPlayIcon())
		state.logger.Info("[app] disconnected", zap.Bool("mock", state.useMock))
		return
	}

	if err := state.connect(); err != nil {
		dialog.ShowError(err, state.window)
		return
	}
	state.connectBtn.SetIcon(theme.MediaStopIcon())
	state.logger.Info("[app] connected", zap.Bool("mock", state.useMock), zap.String("port", state.cfg.Serial.Port))
}

// handleZoomTime zooms the time axis. At the configured limit nothing changes.
func handleZoomTime(state *appState, z cache.Zoom) {
	if !state.cache.Load().ZoomTime(z) {
		state.logger.Debug("[app] time zoom limit reached")
	}
}

// handleZoomVoltage zooms the voltage axis around its center.
func handleZoomVoltage(state *appState, z cache.Zoom) {
	if !state.cache.Load().ZoomVoltage(z) {
		state.logger.Debug("[app] voltage zoom limit reached")
	}
}
