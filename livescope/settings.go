package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/daq"
	"go.uber.org/zap"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createAcquisitionTab(state),
		createDisplayTab(state),
		createChannelsTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// applySettings validates and saves the configuration, then rebuilds the
// display cache (restarting a running chain) so the new values take effect.
// An invalid configuration is rolled back to prev and never saved.
func applySettings(state *appState, prev config.Config) {
	if err := state.cfg.Validate(); err != nil {
		*state.cfg = prev
		dialog.ShowError(err, state.window)
		return
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return
	}
	if err := state.rebuildCache(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to apply settings: %w", err), state.window)
		return
	}
	state.logger.Info("[app] settings applied", zap.String("config", state.configPath))
}

func floatEntry(v float64) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.FormatFloat(v, 'g', -1, 64))
	return e
}

func intEntry(v int) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(strconv.Itoa(v))
	return e
}

func durationEntry(d time.Duration) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(d.String())
	return e
}

// Parsers leave the target untouched when the text does not parse.

func parseFloatInto(e *widget.Entry, dst *float64) {
	if v, err := strconv.ParseFloat(e.Text, 64); err == nil {
		*dst = v
	}
}

func parseIntInto(e *widget.Entry, dst *int) {
	if v, err := strconv.Atoi(e.Text); err == nil {
		*dst = v
	}
}

func parseDurationInto(e *widget.Entry, dst *time.Duration) {
	if v, err := time.ParseDuration(e.Text); err == nil {
		*dst = v
	}
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := daq.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	} else {
		state.logger.Warn("[app] failed to list serial ports", zap.Error(err))
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}
	baudEntry := intEntry(state.cfg.Serial.BaudRate)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			prev := *state.cfg
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
				state.cfg.Serial.Port = selectedPort
			}
			parseIntInto(baudEntry, &state.cfg.Serial.BaudRate)
			applySettings(state, prev)
		},
	}

	return container.NewTabItem("Serial", form)
}

// createAcquisitionTab creates the Acquisition configuration tab.
func createAcquisitionTab(state *appState) *container.TabItem {
	acq := &state.cfg.Acquisition

	channelsEntry := intEntry(acq.Channels)
	sampleRateEntry := floatEntry(acq.SampleRate)
	chunkSizeEntry := intEntry(acq.ChunkSize)
	flushEntry := durationEntry(acq.FlushInterval)
	vrefEntry := floatEntry(acq.VRef)
	bitsEntry := intEntry(acq.ADCBits)
	averageEntry := intEntry(acq.AverageSamples)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: fmt.Sprintf("Channels (1-%d)", config.MaxChannels), Widget: channelsEntry},
			{Text: "Sample Rate (Hz)", Widget: sampleRateEntry},
			{Text: "Chunk Size (rows)", Widget: chunkSizeEntry},
			{Text: "Flush Interval", Widget: flushEntry},
			{Text: "VRef (V)", Widget: vrefEntry},
			{Text: "ADC Bits", Widget: bitsEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageEntry},
		},
		OnSubmit: func() {
			prev := *state.cfg
			parseIntInto(channelsEntry, &acq.Channels)
			parseFloatInto(sampleRateEntry, &acq.SampleRate)
			parseIntInto(chunkSizeEntry, &acq.ChunkSize)
			parseDurationInto(flushEntry, &acq.FlushInterval)
			parseFloatInto(vrefEntry, &acq.VRef)
			parseIntInto(bitsEntry, &acq.ADCBits)
			parseIntInto(averageEntry, &acq.AverageSamples)
			applySettings(state, prev)
		},
	}

	return container.NewTabItem("Acquisition", form)
}

// createDisplayTab creates the Display configuration tab.
func createDisplayTab(state *appState) *container.TabItem {
	disp := &state.cfg.Display

	capacityEntry := intEntry(disp.Capacity)
	windowEntry := floatEntry(disp.WindowSeconds)
	rangeEntry := floatEntry(disp.VoltageHalfRange)
	gapEntry := intEntry(disp.BufferGap)
	strategySelect := widget.NewSelect([]string{"minmax", "random"}, nil)
	strategySelect.SetSelected(disp.Strategy)
	restartSelect := widget.NewSelect([]string{"keep", "clear"}, nil)
	restartSelect.SetSelected(disp.SweepRestart)
	refreshEntry := durationEntry(disp.RefreshInterval)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Capacity (points)", Widget: capacityEntry},
			{Text: "Window (seconds)", Widget: windowEntry},
			{Text: "Voltage Half-Range", Widget: rangeEntry},
			{Text: "Buffer Gap (points)", Widget: gapEntry},
			{Text: "Downsampling", Widget: strategySelect},
			{Text: "Sweep Restart", Widget: restartSelect},
			{Text: "Refresh Interval", Widget: refreshEntry},
		},
		OnSubmit: func() {
			prev := *state.cfg
			parseIntInto(capacityEntry, &disp.Capacity)
			parseFloatInto(windowEntry, &disp.WindowSeconds)
			parseFloatInto(rangeEntry, &disp.VoltageHalfRange)
			parseIntInto(gapEntry, &disp.BufferGap)
			disp.Strategy = strategySelect.Selected
			disp.SweepRestart = restartSelect.Selected
			parseDurationInto(refreshEntry, &disp.RefreshInterval)
			applySettings(state, prev)
		},
	}

	return container.NewTabItem("Display", form)
}

// createChannelsTab creates the per-channel label and scale tab.
func createChannelsTab(state *appState) *container.TabItem {
	channels := state.cfg.ActiveChannels()

	type row struct {
		name, unit, scale *widget.Entry
	}
	rows := make([]row, len(channels))
	items := make([]*widget.FormItem, 0, 3*len(channels))

	for i, ch := range channels {
		rows[i] = row{
			name:  widget.NewEntry(),
			unit:  widget.NewEntry(),
			scale: floatEntry(ch.Scale),
		}
		rows[i].name.SetText(ch.Name)
		rows[i].unit.SetText(ch.Unit)

		items = append(items,
			&widget.FormItem{Text: fmt.Sprintf("Channel %d Name", i+1), Widget: rows[i].name},
			&widget.FormItem{Text: fmt.Sprintf("Channel %d Unit", i+1), Widget: rows[i].unit},
			&widget.FormItem{Text: fmt.Sprintf("Channel %d Scale", i+1), Widget: rows[i].scale},
		)
	}

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			prev := *state.cfg
			for i := range rows {
				channels[i].Name = rows[i].name.Text
				channels[i].Unit = rows[i].unit.Text
				parseFloatInto(rows[i].scale, &channels[i].Scale)
			}
			state.cfg.Channels = channels
			applySettings(state, prev)
		},
	}

	return container.NewTabItem("Channels", container.NewVScroll(form))
}

// createMockTab creates the Mock device configuration tab.
func createMockTab(state *appState) *container.TabItem {
	mock := &state.cfg.Mock

	noiseEntry := floatEntry(mock.NoiseLevel)
	amplitudeEntry := floatEntry(mock.Amplitude)
	frequencyEntry := floatEntry(mock.Frequency)
	spikeEntry := floatEntry(mock.SpikeAmplitude)
	spikePeriodEntry := durationEntry(mock.SpikePeriod)
	rolloverEntry := durationEntry(mock.ClockRollover)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Noise Level (V)", Widget: noiseEntry},
			{Text: "Amplitude (V)", Widget: amplitudeEntry},
			{Text: "Frequency (Hz)", Widget: frequencyEntry},
			{Text: "Spike Amplitude (V)", Widget: spikeEntry},
			{Text: "Spike Period", Widget: spikePeriodEntry},
			{Text: "Clock Rollover (0=never)", Widget: rolloverEntry},
		},
		OnSubmit: func() {
			prev := *state.cfg
			parseFloatInto(noiseEntry, &mock.NoiseLevel)
			parseFloatInto(amplitudeEntry, &mock.Amplitude)
			parseFloatInto(frequencyEntry, &mock.Frequency)
			parseFloatInto(spikeEntry, &mock.SpikeAmplitude)
			parseDurationInto(spikePeriodEntry, &mock.SpikePeriod)
			parseDurationInto(rolloverEntry, &mock.ClockRollover)
			applySettings(state, prev)
		},
	}

	return container.NewTabItem("Mock", form)
}
