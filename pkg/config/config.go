package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxChannels is the largest number of simultaneously displayed channels.
const MaxChannels = 4

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Display     DisplayConfig     `yaml:"display"`
	Channels    []ChannelConfig   `yaml:"channels"`
	Mock        MockConfig        `yaml:"mock"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// AcquisitionConfig describes how the device delivers samples.
type AcquisitionConfig struct {
	Channels       int           `yaml:"channels"`        // Number of ADC channels streamed (1-4)
	SampleRate     float64       `yaml:"sample_rate"`     // Samples per second per channel
	ChunkSize      int           `yaml:"chunk_size"`      // Rows per chunk before a flush
	FlushInterval  time.Duration `yaml:"flush_interval"`  // Max age of a partially filled chunk
	VRef           float64       `yaml:"vref"`            // ADC reference voltage (V)
	ADCBits        int           `yaml:"adc_bits"`        // ADC resolution in bits
	AverageSamples int           `yaml:"average_samples"` // Rows to block-average (0 = disabled)
}

// DisplayConfig contains the live display cache parameters.
type DisplayConfig struct {
	Capacity         int           `yaml:"capacity"`           // Display points per channel
	WindowSeconds    float64       `yaml:"window_seconds"`     // Initial time window
	VoltageHalfRange float64       `yaml:"voltage_half_range"` // Initial symmetric y half-range
	BufferGap        int           `yaml:"buffer_gap"`         // Slots blanked after each write
	Strategy         string        `yaml:"strategy"`           // "minmax" or "random"
	SweepRestart     string        `yaml:"sweep_restart"`      // "keep" or "clear"
	MinWindowSeconds float64       `yaml:"min_window_seconds"`
	MaxWindowSeconds float64       `yaml:"max_window_seconds"`
	RefreshInterval  time.Duration `yaml:"refresh_interval"` // Render tick
	Seed             uint64        `yaml:"seed"`             // Random source seed (0 = time based)
}

// ChannelConfig describes one displayed channel.
type ChannelConfig struct {
	Name  string  `yaml:"name"`
	Unit  string  `yaml:"unit"`
	Scale float64 `yaml:"scale"` // Raw volts to display units
}

// MockConfig contains mock device configuration.
type MockConfig struct {
	NoiseLevel     float64       `yaml:"noise_level"`     // Noise amplitude (V)
	Amplitude      float64       `yaml:"amplitude"`       // Sine amplitude (V)
	Frequency      float64       `yaml:"frequency"`       // Sine frequency (Hz)
	SpikeAmplitude float64       `yaml:"spike_amplitude"` // One-sample spike height (V)
	SpikePeriod    time.Duration `yaml:"spike_period"`    // Time between spikes (0 = none)
	ClockRollover  time.Duration `yaml:"clock_rollover"`  // Device clock wrap period (0 = never)
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate: 921600,
		},
		Acquisition: AcquisitionConfig{
			Channels:       2,
			SampleRate:     10000,
			ChunkSize:      500,
			FlushInterval:  50 * time.Millisecond,
			VRef:           3.3,
			ADCBits:        12,
			AverageSamples: 0,
		},
		Display: DisplayConfig{
			Capacity:         5000,
			WindowSeconds:    2,
			VoltageHalfRange: 2,
			BufferGap:        50,
			Strategy:         "minmax",
			SweepRestart:     "keep",
			MinWindowSeconds: 0.01,
			MaxWindowSeconds: 60,
			RefreshInterval:  33 * time.Millisecond,
			Seed:             0,
		},
		Channels: []ChannelConfig{
			{Name: "CH1", Unit: "V", Scale: 1},
			{Name: "CH2", Unit: "V", Scale: 1},
		},
		Mock: MockConfig{
			NoiseLevel:     0.05,
			Amplitude:      1.0,
			Frequency:      5,
			SpikeAmplitude: 1.5,
			SpikePeriod:    700 * time.Millisecond,
			ClockRollover:  0,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Channels are replaced wholesale, never merged with defaults.
	cfg.Channels = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks values that have no sensible default to fall back to.
func (c *Config) Validate() error {
	if c.Acquisition.Channels < 1 || c.Acquisition.Channels > MaxChannels {
		return fmt.Errorf("acquisition.channels must be 1-%d, got %d", MaxChannels, c.Acquisition.Channels)
	}
	if c.Display.Capacity <= 0 {
		return fmt.Errorf("display.capacity must be positive, got %d", c.Display.Capacity)
	}
	if !(c.Display.WindowSeconds > 0) {
		return fmt.Errorf("display.window_seconds must be positive, got %g", c.Display.WindowSeconds)
	}
	if !(c.Display.VoltageHalfRange > 0) {
		return fmt.Errorf("display.voltage_half_range must be positive, got %g", c.Display.VoltageHalfRange)
	}
	if c.Display.Strategy != "minmax" && c.Display.Strategy != "random" {
		return fmt.Errorf("display.strategy must be minmax or random, got %q", c.Display.Strategy)
	}
	if c.Display.SweepRestart != "keep" && c.Display.SweepRestart != "clear" {
		return fmt.Errorf("display.sweep_restart must be keep or clear, got %q", c.Display.SweepRestart)
	}
	if c.Display.MinWindowSeconds > c.Display.MaxWindowSeconds {
		return fmt.Errorf("display.min_window_seconds %g exceeds max_window_seconds %g",
			c.Display.MinWindowSeconds, c.Display.MaxWindowSeconds)
	}
	if c.Display.WindowSeconds < c.Display.MinWindowSeconds ||
		(c.Display.MaxWindowSeconds > 0 && c.Display.WindowSeconds > c.Display.MaxWindowSeconds) {
		return fmt.Errorf("display.window_seconds %g outside [%g, %g]",
			c.Display.WindowSeconds, c.Display.MinWindowSeconds, c.Display.MaxWindowSeconds)
	}
	return nil
}

// ActiveChannels returns one channel entry per acquired channel. Missing
// entries are filled with a default label and a scale of 1.
func (c *Config) ActiveChannels() []ChannelConfig {
	channels := make([]ChannelConfig, c.Acquisition.Channels)
	for i := range channels {
		channels[i] = ChannelConfig{Name: fmt.Sprintf("CH%d", i+1), Unit: "V", Scale: 1}
		if i < len(c.Channels) {
			channels[i] = c.Channels[i]
			if channels[i].Scale == 0 {
				channels[i].Scale = 1
			}
		}
	}
	return channels
}

// Scales returns the per-channel display scale factors, one per acquired
// channel.
func (c *Config) Scales() []float64 {
	channels := c.ActiveChannels()
	scales := make([]float64, len(channels))
	for i, ch := range channels {
		scales[i] = ch.Scale
	}
	return scales
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.Acquisition.Channels == 0 {
		c.Acquisition.Channels = def.Acquisition.Channels
	}
	if c.Acquisition.SampleRate == 0 {
		c.Acquisition.SampleRate = def.Acquisition.SampleRate
	}
	if c.Acquisition.ChunkSize == 0 {
		c.Acquisition.ChunkSize = def.Acquisition.ChunkSize
	}
	if c.Acquisition.FlushInterval == 0 {
		c.Acquisition.FlushInterval = def.Acquisition.FlushInterval
	}
	if c.Acquisition.VRef == 0 {
		c.Acquisition.VRef = def.Acquisition.VRef
	}
	if c.Acquisition.ADCBits == 0 {
		c.Acquisition.ADCBits = def.Acquisition.ADCBits
	}

	if c.Display.Capacity == 0 {
		c.Display.Capacity = def.Display.Capacity
	}
	if c.Display.WindowSeconds == 0 {
		c.Display.WindowSeconds = def.Display.WindowSeconds
	}
	if c.Display.VoltageHalfRange == 0 {
		c.Display.VoltageHalfRange = def.Display.VoltageHalfRange
	}
	if c.Display.Strategy == "" {
		c.Display.Strategy = def.Display.Strategy
	}
	if c.Display.SweepRestart == "" {
		c.Display.SweepRestart = def.Display.SweepRestart
	}
	if c.Display.MinWindowSeconds == 0 {
		c.Display.MinWindowSeconds = def.Display.MinWindowSeconds
	}
	if c.Display.MaxWindowSeconds == 0 {
		c.Display.MaxWindowSeconds = def.Display.MaxWindowSeconds
	}
	if c.Display.RefreshInterval == 0 {
		c.Display.RefreshInterval = def.Display.RefreshInterval
	}

	// Pad the channel list so every acquired channel has a label and scale.
	for i := len(c.Channels); i < c.Acquisition.Channels; i++ {
		c.Channels = append(c.Channels, ChannelConfig{
			Name:  fmt.Sprintf("CH%d", i+1),
			Unit:  "V",
			Scale: 1,
		})
	}
	for i := range c.Channels {
		if c.Channels[i].Scale == 0 {
			c.Channels[i].Scale = 1
		}
	}

	if c.Mock.Frequency == 0 {
		c.Mock.Frequency = def.Mock.Frequency
	}
	if c.Mock.Amplitude == 0 {
		c.Mock.Amplitude = def.Mock.Amplitude
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}
