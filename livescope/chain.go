package main

import (
	"fmt"

	"github.com/itohio/livescope/pkg/cache"
	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/daq"
	"github.com/itohio/livescope/pkg/sample"
	"go.uber.org/zap"
)

// pipelineBufferSize is the channel buffer between converter stages.
const pipelineBufferSize = 500

// acquisitionChain tracks the components of a running acquisition for
// graceful shutdown.
type acquisitionChain struct {
	device    daq.Device
	chunks    <-chan sample.Chunk
	cacheDone chan struct{} // Closed when the cache goroutine exits
}

// newDevice creates the mock or the serial device from the configuration.
func newDevice(cfg *config.Config, useMock bool, logger *zap.Logger) daq.Device {
	if useMock {
		return daq.NewMock(cfg.Mock, cfg.Acquisition, logger)
	}
	return daq.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Acquisition, logger)
}

// startChain connects the device and wires
// device → converter → [averaging] → display cache.
func startChain(cfg *config.Config, device daq.Device, c *cache.Cache, logger *zap.Logger) (*acquisitionChain, error) {
	if device.Channels() != c.Channels() {
		return nil, fmt.Errorf("device streams %d channels, display expects %d", device.Channels(), c.Channels())
	}
	if err := device.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	// Base converter always used, averaging converter when enabled
	chunks := sample.NewConverter(cfg.Acquisition, pipelineBufferSize, logger)(device.Chunks())
	if cfg.Acquisition.AverageSamples > 0 {
		chunks = sample.NewAveragingConverter(cfg.Acquisition.AverageSamples, pipelineBufferSize, logger)(chunks)
	}

	cacheDone := make(chan struct{})
	go func() {
		defer close(cacheDone)
		c.ProcessChunks(chunks)
	}()

	return &acquisitionChain{
		device:    device,
		chunks:    chunks,
		cacheDone: cacheDone,
	}, nil
}

// Close closes the device and waits for the pipeline to drain.
func (ch *acquisitionChain) Close() error {
	if ch == nil {
		return nil
	}

	// Closing the device closes its chunk channel, which cascades through
	// the converters and ends ProcessChunks.
	err := ch.device.Close()
	<-ch.cacheDone
	return err
}
