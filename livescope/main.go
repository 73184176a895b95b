package main

import (
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/livescope/pkg/cache"
	"github.com/itohio/livescope/pkg/config"
	"github.com/itohio/livescope/pkg/logging"
	"github.com/itohio/livescope/pkg/scope"
	"go.uber.org/zap"
)

func main() {
	var (
		portFlag           = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag         = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag           = flag.Bool("mock", false, "Use mocked device instead of serial port")
		averageSamplesFlag = flag.Int("average-samples", -1, "Number of samples to average (0 = disabled, overrides config)")
		logLevelFlag       = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *averageSamplesFlag >= 0 {
		cfg.Acquisition.AverageSamples = *averageSamplesFlag
	}
	if *logLevelFlag != "" {
		cfg.Logging.Level = *logLevelFlag
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	displayCache, err := cache.New(cfg.Display, cfg.Scales(), logger)
	if err != nil {
		logger.Fatal("[app] failed to create display cache", zap.Error(err))
	}

	application := app.NewWithID("com.itohio.livescope")

	window := application.NewWindow("Live Scope")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		logger:     logger,
		window:     window,
		useMock:    *mockFlag,
	}
	state.installCache(displayCache)

	toolbar := createToolbar(state)

	scopeWidget := scope.New(cfg.ActiveChannels())
	state.scopeWidget = scopeWidget

	state.status = widget.NewLabel("")

	content := container.NewBorder(
		toolbar,
		state.status,
		nil,
		nil,
		scopeWidget,
	)

	stopRender := startRenderLoop(state)
	window.SetOnClosed(func() {
		stopRender()
		state.disconnect()
	})

	window.SetContent(content)
	logger.Info("[app] started", zap.String("config", *configFlag), zap.Bool("mock", *mockFlag))
	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	logger      *zap.Logger
	cache       atomic.Pointer[cache.Cache]
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	status      *widget.Label
	connectBtn  *widget.Button
	useMock     bool

	mu    sync.Mutex
	chain *acquisitionChain // Current acquisition chain (nil if not connected)

	// Ingestion counters, written by the cache goroutine
	updates atomic.Uint64
	rows    atomic.Uint64
}

// connected reports whether an acquisition chain is running.
func (s *appState) connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain != nil
}

// connect builds a new acquisition chain feeding the current cache.
func (s *appState) connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chain != nil {
		return nil
	}

	device := newDevice(s.cfg, s.useMock, s.logger)
	chain, err := startChain(s.cfg, device, s.cache.Load(), s.logger)
	if err != nil {
		if s.useMock {
			return fmt.Errorf("failed to connect to mocked device: %w", err)
		}
		return fmt.Errorf("failed to connect to %s: %w", s.cfg.Serial.Port, err)
	}
	s.chain = chain
	return nil
}

// disconnect gracefully closes the acquisition chain, if any.
func (s *appState) disconnect() {
	s.mu.Lock()
	chain := s.chain
	s.chain = nil
	s.mu.Unlock()

	if err := chain.Close(); err != nil {
		s.logger.Warn("[app] error closing device", zap.Error(err))
	}
}

// rebuildCache replaces the display cache after display or channel settings
// changed. A running chain is restarted against the new cache.
func (s *appState) rebuildCache() error {
	c, err := cache.New(s.cfg.Display, s.cfg.Scales(), s.logger)
	if err != nil {
		return err
	}

	wasConnected := s.connected()
	s.disconnect()
	s.installCache(c)
	s.scopeWidget.SetChannels(s.cfg.ActiveChannels())

	if wasConnected {
		return s.connect()
	}
	return nil
}

// installCache makes c the cache fed by the chain and drawn by the render loop.
func (s *appState) installCache(c *cache.Cache) {
	c.OnUpdate(func(info cache.UpdateInfo) {
		s.updates.Add(1)
		s.rows.Add(uint64(info.Rows))
	})
	s.cache.Store(c)
}
