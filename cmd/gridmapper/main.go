// Gridmapper: layered keymap engine for a small HID button grid plus
// rotary encoder, emitting virtual keyboard events on Linux.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/leonard/gridmapper/internal/config"
	"github.com/leonard/gridmapper/internal/hidinput"
	"github.com/leonard/gridmapper/internal/keymap"
	"github.com/leonard/gridmapper/internal/layoutfile"
	"github.com/leonard/gridmapper/internal/metrics"
	"github.com/leonard/gridmapper/internal/tray"
	"github.com/leonard/gridmapper/internal/vkbd"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	layoutName := flag.String("layout", "", "Layout name to use")
	hidDevice := flag.String("hid-device", "", "evdev device path, or \"auto\" to discover")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version information")
	noTray := flag.Bool("no-tray", false, "Run without system tray")
	dryRun := flag.Bool("dry-run", false, "Resolve key events but skip virtual keyboard injection")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridmapper %s (%s) built %s\n", version, commit, buildDate)
		os.Exit(0)
	}

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *layoutName != "" {
		cfg.Layout = *layoutName
	}
	if *hidDevice != "" {
		cfg.HIDDevice = *hidDevice
	}

	logger.Info("gridmapper starting", "version", version, "layout", cfg.Layout)

	if err := ensureConfigDir(cfg); err != nil {
		logger.Error("failed to create config directory", "error", err)
		os.Exit(1)
	}

	layoutPath := cfg.LayoutPath(cfg.Layout)
	logger.Debug("loading layout file", "path", layoutPath)
	loaded, err := layoutfile.Load(layoutPath)
	if err != nil {
		logger.Error("failed to load layout", "layout", cfg.Layout, "path", layoutPath, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded layout", "name", loaded.Name, "layers", len(loaded.Layers), "path", layoutPath)

	threshold := cfg.HoldThreshold()
	if loaded.HoldThreshold > 0 {
		threshold = loaded.HoldThreshold
	}

	switcher := keymap.NewSwitcher(loaded.Layers)
	switcher.SetHoldThreshold(threshold)
	switcher.Start()

	var sink *vkbd.Sink
	if !*dryRun {
		sink, err = vkbd.New(logger, switcher.GetUsedKeys())
		if err != nil {
			logger.Error("failed to create virtual keyboard", "error", err)
			logger.Error("make sure you have write access to /dev/uinput")
			os.Exit(1)
		}
		defer sink.Close()
	} else {
		logger.Warn("dry-run: virtual keyboard injection disabled")
	}

	devManager := hidinput.NewManager(logger)
	device, err := devManager.Find(cfg.HIDDevice)
	if err != nil {
		logger.Error("failed to find grid device", "error", err)
		os.Exit(1)
	}
	defer device.Close()

	if err := device.Grab(); err != nil {
		logger.Error("failed to grab grid device", "name", device.Name(), "error", err)
		os.Exit(1)
	}
	defer device.Ungrab()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	detector := keymap.NewChangeDetector[hidinput.Button](threshold)
	reader := hidinput.NewReader(device, hidinput.DefaultButtonMap(), logger)

	var enabled atomic.Bool
	enabled.Store(true)

	counters := &metrics.Counters{}
	stopMetrics := make(chan struct{})
	defer close(stopMetrics)
	go counters.LogEvery(logger, 30*time.Second, stopMetrics)

	renderTo := func() {
		switcher.Render(func(code keymap.Keycode, pressed bool) {
			counters.EmitKey()
			if sink != nil {
				sink.Emit(code, pressed)
			}
		})
	}

	go func() {
		err := reader.Run(ctx, detector, threshold/4, func(e keymap.Event[hidinput.Button], now time.Time) {
			if e.Kind == keymap.EvLongPress {
				counters.Tick()
			}
			if !enabled.Load() {
				counters.DropEvent()
				return
			}
			switcher.ProcessKeyEvent(keymap.ToKeyEvent(e), now)
			renderTo()
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("error reading grid device", "error", err)
		}
	}()

	layerNames := make([]string, len(loaded.Layers))
	for i, l := range loaded.Layers {
		layerNames[i] = l.Name
	}
	activeLayerNames := func() []string {
		var names []string
		for _, id := range switcher.GetActiveLayers() {
			if int(id) < len(layerNames) {
				names = append(names, layerNames[id])
			}
		}
		return names
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *noTray {
		logger.Info("running without system tray, press Ctrl+C to quit")
		<-sigChan
		logger.Info("shutting down...")
	} else {
		trayCfg := tray.Config{
			LayoutName: cfg.Layout,
			Enabled:    true,
			OnToggle: func(on bool) {
				enabled.Store(on)
			},
			OnQuit: func() {
				logger.Info("shutting down...")
				cancel()
				os.Exit(0)
			},
			Logger: logger,
		}

		trayIcon := tray.New(trayCfg)
		trayIcon.UpdateActiveLayers(activeLayerNames())

		go func() {
			ticker := time.NewTicker(500 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					trayIcon.UpdateActiveLayers(activeLayerNames())
				}
			}
		}()

		go func() {
			<-sigChan
			logger.Info("shutting down...")
			trayIcon.Quit()
		}()

		trayIcon.Run()
	}

	logger.Info("gridmapper stopped")
}

func ensureConfigDir(cfg *config.Config) error {
	layoutDir := filepath.Join(cfg.ConfigDir, "layouts")
	return os.MkdirAll(layoutDir, 0755)
}
