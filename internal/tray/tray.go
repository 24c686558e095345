// Package tray provides system tray integration using fyne.io/systray.
// Adapted from the teacher's layout-picker tray: this domain loads one
// layer stack at process start (no hot-swappable layouts), so the
// picker submenu is replaced with a read-only active-layers display
// that main refreshes as layers activate and deactivate.
package tray

import (
	"strings"
	"time"

	"log/slog"

	"fyne.io/systray"
)

// Tray represents the system tray icon and menu.
type Tray struct {
	logger *slog.Logger

	onToggle func(enabled bool)
	onQuit   func()

	enabled    bool
	layoutName string

	statusItem *systray.MenuItem
	layersItem *systray.MenuItem
}

// Config holds tray configuration.
type Config struct {
	LayoutName string
	Enabled    bool
	OnToggle   func(enabled bool)
	OnQuit     func()
	Logger     *slog.Logger
}

// New creates a new system tray icon.
func New(cfg Config) *Tray {
	return &Tray{
		enabled:    cfg.Enabled,
		layoutName: cfg.LayoutName,
		onToggle:   cfg.OnToggle,
		onQuit:     cfg.OnQuit,
		logger:     cfg.Logger,
	}
}

// Run starts the system tray. This blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(keyboardIcon)
	systray.SetTitle("Gridmapper")
	t.updateTooltip()

	t.statusItem = systray.AddMenuItem("✓ Enabled", "Toggle grid key mapping")

	systray.AddSeparator()

	t.layersItem = systray.AddMenuItem("Active: base", "Layers currently resolvable")
	t.layersItem.Disable()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Exit Gridmapper")

	go t.handleClicks(quitItem)
}

func (t *Tray) handleClicks(quitItem *systray.MenuItem) {
	for {
		select {
		case <-t.statusItem.ClickedCh:
			t.toggleEnabled()

		case <-quitItem.ClickedCh:
			if t.onQuit != nil {
				t.onQuit()
			}
			systray.Quit()
			return

		default:
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (t *Tray) toggleEnabled() {
	t.enabled = !t.enabled

	if t.enabled {
		t.statusItem.SetTitle("✓ Enabled")
		systray.SetIcon(keyboardIcon)
	} else {
		t.statusItem.SetTitle("✗ Disabled")
		systray.SetIcon(keyboardDisabledIcon)
	}

	t.updateTooltip()

	if t.onToggle != nil {
		t.onToggle(t.enabled)
	}
}

// UpdateActiveLayers refreshes the read-only layers menu item. main
// calls this once at startup and then every 500ms, passing
// keymap.LayerSwitcher.GetActiveLayers resolved to layer names.
func (t *Tray) UpdateActiveLayers(names []string) {
	if t.layersItem == nil {
		return
	}
	t.layersItem.SetTitle("Active: " + strings.Join(names, ", "))
}

func (t *Tray) updateTooltip() {
	status := "Enabled"
	if !t.enabled {
		status = "Disabled"
	}
	systray.SetTooltip("Gridmapper: " + status + " (" + t.layoutName + ")")
}

func (t *Tray) onExit() {
	t.logger.Info("tray exiting")
}

// Quit stops the system tray.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetEnabled sets the enabled state.
func (t *Tray) SetEnabled(enabled bool) {
	t.enabled = enabled
	if t.statusItem != nil {
		if enabled {
			t.statusItem.SetTitle("✓ Enabled")
		} else {
			t.statusItem.SetTitle("✗ Disabled")
		}
	}
	t.updateTooltip()
}
