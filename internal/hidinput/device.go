// Package hidinput discovers and reads the grid-button HID device,
// turning its evdev key reports into snapshot-driven
// keymap.ChangeDetector events. Grounded in the teacher's
// internal/keyboard/device.go (discovery, Grab/Ungrab, blocking read
// loop), adapted from "keyboard with letter keys" discovery to
// "small fixed button grid" discovery, and from a per-keystroke event
// stream to the accumulated button-set snapshots spec.md's
// ChangeDetector expects.
package hidinput

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// Device wraps one grid-button HID device opened as an evdev node.
type Device struct {
	path string
	dev  *evdev.InputDevice
	name string
}

func (d *Device) Name() string { return d.name }
func (d *Device) Path() string { return d.path }

// Grab takes exclusive control so the OS stops delivering these key
// events to any other consumer.
func (d *Device) Grab() error {
	if err := d.dev.Grab(); err != nil {
		return fmt.Errorf("grabbing device %s: %w", d.path, err)
	}
	return nil
}

// Ungrab releases exclusive control.
func (d *Device) Ungrab() error {
	if err := d.dev.Ungrab(); err != nil {
		return fmt.Errorf("releasing device %s: %w", d.path, err)
	}
	return nil
}

func (d *Device) Close() error {
	return d.dev.Close()
}

// Manager discovers the grid-button device among /dev/input/event*
// nodes.
type Manager struct {
	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Find opens the device at override if given (and not "auto"),
// otherwise scans /dev/input for the first EV_KEY-capable device that
// isn't the virtual keyboard this daemon itself creates.
func (m *Manager) Find(override string) (*Device, error) {
	if override != "" && override != "auto" {
		dev, err := evdev.Open(override)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", override, err)
		}
		name, err := dev.Name()
		if err != nil {
			name = override
		}
		m.logger.Info("using configured grid device", "name", name, "path", override)
		return &Device{path: override, dev: dev, name: name}, nil
	}

	matches, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("globbing input devices: %w", err)
	}

	for _, path := range matches {
		dev, err := evdev.Open(path)
		if err != nil {
			m.logger.Debug("cannot open device", "path", path, "error", err)
			continue
		}

		name, err := dev.Name()
		if err != nil {
			dev.Close()
			continue
		}

		if strings.Contains(strings.ToLower(name), "gridmapper") {
			dev.Close()
			continue
		}

		if !m.isGridDevice(dev) {
			dev.Close()
			continue
		}

		m.logger.Info("found grid device", "name", name, "path", path)
		return &Device{path: path, dev: dev, name: name}, nil
	}

	return nil, fmt.Errorf("no grid input device found under /dev/input")
}

func (m *Manager) isGridDevice(dev *evdev.InputDevice) bool {
	for _, t := range dev.CapableTypes() {
		if t == evdev.EV_KEY {
			return true
		}
	}
	return false
}
