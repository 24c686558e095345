// Package vkbd is the virtual keyboard sink: it turns the keymap core's
// render callback into uinput key-down/key-up injections.
package vkbd

import (
	"fmt"
	"log/slog"

	"github.com/bendahl/uinput"

	"github.com/leonard/gridmapper/internal/keymap"
)

// Sink wraps a uinput virtual keyboard for a loaded layer stack. The
// keyboard is not restricted to the keycodes the stack might emit.
type Sink struct {
	keyboard uinput.Keyboard
	logger   *slog.Logger
}

// New creates the virtual keyboard device. used is typically
// keymap.LayerSwitcher.GetUsedKeys(): uinput.CreateKeyboard does not
// actually require a capability list up front (unlike the original
// evdev virtual device), but we still validate the set is non-empty so
// a misconfigured layout fails at startup rather than silently emitting
// into the void.
func New(logger *slog.Logger, used map[keymap.Keycode]struct{}) (*Sink, error) {
	if len(used) == 0 {
		return nil, fmt.Errorf("layout uses no keys: refusing to create an inert virtual keyboard")
	}

	kb, err := uinput.CreateKeyboard("/dev/uinput", []byte("gridmapper-virtual"))
	if err != nil {
		return nil, fmt.Errorf("creating virtual keyboard: %w", err)
	}

	return &Sink{keyboard: kb, logger: logger}, nil
}

// Close releases the virtual keyboard.
func (s *Sink) Close() error {
	return s.keyboard.Close()
}

// Emit is the pure sink keymap.LayerSwitcher.Render drains into: one
// call per (keycode, pressed) pair, in emission order. It must not
// re-enter the core.
func (s *Sink) Emit(k keymap.Keycode, pressed bool) {
	var err error
	if pressed {
		err = s.keyboard.KeyDown(int(k))
	} else {
		err = s.keyboard.KeyUp(int(k))
	}
	if err != nil {
		s.logger.Error("virtual keyboard injection failed", "keycode", int(k), "pressed", pressed, "error", err)
	}
}
