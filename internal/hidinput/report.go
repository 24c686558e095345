package hidinput

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"github.com/leonard/gridmapper/internal/keymap"
)

// ButtonSpec associates one raw evdev key code with a grid coordinate
// and whether it carries press/release state. Grid buttons are
// stateful; the rotary encoder's two directions are momentary clicks
// (modeled the way the original xppen_hid driver modeled them: as
// single-packet button codes rather than a relative axis), so they are
// stateless.
type ButtonSpec struct {
	Coord    keymap.Coordinate
	Stateful bool
}

// Button is the keymap.Button implementation fed to ChangeDetector. It
// carries the raw evdev code too so a Reader can map a snapshot member
// back to the ButtonSpec it came from without a second lookup.
type Button struct {
	code     uint16
	coord    keymap.Coordinate
	stateful bool
}

func (b Button) HasState() bool                { return b.stateful }
func (b Button) Coordinate() keymap.Coordinate { return b.coord }

// DefaultButtonMap lays out a single 10-button block (block 0, row 0,
// columns 0-9) plus the rotary encoder's two directions at block 0,
// row 1, columns 0 (clockwise) and 1 (counter-clockwise), using
// the grid's button-grid layout convention from spec.md's data model.
// Raw codes follow linux/input-event-codes.h's BTN_0.. range for the
// grid and two vendor-specific codes the grid device reports for the
// encoder. cmd/gridmapper always uses this map; no configuration field
// replaces it.
func DefaultButtonMap() map[uint16]ButtonSpec {
	const btn0 = 0x100 // BTN_0
	m := make(map[uint16]ButtonSpec, 12)
	for i := 0; i < 10; i++ {
		m[uint16(btn0+i)] = ButtonSpec{
			Coord:    keymap.Coordinate{Block: 0, Row: 0, Col: uint8(i)},
			Stateful: true,
		}
	}
	const rotaryCW, rotaryCCW = 0x10a, 0x10b
	m[rotaryCW] = ButtonSpec{Coord: keymap.Coordinate{Block: 0, Row: 1, Col: 0}, Stateful: false}
	m[rotaryCCW] = ButtonSpec{Coord: keymap.Coordinate{Block: 0, Row: 1, Col: 1}, Stateful: false}
	return m
}

// Reader accumulates the currently-down button set from a grid
// device's raw evdev key events and drives a keymap.ChangeDetector
// snapshot stream from it. Grounded in the teacher's
// keyboard.ReadEvents goroutine-plus-channel pattern, adapted from
// "forward each key event" to "recompute the held-button snapshot and
// hand it to Analyze", per SPEC_FULL.md's hidinput.Reader description.
type Reader struct {
	device  *Device
	buttons map[uint16]ButtonSpec
	logger  *slog.Logger

	down map[uint16]bool
}

func NewReader(device *Device, buttons map[uint16]ButtonSpec, logger *slog.Logger) *Reader {
	return &Reader{device: device, buttons: buttons, logger: logger, down: make(map[uint16]bool)}
}

func (r *Reader) snapshot() []Button {
	buttons := make([]Button, 0, len(r.down))
	for code := range r.down {
		spec := r.buttons[code]
		buttons = append(buttons, Button{code: code, coord: spec.Coord, stateful: spec.Stateful})
	}
	return buttons
}

// Run reads device reports until ctx is cancelled. Every accepted key
// event updates the held-button set and calls detector.Analyze once;
// every tickInterval, while any button is down, it calls detector.Tick
// so held-but-unchanged buttons still get a chance to promote to a
// long press. Every keymap.Event the detector produces along the way
// is handed to onEvent in emission order.
func (r *Reader) Run(ctx context.Context, detector *keymap.ChangeDetector[Button], tickInterval time.Duration, onEvent func(keymap.Event[Button], time.Time)) error {
	raw := make(chan evdev.InputEvent, 16)
	errc := make(chan error, 1)

	go func() {
		for {
			ev, err := r.device.dev.ReadOne()
			if err != nil {
				select {
				case errc <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case raw <- *ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errc:
			return fmt.Errorf("reading grid device %s: %w", r.device.Name(), err)

		case ev := <-raw:
			if ev.Type != evdev.EV_KEY {
				continue
			}
			spec, known := r.buttons[uint16(ev.Code)]
			if !known {
				continue
			}
			switch ev.Value {
			case 1:
				r.down[uint16(ev.Code)] = true
			case 0:
				delete(r.down, uint16(ev.Code))
			default:
				continue // key-repeat: snapshots don't change on repeat
			}
			_ = spec
			now := time.Now()
			detector.Analyze(r.snapshot(), now)
			r.drain(detector, onEvent, now)

		case <-ticker.C:
			if detector.HasPressed() {
				now := time.Now()
				detector.Tick(now)
				r.drain(detector, onEvent, now)
			}
		}
	}
}

func (r *Reader) drain(detector *keymap.ChangeDetector[Button], onEvent func(keymap.Event[Button], time.Time), now time.Time) {
	for {
		e, ok := detector.Next()
		if !ok {
			return
		}
		onEvent(e, now)
	}
}
