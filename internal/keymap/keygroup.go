package keymap

import "time"

// KeyGroup is a plan describing what to do when one physical key fires:
// a chord (Sequential false, all keys down together, released together)
// or a sequence of full click pairs (Sequential true), optionally
// wrapped in a mask of keycodes that are momentarily released around the
// payload so an active modifier doesn't alter it.
type KeyGroup struct {
	Sequential bool
	Keys       []Keycode
	Mask       []Keycode
}

// Group builds a chord KeyGroup: all keys pressed together, released
// together on the matching release event.
func Group(keys ...Keycode) KeyGroup {
	return KeyGroup{Sequential: false, Keys: append([]Keycode(nil), keys...)}
}

// Sequence builds a sequential KeyGroup: each key is a full press+release
// click, in order.
func Sequence(keys ...Keycode) KeyGroup {
	return KeyGroup{Sequential: true, Keys: append([]Keycode(nil), keys...)}
}

// WithMask returns a copy of kg with the given mask keycodes appended.
func (kg KeyGroup) WithMask(mask ...Keycode) KeyGroup {
	kg.Mask = append(append([]Keycode(nil), kg.Mask...), mask...)
	return kg
}

// usedKeys returns every keycode this group might emit, used to size the
// virtual keyboard's capability set.
func (kg KeyGroup) usedKeys() []Keycode {
	keys := make([]Keycode, 0, len(kg.Keys)+len(kg.Mask))
	keys = append(keys, kg.Keys...)
	keys = append(keys, kg.Mask...)
	return keys
}

// pressMode records how a deferred press should be resolved later.
type pressMode int

const (
	// modeReverse: a chord is currently held; release reverses it.
	modeReverse pressMode = iota
	// modeForceClick: a Klong/Khl/Khtl action is pending tap-vs-hold
	// disambiguation; release (within threshold) fires it as a click.
	modeForceClick
)

// pressRecord is the bookkeeping entry remembering how to release a
// still-held payload, keyed by the coordinate that produced it.
type pressRecord struct {
	layer LayerId
	coord Coordinate
	mode  pressMode
	group KeyGroup
	t     time.Time
}
