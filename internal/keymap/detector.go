package keymap

import "time"

// Button is the constraint a collaborator's physical-button identifier
// must satisfy to be fed into a ChangeDetector. Stateless buttons (e.g.
// rotary encoder ticks) report HasState() false and are reported as
// Click on every appearance in a snapshot instead of Pressed/Released.
type Button interface {
	comparable
	HasState() bool
	Coordinate() Coordinate
}

// Event is one button transition produced by a ChangeDetector.
type Event[T Button] struct {
	Kind   EventKind
	Button T
}

// ToKeyEvent flattens a button-typed event into the coordinate-addressed
// KeyEvent the LayerSwitcher consumes.
func ToKeyEvent[T Button](e Event[T]) KeyEvent {
	return KeyEvent{Kind: e.Kind, Coord: e.Button.Coordinate()}
}

type trackedPress struct {
	at        time.Time
	longFired bool
}

// ChangeDetector converts successive snapshots of currently-pressed
// buttons into an ordered stream of Pressed/Released/Click/LongPress
// events. It holds no clock of its own: every call takes the current
// instant as a parameter.
type ChangeDetector[T Button] struct {
	holdThreshold time.Duration
	pressed       map[T]trackedPress
	order         []T

	queue []Event[T]
	qHead int
}

// NewChangeDetector builds a detector that promotes a held stateful
// button to LongPress once it has been pressed longer than holdThreshold.
func NewChangeDetector[T Button](holdThreshold time.Duration) *ChangeDetector[T] {
	return &ChangeDetector[T]{
		holdThreshold: holdThreshold,
		pressed:       make(map[T]trackedPress),
	}
}

// Analyze compares input against the previously tracked snapshot and
// appends Pressed/Released/Click/LongPress events to the queue. It
// returns true if at least one new stateful press was recorded.
func (d *ChangeDetector[T]) Analyze(input []T, t time.Time) bool {
	inSet := make(map[T]bool, len(input))
	for _, b := range input {
		inSet[b] = true
	}

	for _, b := range d.order {
		if !inSet[b] && b.HasState() {
			d.push(EvReleased, b)
		}
	}

	newPress := false
	for _, b := range input {
		st, tracked := d.pressed[b]
		if !tracked {
			if b.HasState() {
				d.push(EvPressed, b)
				newPress = true
			} else {
				d.push(EvClick, b)
			}
			continue
		}
		if t.Sub(st.at) > d.holdThreshold {
			st.longFired = true
			d.pressed[b] = st
			d.push(EvLongPress, b)
		}
	}

	newOrder := make([]T, 0, len(input))
	newPressed := make(map[T]trackedPress, len(input))
	for _, b := range input {
		if !b.HasState() {
			continue
		}
		if st, ok := d.pressed[b]; ok {
			newPressed[b] = st
		} else {
			newPressed[b] = trackedPress{at: t}
		}
		newOrder = append(newOrder, b)
	}
	d.pressed = newPressed
	d.order = newOrder

	return newPress
}

// Tick re-checks every tracked button against holdThreshold without
// altering the tracked set, re-emitting LongPress for any button still
// held past threshold. Repetition is intentional: the switcher's Klong
// promotion is one-shot regardless of how many LongPress events arrive.
func (d *ChangeDetector[T]) Tick(t time.Time) {
	for _, b := range d.order {
		st := d.pressed[b]
		if t.Sub(st.at) > d.holdThreshold {
			st.longFired = true
			d.pressed[b] = st
			d.push(EvLongPress, b)
		}
	}
}

// Next pops the oldest queued event, FIFO.
func (d *ChangeDetector[T]) Next() (Event[T], bool) {
	if d.qHead >= len(d.queue) {
		d.queue = d.queue[:0]
		d.qHead = 0
		var zero Event[T]
		return zero, false
	}
	e := d.queue[d.qHead]
	d.qHead++
	if d.qHead == len(d.queue) {
		d.queue = d.queue[:0]
		d.qHead = 0
	}
	return e, true
}

// HasPressed reports whether any stateful button is currently tracked
// as held.
func (d *ChangeDetector[T]) HasPressed() bool {
	return len(d.order) > 0
}

// HasShortPressed reports whether any held button is still within its
// short (pre-long-press) phase, useful for the outer loop to decide
// whether it still needs to poll at long-press granularity.
func (d *ChangeDetector[T]) HasShortPressed() bool {
	for _, b := range d.order {
		if !d.pressed[b].longFired {
			return true
		}
	}
	return false
}

func (d *ChangeDetector[T]) push(kind EventKind, b T) {
	d.queue = append(d.queue, Event[T]{Kind: kind, Button: b})
}
