package keymap

import (
	"testing"
	"time"
)

type testButton struct {
	id       int
	stateful bool
}

func (b testButton) HasState() bool          { return b.stateful }
func (b testButton) Coordinate() Coordinate { return Coordinate{0, 0, uint8(b.id)} }

func key(id int) testButton    { return testButton{id: id, stateful: true} }
func rotary(id int) testButton { return testButton{id: id, stateful: false} }

func drainAll[T Button](d *ChangeDetector[T]) []Event[T] {
	var out []Event[T]
	for {
		e, ok := d.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func TestChangeDetectorPressReleaseClick(t *testing.T) {
	d := NewChangeDetector[testButton](200 * time.Millisecond)
	t0 := baseTime()

	d.Analyze([]testButton{key(1)}, t0)
	got := drainAll(d)
	if len(got) != 1 || got[0].Kind != EvPressed || got[0].Button != key(1) {
		t.Fatalf("press: got %v", got)
	}

	d.Analyze(nil, t0.Add(10*time.Millisecond))
	got = drainAll(d)
	if len(got) != 1 || got[0].Kind != EvReleased {
		t.Fatalf("release: got %v", got)
	}

	d.Analyze([]testButton{rotary(9)}, t0.Add(20*time.Millisecond))
	got = drainAll(d)
	if len(got) != 1 || got[0].Kind != EvClick {
		t.Fatalf("click: got %v", got)
	}

	// Stateless buttons never appear in HasPressed tracking.
	if d.HasPressed() {
		t.Fatalf("rotary click must not be tracked as held")
	}
}

func TestChangeDetectorLongPressReFires(t *testing.T) {
	d := NewChangeDetector[testButton](200 * time.Millisecond)
	t0 := baseTime()

	d.Analyze([]testButton{key(1)}, t0)
	drainAll(d)

	d.Analyze([]testButton{key(1)}, t0.Add(201*time.Millisecond))
	got := drainAll(d)
	if len(got) != 1 || got[0].Kind != EvLongPress {
		t.Fatalf("first long press: got %v", got)
	}

	d.Tick(t0.Add(400 * time.Millisecond))
	got = drainAll(d)
	if len(got) != 1 || got[0].Kind != EvLongPress {
		t.Fatalf("long press must keep re-firing on tick: got %v", got)
	}
}

func TestChangeDetectorFIFOOrdering(t *testing.T) {
	d := NewChangeDetector[testButton](200 * time.Millisecond)
	t0 := baseTime()

	d.Analyze([]testButton{key(1)}, t0)
	drainAll(d)
	d.Analyze([]testButton{key(1), key(2)}, t0.Add(5*time.Millisecond))
	got := drainAll(d)
	if len(got) != 1 || got[0].Button != key(2) {
		t.Fatalf("expected only key(2) pressed event, got %v", got)
	}

	d.Analyze(nil, t0.Add(10*time.Millisecond))
	got = drainAll(d)
	if len(got) != 2 {
		t.Fatalf("expected 2 release events, got %v", got)
	}
	if got[0].Button != key(1) || got[1].Button != key(2) {
		t.Fatalf("expected release order to follow detection (insertion) order, got %v", got)
	}
}

func TestChangeDetectorBoundaryNotLongPress(t *testing.T) {
	d := NewChangeDetector[testButton](200 * time.Millisecond)
	t0 := baseTime()

	d.Analyze([]testButton{key(1)}, t0)
	drainAll(d)

	// Exactly at the threshold: must NOT be a long press (strict >).
	d.Analyze([]testButton{key(1)}, t0.Add(200*time.Millisecond))
	got := drainAll(d)
	if len(got) != 0 {
		t.Fatalf("expected no long press at exactly the threshold, got %v", got)
	}
}
