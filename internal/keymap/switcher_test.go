package keymap

import (
	"testing"
	"time"
)

// Device coordinates matching the four-button fixture used throughout
// these scenarios.
var (
	B01 = Coordinate{0, 0, 0}
	B02 = Coordinate{0, 0, 1}
	B03 = Coordinate{0, 1, 0}
	B04 = Coordinate{0, 1, 1}
)

const (
	kLeftAlt Keycode = iota + 1
	kLeftShift
	kLeftCtrl
	kB
	kE
	kA
	kF12
	k0
	k1
	k2
	k3
	k9
	kT
)

type emission struct {
	code    Keycode
	pressed bool
}

func drain(t *testing.T, s *LayerSwitcher) []emission {
	t.Helper()
	var got []emission
	s.Render(func(k Keycode, pressed bool) {
		got = append(got, emission{k, pressed})
	})
	return got
}

func assertEmitted(t *testing.T, s *LayerSwitcher, want []emission) {
	t.Helper()
	got := drain(t, s)
	if len(got) != len(want) {
		t.Fatalf("emission count mismatch: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("emission[%d]: got %+v, want %+v (full: got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

func baseTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

// S1 — basic: single layer, no modifiers beyond a plain press/click/release.
func TestScenarioS1Basic(t *testing.T) {
	layers := []Layer{
		{
			Name: "base",
			Keymap: Keymap{{
				{Kg(Group(kLeftAlt)), Kg(Group(kB))},
				{Kg(Group(kLeftShift)), NoAction()},
			}},
			DefaultAction: NoAction(),
			StatusOnReset: Active(),
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
	assertEmitted(t, s, []emission{{kLeftAlt, true}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B02}, t0)
	assertEmitted(t, s, []emission{{kB, true}, {kB, false}})

	s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0)
	assertEmitted(t, s, []emission{{kLeftAlt, false}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B04}, t0)
	assertEmitted(t, s, nil)
}

// S2 — hold + inheritance + passthrough + disabled layer.
func TestScenarioS2HoldInheritance(t *testing.T) {
	l1 := LayerId(1)
	l2 := LayerId(2)
	layers := []Layer{
		{
			Name: "base",
			Keymap: Keymap{{
				{Lhold(l1), Kg(Group(kB))},
				{Kg(Group(kLeftShift)), NoAction()},
			}},
			DefaultAction: NoAction(),
			StatusOnReset: Active(),
		},
		{
			Name: "hold",
			Keymap: Keymap{{
				{Kg(Group(k0)), PassAction()},
				{InhAction(), Kg(Group(kE))},
			}},
			DefaultAction:        NoAction(),
			StatusOnReset:        Passthrough(),
			Inherit:              &l2,
			OnActiveKeys:         []Keycode{kLeftShift},
			DisableActiveOnPress: false,
		},
		{
			Name: "disabled",
			Keymap: Keymap{{
				{Kg(Group(k1)), Kg(Group(k9))},
				{Kg(Group(k2)), Kg(Group(k3))},
			}},
			DefaultAction: NoAction(),
			StatusOnReset: Disabled(),
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
	assertEmitted(t, s, []emission{{kLeftShift, true}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B02}, t0)
	assertEmitted(t, s, []emission{{kB, true}, {kB, false}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B04}, t0)
	assertEmitted(t, s, []emission{{kE, true}, {kE, false}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B03}, t0)
	assertEmitted(t, s, []emission{{k2, true}, {k2, false}})

	s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0)
	assertEmitted(t, s, []emission{{kLeftShift, false}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B04}, t0)
	assertEmitted(t, s, nil)
}

// S3 — tap (dead-key) layer: self-retires on the next key press.
func TestScenarioS3Tap(t *testing.T) {
	l1 := LayerId(1)
	layers := []Layer{
		{
			Name: "base",
			Keymap: Keymap{{
				{Ltap(l1), Kg(Group(kB))},
			}},
			DefaultAction: NoAction(),
			StatusOnReset: Active(),
		},
		{
			Name: "dead",
			Keymap: Keymap{{
				{PassAction(), PassAction()},
				{Kg(Group(kLeftShift)), Kg(Group(kE))},
			}},
			DefaultAction: PassAction(),
			StatusOnReset: Passthrough(),
			OnActiveKeys:  []Keycode{kLeftShift},
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	s.ProcessKeyEvent(KeyEvent{EvClick, B01}, t0)
	assertEmitted(t, s, []emission{{kLeftShift, true}})
	if got := s.GetActiveLayers(); len(got) != 2 || got[0] != 0 || got[1] != l1 {
		t.Fatalf("active layers after tap: got %v, want [0 1]", got)
	}

	s.ProcessKeyEvent(KeyEvent{EvClick, B02}, t0)
	assertEmitted(t, s, []emission{{kB, true}, {kLeftShift, false}, {kB, false}})
	if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("active layers after tap retires: got %v, want [0]", got)
	}

	s.ProcessKeyEvent(KeyEvent{EvClick, B04}, t0)
	assertEmitted(t, s, nil)
}

// S4 — mask: a sequential key group temporarily releases an active
// modifier around its payload and restores it afterward.
func TestScenarioS4Mask(t *testing.T) {
	l1 := LayerId(1)
	layers := []Layer{
		{
			Name: "base",
			Keymap: Keymap{{
				{Lhold(l1), Kg(Group(kB))},
			}},
			DefaultAction: NoAction(),
			StatusOnReset: Active(),
		},
		{
			Name: "masked",
			Keymap: Keymap{{
				{PassAction(), PassAction()},
				{NoAction(), Kg(Sequence(kE).WithMask(kLeftShift))},
			}},
			DefaultAction: NoAction(),
			StatusOnReset: Passthrough(),
			OnActiveKeys:  []Keycode{kLeftShift},
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
	assertEmitted(t, s, []emission{{kLeftShift, true}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B02}, t0)
	assertEmitted(t, s, []emission{{kB, true}, {kB, false}})

	s.ProcessKeyEvent(KeyEvent{EvClick, B04}, t0)
	assertEmitted(t, s, []emission{{kLeftShift, false}, {kE, true}, {kE, false}, {kLeftShift, true}})

	s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0)
	assertEmitted(t, s, []emission{{kLeftShift, false}})
}

// S5 — hold-or-tap to layer: a short release tap-activates the target
// layer (which self-retires on next press); a long hold just deactivates.
func TestScenarioS5HoldOrTapToLayer(t *testing.T) {
	l1 := LayerId(1)
	l2 := LayerId(2)
	newLayers := func() []Layer {
		return []Layer{
			{
				Name:          "base",
				Keymap:        Keymap{{{LhtL(l1, l2), Kg(Group(kB))}}},
				DefaultAction: NoAction(),
				StatusOnReset: Active(),
			},
			{
				Name:          "hold",
				Keymap:        Keymap{{{NoAction(), Kg(Group(kT))}, {NoAction(), Kg(Group(kE))}}},
				DefaultAction: NoAction(),
				StatusOnReset: Passthrough(),
			},
			{
				Name:          "tap",
				Keymap:        Keymap{{{NoAction(), NoAction()}, {NoAction(), Kg(Group(k2))}}},
				DefaultAction: NoAction(),
				StatusOnReset: Passthrough(),
			},
		}
	}

	t.Run("short release taps the layer", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		s.ProcessKeyEvent(KeyEvent{EvClick, B02}, t0)
		assertEmitted(t, s, []emission{{kT, true}, {kT, false}})

		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(190*time.Millisecond))
		assertEmitted(t, s, nil)

		if got := s.GetActiveLayers(); len(got) != 2 || got[0] != 0 || got[1] != l2 {
			t.Fatalf("active layers: got %v, want [0 2]", got)
		}

		s.ProcessKeyEvent(KeyEvent{EvClick, B04}, t0.Add(190*time.Millisecond))
		assertEmitted(t, s, []emission{{k2, true}, {k2, false}})
	})

	t.Run("long hold just deactivates", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		s.ProcessKeyEvent(KeyEvent{EvClick, B02}, t0)
		drain(t, s)

		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(220*time.Millisecond))
		assertEmitted(t, s, nil)

		if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
			t.Fatalf("active layers: got %v, want [0]", got)
		}

		s.ProcessKeyEvent(KeyEvent{EvClick, B04}, t0.Add(220*time.Millisecond))
		assertEmitted(t, s, nil)
	})
}

// S6 — Klong promotion: short release clicks, long-press promotes to a
// held chord that reverses on physical release.
func TestScenarioS6KlongPromotion(t *testing.T) {
	newLayers := func() []Layer {
		return []Layer{
			{
				Name:          "base",
				Keymap:        Keymap{{{Klong(Group(kF12), Group(kLeftCtrl, kLeftShift, kA))}}},
				DefaultAction: NoAction(),
				StatusOnReset: Active(),
			},
		}
	}

	t.Run("long press promotes to chord", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		assertEmitted(t, s, nil)

		s.ProcessKeyEvent(KeyEvent{EvLongPress, B01}, t0.Add(201*time.Millisecond))
		assertEmitted(t, s, []emission{{kLeftCtrl, true}, {kLeftShift, true}, {kA, true}})

		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(300*time.Millisecond))
		assertEmitted(t, s, []emission{{kA, false}, {kLeftShift, false}, {kLeftCtrl, false}})
	})

	t.Run("short release clicks instead", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(150*time.Millisecond))
		assertEmitted(t, s, []emission{{kF12, true}, {kF12, false}})
	})
}

// Khl: short release clicks the short group; a long press instead
// activates the target layer.
func TestKhlDispatch(t *testing.T) {
	l1 := LayerId(1)
	newLayers := func() []Layer {
		return []Layer{
			{
				Name:          "base",
				Keymap:        Keymap{{{Khl(Group(kB), l1)}}},
				DefaultAction: NoAction(),
				StatusOnReset: Active(),
			},
			{
				Name:          "target",
				DefaultAction: NoAction(),
				StatusOnReset: Passthrough(),
			},
		}
	}

	t.Run("short release clicks", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		assertEmitted(t, s, nil)

		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(150*time.Millisecond))
		assertEmitted(t, s, []emission{{kB, true}, {kB, false}})

		if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
			t.Fatalf("target layer must not activate on a short click: %v", got)
		}
	})

	t.Run("long press activates the target layer", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		s.ProcessKeyEvent(KeyEvent{EvLongPress, B01}, t0.Add(201*time.Millisecond))
		assertEmitted(t, s, nil)

		if got := s.GetActiveLayers(); len(got) != 2 || got[0] != 0 || got[1] != l1 {
			t.Fatalf("target layer should be active after long press: %v", got)
		}
	})
}

// Khl long-pressed against a Disabled target must leave it Disabled:
// the original bug let layerActivate resurrect a disabled layer.
func TestKhlLongPressOnDisabledLayerStaysInert(t *testing.T) {
	l1 := LayerId(1)
	layers := []Layer{
		{
			Name:          "base",
			Keymap:        Keymap{{{Khl(Group(kB), l1)}}},
			DefaultAction: NoAction(),
			StatusOnReset: Active(),
		},
		{
			Name:          "target",
			DefaultAction: NoAction(),
			StatusOnReset: Disabled(),
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
	s.ProcessKeyEvent(KeyEvent{EvLongPress, B01}, t0.Add(201*time.Millisecond))
	assertEmitted(t, s, nil)

	if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("disabled target layer must stay inert: %v", got)
	}
}

// Khtl: short release clicks the short group; a long press instead
// tap-activates the target layer (ActiveUntilAnyKeyPress, self-retiring
// on the next press).
func TestKhtlDispatch(t *testing.T) {
	l1 := LayerId(1)
	newLayers := func() []Layer {
		return []Layer{
			{
				Name:          "base",
				Keymap:        Keymap{{{Khtl(Group(kB), l1), Kg(Group(kE))}}},
				DefaultAction: NoAction(),
				StatusOnReset: Active(),
			},
			{
				Name:          "target",
				Keymap:        Keymap{{{NoAction(), Kg(Group(k2))}}},
				DefaultAction: NoAction(),
				StatusOnReset: Passthrough(),
			},
		}
	}

	t.Run("short release clicks", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(150*time.Millisecond))
		assertEmitted(t, s, []emission{{kB, true}, {kB, false}})

		if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
			t.Fatalf("target layer must not activate on a short click: %v", got)
		}
	})

	t.Run("long press tap-activates the target layer", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		s.ProcessKeyEvent(KeyEvent{EvLongPress, B01}, t0.Add(201*time.Millisecond))
		assertEmitted(t, s, nil)

		if got := s.GetActiveLayers(); len(got) != 2 || got[0] != 0 || got[1] != l1 {
			t.Fatalf("target layer should be tap-active after long press: %v", got)
		}

		// The tap-activated layer self-retires on the next press.
		s.ProcessKeyEvent(KeyEvent{EvClick, B02}, t0.Add(201*time.Millisecond))
		assertEmitted(t, s, []emission{{k2, true}, {k2, false}})

		if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
			t.Fatalf("tap-activated target layer should have retired: %v", got)
		}
	})
}

// Khtl long-pressed against a Disabled target must leave it Disabled:
// the original bug bypassed layerTapActivateAndRetire's Passthrough
// guard by setting status directly.
func TestKhtlLongPressOnDisabledLayerStaysInert(t *testing.T) {
	l1 := LayerId(1)
	layers := []Layer{
		{
			Name:          "base",
			Keymap:        Keymap{{{Khtl(Group(kB), l1)}}},
			DefaultAction: NoAction(),
			StatusOnReset: Active(),
		},
		{
			Name:          "target",
			DefaultAction: NoAction(),
			StatusOnReset: Disabled(),
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
	s.ProcessKeyEvent(KeyEvent{EvLongPress, B01}, t0.Add(201*time.Millisecond))
	assertEmitted(t, s, nil)

	if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("disabled target layer must stay inert: %v", got)
	}
}

// LhtK: short release clicks a dedicated key group; a long hold emits
// nothing from the click group and simply deactivates the hold layer
// it temporarily activated.
func TestLhtKDispatch(t *testing.T) {
	l1 := LayerId(1)
	newLayers := func() []Layer {
		return []Layer{
			{
				Name:          "base",
				Keymap:        Keymap{{{LhtK(l1, Group(kA))}}},
				DefaultAction: NoAction(),
				StatusOnReset: Active(),
			},
			{
				Name:          "hold",
				Keymap:        Keymap{{{NoAction()}}},
				DefaultAction: NoAction(),
				StatusOnReset: Passthrough(),
			},
		}
	}

	t.Run("short release clicks", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		assertEmitted(t, s, nil)
		if got := s.GetActiveLayers(); len(got) != 2 || got[0] != 0 || got[1] != l1 {
			t.Fatalf("hold layer should activate while held: %v", got)
		}

		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(150*time.Millisecond))
		assertEmitted(t, s, []emission{{kA, true}, {kA, false}})

		if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
			t.Fatalf("hold layer should deactivate on release: %v", got)
		}
	})

	t.Run("long hold emits nothing and deactivates", func(t *testing.T) {
		s := NewSwitcher(newLayers())
		s.Start()
		t0 := baseTime()

		s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
		s.ProcessKeyEvent(KeyEvent{EvReleased, B01}, t0.Add(220*time.Millisecond))
		assertEmitted(t, s, nil)

		if got := s.GetActiveLayers(); len(got) != 1 || got[0] != 0 {
			t.Fatalf("hold layer should deactivate on release: %v", got)
		}
	})
}

func TestBaseLayerAlwaysActive(t *testing.T) {
	layers := []Layer{
		{Name: "base", DefaultAction: NoAction(), StatusOnReset: Active()},
		{Name: "other", DefaultAction: NoAction(), StatusOnReset: Passthrough()},
	}
	s := NewSwitcher(layers)
	s.Start()

	// Ldisable/Ldeactivate(0) must be a no-op: base layer stays Active.
	s.layerDisable(0)
	s.layerDeactivate(0)
	active := s.GetActiveLayers()
	if len(active) == 0 || active[0] != 0 {
		t.Fatalf("base layer not active after disable/deactivate attempts: %v", active)
	}
}

func TestCyclicInheritGuard(t *testing.T) {
	l0 := LayerId(0)
	layers := []Layer{
		{
			Name:          "base",
			Keymap:        Keymap{{{InhAction()}}},
			DefaultAction: InhAction(),
			StatusOnReset: Active(),
			Inherit:       &l0,
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	// Must not hang; must resolve to No (no emission).
	s.ProcessKeyEvent(KeyEvent{EvClick, B01}, t0)
	assertEmitted(t, s, nil)
}

func TestAtMostOnePressRecordPerCoordinate(t *testing.T) {
	layers := []Layer{
		{
			Name:          "base",
			Keymap:        Keymap{{{Kg(Group(kB))}}},
			DefaultAction: NoAction(),
			StatusOnReset: Active(),
		},
	}
	s := NewSwitcher(layers)
	s.Start()
	t0 := baseTime()

	s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
	drain(t, s)
	s.ProcessKeyEvent(KeyEvent{EvPressed, B01}, t0)
	drain(t, s)

	count := 0
	for _, p := range s.presses {
		if p.coord == B01 {
			count++
		}
	}
	if count > 1 {
		t.Fatalf("expected at most one press record for B01, got %d", count)
	}
}
