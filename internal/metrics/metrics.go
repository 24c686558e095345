// Package metrics tracks a handful of lightweight counters describing
// the keymap core's runtime behavior: how many keys the emit queue has
// rendered, and how many long-press ticks the HID reader has driven
// through the detector. There's no metrics/telemetry library anywhere
// in the example corpus this daemon is grounded on, so these are plain
// atomic counters logged periodically with the same slog.Logger the
// rest of the daemon uses, rather than reaching for an external
// metrics system with nothing in the corpus to ground it on.
package metrics

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Counters holds the process-wide counters. The zero value is ready
// to use.
type Counters struct {
	KeysEmitted   atomic.Int64
	LongPressTicks atomic.Int64
	EventsDropped  atomic.Int64
}

func (c *Counters) EmitKey() {
	c.KeysEmitted.Add(1)
}

func (c *Counters) Tick() {
	c.LongPressTicks.Add(1)
}

func (c *Counters) DropEvent() {
	c.EventsDropped.Add(1)
}

// Snapshot is a point-in-time copy suitable for logging.
type Snapshot struct {
	KeysEmitted    int64
	LongPressTicks int64
	EventsDropped  int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		KeysEmitted:    c.KeysEmitted.Load(),
		LongPressTicks: c.LongPressTicks.Load(),
		EventsDropped:  c.EventsDropped.Load(),
	}
}

// LogEvery logs a snapshot on interval until stop is closed.
func (c *Counters) LogEvery(logger *slog.Logger, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s := c.Snapshot()
			logger.Debug("metrics",
				"keys_emitted", s.KeysEmitted,
				"long_press_ticks", s.LongPressTicks,
				"events_dropped", s.EventsDropped,
			)
		}
	}
}
