package keymap

import "time"

// DefaultHoldThreshold is the boundary between a tap and a hold/long-press
// for every disambiguation decision in the switcher.
const DefaultHoldThreshold = 200 * time.Millisecond

type stackEntry struct {
	status LayerStatus
	// activeKeys tracks whether this layer's OnActiveKeys are currently
	// held, so activation/deactivation and disable_active_on_press
	// suppression never double-fire.
	activeKeys bool
}

type emittedKey struct {
	Code    Keycode
	Pressed bool
}

// LayerSwitcher resolves physical key events against a stack of layers,
// tracking layer activation state and deferred tap/hold decisions, and
// produces an ordered stream of virtual key-down/key-up events.
//
// It is single-threaded and synchronous: every method runs to completion
// before the next call is accepted, and time is always supplied by the
// caller. There is no internal clock and no goroutine.
type LayerSwitcher struct {
	layers        []Layer
	stack         []stackEntry
	presses       []pressRecord
	queue         []emittedKey
	holdThreshold time.Duration
	started       bool
}

// NewSwitcher builds a switcher over the given static layer list. Layer 0
// must be the base layer.
func NewSwitcher(layers []Layer) *LayerSwitcher {
	return &LayerSwitcher{
		layers:        layers,
		holdThreshold: DefaultHoldThreshold,
	}
}

// SetHoldThreshold overrides the default 200ms tap/hold boundary.
func (s *LayerSwitcher) SetHoldThreshold(d time.Duration) {
	s.holdThreshold = d
}

// Start (re)initializes runtime state: every layer's status is reset to
// its configured StatusOnReset, the base layer is forced Active, and the
// press table and emission queue are cleared. The OnActiveKeys of every
// layer that starts out active are then queued as key-downs. Must be
// called before any ProcessKeyEvent.
func (s *LayerSwitcher) Start() {
	s.stack = make([]stackEntry, len(s.layers))
	for i, l := range s.layers {
		s.stack[i] = stackEntry{status: l.StatusOnReset}
	}
	if len(s.stack) > 0 {
		s.stack[0].status = Active()
	}
	s.presses = nil
	s.queue = nil
	for i := range s.stack {
		if isResolvable(s.stack[i].status.Kind) {
			s.onLayerActivation(LayerId(i))
		}
	}
	s.started = true
}

func isResolvable(kind StatusKind) bool {
	return kind != StatusDisabled && kind != StatusPassthrough
}

// ProcessKeyEvent is the sole entrypoint driving the state machine.
func (s *LayerSwitcher) ProcessKeyEvent(ev KeyEvent, t time.Time) {
	if !s.started {
		panic("keymap: ProcessKeyEvent called before Start")
	}
	switch ev.Kind {
	case EvPressed:
		s.processPress(ev.Coord, t)
	case EvReleased:
		s.processRelease(ev.Coord, t)
	case EvClick:
		s.processPress(ev.Coord, t)
		s.processRelease(ev.Coord, t)
	case EvLongPress:
		s.processLongPress(ev.Coord, t)
	}
}

// Render drains the emission queue FIFO, invoking cb once per key event.
// cb must not re-enter the switcher.
func (s *LayerSwitcher) Render(cb func(Keycode, bool)) {
	for _, e := range s.queue {
		cb(e.Code, e.Pressed)
	}
	s.queue = s.queue[:0]
}

// GetUsedKeys returns every keycode any layer might ever emit, for sizing
// a collaborator's output capability set.
func (s *LayerSwitcher) GetUsedKeys() map[Keycode]struct{} {
	used := make(map[Keycode]struct{})
	for i := range s.layers {
		for _, k := range s.layers[i].UsedKeys() {
			used[k] = struct{}{}
		}
	}
	return used
}

// GetActiveLayers returns the indices of layers currently participating
// in resolution, in ascending (stack) order.
func (s *LayerSwitcher) GetActiveLayers() []LayerId {
	var active []LayerId
	for i := range s.stack {
		if isResolvable(s.stack[i].status.Kind) {
			active = append(active, LayerId(i))
		}
	}
	return active
}

func (s *LayerSwitcher) emit(k Keycode, pressed bool) {
	s.queue = append(s.queue, emittedKey{Code: k, Pressed: pressed})
}

// resolve walks the layer stack top-down for coord, following Inh within
// a layer (cycle-guarded) and Pass across layers, returning the
// reporting layer (the topmost layer whose resolution did not Pass) and
// the concrete action it ultimately produced.
func (s *LayerSwitcher) resolve(coord Coordinate) (LayerId, Action) {
outer:
	for i := len(s.stack) - 1; i >= 0; i-- {
		if !isResolvable(s.stack[i].status.Kind) {
			continue
		}
		reportingLayer := LayerId(i)
		cur := reportingLayer
		visited := make(map[LayerId]bool)
		for {
			if visited[cur] {
				return reportingLayer, NoAction()
			}
			visited[cur] = true
			act := s.layers[cur].Get(coord)
			switch act.Kind {
			case ActionInh:
				if s.layers[cur].Inherit == nil {
					return reportingLayer, s.layers[cur].DefaultAction
				}
				cur = *s.layers[cur].Inherit
			case ActionPass:
				continue outer
			default:
				return reportingLayer, act
			}
		}
	}
	return 0, NoAction()
}

// --- layer transitions ---

func (s *LayerSwitcher) onLayerActivation(idx LayerId) {
	l := &s.layers[idx]
	for _, k := range l.OnActiveKeys {
		s.emit(k, true)
	}
	s.stack[idx].activeKeys = true
}

func (s *LayerSwitcher) onLayerDeactivation(idx LayerId) {
	e := &s.stack[idx]
	if !e.activeKeys {
		return
	}
	l := &s.layers[idx]
	for i := len(l.OnActiveKeys) - 1; i >= 0; i-- {
		s.emit(l.OnActiveKeys[i], false)
	}
	e.activeKeys = false
}

func (s *LayerSwitcher) layerActivate(idx LayerId) {
	if idx == 0 {
		return
	}
	e := &s.stack[idx]
	if e.status.Kind == StatusActive || e.status.Kind == StatusDisabled {
		return
	}
	e.status = Active()
	s.onLayerActivation(idx)
}

func (s *LayerSwitcher) layerDeactivate(idx LayerId) {
	if idx == 0 {
		return
	}
	e := &s.stack[idx]
	if e.status.Kind == StatusDisabled || e.status.Kind == StatusPassthrough {
		return
	}
	s.onLayerDeactivation(idx)
	e.status = Passthrough()
}

func (s *LayerSwitcher) layerDisable(idx LayerId) {
	if idx == 0 {
		return
	}
	e := &s.stack[idx]
	if e.status.Kind == StatusDisabled {
		return
	}
	s.onLayerDeactivation(idx)
	e.status = Disabled()
}

func (s *LayerSwitcher) layerHold(idx LayerId, coord Coordinate) {
	e := &s.stack[idx]
	if e.status.Kind != StatusPassthrough {
		return
	}
	e.status = LayerStatus{Kind: StatusActiveUntilKeyRelease, Coord: coord}
	s.onLayerActivation(idx)
}

func (s *LayerSwitcher) layerTap(idx LayerId, coord Coordinate) {
	e := &s.stack[idx]
	if e.status.Kind != StatusPassthrough {
		return
	}
	e.status = LayerStatus{Kind: StatusActiveUntilKeyReleaseTap, Coord: coord}
	s.onLayerActivation(idx)
}

func (s *LayerSwitcher) layerHoldTapToL(idx LayerId, coord Coordinate, t time.Time, next LayerId) {
	e := &s.stack[idx]
	if e.status.Kind != StatusPassthrough {
		return
	}
	e.status = LayerStatus{Kind: StatusHoldAndTapToL, Coord: coord, T0: t, NextLayer: next}
	s.onLayerActivation(idx)
}

func (s *LayerSwitcher) layerHoldTapKey(idx LayerId, coord Coordinate, t time.Time, source LayerId) {
	e := &s.stack[idx]
	if e.status.Kind != StatusPassthrough {
		return
	}
	e.status = LayerStatus{Kind: StatusHoldAndTapKey, Coord: coord, T0: t, SourceLayer: source}
	s.onLayerActivation(idx)
}

// layerTapActivateAndRetire activates idx (if Passthrough) and puts it
// straight into ActiveUntilAnyKeyPress, skipping the intermediate
// ActiveUntilKeyReleaseTap state: the release that triggers this already
// counts as the tap's defining press.
func (s *LayerSwitcher) layerTapActivateAndRetire(idx LayerId) {
	e := &s.stack[idx]
	if e.status.Kind != StatusPassthrough {
		return
	}
	e.status = LayerStatus{Kind: StatusActiveUntilAnyKeyPress}
	s.onLayerActivation(idx)
}

// layerMove deactivates every non-base layer other than target, then
// activates target.
func (s *LayerSwitcher) layerMove(target LayerId) {
	for idx := range s.stack {
		li := LayerId(idx)
		if li == 0 || li == target {
			continue
		}
		s.layerDeactivate(li)
	}
	s.layerActivate(target)
}

// --- key group emission ---

func (s *LayerSwitcher) reactivateOnActiveKeys(idx LayerId) {
	l := &s.layers[idx]
	for _, k := range l.OnActiveKeys {
		s.emit(k, true)
	}
	s.stack[idx].activeKeys = true
}

func (s *LayerSwitcher) keygroupPress(kg KeyGroup, coord Coordinate, srcLayer LayerId, t time.Time, forceClick bool) {
	l := &s.layers[srcLayer]
	suppressed := false
	if l.DisableActiveOnPress && s.stack[srcLayer].activeKeys {
		for i := len(l.OnActiveKeys) - 1; i >= 0; i-- {
			s.emit(l.OnActiveKeys[i], false)
		}
		s.stack[srcLayer].activeKeys = false
		suppressed = true
	}

	for _, m := range kg.Mask {
		s.emit(m, false)
	}

	if kg.Sequential {
		for _, k := range kg.Keys {
			s.emit(k, true)
			s.emit(k, false)
		}
		for i := len(kg.Mask) - 1; i >= 0; i-- {
			s.emit(kg.Mask[i], true)
		}
		if suppressed {
			s.reactivateOnActiveKeys(srcLayer)
		}
		return
	}

	for _, k := range kg.Keys {
		s.emit(k, true)
	}

	if forceClick {
		for i := len(kg.Keys) - 1; i >= 0; i-- {
			s.emit(kg.Keys[i], false)
		}
		for i := len(kg.Mask) - 1; i >= 0; i-- {
			s.emit(kg.Mask[i], true)
		}
		if suppressed {
			s.reactivateOnActiveKeys(srcLayer)
		}
		return
	}

	s.presses = append(s.presses, pressRecord{layer: srcLayer, coord: coord, mode: modeReverse, group: kg, t: t})
}

func (s *LayerSwitcher) keygroupRelease(kg KeyGroup, coord Coordinate, srcLayer LayerId) {
	for i := len(kg.Keys) - 1; i >= 0; i-- {
		s.emit(kg.Keys[i], false)
	}
	for i := len(kg.Mask) - 1; i >= 0; i-- {
		s.emit(kg.Mask[i], true)
	}
	l := &s.layers[srcLayer]
	if l.DisableActiveOnPress && !s.stack[srcLayer].activeKeys && isResolvable(s.stack[srcLayer].status.Kind) {
		s.reactivateOnActiveKeys(srcLayer)
	}
}

func (s *LayerSwitcher) findPress(coord Coordinate) (pressRecord, bool) {
	for i, p := range s.presses {
		if p.coord == coord {
			rec := p
			s.presses = append(s.presses[:i], s.presses[i+1:]...)
			return rec, true
		}
	}
	return pressRecord{}, false
}

// --- press / release / long-press dispatch ---

func (s *LayerSwitcher) processPress(coord Coordinate, t time.Time) {
	// A coordinate with a press record is still held: a repeated press
	// for it is ignored, keeping at most one record per coordinate.
	for _, p := range s.presses {
		if p.coord == coord {
			return
		}
	}

	layer, act := s.resolve(coord)

	switch act.Kind {
	case ActionNo, ActionInh, ActionPass:
		// swallow
	case ActionKg:
		s.keygroupPress(act.Group, coord, layer, t, false)
	case ActionKlong, ActionKhl, ActionKhtl:
		s.presses = append(s.presses, pressRecord{layer: layer, coord: coord, mode: modeForceClick, group: act.Group, t: t})
	case ActionLmove:
		s.layerMove(act.Layer)
	case ActionLhold:
		s.layerHold(act.Layer, coord)
	case ActionLtap:
		s.layerTap(act.Layer, coord)
	case ActionLactivate:
		s.layerActivate(act.Layer)
	case ActionLdeactivate:
		s.layerDeactivate(act.Layer)
	case ActionLdisable:
		s.layerDisable(act.Layer)
	case ActionLhtL:
		s.layerHoldTapToL(act.Layer, coord, t, act.Layer2)
	case ActionLhtK:
		s.layerHoldTapKey(act.Layer, coord, t, layer)
	}

	for i := range s.stack {
		if s.stack[i].status.Kind == StatusActiveUntilAnyKeyPress {
			s.layerDeactivate(LayerId(i))
		}
	}
}

func (s *LayerSwitcher) processRelease(coord Coordinate, t time.Time) {
	n := len(s.stack)
	for i := 0; i < n; i++ {
		st := s.stack[i].status
		switch st.Kind {
		case StatusActiveUntilKeyRelease:
			if st.Coord == coord {
				s.layerDeactivate(LayerId(i))
			}
		case StatusActiveUntilKeyReleaseTap:
			if st.Coord == coord {
				s.stack[i].status = LayerStatus{Kind: StatusActiveUntilAnyKeyPress}
			}
		case StatusHoldAndTapKey:
			if st.Coord == coord {
				elapsed := t.Sub(st.T0)
				source := st.SourceLayer
				s.layerDeactivate(LayerId(i))
				if elapsed < s.holdThreshold {
					cell := s.layers[source].Get(coord)
					if cell.Kind == ActionLhtK {
						s.keygroupPress(cell.Group, coord, source, t, true)
					}
				}
			}
		case StatusHoldAndTapToL:
			if st.Coord == coord {
				elapsed := t.Sub(st.T0)
				next := st.NextLayer
				s.layerDeactivate(LayerId(i))
				if elapsed < s.holdThreshold {
					s.layerTapActivateAndRetire(next)
				}
			}
		}
	}

	rec, ok := s.findPress(coord)
	if !ok {
		return
	}
	switch rec.mode {
	case modeForceClick:
		s.keygroupPress(rec.group, coord, rec.layer, t, true)
	case modeReverse:
		s.keygroupRelease(rec.group, coord, rec.layer)
	}
}

func (s *LayerSwitcher) processLongPress(coord Coordinate, t time.Time) {
	i := -1
	for idx, p := range s.presses {
		if p.coord == coord {
			i = idx
			break
		}
	}
	if i < 0 {
		return
	}
	rec := s.presses[i]
	if t.Sub(rec.t) <= s.holdThreshold {
		return
	}
	if rec.mode != modeForceClick {
		return
	}

	cell := s.layers[rec.layer].Get(coord)
	switch cell.Kind {
	case ActionKlong:
		s.presses = append(s.presses[:i], s.presses[i+1:]...)
		s.keygroupPress(cell.Long, coord, rec.layer, t, false)
	case ActionKhtl:
		s.presses = append(s.presses[:i], s.presses[i+1:]...)
		s.layerTapActivateAndRetire(cell.Layer)
	case ActionKhl:
		s.presses = append(s.presses[:i], s.presses[i+1:]...)
		s.layerActivate(cell.Layer)
	default:
		// stale tick: the press was already released or promoted
	}
}
