// Package keymap implements the layered keymap engine: a deterministic
// state machine that turns timed button press/release/click/long-press
// events into a stream of virtual-keyboard key-down/key-up pairs, by
// resolving each event against a stack of programmable layers.
package keymap

import "time"

// Keycode is an opaque host keyboard key identifier. The engine never
// interprets its value; collaborators map it to whatever constant space
// their output sink uses (e.g. uinput key codes).
type Keycode int

// LayerId indexes into the layer stack. Layer 0 is always the base layer.
type LayerId int

// Coordinate addresses one physical button on the device grid.
type Coordinate struct {
	Block, Row, Col uint8
}

// LayerKey tags emissions produced by layer activation/deactivation
// rather than by a specific physical key press.
var LayerKey = Coordinate{255, 255, 255}

// ActionKind is the tag of the closed Action DSL union. Adding a variant
// means revisiting resolve, processPress, processRelease and
// processLongPress. processPress lists every kind; resolve and
// processLongPress send the kinds they do not name to a default case,
// and processRelease only checks for LhtK.
type ActionKind int

const (
	ActionNo ActionKind = iota
	ActionInh
	ActionPass
	ActionKg
	ActionKlong
	ActionKhl
	ActionKhtl
	ActionLhtK
	ActionLhtL
	ActionLhold
	ActionLtap
	ActionLmove
	ActionLactivate
	ActionLdeactivate
	ActionLdisable
)

// Action is one cell of a layer's keymap grid. Only the fields relevant
// to Kind are populated; see the constructors below.
type Action struct {
	Kind ActionKind

	// Kg: the chord/sequence to emit.
	// Klong/Khl/Khtl: the short (tap) key group.
	// LhtK: the click group emitted on a short hold.
	Group KeyGroup

	// Klong only: the key group emitted once the press becomes a long press.
	Long KeyGroup

	// L*: the target layer. Khl/Khtl: the layer activated (Khl) or
	// tap-activated (Khtl) on a long press. LhtK/LhtL: the hold layer.
	Layer LayerId

	// LhtL only: the tap-activated layer on a short release.
	Layer2 LayerId
}

func NoAction() Action   { return Action{Kind: ActionNo} }
func InhAction() Action  { return Action{Kind: ActionInh} }
func PassAction() Action { return Action{Kind: ActionPass} }

func Kg(g KeyGroup) Action { return Action{Kind: ActionKg, Group: g} }

func Klong(short, long KeyGroup) Action {
	return Action{Kind: ActionKlong, Group: short, Long: long}
}

func Khl(short KeyGroup, layer LayerId) Action {
	return Action{Kind: ActionKhl, Group: short, Layer: layer}
}

func Khtl(short KeyGroup, layer LayerId) Action {
	return Action{Kind: ActionKhtl, Group: short, Layer: layer}
}

func LhtK(holdLayer LayerId, click KeyGroup) Action {
	return Action{Kind: ActionLhtK, Layer: holdLayer, Group: click}
}

func LhtL(holdLayer, tapLayer LayerId) Action {
	return Action{Kind: ActionLhtL, Layer: holdLayer, Layer2: tapLayer}
}

func Lhold(layer LayerId) Action       { return Action{Kind: ActionLhold, Layer: layer} }
func Ltap(layer LayerId) Action        { return Action{Kind: ActionLtap, Layer: layer} }
func Lmove(layer LayerId) Action       { return Action{Kind: ActionLmove, Layer: layer} }
func Lactivate(layer LayerId) Action   { return Action{Kind: ActionLactivate, Layer: layer} }
func Ldeactivate(layer LayerId) Action { return Action{Kind: ActionLdeactivate, Layer: layer} }
func Ldisable(layer LayerId) Action    { return Action{Kind: ActionLdisable, Layer: layer} }

// StatusKind is the tag of the closed LayerStatus union.
type StatusKind int

const (
	StatusActive StatusKind = iota
	StatusPassthrough
	StatusDisabled
	StatusActiveUntilKeyRelease
	StatusActiveUntilKeyReleaseTap
	StatusActiveUntilAnyKeyPress
	StatusHoldAndTapToL
	StatusHoldAndTapKey
)

// LayerStatus is the runtime state of one layer in the layer stack.
type LayerStatus struct {
	Kind StatusKind

	// ActiveUntilKeyRelease / ActiveUntilKeyReleaseTap / HoldAndTapToL /
	// HoldAndTapKey: the coordinate whose release retires this status.
	Coord Coordinate

	// HoldAndTapToL / HoldAndTapKey: when the status was entered.
	T0 time.Time

	// HoldAndTapToL: the layer to tap-activate on a short release.
	NextLayer LayerId

	// HoldAndTapKey: the layer whose keymap cell is re-read at release.
	SourceLayer LayerId
}

func Active() LayerStatus      { return LayerStatus{Kind: StatusActive} }
func Passthrough() LayerStatus { return LayerStatus{Kind: StatusPassthrough} }
func Disabled() LayerStatus    { return LayerStatus{Kind: StatusDisabled} }

// EventKind tags the four button-change events the detector produces.
type EventKind int

const (
	EvPressed EventKind = iota
	EvReleased
	EvClick
	EvLongPress
)

// KeyEvent is the flattened, coordinate-addressed event the switcher
// consumes. ChangeDetector emits one per tracked/untracked button
// transition; callers convert their button identifiers to Coordinate via
// Button.Coordinate before handing events to the switcher.
type KeyEvent struct {
	Kind  EventKind
	Coord Coordinate
}
