package keymap

// Keymap is a 3-D grid of actions indexed by [block][row][col].
// Out-of-range coordinates fall back to the layer's DefaultAction.
type Keymap [][][]Action

// Layer is an immutable (after load) layer configuration.
type Layer struct {
	// Name is used only for logging and error messages; the engine
	// itself addresses layers by LayerId.
	Name string

	Keymap        Keymap
	DefaultAction Action

	// StatusOnReset is what Start() sets this layer's runtime status to.
	StatusOnReset LayerStatus

	// Inherit is the parent layer Inh delegates to, if any.
	Inherit *LayerId

	// OnActiveKeys are pressed when the layer becomes active and
	// released when it becomes inactive.
	OnActiveKeys []Keycode

	// DisableActiveOnPress: while a key from this layer is held, the
	// OnActiveKeys are temporarily released and restored on release.
	DisableActiveOnPress bool
}

// Get returns the action at coords, or DefaultAction if out of range.
func (l *Layer) Get(coords Coordinate) Action {
	if int(coords.Block) >= len(l.Keymap) {
		return l.DefaultAction
	}
	block := l.Keymap[coords.Block]
	if int(coords.Row) >= len(block) {
		return l.DefaultAction
	}
	row := block[coords.Row]
	if int(coords.Col) >= len(row) {
		return l.DefaultAction
	}
	return row[coords.Col]
}

// UsedKeys returns every keycode this layer might ever emit, across all
// of its cells, its default action and its on-active keys.
func (l *Layer) UsedKeys() []Keycode {
	var keys []Keycode
	keys = append(keys, l.OnActiveKeys...)
	km := append(Keymap{{{l.DefaultAction}}}, l.Keymap...)
	for _, block := range km {
		for _, row := range block {
			for _, act := range row {
				switch act.Kind {
				case ActionKg:
					keys = append(keys, act.Group.usedKeys()...)
				case ActionKlong:
					keys = append(keys, act.Group.usedKeys()...)
					keys = append(keys, act.Long.usedKeys()...)
				case ActionKhl, ActionKhtl:
					keys = append(keys, act.Group.usedKeys()...)
				case ActionLhtK:
					keys = append(keys, act.Group.usedKeys()...)
				}
			}
		}
	}
	return keys
}
