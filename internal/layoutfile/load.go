package layoutfile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leonard/gridmapper/internal/keymap"
)

// Loaded is the resolved, ready-to-inject result of parsing a layout
// file: the layer stack plus the hold threshold it asked for (zero when
// the file sets no hold_threshold_ms).
type Loaded struct {
	Name          string
	Layers        []keymap.Layer
	HoldThreshold time.Duration
}

// Load reads a layout YAML file from disk and resolves it into the
// in-memory form keymap.NewSwitcher consumes. Layer-name references
// (inherit, Lhold/Ltap/Lmove/Lactivate/Ldeactivate/Ldisable/Khl/Khtl/
// LhtK/LhtL targets) are resolved to keymap.LayerId indices here; an
// unresolvable name is reported with the layer and field that named it.
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}

	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing layout file %s: %w", path, err)
	}

	return build(&root)
}

func build(root *fileRoot) (*Loaded, error) {
	if len(root.Layers) == 0 {
		return nil, fmt.Errorf("layout %q defines no layers", root.Name)
	}

	index := make(map[string]keymap.LayerId, len(root.Layers))
	for i, fl := range root.Layers {
		if fl.Name == "" {
			return nil, fmt.Errorf("layer %d has no name", i)
		}
		if _, dup := index[fl.Name]; dup {
			return nil, fmt.Errorf("duplicate layer name %q", fl.Name)
		}
		index[fl.Name] = keymap.LayerId(i)
	}

	layers := make([]keymap.Layer, len(root.Layers))
	for i, fl := range root.Layers {
		layer, err := resolveLayer(fl, index)
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", fl.Name, err)
		}
		layers[i] = layer
	}

	var threshold time.Duration
	if root.HoldThresholdMs > 0 {
		threshold = time.Duration(root.HoldThresholdMs) * time.Millisecond
	}

	return &Loaded{Name: root.Name, Layers: layers, HoldThreshold: threshold}, nil
}

func resolveLayer(fl fileLayer, index map[string]keymap.LayerId) (keymap.Layer, error) {
	status, err := resolveStatus(fl.StatusOnReset)
	if err != nil {
		return keymap.Layer{}, err
	}

	defaultAction, err := resolveAction(fl.DefaultAction, index)
	if err != nil {
		return keymap.Layer{}, fmt.Errorf("default_action: %w", err)
	}

	km := make(keymap.Keymap, len(fl.Keymap))
	for b, block := range fl.Keymap {
		km[b] = make([][]keymap.Action, len(block))
		for r, row := range block {
			km[b][r] = make([]keymap.Action, len(row))
			for c, fa := range row {
				act, err := resolveAction(fa, index)
				if err != nil {
					return keymap.Layer{}, fmt.Errorf("keymap[%d][%d][%d]: %w", b, r, c, err)
				}
				km[b][r][c] = act
			}
		}
	}

	onActive, err := resolveKeys(fl.OnActiveKeys)
	if err != nil {
		return keymap.Layer{}, fmt.Errorf("on_active_keys: %w", err)
	}

	var inherit *keymap.LayerId
	if fl.Inherit != "" {
		id, err := resolveLayerName(fl.Inherit, index)
		if err != nil {
			return keymap.Layer{}, fmt.Errorf("inherit: %w", err)
		}
		inherit = &id
	}

	return keymap.Layer{
		Name:                 fl.Name,
		Keymap:               km,
		DefaultAction:        defaultAction,
		StatusOnReset:        status,
		Inherit:              inherit,
		OnActiveKeys:         onActive,
		DisableActiveOnPress: fl.DisableActiveOnPress,
	}, nil
}

func resolveStatus(s string) (keymap.LayerStatus, error) {
	switch s {
	case "", "active":
		return keymap.Active(), nil
	case "passthrough":
		return keymap.Passthrough(), nil
	case "disabled":
		return keymap.Disabled(), nil
	default:
		return keymap.LayerStatus{}, fmt.Errorf("unknown status_on_reset %q", s)
	}
}

func resolveLayerName(name string, index map[string]keymap.LayerId) (keymap.LayerId, error) {
	id, ok := index[name]
	if !ok {
		return 0, fmt.Errorf("unknown layer name %q", name)
	}
	return id, nil
}

func resolveKeys(names []string) ([]keymap.Keycode, error) {
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]keymap.Keycode, len(names))
	for i, n := range names {
		k, ok := lookupKeycode(n)
		if !ok {
			return nil, fmt.Errorf("unknown key name %q", n)
		}
		keys[i] = k
	}
	return keys, nil
}

func resolveKeyGroup(keys, mask []string, sequential bool) (keymap.KeyGroup, error) {
	ks, err := resolveKeys(keys)
	if err != nil {
		return keymap.KeyGroup{}, err
	}
	ms, err := resolveKeys(mask)
	if err != nil {
		return keymap.KeyGroup{}, err
	}
	var kg keymap.KeyGroup
	if sequential {
		kg = keymap.Sequence(ks...)
	} else {
		kg = keymap.Group(ks...)
	}
	return kg.WithMask(ms...), nil
}

func resolveAction(fa fileAction, index map[string]keymap.LayerId) (keymap.Action, error) {
	switch fa.Type {
	case "", "no":
		return keymap.NoAction(), nil
	case "inh":
		return keymap.InhAction(), nil
	case "pass":
		return keymap.PassAction(), nil
	case "kg":
		kg, err := resolveKeyGroup(fa.Keys, fa.Mask, fa.Sequential)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Kg(kg), nil
	case "klong":
		short, err := resolveKeyGroup(fa.Keys, fa.Mask, fa.Sequential)
		if err != nil {
			return keymap.Action{}, err
		}
		long, err := resolveKeyGroup(fa.Long, fa.LongMask, false)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Klong(short, long), nil
	case "khl":
		short, err := resolveKeyGroup(fa.Keys, fa.Mask, fa.Sequential)
		if err != nil {
			return keymap.Action{}, err
		}
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Khl(short, layer), nil
	case "khtl":
		short, err := resolveKeyGroup(fa.Keys, fa.Mask, fa.Sequential)
		if err != nil {
			return keymap.Action{}, err
		}
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Khtl(short, layer), nil
	case "lhtk":
		click, err := resolveKeyGroup(fa.Click, fa.ClickMask, false)
		if err != nil {
			return keymap.Action{}, err
		}
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.LhtK(layer, click), nil
	case "lhtl":
		holdLayer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		tapLayer, err := resolveLayerName(fa.Layer2, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.LhtL(holdLayer, tapLayer), nil
	case "lhold":
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Lhold(layer), nil
	case "ltap":
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Ltap(layer), nil
	case "lmove":
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Lmove(layer), nil
	case "lactivate":
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Lactivate(layer), nil
	case "ldeactivate":
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Ldeactivate(layer), nil
	case "ldisable":
		layer, err := resolveLayerName(fa.Layer, index)
		if err != nil {
			return keymap.Action{}, err
		}
		return keymap.Ldisable(layer), nil
	default:
		return keymap.Action{}, fmt.Errorf("unknown action type %q", fa.Type)
	}
}
