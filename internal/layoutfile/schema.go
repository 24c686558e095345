// Package layoutfile (de)serializes the YAML layer-stack configuration
// that describes a keymap.LayerSwitcher's layers. This is the
// "serialization surface" spec.md keeps deliberately out of the core's
// scope: the core only ever sees the in-memory []keymap.Layer this
// package builds.
package layoutfile

// fileRoot mirrors the top-level YAML document.
type fileRoot struct {
	Name            string      `yaml:"name"`
	HoldThresholdMs int         `yaml:"hold_threshold_ms"`
	Layers          []fileLayer `yaml:"layers"`
}

// fileLayer mirrors one entry of the `layers` sequence. Layer 0 (the
// first entry) is always the base layer.
type fileLayer struct {
	Name                 string          `yaml:"name"`
	StatusOnReset        string          `yaml:"status_on_reset"`
	DefaultAction        fileAction      `yaml:"default_action"`
	Keymap               [][][]fileAction `yaml:"keymap"`
	Inherit              string          `yaml:"inherit,omitempty"`
	OnActiveKeys         []string        `yaml:"on_active_keys,omitempty"`
	DisableActiveOnPress bool            `yaml:"disable_active_on_press,omitempty"`
}

// fileAction mirrors one Action DSL cell. Which fields are read depends
// on Type; see load.go's resolveAction.
type fileAction struct {
	Type string `yaml:"type"`

	// Kg / Klong.short / Khl.short / Khtl.short
	Keys       []string `yaml:"keys,omitempty"`
	Mask       []string `yaml:"mask,omitempty"`
	Sequential bool     `yaml:"sequential,omitempty"`

	// Klong.long
	Long     []string `yaml:"long,omitempty"`
	LongMask []string `yaml:"long_mask,omitempty"`

	// LhtK.click
	Click     []string `yaml:"click,omitempty"`
	ClickMask []string `yaml:"click_mask,omitempty"`

	// Khl / Khtl / LhtK / LhtL / Lhold / Ltap / Lmove / Lactivate /
	// Ldeactivate / Ldisable: target layer name(s), by name.
	Layer  string `yaml:"layer,omitempty"`
	Layer2 string `yaml:"layer2,omitempty"`
}
