// Package config handles daemon configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon-level configuration: which layout file to load,
// how to find the HID device, and process-wide knobs like log level and
// the tap/hold threshold.
type Config struct {
	Layout          string `yaml:"layout"`
	LogLevel        string `yaml:"log_level"`
	HIDDevice       string `yaml:"hid_device"`
	HoldThresholdMs int    `yaml:"hold_threshold_ms"`
	ConfigDir       string `yaml:"-"`
}

// HoldThreshold returns the configured tap/hold boundary as a
// time.Duration, falling back to keymap.DefaultHoldThreshold's value
// (200ms) if unset or non-positive.
func (c *Config) HoldThreshold() time.Duration {
	if c.HoldThresholdMs <= 0 {
		return 200 * time.Millisecond
	}
	return time.Duration(c.HoldThresholdMs) * time.Millisecond
}

func DefaultConfig() *Config {
	return &Config{
		Layout:          "default",
		LogLevel:        "info",
		HIDDevice:       "auto",
		HoldThresholdMs: 200,
	}
}

// Load reads configuration from the specified path or default locations.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	searchPaths := []string{}

	if configPath != "" {
		searchPaths = append(searchPaths, configPath)
	}

	// User config directory (use SUDO_USER if running as root via sudo)
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		searchPaths = append(searchPaths, filepath.Join("/home", sudoUser, ".config", "gridmapper", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "gridmapper", "config.yaml"))
	}

	// Executable directory (for portable usage)
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		searchPaths = append(searchPaths, filepath.Join(exeDir, "configs", "config.yaml"))
	}

	// System config directory
	searchPaths = append(searchPaths, "/etc/gridmapper/config.yaml")

	var loadedPath string
	for _, path := range searchPaths {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
			loadedPath = path
			break
		}
	}

	if loadedPath != "" {
		cfg.ConfigDir = filepath.Dir(loadedPath)
	} else if exe, err := os.Executable(); err == nil {
		cfg.ConfigDir = filepath.Join(filepath.Dir(exe), "configs")
	} else if home, err := os.UserHomeDir(); err == nil {
		cfg.ConfigDir = filepath.Join(home, ".config", "gridmapper")
	} else {
		cfg.ConfigDir = "/etc/gridmapper"
	}

	return cfg, nil
}

// LayoutPath resolves a layout name to its file path under ConfigDir.
func (c *Config) LayoutPath(layoutName string) string {
	return filepath.Join(c.ConfigDir, "layouts", layoutName+".yaml")
}

// AvailableLayouts lists the layout names found under ConfigDir/layouts.
func (c *Config) AvailableLayouts() ([]string, error) {
	layoutDir := filepath.Join(c.ConfigDir, "layouts")
	entries, err := os.ReadDir(layoutDir)
	if err != nil {
		return nil, fmt.Errorf("reading layouts directory: %w", err)
	}

	var layouts []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".yaml" {
			name := entry.Name()
			layouts = append(layouts, name[:len(name)-5])
		}
	}

	return layouts, nil
}

// Save writes the configuration back to ConfigDir/config.yaml.
func (c *Config) Save() error {
	configPath := filepath.Join(c.ConfigDir, "config.yaml")

	if err := os.MkdirAll(c.ConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
