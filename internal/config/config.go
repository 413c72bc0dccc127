package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mlinton/XVA1-Soft-Synth/internal/serialport"
)

const appName = "xva1"

// Config holds the editor's connection settings.
type Config struct {
	Port          string `json:"port"`     // empty: first FTDI port
	BitRate       int    `json:"bit_rate"` // one of serialport.BitRates
	Slot          int    `json:"slot"`     // last program slot used
	SyncTimeoutMS int    `json:"sync_timeout_ms"`
	SettleMS      int    `json:"settle_ms"`
	PatchDir      string `json:"patch_dir,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		BitRate:       serialport.DefaultBitRate,
		SyncTimeoutMS: 3000,
		SettleMS:      100,
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, appName), nil
}

// Path returns the full path to the config file
func Path() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, returning defaults if not found.
// Missing or zero fields are filled from Default.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	def := Default()
	if cfg.BitRate == 0 {
		cfg.BitRate = def.BitRate
	}
	if cfg.SyncTimeoutMS <= 0 {
		cfg.SyncTimeoutMS = def.SyncTimeoutMS
	}
	if cfg.SettleMS <= 0 {
		cfg.SettleMS = def.SettleMS
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a user may have edited by hand.
func (c *Config) Validate() error {
	if !serialport.ValidBitRate(c.BitRate) {
		return fmt.Errorf("unsupported bit rate %d (want one of %v)", c.BitRate, serialport.BitRates)
	}
	if c.Slot < 0 || c.Slot > 127 {
		return fmt.Errorf("slot %d out of range 0-127", c.Slot)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
