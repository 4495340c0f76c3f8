// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Display  DisplayConfig  `toml:"display"`
	Log      LogConfig      `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	InstantDeath   *bool   `toml:"instant-death"`
	AllowContinue  *bool   `toml:"allow-continue"`
	AutoIndent     *bool   `toml:"auto-indent"`
	PauseDelay     *string `toml:"pause-delay"`
	TabStep        *int    `toml:"tab-step"`
	ShowTyped      *bool   `toml:"show-typed"`
	ApplyGhostMode *bool   `toml:"apply-ghost-mode"`
}

// DisplayConfig maps whitespace glyph settings.
type DisplayConfig struct {
	SpaceChar *string `toml:"space-char"`
	EnterChar *string `toml:"enter-char"`
}

// LogConfig maps log file settings.
type LogConfig struct {
	Level      *string `toml:"level"`
	File       *string `toml:"file"`
	MaxSizeMB  *int    `toml:"max-size"`
	MaxBackups *int    `toml:"max-backups"`
	MaxAgeDays *int    `toml:"max-age"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
