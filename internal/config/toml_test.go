package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Practice.InstantDeath != nil || cfg.Log.Level != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[practice]
instant-death = true
pause-delay = "5s"
tab-step = 2

[display]
space-char = "·"

[log]
level = "debug"
max-size = 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Practice.InstantDeath == nil || !*cfg.Practice.InstantDeath {
		t.Fatalf("expected instant-death true")
	}
	if cfg.Practice.PauseDelay == nil || *cfg.Practice.PauseDelay != "5s" {
		t.Fatalf("expected pause-delay 5s")
	}
	if cfg.Practice.TabStep == nil || *cfg.Practice.TabStep != 2 {
		t.Fatalf("expected tab-step 2")
	}
	if cfg.Display.SpaceChar == nil || *cfg.Display.SpaceChar != "·" {
		t.Fatalf("expected space-char")
	}
	if cfg.Display.EnterChar != nil {
		t.Fatalf("expected enter-char unset")
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("expected log level debug")
	}
	if cfg.Log.MaxSizeMB == nil || *cfg.Log.MaxSizeMB != 5 {
		t.Fatalf("expected max-size 5")
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[practice]\nlang = \"en\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "ghostype", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "ghostype", "ghostype.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultGhostDir(); got != filepath.Join("/data", "ghostype", "ghosts") {
		t.Fatalf("unexpected ghost dir %q", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/state", "ghostype", "ghostype.log") {
		t.Fatalf("unexpected log path %q", got)
	}
}
