package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/ghostype/internal/config"
	"github.com/verte-zerg/ghostype/internal/model"
	"github.com/verte-zerg/ghostype/internal/race"
)

type mapSettings map[string]string

func (m mapSettings) GetSetting(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapSettings) SetSetting(_ context.Context, key, value string) error {
	m[key] = value
	return nil
}

func (m mapSettings) DeleteSetting(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestResolveInstantDeathPrecedence(t *testing.T) {
	ctx := context.Background()
	on := true
	off := false

	cmd := newRootCmd()
	got, err := resolveInstantDeath(ctx, cmd, mapSettings{}, nil)
	if err != nil || got {
		t.Fatalf("expected default false, got %v (%v)", got, err)
	}
	got, _ = resolveInstantDeath(ctx, cmd, mapSettings{}, &on)
	if !got {
		t.Fatalf("expected config value to apply")
	}
	got, _ = resolveInstantDeath(ctx, cmd, mapSettings{race.InstantDeathKey: "false"}, &on)
	if got {
		t.Fatalf("expected settings table to override config")
	}

	if err := cmd.Flags().Set("instant-death", "true"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	t.Cleanup(func() { practiceInstantDeath = false })
	got, _ = resolveInstantDeath(ctx, cmd, mapSettings{race.InstantDeathKey: "false"}, &off)
	if !got {
		t.Fatalf("expected flag to override settings table")
	}
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("expected commented template to load: %v", err)
	}
	if cfg.Practice.TabStep != nil {
		t.Fatalf("expected commented values to stay unset")
	}

	lines := strings.Split(defaultConfigTemplate(), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			lines[i] = strings.TrimPrefix(line, "# ")
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = config.LoadConfig(path)
	if err != nil {
		t.Fatalf("expected uncommented template to load: %v", err)
	}
	if cfg.Practice.TabStep == nil || *cfg.Practice.TabStep != defaultTabStep {
		t.Fatalf("expected tab-step %d, got %v", defaultTabStep, cfg.Practice.TabStep)
	}
	if cfg.Practice.PauseDelay == nil || *cfg.Practice.PauseDelay != "7s" {
		t.Fatalf("expected pause-delay 7s, got %v", cfg.Practice.PauseDelay)
	}
	if cfg.Display.SpaceChar == nil || *cfg.Display.SpaceChar != defaultSpaceChar {
		t.Fatalf("expected space-char %q", defaultSpaceChar)
	}
	if cfg.Log.MaxBackups == nil || *cfg.Log.MaxBackups != 3 {
		t.Fatalf("expected max-backups 3")
	}
}

func TestFindPracticeFilesSkipsHidden(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"main.go", "pkg/util.py", "notes.bin", ".git/config.go"} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	paths, err := findPracticeFiles(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{filepath.Join(root, "main.go"), filepath.Join(root, "pkg/util.py")}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}

func TestFilterPaths(t *testing.T) {
	root := "/src"
	paths := []string{"/src/cmd/main.go", "/src/internal/race/controller.go", "/src/README.md"}
	if got := filterPaths(root, paths, ""); len(got) != 3 {
		t.Fatalf("expected empty query to keep all, got %v", got)
	}
	got := filterPaths(root, paths, "racectl")
	if len(got) != 1 || got[0] != "/src/internal/race/controller.go" {
		t.Fatalf("expected controller.go, got %v", got)
	}
	if got := filterPaths(root, paths, "zzz"); len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestValidateSettings(t *testing.T) {
	valid := model.Settings{TabStep: 4, SpaceChar: defaultSpaceChar}
	if err := validateSettings(valid); err != nil {
		t.Fatalf("expected valid settings, got %v", err)
	}
	cases := map[string]model.Settings{
		"--tab-step":    {TabStep: 0, SpaceChar: defaultSpaceChar},
		"--space-char":  {TabStep: 4},
		"--pause-delay": {TabStep: 4, SpaceChar: defaultSpaceChar, PauseDelay: -time.Second},
	}
	for flag, s := range cases {
		if err := validateSettings(s); err == nil || !strings.Contains(err.Error(), flag) {
			t.Fatalf("expected %s error, got %v", flag, err)
		}
	}
}
