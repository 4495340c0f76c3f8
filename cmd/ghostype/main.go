// Package main provides the CLI entrypoint for ghostype.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/ghostype/internal/config"
	"github.com/verte-zerg/ghostype/internal/ghost"
	"github.com/verte-zerg/ghostype/internal/logging"
	"github.com/verte-zerg/ghostype/internal/model"
	"github.com/verte-zerg/ghostype/internal/race"
	"github.com/verte-zerg/ghostype/internal/store"
	"github.com/verte-zerg/ghostype/internal/tui"
)

const (
	defaultPauseDelay  = 7 * time.Second
	defaultTabStep     = 4
	defaultSpaceChar   = "␣"
	defaultEnterChar   = "⏎"
	defaultCurveWindow = 10
)

var (
	practiceRace           bool
	practiceInstantDeath   bool
	practiceAllowContinue  bool
	practiceAutoIndent     bool
	practicePauseDelay     string
	practiceTabStep        int
	practiceShowTyped      bool
	practiceApplyGhostMode bool
	practiceSpaceChar      string
	practiceEnterChar      string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ghostype <file>",
		Short:         "Type source files and race your best-ever ghost",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.ExactArgs(1),
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().BoolVar(&practiceRace, "race", false, "start a race against the saved ghost")
	rootCmd.Flags().BoolVar(&practiceInstantDeath, "instant-death", false, "a mistake sends the cursor back to the top")
	rootCmd.Flags().BoolVar(&practiceAllowContinue, "allow-continue", true, "advance past mistakes")
	rootCmd.Flags().BoolVar(&practiceAutoIndent, "auto-indent", false, "skip leading indentation after enter")
	rootCmd.Flags().StringVar(&practicePauseDelay, "pause-delay", defaultPauseDelay.String(), "idle time before auto-pause (0 disables)")
	rootCmd.Flags().IntVar(&practiceTabStep, "tab-step", defaultTabStep, "spaces typed by the tab key")
	rootCmd.Flags().BoolVar(&practiceShowTyped, "show-typed", true, "show the typed rune over mistakes")
	rootCmd.Flags().BoolVar(&practiceApplyGhostMode, "apply-ghost-mode", false, "race with the instant-death mode the ghost was recorded in")
	rootCmd.Flags().StringVar(&practiceSpaceChar, "space-char", defaultSpaceChar, "glyph shown for spaces")
	rootCmd.Flags().StringVar(&practiceEnterChar, "enter-char", defaultEnterChar, "glyph shown at line ends")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newGhostCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, args []string) error {
	filePath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	env, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	fileCfg := env.cfg
	applyBoolConfig(cmd, "allow-continue", &practiceAllowContinue, fileCfg.Practice.AllowContinue)
	applyBoolConfig(cmd, "auto-indent", &practiceAutoIndent, fileCfg.Practice.AutoIndent)
	applyStringConfig(cmd, "pause-delay", &practicePauseDelay, fileCfg.Practice.PauseDelay)
	applyIntConfig(cmd, "tab-step", &practiceTabStep, fileCfg.Practice.TabStep)
	applyBoolConfig(cmd, "show-typed", &practiceShowTyped, fileCfg.Practice.ShowTyped)
	applyBoolConfig(cmd, "apply-ghost-mode", &practiceApplyGhostMode, fileCfg.Practice.ApplyGhostMode)
	applyStringConfig(cmd, "space-char", &practiceSpaceChar, fileCfg.Display.SpaceChar)
	applyStringConfig(cmd, "enter-char", &practiceEnterChar, fileCfg.Display.EnterChar)

	pauseDelay, err := time.ParseDuration(practicePauseDelay)
	if err != nil {
		return fmt.Errorf("invalid --pause-delay value: %w", err)
	}
	settings := model.Settings{
		AllowContinue:  practiceAllowContinue,
		AutoIndent:     practiceAutoIndent,
		ShowTyped:      practiceShowTyped,
		ApplyGhostMode: practiceApplyGhostMode,
		PauseDelay:     pauseDelay,
		TabStep:        practiceTabStep,
		SpaceChar:      practiceSpaceChar,
		EnterChar:      practiceEnterChar,
	}
	if err := validateSettings(settings); err != nil {
		return err
	}
	settings.InstantDeath, err = resolveInstantDeath(cmd.Context(), cmd, env.store, fileCfg.Practice.InstantDeath)
	if err != nil {
		return err
	}

	env.log.Info("practice started",
		zap.String("file", filePath),
		zap.Bool("race", practiceRace),
		zap.Bool("instant_death", settings.InstantDeath),
	)
	m := tui.NewModel(tui.Options{
		FilePath:  filePath,
		Content:   string(content),
		Settings:  settings,
		Store:     env.store,
		Ghosts:    env.ghosts,
		Logger:    env.log,
		StartRace: practiceRace,
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// resolveInstantDeath applies flag > settings table > TOML > default.
func resolveInstantDeath(ctx context.Context, cmd *cobra.Command, st race.Settings, fileValue *bool) (bool, error) {
	if cmd.Flags().Changed("instant-death") {
		return practiceInstantDeath, nil
	}
	value, ok, err := st.GetSetting(ctx, race.InstantDeathKey)
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}
	if ok {
		if parsed, perr := strconv.ParseBool(value); perr == nil {
			return parsed, nil
		}
	}
	if fileValue != nil {
		return *fileValue, nil
	}
	return practiceInstantDeath, nil
}

func validateSettings(s model.Settings) error {
	if s.TabStep <= 0 {
		return fmt.Errorf("--tab-step must be > 0")
	}
	if s.PauseDelay < 0 {
		return fmt.Errorf("--pause-delay must be >= 0")
	}
	if s.SpaceChar == "" {
		return fmt.Errorf("--space-char must not be empty")
	}
	return nil
}

// appEnv holds what every command that touches saved data needs.
type appEnv struct {
	cfg    config.FileConfig
	log    *zap.Logger
	closer io.Closer
	store  *store.Store
	ghosts *ghost.Store
}

// openEnv loads the config, opens the log, the history database and the ghost store,
// and restores any preference left behind by a race that never finished.
func openEnv(ctx context.Context) (*appEnv, error) {
	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, closer := newLogger(cfg.Log)
	env := &appEnv{cfg: cfg, log: log, closer: closer}

	env.store, err = store.Open(config.DefaultDBPath())
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	restored, err := race.RecoverPreference(ctx, env.store)
	if err != nil {
		log.Warn("failed to recover race preference", zap.Error(err))
	} else if restored {
		log.Info("restored instant death preference from an interrupted race")
	}

	env.ghosts, err = ghost.NewStore(config.DefaultGhostDir(), log.Named("ghost"))
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to open ghost store: %w", err)
	}
	return env, nil
}

func (e *appEnv) Close() {
	if e.store != nil {
		if cerr := e.store.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	_ = e.log.Sync()
	if cerr := e.closer.Close(); cerr != nil {
		logErrf("failed to close log: %v\n", cerr)
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, io.Closer) {
	logCfg := logging.Config{
		Level:      logging.DefaultLevel,
		File:       config.DefaultLogPath(),
		MaxSizeMB:  logging.DefaultMaxSizeMB,
		MaxBackups: logging.DefaultMaxBackups,
		MaxAgeDays: logging.DefaultMaxAgeDays,
	}
	if cfg.Level != nil {
		logCfg.Level = *cfg.Level
	}
	if cfg.File != nil {
		logCfg.File = *cfg.File
	}
	if cfg.MaxSizeMB != nil {
		logCfg.MaxSizeMB = *cfg.MaxSizeMB
	}
	if cfg.MaxBackups != nil {
		logCfg.MaxBackups = *cfg.MaxBackups
	}
	if cfg.MaxAgeDays != nil {
		logCfg.MaxAgeDays = *cfg.MaxAgeDays
	}
	if logCfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(logCfg.File), 0o755); err != nil {
			logErrf("failed to create log directory: %v\n", err)
			logCfg.File = ""
		}
	}
	return logging.New(logCfg)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# ghostype configuration
# Uncomment a value to enable it. CLI flags override config values.
# The in-app instant death toggle (ctrl+d) is remembered and overrides instant-death below.

[practice]
# instant-death = false     # A mistake sends the cursor back to the top
# allow-continue = true     # Advance past mistakes
# auto-indent = false       # Skip leading indentation after enter
# pause-delay = %q        # Idle time before auto-pause ("0s" disables)
# tab-step = %d              # Spaces typed by the tab key
# show-typed = true         # Show the typed rune over mistakes
# apply-ghost-mode = false  # Race with the ghost's instant-death mode

[display]
# space-char = %q          # Glyph shown for spaces
# enter-char = %q          # Glyph shown at line ends

[log]
# level = %q            # debug, info, warn, error
# file = %q
# max-size = %d             # Megabytes before rotation
# max-backups = %d
# max-age = %d              # Days
`,
		defaultPauseDelay.String(),
		defaultTabStep,
		defaultSpaceChar,
		defaultEnterChar,
		logging.DefaultLevel,
		config.DefaultLogPath(),
		logging.DefaultMaxSizeMB,
		logging.DefaultMaxBackups,
		logging.DefaultMaxAgeDays,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
