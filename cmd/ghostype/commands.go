package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/ghostype/internal/ghost"
	"github.com/verte-zerg/ghostype/internal/model"
	"github.com/verte-zerg/ghostype/internal/stats"
)

var (
	statsFile        string
	statsLang        string
	statsSince       string
	statsLast        int
	statsCurveWindow int

	filesFilter string
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice and race stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsFile, "file", "", "file filter")
	cmd.Flags().StringVar(&statsLang, "lang", "", "language filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	filter := model.HistoryFilter{
		Language: statsLang,
		Last:     statsLast,
	}
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if statsFile != "" {
		abs, err := filepath.Abs(statsFile)
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		filter.FilePath = abs
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}

	env, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := stats.BuildReport(cmd.Context(), env.store, filter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCurves(out, report.Sessions, statsCurveWindow, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files <dir>",
		Short: "List practice files with best WPM and ghost",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilesCmd,
	}
	cmd.Flags().StringVar(&filesFilter, "filter", "", "fuzzy filter on relative paths")
	return cmd
}

func runFilesCmd(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	paths, err := findPracticeFiles(root)
	if err != nil {
		return err
	}
	paths = filterPaths(root, paths, filesFilter)

	env, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	rows := make([]stats.FileRow, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			row := stats.FileRow{Path: path}
			fileStats, ok, err := env.store.GetFileStats(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to load stats for %s: %w", path, err)
			}
			row.Stats, row.HasStats = fileStats, ok
			summary, err := env.ghosts.Stats(path)
			switch {
			case err == nil:
				row.Ghost = &summary
			case !errors.Is(err, ghost.ErrNotFound):
				env.log.Warn("failed to read ghost", zap.String("file", path), zap.Error(err))
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := stats.RenderFileTable(cmd.OutOrStdout(), root, rows); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// findPracticeFiles walks root for files with a known language, skipping hidden directories.
func findPracticeFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if model.IsPracticeFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// filterPaths keeps paths whose root-relative form fuzzily matches query, best match first.
func filterPaths(root string, paths []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return paths
	}
	rel := make([]string, len(paths))
	for i, p := range paths {
		rel[i] = p
		if r, err := filepath.Rel(root, p); err == nil {
			rel[i] = r
		}
	}
	matches := fuzzy.Find(query, rel)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, paths[m.Index])
	}
	return out
}

func newGhostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ghost",
		Short: "Inspect or delete saved ghosts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <file>",
		Short: "Show the saved ghost for a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGhostShowCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <file>",
		Short: "Delete the saved ghost for a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGhostDeleteCmd,
	})
	return cmd
}

func runGhostShowCmd(cmd *cobra.Command, args []string) error {
	filePath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	env, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	rec, err := env.ghosts.Load(filePath)
	if errors.Is(err, ghost.ErrNotFound) {
		logErrf("No ghost for %s yet. Finish the file once to record one.\n", filePath)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to load ghost: %w", err)
	}
	if err := stats.RenderGhost(cmd.OutOrStdout(), filePath, rec, stats.TerminalWidth()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runGhostDeleteCmd(cmd *cobra.Command, args []string) error {
	filePath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	env, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.Close()

	deleted, err := env.ghosts.Delete(filePath)
	if err != nil {
		return fmt.Errorf("failed to delete ghost: %w", err)
	}
	if !deleted {
		logErrf("No ghost for %s\n", filePath)
		return nil
	}
	logErrln("Deleted ghost for", filePath)
	return nil
}
