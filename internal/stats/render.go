package stats

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/verte-zerg/ghostype/internal/model"
)

const curveLabelWidth = len("Accuracy ")

// RenderSummary prints a summary for sessions.
func RenderSummary(w io.Writer, report Report) error {
	sessions := report.Sessions
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalWPM, totalAcc, bestWPM float64
	var practiced int64
	for _, s := range sessions {
		totalWPM += s.WPM
		totalAcc += s.Accuracy
		bestWPM = max(bestWPM, s.WPM)
		practiced += s.Duration.Milliseconds()
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Avg WPM: %.2f", totalWPM/count),
		fmt.Sprintf("Best WPM: %.2f", bestWPM),
		fmt.Sprintf("Avg Accuracy: %.2f%%", totalAcc/count),
		fmt.Sprintf("Time practiced: %s", formatDurationMs(practiced)),
	}
	if report.Races > 0 {
		lines = append(lines, fmt.Sprintf("Races won: %d/%d", report.RaceWins, report.Races))
	}
	lines = append(lines, "")
	return writeLines(w, lines)
}

// RenderCurves prints WPM and accuracy sparklines smoothed over window sessions.
func RenderCurves(w io.Writer, sessions []model.SessionRecord, window, totalWidth int) error {
	if len(sessions) < 2 {
		return nil
	}
	wpms := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i] = s.WPM
		accs[i] = s.Accuracy
	}
	width := max(totalWidth-curveLabelWidth, 10)
	wpms = Downsample(MovingAverage(wpms, window), width)
	accs = Downsample(MovingAverage(accs, window), width)
	return writeLines(w, []string{
		"Learning Curves",
		fmt.Sprintf("%-*s%s", curveLabelWidth, "WPM", Sparkline(wpms)),
		fmt.Sprintf("%-*s%s", curveLabelWidth, "Accuracy", Sparkline(accs)),
		"",
	})
}

// FileRow is one line of the files listing.
type FileRow struct {
	Path     string
	Stats    model.FileStats
	HasStats bool
	Ghost    *model.GhostSummary
}

// RenderFileTable prints practice status per file, paths relative to root.
func RenderFileTable(w io.Writer, root string, rows []FileRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No files found.")
		return err
	}
	headers := []string{"File", "Best WPM", "Last WPM", "Runs", "Done", "Ghost WPM"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		name := r.Path
		if rel, err := filepath.Rel(root, r.Path); err == nil {
			name = rel
		}
		cells := []string{name, "-", "-", "0", "", "-"}
		if r.HasStats {
			cells[1] = fmt.Sprintf("%.1f", r.Stats.BestWPM)
			cells[2] = fmt.Sprintf("%.1f", r.Stats.LastWPM)
			cells[3] = fmt.Sprintf("%d", r.Stats.TimesPracticed)
			if r.Stats.Completed {
				cells[4] = "yes"
			}
		}
		if r.Ghost != nil {
			cells[5] = fmt.Sprintf("%.1f", r.Ghost.WPM)
		}
		tableRows = append(tableRows, cells)
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 5: true}
	return writeLines(w, formatTable(headers, tableRows, rightAlign))
}

// RenderGhost prints a ghost summary and its per-second WPM curve.
func RenderGhost(w io.Writer, filePath string, g model.GhostRecording, totalWidth int) error {
	mode := "unknown"
	if g.InstantDeathMode != nil {
		mode = "off"
		if *g.InstantDeathMode {
			mode = "on"
		}
	}
	lines := []string{
		fmt.Sprintf("Ghost for %s", filePath),
		fmt.Sprintf("WPM: %.1f", g.WPM),
		fmt.Sprintf("Accuracy: %.1f%%", g.AccuracyPct),
		fmt.Sprintf("Keystrokes: %d", len(g.Keystrokes)),
		fmt.Sprintf("Duration: %s", formatDurationMs(g.LastTimestamp())),
		fmt.Sprintf("Instant death: %s", mode),
	}
	if !g.RecordedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Recorded: %s", g.RecordedAt.Local().Format("2006-01-02 15:04")))
	}
	if len(g.WPMHistory) > 1 {
		values := make([]float64, len(g.WPMHistory))
		for i, p := range g.WPMHistory {
			values[i] = p.Value
		}
		width := max(totalWidth-curveLabelWidth, 10)
		lines = append(lines, fmt.Sprintf("%-*s%s", curveLabelWidth, "WPM", Sparkline(Downsample(values, width))))
	}
	return writeLines(w, lines)
}

func formatDurationMs(ms int64) string {
	secs := ms / 1000
	if secs >= 3600 {
		return fmt.Sprintf("%dh%02dm%02ds", secs/3600, (secs%3600)/60, secs%60)
	}
	return fmt.Sprintf("%dm%02ds", secs/60, secs%60)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
