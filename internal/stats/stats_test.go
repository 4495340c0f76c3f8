package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/ghostype/internal/model"
	"github.com/verte-zerg/ghostype/internal/store"
)

func TestSessionMetrics(t *testing.T) {
	wpm, cpm, acc := SessionMetrics(50, 10, 30*time.Second)
	if wpm != 20 {
		t.Fatalf("expected wpm 20, got %f", wpm)
	}
	if cpm != 100 {
		t.Fatalf("expected cpm 100, got %f", cpm)
	}
	if acc < 0.833 || acc > 0.834 {
		t.Fatalf("unexpected accuracy %f", acc)
	}
	if wpm, _, _ := SessionMetrics(10, 0, 0); wpm != 0 {
		t.Fatalf("expected zero wpm for zero duration")
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %f, got %f", i, want[i], got[i])
		}
	}
}

func TestSparklineAndDownsample(t *testing.T) {
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	down := Downsample([]float64{1, 3, 5, 7}, 2)
	if len(down) != 2 || down[0] != 2 || down[1] != 6 {
		t.Fatalf("unexpected downsample %v", down)
	}
	if got := Downsample([]float64{1}, 5); len(got) != 1 {
		t.Fatalf("expected short series unchanged, got %v", got)
	}
}

func TestBuildReportAndRender(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "ghostype.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, winner := range []string{"", "user", "ghost"} {
		_, err := st.RecordSession(ctx, model.SessionRecord{
			FilePath:   "a.go",
			WPM:        float64(40 + i*10),
			Accuracy:   95,
			Duration:   time.Minute,
			Completed:  true,
			Winner:     winner,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("record session: %v", err)
		}
	}

	report, err := BuildReport(ctx, st, model.HistoryFilter{FilePath: "a.go"})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 3 || report.Races != 2 || report.RaceWins != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	var buf bytes.Buffer
	if err := RenderSummary(&buf, report); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 3", "Best WPM: 60.00", "Avg WPM: 50.00", "Races won: 1/2", "Time practiced: 3m00s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderCurves(&buf, report.Sessions, 1, 40); err != nil {
		t.Fatalf("render curves: %v", err)
	}
	if !strings.Contains(buf.String(), "WPM"+strings.Repeat(" ", 6)) {
		t.Fatalf("expected wpm curve, got %q", buf.String())
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Report{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No sessions found.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderFileTable(t *testing.T) {
	var buf bytes.Buffer
	rows := []FileRow{
		{Path: "/src/a.go", HasStats: true, Stats: model.FileStats{BestWPM: 55.2, LastWPM: 40, TimesPracticed: 3, Completed: true}, Ghost: &model.GhostSummary{WPM: 55.3}},
		{Path: "/src/pkg/b.go"},
	}
	if err := RenderFileTable(&buf, "/src", rows); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "a.go") || !strings.Contains(lines[1], "55.2") || !strings.Contains(lines[1], "yes") {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], filepath.Join("pkg", "b.go")) {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestRenderGhost(t *testing.T) {
	death := true
	g := model.GhostRecording{
		WPM:              72.4,
		AccuracyPct:      98.1,
		Keystrokes:       []model.RecordedKeystroke{{TimestampMs: 0}, {TimestampMs: 61500}},
		InstantDeathMode: &death,
		WPMHistory:       []model.SeriesPoint{{Second: 1, Value: 60}, {Second: 2, Value: 80}},
	}
	var buf bytes.Buffer
	if err := RenderGhost(&buf, "a.go", g, 40); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"WPM: 72.4", "Keystrokes: 2", "Duration: 1m01s", "Instant death: on"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
