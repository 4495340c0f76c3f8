package stats

import (
	"context"

	"github.com/verte-zerg/ghostype/internal/model"
)

// HistorySource lists practice history.
type HistorySource interface {
	ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.SessionRecord, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions []model.SessionRecord
	Races    int
	RaceWins int
}

// BuildReport loads history and tallies race outcomes.
func BuildReport(ctx context.Context, src HistorySource, filter model.HistoryFilter) (Report, error) {
	sessions, err := src.ListSessions(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	report := Report{Sessions: sessions}
	for _, s := range sessions {
		if s.Winner == "" {
			continue
		}
		report.Races++
		if s.Winner == "user" {
			report.RaceWins++
		}
	}
	return report, nil
}
