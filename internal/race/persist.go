package race

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/ghostype/internal/ghost"
	"github.com/verte-zerg/ghostype/internal/model"
	"github.com/verte-zerg/ghostype/internal/store"
)

// Attempt is a completed pass over a file, raced or not.
type Attempt struct {
	ID           string
	FilePath     string
	Language     string
	WPM          float64
	Accuracy     float64
	Total        int
	Correct      int
	Incorrect    int
	Elapsed      time.Duration
	Winner       Winner
	Keystrokes   []model.RecordedKeystroke
	InstantDeath bool
	RecordedAt   time.Time
}

// SaveAttempt records history and stores the keystrokes as the new ghost when they beat
// the current best. It reports whether a new ghost was saved. Both writes are attempted
// even if one fails.
func SaveAttempt(ctx context.Context, p Persister, a Attempt) (bool, error) {
	var errs []error
	_, err := p.RecordSession(ctx, model.SessionRecord{
		FilePath:   a.FilePath,
		Language:   a.Language,
		WPM:        a.WPM,
		Accuracy:   a.Accuracy,
		Total:      a.Total,
		Correct:    a.Correct,
		Incorrect:  a.Incorrect,
		Duration:   a.Elapsed,
		Completed:  true,
		RaceID:     a.ID,
		Winner:     string(a.Winner),
		RecordedAt: a.RecordedAt,
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to record session: %w", err))
	}

	newBest := false
	if len(a.Keystrokes) > 0 && p.ShouldSaveGhost(a.FilePath, a.WPM) {
		wpmHistory, errorHistory := ghost.BuildHistory(a.Keystrokes)
		instantDeath := a.InstantDeath
		rec := model.GhostRecording{
			Keystrokes:  a.Keystrokes,
			WPM:         a.WPM,
			AccuracyPct: a.Accuracy,
			RecordedAt:  a.RecordedAt,
			FinalStats: &model.FinalStats{
				Time:      a.Elapsed.Seconds(),
				Correct:   a.Correct,
				Incorrect: a.Incorrect,
			},
			InstantDeathMode: &instantDeath,
			WPMHistory:       wpmHistory,
			ErrorHistory:     errorHistory,
		}
		if err := p.SaveGhost(a.FilePath, rec); err != nil {
			errs = append(errs, fmt.Errorf("failed to save ghost: %w", err))
		} else {
			newBest = true
		}
	}
	return newBest, errors.Join(errs...)
}

// StorePersister persists attempts to the ghost directory and the SQLite history.
type StorePersister struct {
	Ghosts  *ghost.Store
	History *store.Store
}

func (p StorePersister) ShouldSaveGhost(filePath string, wpm float64) bool {
	return p.Ghosts.ShouldSave(filePath, wpm)
}

func (p StorePersister) SaveGhost(filePath string, rec model.GhostRecording) error {
	return p.Ghosts.Save(filePath, rec)
}

func (p StorePersister) RecordSession(ctx context.Context, rec model.SessionRecord) (int64, error) {
	return p.History.RecordSession(ctx, rec)
}
