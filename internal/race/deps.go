package race

import (
	"context"
	"time"

	"github.com/verte-zerg/ghostype/internal/model"
)

// Scheduler arms the single one-shot playback callback. Schedule replaces any pending
// callback; Stop disarms it so a callback that was already in flight is dropped.
type Scheduler interface {
	Schedule(delay time.Duration)
	Stop()
}

// Settings is the durable key/value store used for the crash-recovery backup.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Preferences exposes the live, in-memory instant-death preference.
type Preferences interface {
	InstantDeath() bool
	SetInstantDeath(enabled bool)
}

// Persister stores completed attempts.
type Persister interface {
	ShouldSaveGhost(filePath string, wpm float64) bool
	SaveGhost(filePath string, rec model.GhostRecording) error
	RecordSession(ctx context.Context, rec model.SessionRecord) (int64, error)
}

// Projector converts engine positions to display positions.
type Projector interface {
	ToDisplay(enginePos int) int
}

// Listener receives controller notifications. All calls happen on the control thread.
type Listener interface {
	RaceStateChanged(state State)
	GhostProgressed(displayPos int)
	GhostFinished(elapsed time.Duration)
	RaceFinished(result Result)
}

// NopListener ignores every notification.
type NopListener struct{}

func (NopListener) RaceStateChanged(State)      {}
func (NopListener) GhostProgressed(int)         {}
func (NopListener) GhostFinished(time.Duration) {}
func (NopListener) RaceFinished(Result)         {}

type memoryPrefs struct {
	instantDeath bool
}

func (p *memoryPrefs) InstantDeath() bool         { return p.instantDeath }
func (p *memoryPrefs) SetInstantDeath(value bool) { p.instantDeath = value }
