// Package race replays a recorded ghost against a live typing session.
package race

import (
	"context"
	"errors"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/ghostype/internal/engine"
	"github.com/verte-zerg/ghostype/internal/model"
	"github.com/verte-zerg/ghostype/internal/position"
)

// ErrEmptyRecording is returned when a race is requested with nothing to replay.
var ErrEmptyRecording = errors.New("ghost recording has no keystrokes")

// Deps are the collaborators of a Controller.
type Deps struct {
	Live      *engine.Engine
	Projector Projector
	Scheduler Scheduler
	Settings  Settings
	Prefs     Preferences
	Persister Persister
	Listener  Listener
	Clock     func() time.Time
	Logger    *zap.Logger

	FilePath string
	Language string
	// ApplyGhostMode switches instant death to the recording's value for the race.
	ApplyGhostMode bool
}

// Finish is the live session state when the user reaches the end of the file.
type Finish struct {
	Completed  int
	Total      int
	Correct    int
	Incorrect  int
	Elapsed    time.Duration
	Keystrokes []model.RecordedKeystroke
}

// Result is the outcome of a race attempt.
type Result struct {
	AttemptID    string
	Winner       Winner
	UserElapsed  time.Duration
	GhostElapsed time.Duration
	WPM          float64
	Accuracy     float64
	Completed    bool
	NewBest      bool
	SaveErr      error
}

// Controller is the race state machine. It is not safe for concurrent use; every method
// must be called from the event loop that also delivers scheduler callbacks.
type Controller struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time

	state     State
	attemptID string
	rec       model.GhostRecording
	ghost     *engine.Engine
	next      int

	ghostDisplay  int
	ghostDone     bool
	ghostElapsed  time.Duration
	ghostResolved bool

	startedAt time.Time
	paused    bool
	pausedAt  time.Time

	savedInstantDeath bool
}

// New creates an idle controller.
func New(deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Listener == nil {
		deps.Listener = NopListener{}
	}
	if deps.Prefs == nil {
		deps.Prefs = &memoryPrefs{}
	}
	return &Controller{deps: deps, log: deps.Logger, now: deps.Clock}
}

// State returns the current race state.
func (c *Controller) State() State {
	return c.state
}

// Outstanding reports whether a race is pending or running.
func (c *Controller) Outstanding() bool {
	return c.state.Outstanding()
}

// IsPaused reports whether playback is paused.
func (c *Controller) IsPaused() bool {
	return c.paused
}

// AttemptID identifies the current attempt, empty when idle.
func (c *Controller) AttemptID() string {
	return c.attemptID
}

// Recording returns the ghost being replayed.
func (c *Controller) Recording() model.GhostRecording {
	return c.rec
}

// Ghost returns the ghost engine, nil when no attempt exists.
func (c *Controller) Ghost() *engine.Engine {
	return c.ghost
}

// GhostDisplay is the display position the ghost has reached.
func (c *Controller) GhostDisplay() int {
	return c.ghostDisplay
}

// GhostDone reports whether playback reached the end of the recording.
func (c *Controller) GhostDone() bool {
	return c.ghostDone
}

// PlaybackIndex is the index of the next recorded keystroke to replay.
func (c *Controller) PlaybackIndex() int {
	return c.next
}

// Start begins a race against rec. The live session is reset and the race waits for
// the user's first qualifying keystroke.
func (c *Controller) Start(ctx context.Context, rec model.GhostRecording) error {
	if len(rec.Keystrokes) == 0 {
		return ErrEmptyRecording
	}
	if c.state.Outstanding() {
		c.Cancel(ctx)
	}
	c.deps.Scheduler.Stop()

	live := c.deps.Live
	live.Reset()
	opts := live.Options()
	opts.AllowContinueOnMistake = true
	opts.PauseDelay = 0
	opts.Clock = c.now
	c.ghost = engine.New(live.Content(), opts)

	c.rec = rec
	c.attemptID = uuid.NewString()
	c.next = 0
	c.ghostDone = false
	c.ghostResolved = false
	c.ghostElapsed = 0
	c.startedAt = time.Time{}
	c.paused = false
	c.pausedAt = time.Time{}

	c.savedInstantDeath = c.deps.Prefs.InstantDeath()
	c.backupPreference(ctx)
	if c.deps.ApplyGhostMode && rec.InstantDeathMode != nil {
		c.deps.Prefs.SetInstantDeath(*rec.InstantDeathMode)
	}

	c.ghostDisplay = c.deps.Projector.ToDisplay(0)
	c.setState(PendingStart)
	c.deps.Listener.GhostProgressed(c.ghostDisplay)
	c.log.Info("race started",
		zap.String("attempt", c.attemptID),
		zap.String("file", c.deps.FilePath),
		zap.Int("keystrokes", len(rec.Keystrokes)),
		zap.Float64("ghost_wpm", rec.WPM))
	return nil
}

// Qualifies reports whether a key may start a pending race.
func (c *Controller) Qualifies(key model.KeyToken) bool {
	switch key.Kind {
	case model.KeyChar:
		return unicode.IsPrint(key.Rune)
	case model.KeySpace, model.KeyTab, model.KeyNewline, model.KeyBackspace, model.KeyCtrlBackspace:
		return true
	default:
		return false
	}
}

// OnFirstQualifyingKeystroke starts the race clock and the ghost.
func (c *Controller) OnFirstQualifyingKeystroke() {
	if c.state != PendingStart {
		return
	}
	c.startedAt = c.now()
	c.setState(Racing)
	c.deps.Scheduler.Schedule(0)
}

// AdvancePlayback replays the next ghost keystroke and schedules the one after it.
func (c *Controller) AdvancePlayback() {
	if c.state != Racing || c.paused || c.ghostDone || c.ghost == nil {
		return
	}
	keys := c.rec.Keystrokes
	if c.next >= len(keys) {
		c.finishGhostPlayback()
		return
	}

	current := keys[c.next]
	c.apply(current.Key)
	c.next++
	c.ghostDisplay = c.deps.Projector.ToDisplay(c.ghost.Cursor())
	c.deps.Listener.GhostProgressed(c.ghostDisplay)

	if c.next >= len(keys) {
		c.finishGhostPlayback()
		return
	}
	delay := time.Duration(keys[c.next].TimestampMs-current.TimestampMs) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	c.deps.Scheduler.Schedule(delay)
}

func (c *Controller) apply(key model.KeyToken) {
	switch key.Kind {
	case model.KeyBackspace:
		c.ghost.ProcessBackspace()
	case model.KeyCtrlBackspace:
		c.ghost.ProcessCtrlBackspace()
	case model.KeyTab:
		for i := 0; i < position.TabWidth; i++ {
			c.ghost.ProcessKeystroke(' ')
		}
	default:
		if r, ok := key.Typed(); ok {
			c.ghost.ProcessKeystroke(r)
		}
	}
}

func (c *Controller) finishGhostPlayback() {
	c.deps.Scheduler.Stop()
	c.ghostDone = true
	elapsed := c.resolveGhostElapsed()
	c.log.Debug("ghost finished", zap.String("attempt", c.attemptID), zap.Duration("elapsed", elapsed))
	c.deps.Listener.GhostFinished(elapsed)
}

func (c *Controller) resolveGhostElapsed() time.Duration {
	if c.ghostResolved {
		return c.ghostElapsed
	}
	switch {
	case c.rec.FinalStats != nil && c.rec.FinalStats.Time > 0:
		c.ghostElapsed = time.Duration(c.rec.FinalStats.Time * float64(time.Second))
	default:
		c.ghostElapsed = time.Duration(c.rec.LastTimestamp()) * time.Millisecond
	}
	c.ghostResolved = true
	return c.ghostElapsed
}

// OnUserMistake applies instant death to the live session only. It reports whether the
// live cursor was reset.
func (c *Controller) OnUserMistake(instantDeath bool) bool {
	if !instantDeath || !c.state.Outstanding() {
		return false
	}
	c.deps.Live.ResetCursor()
	c.log.Debug("instant death reset", zap.String("attempt", c.attemptID))
	return true
}

// Pause stops ghost playback.
func (c *Controller) Pause() {
	if c.state != Racing || c.paused {
		return
	}
	c.paused = true
	c.pausedAt = c.now()
	c.deps.Scheduler.Stop()
	c.setState(c.state)
}

// Resume continues playback. The next ghost keystroke fires immediately; the unexpired
// part of the delay that was pending at pause time is dropped.
func (c *Controller) Resume() {
	if c.state != Racing || !c.paused {
		return
	}
	if !c.startedAt.IsZero() {
		c.startedAt = c.startedAt.Add(c.now().Sub(c.pausedAt))
	}
	c.paused = false
	c.pausedAt = time.Time{}
	c.setState(c.state)
	c.AdvancePlayback()
}

// OnUserFinished ends the race. The boolean is false when no race was outstanding.
// The attempt is persisted only when the whole file was typed.
func (c *Controller) OnUserFinished(ctx context.Context, fin Finish) (Result, bool) {
	if !c.state.Outstanding() {
		return Result{}, false
	}
	c.deps.Scheduler.Stop()

	userElapsed := fin.Elapsed
	if !c.startedAt.IsZero() {
		end := c.now()
		if c.paused {
			end = c.pausedAt
		}
		userElapsed = end.Sub(c.startedAt)
	}
	ghostElapsed := c.resolveGhostElapsed()

	res := Result{
		AttemptID:    c.attemptID,
		Winner:       decideWinner(userElapsed, ghostElapsed),
		UserElapsed:  userElapsed,
		GhostElapsed: ghostElapsed,
		WPM:          computeWPM(fin.Completed, userElapsed),
		Accuracy:     accuracyPct(fin.Correct, fin.Incorrect),
		Completed:    fin.Completed >= fin.Total,
	}
	instantDeath := c.deps.Prefs.InstantDeath()

	c.paused = false
	c.restorePreference(ctx)
	c.setState(Finished)

	if res.Completed && c.deps.Persister != nil {
		res.NewBest, res.SaveErr = SaveAttempt(ctx, c.deps.Persister, Attempt{
			ID:           res.AttemptID,
			FilePath:     c.deps.FilePath,
			Language:     c.deps.Language,
			WPM:          res.WPM,
			Accuracy:     res.Accuracy,
			Total:        fin.Total,
			Correct:      fin.Correct,
			Incorrect:    fin.Incorrect,
			Elapsed:      userElapsed,
			Winner:       res.Winner,
			Keystrokes:   fin.Keystrokes,
			InstantDeath: instantDeath,
			RecordedAt:   c.now(),
		})
		if res.SaveErr != nil {
			c.log.Error("failed to persist race", zap.String("attempt", res.AttemptID), zap.Error(res.SaveErr))
		}
	}

	c.log.Info("race finished",
		zap.String("attempt", res.AttemptID),
		zap.String("winner", string(res.Winner)),
		zap.Duration("user", userElapsed),
		zap.Duration("ghost", ghostElapsed),
		zap.Bool("completed", res.Completed),
		zap.Bool("new_best", res.NewBest))
	c.deps.Listener.RaceFinished(res)
	return res, true
}

// Cancel abandons an outstanding race without writing any stats.
func (c *Controller) Cancel(ctx context.Context) {
	if !c.state.Outstanding() {
		return
	}
	c.deps.Scheduler.Stop()
	c.ghost = nil
	c.paused = false
	c.ghostDisplay = 0
	c.restorePreference(ctx)
	c.log.Info("race cancelled", zap.String("attempt", c.attemptID))
	c.setState(Cancelled)
}

// Reset returns the controller to Idle, cancelling an outstanding race first.
func (c *Controller) Reset(ctx context.Context) {
	c.Cancel(ctx)
	if c.state == Idle {
		return
	}
	c.ghost = nil
	c.rec = model.GhostRecording{}
	c.attemptID = ""
	c.next = 0
	c.ghostDisplay = 0
	c.ghostDone = false
	c.ghostResolved = false
	c.setState(Idle)
}

func (c *Controller) setState(s State) {
	c.state = s
	c.deps.Listener.RaceStateChanged(s)
}

func (c *Controller) backupPreference(ctx context.Context) {
	if c.deps.Settings == nil {
		return
	}
	value, ok, err := c.deps.Settings.GetSetting(ctx, InstantDeathKey)
	if err != nil {
		c.log.Warn("failed to read instant death preference", zap.Error(err))
		return
	}
	if !ok {
		value = unsetBackup
	}
	if err := c.deps.Settings.SetSetting(ctx, RecoveryKey, value); err != nil {
		c.log.Warn("failed to back up instant death preference", zap.Error(err))
	}
}

func (c *Controller) restorePreference(ctx context.Context) {
	c.deps.Prefs.SetInstantDeath(c.savedInstantDeath)
	if c.deps.Settings == nil {
		return
	}
	if err := c.deps.Settings.DeleteSetting(ctx, RecoveryKey); err != nil {
		c.log.Warn("failed to clear instant death backup", zap.Error(err))
	}
}

func decideWinner(user, ghost time.Duration) Winner {
	if user <= ghost {
		return WinnerUser
	}
	return WinnerGhost
}

func computeWPM(chars int, elapsed time.Duration) float64 {
	minutes := elapsed.Minutes()
	if minutes <= 0 {
		return 0
	}
	return (float64(chars) / 5.0) / minutes
}

func accuracyPct(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 100
	}
	return float64(correct) / float64(total) * 100
}
