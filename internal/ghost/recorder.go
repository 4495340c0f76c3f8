package ghost

import (
	"time"

	"github.com/verte-zerg/ghostype/internal/model"
)

// Recorder captures live keystrokes with timestamps relative to the first one.
// Time spent paused is excluded so a replay runs at the typed pace.
type Recorder struct {
	now         func() time.Time
	start       time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	keys        []model.RecordedKeystroke
}

// NewRecorder creates an empty recorder. A nil clock uses time.Now.
func NewRecorder(clock func() time.Time) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{now: clock}
}

// Record appends a keystroke. Recording while paused resumes first.
func (r *Recorder) Record(key model.KeyToken, correct bool) {
	now := r.now()
	if r.start.IsZero() {
		r.start = now
	}
	if !r.pausedAt.IsZero() {
		r.Resume()
	}
	ts := now.Sub(r.start) - r.pausedTotal
	if ts < 0 {
		ts = 0
	}
	r.keys = append(r.keys, model.RecordedKeystroke{
		TimestampMs: ts.Milliseconds(),
		Key:         key,
		WasCorrect:  correct,
	})
}

// Pause stops the recording clock.
func (r *Recorder) Pause() {
	r.PauseAt(r.now())
}

// PauseAt stops the recording clock as of at, which lets an idle gap be excluded
// after the fact.
func (r *Recorder) PauseAt(at time.Time) {
	if r.start.IsZero() || !r.pausedAt.IsZero() {
		return
	}
	if at.Before(r.start) {
		at = r.start
	}
	r.pausedAt = at
}

// Resume restarts the recording clock.
func (r *Recorder) Resume() {
	if r.pausedAt.IsZero() {
		return
	}
	r.pausedTotal += r.now().Sub(r.pausedAt)
	r.pausedAt = time.Time{}
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.start = time.Time{}
	r.pausedAt = time.Time{}
	r.pausedTotal = 0
	r.keys = nil
}

// Len is the number of recorded keystrokes.
func (r *Recorder) Len() int {
	return len(r.keys)
}

// Keystrokes returns a copy of the recorded keystrokes.
func (r *Recorder) Keystrokes() []model.RecordedKeystroke {
	out := make([]model.RecordedKeystroke, len(r.keys))
	copy(out, r.keys)
	return out
}

// BuildHistory derives per-second WPM (from correct typed keys) and error counts.
func BuildHistory(keys []model.RecordedKeystroke) (wpm, errs []model.SeriesPoint) {
	if len(keys) == 0 {
		return nil, nil
	}
	lastSecond := int(keys[len(keys)-1].TimestampMs / 1000)
	perSecondErrors := make([]int, lastSecond+1)
	perSecondCorrect := make([]int, lastSecond+1)
	for _, k := range keys {
		sec := int(k.TimestampMs / 1000)
		switch {
		case !k.WasCorrect:
			perSecondErrors[sec]++
		case k.Key.Kind != model.KeyBackspace && k.Key.Kind != model.KeyCtrlBackspace:
			perSecondCorrect[sec]++
		}
	}
	correct := 0
	for sec := 0; sec <= lastSecond; sec++ {
		correct += perSecondCorrect[sec]
		minutes := float64(sec+1) / 60.0
		wpm = append(wpm, model.SeriesPoint{Second: sec + 1, Value: (float64(correct) / 5.0) / minutes})
		errs = append(errs, model.SeriesPoint{Second: sec + 1, Value: float64(perSecondErrors[sec])})
	}
	return wpm, errs
}
