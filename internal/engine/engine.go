// Package engine tracks correctness, cursor advancement and timing for one typing stream.
package engine

import (
	"time"
	"unicode"
)

// Options configures an Engine.
type Options struct {
	// AllowContinueOnMistake advances the cursor past a wrong keystroke instead of holding it.
	AllowContinueOnMistake bool
	// AutoIndent skips the indentation that follows a correctly typed newline.
	AutoIndent bool
	// PauseDelay is the inactivity period after which CheckAutoPause pauses the session. Zero disables it.
	PauseDelay time.Duration
	Clock      func() time.Time
}

// Result describes one processed keystroke.
type Result struct {
	Correct     bool
	Expected    rune
	AutoSkipped int
}

// Mark is the typed state of a position before the cursor.
type Mark struct {
	Typed   rune
	Correct bool
	Skipped bool
}

// Engine is a single typing session over fixed content.
type Engine struct {
	content []rune
	opts    Options
	now     func() time.Time

	cursor    int
	correct   int
	incorrect int
	marks     []Mark

	paused        bool
	startedAt     time.Time
	runningSince  time.Time
	elapsed       time.Duration
	lastKeystroke time.Time
}

// New creates a paused engine over content.
func New(content string, opts Options) *Engine {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	runes := []rune(content)
	return &Engine{
		content: runes,
		opts:    opts,
		now:     now,
		marks:   make([]Mark, len(runes)),
		paused:  true,
	}
}

// Options returns the options the engine was created with.
func (e *Engine) Options() Options {
	return e.opts
}

// Content returns the text being typed.
func (e *Engine) Content() string {
	return string(e.content)
}

// Len is the content length in runes.
func (e *Engine) Len() int {
	return len(e.content)
}

// Cursor is the current typing position.
func (e *Engine) Cursor() int {
	return e.cursor
}

// IsPaused reports whether the session clock is stopped.
func (e *Engine) IsPaused() bool {
	return e.paused
}

// IsFinished reports whether the cursor reached the end of the content.
func (e *Engine) IsFinished() bool {
	return e.cursor >= len(e.content)
}

// Correct is the number of correct keystrokes.
func (e *Engine) Correct() int {
	return e.correct
}

// Incorrect is the number of incorrect keystrokes.
func (e *Engine) Incorrect() int {
	return e.incorrect
}

// StartedAt is the instant of the first keystroke, zero before it.
func (e *Engine) StartedAt() time.Time {
	return e.startedAt
}

// LastKeystroke is the instant of the most recent keystroke, zero before any.
func (e *Engine) LastKeystroke() time.Time {
	return e.lastKeystroke
}

// Expected returns the rune under the cursor.
func (e *Engine) Expected() (rune, bool) {
	if e.IsFinished() {
		return 0, false
	}
	return e.content[e.cursor], true
}

// Mark returns the typed state of pos; ok is false at or after the cursor.
func (e *Engine) Mark(pos int) (Mark, bool) {
	if pos < 0 || pos >= e.cursor {
		return Mark{}, false
	}
	return e.marks[pos], true
}

// Elapsed is the active (pause-exclusive) session time.
func (e *Engine) Elapsed() time.Duration {
	if e.paused || e.runningSince.IsZero() {
		return e.elapsed
	}
	return e.elapsed + e.now().Sub(e.runningSince)
}

// WPM uses the cursor position as the character count.
func (e *Engine) WPM() float64 {
	minutes := e.Elapsed().Minutes()
	if minutes <= 0 {
		return 0
	}
	return (float64(e.cursor) / 5.0) / minutes
}

// Accuracy is correct over total keystrokes, 1 before any keystroke.
func (e *Engine) Accuracy() float64 {
	total := e.correct + e.incorrect
	if total == 0 {
		return 1
	}
	return float64(e.correct) / float64(total)
}

// Start starts or resumes the session clock.
func (e *Engine) Start() {
	if !e.paused {
		return
	}
	now := e.now()
	e.paused = false
	e.runningSince = now
	if e.startedAt.IsZero() {
		e.startedAt = now
	}
	e.lastKeystroke = now
}

// Pause stops the session clock.
func (e *Engine) Pause() {
	e.pauseAt(e.now())
}

func (e *Engine) pauseAt(at time.Time) {
	if e.paused {
		return
	}
	if at.After(e.runningSince) {
		e.elapsed += at.Sub(e.runningSince)
	}
	e.paused = true
}

// CheckAutoPause pauses an idle session, crediting time only up to the last keystroke.
func (e *Engine) CheckAutoPause() bool {
	if e.paused || e.opts.PauseDelay <= 0 || e.lastKeystroke.IsZero() {
		return false
	}
	if e.now().Sub(e.lastKeystroke) <= e.opts.PauseDelay {
		return false
	}
	e.pauseAt(e.lastKeystroke)
	return true
}

// ProcessKeystroke applies a typed rune at the cursor.
func (e *Engine) ProcessKeystroke(r rune) Result {
	if e.paused {
		e.Start()
	}
	e.lastKeystroke = e.now()
	if e.IsFinished() {
		return Result{}
	}

	expected := e.content[e.cursor]
	res := Result{Correct: r == expected, Expected: expected}
	if res.Correct {
		e.correct++
		e.marks[e.cursor] = Mark{Typed: r, Correct: true}
		e.cursor++
		if r == '\n' && e.opts.AutoIndent {
			res.AutoSkipped = e.skipIndent()
		}
		return res
	}

	e.incorrect++
	if e.opts.AllowContinueOnMistake {
		e.marks[e.cursor] = Mark{Typed: r}
		e.cursor++
	}
	return res
}

func (e *Engine) skipIndent() int {
	skipped := 0
	for e.cursor < len(e.content) && (e.content[e.cursor] == ' ' || e.content[e.cursor] == '\t') {
		e.marks[e.cursor] = Mark{Typed: e.content[e.cursor], Correct: true, Skipped: true}
		e.cursor++
		skipped++
	}
	return skipped
}

// ProcessBackspace moves the cursor back one position.
func (e *Engine) ProcessBackspace() {
	if e.cursor == 0 {
		return
	}
	e.cursor--
	e.lastKeystroke = e.now()
}

// ProcessCtrlBackspace moves the cursor to the start of the word left of it.
func (e *Engine) ProcessCtrlBackspace() {
	if e.cursor == 0 {
		return
	}
	pos := e.cursor - 1
	for pos > 0 && unicode.IsSpace(e.content[pos]) {
		pos--
	}
	for pos > 0 && !unicode.IsSpace(e.content[pos]) {
		pos--
	}
	if pos > 0 || unicode.IsSpace(e.content[0]) {
		pos++
	}
	e.cursor = pos
	e.lastKeystroke = e.now()
}

// ResetCursor returns the cursor to the start of the content, keeping counts and time.
func (e *Engine) ResetCursor() {
	e.cursor = 0
}

// Reset returns the engine to its initial paused state.
func (e *Engine) Reset() {
	e.cursor = 0
	e.correct = 0
	e.incorrect = 0
	e.paused = true
	e.startedAt = time.Time{}
	e.runningSince = time.Time{}
	e.elapsed = 0
	e.lastKeystroke = time.Time{}
}

// LoadProgress restores a saved position. Positions before the cursor are treated as correct.
func (e *Engine) LoadProgress(cursor, correct, incorrect int, elapsed time.Duration) {
	e.Reset()
	if cursor > len(e.content) {
		cursor = len(e.content)
	}
	if cursor < 0 {
		cursor = 0
	}
	for i := 0; i < cursor; i++ {
		e.marks[i] = Mark{Typed: e.content[i], Correct: true}
	}
	e.cursor = cursor
	e.correct = correct
	e.incorrect = incorrect
	e.elapsed = elapsed
}
