// Package tui provides the Bubble Tea practice screen.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/verte-zerg/ghostype/internal/engine"
	"github.com/verte-zerg/ghostype/internal/ghost"
	"github.com/verte-zerg/ghostype/internal/model"
	"github.com/verte-zerg/ghostype/internal/position"
	"github.com/verte-zerg/ghostype/internal/race"
	"github.com/verte-zerg/ghostype/internal/store"
	"github.com/verte-zerg/ghostype/internal/window"
)

const statusInterval = time.Second

type statusTickMsg struct{}

type startRaceMsg struct{}

// Options configures a practice screen.
type Options struct {
	FilePath  string
	Content   string
	Settings  model.Settings
	Store     *store.Store
	Ghosts    *ghost.Store
	Logger    *zap.Logger
	StartRace bool
	Clock     func() time.Time
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	filePath string
	language string
	settings model.Settings
	store    *store.Store
	ghosts   *ghost.Store
	log      *zap.Logger
	now      func() time.Time

	glyphs     position.GlyphConfig
	showGlyphs bool
	win        *window.Manager
	live       *engine.Engine
	recorder   *ghost.Recorder
	sched      *teaScheduler
	race       *race.Controller

	keys keyMap
	help help.Model

	width  int
	height int

	startRace    bool
	paused       bool
	resumed      bool
	finished     bool
	ghostDisplay int
	status       string
	result       *race.Result
	practice     *practiceResult
}

type practiceResult struct {
	wpm      float64
	accuracy float64
	elapsed  time.Duration
	newBest  bool
}

// NewModel loads a file into a practice session. Saved progress is restored unless a
// race is requested.
func NewModel(opts Options) *Model {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	content := position.ExpandTabs(position.NormalizeNewlines(opts.Content))
	glyphs := position.GlyphConfig{Space: opts.Settings.SpaceChar, Enter: opts.Settings.EnterChar}
	if glyphs.Space == "" {
		glyphs.Space = position.DefaultGlyphs.Space
	}

	m := &Model{
		filePath:   opts.FilePath,
		language:   model.LanguageFor(opts.FilePath),
		settings:   opts.Settings,
		store:      opts.Store,
		ghosts:     opts.Ghosts,
		log:        log.Named("tui"),
		now:        now,
		glyphs:     glyphs,
		showGlyphs: true,
		keys:       defaultKeyMap(),
		help:       help.New(),
		sched:      &teaScheduler{},
		startRace:  opts.StartRace,
	}
	m.win = window.New(position.Build(content, glyphs))
	m.live = engine.New(content, engine.Options{
		AllowContinueOnMistake: opts.Settings.AllowContinue,
		AutoIndent:             opts.Settings.AutoIndent,
		PauseDelay:             opts.Settings.PauseDelay,
		Clock:                  now,
	})
	m.recorder = ghost.NewRecorder(now)

	var persister race.Persister
	if m.store != nil && m.ghosts != nil {
		persister = race.StorePersister{Ghosts: m.ghosts, History: m.store}
	}
	deps := race.Deps{
		Live:           m.live,
		Projector:      m.win,
		Scheduler:      m.sched,
		Prefs:          m,
		Persister:      persister,
		Listener:       m,
		Clock:          now,
		Logger:         log.Named("race"),
		FilePath:       m.filePath,
		Language:       m.language,
		ApplyGhostMode: opts.Settings.ApplyGhostMode,
	}
	if m.store != nil {
		deps.Settings = m.store
	}
	m.race = race.New(deps)

	if !opts.StartRace {
		m.restoreProgress()
	}
	return m
}

// InstantDeath implements race.Preferences.
func (m *Model) InstantDeath() bool {
	return m.settings.InstantDeath
}

// SetInstantDeath implements race.Preferences.
func (m *Model) SetInstantDeath(enabled bool) {
	m.settings.InstantDeath = enabled
}

// RaceStateChanged implements race.Listener.
func (m *Model) RaceStateChanged(state race.State) {
	switch state {
	case race.PendingStart:
		m.recorder.Reset()
		m.win.JumpTo(0)
		m.finished = false
		m.paused = false
		m.resumed = false
		m.result = nil
		m.practice = nil
		m.status = "Race ready: start typing"
	case race.Racing:
		if m.race.IsPaused() {
			m.status = "Race paused"
		} else {
			m.status = ""
		}
	case race.Cancelled, race.Idle:
		m.ghostDisplay = 0
	}
}

// GhostProgressed implements race.Listener.
func (m *Model) GhostProgressed(displayPos int) {
	m.ghostDisplay = displayPos
}

// GhostFinished implements race.Listener.
func (m *Model) GhostFinished(elapsed time.Duration) {
	m.status = fmt.Sprintf("Ghost finished in %.2fs", elapsed.Seconds())
}

// RaceFinished implements race.Listener.
func (m *Model) RaceFinished(res race.Result) {
	m.result = &res
	if res.SaveErr != nil {
		m.status = "Failed to save results (see log)"
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{statusTick()}
	if m.startRace {
		cmds = append(cmds, func() tea.Msg { return startRaceMsg{} })
	}
	return tea.Batch(cmds...)
}

func statusTick() tea.Cmd {
	return tea.Tick(statusInterval, func(time.Time) tea.Msg { return statusTickMsg{} })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	if tick := m.sched.take(); tick != nil {
		cmd = tea.Batch(cmd, tick)
	}
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return nil
	case ghostTickMsg:
		if m.sched.current(msg) {
			m.race.AdvancePlayback()
		}
		return nil
	case statusTickMsg:
		if !m.race.Outstanding() && !m.paused && m.live.CheckAutoPause() {
			m.recorder.PauseAt(m.live.LastKeystroke())
			m.log.Debug("auto-paused", zap.String("file", m.filePath))
		}
		return statusTick()
	case startRaceMsg:
		m.beginRace()
		return nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit()
		return tea.Quit
	case key.Matches(msg, m.keys.Pause):
		m.togglePause()
		return nil
	case key.Matches(msg, m.keys.Race):
		m.beginRace()
		return nil
	case key.Matches(msg, m.keys.CancelRace):
		if m.race.Outstanding() {
			m.race.Cancel(context.Background())
			m.paused = false
			m.status = "Race cancelled"
		}
		return nil
	case key.Matches(msg, m.keys.InstantDeath):
		m.toggleInstantDeath()
		return nil
	case key.Matches(msg, m.keys.Glyphs):
		m.toggleGlyphs()
		return nil
	case key.Matches(msg, m.keys.Restart):
		m.restart()
		return nil
	}
	for _, tok := range m.keys.tokenFor(msg) {
		m.handleToken(tok)
	}
	return nil
}

func (m *Model) handleToken(tok model.KeyToken) {
	if m.finished {
		return
	}
	if m.race.State() == race.PendingStart && m.race.Qualifies(tok) {
		m.race.OnFirstQualifyingKeystroke()
	}
	if m.paused {
		m.resume()
	}

	switch tok.Kind {
	case model.KeyBackspace:
		m.live.ProcessBackspace()
		m.recorder.Record(tok, true)
	case model.KeyCtrlBackspace:
		m.live.ProcessCtrlBackspace()
		m.recorder.Record(tok, true)
	case model.KeyTab:
		correct := true
		for i := 0; i < max(m.settings.TabStep, 1) && correct; i++ {
			correct = m.live.ProcessKeystroke(' ').Correct
		}
		m.recorder.Record(tok, correct)
		if !correct {
			m.onMistake()
		}
	default:
		r, ok := tok.Typed()
		if !ok {
			return
		}
		res := m.live.ProcessKeystroke(r)
		m.recorder.Record(tok, res.Correct)
		if !res.Correct {
			m.onMistake()
		}
	}

	m.win.MaybeSlide(m.live.Cursor())
	if m.live.IsFinished() {
		m.onLiveFinished()
	}
}

func (m *Model) onMistake() {
	if !m.settings.InstantDeath {
		return
	}
	if !m.race.OnUserMistake(true) {
		m.live.ResetCursor()
	}
	m.win.JumpTo(0)
	m.status = "Instant death: back to the top"
}

func (m *Model) onLiveFinished() {
	ctx := context.Background()
	m.finished = true
	fin := race.Finish{
		Completed:  m.live.Cursor(),
		Total:      m.live.Len(),
		Correct:    m.live.Correct(),
		Incorrect:  m.live.Incorrect(),
		Elapsed:    m.live.Elapsed(),
		Keystrokes: m.attemptKeystrokes(),
	}
	if m.race.Outstanding() {
		m.race.OnUserFinished(ctx, fin)
		m.live.Pause()
	} else {
		m.live.Pause()
		m.finishPractice(ctx, fin)
	}
	if m.store != nil {
		if err := m.store.ClearProgress(ctx, m.filePath); err != nil {
			m.log.Warn("failed to clear progress", zap.Error(err))
		}
	}
}

// attemptKeystrokes returns the recording only when it covers the whole file.
func (m *Model) attemptKeystrokes() []model.RecordedKeystroke {
	if m.resumed {
		return nil
	}
	return m.recorder.Keystrokes()
}

func (m *Model) finishPractice(ctx context.Context, fin race.Finish) {
	res := &practiceResult{
		wpm:      m.live.WPM(),
		accuracy: m.live.Accuracy() * 100,
		elapsed:  fin.Elapsed,
	}
	m.practice = res
	if m.store == nil || m.ghosts == nil {
		return
	}
	newBest, err := race.SaveAttempt(ctx, race.StorePersister{Ghosts: m.ghosts, History: m.store}, race.Attempt{
		FilePath:     m.filePath,
		Language:     m.language,
		WPM:          res.wpm,
		Accuracy:     res.accuracy,
		Total:        fin.Total,
		Correct:      fin.Correct,
		Incorrect:    fin.Incorrect,
		Elapsed:      fin.Elapsed,
		Keystrokes:   fin.Keystrokes,
		InstantDeath: m.settings.InstantDeath,
		RecordedAt:   m.now(),
	})
	res.newBest = newBest
	if err != nil {
		m.log.Error("failed to save practice session", zap.String("file", m.filePath), zap.Error(err))
		m.status = "Failed to save results (see log)"
	}
}

func (m *Model) beginRace() {
	if m.ghosts == nil {
		m.status = "Ghost storage unavailable"
		return
	}
	rec, err := m.ghosts.Load(m.filePath)
	switch {
	case errors.Is(err, ghost.ErrNotFound):
		m.status = "No ghost yet: finish the file to record one"
		return
	case err != nil:
		m.log.Error("failed to load ghost", zap.String("file", m.filePath), zap.Error(err))
		m.status = "Ghost could not be loaded"
		return
	}
	if err := m.race.Start(context.Background(), rec); err != nil {
		if errors.Is(err, race.ErrEmptyRecording) {
			m.status = "Ghost has nothing to replay"
			return
		}
		m.status = err.Error()
	}
}

func (m *Model) togglePause() {
	if m.paused {
		m.resume()
		return
	}
	if m.finished || m.live.StartedAt().IsZero() {
		return
	}
	m.paused = true
	m.live.Pause()
	m.recorder.Pause()
	m.race.Pause()
	m.status = "Paused: ctrl+p or any key to resume"
}

func (m *Model) resume() {
	m.paused = false
	m.live.Start()
	m.recorder.Resume()
	m.race.Resume()
	m.status = ""
}

func (m *Model) toggleInstantDeath() {
	m.settings.InstantDeath = !m.settings.InstantDeath
	state := "off"
	if m.settings.InstantDeath {
		state = "on"
	}
	m.status = "Instant death " + state
	if m.race.Outstanding() || m.store == nil {
		return
	}
	if err := m.store.SetSetting(context.Background(), race.InstantDeathKey, strconv.FormatBool(m.settings.InstantDeath)); err != nil {
		m.log.Warn("failed to persist instant death", zap.Error(err))
	}
}

func (m *Model) toggleGlyphs() {
	m.showGlyphs = !m.showGlyphs
	glyphs := position.DefaultGlyphs
	if m.showGlyphs {
		glyphs = m.glyphs
	}
	m.win.Rebuild(position.Build(m.live.Content(), glyphs), m.live.Cursor())
	if g := m.race.Ghost(); g != nil {
		m.ghostDisplay = m.win.ToDisplay(g.Cursor())
	}
}

func (m *Model) restart() {
	m.race.Reset(context.Background())
	m.live.Reset()
	m.recorder.Reset()
	m.win.JumpTo(0)
	m.finished = false
	m.paused = false
	m.resumed = false
	m.result = nil
	m.practice = nil
	m.status = ""
}

func (m *Model) restoreProgress() {
	if m.store == nil {
		return
	}
	p, ok, err := m.store.GetProgress(context.Background(), m.filePath)
	if err != nil {
		m.log.Warn("failed to load progress", zap.Error(err))
		return
	}
	if !ok || p.Total != m.live.Len() || p.Cursor <= 0 || p.Cursor >= p.Total {
		return
	}
	m.live.LoadProgress(p.Cursor, p.Correct, p.Incorrect, p.Elapsed)
	m.win.JumpTo(p.Cursor)
	m.resumed = true
	m.status = fmt.Sprintf("Resumed at %d%%", p.Cursor*100/p.Total)
}

func (m *Model) quit() {
	ctx := context.Background()
	if m.race.Outstanding() {
		m.race.Cancel(ctx)
		return
	}
	if m.finished || m.live.Cursor() == 0 || m.store == nil {
		return
	}
	m.live.Pause()
	err := m.store.SaveProgress(ctx, model.Progress{
		FilePath:  m.filePath,
		Cursor:    m.live.Cursor(),
		Total:     m.live.Len(),
		Correct:   m.live.Correct(),
		Incorrect: m.live.Incorrect(),
		Elapsed:   m.live.Elapsed(),
		UpdatedAt: m.now(),
	})
	if err != nil {
		m.log.Warn("failed to save progress", zap.Error(err))
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	header := headerStyle.Render(fmt.Sprintf("%s · %s", filepath.Base(m.filePath), m.language))
	footer := m.renderFooter()
	helpLine := m.help.View(m.keys)

	if box := m.renderResult(); box != "" {
		body := lipgloss.Place(width, max(height-3, 1), lipgloss.Center, lipgloss.Center, box)
		return strings.Join([]string{header, body, footer, helpLine}, "\n")
	}

	bodyHeight := max(height-4, 1)
	idx := m.win.Index()
	cursor := m.live.Cursor()
	line := idx.LineOf(cursor)
	cursorRow := line - m.win.Window().StartLine
	cursorCol := runewidth.StringWidth(string(idx.DisplayRange(idx.LineStartDisplay(line), idx.ToDisplay(cursor))))
	rows := visibleRows(m.buildRows(), cursorRow, cursorCol, bodyHeight, width)
	for len(rows) < bodyHeight {
		rows = append(rows, "")
	}
	status := statusStyle.Render(m.status)
	return strings.Join(append(append([]string{header}, rows...), status, footer, helpLine), "\n")
}

func (m *Model) renderFooter() string {
	total := m.live.Len()
	progress := 100
	if total > 0 {
		progress = m.live.Cursor() * 100 / total
	}
	segments := []string{
		fmt.Sprintf("Progress %d%%", progress),
		fmt.Sprintf("%.1f WPM", m.live.WPM()),
		fmt.Sprintf("%.1f%%", m.live.Accuracy()*100),
	}
	if m.settings.InstantDeath {
		segments = append(segments, "Instant death")
	}
	if m.race.State() != race.Idle {
		segment := "Race " + m.race.State().String()
		if g := m.race.Ghost(); g != nil && total > 0 && m.race.State() != race.Cancelled {
			segment += fmt.Sprintf(" · ghost %d%%", g.Cursor()*100/total)
		}
		segments = append(segments, segment)
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) renderResult() string {
	switch {
	case m.result != nil:
		res := m.result
		title := "You beat your ghost!"
		if res.Winner == race.WinnerGhost {
			title = "The ghost wins"
		}
		lines := []string{
			title,
			"",
			fmt.Sprintf("You    %.2fs", res.UserElapsed.Seconds()),
			fmt.Sprintf("Ghost  %.2fs", res.GhostElapsed.Seconds()),
			fmt.Sprintf("WPM    %.1f", res.WPM),
			fmt.Sprintf("Acc    %.1f%%", res.Accuracy),
		}
		if res.NewBest {
			lines = append(lines, "", "New best: ghost updated")
		}
		lines = append(lines, "", "ctrl+r race again · ctrl+n restart · esc quit")
		return resultStyle.Render(strings.Join(lines, "\n"))
	case m.practice != nil:
		res := m.practice
		lines := []string{
			"File complete",
			"",
			fmt.Sprintf("Time   %.2fs", res.elapsed.Seconds()),
			fmt.Sprintf("WPM    %.1f", res.wpm),
			fmt.Sprintf("Acc    %.1f%%", res.accuracy),
		}
		if res.newBest {
			lines = append(lines, "", "New best: ghost recorded")
		}
		lines = append(lines, "", "ctrl+r race ghost · ctrl+n restart · esc quit")
		return resultStyle.Render(strings.Join(lines, "\n"))
	default:
		return ""
	}
}
