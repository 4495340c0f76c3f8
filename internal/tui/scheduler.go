package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ghostTickMsg fires a scheduled playback step. Ticks from an older generation are stale.
type ghostTickMsg struct {
	gen uint64
}

// teaScheduler arms ghost playback as a tea.Tick. The command is handed back to the
// Update loop through take, so playback never leaves the event loop.
type teaScheduler struct {
	gen     uint64
	pending tea.Cmd
}

func (s *teaScheduler) Schedule(delay time.Duration) {
	s.gen++
	gen := s.gen
	s.pending = tea.Tick(delay, func(time.Time) tea.Msg {
		return ghostTickMsg{gen: gen}
	})
}

func (s *teaScheduler) Stop() {
	s.gen++
	s.pending = nil
}

func (s *teaScheduler) take() tea.Cmd {
	cmd := s.pending
	s.pending = nil
	return cmd
}

func (s *teaScheduler) current(msg ghostTickMsg) bool {
	return msg.gen == s.gen
}
