// Package window keeps a bounded slice of a large display text materialized around the cursor.
package window

import "github.com/verte-zerg/ghostype/internal/position"

// Slide policy, in lines.
const (
	SizeLines           = 100
	SlideThresholdLines = 20
	SlideStepLines      = 40
)

// Window is the materialized line range [StartLine, EndLine).
type Window struct {
	StartLine     int
	EndLine       int
	DisplayOffset int
}

// Manager owns the current window for one loaded file.
type Manager struct {
	index *position.Index
	win   Window
}

// New creates a manager with the window at the top of the file.
func New(index *position.Index) *Manager {
	m := &Manager{index: index}
	m.setBounds(0)
	return m
}

// Index returns the position index the window slices.
func (m *Manager) Index() *position.Index {
	return m.index
}

// Window returns the current bounds.
func (m *Manager) Window() Window {
	return m.win
}

// Current returns the display text of the window and the display offset of its first rune.
func (m *Manager) Current() (string, int) {
	from := m.index.LineStartDisplay(m.win.StartLine)
	to := m.index.LineStartDisplay(m.win.EndLine)
	return string(m.index.DisplayRange(from, to)), from
}

// ToDisplay projects an engine position into absolute display coordinates.
func (m *Manager) ToDisplay(enginePos int) int {
	return m.index.ToDisplay(enginePos)
}

// ToWindow converts an absolute display position to one relative to the window.
func (m *Manager) ToWindow(displayPos int) (int, bool) {
	from := m.index.LineStartDisplay(m.win.StartLine)
	to := m.index.LineStartDisplay(m.win.EndLine)
	if displayPos < from || displayPos > to {
		return 0, false
	}
	return displayPos - from, true
}

// MaybeSlide moves the window when the cursor line comes within the threshold of either edge.
// It reports whether the bounds changed; callers must re-render and reapply overlays.
func (m *Manager) MaybeSlide(enginePos int) bool {
	line := m.index.LineOf(enginePos)
	total := m.index.LineCount()
	start := m.win.StartLine

	switch {
	case line >= m.win.EndLine-SlideThresholdLines && m.win.EndLine < total:
		newStart := max(start+SlideStepLines, line-SlideThresholdLines)
		return m.setBounds(min(newStart, total-1))
	case line < start+SlideThresholdLines && start > 0:
		newStart := max(0, min(start-SlideStepLines, line-SlideThresholdLines))
		return m.setBounds(newStart)
	}
	return false
}

// Rebuild swaps in a new index (after a glyph change) keeping the cursor's line materialized.
func (m *Manager) Rebuild(index *position.Index, enginePos int) {
	m.index = index
	start := m.win.StartLine
	line := index.LineOf(enginePos)
	if line < start || line >= start+SizeLines {
		start = max(0, line-SlideThresholdLines)
	}
	m.setBounds(min(start, max(0, index.LineCount()-1)))
}

// JumpTo places the window so that the cursor sits near its top, used when restoring progress.
func (m *Manager) JumpTo(enginePos int) {
	line := m.index.LineOf(enginePos)
	m.setBounds(max(0, line-SlideThresholdLines))
}

func (m *Manager) setBounds(start int) bool {
	total := m.index.LineCount()
	start = max(0, start)
	end := min(total, start+SizeLines)
	next := Window{
		StartLine:     start,
		EndLine:       end,
		DisplayOffset: m.index.LineStartDisplay(start),
	}
	changed := next != m.win
	m.win = next
	return changed
}
