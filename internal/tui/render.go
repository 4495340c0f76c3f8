package tui

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type styledRune struct {
	s     string
	width int
}

func newStyledRune(r rune, style lipgloss.Style) styledRune {
	return styledRune{s: style.Render(string(r)), width: max(runewidth.RuneWidth(r), 1)}
}

// buildRows renders the materialized window, one row per text line, with the typed,
// ghost and cursor overlays applied from engine state.
func (m *Model) buildRows() [][]styledRune {
	idx := m.win.Index()
	w := m.win.Window()
	text, offset := m.win.Current()
	display := []rune(text)
	from := idx.ToEngine(offset)
	to := idx.ToEngine(offset + len(display))
	cursor := m.live.Cursor()
	glyphs := idx.Glyphs()

	rows := make([][]styledRune, 0, w.EndLine-w.StartLine)
	var row []styledRune
	for e := from; e < to; e++ {
		start, _ := m.win.ToWindow(idx.ToDisplay(e))
		end, _ := m.win.ToWindow(idx.ToDisplay(e + 1))
		unit := display[start:end]
		newline := len(unit) > 0 && unit[len(unit)-1] == '\n'
		if newline {
			unit = unit[:len(unit)-1]
		}
		style, pending := m.styleFor(e, cursor, idx.ToDisplay(e))
		if mark, ok := m.live.Mark(e); ok && m.settings.ShowTyped && !mark.Correct && unicode.IsPrint(mark.Typed) && !newline {
			unit = []rune{mark.Typed}
		}
		for _, r := range unit {
			runeStyle := style
			if pending && (unicode.IsSpace(r) || isGlyph(r, glyphs.Space, glyphs.Enter)) {
				runeStyle = glyphStyle
			}
			row = append(row, newStyledRune(r, runeStyle))
		}
		if len(unit) == 0 && e == cursor {
			row = append(row, newStyledRune(' ', cursorStyle))
		}
		if newline {
			rows = append(rows, row)
			row = nil
		}
	}
	if to >= idx.Len() {
		if cursor == idx.Len() && !m.live.IsFinished() {
			row = append(row, newStyledRune(' ', cursorStyle))
		}
		rows = append(rows, row)
	}
	return rows
}

// styleFor picks the overlay for one engine position; pending reports that nothing
// has reached it yet.
func (m *Model) styleFor(enginePos, cursor, displayPos int) (style lipgloss.Style, pending bool) {
	if mark, ok := m.live.Mark(enginePos); ok {
		switch {
		case mark.Skipped:
			return skippedStyle, false
		case mark.Correct:
			return correctStyle, false
		default:
			return incorrectStyle, false
		}
	}
	if enginePos == cursor {
		return cursorStyle, false
	}
	if displayPos < m.ghostDisplay {
		return ghostStyle, false
	}
	return pendingStyle, true
}

func isGlyph(r rune, glyphs ...string) bool {
	for _, g := range glyphs {
		if g != "" && g != " " && strings.ContainsRune(g, r) {
			return true
		}
	}
	return false
}

// visibleRows picks height rows around the cursor row and clips them to width columns,
// scrolling horizontally so the cursor column stays on screen.
func visibleRows(rows [][]styledRune, cursorRow, cursorCol, height, width int) []string {
	if height <= 0 || len(rows) == 0 {
		return nil
	}
	top := max(0, cursorRow-height/3)
	top = min(top, max(0, len(rows)-height))
	bottom := min(len(rows), top+height)

	left := 0
	if width > 0 && cursorCol >= width {
		left = cursorCol - width*2/3
	}
	out := make([]string, 0, bottom-top)
	for _, row := range rows[top:bottom] {
		out = append(out, clipRow(row, left, width))
	}
	return out
}

func clipRow(row []styledRune, left, width int) string {
	var b strings.Builder
	col := 0
	used := 0
	for _, item := range row {
		if col < left {
			col += item.width
			continue
		}
		if width > 0 && used+item.width > width {
			break
		}
		b.WriteString(item.s)
		used += item.width
		col += item.width
	}
	return b.String()
}
