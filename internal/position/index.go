// Package position maps between engine (logical) and display character offsets.
package position

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// TabWidth is the number of space glyphs a tab occupies in the index. It is independent
// of how many spaces the Tab key types.
const TabWidth = 4

// GlyphConfig holds the substitution strings drawn in place of spaces and line ends.
type GlyphConfig struct {
	Space string
	Enter string
}

// DefaultGlyphs renders whitespace as-is with no line-end marker.
var DefaultGlyphs = GlyphConfig{Space: " ", Enter: ""}

// Index is the coordinate map for one loaded text.
type Index struct {
	engineToDisplay   []int
	lineStartsEngine  []int
	lineStartsDisplay []int
	display           []rune
	glyphs            GlyphConfig
}

// Build indexes content in a single pass.
func Build(content string, glyphs GlyphConfig) *Index {
	spaceGlyph := []rune(glyphs.Space)
	enterGlyph := []rune(glyphs.Enter)

	n := utf8.RuneCountInString(content)
	idx := &Index{
		engineToDisplay:   make([]int, 0, n+1),
		lineStartsEngine:  []int{0},
		lineStartsDisplay: []int{0},
		display:           make([]rune, 0, n),
		glyphs:            glyphs,
	}
	offset := 0
	enginePos := 0
	for _, r := range content {
		idx.engineToDisplay = append(idx.engineToDisplay, offset)
		switch r {
		case '\n':
			idx.display = append(idx.display, enterGlyph...)
			idx.display = append(idx.display, '\n')
			offset += len(enterGlyph) + 1
		case '\t':
			for i := 0; i < TabWidth; i++ {
				idx.display = append(idx.display, spaceGlyph...)
			}
			offset += len(spaceGlyph) * TabWidth
		case ' ':
			idx.display = append(idx.display, spaceGlyph...)
			offset += len(spaceGlyph)
		default:
			idx.display = append(idx.display, r)
			offset++
		}
		enginePos++
		if r == '\n' {
			idx.lineStartsEngine = append(idx.lineStartsEngine, enginePos)
			idx.lineStartsDisplay = append(idx.lineStartsDisplay, offset)
		}
	}
	idx.engineToDisplay = append(idx.engineToDisplay, offset)
	return idx
}

// NormalizeNewlines turns CRLF and lone CR line endings into LF.
func NormalizeNewlines(content string) string {
	if !strings.ContainsRune(content, '\r') {
		return content
	}
	return strings.ReplaceAll(strings.ReplaceAll(content, "\r\n", "\n"), "\r", "\n")
}

// ExpandTabs replaces tabs with TabWidth spaces, producing the engine's canonical text.
func ExpandTabs(content string) string {
	return strings.ReplaceAll(content, "\t", strings.Repeat(" ", TabWidth))
}

// Glyphs returns the substitution the index was built with.
func (idx *Index) Glyphs() GlyphConfig {
	return idx.glyphs
}

// Len is the logical content length.
func (idx *Index) Len() int {
	return len(idx.engineToDisplay) - 1
}

// DisplayLen is the length of the substituted display text.
func (idx *Index) DisplayLen() int {
	return idx.engineToDisplay[len(idx.engineToDisplay)-1]
}

// Display returns the full substituted display text.
func (idx *Index) Display() string {
	return string(idx.display)
}

// DisplayRange returns the display runes in [from, to), clamped.
func (idx *Index) DisplayRange(from, to int) []rune {
	from = clamp(from, 0, len(idx.display))
	to = clamp(to, from, len(idx.display))
	return idx.display[from:to]
}

// ToDisplay converts an engine position to a display position.
func (idx *Index) ToDisplay(enginePos int) int {
	return idx.engineToDisplay[clamp(enginePos, 0, idx.Len())]
}

// ToEngine converts a display position to the engine position of the unit containing it.
func (idx *Index) ToEngine(displayPos int) int {
	if displayPos <= 0 {
		return 0
	}
	if displayPos >= idx.DisplayLen() {
		return idx.Len()
	}
	i := sort.SearchInts(idx.engineToDisplay, displayPos)
	if idx.engineToDisplay[i] > displayPos && i > 0 {
		i--
	}
	return i
}

// LineCount is the number of lines, counting a trailing empty line after a final newline.
func (idx *Index) LineCount() int {
	return len(idx.lineStartsEngine)
}

// LineOf returns the zero-based line containing an engine position.
func (idx *Index) LineOf(enginePos int) int {
	enginePos = clamp(enginePos, 0, idx.Len())
	return sort.Search(len(idx.lineStartsEngine), func(i int) bool {
		return idx.lineStartsEngine[i] > enginePos
	}) - 1
}

// LineStartEngine returns the engine offset of a line. Lines at or past the end map to Len.
func (idx *Index) LineStartEngine(line int) int {
	if line >= idx.LineCount() {
		return idx.Len()
	}
	return idx.lineStartsEngine[clamp(line, 0, idx.LineCount()-1)]
}

// LineStartDisplay returns the display offset of a line. Lines at or past the end map to DisplayLen.
func (idx *Index) LineStartDisplay(line int) int {
	if line >= idx.LineCount() {
		return idx.DisplayLen()
	}
	return idx.lineStartsDisplay[clamp(line, 0, idx.LineCount()-1)]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
