package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/ghostype/internal/model"
)

type keyMap struct {
	Quit          key.Binding
	Pause         key.Binding
	Race          key.Binding
	CancelRace    key.Binding
	InstantDeath  key.Binding
	Glyphs        key.Binding
	Restart       key.Binding
	CtrlBackspace key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:          key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
		Pause:         key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "pause")),
		Race:          key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "race ghost")),
		CancelRace:    key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel race")),
		InstantDeath:  key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "instant death")),
		Glyphs:        key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "glyphs")),
		Restart:       key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "restart")),
		CtrlBackspace: key.NewBinding(key.WithKeys("ctrl+w", "alt+backspace")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Race, k.CancelRace, k.Pause, k.InstantDeath, k.Glyphs, k.Restart, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// tokenFor converts a typing key into keystroke tokens. Control keys yield nothing.
func (k keyMap) tokenFor(msg tea.KeyMsg) []model.KeyToken {
	if key.Matches(msg, k.CtrlBackspace) {
		return []model.KeyToken{model.CtrlBackspaceKey}
	}
	if msg.Alt {
		return nil
	}
	switch msg.Type {
	case tea.KeyRunes:
		out := make([]model.KeyToken, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			out = append(out, model.CharKey(r))
		}
		return out
	case tea.KeySpace:
		return []model.KeyToken{model.SpaceKey}
	case tea.KeyTab:
		return []model.KeyToken{model.TabKey}
	case tea.KeyEnter:
		return []model.KeyToken{model.NewlineKey}
	case tea.KeyBackspace:
		return []model.KeyToken{model.BackspaceKey}
	default:
		return nil
	}
}
