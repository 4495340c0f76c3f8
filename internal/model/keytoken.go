package model

import (
	"fmt"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

// KeyKind discriminates KeyToken variants.
type KeyKind uint8

const (
	KeyChar KeyKind = iota
	KeySpace
	KeyTab
	KeyNewline
	KeyBackspace
	KeyCtrlBackspace
)

// Wire forms of the non-character keys inside ghost files.
const (
	wireBackspace     = "\b"
	wireCtrlBackspace = "<CTRL-BACKSPACE>"
	wireTab           = "\t"
	wireNewline       = "\n"
	wireSpace         = " "
)

// KeyToken is a keystroke as recorded and replayed. Rune is only meaningful for KeyChar.
type KeyToken struct {
	Kind KeyKind
	Rune rune
}

var (
	SpaceKey         = KeyToken{Kind: KeySpace}
	TabKey           = KeyToken{Kind: KeyTab}
	NewlineKey       = KeyToken{Kind: KeyNewline}
	BackspaceKey     = KeyToken{Kind: KeyBackspace}
	CtrlBackspaceKey = KeyToken{Kind: KeyCtrlBackspace}
)

// CharKey builds a token for a typed rune, folding whitespace and control runes into their kinds.
func CharKey(r rune) KeyToken {
	switch r {
	case ' ':
		return SpaceKey
	case '\t':
		return TabKey
	case '\n', '\r':
		return NewlineKey
	case '\b':
		return BackspaceKey
	default:
		return KeyToken{Kind: KeyChar, Rune: r}
	}
}

// Typed returns the rune a token feeds to the engine and whether it types a single rune at all.
// Tab is excluded because its expansion depends on the caller.
func (k KeyToken) Typed() (rune, bool) {
	switch k.Kind {
	case KeyChar:
		return k.Rune, true
	case KeySpace:
		return ' ', true
	case KeyNewline:
		return '\n', true
	default:
		return 0, false
	}
}

// String returns the wire form of the token.
func (k KeyToken) String() string {
	switch k.Kind {
	case KeySpace:
		return wireSpace
	case KeyTab:
		return wireTab
	case KeyNewline:
		return wireNewline
	case KeyBackspace:
		return wireBackspace
	case KeyCtrlBackspace:
		return wireCtrlBackspace
	default:
		return string(k.Rune)
	}
}

// ParseKeyToken decodes the wire form of a token.
func ParseKeyToken(s string) (KeyToken, error) {
	switch s {
	case wireSpace:
		return SpaceKey, nil
	case wireTab:
		return TabKey, nil
	case wireNewline:
		return NewlineKey, nil
	case wireBackspace:
		return BackspaceKey, nil
	case wireCtrlBackspace:
		return CtrlBackspaceKey, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return KeyToken{}, fmt.Errorf("invalid key token %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return CharKey(r), nil
}

// MarshalJSON implements json.Marshaler.
func (k KeyToken) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *KeyToken) UnmarshalJSON(data []byte) error {
	var s string
	if err := jsoniter.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to decode key token: %w", err)
	}
	tok, err := ParseKeyToken(s)
	if err != nil {
		return err
	}
	*k = tok
	return nil
}
