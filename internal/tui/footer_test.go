package tui

import (
	"strings"
	"testing"
)

func TestRenderFooterFormats(t *testing.T) {
	m := NewModel(Options{FilePath: "a.go", Content: "abcd"})
	m.handleToken(charKey('a'))
	m.handleToken(charKey('b'))
	m.settings.InstantDeath = true

	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Progress 50%", "WPM", "100.0%", "Instant death"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
	if strings.Contains(out, "Race") {
		t.Fatalf("expected no race segment while idle: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
