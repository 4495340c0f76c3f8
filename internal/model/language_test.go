package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "go", LanguageFor("/src/main.go"))
	assert.Equal(t, "python", LanguageFor("SCRIPT.PY"))
	assert.Equal(t, "text", LanguageFor("Makefile"))
	assert.True(t, IsPracticeFile("a.rs"))
	assert.False(t, IsPracticeFile("a.png"))
}
