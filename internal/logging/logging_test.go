package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ghostype.log")
	log, closer := New(Config{Level: "debug", File: path})

	log.Named("race").Debug("ghost finished", zap.Int("ticks", 3))
	_ = log.Sync()
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"ghost finished"`)
	assert.Contains(t, string(data), `"logger":"ghostype.race"`)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghostype.log")
	log, closer := New(Config{Level: "chatty", File: path})

	log.Debug("hidden")
	log.Info("shown")
	_ = log.Sync()
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestEmptyFileDisablesLogging(t *testing.T) {
	log, closer := New(Config{})
	log.Info("dropped")
	assert.NoError(t, closer.Close())
}
