package ghost

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verte-zerg/ghostype/internal/model"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := NewStore(filepath.Join(dir, "ghosts"), zap.NewNop())
	require.NoError(t, err)
	src := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(src, []byte("package main\n"), 0o644))
	return st, src
}

func sampleRecording() model.GhostRecording {
	death := true
	return model.GhostRecording{
		Keystrokes: []model.RecordedKeystroke{
			{TimestampMs: 0, Key: model.CharKey('p'), WasCorrect: true},
			{TimestampMs: 180, Key: model.BackspaceKey, WasCorrect: true},
			{TimestampMs: 400, Key: model.TabKey, WasCorrect: true},
			{TimestampMs: 650, Key: model.NewlineKey, WasCorrect: false},
		},
		WPM:              61.234,
		AccuracyPct:      97.46,
		RecordedAt:       time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC),
		FinalStats:       &model.FinalStats{Time: 12.5, Correct: 120, Incorrect: 3},
		InstantDeathMode: &death,
		WPMHistory:       []model.SeriesPoint{{Second: 1, Value: 60}},
	}
}

func TestSaveAndLoad(t *testing.T) {
	st, src := newTestStore(t)
	require.False(t, st.Has(src))
	require.NoError(t, st.Save(src, sampleRecording()))
	require.True(t, st.Has(src))

	rec, err := st.Load(src)
	require.NoError(t, err)
	assert.Equal(t, 61.2, rec.WPM)
	assert.Equal(t, 97.5, rec.AccuracyPct)
	assert.Equal(t, sampleRecording().Keystrokes, rec.Keystrokes)
	require.NotNil(t, rec.FinalStats)
	assert.Equal(t, 12.5, rec.FinalStats.Time)
	require.NotNil(t, rec.InstantDeathMode)
	assert.True(t, *rec.InstantDeathMode)
	assert.True(t, rec.RecordedAt.Equal(sampleRecording().RecordedAt))

	summary, err := st.Stats(src)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.KeystrokeCount)
}

func TestLoadMissing(t *testing.T) {
	st, src := newTestStore(t)
	_, err := st.Load(src)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestShouldSaveComparesWPM(t *testing.T) {
	st, src := newTestStore(t)
	assert.True(t, st.ShouldSave(src, 1))
	require.NoError(t, st.Save(src, sampleRecording()))
	assert.False(t, st.ShouldSave(src, 61.2))
	assert.False(t, st.ShouldSave(src, 50))
	assert.True(t, st.ShouldSave(src, 61.3))
}

func TestShouldSaveRoundsLikeSave(t *testing.T) {
	st, src := newTestStore(t)
	rec := sampleRecording()
	rec.WPM = 60.04
	require.NoError(t, st.Save(src, rec))

	assert.False(t, st.ShouldSave(src, 60.03), "ties at stored precision keep the ghost")
	assert.False(t, st.ShouldSave(src, 60.04))
	assert.True(t, st.ShouldSave(src, 60.07))
}

func TestGhostFollowsFileContent(t *testing.T) {
	st, src := newTestStore(t)
	require.NoError(t, st.Save(src, sampleRecording()))
	require.NoError(t, os.WriteFile(src, []byte("package other\n"), 0o644))
	assert.False(t, st.Has(src))
}

func TestCorruptedGhostIsQuarantined(t *testing.T) {
	st, src := newTestStore(t)
	path := st.pathFor(st.FileHash(src))
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

	_, err := st.Load(src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupted))
	_, statErr := os.Stat(path + ".corrupted")
	assert.NoError(t, statErr)
	assert.False(t, st.Has(src))
}

func TestChecksumMismatchIsRejected(t *testing.T) {
	st, src := newTestStore(t)
	path := st.pathFor(st.FileHash(src))

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(`{"file":"x","hash":"","date":"","wpm":999,"acc":100,"keys":[],"final_stats":null,"checksum":"deadbeef"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = st.Load(src)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestDelete(t *testing.T) {
	st, src := newTestStore(t)
	existed, err := st.Delete(src)
	require.NoError(t, err)
	assert.False(t, existed)

	require.NoError(t, st.Save(src, sampleRecording()))
	existed, err = st.Delete(src)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.False(t, st.Has(src))
}
