// Package ghost persists best-ever keystroke recordings and records new ones.
package ghost

import (
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/verte-zerg/ghostype/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNotFound is returned when no ghost exists for a file.
	ErrNotFound = errors.New("ghost not found")
	// ErrChecksumMismatch is returned when a ghost file fails integrity verification.
	ErrChecksumMismatch = errors.New("ghost checksum mismatch")
	// ErrCorrupted is returned when a ghost file cannot be decoded.
	ErrCorrupted = errors.New("ghost data corrupted")
)

const legacyDateLayout = "2006-01-02T15:04:05.999999"

// fileData is the on-disk ghost document.
type fileData struct {
	File         string                    `json:"file"`
	Hash         string                    `json:"hash"`
	Date         string                    `json:"date"`
	WPM          float64                   `json:"wpm"`
	Acc          float64                   `json:"acc"`
	Keys         []model.RecordedKeystroke `json:"keys"`
	FinalStats   *model.FinalStats         `json:"final_stats"`
	InstantDeath *bool                     `json:"instant_death_mode,omitempty"`
	WPMHistory   []model.SeriesPoint       `json:"wpm_history,omitempty"`
	ErrorHistory []model.SeriesPoint       `json:"error_history,omitempty"`
	Checksum     string                    `json:"checksum,omitempty"`
}

// Store keeps one gzip-compressed JSON ghost per file content hash.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore creates the ghost directory if needed.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ghosts directory: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the directory ghosts are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// FileHash hashes a file's content, falling back to hashing its path when it cannot be read.
func (s *Store) FileHash(filePath string) string {
	content, err := os.ReadFile(filePath)
	if err != nil {
		s.log.Warn("failed to hash file content, using path", zap.String("file", filePath), zap.Error(err))
		content = []byte(filePath)
	}
	return HashContent(content)
}

// HashContent returns the short content hash used to name ghost files.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Store) pathFor(hash string) string {
	return filepath.Join(s.dir, hash+".json.gz")
}

// Has reports whether a ghost exists for the file.
func (s *Store) Has(filePath string) bool {
	_, err := os.Stat(s.pathFor(s.FileHash(filePath)))
	return err == nil
}

// ShouldSave reports whether a session at wpm beats the stored ghost. A missing or
// unreadable ghost is always beaten.
func (s *Store) ShouldSave(filePath string, wpm float64) bool {
	data, err := s.read(s.pathFor(s.FileHash(filePath)))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("failed to read existing ghost for comparison", zap.String("file", filePath), zap.Error(err))
		}
		return true
	}
	return round1(wpm) > data.WPM
}

// Save writes a ghost atomically, replacing any existing one for the file.
func (s *Store) Save(filePath string, rec model.GhostRecording) error {
	hash := s.FileHash(filePath)
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	data := fileData{
		File:         filePath,
		Hash:         hash,
		Date:         recordedAt.Format(time.RFC3339Nano),
		WPM:          round1(rec.WPM),
		Acc:          round1(rec.AccuracyPct),
		Keys:         rec.Keystrokes,
		FinalStats:   rec.FinalStats,
		InstantDeath: rec.InstantDeathMode,
		WPMHistory:   rec.WPMHistory,
		ErrorHistory: rec.ErrorHistory,
	}
	checksum, err := checksumOf(data)
	if err != nil {
		return fmt.Errorf("failed to checksum ghost: %w", err)
	}
	data.Checksum = checksum

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(data); err != nil {
		return fmt.Errorf("failed to encode ghost: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress ghost: %w", err)
	}
	if err := writeFileAtomic(s.pathFor(hash), buf.Bytes()); err != nil {
		return fmt.Errorf("failed to save ghost: %w", err)
	}
	s.log.Info("saved ghost", zap.String("file", filePath), zap.Float64("wpm", data.WPM))
	return nil
}

// Load reads the ghost for a file. Corrupted ghosts are moved aside and reported.
func (s *Store) Load(filePath string) (model.GhostRecording, error) {
	hash := s.FileHash(filePath)
	path := s.pathFor(hash)
	data, err := s.read(path)
	if err != nil {
		if errors.Is(err, ErrCorrupted) || errors.Is(err, ErrChecksumMismatch) {
			s.log.Error("ghost file rejected", zap.String("path", path), zap.Error(err))
			s.quarantine(path)
		}
		return model.GhostRecording{}, err
	}
	if data.Hash != "" && data.Hash != hash {
		s.log.Warn("file content changed since ghost was recorded", zap.String("file", filePath))
	}
	return data.recording(), nil
}

// Stats returns a ghost summary without its keystrokes.
func (s *Store) Stats(filePath string) (model.GhostSummary, error) {
	rec, err := s.Load(filePath)
	if err != nil {
		return model.GhostSummary{}, err
	}
	return model.GhostSummary{
		WPM:            rec.WPM,
		AccuracyPct:    rec.AccuracyPct,
		RecordedAt:     rec.RecordedAt,
		KeystrokeCount: len(rec.Keystrokes),
		InstantDeath:   rec.InstantDeathMode,
	}, nil
}

// Delete removes the ghost for a file. It reports whether a ghost existed.
func (s *Store) Delete(filePath string) (bool, error) {
	err := os.Remove(s.pathFor(s.FileHash(filePath)))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete ghost: %w", err)
	}
	s.log.Info("deleted ghost", zap.String("file", filePath))
	return true, nil
}

func (s *Store) read(path string) (fileData, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return fileData{}, ErrNotFound
	}
	if err != nil {
		return fileData{}, fmt.Errorf("failed to open ghost: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fileData{}, fmt.Errorf("%w: invalid gzip: %v", ErrCorrupted, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return fileData{}, fmt.Errorf("%w: invalid gzip: %v", ErrCorrupted, err)
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fileData{}, fmt.Errorf("%w: invalid JSON: %v", ErrCorrupted, err)
	}
	if data.Checksum != "" {
		stored := data.Checksum
		data.Checksum = ""
		computed, err := checksumOf(data)
		if err != nil {
			return fileData{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		if stored != computed {
			return fileData{}, fmt.Errorf("%w: stored=%s computed=%s", ErrChecksumMismatch, stored, computed)
		}
		data.Checksum = stored
	}
	return data, nil
}

func (s *Store) quarantine(path string) {
	backup := path + ".corrupted"
	err := os.Rename(path, backup)
	if err == nil {
		s.log.Info("backed up corrupted ghost", zap.String("path", backup))
		return
	}
	s.log.Warn("could not back up corrupted ghost", zap.String("path", path), zap.Error(err))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("could not delete corrupted ghost", zap.String("path", path), zap.Error(err))
	}
}

func (d fileData) recording() model.GhostRecording {
	rec := model.GhostRecording{
		Keystrokes:       d.Keys,
		WPM:              d.WPM,
		AccuracyPct:      d.Acc,
		FinalStats:       d.FinalStats,
		InstantDeathMode: d.InstantDeath,
		WPMHistory:       d.WPMHistory,
		ErrorHistory:     d.ErrorHistory,
	}
	for _, layout := range []string{time.RFC3339Nano, legacyDateLayout} {
		if parsed, err := time.Parse(layout, d.Date); err == nil {
			rec.RecordedAt = parsed
			break
		}
	}
	return rec
}

func checksumOf(d fileData) (string, error) {
	d.Checksum = ""
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])[:8], nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "ghost-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
