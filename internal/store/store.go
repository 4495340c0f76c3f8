// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/ghostype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for settings, history and progress.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS file_stats (
			file_path TEXT PRIMARY KEY,
			best_wpm REAL NOT NULL DEFAULT 0,
			last_wpm REAL NOT NULL DEFAULT 0,
			best_accuracy REAL NOT NULL DEFAULT 0,
			last_accuracy REAL NOT NULL DEFAULT 0,
			times_practiced INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0,
			last_practiced TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_history (
			id INTEGER PRIMARY KEY,
			file_path TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			wpm REAL NOT NULL,
			accuracy REAL NOT NULL,
			total_keystrokes INTEGER NOT NULL,
			correct_keystrokes INTEGER NOT NULL,
			incorrect_keystrokes INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			race_id TEXT NOT NULL DEFAULT '',
			winner TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_progress (
			file_path TEXT PRIMARY KEY,
			cursor_position INTEGER NOT NULL,
			total_characters INTEGER NOT NULL,
			correct_keystrokes INTEGER NOT NULL,
			incorrect_keystrokes INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_file_path ON session_history(file_path, recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_history_language ON session_history(language);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// GetSetting returns a setting value and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting inserts or replaces a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// DeleteSetting removes a setting. Deleting a missing key is not an error.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// RecordSession appends a finished attempt to history and folds it into the file stats.
func (s *Store) RecordSession(ctx context.Context, rec model.SessionRecord) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO session_history (file_path, language, wpm, accuracy, total_keystrokes, correct_keystrokes, incorrect_keystrokes, duration_ms, completed, race_id, winner, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FilePath,
		rec.Language,
		rec.WPM,
		rec.Accuracy,
		rec.Total,
		rec.Correct,
		rec.Incorrect,
		rec.Duration.Milliseconds(),
		boolToInt(rec.Completed),
		rec.RaceID,
		rec.Winner,
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO file_stats (file_path, best_wpm, last_wpm, best_accuracy, last_accuracy, times_practiced, completed, last_practiced)
		 VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET
			best_wpm = MAX(best_wpm, excluded.best_wpm),
			last_wpm = excluded.last_wpm,
			best_accuracy = MAX(best_accuracy, excluded.best_accuracy),
			last_accuracy = excluded.last_accuracy,
			times_practiced = times_practiced + 1,
			completed = MAX(completed, excluded.completed),
			last_practiced = excluded.last_practiced`,
		rec.FilePath,
		rec.WPM,
		rec.WPM,
		rec.Accuracy,
		rec.Accuracy,
		boolToInt(rec.Completed),
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns history rows filtered by the given filter, oldest first.
func (s *Store) ListSessions(ctx context.Context, filter model.HistoryFilter) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.FilePath != "" {
		clauses = append(clauses, "file_path = ?")
		args = append(args, filter.FilePath)
	}
	if filter.Language != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, filter.Language)
	}
	if filter.Since != nil {
		clauses = append(clauses, "recorded_at >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, file_path, language, wpm, accuracy, total_keystrokes, correct_keystrokes, incorrect_keystrokes, duration_ms, completed, race_id, winner, recorded_at
		FROM session_history
		WHERE %s
		ORDER BY recorded_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var durationMs int64
		var completed int
		var recordedAt string
		if err := rows.Scan(&rec.ID, &rec.FilePath, &rec.Language, &rec.WPM, &rec.Accuracy, &rec.Total, &rec.Correct, &rec.Incorrect, &durationMs, &completed, &rec.RaceID, &rec.Winner, &recordedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Completed = completed != 0
		rec.RecordedAt = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(records) > filter.Last {
		records = records[len(records)-filter.Last:]
	}
	return records, nil
}

// GetFileStats returns aggregated stats for a file, or false when it was never practiced.
func (s *Store) GetFileStats(ctx context.Context, filePath string) (model.FileStats, bool, error) {
	stats := model.FileStats{FilePath: filePath}
	var completed int
	var lastPracticed string
	err := s.db.QueryRowContext(ctx,
		`SELECT best_wpm, last_wpm, best_accuracy, last_accuracy, times_practiced, completed, last_practiced
		 FROM file_stats WHERE file_path = ?`, filePath).
		Scan(&stats.BestWPM, &stats.LastWPM, &stats.BestAccuracy, &stats.LastAccuracy, &stats.TimesPracticed, &completed, &lastPracticed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FileStats{}, false, nil
	}
	if err != nil {
		return model.FileStats{}, false, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, lastPracticed)
	if err != nil {
		return model.FileStats{}, false, err
	}
	stats.Completed = completed != 0
	stats.LastPracticed = parsed
	return stats, true, nil
}

// SaveProgress stores a resumable position for an unfinished file.
func (s *Store) SaveProgress(ctx context.Context, p model.Progress) error {
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_progress (file_path, cursor_position, total_characters, correct_keystrokes, incorrect_keystrokes, elapsed_ms, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.FilePath, p.Cursor, p.Total, p.Correct, p.Incorrect, p.Elapsed.Milliseconds(), updatedAt.Format(time.RFC3339Nano))
	return err
}

// GetProgress returns saved progress for a file, or false when none exists.
func (s *Store) GetProgress(ctx context.Context, filePath string) (model.Progress, bool, error) {
	p := model.Progress{FilePath: filePath}
	var elapsedMs int64
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor_position, total_characters, correct_keystrokes, incorrect_keystrokes, elapsed_ms, updated_at
		 FROM session_progress WHERE file_path = ?`, filePath).
		Scan(&p.Cursor, &p.Total, &p.Correct, &p.Incorrect, &elapsedMs, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Progress{}, false, nil
	}
	if err != nil {
		return model.Progress{}, false, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return model.Progress{}, false, err
	}
	p.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	p.UpdatedAt = parsed
	return p, true, nil
}

// ClearProgress removes saved progress for a file.
func (s *Store) ClearProgress(ctx context.Context, filePath string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_progress WHERE file_path = ?`, filePath)
	return err
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
