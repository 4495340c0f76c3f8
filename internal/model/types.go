// Package model defines shared data structures.
package model

import "time"

// Settings defines practice preferences resolved from flags, the settings table, and the config file.
type Settings struct {
	InstantDeath   bool
	AllowContinue  bool
	AutoIndent     bool
	ShowTyped      bool
	ApplyGhostMode bool
	PauseDelay     time.Duration
	TabStep        int
	SpaceChar      string
	EnterChar      string
}

// RecordedKeystroke is a single keystroke of a ghost recording.
type RecordedKeystroke struct {
	TimestampMs int64    `json:"t"`
	Key         KeyToken `json:"k"`
	WasCorrect  bool     `json:"c"`
}

// FinalStats summarizes the session a ghost was recorded from.
type FinalStats struct {
	Time      float64 `json:"time"`
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
}

// SeriesPoint is a (second, value) sample of a per-second series.
type SeriesPoint struct {
	Second int     `json:"t"`
	Value  float64 `json:"v"`
}

// GhostRecording is the best-ever keystroke recording for a file.
type GhostRecording struct {
	Keystrokes       []RecordedKeystroke
	WPM              float64
	AccuracyPct      float64
	RecordedAt       time.Time
	FinalStats       *FinalStats
	InstantDeathMode *bool
	WPMHistory       []SeriesPoint
	ErrorHistory     []SeriesPoint
}

// LastTimestamp returns the timestamp of the final keystroke, or 0 for an empty recording.
func (g GhostRecording) LastTimestamp() int64 {
	if len(g.Keystrokes) == 0 {
		return 0
	}
	return g.Keystrokes[len(g.Keystrokes)-1].TimestampMs
}

// GhostSummary is a ghost recording without its keystrokes.
type GhostSummary struct {
	WPM            float64
	AccuracyPct    float64
	RecordedAt     time.Time
	KeystrokeCount int
	InstantDeath   *bool
}

// SessionRecord is one row of practice history.
type SessionRecord struct {
	ID         int64
	FilePath   string
	Language   string
	WPM        float64
	Accuracy   float64
	Total      int
	Correct    int
	Incorrect  int
	Duration   time.Duration
	Completed  bool
	RaceID     string
	Winner     string
	RecordedAt time.Time
}

// HistoryFilter narrows session history queries.
type HistoryFilter struct {
	FilePath string
	Language string
	Since    *time.Time
	Last     int
}

// FileStats aggregates practice results for a single file.
type FileStats struct {
	FilePath       string
	BestWPM        float64
	LastWPM        float64
	BestAccuracy   float64
	LastAccuracy   float64
	TimesPracticed int
	Completed      bool
	LastPracticed  time.Time
}

// Progress is a saved, resumable position in an unfinished file.
type Progress struct {
	FilePath  string
	Cursor    int
	Total     int
	Correct   int
	Incorrect int
	Elapsed   time.Duration
	UpdatedAt time.Time
}
