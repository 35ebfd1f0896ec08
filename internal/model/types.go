// Package model defines shared data structures.
package model

import "time"

// Gate policies accepted by Config.Gate.
const (
	GateGlobal  = "global"
	GatePerLine = "per-line"
)

// Config defines practice settings.
type Config struct {
	Lowercase        bool
	NoPunctuation    bool
	Gate             string `validate:"oneof=global per-line"`
	ClearOnBackspace bool
	User             string `validate:"omitempty,max=64,printascii"`
	Listen           string `validate:"omitempty,hostname_port"`
	Origin           string `validate:"required,url"`
}

// ProviderConfig defines how lyrics and track details are fetched.
type ProviderConfig struct {
	LyricsEndpoint string        `validate:"required,url"`
	ClientID       string        `validate:"required_with=ClientSecret"`
	ClientSecret   string        `validate:"required_with=ClientID"`
	Timeout        time.Duration `validate:"gt=0"`
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	User        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SongDetails describes the track a session was typed against.
type SongDetails struct {
	TrackID  string `yaml:"track_id"`
	Title    string `yaml:"title"`
	Artist   string `yaml:"artist"`
	Album    string `yaml:"album,omitempty"`
	Duration string `yaml:"duration,omitempty"`
}

// SessionStats captures a completed typing session.
type SessionStats struct {
	RunID         string
	StartedAt     time.Time
	EndedAt       time.Time
	Song          SongDetails
	User          string
	Lowercase     bool
	NoPunctuation bool
	Words         int
	TotalTyped    int
	CorrectTyped  int
	RawWPM        int
	WPM           int
	Accuracy      int
	Score         int
	DurationMs    int64
}

// CharStats stores per-character stats for a session.
type CharStats struct {
	Char      string
	Correct   int
	Incorrect int
}

// CharAggregate aggregates character stats across sessions.
type CharAggregate struct {
	Char      string
	Correct   int
	Incorrect int
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID  int64
	EndedAt    time.Time
	Title      string
	Artist     string
	RawWPM     int
	WPM        int
	Accuracy   int
	Score      int
	DurationMs int64
}

// SongPlays is a row of the song play counter.
type SongPlays struct {
	URL       string
	Title     string
	Artist    string
	PlayCount int
}
