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

	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/stats"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session data.
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
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			track_id TEXT NOT NULL,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			user_name TEXT NOT NULL,
			lowercase INTEGER NOT NULL,
			no_punct INTEGER NOT NULL,
			words INTEGER NOT NULL,
			total_typed INTEGER NOT NULL,
			correct_typed INTEGER NOT NULL,
			raw_wpm INTEGER NOT NULL,
			wpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			score INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_char_stats (
			session_id INTEGER NOT NULL,
			char TEXT NOT NULL,
			correct INTEGER NOT NULL,
			incorrect INTEGER NOT NULL,
			PRIMARY KEY (session_id, char)
		);`,
		`CREATE TABLE IF NOT EXISTS songs (
			id INTEGER PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			play_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			name TEXT PRIMARY KEY,
			score INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_session_char_stats_char ON session_char_stats(char);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a completed session and its per-character stats.
func (s *Store) InsertSession(ctx context.Context, st model.SessionStats, chars []model.CharStats) (id int64, err error) {
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

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (run_id, started_at, ended_at, track_id, title, artist, user_name, lowercase, no_punct, words,
			total_typed, correct_typed, raw_wpm, wpm, accuracy, score, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RunID,
		st.StartedAt.Format(time.RFC3339Nano),
		st.EndedAt.Format(time.RFC3339Nano),
		st.Song.TrackID,
		st.Song.Title,
		st.Song.Artist,
		st.User,
		st.Lowercase,
		st.NoPunctuation,
		st.Words,
		st.TotalTyped,
		st.CorrectTyped,
		st.RawWPM,
		st.WPM,
		st.Accuracy,
		st.Score,
		st.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(chars) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO session_char_stats (session_id, char, correct, incorrect) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, cs := range chars {
			if _, err := stmt.ExecContext(ctx, id, cs.Char, cs.Correct, cs.Incorrect); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns session aggregates filtered by stats config.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.User != "" {
		clauses = append(clauses, "user_name = ?")
		args = append(args, cfg.User)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, title, artist, raw_wpm, wpm, accuracy, score, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
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

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.Title, &agg.Artist, &agg.RawWPM, &agg.WPM, &agg.Accuracy, &agg.Score, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListCharAggregatesForSessions aggregates per-character stats across sessions.
func (s *Store) ListCharAggregatesForSessions(ctx context.Context, sessionIDs []int64) ([]model.CharAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT char, SUM(correct) AS correct, SUM(incorrect) AS incorrect
		FROM session_char_stats
		WHERE session_id IN (%s)
		GROUP BY char`, strings.Join(placeholders, ","))
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

	var result []model.CharAggregate
	for rows.Next() {
		var agg model.CharAggregate
		if err := rows.Scan(&agg.Char, &agg.Correct, &agg.Incorrect); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordSongPlay bumps the play counter of a track, creating it on first
// play, and returns the new count.
func (s *Store) RecordSongPlay(ctx context.Context, url string, song model.SongDetails) (int, error) {
	if url == "" {
		return 0, errors.New("song url is empty")
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO songs (url, title, artist, play_count) VALUES (?, ?, ?, 1)
		 ON CONFLICT(url) DO UPDATE SET play_count = play_count + 1
		 RETURNING play_count`,
		url, song.Title, song.Artist,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// TopSongs returns the most played tracks.
func (s *Store) TopSongs(ctx context.Context, limit int) ([]model.SongPlays, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, artist, play_count FROM songs ORDER BY play_count DESC, title ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var songs []model.SongPlays
	for rows.Next() {
		var sp model.SongPlays
		if err := rows.Scan(&sp.URL, &sp.Title, &sp.Artist, &sp.PlayCount); err != nil {
			return nil, err
		}
		songs = append(songs, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return songs, nil
}

// ReportResult scores a finished session for user and adds it to the user's
// cumulative total. It returns the session score and the new total.
func (s *Store) ReportResult(ctx context.Context, user string, wpm, accuracy int) (score, total int, err error) {
	if user == "" {
		return 0, 0, errors.New("user is empty")
	}
	score = stats.SessionScore(wpm, accuracy)
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (name, score) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET score = score + excluded.score
		 RETURNING score`,
		user, score,
	).Scan(&total)
	if err != nil {
		return 0, 0, err
	}
	return score, total, nil
}

// UserScore returns the cumulative score of user, 0 when unknown.
func (s *Store) UserScore(ctx context.Context, user string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT score FROM users WHERE name = ?`, user).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return total, nil
}
