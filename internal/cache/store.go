package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"video-transcripts-go/internal/types"
)

// ErrMiss is returned when no transcript is cached for a video id.
var ErrMiss = errors.New("cache miss")

// Store persists transcripts in SQLite keyed by video id. A hit
// short-circuits the whole pipeline, so reads come first everywhere.
type Store struct {
	db *sql.DB
}

// Open creates the data directory if needed, opens the database, and runs
// migrations.
func Open(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataPath, "transcripts.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite is single-writer; serialize access through one conn.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS transcripts (
			video_id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			language TEXT NOT NULL,
			word_count INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			source TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_last_used ON transcripts(last_used_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the cached transcript for videoID and refreshes its
// last_used_at stamp. Returns ErrMiss when absent.
func (s *Store) Get(ctx context.Context, videoID string) (types.Transcript, error) {
	var t types.Transcript
	row := s.db.QueryRowContext(ctx,
		`SELECT video_id, text, language, word_count, duration_seconds, source, last_used_at
		 FROM transcripts WHERE video_id = ?`, videoID)
	if err := row.Scan(&t.VideoID, &t.Text, &t.Language, &t.WordCount, &t.DurationSeconds, &t.Source, &t.LastUsedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Transcript{}, ErrMiss
		}
		return types.Transcript{}, err
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE transcripts SET last_used_at = ? WHERE video_id = ?`, now, videoID); err == nil {
		t.LastUsedAt = now
	}
	t.Source = types.SourceCache
	return t, nil
}

// Put upserts a transcript keyed by video id. One statement, so the write
// is atomic per key; last write wins.
func (s *Store) Put(ctx context.Context, t types.Transcript) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (video_id, text, language, word_count, duration_seconds, source, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET
			text = excluded.text,
			language = excluded.language,
			word_count = excluded.word_count,
			duration_seconds = excluded.duration_seconds,
			source = excluded.source,
			last_used_at = excluded.last_used_at`,
		t.VideoID, t.Text, t.Language, t.WordCount, t.DurationSeconds, t.Source, time.Now().UTC())
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
