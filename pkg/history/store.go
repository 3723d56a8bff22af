// Package history persists completed transcriptions in a local SQLite
// database so they can be listed, re-read, and re-exported without the
// server.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hdntran/meetscribe-cli/pkg/transcript"
)

// Entry is one stored transcription.
type Entry struct {
	// ID is a unique identifier for the history entry.
	ID string
	// TaskID is the server-side task that produced the transcription.
	TaskID string
	// SourceFile is the audio file that was transcribed.
	SourceFile string
	// ModelSize is the Whisper model used.
	ModelSize string
	// Language is the detected or requested language code.
	Language string
	// LanguageProbability is the detection confidence, 0..1.
	LanguageProbability float64
	// ProcessingTime is the server processing time in seconds.
	ProcessingTime float64
	// AudioDuration is the audio length in seconds.
	AudioDuration float64
	// FullText is the flattened transcript text.
	FullText string
	// Segments is the full segment list, for SRT/JSON export.
	Segments []transcript.Segment
	// CreatedAt is when the entry was saved.
	CreatedAt time.Time
}

// Result reconstructs the transcript result for export.
func (e *Entry) Result() *transcript.Result {
	return &transcript.Result{
		Segments:            e.Segments,
		Language:            e.Language,
		LanguageProbability: e.LanguageProbability,
		ProcessingTime:      e.ProcessingTime,
		AudioDuration:       e.AudioDuration,
	}
}

// Store provides access to the local history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default history database path.
// Uses $MEETSCRIBE_CONFIG_DIR if set, otherwise ~/.meetscribe.
func DefaultPath() string {
	if dir := os.Getenv("MEETSCRIBE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "history.sqlite")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".meetscribe", "history.sqlite")
}

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id                   TEXT PRIMARY KEY,
	task_id              TEXT NOT NULL,
	source_file          TEXT NOT NULL,
	model_size           TEXT NOT NULL DEFAULT '',
	language             TEXT NOT NULL DEFAULT '',
	language_probability REAL NOT NULL DEFAULT 0,
	processing_time      REAL NOT NULL DEFAULT 0,
	audio_duration       REAL NOT NULL DEFAULT 0,
	full_text            TEXT NOT NULL DEFAULT '',
	segments_json        TEXT NOT NULL DEFAULT '[]',
	created_at           INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at
	ON transcriptions (created_at DESC);
`

// Open opens (creating if needed) the history database with WAL enabled.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a completed transcription and returns the new entry ID.
func (s *Store) Save(ctx context.Context, entry *Entry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	segmentsJSON, err := json.Marshal(entry.Segments)
	if err != nil {
		return "", fmt.Errorf("encoding segments: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transcriptions
			(id, task_id, source_file, model_size, language,
			 language_probability, processing_time, audio_duration,
			 full_text, segments_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.TaskID, entry.SourceFile, entry.ModelSize,
		entry.Language, entry.LanguageProbability, entry.ProcessingTime,
		entry.AudioDuration, entry.FullText, string(segmentsJSON),
		entry.CreatedAt.Unix())
	if err != nil {
		return "", fmt.Errorf("insert transcription: %w", err)
	}

	return entry.ID, nil
}

// List returns the most recent entries, newest first. Segment data is not
// loaded; use Get for the full entry.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, source_file, model_size, language,
		       language_probability, processing_time, audio_duration,
		       full_text, created_at
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.TaskID, &e.SourceFile, &e.ModelSize,
			&e.Language, &e.LanguageProbability, &e.ProcessingTime,
			&e.AudioDuration, &e.FullText, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns a single entry by ID, including segments. ID prefixes are
// accepted when unambiguous.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, source_file, model_size, language,
		       language_probability, processing_time, audio_duration,
		       full_text, segments_json, created_at
		FROM transcriptions
		WHERE id = ? OR id LIKE ? || '%'
		LIMIT 2
	`, id, id)
	if err != nil {
		return nil, fmt.Errorf("query transcription: %w", err)
	}
	defer rows.Close()

	var matches []Entry
	for rows.Next() {
		var e Entry
		var segmentsJSON string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.TaskID, &e.SourceFile, &e.ModelSize,
			&e.Language, &e.LanguageProbability, &e.ProcessingTime,
			&e.AudioDuration, &e.FullText, &segmentsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		if err := json.Unmarshal([]byte(segmentsJSON), &e.Segments); err != nil {
			return nil, fmt.Errorf("decoding segments: %w", err)
		}
		matches = append(matches, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("history entry %q not found", id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("history entry %q is ambiguous", id)
	}
}

// Delete removes an entry by exact ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transcriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transcription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("history entry %q not found", id)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transcriptions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transcriptions: %w", err)
	}
	return n, nil
}
