package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrAlreadyPatched is returned when an evaluation already carries a correction outcome
var ErrAlreadyPatched = errors.New("evaluation correction already recorded")

const schema = `
CREATE TABLE IF NOT EXISTS voice_profiles (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	org_id             TEXT NOT NULL DEFAULT '',
	fingerprint        TEXT NOT NULL,
	sample_count       INTEGER NOT NULL,
	word_count         INTEGER NOT NULL,
	status             TEXT NOT NULL,
	confidence         REAL NOT NULL,
	band               TEXT NOT NULL,
	source_type_counts TEXT NOT NULL,
	distinct_documents INTEGER NOT NULL,
	oldest_sample_at   TEXT,
	last_sample_at     TEXT,
	avg_sample_words   REAL NOT NULL,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	UNIQUE (user_id, org_id)
);

CREATE TABLE IF NOT EXISTS profile_documents (
	profile_id  TEXT NOT NULL,
	document_id TEXT NOT NULL,
	PRIMARY KEY (profile_id, document_id)
);

CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	org_id             TEXT NOT NULL DEFAULT '',
	document_id        TEXT NOT NULL DEFAULT '',
	mode               TEXT NOT NULL,
	original_text      TEXT NOT NULL,
	variation_seed     INTEGER NOT NULL,
	attempt            INTEGER NOT NULL,
	selected_index     INTEGER NOT NULL,
	retry_triggered    INTEGER NOT NULL,
	initial_class      TEXT NOT NULL,
	outcome            TEXT NOT NULL,
	enforcement_active INTEGER NOT NULL,
	returned_original  INTEGER NOT NULL,
	superseded         INTEGER NOT NULL DEFAULT 0,
	profile_id         TEXT,
	profile_confidence REAL,
	model              TEXT,
	prompt_version     TEXT,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_scope ON runs (user_id, org_id, document_id, mode, superseded);
CREATE INDEX IF NOT EXISTS idx_runs_user_created ON runs (user_id, created_at);

CREATE TABLE IF NOT EXISTS candidates (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL,
	idx             INTEGER NOT NULL,
	phase           TEXT NOT NULL,
	variation       TEXT NOT NULL,
	text            TEXT NOT NULL,
	semantic        REAL NOT NULL,
	stylistic       REAL NOT NULL,
	scope           REAL NOT NULL,
	combined        REAL NOT NULL,
	selection_score REAL NOT NULL,
	class           TEXT NOT NULL,
	passed          INTEGER NOT NULL,
	selected        INTEGER NOT NULL,
	shown           INTEGER NOT NULL,
	evaluation_id   TEXT,
	UNIQUE (run_id, idx),
	FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS evaluations (
	id           TEXT PRIMARY KEY,
	run_id       TEXT,
	candidate_id TEXT,
	class        TEXT NOT NULL,
	passed       INTEGER NOT NULL,
	body         TEXT NOT NULL,
	correction   TEXT,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drift_alerts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	kind            TEXT NOT NULL,
	recent_mean     REAL NOT NULL,
	older_mean      REAL NOT NULL,
	recent_variance REAL NOT NULL,
	older_variance  REAL NOT NULL,
	samples         INTEGER NOT NULL,
	model           TEXT,
	prompt_version  TEXT,
	created_at      TEXT NOT NULL
);
`

// Store persists profiles, runs, candidates, evaluations and drift alerts in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database and applies the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v.String, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
