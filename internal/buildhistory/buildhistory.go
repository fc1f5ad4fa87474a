// Package buildhistory persists a record of every bundle build in a local
// SQLite database. Timestamps are stored in the packed word+second form so
// history rows round-trip the full resolution, leap seconds included.
package buildhistory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"takarum/internal/timedate"
)

// Outcome classifies how a build ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	id              TEXT PRIMARY KEY,
	app             TEXT NOT NULL,
	target_dir      TEXT NOT NULL,
	started_word    INTEGER NOT NULL,
	started_second  INTEGER NOT NULL,
	finished_word   INTEGER,
	finished_second INTEGER,
	outcome         TEXT,
	detail          TEXT
);
CREATE INDEX IF NOT EXISTS builds_started ON builds(started_word DESC);
`

// Record is one build-history row. Finished, Outcome and Detail are zero
// until RecordFinish.
type Record struct {
	ID        string
	App       string
	TargetDir string
	Started   timedate.TimeAndDate
	Finished  timedate.TimeAndDate
	Outcome   Outcome
	Detail    string
}

// Store is a build-history database handle. Safe for concurrent use; the
// underlying *sql.DB serialises access.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("buildhistory: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("buildhistory: apply schema: %w", err)
	}
	slog.Debug("[HISTORY] database opened", "path", path)
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordStart inserts a new in-flight build row under the given build ID.
func (s *Store) RecordStart(ctx context.Context, id, app, targetDir string, started timedate.TimeAndDate) error {
	word, second := started.Words()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, app, target_dir, started_word, started_second) VALUES (?, ?, ?, ?, ?)`,
		id, app, targetDir, int64(word), int64(second),
	)
	if err != nil {
		return fmt.Errorf("buildhistory: record start %s: %w", id, err)
	}
	return nil
}

// RecordFinish completes a build row with its outcome. Detail carries the
// failure description for failed builds and is empty otherwise.
func (s *Store) RecordFinish(ctx context.Context, id string, finished timedate.TimeAndDate, outcome Outcome, detail string) error {
	word, second := finished.Words()
	res, err := s.db.ExecContext(ctx,
		`UPDATE builds SET finished_word = ?, finished_second = ?, outcome = ?, detail = ? WHERE id = ?`,
		int64(word), int64(second), string(outcome), detail, id,
	)
	if err != nil {
		return fmt.Errorf("buildhistory: record finish %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("buildhistory: record finish %s: no such build", id)
	}
	return nil
}

// Recent returns up to n finished or in-flight builds, most recent first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, app, target_dir, started_word, started_second,
		        COALESCE(finished_word, 0), COALESCE(finished_second, 0),
		        COALESCE(outcome, ''), COALESCE(detail, '')
		 FROM builds ORDER BY started_word DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("buildhistory: query recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var startedWord, startedSecond, finishedWord, finishedSecond int64
		var outcome string
		if err := rows.Scan(&r.ID, &r.App, &r.TargetDir,
			&startedWord, &startedSecond, &finishedWord, &finishedSecond,
			&outcome, &r.Detail); err != nil {
			return nil, fmt.Errorf("buildhistory: scan: %w", err)
		}
		r.Started = timedate.FromWords(uint64(startedWord), uint8(startedSecond))
		r.Finished = timedate.FromWords(uint64(finishedWord), uint8(finishedSecond))
		r.Outcome = Outcome(outcome)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("buildhistory: iterate: %w", err)
	}
	return out, nil
}
