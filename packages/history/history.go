// Package history records domspec runs in a SQLite database so results can
// be compared across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/domspec/packages/core/runner"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	environment TEXT NOT NULL DEFAULT '',
	files       INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS tests (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	file        TEXT NOT NULL,
	suite       TEXT NOT NULL,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS tests_name ON tests(file, name);
`

// Test statuses stored in the tests table.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Run summarizes one invocation of the runner.
type Run struct {
	ID          string
	StartedAt   time.Time
	Duration    time.Duration
	Environment string
	Files       int
	Total       int
	Passed      int
	Failed      int
	Skipped     int
}

// TestRecord is the stored outcome of one test in a run.
type TestRecord struct {
	RunID    string
	File     string
	Suite    string
	Name     string
	Status   string
	Duration time.Duration
	Message  string
}

// FlakyTest is a test that both passed and failed within the inspected runs.
type FlakyTest struct {
	File   string
	Name   string
	Passed int
	Failed int
}

// Store is a run history database.
type Store struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// Open opens or creates the history database at location, which may be a
// plain path or use the sqlite:// or sqlite: prefix.
func Open(location string) (*Store, error) {
	path, err := parseLocation(location)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{
		db:           db,
		path:         path,
		queryTimeout: 30 * time.Second,
	}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// NewRun builds a run summary from file results. An empty id is replaced
// with a new UUID.
func NewRun(id, environment string, startedAt time.Time, duration time.Duration, results []*runner.RunResult) *Run {
	if id == "" {
		id = uuid.New().String()
	}
	run := &Run{
		ID:          id,
		StartedAt:   startedAt,
		Duration:    duration,
		Environment: environment,
		Files:       len(results),
	}
	for _, r := range results {
		run.Passed += r.Passed
		run.Failed += r.Failed
		run.Skipped += r.Skipped
	}
	run.Total = run.Passed + run.Failed + run.Skipped
	return run
}

// Record stores a run and the outcome of every test in it.
func (s *Store) Record(ctx context.Context, run *Run, results []*runner.RunResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, environment, files, total, passed, failed, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.Duration.Milliseconds(), run.Environment,
		run.Files, run.Total, run.Passed, run.Failed, run.Skipped)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tests (run_id, position, file, suite, name, status, duration_ms, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	pos := 0
	for _, rr := range results {
		for _, tr := range rr.Results {
			_, err := stmt.ExecContext(ctx, run.ID, pos, rr.File, rr.Suite, tr.Name,
				StatusOf(tr), tr.Duration.Milliseconds(), messageOf(tr))
			if err != nil {
				return fmt.Errorf("failed to insert test %q: %w", tr.Name, err)
			}
			pos++
		}
	}

	return tx.Commit()
}

// StatusOf maps a test result to its stored status.
func StatusOf(tr *runner.TestResult) string {
	switch {
	case tr.Skipped:
		return StatusSkipped
	case tr.Error != nil:
		return StatusError
	case tr.Passed:
		return StatusPassed
	default:
		return StatusFailed
	}
}

func messageOf(tr *runner.TestResult) string {
	if tr.Error != nil {
		return tr.Error.Error()
	}
	if tr.Skipped {
		return tr.SkipReason
	}
	var msgs []string
	for _, a := range tr.Assertions {
		if !a.Passed {
			msgs = append(msgs, a.Message)
		}
	}
	return strings.Join(msgs, "\n")
}

// Runs returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT id, started_at, duration_ms, environment, files, total, passed, failed, skipped
		FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	runs := make([]*Run, 0)
	for rows.Next() {
		run := &Run{}
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.StartedAt, &durationMs, &run.Environment,
			&run.Files, &run.Total, &run.Passed, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run returns the run whose ID starts with prefix.
func (s *Store) Run(ctx context.Context, prefix string) (*Run, error) {
	runs, err := s.Runs(ctx, 0)
	if err != nil {
		return nil, err
	}
	var found *Run
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			if found != nil {
				return nil, fmt.Errorf("run prefix %q is ambiguous", prefix)
			}
			found = run
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return found, nil
}

// Tests returns the tests of a run in execution order.
func (s *Store) Tests(ctx context.Context, runID string) ([]*TestRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, file, suite, name, status, duration_ms, message
		 FROM tests WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	tests := make([]*TestRecord, 0)
	for rows.Next() {
		t := &TestRecord{}
		var durationMs int64
		if err := rows.Scan(&t.RunID, &t.File, &t.Suite, &t.Name, &t.Status, &durationMs, &t.Message); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		t.Duration = time.Duration(durationMs) * time.Millisecond
		tests = append(tests, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tests, nil
}

// Flaky lists tests that both passed and failed in the last window runs.
func (s *Store) Flaky(ctx context.Context, window int) ([]FlakyTest, error) {
	if window <= 0 {
		window = 10
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT file, name,
		       SUM(CASE WHEN status = 'passed' THEN 1 ELSE 0 END) AS passed,
		       SUM(CASE WHEN status IN ('failed', 'error') THEN 1 ELSE 0 END) AS failed
		FROM tests
		WHERE run_id IN (SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)
		GROUP BY file, name
		HAVING passed > 0 AND failed > 0
		ORDER BY failed DESC, file, name`, window)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	flaky := make([]FlakyTest, 0)
	for rows.Next() {
		var f FlakyTest
		if err := rows.Scan(&f.File, &f.Name, &f.Passed, &f.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		flaky = append(flaky, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return flaky, nil
}

// Prune deletes all but the newest keep runs and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

// parseLocation accepts:
// - sqlite://path/to/history.db
// - sqlite:./history.db
// - path/to/history.db
func parseLocation(location string) (string, error) {
	location = strings.TrimSpace(location)

	switch {
	case strings.HasPrefix(location, "sqlite://"):
		location = strings.TrimPrefix(location, "sqlite://")
	case strings.HasPrefix(location, "sqlite:"):
		location = strings.TrimPrefix(location, "sqlite:")
	case strings.Contains(location, "://"):
		return "", fmt.Errorf("unsupported history database: %s", location)
	}

	if location == "" {
		return "", errors.New("history database path is empty")
	}
	return location, nil
}
