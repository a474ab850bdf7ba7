package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"captioner/internal/artifacts"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one row of the history.
type Run struct {
	ID           string          `json:"id"`
	SourcePath   string          `json:"source_path"`
	BaseName     string          `json:"base_name"`
	Backend      string          `json:"backend"`
	Model        string          `json:"model,omitempty"`
	Status       Status          `json:"status"`
	FailedStep   string          `json:"failed_step,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Artifacts    artifacts.Names `json:"artifacts"`
	Segments     int             `json:"segments"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// Duration is the run's wall time, or the time since start for unfinished runs.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome carries the result fields written by Finish.
type Outcome struct {
	Status       Status
	FailedStep   string
	ErrorKind    string
	ErrorMessage string
	Artifacts    artifacts.Names
	Segments     int
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a new running run and returns it with a fresh ID.
func (s *Store) Begin(ctx context.Context, source, base, backend, model string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		SourcePath: source,
		BaseName:   base,
		Backend:    backend,
		Model:      model,
		Status:     StatusRunning,
		StartedAt:  s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_path, base_name, backend, model, status, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.SourcePath,
		run.BaseName,
		run.Backend,
		nullableString(run.Model),
		string(run.Status),
		run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish stores the outcome of run id.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	if outcome.Status != StatusSucceeded && outcome.Status != StatusFailed {
		return fmt.Errorf("finish run: invalid status %q", outcome.Status)
	}
	finished := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, failed_step = ?, error_kind = ?, error_message = ?,
             transcript = ?, audio = ?, subtitle = ?, segments = ?, finished_at = ?
         WHERE id = ?`,
		string(outcome.Status),
		nullableString(outcome.FailedStep),
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		nullableString(outcome.Artifacts.Transcript),
		nullableString(outcome.Artifacts.Audio),
		nullableString(outcome.Artifacts.Subtitle),
		outcome.Segments,
		finished.Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

const selectColumns = `id, source_path, base_name, backend, model, status, failed_step, error_kind,
    error_message, transcript, audio, subtitle, segments, started_at, finished_at`

// Get fetches a run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// List returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := "SELECT " + selectColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Prune deletes finished runs that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE status != ? AND started_at < ?",
		string(StatusRunning), cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                                   Run
		status, started                       string
		model, failedStep, errorKind, message sql.NullString
		transcript, audio, subtitle, finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.SourcePath, &run.BaseName, &run.Backend, &model, &status,
		&failedStep, &errorKind, &message, &transcript, &audio, &subtitle, &run.Segments,
		&started, &finished); err != nil {
		return nil, err
	}
	run.Model = model.String
	run.Status = Status(status)
	run.FailedStep = failedStep.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = message.String
	run.Artifacts = artifacts.Names{Transcript: transcript.String, Audio: audio.String, Subtitle: subtitle.String}

	startedAt, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = startedAt
	if finished.Valid && finished.String != "" {
		finishedAt, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &finishedAt
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
