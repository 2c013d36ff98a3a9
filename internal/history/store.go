package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"downspout/internal/config"
)

// Status classifies the outcome of one transfer.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one finished transfer, successful or not.
type Record struct {
	ID         int64
	RemotePath string
	LocalPath  string
	SizeBytes  int64
	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary aggregates ledger counts for status output.
type Summary struct {
	Completed        int
	Failed           int
	BytesTransferred int64
}

// Store is the SQLite-backed transfer ledger. It is advisory output for
// humans; the sync engine never consults it.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    remote_path TEXT NOT NULL,
    local_path TEXT NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transfers_finished_at ON transfers(finished_at);
`

// Open initializes or connects to the history database in the log directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record appends one transfer outcome to the ledger.
func (s *Store) Record(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transfers (remote_path, local_path, size_bytes, status, error, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RemotePath,
		rec.LocalPath,
		rec.SizeBytes,
		string(rec.Status),
		rec.Error,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

// List returns the most recent transfers, newest first. A non-positive limit
// defaults to 50.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, remote_path, local_path, size_bytes, status, error, started_at, finished_at
         FROM transfers ORDER BY finished_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var status, started, finished string
		if err := rows.Scan(&rec.ID, &rec.RemotePath, &rec.LocalPath, &rec.SizeBytes, &status, &rec.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan transfer record: %w", err)
		}
		rec.Status = Status(status)
		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summary returns aggregate counts over the whole ledger.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	row := s.db.QueryRowContext(
		ctx,
		`SELECT
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN size_bytes ELSE 0 END), 0)
         FROM transfers`,
		string(StatusCompleted),
		string(StatusFailed),
		string(StatusCompleted),
	)
	if err := row.Scan(&summary.Completed, &summary.Failed, &summary.BytesTransferred); err != nil {
		return Summary{}, fmt.Errorf("summarize transfers: %w", err)
	}
	return summary, nil
}
