// Package ledger keeps a SQLite record of scraper runs: which categories
// were processed, every file written and every asset that failed. The
// report command reads it back to summarize a run.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ErrRunNotFound is returned when a run ID is not in the ledger
var ErrRunNotFound = errors.New("run not found")

// Fixed width so timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Ledger wraps the SQLite database
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger database at path
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	l := &Ledger{db: db, path: path}
	if err := l.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return l, nil
}

// Path returns the database file location
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		status TEXT NOT NULL,
		place_id INTEGER,
		taxon_id INTEGER,
		quota INTEGER,
		output_dir TEXT
	);

	CREATE TABLE IF NOT EXISTS categories (
		run_id TEXT NOT NULL REFERENCES runs(id),
		taxon_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		directory TEXT NOT NULL,
		position INTEGER,
		downloaded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		exhausted INTEGER NOT NULL DEFAULT 0,
		started_at TEXT,
		finished_at TEXT,
		PRIMARY KEY (run_id, taxon_id)
	);

	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		taxon_id INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		path TEXT NOT NULL,
		source_url TEXT NOT NULL,
		observation_id INTEGER,
		photo_id INTEGER,
		bytes INTEGER,
		downloaded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id, taxon_id);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		taxon_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		status_code INTEGER,
		error TEXT,
		occurred_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id, kind);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// RunInfo describes a run when it starts
type RunInfo struct {
	PlaceID   int
	TaxonID   int
	Quota     int
	OutputDir string
}

// StartRun records a new run and returns its ID
func (l *Ledger) StartRun(ctx context.Context, info RunInfo) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate run id: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, place_id, taxon_id, quota, output_dir)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.String(), now(), StatusRunning, info.PlaceID, info.TaxonID, info.Quota, info.OutputDir,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id.String(), nil
}

// FinishRun stamps the end time and final status of a run
func (l *Ledger) FinishRun(ctx context.Context, runID, status string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		now(), status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// CategoryRecord is the outcome of one category
type CategoryRecord struct {
	TaxonID    int
	Name       string
	Directory  string
	Rank       int
	Downloaded int
	Failed     int
	Pages      int
	Exhausted  bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordCategory upserts the outcome of one category
func (l *Ledger) RecordCategory(ctx context.Context, runID string, c CategoryRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO categories (run_id, taxon_id, name, directory, position, downloaded, failed, pages, exhausted, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, taxon_id) DO UPDATE SET
			downloaded = excluded.downloaded,
			failed = excluded.failed,
			pages = excluded.pages,
			exhausted = excluded.exhausted,
			finished_at = excluded.finished_at`,
		runID, c.TaxonID, c.Name, c.Directory, c.Rank, c.Downloaded, c.Failed, c.Pages,
		boolToInt(c.Exhausted), formatTime(c.StartedAt), formatTime(c.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record category: %w", err)
	}
	return nil
}

// DownloadRecord is one file written to disk
type DownloadRecord struct {
	TaxonID       int
	Sequence      int
	Path          string
	SourceURL     string
	ObservationID int
	PhotoID       int
	Bytes         int64
}

// RecordDownload stores one successful asset write
func (l *Ledger) RecordDownload(ctx context.Context, runID string, d DownloadRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO downloads (run_id, taxon_id, sequence, path, source_url, observation_id, photo_id, bytes, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, d.TaxonID, d.Sequence, d.Path, d.SourceURL, d.ObservationID, d.PhotoID, d.Bytes, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// FailureRecord is one asset that could not be saved
type FailureRecord struct {
	TaxonID    int
	URL        string
	Kind       string
	StatusCode int
	Error      string
}

// RecordFailure stores one failed asset fetch
func (l *Ledger) RecordFailure(ctx context.Context, runID string, f FailureRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO failures (run_id, taxon_id, url, kind, status_code, error, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, f.TaxonID, f.URL, f.Kind, f.StatusCode, f.Error, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func formatTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
