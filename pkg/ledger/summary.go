package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is a row of the runs table
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	PlaceID    int
	TaxonID    int
	Quota      int
	OutputDir  string
}

// Duration is zero for runs that have not finished
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CategorySummary is a row of the categories table
type CategorySummary struct {
	TaxonID    int
	Name       string
	Directory  string
	Rank       int
	Downloaded int
	Failed     int
	Pages      int
	Exhausted  bool
}

// Summary aggregates everything recorded for one run
type Summary struct {
	Run            Run
	Categories     []CategorySummary
	FailuresByKind map[string]int
	TotalBytes     int64
}

// TotalDownloaded sums downloads across categories
func (s *Summary) TotalDownloaded() int {
	total := 0
	for _, c := range s.Categories {
		total += c.Downloaded
	}
	return total
}

// TotalFailed sums failures across kinds
func (s *Summary) TotalFailed() int {
	total := 0
	for _, n := range s.FailuresByKind {
		total += n
	}
	return total
}

const runColumns = `id, started_at, finished_at, status, place_id, taxon_id, quota, output_dir`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		r        Run
		started  sql.NullString
		finished sql.NullString
	)
	if err := row.Scan(&r.ID, &started, &finished, &r.Status, &r.PlaceID, &r.TaxonID, &r.Quota, &r.OutputDir); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return &r, nil
}

// GetRun loads one run by ID
func (l *Ledger) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recently started run
func (l *Ledger) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := l.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return &runs[0], nil
}

// ListRuns returns up to limit runs, newest first
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Summary gathers the per-category outcome and failure counts of a run
func (l *Ledger) Summary(ctx context.Context, runID string) (*Summary, error) {
	run, err := l.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	s := &Summary{Run: *run, FailuresByKind: make(map[string]int)}

	rows, err := l.db.QueryContext(ctx, `
		SELECT taxon_id, name, directory, position, downloaded, failed, pages, exhausted
		FROM categories WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c         CategorySummary
			exhausted int
		)
		if err := rows.Scan(&c.TaxonID, &c.Name, &c.Directory, &c.Rank, &c.Downloaded, &c.Failed, &c.Pages, &exhausted); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Exhausted = exhausted != 0
		s.Categories = append(s.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kinds, err := l.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM failures WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer kinds.Close()

	for kinds.Next() {
		var (
			kind  string
			count int
		)
		if err := kinds.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan failure count: %w", err)
		}
		s.FailuresByKind[kind] = count
	}
	if err := kinds.Err(); err != nil {
		return nil, err
	}

	var total sql.NullInt64
	if err := l.db.QueryRowContext(ctx,
		`SELECT SUM(bytes) FROM downloads WHERE run_id = ?`, runID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to sum bytes: %w", err)
	}
	s.TotalBytes = total.Int64

	return s, nil
}
