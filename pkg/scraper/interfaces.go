package scraper

import (
	"context"

	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/ledger"
)

// CatalogClient defines the catalog operations the scraper needs
type CatalogClient interface {
	FetchSpeciesCounts(ctx context.Context, q inaturalist.SpeciesCountsQuery) (*inaturalist.SpeciesCountsResponse, error)
	FetchObservations(ctx context.Context, q inaturalist.ObservationsQuery) (*inaturalist.ObservationsResponse, error)
}

// RunRecorder persists run bookkeeping. *ledger.Ledger implements it.
type RunRecorder interface {
	StartRun(ctx context.Context, info ledger.RunInfo) (string, error)
	FinishRun(ctx context.Context, runID, status string) error
	RecordCategory(ctx context.Context, runID string, c ledger.CategoryRecord) error
	RecordDownload(ctx context.Context, runID string, d ledger.DownloadRecord) error
	RecordFailure(ctx context.Context, runID string, f ledger.FailureRecord) error
}

// Progress receives per-category progress events
type Progress interface {
	Page(n int)
	Saved(size int64)
	Failed(kind string)
	Finish()
}

// ProgressFactory creates the Progress for one category
type ProgressFactory func(label string, quota int) Progress

type nopProgress struct{}

func (nopProgress) Page(int)      {}
func (nopProgress) Saved(int64)   {}
func (nopProgress) Failed(string) {}
func (nopProgress) Finish()       {}

// NoProgress discards all progress events
func NoProgress(string, int) Progress {
	return nopProgress{}
}
