package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"inatscraper/internal/downloader"
	"inatscraper/pkg/config"
	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/labels"
	"inatscraper/pkg/ledger"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/metadata"
	"inatscraper/pkg/ratelimit"
	"inatscraper/pkg/retry"
	"inatscraper/pkg/storage"
	"inatscraper/pkg/ui"
)

// Dependencies lets callers swap out the collaborators New would otherwise
// build from the config. Zero fields get the default.
type Dependencies struct {
	Client   CatalogClient
	Fetcher  downloader.AssetFetcher
	Store    *storage.Manager
	Recorder RunRecorder
	Logger   logger.Logger
	Progress ProgressFactory
	Output   io.Writer
}

// Scraper orchestrates category resolution and per-category downloads
type Scraper struct {
	config   *config.Config
	client   CatalogClient
	resolver *Resolver
	fetcher  downloader.AssetFetcher
	store    *storage.Manager
	recorder RunRecorder
	progress ProgressFactory
	out      io.Writer
	logger   logger.Logger
}

// New creates a Scraper from cfg
func New(cfg *config.Config, deps Dependencies) (*Scraper, error) {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	client := deps.Client
	if client == nil {
		c := inaturalist.NewClient(&cfg.Catalog, log)
		if cfg.RateLimit.RequestsPerMinute > 0 {
			c.SetLimiter(ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute))
		}
		c.SetRetry(retry.FromSettings(cfg.Retry, log))
		client = c
	}

	store := deps.Store
	if store == nil {
		m, err := storage.NewManager(&cfg.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage manager: %w", err)
		}
		store = m
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		f := downloader.NewFetcher(&cfg.Download, store, log)
		f.SetUserAgent(cfg.Catalog.UserAgent)
		fetcher = f
	}

	out := deps.Output
	if out == nil {
		out = ui.Output()
	}

	progress := deps.Progress
	if progress == nil {
		live := cfg.UI.ProgressEnabled && ui.IsTerminal(os.Stdout)
		progress = func(label string, quota int) Progress {
			return ui.NewProgressDisplay(out, label, quota, live)
		}
	}

	return &Scraper{
		config:   cfg,
		client:   client,
		resolver: NewResolver(client, cfg.Catalog.QualityGrade),
		fetcher:  fetcher,
		store:    store,
		recorder: deps.Recorder,
		progress: progress,
		out:      out,
		logger:   log,
	}, nil
}

// CategoryResult is the outcome of one category
type CategoryResult struct {
	Category       Category
	Rank           int
	Directory      string
	Downloaded     int
	Failed         int
	FailuresByKind map[string]int
	PagesFetched   int
	Exhausted      bool
	StartedAt      time.Time
	FinishedAt     time.Time
}

// RunResult is the outcome of a whole run
type RunResult struct {
	RunID      string
	Categories []CategoryResult
}

// TotalDownloaded sums downloads across categories
func (r *RunResult) TotalDownloaded() int {
	total := 0
	for _, c := range r.Categories {
		total += c.Downloaded
	}
	return total
}

// TotalFailed sums failed assets across categories
func (r *RunResult) TotalFailed() int {
	total := 0
	for _, c := range r.Categories {
		total += c.Failed
	}
	return total
}

// Resolve returns the ranked categories without downloading anything
func (s *Scraper) Resolve(ctx context.Context) ([]Category, error) {
	cat := s.config.Catalog
	return s.resolver.Resolve(ctx, cat.PlaceID, cat.TaxonID, cat.TopN)
}

// Run resolves the categories and downloads up to the quota for each, in
// rank order. Catalog errors end the run and are returned together with
// whatever was completed so far.
func (s *Scraper) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	s.logger.InfoWithFields("Fetching top species", map[string]interface{}{
		"place_id": s.config.Catalog.PlaceID,
		"taxon_id": s.config.Catalog.TaxonID,
		"top_n":    s.config.Catalog.TopN,
	})

	categories, err := s.Resolve(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch top species")
		return result, err
	}

	result.RunID = s.startRun(ctx)
	log := s.logger
	if result.RunID != "" {
		log = log.WithField("run_id", result.RunID)
	}
	ctx = logger.NewContext(ctx, log)

	log.InfoWithFields("Resolved categories", map[string]interface{}{
		"categories": len(categories),
	})
	s.saveLabels(log, categories)

	tracker := ui.NewStatusTracker(len(categories))
	status := ledger.StatusCompleted
	var runErr error

	for i, cat := range categories {
		if err := ctx.Err(); err != nil {
			status, runErr = ledger.StatusCancelled, err
			break
		}

		fmt.Fprintf(s.out, "\n==> %s (ID %d)\n", tracker.Header(cat.SanitizedName()), cat.ID)

		cr, err := s.processCategory(ctx, result.RunID, i, cat)
		if cr != nil {
			result.Categories = append(result.Categories, *cr)
			tracker.CategoryDone(cr.Downloaded)
		}
		if err != nil {
			status, runErr = ledger.StatusFailed, err
			if errors.Is(err, context.Canceled) {
				status = ledger.StatusCancelled
			}
			break
		}
	}

	s.finishRun(result.RunID, status)
	fmt.Fprintln(s.out, "\n"+tracker.Summary())
	log.InfoWithFields("Run finished", map[string]interface{}{
		"status":     status,
		"downloaded": result.TotalDownloaded(),
		"failed":     result.TotalFailed(),
	})

	return result, runErr
}

// categoryRun collects the per-asset outcomes of one category
type categoryRun struct {
	mu       sync.Mutex
	log      logger.Logger
	runID    string
	category Category
	dirName  string
	meta     *metadata.CategoryMetadata
	progress Progress
	failed   int
	byKind   map[string]int
}

func (s *Scraper) processCategory(ctx context.Context, runID string, rank int, cat Category) (*CategoryResult, error) {
	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		"category": cat.Name,
		"taxon_id": cat.ID,
	})
	quota := s.config.Acquisition.Quota
	started := time.Now().UTC()

	dirName := cat.SanitizedName()
	dir, err := s.store.EnsureCategoryDir(dirName)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare directory for %s: %w", cat.Name, err)
	}

	log.Info("Processing category")

	run := &categoryRun{
		log:      log,
		runID:    runID,
		category: cat,
		dirName:  dirName,
		meta: &metadata.CategoryMetadata{
			RunID:        runID,
			TaxonID:      cat.ID,
			Name:         cat.Name,
			Directory:    dirName,
			Rank:         rank,
			Observations: cat.Count,
			Quota:        quota,
			StartedAt:    started,
		},
		progress: s.progress(cat.SanitizedName(), quota),
		byKind:   make(map[string]int),
	}

	walker := NewWalker(s.client, WalkerOptions{
		TaxonID:      cat.ID,
		QualityGrade: s.config.Catalog.QualityGrade,
		PerPage:      s.config.Catalog.PerPage,
		OrderBy:      s.config.Catalog.OrderBy,
		Order:        s.config.Catalog.Order,
	})

	var downloaded int
	if s.config.Download.ConcurrentDownloads > 1 {
		downloaded, err = s.downloadConcurrent(ctx, run, walker, quota)
	} else {
		downloaded, err = s.downloadSequential(ctx, run, walker, quota)
	}
	run.progress.Finish()

	cr := &CategoryResult{
		Category:       cat,
		Rank:           rank,
		Directory:      dirName,
		Downloaded:     downloaded,
		Failed:         run.failed,
		FailuresByKind: run.byKind,
		PagesFetched:   walker.PagesFetched(),
		Exhausted:      walker.Exhausted(),
		StartedAt:      started,
		FinishedAt:     time.Now().UTC(),
	}

	if walker.Exhausted() {
		log.Info("No more results")
	}
	log.InfoWithFields("Category finished", map[string]interface{}{
		"downloaded": cr.Downloaded,
		"failed":     cr.Failed,
		"pages":      cr.PagesFetched,
	})

	s.finishCategory(ctx, log, run, cr, dir)
	return cr, err
}

// downloadSequential fetches assets one at a time. The counter doubles as
// the next file's sequence number, so successes are numbered without gaps.
func (s *Scraper) downloadSequential(ctx context.Context, run *categoryRun, walker *Walker, quota int) (int, error) {
	acq := s.config.Acquisition
	downloaded := 0

	for downloaded < quota {
		run.progress.Page(walker.CurrentPage())
		page, err := walker.Next(ctx)
		if err != nil {
			return downloaded, err
		}
		if page == nil {
			break
		}

		for i := range page.Items {
			for _, asset := range ExtractAssets(&page.Items[i], acq.FromToken, acq.ToToken) {
				if downloaded >= quota {
					break
				}
				if err := ctx.Err(); err != nil {
					return downloaded, err
				}

				dest := s.store.DestinationPath(run.dirName, downloaded)
				res := s.fetcher.Fetch(ctx, asset.URL, dest)
				s.recordResult(ctx, run, asset, downloaded, res)
				if res.OK() {
					downloaded++
				}
			}
		}

		logger.LogCategoryProgress(run.log, run.category.Name, downloaded, quota, page.Number)
	}
	return downloaded, nil
}

// downloadConcurrent feeds assets to a worker pool. A slot is reserved
// before each job is submitted and released when the job fails, so no more
// than quota files are ever written.
func (s *Scraper) downloadConcurrent(ctx context.Context, run *categoryRun, walker *Walker, quota int) (int, error) {
	acq := s.config.Acquisition
	counter := newQuotaCounter(quota)

	pool := downloader.NewWorkerPool(ctx, s.config.Download.ConcurrentDownloads, s.fetcher, run.log)
	run.log.WithField("workers", pool.Size()).Debug("Worker pool started")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for r := range pool.Results() {
			asset := r.Job.Tag.(AssetRef)
			if r.OK() {
				counter.Commit()
			} else {
				counter.Release(r.Job.Sequence)
			}
			s.recordResult(ctx, run, asset, r.Job.Sequence, r.Result)
		}
	}()

	dispatchErr := func() error {
		pending := -1
		defer func() {
			if pending >= 0 {
				counter.Release(pending)
			}
		}()

		for {
			if pending < 0 {
				seq, err := counter.Acquire(ctx)
				if errors.Is(err, errQuotaReached) {
					return nil
				}
				if err != nil {
					return err
				}
				pending = seq
			}

			run.progress.Page(walker.CurrentPage())
			page, err := walker.Next(ctx)
			if err != nil {
				return err
			}
			if page == nil {
				return nil
			}

			for i := range page.Items {
				for _, asset := range ExtractAssets(&page.Items[i], acq.FromToken, acq.ToToken) {
					if pending < 0 {
						seq, err := counter.Acquire(ctx)
						if errors.Is(err, errQuotaReached) {
							return nil
						}
						if err != nil {
							return err
						}
						pending = seq
					}

					job := downloader.Job{
						URL:      asset.URL,
						Dest:     s.store.DestinationPath(run.dirName, pending),
						Sequence: pending,
						Tag:      asset,
					}
					if err := pool.Submit(job); err != nil {
						return err
					}
					pending = -1
				}
			}

			logger.LogCategoryProgress(run.log, run.category.Name, counter.Committed(), quota, page.Number)
		}
	}()

	closeErr := pool.Close()
	wg.Wait()

	if dispatchErr == nil && closeErr != nil && ctx.Err() != nil {
		dispatchErr = ctx.Err()
	}
	return counter.Committed(), dispatchErr
}

// recordResult books one asset outcome in metadata, ledger, progress and log
func (s *Scraper) recordResult(ctx context.Context, run *categoryRun, asset AssetRef, seq int, res downloader.Result) {
	run.mu.Lock()
	defer run.mu.Unlock()

	if res.OK() {
		run.meta.Add(metadata.NewAsset(s.store.FileName(seq), seq, asset.Observation, asset.Photo, asset.URL))
		run.progress.Saved(res.Bytes)
		logger.LogDownload(run.log, run.category.Name, seq, asset.URL, "", nil)

		if s.recorder != nil && run.runID != "" {
			err := s.recorder.RecordDownload(context.WithoutCancel(ctx), run.runID, ledger.DownloadRecord{
				TaxonID:       run.category.ID,
				Sequence:      seq,
				Path:          res.Path,
				SourceURL:     asset.URL,
				ObservationID: asset.Observation.ID,
				PhotoID:       asset.Photo.ID,
				Bytes:         res.Bytes,
			})
			if err != nil {
				run.log.WithError(err).Warn("Failed to record download in ledger")
			}
		}
		return
	}

	kind := res.Kind.String()
	run.failed++
	run.byKind[kind]++
	run.progress.Failed(kind)
	logger.LogDownload(run.log, run.category.Name, seq, asset.URL, kind, res.Err)

	if s.recorder != nil && run.runID != "" {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		err := s.recorder.RecordFailure(context.WithoutCancel(ctx), run.runID, ledger.FailureRecord{
			TaxonID:    run.category.ID,
			URL:        asset.URL,
			Kind:       kind,
			StatusCode: res.StatusCode,
			Error:      errText,
		})
		if err != nil {
			run.log.WithError(err).Warn("Failed to record failure in ledger")
		}
	}
}

func (s *Scraper) finishCategory(ctx context.Context, log logger.Logger, run *categoryRun, cr *CategoryResult, dir string) {
	run.mu.Lock()
	meta := run.meta
	meta.Downloaded = cr.Downloaded
	meta.Failed = cr.Failed
	meta.PagesFetched = cr.PagesFetched
	meta.Exhausted = cr.Exhausted
	meta.FinishedAt = cr.FinishedAt
	meta.SortAssets()
	run.mu.Unlock()

	if s.config.Output.SaveMetadata {
		if err := meta.Save(dir); err != nil {
			log.WithError(err).Warn("Failed to save category metadata")
		} else {
			log.WithField("licenses", meta.LicenseCounts()).Debug("Category metadata saved")
		}
	}

	if s.recorder == nil || run.runID == "" {
		return
	}
	err := s.recorder.RecordCategory(context.WithoutCancel(ctx), run.runID, ledger.CategoryRecord{
		TaxonID:    cr.Category.ID,
		Name:       cr.Category.Name,
		Directory:  cr.Directory,
		Rank:       cr.Rank,
		Downloaded: cr.Downloaded,
		Failed:     cr.Failed,
		Pages:      cr.PagesFetched,
		Exhausted:  cr.Exhausted,
		StartedAt:  cr.StartedAt,
		FinishedAt: cr.FinishedAt,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record category in ledger")
	}
}

func (s *Scraper) startRun(ctx context.Context) string {
	if s.recorder == nil {
		return ""
	}
	runID, err := s.recorder.StartRun(ctx, ledger.RunInfo{
		PlaceID:   s.config.Catalog.PlaceID,
		TaxonID:   s.config.Catalog.TaxonID,
		Quota:     s.config.Acquisition.Quota,
		OutputDir: s.store.Root(),
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to start run in ledger")
		return ""
	}
	return runID
}

func (s *Scraper) finishRun(runID, status string) {
	if s.recorder == nil || runID == "" {
		return
	}
	if err := s.recorder.FinishRun(context.Background(), runID, status); err != nil {
		s.logger.WithError(err).Warn("Failed to finish run in ledger")
	}
}

func (s *Scraper) saveLabels(log logger.Logger, categories []Category) {
	if !s.config.Output.SaveLabels {
		return
	}
	set := labels.NewSet(s.config.Catalog.PlaceID, s.config.Catalog.TaxonID)
	for _, c := range categories {
		set.Add(c.ID, c.Name, c.CommonName, c.SanitizedName(), c.Count)
	}
	if err := set.Save(s.store); err != nil {
		log.WithError(err).Warn("Failed to save class list")
	}
}
