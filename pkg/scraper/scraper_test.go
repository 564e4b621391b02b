package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inatscraper/internal/downloader"
	"inatscraper/pkg/errors"
	"inatscraper/pkg/labels"
	"inatscraper/pkg/ledger"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/metadata"
	"inatscraper/pkg/storage"
)

func TestRunStopsAtQuota(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(48715, "Amanita muscaria", "fly agaric", 900)
	// quota+5 assets over two pages
	fc.setPages(48715, "https://static.test", []int{1, 1}, []int{2, 2, 2})

	cfg := testConfig(t, fc.server.URL, 3)
	fetcher := &fakeFetcher{}
	s := newTestScraper(t, cfg, Dependencies{Fetcher: fetcher})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Categories, 1)

	cr := result.Categories[0]
	assert.Equal(t, 3, cr.Downloaded)
	assert.False(t, cr.Exhausted)
	assert.Equal(t, []int{1, 2}, fc.pagesRequested(48715), "no page is requested once the quota is met")

	assert.Equal(t, []string{
		"https://static.test/photos/48715001/original.jpg",
		"https://static.test/photos/48715002/original.jpg",
		"https://static.test/photos/48715003/original.jpg",
	}, fetcher.Calls())

	dir := filepath.Join(cfg.Output.BaseDirectory, "Amanita_muscaria")
	assert.Equal(t, []string{"0000.jpg", "0001.jpg", "0002.jpg"}, assetFiles(t, dir))
}

func TestRunEmptyPageEndsCategory(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(1, "Boletus edulis", "", 10)
	fc.setPages(1, "https://static.test", []int{1}, []int{1})

	cfg := testConfig(t, fc.server.URL, 100)
	s := newTestScraper(t, cfg, Dependencies{Fetcher: &fakeFetcher{}})

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	cr := result.Categories[0]
	assert.Equal(t, 2, cr.Downloaded)
	assert.True(t, cr.Exhausted)
	assert.Equal(t, 3, cr.PagesFetched)
	assert.Equal(t, []int{1, 2, 3}, fc.pagesRequested(1))
}

func TestRunAlwaysFailingFetcher(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(1, "Russula emetica", "", 10)
	fc.setPages(1, "https://static.test", []int{2, 1}, []int{3})

	cfg := testConfig(t, fc.server.URL, 5)
	fetcher := &fakeFetcher{fail: func(string) bool { return true }}
	s := newTestScraper(t, cfg, Dependencies{Fetcher: fetcher})

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	cr := result.Categories[0]
	assert.Equal(t, 0, cr.Downloaded)
	assert.Equal(t, 6, cr.Failed)
	assert.Equal(t, map[string]int{"status": 6}, cr.FailuresByKind)
	assert.True(t, cr.Exhausted)
	assert.Len(t, fetcher.Calls(), 6)
	assert.Empty(t, assetFiles(t, filepath.Join(cfg.Output.BaseDirectory, "Russula_emetica")))
}

func TestRunLogsOnInjectedLogger(t *testing.T) {
	previous := logger.GetLogger()
	t.Cleanup(func() { logger.SetLogger(previous) })
	global := logger.NewTestLogger()
	logger.SetLogger(global)

	for _, workers := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			global.Clear()
			fc := newFakeCatalog(t)
			fc.addSpecies(2, "Boletus edulis", "", 10)
			fc.setPages(2, "https://static.test", []int{2})

			cfg := testConfig(t, fc.server.URL, 5)
			cfg.Download.ConcurrentDownloads = workers
			injected := logger.NewTestLogger()
			fetcher := &fakeFetcher{fail: func(string) bool { return true }}
			s := newTestScraper(t, cfg, Dependencies{Fetcher: fetcher, Logger: injected})

			_, err := s.Run(context.Background())
			require.NoError(t, err)

			warns := injected.GetMessagesByLevel("WARN")
			require.Len(t, warns, 2)
			assert.Equal(t, "Asset download failed", warns[0].Message)
			assert.Equal(t, "status", warns[0].Fields["kind"])
			assert.Equal(t, "Boletus edulis", warns[0].Fields["category"])
			assert.Empty(t, global.GetMessages())
		})
	}
}

func TestRunLogsLicenseCounts(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(3, "Morchella esculenta", "", 10)
	fc.setPages(3, "https://static.test", []int{3})

	cfg := testConfig(t, fc.server.URL, 2)
	log := logger.NewTestLogger()
	s := newTestScraper(t, cfg, Dependencies{Fetcher: &fakeFetcher{}, Logger: log})

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	var saved []logger.LogMessage
	for _, m := range log.GetMessagesByLevel("DEBUG") {
		if m.Message == "Category metadata saved" {
			saved = append(saved, m)
		}
	}
	require.Len(t, saved, 1)
	assert.Equal(t, map[string]int{"cc-by": 2}, saved[0].Fields["licenses"])
}

func TestRunNumbersSuccessesContiguously(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(7, "Cantharellus cibarius", "golden chanterelle", 10)
	fc.setPages(7, "https://static.test", []int{1, 1, 1, 1, 1, 1})

	cfg := testConfig(t, fc.server.URL, 10)
	fetcher := &fakeFetcher{fail: func(u string) bool {
		return strings.Contains(u, "7002") || strings.Contains(u, "7004")
	}}
	s := newTestScraper(t, cfg, Dependencies{Fetcher: fetcher})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalDownloaded())
	assert.Equal(t, 2, result.TotalFailed())

	dir := filepath.Join(cfg.Output.BaseDirectory, "Cantharellus_cibarius")
	assert.Equal(t, []string{"0000.jpg", "0001.jpg", "0002.jpg", "0003.jpg"}, assetFiles(t, dir))

	data, err := os.ReadFile(filepath.Join(dir, "0001.jpg"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "7003", "failed assets do not consume a file name")

	meta, err := metadata.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, meta.Downloaded)
	assert.Equal(t, 2, meta.Failed)
	require.Len(t, meta.Assets, 4)
	assert.Equal(t, "0003.jpg", meta.Assets[3].File)
	assert.Equal(t, "cc-by", meta.Assets[0].LicenseCode)
}

func TestRunZeroQuotaMakesNoPageRequests(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(1, "Amanita phalloides", "", 10)
	fc.setPages(1, "https://static.test", []int{1})

	cfg := testConfig(t, fc.server.URL, 0)
	fetcher := &fakeFetcher{}
	s := newTestScraper(t, cfg, Dependencies{Fetcher: fetcher})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalDownloaded())
	assert.Empty(t, fc.pagesRequested(1))
	assert.Empty(t, fetcher.Calls())
	assert.DirExists(t, filepath.Join(cfg.Output.BaseDirectory, "Amanita_phalloides"))
}

func TestRunProcessesCategoriesInRankOrder(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(2, "Pleurotus ostreatus", "oyster mushroom", 500)
	fc.addSpecies(1, "Amanita muscaria/var.", "", 400)
	fc.setPages(2, "https://static.test", []int{1})
	fc.setPages(1, "https://static.test", []int{1})

	cfg := testConfig(t, fc.server.URL, 1)
	s := newTestScraper(t, cfg, Dependencies{Fetcher: &fakeFetcher{}})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Categories, 2)
	assert.Equal(t, "Pleurotus_ostreatus", result.Categories[0].Directory)
	assert.Equal(t, "Amanita_muscaria_var.", result.Categories[1].Directory)
	assert.Equal(t, 1, result.Categories[1].Rank)

	m, err := storage.NewManager(&cfg.Output)
	require.NoError(t, err)
	set, err := labels.Load(m)
	require.NoError(t, err)
	require.Len(t, set.Classes, 2)
	assert.Equal(t, "Pleurotus_ostreatus", set.Classes[0].Directory)
	assert.Equal(t, "Amanita_muscaria_var.", set.Classes[1].Directory)
	assert.Equal(t, "Oyster Mushroom", set.Classes[0].DisplayName)
}

func TestRunCatalogErrorsAreFatal(t *testing.T) {
	t.Run("species counts", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		cfg := testConfig(t, srv.URL, 5)
		s := newTestScraper(t, cfg, Dependencies{Fetcher: &fakeFetcher{}})

		result, err := s.Run(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.ErrorTypeServerError, errors.TypeOf(err))
		assert.Empty(t, result.Categories)
	})

	t.Run("observations", func(t *testing.T) {
		fc := newFakeCatalog(t)
		fc.addSpecies(1, "Amanita muscaria", "", 10)
		fc.addSpecies(2, "Boletus edulis", "", 5)
		fc.setFailObservations(true)

		cfg := testConfig(t, fc.server.URL, 5)
		s := newTestScraper(t, cfg, Dependencies{Fetcher: &fakeFetcher{}})

		result, err := s.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page 1 of taxon 1")
		require.Len(t, result.Categories, 1, "the run stops at the failing category")
		assert.Empty(t, fc.pagesRequested(2))
	})
}

func TestRunConcurrentRespectsQuota(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(3, "Macrolepiota procera", "parasol", 100)
	fc.setPages(3, "https://static.test",
		[]int{2, 2, 2, 2}, []int{2, 2, 2, 2}, []int{2, 2, 2, 2})

	cfg := testConfig(t, fc.server.URL, 5)
	cfg.Download.ConcurrentDownloads = 4
	fetcher := &fakeFetcher{fail: func(u string) bool {
		return strings.HasSuffix(u, "1/original.jpg") || strings.HasSuffix(u, "4/original.jpg")
	}}
	s := newTestScraper(t, cfg, Dependencies{Fetcher: fetcher})

	result, err := s.Run(context.Background())
	require.NoError(t, err)

	cr := result.Categories[0]
	assert.Equal(t, 5, cr.Downloaded)

	dir := filepath.Join(cfg.Output.BaseDirectory, "Macrolepiota_procera")
	files := assetFiles(t, dir)
	assert.Len(t, files, 5)

	seen := map[string]bool{}
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.False(t, seen[string(data)], "each file holds a distinct asset")
		seen[string(data)] = true
	}

	meta, err := metadata.Load(dir)
	require.NoError(t, err)
	require.Len(t, meta.Assets, 5)
	for i := 1; i < len(meta.Assets); i++ {
		assert.Less(t, meta.Assets[i-1].Sequence, meta.Assets[i].Sequence)
	}
}

func TestRunWithLedgerAndHTTPFetcher(t *testing.T) {
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/original.jpg") || strings.Contains(r.URL.Path, "/1002/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("image:" + r.URL.Path))
	}))
	defer assets.Close()

	fc := newFakeCatalog(t)
	fc.addSpecies(1, "Amanita muscaria", "fly agaric", 10)
	fc.setPages(1, assets.URL, []int{2, 1})

	cfg := testConfig(t, fc.server.URL, 10)
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer l.Close()

	s := newTestScraper(t, cfg, Dependencies{Recorder: l})

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	assert.Equal(t, 2, result.TotalDownloaded())

	summary, err := l.Summary(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, summary.Run.Status)
	assert.Equal(t, 2, summary.TotalDownloaded())
	assert.Equal(t, map[string]int{"status": 1}, summary.FailuresByKind)
	assert.Positive(t, summary.TotalBytes)
	require.Len(t, summary.Categories, 1)
	assert.True(t, summary.Categories[0].Exhausted)

	dir := filepath.Join(cfg.Output.BaseDirectory, "Amanita_muscaria")
	data, err := os.ReadFile(filepath.Join(dir, "0001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "image:/photos/1003/original.jpg", string(data))
}

func TestRunCancellationIsRecorded(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(1, "Amanita muscaria", "", 10)
	fc.addSpecies(2, "Boletus edulis", "", 10)
	fc.setPages(1, "https://static.test", []int{1, 1, 1, 1})
	fc.setPages(2, "https://static.test", []int{1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t, fc.server.URL, 10)
	fetcher := &fakeFetcher{onFetch: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer l.Close()

	s := newTestScraper(t, cfg, Dependencies{Fetcher: fetcher, Recorder: l})

	result, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, result.Categories, 1)
	assert.Equal(t, 2, result.Categories[0].Downloaded)
	assert.Len(t, fetcher.Calls(), 2)

	run, err := l.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCancelled, run.Status)
}

func TestResolveOnly(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(1, "Amanita muscaria", "fly agaric", 10)

	cfg := testConfig(t, fc.server.URL, 10)
	s := newTestScraper(t, cfg, Dependencies{Fetcher: &fakeFetcher{}})

	cats, err := s.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "fly agaric", cats[0].CommonName)
	assert.Empty(t, fc.pagesRequested(1))
}

func TestProgressEvents(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.addSpecies(1, "Amanita muscaria", "", 10)
	fc.setPages(1, "https://static.test", []int{3})

	rec := &recordingProgress{}
	cfg := testConfig(t, fc.server.URL, 10)
	fetcher := &fakeFetcher{fail: func(u string) bool { return strings.Contains(u, "1002") }}
	s := newTestScraper(t, cfg, Dependencies{
		Fetcher:  fetcher,
		Progress: func(label string, quota int) Progress { rec.label = label; return rec },
	})

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Amanita_muscaria", rec.label)
	assert.Equal(t, []int{1, 2}, rec.pages)
	assert.Equal(t, 2, rec.saved)
	assert.Equal(t, []string{"status"}, rec.failed)
	assert.True(t, rec.finished)
}

type recordingProgress struct {
	label    string
	pages    []int
	saved    int
	failed   []string
	finished bool
}

func (r *recordingProgress) Page(n int)         { r.pages = append(r.pages, n) }
func (r *recordingProgress) Saved(int64)        { r.saved++ }
func (r *recordingProgress) Failed(kind string) { r.failed = append(r.failed, kind) }
func (r *recordingProgress) Finish()            { r.finished = true }

var _ downloader.AssetFetcher = (*fakeFetcher)(nil)

func Example_sanitizeName() {
	fmt.Println(SanitizeName("Amanita muscaria/var."))
	// Output: Amanita_muscaria_var.
}
