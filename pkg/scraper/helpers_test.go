package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"inatscraper/internal/downloader"
	"inatscraper/pkg/config"
	"inatscraper/pkg/inaturalist"
	"inatscraper/pkg/logger"
)

// fakeCatalog serves species counts and paged observations. Pages past the
// configured ones come back empty.
type fakeCatalog struct {
	server *httptest.Server

	mu               sync.Mutex
	species          []inaturalist.SpeciesCount
	pages            map[int][][]inaturalist.Observation
	requests         map[int][]int
	speciesQuery     url.Values
	failObservations bool
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{
		pages:    make(map[int][][]inaturalist.Observation),
		requests: make(map[int][]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(inaturalist.SpeciesCountsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		fc.mu.Lock()
		fc.speciesQuery = r.URL.Query()
		resp := inaturalist.SpeciesCountsResponse{
			TotalResults: len(fc.species),
			Page:         1,
			PerPage:      len(fc.species),
			Results:      fc.species,
		}
		fc.mu.Unlock()
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc(inaturalist.ObservationsEndpoint, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		taxon, _ := strconv.Atoi(q.Get("taxon_id"))
		page, _ := strconv.Atoi(q.Get("page"))

		fc.mu.Lock()
		fc.requests[taxon] = append(fc.requests[taxon], page)
		fail := fc.failObservations
		var results []inaturalist.Observation
		if pages := fc.pages[taxon]; page >= 1 && page <= len(pages) {
			results = pages[page-1]
		}
		fc.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if results == nil {
			results = []inaturalist.Observation{}
		}
		json.NewEncoder(w).Encode(inaturalist.ObservationsResponse{
			Page:    page,
			PerPage: len(results),
			Results: results,
		})
	})

	fc.server = httptest.NewServer(mux)
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeCatalog) addSpecies(id int, name, common string, count int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.species = append(fc.species, inaturalist.SpeciesCount{
		Count: count,
		Taxon: inaturalist.Taxon{ID: id, Name: name, Rank: "species", PreferredCommonName: common},
	})
}

// setPages installs observation pages for a taxon; each inner slice gives
// the photo count of one observation
func (fc *fakeCatalog) setPages(taxon int, photoBase string, photosPerObs ...[]int) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	photoID := taxon * 1000
	obsID := taxon * 100
	var pages [][]inaturalist.Observation
	for _, page := range photosPerObs {
		var items []inaturalist.Observation
		for _, n := range page {
			obsID++
			obs := inaturalist.Observation{ID: obsID, QualityGrade: "research"}
			for i := 0; i < n; i++ {
				photoID++
				obs.Photos = append(obs.Photos, inaturalist.Photo{
					ID:          photoID,
					URL:         fmt.Sprintf("%s/photos/%d/square.jpg", photoBase, photoID),
					Attribution: "(c) tester",
					LicenseCode: "cc-by",
				})
			}
			items = append(items, obs)
		}
		pages = append(pages, items)
	}
	fc.pages[taxon] = pages
}

func (fc *fakeCatalog) setFailObservations(fail bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.failObservations = fail
}

func (fc *fakeCatalog) lastSpeciesQuery() url.Values {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.speciesQuery
}

func (fc *fakeCatalog) pagesRequested(taxon int) []int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]int(nil), fc.requests[taxon]...)
}

// fakeFetcher writes the URL into dest unless fail says otherwise
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	fail    func(url string) bool
	onFetch func(n int)
}

func (f *fakeFetcher) Fetch(ctx context.Context, u, dest string) downloader.Result {
	f.mu.Lock()
	f.calls = append(f.calls, u)
	n := len(f.calls)
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(n)
	}
	if f.fail != nil && f.fail(u) {
		return downloader.Result{URL: u, Path: dest, Kind: downloader.KindStatus, StatusCode: 404,
			Err: fmt.Errorf("unexpected status 404")}
	}
	if err := os.WriteFile(dest, []byte(u), 0644); err != nil {
		return downloader.Result{URL: u, Path: dest, Kind: downloader.KindWrite, Err: err}
	}
	return downloader.Result{URL: u, Path: dest, Kind: downloader.KindOK, StatusCode: 200, Bytes: int64(len(u))}
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func testConfig(t *testing.T, catalogURL string, quota int) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Catalog.BaseURL = catalogURL
	cfg.Catalog.TopN = 5
	cfg.Acquisition.Quota = quota
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Ledger.Enabled = false
	cfg.RateLimit.RequestsPerMinute = 0
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, deps Dependencies) *Scraper {
	t.Helper()
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Progress == nil {
		deps.Progress = NoProgress
	}
	if deps.Output == nil {
		deps.Output = io.Discard
	}
	s, err := New(cfg, deps)
	require.NoError(t, err)
	return s
}

// assetFiles lists the image files of a category directory
func assetFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jpg") && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
