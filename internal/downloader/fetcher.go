// Package downloader fetches image assets to disk, either one at a time
// through a Fetcher or concurrently through a WorkerPool.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"inatscraper/pkg/config"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/storage"
)

// Kind classifies the outcome of a fetch
type Kind int

const (
	KindOK Kind = iota
	KindTransport
	KindStatus
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Result is the outcome of fetching one asset
type Result struct {
	URL        string
	Path       string
	Kind       Kind
	StatusCode int
	Bytes      int64
	Err        error
	Duration   time.Duration
}

// OK reports whether the asset was written to Path
func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Creator opens asset files for writing
type Creator interface {
	Create(dest string) (*storage.File, error)
}

// Fetcher downloads a single URL to a destination path
type Fetcher struct {
	httpClient *http.Client
	store      Creator
	timeout    time.Duration
	userAgent  string
	logger     logger.Logger
}

// NewFetcher creates a fetcher writing through store
func NewFetcher(cfg *config.DownloadConfig, store Creator, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{CheckRedirect: stopAtRedirect},
		store:      store,
		timeout:    timeout,
		logger:     log.WithField("component", "fetcher"),
	}
}

// SetUserAgent sets the User-Agent header sent with asset requests
func (f *Fetcher) SetUserAgent(ua string) {
	f.userAgent = ua
}

// stopAtRedirect returns 3xx responses unfollowed so they fail the 200 check
func stopAtRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// Fetch streams url into dest. Only a 200 response is written; any other
// status, transport fault or disk error is reported in the Result.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) Result {
	start := time.Now()
	res := f.fetch(ctx, url, dest)
	res.Duration = time.Since(start)

	if !res.OK() {
		f.logger.WithFields(map[string]interface{}{
			"url":         url,
			"kind":        res.Kind.String(),
			"status_code": res.StatusCode,
		}).WithError(res.Err).Debug("Fetch failed")
	}
	return res
}

func (f *Fetcher) fetch(ctx context.Context, url, dest string) Result {
	res := Result{URL: url, Path: dest}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Kind = KindTransport
		res.Err = fmt.Errorf("failed to create request: %w", err)
		return res
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		res.Kind = KindTransport
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		res.Kind = KindStatus
		res.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		return res
	}

	file, err := f.store.Create(dest)
	if err != nil {
		res.Kind = KindWrite
		res.Err = err
		return res
	}

	body := &trackingReader{r: resp.Body}
	n, err := file.ReadFrom(body)
	res.Bytes = n
	if err != nil {
		file.Abort()
		if body.err != nil && errors.Is(err, body.err) {
			res.Kind = KindTransport
		} else {
			res.Kind = KindWrite
		}
		res.Err = err
		return res
	}

	if err := file.Commit(); err != nil {
		res.Kind = KindWrite
		res.Err = err
		return res
	}

	res.Kind = KindOK
	return res
}

// trackingReader remembers the last read error so body faults can be told
// apart from disk faults
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
