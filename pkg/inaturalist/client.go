package inaturalist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"inatscraper/pkg/config"
	errs "inatscraper/pkg/errors"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/ratelimit"
	"inatscraper/pkg/retry"
)

// Client talks to the catalog API. Every request waits on the limiter and
// runs under the retry policy.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// NewClient creates a client from the catalog section of the config
func NewClient(cfg *config.CatalogConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:       timeout,
			CheckRedirect: stopAtRedirect,
		},
		headers: map[string]string{
			"User-Agent": cfg.UserAgent,
			"Accept":     "application/json",
		},
		baseURL: cfg.BaseURL,
		limiter: ratelimit.Unlimited{},
		retry:   &retry.Config{MaxAttempts: 1, Logger: log},
		logger:  log,
	}
}

// SetLimiter sets the limiter used to pace requests
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// SetRetry sets the retry policy for catalog calls
func (c *Client) SetRetry(cfg *retry.Config) {
	c.retry = cfg
}

// stopAtRedirect hands 3xx responses back to the caller unfollowed
func stopAtRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// getJSON performs a paced, retried GET and decodes the JSON body into a
// fresh T on every attempt
func getJSON[T any](ctx context.Context, c *Client, url string) (*T, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (*T, error) {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if waited := time.Since(waitStart); waited > 50*time.Millisecond {
			logger.LogRateLimit(c.logger, url, waited)
		}

		var target T
		if err := c.getJSONOnce(ctx, url, &target); err != nil {
			return nil, err
		}
		return &target, nil
	}, c.retry)
}

func (c *Client) getJSONOnce(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.ErrorWithFields("catalog request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, url, resp.StatusCode, time.Since(start))

	// Redirects are not followed, so a 3xx lands here as an error too
	if resp.StatusCode != http.StatusOK {
		if apiErr := errs.FromStatusCode(resp.StatusCode); apiErr != nil {
			return apiErr
		}
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return nil
}

// FetchSpeciesCounts returns taxa ranked by observation count, in the order
// the catalog ranks them
func (c *Client) FetchSpeciesCounts(ctx context.Context, q SpeciesCountsQuery) (*SpeciesCountsResponse, error) {
	url := SpeciesCountsURL(c.baseURL, q)

	c.logger.DebugWithFields("fetching species counts", map[string]interface{}{
		"place_id": q.PlaceID,
		"taxon_id": q.TaxonID,
		"per_page": q.PerPage,
	})

	response, err := getJSON[SpeciesCountsResponse](ctx, c, url)
	if err != nil {
		return nil, fmt.Errorf("species counts: %w", err)
	}
	return response, nil
}

// FetchObservations returns one page of observations
func (c *Client) FetchObservations(ctx context.Context, q ObservationsQuery) (*ObservationsResponse, error) {
	url := ObservationsURL(c.baseURL, q)

	c.logger.DebugWithFields("fetching observations", map[string]interface{}{
		"taxon_id": q.TaxonID,
		"page":     q.Page,
	})

	response, err := getJSON[ObservationsResponse](ctx, c, url)
	if err != nil {
		return nil, fmt.Errorf("observations taxon %d page %d: %w", q.TaxonID, q.Page, err)
	}
	return response, nil
}
