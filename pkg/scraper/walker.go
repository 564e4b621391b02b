package scraper

import (
	"context"
	"fmt"

	"inatscraper/pkg/inaturalist"
)

// Page is one non-empty page of observations
type Page struct {
	Number int
	Items  []inaturalist.Observation
}

// WalkerOptions are the fixed query parameters of a walk
type WalkerOptions struct {
	TaxonID      int
	QualityGrade string
	PerPage      int
	OrderBy      string
	Order        string
}

// Walker pages through the observations of one taxon. The first empty page
// ends the walk and no further requests are made.
type Walker struct {
	client  CatalogClient
	opts    WalkerOptions
	page    int
	fetched int
	done    bool
}

// NewWalker creates a walker starting at page 1
func NewWalker(client CatalogClient, opts WalkerOptions) *Walker {
	return &Walker{client: client, opts: opts, page: 1}
}

// Next fetches the next page. It returns nil, nil once the source is
// exhausted. Errors leave the walker on the same page.
func (w *Walker) Next(ctx context.Context) (*Page, error) {
	if w.done {
		return nil, nil
	}

	w.fetched++
	resp, err := w.client.FetchObservations(ctx, inaturalist.ObservationsQuery{
		TaxonID:      w.opts.TaxonID,
		QualityGrade: w.opts.QualityGrade,
		PerPage:      w.opts.PerPage,
		Page:         w.page,
		OrderBy:      w.opts.OrderBy,
		Order:        w.opts.Order,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d of taxon %d: %w", w.page, w.opts.TaxonID, err)
	}

	if len(resp.Results) == 0 {
		w.done = true
		return nil, nil
	}

	p := &Page{Number: w.page, Items: resp.Results}
	w.page++
	return p, nil
}

// CurrentPage is the page number the next call to Next requests
func (w *Walker) CurrentPage() int {
	return w.page
}

// PagesFetched counts requests issued, including the final empty page
func (w *Walker) PagesFetched() int {
	return w.fetched
}

// Exhausted reports whether an empty page has been seen
func (w *Walker) Exhausted() bool {
	return w.done
}
