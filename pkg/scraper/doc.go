// Package scraper builds a labeled image dataset from the iNaturalist catalog.
//
// A run resolves the most observed species for a place and parent taxon,
// then walks each species' observations page by page and downloads photos
// until the per-species quota is met or the catalog has nothing more to
// offer.
//
// Architecture:
//
// The Scraper struct coordinates:
//   - the Resolver, which ranks species by observation count
//   - a Walker per species, which pages through observations until an empty page
//   - ExtractAssets, which turns observation photos into full resolution URLs
//   - an asset fetcher, sequential by default or fed through a worker pool
//   - the per-species quota counter and file naming
//   - metadata, class list and ledger bookkeeping
//
// Usage:
//
//	cfg := config.DefaultConfig()
//	s, err := scraper.New(cfg, scraper.Dependencies{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := s.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.TotalDownloaded())
//
// Files are written as <output>/<species>/0000.jpg, 0001.jpg, ... Catalog
// errors end the run; individual asset failures are counted and skipped.
package scraper
