// Package inaturalist is a small client for the two read endpoints the
// scraper needs: ranked species counts and paged observations.
//
// Usage:
//
//	client := inaturalist.NewClient(&cfg.Catalog, logger.GetLogger())
//	client.SetLimiter(ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute))
//	client.SetRetry(retry.FromSettings(cfg.Retry, logger.GetLogger()))
//
//	counts, err := client.FetchSpeciesCounts(ctx, inaturalist.SpeciesCountsQuery{
//	    PlaceID:      6973,
//	    TaxonID:      50814,
//	    QualityGrade: "research",
//	    PerPage:      20,
//	})
//
// Failed requests return *errors.Error values so callers can branch on the
// error type. An observations page with no results marks the end of a taxon.
package inaturalist
