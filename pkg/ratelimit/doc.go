// Package ratelimit paces requests to the catalog API.
//
// The catalog asks clients to stay around one request per second, so the
// scraper runs every species-count and observation-page call through a
// TokenBucket sized from rate_limit.requests_per_minute. Asset downloads go to
// the media host and are not limited here.
//
//	limiter := ratelimit.PerMinute(60)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
