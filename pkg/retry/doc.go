// Package retry wraps catalog calls in a bounded retry loop with exponential
// backoff.
//
// The default policy makes a single attempt, so a failed species-count or
// observation-page request surfaces to the caller straight away. Raising
// retry.max_attempts enables backoff for errors the errors package marks
// retryable (network faults, 429 and 5xx responses).
//
//	policy := retry.FromSettings(cfg.Retry, logger.GetLogger())
//	resp, err := retry.DoWithResult(ctx, func(ctx context.Context) (*Response, error) {
//		return fetch(ctx)
//	}, policy)
package retry
