package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed catalog request on l
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("Catalog request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("Catalog request client error", fields)
	default:
		l.DebugWithFields("Catalog request completed", fields)
	}
}

// LogDownload logs the outcome of a single asset fetch on l.
// kind is the failure classification, empty on success.
func LogDownload(l Logger, category string, sequence int, url string, kind string, err error) {
	entry := l.WithFields(map[string]interface{}{
		"category": category,
		"sequence": sequence,
		"url":      url,
	})

	if kind == "" {
		entry.Debug("Asset saved")
		return
	}
	entry.WithField("kind", kind).WithError(err).Warn("Asset download failed")
}

// LogRateLimit logs rate limiting events
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"action":   "rate_limited",
	}).Debug("Waiting for catalog rate limit")
}

// LogCategoryProgress logs how far a category is towards its quota
func LogCategoryProgress(l Logger, category string, downloaded, quota, page int) {
	percentage := 0.0
	if quota > 0 {
		percentage = float64(downloaded) / float64(quota) * 100
	}

	l.WithFields(map[string]interface{}{
		"category":   category,
		"downloaded": downloaded,
		"quota":      quota,
		"page":       page,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Debug("Category progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }

// contextKey is unexported so only this package can set the logger
type contextKey struct{}

// NewContext returns a context carrying l
func NewContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or the global logger
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok && l != nil {
		return l
	}
	return GetLogger()
}
