// Package logger provides the structured logging interface used across the
// scraper. It wraps zerolog behind a small Logger interface so packages can
// accept a logger, tests can swap in a TestLogger, and the CLI can configure
// the level and optional log file once at startup.
//
// Basic usage:
//
//	err := logger.Initialize(&cfg.Logging, logger.Options{NoColor: !cfg.UI.ColorEnabled})
//
//	logger.Info("Run started")
//	logger.WithField("category", "Amanita_muscaria").Info("Category done")
//
// Child loggers carry fields:
//
//	log := logger.GetLogger().WithFields(map[string]interface{}{
//	    "component": "walker",
//	    "taxon_id":  48715,
//	})
//	log.Debug("Fetching page")
package logger
