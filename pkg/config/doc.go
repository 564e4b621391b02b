// Package config loads scraper configuration from layered sources.
//
// Sources, highest priority first:
//
//  1. Command line flags (passed to Load as a map keyed by flag name)
//  2. Environment variables prefixed with INATSCRAPER_ (a .env file in the
//     working directory or under $XDG_CONFIG_HOME/inatscraper is read first)
//  3. A YAML configuration file
//  4. DefaultConfig
//
// Example:
//
//	cfg, err := config.Load("", map[string]interface{}{
//	    "quota": 200,
//	    "top":   10,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Environment variables:
//
//	export INATSCRAPER_PLACE_ID=6973
//	export INATSCRAPER_TAXON_ID=50814
//	export INATSCRAPER_QUOTA=500
//	export INATSCRAPER_OUTPUT_DIR=./images
//	export INATSCRAPER_CONCURRENT_DOWNLOADS=1
//	export INATSCRAPER_LOG_LEVEL=debug
package config
