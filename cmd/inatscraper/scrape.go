package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"inatscraper/pkg/ledger"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/scraper"
	"inatscraper/pkg/ui"
)

var (
	placeID         int
	taxonID         int
	topN            int
	quota           int
	perPage         int
	qualityGrade    string
	apiURL          string
	outputDir       string
	concurrent      int
	rateLimit       int
	maxAttempts     int
	downloadTimeout time.Duration
	ledgerPath      string
	noLedger        bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download photos for the most observed species of a taxon",
	Long: `Download research-grade observation photos for the top species of a taxon
observed within a place.

Each species gets its own directory named after its scientific name, holding
files numbered 0000.jpg upwards. Downloads stop once the per-species quota is
met or the catalog runs out of observations.`,
	Example: `  # Mushrooms in Italy, 1000 photos for each of the top 20 species
  inatscraper scrape

  # A quick sample run into a custom directory
  inatscraper scrape --top 3 --quota 25 --output ./sample

  # Birds in California with four concurrent downloads
  inatscraper scrape --place 14 --taxon 3 --concurrent 4`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addCatalogFlags(scrapeCmd)

	scrapeCmd.Flags().IntVar(&quota, "quota", 1000, "maximum photos saved per species")
	scrapeCmd.Flags().IntVar(&perPage, "per-page", 200, "observations requested per page (max 200)")
	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: ./inaturalist_images)")
	scrapeCmd.Flags().IntVar(&concurrent, "concurrent", 1, "number of concurrent downloads")
	scrapeCmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "catalog requests per minute")
	scrapeCmd.Flags().IntVar(&maxAttempts, "max-attempts", 1, "attempts per catalog request")
	scrapeCmd.Flags().DurationVar(&downloadTimeout, "download-timeout", 10*time.Second, "timeout for a single photo download")
	scrapeCmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger database path (default: $XDG_DATA_HOME/inatscraper/ledger.db)")
	scrapeCmd.Flags().BoolVar(&noLedger, "no-ledger", false, "do not record the run in the ledger")
}

// addCatalogFlags registers the flags that select categories
func addCatalogFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&placeID, "place", 6973, "iNaturalist place ID")
	cmd.Flags().IntVar(&taxonID, "taxon", 50814, "iNaturalist taxon ID")
	cmd.Flags().IntVar(&topN, "top", 20, "number of species to process")
	cmd.Flags().StringVar(&qualityGrade, "quality-grade", "research", "observation quality grade")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "catalog API base URL")
}

// changedFlags maps the flags the user set to config.Load keys
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name, key string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[key] = value
		}
	}

	set("place", "place-id", placeID)
	set("taxon", "taxon-id", taxonID)
	set("top", "top", topN)
	set("quality-grade", "quality-grade", qualityGrade)
	set("api-url", "api-url", apiURL)
	set("quota", "quota", quota)
	set("per-page", "per-page", perPage)
	set("output", "output", outputDir)
	set("concurrent", "concurrent", concurrent)
	set("rate-limit", "rate-limit", rateLimit)
	set("max-attempts", "max-attempts", maxAttempts)
	set("download-timeout", "download-timeout", downloadTimeout)
	set("ledger", "ledger", ledgerPath)
	if noLedger {
		flags["ledger-enabled"] = false
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := setup(changedFlags(cmd))
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ui.PrintBanner()
	ui.PrintInfo("Place", strconv.Itoa(cfg.Catalog.PlaceID))
	ui.PrintInfo("Taxon", strconv.Itoa(cfg.Catalog.TaxonID))
	ui.PrintInfo("Species", strconv.Itoa(cfg.Catalog.TopN))
	ui.PrintInfo("Quota", strconv.Itoa(cfg.Acquisition.Quota))
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)

	deps := scraper.Dependencies{Logger: log}
	if cfg.Ledger.Enabled {
		led, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			log.WithError(err).Warn("Ledger unavailable, continuing without it")
			ui.PrintWarning("Ledger unavailable", err)
		} else {
			defer led.Close()
			deps.Recorder = led
		}
	}

	s, err := scraper.New(cfg, deps)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.LogComponentStart("scraper", map[string]interface{}{
		"place_id":   cfg.Catalog.PlaceID,
		"taxon_id":   cfg.Catalog.TaxonID,
		"quota":      cfg.Acquisition.Quota,
		"concurrent": cfg.Download.ConcurrentDownloads,
	})

	result, err := s.Run(ctx)
	if result != nil && result.RunID != "" {
		ui.PrintInfo("Run", result.RunID)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.LogComponentStop("scraper", "interrupted")
			ui.PrintWarning("Interrupted, partial results were kept")
			return err
		}
		logger.LogComponentStop("scraper", "failed")
		return err
	}

	logger.LogComponentStop("scraper", "completed")
	ui.PrintSuccess("Scrape completed")
	return nil
}
