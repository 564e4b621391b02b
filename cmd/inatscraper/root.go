package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"inatscraper/pkg/config"
	"inatscraper/pkg/logger"
	"inatscraper/pkg/ui"
)

var (
	// Version information, set at link time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	noColor    bool
	noProgress bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "inatscraper",
	Short: "Download iNaturalist observation photos for the most observed species",
	Long: `inatscraper builds an image dataset from iNaturalist.

It asks the catalog for the most observed species of a taxon within a place,
then walks the research-grade observations of each species newest first and
downloads full resolution photos until a per-species quota is met.

Features:
  - Quota-bounded downloads with contiguous file numbering
  - Optional concurrent downloads that never exceed the quota
  - Rate limiting for catalog requests
  - Per-photo attribution metadata and a classes.json label list
  - A SQLite ledger of every run, readable with 'inatscraper report'`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		if verbose && logLevel == "" {
			logLevel = "debug"
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./inatscraper.yaml or $XDG_CONFIG_HOME/inatscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable the live progress line")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "shorthand for --log-level debug")

	rootCmd.SetVersionTemplate(`inatscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags in the form config.Load expects
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}
	if noColor {
		flags["no-color"] = true
	}
	if noProgress {
		flags["no-progress"] = true
	}
	return flags
}

// setup loads configuration and initializes logging and terminal output.
// Command specific flags in extra override the global ones.
func setup(extra map[string]interface{}) (*config.Config, error) {
	flags := globalFlags()
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	ui.Configure(&cfg.UI)
	if err := logger.Initialize(&cfg.Logging, logger.Options{NoColor: !cfg.UI.ColorEnabled}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
