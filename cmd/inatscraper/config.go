package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"inatscraper/pkg/config"
	"inatscraper/pkg/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage inatscraper configuration files.

Configuration is merged from, in order of priority:
  - Command line flags
  - Environment variables (INATSCRAPER_*, also read from .env files)
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to ./inatscraper.yaml unless a path is given with --config.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value ranges
  - Output and ledger path accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)

	initCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
}

const exampleConfig = `# inatscraper configuration file
#
# Every option can also be set through environment variables prefixed with
# INATSCRAPER_, for example INATSCRAPER_QUOTA=200 or INATSCRAPER_OUTPUT_DIR.

# Category selection and observation paging
catalog:
  base_url: "https://api.inaturalist.org/v1"
  user_agent: "inatscraper/1.0"

  # Italy
  place_id: 6973
  # Fungi including lichens
  taxon_id: 50814

  # Number of most observed species to process
  top_n: 20

  quality_grade: "research"

  # Observations per page, at most 200
  per_page: 200
  order_by: "created_at"
  order: "desc"
  request_timeout: 30s

# Per-species photo quota and URL rewrite
acquisition:
  quota: 1000
  # Size token replaced in photo URLs to get the full resolution file
  from_token: "square"
  to_token: "original"

download:
  # 1 downloads one photo at a time, in catalog order
  concurrent_downloads: 1
  download_timeout: 10s

# Applies to catalog requests only
rate_limit:
  requests_per_minute: 60

# Retries for catalog requests. 1 means a failing request ends the run.
retry:
  max_attempts: 1
  initial_backoff: 1s
  max_backoff: 30s
  # 1 keeps the delay at initial_backoff
  multiplier: 2.0

output:
  base_directory: "inaturalist_images"
  extension: "jpg"
  # Write to a temporary file and rename once complete
  atomic_writes: true
  # Attribution and license per photo in metadata.json
  save_metadata: true
  # classes.json label list at the output root
  save_labels: true

ledger:
  enabled: true
  # Defaults to $XDG_DATA_HOME/inatscraper/ledger.db
  path: ""

logging:
  # debug, info, warn, error or disabled
  level: "info"
  # Optional JSON log file in addition to the console
  file: ""

ui:
  color_enabled: true
  progress_enabled: true
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "inatscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil && !configForce {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Fprintln(ui.Output(), "\nUse --force to overwrite it.")
		return fmt.Errorf("refusing to overwrite %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	out := ui.Output()
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Edit the place, taxon and quota to match your dataset")
	fmt.Fprintln(out, "2. Run 'inatscraper config validate' to check the configuration")
	fmt.Fprintln(out, "3. Preview the species with 'inatscraper species'")
	fmt.Fprintln(out, "4. Start downloading with 'inatscraper scrape'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		return err
	}
	ui.Configure(&cfg.UI)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := ui.Output()
	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintf(out, "2. Environment variables (%s*)\n", config.EnvPrefix)
	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Fprintf(out, "3. Configuration file: %s\n", source)
	fmt.Fprintln(out, "4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		ui.PrintError("No configuration file found", "Specify a file with --config")
		return fmt.Errorf("no configuration file found")
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err)
		return err
	}

	var warnings, problems []string

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if cfg.Ledger.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Ledger.Path), 0750); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create ledger directory: %v", err))
		}
	} else {
		warnings = append(warnings, "Ledger disabled, 'inatscraper report' will have nothing to show")
	}
	if cfg.Acquisition.ToToken == "" {
		warnings = append(warnings, "to_token is empty, the size token will be removed from photo URLs")
	}
	if cfg.Download.ConcurrentDownloads > 1 {
		warnings = append(warnings, "Concurrent downloads do not preserve catalog order across file numbers")
	}

	out := ui.Output()
	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return fmt.Errorf("configuration has %d error(s)", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
		fmt.Fprintln(out)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Place / taxon:        %d / %d\n", cfg.Catalog.PlaceID, cfg.Catalog.TaxonID)
	fmt.Fprintf(out, "  Species:              %d\n", cfg.Catalog.TopN)
	fmt.Fprintf(out, "  Quota per species:    %d\n", cfg.Acquisition.Quota)
	fmt.Fprintf(out, "  Output directory:     %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(out, "  Concurrent downloads: %d\n", cfg.Download.ConcurrentDownloads)
	fmt.Fprintf(out, "  Rate limit:           %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(out, "  Log level:            %s\n", cfg.Logging.Level)
	return nil
}
