package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for XDG directories and env var prefixes
const AppName = "inatscraper"

// EnvPrefix prefixes every environment variable the scraper reads
const EnvPrefix = "INATSCRAPER_"

// Config holds all configuration options for the scraper
type Config struct {
	// Catalog API settings and query filters
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Quota and asset URL rewriting
	Acquisition AcquisitionConfig `yaml:"acquisition" json:"acquisition"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting for catalog requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry policy for catalog requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Run ledger
	Ledger LedgerConfig `yaml:"ledger" json:"ledger"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Terminal output
	UI UIConfig `yaml:"ui" json:"ui"`
}

// CatalogConfig describes which catalog to query and how
type CatalogConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	PlaceID        int           `yaml:"place_id" json:"place_id"`
	TaxonID        int           `yaml:"taxon_id" json:"taxon_id"`
	TopN           int           `yaml:"top_n" json:"top_n"`
	QualityGrade   string        `yaml:"quality_grade" json:"quality_grade"`
	PerPage        int           `yaml:"per_page" json:"per_page"`
	OrderBy        string        `yaml:"order_by" json:"order_by"`
	Order          string        `yaml:"order" json:"order"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// AcquisitionConfig holds the per-category quota and URL token pair
type AcquisitionConfig struct {
	Quota     int    `yaml:"quota" json:"quota"`
	FromToken string `yaml:"from_token" json:"from_token"`
	ToToken   string `yaml:"to_token" json:"to_token"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds the retry policy for catalog requests.
// MaxAttempts of 1 means a failed catalog call is fatal immediately.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	Extension     string `yaml:"extension" json:"extension"`
	AtomicWrites  bool   `yaml:"atomic_writes" json:"atomic_writes"`
	SaveMetadata  bool   `yaml:"save_metadata" json:"save_metadata"`
	SaveLabels    bool   `yaml:"save_labels" json:"save_labels"`
}

// LedgerConfig controls the SQLite run ledger
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// UIConfig holds terminal output preferences
type UIConfig struct {
	ColorEnabled    bool `yaml:"color_enabled" json:"color_enabled"`
	ProgressEnabled bool `yaml:"progress_enabled" json:"progress_enabled"`
}

// DefaultConfig returns a Config instance with sensible defaults.
// The catalog filters default to mushrooms (taxon 50814) observed in Italy (place 6973).
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:        "https://api.inaturalist.org/v1",
			UserAgent:      "inatscraper/1.0",
			PlaceID:        6973,
			TaxonID:        50814,
			TopN:           20,
			QualityGrade:   "research",
			PerPage:        200,
			OrderBy:        "created_at",
			Order:          "desc",
			RequestTimeout: 30 * time.Second,
		},
		Acquisition: AcquisitionConfig{
			Quota:     1000,
			FromToken: "square",
			ToToken:   "original",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 1,
			DownloadTimeout:     10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			MaxAttempts:    1,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		Output: OutputConfig{
			BaseDirectory: "inaturalist_images",
			Extension:     "jpg",
			AtomicWrites:  true,
			SaveMetadata:  true,
			SaveLabels:    true,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    DefaultLedgerPath(),
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		UI: UIConfig{
			ColorEnabled:    true,
			ProgressEnabled: true,
		},
	}
}

// DefaultLedgerPath returns the ledger database location under XDG_DATA_HOME
func DefaultLedgerPath() string {
	return filepath.Join(xdg.DataHome, AppName, "ledger.db")
}

// DefaultConfigPath returns the config file location under XDG_CONFIG_HOME
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(EnvPrefix + "API_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv(EnvPrefix + "USER_AGENT"); v != "" {
		c.Catalog.UserAgent = v
	}
	if v := os.Getenv(EnvPrefix + "QUALITY_GRADE"); v != "" {
		c.Catalog.QualityGrade = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv(EnvPrefix + "LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "LEDGER_ENABLED"); v != "" {
		c.Ledger.Enabled = strings.ToLower(v) == "true"
	}

	ints := []struct {
		name   string
		target *int
	}{
		{"PLACE_ID", &c.Catalog.PlaceID},
		{"TAXON_ID", &c.Catalog.TaxonID},
		{"TOP_N", &c.Catalog.TopN},
		{"PER_PAGE", &c.Catalog.PerPage},
		{"QUOTA", &c.Acquisition.Quota},
		{"CONCURRENT_DOWNLOADS", &c.Download.ConcurrentDownloads},
		{"REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute},
		{"MAX_ATTEMPTS", &c.Retry.MaxAttempts},
	}
	for _, entry := range ints {
		raw := os.Getenv(EnvPrefix + entry.name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, entry.name, err))
			continue
		}
		*entry.target = val
	}

	if raw := os.Getenv(EnvPrefix + "DOWNLOAD_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sDOWNLOAD_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Download.DownloadTimeout = d
		}
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	locations := []string{
		"inatscraper.yaml",
		"inatscraper.yml",
		".inatscraper.yaml",
		".inatscraper.yml",
		DefaultConfigPath(),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Catalog
	if c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog base URL is required"))
	}
	if c.Catalog.TopN < 1 || c.Catalog.TopN > 500 {
		errs = append(errs, errors.New("top_n must be between 1 and 500"))
	}
	if c.Catalog.PerPage < 1 || c.Catalog.PerPage > 200 {
		errs = append(errs, errors.New("per_page must be between 1 and 200"))
	}
	order := strings.ToLower(c.Catalog.Order)
	if order != "asc" && order != "desc" {
		errs = append(errs, errors.New("order must be asc or desc"))
	}
	if c.Catalog.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	// Acquisition
	if c.Acquisition.Quota <= 0 {
		errs = append(errs, errors.New("quota must be positive"))
	}
	if c.Acquisition.FromToken == "" {
		errs = append(errs, errors.New("from_token is required"))
	}

	// Download
	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	// Rate limiting and retry
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max_attempts must be at least 1"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	// Output
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.Extension == "" || strings.ContainsAny(c.Output.Extension, "./\\") {
		errs = append(errs, errors.New("output extension must be a bare suffix such as jpg"))
	}

	// Ledger
	if c.Ledger.Enabled && c.Ledger.Path == "" {
		errs = append(errs, errors.New("ledger path is required when the ledger is enabled"))
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["api-url"].(string); ok && v != "" {
		c.Catalog.BaseURL = v
	}
	if v, ok := flags["place-id"].(int); ok {
		c.Catalog.PlaceID = v
	}
	if v, ok := flags["taxon-id"].(int); ok {
		c.Catalog.TaxonID = v
	}
	if v, ok := flags["top"].(int); ok {
		c.Catalog.TopN = v
	}
	if v, ok := flags["per-page"].(int); ok {
		c.Catalog.PerPage = v
	}
	if v, ok := flags["quality-grade"].(string); ok && v != "" {
		c.Catalog.QualityGrade = v
	}
	if v, ok := flags["quota"].(int); ok {
		c.Acquisition.Quota = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["concurrent"].(int); ok {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["download-timeout"].(time.Duration); ok {
		c.Download.DownloadTimeout = v
	}
	if v, ok := flags["rate-limit"].(int); ok {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["max-attempts"].(int); ok {
		c.Retry.MaxAttempts = v
	}
	if v, ok := flags["ledger"].(string); ok && v != "" {
		c.Ledger.Path = v
	}
	if v, ok := flags["ledger-enabled"].(bool); ok {
		c.Ledger.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.UI.ColorEnabled = false
	}
	if v, ok := flags["no-progress"].(bool); ok && v {
		c.UI.ProgressEnabled = false
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.ConfigHome, AppName, ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if config.Ledger.Path == "" {
		config.Ledger.Path = DefaultLedgerPath()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
