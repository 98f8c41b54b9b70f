package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the tool reads
const EnvPrefix = "FANFOUDL_"

// Config holds all configuration options for the album crawler
type Config struct {
	// Site layout and request identity
	Site SiteConfig `yaml:"site" json:"site"`

	// Pacing between network operations
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Retry policy for page and photo fetches
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Where photos and run logs go
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Diagnostic logging
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig describes the album site
type SiteConfig struct {
	AlbumPrefix      string            `yaml:"album_prefix" json:"album_prefix"`
	UserAgent        string            `yaml:"user_agent" json:"user_agent"`
	Headers          map[string]string `yaml:"headers" json:"headers"`
	OwnerMarkerClass string            `yaml:"owner_marker_class" json:"owner_marker_class"`
	PhotoClass       string            `yaml:"photo_class" json:"photo_class"`
	FetchTimeout     time.Duration     `yaml:"fetch_timeout" json:"fetch_timeout"`
}

// CrawlConfig holds the jitter ceilings. Each pause is drawn uniformly from [0, ceiling).
type CrawlConfig struct {
	PagePause     time.Duration `yaml:"page_pause" json:"page_pause"`
	DownloadPause time.Duration `yaml:"download_pause" json:"download_pause"`
}

// RetryConfig holds retry configuration for transient fetch failures
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	LogDirectory  string `yaml:"log_directory" json:"log_directory"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// LoggingConfig holds diagnostic logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			AlbumPrefix: "https://fanfou.com/album/",
			UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.131 Safari/537.36",
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
				"Accept-Language": "zh-CN,zh;q=0.9,en-US;q=0.6,en;q=0.5",
				"Cache-Control":   "max-age=0",
			},
			OwnerMarkerClass: "current",
			PhotoClass:       "photo",
			FetchTimeout:     10 * time.Second,
		},
		Crawl: CrawlConfig{
			PagePause:     3 * time.Second,
			DownloadPause: 1 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     10 * time.Second,
			Multiplier:     2.0,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
			LogDirectory:  ".",
		},
		Notifications: NotificationConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if prefix := os.Getenv(EnvPrefix + "ALBUM_PREFIX"); prefix != "" {
		c.Site.AlbumPrefix = prefix
	}
	if userAgent := os.Getenv(EnvPrefix + "USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}

	durations := map[string]*time.Duration{
		"FETCH_TIMEOUT":  &c.Site.FetchTimeout,
		"PAGE_PAUSE":     &c.Crawl.PagePause,
		"DOWNLOAD_PAUSE": &c.Crawl.DownloadPause,
	}
	for name, target := range durations {
		raw := os.Getenv(EnvPrefix + name)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			continue
		}
		*target = d
	}

	if attempts := os.Getenv(EnvPrefix + "MAX_ATTEMPTS"); attempts != "" {
		val, err := strconv.Atoi(attempts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_ATTEMPTS: %w", EnvPrefix, err))
		} else {
			c.Retry.MaxAttempts = val
		}
	}

	if outputDir := os.Getenv(EnvPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logDir := os.Getenv(EnvPrefix + "LOG_DIR"); logDir != "" {
		c.Output.LogDirectory = logDir
	}

	if notifEnabled := os.Getenv(EnvPrefix + "NOTIFICATIONS_ENABLED"); notifEnabled != "" {
		c.Notifications.Enabled = strings.ToLower(notifEnabled) == "true"
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(EnvPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // nothing to load
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

// FindConfigFile searches the standard locations and returns the first hit, or ""
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"fanfoudl.yaml",
		"fanfoudl.yml",
		".fanfoudl.yaml",
		filepath.Join(home, ".config", "fanfoudl", "config.yaml"),
		filepath.Join(home, ".fanfoudl.yaml"),
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

	if c.Site.AlbumPrefix == "" {
		errs = append(errs, errors.New("album prefix is required"))
	} else if !strings.HasSuffix(c.Site.AlbumPrefix, "/") {
		errs = append(errs, errors.New("album prefix must end with '/'"))
	}
	if c.Site.OwnerMarkerClass == "" {
		errs = append(errs, errors.New("owner marker class is required"))
	}
	if c.Site.PhotoClass == "" {
		errs = append(errs, errors.New("photo class is required"))
	}
	if c.Site.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if c.Crawl.PagePause < 0 {
		errs = append(errs, errors.New("page pause cannot be negative"))
	}
	if c.Crawl.DownloadPause < 0 {
		errs = append(errs, errors.New("download pause cannot be negative"))
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		errs = append(errs, errors.New("retry max attempts must be between 1 and 10"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.LogDirectory == "" {
		errs = append(errs, errors.New("log directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys match the long flag names of the crawl command.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logDir, ok := flags["log-dir"].(string); ok && logDir != "" {
		c.Output.LogDirectory = logDir
	}
	if pause, ok := flags["page-pause"].(time.Duration); ok {
		c.Crawl.PagePause = pause
	}
	if pause, ok := flags["download-pause"].(time.Duration); ok {
		c.Crawl.DownloadPause = pause
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Site.FetchTimeout = timeout
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: command line flags > environment variables > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".fanfoudl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
