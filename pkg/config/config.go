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

// Config holds all configuration options for the tile fetcher
type Config struct {
	// Tile service settings
	Mapbox MapboxConfig `yaml:"mapbox" json:"mapbox"`

	// Tabular inputs
	Input InputConfig `yaml:"input" json:"input"`

	// Where images are written
	Output OutputConfig `yaml:"output" json:"output"`

	// Request pacing and timeouts
	Download DownloadConfig `yaml:"download" json:"download"`

	// Retry policy of the HTTP client
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// MapboxConfig holds static tile endpoint configuration
type MapboxConfig struct {
	AccessToken string `yaml:"access_token" json:"access_token"`
	Profile     string `yaml:"profile" json:"profile"`
	BaseURL     string `yaml:"base_url" json:"base_url"`
	Style       string `yaml:"style" json:"style"`
	Zoom        int    `yaml:"zoom" json:"zoom"`
	Width       int    `yaml:"width" json:"width"`
	Height      int    `yaml:"height" json:"height"`
	HighDPI     bool   `yaml:"high_dpi" json:"high_dpi"`
}

// InputConfig holds the locations and column names of the input tables
type InputConfig struct {
	RowsPath    string `yaml:"rows_path" json:"rows_path"`
	Sheet       string `yaml:"sheet" json:"sheet"`
	LatColumn   string `yaml:"lat_column" json:"lat_column"`
	LonColumn   string `yaml:"lon_column" json:"lon_column"`
	TargetsPath string `yaml:"targets_path" json:"targets_path"`
	IDColumn    string `yaml:"id_column" json:"id_column"`
}

// OutputConfig holds output store configuration. BucketURL takes precedence
// over Directory when set.
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	BucketURL    string `yaml:"bucket_url" json:"bucket_url"`
	Prefix       string `yaml:"prefix" json:"prefix"`
	FailuresFile string `yaml:"failures_file" json:"failures_file"`
}

// DownloadConfig holds per-request settings
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	SleepTime     time.Duration `yaml:"sleep_time" json:"sleep_time"`
	ErrorCooldown time.Duration `yaml:"error_cooldown" json:"error_cooldown"`
}

// RetryConfig holds the retry policy applied by the HTTP client
type RetryConfig struct {
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// Backoff is "exponential" or "constant"
	Backoff       string        `yaml:"backoff" json:"backoff"`
	BackoffFactor time.Duration `yaml:"backoff_factor" json:"backoff_factor"`
	MaxBackoff    time.Duration `yaml:"max_backoff" json:"max_backoff"`
	// Jitter randomizes each wait by up to that fraction
	Jitter      float64 `yaml:"jitter" json:"jitter"`
	StatusCodes []int   `yaml:"status_codes" json:"status_codes"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mapbox: MapboxConfig{
			BaseURL: "https://api.mapbox.com",
			Style:   "mapbox/satellite-v9",
			Zoom:    18,
			Width:   224,
			Height:  224,
		},
		Input: InputConfig{
			RowsPath:    "data/train.xlsx",
			LatColumn:   "lat",
			LonColumn:   "long",
			TargetsPath: "high_residual_ids.csv",
			IDColumn:    "id",
		},
		Output: OutputConfig{
			Directory: "satellite_images/residual_train",
		},
		Download: DownloadConfig{
			Timeout:       15 * time.Second,
			SleepTime:     250 * time.Millisecond,
			ErrorCooldown: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:    5,
			Backoff:       "exponential",
			BackoffFactor: time.Second,
			MaxBackoff:    120 * time.Second,
			StatusCodes:   []int{429, 500, 502, 503, 504},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// MAPBOX_ACCESS_TOKEN is the name Mapbox tooling uses; ours wins
	if token := os.Getenv("MAPBOX_ACCESS_TOKEN"); token != "" {
		c.Mapbox.AccessToken = token
	}
	if token := os.Getenv("TILEFETCH_ACCESS_TOKEN"); token != "" {
		c.Mapbox.AccessToken = token
	}
	if profile := os.Getenv("TILEFETCH_PROFILE"); profile != "" {
		c.Mapbox.Profile = profile
	}
	if baseURL := os.Getenv("TILEFETCH_BASE_URL"); baseURL != "" {
		c.Mapbox.BaseURL = baseURL
	}
	if style := os.Getenv("TILEFETCH_STYLE"); style != "" {
		c.Mapbox.Style = style
	}

	var errs []error

	if zoom := os.Getenv("TILEFETCH_ZOOM"); zoom != "" {
		val, err := strconv.Atoi(zoom)
		if err != nil {
			errs = append(errs, fmt.Errorf("TILEFETCH_ZOOM: %w", err))
		} else {
			c.Mapbox.Zoom = val
		}
	}
	if size := os.Getenv("TILEFETCH_IMAGE_SIZE"); size != "" {
		w, h, err := ParseImageSize(size)
		if err != nil {
			errs = append(errs, fmt.Errorf("TILEFETCH_IMAGE_SIZE: %w", err))
		} else {
			c.Mapbox.Width, c.Mapbox.Height = w, h
		}
	}

	// Inputs and outputs
	if rows := os.Getenv("TILEFETCH_ROWS_PATH"); rows != "" {
		c.Input.RowsPath = rows
	}
	if targets := os.Getenv("TILEFETCH_TARGETS_PATH"); targets != "" {
		c.Input.TargetsPath = targets
	}
	if outputDir := os.Getenv("TILEFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if bucket := os.Getenv("TILEFETCH_BUCKET_URL"); bucket != "" {
		c.Output.BucketURL = bucket
	}

	// Timing
	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"TILEFETCH_TIMEOUT", &c.Download.Timeout},
		{"TILEFETCH_SLEEP_TIME", &c.Download.SleepTime},
		{"TILEFETCH_ERROR_COOLDOWN", &c.Download.ErrorCooldown},
		{"TILEFETCH_BACKOFF_FACTOR", &c.Retry.BackoffFactor},
	}
	for _, d := range durations {
		raw := os.Getenv(d.name)
		if raw == "" {
			continue
		}
		val, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		*d.dst = val
	}

	if retries := os.Getenv("TILEFETCH_MAX_RETRIES"); retries != "" {
		val, err := strconv.Atoi(retries)
		if err != nil {
			errs = append(errs, fmt.Errorf("TILEFETCH_MAX_RETRIES: %w", err))
		} else {
			c.Retry.MaxRetries = val
		}
	}

	// Logging level
	if logLevel := os.Getenv("TILEFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("TILEFETCH_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
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

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	for _, loc := range SearchPaths() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// SearchPaths lists the config file locations in order of precedence
func SearchPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		"tilefetch.yaml",
		"tilefetch.yml",
		".tilefetch.yaml",
		".tilefetch.yml",
		filepath.Join(home, ".config", "tilefetch", "config.yaml"),
		filepath.Join(home, ".config", "tilefetch", "config.yml"),
		filepath.Join(home, ".tilefetch.yaml"),
	}
}

// Validate checks if the configuration is valid. The access token is not
// checked here because it may still come from a stored profile.
func (c *Config) Validate() error {
	var errs []error

	// Tile endpoint
	if c.Mapbox.BaseURL == "" {
		errs = append(errs, errors.New("mapbox base URL is required"))
	}
	if c.Mapbox.Style == "" {
		errs = append(errs, errors.New("mapbox style is required"))
	}
	if c.Mapbox.Zoom < 0 || c.Mapbox.Zoom > 22 {
		errs = append(errs, errors.New("zoom must be between 0 and 22"))
	}
	if c.Mapbox.Width < 1 || c.Mapbox.Width > 1280 || c.Mapbox.Height < 1 || c.Mapbox.Height > 1280 {
		errs = append(errs, errors.New("image width and height must be between 1 and 1280"))
	}

	// Inputs
	if c.Input.RowsPath == "" {
		errs = append(errs, errors.New("rows path is required"))
	}
	if c.Input.TargetsPath == "" {
		errs = append(errs, errors.New("targets path is required"))
	}
	if c.Input.LatColumn == "" || c.Input.LonColumn == "" || c.Input.IDColumn == "" {
		errs = append(errs, errors.New("column names must not be empty"))
	}

	// Output
	if c.Output.Directory == "" && c.Output.BucketURL == "" {
		errs = append(errs, errors.New("output directory or bucket URL is required"))
	}

	// Timing
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Download.SleepTime < 0 {
		errs = append(errs, errors.New("sleep time cannot be negative"))
	}
	if c.Download.ErrorCooldown < 0 {
		errs = append(errs, errors.New("error cooldown cannot be negative"))
	}

	// Retry
	if c.Retry.MaxRetries < 0 || c.Retry.MaxRetries > 10 {
		errs = append(errs, errors.New("max retries must be between 0 and 10"))
	}
	if c.Retry.Backoff != "exponential" && c.Retry.Backoff != "constant" {
		errs = append(errs, fmt.Errorf("unknown backoff %q, want exponential or constant", c.Retry.Backoff))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, errors.New("jitter must be between 0 and 1"))
	}
	if c.Retry.BackoffFactor < 0 {
		errs = append(errs, errors.New("backoff factor cannot be negative"))
	}
	if c.Retry.MaxBackoff < c.Retry.BackoffFactor {
		errs = append(errs, errors.New("max backoff must not be below the backoff factor"))
	}
	for _, code := range c.Retry.StatusCodes {
		if code < 100 || code > 599 {
			errs = append(errs, fmt.Errorf("invalid retry status code %d", code))
		}
	}

	// Logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ImageSize returns the size segment of a static image URL
func (m MapboxConfig) ImageSize() string {
	size := fmt.Sprintf("%dx%d", m.Width, m.Height)
	if m.HighDPI {
		size += "@2x"
	}
	return size
}

// ParseImageSize parses a "WIDTHxHEIGHT" string
func ParseImageSize(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid image size %q, want WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid image width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid image height %q: %w", parts[1], err)
	}
	return w, h, nil
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

	// The file may carry an access token
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) error {
	if token, ok := flags["access-token"].(string); ok && token != "" {
		c.Mapbox.AccessToken = token
	}
	if profile, ok := flags["profile"].(string); ok && profile != "" {
		c.Mapbox.Profile = profile
	}
	if style, ok := flags["style"].(string); ok && style != "" {
		c.Mapbox.Style = style
	}
	if zoom, ok := flags["zoom"].(int); ok {
		c.Mapbox.Zoom = zoom
	}
	if size, ok := flags["size"].(string); ok && size != "" {
		w, h, err := ParseImageSize(size)
		if err != nil {
			return err
		}
		c.Mapbox.Width, c.Mapbox.Height = w, h
	}
	if highDPI, ok := flags["high-dpi"].(bool); ok {
		c.Mapbox.HighDPI = highDPI
	}
	if rows, ok := flags["rows"].(string); ok && rows != "" {
		c.Input.RowsPath = rows
	}
	if sheet, ok := flags["sheet"].(string); ok && sheet != "" {
		c.Input.Sheet = sheet
	}
	if targets, ok := flags["targets"].(string); ok && targets != "" {
		c.Input.TargetsPath = targets
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if bucket, ok := flags["bucket-url"].(string); ok && bucket != "" {
		c.Output.BucketURL = bucket
	}
	if failures, ok := flags["failures-file"].(string); ok && failures != "" {
		c.Output.FailuresFile = failures
	}
	if sleep, ok := flags["sleep"].(time.Duration); ok {
		c.Download.SleepTime = sleep
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok {
		c.Download.Timeout = timeout
	}
	if cooldown, ok := flags["cooldown"].(time.Duration); ok {
		c.Download.ErrorCooldown = cooldown
	}
	if retries, ok := flags["max-retries"].(int); ok {
		c.Retry.MaxRetries = retries
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".tilefetch.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	if err := config.MergeCommandLineFlags(flags); err != nil {
		return nil, fmt.Errorf("invalid command line flags: %w", err)
	}

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
