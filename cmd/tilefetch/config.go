package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tilefetch/pkg/auth"
	"tilefetch/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tilefetch configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TILEFETCH_*, MAPBOX_ACCESS_TOKEN, .env)
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as 'tilefetch.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources.

The access token is masked. With --save the effective configuration is
also written to a file, without the access token.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var saveConfigPath string

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax and value ranges
  - that the rows and targets files exist
  - that the output directory can be created`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configShowCmd.Flags().StringVar(&saveConfigPath, "save", "", "also write the effective configuration to this file")
}

const exampleConfig = `# tilefetch configuration file
#
# Environment variables prefixed with TILEFETCH_ override these values,
# for example TILEFETCH_ZOOM or TILEFETCH_OUTPUT_DIR.

mapbox:
  # Prefer 'tilefetch auth login' or MAPBOX_ACCESS_TOKEN over a token here
  access_token: ""
  # Stored credential profile used when no token is configured
  profile: ""
  base_url: "https://api.mapbox.com"
  style: "mapbox/satellite-v9"
  # Range: 0-22
  zoom: 18
  # Range: 1-1280
  width: 224
  height: 224
  # Request @2x tiles
  high_dpi: false

input:
  # Table with one record per row id (xlsx, xlsm, csv, tsv)
  rows_path: "data/train.xlsx"
  # Worksheet name, empty for the first sheet
  sheet: ""
  lat_column: "lat"
  lon_column: "long"
  # Table listing the row ids to fetch
  targets_path: "high_residual_ids.csv"
  id_column: "id"

output:
  directory: "satellite_images/residual_train"
  # Takes precedence over directory: file://, mem://, s3://, gs://
  bucket_url: ""
  prefix: ""
  # Failed ids are written here, usable as a targets file
  failures_file: ""

download:
  # Timeout of a single attempt
  timeout: 15s
  # Pause after every request
  sleep_time: 250ms
  # Pause after transport, storage or row lookup errors
  error_cooldown: 5s

retry:
  # Range: 0-10
  max_retries: 5
  # exponential: retry n waits backoff_factor * 2^(n-1)
  # constant: every retry waits backoff_factor
  backoff: "exponential"
  backoff_factor: 1s
  max_backoff: 2m
  # Randomize each wait by up to this fraction (0-1)
  jitter: 0
  status_codes: [429, 500, 502, 503, 504]

logging:
  # debug, info, warn, error
  level: "info"
  # JSON log file, empty for console only
  file: ""
`

// writeExampleConfig creates path with the example configuration. It
// refuses to overwrite an existing file.
func writeExampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	console := newConsole()

	path := configFile
	if path == "" {
		path = "tilefetch.yaml"
	}
	if err := writeExampleConfig(path); err != nil {
		return err
	}

	console.Success("Configuration file created: " + path)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Point input.rows_path and input.targets_path at your data")
	fmt.Fprintln(out, "2. Store a token with 'tilefetch auth login'")
	fmt.Fprintln(out, "3. Run 'tilefetch config validate', then 'tilefetch fetch'")
	return nil
}

// maskedConfig returns a copy of cfg that is safe to print
func maskedConfig(cfg *config.Config) config.Config {
	masked := *cfg
	if masked.Mapbox.AccessToken != "" {
		masked.Mapbox.AccessToken = auth.MaskToken(masked.Mapbox.AccessToken)
	}
	return masked
}

// saveEffectiveConfig writes cfg to path with the access token left out
func saveEffectiveConfig(cfg *config.Config, path string) error {
	stripped := *cfg
	stripped.Mapbox.AccessToken = ""
	return stripped.Save(path)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	console := newConsole()

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	masked := maskedConfig(cfg)
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	if saveConfigPath != "" {
		if err := saveEffectiveConfig(cfg, saveConfigPath); err != nil {
			return err
		}
		console.Success("Configuration saved: " + saveConfigPath)
	}

	out := cmd.OutOrStdout()
	console.Highlight("Current Configuration")
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "2. Environment variables (TILEFETCH_*)")
	if configFile != "" {
		fmt.Fprintf(out, "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "3. Configuration file: first of")
		for _, p := range config.SearchPaths() {
			fmt.Fprintf(out, "     %s\n", p)
		}
	}
	fmt.Fprintln(out, "4. Default values")
	return nil
}

// checkConfig reports problems Validate cannot see because they depend on
// the filesystem
func checkConfig(cfg *config.Config) (warnings, problems []string) {
	if cfg.Mapbox.AccessToken == "" {
		warnings = append(warnings, "no access token configured, a stored profile will be needed")
	}
	for _, p := range []string{cfg.Input.RowsPath, cfg.Input.TargetsPath} {
		if _, err := os.Stat(p); err != nil {
			problems = append(problems, fmt.Sprintf("cannot read %s: %v", p, err))
		}
	}
	if cfg.Output.BucketURL == "" {
		if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	return warnings, problems
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	console := newConsole()

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	warnings, problems := checkConfig(cfg)
	if len(problems) > 0 {
		console.Error("Configuration has errors:", nil)
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return fmt.Errorf("%d configuration problem(s)", len(problems))
	}
	if len(warnings) > 0 {
		console.Warning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
		fmt.Fprintln(out)
	}

	console.Success("Configuration is valid")
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Rows:      %s\n", cfg.Input.RowsPath)
	fmt.Fprintf(out, "  Targets:   %s\n", cfg.Input.TargetsPath)
	if cfg.Output.BucketURL != "" {
		fmt.Fprintf(out, "  Output:    %s\n", cfg.Output.BucketURL)
	} else {
		fmt.Fprintf(out, "  Output:    %s\n", cfg.Output.Directory)
	}
	fmt.Fprintf(out, "  Tile:      %s zoom %d %s\n", cfg.Mapbox.Style, cfg.Mapbox.Zoom, cfg.Mapbox.ImageSize())
	fmt.Fprintf(out, "  Pacing:    %s, cooldown %s\n", cfg.Download.SleepTime, cfg.Download.ErrorCooldown)
	fmt.Fprintf(out, "  Retries:   %d, backoff %s up to %s\n", cfg.Retry.MaxRetries, cfg.Retry.BackoffFactor, cfg.Retry.MaxBackoff)
	return nil
}
