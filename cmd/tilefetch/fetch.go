package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/auth"
	"tilefetch/pkg/config"
	"tilefetch/pkg/fetcher"
	"tilefetch/pkg/logger"
	"tilefetch/pkg/ui"
	"tilefetch/pkg/ui/tui"
)

var (
	// Fetch command flags
	accessToken  string
	profile      string
	style        string
	zoom         int
	imageSize    string
	highDPI      bool
	rowsPath     string
	sheet        string
	targetsPath  string
	outputDir    string
	bucketURL    string
	failuresFile string
	sleepTime    time.Duration
	timeout      time.Duration
	cooldown     time.Duration
	maxRetries   int
	useTUI       bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the tile of every target id",
	Long: `Download one satellite tile per target id.

Each id is a 0-based record position in the rows table. Its lat and long
columns give the tile center. Ids whose <id>.png already exists are skipped.

The access token is taken from, in order:
  - the --access-token flag
  - the config file or TILEFETCH_ACCESS_TOKEN / MAPBOX_ACCESS_TOKEN
  - a profile stored with 'tilefetch auth login'`,
	Example: `  # Fetch with the defaults from tilefetch.yaml
  tilefetch fetch

  # Explicit inputs and output
  tilefetch fetch --rows data/train.xlsx --targets ids.csv --output images/

  # Write to a bucket and keep a list of failed ids
  tilefetch fetch --bucket-url s3://my-bucket?region=eu-west-1 --failures-file failed.csv

  # Bigger, high-dpi tiles at a lower zoom
  tilefetch fetch --zoom 17 --size 512x512 --high-dpi`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addFetchFlags(fetchCmd)
}

// addFetchFlags registers the fetch flags on cmd. Root and fetch share them
// so that a bare "tilefetch" behaves like "tilefetch fetch".
func addFetchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&accessToken, "access-token", "", "Mapbox access token")
	flags.StringVarP(&profile, "profile", "p", "", "stored credential profile to use")
	flags.StringVar(&style, "style", "", "Mapbox style id (default mapbox/satellite-v9)")
	flags.IntVarP(&zoom, "zoom", "z", 18, "tile zoom level")
	flags.StringVar(&imageSize, "size", "", "image size as WIDTHxHEIGHT (default 224x224)")
	flags.BoolVar(&highDPI, "high-dpi", false, "request @2x tiles")
	flags.StringVar(&rowsPath, "rows", "", "rows table with lat/long columns (xlsx or csv)")
	flags.StringVar(&sheet, "sheet", "", "worksheet of the rows table (default first sheet)")
	flags.StringVar(&targetsPath, "targets", "", "target id list (csv or xlsx)")
	flags.StringVarP(&outputDir, "output", "o", "", "output directory")
	flags.StringVar(&bucketURL, "bucket-url", "", "output bucket URL (file://, mem://, s3://, gs://)")
	flags.StringVar(&failuresFile, "failures-file", "", "write failed ids to this csv or xlsx file")
	flags.DurationVar(&sleepTime, "sleep", 250*time.Millisecond, "pause after every request")
	flags.DurationVar(&timeout, "timeout", 15*time.Second, "timeout of a single request attempt")
	flags.DurationVar(&cooldown, "cooldown", 5*time.Second, "pause after transport, storage or lookup errors")
	flags.IntVar(&maxRetries, "max-retries", 5, "retries per request on 429 and 5xx")
	flags.BoolVar(&useTUI, "tui", false, "show a full screen progress view")
}

// collectFlags returns the flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects. Unset flags must not override the
// config file or the environment.
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	values := map[string]interface{}{
		"access-token":  accessToken,
		"profile":       profile,
		"style":         style,
		"zoom":          zoom,
		"size":          imageSize,
		"high-dpi":      highDPI,
		"rows":          rowsPath,
		"sheet":         sheet,
		"targets":       targetsPath,
		"output":        outputDir,
		"bucket-url":    bucketURL,
		"failures-file": failuresFile,
		"sleep":         sleepTime,
		"timeout":       timeout,
		"cooldown":      cooldown,
		"max-retries":   maxRetries,
		"log-level":     logLevel,
	}

	flags := make(map[string]interface{})
	for name, value := range values {
		if cmd.Flags().Changed(name) {
			flags[name] = value
		}
	}
	return flags
}

// resolveToken fills in the access token from the credential store when
// neither flags, env nor the config file provided one
func resolveToken(cfg *config.Config, newManager func() (*auth.Manager, error)) (string, error) {
	if cfg.Mapbox.AccessToken != "" {
		return cfg.Mapbox.AccessToken, nil
	}

	manager, err := newManager()
	if err != nil {
		return "", fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var cred *auth.Credential
	if cfg.Mapbox.Profile != "" {
		cred, err = manager.Retrieve(cfg.Mapbox.Profile)
	} else {
		cred, err = manager.RetrieveDefault()
	}
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			return "", fmt.Errorf("no Mapbox access token found, run 'tilefetch auth login' or set MAPBOX_ACCESS_TOKEN: %w", err)
		}
		return "", err
	}

	logger.WithField("profile", cred.Profile).Info("Using stored access token")
	return cred.AccessToken, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	console := newConsole()

	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return err
	}

	// The console narrates the run; structured logs only show up on request
	if !verbose && !cmd.Flags().Changed("log-level") && cfg.Logging.File == "" {
		cfg.Logging.Level = "error"
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.WithField("version", version).Info("tilefetch starting")

	token, err := resolveToken(cfg, auth.NewManager)
	if err != nil {
		return err
	}
	cfg.Mapbox.AccessToken = token

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var observer downloader.Observer = console
	var screen *tui.TUI
	if useTUI {
		screen = tui.NewTUI(stop)
		observer = screen
	}

	f, err := fetcher.New(ctx, cfg, fetcher.WithObserver(observer))
	if err != nil {
		return err
	}
	defer f.Close()

	var summary downloader.Summary
	var runErr error
	if screen != nil {
		summary, runErr = runWithScreen(ctx, stop, screen, f)
		// the alternate screen is gone, keep the summary on the terminal
		console.OnFinish(summary)
	} else {
		summary, runErr = f.Run(ctx)
	}

	if notify {
		if err := ui.NewNotifier().NotifyFinished(summary); err != nil {
			logger.WithError(err).Warn("Failed to send notification")
		}
	}
	if runErr != nil {
		return runErr
	}
	if cfg.Output.FailuresFile != "" && summary.Failed > 0 {
		console.Info("Failed ids written to", cfg.Output.FailuresFile)
	}
	return nil
}

// runWithScreen runs the fetch in the background while the screen owns the
// terminal. Quitting the screen cancels the run.
func runWithScreen(ctx context.Context, cancel context.CancelFunc, screen *tui.TUI, f *fetcher.Fetcher) (downloader.Summary, error) {
	var summary downloader.Summary
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = f.Run(ctx)
		screen.Stop()
	}()

	if err := screen.Start(); err != nil {
		logger.WithError(err).Warn("Progress screen failed")
		cancel()
	}
	<-done
	return summary, runErr
}
