package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"tilefetch/pkg/ui"
)

var (
	// Version information, set with -ldflags at build time
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	verbose    bool
	notify     bool
)

// rootCmd fetches tiles when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "tilefetch",
	Short: "Download satellite tiles for rows of a dataset",
	Long: `tilefetch downloads one Mapbox satellite tile per target row of a
spreadsheet, centered on the row's lat/long columns.

Images are written as <id>.png to a directory or bucket. Ids whose image
already exists are skipped, so an interrupted run simply resumes when
started again.

Features:
  - Retries with exponential backoff on 429 and 5xx responses
  - Fixed pacing between requests and a cooldown after errors
  - Access tokens kept in the system keychain
  - xlsx and csv inputs, local or cloud bucket outputs`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFetch,
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.NewConsole(os.Stderr, false).Error("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./tilefetch.yaml or ~/.config/tilefetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "print only failures and the summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show structured logs next to the console output")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")

	rootCmd.SetVersionTemplate(`tilefetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	addFetchFlags(rootCmd)
}

func newConsole() *ui.Console {
	return ui.NewConsole(os.Stdout, quiet)
}
