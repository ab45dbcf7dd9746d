package fetcher

import (
	"context"
	"errors"
	"fmt"

	"tilefetch/internal/downloader"
	"tilefetch/pkg/config"
	"tilefetch/pkg/dataset"
	"tilefetch/pkg/logger"
	"tilefetch/pkg/mapbox"
	"tilefetch/pkg/ratelimit"
	"tilefetch/pkg/retry"
	"tilefetch/pkg/storage"
)

// ErrMissingToken is returned by New when no access token was resolved
var ErrMissingToken = errors.New("mapbox access token is required")

// Fetcher orchestrates one fetch run: it owns the loaded inputs, the output
// store and the loop that ties them to the tile client
type Fetcher struct {
	config  *config.Config
	rows    *dataset.RowTable
	targets []int
	store   storage.Store
	client  *mapbox.Client
	loop    *downloader.Loop
	logger  logger.Logger
}

// Option configures a Fetcher
type Option func(*options)

type options struct {
	logger   logger.Logger
	observer downloader.Observer
	doer     mapbox.Doer
}

// WithLogger overrides the global logger
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers console narration for the run
func WithObserver(obs downloader.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithDoer replaces the retrying HTTP client, mostly for tests
func WithDoer(d mapbox.Doer) Option {
	return func(o *options) { o.doer = d }
}

// New loads both input tables, opens the output store and wires the loop.
// Every error returned here is a startup error: nothing was fetched yet.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Fetcher, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.GetLogger()
	}
	log := o.logger

	if cfg.Mapbox.AccessToken == "" {
		return nil, ErrMissingToken
	}

	rows, err := dataset.LoadRowTable(cfg.Input.RowsPath, dataset.RowOptions{
		Sheet:     cfg.Input.Sheet,
		LatColumn: cfg.Input.LatColumn,
		LonColumn: cfg.Input.LonColumn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}
	log.InfoWithFields("Loaded row table", map[string]interface{}{
		"path": cfg.Input.RowsPath,
		"rows": rows.Len(),
	})

	targets, err := dataset.LoadTargetIDs(cfg.Input.TargetsPath, dataset.TargetOptions{
		IDColumn: cfg.Input.IDColumn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}
	log.InfoWithFields("Loaded target ids", map[string]interface{}{
		"path":    cfg.Input.TargetsPath,
		"targets": len(targets),
	})

	store, err := storage.Open(ctx, cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to open output store: %w", err)
	}
	if fs, ok := store.(*storage.FileStore); ok {
		log.InfoWithFields("Opened output directory", map[string]interface{}{
			"dir":      fs.Dir(),
			"existing": fs.Count(),
		})
	} else {
		log.InfoWithFields("Opened output bucket", map[string]interface{}{
			"url":    cfg.Output.BucketURL,
			"prefix": cfg.Output.Prefix,
		})
	}

	tileOpts := mapbox.OptionsFromConfig(cfg.Mapbox)
	doer := o.doer
	if doer == nil {
		doer = retry.NewHTTPClient(retry.NewPolicy(cfg.Retry), retry.ClientOptions{
			Timeout: cfg.Download.Timeout,
			Logger:  log.WithField("component", "http"),
			Redact: func(s string) string {
				return mapbox.RedactToken(s, tileOpts.AccessToken)
			},
		})
	}
	client := mapbox.NewClient(tileOpts, doer, log)

	loopOpts := []downloader.Option{downloader.WithLogger(log)}
	if o.observer != nil {
		loopOpts = append(loopOpts, downloader.WithObserver(o.observer))
	}
	loop := downloader.NewLoop(rows, client, store, ratelimit.NewFixedPacer(cfg.Download), loopOpts...)

	return &Fetcher{
		config:  cfg,
		rows:    rows,
		targets: targets,
		store:   store,
		client:  client,
		loop:    loop,
		logger:  log,
	}, nil
}

// Targets returns the ids the run will visit, in order
func (f *Fetcher) Targets() []int {
	return f.targets
}

// Run walks every target once. Per-id failures never abort the run; the
// returned error only reports a failures file that could not be written.
func (f *Fetcher) Run(ctx context.Context) (downloader.Summary, error) {
	logger.LogComponentStart("fetcher", map[string]interface{}{
		"targets": len(f.targets),
		"zoom":    f.config.Mapbox.Zoom,
		"size":    f.config.Mapbox.ImageSize(),
	})

	summary := f.loop.Run(ctx, f.targets)

	reason := "completed"
	if summary.Cancelled {
		reason = "interrupted"
	}
	logger.LogComponentStop("fetcher", reason)

	if path := f.config.Output.FailuresFile; path != "" && len(summary.FailedIDs) > 0 {
		if err := dataset.WriteTargetIDs(path, f.config.Input.IDColumn, summary.FailedIDs); err != nil {
			return summary, fmt.Errorf("failed to write failures file: %w", err)
		}
		f.logger.InfoWithFields("Wrote failed ids", map[string]interface{}{
			"path":  path,
			"count": len(summary.FailedIDs),
		})
	}
	return summary, nil
}

// Close releases the output store
func (f *Fetcher) Close() error {
	return f.store.Close()
}
