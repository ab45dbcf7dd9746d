package downloader

import (
	"context"
	"time"

	"tilefetch/pkg/dataset"
	errs "tilefetch/pkg/errors"
	"tilefetch/pkg/logger"
	"tilefetch/pkg/ratelimit"
)

// Outcome is the terminal state of one target id
type Outcome string

const (
	OutcomeSaved   Outcome = "saved"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes what happened to one target id
type Result struct {
	ID         int
	Outcome    Outcome
	Coordinate dataset.Coordinate
	// Size is the number of bytes stored, zero unless saved
	Size     int
	Duration time.Duration
	// Err is set when Outcome is OutcomeFailed and is always an *errors.Error
	Err error
}

// Kind returns the failure kind, or "" when the id did not fail
func (r Result) Kind() errs.Kind {
	if r.Outcome != OutcomeFailed {
		return ""
	}
	return errs.KindOf(r.Err)
}

// Summary totals a run
type Summary struct {
	Total     int
	Saved     int
	Skipped   int
	Failed    int
	FailedIDs []int
	// Cancelled is set when the context ended the run early
	Cancelled bool
	Duration  time.Duration
}

// Remaining is the number of ids never reached because of cancellation
func (s Summary) Remaining() int {
	return s.Total - s.Saved - s.Skipped - s.Failed
}

// RowSource resolves a row id to a coordinate
type RowSource interface {
	Lookup(id int) (dataset.Coordinate, error)
}

// TileFetcher downloads the tile centered on a coordinate
type TileFetcher interface {
	FetchTile(ctx context.Context, lon, lat float64) ([]byte, error)
}

// ImageStore persists tiles by id
type ImageStore interface {
	Exists(ctx context.Context, id int) (bool, error)
	Save(ctx context.Context, id int, data []byte) error
	Location(id int) string
}

// Observer is told about progress, for console narration
type Observer interface {
	OnStart(total int)
	OnFetch(id int, c dataset.Coordinate)
	OnResult(r Result, done, total int)
	OnFinish(s Summary)
}

// Loop walks a target list one id at a time
type Loop struct {
	rows     RowSource
	client   TileFetcher
	store    ImageStore
	pacer    ratelimit.Pacer
	observer Observer
	logger   logger.Logger
}

// Option configures a Loop
type Option func(*Loop)

// WithLogger sets the logger, defaulting to the global one
func WithLogger(l logger.Logger) Option {
	return func(loop *Loop) {
		loop.logger = l
	}
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(loop *Loop) {
		loop.observer = o
	}
}

// NewLoop wires the collaborators of a fetch run
func NewLoop(rows RowSource, client TileFetcher, store ImageStore, pacer ratelimit.Pacer, opts ...Option) *Loop {
	l := &Loop{
		rows:   rows,
		client: client,
		store:  store,
		pacer:  pacer,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.GetLogger()
	}
	return l
}

// Process handles a single id: skip it if its artifact exists, otherwise
// resolve its coordinate, fetch the tile and store it. It never pauses.
func (l *Loop) Process(ctx context.Context, id int) Result {
	start := time.Now()
	result := Result{ID: id}
	log := l.logger.WithField("id", id)

	fail := func(err error) Result {
		result.Outcome = OutcomeFailed
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	exists, err := l.store.Exists(ctx, id)
	if err != nil {
		log.WithError(err).Error("Error at index")
		return fail(errs.Storage(id, err))
	}
	if exists {
		log.Debug("Already present, skipping")
		result.Outcome = OutcomeSkipped
		result.Duration = time.Since(start)
		return result
	}

	coord, err := l.rows.Lookup(id)
	if err != nil {
		log.WithError(err).Error("Error at index")
		if errs.KindOf(err) != errs.KindRowLookup {
			err = errs.RowLookup(id, err)
		}
		return fail(err)
	}
	result.Coordinate = coord

	log.InfoWithFields("Fetching index", map[string]interface{}{
		"lat": coord.Lat,
		"lon": coord.Lon,
	})
	if l.observer != nil {
		l.observer.OnFetch(id, coord)
	}

	data, err := l.client.FetchTile(ctx, coord.Lon, coord.Lat)
	if err != nil {
		if errs.KindOf(err) == errs.KindHTTPStatus {
			log.WithField("status", errs.StatusCode(err)).Warn("Failed")
			return fail(withID(err, id))
		}
		log.WithError(err).Error("Error at index")
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.Transport(err)
		}
		return fail(withID(err, id))
	}

	if err := l.store.Save(ctx, id, data); err != nil {
		log.WithError(err).Error("Error at index")
		return fail(errs.Storage(id, err))
	}

	result.Outcome = OutcomeSaved
	result.Size = len(data)
	result.Duration = time.Since(start)
	log.InfoWithFields("Saved", map[string]interface{}{
		"location": l.store.Location(id),
		"bytes":    result.Size,
	})
	return result
}

func withID(err error, id int) error {
	if e, ok := err.(*errs.Error); ok {
		return e.WithID(id)
	}
	return err
}

// Run processes ids in order. Every id that was not skipped is followed by
// one pause: the cooldown after failures that need it, the pacing delay
// otherwise. Run returns early only when ctx is done.
func (l *Loop) Run(ctx context.Context, ids []int) Summary {
	start := time.Now()
	summary := Summary{Total: len(ids)}

	l.logger.InfoWithFields("Fetch loop started", map[string]interface{}{
		"targets": len(ids),
	})
	if l.observer != nil {
		l.observer.OnStart(len(ids))
	}

	for done, id := range ids {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		r := l.Process(ctx, id)
		if r.Outcome == OutcomeFailed && ctx.Err() != nil {
			// interrupted mid request, the id was not really attempted
			summary.Cancelled = true
			break
		}

		switch r.Outcome {
		case OutcomeSaved:
			summary.Saved++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, id)
		}
		if l.observer != nil {
			l.observer.OnResult(r, done+1, len(ids))
		}
		logger.LogProgress(done+1, len(ids))

		if err := l.pause(ctx, r); err != nil {
			summary.Cancelled = true
			break
		}
	}

	summary.Duration = time.Since(start)
	fields := map[string]interface{}{
		"total":    summary.Total,
		"saved":    summary.Saved,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
		"duration": summary.Duration,
	}
	if summary.Cancelled {
		fields["remaining"] = summary.Remaining()
		l.logger.WarnWithFields("Fetch loop interrupted", fields)
	} else {
		l.logger.InfoWithFields("Fetch loop finished", fields)
	}
	if l.observer != nil {
		l.observer.OnFinish(summary)
	}
	return summary
}

func (l *Loop) pause(ctx context.Context, r Result) error {
	switch {
	case r.Outcome == OutcomeSkipped:
		return nil
	case r.Outcome == OutcomeFailed && r.Kind().NeedsCooldown():
		l.logger.WithField("id", r.ID).Debug("Cooling down")
		return l.pacer.Cooldown(ctx)
	default:
		return l.pacer.Pace(ctx)
	}
}
