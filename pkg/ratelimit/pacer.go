package ratelimit

import (
	"context"
	"time"

	"tilefetch/pkg/config"
	"tilefetch/pkg/retry"
)

// Pacer spaces out requests to the upstream API. Each waits for its delay
// or until ctx is done, whichever comes first, and returns ctx.Err() in the
// latter case.
type Pacer interface {
	// Pace is the short pause after a completed request
	Pace(ctx context.Context) error
	// Cooldown is the long pause after an unexpected failure
	Cooldown(ctx context.Context) error
}

// FixedPacer waits constant durations
type FixedPacer struct {
	Delay         time.Duration
	CooldownDelay time.Duration
}

// NewFixedPacer builds a pacer from the download settings
func NewFixedPacer(cfg config.DownloadConfig) *FixedPacer {
	return &FixedPacer{
		Delay:         cfg.SleepTime,
		CooldownDelay: cfg.ErrorCooldown,
	}
}

func (p *FixedPacer) Pace(ctx context.Context) error {
	return retry.Wait(ctx, p.Delay)
}

func (p *FixedPacer) Cooldown(ctx context.Context) error {
	return retry.Wait(ctx, p.CooldownDelay)
}
