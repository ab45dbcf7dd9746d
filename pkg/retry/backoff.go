package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay before retry number attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows the delay by Multiplier on every attempt:
// BaseDelay, BaseDelay*Multiplier, BaseDelay*Multiplier^2 and so on.
type ExponentialBackoff struct {
	BaseDelay time.Duration
	// MaxDelay caps the computed delay, zero means uncapped
	MaxDelay   time.Duration
	Multiplier float64
	// JitterFactor adds up to +/- that fraction of the delay (0.0 to 1.0)
	JitterFactor float64
}

// NewExponentialBackoff returns the doubling schedule used for tile requests:
// factor, 2*factor, 4*factor, capped at maxDelay, without jitter
func NewExponentialBackoff(factor, maxDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  factor,
		MaxDelay:   maxDelay,
		Multiplier: 2.0,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || eb.BaseDelay <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))

	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ConstantBackoff waits the same delay before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
