package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilefetch/pkg/config"
)

func TestNewFixedPacer(t *testing.T) {
	p := NewFixedPacer(config.DefaultConfig().Download)
	assert.Equal(t, 250*time.Millisecond, p.Delay)
	assert.Equal(t, 5*time.Second, p.CooldownDelay)
}

func TestFixedPacerWaits(t *testing.T) {
	p := &FixedPacer{Delay: 20 * time.Millisecond, CooldownDelay: 40 * time.Millisecond}
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, p.Pace(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	start = time.Now()
	require.NoError(t, p.Cooldown(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestFixedPacerCancelled(t *testing.T) {
	p := &FixedPacer{Delay: time.Hour, CooldownDelay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Cooldown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	assert.ErrorIs(t, p.Pace(ctx), context.DeadlineExceeded)
}

func TestFixedPacerZeroDelay(t *testing.T) {
	p := &FixedPacer{}
	assert.NoError(t, p.Pace(context.Background()))
	assert.NoError(t, p.Cooldown(context.Background()))
}
