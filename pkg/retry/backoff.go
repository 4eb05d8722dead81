package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffStrategy picks the pause after a failed attempt. Attempts count
// from 1; attempt 0 never waits.
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff grows BaseDelay by Multiplier per attempt up to
// MaxDelay, then spreads the result by +/- JitterFactor.
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff is tuned for browser round-trips: 2s, 4s, 8s
// and so on, capped at 30s.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		JitterFactor: 0.2,
	}
}

func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	d := float64(b.BaseDelay)
	for i := 1; i < attempt && d < float64(b.MaxDelay); i++ {
		d *= b.Multiplier
	}
	d = min(d, float64(b.MaxDelay))

	if b.JitterFactor > 0 {
		d *= 1 + b.JitterFactor*(2*rand.Float64()-1)
	}
	return time.Duration(max(d, 0))
}

// ConstantBackoff always waits Delay.
type ConstantBackoff struct {
	Delay time.Duration
}

func (b *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return b.Delay
}

// NewBackoff maps a configured strategy name to a BackoffStrategy. Anything
// other than "constant" is exponential; zero durations keep the defaults.
func NewBackoff(kind string, base, maxDelay time.Duration) BackoffStrategy {
	if kind == "constant" {
		return &ConstantBackoff{Delay: base}
	}
	b := DefaultExponentialBackoff()
	if base > 0 {
		b.BaseDelay = base
	}
	if maxDelay > 0 {
		b.MaxDelay = maxDelay
	}
	return b
}

// Wait sleeps for delay, returning early with ctx's error on cancellation.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
