// Package ratelimit caps how many result pages a run may open per hour.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out page slots.
type Limiter interface {
	// Allow takes a slot if one is free
	Allow() bool
	// Wait blocks until a slot is free or ctx ends
	Wait(ctx context.Context) error
	// Reset restores the full budget
	Reset()
}

// New builds the limiter for a pages-per-hour budget. A budget of 0 or less
// means no limit.
func New(strategy string, pagesPerHour, burst int) Limiter {
	switch {
	case pagesPerHour <= 0:
		return Unlimited{}
	case strategy == "sliding_window":
		return NewSlidingWindow(pagesPerHour, time.Hour)
	}
	return NewTokenBucket(max(burst, 1), time.Hour/time.Duration(pagesPerHour))
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenBucket starts with capacity slots and regains one every interval.
type TokenBucket struct {
	mu       sync.Mutex
	lim      *rate.Limiter
	capacity int
	interval time.Duration
	now      func() time.Time
}

func NewTokenBucket(capacity int, interval time.Duration) *TokenBucket {
	return &TokenBucket{
		lim:      rate.NewLimiter(rate.Every(interval), capacity),
		capacity: capacity,
		interval: interval,
		now:      time.Now,
	}
}

func (tb *TokenBucket) limiter() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lim
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter().AllowN(tb.now(), 1)
}

// Wait reserves the next slot and sleeps until it is due. The reservation
// is returned when ctx ends first.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := tb.now()
	r := tb.limiter().ReserveN(now, 1)
	if !r.OK() {
		return errors.New("rate limiter burst is zero")
	}
	if err := sleep(ctx, r.DelayFrom(now)); err != nil {
		r.CancelAt(tb.now())
		return err
	}
	return nil
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.lim = rate.NewLimiter(rate.Every(tb.interval), tb.capacity)
}

// SlidingWindow allows maxRequests within any windowSize span.
type SlidingWindow struct {
	mu          sync.Mutex
	windowSize  time.Duration
	maxRequests int
	// requests holds grant times, oldest first
	requests []time.Time
	now      func() time.Time
}

func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// take grants a slot, or reports how long until the oldest grant expires.
func (sw *SlidingWindow) take() (bool, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	cutoff := now.Add(-sw.windowSize)
	expired := 0
	for expired < len(sw.requests) && !sw.requests[expired].After(cutoff) {
		expired++
	}
	sw.requests = append(sw.requests[:0], sw.requests[expired:]...)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true, 0
	}
	return false, sw.requests[0].Sub(cutoff)
}

func (sw *SlidingWindow) Allow() bool {
	ok, _ := sw.take()
	return ok
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		ok, wait := sw.take()
		if ok {
			return nil
		}
		if err := sleep(ctx, max(wait, 100*time.Millisecond)); err != nil {
			return err
		}
	}
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}
