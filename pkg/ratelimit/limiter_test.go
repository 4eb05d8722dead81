package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucket(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	tb := NewTokenBucket(3, time.Minute)
	tb.now = clock.now

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	clock.advance(2*time.Minute + 10*time.Second)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "only two intervals elapsed")

	tb.Reset()
	assert.InDelta(t, 3.0, tb.lim.TokensAt(clock.t), 0.001)
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	assert.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tb.Wait(ctx), context.DeadlineExceeded)
}

func TestSlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	sw := NewSlidingWindow(2, time.Hour)
	sw.now = clock.now

	assert.True(t, sw.Allow())
	clock.advance(10 * time.Minute)
	assert.True(t, sw.Allow())
	assert.False(t, sw.Allow())

	clock.advance(50 * time.Minute)
	assert.True(t, sw.Allow(), "first request left the window")
	assert.False(t, sw.Allow())

	sw.Reset()
	assert.Empty(t, sw.requests)
}

func TestNew(t *testing.T) {
	assert.IsType(t, Unlimited{}, New("token_bucket", 0, 5))
	assert.IsType(t, &SlidingWindow{}, New("sliding_window", 60, 5))

	tb, ok := New("token_bucket", 120, 0).(*TokenBucket)
	if assert.True(t, ok) {
		assert.Equal(t, rate.Every(30*time.Second), tb.lim.Limit())
		assert.Equal(t, 1, tb.lim.Burst())
	}

	assert.NoError(t, Unlimited{}.Wait(context.Background()))
}
