package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer spaces out consecutive requests to Instagram
type Pacer interface {
	// Next returns the pause that should precede the next request
	Next() time.Duration
	// Wait blocks for the next pause or until ctx is done
	Wait(ctx context.Context) error
}

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// RandomInterval pauses for a uniformly random duration in [Min, Max)
type RandomInterval struct {
	Min time.Duration
	Max time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	sleep SleepFunc
}

// NewRandomInterval creates a pacer that waits between min and max
func NewRandomInterval(min, max time.Duration) *RandomInterval {
	if max < min {
		max = min
	}
	return &RandomInterval{
		Min:   min,
		Max:   max,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: Sleep,
	}
}

// WithSleep replaces the sleep used by Wait
func (r *RandomInterval) WithSleep(sleep SleepFunc) *RandomInterval {
	r.sleep = sleep
	return r
}

// WithSeed makes the sequence of pauses deterministic
func (r *RandomInterval) WithSeed(seed int64) *RandomInterval {
	r.mu.Lock()
	r.rng = rand.New(rand.NewSource(seed))
	r.mu.Unlock()
	return r
}

// Next returns Min plus a random share of the Max-Min spread
func (r *RandomInterval) Next() time.Duration {
	spread := r.Max - r.Min
	if spread <= 0 {
		return r.Min
	}

	r.mu.Lock()
	f := r.rng.Float64()
	r.mu.Unlock()

	return r.Min + time.Duration(f*float64(spread))
}

// Wait sleeps for Next()
func (r *RandomInterval) Wait(ctx context.Context) error {
	return r.sleep(ctx, r.Next())
}

// Sleep waits for d or until ctx is cancelled
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
