package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer blocks between network operations
type Pacer interface {
	// Cool waits for a random duration in [0, max). A non-positive max returns at once.
	Cool(ctx context.Context, max time.Duration) error
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Jitter is a Pacer drawing its pauses from a uniform distribution
type Jitter struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep SleepFunc
}

// Option configures a Jitter
type Option func(*Jitter)

// WithSleep replaces the sleep implementation
func WithSleep(fn SleepFunc) Option {
	return func(j *Jitter) { j.sleep = fn }
}

// WithRand replaces the random source
func WithRand(r *rand.Rand) Option {
	return func(j *Jitter) { j.rng = r }
}

// NewJitter creates a Jitter seeded from the clock
func NewJitter(opts ...Option) *Jitter {
	j := &Jitter{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: ContextSleep,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Cool implements Pacer
func (j *Jitter) Cool(ctx context.Context, max time.Duration) error {
	if max <= 0 {
		return ctx.Err()
	}
	return j.sleep(ctx, j.draw(max))
}

func (j *Jitter) draw(max time.Duration) time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rng.Int63n(int64(max)))
}

// ContextSleep sleeps for d, returning early with ctx.Err() on cancellation
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder is a Pacer that records requested ceilings without sleeping
type Recorder struct {
	mu    sync.Mutex
	Calls []time.Duration
}

// Cool records max and returns immediately
func (r *Recorder) Cool(ctx context.Context, max time.Duration) error {
	r.mu.Lock()
	r.Calls = append(r.Calls, max)
	r.mu.Unlock()
	return ctx.Err()
}

// Count returns how many times Cool was called with the given ceiling
func (r *Recorder) Count(max time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c == max {
			n++
		}
	}
	return n
}
