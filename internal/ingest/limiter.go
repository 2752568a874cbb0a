package ingest

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyLoads is returned when every load slot is occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyLoads = errors.New("too many concurrent loads, try again later")

// DefaultMaxConcurrentLoads bounds parallel bronze loads. A load holds a
// warehouse transaction and the full file in memory for its duration.
const DefaultMaxConcurrentLoads = 4

// DefaultLoadWait is how long a load waits for a slot before rejecting.
const DefaultLoadWait = 30 * time.Second

// loadLimiter restricts how many bronze loads run at once. Callers that
// cannot get a slot within maxWait are rejected rather than queued
// indefinitely.
type loadLimiter struct {
	sem     *semaphore.Weighted
	maxWait time.Duration
}

func newLoadLimiter(maxConcurrent int, maxWait time.Duration) *loadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentLoads
	}
	if maxWait <= 0 {
		maxWait = DefaultLoadWait
	}
	return &loadLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		maxWait: maxWait,
	}
}

// acquire blocks until a slot frees up, the wait times out, or ctx is
// canceled. On success the caller must release exactly once.
func (l *loadLimiter) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyLoads
	}
	return nil
}

func (l *loadLimiter) release() {
	l.sem.Release(1)
}
