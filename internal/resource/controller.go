package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds the optional limits a Controller enforces.
type Config struct {
	// MaxSearchWorkers bounds how many goroutines search_batch may run
	// concurrently. If 0, defaults to 1 (effectively serial).
	MaxSearchWorkers int64

	// InsertRateLimit caps accepted inserts per second. If 0, unlimited.
	InsertRateLimit int64
}

// Controller bounds search fan-out and insert throughput for a collection.
type Controller struct {
	searchSem     *semaphore.Weighted
	insertLimiter *rate.Limiter
}

// NewController builds a Controller from cfg.
func NewController(cfg Config) *Controller {
	workers := cfg.MaxSearchWorkers
	if workers <= 0 {
		workers = 1
	}
	c := &Controller{searchSem: semaphore.NewWeighted(workers)}
	if cfg.InsertRateLimit > 0 {
		c.insertLimiter = rate.NewLimiter(rate.Limit(cfg.InsertRateLimit), int(cfg.InsertRateLimit))
	}
	return c
}

// AcquireSearch blocks until a search worker slot is available.
func (c *Controller) AcquireSearch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.searchSem.Acquire(ctx, 1)
}

// ReleaseSearch releases a search worker slot acquired via AcquireSearch.
func (c *Controller) ReleaseSearch() {
	if c == nil {
		return
	}
	c.searchSem.Release(1)
}

// WaitInsert blocks until n insert tokens are available, or ctx is done.
func (c *Controller) WaitInsert(ctx context.Context, n int) error {
	if c == nil || c.insertLimiter == nil {
		return nil
	}
	return c.insertLimiter.WaitN(ctx, n)
}
