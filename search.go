package veyra

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Search returns up to k nearest neighbors of query, best first, joining
// each hit's metadata document if one was set.
func (c *Collection) Search(ctx context.Context, query []float32, k, ef int) ([]Hit, error) {
	start := time.Now()
	hits, err := c.search(ctx, query, k, ef)
	c.opts.metricsCollector.RecordSearch(k, time.Since(start), err)
	c.opts.logger.LogSearch(ctx, k, len(hits), err)
	return hits, err
}

func (c *Collection) search(ctx context.Context, query []float32, k, ef int) ([]Hit, error) {
	if len(query) != c.config.Dimension {
		return nil, NewErrorf(DimensionMismatch, "search: query has %d dims, collection has %d", len(query), c.config.Dimension)
	}
	if k <= 0 {
		return nil, NewErrorf(InvalidArgument, "search: k must be > 0, got %d", k)
	}

	if err := c.resources.AcquireSearch(ctx); err != nil {
		return nil, WrapError(Internal, "search worker acquire", err)
	}
	defer c.resources.ReleaseSearch()

	results, err := c.index.Search(query, k, ef)
	if err != nil {
		return nil, WrapError(Internal, "index search failed", err)
	}

	hits := make([]Hit, len(results))
	c.metaMu.RLock()
	for i, r := range results {
		hits[i] = Hit{ID: r.ID, Score: r.Score, Metadata: c.metadata[r.ID]}
	}
	c.metaMu.RUnlock()
	return hits, nil
}

// SearchBatch runs one Search per query, with at most SearchConcurrency
// searches running at once (default min(GOMAXPROCS, 8); see
// WithSearchConcurrency).
// The first query to fail aborts the remaining ones and its error is
// returned; queries that already completed are discarded.
func (c *Collection) SearchBatch(ctx context.Context, queries [][]float32, k, ef int) ([][]Hit, error) {
	start := time.Now()
	hits, err := c.searchBatch(ctx, queries, k, ef)
	c.opts.metricsCollector.RecordSearchBatch(len(queries), time.Since(start), err)
	return hits, err
}

func (c *Collection) searchBatch(ctx context.Context, queries [][]float32, k, ef int) ([][]Hit, error) {
	results := make([][]Hit, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			hits, err := c.search(gctx, q, k, ef)
			if err != nil {
				return err
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
