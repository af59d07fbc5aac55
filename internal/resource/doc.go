// Package resource bounds the two concurrency knobs a collection exposes:
// how many worker goroutines a batch search may fan out onto, and how fast
// inserts may be accepted. A zero Config leaves inserts unthrottled and
// allows one search worker at a time.
//
// # Search fan-out
//
//	rc := resource.NewController(resource.Config{MaxSearchWorkers: 8})
//	if err := rc.AcquireSearch(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseSearch()
//
// # Insert throttling
//
//	rc := resource.NewController(resource.Config{InsertRateLimit: 10000})
//	if err := rc.WaitInsert(ctx, 1); err != nil {
//	    return err
//	}
//
// All methods handle a nil Controller gracefully — they become no-ops.
package resource
