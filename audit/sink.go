// Package audit records a purely observational checkpoint trail. A Sink
// is never read back by the orchestrator, so it cannot become a second
// source of truth for recovery.
package audit

import "context"

// Checkpoint is one successful save event.
type Checkpoint struct {
	Collection        string
	LastPersistedLSN  uint64
	LastPersistedTxID uint64
	Timestamp         int64 // unix nanoseconds
}

// Sink records checkpoints to an external store.
type Sink interface {
	RecordCheckpoint(ctx context.Context, c Checkpoint) error
}
