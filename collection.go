package veyra

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/veyra-db/veyra/internal/hnsw"
	"github.com/veyra-db/veyra/internal/resource"
	"github.com/veyra-db/veyra/internal/scalar"
	"github.com/veyra-db/veyra/internal/wal"
)

// Hit is one search result: an id, its score under the collection's
// metric, and its metadata document if one was set.
type Hit struct {
	ID       uint64
	Score    float32
	Metadata scalar.Document
}

// InsertRecord is one entry of an insert_batch call.
type InsertRecord struct {
	ID       uint64
	Vector   []float32
	Metadata scalar.Document
}

// InsertResult reports the outcome of a single record within a batch.
type InsertResult struct {
	ID   uint64
	Code Code
}

// BatchInsertResult is the result of insert_batch.
type BatchInsertResult struct {
	Results      []InsertResult
	SuccessCount int
	FailureCount int
}

// Collection is the orchestrator that binds an HNSW index, a
// write-ahead log, and a side metadata table into a crash-consistent
// store: it assigns LSNs/TxIDs, logs mutations before applying them,
// checkpoints to a snapshot directory, and replays the WAL on load.
//
// insert, insert_batch, remove, save, and load are single-writer: callers
// must serialize them (the internal mutex below provides that when a
// single process drives one Collection value). search and search_batch
// may run concurrently with each other and with nothing else.
type Collection struct {
	mu sync.Mutex // serializes insert/insert_batch/remove/save/load

	name   string
	dir    string // "" if this collection is in-memory only
	config CollectionConfig

	index *hnsw.Index
	w     *wal.WAL // nil if dir == ""

	metaMu   sync.RWMutex
	metadata map[uint64]scalar.Document

	lsnCounter        uint64
	txidCounter       uint64
	lastPersistedLSN  uint64
	lastPersistedTxID uint64
	recoveredFromWAL  bool

	opts      options
	resources *resource.Controller
}

// defaultSearchConcurrency mirrors spec's stated default of
// min(hardware_concurrency, 8) when the caller does not set one.
func defaultSearchConcurrency() int64 {
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		n = 8
	}
	return int64(n)
}

func newCollection(config CollectionConfig, opts options) *Collection {
	searchWorkers := opts.searchConcurrency
	if searchWorkers <= 0 {
		searchWorkers = defaultSearchConcurrency()
	}
	return &Collection{
		name:     config.Name,
		config:   config,
		index:    hnsw.New(hnsw.Config{Dimension: config.Dimension, Metric: toHNSWMetric(config.Metric), M: int(config.Index.M), EfConstruction: int(config.Index.EfConstruction), MaxElements: int(config.Index.MaxElements)}),
		metadata: make(map[uint64]scalar.Document),
		opts:     opts,
		resources: resource.NewController(resource.Config{
			MaxSearchWorkers: searchWorkers,
			InsertRateLimit:  opts.insertRateLimit,
		}),
	}
}

// NewCollection builds an in-memory-only collection: nothing is persisted
// unless Save is later called with an explicit directory.
func NewCollection(config CollectionConfig, optFns ...Option) (*Collection, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return newCollection(config, applyOptions(optFns)), nil
}

// CreateCollection builds a collection rooted at dir, opening (and
// initializing) its write-ahead log and writing an initial meta.json, so
// LoadCollection can replay the log even if no Save ever happens. dir must
// not already hold a snapshot; use LoadCollection to reopen one.
func CreateCollection(dir string, config CollectionConfig, optFns ...Option) (*Collection, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	c := newCollection(config, applyOptions(optFns))
	c.dir = dir

	w, err := wal.Open(filepath.Join(dir, walDirName), wal.Options{Compressor: c.opts.walCompressor})
	if err != nil {
		return nil, WrapError(IoError, "open wal", err)
	}
	if err := w.WriteHeader(); err != nil {
		return nil, WrapError(IoError, "write wal header", err)
	}
	if err := writeMetaFile(dir, c.config.toMetaFile(recoveryMeta{})); err != nil {
		w.Close()
		return nil, err
	}
	c.w = w
	return c, nil
}

// Name returns the collection's name.
func (c *Collection) Name() string { return c.name }

// Config returns the collection's immutable configuration.
func (c *Collection) Config() CollectionConfig { return c.config }

// Size returns the index's node count, including tombstoned ones.
func (c *Collection) Size() int { return c.index.Size() }

// DeletedCount returns the number of tombstoned nodes.
func (c *Collection) DeletedCount() int { return c.index.DeletedCount() }

// CurrentLSN returns the next LSN that will be assigned.
func (c *Collection) CurrentLSN() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lsnCounter + 1
}

// CurrentTxID returns the next TxID that will be assigned.
func (c *Collection) CurrentTxID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txidCounter + 1
}

// RecoveredFromWAL reports whether Load replayed at least one post-snapshot
// WAL entry.
func (c *Collection) RecoveredFromWAL() bool { return c.recoveredFromWAL }

// Reserve grows the index's backing storage to hold at least n nodes.
func (c *Collection) Reserve(n int) { c.index.Reserve(n) }

// VectorByID returns the stored (possibly metric-normalized) vector for
// id, and whether it was found.
func (c *Collection) VectorByID(id uint64) ([]float32, bool) {
	return c.index.VectorByID(id)
}

// Stats returns a snapshot of the index's graph shape.
func (c *Collection) Stats() hnsw.Stats { return c.index.Stats() }

// Insert validates, durably logs, then applies a single vector insertion.
func (c *Collection) Insert(ctx context.Context, id uint64, vec []float32, md scalar.Document) error {
	start := time.Now()
	lsn, err := c.insert(ctx, id, vec, md)
	c.opts.metricsCollector.RecordInsert(time.Since(start), err)
	c.opts.logger.LogInsert(ctx, id, lsn, err)
	return err
}

func (c *Collection) insert(ctx context.Context, id uint64, vec []float32, md scalar.Document) (uint64, error) {
	if len(vec) != c.config.Dimension {
		return 0, NewErrorf(DimensionMismatch, "insert: vector has %d dims, collection has %d", len(vec), c.config.Dimension)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.resources.WaitInsert(ctx, 1); err != nil {
		return 0, WrapError(Internal, "insert rate limiter", err)
	}

	lsn := c.lsnCounter + 1
	txid := c.txidCounter + 1

	if c.w != nil {
		entry := wal.Entry{Op: wal.OpInsert, LSN: lsn, TxID: txid, VectorID: id, Dimension: uint32(len(vec)), Payload: wal.EncodeVector(vec)}
		if err := c.w.Append(entry); err != nil {
			// Roll back: counters were never mutated, so there is nothing
			// to undo beyond simply not advancing them.
			return 0, WrapError(IoError, "wal append failed", err)
		}
	}
	c.lsnCounter = lsn
	c.txidCounter = txid

	if err := c.index.Insert(id, vec); err != nil {
		if errors.Is(err, hnsw.ErrAlreadyExists) {
			return lsn, NewErrorf(AlreadyExists, "id %d already exists", id)
		}
		// Dimension was already checked above, so by construction this
		// should not occur; surfaced as Internal per spec, with the WAL
		// left ahead of the index for the next load to reconcile.
		return lsn, WrapError(Internal, "index insert failed", err)
	}

	if len(md) > 0 {
		c.metaMu.Lock()
		c.metadata[id] = md
		c.metaMu.Unlock()
	}
	return lsn, nil
}

// InsertBatch validates dimensions for every record upfront, writes all
// valid entries in one append_batch (a single fsync), then inserts into
// the index per record.
func (c *Collection) InsertBatch(ctx context.Context, records []InsertRecord) (BatchInsertResult, error) {
	start := time.Now()
	res, err := c.insertBatch(ctx, records)
	c.opts.metricsCollector.RecordBatchInsert(len(records), res.FailureCount, time.Since(start))
	c.opts.logger.LogBatchInsert(ctx, len(records), res.FailureCount)
	return res, err
}

func (c *Collection) insertBatch(ctx context.Context, records []InsertRecord) (BatchInsertResult, error) {
	results := make([]InsertResult, len(records))
	var validIdx []int
	for i, r := range records {
		if len(r.Vector) != c.config.Dimension {
			results[i] = InsertResult{ID: r.ID, Code: DimensionMismatch}
			continue
		}
		validIdx = append(validIdx, i)
	}

	if len(validIdx) == 0 {
		return finalizeBatch(results), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.resources.WaitInsert(ctx, len(validIdx)); err != nil {
		return BatchInsertResult{}, WrapError(Internal, "insert rate limiter", err)
	}

	if c.w != nil {
		entries := make([]wal.Entry, 0, len(validIdx))
		lsn, txid := c.lsnCounter, c.txidCounter
		for _, i := range validIdx {
			lsn++
			txid++
			entries = append(entries, wal.Entry{
				Op: wal.OpInsert, LSN: lsn, TxID: txid, VectorID: records[i].ID,
				Dimension: uint32(len(records[i].Vector)), Payload: wal.EncodeVector(records[i].Vector),
			})
		}
		if err := c.w.AppendBatch(entries); err != nil {
			// Atomic across the batch: the counters were never mutated.
			return BatchInsertResult{}, WrapError(IoError, "wal append_batch failed", err)
		}
		c.lsnCounter, c.txidCounter = lsn, txid
	} else {
		c.lsnCounter += uint64(len(validIdx))
		c.txidCounter += uint64(len(validIdx))
	}

	for _, i := range validIdx {
		r := records[i]
		if err := c.index.Insert(r.ID, r.Vector); err != nil {
			code := Internal
			if errors.Is(err, hnsw.ErrAlreadyExists) {
				code = AlreadyExists
			}
			results[i] = InsertResult{ID: r.ID, Code: code}
			continue
		}
		if len(r.Metadata) > 0 {
			c.metaMu.Lock()
			c.metadata[r.ID] = r.Metadata
			c.metaMu.Unlock()
		}
		results[i] = InsertResult{ID: r.ID, Code: Ok}
	}

	return finalizeBatch(results), nil
}

func finalizeBatch(results []InsertResult) BatchInsertResult {
	out := BatchInsertResult{Results: results}
	for _, r := range results {
		if r.Code == Ok {
			out.SuccessCount++
		} else {
			out.FailureCount++
		}
	}
	return out
}

// Remove logs a DELETE entry, marks the id deleted in the index, and
// erases its metadata. Returns NotFound if the id was never inserted.
func (c *Collection) Remove(ctx context.Context, id uint64) error {
	start := time.Now()
	err := c.remove(ctx, id)
	c.opts.metricsCollector.RecordRemove(time.Since(start), err)
	c.opts.logger.LogRemove(ctx, id, err)
	return err
}

func (c *Collection) remove(ctx context.Context, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lsn := c.lsnCounter + 1
	txid := c.txidCounter + 1

	if c.w != nil {
		entry := wal.Entry{Op: wal.OpDelete, LSN: lsn, TxID: txid, VectorID: id}
		if err := c.w.Append(entry); err != nil {
			return WrapError(IoError, "wal append failed", err)
		}
	}
	c.lsnCounter = lsn
	c.txidCounter = txid

	if err := c.index.MarkDelete(id); err != nil {
		if errors.Is(err, hnsw.ErrNotFound) {
			return NewErrorf(NotFound, "id %d not found", id)
		}
		return WrapError(Internal, "mark_delete failed", err)
	}

	c.metaMu.Lock()
	delete(c.metadata, id)
	c.metaMu.Unlock()
	return nil
}

// SetMetadata attaches or replaces md for id. This does not go through the
// WAL (the wire format's op-type enum has no dedicated metadata-mutation
// entry; see DESIGN.md) and so is only durable as of the next Save.
func (c *Collection) SetMetadata(id uint64, md scalar.Document) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	c.metadata[id] = md
}

// Metadata returns id's metadata document, if any.
func (c *Collection) Metadata(id uint64) (scalar.Document, bool) {
	c.metaMu.RLock()
	defer c.metaMu.RUnlock()
	md, ok := c.metadata[id]
	return md, ok
}

// Close persists the collection if it was given a directory, then
// releases its file handles.
func (c *Collection) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	dir := c.dir
	w := c.w
	c.mu.Unlock()

	var firstErr error
	if dir != "" {
		if err := c.Save(context.Background(), dir); err != nil {
			firstErr = err
		}
	}
	if w != nil {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
