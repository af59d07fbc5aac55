package veyra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/veyra-db/veyra/audit"
	"github.com/veyra-db/veyra/internal/hnsw"
	"github.com/veyra-db/veyra/internal/scalar"
	"github.com/veyra-db/veyra/internal/wal"
)

// atomicWriteFile writes data to a temp file in path's directory, fsyncs
// it, then renames it over path so a reader never observes a partial
// write, mirroring the manifest-store's tmp-then-rename idiom.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	if dirF, err := os.Open(dir); err == nil {
		dirF.Sync()
		dirF.Close()
	}
	return nil
}

// Save checkpoints the collection to dir: it writes index.bin,
// metadata.json, and meta.json (each atomically), resets the WAL to just
// its header, and — if configured — archives the snapshot and records an
// audit checkpoint. dir becomes (or remains) the collection's persisted
// directory.
func (c *Collection) Save(ctx context.Context, dir string) error {
	start := time.Now()
	err := c.save(ctx, dir)
	c.opts.metricsCollector.RecordSave(time.Since(start), err)
	c.opts.logger.LogSave(ctx, dir, c.lastPersistedLSN, err)
	return err
}

func (c *Collection) save(ctx context.Context, dir string) error {
	if dir == "" {
		return NewError(InvalidArgument, "save: dir must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WrapError(IoError, "mkdir snapshot dir", err)
	}

	var buf bytes.Buffer
	if err := c.index.Save(&buf); err != nil {
		return WrapError(Internal, "serialize index", err)
	}
	if err := atomicWriteFile(filepath.Join(dir, indexFileName), buf.Bytes()); err != nil {
		return WrapError(IoError, "write index.bin", err)
	}

	c.metaMu.RLock()
	mdCopy := make(map[uint64]scalar.Document, len(c.metadata))
	for id, doc := range c.metadata {
		mdCopy[id] = doc
	}
	c.metaMu.RUnlock()
	if err := writeMetadataFile(dir, mdCopy); err != nil {
		return err
	}

	mf := c.config.toMetaFile(recoveryMeta{
		LastPersistedLSN:  c.lsnCounter,
		LastPersistedTxID: c.txidCounter,
		CleanShutdown:     true,
	})
	if err := writeMetaFile(dir, mf); err != nil {
		return err
	}

	c.lastPersistedLSN = c.lsnCounter
	c.lastPersistedTxID = c.txidCounter
	c.dir = dir

	if c.w != nil {
		if err := c.w.Truncate(); err != nil {
			return WrapError(IoError, "truncate wal", err)
		}
	}

	if c.opts.archiver != nil {
		if err := c.opts.archiver.Archive(ctx, c.name, c.lastPersistedLSN, dir); err != nil {
			c.opts.logger.WarnContext(ctx, "snapshot archive failed", "collection", c.name, "error", err)
		}
	}
	if c.opts.auditSink != nil {
		ck := audit.Checkpoint{
			Collection:        c.name,
			LastPersistedLSN:  c.lastPersistedLSN,
			LastPersistedTxID: c.lastPersistedTxID,
			Timestamp:         time.Now().UnixNano(),
		}
		if err := c.opts.auditSink.RecordCheckpoint(ctx, ck); err != nil {
			c.opts.logger.WarnContext(ctx, "audit checkpoint failed", "collection", c.name, "error", err)
		}
	}
	return nil
}

// LoadCollection reopens a collection previously saved at dir: it parses
// meta.json (failing NotFound if absent), loads index.bin, loads
// metadata.json, then replays any WAL entries with an LSN past the
// snapshot's last_persisted_lsn.
func LoadCollection(dir string, optFns ...Option) (*Collection, error) {
	mf, err := readMetaFile(dir)
	if err != nil {
		return nil, err
	}
	config := mf.toConfig()
	if err := config.validate(); err != nil {
		return nil, err
	}

	opts := applyOptions(optFns)
	c := newCollection(config, opts)
	c.dir = dir
	c.lastPersistedLSN = mf.Recovery.LastPersistedLSN
	c.lastPersistedTxID = mf.Recovery.LastPersistedTxID
	c.lsnCounter = mf.Recovery.LastPersistedLSN
	c.txidCounter = mf.Recovery.LastPersistedTxID

	indexPath := filepath.Join(dir, indexFileName)
	if f, err := os.Open(indexPath); err == nil {
		idx, err := hnsw.Load(f, hnsw.Config{
			Dimension:      config.Dimension,
			Metric:         toHNSWMetric(config.Metric),
			M:              int(config.Index.M),
			EfConstruction: int(config.Index.EfConstruction),
			MaxElements:    int(config.Index.MaxElements),
		})
		f.Close()
		if err != nil {
			return nil, WrapError(Corruption, "load index.bin", err)
		}
		c.index = idx
	} else if !os.IsNotExist(err) {
		return nil, WrapError(IoError, "open index.bin", err)
	}

	md, err := readMetadataFile(dir)
	if err != nil {
		return nil, err
	}
	c.metadata = md

	w, err := wal.Open(filepath.Join(dir, walDirName), wal.Options{Compressor: opts.walCompressor})
	if err != nil {
		return nil, WrapError(IoError, "open wal", err)
	}
	c.w = w

	if _, err := w.ReadHeader(); err != nil {
		if errors.Is(err, wal.ErrEof) {
			if err := w.WriteHeader(); err != nil {
				return nil, WrapError(IoError, "write wal header", err)
			}
		} else {
			return nil, WrapError(Corruption, "read wal header", err)
		}
	}

	entries, err := w.ReadAll()
	if err != nil {
		return nil, WrapError(Corruption, "read wal", err)
	}

	replayed, err := c.replay(entries)
	c.opts.logger.LogRecovery(context.Background(), replayed, err)
	if err != nil {
		return nil, err
	}
	c.recoveredFromWAL = replayed > 0
	return c, nil
}

// replay applies WAL entries past the snapshot's last persisted LSN,
// advancing the lsn/txid counters past whatever the log recorded. Only
// INSERT and DELETE are replayed; COMMIT_TXN, ABORT_TXN, UPDATE, and
// BATCH_INSERT carry no index-mutating semantics in this implementation
// (see DESIGN.md).
func (c *Collection) replay(entries []wal.Entry) (int, error) {
	replayed := 0
	for _, e := range entries {
		if e.LSN > c.lsnCounter {
			c.lsnCounter = e.LSN
		}
		if e.TxID > c.txidCounter {
			c.txidCounter = e.TxID
		}
		if e.LSN <= c.lastPersistedLSN {
			continue
		}

		switch e.Op {
		case wal.OpInsert:
			vec, err := wal.DecodeVector(e.Payload, e.Dimension)
			if err != nil {
				return replayed, WrapError(Corruption, "decode wal insert payload", err)
			}
			if err := c.index.Insert(e.VectorID, vec); err != nil && !errors.Is(err, hnsw.ErrAlreadyExists) {
				return replayed, WrapError(Internal, "replay insert", err)
			}
			replayed++
		case wal.OpDelete:
			if err := c.index.MarkDelete(e.VectorID); err != nil && !errors.Is(err, hnsw.ErrNotFound) {
				return replayed, WrapError(Internal, "replay delete", err)
			}
			replayed++
		}
	}
	return replayed, nil
}
