// Package wal implements the append-only, CRC-protected record stream a
// collection orchestrator logs mutations to before applying them to its
// index. The wire format (record.go) is fixed; this file owns the file
// handle, buffered writes, and the fsync-before-return durability
// guarantee.
package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/veyra-db/veyra/internal/durable"
)

const fileName = "db.wal"

// Options configures an opened WAL.
type Options struct {
	// Compressor transparently compresses entry payloads. Defaults to
	// CompressionNone.
	Compressor Compressor
}

// WAL is a single collection's write-ahead log. Appends are not safe to
// call concurrently (the orchestrator serializes them); ReadAll may be
// called any time nothing is appending.
type WAL struct {
	mu         sync.Mutex
	f          *os.File
	w          *bufio.Writer
	compressor Compressor
	header     Header
}

// Path returns the file path a WAL rooted at dir will use.
func Path(dir string) string { return filepath.Join(dir, fileName) }

// Open ensures dir exists and opens (or creates) dir/db.wal. If the file
// is new, the caller must still call WriteHeader before the first Append.
func Open(dir string, opts Options) (*WAL, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrIoError, dir, err)
	}
	comp := opts.Compressor
	if comp == nil {
		comp = CompressionNone
	}
	f, err := os.OpenFile(Path(dir), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIoError, Path(dir), err)
	}
	return &WAL{f: f, w: bufio.NewWriter(f), compressor: comp}, nil
}

// WriteHeader writes a fresh header at the start of the file (used for a
// brand-new WAL and by Truncate). It seeks to the start and truncates any
// existing content.
func (w *WAL) WriteHeader() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeaderLocked()
}

func (w *WAL) writeHeaderLocked() error {
	h := Header{Version: CurrentVersion, CreationTime: time.Now().UnixNano()}
	buf := h.Encode()

	if err := w.f.Truncate(0); err != nil {
		return fmt.Errorf("%w: truncate: %v", ErrIoError, err)
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek: %v", ErrIoError, err)
	}
	w.w.Reset(w.f)
	if _, err := w.w.Write(buf[:]); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrIoError, err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("%w: flush header: %v", ErrIoError, err)
	}
	if err := durable.Fsync(w.f); err != nil {
		return fmt.Errorf("%w: fsync header: %v", ErrIoError, err)
	}
	w.header = h
	return nil
}

// ReadHeader parses and validates the 24-byte header at the start of the
// file without disturbing the write position.
func (w *WAL) ReadHeader() (Header, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readHeaderLocked()
}

func (w *WAL) readHeaderLocked() (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := w.f.ReadAt(buf, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: empty wal", ErrEof)
		}
		return Header{}, fmt.Errorf("%w: read header: %v", ErrIoError, err)
	}
	h, err := DecodeHeader(buf)
	if err != nil {
		return Header{}, err
	}
	w.header = h
	return h, nil
}

// Append serializes entry, compresses its payload if a Compressor is
// configured, flushes, and fsyncs before returning.
func (w *WAL) Append(entry Entry) error {
	return w.AppendBatch([]Entry{entry})
}

// AppendBatch serializes all entries with a single flush and a single
// fsync, so a batch insert pays for durability once.
func (w *WAL) AppendBatch(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("%w: seek end: %v", ErrIoError, err)
	}
	w.w.Reset(w.f)

	for _, e := range entries {
		if len(e.Payload) > 0 {
			e.Payload = w.compressor.Compress(nil, e.Payload)
		}
		if _, err := w.w.Write(e.Encode()); err != nil {
			return fmt.Errorf("%w: write entry: %v", ErrIoError, err)
		}
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %v", ErrIoError, err)
	}
	if err := durable.Fsync(w.f); err != nil {
		return fmt.Errorf("%w: fsync: %v", ErrIoError, err)
	}
	return nil
}

// ReadAll parses the header then every complete entry following it,
// decompressing payloads as configured. It fails fast on any corruption
// that made forward progress and returns ErrEof on an empty file (one with
// no header). A header-only log yields no entries and no error.
func (w *WAL) ReadAll() ([]Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.readHeaderLocked(); err != nil {
		return nil, err
	}

	rest, err := io.ReadAll(io.NewSectionReader(w.f, HeaderSize, 1<<62))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrIoError, err)
	}

	var entries []Entry
	pos := 0
	for pos < len(rest) {
		e, n, derr := DecodeEntry(rest[pos:])
		if derr != nil {
			if errors.Is(derr, ErrEof) {
				// A short/truncated trailing record: an interrupted
				// write that never reached Append's fsync-and-return,
				// so it is safe to stop without error (forward-progress
				// check: n == 0 here, so looping further would spin).
				break
			}
			return nil, derr
		}
		if len(e.Payload) > 0 {
			plain, derr := w.compressor.Decompress(nil, e.Payload)
			if derr != nil {
				return nil, derr
			}
			e.Payload = plain
		}
		entries = append(entries, e)
		pos += n
	}
	return entries, nil
}

// Truncate rewrites the file to contain just a fresh header, used as a
// checkpoint after a successful snapshot.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeaderLocked()
}

// Close flushes any buffered data and closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("%w: flush on close: %v", ErrIoError, err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrIoError, err)
	}
	return nil
}
