package wal

import (
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Version: CurrentVersion, Flags: 0, CreationTime: 12345}
	buf := h.Encode()
	got, err := DecodeHeader(buf[:])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, h)
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	h := Header{Version: CurrentVersion}
	buf := h.Encode()
	buf[0] ^= 0xFF
	if _, err := DecodeHeader(buf[:]); !errors.Is(err, ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestDecodeHeaderChecksumMismatch(t *testing.T) {
	h := Header{Version: CurrentVersion}
	buf := h.Encode()
	buf[8] ^= 0xFF // mutate creation_time after the CRC was computed
	if _, err := DecodeHeader(buf[:]); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	vec := []float32{1, 2, 3, 4}
	e := Entry{
		Op:        OpInsert,
		LSN:       1,
		TxID:      1,
		VectorID:  42,
		Dimension: uint32(len(vec)),
		Payload:   EncodeVector(vec),
	}
	buf := e.Encode()
	got, n, err := DecodeEntry(buf)
	if err != nil {
		t.Fatalf("DecodeEntry: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if got.LSN != e.LSN || got.TxID != e.TxID || got.VectorID != e.VectorID {
		t.Fatalf("mismatch: %+v vs %+v", got, e)
	}
	decoded, err := DecodeVector(got.Payload, got.Dimension)
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	for i, f := range vec {
		if decoded[i] != f {
			t.Fatalf("vector mismatch at %d: got %v want %v", i, decoded[i], f)
		}
	}
}

func TestDecodeEntryChecksumMismatch(t *testing.T) {
	e := Entry{Op: OpDelete, LSN: 1, TxID: 1, VectorID: 7}
	buf := e.Encode()
	buf[4] ^= 0xFF // mutate LSN after header CRC computed
	if _, _, err := DecodeEntry(buf); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestDecodeEntryBadOpType(t *testing.T) {
	e := Entry{Op: OpDelete, LSN: 1, TxID: 1, VectorID: 7}
	buf := e.Encode()
	order.PutUint16(buf[0:2], 99)
	order.PutUint32(buf[20:24], crc32.ChecksumIEEE(buf[0:20]))
	if _, _, err := DecodeEntry(buf); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("expected ErrBadRecord, got %v", err)
	}
}

func TestDecodeEntryInsertPayloadLengthMismatch(t *testing.T) {
	e := Entry{Op: OpInsert, LSN: 1, TxID: 1, VectorID: 7, Dimension: 4, Payload: EncodeVector([]float32{1, 2, 3, 4})}
	buf := e.Encode()
	// dimension says 4 floats (16 bytes) but payload_length still claims 16;
	// lie about the dimension instead so the two disagree.
	order.PutUint32(buf[36:40], 5)
	if _, _, err := DecodeEntry(buf); !errors.Is(err, ErrBadRecord) {
		t.Fatalf("expected ErrBadRecord, got %v", err)
	}
}

func TestDecodeEntryDeletePayloadLengthNotChecked(t *testing.T) {
	// Delete entries carry no vector, so a zero payload_length against a
	// nonzero dimension field is not a payload_length/dimension mismatch.
	e := Entry{Op: OpDelete, LSN: 1, TxID: 1, VectorID: 7, Dimension: 4}
	buf := e.Encode()
	if _, _, err := DecodeEntry(buf); err != nil {
		t.Fatalf("unexpected error for delete entry: %v", err)
	}
}

func TestWALAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	entries := []Entry{
		{Op: OpInsert, LSN: 1, TxID: 1, VectorID: 1, Dimension: 2, Payload: EncodeVector([]float32{1, 2})},
		{Op: OpInsert, LSN: 2, TxID: 2, VectorID: 2, Dimension: 2, Payload: EncodeVector([]float32{3, 4})},
		{Op: OpDelete, LSN: 3, TxID: 3, VectorID: 1},
	}
	if err := w.AppendBatch(entries); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w2, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()

	got, err := w2.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range got {
		if e.LSN != entries[i].LSN || e.Op != entries[i].Op {
			t.Fatalf("entry %d mismatch: %+v vs %+v", i, e, entries[i])
		}
	}
}

func TestWALReadAllEmptyIsEOF(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()
	if _, err := w.ReadAll(); !errors.Is(err, ErrEof) {
		t.Fatalf("expected ErrEof on empty wal, got %v", err)
	}
}

func TestWALTruncate(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer w.Close()
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := w.AppendBatch([]Entry{{Op: OpInsert, LSN: 1, TxID: 1, VectorID: 1, Dimension: 1, Payload: EncodeVector([]float32{9})}}); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if err := w.Truncate(); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	entries, err := w.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll after truncate: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries after truncate, got %d", len(entries))
	}

	info, err := os.Stat(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != HeaderSize {
		t.Fatalf("expected header-only file of %d bytes, got %d", HeaderSize, info.Size())
	}
}

func TestWALTruncatedTrailingEntryIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	good := Entry{Op: OpInsert, LSN: 1, TxID: 1, VectorID: 1, Dimension: 1, Payload: EncodeVector([]float32{9})}
	if err := w.AppendBatch([]Entry{good}); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(filepath.Join(dir, fileName), os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	w2, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w2.Close()
	entries, err := w2.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll with truncated trailing bytes: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 complete entry, got %d", len(entries))
	}
}
