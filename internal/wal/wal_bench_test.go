package wal

import (
	"testing"

	"github.com/klauspost/compress/zstd"
)

func randomVector(dim int, seed uint32) []float32 {
	v := make([]float32, dim)
	x := seed | 1
	for i := range v {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		v[i] = float32(x%1000) / 1000
	}
	return v
}

func BenchmarkWALInsert(b *testing.B) {
	dir := b.TempDir()
	w, err := Open(dir, Options{})
	if err != nil {
		b.Fatalf("Open: %v", err)
	}
	defer w.Close()
	if err := w.WriteHeader(); err != nil {
		b.Fatalf("WriteHeader: %v", err)
	}
	vec := randomVector(128, 1)
	payload := EncodeVector(vec)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; b.Loop(); i++ {
		e := Entry{Op: OpInsert, LSN: uint64(i + 1), TxID: uint64(i + 1), VectorID: uint64(i + 1), Dimension: 128, Payload: payload}
		if err := w.Append(e); err != nil {
			b.Fatalf("Append: %v", err)
		}
	}
}

func BenchmarkWALInsertCompressed(b *testing.B) {
	dir := b.TempDir()
	comp, err := NewZstdCompressor(zstd.SpeedFastest)
	if err != nil {
		b.Fatalf("NewZstdCompressor: %v", err)
	}
	w, err := Open(dir, Options{Compressor: comp})
	if err != nil {
		b.Fatalf("Open: %v", err)
	}
	defer w.Close()
	if err := w.WriteHeader(); err != nil {
		b.Fatalf("WriteHeader: %v", err)
	}
	vec := randomVector(128, 2)
	payload := EncodeVector(vec)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; b.Loop(); i++ {
		e := Entry{Op: OpInsert, LSN: uint64(i + 1), TxID: uint64(i + 1), VectorID: uint64(i + 1), Dimension: 128, Payload: payload}
		if err := w.Append(e); err != nil {
			b.Fatalf("Append: %v", err)
		}
	}
}

func BenchmarkWALBatchInsert(b *testing.B) {
	const batchSize = 100
	dir := b.TempDir()
	w, err := Open(dir, Options{})
	if err != nil {
		b.Fatalf("Open: %v", err)
	}
	defer w.Close()
	if err := w.WriteHeader(); err != nil {
		b.Fatalf("WriteHeader: %v", err)
	}
	payload := EncodeVector(randomVector(128, 3))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; b.Loop(); i++ {
		batch := make([]Entry, batchSize)
		for j := range batch {
			id := uint64(i*batchSize + j + 1)
			batch[j] = Entry{Op: OpInsert, LSN: id, TxID: id, VectorID: id, Dimension: 128, Payload: payload}
		}
		if err := w.AppendBatch(batch); err != nil {
			b.Fatalf("AppendBatch: %v", err)
		}
	}
}

func BenchmarkWALReplay(b *testing.B) {
	dir := b.TempDir()
	w, err := Open(dir, Options{})
	if err != nil {
		b.Fatalf("Open: %v", err)
	}
	if err := w.WriteHeader(); err != nil {
		b.Fatalf("WriteHeader: %v", err)
	}
	payload := EncodeVector(randomVector(128, 4))
	const n = 10000
	batch := make([]Entry, n)
	for i := range batch {
		id := uint64(i + 1)
		batch[i] = Entry{Op: OpInsert, LSN: id, TxID: id, VectorID: id, Dimension: 128, Payload: payload}
	}
	if err := w.AppendBatch(batch); err != nil {
		b.Fatalf("AppendBatch: %v", err)
	}
	if err := w.Close(); err != nil {
		b.Fatalf("Close: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		r, err := Open(dir, Options{})
		if err != nil {
			b.Fatalf("Open: %v", err)
		}
		if _, err := r.ReadAll(); err != nil {
			b.Fatalf("ReadAll: %v", err)
		}
		r.Close()
	}
}
