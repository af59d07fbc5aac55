package wal

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor transparently compresses entry payloads before they are
// written and decompresses them on read. The payload CRC32 always covers
// the compressed bytes, so corruption detection is unaffected by which
// Compressor (if any) is configured. Off by default (see CompressionNone)
// to keep the default on-disk shape identical to the uncompressed wire
// format.
type Compressor interface {
	Compress(dst, src []byte) []byte
	Decompress(dst, src []byte) ([]byte, error)
}

// noopCompressor is a no-op passthrough; CompressionNone is its instance.
type noopCompressor struct{}

func (noopCompressor) Compress(dst, src []byte) []byte { return append(dst, src...) }
func (noopCompressor) Decompress(dst, src []byte) ([]byte, error) { return append(dst, src...), nil }

// CompressionNone is the default, explicit no-op Compressor.
var CompressionNone Compressor = noopCompressor{}

// zstdCompressor wraps a shared encoder/decoder pair, grounded on the
// teacher's use of klauspost/compress/zstd for blob compression.
type zstdCompressor struct {
	mu  sync.Mutex
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCompressor builds a Compressor backed by zstd at the given level.
func NewZstdCompressor(level zstd.EncoderLevel) (Compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("wal: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("wal: zstd decoder: %w", err)
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Compress(dst, src []byte) []byte {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.enc.EncodeAll(src, dst)
}

func (z *zstdCompressor) Decompress(dst, src []byte) ([]byte, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	out, err := z.dec.DecodeAll(src, dst)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", ErrBadRecord, err)
	}
	return out, nil
}

// lz4Compressor is a lighter-weight alternative favoring speed over ratio.
type lz4Compressor struct{}

// NewLZ4Compressor builds a Compressor backed by lz4.
func NewLZ4Compressor() Compressor { return lz4Compressor{} }

func (lz4Compressor) Compress(dst, src []byte) []byte {
	buf := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	n, err := c.CompressBlock(src, buf)
	if err != nil || n == 0 {
		// Incompressible input: lz4 requires a literal fallback.
		return append(dst, append([]byte{0}, src...)...)
	}
	header := make([]byte, 5)
	header[0] = 1
	order.PutUint32(header[1:], uint32(len(src)))
	return append(dst, append(header, buf[:n]...)...)
}

func (lz4Compressor) Decompress(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return dst, nil
	}
	tag := src[0]
	if tag == 0 {
		return append(dst, src[1:]...), nil
	}
	if len(src) < 5 {
		return nil, fmt.Errorf("%w: lz4: truncated header", ErrBadRecord)
	}
	uncompressedLen := order.Uint32(src[1:5])
	out := make([]byte, uncompressedLen)
	n, err := lz4.UncompressBlock(src[5:], out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrBadRecord, err)
	}
	return append(dst, out[:n]...), nil
}
