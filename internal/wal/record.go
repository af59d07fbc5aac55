package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

var order = binary.LittleEndian

// HeaderMagic identifies a veyra WAL file.
const HeaderMagic uint32 = 0x41574C01

// HeaderSize is the exact on-disk size of Header, in bytes.
const HeaderSize = 24

// CurrentVersion is the record version this package writes.
const CurrentVersion uint16 = 1

const maxDimension = 65536

// OpType enumerates the kinds of entries a WAL can carry. Only Insert and
// Delete are replayed by the orchestrator; the rest are reserved.
type OpType uint16

const (
	OpCommitTxn OpType = 1
	OpAbortTxn  OpType = 2
	OpInsert    OpType = 3
	OpDelete    OpType = 4
	OpUpdate    OpType = 5
	OpBatchInsert OpType = 6
)

func (t OpType) valid() bool { return t >= OpCommitTxn && t <= OpBatchInsert }

// Header is the fixed 24-byte prologue of a WAL file.
//
//	magic (4) | version (2) | flags (2) | creation_time (8) | header_crc32 (4) | reserved (4)
//
// header_crc32 covers the 16 bytes of fixed fields preceding it.
type Header struct {
	Version      uint16
	Flags        uint16
	CreationTime int64
}

// Encode serializes h into its 24-byte wire form.
func (h Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	order.PutUint32(buf[0:4], HeaderMagic)
	order.PutUint16(buf[4:6], h.Version)
	order.PutUint16(buf[6:8], h.Flags)
	order.PutUint64(buf[8:16], uint64(h.CreationTime))
	order.PutUint32(buf[16:20], crc32.ChecksumIEEE(buf[0:16]))
	// buf[20:24] reserved, left zero.
	return buf
}

// DecodeHeader parses and validates a 24-byte header.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) != HeaderSize {
		return Header{}, fmt.Errorf("%w: short header", ErrBadHeader)
	}
	if order.Uint32(buf[0:4]) != HeaderMagic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrBadHeader)
	}
	wantCRC := order.Uint32(buf[16:20])
	if crc32.ChecksumIEEE(buf[0:16]) != wantCRC {
		return Header{}, fmt.Errorf("%w: header", ErrChecksumMismatch)
	}
	h := Header{
		Version:      order.Uint16(buf[4:6]),
		Flags:        order.Uint16(buf[6:8]),
		CreationTime: int64(order.Uint64(buf[8:16])),
	}
	if h.Version != CurrentVersion {
		return Header{}, fmt.Errorf("%w: header version %d", ErrVersionMismatch, h.Version)
	}
	return h, nil
}

// Entry is one WAL record. Payload holds the raw (possibly compressed, see
// compress.go) vector bytes; Dimension is always the uncompressed vector
// length, used to size the buffer on decompression.
//
//	op_type (2) | version (2) | lsn (8) | txid (8) | header_crc32 (4) |
//	payload_length (4) | vector_id (8) | dimension (4) | padding (1) |
//	payload (payload_length bytes) | payload_crc32 (4)
type Entry struct {
	Op        OpType
	LSN       uint64
	TxID      uint64
	VectorID  uint64
	Dimension uint32
	Payload   []byte // encoded vector bytes actually written, possibly compressed
}

// entryFixedSize is the size of every field except the variable payload.
const entryFixedSize = 2 + 2 + 8 + 8 + 4 + 4 + 8 + 4 + 1
const entryTrailerSize = 4 // payload_crc32

// Encode serializes e, including both CRCs.
func (e Entry) Encode() []byte {
	buf := make([]byte, entryFixedSize+len(e.Payload)+entryTrailerSize)
	order.PutUint16(buf[0:2], uint16(e.Op))
	order.PutUint16(buf[2:4], CurrentVersion)
	order.PutUint64(buf[4:12], e.LSN)
	order.PutUint64(buf[12:20], e.TxID)
	headerCRC := crc32.ChecksumIEEE(buf[0:20])
	order.PutUint32(buf[20:24], headerCRC)
	order.PutUint32(buf[24:28], uint32(len(e.Payload)))
	order.PutUint64(buf[28:36], e.VectorID)
	order.PutUint32(buf[36:40], e.Dimension)
	buf[40] = 0 // padding
	copy(buf[41:41+len(e.Payload)], e.Payload)
	payloadCRC := crc32.ChecksumIEEE(e.Payload)
	order.PutUint32(buf[41+len(e.Payload):], payloadCRC)
	return buf
}

// DecodeEntry parses one entry from the front of buf, returning the entry
// and the number of bytes consumed. A zero consumed count with a non-nil
// error signals no forward progress was made (caller must stop).
func DecodeEntry(buf []byte) (Entry, int, error) {
	if len(buf) < entryFixedSize {
		return Entry{}, 0, fmt.Errorf("%w: short entry header", ErrEof)
	}
	op := OpType(order.Uint16(buf[0:2]))
	version := order.Uint16(buf[2:4])
	lsn := order.Uint64(buf[4:12])
	txid := order.Uint64(buf[12:20])
	wantHeaderCRC := order.Uint32(buf[20:24])
	if crc32.ChecksumIEEE(buf[0:20]) != wantHeaderCRC {
		return Entry{}, 0, fmt.Errorf("%w: entry header", ErrChecksumMismatch)
	}
	if version != CurrentVersion {
		return Entry{}, 0, fmt.Errorf("%w: entry version %d", ErrVersionMismatch, version)
	}
	if !op.valid() {
		return Entry{}, 0, fmt.Errorf("%w: op_type %d out of range", ErrBadRecord, op)
	}
	payloadLen := order.Uint32(buf[24:28])
	vectorID := order.Uint64(buf[28:36])
	dimension := order.Uint32(buf[36:40])
	if dimension > maxDimension {
		return Entry{}, 0, fmt.Errorf("%w: dimension %d too large", ErrBadRecord, dimension)
	}
	if op == OpInsert && payloadLen != dimension*4 {
		return Entry{}, 0, fmt.Errorf("%w: payload_length %d != dimension*4 (%d)", ErrBadRecord, payloadLen, dimension*4)
	}

	total := entryFixedSize + int(payloadLen) + entryTrailerSize
	if len(buf) < total {
		return Entry{}, 0, fmt.Errorf("%w: truncated entry", ErrEof)
	}

	payload := buf[entryFixedSize : entryFixedSize+int(payloadLen)]
	wantPayloadCRC := order.Uint32(buf[entryFixedSize+int(payloadLen):])
	if crc32.ChecksumIEEE(payload) != wantPayloadCRC {
		return Entry{}, 0, fmt.Errorf("%w: entry payload", ErrChecksumMismatch)
	}

	e := Entry{
		Op:        op,
		LSN:       lsn,
		TxID:      txid,
		VectorID:  vectorID,
		Dimension: dimension,
		Payload:   append([]byte(nil), payload...),
	}
	return e, total, nil
}

// EncodeVector packs a float32 vector into its wire byte form (payload_length = dimension*4).
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		order.PutUint32(buf[i*4:], float32bits(f))
	}
	return buf
}

// DecodeVector unpacks a wire payload into a float32 vector of the given dimension.
func DecodeVector(buf []byte, dimension uint32) ([]float32, error) {
	if uint32(len(buf)) != dimension*4 {
		return nil, fmt.Errorf("%w: payload_length %d != dimension*4 (%d)", ErrBadRecord, len(buf), dimension*4)
	}
	vec := make([]float32, dimension)
	for i := range vec {
		vec[i] = float32frombits(order.Uint32(buf[i*4:]))
	}
	return vec, nil
}
