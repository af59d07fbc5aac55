package hnsw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// Persistence format: self-describing, not bit-exact-compatible with any
// external tool (spec §4.1). An 18-byte header of
// {magic, version, checksum, length} is followed by a body of
// {dim, metric, m, maxLevel, hasEntryPoint, entryPointID, count} and then
// count per-node records of {id, level, deleted, vector, per-layer
// neighbor id lists}. The header's checksum covers the entire body, so a
// single bit flip anywhere in the file is detected before any field is
// trusted. Grounded on the teacher's internal/manifest binary header idiom.
const (
	magic       uint32 = 0x56455952 // "VEYR"
	formatVersion uint16 = 1
)

var byteOrder = binary.LittleEndian

// Save writes a self-describing snapshot of the index to w.
func (idx *Index) Save(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var body bytes.Buffer
	writeU32(&body, uint32(idx.dim))
	writeU8(&body, uint8(idx.metric))
	writeU32(&body, uint32(idx.m))
	writeI32(&body, int32(idx.topLayer))

	hasEntry := uint8(0)
	var entryID uint64
	if idx.entryPoint != -1 {
		hasEntry = 1
		entryID = idx.nodes[idx.entryPoint].id
	}
	writeU8(&body, hasEntry)
	writeU64(&body, entryID)
	writeU64(&body, uint64(len(idx.nodes)))

	for _, n := range idx.nodes {
		writeU64(&body, n.id)
		writeU32(&body, uint32(n.level))
		deletedFlag := uint8(0)
		if n.deleted {
			deletedFlag = 1
		}
		writeU8(&body, deletedFlag)
		for _, f := range n.vector {
			writeU32(&body, floatBits(f))
		}
		for layer := 0; layer <= n.level; layer++ {
			neighbors := n.neighbors[layer]
			writeU32(&body, uint32(len(neighbors)))
			for _, off := range neighbors {
				writeU64(&body, idx.nodes[off].id)
			}
		}
	}

	payload := body.Bytes()
	checksum := crc32.ChecksumIEEE(payload)

	var header bytes.Buffer
	writeU32(&header, magic)
	writeU16(&header, formatVersion)
	writeU32(&header, checksum)
	writeU64(&header, uint64(len(payload)))

	if _, err := w.Write(header.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrIoError, err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrIoError, err)
	}
	return nil
}

// Load reconstructs an index from a snapshot written by Save, including the
// entry point. A dimension or metric mismatch against cfg, or a checksum
// mismatch, fails with ErrCorruption.
func Load(r io.Reader, cfg Config) (*Index, error) {
	header := make([]byte, 18)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	if byteOrder.Uint32(header[0:4]) != magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruption)
	}
	if byteOrder.Uint16(header[4:6]) != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version", ErrCorruption)
	}
	wantChecksum := byteOrder.Uint32(header[6:10])
	length := byteOrder.Uint64(header[10:18])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	if crc32.ChecksumIEEE(payload) != wantChecksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruption)
	}

	br := bytes.NewReader(payload)
	dim, err := readU32(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	metricTag, err := readU8(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	m, err := readU32(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	topLayer, err := readI32(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	hasEntry, err := readU8(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	entryID, err := readU64(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	count, err := readU64(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
	}

	if int(dim) != cfg.Dimension {
		return nil, fmt.Errorf("%w: dimension mismatch, file has %d, expected %d", ErrCorruption, dim, cfg.Dimension)
	}
	if Metric(metricTag) != cfg.Metric {
		return nil, fmt.Errorf("%w: metric mismatch", ErrCorruption)
	}

	idx := New(cfg)
	idx.m = int(m)
	idx.m0 = 2 * int(m)
	idx.topLayer = int(topLayer)
	idx.reserveLocked(int(count))

	type pendingNeighbors struct {
		offset int
		layer  int
		ids    []uint64
	}
	var pending []pendingNeighbors

	for i := uint64(0); i < count; i++ {
		id, err := readU64(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
		}
		level, err := readU32(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
		}
		deletedFlag, err := readU8(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			bits, err := readU32(br)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
			}
			vec[j] = floatFromBits(bits)
		}

		n := newNode(id, vec, int(level))
		n.deleted = deletedFlag != 0
		offset := len(idx.nodes)
		idx.nodes = append(idx.nodes, n)
		idx.idToOffset[id] = offset
		if n.deleted {
			idx.deleted.Add(uint32(offset))
		}

		for layer := 0; layer <= int(level); layer++ {
			nc, err := readU32(br)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
			}
			ids := make([]uint64, nc)
			for k := range ids {
				ids[k], err = readU64(br)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrCorruption, err)
				}
			}
			pending = append(pending, pendingNeighbors{offset: offset, layer: layer, ids: ids})
		}
	}

	for _, p := range pending {
		offsets := make([]int, 0, len(p.ids))
		for _, id := range p.ids {
			off, ok := idx.idToOffset[id]
			if !ok {
				return nil, fmt.Errorf("%w: neighbor id %d not found", ErrCorruption, id)
			}
			offsets = append(offsets, off)
		}
		idx.nodes[p.offset].neighbors[p.layer] = offsets
	}

	if hasEntry != 0 {
		off, ok := idx.idToOffset[entryID]
		if !ok {
			return nil, fmt.Errorf("%w: entry point id %d not found", ErrCorruption, entryID)
		}
		idx.entryPoint = off
	} else {
		idx.entryPoint = -1
	}

	return idx, nil
}

func floatBits(f float32) uint32      { return math.Float32bits(f) }
func floatFromBits(b uint32) float32  { return math.Float32frombits(b) }

func writeU8(buf *bytes.Buffer, v uint8)   { buf.WriteByte(v) }
func writeU16(buf *bytes.Buffer, v uint16) { var b [2]byte; byteOrder.PutUint16(b[:], v); buf.Write(b[:]) }
func writeU32(buf *bytes.Buffer, v uint32) { var b [4]byte; byteOrder.PutUint32(b[:], v); buf.Write(b[:]) }
func writeI32(buf *bytes.Buffer, v int32)  { writeU32(buf, uint32(v)) }
func writeU64(buf *bytes.Buffer, v uint64) { var b [8]byte; byteOrder.PutUint64(b[:], v); buf.Write(b[:]) }

func readU8(r *bytes.Reader) (uint8, error) { return r.ReadByte() }

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b[:]), nil
}

func readI32(r *bytes.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b[:]), nil
}
