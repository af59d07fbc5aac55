package veyra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/veyra-db/veyra/internal/hnsw"
	"github.com/veyra-db/veyra/internal/scalar"
)

const (
	metaFileName     = "meta.json"
	indexFileName    = "index.bin"
	metadataFileName = "metadata.json"
	walDirName       = "wal"
)

// metaFile is the exact on-disk shape of meta.json.
type metaFile struct {
	Name       string         `json:"name"`
	Dimensions uint32         `json:"dimensions"`
	Metric     Metric         `json:"metric"`
	DType      string         `json:"dtype"`
	IdxType    string         `json:"idxType"`
	HNSW       hnswMetaParams `json:"hnsw"`
	Recovery   recoveryMeta   `json:"recovery"`
}

type hnswMetaParams struct {
	MaxElements uint64 `json:"maxElements"`
	M           uint64 `json:"M"`
	EfConstruction uint64 `json:"efConstruction"`
}

type recoveryMeta struct {
	LastPersistedLSN  uint64 `json:"lastPersistedLsn"`
	LastPersistedTxID uint64 `json:"lastPersistedTxid"`
	CleanShutdown     bool   `json:"cleanShutdown"`
}

func (c CollectionConfig) toMetaFile(recovery recoveryMeta) metaFile {
	return metaFile{
		Name:       c.Name,
		Dimensions: uint32(c.Dimension),
		Metric:     c.Metric,
		DType:      "Float32",
		IdxType:    "HNSW",
		HNSW: hnswMetaParams{
			MaxElements:    c.Index.MaxElements,
			M:              c.Index.M,
			EfConstruction: c.Index.EfConstruction,
		},
		Recovery: recovery,
	}
}

func (m metaFile) toConfig() CollectionConfig {
	return CollectionConfig{
		Name:      m.Name,
		Dimension: int(m.Dimensions),
		Metric:    m.Metric,
		Index: IndexParams{
			MaxElements:    m.HNSW.MaxElements,
			M:              m.HNSW.M,
			EfConstruction: m.HNSW.EfConstruction,
		},
	}
}

func writeMetaFile(dir string, m metaFile) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return WrapError(Internal, "marshal meta.json", err)
	}
	if err := atomicWriteFile(filepath.Join(dir, metaFileName), data); err != nil {
		return WrapError(IoError, "write meta.json", err)
	}
	return nil
}

func readMetaFile(dir string) (metaFile, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return metaFile{}, NewErrorf(NotFound, "meta.json not found in %s", dir)
		}
		return metaFile{}, WrapError(IoError, "read meta.json", err)
	}
	var m metaFile
	if err := json.Unmarshal(data, &m); err != nil {
		return metaFile{}, WrapError(Corruption, "parse meta.json", err)
	}
	return m, nil
}

// readMetadataFile parses metadata.json, whose values must be closed-union
// scalars; any other JSON shape (array, object, null) fails with Corruption
// per spec §9's metadata value union note.
func readMetadataFile(dir string) (map[uint64]scalar.Document, error) {
	path := filepath.Join(dir, metadataFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[uint64]scalar.Document{}, nil
		}
		return nil, WrapError(IoError, "read metadata.json", err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, WrapError(Corruption, "parse metadata.json", err)
	}

	out := make(map[uint64]scalar.Document, len(raw))
	for idStr, fields := range raw {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			return nil, WrapError(Corruption, fmt.Sprintf("metadata.json: bad vector id %q", idStr), err)
		}
		doc := make(scalar.Document, len(fields))
		for key, raw := range fields {
			v, err := decodeScalarJSON(raw)
			if err != nil {
				return nil, WrapError(Corruption, fmt.Sprintf("metadata.json: id %s, field %q", idStr, key), err)
			}
			doc[key] = v
		}
		out[id] = doc
	}
	return out, nil
}

// decodeScalarJSON accepts only the closed union {int64, float64, string,
// bool}; arrays, objects, and null are rejected rather than coerced.
func decodeScalarJSON(raw json.RawMessage) (scalar.Value, error) {
	var anyVal interface{}
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		return scalar.Value{}, err
	}
	switch v := anyVal.(type) {
	case string:
		return scalar.FromString(v), nil
	case bool:
		return scalar.FromBool(v), nil
	case float64:
		if v == float64(int64(v)) && !looksLikeFloatLiteral(raw) {
			return scalar.FromInt64(int64(v)), nil
		}
		return scalar.FromFloat64(v), nil
	default:
		return scalar.Value{}, fmt.Errorf("unsupported metadata value type %T", v)
	}
}

// looksLikeFloatLiteral reports whether the raw JSON number contains a
// decimal point or exponent, so "3.0" round-trips as a float while "3"
// round-trips as an int.
func looksLikeFloatLiteral(raw json.RawMessage) bool {
	for _, b := range raw {
		if b == '.' || b == 'e' || b == 'E' {
			return true
		}
	}
	return false
}

// encodeScalarJSON is the inverse of decodeScalarJSON: it renders a Value
// as the plain JSON scalar metadata.json expects, not scalar.Value's own
// self-describing {kind,...} wire form (that shape is for values traveling
// standalone, not embedded in the on-disk metadata table).
func encodeScalarJSON(v scalar.Value) (any, error) {
	switch v.Kind() {
	case scalar.KindInt64:
		n, _ := v.Int64()
		return n, nil
	case scalar.KindFloat64:
		f, _ := v.Float64()
		return f, nil
	case scalar.KindString:
		s, _ := v.String()
		return s, nil
	case scalar.KindBool:
		b, _ := v.Bool()
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported scalar kind %v", v.Kind())
	}
}

func writeMetadataFile(dir string, docs map[uint64]scalar.Document) error {
	if len(docs) == 0 {
		// Drop a metadata.json left by an earlier save, so a reload does not
		// bring back metadata that has since been removed.
		if err := os.Remove(filepath.Join(dir, metadataFileName)); err != nil && !os.IsNotExist(err) {
			return WrapError(IoError, "remove metadata.json", err)
		}
		return nil
	}
	out := make(map[string]map[string]any, len(docs))
	for id, doc := range docs {
		fields := make(map[string]any, len(doc))
		for key, v := range doc {
			enc, err := encodeScalarJSON(v)
			if err != nil {
				return WrapError(Internal, fmt.Sprintf("metadata.json: id %d, field %q", id, key), err)
			}
			fields[key] = enc
		}
		out[strconv.FormatUint(id, 10)] = fields
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return WrapError(Internal, "marshal metadata.json", err)
	}
	if err := atomicWriteFile(filepath.Join(dir, metadataFileName), data); err != nil {
		return WrapError(IoError, "write metadata.json", err)
	}
	return nil
}

func toHNSWMetric(m Metric) hnsw.Metric {
	switch m {
	case L2:
		return hnsw.L2
	case InnerProduct:
		return hnsw.InnerProduct
	default:
		return hnsw.Cosine
	}
}
