package veyra

import "fmt"

// Metric is the distance metric a collection is fixed to at creation.
type Metric int

const (
	Cosine Metric = iota
	L2
	InnerProduct
)

func (m Metric) String() string {
	switch m {
	case Cosine:
		return "Cosine"
	case L2:
		return "L2"
	case InnerProduct:
		return "InnerProduct"
	default:
		return fmt.Sprintf("Metric(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler so Metric serializes into
// meta.json as one of the three spec-defined strings.
func (m Metric) MarshalText() ([]byte, error) {
	switch m {
	case Cosine, L2, InnerProduct:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("veyra: invalid metric %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Cosine":
		*m = Cosine
	case "L2":
		*m = L2
	case "InnerProduct":
		*m = InnerProduct
	default:
		return fmt.Errorf("veyra: unknown metric %q", text)
	}
	return nil
}

// IndexParams configures the HNSW graph backing a collection.
type IndexParams struct {
	// MaxElements is the index's initial capacity; it grows by reallocation
	// when exceeded.
	MaxElements uint64
	// M is the target degree in upper layers; layer 0 uses 2*M.
	M uint64
	// EfConstruction is the beam width used while inserting.
	EfConstruction uint64
}

// DefaultIndexParams mirrors the spec's stated defaults.
func DefaultIndexParams() IndexParams {
	return IndexParams{
		MaxElements:    1024,
		M:              64,
		EfConstruction: 200,
	}
}

// CollectionConfig is the immutable-after-creation shape of a collection.
type CollectionConfig struct {
	Name       string
	Dimension  int
	Metric     Metric
	Index      IndexParams
}

func (c *CollectionConfig) validate() error {
	if c.Name == "" {
		return NewError(InvalidArgument, "collection name must not be empty")
	}
	if c.Dimension <= 0 {
		return NewErrorf(InvalidArgument, "dimension must be > 0, got %d", c.Dimension)
	}
	switch c.Metric {
	case Cosine, L2, InnerProduct:
	default:
		return NewErrorf(InvalidArgument, "unknown metric %d", int(c.Metric))
	}
	if c.Index.M == 0 {
		c.Index.M = DefaultIndexParams().M
	}
	if c.Index.EfConstruction == 0 {
		c.Index.EfConstruction = DefaultIndexParams().EfConstruction
	}
	if c.Index.MaxElements == 0 {
		c.Index.MaxElements = DefaultIndexParams().MaxElements
	}
	return nil
}
