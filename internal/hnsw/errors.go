package hnsw

import "errors"

// Sentinel errors the orchestrator translates into veyra.Code values.
var (
	ErrDimensionMismatch = errors.New("hnsw: vector dimension mismatch")
	ErrNotFound          = errors.New("hnsw: id not found")
	ErrAlreadyExists     = errors.New("hnsw: id already exists")
	ErrCorruption        = errors.New("hnsw: corrupt or truncated index data")
	ErrIoError           = errors.New("hnsw: i/o error")
)
