package wal

import "errors"

// Sentinel errors the orchestrator translates into veyra.Code values.
var (
	ErrBadHeader        = errors.New("wal: bad header")
	ErrBadRecord        = errors.New("wal: malformed entry")
	ErrChecksumMismatch = errors.New("wal: checksum mismatch")
	ErrVersionMismatch  = errors.New("wal: unsupported version")
	ErrIoError          = errors.New("wal: i/o error")
	ErrEof              = errors.New("wal: end of file")
)
