package veyra

import (
	"errors"
	"fmt"
)

// Code is the error taxonomy every fallible operation reports through.
// Callers compare it with errors.Is against the sentinel values below.
type Code int

const (
	// Ok is never itself returned as an error; it exists so Code has a
	// documented zero value for callers that log the taxonomy name.
	Ok Code = iota
	InvalidArgument
	NotFound
	AlreadyExists
	Unimplemented
	DimensionMismatch
	IoError
	Eof
	Corruption
	ChecksumMismatch
	BadRecord
	BadHeader
	VersionMismatch
	Internal
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case Unimplemented:
		return "Unimplemented"
	case DimensionMismatch:
		return "DimensionMismatch"
	case IoError:
		return "IoError"
	case Eof:
		return "Eof"
	case Corruption:
		return "Corruption"
	case ChecksumMismatch:
		return "ChecksumMismatch"
	case BadRecord:
		return "BadRecord"
	case BadHeader:
		return "BadHeader"
	case VersionMismatch:
		return "VersionMismatch"
	case Internal:
		return "Internal"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is the status every package-level operation returns on failure: a
// taxonomy Code, a human-readable message, and an optional wrapped cause
// reachable through errors.Unwrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, veyra.ErrNotFound) work by comparing Code rather
// than identity, so a wrapped *Error still matches its bare sentinel.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewError builds an *Error with no wrapped cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf builds an *Error with a formatted message.
func NewErrorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error wrapping cause, so errors.Unwrap(err) == cause.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Sentinel errors for errors.Is comparisons, e.g. errors.Is(err, veyra.ErrNotFound).
var (
	ErrInvalidArgument   = &Error{Code: InvalidArgument}
	ErrNotFound          = &Error{Code: NotFound}
	ErrAlreadyExists     = &Error{Code: AlreadyExists}
	ErrUnimplemented     = &Error{Code: Unimplemented}
	ErrDimensionMismatch = &Error{Code: DimensionMismatch}
	ErrIoError           = &Error{Code: IoError}
	ErrEof               = &Error{Code: Eof}
	ErrCorruption        = &Error{Code: Corruption}
	ErrChecksumMismatch  = &Error{Code: ChecksumMismatch}
	ErrBadRecord         = &Error{Code: BadRecord}
	ErrBadHeader         = &Error{Code: BadHeader}
	ErrVersionMismatch   = &Error{Code: VersionMismatch}
	ErrInternal          = &Error{Code: Internal}
)

// CodeOf extracts the taxonomy Code from err, returning Internal for a
// non-nil error that is not (and does not wrap) a *Error, and Ok for nil.
func CodeOf(err error) Code {
	if err == nil {
		return Ok
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}
