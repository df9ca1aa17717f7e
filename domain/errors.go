package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotFound is returned when the target of an operation does not
	// exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedDocument is returned when an input cannot be represented as
	// a document.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrInvalidFilter is returned when a filter, sort or pipeline cannot be
	// evaluated.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrResourceExhausted is returned when the identifier space runs out or
	// a $sum or $avg leaves the float64 range. It is fatal for the operation
	// and never retried.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrConstraintViolated is returned when a unique index rejects a write.
	ErrConstraintViolated = errors.New("constraint violated")
	// ErrCursorClosed is the cause of a closed cursor.
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when Scan is called before Next.
	ErrScanBeforeNext = errors.New("Scan called without calling Next")
	// ErrClosed is returned by operations on a closed database.
	ErrClosed = errors.New("database is closed")
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = errors.New("target must be a pointer")
	// ErrUnknownCodec is returned when a snapshot stream has no recognizable
	// compression header.
	ErrUnknownCodec = errors.New("unknown snapshot codec")
)

// ErrTargetNil is returned when the passed target, which should be a pointer,
// is passed as a nil value.
type ErrTargetNil struct{}

func (e *ErrTargetNil) Error() string { return "target interface is nil" }

// ErrFieldName describes a field name that cannot be stored.
type ErrFieldName struct {
	Field  string
	Reason string
}

func (e ErrFieldName) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Field, e.Reason)
}

// Unwrap allows errors.Is(err, ErrMalformedDocument).
func (e ErrFieldName) Unwrap() error { return ErrMalformedDocument }

// ErrDecode wraps failures when decoding a document into a user value.
type ErrDecode struct {
	Source any
	Target any
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}

// ErrDatafileName describes an invalid collection or file name.
type ErrDatafileName struct {
	Name   string
	Reason string
}

func (e ErrDatafileName) Error() string {
	return fmt.Sprintf("invalid datafile name %q: %s", e.Name, e.Reason)
}

// ErrCorruptFiles is returned when too large a share of persisted records
// cannot be read back.
type ErrCorruptFiles struct {
	CorruptionRate        float64
	CorruptItems          int
	DataLength            int
	CorruptAlertThreshold float64
}

func (e ErrCorruptFiles) Error() string {
	return fmt.Sprintf("%.0f%% of the data file is corrupt, more than given corruptAlertThreshold (%.0f%%). Cautiously refusing to load it to prevent dataloss.", math.Floor(100*e.CorruptionRate), math.Floor(100*e.CorruptAlertThreshold))
}

// ErrFlushToStorage is returned when a file could not be synced or closed.
type ErrFlushToStorage struct {
	ErrorOnFsync error
	ErrorOnClose error
}

func (e ErrFlushToStorage) Error() string {
	var err error
	if e.ErrorOnFsync != nil {
		err = e.ErrorOnFsync
	} else {
		err = e.ErrorOnClose
	}
	return fmt.Sprint("storage flush error: ", err.Error())
}

func (e ErrFlushToStorage) Unwrap() []error {
	return []error{e.ErrorOnFsync, e.ErrorOnClose}
}
