package index

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound        = errors.New("index: key not found")
	ErrCollectionNotFound = errors.New("index: collection not found")
	ErrCollectionExists   = errors.New("index: collection already exists")
	ErrDimensionMismatch  = errors.New("index: vector dimension mismatch")
)

// Op constants give error context in driver diagnostics.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHSet        = "HSET"
	OpGet         = "GET"
	OpSet         = "SET"
	OpScan        = "SCAN"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
