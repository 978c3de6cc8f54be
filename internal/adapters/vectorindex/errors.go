package vectorindex

import "errors"

// Sentinel kinds for index errors.
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyVector       = errors.New("vector cannot be empty")
	ErrUnavailable       = errors.New("vector index unavailable")
	ErrNotFound          = errors.New("point not found")
)
