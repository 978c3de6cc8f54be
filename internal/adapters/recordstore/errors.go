package recordstore

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")
)
