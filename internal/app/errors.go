package app

import "errors"

// Sentinel kinds for service errors.
var (
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrValidation       = errors.New("invalid entity input")
	ErrEmptyUpdate      = errors.New("update changes nothing")
	ErrAllSourcesFailed = errors.New("all search sources failed")
	ErrNotFound         = errors.New("entity not found")
)
