package embedding

import "errors"

// Sentinel kinds for embedding errors.
var (
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrProviderFailed = errors.New("embedding provider failed")
	ErrNoAPIKey       = errors.New("embedding api key not configured")
)
