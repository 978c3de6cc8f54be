package places

import "errors"

// Sentinel kinds for provider errors.
var (
	ErrNoAPIKey       = errors.New("places api key not configured")
	ErrProviderFailed = errors.New("places provider failed")
	ErrNoResults      = errors.New("no results for address")
)
