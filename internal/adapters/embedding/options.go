package embedding

import "net/http"

// GeminiOption applies a configuration option to the Gemini embedder.
type GeminiOption func(*Gemini)

// WithBaseURL overrides the API base URL. Intended for tests and proxies.
func WithBaseURL(baseURL string) GeminiOption {
	return func(g *Gemini) {
		if baseURL != "" {
			g.baseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *Gemini) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithCacheSize sets the capacity of the embedding LRU cache.
func WithCacheSize(size int) GeminiOption {
	return func(g *Gemini) {
		if size > 0 {
			g.cacheSize = size
		}
	}
}

// WithRetryConfig overrides the retry behavior for provider calls.
func WithRetryConfig(cfg RetryConfig) GeminiOption {
	return func(g *Gemini) {
		if cfg.MaxRetries > 0 {
			g.retryCfg = cfg
		}
	}
}

// WithDimension sets the expected vector dimension.
func WithDimension(dimension int) GeminiOption {
	return func(g *Gemini) {
		if dimension > 0 {
			g.dimension = dimension
		}
	}
}
