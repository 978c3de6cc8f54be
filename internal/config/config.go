// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer file/env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Default city center used when a search carries no location (Hanoi).
const (
	DefaultCenterLat = 21.028511
	DefaultCenterLng = 105.804817
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SearchCacheTTLSeconds bounds the lifetime of cached search payloads.
	SearchCacheTTLSeconds int `koanf:"search_cache_ttl_seconds"`

	// GeocodeCacheTTLSeconds bounds the lifetime of cached geocode lookups.
	// Addresses rarely change, so this defaults to seven days.
	GeocodeCacheTTLSeconds int `koanf:"geocode_cache_ttl_seconds"`

	// CacheSweepSeconds sets the interval of the background expiry sweep.
	CacheSweepSeconds int `koanf:"cache_sweep_seconds"`

	// PartnerLimit and ExternalLimit cap per-branch search results.
	PartnerLimit  int `koanf:"partner_limit"`
	ExternalLimit int `koanf:"external_limit"`

	// DefaultCenterLat/Lng anchor nearby searches without a caller location.
	DefaultCenterLat float64 `koanf:"default_center_lat"`
	DefaultCenterLng float64 `koanf:"default_center_lng"`

	// NearbyRadiusMeters sets the radius for external nearby searches.
	NearbyRadiusMeters int `koanf:"nearby_radius_meters"`

	// EmbeddingAPIKey authenticates against the embedding endpoint.
	EmbeddingAPIKey string `koanf:"embedding_api_key"`

	// EmbeddingBaseURL overrides the embedding endpoint (tests, proxies).
	EmbeddingBaseURL string `koanf:"embedding_base_url"`

	// EmbeddingCacheSize bounds the embedding LRU cache.
	EmbeddingCacheSize int `koanf:"embedding_cache_size"`

	// VectorDimension must match the index's configured dimension.
	VectorDimension int `koanf:"vector_dimension"`

	// QdrantAddr is the gRPC address of the vector index.
	// Empty selects the in-memory index (dev and tests).
	QdrantAddr string `koanf:"qdrant_addr"`

	// QdrantCollection names the collection holding partner vectors.
	QdrantCollection string `koanf:"qdrant_collection"`

	// PlacesAPIKey authenticates against the external places provider.
	PlacesAPIKey string `koanf:"places_api_key"`

	// PlacesBaseURL overrides the places endpoint (tests, proxies).
	PlacesBaseURL string `koanf:"places_base_url"`

	// RecordStorePath is the sqlite file backing partner entities.
	RecordStorePath string `koanf:"record_store_path"`

	// WorkerCount sets the number of projection workers.
	WorkerCount int `koanf:"worker_count"`

	// SyncQueueSize bounds the in-memory projection queue.
	SyncQueueSize int `koanf:"sync_queue_size"`

	// RetryBatchLimit caps entities per manual retry batch.
	RetryBatchLimit int `koanf:"retry_batch_limit"`

	// RetryParallelism bounds concurrent projections in a retry batch.
	RetryParallelism int `koanf:"retry_parallelism"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		SearchCacheTTLSeconds:  5 * 60,
		GeocodeCacheTTLSeconds: 7 * 24 * 60 * 60,
		CacheSweepSeconds:      60,
		PartnerLimit:           2,
		ExternalLimit:          5,
		DefaultCenterLat:       DefaultCenterLat,
		DefaultCenterLng:       DefaultCenterLng,
		NearbyRadiusMeters:     10_000,
		EmbeddingCacheSize:     10_000,
		VectorDimension:        768,
		QdrantCollection:       "vinatravel-768",
		RecordStorePath:        "discovery.db",
		WorkerCount:            runtime.NumCPU(),
		SyncQueueSize:          10_000,
		RetryBatchLimit:        10,
		RetryParallelism:       4,
	}
}
