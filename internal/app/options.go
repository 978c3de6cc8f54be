package app

import (
	"time"

	"github.com/vinatravel/discovery/internal/adapters/cache"
	"github.com/vinatravel/discovery/internal/adapters/embedding"
	"github.com/vinatravel/discovery/internal/adapters/mq/queue"
	"github.com/vinatravel/discovery/internal/adapters/places"
	"github.com/vinatravel/discovery/internal/adapters/recordstore"
	"github.com/vinatravel/discovery/internal/adapters/vectorindex"
	"github.com/vinatravel/discovery/internal/observability"
	"github.com/vinatravel/discovery/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCache injects a pre-built cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEmbedder injects an embedder.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithVectorIndex injects a vector index.
func WithVectorIndex(idx vectorindex.Index) Option {
	return func(s *Service) { s.index = idx }
}

// WithPlacesProvider injects an external places provider.
func WithPlacesProvider(p places.Provider) Option {
	return func(s *Service) { s.places = p }
}

// WithRecordStore injects a record store.
func WithRecordStore(store recordstore.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithCollector injects an observability collector.
func WithCollector(c *observability.Collector) Option {
	return func(s *Service) { s.collector = c }
}

// WithMetrics injects a Prometheus manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) { s.metrics = m }
}

// WithQueue injects a projection queue.
func WithQueue(q queue.Queue) Option {
	return func(s *Service) { s.queue = q }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
