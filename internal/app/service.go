// Package app wires the engine together: the search orchestrator fanning out
// to both sources, and the sync manager keeping the vector index a projection
// of the record store.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vinatravel/discovery/internal/adapters/cache"
	"github.com/vinatravel/discovery/internal/adapters/embedding"
	"github.com/vinatravel/discovery/internal/adapters/mq/queue"
	"github.com/vinatravel/discovery/internal/adapters/mq/worker"
	"github.com/vinatravel/discovery/internal/adapters/places"
	"github.com/vinatravel/discovery/internal/adapters/recordstore"
	"github.com/vinatravel/discovery/internal/adapters/vectorindex"
	"github.com/vinatravel/discovery/internal/config"
	"github.com/vinatravel/discovery/internal/domain/ranking"
	"github.com/vinatravel/discovery/internal/observability"
	"github.com/vinatravel/discovery/pkg/logger"
	"github.com/vinatravel/discovery/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// Service is the engine facade. Construct with New, start with Start, and
// always Stop before exit so the worker pool drains.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	cache     *cache.Cache
	embedder  embedding.Embedder
	index     vectorindex.Index
	places    places.Provider
	store     recordstore.Store
	ranker    *ranking.Engine
	queue     queue.Queue
	pool      *worker.Pool
	collector *observability.Collector
	metrics   *metrics.Manager
	now       func() time.Time
}

// New builds a Service from configuration. Dependencies not supplied via
// options are constructed from cfg: a Qdrant index when an address is set
// (in-memory otherwise), the Gemini embedder when a key is set
// (deterministic otherwise), and the Google places provider when a key
// is set (external search disabled otherwise).
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:    cfg,
		log:    logger.Get().Named("app"),
		ranker: ranking.NewEngine(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.NewManager()
	}
	if s.collector == nil {
		s.collector = observability.New(observability.WithMetrics(s.metrics))
	}
	if s.cache == nil {
		s.cache = cache.New(
			cache.WithDefaultTTL(time.Duration(cfg.SearchCacheTTLSeconds)*time.Second),
			cache.WithSweepInterval(time.Duration(cfg.CacheSweepSeconds)*time.Second),
		)
	}
	if s.embedder == nil {
		if cfg.EmbeddingAPIKey != "" {
			var embedOpts []embedding.GeminiOption
			if cfg.EmbeddingBaseURL != "" {
				embedOpts = append(embedOpts, embedding.WithBaseURL(cfg.EmbeddingBaseURL))
			}
			embedOpts = append(embedOpts,
				embedding.WithCacheSize(cfg.EmbeddingCacheSize),
				embedding.WithDimension(cfg.VectorDimension),
			)
			g, err := embedding.NewGemini(cfg.EmbeddingAPIKey, embedOpts...)
			if err != nil {
				return nil, fmt.Errorf("building embedder: %w", err)
			}
			s.embedder = g
		} else {
			s.embedder = embedding.NewDeterministic(cfg.VectorDimension)
		}
	}
	if s.index == nil {
		if cfg.QdrantAddr != "" {
			idx, err := vectorindex.NewQdrant(ctx, cfg.QdrantAddr, cfg.QdrantCollection, cfg.VectorDimension)
			if err != nil {
				return nil, fmt.Errorf("building vector index: %w", err)
			}
			s.index = idx
		} else {
			s.index = vectorindex.NewMemory(cfg.VectorDimension)
		}
	}
	if s.store == nil {
		store, err := recordstore.NewSQLite(ctx, cfg.RecordStorePath)
		if err != nil {
			return nil, fmt.Errorf("building record store: %w", err)
		}
		s.store = store
	}
	if s.places == nil && cfg.PlacesAPIKey != "" {
		var placeOpts []places.GoogleOption
		if cfg.PlacesBaseURL != "" {
			placeOpts = append(placeOpts, places.WithBaseURL(cfg.PlacesBaseURL))
		}
		p, err := places.NewGoogle(cfg.PlacesAPIKey, placeOpts...)
		if err != nil {
			return nil, fmt.Errorf("building places provider: %w", err)
		}
		s.places = p
	}
	if s.queue == nil {
		s.queue = queue.NewInMemory(queue.WithCapacity(cfg.SyncQueueSize))
	}
	s.pool = worker.NewPool(s.queue, projector{s}, cfg.WorkerCount)

	return s, nil
}

// Start launches the background projection workers.
func (s *Service) Start(ctx context.Context) {
	s.pool.Start(ctx)
	s.log.Info(ctx, "engine started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("vector_dimension", s.cfg.VectorDimension),
	)
}

// Stop drains the workers and releases every held resource.
func (s *Service) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	_ = s.queue.Close()
	var firstErr error
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}
	s.cache.Close()
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.log.Info(ctx, "engine stopped")
	return firstErr
}

// Collector exposes the observability state for the ops endpoints.
func (s *Service) Collector() *observability.Collector {
	return s.collector
}

// Metrics exposes the Prometheus manager for the HTTP layer.
func (s *Service) Metrics() *metrics.Manager {
	return s.metrics
}

// Cache exposes the TTL cache for the ops endpoints.
func (s *Service) Cache() *cache.Cache {
	return s.cache
}

// projector adapts the Service to the worker pool without exporting the
// projection method on the facade.
type projector struct{ s *Service }

func (p projector) Project(ctx context.Context, entityID string) error {
	return p.s.project(ctx, entityID)
}
