// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vinatravel/discovery/internal/adapters/cache"
	"github.com/vinatravel/discovery/internal/adapters/recordstore"
	"github.com/vinatravel/discovery/internal/app"
	"github.com/vinatravel/discovery/internal/domain/model"
	"github.com/vinatravel/discovery/internal/observability"
	"github.com/vinatravel/discovery/pkg/metrics"
)

// Engine is the slice of the application facade the handlers need. Using an
// interface bundle keeps the handler layer loosely coupled to the app
// package.
type Engine interface {
	Search(ctx context.Context, opts app.SearchOptions) (app.SearchResult, error)
	ResolveLocation(ctx context.Context, address string) (*model.Coordinates, error)

	AddEntity(ctx context.Context, input model.EntityInput) (model.PartnerEntity, error)
	GetEntity(ctx context.Context, id string) (model.PartnerEntity, error)
	ListEntities(ctx context.Context, filter recordstore.ListFilter) ([]model.PartnerEntity, error)
	UpdateEntity(ctx context.Context, id string, update model.EntityUpdate) (model.PartnerEntity, error)
	DeactivateEntity(ctx context.Context, id string) (model.PartnerEntity, error)
	DeleteEntity(ctx context.Context, id string) error

	RetrySync(ctx context.Context, limit int) (model.RetryResult, error)
	SyncStats(ctx context.Context) (model.SyncStats, error)
}

// Server wires HTTP routes for the engine API.
type Server struct {
	engine    Engine
	collector *observability.Collector
	cache     *cache.Cache
	metrics   *metrics.Manager
}

// NewServer creates an API server over the engine facade.
func NewServer(engine Engine, collector *observability.Collector, c *cache.Cache, m *metrics.Manager) *Server {
	return &Server{
		engine:    engine,
		collector: collector,
		cache:     c,
		metrics:   m,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	s.handle(mux, "GET /api/search", "search", s.handleSearch)
	s.handle(mux, "GET /api/geocode", "geocode", s.handleGeocode)

	s.handle(mux, "POST /api/partners", "partners", s.handleAddPartner)
	s.handle(mux, "GET /api/partners", "partners", s.handleListPartners)
	s.handle(mux, "GET /api/partners/{id}", "partner", s.handleGetPartner)
	s.handle(mux, "PATCH /api/partners/{id}", "partner", s.handleUpdatePartner)
	s.handle(mux, "DELETE /api/partners/{id}", "partner", s.handleDeletePartner)
	s.handle(mux, "POST /api/partners/{id}/deactivate", "partner_deactivate", s.handleDeactivatePartner)

	s.handle(mux, "POST /api/sync/retry", "sync_retry", s.handleRetrySync)
	s.handle(mux, "GET /api/sync/stats", "sync_stats", s.handleSyncStats)

	s.handle(mux, "GET /api/cache/stats", "cache_stats", s.handleCacheStats)
	s.handle(mux, "DELETE /api/cache", "cache_clear", s.handleClearCache)

	s.handle(mux, "GET /api/ops/health", "ops_health", s.handleOpsHealth)
	s.handle(mux, "GET /api/ops/stats", "ops_stats", s.handleOpsStats)
	s.handle(mux, "GET /api/ops/recent", "ops_recent", s.handleOpsRecent)
	s.handle(mux, "GET /api/ops/slow", "ops_slow", s.handleOpsSlow)
	s.handle(mux, "POST /api/ops/reset", "ops_reset", s.handleOpsReset)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, metricsMiddleware(h, endpoint, s.metrics))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError translates service sentinels to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrEmptyQuery),
		errors.Is(err, app.ErrEmptyUpdate):
		writeError(w, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, app.ErrAllSourcesFailed):
		writeError(w, http.StatusServiceUnavailable, "sources_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
