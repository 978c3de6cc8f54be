package api

import (
	"net/http"
)

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats(r.Context()))
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	n := s.cache.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

func (s *Server) handleOpsHealth(w http.ResponseWriter, r *http.Request) {
	health := s.collector.Health(r.Context())
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) handleOpsStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Stats(r.Context()))
}

func (s *Server) handleOpsRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events := s.collector.Recent(r.Context(),
		intParam(q.Get("limit")), q.Get("kind"), q.Get("level"))
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleOpsSlow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.SlowSearches(r.Context()))
}

func (s *Server) handleOpsReset(w http.ResponseWriter, r *http.Request) {
	s.collector.Reset(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// handleHealthz is the liveness probe: it only says the process is up.
// Engine health lives at /api/ops/health.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
