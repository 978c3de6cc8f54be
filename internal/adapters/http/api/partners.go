package api

import (
	"encoding/json"
	"net/http"

	"github.com/vinatravel/discovery/internal/adapters/recordstore"
	"github.com/vinatravel/discovery/internal/domain/model"
)

func (s *Server) handleAddPartner(w http.ResponseWriter, r *http.Request) {
	var input model.EntityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}

	entity, err := s.engine.AddEntity(r.Context(), input)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleListPartners(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := recordstore.ListFilter{
		Status:     model.EntityStatus(q.Get("status")),
		SyncStatus: model.SyncStatus(q.Get("sync_status")),
		Category:   q.Get("category"),
		NameLike:   q.Get("name"),
		MinRating:  floatParam(q.Get("min_rating")),
		Limit:      intParam(q.Get("limit")),
		Offset:     intParam(q.Get("offset")),
	}

	entities, err := s.engine.ListEntities(r.Context(), filter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if entities == nil {
		entities = []model.PartnerEntity{}
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) handleGetPartner(w http.ResponseWriter, r *http.Request) {
	entity, err := s.engine.GetEntity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleUpdatePartner(w http.ResponseWriter, r *http.Request) {
	var update model.EntityUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}

	entity, err := s.engine.UpdateEntity(r.Context(), r.PathValue("id"), update)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleDeactivatePartner(w http.ResponseWriter, r *http.Request) {
	entity, err := s.engine.DeactivateEntity(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleDeletePartner(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteEntity(r.Context(), r.PathValue("id")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetrySync(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.RetrySync(r.Context(), intParam(r.URL.Query().Get("limit")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.SyncStats(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
