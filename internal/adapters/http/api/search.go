package api

import (
	"net/http"
	"strconv"

	"github.com/vinatravel/discovery/internal/app"
	"github.com/vinatravel/discovery/internal/domain/model"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := app.SearchOptions{
		Query:         q.Get("q"),
		PartnerLimit:  intParam(q.Get("partner_limit")),
		ExternalLimit: intParam(q.Get("external_limit")),
		RadiusMeters:  intParam(q.Get("radius")),
	}

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr == nil && lngErr == nil {
		opts.Location = &model.Coordinates{Lat: lat, Lng: lng}
	}

	result, err := s.engine.Search(r.Context(), opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	loc, err := s.engine.ResolveLocation(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func intParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func floatParam(raw string) float64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}
