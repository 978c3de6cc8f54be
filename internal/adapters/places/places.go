// Package places integrates external place discovery APIs. The production
// provider talks to the Google Places and Geocoding REST endpoints.
package places

import (
	"context"

	"github.com/vinatravel/discovery/internal/domain/model"
)

// Place is one raw external result before normalization.
type Place struct {
	PlaceID  string             `json:"place_id"`
	Name     string             `json:"name"`
	Address  string             `json:"address"`
	Rating   float64            `json:"rating"`
	Types    []string           `json:"types"`
	Location *model.Coordinates `json:"location,omitempty"`
}

// Provider answers nearby-search and geocoding queries.
type Provider interface {
	// NearbySearch returns places around center matching keyword. A zero
	// radius falls back to the provider default.
	NearbySearch(ctx context.Context, center model.Coordinates, radiusMeters int, keyword string) ([]Place, error)
	// Geocode resolves a free-form address to coordinates.
	Geocode(ctx context.Context, address string) (*model.Coordinates, error)
}
