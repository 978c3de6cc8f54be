// Package model holds the canonical data shapes shared across the engine.
package model

// Source identifies which provider a normalized place came from.
type Source string

// Known result sources.
const (
	SourcePartner  Source = "partner"
	SourceExternal Source = "external"
)

// Coordinates is a WGS84 lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NormalizedPlace is the single canonical search-result shape. Every result
// entering the ranking engine has been converted to it at the provider
// boundary, regardless of origin; provider-specific fields live only in Raw.
type NormalizedPlace struct {
	// ID is provider-prefixed and unique within one search response.
	ID          string       `json:"id"`
	Source      Source       `json:"source"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	// Rating is on a 0-5 scale; zero means no rating is known.
	Rating      float64      `json:"rating"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	IsPartner   bool         `json:"isPartner"`
	// Priority is meaningful for partner places only; 1 is most important.
	Priority int `json:"priority,omitempty"`
	// Raw carries the provider payload through for downstream rendering.
	Raw any `json:"raw,omitempty"`
}

// ScoreBreakdown itemizes the components of a ranked place's final score.
// It is attached after ranking and never persisted.
type ScoreBreakdown struct {
	PartnerBonus  float64 `json:"partnerBonus"`
	PriorityScore float64 `json:"priorityScore"`
	RatingScore   float64 `json:"ratingScore"`
	DistanceScore float64 `json:"distanceScore"`
	FinalScore    float64 `json:"finalScore"`
}

// RankedPlace is a normalized place with its score attached.
type RankedPlace struct {
	NormalizedPlace
	Breakdown ScoreBreakdown `json:"scoreBreakdown"`
}
