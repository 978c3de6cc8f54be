// Package ranking merges heterogeneous search results into one scored,
// sorted list. It is a pure function of its inputs and performs no I/O.
//
// The sort is stable: places with equal final scores keep merge order,
// which lists partner results (in index order) ahead of external ones.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/vinatravel/discovery/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultPartnerBonus   = 1000.0
	defaultPriorityCeil   = 100.0
	defaultPriorityStep   = 10.0
	defaultRatingCeil     = 100.0
	defaultRatingScale    = 5.0
	defaultDistanceCeil   = 50.0
	defaultMaxDistanceM   = 50_000.0
	earthRadiusMeters     = 6_371_000.0
	scoreRoundingFactor   = 100.0
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPartnerBonus overrides the flat bonus granted to partner places.
func WithPartnerBonus(bonus float64) Option {
	return func(e *Engine) {
		if bonus > 0 {
			e.partnerBonus = bonus
		}
	}
}

// WithDistanceCap overrides the distance beyond which proximity stops
// contributing to the score.
func WithDistanceCap(meters float64) Option {
	return func(e *Engine) {
		if meters > 0 {
			e.maxDistance = meters
		}
	}
}

// Engine computes final scores for merged result sets.
type Engine struct {
	partnerBonus float64
	maxDistance  float64
}

// NewEngine creates a ranking engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		partnerBonus: defaultPartnerBonus,
		maxDistance:  defaultMaxDistanceM,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Rank deduplicates, scores and sorts the combined result set.
//
// External results whose name matches a partner result (case-insensitive)
// are dropped: a curated record always wins over the provider's duplicate
// of the same place. origin may be nil, in which case proximity does not
// contribute to any score.
func (e *Engine) Rank(partners, external []model.NormalizedPlace, origin *model.Coordinates) []model.RankedPlace {
	partnerNames := make(map[string]struct{}, len(partners))
	for _, p := range partners {
		partnerNames[strings.ToLower(p.Name)] = struct{}{}
	}

	merged := make([]model.NormalizedPlace, 0, len(partners)+len(external))
	merged = append(merged, partners...)
	for _, p := range external {
		if _, dup := partnerNames[strings.ToLower(p.Name)]; dup {
			continue
		}
		merged = append(merged, p)
	}

	ranked := make([]model.RankedPlace, len(merged))
	for i, place := range merged {
		ranked[i] = model.RankedPlace{
			NormalizedPlace: place,
			Breakdown:       e.score(place, origin),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Breakdown.FinalScore > ranked[j].Breakdown.FinalScore
	})

	return ranked
}

// score computes the component breakdown for a single place.
func (e *Engine) score(place model.NormalizedPlace, origin *model.Coordinates) model.ScoreBreakdown {
	var b model.ScoreBreakdown

	// Partner bonus dominates every other component, so curated places
	// always outrank an equally rated external result.
	if place.IsPartner {
		b.PartnerBonus = e.partnerBonus

		// Priority 1 contributes the full ceiling; each step down costs
		// ten points and anything of 11 or more contributes nothing.
		priority := place.Priority
		if priority < 1 {
			priority = 1
		}
		b.PriorityScore = math.Max(0, defaultPriorityCeil-float64(priority-1)*defaultPriorityStep)
	}

	if place.Rating > 0 {
		b.RatingScore = (place.Rating / defaultRatingScale) * defaultRatingCeil
	}

	if origin != nil && place.Coordinates != nil {
		distance := Haversine(*origin, *place.Coordinates)
		normalized := math.Min(distance, e.maxDistance) / e.maxDistance
		b.DistanceScore = (1 - normalized) * defaultDistanceCeil
	}

	total := b.PartnerBonus + b.PriorityScore + b.RatingScore + b.DistanceScore
	b.FinalScore = math.Round(total*scoreRoundingFactor) / scoreRoundingFactor

	return b
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b model.Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}
