package cache

import (
	"fmt"
	"strings"

	"github.com/vinatravel/discovery/internal/domain/model"
)

// Key prefixes per cached payload class.
const (
	SearchKeyPrefix  = "search:"
	GeocodeKeyPrefix = "geocode:"
)

// SearchKey derives the cache key for a search. It is a pure function of
// the normalized query and options, so identical logical queries always
// collide on the same key.
func SearchKey(query string, partnerLimit, externalLimit int, location *model.Coordinates) string {
	loc := "none"
	if location != nil {
		loc = fmt.Sprintf("%.6f,%.6f", location.Lat, location.Lng)
	}
	return fmt.Sprintf("%s%s|p%d|e%d|%s",
		SearchKeyPrefix, normalize(query), partnerLimit, externalLimit, loc)
}

// GeocodeKey derives the cache key for a geocoding lookup.
func GeocodeKey(address string) string {
	return GeocodeKeyPrefix + normalize(address)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
