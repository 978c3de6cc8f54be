package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vinatravel/discovery/internal/adapters/cache"
	"github.com/vinatravel/discovery/internal/adapters/vectorindex"
	"github.com/vinatravel/discovery/internal/domain/model"
	"github.com/vinatravel/discovery/internal/observability"
	"github.com/vinatravel/discovery/pkg/logger"
)

// Source names used in metrics and observability.
const (
	sourcePartner  = "partner"
	sourceExternal = "external"
)

// SearchOptions shape one search request. Zero limits fall back to the
// configured defaults; a nil location anchors the search on the default
// city center.
type SearchOptions struct {
	Query         string
	PartnerLimit  int
	ExternalLimit int
	Location      *model.Coordinates
	RadiusMeters  int
}

// SearchMetadata describes how a result set was produced.
type SearchMetadata struct {
	PartnerCount  int               `json:"partnerCount"`
	ExternalCount int               `json:"externalCount"`
	TotalCount    int               `json:"totalCount"`
	DurationMS    int64             `json:"durationMs"`
	Cached        bool              `json:"cached"`
	Degraded      bool              `json:"degraded"`
	SourceErrors  map[string]string `json:"sourceErrors,omitempty"`
}

// SearchResult is a ranked, merged result set plus its provenance.
type SearchResult struct {
	Results  []model.RankedPlace `json:"results"`
	Metadata SearchMetadata      `json:"metadata"`
}

type branchOutcome struct {
	places  []model.NormalizedPlace
	err     error
	skipped bool
}

// Search fans out to the partner index and the external provider, merges
// and ranks whatever came back, and caches the outcome. One failing source
// degrades the result; only both failing is an error.
func (s *Service) Search(ctx context.Context, opts SearchOptions) (SearchResult, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return SearchResult{}, ErrEmptyQuery
	}
	if opts.PartnerLimit <= 0 {
		opts.PartnerLimit = s.cfg.PartnerLimit
	}
	if opts.ExternalLimit <= 0 {
		opts.ExternalLimit = s.cfg.ExternalLimit
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = s.cfg.NearbyRadiusMeters
	}
	center := model.Coordinates{Lat: s.cfg.DefaultCenterLat, Lng: s.cfg.DefaultCenterLng}
	if opts.Location != nil {
		center = *opts.Location
	}

	start := s.now()
	key := cache.SearchKey(query, opts.PartnerLimit, opts.ExternalLimit, opts.Location)
	if hit, ok := s.cache.Get(ctx, key); ok {
		if result, ok := hit.(SearchResult); ok {
			result.Metadata.Cached = true
			result.Metadata.DurationMS = time.Since(start).Milliseconds()
			s.metrics.RecordCacheHit()
			s.collector.RecordSearch(ctx, query, time.Since(start), true, nil)
			return result, nil
		}
	}
	s.metrics.RecordCacheMiss()

	var wg sync.WaitGroup
	var partner, external branchOutcome

	wg.Add(1)
	go func() {
		defer wg.Done()
		partner = s.searchPartners(ctx, query, opts.PartnerLimit)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		external = s.searchExternal(ctx, query, center, opts.RadiusMeters, opts.ExternalLimit)
	}()

	wg.Wait()

	attempted, failed := 0, 0
	srcErrs := make(map[string]string)
	for name, out := range map[string]branchOutcome{
		sourcePartner:  partner,
		sourceExternal: external,
	} {
		if out.skipped {
			continue
		}
		attempted++
		if out.err != nil {
			failed++
			srcErrs[name] = out.err.Error()
		}
	}

	duration := time.Since(start)
	if attempted > 0 && failed == attempted {
		s.collector.RecordSearch(ctx, query, duration, false, ErrAllSourcesFailed)
		s.collector.Log(ctx, observability.KindSearch, observability.LevelError,
			"search failed on every source", map[string]any{"query": query})
		return SearchResult{}, ErrAllSourcesFailed
	}

	// center only anchors the nearby fan-out; proximity scoring applies
	// solely when the caller supplied a location.
	ranked := s.ranker.Rank(partner.places, external.places, opts.Location)
	result := SearchResult{
		Results: ranked,
		Metadata: SearchMetadata{
			PartnerCount:  len(partner.places),
			ExternalCount: len(external.places),
			TotalCount:    len(ranked),
			DurationMS:    duration.Milliseconds(),
			Degraded:      failed > 0,
		},
	}
	if len(srcErrs) > 0 {
		result.Metadata.SourceErrors = srcErrs
	}

	s.cache.Set(ctx, key, result)
	s.metrics.SetCacheEntries(s.cache.Len())
	s.collector.RecordSearch(ctx, query, duration, false, nil)
	if result.Metadata.Degraded {
		s.collector.Log(ctx, observability.KindSearch, observability.LevelWarn,
			"search degraded", map[string]any{"query": query, "errors": srcErrs})
	}

	s.log.Debug(ctx, "search completed",
		logger.String("query", query),
		logger.Int("results", len(ranked)),
		logger.Int64("duration_ms", duration.Milliseconds()),
		logger.Bool("degraded", result.Metadata.Degraded),
	)
	return result, nil
}

func (s *Service) searchPartners(ctx context.Context, query string, limit int) branchOutcome {
	start := s.now()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.collector.RecordSourceRequest(ctx, sourcePartner, false, time.Since(start))
		return branchOutcome{err: err}
	}

	matches, err := s.index.Search(ctx, vectorindex.Query{
		Vector:       vector,
		Limit:        limit,
		PartnersOnly: true,
	})
	s.collector.RecordSourceRequest(ctx, sourcePartner, err == nil, time.Since(start))
	if err != nil {
		return branchOutcome{err: err}
	}

	normalized := make([]model.NormalizedPlace, 0, len(matches))
	for _, m := range matches {
		normalized = append(normalized, normalizePartner(m))
	}
	return branchOutcome{places: normalized}
}

func (s *Service) searchExternal(ctx context.Context, query string, center model.Coordinates, radius, limit int) branchOutcome {
	if s.places == nil {
		return branchOutcome{skipped: true}
	}
	start := s.now()

	results, err := s.places.NearbySearch(ctx, center, radius, query)
	s.collector.RecordSourceRequest(ctx, sourceExternal, err == nil, time.Since(start))
	if err != nil {
		return branchOutcome{err: err}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	normalized := make([]model.NormalizedPlace, 0, len(results))
	for _, p := range results {
		normalized = append(normalized, model.NormalizedPlace{
			ID:          "ext_" + p.PlaceID,
			Source:      model.SourceExternal,
			Name:        p.Name,
			Rating:      p.Rating,
			Coordinates: p.Location,
			IsPartner:   false,
			Raw:         p,
		})
	}
	return branchOutcome{places: normalized}
}

func normalizePartner(m vectorindex.Match) model.NormalizedPlace {
	var loc *model.Coordinates
	if m.Metadata.Lat != 0 || m.Metadata.Lng != 0 {
		loc = &model.Coordinates{Lat: m.Metadata.Lat, Lng: m.Metadata.Lng}
	}
	return model.NormalizedPlace{
		ID:          "vec_" + m.ID,
		Source:      model.SourcePartner,
		Name:        m.Metadata.Name,
		Description: m.Metadata.Description,
		Rating:      m.Metadata.Rating,
		Coordinates: loc,
		IsPartner:   true,
		Priority:    m.Metadata.Priority,
		Raw:         m.Metadata,
	}
}

// ResolveLocation geocodes an address through the external provider, caching
// resolutions for a week.
func (s *Service) ResolveLocation(ctx context.Context, address string) (*model.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyQuery
	}
	if s.places == nil {
		return nil, ErrAllSourcesFailed
	}

	key := cache.GeocodeKey(address)
	if hit, ok := s.cache.Get(ctx, key); ok {
		if loc, ok := hit.(*model.Coordinates); ok {
			s.metrics.RecordCacheHit()
			return loc, nil
		}
	}
	s.metrics.RecordCacheMiss()

	loc, err := s.places.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	s.cache.SetTTL(ctx, key, loc, time.Duration(s.cfg.GeocodeCacheTTLSeconds)*time.Second)
	return loc, nil
}
