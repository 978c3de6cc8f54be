// Package observability keeps in-process operational state: per-source
// counters, a bounded ring of recent events, the slow-search list, and the
// derived health verdict. Prometheus metrics cover fleet-level dashboards;
// this collector answers "what happened just now" on a single instance.
package observability

import (
	"context"
	"sync"
	"time"

	"github.com/vinatravel/discovery/pkg/metrics"
)

const (
	// ringCapacity bounds the recent-event buffer.
	ringCapacity = 1000
	// slowThreshold marks a search worth keeping in the slow list.
	slowThreshold = 2 * time.Second
	// slowCapacity bounds the slow-search list.
	slowCapacity = 10

	// healthySuccessRatio is the minimum per-source success ratio.
	healthySuccessRatio = 0.8
	// healthyErrorRate is the maximum overall search error rate.
	healthyErrorRate = 0.10
)

// Event levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Event kinds.
const (
	KindSearch = "search"
	KindSync   = "sync"
	KindCache  = "cache"
	KindSource = "source"
)

// Event is one entry in the recent-activity ring.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      string         `json:"kind"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// SourceStats aggregates one data source's request history.
type SourceStats struct {
	Requests     int64   `json:"requests"`
	Successes    int64   `json:"successes"`
	Failures     int64   `json:"failures"`
	AvgLatencyMS float64 `json:"avgLatencyMs"`
}

// Healthy reports whether the source meets the success-ratio floor. A source
// that has never been asked is considered healthy.
func (s SourceStats) Healthy() bool {
	if s.Requests == 0 {
		return true
	}
	return float64(s.Successes)/float64(s.Requests) > healthySuccessRatio
}

// SlowSearch records one search that exceeded the slow threshold.
type SlowSearch struct {
	Query      string    `json:"query"`
	DurationMS int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
}

// SearchStats aggregates search outcomes.
type SearchStats struct {
	Total     int64 `json:"total"`
	Errors    int64 `json:"errors"`
	CacheHits int64 `json:"cacheHits"`
}

// Health is the derived verdict for the whole engine.
type Health struct {
	Healthy      bool                   `json:"healthy"`
	ErrorRate    float64                `json:"errorRate"`
	Sources      map[string]SourceStats `json:"sources"`
	SlowSearches int                    `json:"slowSearches"`
}

// Snapshot is the full state dump served by the ops endpoints.
type Snapshot struct {
	Search  SearchStats            `json:"search"`
	Sources map[string]SourceStats `json:"sources"`
	Slow    []SlowSearch           `json:"slow"`
}

// Collector accumulates operational state. All methods are safe for
// concurrent use.
type Collector struct {
	mu      sync.RWMutex
	search  SearchStats
	sources map[string]*SourceStats
	slow    []SlowSearch

	ring     []Event
	ringHead int

	now     func() time.Time
	metrics *metrics.Manager
}

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithMetrics forwards recorded figures to the Prometheus manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty collector.
func New(opts ...Option) *Collector {
	c := &Collector{
		sources: make(map[string]*SourceStats),
		ring:    make([]Event, 0, ringCapacity),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordSearch notes one completed search. Slow searches additionally land
// in the slow list, newest first.
func (c *Collector) RecordSearch(_ context.Context, query string, duration time.Duration, cached bool, searchErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.search.Total++
	if searchErr != nil {
		c.search.Errors++
	}
	if cached {
		c.search.CacheHits++
	}

	if duration > slowThreshold {
		c.slow = append([]SlowSearch{{
			Query:      query,
			DurationMS: duration.Milliseconds(),
			Timestamp:  c.now(),
		}}, c.slow...)
		if len(c.slow) > slowCapacity {
			c.slow = c.slow[:slowCapacity]
		}
	}

	if c.metrics != nil {
		outcome := metrics.OutcomeOK
		switch {
		case searchErr != nil:
			outcome = metrics.OutcomeError
		case cached:
			outcome = metrics.OutcomeCached
		}
		c.metrics.RecordSearch(outcome, duration)
	}
}

// RecordSourceRequest notes one fan-out branch outcome and folds its latency
// into the running average.
func (c *Collector) RecordSourceRequest(_ context.Context, source string, success bool, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sources[source]
	if !ok {
		s = &SourceStats{}
		c.sources[source] = s
	}

	ms := float64(latency.Milliseconds())
	s.AvgLatencyMS = (s.AvgLatencyMS*float64(s.Requests) + ms) / float64(s.Requests+1)
	s.Requests++
	if success {
		s.Successes++
	} else {
		s.Failures++
	}

	if c.metrics != nil {
		c.metrics.RecordDataSource(source, success, latency)
	}
}

// Log appends an event to the recent-activity ring.
func (c *Collector) Log(_ context.Context, kind, level, message string, fields map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := Event{
		Timestamp: c.now(),
		Kind:      kind,
		Level:     level,
		Message:   message,
		Fields:    fields,
	}
	if len(c.ring) < ringCapacity {
		c.ring = append(c.ring, ev)
		return
	}
	c.ring[c.ringHead] = ev
	c.ringHead = (c.ringHead + 1) % ringCapacity
}

// Recent returns up to limit events, most recent first, optionally filtered
// by kind and level (empty string matches everything).
func (c *Collector) Recent(_ context.Context, limit int, kind, level string) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > len(c.ring) {
		limit = len(c.ring)
	}

	out := make([]Event, 0, limit)
	for i := len(c.ring) - 1; i >= 0 && len(out) < limit; i-- {
		ev := c.ring[(c.ringHead+i)%len(c.ring)]
		if kind != "" && ev.Kind != kind {
			continue
		}
		if level != "" && ev.Level != level {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// SlowSearches returns the retained slow searches, newest first.
func (c *Collector) SlowSearches(_ context.Context) []SlowSearch {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]SlowSearch(nil), c.slow...)
}

// Stats returns a copy of the aggregated state.
func (c *Collector) Stats(_ context.Context) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sources := make(map[string]SourceStats, len(c.sources))
	for name, s := range c.sources {
		sources[name] = *s
	}
	return Snapshot{
		Search:  c.search,
		Sources: sources,
		Slow:    append([]SlowSearch(nil), c.slow...),
	}
}

// Health derives the engine verdict: every source must be healthy and the
// overall search error rate must stay under the ceiling.
func (c *Collector) Health(_ context.Context) Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := Health{
		Healthy:      true,
		Sources:      make(map[string]SourceStats, len(c.sources)),
		SlowSearches: len(c.slow),
	}
	for name, s := range c.sources {
		h.Sources[name] = *s
		if !s.Healthy() {
			h.Healthy = false
		}
	}
	if c.search.Total > 0 {
		h.ErrorRate = float64(c.search.Errors) / float64(c.search.Total)
		if h.ErrorRate >= healthyErrorRate {
			h.Healthy = false
		}
	}
	return h
}

// Reset clears all accumulated state.
func (c *Collector) Reset(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.search = SearchStats{}
	c.sources = make(map[string]*SourceStats)
	c.slow = nil
	c.ring = c.ring[:0]
	c.ringHead = 0
}
