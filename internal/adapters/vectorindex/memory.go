package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force cosine similarity index. It holds every vector in
// a map and scans linearly on search, which is fine for the entity counts a
// single deployment manages.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]Point
}

// NewMemory creates an in-memory index enforcing the given dimension.
func NewMemory(dimension int) *Memory {
	return &Memory{
		dimension: dimension,
		points:    make(map[string]Point),
	}
}

// Upsert implements Index.
func (m *Memory) Upsert(_ context.Context, point Point) error {
	if len(point.Vector) == 0 {
		return ErrEmptyVector
	}
	if len(point.Vector) != m.dimension {
		return ErrDimensionMismatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	vec := make([]float32, len(point.Vector))
	copy(vec, point.Vector)
	point.Vector = vec
	m.points[point.ID] = point
	return nil
}

// UpdateMetadata implements Index.
func (m *Memory) UpdateMetadata(_ context.Context, id string, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.points[id]
	if !ok {
		return ErrNotFound
	}
	p.Metadata = meta
	m.points[id] = p
	return nil
}

// Search implements Index.
func (m *Memory) Search(_ context.Context, query Query) ([]Match, error) {
	if len(query.Vector) == 0 {
		return nil, ErrEmptyVector
	}
	if len(query.Vector) != m.dimension {
		return nil, ErrDimensionMismatch
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.points))
	for _, p := range m.points {
		if query.PartnersOnly && !p.Metadata.IsPartner {
			continue
		}
		matches = append(matches, Match{
			ID:       p.ID,
			Score:    cosine(query.Vector, p.Vector),
			Metadata: p.Metadata,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Delete implements Index.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, id)
	return nil
}

// Close implements Index.
func (m *Memory) Close() error { return nil }

// Len returns the number of indexed points.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
