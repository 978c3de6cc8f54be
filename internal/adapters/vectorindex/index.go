// Package vectorindex abstracts the semantic search index used for partner
// entities. A Qdrant-backed implementation serves production; an in-memory
// brute-force implementation serves tests and single-node development.
package vectorindex

import "context"

// Metadata is the payload stored alongside each indexed vector.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
	Priority    int      `json:"priority"`
	IsPartner   bool     `json:"is_partner"`
}

// Point is a vector plus its identity and payload.
type Point struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Query describes a similarity search against the index.
type Query struct {
	Vector       []float32
	Limit        int
	PartnersOnly bool
}

// Match is a search hit ordered by descending similarity.
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Index stores partner vectors and answers similarity queries.
type Index interface {
	// Upsert inserts or replaces a point.
	Upsert(ctx context.Context, point Point) error
	// UpdateMetadata rewrites a point's payload without touching its vector.
	UpdateMetadata(ctx context.Context, id string, meta Metadata) error
	// Search returns up to Limit matches ordered by similarity.
	Search(ctx context.Context, query Query) ([]Match, error)
	// Delete removes a point. Deleting an absent point is not an error.
	Delete(ctx context.Context, id string) error
	// Close releases any held resources.
	Close() error
}
