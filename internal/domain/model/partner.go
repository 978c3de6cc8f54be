package model

import "time"

// SyncStatus tracks an entity's projection state in the vector index.
type SyncStatus string

// Sync state machine: pending -> {synced, failed}; failed -> pending on
// retry; any field update resets the entity to pending.
const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

// EntityStatus marks a partner entity active or soft-deleted.
type EntityStatus string

// Known entity statuses.
const (
	StatusActive   EntityStatus = "active"
	StatusInactive EntityStatus = "inactive"
)

// PartnerEntity is the source-of-truth record for a curated place. The
// record store owns it; the vector index only ever holds a derived,
// eventually consistent projection of it.
type PartnerEntity struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Location    Coordinates  `json:"location"`
	Address     string       `json:"address"`
	Category    string       `json:"category"`
	Tags        []string     `json:"tags"`
	// Priority ranks partner placement; 1 is the most important, and values
	// of 11 or more no longer contribute to the ranking score.
	Priority    int          `json:"priority"`
	Rating      float64      `json:"rating"`
	ReviewCount int          `json:"reviewCount"`
	Status      EntityStatus `json:"status"`

	// SearchIndexID is set once the entity has been projected at least once.
	SearchIndexID string     `json:"searchIndexId,omitempty"`
	SyncStatus    SyncStatus `json:"syncStatus"`
	SyncError     string     `json:"syncError,omitempty"`
	SyncAttempts  int        `json:"syncAttempts"`

	LastSyncAttemptAt *time.Time `json:"lastSyncAttemptAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// EntityInput carries the fields accepted when onboarding a partner place.
// Coordinates are pointers so an omitted latitude or longitude is
// distinguishable from an explicit zero.
type EntityInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     string   `json:"address"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Priority    int      `json:"priority"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"reviewCount"`
}

// EntityUpdate carries a partial update; nil fields are left untouched.
type EntityUpdate struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Latitude    *float64      `json:"latitude,omitempty"`
	Longitude   *float64      `json:"longitude,omitempty"`
	Address     *string       `json:"address,omitempty"`
	Category    *string       `json:"category,omitempty"`
	Tags        *[]string     `json:"tags,omitempty"`
	Priority    *int          `json:"priority,omitempty"`
	Rating      *float64      `json:"rating,omitempty"`
	ReviewCount *int          `json:"reviewCount,omitempty"`
	Status      *EntityStatus `json:"status,omitempty"`
}

// Textual reports whether the update touches any field that feeds the
// embedding text. Non-textual updates skip embedding regeneration.
func (u EntityUpdate) Textual() bool {
	return u.Name != nil || u.Description != nil || u.Category != nil ||
		u.Tags != nil || u.Address != nil
}

// Empty reports whether the update changes nothing.
func (u EntityUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Latitude == nil &&
		u.Longitude == nil && u.Address == nil && u.Category == nil &&
		u.Tags == nil && u.Priority == nil && u.Rating == nil &&
		u.ReviewCount == nil && u.Status == nil
}

// SyncStats aggregates entity counts by sync status.
type SyncStats struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// RetryResult summarizes one retry batch.
type RetryResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
