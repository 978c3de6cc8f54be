// Package recordstore persists partner entities. SQLite is the authoritative
// store; the vector index is only ever a projection of what lives here.
package recordstore

import (
	"context"

	"github.com/vinatravel/discovery/internal/domain/model"
)

// ListFilter narrows List results. Zero values mean "no constraint".
type ListFilter struct {
	Status     model.EntityStatus
	SyncStatus model.SyncStatus
	Category   string
	NameLike   string
	MinRating  float64
	Limit      int
	Offset     int
}

// Store is the persistence port for partner entities.
type Store interface {
	// Create inserts a new entity. The entity arrives fully populated,
	// including ID and timestamps.
	Create(ctx context.Context, entity model.PartnerEntity) error
	// Get fetches one entity by ID, ErrNotFound when absent.
	Get(ctx context.Context, id string) (model.PartnerEntity, error)
	// List returns entities matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]model.PartnerEntity, error)
	// Update overwrites a stored entity, ErrNotFound when absent.
	Update(ctx context.Context, entity model.PartnerEntity) error
	// Delete removes an entity permanently, ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// MarkSyncPending resets the entity's projection state to pending.
	MarkSyncPending(ctx context.Context, id string) error
	// MarkSynced records a successful projection under indexID.
	MarkSynced(ctx context.Context, id, indexID string) error
	// MarkSyncFailed records a failed projection attempt and its cause.
	MarkSyncFailed(ctx context.Context, id, cause string) error
	// ListNeedingSync returns entities eligible for a projection retry:
	// pending ones, plus failed ones still under the attempt cap.
	ListNeedingSync(ctx context.Context, limit int) ([]model.PartnerEntity, error)
	// SyncStats aggregates entity counts by sync status.
	SyncStats(ctx context.Context) (model.SyncStats, error)

	// Close releases the underlying connection.
	Close() error
}
