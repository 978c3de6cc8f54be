package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vinatravel/discovery/internal/adapters/cache"
	"github.com/vinatravel/discovery/internal/adapters/mq/queue"
	"github.com/vinatravel/discovery/internal/adapters/recordstore"
	"github.com/vinatravel/discovery/internal/adapters/vectorindex"
	"github.com/vinatravel/discovery/internal/domain/model"
	"github.com/vinatravel/discovery/internal/observability"
	"github.com/vinatravel/discovery/pkg/logger"
)

// Sync operation names used in metrics.
const (
	syncOpCreate = "create"
	syncOpUpdate = "update"
	syncOpDelete = "delete"
	syncOpRetry  = "retry"
)

// AddEntity onboards a partner place. The record store write is
// authoritative; the index projection happens inline and, on failure, is
// handed to the background workers.
func (s *Service) AddEntity(ctx context.Context, input model.EntityInput) (model.PartnerEntity, error) {
	if err := validateInput(input); err != nil {
		return model.PartnerEntity{}, err
	}

	now := s.now().UTC()
	entity := model.PartnerEntity{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Location:    model.Coordinates{Lat: *input.Latitude, Lng: *input.Longitude},
		Address:     input.Address,
		Category:    input.Category,
		Tags:        input.Tags,
		Priority:    clampPriority(input.Priority),
		Rating:      input.Rating,
		ReviewCount: input.ReviewCount,
		Status:      model.StatusActive,
		SyncStatus:  model.SyncPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, entity); err != nil {
		s.metrics.RecordSync(syncOpCreate, false)
		return model.PartnerEntity{}, fmt.Errorf("creating entity: %w", err)
	}
	s.metrics.RecordSync(syncOpCreate, true)
	s.invalidateSearches(ctx)

	if err := s.project(ctx, entity.ID); err != nil {
		s.log.Warn(ctx, "inline projection failed, queueing retry",
			logger.String("entity_id", entity.ID),
			logger.Error(err),
		)
		s.enqueueProjection(ctx, entity.ID)
	}

	return s.getEntity(ctx, entity.ID)
}

// GetEntity fetches one entity by ID.
func (s *Service) GetEntity(ctx context.Context, id string) (model.PartnerEntity, error) {
	return s.getEntity(ctx, id)
}

// ListEntities returns entities matching the filter, newest first.
func (s *Service) ListEntities(ctx context.Context, filter recordstore.ListFilter) ([]model.PartnerEntity, error) {
	return s.store.List(ctx, filter)
}

// UpdateEntity applies a partial update. Textual changes re-embed and
// re-project; location, rating and priority changes only rewrite the index
// payload; a status flip to inactive withdraws the entity from search.
func (s *Service) UpdateEntity(ctx context.Context, id string, update model.EntityUpdate) (model.PartnerEntity, error) {
	if update.Empty() {
		return model.PartnerEntity{}, ErrEmptyUpdate
	}

	entity, err := s.getEntity(ctx, id)
	if err != nil {
		return model.PartnerEntity{}, err
	}

	applyUpdate(&entity, update)
	entity.UpdatedAt = s.now().UTC()

	deactivated := update.Status != nil && *update.Status == model.StatusInactive
	reembed := update.Textual() && !deactivated
	if reembed {
		entity.SyncStatus = model.SyncPending
		entity.SyncError = ""
	}

	if err := s.store.Update(ctx, entity); err != nil {
		s.metrics.RecordSync(syncOpUpdate, false)
		return model.PartnerEntity{}, fmt.Errorf("updating entity: %w", err)
	}
	s.metrics.RecordSync(syncOpUpdate, true)
	s.invalidateSearches(ctx)

	switch {
	case deactivated:
		s.withdrawFromIndex(ctx, entity)
	case reembed:
		if err := s.project(ctx, entity.ID); err != nil {
			s.log.Warn(ctx, "inline projection failed, queueing retry",
				logger.String("entity_id", entity.ID),
				logger.Error(err),
			)
			s.enqueueProjection(ctx, entity.ID)
		}
	case entity.SearchIndexID != "" && entity.SyncStatus == model.SyncSynced:
		// Non-textual change on a projected entity: refresh the payload
		// without regenerating the embedding.
		if err := s.index.UpdateMetadata(ctx, entity.SearchIndexID, indexMetadata(entity)); err != nil {
			s.log.Warn(ctx, "metadata refresh failed, queueing full projection",
				logger.String("entity_id", entity.ID),
				logger.Error(err),
			)
			_ = s.store.MarkSyncPending(ctx, entity.ID)
			s.enqueueProjection(ctx, entity.ID)
		}
	}

	return s.getEntity(ctx, id)
}

// DeactivateEntity soft-deletes an entity: it stays in the record store but
// is withdrawn from the search index.
func (s *Service) DeactivateEntity(ctx context.Context, id string) (model.PartnerEntity, error) {
	inactive := model.StatusInactive
	return s.UpdateEntity(ctx, id, model.EntityUpdate{Status: &inactive})
}

// DeleteEntity removes an entity permanently. The index delete is attempted
// first and is best-effort; the store delete is authoritative.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	entity, err := s.getEntity(ctx, id)
	if err != nil {
		return err
	}

	if entity.SearchIndexID != "" {
		if err := s.index.Delete(ctx, entity.SearchIndexID); err != nil {
			s.log.Warn(ctx, "index delete failed, record delete proceeds",
				logger.String("entity_id", id),
				logger.Error(err),
			)
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.metrics.RecordSync(syncOpDelete, false)
		if errors.Is(err, recordstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("deleting entity: %w", err)
	}
	s.metrics.RecordSync(syncOpDelete, true)
	s.invalidateSearches(ctx)
	s.collector.Log(ctx, observability.KindSync, observability.LevelInfo,
		"entity deleted", map[string]any{"entity_id": id})
	return nil
}

// RetrySync re-projects up to limit entities that are pending or retriably
// failed. A non-positive limit falls back to the configured batch size.
func (s *Service) RetrySync(ctx context.Context, limit int) (model.RetryResult, error) {
	if limit <= 0 {
		limit = s.cfg.RetryBatchLimit
	}
	candidates, err := s.store.ListNeedingSync(ctx, limit)
	if err != nil {
		return model.RetryResult{}, fmt.Errorf("listing retry candidates: %w", err)
	}

	var result model.RetryResult
	result.Attempted = len(candidates)
	if len(candidates) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RetryParallelism)
	for _, candidate := range candidates {
		id := candidate.ID
		g.Go(func() error {
			err := s.project(gctx, id)
			mu.Lock()
			if err != nil {
				result.Failed++
			} else {
				result.Succeeded++
			}
			mu.Unlock()
			return nil // one failure must not cancel the batch
		})
	}
	_ = g.Wait()

	s.metrics.RecordSync(syncOpRetry, result.Failed == 0)
	s.collector.Log(ctx, observability.KindSync, observability.LevelInfo,
		"retry batch finished", map[string]any{
			"attempted": result.Attempted,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		})
	return result, nil
}

// SyncStats aggregates entity counts by sync status and refreshes the
// state gauges.
func (s *Service) SyncStats(ctx context.Context) (model.SyncStats, error) {
	stats, err := s.store.SyncStats(ctx)
	if err != nil {
		return model.SyncStats{}, fmt.Errorf("aggregating sync stats: %w", err)
	}
	s.metrics.SetEntityState(string(model.SyncSynced), stats.Synced)
	s.metrics.SetEntityState(string(model.SyncPending), stats.Pending)
	s.metrics.SetEntityState(string(model.SyncFailed), stats.Failed)
	return stats, nil
}

// project regenerates an entity's embedding and writes it to the index,
// then records the outcome in the store. Inactive entities are withdrawn
// instead.
func (s *Service) project(ctx context.Context, entityID string) error {
	entity, err := s.getEntity(ctx, entityID)
	if err != nil {
		return err
	}
	if entity.Status == model.StatusInactive {
		s.withdrawFromIndex(ctx, entity)
		return nil
	}

	vector, err := s.embedder.Embed(ctx, embeddingText(entity))
	if err != nil {
		s.recordProjectionFailure(ctx, entity.ID, err)
		return fmt.Errorf("embedding entity %s: %w", entity.ID, err)
	}

	indexID := entity.SearchIndexID
	if indexID == "" {
		indexID = entity.ID
	}
	err = s.index.Upsert(ctx, vectorindex.Point{
		ID:       indexID,
		Vector:   vector,
		Metadata: indexMetadata(entity),
	})
	if err != nil {
		s.recordProjectionFailure(ctx, entity.ID, err)
		return fmt.Errorf("indexing entity %s: %w", entity.ID, err)
	}

	if err := s.store.MarkSynced(ctx, entity.ID, indexID); err != nil {
		return fmt.Errorf("marking entity %s synced: %w", entity.ID, err)
	}
	s.collector.Log(ctx, observability.KindSync, observability.LevelInfo,
		"entity projected", map[string]any{"entity_id": entity.ID})
	return nil
}

func (s *Service) recordProjectionFailure(ctx context.Context, entityID string, cause error) {
	if err := s.store.MarkSyncFailed(ctx, entityID, cause.Error()); err != nil {
		s.log.Error(ctx, "recording projection failure",
			logger.String("entity_id", entityID),
			logger.Error(err),
		)
	}
	s.collector.Log(ctx, observability.KindSync, observability.LevelError,
		"projection failed", map[string]any{
			"entity_id": entityID,
			"cause":     cause.Error(),
		})
}

func (s *Service) withdrawFromIndex(ctx context.Context, entity model.PartnerEntity) {
	if entity.SearchIndexID == "" {
		return
	}
	if err := s.index.Delete(ctx, entity.SearchIndexID); err != nil {
		s.log.Warn(ctx, "withdrawing entity from index failed",
			logger.String("entity_id", entity.ID),
			logger.Error(err),
		)
	}
}

func (s *Service) enqueueProjection(ctx context.Context, entityID string) {
	if !s.queue.Enqueue(ctx, queue.Job{EntityID: entityID}) {
		s.log.Error(ctx, "projection queue full, entity stays failed",
			logger.String("entity_id", entityID),
		)
	}
	s.metrics.SetSyncQueueDepth(s.queue.Len(ctx))
}

// invalidateSearches drops cached search payloads after any entity
// mutation so results never outlive the data they were built from.
func (s *Service) invalidateSearches(ctx context.Context) {
	n := s.cache.InvalidateByPrefix(ctx, cache.SearchKeyPrefix)
	if n > 0 {
		s.metrics.SetCacheEntries(s.cache.Len())
	}
}

func (s *Service) getEntity(ctx context.Context, id string) (model.PartnerEntity, error) {
	entity, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return model.PartnerEntity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return model.PartnerEntity{}, fmt.Errorf("fetching entity: %w", err)
	}
	return entity, nil
}

func validateInput(input model.EntityInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(input.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if strings.TrimSpace(input.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if input.Latitude == nil || input.Longitude == nil {
		return fmt.Errorf("%w: latitude and longitude are required", ErrValidation)
	}
	if *input.Latitude < -90 || *input.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrValidation)
	}
	if *input.Longitude < -180 || *input.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range", ErrValidation)
	}
	if input.Rating < 0 || input.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 0 and 5", ErrValidation)
	}
	return nil
}

func clampPriority(priority int) int {
	if priority < 1 {
		return 1
	}
	return priority
}

func applyUpdate(entity *model.PartnerEntity, update model.EntityUpdate) {
	if update.Name != nil {
		entity.Name = strings.TrimSpace(*update.Name)
	}
	if update.Description != nil {
		entity.Description = *update.Description
	}
	if update.Latitude != nil {
		entity.Location.Lat = *update.Latitude
	}
	if update.Longitude != nil {
		entity.Location.Lng = *update.Longitude
	}
	if update.Address != nil {
		entity.Address = *update.Address
	}
	if update.Category != nil {
		entity.Category = *update.Category
	}
	if update.Tags != nil {
		entity.Tags = *update.Tags
	}
	if update.Priority != nil {
		entity.Priority = clampPriority(*update.Priority)
	}
	if update.Rating != nil {
		entity.Rating = *update.Rating
	}
	if update.ReviewCount != nil {
		entity.ReviewCount = *update.ReviewCount
	}
	if update.Status != nil {
		entity.Status = *update.Status
	}
}

// embeddingText flattens the fields that shape an entity's semantic
// identity into the string fed to the embedder.
func embeddingText(entity model.PartnerEntity) string {
	parts := []string{entity.Name, entity.Description, entity.Category}
	parts = append(parts, entity.Tags...)
	parts = append(parts, entity.Address)
	fields := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, " ")
}

func indexMetadata(entity model.PartnerEntity) vectorindex.Metadata {
	return vectorindex.Metadata{
		Name:        entity.Name,
		Description: entity.Description,
		Category:    entity.Category,
		Tags:        entity.Tags,
		Address:     entity.Address,
		Lat:         entity.Location.Lat,
		Lng:         entity.Location.Lng,
		Rating:      entity.Rating,
		ReviewCount: entity.ReviewCount,
		Priority:    entity.Priority,
		IsPartner:   true,
	}
}
