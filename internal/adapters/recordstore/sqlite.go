package recordstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vinatravel/discovery/internal/domain/model"
)

// maxSyncAttempts caps how often a failed projection is retried before the
// entity requires operator attention.
const maxSyncAttempts = 5

const schema = `
CREATE TABLE IF NOT EXISTS partner_places (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	lat                  REAL NOT NULL,
	lng                  REAL NOT NULL,
	address              TEXT NOT NULL DEFAULT '',
	category             TEXT NOT NULL DEFAULT '',
	tags                 TEXT NOT NULL DEFAULT '[]',
	priority             INTEGER NOT NULL DEFAULT 1,
	rating               REAL NOT NULL DEFAULT 0,
	review_count         INTEGER NOT NULL DEFAULT 0,
	status               TEXT NOT NULL DEFAULT 'active',
	search_index_id      TEXT NOT NULL DEFAULT '',
	sync_status          TEXT NOT NULL DEFAULT 'pending',
	sync_error           TEXT NOT NULL DEFAULT '',
	sync_attempts        INTEGER NOT NULL DEFAULT 0,
	last_sync_attempt_at TIMESTAMP,
	created_at           TIMESTAMP NOT NULL,
	updated_at           TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_partner_places_sync
	ON partner_places (sync_status, sync_attempts);
CREATE INDEX IF NOT EXISTS idx_partner_places_status_category
	ON partner_places (status, category);
`

const entityColumns = `id, name, description, lat, lng, address, category, tags,
	priority, rating, review_count, status, search_index_id, sync_status,
	sync_error, sync_attempts, last_sync_attempt_at, created_at, updated_at`

// SQLite implements Store on a local SQLite database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// SQLiteOption applies a configuration option to the SQLite store.
type SQLiteOption func(*SQLite)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLite) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func NewSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create implements Store.
func (s *SQLite) Create(ctx context.Context, e model.PartnerEntity) error {
	tags, err := marshalTags(e.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO partner_places (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Description, e.Location.Lat, e.Location.Lng,
		e.Address, e.Category, tags, e.Priority, e.Rating, e.ReviewCount,
		string(e.Status), e.SearchIndexID, string(e.SyncStatus), e.SyncError,
		e.SyncAttempts, e.LastSyncAttemptAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicate, e.ID)
		}
		return fmt.Errorf("inserting entity %s: %w", e.ID, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, id string) (model.PartnerEntity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM partner_places WHERE id = ?`, id)
	return scanEntity(row)
}

// List implements Store.
func (s *SQLite) List(ctx context.Context, filter ListFilter) ([]model.PartnerEntity, error) {
	query := `SELECT ` + entityColumns + ` FROM partner_places`
	var conds []string
	var args []any

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.SyncStatus != "" {
		conds = append(conds, "sync_status = ?")
		args = append(args, string(filter.SyncStatus))
	}
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.NameLike != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+filter.NameLike+"%")
	}
	if filter.MinRating > 0 {
		conds = append(conds, "rating >= ?")
		args = append(args, filter.MinRating)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	defer rows.Close()

	return collectEntities(rows)
}

// Update implements Store.
func (s *SQLite) Update(ctx context.Context, e model.PartnerEntity) error {
	tags, err := marshalTags(e.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE partner_places SET
			name = ?, description = ?, lat = ?, lng = ?, address = ?,
			category = ?, tags = ?, priority = ?, rating = ?, review_count = ?,
			status = ?, search_index_id = ?, sync_status = ?, sync_error = ?,
			sync_attempts = ?, last_sync_attempt_at = ?, updated_at = ?
		WHERE id = ?`,
		e.Name, e.Description, e.Location.Lat, e.Location.Lng, e.Address,
		e.Category, tags, e.Priority, e.Rating, e.ReviewCount,
		string(e.Status), e.SearchIndexID, string(e.SyncStatus), e.SyncError,
		e.SyncAttempts, e.LastSyncAttemptAt, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating entity %s: %w", e.ID, err)
	}
	return requireRow(res, e.ID)
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM partner_places WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	return requireRow(res, id)
}

// MarkSyncPending implements Store.
func (s *SQLite) MarkSyncPending(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE partner_places
		SET sync_status = ?, sync_error = '', updated_at = ?
		WHERE id = ?`,
		string(model.SyncPending), s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking entity %s pending: %w", id, err)
	}
	return requireRow(res, id)
}

// MarkSynced implements Store.
func (s *SQLite) MarkSynced(ctx context.Context, id, indexID string) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE partner_places
		SET sync_status = ?, sync_error = '', search_index_id = ?,
			last_sync_attempt_at = ?, updated_at = ?
		WHERE id = ?`,
		string(model.SyncSynced), indexID, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("marking entity %s synced: %w", id, err)
	}
	return requireRow(res, id)
}

// MarkSyncFailed implements Store.
func (s *SQLite) MarkSyncFailed(ctx context.Context, id, cause string) error {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE partner_places
		SET sync_status = ?, sync_error = ?, sync_attempts = sync_attempts + 1,
			last_sync_attempt_at = ?, updated_at = ?
		WHERE id = ?`,
		string(model.SyncFailed), cause, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("marking entity %s failed: %w", id, err)
	}
	return requireRow(res, id)
}

// ListNeedingSync implements Store.
func (s *SQLite) ListNeedingSync(ctx context.Context, limit int) ([]model.PartnerEntity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entityColumns+` FROM partner_places
		WHERE status = ?
		  AND (sync_status = ? OR (sync_status = ? AND sync_attempts < ?))
		ORDER BY updated_at ASC
		LIMIT ?`,
		string(model.StatusActive), string(model.SyncPending),
		string(model.SyncFailed), maxSyncAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing entities needing sync: %w", err)
	}
	defer rows.Close()

	return collectEntities(rows)
}

// SyncStats implements Store.
func (s *SQLite) SyncStats(ctx context.Context) (model.SyncStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sync_status, COUNT(*) FROM partner_places GROUP BY sync_status`)
	if err != nil {
		return model.SyncStats{}, fmt.Errorf("aggregating sync stats: %w", err)
	}
	defer rows.Close()

	var stats model.SyncStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return model.SyncStats{}, fmt.Errorf("scanning sync stats: %w", err)
		}
		stats.Total += count
		switch model.SyncStatus(status) {
		case model.SyncSynced:
			stats.Synced = count
		case model.SyncPending:
			stats.Pending = count
		case model.SyncFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (model.PartnerEntity, error) {
	var e model.PartnerEntity
	var tags, status, syncStatus string
	var lastAttempt sql.NullTime

	err := row.Scan(
		&e.ID, &e.Name, &e.Description, &e.Location.Lat, &e.Location.Lng,
		&e.Address, &e.Category, &tags, &e.Priority, &e.Rating, &e.ReviewCount,
		&status, &e.SearchIndexID, &syncStatus, &e.SyncError, &e.SyncAttempts,
		&lastAttempt, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PartnerEntity{}, ErrNotFound
	}
	if err != nil {
		return model.PartnerEntity{}, fmt.Errorf("scanning entity: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return model.PartnerEntity{}, fmt.Errorf("decoding tags for %s: %w", e.ID, err)
	}
	e.Status = model.EntityStatus(status)
	e.SyncStatus = model.SyncStatus(syncStatus)
	if lastAttempt.Valid {
		t := lastAttempt.Time
		e.LastSyncAttemptAt = &t
	}
	return e, nil
}

func collectEntities(rows *sql.Rows) ([]model.PartnerEntity, error) {
	var entities []model.PartnerEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}
