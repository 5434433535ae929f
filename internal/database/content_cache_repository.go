package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ContentCacheRepository keeps the last good copy of each content module so
// views keep working when the network source is down.
type ContentCacheRepository struct {
	db *sqlx.DB
}

// NewContentCacheRepository creates a new repository instance
func NewContentCacheRepository(db *sqlx.DB) *ContentCacheRepository {
	return &ContentCacheRepository{db: db}
}

// Get returns the cached payload for a module, or ErrNotFound.
func (r *ContentCacheRepository) Get(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := r.db.GetContext(ctx, &payload,
		"SELECT payload FROM content_cache WHERE name = $1", name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cached content %q: %v", name, err)
	}
	return []byte(payload), nil
}

// Put stores or replaces the cached payload for a module.
func (r *ContentCacheRepository) Put(ctx context.Context, name string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO content_cache (name, payload) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
			payload = EXCLUDED.payload,
			fetched_at = CURRENT_TIMESTAMP
	`, name, string(payload))
	if err != nil {
		return fmt.Errorf("failed to cache content %q: %v", name, err)
	}
	return nil
}

// Invalidate drops the cached copy of a module.
func (r *ContentCacheRepository) Invalidate(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM content_cache WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to invalidate cached content %q: %v", name, err)
	}
	return nil
}
