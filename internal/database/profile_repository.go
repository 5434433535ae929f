package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = sql.ErrNoRows

// ProfileRepository stores one JSON-encoded profile record per user.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new repository instance
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetRaw returns the stored profile document for a user, or ErrNotFound.
func (r *ProfileRepository) GetRaw(ctx context.Context, userID int64) ([]byte, error) {
	var data string
	err := r.db.GetContext(ctx, &data,
		"SELECT data FROM user_profiles WHERE user_id = $1", userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %v", err)
	}
	return []byte(data), nil
}

// SaveRaw writes the profile document for a user, creating the row if needed.
func (r *ProfileRepository) SaveRaw(ctx context.Context, userID int64, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, data) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = CURRENT_TIMESTAMP
	`, userID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save user profile: %v", err)
	}
	return nil
}

// Delete removes the stored record for a user. Deleting a missing record is
// not an error.
func (r *ProfileRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM user_profiles WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user profile: %v", err)
	}
	return nil
}

// Exists reports whether a stored record is present for the user.
func (r *ProfileRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM user_profiles WHERE user_id = $1", userID)
	if err != nil {
		return false, fmt.Errorf("failed to check user profile: %v", err)
	}
	return count > 0, nil
}

// AllUserIDs returns every user with a stored profile. Used by the reminder
// scheduler.
func (r *ProfileRepository) AllUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		"SELECT user_id FROM user_profiles ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %v", err)
	}
	return ids, nil
}
