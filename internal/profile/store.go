// Package profile owns the persistent per-user state record.
package profile

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/example/recoverybot/internal/database"
	"github.com/example/recoverybot/internal/streak"
	"github.com/example/recoverybot/pkg/models"
)

// Store loads and saves profiles. Loading merges the stored record over the
// default shape so fields added in newer versions survive old saves.
type Store struct {
	repo *database.ProfileRepository
	now  func() time.Time
}

// NewStore creates a store over the given repository.
func NewStore(repo *database.ProfileRepository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// NewStoreWithClock is NewStore with an injectable clock, used by tests and
// the reminder scheduler.
func NewStoreWithClock(repo *database.ProfileRepository, now func() time.Time) *Store {
	return &Store{repo: repo, now: now}
}

// Load returns the user's profile. A missing or corrupt record yields the
// defaults; a partial record is shallow-merged over them. Loading also runs
// the streak rule for today and persists the profile if the streak advanced.
func (s *Store) Load(ctx context.Context, userID int64) *models.Profile {
	p := s.Peek(ctx, userID)
	if streak.Touch(p, s.now()) {
		s.Save(ctx, p)
	}
	return p
}

// Peek returns the user's profile without counting the load as activity.
// The reminder scheduler uses this so checking a streak doesn't extend it.
func (s *Store) Peek(ctx context.Context, userID int64) *models.Profile {
	raw, err := s.repo.GetRaw(ctx, userID)
	if err != nil {
		if err != database.ErrNotFound {
			log.Printf("profile: failed to load user %d, using defaults: %v", userID, err)
		}
		return models.DefaultProfile(userID)
	}
	return merge(userID, raw)
}

// Save writes the profile. Persistence is fire-and-forget: failures are
// logged and never surfaced to the user.
func (s *Store) Save(ctx context.Context, p *models.Profile) {
	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("profile: failed to serialize user %d: %v", p.UserID, err)
		return
	}
	if err := s.repo.SaveRaw(ctx, p.UserID, data); err != nil {
		log.Printf("profile: failed to save user %d: %v", p.UserID, err)
	}
}

// UserIDs lists every user with a stored record.
func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	return s.repo.AllUserIDs(ctx)
}

// Reset deletes the stored record and returns a fresh default profile. The
// confirmation step lives in the bot layer.
func (s *Store) Reset(ctx context.Context, userID int64) *models.Profile {
	if err := s.repo.Delete(ctx, userID); err != nil {
		log.Printf("profile: failed to reset user %d: %v", userID, err)
	}
	return models.DefaultProfile(userID)
}

// merge overlays the stored top-level fields on the default shape. The merge
// is deliberately shallow: a nested object present in storage replaces the
// whole nested default, matching the original client's behavior.
func merge(userID int64, raw []byte) *models.Profile {
	var stored map[string]json.RawMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Printf("profile: corrupt record for user %d, using defaults: %v", userID, err)
		return models.DefaultProfile(userID)
	}

	defaults := models.DefaultProfile(userID)
	base, err := json.Marshal(defaults)
	if err != nil {
		return defaults
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return defaults
	}
	for k, v := range stored {
		merged[k] = v
	}

	combined, err := json.Marshal(merged)
	if err != nil {
		return defaults
	}
	// Decode into a zero profile, not the defaults: a stored nested object
	// must replace the whole nested default, not be patched into it.
	p := &models.Profile{}
	if err := json.Unmarshal(combined, p); err != nil {
		log.Printf("profile: unreadable record for user %d, using defaults: %v", userID, err)
		return models.DefaultProfile(userID)
	}
	p.UserID = userID
	return p
}
