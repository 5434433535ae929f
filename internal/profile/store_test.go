package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/recoverybot/internal/database"
	"github.com/example/recoverybot/internal/profile"
	"github.com/example/recoverybot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, today string) (*profile.Store, *database.ProfileRepository) {
	t.Helper()
	db, err := database.Connect(database.Options{Type: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	day, err := time.Parse(models.DateLayout, today)
	require.NoError(t, err)

	repo := database.NewProfileRepository(db)
	return profile.NewStoreWithClock(repo, func() time.Time { return day }), repo
}

func TestLoad_FirstRunReturnsDefaults(t *testing.T) {
	store, _ := newStore(t, "2024-01-01")

	p := store.Load(context.Background(), 42)

	assert.Equal(t, 0, p.Streak, "first visit must not start a streak")
	assert.Equal(t, "2024-01-01", p.LastActiveDate)
	assert.Empty(t, p.CompletedQuizIDs)
	assert.Equal(t, "auto", p.Settings.Theme)
	assert.Equal(t, "ru", p.Settings.Language)
}

func TestLoad_IsIdempotent(t *testing.T) {
	store, _ := newStore(t, "2024-01-05")

	first := store.Load(context.Background(), 7)
	second := store.Load(context.Background(), 7)

	assert.Equal(t, first, second, "two loads with no save in between must agree")
}

func TestLoad_AdvancesStreakAcrossDays(t *testing.T) {
	store, repo := newStore(t, "2024-01-02")
	seed := models.DefaultProfile(9)
	seed.Streak = 3
	seed.LastActiveDate = "2024-01-01"
	store.Save(context.Background(), seed)

	p := store.Load(context.Background(), 9)
	assert.Equal(t, 4, p.Streak)

	// The advanced streak must have been persisted in the same turn.
	later, _ := newStoreFromRepo(repo, "2024-01-02")
	assert.Equal(t, 4, later.Load(context.Background(), 9).Streak)
}

func newStoreFromRepo(repo *database.ProfileRepository, today string) (*profile.Store, error) {
	day, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return nil, err
	}
	return profile.NewStoreWithClock(repo, func() time.Time { return day }), nil
}

func TestLoad_ShallowMergeOverDefaults(t *testing.T) {
	store, repo := newStore(t, "2024-01-01")

	// An old save that predates several fields, with a partial nested object.
	old := []byte(`{"streak":2,"lastActiveDate":"2024-01-01","completedQuizIds":["q1"],"settings":{"theme":"dark"}}`)
	require.NoError(t, repo.SaveRaw(context.Background(), 3, old))

	p := store.Load(context.Background(), 3)

	assert.Equal(t, 2, p.Streak)
	assert.Equal(t, []string{"q1"}, p.CompletedQuizIDs)
	assert.Empty(t, p.UnlockedBadgeIDs, "missing top-level fields keep their defaults")
	assert.Equal(t, "dark", p.Settings.Theme)
	assert.Equal(t, "", p.Settings.Language,
		"a nested object present in storage replaces the whole nested default")
}

func TestLoad_CorruptRecordFallsBackToDefaults(t *testing.T) {
	store, repo := newStore(t, "2024-01-01")
	require.NoError(t, repo.SaveRaw(context.Background(), 5, []byte("{not json")))

	p := store.Load(context.Background(), 5)

	assert.Equal(t, 0, p.Streak)
	assert.Empty(t, p.CompletedQuizIDs)
}

func TestReset_RemovesRecordAndRestoresDefaults(t *testing.T) {
	store, repo := newStore(t, "2024-01-02")
	p := store.Load(context.Background(), 11)
	p.Streak = 9
	p.CompletedQuizIDs = []string{"q1", "q2"}
	p.UnlockedBadgeIDs = []string{"first_quiz"}
	store.Save(context.Background(), p)

	got := store.Reset(context.Background(), 11)

	assert.Equal(t, models.DefaultProfile(11), got)
	_, err := repo.GetRaw(context.Background(), 11)
	assert.ErrorIs(t, err, database.ErrNotFound, "storage must no longer contain the record")
}

func TestSave_RoundTrip(t *testing.T) {
	store, _ := newStore(t, "2024-01-01")
	p := store.Load(context.Background(), 21)
	p.MarkQuizCompleted("q1")
	p.MarkTermViewed("term-1")
	p.PerfectQuizCount = 1
	store.Save(context.Background(), p)

	got := store.Load(context.Background(), 21)

	assert.Equal(t, 1, got.QuizzesCompleted())
	assert.Equal(t, 1, got.Progress.QuizzesCompleted)
	assert.Equal(t, []string{"term-1"}, got.ViewedTermIDs)
	assert.Equal(t, 1, got.PerfectQuizCount)
}
