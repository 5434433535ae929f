package streak_test

import (
	"testing"
	"time"

	"github.com/example/recoverybot/internal/streak"
	"github.com/example/recoverybot/pkg/models"
	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAdvance_ConsecutiveDay(t *testing.T) {
	s, last, changed := streak.Advance(day("2024-01-02"), "2024-01-01", 3)

	assert.True(t, changed)
	assert.Equal(t, 4, s, "next-day visit should grow the streak")
	assert.Equal(t, "2024-01-02", last)
}

func TestAdvance_SameDayIsNoOp(t *testing.T) {
	s, last, changed := streak.Advance(day("2024-01-02"), "2024-01-02", 4)

	assert.False(t, changed, "a repeated visit on the same day must not change anything")
	assert.Equal(t, 4, s)
	assert.Equal(t, "2024-01-02", last)
}

func TestAdvance_GapResetsToOne(t *testing.T) {
	s, last, changed := streak.Advance(day("2024-01-10"), "2024-01-01", 3)

	assert.True(t, changed)
	assert.Equal(t, 1, s, "a gap of two or more days restarts the streak")
	assert.Equal(t, "2024-01-10", last)
}

func TestAdvance_FirstVisitDoesNotIncrement(t *testing.T) {
	s, last, changed := streak.Advance(day("2024-01-01"), "", 0)

	assert.True(t, changed, "the date stamp still needs persisting")
	assert.Equal(t, 0, s, "the very first visit must not start the streak")
	assert.Equal(t, "2024-01-01", last)
}

func TestAdvance_DaySequence(t *testing.T) {
	// First visit, then three consecutive days, a repeat, then a long gap.
	last, s := "", 0
	var changed bool

	s, last, _ = streak.Advance(day("2024-01-01"), last, s)
	assert.Equal(t, 0, s)

	for i, d := range []string{"2024-01-02", "2024-01-03", "2024-01-04"} {
		s, last, changed = streak.Advance(day(d), last, s)
		assert.True(t, changed)
		assert.Equal(t, i+1, s)
	}

	s, last, changed = streak.Advance(day("2024-01-04"), last, s)
	assert.False(t, changed)
	assert.Equal(t, 3, s)

	s, _, _ = streak.Advance(day("2024-01-10"), last, s)
	assert.Equal(t, 1, s)
}

func TestTouch(t *testing.T) {
	p := models.DefaultProfile(1)
	p.Streak = 2
	p.LastActiveDate = "2024-03-01"

	changed := streak.Touch(p, day("2024-03-02"))

	assert.True(t, changed)
	assert.Equal(t, 3, p.Streak)
	assert.Equal(t, "2024-03-02", p.LastActiveDate)
}

func TestAtRisk(t *testing.T) {
	p := models.DefaultProfile(1)
	p.Streak = 5
	p.LastActiveDate = "2024-03-01"

	assert.True(t, streak.AtRisk(p, day("2024-03-02")))
	assert.False(t, streak.AtRisk(p, day("2024-03-03")), "already broken, nothing left to save")

	p.Streak = 0
	p.LastActiveDate = "2024-03-01"
	assert.False(t, streak.AtRisk(p, day("2024-03-02")), "no streak to lose")
}
