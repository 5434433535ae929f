// Package streak implements the consecutive-day activity counter.
package streak

import (
	"time"

	"github.com/example/recoverybot/pkg/models"
)

// Advance applies the daily streak rule for a visit on the given day.
//
//   - lastActive == today: nothing to do, today was already counted.
//   - lastActive == yesterday: the streak grows by one.
//   - lastActive set but older: the streak restarts at 1.
//   - lastActive empty (first ever visit): the streak stays at its current
//     value; only the date is stamped. The first increment happens on the
//     next consecutive day. Badge thresholds were tuned against this
//     asymmetry, so it must not be "fixed".
//
// changed reports whether the caller needs to persist the profile.
func Advance(today time.Time, lastActive string, current int) (newStreak int, newLastActive string, changed bool) {
	day := today.Format(models.DateLayout)
	if lastActive == day {
		return current, lastActive, false
	}

	yesterday := today.AddDate(0, 0, -1).Format(models.DateLayout)
	switch {
	case lastActive == yesterday:
		newStreak = current + 1
	case lastActive != "":
		newStreak = 1
	default:
		newStreak = current
	}
	return newStreak, day, true
}

// Touch applies Advance to a profile in place and reports whether it changed.
func Touch(p *models.Profile, today time.Time) bool {
	s, last, changed := Advance(today, p.LastActiveDate, p.Streak)
	if changed {
		p.Streak = s
		p.LastActiveDate = last
	}
	return changed
}

// AtRisk reports whether the profile's streak will break unless the user is
// active on the given day. Used by the reminder scheduler.
func AtRisk(p *models.Profile, today time.Time) bool {
	if p.Streak == 0 {
		return false
	}
	yesterday := today.AddDate(0, 0, -1).Format(models.DateLayout)
	return p.LastActiveDate == yesterday
}
