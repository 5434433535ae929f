// Package scheduler runs the hourly streak reminder job.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/example/recoverybot/internal/database"
	"github.com/example/recoverybot/internal/profile"
	"github.com/example/recoverybot/internal/streak"
	"github.com/go-co-op/gocron"
)

// Notifier sends the reminder message. Backed by the bot in production.
type Notifier interface {
	SendStreakReminder(userID int64, days int) error
}

// Scheduler checks once an hour, inside the configured notification window,
// for users whose streak will break today unless they come back.
type Scheduler struct {
	scheduler *gocron.Scheduler
	repo      *database.ProfileRepository
	store     *profile.Store
	notifier  Notifier

	startHour int
	endHour   int
	now       func() time.Time
}

// New creates a scheduler in the given timezone. startHour and endHour bound
// the local hours during which reminders may be sent.
func New(loc *time.Location, repo *database.ProfileRepository, store *profile.Store, notifier Notifier, startHour, endHour int) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(loc),
		repo:      repo,
		store:     store,
		notifier:  notifier,
		startHour: startHour,
		endHour:   endHour,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// NewWithClock is New with an injectable clock, used by tests.
func NewWithClock(loc *time.Location, repo *database.ProfileRepository, store *profile.Store, notifier Notifier, startHour, endHour int, now func() time.Time) *Scheduler {
	s := New(loc, repo, store, notifier, startHour, endHour)
	s.now = now
	return s
}

// Start schedules the hourly check without blocking.
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.CheckAndSendReminders)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// CheckAndSendReminders walks every known user and notifies those whose
// streak is at risk. Exported so an admin command can force a run.
func (s *Scheduler) CheckAndSendReminders() {
	now := s.now()
	if now.Hour() < s.startHour || now.Hour() > s.endHour {
		log.Printf("scheduler: hour %d outside notification window (%d-%d), skipping",
			now.Hour(), s.startHour, s.endHour)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ids, err := s.repo.AllUserIDs(ctx)
	if err != nil {
		log.Printf("scheduler: failed to list users: %v", err)
		return
	}

	sent := 0
	for _, id := range ids {
		// Peek, not Load: checking a streak must not count as activity.
		p := s.store.Peek(ctx, id)
		if !streak.AtRisk(p, now) {
			continue
		}
		if err := s.notifier.SendStreakReminder(id, p.Streak); err != nil {
			log.Printf("scheduler: failed to remind user %d: %v", id, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		log.Printf("scheduler: sent %d streak reminders", sent)
	}
}
