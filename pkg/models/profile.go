package models

// DateLayout is the calendar-day format used for streak bookkeeping.
const DateLayout = "2006-01-02"

// ProgressCounters holds the persisted progress counters.
// QuizzesCompleted is kept in the stored record for compatibility with older
// saves, but readers should use Profile.QuizzesCompleted() which derives the
// value from the completed-quiz set.
type ProgressCounters struct {
	QuizzesCompleted int `json:"quizzesCompleted"`
	GlossaryViewed   int `json:"glossaryViewed"`
}

// Settings holds user-facing preferences.
type Settings struct {
	Theme    string `json:"theme"` // auto, light or dark
	Language string `json:"language"`
}

// Profile is the per-user state record. It is persisted as a single JSON
// document per Telegram user.
type Profile struct {
	UserID           int64            `json:"-"`
	Streak           int              `json:"streak"`
	LastActiveDate   string           `json:"lastActiveDate"` // DateLayout, empty = never active
	CompletedQuizIDs []string         `json:"completedQuizIds"`
	UnlockedBadgeIDs []string         `json:"unlockedBadgeIds"`
	PerfectQuizCount int              `json:"perfectQuizCount"`
	ViewedTermIDs    []string         `json:"viewedTermIds"`
	Progress         ProgressCounters `json:"progressCounters"`
	Settings         Settings         `json:"settings"`
}

// DefaultProfile returns the profile shape used on first run and after a reset.
func DefaultProfile(userID int64) *Profile {
	return &Profile{
		UserID:           userID,
		Streak:           0,
		LastActiveDate:   "",
		CompletedQuizIDs: []string{},
		UnlockedBadgeIDs: []string{},
		PerfectQuizCount: 0,
		ViewedTermIDs:    []string{},
		Progress: ProgressCounters{
			QuizzesCompleted: 0,
			GlossaryViewed:   0,
		},
		Settings: Settings{
			Theme:    "auto",
			Language: "ru",
		},
	}
}

// QuizzesCompleted is the single source of truth for the completed-quiz count.
func (p *Profile) QuizzesCompleted() int {
	return len(p.CompletedQuizIDs)
}

// HasCompletedQuiz reports whether the quiz id is in the completed set.
func (p *Profile) HasCompletedQuiz(quizID string) bool {
	for _, id := range p.CompletedQuizIDs {
		if id == quizID {
			return true
		}
	}
	return false
}

// HasBadge reports whether the badge id has been unlocked.
func (p *Profile) HasBadge(badgeID string) bool {
	for _, id := range p.UnlockedBadgeIDs {
		if id == badgeID {
			return true
		}
	}
	return false
}

// HasViewedTerm reports whether the glossary term has been opened before.
func (p *Profile) HasViewedTerm(termID string) bool {
	for _, id := range p.ViewedTermIDs {
		if id == termID {
			return true
		}
	}
	return false
}

// MarkTermViewed records a glossary term view. It is idempotent: a term is
// only counted the first time. Returns true if the profile changed.
func (p *Profile) MarkTermViewed(termID string) bool {
	if p.HasViewedTerm(termID) {
		return false
	}
	p.ViewedTermIDs = append(p.ViewedTermIDs, termID)
	p.Progress.GlossaryViewed++
	return true
}

// MarkQuizCompleted records a quiz completion. The stored counter is bumped
// alongside the set so older readers of the record stay consistent.
// Returns true if this was the first completion of the quiz.
func (p *Profile) MarkQuizCompleted(quizID string) bool {
	if p.HasCompletedQuiz(quizID) {
		return false
	}
	p.CompletedQuizIDs = append(p.CompletedQuizIDs, quizID)
	p.Progress.QuizzesCompleted++
	return true
}
