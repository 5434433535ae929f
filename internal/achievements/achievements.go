// Package achievements evaluates the badge rule table against a profile.
package achievements

import (
	"log"

	"github.com/example/recoverybot/pkg/models"
)

// Ambient is the small amount of state predicates may read besides the
// profile itself. It is supplied by the caller, never pulled from globals.
type Ambient struct {
	TotalQuizzes int
	TotalTerms   int
	TotalBadges  int
}

// Rule pairs a badge id with its unlock predicate. Predicates must be pure
// reads of the profile and ambient state.
type Rule struct {
	ID        string
	Predicate func(p *models.Profile, a Ambient) bool
}

// Engine holds the ordered rule table. The order decides notification order
// when several badges unlock in one evaluation.
type Engine struct {
	rules []Rule
}

// New returns an engine with the default badge table.
func New() *Engine {
	return &Engine{rules: defaultRules()}
}

// NewWithRules returns an engine with a custom table, used by tests.
func NewWithRules(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

func defaultRules() []Rule {
	return []Rule{
		{ID: "first_quiz", Predicate: func(p *models.Profile, _ Ambient) bool {
			return p.QuizzesCompleted() >= 1
		}},
		{ID: "five_quizzes", Predicate: func(p *models.Profile, _ Ambient) bool {
			return p.QuizzesCompleted() >= 5
		}},
		{ID: "streak_7", Predicate: func(p *models.Profile, _ Ambient) bool {
			return p.Streak >= 7
		}},
		{ID: "streak_30", Predicate: func(p *models.Profile, _ Ambient) bool {
			return p.Streak >= 30
		}},
		{ID: "perfect_quiz", Predicate: func(p *models.Profile, _ Ambient) bool {
			return p.PerfectQuizCount >= 1
		}},
		{ID: "glossary_master", Predicate: func(p *models.Profile, a Ambient) bool {
			return a.TotalTerms > 0 && len(p.ViewedTermIDs) >= a.TotalTerms
		}},
	}
}

// Evaluate unlocks every badge whose predicate holds and that is not already
// unlocked, appending it to the profile. Unlocks are monotonic: nothing is
// ever removed, and a badge already present is never reported again. A
// panicking predicate counts as false and does not stop the remaining rules.
func (e *Engine) Evaluate(p *models.Profile, a Ambient) []string {
	var unlocked []string
	for _, rule := range e.rules {
		if p.HasBadge(rule.ID) {
			continue
		}
		if safeCheck(rule, p, a) {
			p.UnlockedBadgeIDs = append(p.UnlockedBadgeIDs, rule.ID)
			unlocked = append(unlocked, rule.ID)
		}
	}
	return unlocked
}

func safeCheck(rule Rule, p *models.Profile, a Ambient) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("achievements: predicate %s panicked, treating as false: %v", rule.ID, r)
			ok = false
		}
	}()
	return rule.Predicate(p, a)
}

// Catalog returns the display info for every known badge, in rule order.
func Catalog() []models.Badge {
	return []models.Badge{
		{ID: "first_quiz", Icon: "🎓", Name: "Первый шаг", Description: "Завершите первый квиз", Condition: "Пройдите 1 квиз"},
		{ID: "five_quizzes", Icon: "🏅", Name: "Знаток", Description: "Завершите 5 квизов", Condition: "Пройдите 5 квизов"},
		{ID: "streak_7", Icon: "🔥", Name: "Неделя", Description: "Серия 7 дней", Condition: "Заходите 7 дней подряд"},
		{ID: "streak_30", Icon: "⭐", Name: "Месяц", Description: "Серия 30 дней", Condition: "Заходите 30 дней подряд"},
		{ID: "perfect_quiz", Icon: "💎", Name: "Перфекционист", Description: "Пройдите квиз на 100%", Condition: "Получите 100% в квизе"},
		{ID: "glossary_master", Icon: "📚", Name: "Эрудит", Description: "Изучите все термины", Condition: "Просмотрите весь глоссарий"},
	}
}
