// Package quiz implements the in-progress quiz session state machine.
package quiz

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/example/recoverybot/pkg/models"
)

var (
	// ErrUnknownQuiz is returned when starting a session without a quiz
	// definition. The caller stays in NotStarted.
	ErrUnknownQuiz = errors.New("unknown quiz")
	// ErrNoSelection rejects a submit with no option chosen. The session
	// state does not change; the user has to pick first.
	ErrNoSelection = errors.New("no option selected")
	// ErrNotInProgress rejects question operations outside InProgress.
	ErrNotInProgress = errors.New("quiz is not in progress")
	// ErrNotPresented rejects a submit before the question was presented:
	// the shuffled correct index is only valid for the latest presentation.
	ErrNotPresented = errors.New("question has not been presented")
)

// State is the session lifecycle: NotStarted -> InProgress -> Finished.
type State int

const (
	NotStarted State = iota
	InProgress
	Finished
)

// Tier boundaries are a contract other views rely on (remedial suggestions
// show below the silver boundary).
const (
	GoldThreshold   = 90
	SilverThreshold = 70
)

// Tier is the result band of a finished session.
type Tier string

const (
	TierGold   Tier = "gold"
	TierSilver Tier = "silver"
	TierBronze Tier = "bronze"
)

// Answer records the outcome of one question. Selected is the index within
// the shuffled options the user picked, or -1 for a skip.
type Answer struct {
	QuestionIndex int
	Selected      int
	WasCorrect    bool
}

// Presented is one showing of a question: freshly shuffled options and the
// position of the correct answer within them. It is valid only until the
// next presentation of any question.
type Presented struct {
	Index      int
	Total      int
	Text       string
	Hint       string
	Options    []string
	CorrectIdx int
}

// Session tracks one quiz attempt. It is never persisted; abandoning the
// quiz simply drops the session.
type Session struct {
	quiz  *models.Quiz
	state State

	questionIndex int
	answers       []Answer

	shuffled   []string
	correctIdx int
	presented  bool

	rng *rand.Rand
}

// NewSession starts a session for the given quiz definition.
func NewSession(quiz *models.Quiz) (*Session, error) {
	return NewSessionWithRand(quiz, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSessionWithRand is NewSession with an injectable random source.
func NewSessionWithRand(quiz *models.Quiz, rng *rand.Rand) (*Session, error) {
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, ErrUnknownQuiz
	}
	return &Session{
		quiz:    quiz,
		state:   InProgress,
		answers: make([]Answer, 0, len(quiz.Questions)),
		rng:     rng,
	}, nil
}

// Quiz returns the definition this session runs.
func (s *Session) Quiz() *models.Quiz { return s.quiz }

// State returns the session lifecycle state.
func (s *Session) State() State { return s.state }

// QuestionIndex returns the zero-based index of the current question.
func (s *Session) QuestionIndex() int { return s.questionIndex }

// Answers returns the recorded results so far.
func (s *Session) Answers() []Answer { return s.answers }

// PresentQuestion produces a fresh uniform shuffle of the current question's
// options. Every presentation reshuffles, so the recorded correct index is
// only good for the submit that immediately follows.
func (s *Session) PresentQuestion() (*Presented, error) {
	if s.state != InProgress {
		return nil, ErrNotInProgress
	}
	q := s.quiz.Questions[s.questionIndex]

	s.shuffled = make([]string, len(q.Options))
	copy(s.shuffled, q.Options)
	s.correctIdx = q.Correct
	s.rng.Shuffle(len(s.shuffled), func(i, j int) {
		if i == s.correctIdx {
			s.correctIdx = j
		} else if j == s.correctIdx {
			s.correctIdx = i
		}
		s.shuffled[i], s.shuffled[j] = s.shuffled[j], s.shuffled[i]
	})
	s.presented = true

	return &Presented{
		Index:      s.questionIndex,
		Total:      len(s.quiz.Questions),
		Text:       q.Text,
		Hint:       q.Hint,
		Options:    s.shuffled,
		CorrectIdx: s.correctIdx,
	}, nil
}

// SubmitAnswer checks the selected shuffled index against the current
// presentation and records the result. selected < 0 means no option was
// chosen and is rejected without a state change. Advancing to the next
// question is a separate step so the UI can hold the feedback on screen.
func (s *Session) SubmitAnswer(selected int) (bool, error) {
	if s.state != InProgress {
		return false, ErrNotInProgress
	}
	if !s.presented {
		return false, ErrNotPresented
	}
	if selected < 0 || selected >= len(s.shuffled) {
		return false, ErrNoSelection
	}

	correct := selected == s.correctIdx
	s.answers = append(s.answers, Answer{
		QuestionIndex: s.questionIndex,
		Selected:      selected,
		WasCorrect:    correct,
	})
	s.presented = false
	return correct, nil
}

// Skip records an always-incorrect null answer and advances immediately.
// Like SubmitAnswer it only acts on the latest presentation, so a skip
// arriving after an answer was already recorded for the question is
// rejected instead of double counting it.
func (s *Session) Skip() error {
	if s.state != InProgress {
		return ErrNotInProgress
	}
	if !s.presented {
		return ErrNotPresented
	}
	s.answers = append(s.answers, Answer{
		QuestionIndex: s.questionIndex,
		Selected:      -1,
		WasCorrect:    false,
	})
	s.presented = false
	s.Advance()
	return nil
}

// Advance moves to the next question, or to Finished after the last one.
func (s *Session) Advance() State {
	if s.state != InProgress {
		return s.state
	}
	s.questionIndex++
	if s.questionIndex >= len(s.quiz.Questions) {
		s.state = Finished
	}
	return s.state
}

// CorrectCount returns how many answers were right so far.
func (s *Session) CorrectCount() int {
	n := 0
	for _, a := range s.answers {
		if a.WasCorrect {
			n++
		}
	}
	return n
}

// Percentage returns the rounded score of the session.
func (s *Session) Percentage() int {
	total := len(s.quiz.Questions)
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(s.CorrectCount()) / float64(total) * 100))
}

// ResultTier maps a percentage to its band.
func ResultTier(percentage int) Tier {
	switch {
	case percentage >= GoldThreshold:
		return TierGold
	case percentage >= SilverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// ApplyResult folds a finished session into the profile: the first
// completion of a quiz joins the completed set and bumps the stored
// counter, and a 100% run counts toward the perfectionist badge.
// Returns whether this was a first completion.
func ApplyResult(p *models.Profile, quizID string, percentage int) bool {
	first := p.MarkQuizCompleted(quizID)
	if percentage == 100 {
		p.PerfectQuizCount++
	}
	return first
}
