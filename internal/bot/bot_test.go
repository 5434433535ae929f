package bot

import (
	"context"
	"math/rand"
	"net/url"
	"strings"
	"testing"

	"github.com/example/recoverybot/internal/navigation"
	"github.com/example/recoverybot/internal/quiz"
	"github.com/example/recoverybot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession builds a user session whose navigation machine records the
// rendered routes instead of sending messages.
func newTestSession(t *testing.T) (*userSession, *[]navigation.Route) {
	t.Helper()
	var rendered []navigation.Route
	renderers := map[navigation.Route]navigation.RenderFunc{}
	for _, route := range navigation.Routes {
		route := route
		renderers[route] = func(context.Context, navigation.Params) {
			rendered = append(rendered, route)
		}
	}
	s := &userSession{chatID: 1}
	nav, err := navigation.NewMachine(renderers, nil)
	require.NoError(t, err)
	s.nav = nav
	return s, &rendered
}

func twoOptionQuiz(questions int) *models.Quiz {
	q := &models.Quiz{ID: "basics", Title: "Основы"}
	for i := 0; i < questions; i++ {
		q.Questions = append(q.Questions, models.Question{
			Text:    "Вопрос",
			Options: []string{"верно", "мимо"},
			Correct: 0,
		})
	}
	return q
}

func TestDayWord(t *testing.T) {
	cases := map[int]string{
		1:  "день",
		2:  "дня",
		4:  "дня",
		5:  "дней",
		11: "дней",
		12: "дней",
		21: "день",
		22: "дня",
		25: "дней",
	}
	for n, want := range cases {
		assert.Equal(t, want, dayWord(n), "n=%d", n)
	}
}

func TestCreateKeyboard(t *testing.T) {
	kb := createKeyboard([][]MenuButton{
		{{Text: "A", CallbackData: "a"}, {Text: "B", CallbackData: "b"}},
		{{Text: "C", CallbackData: "c"}},
	})

	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "A", kb.InlineKeyboard[0][0].Text)
	require.NotNil(t, kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "b", *kb.InlineKeyboard[0][1].CallbackData)
}

func TestTabBar_MarksActiveTab(t *testing.T) {
	row := tabBar(navigation.TabLearn)

	require.Len(t, row, len(navigation.Tabs))
	for i, tab := range navigation.Tabs {
		assert.Equal(t, "tab:"+string(tab), row[i].CallbackData)
		marked := strings.HasPrefix(row[i].Text, "•")
		assert.Equal(t, tab == navigation.TabLearn, marked,
			"only the active tab is marked: %s", tab)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("", "a", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestOptionLetter(t *testing.T) {
	assert.Equal(t, "🅐", optionLetter(0))
	assert.Equal(t, "🅓", optionLetter(3))
	assert.Equal(t, "7.", optionLetter(6))
}

func TestCreateKeyboard_URLButton(t *testing.T) {
	kb := createKeyboard([][]MenuButton{
		{{Text: "Поделиться", URL: "https://t.me/share/url?text=hi"}},
	})

	require.Len(t, kb.InlineKeyboard, 1)
	button := kb.InlineKeyboard[0][0]
	require.NotNil(t, button.URL)
	assert.Equal(t, "https://t.me/share/url?text=hi", *button.URL)
	assert.Nil(t, button.CallbackData)
}

func TestShareResultURL(t *testing.T) {
	link := shareResultURL("Основы", 80)

	require.True(t, strings.HasPrefix(link, "https://t.me/share/url?text="))
	raw, err := url.QueryUnescape(strings.TrimPrefix(link, "https://t.me/share/url?text="))
	require.NoError(t, err)
	assert.Contains(t, raw, "«Основы»")
	assert.Contains(t, raw, "80%")
}

func TestHandleAnswer_AfterQuizFinishedReturnsToList(t *testing.T) {
	b := &Bot{bridge: NopBridge{}}
	s, rendered := newTestSession(t)

	sess, err := quiz.NewSessionWithRand(twoOptionQuiz(1), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	p, err := sess.PresentQuestion()
	require.NoError(t, err)
	_, err = sess.SubmitAnswer(p.CorrectIdx)
	require.NoError(t, err)
	require.Equal(t, quiz.Finished, sess.Advance())
	s.quizID = "basics"
	s.quizSession = sess

	// The old question message keeps its answer buttons after the quiz ends.
	// A late tap must land on the quiz list instead of reading past the last
	// question.
	b.handleAnswer(context.Background(), 1, s, "0")

	assert.Equal(t, []navigation.Route{navigation.RouteQuizzes}, *rendered)
	assert.Equal(t, quiz.Finished, sess.State())
	assert.Len(t, sess.Answers(), 1)
}

func TestHandleSkip_DuringAnswerFeedbackIsDropped(t *testing.T) {
	b := &Bot{bridge: NopBridge{}}
	s, rendered := newTestSession(t)

	sess, err := quiz.NewSessionWithRand(twoOptionQuiz(2), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	p, err := sess.PresentQuestion()
	require.NoError(t, err)
	_, err = sess.SubmitAnswer(p.CorrectIdx)
	require.NoError(t, err)
	s.quizID = "basics"
	s.quizSession = sess

	// Skip tapped while the answer feedback is on screen: the answer is
	// already recorded and the pending advance owns the transition, so the
	// tap changes nothing.
	b.handleSkip(context.Background(), 1, s)

	assert.Empty(t, *rendered)
	assert.Len(t, sess.Answers(), 1)
	assert.Equal(t, 0, sess.QuestionIndex())
	assert.Equal(t, quiz.InProgress, sess.State())
}
