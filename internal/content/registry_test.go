package content_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/recoverybot/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts fetches and can be told to fail per module.
type fakeSource struct {
	payloads map[string][]byte
	fail     map[string]bool
	fetches  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		payloads: map[string][]byte{},
		fail:     map[string]bool{},
		fetches:  map[string]int{},
	}
}

func (s *fakeSource) Fetch(_ context.Context, name string) ([]byte, error) {
	s.fetches[name]++
	if s.fail[name] {
		return nil, errors.New("source unavailable")
	}
	p, ok := s.payloads[name]
	if !ok {
		return nil, errors.New("no such module")
	}
	return p, nil
}

func TestEnsureLoaded_LoadsOnce(t *testing.T) {
	src := newFakeSource()
	src.payloads[content.FAQ] = []byte(`[{"q":"?"}]`)
	reg := content.NewRegistry(src)

	require.NoError(t, reg.EnsureLoaded(context.Background(), content.FAQ))
	require.NoError(t, reg.EnsureLoaded(context.Background(), content.FAQ))

	assert.Equal(t, 1, src.fetches[content.FAQ], "a loaded module must not be refetched")
	assert.True(t, reg.Loaded(content.FAQ))

	payload, ok := reg.Payload(content.FAQ)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"q":"?"}]`, string(payload))
}

func TestEnsureLoaded_UnknownModule(t *testing.T) {
	reg := content.NewRegistry(newFakeSource())
	err := reg.EnsureLoaded(context.Background(), "nope")
	assert.Error(t, err)
}

func TestEnsureLoaded_FailureIsScopedAndRetryable(t *testing.T) {
	src := newFakeSource()
	src.payloads[content.FAQ] = []byte(`[]`)
	src.payloads[content.Glossary] = []byte(`[]`)
	src.fail[content.Glossary] = true
	reg := content.NewRegistry(src)

	assert.Error(t, reg.EnsureLoaded(context.Background(), content.Glossary))
	assert.False(t, reg.Loaded(content.Glossary))

	// Other modules are unaffected.
	assert.NoError(t, reg.EnsureLoaded(context.Background(), content.FAQ))

	// The failed module can be retried.
	src.fail[content.Glossary] = false
	assert.NoError(t, reg.EnsureLoaded(context.Background(), content.Glossary))
	assert.True(t, reg.Loaded(content.Glossary))
}

func TestEnsureLoaded_RejectsInvalidJSON(t *testing.T) {
	src := newFakeSource()
	src.payloads[content.Edu] = []byte(`{broken`)
	reg := content.NewRegistry(src)

	assert.Error(t, reg.EnsureLoaded(context.Background(), content.Edu))
	assert.False(t, reg.Loaded(content.Edu))
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	src := newFakeSource()
	src.payloads[content.FAQ] = []byte(`[]`)
	reg := content.NewRegistry(src)

	require.NoError(t, reg.EnsureLoaded(context.Background(), content.FAQ))
	reg.Invalidate(content.FAQ)
	assert.False(t, reg.Loaded(content.FAQ))

	require.NoError(t, reg.EnsureLoaded(context.Background(), content.FAQ))
	assert.Equal(t, 2, src.fetches[content.FAQ])
}

func TestQuizAndGlossaryGetters(t *testing.T) {
	src := newFakeSource()
	src.payloads[content.Quizzes] = []byte(`[
		{"id":"basics","title":"Основы","questions":[
			{"question":"2+2?","options":["3","4"],"correct":1}
		]}
	]`)
	src.payloads[content.Glossary] = []byte(`[
		{"id":"apr","term":"APR","definition":"Годовая ставка"}
	]`)
	reg := content.NewRegistry(src)

	quizzes, err := reg.QuizList(context.Background())
	require.NoError(t, err)
	require.Len(t, quizzes, 1)
	assert.Equal(t, "basics", quizzes[0].ID)
	assert.Len(t, quizzes[0].Questions, 1)

	quiz, err := reg.QuizByID(context.Background(), "basics")
	require.NoError(t, err)
	require.NotNil(t, quiz)
	assert.Equal(t, "Основы", quiz.Title)

	missing, err := reg.QuizByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	terms, err := reg.GlossaryTerms(context.Background())
	require.NoError(t, err)
	require.Len(t, terms, 1)

	term, err := reg.TermByID(context.Background(), "apr")
	require.NoError(t, err)
	require.NotNil(t, term)
	assert.Equal(t, "APR", term.Term)
}
