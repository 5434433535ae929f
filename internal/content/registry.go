// Package content manages the lazily-loaded named content modules.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/example/recoverybot/pkg/models"
)

// Known module names. Each is an independently fetchable JSON document.
const (
	Quizzes       = "quizzes"
	Glossary      = "glossary"
	Edu           = "edu"
	Instructions  = "instructions"
	Announcements = "announcements"
	Broadcasts    = "broadcasts"
	Documents     = "documents"
	Support       = "support"
	Dashboard     = "dashboard"
	FAQ           = "faq"
	Literature    = "literature"
)

// ModuleNames lists every known content module.
var ModuleNames = []string{
	Quizzes, Glossary, Edu, Instructions, Announcements, Broadcasts,
	Documents, Support, Dashboard, FAQ, Literature,
}

// Source fetches the raw JSON document for a named module.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

type entry struct {
	loaded  bool
	payload json.RawMessage
}

// Registry loads each module at most once per process and hands out the
// parsed payload afterwards. A failed load stays not-ready and can be
// retried by the next EnsureLoaded call; the failure never affects other
// modules.
type Registry struct {
	source Source

	mu      sync.Mutex
	modules map[string]*entry
}

// NewRegistry creates a registry over the given source.
func NewRegistry(source Source) *Registry {
	m := make(map[string]*entry, len(ModuleNames))
	for _, name := range ModuleNames {
		m[name] = &entry{}
	}
	return &Registry{source: source, modules: m}
}

// EnsureLoaded loads the module if it is not loaded yet. Re-requests for a
// loaded module are idempotent and cheap.
func (r *Registry) EnsureLoaded(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.modules[name]
	if !ok {
		return fmt.Errorf("unknown content module %q", name)
	}
	if e.loaded {
		return nil
	}

	raw, err := r.source.Fetch(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load content module %q: %v", name, err)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("content module %q is not valid JSON", name)
	}
	e.payload = json.RawMessage(raw)
	e.loaded = true
	return nil
}

// Loaded reports whether a module is ready.
func (r *Registry) Loaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.modules[name]
	return ok && e.loaded
}

// Payload returns the raw parsed document of a loaded module.
func (r *Registry) Payload(name string) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.modules[name]
	if !ok || !e.loaded {
		return nil, false
	}
	return e.payload, true
}

// Invalidate drops the in-memory copy so the next EnsureLoaded refetches.
// This is the registry half of the cache-invalidation control surface; the
// HTTP source's stored cache is invalidated separately.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.modules[name]; ok {
		e.loaded = false
		e.payload = nil
	}
}

// QuizList returns the parsed quizzes module, loading it if needed.
func (r *Registry) QuizList(ctx context.Context) ([]models.Quiz, error) {
	if err := r.EnsureLoaded(ctx, Quizzes); err != nil {
		return nil, err
	}
	raw, _ := r.Payload(Quizzes)
	var quizzes []models.Quiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		return nil, fmt.Errorf("failed to parse quizzes module: %v", err)
	}
	return quizzes, nil
}

// QuizByID returns a quiz definition by id, or nil when unknown.
func (r *Registry) QuizByID(ctx context.Context, id string) (*models.Quiz, error) {
	quizzes, err := r.QuizList(ctx)
	if err != nil {
		return nil, err
	}
	for i := range quizzes {
		if quizzes[i].ID == id {
			return &quizzes[i], nil
		}
	}
	return nil, nil
}

// GlossaryTerms returns the parsed glossary module, loading it if needed.
func (r *Registry) GlossaryTerms(ctx context.Context) ([]models.Term, error) {
	if err := r.EnsureLoaded(ctx, Glossary); err != nil {
		return nil, err
	}
	raw, _ := r.Payload(Glossary)
	var terms []models.Term
	if err := json.Unmarshal(raw, &terms); err != nil {
		return nil, fmt.Errorf("failed to parse glossary module: %v", err)
	}
	return terms, nil
}

// TermByID returns a glossary term by id, or nil when unknown.
func (r *Registry) TermByID(ctx context.Context, id string) (*models.Term, error) {
	terms, err := r.GlossaryTerms(ctx)
	if err != nil {
		return nil, err
	}
	for i := range terms {
		if terms[i].ID == id {
			return &terms[i], nil
		}
	}
	return nil, nil
}
