package content_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/recoverybot/internal/content"
	"github.com/example/recoverybot/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faq.json"), []byte(`[]`), 0644))

	src := content.FileSource{Dir: dir}

	raw, err := src.Fetch(context.Background(), "faq")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(raw))

	_, err = src.Fetch(context.Background(), "missing")
	assert.Error(t, err)
}

func newCacheRepo(t *testing.T) *database.ContentCacheRepository {
	t.Helper()
	db, err := database.Connect(database.Options{Type: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewContentCacheRepository(db)
}

func TestHTTPSource_NetworkFirstThenCacheFallback(t *testing.T) {
	healthy := true
	var served int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		served++
		assert.Equal(t, "/glossary.json", r.URL.Path)
		w.Write([]byte(`[{"id":"apr"}]`))
	}))
	defer srv.Close()

	src := content.NewHTTPSource(srv.URL, newCacheRepo(t))

	raw, err := src.Fetch(context.Background(), "glossary")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"apr"}]`, string(raw))
	assert.Equal(t, 1, served)

	// Network down: the cached copy keeps the module available.
	healthy = false
	raw, err = src.Fetch(context.Background(), "glossary")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"apr"}]`, string(raw))
}

func TestHTTPSource_FailureWithEmptyCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := content.NewHTTPSource(srv.URL, newCacheRepo(t))

	_, err := src.Fetch(context.Background(), "glossary")
	assert.Error(t, err, "no network and no cache means the module stays not-ready")
}

func TestHTTPSource_InvalidateDropsCachedCopy(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src := content.NewHTTPSource(srv.URL, newCacheRepo(t))

	_, err := src.Fetch(context.Background(), "faq")
	require.NoError(t, err)

	require.NoError(t, src.Invalidate(context.Background(), "faq"))

	healthy = false
	_, err = src.Fetch(context.Background(), "faq")
	assert.Error(t, err, "after invalidation there is no fallback copy")
}

func TestImportGlossary_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terms.csv")
	csv := "id,term,definition,video\n" +
		"apr,APR,Годовая процентная ставка,\n" +
		",Диверсификация,Распределение активов,https://example.com/v\n" +
		",,missing term,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	cfg := content.DefaultImportConfig()
	cfg.FilePath = path

	terms, result, err := content.ImportGlossary(cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalProcessed)
	assert.Equal(t, 2, result.Imported)
	assert.Len(t, result.Errors, 1)

	require.Len(t, terms, 2)
	assert.Equal(t, "apr", terms[0].ID)
	assert.Equal(t, "диверсификация", terms[1].ID, "missing ids are derived from the term")
	assert.Equal(t, "https://example.com/v", terms[1].VideoURL)
}

func TestWriteModule_RoundTripsThroughFileSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, content.WriteModule(dir, "glossary", []map[string]string{{"id": "apr"}}))

	src := content.FileSource{Dir: dir}
	raw, err := src.Fetch(context.Background(), "glossary")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"apr"}]`, string(raw))
}
