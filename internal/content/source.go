package content

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/example/recoverybot/internal/database"
)

// FileSource serves content modules from a local directory of JSON files
// (<dir>/<name>.json). This is the packaged-assets case: the files ship with
// the deployment, so no extra caching is needed.
type FileSource struct {
	Dir string
}

// Fetch reads <dir>/<name>.json.
func (s FileSource) Fetch(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(s.Dir, name+".json"))
}

// HTTPSource serves content modules from a remote base URL with a
// network-first policy: a fresh copy is fetched and cached on every load,
// and the last cached copy is used when the network fails.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	cache      *database.ContentCacheRepository
}

// NewHTTPSource creates a source over <baseURL>/<name>.json backed by the
// content cache table.
func NewHTTPSource(baseURL string, cache *database.ContentCacheRepository) *HTTPSource {
	return &HTTPSource{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
	}
}

// Fetch gets the module from the network, falling back to the cached copy.
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	raw, err := s.fetchRemote(ctx, name)
	if err == nil {
		if cacheErr := s.cache.Put(ctx, name, raw); cacheErr != nil {
			log.Printf("content: failed to cache module %q: %v", name, cacheErr)
		}
		return raw, nil
	}

	log.Printf("content: network fetch of %q failed, trying cache: %v", name, err)
	cached, cacheErr := s.cache.Get(ctx, name)
	if cacheErr != nil {
		return nil, err
	}
	return cached, nil
}

// Invalidate drops the stored cache copy for a module.
func (s *HTTPSource) Invalidate(ctx context.Context, name string) error {
	return s.cache.Invalidate(ctx, name)
}

func (s *HTTPSource) fetchRemote(ctx context.Context, name string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s.json", s.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("content %s status %d: %s", name, resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
