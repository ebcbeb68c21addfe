package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRef(t *testing.T) {
	tests := []struct {
		ref      string
		repo     string
		revision string
	}{
		{"org/model", "org/model", "main"},
		{"org/model@v2", "org/model", "v2"},
		{"org/model@refs/pr/1", "org/model", "refs/pr/1"},
		{"model", "model", "main"},
	}
	for _, tt := range tests {
		repo, revision := SplitRef(tt.ref)
		assert.Equal(t, tt.repo, repo, tt.ref)
		assert.Equal(t, tt.revision, revision, tt.ref)
	}
}

func TestSnapshotDir(t *testing.T) {
	dir := SnapshotDir("/cache", "org/model", "main")
	assert.Equal(t, filepath.Join("/cache", "models--org--model", "snapshots", "main"), dir)
}

func TestHasSnapshot(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, HasSnapshot(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o644))
	assert.True(t, HasSnapshot(dir))
}

func TestRecoverable(t *testing.T) {
	assert.True(t, Recoverable(&AuthorizationError{Repo: "r", Status: 401}))
	assert.True(t, Recoverable(&ConnectivityError{Repo: "r", Err: errors.New("refused")}))
	assert.False(t, Recoverable(&NotFoundError{Repo: "r"}))
	assert.False(t, Recoverable(errors.New("other")))
}

// hubServer simulates the minimum repo API surface Fetch needs: a file
// listing plus direct download URLs.
type hubServer struct {
	mu       sync.Mutex
	files    map[string]string // name → content
	requests []string
	status   int // non-zero forces this status on every request
}

func (h *hubServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.requests = append(h.requests, r.URL.Path)
		status := h.status
		h.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/models/") {
			siblings := make([]RepoFile, 0, len(h.files))
			for name, content := range h.files {
				siblings = append(siblings, RepoFile{Name: name, Size: int64(len(content))})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"siblings": siblings})
			return
		}

		if idx := strings.Index(r.URL.Path, "/resolve/main/"); idx >= 0 {
			name := r.URL.Path[idx+len("/resolve/main/"):]
			content, ok := h.files[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(content))
			return
		}

		w.WriteHeader(http.StatusNotFound)
	})
}

func (h *hubServer) requestCount(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, p := range h.requests {
		if strings.Contains(p, path) {
			n++
		}
	}
	return n
}

func newTestClient(t *testing.T, h *hubServer) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(h.handler())
	t.Cleanup(srv.Close)
	cache := t.TempDir()
	return NewClient(WithEndpoint(srv.URL), WithCacheDir(cache)), cache
}

func TestFetch_DownloadsWantedFilesWithOrderedProgress(t *testing.T) {
	server := &hubServer{files: map[string]string{
		"config.json":                "{}",
		"tokenizer.json":             `{"model": {}}`,
		"model-00002.safetensors":    "bbbb",
		"model-00001.safetensors":    "aaaaaaaa",
		"README.md":                  "ignored",
		"training_args.bin.metadata": "ignored",
	}}
	client, cache := newTestClient(t, server)

	type call struct {
		file  string
		index int
		total int
	}
	var calls []call
	var fractions []float64
	progress := func(file string, index, total int, fraction float64) {
		calls = append(calls, call{file, index, total})
		fractions = append(fractions, fraction)
	}

	dir, err := client.Fetch(context.Background(), "org/model", progress)
	require.NoError(t, err)
	assert.Equal(t, SnapshotDir(cache, "org/model", "main"), dir)

	for _, name := range []string{"config.json", "tokenizer.json", "model-00001.safetensors", "model-00002.safetensors"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "README.md"))

	// Shards report in lexicographic order with strictly increasing indices,
	// each ending at fraction 1.0.
	require.NotEmpty(t, calls)
	lastIndex := 0
	for _, c := range calls {
		assert.Equal(t, 2, c.total)
		assert.GreaterOrEqual(t, c.index, lastIndex)
		if c.index != lastIndex {
			assert.Equal(t, lastIndex+1, c.index)
		}
		lastIndex = c.index
	}
	assert.Equal(t, "model-00001.safetensors", calls[0].file)
	assert.Equal(t, "model-00002.safetensors", calls[len(calls)-1].file)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])

	content, err := os.ReadFile(filepath.Join(dir, "model-00001.safetensors"))
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaa", string(content))
}

func TestFetch_SkipsFilesCachedAtExpectedSize(t *testing.T) {
	server := &hubServer{files: map[string]string{
		"config.json":             "{}",
		"model-00001.safetensors": "aaaaaaaa",
	}}
	client, _ := newTestClient(t, server)

	_, err := client.Fetch(context.Background(), "org/model", nil)
	require.NoError(t, err)
	first := server.requestCount("model-00001.safetensors")
	assert.Equal(t, 1, first)

	var sawComplete bool
	progress := func(file string, _, _ int, fraction float64) {
		if file == "model-00001.safetensors" && fraction == 1.0 {
			sawComplete = true
		}
	}
	_, err = client.Fetch(context.Background(), "org/model", progress)
	require.NoError(t, err)
	assert.Equal(t, first, server.requestCount("model-00001.safetensors"), "cached shard refetched")
	assert.True(t, sawComplete, "cached shard still reported complete")
}

func TestFetch_AuthFailureFallsBackToSnapshot(t *testing.T) {
	server := &hubServer{status: http.StatusUnauthorized}
	client, cache := newTestClient(t, server)

	snapshot := SnapshotDir(cache, "org/model", "main")
	require.NoError(t, os.MkdirAll(snapshot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshot, "config.json"), []byte("{}"), 0o644))

	dir, err := client.Fetch(context.Background(), "org/model", nil)
	require.NoError(t, err)
	assert.Equal(t, snapshot, dir)
}

func TestFetch_AuthFailureWithoutSnapshotErrors(t *testing.T) {
	server := &hubServer{status: http.StatusUnauthorized}
	client, _ := newTestClient(t, server)

	_, err := client.Fetch(context.Background(), "org/model", nil)
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, http.StatusUnauthorized, aerr.Status)
}

func TestFetch_UnknownRepo(t *testing.T) {
	server := &hubServer{status: http.StatusNotFound}
	client, _ := newTestClient(t, server)

	_, err := client.Fetch(context.Background(), "org/missing", nil)
	var nerr *NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestFetch_ConnectivityFailureFallsBackToSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens: every request fails at the dial
	cache := t.TempDir()
	client := NewClient(WithEndpoint(srv.URL), WithCacheDir(cache))

	snapshot := SnapshotDir(cache, "org/model", "main")
	require.NoError(t, os.MkdirAll(snapshot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshot, "config.json"), []byte("{}"), 0o644))

	dir, err := client.Fetch(context.Background(), "org/model", nil)
	require.NoError(t, err)
	assert.Equal(t, snapshot, dir)
}

func TestLocalSnapshot(t *testing.T) {
	cache := t.TempDir()
	client := NewClient(WithCacheDir(cache))

	_, ok := client.LocalSnapshot("org/model")
	assert.False(t, ok)

	snapshot := SnapshotDir(cache, "org/model", "main")
	require.NoError(t, os.MkdirAll(snapshot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapshot, "config.json"), []byte("{}"), 0o644))

	dir, ok := client.LocalSnapshot("org/model")
	assert.True(t, ok)
	assert.Equal(t, snapshot, dir)
}

func TestWanted(t *testing.T) {
	assert.True(t, wanted("config.json"))
	assert.True(t, wanted("tokenizer.json"))
	assert.True(t, wanted("model-00001-of-00002.safetensors"))
	assert.True(t, wanted("pytorch_model.bin"))
	assert.False(t, wanted("README.md"))
	assert.False(t, wanted(".gitattributes"))
}
