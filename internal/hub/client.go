// Package hub implements the download collaborator: it fetches a model
// repository's artifacts into a local snapshot directory, reporting
// byte-level progress, and degrades to an existing snapshot when the remote
// is unreachable or rejects the credential.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultEndpoint is the hub the client talks to unless overridden.
const DefaultEndpoint = "https://huggingface.co"

// DefaultRevision is used when a repo reference carries no revision.
const DefaultRevision = "main"

const userAgent = "ember/1.0"

// RepoFile describes one file in a model repository.
type RepoFile struct {
	Name string `json:"rfilename"`
	Size int64  `json:"size"`
}

// repoInfo is the subset of the hub's model-info response the client needs.
type repoInfo struct {
	Siblings []RepoFile `json:"siblings"`
}

// Client talks to a model hub and maintains the local snapshot cache.
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
	cacheDir   string
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the hub endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimSuffix(endpoint, "/") }
}

// WithToken sets the access token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithCacheDir overrides the snapshot cache directory.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a hub client. Endpoint, token, and cache directory fall
// back to the environment.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Minute},
		endpoint:   DefaultEndpoint,
		token:      os.Getenv(EnvToken),
		cacheDir:   DefaultCacheDir(),
	}
	if endpoint := os.Getenv(EnvEndpoint); endpoint != "" {
		c.endpoint = strings.TrimSuffix(endpoint, "/")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheDir returns the snapshot cache root.
func (c *Client) CacheDir() string {
	return c.cacheDir
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// ListFiles fetches the repository file listing.
func (c *Client) ListFiles(ctx context.Context, repo, revision string) ([]RepoFile, error) {
	url := fmt.Sprintf("%s/api/models/%s/revision/%s", c.endpoint, repo, revision)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Repo: repo, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if err := c.statusError(repo, resp.StatusCode); err != nil {
		return nil, err
	}

	var info repoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode repo listing for %s: %w", repo, err)
	}
	return info.Siblings, nil
}

// statusError classifies a non-2xx response.
func (c *Client) statusError(repo string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthorizationError{Repo: repo, Status: status}
	case status == http.StatusNotFound:
		return &NotFoundError{Repo: repo}
	default:
		return fmt.Errorf("hub returned status %d for %s", status, repo)
	}
}

// resolveURL is the direct download URL for one file.
func (c *Client) resolveURL(repo, revision, name string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s", c.endpoint, repo, revision, name)
}

// SplitRef splits "org/name@revision" into repo and revision, defaulting
// the revision to main.
func SplitRef(ref string) (repo, revision string) {
	if at := strings.LastIndex(ref, "@"); at >= 0 {
		return ref[:at], ref[at+1:]
	}
	return ref, DefaultRevision
}

// LocalSnapshot returns the snapshot directory for ref if a usable copy is
// cached, without touching the network.
func (c *Client) LocalSnapshot(ref string) (string, bool) {
	repo, revision := SplitRef(ref)
	dir := SnapshotDir(c.cacheDir, repo, revision)
	return dir, HasSnapshot(dir)
}

// wanted reports whether a repo file belongs in a local snapshot: the model
// configuration, tokenizer assets, and weight shards.
func wanted(name string) bool {
	base := filepath.Base(name)
	switch {
	case base == "config.json", base == "tokenizer.json", base == "tokenizer_config.json":
		return true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".safetensors", ".bin":
		return true
	}
	return false
}
