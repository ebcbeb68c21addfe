package hub

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables controlling cache and endpoint resolution.
const (
	EnvCacheDir = "EMBER_CACHE"
	EnvEndpoint = "EMBER_HUB_ENDPOINT"
	EnvToken    = "HF_TOKEN"
)

// DefaultCacheDir resolves the local snapshot cache directory.
func DefaultCacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	base, err := os.UserCacheDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "ember", "hub")
}

// SnapshotDir returns the directory holding the local copy of a repository.
// Layout mirrors the huggingface_hub convention so caches interoperate:
// <cache>/models--org--name/snapshots/<revision>.
func SnapshotDir(cacheDir, repo, revision string) string {
	escaped := "models--" + strings.ReplaceAll(repo, "/", "--")
	return filepath.Join(cacheDir, escaped, "snapshots", revision)
}

// HasSnapshot reports whether a usable local snapshot exists: the directory
// is present and holds a config.json.
func HasSnapshot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	return err == nil && !info.IsDir()
}
