package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	chunkSize        = 1 << 20
	metadataFetchers = 4
)

// Progress receives byte-level download progress for one file. Index is
// 1-based over the weight shards being fetched; fraction is the completed
// part of the current file in [0, 1].
type Progress func(file string, index, total int, fraction float64)

// Fetch materializes a local snapshot of ref ("org/name" or
// "org/name@revision") and returns its directory.
//
// Metadata files are fetched concurrently without progress reporting; weight
// shards are fetched one at a time, in lexicographic name order, so that the
// reported indices are strictly increasing. Files already cached at the
// expected size are skipped and reported complete.
//
// When the hub rejects the credential or cannot be reached and a usable
// snapshot already exists locally, Fetch returns that snapshot instead of
// failing.
func (c *Client) Fetch(ctx context.Context, ref string, progress Progress) (string, error) {
	repo, revision := SplitRef(ref)
	dir := SnapshotDir(c.cacheDir, repo, revision)

	files, err := c.ListFiles(ctx, repo, revision)
	if err != nil {
		if Recoverable(err) && HasSnapshot(dir) {
			return dir, nil
		}
		return "", err
	}

	var metadata, shards []RepoFile
	for _, f := range files {
		if !wanted(f.Name) {
			continue
		}
		if isShard(f.Name) {
			shards = append(shards, f)
		} else {
			metadata = append(metadata, f)
		}
	}
	sortFiles(shards)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataFetchers)
	for _, f := range metadata {
		f := f
		g.Go(func() error {
			return c.fetchFile(gctx, repo, revision, f, dir, nil)
		})
	}
	if err := g.Wait(); err != nil {
		if Recoverable(err) && HasSnapshot(dir) {
			return dir, nil
		}
		return "", err
	}

	// Shards download sequentially: progress indices must be strictly
	// increasing within the download phase.
	total := len(shards)
	for i, f := range shards {
		report := func(fraction float64) {
			if progress != nil {
				progress(f.Name, i+1, total, fraction)
			}
		}
		if err := c.fetchFile(ctx, repo, revision, f, dir, report); err != nil {
			if Recoverable(err) && HasSnapshot(dir) {
				return dir, nil
			}
			return "", err
		}
	}

	return dir, nil
}

// isShard reports whether a repo file is a weight shard.
func isShard(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".safetensors", ".bin":
		return true
	default:
		return false
	}
}

// sortFiles orders files lexicographically by name.
func sortFiles(files []RepoFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
}

// fetchFile downloads one file into the snapshot directory through a
// uniquely named temp file, renamed into place only on success. report, if
// non-nil, receives the file's completion fraction.
func (c *Client) fetchFile(ctx context.Context, repo, revision string, f RepoFile, dir string, report func(float64)) error {
	target := filepath.Join(dir, f.Name)
	if info, err := os.Stat(target); err == nil && (f.Size == 0 || info.Size() == f.Size) {
		if report != nil {
			report(1.0)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(repo, revision, f.Name), nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	tmp := target + ".partial-" + uuid.NewString()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectivityError{Repo: repo, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := c.statusError(repo, resp.StatusCode); err != nil {
		return err
	}

	total := f.Size
	if total == 0 {
		total = resp.ContentLength
	}

	//nolint:gosec // G304: snapshot paths derive from the cache layout
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	var done int64
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
			return err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				_ = out.Close()
				_ = os.Remove(tmp)
				return writeErr
			}
			done += int64(n)
			if report != nil && total > 0 {
				report(min(float64(done)/float64(total), 1.0))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
			return &ConnectivityError{Repo: repo, Err: readErr}
		}
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if report != nil {
		report(1.0)
	}
	return os.Rename(tmp, target)
}
