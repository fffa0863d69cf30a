// Package artifact materializes the model and table files in a local cache
// directory, downloading the ones that are missing.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Source names a local artifact file and where to download it from.
type Source struct {
	Name string // file name inside the cache dir
	URL  string // empty means the file must already exist
}

// Fetcher downloads artifacts into Dir.
type Fetcher struct {
	Dir    string
	Client *http.Client
	Logger zerolog.Logger
}

// NewFetcher returns a Fetcher with a default HTTP client.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewFetcher(dir string, timeout time.Duration, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		Dir:    dir,
		Client: &http.Client{Timeout: timeout},
		Logger: logger.With().Str("component", "artifact").Logger(),
	}
}

// Ensure returns the local path of src, downloading it first when the file
// is not in the cache. An existing file is never re-downloaded.
func (f *Fetcher) Ensure(ctx context.Context, src Source) (string, error) {
	path := filepath.Join(f.Dir, src.Name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if src.URL == "" {
		return "", fmt.Errorf("%s: not cached and no download URL", path)
	}

	start := time.Now()
	n, err := f.download(ctx, src.URL, path)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", src.Name, err)
	}
	f.Logger.Info().
		Str("artifact", src.Name).
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("artifact downloaded")
	return path, nil
}

// EnsureAll fetches every source and returns their local paths by name.
func (f *Fetcher) EnsureAll(ctx context.Context, srcs []Source) (map[string]string, error) {
	paths := make(map[string]string, len(srcs))
	for _, src := range srcs {
		p, err := f.Ensure(ctx, src)
		if err != nil {
			return nil, err
		}
		paths[src.Name] = p
	}
	return paths, nil
}

// download writes url to a temp file next to path and renames it into
// place, so an interrupted download never leaves a partial artifact.
func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), path)
}
