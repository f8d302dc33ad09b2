package cookies

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"harukcal/internal/pkg/logx"
)

// FileJar persists cookies as a JSON file so they survive process restarts, the CLI's
// equivalent of a page reload. Every mutation rewrites the file atomically.
type FileJar struct {
	mu     sync.Mutex
	path   string
	opts   options
	t      *table
	logger zerolog.Logger
}

// OpenFileJar loads the jar stored at path, creating parent directories as needed.
// A missing file yields an empty jar. A corrupt file is logged and treated as empty.
func OpenFileJar(path string, opts ...Option) (*FileJar, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("cookies: create jar directory: %w", err)
	}

	j := &FileJar{
		path:   path,
		opts:   buildOptions(opts),
		t:      newTable(),
		logger: logx.Component("cookie_jar").With().Str("path", path).Logger(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return j, nil
		}
		return nil, fmt.Errorf("cookies: read jar: %w", err)
	}

	var stored []entry
	if err := json.Unmarshal(data, &stored); err != nil {
		j.logger.Warn().Err(err).Msg("Cookie jar file is corrupt, starting empty")
		return j, nil
	}
	for _, e := range stored {
		j.t.entries[e.Name] = e
	}
	j.t.purge(j.opts.now())

	return j, nil
}

// Path returns the file backing the jar.
func (j *FileJar) Path() string {
	return j.path
}

func (j *FileJar) Set(c *http.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.t.set(c, "/", j.opts.now()) {
		return nil
	}
	return j.saveLocked()
}

func (j *FileJar) Get(name string) (*http.Cookie, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.t.get(name, j.opts.now())
	if !ok {
		return nil, ErrNotFound
	}
	return e.cookie(), nil
}

func (j *FileJar) Delete(name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.t.delete(name) {
		return nil
	}
	return j.saveLocked()
}

// SetCookies implements http.CookieJar. Persistence failures are logged because the
// interface has no error return.
func (j *FileJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.opts.now()
	changed := false
	for _, c := range cookies {
		if j.t.set(c, defaultPath(u), now) {
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := j.saveLocked(); err != nil {
		j.logger.Error().Err(err).Msg("Failed to persist server cookies")
	}
}

// Cookies implements http.CookieJar.
func (j *FileJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.t.matching(u, j.opts.now())
}

func (j *FileJar) saveLocked() error {
	j.t.purge(j.opts.now())

	stored := make([]entry, 0, len(j.t.entries))
	for _, e := range j.t.entries {
		stored = append(stored, e)
	}
	sort.Slice(stored, func(a, b int) bool { return stored[a].Name < stored[b].Name })

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("cookies: encode jar: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".cookies-*.tmp")
	if err != nil {
		return fmt.Errorf("cookies: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("cookies: chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("cookies: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cookies: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("cookies: replace jar file: %w", err)
	}
	return nil
}
