package cookies

import (
	"net/http"
	"net/url"
	"sync"
)

// MemoryJar keeps cookies in process memory. It backs tests and one-shot sessions.
type MemoryJar struct {
	mu   sync.Mutex
	opts options
	t    *table
}

// NewMemoryJar returns an empty MemoryJar.
func NewMemoryJar(opts ...Option) *MemoryJar {
	return &MemoryJar{opts: buildOptions(opts), t: newTable()}
}

func (j *MemoryJar) Set(c *http.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.t.set(c, "/", j.opts.now())
	return nil
}

func (j *MemoryJar) Get(name string) (*http.Cookie, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.t.get(name, j.opts.now())
	if !ok {
		return nil, ErrNotFound
	}
	return e.cookie(), nil
}

func (j *MemoryJar) Delete(name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.t.delete(name)
	return nil
}

// SetCookies implements http.CookieJar.
func (j *MemoryJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.opts.now()
	for _, c := range cookies {
		j.t.set(c, defaultPath(u), now)
	}
}

// Cookies implements http.CookieJar.
func (j *MemoryJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.t.matching(u, j.opts.now())
}
