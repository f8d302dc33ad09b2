/*
Package cookies provides the client-side cookie store that stands in for a browser's
document.cookie.

A Jar holds the cookies of a single origin keyed by name. The same Jar serves two roles:
the session store reads and writes application cookies through Set/Get/Delete, and the
HTTP client uses it as its http.CookieJar so server-issued session cookies are stored next
to them and sent back automatically.
*/
package cookies

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by Get when no live cookie has the requested name.
var ErrNotFound = errors.New("cookie not found")

// Jar is a single-origin cookie store.
type Jar interface {
	http.CookieJar

	// Set stores c, or deletes it when its attributes are already expired (MaxAge < 0 or an
	// Expires in the past). Path defaults to "/".
	Set(c *http.Cookie) error

	// Get returns the live cookie called name or ErrNotFound.
	Get(name string) (*http.Cookie, error)

	// Delete removes the cookie called name. Deleting a missing cookie is not an error.
	Delete(name string) error
}

// Option configures a Jar implementation.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// entry is the stored form of a cookie. A zero Expires marks a session cookie.
type entry struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

func (e entry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

func (e entry) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.Name,
		Value:    e.Value,
		Path:     e.Path,
		Expires:  e.Expires,
		Secure:   e.Secure,
		HttpOnly: e.HttpOnly,
	}
}

// resolve turns c into an entry. remove reports that the attributes ask for deletion.
// Max-Age takes precedence over Expires, as in browsers.
func resolve(c *http.Cookie, defaultPath string, now time.Time) (e entry, remove bool) {
	e = entry{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	if e.Path == "" || e.Path[0] != '/' {
		e.Path = defaultPath
	}

	switch {
	case c.MaxAge < 0:
		return e, true
	case c.MaxAge > 0:
		e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	case !c.Expires.IsZero():
		if !now.Before(c.Expires) {
			return e, true
		}
		e.Expires = c.Expires
	}
	return e, false
}

// defaultPath implements the default-path rule of RFC 6265 section 5.1.4.
func defaultPath(u *url.URL) string {
	if u == nil {
		return "/"
	}
	p := u.Path
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func pathMatch(requestPath, cookiePath string) bool {
	if requestPath == "" {
		requestPath = "/"
	}
	if requestPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}

// table is the in-memory cookie map shared by every Jar implementation.
// It is not safe for concurrent use; callers hold their own lock.
type table struct {
	entries map[string]entry
}

func newTable() *table {
	return &table{entries: make(map[string]entry)}
}

// set applies c and reports whether the table changed.
func (t *table) set(c *http.Cookie, defPath string, now time.Time) bool {
	e, remove := resolve(c, defPath, now)
	if remove {
		return t.delete(c.Name)
	}
	t.entries[e.Name] = e
	return true
}

func (t *table) get(name string, now time.Time) (entry, bool) {
	e, ok := t.entries[name]
	if !ok || e.expired(now) {
		return entry{}, false
	}
	return e, true
}

func (t *table) delete(name string) bool {
	if _, ok := t.entries[name]; !ok {
		return false
	}
	delete(t.entries, name)
	return true
}

// purge drops expired entries and reports whether any were removed.
func (t *table) purge(now time.Time) bool {
	changed := false
	for name, e := range t.entries {
		if e.expired(now) {
			delete(t.entries, name)
			changed = true
		}
	}
	return changed
}

// matching returns the live cookies that a request to u would carry, longest path first.
func (t *table) matching(u *url.URL, now time.Time) []*http.Cookie {
	return matchEntries(t.entries, u, now)
}

func matchEntries(entries map[string]entry, u *url.URL, now time.Time) []*http.Cookie {
	var picked []entry
	for _, e := range entries {
		if e.expired(now) {
			continue
		}
		if e.Secure && (u == nil || u.Scheme != "https") {
			continue
		}
		reqPath := "/"
		if u != nil {
			reqPath = u.Path
		}
		if !pathMatch(reqPath, e.Path) {
			continue
		}
		picked = append(picked, e)
	}

	sort.Slice(picked, func(i, j int) bool {
		if len(picked[i].Path) != len(picked[j].Path) {
			return len(picked[i].Path) > len(picked[j].Path)
		}
		return picked[i].Name < picked[j].Name
	})

	out := make([]*http.Cookie, 0, len(picked))
	for _, e := range picked {
		out = append(out, &http.Cookie{Name: e.Name, Value: e.Value})
	}
	return out
}
