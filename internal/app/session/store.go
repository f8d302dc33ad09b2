package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"harukcal/internal/app/cookies"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

const (
	// CookieName is the cookie that carries the serialised Record.
	CookieName = "frontendUserData"

	// Lifetime is how long a written Record stays in the jar.
	Lifetime = 7 * 24 * time.Hour

	// Server-issued credential cookies. They are dropped together with the session.
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// ErrNoSession is returned by Update when the store holds no valid session.
var ErrNoSession = errs.NewError(errs.ErrNoSession)

// Store persists the signed-in member's Record.
type Store interface {
	// Read returns the stored Record, or nil when there is none or it cannot be parsed.
	Read() (*Record, error)

	// Write normalises and persists r. A failed round-trip is reported as
	// errs.ErrCookieWriteFailure.
	Write(r Record) error

	// Clear removes the session and every cookie derived from it. It is idempotent.
	Clear() error

	// Update applies fn to the stored Record and persists the result. It fails with
	// ErrNoSession when no valid session is stored.
	Update(fn func(*Record)) (*Record, error)
}

// CookieStore is a Store backed by a cookies.Jar. Writes, updates and clears are serialised,
// so a Clear issued by logout is never overwritten by an update that started earlier.
type CookieStore struct {
	mu     sync.Mutex
	jar    cookies.Jar
	now    func() time.Time
	logger zerolog.Logger
}

// StoreOption configures a CookieStore.
type StoreOption func(*CookieStore)

// WithClock replaces time.Now for cookie expiry attributes.
func WithClock(now func() time.Time) StoreOption {
	return func(s *CookieStore) {
		s.now = now
	}
}

// NewCookieStore returns a store over jar.
func NewCookieStore(jar cookies.Jar, opts ...StoreOption) *CookieStore {
	s := &CookieStore{
		jar:    jar,
		now:    time.Now,
		logger: logx.Component("session_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemoryStore returns a store over a fresh in-memory jar.
func NewMemoryStore() *CookieStore {
	return NewCookieStore(cookies.NewMemoryJar())
}

// Jar returns the underlying cookie jar.
func (s *CookieStore) Jar() cookies.Jar {
	return s.jar
}

func (s *CookieStore) Read() (*Record, error) {
	return s.read()
}

func (s *CookieStore) read() (*Record, error) {
	c, err := s.jar.Get(CookieName)
	if err != nil {
		if errors.Is(err, cookies.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: read cookie: %w", err)
	}

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		s.logger.Error().Err(err).Int("value_len", len(c.Value)).Msg("Session cookie is not URL-encoded, treating as logged out")
		return nil, nil
	}
	if raw == "" {
		return nil, nil
	}

	r, err := Decode([]byte(raw))
	if err != nil {
		s.logger.Error().Err(err).Int("value_len", len(raw)).Msg("Session cookie is not valid JSON, treating as logged out")
		return nil, nil
	}
	return r, nil
}

func (s *CookieStore) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(r)
}

// write persists r and verifies the round trip. A jar that rejects the Max-Age form gets
// one retry with an Expires attribute.
func (s *CookieStore) write(r Record) error {
	r = r.Normalize()
	data, err := json.Marshal(r)
	if err != nil {
		return errs.Wrap(errs.ErrCookieWriteFailure, err)
	}
	value := url.QueryEscape(string(data))

	first := &http.Cookie{
		Name:   CookieName,
		Value:  value,
		Path:   "/",
		MaxAge: int(Lifetime / time.Second),
	}
	verr := s.setAndVerify(first)
	if verr == nil {
		return nil
	}

	s.logger.Warn().Err(verr).Msg("Session cookie did not round-trip, retrying with Expires")

	second := &http.Cookie{
		Name:    CookieName,
		Value:   value,
		Path:    "/",
		Expires: s.now().Add(Lifetime),
	}
	if verr = s.setAndVerify(second); verr == nil {
		return nil
	}

	s.logger.Error().Err(verr).Msg("Session cookie write failed after retry")
	return errs.Wrap(errs.ErrCookieWriteFailure, verr)
}

func (s *CookieStore) setAndVerify(c *http.Cookie) error {
	if err := s.jar.Set(c); err != nil {
		return err
	}
	got, err := s.jar.Get(c.Name)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if got.Value == "" || got.Value != c.Value {
		return errors.New("read back returned a different value")
	}
	return nil
}

func (s *CookieStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errList []error
	for _, name := range clearedCookies {
		if err := s.jar.Delete(name); err != nil {
			errList = append(errList, fmt.Errorf("delete %s: %w", name, err))
		}
	}
	if err := errors.Join(errList...); err != nil {
		s.logger.Error().Err(err).Msg("Failed to clear session cookies")
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

func (s *CookieStore) Update(fn func(*Record)) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return nil, err
	}
	if !IsValid(current) {
		return nil, ErrNoSession
	}

	next := current.Clone()
	fn(&next)
	next = next.Normalize()
	if err := s.write(next); err != nil {
		return nil, err
	}
	return &next, nil
}

// Patch applies c to the stored Record.
func (s *CookieStore) Patch(c Changes) (*Record, error) {
	return s.Update(c.Apply)
}

// UpdatePhoto replaces the stored profile image URL.
func (s *CookieStore) UpdatePhoto(photoURL string) (*Record, error) {
	return s.Update(func(r *Record) {
		r.ProfileImageURL = photoURL
	})
}

// SetNickname replaces the stored nickname.
func (s *CookieStore) SetNickname(nickname string) (*Record, error) {
	return s.Update(func(r *Record) {
		r.Nickname = nickname
	})
}

var _ Store = (*CookieStore)(nil)
