package issue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/cookies"
	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
)

// board is an in-memory issue board that lets only the "admin" cookie edit.
type board struct {
	mu     sync.Mutex
	issues map[int64]Issue
}

func (b *board) get(id int64) (Issue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	is, ok := b.issues[id]
	return is, ok
}

func (b *board) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if r.URL.Path == BasePath && r.Method == http.MethodGet {
		list := []Issue{}
		for id := int64(1); id <= int64(len(b.issues)); id++ {
			if is, ok := b.issues[id]; ok {
				list = append(list, is)
			}
		}
		_ = json.NewEncoder(w).Encode(list)
		return
	}

	var id int64
	switch r.URL.Path {
	case "/api/issues/1":
		id = 1
	case "/api/issues/2":
		id = 2
	}
	is, ok := b.issues[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"no such issue"}`)
		return
	}

	if r.Method != http.MethodGet {
		if c, err := r.Cookie(session.AccessTokenCookie); err != nil || c.Value != "admin" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(is)
	case http.MethodPut:
		var u Update
		_ = json.NewDecoder(r.Body).Decode(&u)
		is.Title, is.Content = u.Title, u.Content
		b.issues[id] = is
		_ = json.NewEncoder(w).Encode(is)
	case http.MethodDelete:
		delete(b.issues, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func newClient(t *testing.T, token string) (*Client, *board) {
	t.Helper()
	b := &board{issues: map[int64]Issue{
		1: {ID: 1, Title: "Sugar tax", Content: "...", Writer: "admin01", Date: "2025-07-30", Reference: "https://news.example/1"},
		2: {ID: 2, Title: "Protein myths", Content: "...", Writer: "admin01", Date: "2025-07-29"},
	}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	jar := cookies.NewMemoryJar()
	require.NoError(t, jar.Set(&http.Cookie{Name: session.AccessTokenCookie, Value: token}))
	store := session.NewCookieStore(jar)
	hc, err := authhttp.New(srv.URL, jar, store)
	require.NoError(t, err)
	return NewClient(hc), b
}

func TestListAndGet(t *testing.T) {
	c, _ := newClient(t, "member")

	list, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Sugar tax", list[0].Title)

	is, err := c.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://news.example/1", is.Reference)

	_, err = c.Get(context.Background(), 9)
	assert.True(t, errs.HasCode(err, errs.ErrNotFound))
}

func TestAdminActions(t *testing.T) {
	t.Run("admin edits and deletes", func(t *testing.T) {
		c, b := newClient(t, "admin")

		is, err := c.Update(context.Background(), 1, Update{Title: "  Sugar tax passed ", Content: " Details\n"})
		require.NoError(t, err)
		assert.Equal(t, "Sugar tax passed", is.Title)
		stored, _ := b.get(1)
		assert.Equal(t, "Details", stored.Content)
		assert.Equal(t, "admin01", is.Writer)

		require.NoError(t, c.Delete(context.Background(), 2))
		_, ok := b.get(2)
		assert.False(t, ok)
	})

	t.Run("members are refused by the server", func(t *testing.T) {
		c, b := newClient(t, "member")

		_, err := c.Update(context.Background(), 1, Update{Title: "x", Content: "y"})
		assert.True(t, errs.HasCode(err, errs.ErrForbidden))
		stored, _ := b.get(1)
		assert.Equal(t, "Sugar tax", stored.Title)

		err = c.Delete(context.Background(), 1)
		assert.True(t, errs.HasCode(err, errs.ErrForbidden))
		_, ok := b.get(1)
		assert.True(t, ok)
	})

	t.Run("blank fields never reach the server", func(t *testing.T) {
		c, b := newClient(t, "admin")

		_, err := c.Update(context.Background(), 1, Update{Title: "  ", Content: "y"})
		assert.True(t, errs.HasCode(err, errs.ErrInvalidParams))
		stored, _ := b.get(1)
		assert.Equal(t, "Sugar tax", stored.Title)
	})
}
