package member

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/cookies"
	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
)

// flakyTransport fails the first n round trips without a response.
type flakyTransport struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (t *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	if t.failures.Add(-1) >= 0 {
		return nil, errors.New("dial tcp: connection refused")
	}
	return http.DefaultTransport.RoundTrip(r)
}

func newClient(t *testing.T, h http.HandlerFunc, opts ...authhttp.Option) (*Client, *session.CookieStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar := cookies.NewMemoryJar()
	store := session.NewCookieStore(jar)
	hc, err := authhttp.New(srv.URL, jar, store, opts...)
	require.NoError(t, err)
	return NewClient(hc, WithLoginRetry(DefaultLoginMaxRetries, time.Millisecond)), store
}

func TestLogin(t *testing.T) {
	t.Run("success sets cookies", func(t *testing.T) {
		var got Credentials
		c, store := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, LoginPath, r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "acc", Path: "/", HttpOnly: true})
		})

		require.NoError(t, c.Login(context.Background(), "anra1", "Abc1!"))
		assert.Equal(t, Credentials{Nickname: "anra1", Password: "Abc1!"}, got)

		_, err := store.Jar().Get("accessToken")
		assert.NoError(t, err)
	})

	t.Run("bad credentials carry server message", func(t *testing.T) {
		var calls atomic.Int32
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"code":3001,"message":"닉네임 또는 비밀번호가 올바르지 않습니다."}`)
		})

		err := c.Login(context.Background(), "anra1", "wrong")
		require.Error(t, err)
		assert.True(t, errs.HasCode(err, errs.ErrInvalidCredential))

		var ce *errs.CustomError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "닉네임 또는 비밀번호가 올바르지 않습니다.", ce.Message)
		assert.Equal(t, int32(1), calls.Load(), "credential failures are never retried")
	})

	t.Run("network errors retried twice then succeed", func(t *testing.T) {
		rt := &flakyTransport{}
		rt.failures.Store(2)
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {}, authhttp.WithTransport(rt))

		require.NoError(t, c.Login(context.Background(), "anra1", "Abc1!"))
		assert.Equal(t, int32(3), rt.calls.Load())
	})

	t.Run("network errors give up after max retries", func(t *testing.T) {
		rt := &flakyTransport{}
		rt.failures.Store(10)
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {}, authhttp.WithTransport(rt))

		err := c.Login(context.Background(), "anra1", "Abc1!")
		assert.True(t, errs.HasCode(err, errs.ErrNetwork))
		assert.Equal(t, int32(3), rt.calls.Load())
	})
}

func TestMe(t *testing.T) {
	t.Run("aliases normalised", func(t *testing.T) {
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"id":9,"nickname":"anra1","email":"a@b.com","profile_image_url":"https://img/a.jpg"}`)
		})
		r, err := c.Me(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(9), *r.MemberID)
		assert.Equal(t, "https://img/a.jpg", r.ProfileImageURL)
		assert.Equal(t, session.RoleUser, r.Role)
	})

	t.Run("non JSON body", func(t *testing.T) {
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		})
		_, err := c.Me(context.Background())
		assert.True(t, errs.HasCode(err, errs.ErrIncompleteProfile))
	})
}

func TestRefreshAndLogout(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case RefreshPath:
			w.WriteHeader(http.StatusUnauthorized)
		case LogoutPath:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	err := c.Refresh(context.Background())
	assert.True(t, errs.HasCode(err, errs.ErrUnauthorized))
	assert.False(t, errs.HasCode(err, errs.ErrInvalidCredential))
	assert.NoError(t, c.Logout(context.Background()))
}

func TestSignupValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"memberId":5,"nickname":"anra1","email":"a@b.com"}`)
	})

	_, err := c.Signup(context.Background(), SignupInput{Nickname: "x", Password: "Abc1!", Email: "a@b.com"})
	assert.True(t, errs.HasCode(err, errs.ErrInvalidNickname))
	assert.Zero(t, calls.Load())

	r, err := c.Signup(context.Background(), SignupInput{Nickname: "anra1", Password: "Abc1!", Email: "a@b.com", Name: "하루"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), *r.MemberID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpdateProfileSendsOnlySetFields(t *testing.T) {
	var body map[string]any
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"memberId":9,"nickname":"anra1","email":"a@b.com","height":181}`)
	})

	h := 181.0
	r, err := c.UpdateProfile(context.Background(), ProfileUpdate{Height: &h})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"height": 181.0}, body)
	assert.Equal(t, 181.0, *r.Height)

	bad := "x"
	_, err = c.UpdateProfile(context.Background(), ProfileUpdate{Nickname: &bad})
	assert.True(t, errs.HasCode(err, errs.ErrInvalidNickname))
}

func TestUpdateProfileImage(t *testing.T) {
	var body map[string]string
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, ProfileImagePath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})
	require.NoError(t, c.UpdateProfileImage(context.Background(), "https://img/n.jpg"))
	assert.Equal(t, "https://img/n.jpg", body["profile_image_url"])
}

func TestExistsAndSearch(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CheckNicknamePath:
			_, _ = io.WriteString(w, `{"exists":`+boolString(r.URL.Query().Get("nickname") == "taken")+`}`)
		case CheckEmailPath:
			_, _ = io.WriteString(w, `{"exists":false}`)
		case SearchNicknamePath:
			_, _ = io.WriteString(w, `{"nickname":"anra1"}`)
		case MePath:
			assert.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	taken, err := c.NicknameExists(ctx, "taken")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = c.NicknameExists(ctx, "free")
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = c.EmailExists(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, taken)

	nick, err := c.SearchNickname(ctx, "하루", "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "anra1", nick)

	assert.NoError(t, c.DeleteAccount(ctx))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
