package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/internal/app/account"
	"harukcal/internal/app/authflow"
	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/cookies"
	"harukcal/internal/app/member"
	"harukcal/internal/app/session"
	"harukcal/internal/app/state"
	"harukcal/internal/configs"
	"harukcal/internal/pkg/auth/jwt"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/resp"
)

const password = "Abcd1!"

type fixture struct {
	srv     *httptest.Server
	deps    *AppDeps
	jar     *cookies.MemoryJar
	store   *session.CookieStore
	members *member.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	deps := &AppDeps{
		Config:  &configs.AppConfig{Environment: "development", JWTSecret: "test-secret"},
		Members: account.NewMemoryRepository(),
	}
	srv := httptest.NewServer(Router(ctx, deps))
	t.Cleanup(srv.Close)

	jar := cookies.NewMemoryJar()
	store := session.NewCookieStore(jar)
	hc, err := authhttp.New(srv.URL, jar, store)
	require.NoError(t, err)

	return &fixture{
		srv:     srv,
		deps:    deps,
		jar:     jar,
		store:   store,
		members: member.NewClient(hc, member.WithLoginRetry(0, 0)),
	}
}

func (f *fixture) signup(t *testing.T, nickname, email string) *session.Record {
	t.Helper()
	rec, err := f.members.Signup(context.Background(), member.SignupInput{
		Nickname: nickname,
		Password: password,
		Name:     "Anra Kim",
		Email:    email,
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) post(t *testing.T, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	r, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	res, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func errorCode(t *testing.T, res *http.Response) int {
	t.Helper()
	var body resp.ErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body.Code
}

func TestMemberLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.signup(t, "anra01", "anra@example.com")
	require.NotNil(t, created.MemberID)
	assert.Equal(t, "USER", created.Role)

	_, err := f.jar.Get(jwt.AccessTokenCookie)
	assert.ErrorIs(t, err, cookies.ErrNotFound, "signup must not start a session")

	require.NoError(t, f.members.Login(ctx, "anra01", password))
	_, err = f.jar.Get(jwt.AccessTokenCookie)
	require.NoError(t, err)
	_, err = f.jar.Get(jwt.RefreshTokenCookie)
	require.NoError(t, err)

	me, err := f.members.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "anra@example.com", me.Email)
	assert.Equal(t, *created.MemberID, *me.MemberID)

	height, activity := 171.5, "HIGH"
	updated, err := f.members.UpdateProfile(ctx, member.ProfileUpdate{Height: &height, ActivityLevel: &activity})
	require.NoError(t, err)
	assert.Equal(t, 171.5, *updated.Height)
	assert.Equal(t, "HIGH", updated.ActivityLevel)
	assert.Equal(t, "anra01", updated.Nickname)

	require.NoError(t, f.members.UpdateProfileImage(ctx, "https://cdn.example/member/a.jpg"))
	me, err = f.members.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/member/a.jpg", me.ProfileImageURL)

	exists, err := f.members.NicknameExists(ctx, "anra01")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = f.members.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	nickname, err := f.members.SearchNickname(ctx, "Anra Kim", "anra@example.com")
	require.NoError(t, err)
	assert.Equal(t, "anra01", nickname)

	_, err = f.members.SearchNickname(ctx, "Someone Else", "anra@example.com")
	assert.True(t, authhttp.IsStatus(err, http.StatusNotFound))

	require.NoError(t, f.members.Logout(ctx))
	_, err = f.jar.Get(jwt.AccessTokenCookie)
	assert.ErrorIs(t, err, cookies.ErrNotFound)

	_, err = f.members.Me(ctx)
	assert.True(t, errs.HasCode(err, errs.ErrSessionExpired))
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.signup(t, "anra01", "anra@example.com")
	require.NoError(t, f.members.Login(ctx, "anra01", password))

	oldRefresh, err := f.jar.Get(jwt.RefreshTokenCookie)
	require.NoError(t, err)

	// An unusable access token makes /me answer 401 once; the client refreshes and replays.
	require.NoError(t, f.jar.Set(&http.Cookie{Name: jwt.AccessTokenCookie, Value: "expired", Path: "/"}))

	me, err := f.members.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "anra01", me.Nickname)

	newRefresh, err := f.jar.Get(jwt.RefreshTokenCookie)
	require.NoError(t, err)
	assert.NotEqual(t, oldRefresh.Value, newRefresh.Value)

	res := f.post(t, member.RefreshPath, "", &http.Cookie{Name: jwt.RefreshTokenCookie, Value: oldRefresh.Value})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, errs.ErrUnauthorized, errorCode(t, res))
}

func TestRefreshWithoutCookie(t *testing.T) {
	f := newFixture(t)
	res := f.post(t, member.RefreshPath, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAuthflowAgainstServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "anra01", "anra@example.com")

	st := state.New()
	svc := authflow.NewService(f.members, f.store, st)

	rec, err := svc.Login(ctx, "anra01", password)
	require.NoError(t, err)
	assert.Equal(t, "anra01", rec.Nickname)
	assert.True(t, st.Snapshot().IsLoggedIn)

	stored, err := f.store.Read()
	require.NoError(t, err)
	assert.Equal(t, "anra@example.com", stored.Email)

	result := authflow.NewBootstrapper(f.store, f.members, state.New()).Run(ctx)
	assert.Equal(t, authflow.ConfirmedValid, result.Phase)

	require.NoError(t, svc.Logout(ctx))
	stored, err = f.store.Read()
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.False(t, st.Snapshot().IsLoggedIn)

	result = authflow.NewBootstrapper(f.store, f.members, state.New()).Run(ctx)
	assert.Equal(t, authflow.ConfirmedInvalid, result.Phase)
}

func TestErrorResponses(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "anra01", "anra@example.com")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   int
	}{
		{"wrong password", member.LoginPath, `{"nickname":"anra01","password":"Wrong1!"}`, http.StatusUnauthorized, errs.ErrInvalidCredential},
		{"unknown member", member.LoginPath, `{"nickname":"ghost1","password":"Abcd1!"}`, http.StatusUnauthorized, errs.ErrInvalidCredential},
		{"duplicate nickname", member.SignupPath, `{"nickname":"anra01","password":"Abcd1!","email":"other@example.com"}`, http.StatusConflict, errs.ErrNicknameExists},
		{"duplicate email", member.SignupPath, `{"nickname":"anra02","password":"Abcd1!","email":"ANRA@example.com"}`, http.StatusConflict, errs.ErrEmailExists},
		{"weak password", member.SignupPath, `{"nickname":"anra03","password":"abcd","email":"a3@example.com"}`, http.StatusBadRequest, errs.ErrInvalidPassword},
		{"bad nickname", member.SignupPath, `{"nickname":"ab","password":"Abcd1!","email":"a4@example.com"}`, http.StatusBadRequest, errs.ErrInvalidNickname},
		{"unknown field", member.LoginPath, `{"username":"anra01"}`, http.StatusBadRequest, errs.ErrInvalidJSONFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.post(t, tt.path, tt.body)
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.code, errorCode(t, res))
		})
	}
}

func TestMeRequiresCookie(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "anra01", "anra@example.com")

	login := f.post(t, member.LoginPath, `{"nickname":"anra01","password":"Abcd1!"}`)
	require.Equal(t, http.StatusOK, login.StatusCode)

	var access string
	for _, c := range login.Cookies() {
		if c.Name == jwt.AccessTokenCookie {
			access = c.Value
			assert.True(t, c.HttpOnly)
			assert.Equal(t, int(jwt.AccessTokenExpiration.Seconds()), c.MaxAge)
		}
	}
	require.NotEmpty(t, access)

	r, err := http.NewRequest(http.MethodGet, f.srv.URL+member.MePath, nil)
	require.NoError(t, err)
	r.Header.Set("Authorization", "Bearer "+access)
	res, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	r, err = http.NewRequest(http.MethodGet, f.srv.URL+member.MePath, nil)
	require.NoError(t, err)
	r.AddCookie(&http.Cookie{Name: jwt.AccessTokenCookie, Value: access})
	res2, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	defer res2.Body.Close()
	require.Equal(t, http.StatusOK, res2.StatusCode)

	var profile map[string]any
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&profile))
	assert.Equal(t, "anra01", profile["nickname"])
	assert.Contains(t, profile, "memberId")
	assert.NotContains(t, profile, "password")
}

func TestDeleteMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "anra01", "anra@example.com")
	require.NoError(t, f.members.Login(ctx, "anra01", password))

	require.NoError(t, f.members.DeleteAccount(ctx))

	_, err := f.deps.Members.GetByNickname(ctx, "anra01")
	assert.ErrorIs(t, err, account.ErrNotFound)

	u, _ := url.Parse(f.srv.URL)
	assert.Empty(t, f.jar.Cookies(u.JoinPath(member.MePath)))
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	res, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
