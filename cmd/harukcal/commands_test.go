package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/internal/app/account"
	"harukcal/internal/app/cookies"
	"harukcal/internal/app/session"
	"harukcal/internal/configs"
	"harukcal/internal/handler"
)

func newTestApp(t *testing.T) (*app, func() *app) {
	t.Helper()
	return newTestAppWith(t, nil)
}

// newTestAppWith serves the dev Member Service and whatever extra registers next to it.
func newTestAppWith(t *testing.T, extra func(mux *http.ServeMux)) (*app, func() *app) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srvCfg := &configs.AppConfig{Environment: "development", JWTSecret: "test-secret"}
	mux := http.NewServeMux()
	mux.Handle("/", handler.Router(ctx, &handler.AppDeps{Config: srvCfg, Members: account.NewMemoryRepository()}))
	if extra != nil {
		extra(mux)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &configs.AppConfig{
		Environment:      "development",
		MemberServiceURL: srv.URL,
		RequestTimeout:   5 * time.Second,
		CookieJar:        configs.JarMemory,
	}
	jar := cookies.NewMemoryJar()

	// Each call is a fresh process sharing the same jar.
	open := func() *app {
		a, err := newApp(ctx, cfg, jar)
		require.NoError(t, err)
		return a
	}
	return open(), open
}

func runCmd(a *app, args ...string) (int, string) {
	var out bytes.Buffer
	code := run(context.Background(), a, args, &out)
	return code, out.String()
}

func TestCLISession(t *testing.T) {
	a, open := newTestApp(t)

	code, out := runCmd(a, "signup", "-nickname", "anra01", "-password", "Abcd1!", "-email", "anra@example.com", "-name", "Anra")
	require.Equal(t, exitOK, code, out)

	code, out = runCmd(open(), "whoami")
	require.Equal(t, exitOK, code, out)
	var who whoamiOutput
	require.NoError(t, json.Unmarshal([]byte(out), &who))
	assert.False(t, who.IsLoggedIn)
	assert.Equal(t, "confirmed_invalid", who.Phase)

	code, out = runCmd(open(), "login", "-nickname", "anra01", "-password", "Abcd1!")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "signed in as anra01")

	code, out = runCmd(open(), "whoami")
	require.Equal(t, exitOK, code, out)
	require.NoError(t, json.Unmarshal([]byte(out), &who))
	assert.True(t, who.IsLoggedIn)
	assert.True(t, who.FromCache)
	assert.Equal(t, "anra01", who.User.Nickname)
	assert.False(t, who.IsAdmin)

	code, out = runCmd(open(), "nickname", "anra02")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, "anra02")

	code, out = runCmd(open(), "profile", "-height", "170", "-activity", "LOW")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, `"height": 170`)

	code, out = runCmd(open(), "cache")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, `"todayCalories": 0`)

	code, out = runCmd(open(), "photo", "face.png")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "photo storage is not configured")

	code, out = runCmd(open(), "logout")
	require.Equal(t, exitOK, code, out)

	code, out = runCmd(open(), "nickname", "anra03")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "not signed in")
}

func TestCLIUsage(t *testing.T) {
	a, open := newTestApp(t)

	code, out := runCmd(a)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, out, "usage: harukcal")

	code, _ = runCmd(open(), "dance")
	assert.Equal(t, exitUsage, code)

	code, out = runCmd(open(), "login", "-nickname", "anra01")
	if code != exitUsage {
		// HARUKCAL_PASSWORD may be set in the environment.
		t.Skip("password supplied by environment")
	}
	assert.Contains(t, out, "usage: harukcal login")

	code, _ = runCmd(open(), "profile", "-height", "tall")
	assert.Equal(t, exitError, code)
}

func TestCLIBadLogin(t *testing.T) {
	a, _ := newTestApp(t)

	code, out := runCmd(a, "login", "-nickname", "ghost1", "-password", "Abcd1!")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "Incorrect nickname or password.")
}

const cliMeals = `[
  {"mealId":1,"mealType":"BREAKFAST","foods":[{"foodName":"toast","calories":320,"carbs":40,"protein":9,"fat":11}]},
  {"mealId":2,"mealType":"DINNER","foods":[{"foodName":"salad","kcal":180,"carbs":12,"protein":6,"fat":3}]}
]`

func signedIn(t *testing.T, a *app, open func() *app) {
	t.Helper()
	code, out := runCmd(a, "signup", "-nickname", "anra01", "-password", "Abcd1!", "-email", "anra@example.com")
	require.Equal(t, exitOK, code, out)
	code, out = runCmd(open(), "login", "-nickname", "anra01", "-password", "Abcd1!")
	require.Equal(t, exitOK, code, out)
}

func TestCLIMeals(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	a, open := newTestAppWith(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/api/meals/", func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			seen = append(seen, r.URL.RequestURI())
			mu.Unlock()
			if _, err := r.Cookie(session.AccessTokenCookie); err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, cliMeals)
		})
	})
	lastSeen := func() string {
		mu.Lock()
		defer mu.Unlock()
		return seen[len(seen)-1]
	}

	code, out := runCmd(open(), "meals")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "not signed in")

	signedIn(t, a, open)

	code, out = runCmd(open(), "meals")
	require.Equal(t, exitOK, code, out)
	var got mealsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Summary.Meals)
	assert.Equal(t, 500.0, got.Summary.Calories)
	assert.Len(t, got.Meals, 2)
	assert.True(t, strings.HasPrefix(lastSeen(), "/api/meals/modified-date/member/1?date="), lastSeen())

	code, out = runCmd(open(), "cache")
	require.Equal(t, exitOK, code, out)
	var cached cacheOutput
	require.NoError(t, json.Unmarshal([]byte(out), &cached))
	assert.Equal(t, 500, cached.TodayCalories)
	assert.Equal(t, session.Nutrients{Carbs: 52, Protein: 15, Fat: 14}, cached.TodayNutrients)
	assert.Len(t, cached.Meals, 2)

	code, out = runCmd(open(), "meals", "-month", "2025-07")
	require.Equal(t, exitOK, code, out)
	assert.Equal(t, "/api/meals/monthly/member/1?month=7&year=2025", lastSeen())

	code, out = runCmd(open(), "meals", "-from", "2025-07-01", "-to", "2025-07-07")
	require.Equal(t, exitOK, code, out)
	assert.Equal(t, "/api/meals/date-range/member/1?endDate=2025-07-07&startDate=2025-07-01", lastSeen())

	code, _ = runCmd(open(), "meals", "-from", "2025-07-01")
	assert.Equal(t, exitUsage, code)

	code, _ = runCmd(open(), "meals", "-date", "2025-07-01", "-all")
	assert.Equal(t, exitUsage, code)

	code, out = runCmd(open(), "meals", "-date", "July 1st")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "YYYY-MM-DD")
}

func TestCLIIssues(t *testing.T) {
	a, open := newTestAppWith(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/api/issues/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case r.Header.Get("Authorization") != "":
				w.WriteHeader(http.StatusBadRequest)
			case r.Method != http.MethodGet:
				// Only admins may edit, and this member is not one.
				w.WriteHeader(http.StatusForbidden)
			case r.URL.Path == "/api/issues/":
				_, _ = io.WriteString(w, `[{"id":1,"title":"Sugar tax","writer":"admin01","date":"2025-07-30"}]`)
			case r.URL.Path == "/api/issues/1":
				_, _ = io.WriteString(w, `{"id":1,"title":"Sugar tax","content":"Details","writer":"admin01"}`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
	})
	signedIn(t, a, open)

	code, out := runCmd(open(), "issues")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, `"title": "Sugar tax"`)

	code, out = runCmd(open(), "issues", "show", "1")
	require.Equal(t, exitOK, code, out)
	assert.Contains(t, out, `"content": "Details"`)

	code, out = runCmd(open(), "issues", "show", "5")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "Issue not found.")

	code, out = runCmd(open(), "issues", "edit", "1", "-title", "New", "-content", "Body")
	assert.Equal(t, exitError, code)
	assert.Contains(t, out, "You do not have access to this resource.")

	code, _ = runCmd(open(), "issues", "delete", "one")
	assert.Equal(t, exitUsage, code)

	code, _ = runCmd(open(), "issues", "archive", "1")
	assert.Equal(t, exitUsage, code)
}
