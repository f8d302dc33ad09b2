package meal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/cookies"
	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
)

const todayMeals = `[
  {"mealId":1,"mealType":"BREAKFAST","modifiedAt":"2025-07-30T08:10:00",
   "foods":[{"foodName":"toast","calories":200.4,"carbs":30,"protein":6,"fat":4},
            {"foodName":"milk","kcal":150,"carbs":12,"protein":8,"fat":8}]},
  {"mealId":2,"mealType":"LUNCH","createDate":"2025-07-30T12:30:00","totalKcal":650}
]`

type recorder struct {
	mu   sync.Mutex
	reqs []*http.Request
}

func (r *recorder) add(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
}

func (r *recorder) all() []*http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*http.Request(nil), r.reqs...)
}

func (r *recorder) last() *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqs[len(r.reqs)-1]
}

func newClient(t *testing.T, h http.HandlerFunc) (*Client, *session.CookieStore, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	jar := cookies.NewMemoryJar()
	store := session.NewCookieStore(jar)
	hc, err := authhttp.New(srv.URL, jar, store)
	require.NoError(t, err)
	return NewClient(hc), store, rec
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	c, _, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})

	day := time.Date(2025, 7, 30, 21, 0, 0, 0, time.UTC)

	_, err := c.ByDate(ctx, 7, day)
	require.NoError(t, err)
	assert.Equal(t, "/api/meals/modified-date/member/7", rec.last().URL.Path)
	assert.Equal(t, "2025-07-30", rec.last().URL.Query().Get("date"))

	_, err = c.Monthly(ctx, 7, 2025, time.July)
	require.NoError(t, err)
	assert.Equal(t, "/api/meals/monthly/member/7", rec.last().URL.Path)
	assert.Equal(t, "2025", rec.last().URL.Query().Get("year"))
	assert.Equal(t, "7", rec.last().URL.Query().Get("month"), "months are 1-based on the wire")

	_, err = c.ByRange(ctx, 7, day.AddDate(0, 0, -6), day)
	require.NoError(t, err)
	assert.Equal(t, "/api/meals/date-range/member/7", rec.last().URL.Path)
	assert.Equal(t, "2025-07-24", rec.last().URL.Query().Get("startDate"))
	assert.Equal(t, "2025-07-30", rec.last().URL.Query().Get("endDate"))

	_, err = c.ByMember(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "/api/meals/member/7", rec.last().URL.Path)

	for _, r := range rec.all() {
		assert.Empty(t, r.Header.Get("Authorization"))
	}
}

func TestInvalidArguments(t *testing.T) {
	c, _, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {})
	day := time.Date(2025, 7, 30, 0, 0, 0, 0, time.UTC)

	_, err := c.ByRange(context.Background(), 7, day, day.AddDate(0, 0, -1))
	assert.True(t, errs.HasCode(err, errs.ErrInvalidParams))

	_, err = c.Monthly(context.Background(), 7, 2025, 13)
	assert.True(t, errs.HasCode(err, errs.ErrInvalidParams))
	assert.Empty(t, rec.all())
}

func TestMonthlyFallsBackToRange(t *testing.T) {
	c, _, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/meals/monthly/member/7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, todayMeals)
	})

	meals, err := c.Monthly(context.Background(), 7, 2024, time.February)
	require.NoError(t, err)
	assert.Len(t, meals, 2)

	last := rec.last()
	assert.Equal(t, "/api/meals/date-range/member/7", last.URL.Path)
	assert.Equal(t, "2024-02-01", last.URL.Query().Get("startDate"))
	assert.Equal(t, "2024-02-29", last.URL.Query().Get("endDate"))
}

func TestMonthlyKeepsOtherErrors(t *testing.T) {
	c, _, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Monthly(context.Background(), 7, 2025, time.July)
	assert.Equal(t, http.StatusInternalServerError, authhttp.StatusCode(err))
	assert.Len(t, rec.all(), 1)
}

func TestDecodeMeals(t *testing.T) {
	meals, err := decodeMeals([]byte(todayMeals))
	require.NoError(t, err)
	require.Len(t, meals, 2)
	assert.Equal(t, TypeBreakfast, meals[0].MealType)
	assert.Equal(t, "2025-07-30T08:10:00", meals[0].RecordedAt())
	assert.Equal(t, "2025-07-30T12:30:00", meals[1].RecordedAt())
	assert.JSONEq(t, `{"mealId":2,"mealType":"LUNCH","createDate":"2025-07-30T12:30:00","totalKcal":650}`, string(meals[1].Raw))

	wrapped, err := decodeMeals([]byte(`{"data":` + todayMeals + `}`))
	require.NoError(t, err)
	assert.Len(t, wrapped, 2)

	empty, err := decodeMeals([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = decodeMeals([]byte(`[{"mealId":"x"}]`))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	meals, err := decodeMeals([]byte(todayMeals))
	require.NoError(t, err)

	s := Summarize(meals)
	assert.Equal(t, 2, s.Meals)
	assert.InDelta(t, 1000.4, s.Calories, 0.001)
	assert.Equal(t, 1000, s.RoundedCalories())
	assert.Equal(t, session.Nutrients{Carbs: 42, Protein: 14, Fat: 12}, s.Nutrients())
}

func TestSyncToday(t *testing.T) {
	c, store, rec := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, todayMeals)
	})
	now := time.Date(2025, 7, 30, 13, 0, 0, 0, time.UTC)

	sum, err := c.SyncToday(context.Background(), store, 7, now)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Meals)
	assert.Equal(t, "2025-07-30", rec.last().URL.Query().Get("date"))

	assert.Equal(t, 1000, store.TodayCalories())
	assert.Equal(t, session.Nutrients{Carbs: 42, Protein: 14, Fat: 12}, store.TodayNutrients())

	cached := store.MealData()
	require.Len(t, cached, 2)
	var first Meal
	require.NoError(t, json.Unmarshal(cached[0], &first))
	assert.Equal(t, int64(1), first.MealID)
	assert.Len(t, first.Foods, 2)
}

func TestSyncTodayFailureKeepsCaches(t *testing.T) {
	c, store, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	require.NoError(t, store.SetTodayCalories(480))

	_, err := c.SyncToday(context.Background(), store, 7, time.Now())
	assert.Equal(t, http.StatusBadGateway, authhttp.StatusCode(err))
	assert.Equal(t, 480, store.TodayCalories())
}
