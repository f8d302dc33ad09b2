package meal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

// Meal Service paths. Each takes the member ID as the last segment.
const (
	BasePath      = "/api/meals"
	MemberPath    = BasePath + "/member/"
	DatePath      = BasePath + "/modified-date/member/"
	MonthlyPath   = BasePath + "/monthly/member/"
	DateRangePath = BasePath + "/date-range/member/"

	// DateLayout is the wire format of dates in query parameters.
	DateLayout = "2006-01-02"
)

// Doer sends a request. *authhttp.Client implements it.
type Doer interface {
	Do(ctx context.Context, req authhttp.Request) (*authhttp.Response, error)
}

// DailyCache is the part of the session store that holds today's intake.
type DailyCache interface {
	SetTodayCalories(calories int) error
	SetTodayNutrients(n session.Nutrients) error
	SetMealData(meals []json.RawMessage) error
}

// Client calls the Meal Service.
type Client struct {
	http   Doer
	logger zerolog.Logger
}

// NewClient returns a Meal Service client over h.
func NewClient(h Doer) *Client {
	return &Client{http: h, logger: logx.Component("meal_client")}
}

// ByMember returns every meal the member recorded.
func (c *Client) ByMember(ctx context.Context, memberID int64) ([]Meal, error) {
	return c.get(ctx, memberPath(MemberPath, memberID), nil)
}

// ByDate returns the meals recorded on the calendar day of date.
func (c *Client) ByDate(ctx context.Context, memberID int64, date time.Time) ([]Meal, error) {
	return c.get(ctx, memberPath(DatePath, memberID), url.Values{"date": {date.Format(DateLayout)}})
}

// ByRange returns the meals recorded from start to end, both days included.
func (c *Client) ByRange(ctx context.Context, memberID int64, start, end time.Time) ([]Meal, error) {
	if end.Before(start) {
		return nil, errs.NewError(errs.ErrInvalidParams).WithMessage("The end date is before the start date.")
	}
	return c.get(ctx, memberPath(DateRangePath, memberID), url.Values{
		"startDate": {start.Format(DateLayout)},
		"endDate":   {end.Format(DateLayout)},
	})
}

// Monthly returns the meals of one month. Servers without the monthly endpoint are asked
// for the month's date range instead.
func (c *Client) Monthly(ctx context.Context, memberID int64, year int, month time.Month) ([]Meal, error) {
	if month < time.January || month > time.December {
		return nil, errs.NewError(errs.ErrInvalidParams).WithMessage("Month must be between 1 and 12.")
	}
	meals, err := c.get(ctx, memberPath(MonthlyPath, memberID), url.Values{
		"year":  {strconv.Itoa(year)},
		"month": {strconv.Itoa(int(month))},
	})
	if err == nil || !authhttp.IsStatus(err, http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented) {
		return meals, err
	}

	c.logger.Warn().Err(err).Int("year", year).Int("month", int(month)).Msg("Monthly endpoint unavailable, using date range")
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return c.ByRange(ctx, memberID, first, first.AddDate(0, 1, -1))
}

// SyncToday loads today's meals and writes their totals and records to cache. now
// decides which day is today.
func (c *Client) SyncToday(ctx context.Context, cache DailyCache, memberID int64, now time.Time) (Summary, error) {
	meals, err := c.ByDate(ctx, memberID, now)
	if err != nil {
		return Summary{}, err
	}

	sum := Summarize(meals)
	raw := make([]json.RawMessage, 0, len(meals))
	for _, m := range meals {
		raw = append(raw, m.Raw)
	}

	if err := cache.SetTodayCalories(sum.RoundedCalories()); err != nil {
		return sum, err
	}
	if err := cache.SetTodayNutrients(sum.Nutrients()); err != nil {
		return sum, err
	}
	if err := cache.SetMealData(raw); err != nil {
		return sum, err
	}
	c.logger.Debug().Int("meals", sum.Meals).Int("calories", sum.RoundedCalories()).Msg("Daily caches synced")
	return sum, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]Meal, error) {
	resp, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	return decodeMeals(resp.Body)
}

func memberPath(prefix string, memberID int64) string {
	return prefix + strconv.FormatInt(memberID, 10)
}

// decodeMeals accepts a bare array or an object wrapping it in data.
func decodeMeals(body []byte) ([]Meal, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []Meal{}, nil
	}

	var items []json.RawMessage
	if body[0] == '{' {
		var wrapped struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, errs.Wrap(errs.ErrUnknown, err)
		}
		items = wrapped.Data
	} else if err := json.Unmarshal(body, &items); err != nil {
		return nil, errs.Wrap(errs.ErrUnknown, err)
	}

	meals := make([]Meal, 0, len(items))
	for _, item := range items {
		var m Meal
		if err := json.Unmarshal(item, &m); err != nil {
			return nil, errs.Wrap(errs.ErrUnknown, err)
		}
		m.Raw = item
		meals = append(meals, m)
	}
	return meals, nil
}
