package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"harukcal/internal/app/cookies"
)

// Daily cache cookies. They are reset on login and removed by Clear.
const (
	TodayCaloriesCookie  = "todayCalories"
	TodayNutrientsCookie = "todayNutrients"
	MealDataCookie       = "mealData"

	// DailyCacheLifetime is the lifetime of every daily cache cookie.
	DailyCacheLifetime = 24 * time.Hour
)

var clearedCookies = []string{
	AccessTokenCookie,
	RefreshTokenCookie,
	CookieName,
	TodayCaloriesCookie,
	TodayNutrientsCookie,
	MealDataCookie,
}

// Nutrients is today's macronutrient intake in grams.
type Nutrients struct {
	Carbs   float64 `json:"carbs"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
}

// TodayCalories returns the cached calorie count, or 0 when absent or unparsable.
func (s *CookieStore) TodayCalories() int {
	c, err := s.jar.Get(TodayCaloriesCookie)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(c.Value)
	if err != nil {
		return 0
	}
	return n
}

// SetTodayCalories caches today's calorie count.
func (s *CookieStore) SetTodayCalories(calories int) error {
	return s.setDaily(TodayCaloriesCookie, strconv.Itoa(calories))
}

// TodayNutrients returns the cached nutrients, or zeros when absent or unparsable.
func (s *CookieStore) TodayNutrients() Nutrients {
	var n Nutrients
	if !s.getDailyJSON(TodayNutrientsCookie, &n) {
		return Nutrients{}
	}
	return n
}

// SetTodayNutrients caches today's nutrients.
func (s *CookieStore) SetTodayNutrients(n Nutrients) error {
	return s.setDailyJSON(TodayNutrientsCookie, n)
}

// MealData returns the cached meal list, or an empty list when absent or unparsable.
func (s *CookieStore) MealData() []json.RawMessage {
	var meals []json.RawMessage
	if !s.getDailyJSON(MealDataCookie, &meals) || meals == nil {
		return []json.RawMessage{}
	}
	return meals
}

// SetMealData caches today's meal list.
func (s *CookieStore) SetMealData(meals []json.RawMessage) error {
	if meals == nil {
		meals = []json.RawMessage{}
	}
	return s.setDailyJSON(MealDataCookie, meals)
}

// ResetDailyCaches writes empty values to every daily cache.
func (s *CookieStore) ResetDailyCaches() error {
	return errors.Join(
		s.SetTodayCalories(0),
		s.SetTodayNutrients(Nutrients{}),
		s.SetMealData(nil),
	)
}

func (s *CookieStore) setDaily(name, value string) error {
	return s.jar.Set(&http.Cookie{
		Name:    name,
		Value:   value,
		Path:    "/",
		Expires: s.now().Add(DailyCacheLifetime),
	})
}

func (s *CookieStore) setDailyJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.setDaily(name, url.QueryEscape(string(data)))
}

func (s *CookieStore) getDailyJSON(name string, v any) bool {
	c, err := s.jar.Get(name)
	if err != nil {
		if !errors.Is(err, cookies.ErrNotFound) {
			s.logger.Warn().Err(err).Str("cookie", name).Msg("Failed to read daily cache")
		}
		return false
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn().Err(err).Str("cookie", name).Msg("Daily cache is not valid JSON")
		return false
	}
	return true
}
