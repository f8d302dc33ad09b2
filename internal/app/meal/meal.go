/*
Package meal reads a member's meal history from the Meal Service and keeps the daily
caches in the session store in step with it.

Requests go through the same cookie-authenticated HTTP client as the member client, so
an expired session is refreshed or cleared the same way.
*/
package meal

import (
	"encoding/json"
	"math"

	"harukcal/internal/app/session"
)

// Meal types used by the Meal Service.
const (
	TypeBreakfast = "BREAKFAST"
	TypeLunch     = "LUNCH"
	TypeDinner    = "DINNER"
	TypeSnack     = "SNACK"
)

// Food is one item of a meal. Older records carry energy as kcal instead of calories.
type Food struct {
	FoodID   int64   `json:"foodId,omitempty"`
	FoodName string  `json:"foodName,omitempty"`
	Calories float64 `json:"calories,omitempty"`
	Kcal     float64 `json:"kcal,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Fat      float64 `json:"fat,omitempty"`
}

// Energy returns the food's calories, falling back to kcal.
func (f Food) Energy() float64 {
	if f.Calories != 0 {
		return f.Calories
	}
	return f.Kcal
}

// Meal is one meal record. Raw keeps the record as the server sent it.
type Meal struct {
	MealID      int64   `json:"mealId,omitempty"`
	MealType    string  `json:"mealType,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Memo        string  `json:"memo,omitempty"`
	ModifiedAt  string  `json:"modifiedAt,omitempty"`
	CreateDate  string  `json:"createDate,omitempty"`
	CreatedDate string  `json:"createdDate,omitempty"`
	Date        string  `json:"date,omitempty"`
	TotalKcal   float64 `json:"totalKcal,omitempty"`
	Calories    float64 `json:"calories,omitempty"`
	Foods       []Food  `json:"foods,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// RecordedAt returns the record's date, preferring the modification time.
func (m Meal) RecordedAt() string {
	for _, d := range []string{m.ModifiedAt, m.CreateDate, m.CreatedDate, m.Date} {
		if d != "" {
			return d
		}
	}
	return ""
}

// Totals sums the meal's foods. A meal without foods reports its own total.
func (m Meal) Totals() Summary {
	if len(m.Foods) == 0 {
		kcal := m.TotalKcal
		if kcal == 0 {
			kcal = m.Calories
		}
		return Summary{Calories: kcal}
	}

	var s Summary
	for _, f := range m.Foods {
		s.Calories += f.Energy()
		s.Carbs += f.Carbs
		s.Protein += f.Protein
		s.Fat += f.Fat
	}
	return s
}

// Summary is the energy and macronutrients of one or more meals.
type Summary struct {
	Meals    int     `json:"meals"`
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
}

// Summarize adds up meals.
func Summarize(meals []Meal) Summary {
	var s Summary
	for _, m := range meals {
		t := m.Totals()
		s.Calories += t.Calories
		s.Carbs += t.Carbs
		s.Protein += t.Protein
		s.Fat += t.Fat
	}
	s.Meals = len(meals)
	return s
}

// Nutrients returns the macronutrients in the daily cache shape.
func (s Summary) Nutrients() session.Nutrients {
	return session.Nutrients{Carbs: s.Carbs, Protein: s.Protein, Fat: s.Fat}
}

// RoundedCalories is the calorie count stored in the daily cache.
func (s Summary) RoundedCalories() int {
	return int(math.Round(s.Calories))
}
