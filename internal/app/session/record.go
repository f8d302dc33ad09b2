/*
Package session persists the signed-in member's profile snapshot in the cookie jar.

The Store is the single source of truth for "who is logged in". UI state is a copy that is
resynchronised from it.
*/
package session

import (
	"encoding/json"
	"strings"
)

// Roles known to the client. Any other value is kept as sent by the server.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Record is the persisted snapshot of the signed-in member.
type Record struct {
	MemberID            *int64   `json:"memberId,omitempty"`
	Nickname            string   `json:"nickname,omitempty"`
	Name                string   `json:"name,omitempty"`
	Email               string   `json:"email,omitempty"`
	ProfileImageURL     string   `json:"profileImageUrl,omitempty"`
	Role                string   `json:"role"`
	Height              *float64 `json:"height,omitempty"`
	Weight              *float64 `json:"weight,omitempty"`
	TargetCalories      *float64 `json:"targetCalories,omitempty"`
	RecommendedCalories *float64 `json:"recommendedCalories,omitempty"`
	ActivityLevel       string   `json:"activityLevel,omitempty"`
	BirthAt             string   `json:"birthAt,omitempty"`
	Gender              string   `json:"gender,omitempty"`
}

// wireRecord accepts every spelling the Member Service and older clients have used.
type wireRecord struct {
	MemberID            *int64   `json:"memberId"`
	ID                  *int64   `json:"id"`
	Nickname            *string  `json:"nickname"`
	Name                *string  `json:"name"`
	Email               *string  `json:"email"`
	ProfileImageURL     *string  `json:"profileImageUrl"`
	Photo               *string  `json:"photo"`
	ProfileImageSnake   *string  `json:"profile_image_url"`
	Role                *string  `json:"role"`
	Height              *float64 `json:"height"`
	Weight              *float64 `json:"weight"`
	TargetCalories      *float64 `json:"targetCalories"`
	RecommendedCalories *float64 `json:"recommendedCalories"`
	ActivityLevel       *string  `json:"activityLevel"`
	BirthAt             *string  `json:"birthAt"`
	Gender              *string  `json:"gender"`
}

// Decode parses a profile or a stored record and returns it normalised.
func Decode(data []byte) (*Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	r := Record{
		MemberID:            firstInt(w.MemberID, w.ID),
		Nickname:            str(w.Nickname),
		Name:                str(w.Name),
		Email:               str(w.Email),
		ProfileImageURL:     firstString(w.ProfileImageURL, w.Photo, w.ProfileImageSnake),
		Role:                str(w.Role),
		Height:              w.Height,
		Weight:              w.Weight,
		TargetCalories:      w.TargetCalories,
		RecommendedCalories: w.RecommendedCalories,
		ActivityLevel:       str(w.ActivityLevel),
		BirthAt:             str(w.BirthAt),
		Gender:              str(w.Gender),
	}
	r = r.Normalize()
	return &r, nil
}

// UnmarshalJSON lets a Record be decoded straight from any accepted spelling.
func (r *Record) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// Normalize returns r with defaults applied and text fields trimmed.
func (r Record) Normalize() Record {
	r.Nickname = strings.TrimSpace(r.Nickname)
	r.Email = strings.TrimSpace(r.Email)
	r.Role = strings.ToUpper(strings.TrimSpace(r.Role))
	if r.Role == "" {
		r.Role = RoleUser
	}
	return r
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.MemberID = clonePtr(r.MemberID)
	r.Height = clonePtr(r.Height)
	r.Weight = clonePtr(r.Weight)
	r.TargetCalories = clonePtr(r.TargetCalories)
	r.RecommendedCalories = clonePtr(r.RecommendedCalories)
	return r
}

// IsAdmin drives display decisions only. Every privileged action is still authorised by
// the Member Service.
func (r Record) IsAdmin() bool {
	return r.Role == RoleAdmin
}

// IsValid reports whether r describes an authenticated session: nickname and email must
// both be non-empty. A nil record is never valid.
func IsValid(r *Record) bool {
	return r != nil && r.Nickname != "" && r.Email != ""
}

// Changes is a partial profile update. Nil fields are left untouched.
type Changes struct {
	Nickname        *string
	Name            *string
	Email           *string
	ProfileImageURL *string
	Height          *float64
	Weight          *float64
	TargetCalories  *float64
	ActivityLevel   *string
	BirthAt         *string
	Gender          *string
}

// Apply copies every non-nil field of c into r.
func (c Changes) Apply(r *Record) {
	setIf(&r.Nickname, c.Nickname)
	setIf(&r.Name, c.Name)
	setIf(&r.Email, c.Email)
	setIf(&r.ProfileImageURL, c.ProfileImageURL)
	setIf(&r.ActivityLevel, c.ActivityLevel)
	setIf(&r.BirthAt, c.BirthAt)
	setIf(&r.Gender, c.Gender)
	if c.Height != nil {
		r.Height = clonePtr(c.Height)
	}
	if c.Weight != nil {
		r.Weight = clonePtr(c.Weight)
	}
	if c.TargetCalories != nil {
		r.TargetCalories = clonePtr(c.TargetCalories)
	}
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func firstInt(vals ...*int64) *int64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
