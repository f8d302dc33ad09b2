package handler

import (
	"net/http"
	"time"

	"harukcal/internal/app/account"
	"harukcal/internal/configs"
	"harukcal/internal/pkg/auth/jwt"
)

// AppDeps holds what the handlers need.
type AppDeps struct {
	Config  *configs.AppConfig
	Members account.Repository
}

// secureCookies reports whether session cookies are marked Secure.
func (d *AppDeps) secureCookies() bool {
	return !d.Config.IsDevelopment()
}

// issueSession signs a new access/refresh token pair for m and sets both cookies.
func (d *AppDeps) issueSession(w http.ResponseWriter, m *account.Member) error {
	access, err := jwt.GenerateToken(&jwt.Payload{
		MemberID:  m.ID,
		Nickname:  m.Nickname,
		Role:      m.Role,
		TokenType: jwt.TypeAccess,
	}, d.Config.JWTSecret, jwt.AccessTokenExpiration)
	if err != nil {
		return err
	}

	refresh, err := jwt.GenerateToken(&jwt.Payload{
		MemberID:  m.ID,
		Nickname:  m.Nickname,
		Role:      m.Role,
		TokenType: jwt.TypeRefresh,
	}, d.Config.JWTSecret, jwt.RefreshTokenExpiration)
	if err != nil {
		return err
	}

	http.SetCookie(w, d.sessionCookie(jwt.AccessTokenCookie, access, jwt.AccessTokenExpiration))
	http.SetCookie(w, d.sessionCookie(jwt.RefreshTokenCookie, refresh, jwt.RefreshTokenExpiration))
	return nil
}

// clearSession expires both session cookies.
func (d *AppDeps) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, d.sessionCookie(jwt.AccessTokenCookie, "", -1))
	http.SetCookie(w, d.sessionCookie(jwt.RefreshTokenCookie, "", -1))
}

func (d *AppDeps) sessionCookie(name, value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if ttl < 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   d.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	}
}

// Profile is the flat member profile returned by /me, login, signup and profile edits.
// Photo repeats ProfileImageURL for older clients.
type Profile struct {
	MemberID        int64    `json:"memberId"`
	Nickname        string   `json:"nickname"`
	Name            string   `json:"name,omitempty"`
	Email           string   `json:"email"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
	Photo           string   `json:"photo,omitempty"`
	Role            string   `json:"role"`
	Height          *float64 `json:"height,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	TargetCalories  *float64 `json:"targetCalories,omitempty"`
	ActivityLevel   string   `json:"activityLevel,omitempty"`
	BirthAt         string   `json:"birthAt,omitempty"`
	Gender          string   `json:"gender,omitempty"`
}

func profileOf(m *account.Member) Profile {
	return Profile{
		MemberID:        m.ID,
		Nickname:        m.Nickname,
		Name:            m.Name,
		Email:           m.Email,
		ProfileImageURL: m.ProfileImageURL,
		Photo:           m.ProfileImageURL,
		Role:            m.Role,
		Height:          m.Height,
		Weight:          m.Weight,
		TargetCalories:  m.TargetCalories,
		ActivityLevel:   m.ActivityLevel,
		BirthAt:         m.BirthAt,
		Gender:          m.Gender,
	}
}
