/*
Package handler provides the HTTP handlers of the development Member Service.

Sessions are two HttpOnly cookies: a short-lived access token and a refresh token that is
rotated on every refresh. No handler reads an Authorization header.
*/
package handler

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"harukcal/internal/app/account"
	"harukcal/internal/pkg/auth/jwt"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
	"harukcal/internal/pkg/req"
	"harukcal/internal/pkg/resp"
	"harukcal/internal/pkg/validate"
)

const roleUser = "USER"

type SignupInput struct {
	Nickname        string   `json:"nickname"`
	Password        string   `json:"password"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	ProfileImageURL string   `json:"profileImageUrl"`
	Height          *float64 `json:"height"`
	Weight          *float64 `json:"weight"`
	TargetCalories  *float64 `json:"targetCalories"`
	ActivityLevel   string   `json:"activityLevel"`
	BirthAt         string   `json:"birthAt"`
	Gender          string   `json:"gender"`
}

// HandleSignup creates a member account. It does not start a session.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SignupInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Nickname = strings.TrimSpace(input.Nickname)
		input.Email = strings.TrimSpace(input.Email)

		for _, customErr := range []*errs.CustomError{
			validate.Nickname(input.Nickname),
			validate.Password(input.Password),
			validate.Email(input.Email),
			validate.ActivityLevel(input.ActivityLevel),
		} {
			if customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		m := &account.Member{
			Nickname:        input.Nickname,
			Name:            strings.TrimSpace(input.Name),
			Email:           input.Email,
			PasswordHash:    string(hashedPassword),
			ProfileImageURL: input.ProfileImageURL,
			Role:            roleUser,
			Height:          input.Height,
			Weight:          input.Weight,
			TargetCalories:  input.TargetCalories,
			ActivityLevel:   input.ActivityLevel,
			BirthAt:         input.BirthAt,
			Gender:          input.Gender,
		}

		if err := deps.Members.Create(r.Context(), m); err != nil {
			if customErr := conflictError(err); customErr != nil {
				logx.Warn("signup conflict", "nickname", input.Nickname, "error", err.Error())
				resp.RespondError(w, r, customErr)
				return
			}

			logx.Error(err, "failed to create member")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		logx.Info("member signed up", "member_id", m.ID)
		resp.RespondCreated(w, r, profileOf(m))
	}
}

type LoginInput struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and sets the session cookies.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		m, err := deps.Members.GetByNickname(r.Context(), strings.TrimSpace(input.Nickname))
		if err != nil {
			if !errors.Is(err, account.ErrNotFound) {
				logx.Error(err, "login: member fetch failed")
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredential))
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(input.Password)); err != nil {
			logx.Warn("login: password mismatch", "member_id", m.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidCredential))
			return
		}

		if err := deps.issueSession(w, m); err != nil {
			logx.Error(err, "login: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, profileOf(m))
	}
}

// HandleRefresh rotates the session: the presented refresh token is revoked and a new
// pair is issued. A missing, invalid or already used refresh token is a 401.
func HandleRefresh(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, customErr := refreshPayload(deps, r)
		if customErr != nil {
			deps.clearSession(w)
			resp.RespondError(w, r, customErr)
			return
		}

		revoked, err := deps.Members.IsTokenRevoked(r.Context(), payload.Id)
		if err != nil {
			logx.Error(err, "refresh: revocation lookup failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if revoked {
			logx.Warn("refresh: reused refresh token", "member_id", payload.MemberID)
			deps.clearSession(w)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		m, err := deps.Members.GetByID(r.Context(), payload.MemberID)
		if err != nil {
			deps.clearSession(w)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if err := deps.Members.RevokeToken(r.Context(), payload.Id, payload.ExpiresAtTime()); err != nil {
			logx.Error(err, "refresh: revoking old token failed", "member_id", m.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if err := deps.issueSession(w, m); err != nil {
			logx.Error(err, "refresh: jwt generation failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, profileOf(m))
	}
}

// HandleLogout revokes the refresh token when one is presented and expires both cookies.
// It always succeeds.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload, customErr := refreshPayload(deps, r); customErr == nil {
			if err := deps.Members.RevokeToken(r.Context(), payload.Id, payload.ExpiresAtTime()); err != nil {
				logx.Error(err, "logout: revoking refresh token failed", "member_id", payload.MemberID)
			}
		}

		deps.clearSession(w)
		resp.RespondNoContent(w)
	}
}

func refreshPayload(deps *AppDeps, r *http.Request) (*jwt.Payload, *errs.CustomError) {
	cookie, err := r.Cookie(jwt.RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}

	payload, err := jwt.ParseToken(cookie.Value, deps.Config.JWTSecret, jwt.TypeRefresh)
	if err != nil {
		return nil, errs.Wrap(errs.ErrUnauthorized, err)
	}
	return payload, nil
}

func conflictError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, account.ErrNicknameTaken):
		return errs.NewError(errs.ErrNicknameExists)
	case errors.Is(err, account.ErrEmailTaken):
		return errs.NewError(errs.ErrEmailExists)
	}
	return nil
}
