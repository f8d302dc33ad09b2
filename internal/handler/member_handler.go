package handler

import (
	"errors"
	"net/http"
	"strings"

	"harukcal/internal/app/account"
	"harukcal/internal/pkg/auth/jwt"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
	"harukcal/internal/pkg/req"
	"harukcal/internal/pkg/resp"
	"harukcal/internal/pkg/validate"
)

// currentMember loads the member of the access token. A token whose member no longer
// exists is treated as unauthenticated.
func currentMember(deps *AppDeps, w http.ResponseWriter, r *http.Request) (*account.Member, bool) {
	identity := jwt.GetPayloadFromContext(r)
	if identity == nil {
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return nil, false
	}

	m, err := deps.Members.GetByID(r.Context(), identity.MemberID)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			logx.Error(err, "member fetch failed", "member_id", identity.MemberID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return nil, false
		}
		logx.Warn("access token for a deleted member", "member_id", identity.MemberID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
		return nil, false
	}
	return m, true
}

// HandleGetMe returns the signed-in member's profile.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := currentMember(deps, w, r)
		if !ok {
			return
		}
		resp.RespondSuccess(w, r, profileOf(m))
	}
}

type UpdateProfileInput struct {
	Nickname       *string  `json:"nickname"`
	Name           *string  `json:"name"`
	Height         *float64 `json:"height"`
	Weight         *float64 `json:"weight"`
	TargetCalories *float64 `json:"targetCalories"`
	ActivityLevel  *string  `json:"activityLevel"`
	BirthAt        *string  `json:"birthAt"`
	Gender         *string  `json:"gender"`
}

// HandleUpdateMe applies a partial profile edit. Absent fields keep their values.
func HandleUpdateMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := currentMember(deps, w, r)
		if !ok {
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Nickname != nil {
			nickname := strings.TrimSpace(*input.Nickname)
			if customErr := validate.Nickname(nickname); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			m.Nickname = nickname
		}
		if input.ActivityLevel != nil {
			if customErr := validate.ActivityLevel(*input.ActivityLevel); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			m.ActivityLevel = *input.ActivityLevel
		}
		if input.Name != nil {
			m.Name = strings.TrimSpace(*input.Name)
		}
		if input.Height != nil {
			m.Height = input.Height
		}
		if input.Weight != nil {
			m.Weight = input.Weight
		}
		if input.TargetCalories != nil {
			m.TargetCalories = input.TargetCalories
		}
		if input.BirthAt != nil {
			m.BirthAt = *input.BirthAt
		}
		if input.Gender != nil {
			m.Gender = *input.Gender
		}

		saveAndRespond(deps, w, r, m)
	}
}

type ProfileImageInput struct {
	ProfileImageURL string `json:"profile_image_url"`
}

// HandleUpdateProfileImage stores the public URL of an uploaded photo.
func HandleUpdateProfileImage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := currentMember(deps, w, r)
		if !ok {
			return
		}

		var input ProfileImageInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		imageURL := strings.TrimSpace(input.ProfileImageURL)
		if imageURL != "" && !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams).WithMessage("profile_image_url must be an http(s) URL."))
			return
		}
		m.ProfileImageURL = imageURL

		saveAndRespond(deps, w, r, m)
	}
}

func saveAndRespond(deps *AppDeps, w http.ResponseWriter, r *http.Request, m *account.Member) {
	if err := deps.Members.Update(r.Context(), m); err != nil {
		if customErr := conflictError(err); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if errors.Is(err, account.ErrNotFound) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}
		logx.Error(err, "failed to update member", "member_id", m.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	resp.RespondSuccess(w, r, profileOf(m))
}

// HandleDeleteMe removes the signed-in member and ends the session.
func HandleDeleteMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, ok := currentMember(deps, w, r)
		if !ok {
			return
		}

		if err := deps.Members.Delete(r.Context(), m.ID); err != nil && !errors.Is(err, account.ErrNotFound) {
			logx.Error(err, "failed to delete member", "member_id", m.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		logx.Info("member deleted", "member_id", m.ID)
		deps.clearSession(w)
		resp.RespondNoContent(w)
	}
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// HandleCheckNickname answers {"exists": bool} for ?nickname=.
func HandleCheckNickname(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nickname, customErr := req.Query(r, "nickname")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		respondExists(w, r, lookupErr(deps.Members.GetByNickname(r.Context(), nickname)))
	}
}

// HandleCheckEmail answers {"exists": bool} for ?email=.
func HandleCheckEmail(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, customErr := req.Query(r, "email")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		respondExists(w, r, lookupErr(deps.Members.GetByEmail(r.Context(), email)))
	}
}

func lookupErr(_ *account.Member, err error) error {
	return err
}

func respondExists(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		resp.RespondSuccess(w, r, existsResponse{Exists: true})
	case errors.Is(err, account.ErrNotFound):
		resp.RespondSuccess(w, r, existsResponse{Exists: false})
	default:
		logx.Error(err, "existence check failed")
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
	}
}

type SearchNicknameInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// HandleSearchNickname returns the nickname registered with the given name and email.
func HandleSearchNickname(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SearchNicknameInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		m, err := deps.Members.GetByEmail(r.Context(), strings.TrimSpace(input.Email))
		if err != nil || m.Name != strings.TrimSpace(input.Name) {
			if err != nil && !errors.Is(err, account.ErrNotFound) {
				logx.Error(err, "nickname search failed")
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrMemberNotFound))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"nickname": m.Nickname})
	}
}
