/*
Package member is the typed client for the Member Service REST API.
*/
package member

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
	"harukcal/internal/pkg/retryx"
	"harukcal/internal/pkg/validate"
)

// Member Service paths.
const (
	BasePath           = "/api/members"
	LoginPath          = BasePath + "/login"
	SignupPath         = BasePath + "/signup"
	MePath             = BasePath + "/me"
	ProfileImagePath   = BasePath + "/me/profile-image"
	RefreshPath        = BasePath + "/refresh"
	LogoutPath         = BasePath + "/logout"
	CheckNicknamePath  = BasePath + "/check-nickname"
	CheckEmailPath     = BasePath + "/check-email"
	SearchNicknamePath = BasePath + "/search-nickname"
)

// Defaults for the login retry policy.
const (
	DefaultLoginMaxRetries = 2
	DefaultLoginRetryDelay = time.Second
)

// Doer sends a request to the Member Service. *authhttp.Client implements it.
type Doer interface {
	Do(ctx context.Context, req authhttp.Request) (*authhttp.Response, error)
}

// Client calls the Member Service.
type Client struct {
	http        Doer
	loginPolicy retryx.Policy
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLoginRetry sets how often and how long login waits after a network error.
// The n-th retry waits n*delay.
func WithLoginRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Client) {
		c.loginPolicy.MaxRetries = maxRetries
		c.loginPolicy.Delay = retryx.Linear(delay)
	}
}

// NewClient returns a Member Service client over h.
func NewClient(h Doer, opts ...Option) *Client {
	c := &Client{
		http:   h,
		logger: logx.Component("member_client"),
	}
	c.loginPolicy = retryx.Policy{
		MaxRetries: DefaultLoginMaxRetries,
		Delay:      retryx.Linear(DefaultLoginRetryDelay),
		Retryable: func(err error) bool {
			return errs.HasCode(err, errs.ErrNetwork)
		},
		OnRetry: func(n int, delay time.Duration, err error) {
			c.logger.Warn().Err(err).Int("attempt", n).Dur("delay", delay).Msg("Login got no response, retrying")
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials are the login form fields.
type Credentials struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// Login posts credentials. On success the server has set its session cookies. A 401 is
// returned as errs.ErrInvalidCredential carrying the server's message; network failures
// are retried by the login policy.
func (c *Client) Login(ctx context.Context, nickname, password string) error {
	req, err := authhttp.JSONRequest(http.MethodPost, LoginPath, Credentials{Nickname: nickname, Password: password})
	if err != nil {
		return err
	}

	err = c.loginPolicy.Do(ctx, func(ctx context.Context) error {
		_, err := c.http.Do(ctx, req)
		return err
	})
	if err == nil {
		return nil
	}

	var se *authhttp.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		return errs.Wrap(errs.ErrInvalidCredential, se).WithMessage(se.Message)
	}
	return err
}

// Me fetches the current member's profile.
func (c *Client) Me(ctx context.Context) (*session.Record, error) {
	resp, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodGet, Path: MePath})
	if err != nil {
		return nil, err
	}
	return decodeProfile(resp)
}

// Refresh asks the server to rotate the session cookies. It is exempt from retry-on-401.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodPost, Path: RefreshPath, NoRefresh: true})
	if err != nil && authhttp.StatusCode(err) == http.StatusUnauthorized {
		return errs.Wrap(errs.ErrUnauthorized, err)
	}
	return err
}

// Logout invalidates the server session. Callers treat failure as non-fatal.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodPost, Path: LogoutPath, NoRefresh: true})
	return err
}

// SignupInput is the signup form.
type SignupInput struct {
	Nickname        string   `json:"nickname"`
	Password        string   `json:"password"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	ProfileImageURL string   `json:"profileImageUrl,omitempty"`
	Height          *float64 `json:"height,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	TargetCalories  *float64 `json:"targetCalories,omitempty"`
	ActivityLevel   string   `json:"activityLevel,omitempty"`
	BirthAt         string   `json:"birthAt,omitempty"`
	Gender          string   `json:"gender,omitempty"`
}

// Validate applies the same rules the server enforces.
func (in SignupInput) Validate() error {
	if err := validate.Nickname(in.Nickname); err != nil {
		return err
	}
	if err := validate.Password(in.Password); err != nil {
		return err
	}
	if err := validate.Email(in.Email); err != nil {
		return err
	}
	if err := validate.ActivityLevel(in.ActivityLevel); err != nil {
		return err
	}
	return nil
}

// Signup creates an account and returns its profile. It does not sign in.
func (c *Client) Signup(ctx context.Context, in SignupInput) (*session.Record, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	req, err := authhttp.JSONRequest(http.MethodPost, SignupPath, in)
	if err != nil {
		return nil, err
	}
	req.NoRefresh = true
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeProfile(resp)
}

// ProfileUpdate is a partial profile edit. Nil fields are not sent.
type ProfileUpdate struct {
	Nickname       *string  `json:"nickname,omitempty"`
	Name           *string  `json:"name,omitempty"`
	Height         *float64 `json:"height,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	TargetCalories *float64 `json:"targetCalories,omitempty"`
	ActivityLevel  *string  `json:"activityLevel,omitempty"`
	BirthAt        *string  `json:"birthAt,omitempty"`
	Gender         *string  `json:"gender,omitempty"`
}

// Validate checks the fields that are set.
func (u ProfileUpdate) Validate() error {
	if u.Nickname != nil {
		if err := validate.Nickname(*u.Nickname); err != nil {
			return err
		}
	}
	if u.ActivityLevel != nil {
		if err := validate.ActivityLevel(*u.ActivityLevel); err != nil {
			return err
		}
	}
	return nil
}

// Changes converts u for the session store.
func (u ProfileUpdate) Changes() session.Changes {
	return session.Changes{
		Nickname:       u.Nickname,
		Name:           u.Name,
		Height:         u.Height,
		Weight:         u.Weight,
		TargetCalories: u.TargetCalories,
		ActivityLevel:  u.ActivityLevel,
		BirthAt:        u.BirthAt,
		Gender:         u.Gender,
	}
}

// UpdateProfile sends u and returns the server's updated profile.
func (c *Client) UpdateProfile(ctx context.Context, u ProfileUpdate) (*session.Record, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	req, err := authhttp.JSONRequest(http.MethodPut, MePath, u)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeProfile(resp)
}

// UpdateProfileImage stores a new public image URL on the member.
func (c *Client) UpdateProfileImage(ctx context.Context, imageURL string) error {
	req, err := authhttp.JSONRequest(http.MethodPatch, ProfileImagePath, map[string]string{
		"profile_image_url": imageURL,
	})
	if err != nil {
		return err
	}
	_, err = c.http.Do(ctx, req)
	return err
}

// DeleteAccount removes the signed-in member.
func (c *Client) DeleteAccount(ctx context.Context) error {
	_, err := c.http.Do(ctx, authhttp.Request{Method: http.MethodDelete, Path: MePath})
	return err
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

// NicknameExists reports whether nickname is taken.
func (c *Client) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	return c.exists(ctx, CheckNicknamePath, "nickname", nickname)
}

// EmailExists reports whether email is taken.
func (c *Client) EmailExists(ctx context.Context, email string) (bool, error) {
	return c.exists(ctx, CheckEmailPath, "email", email)
}

func (c *Client) exists(ctx context.Context, path, key, value string) (bool, error) {
	resp, err := c.http.Do(ctx, authhttp.Request{
		Method:    http.MethodGet,
		Path:      path,
		Query:     url.Values{key: {value}},
		NoRefresh: true,
	})
	if err != nil {
		return false, err
	}
	var out existsResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// SearchNickname looks up the nickname registered with name and email.
func (c *Client) SearchNickname(ctx context.Context, name, email string) (string, error) {
	req, err := authhttp.JSONRequest(http.MethodPost, SearchNicknamePath, map[string]string{
		"name":  name,
		"email": email,
	})
	if err != nil {
		return "", err
	}
	req.NoRefresh = true
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", err
	}
	var out struct {
		Nickname string `json:"nickname"`
	}
	if err := resp.DecodeJSON(&out); err != nil {
		return "", err
	}
	return out.Nickname, nil
}

func decodeProfile(resp *authhttp.Response) (*session.Record, error) {
	r, err := session.Decode(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIncompleteProfile, err)
	}
	return r, nil
}
