package authflow

import (
	"context"

	"github.com/rs/zerolog"

	"harukcal/internal/app/member"
	"harukcal/internal/app/session"
	"harukcal/internal/app/state"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

// Members is the part of the Member Service client used by Service.
type Members interface {
	Login(ctx context.Context, nickname, password string) error
	Me(ctx context.Context) (*session.Record, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, u member.ProfileUpdate) (*session.Record, error)
	UpdateProfileImage(ctx context.Context, imageURL string) error
}

// Store is a session store that also owns the daily caches.
type Store interface {
	session.Store
	ResetDailyCaches() error
}

// Service runs the login, logout and profile edit flows.
type Service struct {
	members Members
	store   Store
	state   *state.Container
	logger  zerolog.Logger
}

// NewService returns a Service.
func NewService(members Members, store Store, st *state.Container) *Service {
	return &Service{
		members: members,
		store:   store,
		state:   st,
		logger:  logx.Component("auth_flow"),
	}
}

// Login signs in, loads the profile and persists it. A profile without nickname or
// email is rejected with errs.ErrIncompleteProfile. If only the cookie write fails, the
// container still reflects the confirmed server session and the write error is returned
// together with the profile.
func (s *Service) Login(ctx context.Context, nickname, password string) (*session.Record, error) {
	if err := s.members.Login(ctx, nickname, password); err != nil {
		s.logger.Warn().Err(err).Str("nickname", nickname).Msg("Login rejected")
		return nil, err
	}

	profile, err := s.members.Me(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Profile fetch after login failed")
		return nil, err
	}
	if !session.IsValid(profile) {
		s.logger.Warn().Str("nickname", nickname).Msg("Login returned an incomplete profile")
		return nil, errs.NewError(errs.ErrIncompleteProfile)
	}

	writeErr := s.store.Write(*profile)
	if err := s.store.ResetDailyCaches(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to reset daily caches")
	}
	s.state.Login(*profile)

	if writeErr != nil {
		return profile, writeErr
	}
	s.logger.Info().Str("nickname", profile.Nickname).Msg("Logged in")
	return profile, nil
}

// Logout asks the server to end the session and then clears local state whatever the
// server said. The clear is ordered after any store update already in progress.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.members.Logout(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Server logout failed, clearing local session anyway")
	}
	err := s.store.Clear()
	s.state.Logout()
	return err
}

// EditProfile sends u to the server and mirrors the result into the store and the
// container. It fails with session.ErrNoSession if a logout cleared the store first.
func (s *Service) EditProfile(ctx context.Context, u member.ProfileUpdate) (*session.Record, error) {
	updated, err := s.members.UpdateProfile(ctx, u)
	if err != nil {
		s.settle(err)
		return nil, err
	}

	rec, err := s.store.Update(func(r *session.Record) {
		if session.IsValid(updated) {
			*r = updated.Clone()
			return
		}
		u.Changes().Apply(r)
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Profile saved on server but not stored locally")
		s.settle(err)
		return nil, err
	}
	if err := s.state.Resync(s.store); err != nil {
		s.logger.Warn().Err(err).Msg("State resync failed")
	}
	return rec, nil
}

// ChangeNickname is EditProfile for the nickname alone.
func (s *Service) ChangeNickname(ctx context.Context, nickname string) (*session.Record, error) {
	return s.EditProfile(ctx, member.ProfileUpdate{Nickname: &nickname})
}

// ApplyPhoto mirrors an already saved profile image URL into the store and the container.
func (s *Service) ApplyPhoto(photoURL string) (*session.Record, error) {
	rec, err := s.store.Update(func(r *session.Record) {
		r.ProfileImageURL = photoURL
	})
	if err != nil {
		s.settle(err)
		return nil, err
	}
	s.state.UpdatePhoto(photoURL)
	return rec, nil
}

// UpdateProfileImage saves imageURL on the server. The store and the container are not
// touched on success; ApplyPhoto does that once the caller is done with storage.
func (s *Service) UpdateProfileImage(ctx context.Context, imageURL string) error {
	err := s.members.UpdateProfileImage(ctx, imageURL)
	if err != nil {
		s.settle(err)
	}
	return err
}

// settle brings the container back in line with the store after a failed call. An
// expired session has already been cleared from the store by the HTTP client, and a
// missing one was cleared by a concurrent logout.
func (s *Service) settle(err error) {
	if !errs.HasCode(err, errs.ErrSessionExpired) && !errs.HasCode(err, errs.ErrNoSession) {
		return
	}
	if rerr := s.state.Resync(s.store); rerr != nil {
		s.logger.Warn().Err(rerr).Msg("State resync failed, logging out")
		s.state.Logout()
	}
}
