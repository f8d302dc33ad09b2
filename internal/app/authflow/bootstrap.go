/*
Package authflow decides at startup whether a session exists and drives login, logout and
profile edits across the Member Service, the session store and the UI state container.
*/
package authflow

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"harukcal/internal/app/authhttp"
	"harukcal/internal/app/session"
	"harukcal/internal/app/state"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
)

// Phase is the bootstrap progress. Unconfirmed is never persisted: the next process
// starts over at Unstarted.
type Phase int

const (
	Unstarted Phase = iota
	Checking
	ConfirmedValid
	ConfirmedInvalid
	Unconfirmed
)

func (p Phase) String() string {
	switch p {
	case Unstarted:
		return "unstarted"
	case Checking:
		return "checking"
	case ConfirmedValid:
		return "confirmed_valid"
	case ConfirmedInvalid:
		return "confirmed_invalid"
	case Unconfirmed:
		return "unconfirmed"
	default:
		return "unknown"
	}
}

// ProfileFetcher returns the current member's profile from the server.
type ProfileFetcher interface {
	Me(ctx context.Context) (*session.Record, error)
}

// Result is the outcome of a bootstrap.
type Result struct {
	Phase Phase

	// Record is the session in effect when Phase is ConfirmedValid.
	Record *session.Record

	// FromCache reports that no server round trip was needed.
	FromCache bool

	// Err explains Unconfirmed and ConfirmedInvalid outcomes.
	Err error
}

// Bootstrapper reconciles the session store with the server once per process.
type Bootstrapper struct {
	store   session.Store
	fetcher ProfileFetcher
	state   *state.Container
	logger  zerolog.Logger

	once   sync.Once
	result Result

	mu    sync.Mutex
	phase Phase
}

// NewBootstrapper returns a bootstrapper in the Unstarted phase.
func NewBootstrapper(store session.Store, fetcher ProfileFetcher, st *state.Container) *Bootstrapper {
	return &Bootstrapper{
		store:   store,
		fetcher: fetcher,
		state:   st,
		logger:  logx.Component("auth_bootstrap"),
	}
}

// Phase returns the current phase.
func (b *Bootstrapper) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

func (b *Bootstrapper) setPhase(p Phase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
}

// Run performs the check the first time it is called. Later and concurrent callers get
// the same Result; only the first caller's ctx bounds the work.
func (b *Bootstrapper) Run(ctx context.Context) Result {
	b.once.Do(func() {
		b.setPhase(Checking)
		b.result = b.run(ctx)
		b.setPhase(b.result.Phase)
		b.logger.Info().
			Str("phase", b.result.Phase.String()).
			Bool("from_cache", b.result.FromCache).
			AnErr("reason", b.result.Err).
			Msg("Auth bootstrap finished")
	})
	return b.result
}

func (b *Bootstrapper) run(ctx context.Context) Result {
	cached, err := b.store.Read()
	if err != nil {
		b.logger.Warn().Err(err).Msg("Session store unreadable, asking the server")
	}
	if session.IsValid(cached) {
		b.state.Login(*cached)
		return Result{Phase: ConfirmedValid, Record: cached, FromCache: true}
	}

	profile, err := b.fetcher.Me(ctx)
	switch {
	case err == nil && session.IsValid(profile):
		if werr := b.store.Write(*profile); werr != nil {
			b.logger.Error().Err(werr).Msg("Confirmed session could not be persisted")
		}
		b.state.Login(*profile)
		return Result{Phase: ConfirmedValid, Record: profile}

	case err == nil:
		b.logger.Warn().Bool("has_nickname", profile != nil && profile.Nickname != "").
			Bool("has_email", profile != nil && profile.Email != "").
			Msg("Server returned an incomplete profile, session not promoted")
		b.state.Logout()
		return Result{Phase: Unconfirmed, Err: errs.NewError(errs.ErrIncompleteProfile)}

	case isAuthRejection(err):
		if cerr := b.store.Clear(); cerr != nil {
			b.logger.Error().Err(cerr).Msg("Failed to clear rejected session")
		}
		b.state.Logout()
		return Result{Phase: ConfirmedInvalid, Err: err}

	default:
		b.logger.Warn().Err(err).Msg("Session could not be confirmed, keeping stored session")
		b.state.Logout()
		return Result{Phase: Unconfirmed, Err: err}
	}
}

// isAuthRejection reports a 401 or 403 from the server, including a 401 that survived
// a refresh.
func isAuthRejection(err error) bool {
	if errs.HasCode(err, errs.ErrSessionExpired) {
		return true
	}
	return authhttp.IsStatus(err, http.StatusUnauthorized, http.StatusForbidden)
}
