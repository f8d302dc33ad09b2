/*
Package account holds the member account model served by the development Member Service,
the rules every signup and profile edit must satisfy, and its repositories.
*/
package account

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Repository when no member matches.
var ErrNotFound = errors.New("member not found")

// ErrNicknameTaken and ErrEmailTaken are returned by Create and Update on a unique conflict.
var (
	ErrNicknameTaken = errors.New("nickname already registered")
	ErrEmailTaken    = errors.New("email already registered")
)

// Member is a stored account.
type Member struct {
	ID              int64
	Nickname        string
	Name            string
	Email           string
	PasswordHash    string
	ProfileImageURL string
	Role            string
	Height          *float64
	Weight          *float64
	TargetCalories  *float64
	ActivityLevel   string
	BirthAt         string
	Gender          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository persists members.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id int64) (*Member, error)
	GetByNickname(ctx context.Context, nickname string) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, id int64) error

	// RevokeToken records a refresh token id as used until expiresAt.
	RevokeToken(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}
