package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"harukcal/internal/pkg/randx"
)

const (
	// AccessTokenExpiration is the lifetime of the accessToken cookie.
	AccessTokenExpiration = 15 * time.Minute

	// RefreshTokenExpiration is the lifetime of the refreshToken cookie.
	RefreshTokenExpiration = 7 * 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "harukcal-memberdev"
)

// ErrWrongTokenType is returned by ParseToken when the typ claim does not match.
var ErrWrongTokenType = errors.New("unexpected token type")

// GenerateToken stamps payload with fresh standard claims and a new token id, then signs it.
func GenerateToken(payload *Payload, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	payload.StandardClaims = jwt.StandardClaims{
		Id:        randx.TokenID(),
		ExpiresAt: now.Add(duration).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString([]byte(secretKey))
}

// ParseToken parses and validates tokenString and checks that it is of tokenType.
func ParseToken(tokenString, secretKey, tokenType string) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongTokenType, claims.TokenType, tokenType)
	}

	return claims, nil
}

// ExpiresAtTime returns the exp claim as a time.
func (p *Payload) ExpiresAtTime() time.Time {
	return time.Unix(p.ExpiresAt, 0)
}
