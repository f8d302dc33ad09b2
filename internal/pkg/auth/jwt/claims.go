package jwt

import "github.com/golang-jwt/jwt"

// Token types carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Payload defines the JWT claims of the development Member Service.
// Both session cookies carry one; TokenType tells them apart so a refresh token is never
// accepted as an access token.
type Payload struct {
	// StandardClaims carries exp, iat, iss and jti. The jti (Id) of a refresh token is
	// what gets revoked on rotation and logout.
	jwt.StandardClaims

	// MemberID is the numeric member identifier.
	MemberID int64 `json:"mid"`

	Nickname string `json:"nickname"`

	// Role is USER or ADMIN.
	Role string `json:"role"`

	TokenType string `json:"typ"`
}
