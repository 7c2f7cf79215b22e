package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with access-specific ones
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// RefreshClaims carry no role: a refresh token only proves session
// continuity, the role is re-read from the account on rotation.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}
