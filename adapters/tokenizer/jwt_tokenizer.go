package tokenizer

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/ports"
)

const AudienceAccess = "session:access"
const AudienceRefresh = "session:refresh"

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs.
// Access and refresh tokens are signed with distinct secrets; the
// audience claim carries the token type as a second line of defense
// against cross-type use.
type JWTTokenizer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) ports.Tokenizer {
	return &JWTTokenizer{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccountToAccessToken mints a short-lived access token for the account.
func (j *JWTTokenizer) AccountToAccessToken(account *core.Account) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Audience:  jwt.ClaimStrings{AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			ID:        uuid.New().String(),
		},
		Email: account.Email,
		Role:  string(account.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.accessSecret)
}

// AccountToRefreshToken mints a long-lived refresh token for the account.
func (j *JWTTokenizer) AccountToRefreshToken(account *core.Account) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			Audience:  jwt.ClaimStrings{AudienceRefresh},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.refreshTTL)),
			ID:        uuid.New().String(),
		},
		Email: account.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.refreshSecret)
}

// AccessTokenToIdentity verifies an access token and extracts the identity.
func (j *JWTTokenizer) AccessTokenToIdentity(tokenString string) (*core.Identity, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenString, claims, j.accessSecret, AudienceAccess); err != nil {
		return nil, err
	}

	role, err := core.ParseRole(claims.Role)
	if err != nil {
		return nil, core.ErrInvalidToken
	}

	return &core.Identity{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      role,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// RefreshTokenToIdentity verifies a refresh token and extracts the identity.
func (j *JWTTokenizer) RefreshTokenToIdentity(tokenString string) (*core.Identity, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenString, claims, j.refreshSecret, AudienceRefresh); err != nil {
		return nil, err
	}

	return &core.Identity{
		AccountID: claims.Subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// parse verifies signature, signing method, expiry and audience.
func (j *JWTTokenizer) parse(tokenString string, claims jwt.Claims, secret []byte, audience string) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, core.ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithAudience(audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return core.ErrTokenExpired
		}
		return core.ErrInvalidToken
	}

	if !token.Valid {
		return core.ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return core.ErrInvalidToken
	}
	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return core.ErrInvalidToken
	}

	return nil
}
