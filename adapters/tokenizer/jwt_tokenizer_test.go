package tokenizer

import (
	"testing"
	"time"

	"github.com/layer-3/ridegate/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccount = &core.Account{
	ID:       "acc-1",
	Email:    "a@b.com",
	Role:     core.RoleCustomer,
	IsActive: true,
}

func newTestTokenizer(accessTTL, refreshTTL time.Duration) *JWTTokenizer {
	return NewJWTTokenizer(
		[]byte("access-secret"),
		[]byte("refresh-secret"),
		accessTTL,
		refreshTTL,
	).(*JWTTokenizer)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok := newTestTokenizer(15*time.Minute, 7*24*time.Hour)

	token, err := tok.AccountToAccessToken(testAccount)
	require.NoError(t, err)

	identity, err := tok.AccessTokenToIdentity(token)
	require.NoError(t, err)

	assert.Equal(t, "acc-1", identity.AccountID)
	assert.Equal(t, "a@b.com", identity.Email)
	assert.Equal(t, core.RoleCustomer, identity.Role)
	assert.NotEmpty(t, identity.TokenID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), identity.ExpiresAt, 5*time.Second)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	tok := newTestTokenizer(15*time.Minute, 7*24*time.Hour)

	token, err := tok.AccountToRefreshToken(testAccount)
	require.NoError(t, err)

	identity, err := tok.RefreshTokenToIdentity(token)
	require.NoError(t, err)

	assert.Equal(t, "acc-1", identity.AccountID)
	assert.Empty(t, identity.Role)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), identity.ExpiresAt, 5*time.Second)
}

func TestExpiredAccessToken(t *testing.T) {
	tok := newTestTokenizer(-2*time.Second, 7*24*time.Hour)

	token, err := tok.AccountToAccessToken(testAccount)
	require.NoError(t, err)

	_, err = tok.AccessTokenToIdentity(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestAccessTokenValidJustBeforeExpiry(t *testing.T) {
	tok := newTestTokenizer(2*time.Second, 7*24*time.Hour)

	token, err := tok.AccountToAccessToken(testAccount)
	require.NoError(t, err)

	// Well within the lifetime.
	_, err = tok.AccessTokenToIdentity(token)
	assert.NoError(t, err)

	// Past the lifetime.
	time.Sleep(2100 * time.Millisecond)
	_, err = tok.AccessTokenToIdentity(token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestCrossTypeUseRejected(t *testing.T) {
	tok := newTestTokenizer(15*time.Minute, 7*24*time.Hour)

	accessToken, err := tok.AccountToAccessToken(testAccount)
	require.NoError(t, err)
	refreshToken, err := tok.AccountToRefreshToken(testAccount)
	require.NoError(t, err)

	_, err = tok.RefreshTokenToIdentity(accessToken)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = tok.AccessTokenToIdentity(refreshToken)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestCrossTypeRejectedEvenWithSharedSecret(t *testing.T) {
	// Misconfigured identical secrets: the audience claim still keeps
	// access and refresh tokens apart.
	tok := NewJWTTokenizer([]byte("same"), []byte("same"), 15*time.Minute, time.Hour).(*JWTTokenizer)

	accessToken, err := tok.AccountToAccessToken(testAccount)
	require.NoError(t, err)

	_, err = tok.RefreshTokenToIdentity(accessToken)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestTamperedTokenRejected(t *testing.T) {
	tok := newTestTokenizer(15*time.Minute, 7*24*time.Hour)

	token, err := tok.AccountToAccessToken(testAccount)
	require.NoError(t, err)

	_, err = tok.AccessTokenToIdentity(token + "x")
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = tok.AccessTokenToIdentity("not-a-jwt")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestUnknownRoleRejected(t *testing.T) {
	tok := newTestTokenizer(15*time.Minute, 7*24*time.Hour)

	account := &core.Account{ID: "acc-2", Email: "x@y.com", Role: core.Role("SUPERUSER")}
	token, err := tok.AccountToAccessToken(account)
	require.NoError(t, err)

	_, err = tok.AccessTokenToIdentity(token)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
