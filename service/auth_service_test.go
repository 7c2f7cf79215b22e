package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/layer-3/ridegate/adapters/accounts"
	"github.com/layer-3/ridegate/adapters/events"
	"github.com/layer-3/ridegate/adapters/store"
	"github.com/layer-3/ridegate/adapters/tokenizer"
	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/ports"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDeps struct {
	service   *AuthService
	store     ports.Store
	tokenizer ports.Tokenizer
	accounts  *accounts.MemoryRepository
}

func newTestService(t *testing.T) testDeps {
	t.Helper()

	revocations := store.NewMemoryStore(time.Minute)
	t.Cleanup(revocations.Close)

	repo := accounts.NewMemoryRepository()
	tok := tokenizer.NewJWTTokenizer(
		[]byte("access-secret"), []byte("refresh-secret"),
		15*time.Minute, 7*24*time.Hour,
	)

	log := logrus.New()
	svc := NewAuthService(repo, revocations, tok, events.NopPublisher{}, log, 15*time.Minute, 7*24*time.Hour)

	return testDeps{service: svc, store: revocations, tokenizer: tok, accounts: repo}
}

func register(t *testing.T, deps testDeps, email string, role core.Role) (*core.Account, *TokenPair) {
	t.Helper()
	account, pair, err := deps.service.Register(context.Background(), RegisterParams{
		Email:    email,
		Password: "Password123",
		Role:     role,
	})
	require.NoError(t, err)
	return account, pair
}

func TestRegisterIssuesTokensAndRegistersRefresh(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()

	account, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	identity, err := deps.tokenizer.AccessTokenToIdentity(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, identity.AccountID)
	assert.Equal(t, core.RoleCustomer, identity.Role)

	registered, err := deps.store.Exists(ctx, refreshKey(account.ID, pair.RefreshToken))
	require.NoError(t, err)
	assert.True(t, registered, "refresh token must be allow-listed")
}

func TestRegisterRejectsAdmin(t *testing.T) {
	deps := newTestService(t)

	_, _, err := deps.service.Register(context.Background(), RegisterParams{
		Email:    "root@b.com",
		Password: "Password123",
		Role:     core.RoleAdmin,
	})
	assert.ErrorIs(t, err, core.ErrAdminRegistration)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	deps := newTestService(t)
	register(t, deps, "a@b.com", core.RoleCustomer)

	_, _, err := deps.service.Register(context.Background(), RegisterParams{
		Email:    "a@b.com",
		Password: "Password123",
		Role:     core.RoleCustomer,
	})
	assert.ErrorIs(t, err, core.ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, _ := register(t, deps, "a@b.com", core.RoleDriver)

	got, pair, err := deps.service.Login(ctx, "a@b.com", "Password123")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	identity, err := deps.tokenizer.AccessTokenToIdentity(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, identity.AccountID)
	assert.Equal(t, core.RoleDriver, identity.Role)

	registered, err := deps.store.Exists(ctx, refreshKey(account.ID, pair.RefreshToken))
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestLoginWrongPassword(t *testing.T) {
	deps := newTestService(t)
	register(t, deps, "a@b.com", core.RoleCustomer)

	_, _, err := deps.service.Login(context.Background(), "a@b.com", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestLoginUnknownEmailIndistinguishable(t *testing.T) {
	deps := newTestService(t)

	_, _, err := deps.service.Login(context.Background(), "ghost@b.com", "Password123")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, _ := register(t, deps, "a@b.com", core.RoleCustomer)

	account.IsActive = false
	require.NoError(t, deps.accounts.Update(ctx, account))

	_, _, err := deps.service.Login(ctx, "a@b.com", "Password123")
	assert.ErrorIs(t, err, core.ErrAccountInactive)
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	rotated, err := deps.service.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	registered, err := deps.store.Exists(ctx, refreshKey(account.ID, rotated.RefreshToken))
	require.NoError(t, err)
	assert.True(t, registered, "new refresh token must be allow-listed")

	// Replaying the rotated token fails closed.
	_, err = deps.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	// The new token still works.
	_, err = deps.service.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshConcurrentRotationsYieldOneSuccess(t *testing.T) {
	deps := newTestService(t)
	_, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	const workers = 16
	var wg sync.WaitGroup
	var successes atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := deps.service.Refresh(context.Background(), pair.RefreshToken); err == nil {
				successes.Add(1)
			} else {
				assert.ErrorIs(t, err, core.ErrTokenRevoked)
			}
		}()
	}
	wg.Wait()

	// The allow-list delete is the linearization point: of all racing
	// rotations exactly one observes the entry and mints a new pair.
	assert.Equal(t, int32(1), successes.Load())
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	deps := newTestService(t)
	_, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	_, err := deps.service.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestRefreshInactiveAccount(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	account.IsActive = false
	require.NoError(t, deps.accounts.Update(ctx, account))

	_, err := deps.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrAccountInactive)
}

func TestRefreshUnregisteredToken(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	// Simulate a revocation that removed the allow-list entry.
	_, err := deps.store.Delete(ctx, refreshKey(account.ID, pair.RefreshToken))
	require.NoError(t, err)

	_, err = deps.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	_, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	require.NoError(t, deps.service.Logout(ctx, pair.AccessToken, pair.RefreshToken))

	_, err := deps.service.VerifyAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, err = deps.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestLogoutWithoutRefreshToken(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	_, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	require.NoError(t, deps.service.Logout(ctx, pair.AccessToken, ""))

	_, err := deps.service.VerifyAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)
}

func TestVerifyAccess(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	identity, err := deps.service.VerifyAccess(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, identity.AccountID)
	assert.Equal(t, core.RoleCustomer, identity.Role)

	_, err = deps.service.VerifyAccess(ctx, "garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestChangePassword(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, _ := register(t, deps, "a@b.com", core.RoleCustomer)

	err := deps.service.ChangePassword(ctx, account.ID, "wrong", "NewPassword1")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	require.NoError(t, deps.service.ChangePassword(ctx, account.ID, "Password123", "NewPassword1"))

	_, _, err = deps.service.Login(ctx, "a@b.com", "NewPassword1")
	assert.NoError(t, err)

	_, _, err = deps.service.Login(ctx, "a@b.com", "Password123")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
}

func TestDeactivate(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, pair := register(t, deps, "a@b.com", core.RoleCustomer)

	require.NoError(t, deps.service.Deactivate(ctx, account.ID, pair.AccessToken))

	// The presented access token dies immediately, not at natural expiry.
	_, err := deps.service.VerifyAccess(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, core.ErrTokenRevoked)

	_, _, err = deps.service.Login(ctx, "a@b.com", "Password123")
	assert.ErrorIs(t, err, core.ErrAccountInactive)

	_, err = deps.service.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, core.ErrAccountInactive)

	// The record survives deactivation.
	kept, err := deps.service.Profile(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsActive)
}

func TestUpdateProfile(t *testing.T) {
	deps := newTestService(t)
	ctx := context.Background()
	account, _ := register(t, deps, "a@b.com", core.RoleCustomer)

	updated, err := deps.service.UpdateProfile(ctx, account.ID, "+777")
	require.NoError(t, err)
	assert.Equal(t, "+777", updated.Phone)
	assert.Equal(t, account.Email, updated.Email)
}
