package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	revokeReasonLogout       = "logout"
	revokeReasonRotation     = "rotation"
	revokeReasonDeactivation = "deactivation"

	// minRevocationTTL keeps a revocation record around even for tokens
	// that are already expired, in case of clock skew between instances.
	minRevocationTTL = time.Hour
)

// TokenPair is a freshly minted access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExpiry time.Duration
}

// RegisterParams are the inputs for account registration.
type RegisterParams struct {
	Email    string
	Phone    string
	Password string
	Role     core.Role
}

// AuthService handles account and credential business logic.
type AuthService struct {
	accounts  ports.AccountRepository
	store     ports.Store
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	log       *logrus.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	accounts ports.AccountRepository,
	store ports.Store,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	log *logrus.Logger,
	accessTTL, refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		accounts:   accounts,
		store:      store,
		tokenizer:  tokenizer,
		eventPub:   eventPub,
		log:        log,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Register creates a new account and issues its first token pair.
// Admin accounts cannot self-register.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*core.Account, *TokenPair, error) {
	if !params.Role.Valid() {
		return nil, nil, core.ErrInvalidRole
	}
	if params.Role == core.RoleAdmin {
		return nil, nil, core.ErrAdminRegistration
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &core.Account{
		ID:           uuid.New().String(),
		Email:        params.Email,
		Phone:        params.Phone,
		PasswordHash: string(hash),
		Role:         params.Role,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

// Login verifies the credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*core.Account, *TokenPair, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			// Same error as a wrong password, existence is not revealed.
			return nil, nil, core.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !account.IsActive {
		return nil, nil, core.ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, core.ErrInvalidCredentials
	}

	pair, err := s.issueTokens(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

// Refresh rotates the refresh token and issues a new token pair. A refresh
// token is valid iff its signature verifies, it is not blacklisted and its
// allow-list entry still exists; rotation is single-use.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	identity, err := s.tokenizer.RefreshTokenToIdentity(refreshToken)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.store.Exists(ctx, blacklistKey(refreshToken))
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, core.ErrTokenRevoked
	}

	registered, err := s.store.Exists(ctx, refreshKey(identity.AccountID, refreshToken))
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, core.ErrTokenRevoked
	}

	account, err := s.accounts.GetByID(ctx, identity.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, core.ErrAccountInactive
	}

	pair, err := s.mintPair(account)
	if err != nil {
		return nil, err
	}

	// Revoke-then-register: a crash between these steps leaves the old
	// token dead and no new one registered, so the caller re-authenticates.
	if err := s.store.Set(ctx, blacklistKey(refreshToken), "1", s.remainingTTL(identity.ExpiresAt)); err != nil {
		return nil, err
	}

	// Linearization point: of two concurrent rotations of the same token,
	// only one observes the allow-list entry; the loser fails closed.
	deleted, err := s.store.Delete(ctx, refreshKey(identity.AccountID, refreshToken))
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, core.ErrTokenRevoked
	}

	if err := s.store.Set(ctx, refreshKey(account.ID, pair.RefreshToken), "1", s.refreshTTL); err != nil {
		return nil, err
	}

	s.publishRevoked(ctx, identity.AccountID, identity.TokenID, revokeReasonRotation)

	return pair, nil
}

// Logout revokes the presented tokens. The access token is blacklisted for
// its remaining lifetime; the refresh token loses its allow-list entry and
// is blacklisted as well.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessIdentity, err := s.tokenizer.AccessTokenToIdentity(accessToken); err == nil {
		key := blacklistKey(accessToken)
		if err := s.store.Set(ctx, key, "1", s.remainingTTL(accessIdentity.ExpiresAt)); err != nil {
			return err
		}
	}

	if refreshToken == "" {
		return nil
	}

	identity, err := s.tokenizer.RefreshTokenToIdentity(refreshToken)
	if err != nil {
		// Expired refresh tokens are already unusable, logout still succeeds.
		if errors.Is(err, core.ErrTokenExpired) {
			return nil
		}
		return err
	}

	if _, err := s.store.Delete(ctx, refreshKey(identity.AccountID, refreshToken)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, blacklistKey(refreshToken), "1", s.remainingTTL(identity.ExpiresAt)); err != nil {
		return err
	}

	s.publishRevoked(ctx, identity.AccountID, identity.TokenID, revokeReasonLogout)

	return nil
}

// VerifyAccess validates an access token for a request: signature and
// expiry via the tokenizer, then the blacklist so logout invalidates
// access tokens immediately rather than after natural expiry.
func (s *AuthService) VerifyAccess(ctx context.Context, accessToken string) (*core.Identity, error) {
	identity, err := s.tokenizer.AccessTokenToIdentity(accessToken)
	if err != nil {
		return nil, err
	}

	blacklisted, err := s.store.Exists(ctx, blacklistKey(accessToken))
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, core.ErrTokenRevoked
	}

	return identity, nil
}

// Deactivate marks the account inactive and revokes the presented
// access token immediately. The record is kept, never hard-deleted;
// login and refresh are rejected until the account is reactivated out
// of band. Outstanding refresh tokens stay allow-listed but rotation
// fails on the inactive check.
func (s *AuthService) Deactivate(ctx context.Context, accountID, accessToken string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	account.IsActive = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	identity, err := s.tokenizer.AccessTokenToIdentity(accessToken)
	if err != nil {
		return nil
	}
	if err := s.store.Set(ctx, blacklistKey(accessToken), "1", s.remainingTTL(identity.ExpiresAt)); err != nil {
		return err
	}
	s.publishRevoked(ctx, accountID, identity.TokenID, revokeReasonDeactivation)

	return nil
}

// Profile returns the account for the given id.
func (s *AuthService) Profile(ctx context.Context, accountID string) (*core.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

// UpdateProfile updates the mutable profile fields. Email, password and
// role are immutable through this path.
func (s *AuthService) UpdateProfile(ctx context.Context, accountID, phone string) (*core.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	account.Phone = phone
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ChangePassword verifies the current password before setting a new one.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, current, next string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(current)); err != nil {
		return core.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account.PasswordHash = string(hash)
	return s.accounts.Update(ctx, account)
}

// issueTokens mints a pair and registers the refresh token in the allow-list.
func (s *AuthService) issueTokens(ctx context.Context, account *core.Account) (*TokenPair, error) {
	pair, err := s.mintPair(account)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, refreshKey(account.ID, pair.RefreshToken), "1", s.refreshTTL); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) mintPair(account *core.Account) (*TokenPair, error) {
	accessToken, err := s.tokenizer.AccountToAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.AccountToRefreshToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExpiry: s.accessTTL,
	}, nil
}

// publishRevoked notifies other instances. The revocation is already
// durable in the store, so publish failures only get logged.
func (s *AuthService) publishRevoked(ctx context.Context, accountID, tokenID, reason string) {
	if err := s.eventPub.PublishSessionRevoked(ctx, accountID, tokenID, reason); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"account_id": accountID,
			"reason":     reason,
		}).Warn("failed to publish session revocation event")
	}
}

func (s *AuthService) remainingTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl < minRevocationTTL {
		return minRevocationTTL
	}
	return ttl
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

func refreshKey(accountID, token string) string {
	return "refresh:" + accountID + ":" + token
}
