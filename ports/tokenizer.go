package ports

import "github.com/layer-3/ridegate/core"

// Tokenizer converts between accounts and bearer tokens.
// Access and refresh tokens are signed with distinct secrets and carry
// their type in the audience claim, so a token presented to the wrong
// verifier fails on both counts.
type Tokenizer interface {
	// Access token operations
	AccountToAccessToken(account *core.Account) (string, error)
	AccessTokenToIdentity(token string) (*core.Identity, error)

	// Refresh token operations
	AccountToRefreshToken(account *core.Account) (string, error)
	RefreshTokenToIdentity(token string) (*core.Identity, error)
}
