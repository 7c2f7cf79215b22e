package ports

import (
	"context"

	"github.com/layer-3/ridegate/core"
)

// AccountRepository persists accounts for the identity service.
type AccountRepository interface {
	// Create inserts a new account. Returns core.ErrEmailTaken or
	// core.ErrPhoneTaken on uniqueness violations.
	Create(ctx context.Context, account *core.Account) error

	// GetByID returns the account or core.ErrAccountNotFound.
	GetByID(ctx context.Context, id string) (*core.Account, error)

	// GetByEmail returns the account or core.ErrAccountNotFound.
	GetByEmail(ctx context.Context, email string) (*core.Account, error)

	// Update persists mutable account fields.
	Update(ctx context.Context, account *core.Account) error
}
