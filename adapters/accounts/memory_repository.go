package accounts

import (
	"context"
	"sync"

	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/ports"
)

// MemoryRepository is an in-memory implementation of the AccountRepository,
// primarily intended for testing.
type MemoryRepository struct {
	byID map[string]core.Account
	mu   sync.RWMutex
}

// NewMemoryRepository creates a new in-memory account repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]core.Account)}
}

// Create inserts a new account
func (r *MemoryRepository) Create(ctx context.Context, account *core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Email == account.Email {
			return core.ErrEmailTaken
		}
		if account.Phone != "" && existing.Phone == account.Phone {
			return core.ErrPhoneTaken
		}
	}

	r.byID[account.ID] = *account
	return nil
}

// GetByID returns the account with the given id
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*core.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return &account, nil
}

// GetByEmail returns the account with the given email
func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*core.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.byID {
		if account.Email == email {
			return &account, nil
		}
	}
	return nil, core.ErrAccountNotFound
}

// Update persists mutable account fields
func (r *MemoryRepository) Update(ctx context.Context, account *core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[account.ID]; !ok {
		return core.ErrAccountNotFound
	}
	r.byID[account.ID] = *account
	return nil
}

var _ ports.AccountRepository = (*MemoryRepository)(nil)
