package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/ports"
	_ "modernc.org/sqlite"
)

// The identity layer owns nothing beyond the accounts table.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    phone TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    is_verified INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_phone
    ON accounts(phone) WHERE phone != '';
`

// SQLiteRepository is a SQLite implementation of the AccountRepository.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database and applies the schema.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply accounts schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Create inserts a new account
func (r *SQLiteRepository) Create(ctx context.Context, account *core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, phone, password_hash, role, is_active, is_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Email, account.Phone, account.PasswordHash,
		string(account.Role), account.IsActive, account.IsVerified, account.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "phone") {
				return core.ErrPhoneTaken
			}
			return core.ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID returns the account with the given id
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*core.Account, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail returns the account with the given email
func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*core.Account, error) {
	return r.getBy(ctx, "email", email)
}

func (r *SQLiteRepository) getBy(ctx context.Context, column, value string) (*core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, phone, password_hash, role, is_active, is_verified, created_at
		 FROM accounts WHERE `+column+` = ?`, value)

	var account core.Account
	var role string
	var createdAt time.Time
	err := row.Scan(&account.ID, &account.Email, &account.Phone, &account.PasswordHash,
		&role, &account.IsActive, &account.IsVerified, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	account.Role = core.Role(role)
	account.CreatedAt = createdAt
	return &account, nil
}

// Update persists mutable account fields
func (r *SQLiteRepository) Update(ctx context.Context, account *core.Account) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET phone = ?, password_hash = ?, is_active = ?, is_verified = ?
		 WHERE id = ?`,
		account.Phone, account.PasswordHash, account.IsActive, account.IsVerified, account.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrPhoneTaken
		}
		return fmt.Errorf("failed to update account: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if affected == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ports.AccountRepository = (*SQLiteRepository)(nil)
