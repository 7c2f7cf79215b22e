package core

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleDriver   Role = "DRIVER"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole maps a raw string onto the closed role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleDriver:
		return RoleDriver, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrInvalidRole
	}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Account represents a platform account owned by the identity service.
// Accounts are deactivated via IsActive, never hard-deleted.
type Account struct {
	ID           string    // Unique account identifier
	Email        string    // Login email, unique
	Phone        string    // Contact phone, unique when set
	PasswordHash string    // bcrypt hash of the password
	Role         Role      // CUSTOMER, DRIVER or ADMIN
	IsActive     bool      // Deactivated accounts cannot authenticate
	IsVerified   bool      // Email/phone verification state
	CreatedAt    time.Time // When the account was registered
}

// Identity is the authenticated subject attached to a request after
// token verification.
type Identity struct {
	AccountID string    // Account the token was minted for
	Email     string    // Email claim carried by the token
	Role      Role      // Role claim (empty for refresh tokens)
	TokenID   string    // JTI of the presented token
	IssuedAt  time.Time // When the token was minted
	ExpiresAt time.Time // When the token expires
}
