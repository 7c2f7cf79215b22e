package core

import "errors"

var (
	ErrNoToken              = errors.New("no token provided")
	ErrTokenExpired         = errors.New("token has expired")
	ErrTokenRevoked         = errors.New("token has been revoked")
	ErrInvalidToken         = errors.New("invalid token")
	ErrInvalidRole          = errors.New("invalid role")
	ErrInsufficientRole     = errors.New("insufficient role")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountInactive      = errors.New("account is deactivated")
	ErrEmailTaken           = errors.New("email already registered")
	ErrPhoneTaken           = errors.New("phone number already registered")
	ErrAdminRegistration    = errors.New("admin registration is restricted")
	ErrKeyNotFound          = errors.New("key not found")
	ErrStoreOperationFailed = errors.New("store operation failed")
)
