package ports

import (
	"context"
	"time"
)

// Store is the TTL-capable revocation store shared by the credential
// issuer and the edge authenticator. Keys are namespaced by purpose
// ("blacklist:*", "refresh:<accountID>:*"). Single-key operations are
// atomic at the store layer.
type Store interface {
	// Set adds a key with a value and expiration time.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value by key. Returns core.ErrKeyNotFound for
	// missing or expired keys.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key and reports whether it existed. The returned
	// flag is the linearization point for refresh token rotation: of two
	// concurrent rotations only one observes the old allow-list entry.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether a key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
}
