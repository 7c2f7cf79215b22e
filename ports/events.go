package ports

import "context"

// EventPublisher notifies other gateway instances about session changes.
type EventPublisher interface {
	// PublishSessionRevoked announces that a refresh token was revoked,
	// either by logout or by rotation.
	PublishSessionRevoked(ctx context.Context, accountID, tokenID, reason string) error
}
