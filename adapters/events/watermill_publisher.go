package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/ridegate/ports"
)

// SessionRevokedEvent announces a revoked refresh token to other
// gateway instances.
type SessionRevokedEvent struct {
	AccountID string `json:"account_id"`
	TokenID   string `json:"token_id"`
	Reason    string `json:"reason"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "ridegate.session.revoked",
	}
}

// PublishSessionRevoked publishes a session revocation event
func (p *WatermillPublisher) PublishSessionRevoked(ctx context.Context, accountID, tokenID, reason string) error {
	event := SessionRevokedEvent{
		AccountID: accountID,
		TokenID:   tokenID,
		Reason:    reason,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(tokenID, payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher discards events. Used when no broker is configured and
// in tests.
type NopPublisher struct{}

// PublishSessionRevoked implements the EventPublisher interface.
func (NopPublisher) PublishSessionRevoked(ctx context.Context, accountID, tokenID, reason string) error {
	return nil
}
