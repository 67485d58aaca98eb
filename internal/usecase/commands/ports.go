package commands

import (
	"context"

	"github.com/google/uuid"
)

// IntentRef is the processor-side handle returned when an intent is created.
// ClientSecret is handed to the paying client; it is stored so that retried
// booking requests can return it without creating a second intent.
type IntentRef struct {
	ID           string
	ClientSecret string
}

// ProcessorClient is the contract required from the external payment
// processor. Webhook deliveries are at-least-once and may arrive duplicated
// or out of order; the reconciliation command absorbs both.
type ProcessorClient interface {
	CreateIntent(ctx context.Context, bookingID uuid.UUID, amountCents int64, currency string) (*IntentRef, error)
	CancelIntent(ctx context.Context, intentID string) error
	// Refund must be idempotent under idempotencyKey: retries after a crash or
	// timeout converge on the single refund the first attempt may have made.
	Refund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) error
}

// EventPublisher delivers domain events to the notification dispatcher.
// Fire-and-forget: a publish failure is logged, never propagated into the
// booking transaction that already committed.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any)
}
