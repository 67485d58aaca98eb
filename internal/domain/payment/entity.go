package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount     = errors.New("payment amount must be positive")
	ErrIntentRequired    = errors.New("processor intent id required")
	ErrInvalidTransition = errors.New("invalid payment transition")
)

// Payment tracks the processor-side intent 1:1 with its booking. It is
// created once by the intent orchestrator and afterwards mutated only by the
// reconciliation handler and the cancellation coordinator.
//
// Transitions are monotonic: Pending→Succeeded, Pending→Failed,
// Succeeded→Refunded. Nothing else is legal.
type Payment struct {
	id          uuid.UUID
	bookingID   uuid.UUID
	amountCents int64
	currency    string
	intentID    string
	status      Status
	lastEventID string
	paidAt      *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

func NewPayment(
	bookingID uuid.UUID,
	amountCents int64,
	currency string,
	intentID string,
	now time.Time,
) (*Payment, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if intentID == "" {
		return nil, ErrIntentRequired
	}

	return &Payment{
		id:          uuid.New(),
		bookingID:   bookingID,
		amountCents: amountCents,
		currency:    currency,
		intentID:    intentID,
		status:      StatusPending,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func ReconstructPayment(
	id, bookingID uuid.UUID,
	amountCents int64,
	currency string,
	intentID string,
	status Status,
	lastEventID string,
	paidAt *time.Time,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:          id,
		bookingID:   bookingID,
		amountCents: amountCents,
		currency:    currency,
		intentID:    intentID,
		status:      status,
		lastEventID: lastEventID,
		paidAt:      paidAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p *Payment) MarkSucceeded(eventID string, now time.Time) error {
	if p.status != StatusPending {
		return ErrInvalidTransition
	}
	p.status = StatusSucceeded
	p.lastEventID = eventID
	p.paidAt = &now
	p.updatedAt = now
	return nil
}

func (p *Payment) MarkFailed(eventID string, now time.Time) error {
	if p.status != StatusPending {
		return ErrInvalidTransition
	}
	p.status = StatusFailed
	p.lastEventID = eventID
	p.updatedAt = now
	return nil
}

func (p *Payment) MarkRefunded(now time.Time) error {
	if p.status != StatusSucceeded {
		return ErrInvalidTransition
	}
	p.status = StatusRefunded
	p.updatedAt = now
	return nil
}

// SeenEvent reports whether a processor event id was already applied,
// making a redelivery a no-op.
func (p *Payment) SeenEvent(eventID string) bool {
	return eventID != "" && p.lastEventID == eventID
}

func (p *Payment) ID() uuid.UUID        { return p.id }
func (p *Payment) BookingID() uuid.UUID { return p.bookingID }
func (p *Payment) AmountCents() int64   { return p.amountCents }
func (p *Payment) Currency() string     { return p.currency }
func (p *Payment) IntentID() string     { return p.intentID }
func (p *Payment) Status() Status       { return p.status }
func (p *Payment) LastEventID() string  { return p.lastEventID }
func (p *Payment) PaidAt() *time.Time   { return p.paidAt }
func (p *Payment) CreatedAt() time.Time { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time { return p.updatedAt }
