package writerepo

import (
	"context"
	"time"

	"stayhub/internal/domain/payment"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/pkg/ptr"

	"github.com/google/uuid"
)

type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

const createPaymentSQL = `
INSERT INTO payments (id, booking_id, amount_cents, currency, processor_intent_id, client_secret, status, last_event_id, paid_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`

func (r *PaymentRepository) Create(ctx context.Context, tx db.DBTX, p *payment.Payment, clientSecret string) (uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, createPaymentSQL,
		p.ID(),
		p.BookingID(),
		p.AmountCents(),
		p.Currency(),
		p.IntentID(),
		clientSecret,
		string(p.Status()),
		nullableString(p.LastEventID()),
		p.PaidAt(),
		p.CreatedAt(),
		p.UpdatedAt(),
	).Scan(&id)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("payment already exists for booking", err, infra.KindDuplicateKey)
		}
		if infra.IsForeignKeyViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("booking does not exist", err, infra.KindForeignKeyViolated)
		}
		return uuid.Nil, infra.WrapRepoErr("failed to create payment", err)
	}
	return id, nil
}

const paymentColumns = `id, booking_id, amount_cents, currency, processor_intent_id, status, last_event_id, paid_at, created_at, updated_at`

const findPaymentByIntentSQL = `
SELECT ` + paymentColumns + `
FROM payments
WHERE processor_intent_id = $1
FOR UPDATE`

func (r *PaymentRepository) FindByIntentIDForUpdate(ctx context.Context, tx db.DBTX, intentID string) (*payment.Payment, error) {
	return scanPayment(tx.QueryRow(ctx, findPaymentByIntentSQL, intentID))
}

const findPaymentByBookingSQL = `
SELECT ` + paymentColumns + `
FROM payments
WHERE booking_id = $1
FOR UPDATE`

func (r *PaymentRepository) FindByBookingIDForUpdate(ctx context.Context, tx db.DBTX, bookingID uuid.UUID) (*payment.Payment, error) {
	return scanPayment(tx.QueryRow(ctx, findPaymentByBookingSQL, bookingID))
}

// last_event_id is only overwritten when the caller supplies one; refund and
// void paths keep the event that settled the payment.
const updatePaymentStatusSQL = `
UPDATE payments
SET status = $3,
    last_event_id = COALESCE(NULLIF($4, ''), last_event_id),
    paid_at = COALESCE($5, paid_at),
    updated_at = now()
WHERE id = $1 AND status = $2`

func (r *PaymentRepository) UpdateStatus(
	ctx context.Context,
	tx db.DBTX,
	id uuid.UUID,
	from, to payment.Status,
	eventID string,
	paidAt *time.Time,
) (bool, error) {
	tag, err := tx.Exec(ctx, updatePaymentStatusSQL, id, string(from), string(to), eventID, paidAt)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return false, infra.WrapRepoErr("processor event already applied", err, infra.KindDuplicateKey)
		}
		return false, infra.WrapRepoErr("failed to update payment status", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var (
		id, bookingID        uuid.UUID
		amountCents          int64
		currency, intentID   string
		status               string
		lastEventID          *string
		paidAt               *time.Time
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &bookingID, &amountCents, &currency, &intentID,
		&status, &lastEventID, &paidAt, &createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load payment", err)
	}

	return payment.ReconstructPayment(
		id, bookingID, amountCents, currency, intentID,
		payment.Status(status), ptr.ValueOr(lastEventID, ""), paidAt, createdAt, updatedAt,
	), nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
