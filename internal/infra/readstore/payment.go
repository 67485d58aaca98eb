package readstore

import (
	"context"

	"stayhub/internal/domain/payment"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

type PaymentReadStore struct {
	db db.DBTX
}

func NewPaymentReadStore(dbtx db.DBTX) *PaymentReadStore {
	return &PaymentReadStore{db: dbtx}
}

const paymentSnapshotSQL = `
SELECT id, booking_id, processor_intent_id, client_secret, status, amount_cents, currency
FROM payments
WHERE booking_id = $1`

func (s *PaymentReadStore) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*shared.PaymentSnapshot, error) {
	snap := &shared.PaymentSnapshot{}
	var status string
	err := s.db.QueryRow(ctx, paymentSnapshotSQL, bookingID).Scan(
		&snap.ID, &snap.BookingID, &snap.IntentID, &snap.ClientSecret,
		&status, &snap.AmountCents, &snap.Currency,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load payment snapshot", err)
	}
	snap.Status = payment.Status(status)
	return snap, nil
}
