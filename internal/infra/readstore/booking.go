package readstore

import (
	"context"

	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(dbtx db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: dbtx}
}

const bookingViewSQL = `
SELECT b.id, b.listing_id, l.title, b.guest_id, b.host_id,
       b.check_in, b.check_out, b.guests, b.status,
       b.total_cents, b.currency,
       p.status AS payment_status, p.paid_at,
       b.created_at, b.updated_at
FROM bookings b
JOIN listings l ON l.id = b.listing_id
LEFT JOIN payments p ON p.booking_id = b.id
WHERE b.id = $1`

func (s *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	v := &queries.BookingView{}
	err := s.db.QueryRow(ctx, bookingViewSQL, id).Scan(
		&v.ID, &v.ListingID, &v.ListingTitle, &v.GuestID, &v.HostID,
		&v.CheckIn, &v.CheckOut, &v.Guests, &v.Status,
		&v.TotalCents, &v.Currency,
		&v.PaymentStatus, &v.PaidAt,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load booking view", err)
	}
	return v, nil
}

const bookingListSQL = `
SELECT b.id, b.listing_id, l.title, b.check_in, b.check_out,
       b.status, b.total_cents, b.currency, b.created_at
FROM bookings b
JOIN listings l ON l.id = b.listing_id
WHERE b.guest_id = $1
ORDER BY b.created_at DESC
LIMIT $2 OFFSET $3`

func (s *BookingReadStore) FindByGuestID(ctx context.Context, guestID uuid.UUID, limit, offset int32) ([]*queries.BookingListItem, error) {
	rows, err := s.db.Query(ctx, bookingListSQL, guestID, limit, offset)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings", err)
	}
	defer rows.Close()

	items := make([]*queries.BookingListItem, 0)
	for rows.Next() {
		item := &queries.BookingListItem{}
		if err := rows.Scan(
			&item.ID, &item.ListingID, &item.ListingTitle,
			&item.CheckIn, &item.CheckOut,
			&item.Status, &item.TotalCents, &item.Currency, &item.CreatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking list item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read booking list", err)
	}
	return items, nil
}
