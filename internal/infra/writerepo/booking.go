package writerepo

import (
	"context"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

const createBookingSQL = `
INSERT INTO bookings (id, listing_id, guest_id, host_id, check_in, check_out, guests, total_cents, currency, status, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`

func (r *BookingRepository) Create(ctx context.Context, tx db.DBTX, b *booking.Booking) (uuid.UUID, error) {
	stay := b.Stay()
	total := b.TotalPrice()

	var id uuid.UUID
	err := tx.QueryRow(ctx, createBookingSQL,
		b.ID(),
		b.ListingID(),
		b.GuestID(),
		b.HostID(),
		stay.CheckIn(),
		stay.CheckOut(),
		int32(b.Guests()),
		total.Cents(),
		total.Currency(),
		string(b.Status()),
		b.CreatedAt(),
		b.UpdatedAt(),
		int32(b.Version()),
	).Scan(&id)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("booking already exists", err, infra.KindDuplicateKey)
		}
		if infra.IsExclusionViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("booking dates conflict", err, infra.KindConflict)
		}
		if infra.IsForeignKeyViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("listing or guest does not exist", err, infra.KindForeignKeyViolated)
		}
		return uuid.Nil, infra.WrapRepoErr("failed to create booking", err)
	}
	return id, nil
}

const countOverlappingSQL = `
SELECT COUNT(*)
FROM bookings
WHERE listing_id = $1
  AND status IN ('pending', 'confirmed')
  AND check_in < $3
  AND check_out > $2`

func (r *BookingRepository) CountOverlapping(ctx context.Context, tx db.DBTX, listingID uuid.UUID, checkIn, checkOut time.Time) (int64, error) {
	var count int64
	if err := tx.QueryRow(ctx, countOverlappingSQL, listingID, checkIn, checkOut).Scan(&count); err != nil {
		return 0, infra.WrapRepoErr("failed to count overlapping bookings", err)
	}
	return count, nil
}

const updateBookingStatusSQL = `
UPDATE bookings
SET status = $3, updated_at = now(), version = version + 1
WHERE id = $1 AND status = $2`

func (r *BookingRepository) UpdateStatus(ctx context.Context, tx db.DBTX, id uuid.UUID, from, to booking.Status) (bool, error) {
	tag, err := tx.Exec(ctx, updateBookingStatusSQL, id, string(from), string(to))
	if err != nil {
		return false, infra.WrapRepoErr("failed to update booking status", err)
	}
	return tag.RowsAffected() == 1, nil
}

const findBookingForUpdateSQL = `
SELECT id, listing_id, guest_id, host_id, check_in, check_out, guests, total_cents, currency, status, created_at, updated_at, version
FROM bookings
WHERE id = $1
FOR UPDATE`

func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, tx db.DBTX, id uuid.UUID) (*booking.Booking, error) {
	row := tx.QueryRow(ctx, findBookingForUpdateSQL, id)
	return scanBooking(row)
}

const findExpiredPendingSQL = `
SELECT id
FROM bookings
WHERE status = 'pending' AND created_at < $1
ORDER BY created_at
LIMIT $2`

func (r *BookingRepository) FindExpiredPendingIDs(ctx context.Context, tx db.DBTX, olderThan time.Time, limit int32) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, findExpiredPendingSQL, olderThan, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan for expired holds", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired hold id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read expired hold ids", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*booking.Booking, error) {
	var (
		id, listingID, guestID, hostID          uuid.UUID
		checkIn, checkOut, createdAt, updatedAt time.Time
		guests                                  int32
		version                                 int64
		totalCents                              int64
		currency, status                        string
	)
	err := row.Scan(&id, &listingID, &guestID, &hostID, &checkIn, &checkOut,
		&guests, &totalCents, &currency, &status, &createdAt, &updatedAt, &version)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load booking", err)
	}

	stay, err := booking.NewStayRange(checkIn, checkOut)
	if err != nil {
		return nil, infra.WrapRepoErr("stored booking has invalid stay range", err)
	}
	total, err := booking.NewMoney(totalCents, currency)
	if err != nil {
		return nil, infra.WrapRepoErr("stored booking has invalid price", err)
	}

	return booking.ReconstructBooking(
		id, listingID, guestID, hostID,
		stay, int(guests), total,
		booking.Status(status),
		createdAt, updatedAt, version,
	), nil
}
