package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidGuests     = errors.New("guests count must be positive")
	ErrCheckInInPast     = errors.New("check-in date is in the past")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrZeroPrice         = errors.New("total price must be positive")
)

// Booking is the aggregate owning the reservation lifecycle. A booking in
// Pending or Confirmed status is the hold on its listing's date range;
// transitions out of those statuses release the hold implicitly.
//
// Status is only ever changed through the guarded methods below. Repositories
// persist transitions with a compare-and-swap on the previous status, so a
// stale in-memory copy cannot clobber a concurrent writer.
type Booking struct {
	id         uuid.UUID
	listingID  uuid.UUID
	guestID    uuid.UUID
	hostID     uuid.UUID
	stay       StayRange
	guests     int
	totalPrice Money
	status     Status
	createdAt  time.Time
	updatedAt  time.Time
	version    int64
}

func NewBooking(
	listingID, guestID, hostID uuid.UUID,
	stay StayRange,
	guests int,
	totalPrice Money,
	now time.Time,
) (*Booking, error) {
	if guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if stay.StartsBefore(now) {
		return nil, ErrCheckInInPast
	}
	if totalPrice.Cents() <= 0 {
		return nil, ErrZeroPrice
	}

	return &Booking{
		id:         uuid.New(),
		listingID:  listingID,
		guestID:    guestID,
		hostID:     hostID,
		stay:       stay,
		guests:     guests,
		totalPrice: totalPrice,
		status:     StatusPending,
		createdAt:  now,
		updatedAt:  now,
		version:    1,
	}, nil
}

func ReconstructBooking(
	id, listingID, guestID, hostID uuid.UUID,
	stay StayRange,
	guests int,
	totalPrice Money,
	status Status,
	createdAt, updatedAt time.Time,
	version int64,
) *Booking {
	return &Booking{
		id:         id,
		listingID:  listingID,
		guestID:    guestID,
		hostID:     hostID,
		stay:       stay,
		guests:     guests,
		totalPrice: totalPrice,
		status:     status,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		version:    version,
	}
}

// Confirm moves Pending to Confirmed. Callers must have already verified the
// payment settled; the reconciliation usecase is the only mutation path.
func (b *Booking) Confirm(now time.Time) error {
	if b.status != StatusPending {
		return ErrInvalidTransition
	}
	b.status = StatusConfirmed
	b.touch(now)
	return nil
}

// Cancel is legal from Pending (no money captured yet) and from Confirmed
// (refund settled first, enforced by the cancellation coordinator).
func (b *Booking) Cancel(now time.Time) error {
	if b.status != StatusPending && b.status != StatusConfirmed {
		return ErrInvalidTransition
	}
	b.status = StatusCancelled
	b.touch(now)
	return nil
}

// Complete marks a Confirmed stay whose check-out date has passed.
func (b *Booking) Complete(now time.Time) error {
	if b.status != StatusConfirmed {
		return ErrInvalidTransition
	}
	if !b.stay.EndedBy(now) {
		return ErrInvalidTransition
	}
	b.status = StatusCompleted
	b.touch(now)
	return nil
}

func (b *Booking) touch(now time.Time) {
	b.updatedAt = now
	b.version++
}

func (b *Booking) IsPending() bool   { return b.status == StatusPending }
func (b *Booking) IsConfirmed() bool { return b.status == StatusConfirmed }
func (b *Booking) IsCancelled() bool { return b.status == StatusCancelled }

func (b *Booking) ID() uuid.UUID        { return b.id }
func (b *Booking) ListingID() uuid.UUID { return b.listingID }
func (b *Booking) GuestID() uuid.UUID   { return b.guestID }
func (b *Booking) HostID() uuid.UUID    { return b.hostID }
func (b *Booking) Stay() StayRange      { return b.stay }
func (b *Booking) Guests() int          { return b.guests }
func (b *Booking) TotalPrice() Money    { return b.totalPrice }
func (b *Booking) Status() Status       { return b.status }
func (b *Booking) CreatedAt() time.Time { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }
func (b *Booking) Version() int64       { return b.version }
