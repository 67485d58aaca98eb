package booking

import (
	"time"

	"github.com/google/uuid"
)

// Domain events consumed by the external notification dispatcher. Published
// fire-and-forget after commit by whichever caller won the status transition,
// so duplicate webhook deliveries never double-emit.

const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

type ConfirmedEvent struct {
	BookingID  uuid.UUID `json:"booking_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	GuestID    uuid.UUID `json:"guest_id"`
	HostID     uuid.UUID `json:"host_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	At         time.Time `json:"at"`
}

type CancelledEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	ListingID uuid.UUID `json:"listing_id"`
	GuestID   uuid.UUID `json:"guest_id"`
	HostID    uuid.UUID `json:"host_id"`
	Reason    string    `json:"reason"`
	Refunded  bool      `json:"refunded"`
	At        time.Time `json:"at"`
}
