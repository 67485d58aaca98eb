package booking

import (
	"stayhub/internal/pkg/clock"

	"github.com/google/uuid"
)

// ListingSpec is the snapshot of listing data a booking needs at creation
// time. The total price is fixed here and never recomputed from listing data
// afterwards, so later rate changes cannot alter an existing booking.
type ListingSpec struct {
	ID                 uuid.UUID
	HostID             uuid.UUID
	PricePerNightCents int64
	Currency           string
}

type Factory struct {
	Clock clock.Clock
}

func NewFactory(clock clock.Clock) *Factory {
	return &Factory{Clock: clock}
}

func (f *Factory) CreateBooking(
	listing ListingSpec,
	guestID uuid.UUID,
	stay StayRange,
	guests int,
) (*Booking, error) {
	total, err := NewMoney(int64(stay.Nights())*listing.PricePerNightCents, listing.Currency)
	if err != nil {
		return nil, err
	}

	return NewBooking(
		listing.ID,
		guestID,
		listing.HostID,
		stay,
		guests,
		total,
		f.Clock.Now(),
	)
}
