package request

import (
	"time"
)

type CreateBookingRequest struct {
	ListingID string `json:"listing_id" binding:"required,uuid"`
	CheckIn   string `json:"check_in" binding:"required"`
	CheckOut  string `json:"check_out" binding:"required"`
	Guests    int    `json:"guests" binding:"required,min=1"`
}

// ParseDates accepts calendar dates only; stays are date-granular.
func (r *CreateBookingRequest) ParseDates() (checkIn, checkOut time.Time, err error) {
	checkIn, err = time.Parse(time.DateOnly, r.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err = time.Parse(time.DateOnly, r.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return checkIn, checkOut, nil
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
