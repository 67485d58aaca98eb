package booking

import (
	"errors"
	"fmt"
	"time"
)

// StayRange is a half-open [CheckIn, CheckOut) date range. Times are
// normalized to midnight UTC so two ranges compare on calendar dates only.
type StayRange struct {
	checkIn  time.Time
	checkOut time.Time
}

func NewStayRange(checkIn, checkOut time.Time) (StayRange, error) {
	in := truncateToDate(checkIn)
	out := truncateToDate(checkOut)

	if !in.Before(out) {
		return StayRange{}, errors.New("check-out must be after check-in")
	}

	return StayRange{checkIn: in, checkOut: out}, nil
}

func (r StayRange) CheckIn() time.Time {
	return r.checkIn
}

func (r StayRange) CheckOut() time.Time {
	return r.checkOut
}

func (r StayRange) Nights() int {
	return int(r.checkOut.Sub(r.checkIn).Hours() / 24)
}

// Overlaps uses the half-open interval rule: back-to-back stays where one
// checks out the day the other checks in do not conflict.
func (r StayRange) Overlaps(other StayRange) bool {
	return r.checkIn.Before(other.checkOut) && other.checkIn.Before(r.checkOut)
}

func (r StayRange) StartsBefore(t time.Time) bool {
	return r.checkIn.Before(truncateToDate(t))
}

func (r StayRange) EndedBy(now time.Time) bool {
	return !truncateToDate(now).Before(r.checkOut)
}

func (r StayRange) String() string {
	return fmt.Sprintf("[%s,%s)", r.checkIn.Format(time.DateOnly), r.checkOut.Format(time.DateOnly))
}

func truncateToDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

type Money struct {
	cents    int64
	currency string
}

func NewMoney(cents int64, currency string) (Money, error) {
	if cents < 0 {
		return Money{}, errors.New("money cannot be negative")
	}
	if currency == "" {
		return Money{}, errors.New("currency required")
	}
	return Money{cents: cents, currency: currency}, nil
}

func (m Money) Cents() int64 {
	return m.cents
}

func (m Money) Currency() string {
	return m.currency
}
