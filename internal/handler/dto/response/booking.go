package response

import (
	"time"

	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingCreatedResponse struct {
	BookingID    uuid.UUID `json:"booking_id"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Status       string    `json:"status"`
	Replayed     bool      `json:"replayed,omitempty"`
}

func FromCreateBookingResult(r *commands.CreateBookingResult) *BookingCreatedResponse {
	return &BookingCreatedResponse{
		BookingID:    r.BookingID,
		ClientSecret: r.ClientSecret,
		Status:       "pending",
		Replayed:     r.IsReplayed,
	}
}

type ReconcileResponse struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingStatus string    `json:"booking_status"`
	PaymentStatus string    `json:"payment_status"`
	Outcome       string    `json:"outcome"`
}

func FromReconcileResult(r *commands.ReconcileResult) *ReconcileResponse {
	return &ReconcileResponse{
		BookingID:     r.BookingID,
		BookingStatus: string(r.BookingStatus),
		PaymentStatus: string(r.PaymentStatus),
		Outcome:       string(r.Outcome),
	}
}

type CancelResponse struct {
	BookingID uuid.UUID `json:"booking_id"`
	Status    string    `json:"status"`
	Refunded  bool      `json:"refunded"`
}

func FromCancelResult(r *commands.CancelResult) *CancelResponse {
	return &CancelResponse{
		BookingID: r.BookingID,
		Status:    "cancelled",
		Refunded:  r.Refunded,
	}
}

type BookingResponse struct {
	ID            uuid.UUID  `json:"id"`
	ListingID     uuid.UUID  `json:"listing_id"`
	ListingTitle  string     `json:"listing_title"`
	CheckIn       string     `json:"check_in"`
	CheckOut      string     `json:"check_out"`
	Guests        int32      `json:"guests"`
	Status        string     `json:"status"`
	TotalCents    int64      `json:"total_cents"`
	Currency      string     `json:"currency"`
	PaymentStatus *string    `json:"payment_status,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func FromBookingView(v *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:            v.ID,
		ListingID:     v.ListingID,
		ListingTitle:  v.ListingTitle,
		CheckIn:       v.CheckIn.Format(time.DateOnly),
		CheckOut:      v.CheckOut.Format(time.DateOnly),
		Guests:        v.Guests,
		Status:        v.Status,
		TotalCents:    v.TotalCents,
		Currency:      v.Currency,
		PaymentStatus: v.PaymentStatus,
		PaidAt:        v.PaidAt,
		CreatedAt:     v.CreatedAt,
	}
}

type BookingListResponse struct {
	ID           uuid.UUID `json:"id"`
	ListingID    uuid.UUID `json:"listing_id"`
	ListingTitle string    `json:"listing_title"`
	CheckIn      string    `json:"check_in"`
	CheckOut     string    `json:"check_out"`
	Status       string    `json:"status"`
	TotalCents   int64     `json:"total_cents"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
}

func FromBookingListItem(item *queries.BookingListItem) *BookingListResponse {
	return &BookingListResponse{
		ID:           item.ID,
		ListingID:    item.ListingID,
		ListingTitle: item.ListingTitle,
		CheckIn:      item.CheckIn.Format(time.DateOnly),
		CheckOut:     item.CheckOut.Format(time.DateOnly),
		Status:       item.Status,
		TotalCents:   item.TotalCents,
		Currency:     item.Currency,
		CreatedAt:    item.CreatedAt,
	}
}
