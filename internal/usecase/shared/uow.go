package shared

import (
	"context"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/payment"
	"stayhub/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinListingLock: Within plus a listing-scoped advisory lock, serializing
	// hold insertion per listing across processes
	WithinListingLock(ctx context.Context, listingID uuid.UUID, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Bookings() BookingRepository
	Payments() PaymentRepository
	Conflicts() ConflictRepository
	Idempotency() IdempotencyRepository
	Reads() CommandReads
	DB() db.DBTX
}

type CommandReads interface {
	ListingByID(ctx context.Context, id uuid.UUID) (*ListingSnapshot, error)
	BookingByID(ctx context.Context, id uuid.UUID) (*BookingSnapshot, error)
	PaymentByBookingID(ctx context.Context, bookingID uuid.UUID) (*PaymentSnapshot, error)
	IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
}

type ListingSnapshot struct {
	ID                 uuid.UUID
	HostID             uuid.UUID
	PricePerNightCents int64
	Currency           string
}

// Minimal snapshot for command read operations
type BookingSnapshot struct {
	ID         uuid.UUID
	ListingID  uuid.UUID
	GuestID    uuid.UUID
	HostID     uuid.UUID
	CheckIn    time.Time
	CheckOut   time.Time
	Status     booking.Status
	TotalCents int64
	Currency   string
	CreatedAt  time.Time
}

type PaymentSnapshot struct {
	ID           uuid.UUID
	BookingID    uuid.UUID
	IntentID     string
	ClientSecret string
	Status       payment.Status
	AmountCents  int64
	Currency     string
}

type IdempotencyRecord struct {
	Key             uuid.UUID
	UserID          uuid.UUID
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
}

// ReconciliationConflict is the audit row queued when a terminal payment fact
// diverges from a processor report. Never auto-resolved.
type ReconciliationConflict struct {
	IntentID        string
	EventID         string
	Source          string
	ReportedOutcome payment.Outcome
	CurrentStatus   payment.Status
	Detail          string
	OccurredAt      time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, tx db.DBTX, b *booking.Booking) (uuid.UUID, error)
	// CountOverlapping counts Pending/Confirmed bookings whose half-open date
	// range intersects [checkIn, checkOut) on the listing.
	CountOverlapping(ctx context.Context, tx db.DBTX, listingID uuid.UUID, checkIn, checkOut time.Time) (int64, error)
	// UpdateStatus applies a compare-and-swap on the previous status and
	// reports whether this caller won the transition.
	UpdateStatus(ctx context.Context, tx db.DBTX, id uuid.UUID, from, to booking.Status) (bool, error)
	FindByIDForUpdate(ctx context.Context, tx db.DBTX, id uuid.UUID) (*booking.Booking, error)
	FindExpiredPendingIDs(ctx context.Context, tx db.DBTX, olderThan time.Time, limit int32) ([]uuid.UUID, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, tx db.DBTX, p *payment.Payment, clientSecret string) (uuid.UUID, error)
	FindByIntentIDForUpdate(ctx context.Context, tx db.DBTX, intentID string) (*payment.Payment, error)
	FindByBookingIDForUpdate(ctx context.Context, tx db.DBTX, bookingID uuid.UUID) (*payment.Payment, error)
	// UpdateStatus is the CAS guard shared by reconciliation, cancellation and
	// refund paths; eventID records the applied processor event for dedup.
	UpdateStatus(ctx context.Context, tx db.DBTX, id uuid.UUID, from, to payment.Status, eventID string, paidAt *time.Time) (bool, error)
}

type ConflictRepository interface {
	Record(ctx context.Context, tx db.DBTX, c ReconciliationConflict) error
}

type IdempotencyRepository interface {
	TryInsert(ctx context.Context, tx db.DBTX, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) error
	UpdateStatusCompleted(ctx context.Context, tx db.DBTX, key, userID uuid.UUID, responseBodyHash string, resultBookingID uuid.UUID) error
}
