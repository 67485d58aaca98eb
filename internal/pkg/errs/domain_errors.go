package errs

import "errors"

// Domain-specific sentinel errors for CQRS usecase layers
var (
	// Listing errors
	ErrListingNotFound = errors.New("listing not found")

	// Booking errors
	ErrBookingNotFound   = errors.New("booking not found")
	ErrOverlapConflict   = errors.New("dates unavailable")
	ErrInvalidStayRange  = errors.New("invalid stay range")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrDuplicateBooking  = errors.New("duplicate booking request")

	// Payment errors
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrRefundFailed         = errors.New("refund failed")

	// Reconciliation errors
	ErrMismatch = errors.New("reconciliation mismatch")

	// Cancellation errors
	ErrTooLateToCancel = errors.New("too late to cancel")
	ErrWrongState      = errors.New("wrong booking state")
	ErrNotOwner        = errors.New("not booking owner")

	// Idempotency errors
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyInProgress  = errors.New("idempotency in progress")
	ErrIdempotencyCheckFailed = errors.New("idempotency check failed")

	// Validation errors
	ErrDomainValidation = errors.New("domain validation error")

	// Operation errors
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)
