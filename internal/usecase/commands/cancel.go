package commands

import (
	"context"
	"log/slog"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/payment"
	"stayhub/internal/infra"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

type Actor struct {
	ID   uuid.UUID
	Role string
}

// CancelPolicy gates who may cancel and until when. The business rules live
// outside this component; DefaultCancelPolicy is the ops-configurable stand-in.
type CancelPolicy interface {
	Check(b *shared.BookingSnapshot, actor Actor, now time.Time) error
}

type CancelResult struct {
	BookingID uuid.UUID
	Refunded  bool
}

type CancelCommands interface {
	Cancel(ctx context.Context, bookingID uuid.UUID, actor Actor, reason string) (*CancelResult, error)
}

type RefundRetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
}

type cancelCommandsImpl struct {
	uow       shared.UnitOfWork
	processor ProcessorClient
	publisher EventPublisher
	policy    CancelPolicy
	retry     RefundRetryConfig
	clock     clock.Clock
}

func NewCancelCommands(
	uow shared.UnitOfWork,
	processor ProcessorClient,
	publisher EventPublisher,
	policy CancelPolicy,
	retry RefundRetryConfig,
	clock clock.Clock,
) CancelCommands {
	return &cancelCommandsImpl{
		uow:       uow,
		processor: processor,
		publisher: publisher,
		policy:    policy,
		retry:     retry,
		clock:     clock,
	}
}

// Cancel unwinds a booking and its payment together.
//
// Pending bookings cancel immediately; any pending intent is voided
// best-effort afterwards. Confirmed bookings refund first: the booking stays
// Confirmed (and the hold stays on the dates) until the processor confirms
// the refund, so money is never unreturned while the dates reopen.
func (c *cancelCommandsImpl) Cancel(
	ctx context.Context,
	bookingID uuid.UUID,
	actor Actor,
	reason string,
) (*CancelResult, error) {
	snap, err := c.uow.CommandReads().BookingByID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrBookingNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	if err := c.policy.Check(snap, actor, c.clock.Now()); err != nil {
		return nil, err
	}

	switch snap.Status {
	case booking.StatusPending:
		return c.cancelPending(ctx, snap, reason)
	case booking.StatusConfirmed:
		return c.cancelConfirmed(ctx, snap, reason)
	default:
		return nil, errs.ErrWrongState
	}
}

func (c *cancelCommandsImpl) cancelPending(
	ctx context.Context,
	snap *shared.BookingSnapshot,
	reason string,
) (*CancelResult, error) {
	var voidIntentID string

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		voidIntentID = ""

		won, err := tx.Bookings().UpdateStatus(ctx, tx.DB(), snap.ID, booking.StatusPending, booking.StatusCancelled)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !won {
			// A reconcile or reaper got there first; benign no-op for us.
			return errs.ErrInvalidTransition
		}

		pay, err := tx.Payments().FindByBookingIDForUpdate(ctx, tx.DB(), snap.ID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil // no intent was ever created
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if pay.Status() == payment.StatusPending {
			if _, err := tx.Payments().UpdateStatus(
				ctx, tx.DB(), pay.ID(), payment.StatusPending, payment.StatusFailed, "", nil); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			voidIntentID = pay.IntentID()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort: a failure to void leaves an unpayable intent at the
	// processor, which expires on its own. Never blocks the cancellation.
	if voidIntentID != "" {
		if err := c.processor.CancelIntent(ctx, voidIntentID); err != nil {
			slog.Warn("failed to void processor intent for cancelled booking",
				"booking_id", snap.ID,
				"intent_id", voidIntentID,
				"error", err.Error())
		}
	}

	c.publishCancelled(ctx, snap, reason, false)
	return &CancelResult{BookingID: snap.ID, Refunded: false}, nil
}

func (c *cancelCommandsImpl) cancelConfirmed(
	ctx context.Context,
	snap *shared.BookingSnapshot,
	reason string,
) (*CancelResult, error) {
	pay, err := c.uow.CommandReads().PaymentByBookingID(ctx, snap.ID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// Confirmed without a payment row violates the core invariant.
			return nil, errs.Mark(errs.New("confirmed booking has no payment"), errs.ErrMismatch)
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	// Keyed by the payment row so a crash-and-retry, or a concurrent cancel,
	// can only ever produce one refund at the processor.
	refundKey := "refund-" + pay.ID.String()
	if err := c.refundWithRetry(ctx, pay.IntentID, pay.AmountCents, refundKey); err != nil {
		// Booking stays Confirmed: correctness over latency. Caller retries.
		return nil, errs.Mark(err, errs.ErrRefundFailed)
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		won, err := tx.Payments().UpdateStatus(
			ctx, tx.DB(), pay.ID, payment.StatusSucceeded, payment.StatusRefunded, "", nil)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if !won {
			// Already refunded by a concurrent cancel; fall through to the
			// booking CAS so both rows converge.
			slog.Info("payment already refunded", "payment_id", pay.ID)
		}

		if _, err := tx.Bookings().UpdateStatus(
			ctx, tx.DB(), snap.ID, booking.StatusConfirmed, booking.StatusCancelled); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.publishCancelled(ctx, snap, reason, true)
	return &CancelResult{BookingID: snap.ID, Refunded: true}, nil
}

func (c *cancelCommandsImpl) refundWithRetry(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) error {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := c.retry.BackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = c.processor.Refund(ctx, intentID, amountCents, idempotencyKey)
		if lastErr == nil {
			return nil
		}
		slog.Warn("refund attempt failed",
			"intent_id", intentID,
			"attempt", attempt+1,
			"error", lastErr.Error())
	}
	return lastErr
}

func (c *cancelCommandsImpl) publishCancelled(ctx context.Context, snap *shared.BookingSnapshot, reason string, refunded bool) {
	c.publisher.Publish(ctx, booking.EventBookingCancelled, snap.ID.String(), booking.CancelledEvent{
		BookingID: snap.ID,
		ListingID: snap.ListingID,
		GuestID:   snap.GuestID,
		HostID:    snap.HostID,
		Reason:    reason,
		Refunded:  refunded,
		At:        c.clock.Now(),
	})
}

// DefaultCancelPolicy allows the guest or host of the booking to cancel, and
// rejects guest cancellations of confirmed stays inside the cutoff window.
type DefaultCancelPolicy struct {
	Cutoff time.Duration
}

func NewDefaultCancelPolicy(cutoff time.Duration) *DefaultCancelPolicy {
	return &DefaultCancelPolicy{Cutoff: cutoff}
}

func (p *DefaultCancelPolicy) Check(b *shared.BookingSnapshot, actor Actor, now time.Time) error {
	if actor.ID != b.GuestID && actor.ID != b.HostID {
		return errs.ErrNotOwner
	}
	if b.Status == booking.StatusConfirmed && actor.ID == b.GuestID {
		// Closed at the boundary: reaching the cutoff instant is already too late.
		if !now.Before(b.CheckIn.Add(-p.Cutoff)) {
			return errs.ErrTooLateToCancel
		}
	}
	return nil
}
