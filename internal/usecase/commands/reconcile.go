package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/payment"
	"stayhub/internal/infra"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReconcileSource string

const (
	SourceClient  ReconcileSource = "client"
	SourceWebhook ReconcileSource = "webhook"
)

type ReconcileOutcome string

const (
	OutcomeApplied        ReconcileOutcome = "applied"
	OutcomeAlreadyApplied ReconcileOutcome = "already_applied"
)

type ReconcileInput struct {
	Source   ReconcileSource
	IntentID string
	// EventID is the processor event id for webhook deliveries. Client
	// confirms carry no event id; one is synthesized from the intent so the
	// dedup column stays meaningful.
	EventID string
	Outcome payment.Outcome
}

type ReconcileResult struct {
	Outcome       ReconcileOutcome
	BookingID     uuid.UUID
	BookingStatus booking.Status
	PaymentStatus payment.Status
}

type ReconcileCommands interface {
	Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error)
	// ConfirmFromClient is the client-side confirmation path: the guest reports
	// their payment went through. It funnels into the same merge point the
	// webhook uses.
	ConfirmFromClient(ctx context.Context, bookingID, actorID uuid.UUID) (*ReconcileResult, error)
}

type reconcileCommandsImpl struct {
	uow       shared.UnitOfWork
	publisher EventPublisher
	clock     clock.Clock
}

func NewReconcileCommands(
	uow shared.UnitOfWork,
	publisher EventPublisher,
	clock clock.Clock,
) ReconcileCommands {
	return &reconcileCommandsImpl{
		uow:       uow,
		publisher: publisher,
		clock:     clock,
	}
}

// errLateConfirm escapes the transaction when a success report arrives for a
// booking that already left Pending (e.g. reaped). The payment mutation rolls
// back and the divergence is recorded as a conflict instead.
var errLateConfirm = errs.New("late success report for non-pending booking")

// Reconcile is the single merge point for the two racing confirmation
// signals. Both the client confirm call and the processor webhook funnel
// through the same row lock and compare-and-swap, so the result is identical
// regardless of delivery order or duplication: exactly one caller applies the
// transition, every other caller observes AlreadyApplied.
func (c *reconcileCommandsImpl) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	eventID := in.EventID
	if eventID == "" {
		eventID = string(in.Source) + ":" + in.IntentID
	}

	var (
		result    *ReconcileResult
		confirmed *shared.BookingSnapshot
		cancelled *shared.BookingSnapshot
	)

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		result, confirmed, cancelled = nil, nil, nil

		pay, err := tx.Payments().FindByIntentIDForUpdate(ctx, tx.DB(), in.IntentID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				// Never create a Payment here: an unknown intent is a hard error.
				return errs.Mark(err, errs.ErrMismatch)
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		if pay.SeenEvent(eventID) {
			result = c.noopResult(ctx, tx, pay)
			return nil
		}

		if pay.Status().IsTerminal() {
			if pay.Status().Agrees(in.Outcome) {
				result = c.noopResult(ctx, tx, pay)
				return nil
			}
			if err := c.recordConflict(ctx, tx, pay, in, eventID); err != nil {
				return err
			}
			return errs.Mark(
				errs.New(fmt.Sprintf("terminal payment %s disagrees with reported %s", pay.Status(), in.Outcome)),
				errs.ErrMismatch)
		}

		switch in.Outcome {
		case payment.OutcomeSucceeded:
			snap, err := c.applySuccess(ctx, tx, pay, eventID)
			if err != nil {
				return err
			}
			confirmed = snap
		case payment.OutcomeFailed:
			snap, err := c.applyFailure(ctx, tx, pay, eventID)
			if err != nil {
				return err
			}
			cancelled = snap
		default:
			return errs.Mark(errs.New("unknown outcome "+string(in.Outcome)), errs.ErrMismatch)
		}

		result = &ReconcileResult{
			Outcome:       OutcomeApplied,
			BookingID:     pay.BookingID(),
			PaymentStatus: pay.Status(),
		}
		if confirmed != nil {
			result.BookingStatus = booking.StatusConfirmed
		} else {
			result.BookingStatus = booking.StatusCancelled
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, errLateConfirm) {
			return nil, c.handleLateConfirm(ctx, in, eventID)
		}
		return nil, err
	}

	// Only the CAS winner reaches here with an event to publish, so duplicate
	// deliveries cannot double-emit notifications.
	if confirmed != nil {
		c.publisher.Publish(ctx, booking.EventBookingConfirmed, confirmed.ID.String(), booking.ConfirmedEvent{
			BookingID:  confirmed.ID,
			ListingID:  confirmed.ListingID,
			GuestID:    confirmed.GuestID,
			HostID:     confirmed.HostID,
			CheckIn:    confirmed.CheckIn,
			CheckOut:   confirmed.CheckOut,
			TotalCents: confirmed.TotalCents,
			Currency:   confirmed.Currency,
			At:         c.clock.Now(),
		})
	}
	if cancelled != nil {
		c.publisher.Publish(ctx, booking.EventBookingCancelled, cancelled.ID.String(), booking.CancelledEvent{
			BookingID: cancelled.ID,
			ListingID: cancelled.ListingID,
			GuestID:   cancelled.GuestID,
			HostID:    cancelled.HostID,
			Reason:    "payment failed",
			Refunded:  false,
			At:        c.clock.Now(),
		})
	}

	return result, nil
}

func (c *reconcileCommandsImpl) ConfirmFromClient(ctx context.Context, bookingID, actorID uuid.UUID) (*ReconcileResult, error) {
	snap, err := c.uow.CommandReads().BookingByID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrBookingNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if snap.GuestID != actorID {
		return nil, errs.ErrNotOwner
	}

	pay, err := c.uow.CommandReads().PaymentByBookingID(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrPaymentNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	return c.Reconcile(ctx, ReconcileInput{
		Source:   SourceClient,
		IntentID: pay.IntentID,
		Outcome:  payment.OutcomeSucceeded,
	})
}

// applySuccess transitions payment Pending→Succeeded and booking
// Pending→Confirmed in one transaction. The booking CAS runs first: if the
// booking already left Pending the whole transaction rolls back untouched.
func (c *reconcileCommandsImpl) applySuccess(
	ctx context.Context,
	tx shared.Tx,
	pay *payment.Payment,
	eventID string,
) (*shared.BookingSnapshot, error) {
	won, err := tx.Bookings().UpdateStatus(ctx, tx.DB(), pay.BookingID(), booking.StatusPending, booking.StatusConfirmed)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !won {
		return nil, errLateConfirm
	}

	now := c.clock.Now()
	if err := pay.MarkSucceeded(eventID, now); err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidTransition)
	}
	won, err = tx.Payments().UpdateStatus(
		ctx, tx.DB(), pay.ID(), payment.StatusPending, payment.StatusSucceeded, eventID, pay.PaidAt())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !won {
		// Row is locked FOR UPDATE; a lost CAS here means a bug, not a race.
		return nil, errs.Mark(errs.New("payment CAS lost under row lock"), errs.ErrDatabaseOperationFailed)
	}

	snap, err := tx.Reads().BookingByID(ctx, pay.BookingID())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return snap, nil
}

// applyFailure voids the hold: payment Pending→Failed, booking
// Pending→Cancelled. A booking already cancelled (reaper won) is fine; the
// payment outcome still applies.
func (c *reconcileCommandsImpl) applyFailure(
	ctx context.Context,
	tx shared.Tx,
	pay *payment.Payment,
	eventID string,
) (*shared.BookingSnapshot, error) {
	now := c.clock.Now()
	if err := pay.MarkFailed(eventID, now); err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidTransition)
	}
	won, err := tx.Payments().UpdateStatus(
		ctx, tx.DB(), pay.ID(), payment.StatusPending, payment.StatusFailed, eventID, nil)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !won {
		return nil, errs.Mark(errs.New("payment CAS lost under row lock"), errs.ErrDatabaseOperationFailed)
	}

	bookingWon, err := tx.Bookings().UpdateStatus(
		ctx, tx.DB(), pay.BookingID(), booking.StatusPending, booking.StatusCancelled)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !bookingWon {
		slog.Info("booking already left pending before payment failure applied",
			"booking_id", pay.BookingID())
		return nil, nil
	}

	snap, err := tx.Reads().BookingByID(ctx, pay.BookingID())
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return snap, nil
}

func (c *reconcileCommandsImpl) noopResult(ctx context.Context, tx shared.Tx, pay *payment.Payment) *ReconcileResult {
	result := &ReconcileResult{
		Outcome:       OutcomeAlreadyApplied,
		BookingID:     pay.BookingID(),
		PaymentStatus: pay.Status(),
	}
	if snap, err := tx.Reads().BookingByID(ctx, pay.BookingID()); err == nil {
		result.BookingStatus = snap.Status
	}
	return result
}

func (c *reconcileCommandsImpl) recordConflict(
	ctx context.Context,
	tx shared.Tx,
	pay *payment.Payment,
	in ReconcileInput,
	eventID string,
) error {
	conflict := shared.ReconciliationConflict{
		IntentID:        in.IntentID,
		EventID:         eventID,
		Source:          string(in.Source),
		ReportedOutcome: in.Outcome,
		CurrentStatus:   pay.Status(),
		Detail:          "terminal payment status disagrees with processor report",
		OccurredAt:      c.clock.Now(),
	}
	slog.Error("reconciliation conflict",
		"intent_id", in.IntentID,
		"event_id", eventID,
		"source", in.Source,
		"current_status", pay.Status(),
		"reported_outcome", in.Outcome)
	if err := tx.Conflicts().Record(ctx, tx.DB(), conflict); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}

// handleLateConfirm records the success-after-cancel divergence in its own
// transaction, since the applying transaction rolled back.
func (c *reconcileCommandsImpl) handleLateConfirm(ctx context.Context, in ReconcileInput, eventID string) error {
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		conflict := shared.ReconciliationConflict{
			IntentID:        in.IntentID,
			EventID:         eventID,
			Source:          string(in.Source),
			ReportedOutcome: in.Outcome,
			CurrentStatus:   payment.StatusPending,
			Detail:          "success reported after booking left pending; manual refund review required",
			OccurredAt:      c.clock.Now(),
		}
		return tx.Conflicts().Record(ctx, tx.DB(), conflict)
	})
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	slog.Error("late success report for cancelled booking queued for manual review",
		"intent_id", in.IntentID,
		"event_id", eventID)
	return errs.Mark(errLateConfirm, errs.ErrMismatch)
}
