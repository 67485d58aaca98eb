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

type ReapResult struct {
	Scanned int
	Reaped  int
}

type ReaperCommands interface {
	ReapAbandoned(ctx context.Context) (*ReapResult, error)
}

type reaperCommandsImpl struct {
	uow       shared.UnitOfWork
	processor ProcessorClient
	publisher EventPublisher
	holdTTL   time.Duration
	batchSize int32
	clock     clock.Clock
}

func NewReaperCommands(
	uow shared.UnitOfWork,
	processor ProcessorClient,
	publisher EventPublisher,
	holdTTL time.Duration,
	batchSize int32,
	clock clock.Clock,
) ReaperCommands {
	return &reaperCommandsImpl{
		uow:       uow,
		processor: processor,
		publisher: publisher,
		holdTTL:   holdTTL,
		batchSize: batchSize,
		clock:     clock,
	}
}

// ReapAbandoned sweeps Pending bookings older than the hold TTL and cancels
// them, releasing their dates. Each booking is handled in its own short
// transaction with the same compare-and-swap the reconciler uses, so a
// payment success landing mid-sweep wins cleanly: the reaper's CAS loses and
// the booking stays Confirmed.
func (c *reaperCommandsImpl) ReapAbandoned(ctx context.Context) (*ReapResult, error) {
	cutoff := c.clock.Now().Add(-c.holdTTL)

	var ids []uuid.UUID
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var err error
		ids, err = tx.Bookings().FindExpiredPendingIDs(ctx, tx.DB(), cutoff, c.batchSize)
		return err
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	result := &ReapResult{Scanned: len(ids)}
	for _, id := range ids {
		reaped, err := c.reapOne(ctx, id)
		if err != nil {
			// One bad row must not stall the sweep.
			slog.Error("failed to reap expired booking", "booking_id", id, "error", err.Error())
			continue
		}
		if reaped {
			result.Reaped++
		}
	}

	if result.Reaped > 0 {
		slog.Info("reaped abandoned holds", "scanned", result.Scanned, "reaped", result.Reaped)
	}
	return result, nil
}

func (c *reaperCommandsImpl) reapOne(ctx context.Context, id uuid.UUID) (bool, error) {
	var (
		reaped       bool
		snap         *shared.BookingSnapshot
		voidIntentID string
	)

	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		reaped, snap, voidIntentID = false, nil, ""

		won, err := tx.Bookings().UpdateStatus(ctx, tx.DB(), id, booking.StatusPending, booking.StatusCancelled)
		if err != nil {
			return err
		}
		if !won {
			// Confirmed or cancelled since the scan; leave it alone.
			return nil
		}
		reaped = true

		pay, err := tx.Payments().FindByBookingIDForUpdate(ctx, tx.DB(), id)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				pay = nil
			} else {
				return err
			}
		}
		if pay != nil && pay.Status() == payment.StatusPending {
			if _, err := tx.Payments().UpdateStatus(
				ctx, tx.DB(), pay.ID(), payment.StatusPending, payment.StatusFailed, "", nil); err != nil {
				return err
			}
			voidIntentID = pay.IntentID()
		}

		snap, err = tx.Reads().BookingByID(ctx, id)
		return err
	})
	if err != nil || !reaped {
		return false, err
	}

	if voidIntentID != "" {
		if err := c.processor.CancelIntent(ctx, voidIntentID); err != nil {
			slog.Warn("failed to void intent for reaped booking",
				"booking_id", id, "intent_id", voidIntentID, "error", err.Error())
		}
	}

	c.publisher.Publish(ctx, booking.EventBookingCancelled, id.String(), booking.CancelledEvent{
		BookingID: snap.ID,
		ListingID: snap.ListingID,
		GuestID:   snap.GuestID,
		HostID:    snap.HostID,
		Reason:    "hold expired",
		Refunded:  false,
		At:        c.clock.Now(),
	})
	return true, nil
}
