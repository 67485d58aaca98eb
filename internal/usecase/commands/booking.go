package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
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

type CreateBookingParams struct {
	ListingID uuid.UUID
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
}

type CreateBookingResult struct {
	BookingID    uuid.UUID
	ClientSecret string
	IsReplayed   bool
}

type BookingCommands interface {
	CreateBooking(ctx context.Context, params CreateBookingParams, guestID uuid.UUID, idempotencyKey uuid.UUID) (*CreateBookingResult, error)
}

type bookingCommandsImpl struct {
	uow       shared.UnitOfWork
	factory   *booking.Factory
	processor ProcessorClient
	clock     clock.Clock
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	factory *booking.Factory,
	processor ProcessorClient,
	clock clock.Clock,
) BookingCommands {
	return &bookingCommandsImpl{
		uow:       uow,
		factory:   factory,
		processor: processor,
		clock:     clock,
	}
}

// CreateBooking turns a date-range request into a Pending booking holding its
// dates, plus a processor intent the client pays against.
//
// The hold insert runs under a listing-scoped lock so that of two concurrent
// overlapping requests exactly one gets the booking row; the loser fails fast
// with ErrOverlapConflict and leaves nothing behind. The processor call runs
// after that transaction: if it fails the booking stays Pending with no
// payment row, the caller may retry, and the reaper cleans up abandoned ones.
func (c *bookingCommandsImpl) CreateBooking(
	ctx context.Context,
	params CreateBookingParams,
	guestID uuid.UUID,
	idempotencyKey uuid.UUID,
) (*CreateBookingResult, error) {
	requestHash := c.calculateRequestHash(params, guestID)
	expiresAt := c.clock.Now().Add(24 * time.Hour)

	replayed, err := c.handleIdempotency(ctx, idempotencyKey, guestID, requestHash, expiresAt)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		return replayed, nil
	}

	bookingEntity, err := c.buildBooking(ctx, params, guestID)
	if err != nil {
		return nil, err
	}

	if err := c.insertHold(ctx, bookingEntity, idempotencyKey, guestID); err != nil {
		return nil, err
	}

	total := bookingEntity.TotalPrice()
	clientSecret, err := c.ensureIntent(ctx, bookingEntity.ID(), total.Cents(), total.Currency())
	if err != nil {
		return nil, err
	}

	return &CreateBookingResult{
		BookingID:    bookingEntity.ID(),
		ClientSecret: clientSecret,
		IsReplayed:   false,
	}, nil
}

func (c *bookingCommandsImpl) handleIdempotency(
	ctx context.Context,
	idempotencyKey, guestID uuid.UUID,
	requestHash string,
	expiresAt time.Time,
) (*CreateBookingResult, error) {
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Idempotency().TryInsert(
			ctx, tx.DB(), idempotencyKey, guestID, "POST /bookings", requestHash, expiresAt)
	})
	if err != nil {
		return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}

	existing, err := c.uow.CommandReads().IdempotencyByKey(ctx, idempotencyKey, guestID)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}

	switch existing.Status {
	case "completed":
		if existing.ResultBookingID == nil {
			return nil, errs.New("completed request missing result booking ID")
		}
		return c.replayCompleted(ctx, *existing.ResultBookingID)

	case "processing":
		if existing.RequestHash != requestHash {
			return nil, errs.ErrDuplicateBooking
		}
		return nil, nil

	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

// replayCompleted rebuilds the original response for a finished request. A
// completed key with no payment row means the hold committed but the
// processor call failed; the retry picks up where the first attempt stopped
// and creates the missing intent, so the booking stays payable.
func (c *bookingCommandsImpl) replayCompleted(ctx context.Context, bookingID uuid.UUID) (*CreateBookingResult, error) {
	result := &CreateBookingResult{BookingID: bookingID, IsReplayed: true}

	pay, err := c.uow.CommandReads().PaymentByBookingID(ctx, bookingID)
	if err == nil {
		result.ClientSecret = pay.ClientSecret
		return result, nil
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		return nil, errs.Mark(err, errs.ErrIdempotencyCheckFailed)
	}

	snap, err := c.uow.CommandReads().BookingByID(ctx, bookingID)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if snap.Status != booking.StatusPending {
		// Reaped or cancelled in the meantime; nothing left to pay.
		return result, nil
	}

	clientSecret, err := c.ensureIntent(ctx, snap.ID, snap.TotalCents, snap.Currency)
	if err != nil {
		return nil, err
	}
	result.ClientSecret = clientSecret
	return result, nil
}

func (c *bookingCommandsImpl) buildBooking(
	ctx context.Context,
	params CreateBookingParams,
	guestID uuid.UUID,
) (*booking.Booking, error) {
	listingRM, err := c.uow.CommandReads().ListingByID(ctx, params.ListingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.ErrListingNotFound
		}
		return nil, errs.Mark(err, errs.ErrListingNotFound)
	}

	stay, err := booking.NewStayRange(params.CheckIn, params.CheckOut)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidStayRange)
	}

	bookingEntity, err := c.factory.CreateBooking(
		booking.ListingSpec{
			ID:                 listingRM.ID,
			HostID:             listingRM.HostID,
			PricePerNightCents: listingRM.PricePerNightCents,
			Currency:           listingRM.Currency,
		},
		guestID,
		stay,
		params.Guests,
	)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	return bookingEntity, nil
}

// insertHold re-checks overlap and inserts the booking row atomically with
// respect to other holds on the same listing.
func (c *bookingCommandsImpl) insertHold(
	ctx context.Context,
	bookingEntity *booking.Booking,
	idempotencyKey, guestID uuid.UUID,
) error {
	stay := bookingEntity.Stay()

	err := c.uow.WithinListingLock(ctx, bookingEntity.ListingID(), func(ctx context.Context, tx shared.Tx) error {
		overlapping, err := tx.Bookings().CountOverlapping(
			ctx, tx.DB(), bookingEntity.ListingID(), stay.CheckIn(), stay.CheckOut())
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		if overlapping > 0 {
			return errs.ErrOverlapConflict
		}

		if _, err := tx.Bookings().Create(ctx, tx.DB(), bookingEntity); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return errs.ErrOverlapConflict
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		responseBodyHash := c.calculateIDHash(bookingEntity.ID())
		return tx.Idempotency().UpdateStatusCompleted(
			ctx, tx.DB(), idempotencyKey, guestID, responseBodyHash, bookingEntity.ID())
	})
	return err
}

// ensureIntent creates the processor intent at most once per booking: an
// existing payment row short-circuits with the stored secret, so client
// retries can never double-charge.
func (c *bookingCommandsImpl) ensureIntent(ctx context.Context, bookingID uuid.UUID, amountCents int64, currency string) (string, error) {
	existing, err := c.uow.CommandReads().PaymentByBookingID(ctx, bookingID)
	if err == nil {
		return existing.ClientSecret, nil
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		return "", errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	intent, err := c.processor.CreateIntent(ctx, bookingID, amountCents, currency)
	if err != nil {
		slog.Error("processor intent creation failed",
			"booking_id", bookingID,
			"error", err.Error())
		return "", errs.Mark(err, errs.ErrProcessorUnavailable)
	}

	paymentEntity, err := payment.NewPayment(
		bookingID, amountCents, currency, intent.ID, c.clock.Now())
	if err != nil {
		return "", errs.Mark(err, errs.ErrDomainValidation)
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		_, err := tx.Payments().Create(ctx, tx.DB(), paymentEntity, intent.ClientSecret)
		return err
	})
	if err != nil {
		// Unique booking_id: a racing retry beat us to the row; its intent wins.
		if infra.IsKind(err, infra.KindDuplicateKey) {
			winner, readErr := c.uow.CommandReads().PaymentByBookingID(ctx, bookingID)
			if readErr != nil {
				return "", errs.Mark(readErr, errs.ErrDatabaseOperationFailed)
			}
			return winner.ClientSecret, nil
		}
		return "", errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	return intent.ClientSecret, nil
}

func (c *bookingCommandsImpl) calculateRequestHash(params CreateBookingParams, guestID uuid.UUID) string {
	data, _ := json.Marshal(struct {
		CreateBookingParams
		GuestID uuid.UUID
	}{params, guestID})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (c *bookingCommandsImpl) calculateIDHash(id uuid.UUID) string {
	hash := sha256.Sum256([]byte(id.String()))
	return hex.EncodeToString(hash[:])
}
