//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/payment"
	"stayhub/internal/pkg/clock"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type reconcileFixture struct {
	st        *fakeState
	publisher *fakePublisher
	cmd       commands.ReconcileCommands
	now       time.Time
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()
	st := newFakeState()
	pub := &fakePublisher{}
	now := date(2026, 6, 1)
	return &reconcileFixture{
		st:        st,
		publisher: pub,
		cmd:       commands.NewReconcileCommands(newFakeUoW(st), pub, clock.NewMockClock(now)),
		now:       now,
	}
}

func (f *reconcileFixture) seedPendingHold(t *testing.T) (*fakeState, uuid.UUID, string) {
	t.Helper()
	guest := uuid.New()
	l := f.st.addListing(10000)
	b := f.st.addBooking(l, guest, date(2026, 6, 10), date(2026, 6, 14), booking.StatusPending, f.now)
	p := f.st.addPayment(b, "pi_hold_1", payment.StatusPending)
	return f.st, b.ID, p.intentID
}

func TestReconcileWebhookSuccess(t *testing.T) {
	f := newReconcileFixture(t)
	st, bookingID, intentID := f.seedPendingHold(t)

	res, err := f.cmd.Reconcile(context.Background(), commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: intentID,
		EventID:  "evt_1",
		Outcome:  payment.OutcomeSucceeded,
	})
	require.NoError(t, err)

	assert.Equal(t, commands.OutcomeApplied, res.Outcome)
	assert.Equal(t, booking.StatusConfirmed, res.BookingStatus)
	assert.Equal(t, payment.StatusSucceeded, res.PaymentStatus)

	assert.Equal(t, booking.StatusConfirmed, st.bookings[bookingID].Status)
	assert.Len(t, f.publisher.ofType(booking.EventBookingConfirmed), 1)
}

func TestReconcileDuplicateEventIsNoop(t *testing.T) {
	f := newReconcileFixture(t)
	st, bookingID, intentID := f.seedPendingHold(t)

	in := commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: intentID,
		EventID:  "evt_1",
		Outcome:  payment.OutcomeSucceeded,
	}

	_, err := f.cmd.Reconcile(context.Background(), in)
	require.NoError(t, err)

	res, err := f.cmd.Reconcile(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, commands.OutcomeAlreadyApplied, res.Outcome)
	assert.Equal(t, booking.StatusConfirmed, st.bookings[bookingID].Status)
	assert.Len(t, f.publisher.ofType(booking.EventBookingConfirmed), 1, "winner publishes exactly once")
}

func TestReconcileClientAndWebhookConverge(t *testing.T) {
	// Same success fact from both sources, either order: exactly one applies,
	// the other observes AlreadyApplied, and one event is published.
	run := func(t *testing.T, first, second commands.ReconcileInput) {
		f := newReconcileFixture(t)
		st, bookingID, intentID := f.seedPendingHold(t)
		first.IntentID, second.IntentID = intentID, intentID

		res1, err := f.cmd.Reconcile(context.Background(), first)
		require.NoError(t, err)
		res2, err := f.cmd.Reconcile(context.Background(), second)
		require.NoError(t, err)

		assert.Equal(t, commands.OutcomeApplied, res1.Outcome)
		assert.Equal(t, commands.OutcomeAlreadyApplied, res2.Outcome)
		assert.Equal(t, booking.StatusConfirmed, st.bookings[bookingID].Status)
		assert.Len(t, f.publisher.ofType(booking.EventBookingConfirmed), 1)
	}

	clientConfirm := commands.ReconcileInput{Source: commands.SourceClient, Outcome: payment.OutcomeSucceeded}
	webhook := commands.ReconcileInput{Source: commands.SourceWebhook, EventID: "evt_1", Outcome: payment.OutcomeSucceeded}

	t.Run("client then webhook", func(t *testing.T) { run(t, clientConfirm, webhook) })
	t.Run("webhook then client", func(t *testing.T) { run(t, webhook, clientConfirm) })
}

func TestReconcileFailureCancelsBooking(t *testing.T) {
	f := newReconcileFixture(t)
	st, bookingID, intentID := f.seedPendingHold(t)

	res, err := f.cmd.Reconcile(context.Background(), commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: intentID,
		EventID:  "evt_fail",
		Outcome:  payment.OutcomeFailed,
	})
	require.NoError(t, err)

	assert.Equal(t, commands.OutcomeApplied, res.Outcome)
	assert.Equal(t, booking.StatusCancelled, st.bookings[bookingID].Status)

	events := f.publisher.ofType(booking.EventBookingCancelled)
	require.Len(t, events, 1)
	payload := events[0].payload.(booking.CancelledEvent)
	assert.Equal(t, "payment failed", payload.Reason)
	assert.False(t, payload.Refunded)
}

func TestReconcileLateSuccessRecordsConflict(t *testing.T) {
	// Hold was reaped before the success report landed. The booking must stay
	// cancelled, the payment untouched, and the divergence audited.
	f := newReconcileFixture(t)
	st, bookingID, intentID := f.seedPendingHold(t)
	st.bookings[bookingID].Status = booking.StatusCancelled

	_, err := f.cmd.Reconcile(context.Background(), commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: intentID,
		EventID:  "evt_late",
		Outcome:  payment.OutcomeSucceeded,
	})
	assert.ErrorIs(t, err, errs.ErrMismatch)

	assert.Equal(t, booking.StatusCancelled, st.bookings[bookingID].Status)
	require.Len(t, st.conflicts, 1)
	assert.Equal(t, intentID, st.conflicts[0].IntentID)
	assert.Equal(t, payment.OutcomeSucceeded, st.conflicts[0].ReportedOutcome)
	assert.Empty(t, f.publisher.events)
}

func TestReconcileTerminalDisagreementRecordsConflict(t *testing.T) {
	f := newReconcileFixture(t)
	guest := uuid.New()
	l := f.st.addListing(10000)
	b := f.st.addBooking(l, guest, date(2026, 6, 10), date(2026, 6, 14), booking.StatusCancelled, f.now)
	p := f.st.addPayment(b, "pi_failed_1", payment.StatusFailed)
	p.lastEventID = "evt_orig"

	_, err := f.cmd.Reconcile(context.Background(), commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: p.intentID,
		EventID:  "evt_disagree",
		Outcome:  payment.OutcomeSucceeded,
	})
	assert.ErrorIs(t, err, errs.ErrMismatch)

	require.Len(t, f.st.conflicts, 1)
	assert.Equal(t, payment.StatusFailed, f.st.conflicts[0].CurrentStatus)
	assert.Equal(t, payment.StatusFailed, f.st.payments[p.id].status, "terminal status never overwritten")
}

func TestReconcileTerminalAgreementIsNoop(t *testing.T) {
	f := newReconcileFixture(t)
	guest := uuid.New()
	l := f.st.addListing(10000)
	b := f.st.addBooking(l, guest, date(2026, 6, 10), date(2026, 6, 14), booking.StatusConfirmed, f.now)
	p := f.st.addPayment(b, "pi_done_1", payment.StatusSucceeded)
	p.lastEventID = "evt_orig"

	res, err := f.cmd.Reconcile(context.Background(), commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: p.intentID,
		EventID:  "evt_redelivery",
		Outcome:  payment.OutcomeSucceeded,
	})
	require.NoError(t, err)

	assert.Equal(t, commands.OutcomeAlreadyApplied, res.Outcome)
	assert.Empty(t, f.st.conflicts)
}

func TestReconcileUnknownIntent(t *testing.T) {
	f := newReconcileFixture(t)

	_, err := f.cmd.Reconcile(context.Background(), commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: "pi_never_seen",
		EventID:  "evt_1",
		Outcome:  payment.OutcomeSucceeded,
	})
	assert.ErrorIs(t, err, errs.ErrMismatch)
	assert.Empty(t, f.st.payments, "unknown intents never create payment rows")
}

func TestConfirmFromClient(t *testing.T) {
	t.Run("owner confirms", func(t *testing.T) {
		f := newReconcileFixture(t)
		st, bookingID, _ := f.seedPendingHold(t)
		guestID := st.bookings[bookingID].GuestID

		res, err := f.cmd.ConfirmFromClient(context.Background(), bookingID, guestID)
		require.NoError(t, err)
		assert.Equal(t, commands.OutcomeApplied, res.Outcome)
		assert.Equal(t, booking.StatusConfirmed, st.bookings[bookingID].Status)
	})

	t.Run("non-owner rejected", func(t *testing.T) {
		f := newReconcileFixture(t)
		st, bookingID, _ := f.seedPendingHold(t)

		_, err := f.cmd.ConfirmFromClient(context.Background(), bookingID, uuid.New())
		assert.ErrorIs(t, err, errs.ErrNotOwner)
		assert.Equal(t, booking.StatusPending, st.bookings[bookingID].Status)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newReconcileFixture(t)
		_, err := f.cmd.ConfirmFromClient(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, errs.ErrBookingNotFound)
	})
}
