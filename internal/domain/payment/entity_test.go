//go:build unit

package payment_test

import (
	"testing"
	"time"

	"stayhub/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T) *payment.Payment {
	t.Helper()
	p, err := payment.NewPayment(uuid.New(), 30000, "usd", "pi_test_123", time.Now())
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	p := newTestPayment(t)
	assert.Equal(t, payment.StatusPending, p.Status())
	assert.False(t, p.Status().IsTerminal())

	_, err := payment.NewPayment(uuid.New(), 0, "usd", "pi_x", time.Now())
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	_, err = payment.NewPayment(uuid.New(), 100, "usd", "", time.Now())
	assert.ErrorIs(t, err, payment.ErrIntentRequired)
}

func TestPaymentTransitionsAreMonotonic(t *testing.T) {
	now := time.Now()

	t.Run("pending to succeeded", func(t *testing.T) {
		p := newTestPayment(t)
		require.NoError(t, p.MarkSucceeded("evt_1", now))
		assert.Equal(t, payment.StatusSucceeded, p.Status())
		require.NotNil(t, p.PaidAt())

		assert.ErrorIs(t, p.MarkFailed("evt_2", now), payment.ErrInvalidTransition)
		assert.ErrorIs(t, p.MarkSucceeded("evt_3", now), payment.ErrInvalidTransition)
	})

	t.Run("pending to failed", func(t *testing.T) {
		p := newTestPayment(t)
		require.NoError(t, p.MarkFailed("evt_1", now))
		assert.Equal(t, payment.StatusFailed, p.Status())

		assert.ErrorIs(t, p.MarkSucceeded("evt_2", now), payment.ErrInvalidTransition)
		assert.ErrorIs(t, p.MarkRefunded(now), payment.ErrInvalidTransition)
	})

	t.Run("refund only from succeeded", func(t *testing.T) {
		p := newTestPayment(t)
		assert.ErrorIs(t, p.MarkRefunded(now), payment.ErrInvalidTransition)

		require.NoError(t, p.MarkSucceeded("evt_1", now))
		require.NoError(t, p.MarkRefunded(now))
		assert.Equal(t, payment.StatusRefunded, p.Status())
	})
}

func TestSeenEvent(t *testing.T) {
	p := newTestPayment(t)
	assert.False(t, p.SeenEvent("evt_1"))

	require.NoError(t, p.MarkSucceeded("evt_1", time.Now()))
	assert.True(t, p.SeenEvent("evt_1"))
	assert.False(t, p.SeenEvent("evt_2"))
	assert.False(t, p.SeenEvent(""), "empty event id never matches")
}

func TestOutcomeAgreement(t *testing.T) {
	tests := []struct {
		status  payment.Status
		outcome payment.Outcome
		agrees  bool
	}{
		{payment.StatusSucceeded, payment.OutcomeSucceeded, true},
		{payment.StatusRefunded, payment.OutcomeSucceeded, true},
		{payment.StatusFailed, payment.OutcomeFailed, true},
		{payment.StatusSucceeded, payment.OutcomeFailed, false},
		{payment.StatusFailed, payment.OutcomeSucceeded, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.agrees, tt.status.Agrees(tt.outcome),
			"%s vs %s", tt.status, tt.outcome)
	}
}
