package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"stayhub/internal/domain/payment"
	"stayhub/internal/infra/processor"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
)

type WebhookHandler struct {
	verifier          *processor.StripeProcessor
	reconcileCommands commands.ReconcileCommands
}

func NewWebhookHandler(verifier *processor.StripeProcessor, reconcileCommands commands.ReconcileCommands) *WebhookHandler {
	return &WebhookHandler{
		verifier:          verifier,
		reconcileCommands: reconcileCommands,
	}
}

// HandleStripeWebhook applies processor payment outcomes. Responses are 2xx
// for every delivery the processor should not retry, including duplicates and
// recorded conflicts; only signature failures and transient errors ask for a
// redelivery.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	event, err := h.verifier.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		slog.Warn("webhook signature verification failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid signature",
		})
		return
	}

	var outcome payment.Outcome
	switch event.Type {
	case "payment_intent.succeeded":
		outcome = payment.OutcomeSucceeded
	case "payment_intent.payment_failed", "payment_intent.canceled":
		outcome = payment.OutcomeFailed
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		slog.Error("failed to parse payment intent from webhook", "event_id", event.ID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Malformed event payload",
		})
		return
	}

	result, err := h.reconcileCommands.Reconcile(c.Request.Context(), commands.ReconcileInput{
		Source:   commands.SourceWebhook,
		IntentID: intent.ID,
		EventID:  event.ID,
		Outcome:  outcome,
	})
	if err != nil {
		// Mismatches are audited; a retry cannot resolve them, so ack the
		// delivery and leave the conflict row for the operators.
		if errors.Is(err, errs.ErrMismatch) {
			slog.Error("webhook reconciliation mismatch",
				"event_id", event.ID,
				"intent_id", intent.ID,
				"event_type", event.Type)
			c.JSON(http.StatusOK, gin.H{"status": "conflict_recorded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         string(result.Outcome),
		"booking_status": string(result.BookingStatus),
	})
}
