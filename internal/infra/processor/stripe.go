package processor

import (
	"context"

	"stayhub/internal/pkg/config"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProcessor adapts the Stripe PaymentIntents API to the ProcessorClient
// port. Intents carry the booking id in metadata so webhook events can always
// be traced back even when local state was lost.
type StripeProcessor struct {
	client        *stripe.Client
	webhookSecret string
}

func NewStripeProcessor(cfg config.StripeConfig) *StripeProcessor {
	return &StripeProcessor{
		client:        stripe.NewClient(cfg.SecretKey),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (p *StripeProcessor) CreateIntent(ctx context.Context, bookingID uuid.UUID, amountCents int64, currency string) (*commands.IntentRef, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("booking_id", bookingID.String())

	intent, err := p.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return nil, errs.Wrap(err, "failed to create payment intent")
	}

	return &commands.IntentRef{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (p *StripeProcessor) CancelIntent(ctx context.Context, intentID string) error {
	_, err := p.client.V1PaymentIntents.Cancel(ctx, intentID, &stripe.PaymentIntentCancelParams{})
	if err != nil {
		return errs.Wrap(err, "failed to cancel payment intent")
	}
	return nil
}

func (p *StripeProcessor) Refund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string) error {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amountCents),
	}
	params.SetIdempotencyKey(idempotencyKey)
	if _, err := p.client.V1Refunds.Create(ctx, params); err != nil {
		return errs.Wrap(err, "failed to create refund")
	}
	return nil
}

// VerifyWebhook checks the signature and returns the parsed event. The raw
// body must be the exact bytes Stripe sent.
func (p *StripeProcessor) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, p.webhookSecret)
	if err != nil {
		return stripe.Event{}, errs.Wrap(err, "webhook signature verification failed")
	}
	return event, nil
}
