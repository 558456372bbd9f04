package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe gateway operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClients struct {
	intents stripePaymentIntentAPI
	refunds stripeRefundAPI
}

// StripeGatewayConfig configures the StripeGateway.
type StripeGatewayConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	Logger    StripeLogger
	Clock     func() time.Time

	intents stripePaymentIntentAPI
	refunds stripeRefundAPI
}

// WithStripeClients injects API stubs, primarily for tests.
func (cfg *StripeGatewayConfig) WithStripeClients(intents stripePaymentIntentAPI, refunds stripeRefundAPI) {
	cfg.intents = intents
	cfg.refunds = refunds
}

// StripeGateway implements Gateway using the Stripe API.
type StripeGateway struct {
	api     stripeClients
	account string
	clock   func() time.Time
	logger  StripeLogger
}

// NewStripeGateway constructs a StripeGateway from the given configuration.
func NewStripeGateway(cfg StripeGatewayConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	clients := stripeClients{intents: cfg.intents, refunds: cfg.refunds}
	if clients.intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{
			intents: sc.PaymentIntents,
			refunds: sc.Refunds,
		}
	}
	if clients.intents == nil || clients.refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeGateway{
		api:     clients,
		account: strings.TrimSpace(cfg.AccountID),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreatePaymentIntent opens a payment intent for the order total.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (Intent, error) {
	if g == nil {
		return Intent{}, errors.New("stripe: gateway is nil")
	}
	if req.Amount <= 0 {
		return Intent{}, errors.New("stripe: amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	metadata := make(map[string]string, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if req.ActorID != "" {
		metadata["actorId"] = req.ActorID
	}
	if req.OrderID != "" {
		metadata["orderId"] = req.OrderID
	}
	if req.OrderNumber != "" {
		metadata["orderNumber"] = req.OrderNumber
	}
	if len(metadata) > 0 {
		params.Metadata = metadata
	}

	intent, err := g.api.intents.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: create payment intent: %v", ErrGatewayUnavailable, err)
	}

	g.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
	})

	return Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       stripeStatus(intent),
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
	}, nil
}

// GetPayment retrieves the current gateway state of a payment intent.
func (g *StripeGateway) GetPayment(ctx context.Context, intentID string) (Payment, error) {
	if g == nil {
		return Payment{}, errors.New("stripe: gateway is nil")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	intent, err := g.api.intents.Get(intentID, params)
	if err != nil {
		return Payment{}, fmt.Errorf("%w: lookup payment intent: %v", ErrGatewayUnavailable, err)
	}
	return stripePayment(intent), nil
}

// Refund returns funds for a captured payment intent.
func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (Payment, error) {
	if g == nil {
		return Payment{}, errors.New("stripe: gateway is nil")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.IntentID),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}
	if req.Amount != nil {
		params.Amount = stripe.Int64(*req.Amount)
	}
	if reason := stripeRefundReason(req.Reason); reason != "" {
		params.Reason = stripe.String(reason)
	}

	if _, err := g.api.refunds.New(params); err != nil {
		return Payment{}, fmt.Errorf("%w: refund payment intent: %v", ErrGatewayUnavailable, err)
	}

	g.logger(ctx, "payments.stripe.intent.refunded", map[string]any{
		"paymentIntent": req.IntentID,
	})
	return g.GetPayment(ctx, req.IntentID)
}

func stripeStatus(intent *stripe.PaymentIntent) Status {
	if intent == nil {
		return StatusPending
	}
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed
	default:
		return StatusPending
	}
}

func stripePayment(intent *stripe.PaymentIntent) Payment {
	if intent == nil {
		return Payment{}
	}

	status := stripeStatus(intent)
	captured := intent.Status == stripe.PaymentIntentStatusSucceeded

	var capturedAt *time.Time
	var refundedAt *time.Time
	if charge := intent.LatestCharge; charge != nil {
		if charge.Paid || charge.Captured {
			t := time.Unix(charge.Created, 0).UTC()
			capturedAt = &t
			captured = true
		}
		if charge.Refunded || charge.AmountRefunded > 0 {
			t := time.Unix(charge.Created, 0).UTC()
			refundedAt = &t
			if charge.AmountRefunded >= charge.Amount && charge.Amount > 0 {
				status = StatusRefunded
			}
		}
	}

	currency := strings.ToUpper(string(intent.Currency))
	if currency == "" && intent.LatestCharge != nil {
		currency = strings.ToUpper(string(intent.LatestCharge.Currency))
	}

	return Payment{
		IntentID:   intent.ID,
		Status:     status,
		Amount:     intent.Amount,
		Currency:   currency,
		Captured:   captured,
		CapturedAt: capturedAt,
		RefundedAt: refundedAt,
	}
}

func stripeRefundReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case string(stripe.RefundReasonDuplicate):
		return string(stripe.RefundReasonDuplicate)
	case string(stripe.RefundReasonFraudulent):
		return string(stripe.RefundReasonFraudulent)
	case string(stripe.RefundReasonRequestedByCustomer):
		return string(stripe.RefundReasonRequestedByCustomer)
	default:
		return ""
	}
}
