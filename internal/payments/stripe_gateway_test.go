package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type stubIntentAPI struct {
	newFn func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getFn func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func (s *stubIntentAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if s.newFn == nil {
		return nil, errors.New("newFn not configured")
	}
	return s.newFn(params)
}

func (s *stubIntentAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if s.getFn == nil {
		return nil, errors.New("getFn not configured")
	}
	return s.getFn(id, params)
}

type stubRefundAPI struct {
	newFn func(params *stripe.RefundParams) (*stripe.Refund, error)
}

func (s *stubRefundAPI) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	if s.newFn == nil {
		return nil, errors.New("newFn not configured")
	}
	return s.newFn(params)
}

func newTestGateway(t *testing.T, intents stripePaymentIntentAPI, refunds stripeRefundAPI) *StripeGateway {
	t.Helper()
	cfg := StripeGatewayConfig{
		Clock: func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	cfg.WithStripeClients(intents, refunds)
	gateway, err := NewStripeGateway(cfg)
	if err != nil {
		t.Fatalf("NewStripeGateway: %v", err)
	}
	return gateway
}

func TestCreatePaymentIntent(t *testing.T) {
	intents := &stubIntentAPI{
		newFn: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			if params.Amount == nil || *params.Amount != 42500 {
				t.Fatalf("amount = %v, want 42500", params.Amount)
			}
			if params.Currency == nil || *params.Currency != "inr" {
				t.Fatalf("currency = %v", params.Currency)
			}
			if params.Metadata["orderId"] != "order-1" {
				t.Fatalf("metadata = %v", params.Metadata)
			}
			return &stripe.PaymentIntent{
				ID:           "pi_123",
				ClientSecret: "pi_123_secret",
				Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
				Amount:       42500,
				Currency:     "inr",
			}, nil
		},
	}

	gateway := newTestGateway(t, intents, &stubRefundAPI{})

	intent, err := gateway.CreatePaymentIntent(context.Background(), CreateIntentRequest{
		Amount:   MinorUnits(425),
		Currency: "INR",
		ActorID:  "customer-1",
		OrderID:  "order-1",
	})
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	if intent.ID != "pi_123" {
		t.Fatalf("intent id = %q", intent.ID)
	}
	if intent.Status != StatusPending {
		t.Fatalf("status = %q, want pending", intent.Status)
	}
	if intent.Currency != "INR" {
		t.Fatalf("currency = %q", intent.Currency)
	}
}

func TestCreatePaymentIntentUnavailable(t *testing.T) {
	intents := &stubIntentAPI{
		newFn: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return nil, errors.New("connection reset")
		},
	}
	gateway := newTestGateway(t, intents, &stubRefundAPI{})

	_, err := gateway.CreatePaymentIntent(context.Background(), CreateIntentRequest{Amount: 100, Currency: "INR"})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestGetPaymentCaptured(t *testing.T) {
	intents := &stubIntentAPI{
		getFn: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			if id != "pi_123" {
				t.Fatalf("intent id = %q", id)
			}
			return &stripe.PaymentIntent{
				ID:       "pi_123",
				Status:   stripe.PaymentIntentStatusSucceeded,
				Amount:   42500,
				Currency: "inr",
				LatestCharge: &stripe.Charge{
					Paid:     true,
					Captured: true,
					Created:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix(),
					Amount:   42500,
				},
			}, nil
		},
	}
	gateway := newTestGateway(t, intents, &stubRefundAPI{})

	payment, err := gateway.GetPayment(context.Background(), "pi_123")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if !payment.Captured {
		t.Fatal("expected captured payment")
	}
	if payment.Status != StatusSucceeded {
		t.Fatalf("status = %q", payment.Status)
	}
	if payment.CapturedAt == nil {
		t.Fatal("expected capturedAt")
	}
}

func TestRefundFullAmount(t *testing.T) {
	var refunded bool
	intents := &stubIntentAPI{
		getFn: func(string, *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{
				ID:       "pi_123",
				Status:   stripe.PaymentIntentStatusSucceeded,
				Amount:   42500,
				Currency: "inr",
				LatestCharge: &stripe.Charge{
					Paid:           true,
					Captured:       true,
					Created:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix(),
					Amount:         42500,
					Refunded:       true,
					AmountRefunded: 42500,
				},
			}, nil
		},
	}
	refunds := &stubRefundAPI{
		newFn: func(params *stripe.RefundParams) (*stripe.Refund, error) {
			refunded = true
			if params.PaymentIntent == nil || *params.PaymentIntent != "pi_123" {
				t.Fatalf("payment intent = %v", params.PaymentIntent)
			}
			return &stripe.Refund{ID: "re_1"}, nil
		},
	}
	gateway := newTestGateway(t, intents, refunds)

	payment, err := gateway.Refund(context.Background(), RefundRequest{IntentID: "pi_123"})
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if !refunded {
		t.Fatal("refund API not called")
	}
	if payment.Status != StatusRefunded {
		t.Fatalf("status = %q, want refunded", payment.Status)
	}
}

func TestMinorUnits(t *testing.T) {
	if got := MinorUnits(425); got != 42500 {
		t.Fatalf("MinorUnits(425) = %d", got)
	}
	if got := MinorUnits(80.5); got != 8050 {
		t.Fatalf("MinorUnits(80.5) = %d", got)
	}
	if got := MinorUnits(64.8); got != 6480 {
		t.Fatalf("MinorUnits(64.8) = %d", got)
	}
}
