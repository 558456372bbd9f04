package payments

import (
	"context"
	"errors"
	"math"
	"time"
)

// Status enumerates the normalised payment states exposed to services.
type Status string

const (
	// StatusPending indicates the payment awaits customer action or gateway confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the gateway reports the payment as captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the payment cannot proceed.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been fully refunded.
	StatusRefunded Status = "refunded"
)

// ErrGatewayUnavailable wraps transport failures talking to the payment provider.
var ErrGatewayUnavailable = errors.New("payments: gateway unavailable")

// CreateIntentRequest carries the data needed to open a payment intent for an order.
type CreateIntentRequest struct {
	Amount         int64
	Currency       string
	ActorID        string
	OrderID        string
	OrderNumber    string
	IdempotencyKey string
	Metadata       map[string]string
}

// Intent is the gateway handle returned when an online order is placed.
type Intent struct {
	ID           string
	ClientSecret string
	Status       Status
	Amount       int64
	Currency     string
}

// Payment normalises the gateway view of a payment for storage and refunds.
type Payment struct {
	IntentID   string
	Status     Status
	Amount     int64
	Currency   string
	Captured   bool
	CapturedAt *time.Time
	RefundedAt *time.Time
}

// RefundRequest asks the gateway to return funds for a captured payment.
type RefundRequest struct {
	IntentID       string
	Amount         *int64
	Reason         string
	IdempotencyKey string
}

// Gateway is the payment provider contract consumed by the order service.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (Intent, error)
	GetPayment(ctx context.Context, intentID string) (Payment, error)
	Refund(ctx context.Context, req RefundRequest) (Payment, error)
}

// MinorUnits converts a major-unit amount to the smallest currency unit.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
