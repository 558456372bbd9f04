package domain

import "time"

// OfferType discriminates the promotion variants supported by the pricing engine.
type OfferType string

const (
	OfferTypeFlat      OfferType = "flat"
	OfferTypeDiscount  OfferType = "discount"
	OfferTypeOnMRP     OfferType = "on_mrp"
	OfferTypeNegotiate OfferType = "negotiate"
)

// OnMRPMode selects the MRP reduction behaviour for on_mrp offers.
type OnMRPMode string

const (
	OnMRPModeNeed          OnMRPMode = "need"
	OnMRPModeComplementary OnMRPMode = "complementary"
)

// Offer is the tagged union covering all promotion variants. Type selects the
// variant; bindings carry only the fields their variant uses.
type Offer struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      OfferType      `json:"type"`
	Active    bool           `json:"active"`
	Items     []OfferBinding `json:"items"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// OfferBinding attaches one product to an offer with per-item activation.
type OfferBinding struct {
	ProductID string `json:"product_id"`
	Active    bool   `json:"active"`

	// flat
	FlatPct float64 `json:"flat_pct,omitempty"`

	// discount
	DiscountAmount float64 `json:"discount_amount,omitempty"`

	// on_mrp
	Mode                   OnMRPMode `json:"mode,omitempty"`
	ReductionValue         float64   `json:"reduction_value,omitempty"`
	ComplementaryProductID string    `json:"complementary_product_id,omitempty"`

	// negotiate
	FloorPrice  float64 `json:"floor_price,omitempty"`
	SuccessPct  float64 `json:"success_pct,omitempty"`
	FailurePct  float64 `json:"failure_pct,omitempty"`
	MaxAttempts int     `json:"max_attempts,omitempty"`
}

// BindingFor returns the binding for the product id, if present.
func (o Offer) BindingFor(productID string) (OfferBinding, bool) {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return OfferBinding{}, false
}

// SelectedOffer is the client-chosen offer descriptor carried on a cart line.
type SelectedOffer struct {
	Type OfferType `json:"type"`
	Mode OnMRPMode `json:"mode,omitempty"`
}

// Product is a simple catalog entry. Bundles share the same priceable shape.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	UnitPrice   float64   `json:"unit_price"`
	TaxRatePct  float64   `json:"tax_rate_pct"`
	DiscountPct float64   `json:"discount_pct"`
	Stock       int64     `json:"stock"`
	Active      bool      `json:"active"`
	IsBundle    bool      `json:"is_bundle,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Priceable is the read model the pricing paths consume.
type Priceable struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRatePct  float64 `json:"tax_rate_pct"`
	DiscountPct float64 `json:"discount_pct"`
	Stock       int64   `json:"stock"`
	Active      bool    `json:"active"`
}

// CartAddOn is an optional extra attached to a cart line (dips, sides).
type CartAddOn struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CartLine is a single priced entry in a cart.
type CartLine struct {
	ProductID       string         `json:"product_id"`
	Name            string         `json:"name"`
	Quantity        int64          `json:"quantity"`
	BasePrice       float64        `json:"base_price"`
	UnitPrice       float64        `json:"unit_price"`
	TaxRatePct      float64        `json:"tax_rate_pct"`
	LineTotal       float64        `json:"line_total"`
	Offer           *SelectedOffer `json:"offer,omitempty"`
	ComplementaryOf string         `json:"complementary_of,omitempty"`
	AddOns          []CartAddOn    `json:"add_ons,omitempty"`
}

// IsComplementary reports whether the line was attached by an on_mrp
// complementary offer rather than added by the actor.
func (l CartLine) IsComplementary() bool { return l.ComplementaryOf != "" }

// CartCoupon records the advisory coupon evaluation on a cart. MinPrice and
// MaxPrice snapshot the coupon's subtotal bounds so later cart mutations can
// re-check eligibility without another coupon lookup.
type CartCoupon struct {
	Code     string  `json:"code"`
	Pct      float64 `json:"pct"`
	MinPrice float64 `json:"min_price,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
	Discount float64 `json:"discount"`
	Applied  bool    `json:"applied"`
	Reason   string  `json:"reason,omitempty"`
}

// CartSummary is the money breakdown returned alongside every cart mutation.
type CartSummary struct {
	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	Tax         float64 `json:"tax"`
	DeliveryFee float64 `json:"delivery_fee"`
	PlatformFee float64 `json:"platform_fee"`
	Total       float64 `json:"total"`
}

// CartStatus enumerates cart lifecycle states. Carts are reused, not deleted.
type CartStatus string

const CartStatusActive CartStatus = "active"

// Cart is the mutable per-actor cart. One active cart per actor; emptied on
// conversion and reused for the next order.
type Cart struct {
	ID                string      `json:"id"`
	ActorID           string      `json:"actor_id"`
	Status            CartStatus  `json:"status"`
	Lines             []CartLine  `json:"lines"`
	AddressID         string      `json:"address_id,omitempty"`
	Coupon            *CartCoupon `json:"coupon,omitempty"`
	Summary           CartSummary `json:"summary"`
	DistanceKm        float64     `json:"distance_km"`
	DurationMin       float64     `json:"duration_min"`
	DeliveryEstimated bool        `json:"delivery_estimated"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// LineFor returns the cart line for the product id, if present.
func (c Cart) LineFor(productID string) (CartLine, bool) {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// NegotiationAttempt is one step of an actor's haggling history for a product.
type NegotiationAttempt struct {
	Amount        float64   `json:"amount"`
	AttemptNumber int       `json:"attempt_number"`
	Success       bool      `json:"success"`
	At            time.Time `json:"at"`
}

// NegotiationRecord is the append-only attempt sequence for (actor, product).
type NegotiationRecord struct {
	ActorID   string               `json:"actor_id"`
	ProductID string               `json:"product_id"`
	Attempts  []NegotiationAttempt `json:"attempts"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// CurrentPrice returns the standing negotiated price, when any attempt exists.
func (r NegotiationRecord) CurrentPrice() (float64, bool) {
	if len(r.Attempts) == 0 {
		return 0, false
	}
	return r.Attempts[len(r.Attempts)-1].Amount, true
}

// Coupon is evaluated read-only against the cart subtotal. Bounds are
// inclusive at both ends.
type Coupon struct {
	Code     string  `json:"code"`
	Pct      float64 `json:"pct"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Active   bool    `json:"active"`
}

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusPicked    OrderStatus = "picked"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// IsTerminal reports whether no further transition is permitted.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// PaymentMethod distinguishes cash-on-delivery from online payment.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// OrderPayment mirrors the gateway view of the order's payment.
type OrderPayment struct {
	IntentID   string     `json:"intent_id,omitempty"`
	Status     string     `json:"status,omitempty"`
	Captured   bool       `json:"captured"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// RefundOutcome classifies how a cancellation's refund attempt ended.
type RefundOutcome string

const (
	RefundOutcomeRefunded    RefundOutcome = "refunded"
	RefundOutcomeFailed      RefundOutcome = "failed"
	RefundOutcomeNotCaptured RefundOutcome = "not_captured"
	RefundOutcomeNotRequired RefundOutcome = "not_required"
)

// OrderRefund records the refund initiated when an order is cancelled or
// rejected after online payment capture.
type OrderRefund struct {
	Refunded bool          `json:"refunded"`
	Outcome  RefundOutcome `json:"outcome"`
	Amount   float64       `json:"amount"`
	At       *time.Time    `json:"at,omitempty"`
}

// OrderLine is a frozen snapshot of a cart line at conversion time.
type OrderLine struct {
	ProductID       string  `json:"product_id"`
	Name            string  `json:"name"`
	Quantity        int64   `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TaxRatePct      float64 `json:"tax_rate_pct"`
	LineTotal       float64 `json:"line_total"`
	ComplementaryOf string  `json:"complementary_of,omitempty"`
}

// OrderAddress is the destination snapshot captured on the order.
type OrderAddress struct {
	ID    string  `json:"id"`
	Label string  `json:"label,omitempty"`
	Line1 string  `json:"line1,omitempty"`
	City  string  `json:"city,omitempty"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Order is immutable after creation except for lifecycle fields.
type Order struct {
	ID            string        `json:"id"`
	Number        string        `json:"number"`
	ActorID       string        `json:"actor_id"`
	PlacedBy      string        `json:"placed_by,omitempty"`
	Lines         []OrderLine   `json:"lines"`
	Address       OrderAddress  `json:"address"`
	Summary       CartSummary   `json:"summary"`
	Coupon        *CartCoupon   `json:"coupon,omitempty"`
	DistanceKm    float64       `json:"distance_km"`
	Status        OrderStatus   `json:"status"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Payment       OrderPayment  `json:"payment"`
	Refund        *OrderRefund  `json:"refund,omitempty"`
	CancelReason  string        `json:"cancel_reason,omitempty"`
	StockRestored bool          `json:"stock_restored,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	PreparedAt    *time.Time    `json:"prepared_at,omitempty"`
	PickedAt      *time.Time    `json:"picked_at,omitempty"`
	DeliveredAt   *time.Time    `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// StockLines returns the (product, quantity) pairs to decrement or restore
// for this order, complementary lines included.
func (o Order) StockLines() []StockLine {
	lines := make([]StockLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, StockLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

// StockViolation describes one line that cannot be fulfilled from stock.
type StockViolation struct {
	ProductID string `json:"product_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// StockLine pairs a product with a quantity for stock mutations.
type StockLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// Address is a stored delivery destination for an actor.
type Address struct {
	ID      string  `json:"id"`
	ActorID string  `json:"actor_id"`
	Label   string  `json:"label,omitempty"`
	Line1   string  `json:"line1,omitempty"`
	City    string  `json:"city,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}
