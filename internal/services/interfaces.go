package services

import (
	"context"
	"time"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	Priceable          = domain.Priceable
	Offer              = domain.Offer
	OfferBinding       = domain.OfferBinding
	OfferType          = domain.OfferType
	SelectedOffer      = domain.SelectedOffer
	Cart               = domain.Cart
	CartLine           = domain.CartLine
	CartAddOn          = domain.CartAddOn
	CartCoupon         = domain.CartCoupon
	CartSummary        = domain.CartSummary
	Coupon             = domain.Coupon
	NegotiationAttempt = domain.NegotiationAttempt
	NegotiationRecord  = domain.NegotiationRecord
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	PaymentMethod      = domain.PaymentMethod
	StockViolation     = domain.StockViolation
	Address            = domain.Address
)

// CatalogService resolves priceables and exposes admin product maintenance.
type CatalogService interface {
	GetPriceable(ctx context.Context, id string) (Priceable, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	ListProducts(ctx context.Context, filter repositories.CatalogListFilter) ([]Product, error)
	UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// UpsertProductCommand carries admin product writes. A blank ProductID allocates a new id.
type UpsertProductCommand struct {
	ProductID   string
	Name        string
	UnitPrice   float64
	TaxRatePct  float64
	DiscountPct float64
	Stock       int64
	Active      bool
	IsBundle    bool
	ImageURL    string
}

// ResolveLineCommand is one cart line candidate submitted for pricing.
type ResolveLineCommand struct {
	ActorID   string
	ProductID string
	Quantity  int64
	Offer     *SelectedOffer
	AddOns    []CartAddOn
}

// ResolvedLine is the priced line plus the complementary side line an
// on_mrp/complementary offer attaches.
type ResolvedLine struct {
	Line          CartLine
	Complementary *CartLine
}

// PromotionResolver computes the effective unit price for a line candidate
// against the offers bound to its product.
type PromotionResolver interface {
	ResolveLine(ctx context.Context, cmd ResolveLineCommand) (ResolvedLine, error)
}

// NegotiationStatus reports the standing haggling state for (actor, product).
type NegotiationStatus struct {
	ProductID     string
	Attempts      []NegotiationAttempt
	AttemptsCount int
	MaxAttempts   int
	CurrentPrice  *float64
}

// NegotiationResult is the outcome of a single negotiation attempt.
type NegotiationResult struct {
	Success       bool
	Message       string
	NextPrice     float64
	AttemptsCount int
	MaxAttempts   int
}

// NegotiationService drives per (actor, product) price negotiation.
type NegotiationService interface {
	Status(ctx context.Context, actorID, productID string) (NegotiationStatus, error)
	Negotiate(ctx context.Context, actorID, productID string, offered float64) (NegotiationResult, error)
}

// LineInput is the client-submitted shape for cart line upserts.
type LineInput struct {
	ProductID string
	Quantity  int64
	Offer     *SelectedOffer
	AddOns    []CartAddOn
}

// CartService owns the mutable per-actor cart and recomputes totals on every mutation.
type CartService interface {
	GetCart(ctx context.Context, actorID string) (Cart, error)
	AddOrUpdateLines(ctx context.Context, actorID string, lines []LineInput) (Cart, error)
	SetQuantity(ctx context.Context, actorID, productID string, quantity int64) (Cart, error)
	RemoveLine(ctx context.Context, actorID, productID string) (Cart, error)
	PriceForDestination(ctx context.Context, actorID, addressID string) (Cart, error)
	ApplyCoupon(ctx context.Context, actorID, code string) (Cart, error)
	RemoveCoupon(ctx context.Context, actorID string) (Cart, error)
}

// UpsertAddressCommand carries address writes. A blank AddressID allocates a new id.
type UpsertAddressCommand struct {
	ActorID   string
	AddressID string
	Label     string
	Line1     string
	City      string
	Lat       float64
	Lng       float64
}

// AddressService manages actor delivery destinations.
type AddressService interface {
	ListAddresses(ctx context.Context, actorID string) ([]Address, error)
	UpsertAddress(ctx context.Context, cmd UpsertAddressCommand) (Address, error)
	DeleteAddress(ctx context.Context, actorID, addressID string) error
}

// ConvertCartCommand converts the actor's active cart into an order.
type ConvertCartCommand struct {
	ActorID       string
	AddressID     string
	CouponCode    string
	PaymentMethod PaymentMethod
	// PlacedBy carries the employee uid when ordering on a customer's behalf.
	PlacedBy string
}

// ConversionResult is the created order plus what the client must do next.
type ConversionResult struct {
	Order           Order
	PaymentRequired bool
	ClientSecret    string
}

// TransitionCommand moves an order through its lifecycle.
type TransitionCommand struct {
	OrderID string
	Target  OrderStatus
	ActorID string
	Reason  string
}

// OrderService converts carts into orders and drives the order lifecycle.
type OrderService interface {
	ConvertCart(ctx context.Context, cmd ConvertCartCommand) (ConversionResult, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListByActor(ctx context.Context, actorID string, filter repositories.OrderListFilter) ([]Order, error)
	ListByStatus(ctx context.Context, status OrderStatus, filter repositories.OrderListFilter) ([]Order, error)
	Transition(ctx context.Context, cmd TransitionCommand) (Order, error)
}

// UpsertOfferCommand carries admin offer writes. A blank OfferID allocates a new id.
type UpsertOfferCommand struct {
	OfferID string
	Name    string
	Type    OfferType
	Active  bool
	Items   []OfferBinding
}

// PromotionService maintains offers and coupons for the admin console.
type PromotionService interface {
	CreateOffer(ctx context.Context, cmd UpsertOfferCommand) (Offer, error)
	UpdateOffer(ctx context.Context, cmd UpsertOfferCommand) (Offer, error)
	DeleteOffer(ctx context.Context, offerID string) error
	GetOffer(ctx context.Context, offerID string) (Offer, error)
	ListOffers(ctx context.Context, filter repositories.OfferListFilter) ([]Offer, error)
	SetOfferActive(ctx context.Context, offerID string, active bool) (Offer, error)
	SetItemActive(ctx context.Context, offerID, productID string, active bool) (Offer, error)

	UpsertCoupon(ctx context.Context, coupon Coupon) (Coupon, error)
	DeleteCoupon(ctx context.Context, code string) error
	ListCoupons(ctx context.Context, activeOnly bool) ([]Coupon, error)
}

// SystemService aggregates readiness checks for the health endpoint.
type SystemService interface {
	Health(ctx context.Context) error
}

// OrderEventMessage is the payload published on order lifecycle events.
type OrderEventMessage struct {
	Event       string    `json:"event"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	ActorID     string    `json:"actorId"`
	Status      string    `json:"status"`
	Total       float64   `json:"total"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// OrderEventPublisher accepts order lifecycle events for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// OrderNotification is a user-facing push message about an order.
type OrderNotification struct {
	ActorID     string
	OrderID     string
	OrderNumber string
	Status      OrderStatus
	Title       string
	Body        string
	Metadata    map[string]string
}

// OrderNotifier delivers order notifications best-effort; failures never
// propagate into the request path.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, notification OrderNotification) (bool, error)
}
