package repositories

import (
	"context"
	"time"

	domain "github.com/swiftbasket/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Catalog() CatalogRepository
	Stock() StockRepository
	Carts() CartRepository
	Offers() OfferRepository
	Coupons() CouponRepository
	Negotiations() NegotiationRepository
	Orders() OrderRepository
	Addresses() AddressRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CatalogRepository persists products and bundles. Both share the priceable shape.
type CatalogRepository interface {
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	FindProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, filter CatalogListFilter) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error

	// FindPriceable resolves a product or bundle by id into the pricing read model.
	FindPriceable(ctx context.Context, id string) (domain.Priceable, error)

	// SetDiscountPct updates the standing no-offer discount on a product.
	SetDiscountPct(ctx context.Context, productID string, pct float64, updatedAt time.Time) error
}

// CatalogListFilter narrows product listings.
type CatalogListFilter struct {
	ActiveOnly  bool
	BundlesOnly bool
	Limit       int
}

// StockRepository mutates per-product stock with transactional guarantees.
type StockRepository interface {
	// Check reads current stock without mutating, returning every line whose
	// requested quantity exceeds availability.
	Check(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error)

	// DecrementAll atomically decrements stock for all lines. When any line
	// cannot be satisfied no decrement is applied and all violations are
	// returned.
	DecrementAll(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error)

	// RestoreAll adds quantities back unconditionally, recreating stock records
	// for products that have been removed since the order was placed.
	RestoreAll(ctx context.Context, lines []domain.StockLine) error
}

// CartRepository owns per-actor cart persistence with optimistic locking.
type CartRepository interface {
	Get(ctx context.Context, actorID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Clear(ctx context.Context, actorID string, clearedAt time.Time) error
}

// OfferRepository maintains promotion definitions and their product bindings.
type OfferRepository interface {
	Insert(ctx context.Context, offer domain.Offer) error
	Update(ctx context.Context, offer domain.Offer) error
	Delete(ctx context.Context, offerID string) error
	FindByID(ctx context.Context, offerID string) (domain.Offer, error)
	List(ctx context.Context, filter OfferListFilter) ([]domain.Offer, error)

	// FindActiveForProduct returns active offers carrying an active binding for
	// the product.
	FindActiveForProduct(ctx context.Context, productID string) ([]domain.Offer, error)
}

// OfferListFilter narrows offer listings.
type OfferListFilter struct {
	Type       domain.OfferType
	ActiveOnly bool
	Limit      int
}

// CouponRepository stores coupon definitions evaluated against cart subtotals.
type CouponRepository interface {
	Upsert(ctx context.Context, coupon domain.Coupon) error
	Delete(ctx context.Context, code string) error
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Coupon, error)
}

// NegotiationRepository stores the append-only attempt history per (actor, product).
type NegotiationRepository interface {
	Find(ctx context.Context, actorID, productID string) (domain.NegotiationRecord, error)
	Save(ctx context.Context, record domain.NegotiationRecord) error
}

// OrderRepository persists order documents and query helpers for actors and staff.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByActor(ctx context.Context, actorID string, filter OrderListFilter) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, filter OrderListFilter) ([]domain.Order, error)
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Limit int
}

// AddressRepository stores actor delivery destinations.
type AddressRepository interface {
	Upsert(ctx context.Context, address domain.Address) (domain.Address, error)
	Delete(ctx context.Context, actorID, addressID string) error
	FindByID(ctx context.Context, actorID, addressID string) (domain.Address, error)
	ListByActor(ctx context.Context, actorID string) ([]domain.Address, error)
}

// CounterRepository allocates monotonically increasing sequence numbers.
type CounterRepository interface {
	// Next atomically increments the named counter and returns the new value.
	Next(ctx context.Context, counterID string) (int64, error)
}

// HealthRepository verifies backend connectivity for readiness probes.
type HealthRepository interface {
	Ping(ctx context.Context) error
}
