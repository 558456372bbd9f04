package firestore

import (
	"context"
	"errors"
	"fmt"

	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
	"github.com/swiftbasket/api/internal/repositories"
)

// Registry bundles every Firestore-backed repository behind the
// repositories.Registry interface.
type Registry struct {
	provider *pfirestore.Provider

	catalog      *CatalogRepository
	stock        *StockRepository
	carts        *CartRepository
	offers       *OfferRepository
	coupons      *CouponRepository
	negotiations *NegotiationRepository
	orders       *OrderRepository
	addresses    *AddressRepository
	counters     *CounterRepository
	health       *HealthRepository
}

// NewRegistry constructs the full repository set over one shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	reg := &Registry{provider: provider}

	var err error
	if reg.catalog, err = NewCatalogRepository(provider); err != nil {
		return nil, fmt.Errorf("catalog repository: %w", err)
	}
	if reg.stock, err = NewStockRepository(provider); err != nil {
		return nil, fmt.Errorf("stock repository: %w", err)
	}
	if reg.carts, err = NewCartRepository(provider); err != nil {
		return nil, fmt.Errorf("cart repository: %w", err)
	}
	if reg.offers, err = NewOfferRepository(provider); err != nil {
		return nil, fmt.Errorf("offer repository: %w", err)
	}
	if reg.coupons, err = NewCouponRepository(provider); err != nil {
		return nil, fmt.Errorf("coupon repository: %w", err)
	}
	if reg.negotiations, err = NewNegotiationRepository(provider); err != nil {
		return nil, fmt.Errorf("negotiation repository: %w", err)
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, fmt.Errorf("order repository: %w", err)
	}
	if reg.addresses, err = NewAddressRepository(provider); err != nil {
		return nil, fmt.Errorf("address repository: %w", err)
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, fmt.Errorf("counter repository: %w", err)
	}
	if reg.health, err = NewHealthRepository(provider); err != nil {
		return nil, fmt.Errorf("health repository: %w", err)
	}

	return reg, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close()
}

// Catalog returns the catalog repository.
func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }

// Stock returns the stock repository.
func (r *Registry) Stock() repositories.StockRepository { return r.stock }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Offers returns the offer repository.
func (r *Registry) Offers() repositories.OfferRepository { return r.offers }

// Coupons returns the coupon repository.
func (r *Registry) Coupons() repositories.CouponRepository { return r.coupons }

// Negotiations returns the negotiation repository.
func (r *Registry) Negotiations() repositories.NegotiationRepository { return r.negotiations }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Addresses returns the address repository.
func (r *Registry) Addresses() repositories.AddressRepository { return r.addresses }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health returns the health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }
