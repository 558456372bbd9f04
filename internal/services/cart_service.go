package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/platform/keyedmutex"
	"github.com/swiftbasket/api/internal/platform/routing"
	"github.com/swiftbasket/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartResolverRequired   = errors.New("cart service: promotion resolver is required")
	errCartEngineRequired     = errors.New("cart service: pricing engine is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// CartServiceDeps wires persistence, pricing, and delivery estimation for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Resolver    PromotionResolver
	Engine      *PricingEngine
	Addresses   repositories.AddressRepository
	Coupons     repositories.CouponRepository
	Distance    routing.DistanceClient
	Origin      routing.Point
	Locks       *keyedmutex.KeyedMutex
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo      repositories.CartRepository
	resolver  PromotionResolver
	engine    *PricingEngine
	addresses repositories.AddressRepository
	coupons   repositories.CouponRepository
	distance  routing.DistanceClient
	origin    routing.Point
	locks     *keyedmutex.KeyedMutex
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Resolver == nil {
		return nil, errCartResolverRequired
	}
	if deps.Engine == nil {
		return nil, errCartEngineRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	locks := deps.Locks
	if locks == nil {
		locks = keyedmutex.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		repo:      deps.Repository,
		resolver:  deps.Resolver,
		engine:    deps.Engine,
		addresses: deps.Addresses,
		coupons:   deps.Coupons,
		distance:  deps.Distance,
		origin:    deps.Origin,
		locks:     locks,
		now:       func() time.Time { return deps.Clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

// GetCart loads the actor's cart, creating an empty active cart when absent.
func (s *cartService) GetCart(ctx context.Context, actorID string) (Cart, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Cart{}, fmt.Errorf("cart service: actor id: %w", ErrInvalidInput)
	}

	cart, err := s.repo.Get(ctx, actorID)
	if err != nil {
		if !isRepoNotFound(err) {
			return Cart{}, translateRepoError("cart service: load cart", err)
		}
		created := s.newCart(actorID)
		saved, err := s.repo.Save(ctx, created)
		if err != nil {
			return Cart{}, translateRepoError("cart service: create cart", err)
		}
		cart = saved
	}
	return cart, nil
}

// AddOrUpdateLines resolves and upserts the submitted lines as one batch. Any
// resolution failure aborts the whole batch with no partial apply.
func (s *cartService) AddOrUpdateLines(ctx context.Context, actorID string, lines []LineInput) (Cart, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Cart{}, fmt.Errorf("cart service: actor id: %w", ErrInvalidInput)
	}
	if len(lines) == 0 {
		return Cart{}, fmt.Errorf("cart service: no lines submitted: %w", ErrInvalidInput)
	}

	resolved := make([]ResolvedLine, 0, len(lines))
	for _, input := range lines {
		result, err := s.resolver.ResolveLine(ctx, ResolveLineCommand{
			ActorID:   actorID,
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			Offer:     input.Offer,
			AddOns:    input.AddOns,
		})
		if err != nil {
			return Cart{}, err
		}
		resolved = append(resolved, result)
	}

	return s.mutate(ctx, actorID, func(cart *domain.Cart) error {
		for _, line := range resolved {
			upsertLine(cart, line)
		}
		return nil
	})
}

// SetQuantity changes the quantity of an existing non-complementary line.
func (s *cartService) SetQuantity(ctx context.Context, actorID, productID string, quantity int64) (Cart, error) {
	actorID = strings.TrimSpace(actorID)
	productID = strings.TrimSpace(productID)
	if actorID == "" || productID == "" {
		return Cart{}, fmt.Errorf("cart service: actor and product ids: %w", ErrInvalidInput)
	}
	if quantity < 1 {
		return Cart{}, fmt.Errorf("cart service: quantity for %s: %w", productID, ErrInvalidInput)
	}

	return s.mutate(ctx, actorID, func(cart *domain.Cart) error {
		for i := range cart.Lines {
			line := &cart.Lines[i]
			if line.ProductID != productID || line.IsComplementary() {
				continue
			}
			line.Quantity = quantity
			line.LineTotal = float64(quantity)*line.UnitPrice + addOnsTotal(line.AddOns)
			return nil
		}
		return fmt.Errorf("cart service: %s: %w", productID, ErrProductNotInCart)
	})
}

// RemoveLine drops the product's line and cascades to any complementary line
// it triggered. Removing an absent line is a no-op.
func (s *cartService) RemoveLine(ctx context.Context, actorID, productID string) (Cart, error) {
	actorID = strings.TrimSpace(actorID)
	productID = strings.TrimSpace(productID)
	if actorID == "" || productID == "" {
		return Cart{}, fmt.Errorf("cart service: actor and product ids: %w", ErrInvalidInput)
	}

	return s.mutate(ctx, actorID, func(cart *domain.Cart) error {
		kept := cart.Lines[:0]
		for _, line := range cart.Lines {
			if line.ComplementaryOf == productID {
				continue
			}
			if line.ProductID == productID && !line.IsComplementary() {
				continue
			}
			kept = append(kept, line)
		}
		cart.Lines = kept
		return nil
	})
}

// PriceForDestination estimates delivery to the given address and persists the
// resulting fee and distance. Estimation failure degrades to a zero fee.
func (s *cartService) PriceForDestination(ctx context.Context, actorID, addressID string) (Cart, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Cart{}, fmt.Errorf("cart service: actor id: %w", ErrInvalidInput)
	}
	addressID = strings.TrimSpace(addressID)

	var (
		distanceKm  float64
		durationMin float64
		estimated   bool
	)
	if addressID != "" {
		if s.addresses == nil {
			return Cart{}, fmt.Errorf("cart service: address lookup: %w", ErrUpstreamUnavailable)
		}
		address, err := s.addresses.FindByID(ctx, actorID, addressID)
		if err != nil {
			return Cart{}, translateRepoError("cart service: address "+addressID, err)
		}

		if s.distance != nil {
			route, err := s.distance.Distance(ctx, s.origin, routing.Point{Lat: address.Lat, Lng: address.Lng})
			if err != nil {
				s.logger(ctx, "cart.delivery.estimate_failed", map[string]any{
					"actor_id":  actorID,
					"addressId": addressID,
					"error":     err.Error(),
				})
			} else {
				distanceKm = route.Meters / 1000
				durationMin = route.Seconds / 60
				estimated = true
			}
		}
	}

	return s.mutate(ctx, actorID, func(cart *domain.Cart) error {
		cart.AddressID = addressID
		cart.DistanceKm = distanceKm
		cart.DurationMin = durationMin
		cart.DeliveryEstimated = estimated
		return nil
	})
}

// ApplyCoupon evaluates the code against the current subtotal. Ineligible
// coupons attach a reason to the cart instead of failing the call.
func (s *cartService) ApplyCoupon(ctx context.Context, actorID, code string) (Cart, error) {
	actorID = strings.TrimSpace(actorID)
	code = strings.TrimSpace(code)
	if actorID == "" || code == "" {
		return Cart{}, fmt.Errorf("cart service: actor id and coupon code: %w", ErrInvalidInput)
	}
	if s.coupons == nil {
		return Cart{}, fmt.Errorf("cart service: coupon lookup: %w", ErrUpstreamUnavailable)
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	notFound := false
	if err != nil {
		if !isRepoNotFound(err) {
			return Cart{}, translateRepoError("cart service: coupon "+code, err)
		}
		notFound = true
	}

	return s.mutate(ctx, actorID, func(cart *domain.Cart) error {
		if notFound {
			cart.Coupon = &domain.CartCoupon{Code: code, Reason: CouponReasonNotFound}
			return nil
		}
		evaluated := s.engine.EvaluateCoupon(coupon, rawSubtotal(cart.Lines))
		cart.Coupon = &evaluated
		return nil
	})
}

// RemoveCoupon detaches the coupon from the cart.
func (s *cartService) RemoveCoupon(ctx context.Context, actorID string) (Cart, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return Cart{}, fmt.Errorf("cart service: actor id: %w", ErrInvalidInput)
	}

	return s.mutate(ctx, actorID, func(cart *domain.Cart) error {
		cart.Coupon = nil
		return nil
	})
}

// mutate serialises the read-mutate-reprice-save cycle per actor.
func (s *cartService) mutate(ctx context.Context, actorID string, apply func(*domain.Cart) error) (Cart, error) {
	s.locks.Lock(actorID)
	defer s.locks.Unlock(actorID)

	cart, err := s.repo.Get(ctx, actorID)
	if err != nil {
		if !isRepoNotFound(err) {
			return Cart{}, translateRepoError("cart service: load cart", err)
		}
		cart = s.newCart(actorID)
	}

	if err := apply(&cart); err != nil {
		return Cart{}, err
	}

	s.engine.Price(&cart)
	cart.UpdatedAt = s.now()

	saved, err := s.repo.Save(ctx, cart)
	if err != nil {
		return Cart{}, translateRepoError("cart service: save cart", err)
	}
	return saved, nil
}

func (s *cartService) newCart(actorID string) domain.Cart {
	now := s.now()
	return domain.Cart{
		ID:        s.newID(),
		ActorID:   actorID,
		Status:    domain.CartStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// upsertLine replaces the product's non-complementary line, drops any stale
// complementary line it previously triggered, and attaches the new one.
// Complementary lines are deduplicated by (product id, triggering product id).
func upsertLine(cart *domain.Cart, resolved ResolvedLine) {
	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.ProductID == resolved.Line.ProductID && !line.IsComplementary() {
			continue
		}
		if line.ComplementaryOf == resolved.Line.ProductID {
			continue
		}
		kept = append(kept, line)
	}
	cart.Lines = append(kept, resolved.Line)

	if resolved.Complementary != nil {
		cart.Lines = append(cart.Lines, *resolved.Complementary)
	}
}

func rawSubtotal(lines []domain.CartLine) float64 {
	var subtotal float64
	for _, line := range lines {
		subtotal += line.LineTotal
	}
	return subtotal
}
