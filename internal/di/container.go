package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/swiftbasket/api/internal/payments"
	"github.com/swiftbasket/api/internal/platform/config"
	"github.com/swiftbasket/api/internal/platform/keyedmutex"
	"github.com/swiftbasket/api/internal/platform/observability"
	"github.com/swiftbasket/api/internal/platform/routing"
	"github.com/swiftbasket/api/internal/repositories"
	"github.com/swiftbasket/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog      services.CatalogService
	Cart         services.CartService
	Negotiations services.NegotiationService
	Orders       services.OrderService
	Promotions   services.PromotionService
	Addresses    services.AddressService
	System       services.SystemService
}

// Infrastructure carries the external clients the service layer depends on.
// Gateway, Publisher, Notifier, and Distance may be nil when the deployment
// does not configure the backing system; the affected features degrade
// rather than fail construction.
type Infrastructure struct {
	Gateway   payments.Gateway
	Publisher services.OrderEventPublisher
	Notifier  services.OrderNotifier
	Distance  routing.DistanceClient
	Logger    func(ctx context.Context, event string, fields map[string]any)
	Clock     func() time.Time
}

// Container wires repositories, services, and external infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries and stub infrastructure.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, cfg, reg, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (Services, error) {
	var svc Services

	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := infra.Logger
	if logger == nil {
		logger = observability.ServiceLogger()
	}

	// Cart and order services share one keyed mutex so conversion and cart
	// mutations for the same actor serialise against each other.
	cartLocks := keyedmutex.New()

	engine := services.NewPricingEngine(services.FeePolicy{
		PlatformFee:       cfg.Pricing.PlatformFee,
		PerKmRate:         cfg.Pricing.PerKmRate,
		FreeDistanceKm:    cfg.Pricing.FreeDistanceKm,
		FreeDeliveryAbove: cfg.Pricing.FreeDeliveryAbove,
	})

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: reg.Catalog(),
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	negotiationSvc, err := services.NewNegotiationService(services.NegotiationServiceDeps{
		Repository: reg.Negotiations(),
		Offers:     reg.Offers(),
		Priceables: catalogSvc,
		Locks:      keyedmutex.New(),
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build negotiation service: %w", err)
	}
	svc.Negotiations = negotiationSvc

	resolver, err := services.NewPromotionResolver(services.PromotionResolverDeps{
		Priceables:   catalogSvc,
		Offers:       reg.Offers(),
		Negotiations: negotiationSvc,
		Logger:       logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build promotion resolver: %w", err)
	}

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Resolver:   resolver,
		Engine:     engine,
		Addresses:  reg.Addresses(),
		Coupons:    reg.Coupons(),
		Distance:   infra.Distance,
		Origin:     routing.Point{Lat: cfg.Routing.OriginLat, Lng: cfg.Routing.OriginLng},
		Locks:      cartLocks,
		Clock:      clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:    reg.Orders(),
		Carts:     reg.Carts(),
		Stock:     reg.Stock(),
		Counters:  reg.Counters(),
		Coupons:   reg.Coupons(),
		Addresses: reg.Addresses(),
		Engine:    engine,
		Gateway:   infra.Gateway,
		Currency:  cfg.Stripe.Currency,
		Publisher: infra.Publisher,
		Notifier:  infra.Notifier,
		CartLocks: cartLocks,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	promotionSvc, err := services.NewPromotionService(services.PromotionServiceDeps{
		Offers:  reg.Offers(),
		Coupons: reg.Coupons(),
		Catalog: reg.Catalog(),
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build promotion service: %w", err)
	}
	svc.Promotions = promotionSvc

	addressSvc, err := services.NewAddressService(services.AddressServiceDeps{
		Repository: reg.Addresses(),
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build address service: %w", err)
	}
	svc.Addresses = addressSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		Health: reg.Health(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}
