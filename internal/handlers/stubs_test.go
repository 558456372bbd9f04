package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/swiftbasket/api/internal/platform/auth"
	"github.com/swiftbasket/api/internal/repositories"
	"github.com/swiftbasket/api/internal/services"
)

var errStubNotImplemented = errors.New("stub: not implemented")

type stubCartService struct {
	getFn         func(ctx context.Context, actorID string) (services.Cart, error)
	addLinesFn    func(ctx context.Context, actorID string, lines []services.LineInput) (services.Cart, error)
	setQuantityFn func(ctx context.Context, actorID, productID string, quantity int64) (services.Cart, error)
	removeLineFn  func(ctx context.Context, actorID, productID string) (services.Cart, error)
	priceFn       func(ctx context.Context, actorID, addressID string) (services.Cart, error)
	applyFn       func(ctx context.Context, actorID, code string) (services.Cart, error)
	removeFn      func(ctx context.Context, actorID string) (services.Cart, error)
}

func (s *stubCartService) GetCart(ctx context.Context, actorID string) (services.Cart, error) {
	if s.getFn == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.getFn(ctx, actorID)
}

func (s *stubCartService) AddOrUpdateLines(ctx context.Context, actorID string, lines []services.LineInput) (services.Cart, error) {
	if s.addLinesFn == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.addLinesFn(ctx, actorID, lines)
}

func (s *stubCartService) SetQuantity(ctx context.Context, actorID, productID string, quantity int64) (services.Cart, error) {
	if s.setQuantityFn == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.setQuantityFn(ctx, actorID, productID, quantity)
}

func (s *stubCartService) RemoveLine(ctx context.Context, actorID, productID string) (services.Cart, error) {
	if s.removeLineFn == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.removeLineFn(ctx, actorID, productID)
}

func (s *stubCartService) PriceForDestination(ctx context.Context, actorID, addressID string) (services.Cart, error) {
	if s.priceFn == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.priceFn(ctx, actorID, addressID)
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, actorID, code string) (services.Cart, error) {
	if s.applyFn == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.applyFn(ctx, actorID, code)
}

func (s *stubCartService) RemoveCoupon(ctx context.Context, actorID string) (services.Cart, error) {
	if s.removeFn == nil {
		return services.Cart{}, errStubNotImplemented
	}
	return s.removeFn(ctx, actorID)
}

type stubOrderService struct {
	convertFn      func(ctx context.Context, cmd services.ConvertCartCommand) (services.ConversionResult, error)
	getFn          func(ctx context.Context, orderID string) (services.Order, error)
	listByActorFn  func(ctx context.Context, actorID string, filter repositories.OrderListFilter) ([]services.Order, error)
	listByStatusFn func(ctx context.Context, status services.OrderStatus, filter repositories.OrderListFilter) ([]services.Order, error)
	transitionFn   func(ctx context.Context, cmd services.TransitionCommand) (services.Order, error)
}

func (s *stubOrderService) ConvertCart(ctx context.Context, cmd services.ConvertCartCommand) (services.ConversionResult, error) {
	if s.convertFn == nil {
		return services.ConversionResult{}, errStubNotImplemented
	}
	return s.convertFn(ctx, cmd)
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (services.Order, error) {
	if s.getFn == nil {
		return services.Order{}, errStubNotImplemented
	}
	return s.getFn(ctx, orderID)
}

func (s *stubOrderService) ListByActor(ctx context.Context, actorID string, filter repositories.OrderListFilter) ([]services.Order, error) {
	if s.listByActorFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listByActorFn(ctx, actorID, filter)
}

func (s *stubOrderService) ListByStatus(ctx context.Context, status services.OrderStatus, filter repositories.OrderListFilter) ([]services.Order, error) {
	if s.listByStatusFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listByStatusFn(ctx, status, filter)
}

func (s *stubOrderService) Transition(ctx context.Context, cmd services.TransitionCommand) (services.Order, error) {
	if s.transitionFn == nil {
		return services.Order{}, errStubNotImplemented
	}
	return s.transitionFn(ctx, cmd)
}

type stubNegotiationService struct {
	statusFn    func(ctx context.Context, actorID, productID string) (services.NegotiationStatus, error)
	negotiateFn func(ctx context.Context, actorID, productID string, offered float64) (services.NegotiationResult, error)
}

func (s *stubNegotiationService) Status(ctx context.Context, actorID, productID string) (services.NegotiationStatus, error) {
	if s.statusFn == nil {
		return services.NegotiationStatus{}, errStubNotImplemented
	}
	return s.statusFn(ctx, actorID, productID)
}

func (s *stubNegotiationService) Negotiate(ctx context.Context, actorID, productID string, offered float64) (services.NegotiationResult, error) {
	if s.negotiateFn == nil {
		return services.NegotiationResult{}, errStubNotImplemented
	}
	return s.negotiateFn(ctx, actorID, productID, offered)
}

type stubCatalogService struct {
	getPriceableFn func(ctx context.Context, id string) (services.Priceable, error)
	getProductFn   func(ctx context.Context, productID string) (services.Product, error)
	listFn         func(ctx context.Context, filter repositories.CatalogListFilter) ([]services.Product, error)
	upsertFn       func(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error)
	deleteFn       func(ctx context.Context, productID string) error
}

func (s *stubCatalogService) GetPriceable(ctx context.Context, id string) (services.Priceable, error) {
	if s.getPriceableFn == nil {
		return services.Priceable{}, errStubNotImplemented
	}
	return s.getPriceableFn(ctx, id)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (services.Product, error) {
	if s.getProductFn == nil {
		return services.Product{}, errStubNotImplemented
	}
	return s.getProductFn(ctx, productID)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter repositories.CatalogListFilter) ([]services.Product, error) {
	if s.listFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listFn(ctx, filter)
}

func (s *stubCatalogService) UpsertProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.upsertFn == nil {
		return services.Product{}, errStubNotImplemented
	}
	return s.upsertFn(ctx, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteFn == nil {
		return errStubNotImplemented
	}
	return s.deleteFn(ctx, productID)
}

type stubPromotionService struct {
	createOfferFn    func(ctx context.Context, cmd services.UpsertOfferCommand) (services.Offer, error)
	updateOfferFn    func(ctx context.Context, cmd services.UpsertOfferCommand) (services.Offer, error)
	deleteOfferFn    func(ctx context.Context, offerID string) error
	getOfferFn       func(ctx context.Context, offerID string) (services.Offer, error)
	listOffersFn     func(ctx context.Context, filter repositories.OfferListFilter) ([]services.Offer, error)
	setOfferActiveFn func(ctx context.Context, offerID string, active bool) (services.Offer, error)
	setItemActiveFn  func(ctx context.Context, offerID, productID string, active bool) (services.Offer, error)
	upsertCouponFn   func(ctx context.Context, coupon services.Coupon) (services.Coupon, error)
	deleteCouponFn   func(ctx context.Context, code string) error
	listCouponsFn    func(ctx context.Context, activeOnly bool) ([]services.Coupon, error)
}

func (s *stubPromotionService) CreateOffer(ctx context.Context, cmd services.UpsertOfferCommand) (services.Offer, error) {
	if s.createOfferFn == nil {
		return services.Offer{}, errStubNotImplemented
	}
	return s.createOfferFn(ctx, cmd)
}

func (s *stubPromotionService) UpdateOffer(ctx context.Context, cmd services.UpsertOfferCommand) (services.Offer, error) {
	if s.updateOfferFn == nil {
		return services.Offer{}, errStubNotImplemented
	}
	return s.updateOfferFn(ctx, cmd)
}

func (s *stubPromotionService) DeleteOffer(ctx context.Context, offerID string) error {
	if s.deleteOfferFn == nil {
		return errStubNotImplemented
	}
	return s.deleteOfferFn(ctx, offerID)
}

func (s *stubPromotionService) GetOffer(ctx context.Context, offerID string) (services.Offer, error) {
	if s.getOfferFn == nil {
		return services.Offer{}, errStubNotImplemented
	}
	return s.getOfferFn(ctx, offerID)
}

func (s *stubPromotionService) ListOffers(ctx context.Context, filter repositories.OfferListFilter) ([]services.Offer, error) {
	if s.listOffersFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listOffersFn(ctx, filter)
}

func (s *stubPromotionService) SetOfferActive(ctx context.Context, offerID string, active bool) (services.Offer, error) {
	if s.setOfferActiveFn == nil {
		return services.Offer{}, errStubNotImplemented
	}
	return s.setOfferActiveFn(ctx, offerID, active)
}

func (s *stubPromotionService) SetItemActive(ctx context.Context, offerID, productID string, active bool) (services.Offer, error) {
	if s.setItemActiveFn == nil {
		return services.Offer{}, errStubNotImplemented
	}
	return s.setItemActiveFn(ctx, offerID, productID, active)
}

func (s *stubPromotionService) UpsertCoupon(ctx context.Context, coupon services.Coupon) (services.Coupon, error) {
	if s.upsertCouponFn == nil {
		return services.Coupon{}, errStubNotImplemented
	}
	return s.upsertCouponFn(ctx, coupon)
}

func (s *stubPromotionService) DeleteCoupon(ctx context.Context, code string) error {
	if s.deleteCouponFn == nil {
		return errStubNotImplemented
	}
	return s.deleteCouponFn(ctx, code)
}

func (s *stubPromotionService) ListCoupons(ctx context.Context, activeOnly bool) ([]services.Coupon, error) {
	if s.listCouponsFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listCouponsFn(ctx, activeOnly)
}

type stubSystemService struct {
	healthFn func(ctx context.Context) error
}

func (s *stubSystemService) Health(ctx context.Context) error {
	if s.healthFn == nil {
		return nil
	}
	return s.healthFn(ctx)
}

func authedRequest(method, target string, body string, uid string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid}))
	}
	return req
}

func serve(t *testing.T, register func(chi.Router), req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	register(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
