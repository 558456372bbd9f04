package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/payments"
	"github.com/swiftbasket/api/internal/platform/routing"
	"github.com/swiftbasket/api/internal/repositories"
)

var errStubNotImplemented = errors.New("stub: not implemented")

// stubRepoError satisfies repositories.RepositoryError for classification tests.
type stubRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return "stub repository error"
}

func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

func repoNotFound() error { return &stubRepoError{msg: "not found", notFound: true} }

type stubCatalogRepo struct {
	upsertFn        func(ctx context.Context, product domain.Product) (domain.Product, error)
	findFn          func(ctx context.Context, productID string) (domain.Product, error)
	listFn          func(ctx context.Context, filter repositories.CatalogListFilter) ([]domain.Product, error)
	deleteFn        func(ctx context.Context, productID string) error
	findPriceableFn func(ctx context.Context, id string) (domain.Priceable, error)
	setDiscountFn   func(ctx context.Context, productID string, pct float64, updatedAt time.Time) error
}

func (s *stubCatalogRepo) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.upsertFn == nil {
		return domain.Product{}, errStubNotImplemented
	}
	return s.upsertFn(ctx, product)
}

func (s *stubCatalogRepo) FindProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn == nil {
		return domain.Product{}, repoNotFound()
	}
	return s.findFn(ctx, productID)
}

func (s *stubCatalogRepo) ListProducts(ctx context.Context, filter repositories.CatalogListFilter) ([]domain.Product, error) {
	if s.listFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listFn(ctx, filter)
}

func (s *stubCatalogRepo) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteFn == nil {
		return errStubNotImplemented
	}
	return s.deleteFn(ctx, productID)
}

func (s *stubCatalogRepo) FindPriceable(ctx context.Context, id string) (domain.Priceable, error) {
	if s.findPriceableFn == nil {
		return domain.Priceable{}, repoNotFound()
	}
	return s.findPriceableFn(ctx, id)
}

func (s *stubCatalogRepo) SetDiscountPct(ctx context.Context, productID string, pct float64, updatedAt time.Time) error {
	if s.setDiscountFn == nil {
		return errStubNotImplemented
	}
	return s.setDiscountFn(ctx, productID, pct, updatedAt)
}

type stubStockRepo struct {
	checkFn     func(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error)
	decrementFn func(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error)
	restoreFn   func(ctx context.Context, lines []domain.StockLine) error
}

func (s *stubStockRepo) Check(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error) {
	if s.checkFn == nil {
		return nil, nil
	}
	return s.checkFn(ctx, lines)
}

func (s *stubStockRepo) DecrementAll(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error) {
	if s.decrementFn == nil {
		return nil, nil
	}
	return s.decrementFn(ctx, lines)
}

func (s *stubStockRepo) RestoreAll(ctx context.Context, lines []domain.StockLine) error {
	if s.restoreFn == nil {
		return nil
	}
	return s.restoreFn(ctx, lines)
}

type stubCartRepo struct {
	getFn   func(ctx context.Context, actorID string) (domain.Cart, error)
	saveFn  func(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	clearFn func(ctx context.Context, actorID string, clearedAt time.Time) error
}

func (s *stubCartRepo) Get(ctx context.Context, actorID string) (domain.Cart, error) {
	if s.getFn == nil {
		return domain.Cart{}, repoNotFound()
	}
	return s.getFn(ctx, actorID)
}

func (s *stubCartRepo) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if s.saveFn == nil {
		return cart, nil
	}
	return s.saveFn(ctx, cart)
}

func (s *stubCartRepo) Clear(ctx context.Context, actorID string, clearedAt time.Time) error {
	if s.clearFn == nil {
		return nil
	}
	return s.clearFn(ctx, actorID, clearedAt)
}

type stubOfferRepo struct {
	insertFn         func(ctx context.Context, offer domain.Offer) error
	updateFn         func(ctx context.Context, offer domain.Offer) error
	deleteFn         func(ctx context.Context, offerID string) error
	findFn           func(ctx context.Context, offerID string) (domain.Offer, error)
	listFn           func(ctx context.Context, filter repositories.OfferListFilter) ([]domain.Offer, error)
	findForProductFn func(ctx context.Context, productID string) ([]domain.Offer, error)
}

func (s *stubOfferRepo) Insert(ctx context.Context, offer domain.Offer) error {
	if s.insertFn == nil {
		return errStubNotImplemented
	}
	return s.insertFn(ctx, offer)
}

func (s *stubOfferRepo) Update(ctx context.Context, offer domain.Offer) error {
	if s.updateFn == nil {
		return errStubNotImplemented
	}
	return s.updateFn(ctx, offer)
}

func (s *stubOfferRepo) Delete(ctx context.Context, offerID string) error {
	if s.deleteFn == nil {
		return errStubNotImplemented
	}
	return s.deleteFn(ctx, offerID)
}

func (s *stubOfferRepo) FindByID(ctx context.Context, offerID string) (domain.Offer, error) {
	if s.findFn == nil {
		return domain.Offer{}, repoNotFound()
	}
	return s.findFn(ctx, offerID)
}

func (s *stubOfferRepo) List(ctx context.Context, filter repositories.OfferListFilter) ([]domain.Offer, error) {
	if s.listFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listFn(ctx, filter)
}

func (s *stubOfferRepo) FindActiveForProduct(ctx context.Context, productID string) ([]domain.Offer, error) {
	if s.findForProductFn == nil {
		return nil, nil
	}
	return s.findForProductFn(ctx, productID)
}

type stubCouponRepo struct {
	upsertFn func(ctx context.Context, coupon domain.Coupon) error
	deleteFn func(ctx context.Context, code string) error
	findFn   func(ctx context.Context, code string) (domain.Coupon, error)
	listFn   func(ctx context.Context, activeOnly bool) ([]domain.Coupon, error)
}

func (s *stubCouponRepo) Upsert(ctx context.Context, coupon domain.Coupon) error {
	if s.upsertFn == nil {
		return errStubNotImplemented
	}
	return s.upsertFn(ctx, coupon)
}

func (s *stubCouponRepo) Delete(ctx context.Context, code string) error {
	if s.deleteFn == nil {
		return errStubNotImplemented
	}
	return s.deleteFn(ctx, code)
}

func (s *stubCouponRepo) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if s.findFn == nil {
		return domain.Coupon{}, repoNotFound()
	}
	return s.findFn(ctx, code)
}

func (s *stubCouponRepo) List(ctx context.Context, activeOnly bool) ([]domain.Coupon, error) {
	if s.listFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listFn(ctx, activeOnly)
}

type stubNegotiationRepo struct {
	findFn func(ctx context.Context, actorID, productID string) (domain.NegotiationRecord, error)
	saveFn func(ctx context.Context, record domain.NegotiationRecord) error
}

func (s *stubNegotiationRepo) Find(ctx context.Context, actorID, productID string) (domain.NegotiationRecord, error) {
	if s.findFn == nil {
		return domain.NegotiationRecord{}, repoNotFound()
	}
	return s.findFn(ctx, actorID, productID)
}

func (s *stubNegotiationRepo) Save(ctx context.Context, record domain.NegotiationRecord) error {
	if s.saveFn == nil {
		return nil
	}
	return s.saveFn(ctx, record)
}

type stubOrderRepo struct {
	insertFn       func(ctx context.Context, order domain.Order) error
	updateFn       func(ctx context.Context, order domain.Order) error
	deleteFn       func(ctx context.Context, orderID string) error
	findFn         func(ctx context.Context, orderID string) (domain.Order, error)
	listByActorFn  func(ctx context.Context, actorID string, filter repositories.OrderListFilter) ([]domain.Order, error)
	listByStatusFn func(ctx context.Context, status domain.OrderStatus, filter repositories.OrderListFilter) ([]domain.Order, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, order)
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, order)
}

func (s *stubOrderRepo) Delete(ctx context.Context, orderID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, orderID)
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn == nil {
		return domain.Order{}, repoNotFound()
	}
	return s.findFn(ctx, orderID)
}

func (s *stubOrderRepo) ListByActor(ctx context.Context, actorID string, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listByActorFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listByActorFn(ctx, actorID, filter)
}

func (s *stubOrderRepo) ListByStatus(ctx context.Context, status domain.OrderStatus, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listByStatusFn == nil {
		return nil, errStubNotImplemented
	}
	return s.listByStatusFn(ctx, status, filter)
}

type stubAddressRepo struct {
	upsertFn func(ctx context.Context, address domain.Address) (domain.Address, error)
	deleteFn func(ctx context.Context, actorID, addressID string) error
	findFn   func(ctx context.Context, actorID, addressID string) (domain.Address, error)
	listFn   func(ctx context.Context, actorID string) ([]domain.Address, error)
}

func (s *stubAddressRepo) Upsert(ctx context.Context, address domain.Address) (domain.Address, error) {
	if s.upsertFn == nil {
		return address, nil
	}
	return s.upsertFn(ctx, address)
}

func (s *stubAddressRepo) Delete(ctx context.Context, actorID, addressID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, actorID, addressID)
}

func (s *stubAddressRepo) FindByID(ctx context.Context, actorID, addressID string) (domain.Address, error) {
	if s.findFn == nil {
		return domain.Address{}, repoNotFound()
	}
	return s.findFn(ctx, actorID, addressID)
}

func (s *stubAddressRepo) ListByActor(ctx context.Context, actorID string) ([]domain.Address, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, actorID)
}

type stubCounterRepo struct {
	nextFn func(ctx context.Context, counterID string) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string) (int64, error) {
	if s.nextFn == nil {
		return 1, nil
	}
	return s.nextFn(ctx, counterID)
}

type stubPriceables struct {
	getFn func(ctx context.Context, id string) (domain.Priceable, error)
}

func (s *stubPriceables) GetPriceable(ctx context.Context, id string) (domain.Priceable, error) {
	if s.getFn == nil {
		return domain.Priceable{}, repoNotFound()
	}
	return s.getFn(ctx, id)
}

type stubResolver struct {
	resolveFn func(ctx context.Context, cmd ResolveLineCommand) (ResolvedLine, error)
}

func (s *stubResolver) ResolveLine(ctx context.Context, cmd ResolveLineCommand) (ResolvedLine, error) {
	if s.resolveFn == nil {
		return ResolvedLine{}, errStubNotImplemented
	}
	return s.resolveFn(ctx, cmd)
}

type stubNegotiationReader struct {
	statusFn func(ctx context.Context, actorID, productID string) (NegotiationStatus, error)
}

func (s *stubNegotiationReader) Status(ctx context.Context, actorID, productID string) (NegotiationStatus, error) {
	if s.statusFn == nil {
		return NegotiationStatus{}, nil
	}
	return s.statusFn(ctx, actorID, productID)
}

type stubGateway struct {
	createFn func(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error)
	getFn    func(ctx context.Context, intentID string) (payments.Payment, error)
	refundFn func(ctx context.Context, req payments.RefundRequest) (payments.Payment, error)
}

func (s *stubGateway) CreatePaymentIntent(ctx context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
	if s.createFn == nil {
		return payments.Intent{}, errStubNotImplemented
	}
	return s.createFn(ctx, req)
}

func (s *stubGateway) GetPayment(ctx context.Context, intentID string) (payments.Payment, error) {
	if s.getFn == nil {
		return payments.Payment{}, errStubNotImplemented
	}
	return s.getFn(ctx, intentID)
}

func (s *stubGateway) Refund(ctx context.Context, req payments.RefundRequest) (payments.Payment, error) {
	if s.refundFn == nil {
		return payments.Payment{}, errStubNotImplemented
	}
	return s.refundFn(ctx, req)
}

type stubPublisher struct {
	publishFn func(ctx context.Context, message OrderEventMessage) (string, error)
}

func (s *stubPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	if s.publishFn == nil {
		return "msg-1", nil
	}
	return s.publishFn(ctx, message)
}

type stubNotifier struct {
	notifyFn func(ctx context.Context, notification OrderNotification) (bool, error)
}

func (s *stubNotifier) NotifyOrder(ctx context.Context, notification OrderNotification) (bool, error) {
	if s.notifyFn == nil {
		return true, nil
	}
	return s.notifyFn(ctx, notification)
}

type stubDistanceClient struct {
	distanceFn func(ctx context.Context, origin, dest routing.Point) (routing.Route, error)
}

func (s *stubDistanceClient) Distance(ctx context.Context, origin, dest routing.Point) (routing.Route, error) {
	if s.distanceFn == nil {
		return routing.Route{}, errStubNotImplemented
	}
	return s.distanceFn(ctx, origin, dest)
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
