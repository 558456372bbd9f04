package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/payments"
	"github.com/swiftbasket/api/internal/platform/keyedmutex"
	"github.com/swiftbasket/api/internal/repositories"
)

var (
	errOrderRepositoryRequired = errors.New("order service: order repository is required")
	errOrderCartsRequired      = errors.New("order service: cart repository is required")
	errOrderStockRequired      = errors.New("order service: stock repository is required")
	errOrderCountersRequired   = errors.New("order service: counter repository is required")
	errOrderEngineRequired     = errors.New("order service: pricing engine is required")
	errOrderClockRequired      = errors.New("order service: clock is required")
)

const orderNumberPrefix = "SB"

// OrderServiceDeps wires persistence, payments, and side-effect channels for order flows.
// CartLocks must be the same instance the cart service serialises its mutations
// with, so a conversion and a cart edit for one actor never interleave.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Carts       repositories.CartRepository
	Stock       repositories.StockRepository
	Counters    repositories.CounterRepository
	Coupons     repositories.CouponRepository
	Addresses   repositories.AddressRepository
	Engine      *PricingEngine
	Gateway     payments.Gateway
	Currency    string
	Publisher   OrderEventPublisher
	Notifier    OrderNotifier
	CartLocks   *keyedmutex.KeyedMutex
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type orderService struct {
	orders    repositories.OrderRepository
	carts     repositories.CartRepository
	stock     repositories.StockRepository
	counters  repositories.CounterRepository
	coupons   repositories.CouponRepository
	addresses repositories.AddressRepository
	engine    *PricingEngine
	gateway   payments.Gateway
	currency  string
	publisher OrderEventPublisher
	notifier  OrderNotifier
	cartLocks *keyedmutex.KeyedMutex
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.Carts == nil {
		return nil, errOrderCartsRequired
	}
	if deps.Stock == nil {
		return nil, errOrderStockRequired
	}
	if deps.Counters == nil {
		return nil, errOrderCountersRequired
	}
	if deps.Engine == nil {
		return nil, errOrderEngineRequired
	}
	if deps.Clock == nil {
		return nil, errOrderClockRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "INR"
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	cartLocks := deps.CartLocks
	if cartLocks == nil {
		cartLocks = keyedmutex.New()
	}

	return &orderService{
		orders:    deps.Orders,
		carts:     deps.Carts,
		stock:     deps.Stock,
		counters:  deps.Counters,
		coupons:   deps.Coupons,
		addresses: deps.Addresses,
		engine:    deps.Engine,
		gateway:   deps.Gateway,
		currency:  currency,
		publisher: deps.Publisher,
		notifier:  deps.Notifier,
		cartLocks: cartLocks,
		now:       func() time.Time { return deps.Clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

// ConvertCart freezes the actor's active cart into a pending order,
// decrementing stock atomically and rolling back on any later step failing.
// The actor's cart lock is held from the initial read through Clear so no
// concurrent cart mutation can land inside the conversion window and be wiped.
func (s *orderService) ConvertCart(ctx context.Context, cmd ConvertCartCommand) (ConversionResult, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return ConversionResult{}, fmt.Errorf("order service: actor id: %w", ErrInvalidInput)
	}
	method := cmd.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCOD
	}
	if method != domain.PaymentMethodCOD && method != domain.PaymentMethodOnline {
		return ConversionResult{}, fmt.Errorf("order service: payment method %q: %w", cmd.PaymentMethod, ErrInvalidInput)
	}

	s.cartLocks.Lock(actorID)
	result, err := s.convertLocked(ctx, cmd, actorID, method)
	s.cartLocks.Unlock(actorID)
	if err != nil {
		return ConversionResult{}, err
	}

	s.emitEvent(ctx, "order.created", result.Order)
	s.notify(ctx, result.Order, "Order placed", fmt.Sprintf("Order %s has been placed.", result.Order.Number))

	return result, nil
}

func (s *orderService) convertLocked(ctx context.Context, cmd ConvertCartCommand, actorID string, method domain.PaymentMethod) (ConversionResult, error) {
	cart, err := s.carts.Get(ctx, actorID)
	if err != nil {
		if isRepoNotFound(err) {
			return ConversionResult{}, fmt.Errorf("order service: %w", ErrNoActiveCart)
		}
		return ConversionResult{}, translateRepoError("order service: load cart", err)
	}
	if cart.IsEmpty() {
		return ConversionResult{}, fmt.Errorf("order service: %w", ErrNoActiveCart)
	}

	addressID := strings.TrimSpace(cmd.AddressID)
	if addressID == "" {
		addressID = strings.TrimSpace(cart.AddressID)
	}
	var address domain.OrderAddress
	if addressID != "" && s.addresses != nil {
		stored, err := s.addresses.FindByID(ctx, actorID, addressID)
		if err != nil {
			return ConversionResult{}, translateRepoError("order service: address "+addressID, err)
		}
		address = domain.OrderAddress{
			ID:    stored.ID,
			Label: stored.Label,
			Line1: stored.Line1,
			City:  stored.City,
			Lat:   stored.Lat,
			Lng:   stored.Lng,
		}
	}

	s.revalidateCoupon(ctx, &cart, strings.TrimSpace(cmd.CouponCode))
	s.engine.Price(&cart)

	stockLines := cartStockLines(cart)
	violations, err := s.stock.Check(ctx, stockLines)
	if err != nil {
		return ConversionResult{}, translateRepoError("order service: stock check", err)
	}
	if len(violations) > 0 {
		return ConversionResult{}, &InsufficientStockError{Violations: violations}
	}

	now := s.now()
	number, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		return ConversionResult{}, err
	}

	order := domain.Order{
		ID:            s.newID(),
		Number:        number,
		ActorID:       actorID,
		PlacedBy:      strings.TrimSpace(cmd.PlacedBy),
		Lines:         orderLinesFromCart(cart),
		Address:       address,
		Summary:       cart.Summary,
		Coupon:        cloneCartCoupon(cart.Coupon),
		DistanceKm:    cart.DistanceKm,
		Status:        domain.OrderStatusPending,
		PaymentMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var clientSecret string
	paymentRequired := method == domain.PaymentMethodOnline
	if paymentRequired {
		if s.gateway == nil {
			return ConversionResult{}, fmt.Errorf("order service: payment gateway: %w", ErrUpstreamUnavailable)
		}
		intent, err := s.gateway.CreatePaymentIntent(ctx, payments.CreateIntentRequest{
			Amount:         payments.MinorUnits(order.Summary.Total),
			Currency:       s.currency,
			ActorID:        actorID,
			OrderID:        order.ID,
			OrderNumber:    order.Number,
			IdempotencyKey: order.ID,
		})
		if err != nil {
			return ConversionResult{}, fmt.Errorf("order service: create payment intent: %w", ErrUpstreamUnavailable)
		}
		order.Payment = domain.OrderPayment{
			IntentID: intent.ID,
			Status:   string(intent.Status),
		}
		clientSecret = intent.ClientSecret
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return ConversionResult{}, translateRepoError("order service: persist order", err)
	}

	violations, err = s.stock.DecrementAll(ctx, stockLines)
	if err != nil {
		s.deleteOrder(ctx, order.ID)
		return ConversionResult{}, translateRepoError("order service: decrement stock", err)
	}
	if len(violations) > 0 {
		s.deleteOrder(ctx, order.ID)
		return ConversionResult{}, &InsufficientStockError{Violations: violations}
	}

	if err := s.carts.Clear(ctx, actorID, now); err != nil {
		s.restoreStock(ctx, order, stockLines)
		s.deleteOrder(ctx, order.ID)
		return ConversionResult{}, translateRepoError("order service: clear cart", err)
	}

	return ConversionResult{
		Order:           order,
		PaymentRequired: paymentRequired,
		ClientSecret:    clientSecret,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("order service: order id: %w", ErrInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, translateRepoError("order service: order "+orderID, err)
	}
	return order, nil
}

func (s *orderService) ListByActor(ctx context.Context, actorID string, filter repositories.OrderListFilter) ([]Order, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, fmt.Errorf("order service: actor id: %w", ErrInvalidInput)
	}
	orders, err := s.orders.ListByActor(ctx, actorID, filter)
	if err != nil {
		return nil, translateRepoError("order service: list orders", err)
	}
	return orders, nil
}

func (s *orderService) ListByStatus(ctx context.Context, status OrderStatus, filter repositories.OrderListFilter) ([]Order, error) {
	if !validOrderStatus(status) {
		return nil, fmt.Errorf("order service: status %q: %w", status, ErrInvalidInput)
	}
	orders, err := s.orders.ListByStatus(ctx, status, filter)
	if err != nil {
		return nil, translateRepoError("order service: list orders by status", err)
	}
	return orders, nil
}

// Transition moves the order to the target status, restoring stock and
// initiating refunds when the order is cancelled or rejected.
func (s *orderService) Transition(ctx context.Context, cmd TransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("order service: order id: %w", ErrInvalidInput)
	}
	if !validOrderStatus(cmd.Target) {
		return Order{}, fmt.Errorf("order service: status %q: %w", cmd.Target, ErrInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, translateRepoError("order service: order "+orderID, err)
	}
	if !transitionAllowed(order.Status, cmd.Target) {
		return Order{}, fmt.Errorf("order service: %s to %s: %w", order.Status, cmd.Target, ErrInvalidTransition)
	}

	now := s.now()
	switch cmd.Target {
	case domain.OrderStatusAccepted:
		order.PreparedAt = &now
	case domain.OrderStatusPicked:
		order.PickedAt = &now
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusCancelled, domain.OrderStatusRejected:
		// StockRestored persists with the terminal status so a replayed
		// cancellation never credits the stock a second time.
		if !order.StockRestored {
			if err := s.stock.RestoreAll(ctx, order.StockLines()); err != nil {
				return Order{}, translateRepoError("order service: restore stock", err)
			}
			order.StockRestored = true
		}
		order.CancelledAt = &now
		order.CancelReason = strings.TrimSpace(cmd.Reason)
		refund := s.refundOnCancel(ctx, order, now)
		order.Refund = &refund
	}

	order.Status = cmd.Target
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return Order{}, translateRepoError("order service: update order "+orderID, err)
	}

	s.emitEvent(ctx, "order.status_changed", order)
	title, body := statusNotification(order)
	s.notify(ctx, order, title, body)

	return order, nil
}

// refundOnCancel decides the refund outcome. A gateway failure or uncaptured
// payment never blocks the cancellation itself.
func (s *orderService) refundOnCancel(ctx context.Context, order domain.Order, now time.Time) domain.OrderRefund {
	if order.PaymentMethod != domain.PaymentMethodOnline || order.Payment.IntentID == "" {
		return domain.OrderRefund{Outcome: domain.RefundOutcomeNotRequired}
	}
	if s.gateway == nil {
		return domain.OrderRefund{Outcome: domain.RefundOutcomeFailed}
	}

	payment, err := s.gateway.GetPayment(ctx, order.Payment.IntentID)
	if err != nil {
		s.logger(ctx, "order.refund.lookup_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return domain.OrderRefund{Outcome: domain.RefundOutcomeFailed}
	}
	if !payment.Captured {
		return domain.OrderRefund{Outcome: domain.RefundOutcomeNotCaptured}
	}

	if _, err := s.gateway.Refund(ctx, payments.RefundRequest{
		IntentID:       order.Payment.IntentID,
		Reason:         "requested_by_customer",
		IdempotencyKey: order.ID + ":refund",
	}); err != nil {
		s.logger(ctx, "order.refund.failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return domain.OrderRefund{Outcome: domain.RefundOutcomeFailed}
	}

	return domain.OrderRefund{
		Refunded: true,
		Outcome:  domain.RefundOutcomeRefunded,
		Amount:   order.Summary.Total,
		At:       &now,
	}
}

// revalidateCoupon silently re-evaluates the coupon against the live cart. An
// ineligible coupon drops its discount but never blocks conversion.
func (s *orderService) revalidateCoupon(ctx context.Context, cart *domain.Cart, code string) {
	if code == "" {
		if cart.Coupon == nil || !cart.Coupon.Applied {
			return
		}
		code = cart.Coupon.Code
	}
	if s.coupons == nil {
		return
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		cart.Coupon = &domain.CartCoupon{Code: code, Reason: CouponReasonNotFound}
		return
	}
	evaluated := s.engine.EvaluateCoupon(coupon, rawSubtotal(cart.Lines))
	cart.Coupon = &evaluated
}

func (s *orderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	date := now.Format("20060102")
	seq, err := s.counters.Next(ctx, "orders-"+date)
	if err != nil {
		return "", translateRepoError("order service: order number", err)
	}
	return fmt.Sprintf("%s-%s-%06d", orderNumberPrefix, date, seq), nil
}

// deleteOrder and restoreStock are rollback steps. Their own failures are
// logged for manual reconciliation; there is no further automatic recovery.
func (s *orderService) deleteOrder(ctx context.Context, orderID string) {
	if err := s.orders.Delete(context.WithoutCancel(ctx), orderID); err != nil {
		s.logger(ctx, "order.rollback.delete_failed", map[string]any{
			"orderId": orderID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) restoreStock(ctx context.Context, order domain.Order, lines []domain.StockLine) {
	if err := s.stock.RestoreAll(context.WithoutCancel(ctx), lines); err != nil {
		s.logger(ctx, "order.rollback.restore_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) emitEvent(ctx context.Context, event string, order domain.Order) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishOrderEvent(context.WithoutCancel(ctx), OrderEventMessage{
		Event:       event,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		ActorID:     order.ActorID,
		Status:      string(order.Status),
		Total:       order.Summary.Total,
		OccurredAt:  s.now(),
	}); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"orderId": order.ID,
			"event":   event,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) notify(ctx context.Context, order domain.Order, title, body string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.NotifyOrder(context.WithoutCancel(ctx), OrderNotification{
		ActorID:     order.ActorID,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Status:      order.Status,
		Title:       title,
		Body:        body,
		Metadata: map[string]string{
			"orderId":     order.ID,
			"orderNumber": order.Number,
			"status":      string(order.Status),
		},
	}); err != nil {
		s.logger(ctx, "order.notify_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func transitionAllowed(from, to domain.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch from {
	case domain.OrderStatusPending:
		return to == domain.OrderStatusAccepted || to == domain.OrderStatusCancelled || to == domain.OrderStatusRejected
	case domain.OrderStatusAccepted:
		return to == domain.OrderStatusPicked || to == domain.OrderStatusCancelled || to == domain.OrderStatusRejected
	case domain.OrderStatusPicked:
		return to == domain.OrderStatusDelivered
	}
	return false
}

func validOrderStatus(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusAccepted, domain.OrderStatusPicked,
		domain.OrderStatusDelivered, domain.OrderStatusCancelled, domain.OrderStatusRejected:
		return true
	}
	return false
}

func statusNotification(order domain.Order) (string, string) {
	switch order.Status {
	case domain.OrderStatusAccepted:
		return "Order accepted", fmt.Sprintf("Order %s is being prepared.", order.Number)
	case domain.OrderStatusPicked:
		return "Order picked up", fmt.Sprintf("Order %s is on its way.", order.Number)
	case domain.OrderStatusDelivered:
		return "Order delivered", fmt.Sprintf("Order %s has been delivered. Enjoy!", order.Number)
	case domain.OrderStatusCancelled:
		return "Order cancelled", fmt.Sprintf("Order %s has been cancelled.", order.Number)
	case domain.OrderStatusRejected:
		return "Order rejected", fmt.Sprintf("Order %s could not be fulfilled.", order.Number)
	default:
		return "Order update", fmt.Sprintf("Order %s was updated.", order.Number)
	}
}

func orderLinesFromCart(cart domain.Cart) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID:       line.ProductID,
			Name:            line.Name,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			TaxRatePct:      line.TaxRatePct,
			LineTotal:       line.LineTotal,
			ComplementaryOf: line.ComplementaryOf,
		})
	}
	return lines
}

func cartStockLines(cart domain.Cart) []domain.StockLine {
	lines := make([]domain.StockLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, domain.StockLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

func cloneCartCoupon(coupon *domain.CartCoupon) *domain.CartCoupon {
	if coupon == nil {
		return nil
	}
	dup := *coupon
	return &dup
}
