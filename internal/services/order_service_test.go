package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/payments"
	"github.com/swiftbasket/api/internal/platform/keyedmutex"
)

type orderFixture struct {
	service OrderService

	carts   map[string]domain.Cart
	orders  map[string]domain.Order
	stock   map[string]int64
	cleared int
	events  []OrderEventMessage
	pushes  []OrderNotification
}

func newOrderFixture(t *testing.T, deps OrderServiceDeps) *orderFixture {
	t.Helper()

	fixture := &orderFixture{
		carts:  make(map[string]domain.Cart),
		orders: make(map[string]domain.Order),
		stock:  make(map[string]int64),
	}

	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{
			insertFn: func(_ context.Context, order domain.Order) error {
				fixture.orders[order.ID] = order
				return nil
			},
			updateFn: func(_ context.Context, order domain.Order) error {
				fixture.orders[order.ID] = order
				return nil
			},
			deleteFn: func(_ context.Context, orderID string) error {
				delete(fixture.orders, orderID)
				return nil
			},
			findFn: func(_ context.Context, orderID string) (domain.Order, error) {
				order, ok := fixture.orders[orderID]
				if !ok {
					return domain.Order{}, repoNotFound()
				}
				return order, nil
			},
		}
	}
	if deps.Carts == nil {
		deps.Carts = &stubCartRepo{
			getFn: func(_ context.Context, actorID string) (domain.Cart, error) {
				cart, ok := fixture.carts[actorID]
				if !ok {
					return domain.Cart{}, repoNotFound()
				}
				return cart, nil
			},
			clearFn: func(_ context.Context, actorID string, _ time.Time) error {
				fixture.cleared++
				cart := fixture.carts[actorID]
				cart.Lines = nil
				cart.Coupon = nil
				cart.Summary = domain.CartSummary{}
				fixture.carts[actorID] = cart
				return nil
			},
		}
	}
	if deps.Stock == nil {
		deps.Stock = &stubStockRepo{
			checkFn: func(_ context.Context, lines []domain.StockLine) ([]domain.StockViolation, error) {
				return stockViolations(fixture.stock, lines), nil
			},
			decrementFn: func(_ context.Context, lines []domain.StockLine) ([]domain.StockViolation, error) {
				if violations := stockViolations(fixture.stock, lines); len(violations) > 0 {
					return violations, nil
				}
				for _, line := range lines {
					fixture.stock[line.ProductID] -= line.Quantity
				}
				return nil, nil
			},
			restoreFn: func(_ context.Context, lines []domain.StockLine) error {
				for _, line := range lines {
					fixture.stock[line.ProductID] += line.Quantity
				}
				return nil
			},
		}
	}
	if deps.Counters == nil {
		deps.Counters = &stubCounterRepo{}
	}
	if deps.Engine == nil {
		deps.Engine = NewPricingEngine(testFeePolicy())
	}
	if deps.Publisher == nil {
		deps.Publisher = &stubPublisher{
			publishFn: func(_ context.Context, message OrderEventMessage) (string, error) {
				fixture.events = append(fixture.events, message)
				return "msg-1", nil
			},
		}
	}
	if deps.Notifier == nil {
		deps.Notifier = &stubNotifier{
			notifyFn: func(_ context.Context, notification OrderNotification) (bool, error) {
				fixture.pushes = append(fixture.pushes, notification)
				return true, nil
			},
		}
	}
	if deps.Clock == nil {
		deps.Clock = fixedClock()
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = sequentialIDs("order")
	}

	service, err := NewOrderService(deps)
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}
	fixture.service = service
	return fixture
}

func stockViolations(stock map[string]int64, lines []domain.StockLine) []domain.StockViolation {
	var violations []domain.StockViolation
	for _, line := range lines {
		available, ok := stock[line.ProductID]
		if !ok || available < line.Quantity {
			violations = append(violations, domain.StockViolation{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			})
		}
	}
	return violations
}

func seedCart(fixture *orderFixture, actorID string) {
	fixture.carts[actorID] = domain.Cart{
		ID: "cart-1", ActorID: actorID, Status: domain.CartStatusActive,
		Lines: []domain.CartLine{{
			ProductID: "prod-a", Name: "Basmati Rice",
			Quantity: 2, BasePrice: 200, UnitPrice: 200, TaxRatePct: 5, LineTotal: 400,
		}},
	}
	fixture.stock["prod-a"] = 10
}

func TestConvertCartCreatesPendingOrder(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	seedCart(fixture, "customer-1")

	result, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID:       "customer-1",
		PaymentMethod: domain.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("ConvertCart: %v", err)
	}

	order := result.Order
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("status = %q, want pending", order.Status)
	}
	if order.Number != "SB-20240501-000001" {
		t.Fatalf("order number = %q", order.Number)
	}
	if order.Summary.Total != 425 {
		t.Fatalf("total = %v, want 425", order.Summary.Total)
	}
	if result.PaymentRequired {
		t.Fatal("cod order should not require payment")
	}
	if fixture.stock["prod-a"] != 8 {
		t.Fatalf("stock = %d, want 8 after decrement", fixture.stock["prod-a"])
	}
	if fixture.cleared != 1 {
		t.Fatalf("cart cleared %d times, want 1", fixture.cleared)
	}
	if len(fixture.events) != 1 || fixture.events[0].Event != "order.created" {
		t.Fatalf("events = %+v", fixture.events)
	}
	if len(fixture.pushes) != 1 {
		t.Fatalf("pushes = %+v", fixture.pushes)
	}
}

func TestConvertCartFrozenAgainstLaterPriceChanges(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	seedCart(fixture, "customer-1")

	result, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("ConvertCart: %v", err)
	}

	stored := fixture.orders[result.Order.ID]
	if stored.Lines[0].UnitPrice != 200 || stored.Summary.Total != 425 {
		t.Fatalf("snapshot = %+v", stored.Summary)
	}
}

func TestConvertCartNoActiveCart(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})

	_, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrNoActiveCart) {
		t.Fatalf("expected ErrNoActiveCart, got %v", err)
	}

	fixture.carts["customer-1"] = domain.Cart{ID: "cart-1", ActorID: "customer-1", Status: domain.CartStatusActive}
	_, err = fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrNoActiveCart) {
		t.Fatalf("empty cart: expected ErrNoActiveCart, got %v", err)
	}
}

func TestConvertCartCollectsAllStockViolations(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	fixture.carts["customer-1"] = domain.Cart{
		ID: "cart-1", ActorID: "customer-1", Status: domain.CartStatusActive,
		Lines: []domain.CartLine{
			{ProductID: "prod-a", Quantity: 5, UnitPrice: 100, LineTotal: 500},
			{ProductID: "prod-b", Quantity: 3, UnitPrice: 50, LineTotal: 150},
		},
	}
	fixture.stock["prod-a"] = 2
	fixture.stock["prod-b"] = 1

	_, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	stockErr, ok := AsInsufficientStock(err)
	if !ok {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if len(stockErr.Violations) != 2 {
		t.Fatalf("violations = %+v, want both lines", stockErr.Violations)
	}
	if len(fixture.orders) != 0 {
		t.Fatal("no order should be persisted")
	}
	if fixture.stock["prod-a"] != 2 || fixture.stock["prod-b"] != 1 {
		t.Fatal("stock must be untouched")
	}
}

func TestConvertCartRollsBackWhenDecrementLosesRace(t *testing.T) {
	decrements := 0
	fixture := newOrderFixture(t, OrderServiceDeps{
		Stock: &stubStockRepo{
			checkFn: func(context.Context, []domain.StockLine) ([]domain.StockViolation, error) {
				return nil, nil
			},
			decrementFn: func(_ context.Context, lines []domain.StockLine) ([]domain.StockViolation, error) {
				decrements++
				return []domain.StockViolation{{ProductID: "prod-a", Requested: 2, Available: 1}}, nil
			},
		},
	})
	seedCart(fixture, "customer-1")

	_, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	if _, ok := AsInsufficientStock(err); !ok {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if decrements != 1 {
		t.Fatalf("decrements = %d", decrements)
	}
	if len(fixture.orders) != 0 {
		t.Fatal("order must be rolled back after losing the decrement race")
	}
	if fixture.cleared != 0 {
		t.Fatal("cart must not be cleared")
	}
}

func TestConvertCartRollsBackWhenClearFails(t *testing.T) {
	var fixture *orderFixture
	fixture = newOrderFixture(t, OrderServiceDeps{
		Carts: &stubCartRepo{
			getFn: func(_ context.Context, actorID string) (domain.Cart, error) {
				return fixture.carts[actorID], nil
			},
			clearFn: func(context.Context, string, time.Time) error {
				return &stubRepoError{msg: "clear failed", unavailable: true}
			},
		},
	})
	seedCart(fixture, "customer-1")

	_, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(fixture.orders) != 0 {
		t.Fatal("order must be deleted after clear failure")
	}
	if fixture.stock["prod-a"] != 10 {
		t.Fatalf("stock = %d, want restored to 10", fixture.stock["prod-a"])
	}
}

func TestConvertCartOnlineCreatesPaymentIntent(t *testing.T) {
	var captured payments.CreateIntentRequest
	fixture := newOrderFixture(t, OrderServiceDeps{
		Gateway: &stubGateway{
			createFn: func(_ context.Context, req payments.CreateIntentRequest) (payments.Intent, error) {
				captured = req
				return payments.Intent{
					ID:           "pi_123",
					ClientSecret: "pi_123_secret",
					Status:       payments.StatusPending,
					Amount:       req.Amount,
					Currency:     req.Currency,
				}, nil
			},
		},
	})
	seedCart(fixture, "customer-1")

	result, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodOnline,
	})
	if err != nil {
		t.Fatalf("ConvertCart: %v", err)
	}
	if !result.PaymentRequired {
		t.Fatal("online order should require payment")
	}
	if result.ClientSecret != "pi_123_secret" {
		t.Fatalf("client secret = %q", result.ClientSecret)
	}
	if result.Order.Payment.IntentID != "pi_123" {
		t.Fatalf("payment = %+v", result.Order.Payment)
	}
	if captured.Amount != 42500 {
		t.Fatalf("intent amount = %d, want 42500 minor units", captured.Amount)
	}
}

func TestConvertCartGatewayFailure(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{
		Gateway: &stubGateway{
			createFn: func(context.Context, payments.CreateIntentRequest) (payments.Intent, error) {
				return payments.Intent{}, payments.ErrGatewayUnavailable
			},
		},
	})
	seedCart(fixture, "customer-1")

	_, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodOnline,
	})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if len(fixture.orders) != 0 {
		t.Fatal("no order should be persisted when the intent fails")
	}
	if fixture.stock["prod-a"] != 10 {
		t.Fatal("stock must be untouched")
	}
}

func TestConvertCartHoldsCartLockUntilCleared(t *testing.T) {
	locks := keyedmutex.New()
	contender := make(chan struct{})
	lockWasHeld := false
	fixture := newOrderFixture(t, OrderServiceDeps{
		CartLocks: locks,
		Stock: &stubStockRepo{
			checkFn: func(context.Context, []domain.StockLine) ([]domain.StockViolation, error) {
				return nil, nil
			},
			decrementFn: func(context.Context, []domain.StockLine) ([]domain.StockViolation, error) {
				go func() {
					locks.Lock("customer-1")
					locks.Unlock("customer-1")
					close(contender)
				}()
				select {
				case <-contender:
				case <-time.After(50 * time.Millisecond):
					lockWasHeld = true
				}
				return nil, nil
			},
		},
	})
	seedCart(fixture, "customer-1")

	if _, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	}); err != nil {
		t.Fatalf("ConvertCart: %v", err)
	}
	if !lockWasHeld {
		t.Fatal("cart lock must be held while stock is decremented")
	}
	select {
	case <-contender:
	case <-time.After(time.Second):
		t.Fatal("cart lock must be released once conversion completes")
	}
}

func TestConvertCartSerialisesWithCartMutations(t *testing.T) {
	locks := keyedmutex.New()

	var mu sync.Mutex
	carts := make(map[string]domain.Cart)
	repo := &stubCartRepo{
		getFn: func(_ context.Context, actorID string) (domain.Cart, error) {
			mu.Lock()
			defer mu.Unlock()
			cart, ok := carts[actorID]
			if !ok {
				return domain.Cart{}, repoNotFound()
			}
			return cart, nil
		},
		saveFn: func(_ context.Context, cart domain.Cart) (domain.Cart, error) {
			mu.Lock()
			defer mu.Unlock()
			carts[cart.ActorID] = cart
			return cart, nil
		},
		clearFn: func(_ context.Context, actorID string, _ time.Time) error {
			mu.Lock()
			defer mu.Unlock()
			cart := carts[actorID]
			cart.Lines = nil
			cart.Coupon = nil
			cart.Summary = domain.CartSummary{}
			carts[actorID] = cart
			return nil
		},
	}

	cartSvc, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Resolver: &stubResolver{
			resolveFn: func(_ context.Context, cmd ResolveLineCommand) (ResolvedLine, error) {
				return ResolvedLine{Line: domain.CartLine{
					ProductID: cmd.ProductID, Quantity: cmd.Quantity,
					BasePrice: 50, UnitPrice: 50, LineTotal: 50 * float64(cmd.Quantity),
				}}, nil
			},
		},
		Engine: NewPricingEngine(testFeePolicy()),
		Locks:  locks,
		Clock:  fixedClock(),
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}

	mutated := make(chan error, 1)
	fixture := newOrderFixture(t, OrderServiceDeps{
		Carts:     repo,
		CartLocks: locks,
		Stock: &stubStockRepo{
			checkFn: func(context.Context, []domain.StockLine) ([]domain.StockViolation, error) {
				return nil, nil
			},
			decrementFn: func(context.Context, []domain.StockLine) ([]domain.StockViolation, error) {
				go func() {
					_, err := cartSvc.AddOrUpdateLines(context.Background(), "customer-1", []LineInput{
						{ProductID: "prod-b", Quantity: 1},
					})
					mutated <- err
				}()
				select {
				case err := <-mutated:
					mutated <- err
					return nil, errors.New("cart mutated inside the conversion window")
				case <-time.After(50 * time.Millisecond):
				}
				return nil, nil
			},
		},
	})
	carts["customer-1"] = domain.Cart{
		ID: "cart-1", ActorID: "customer-1", Status: domain.CartStatusActive,
		Lines: []domain.CartLine{{
			ProductID: "prod-a", Quantity: 2, BasePrice: 200, UnitPrice: 200, TaxRatePct: 5, LineTotal: 400,
		}},
	}

	if _, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	}); err != nil {
		t.Fatalf("ConvertCart: %v", err)
	}

	select {
	case err := <-mutated:
		if err != nil {
			t.Fatalf("concurrent line add: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("concurrent line add never completed")
	}

	mu.Lock()
	after := carts["customer-1"]
	mu.Unlock()
	if _, ok := after.LineFor("prod-b"); !ok {
		t.Fatalf("lines = %+v, line added during conversion must survive the clear", after.Lines)
	}
	if _, ok := after.LineFor("prod-a"); ok {
		t.Fatal("converted lines must have been cleared")
	}
}

func seedOrder(fixture *orderFixture, status domain.OrderStatus, method domain.PaymentMethod) domain.Order {
	order := domain.Order{
		ID: "order-1", Number: "SB-20240501-000001", ActorID: "customer-1",
		Lines: []domain.OrderLine{{
			ProductID: "prod-a", Quantity: 2, UnitPrice: 200, TaxRatePct: 5, LineTotal: 400,
		}},
		Summary:       domain.CartSummary{Subtotal: 400, Tax: 20, PlatformFee: 5, Total: 425},
		Status:        status,
		PaymentMethod: method,
		CreatedAt:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if method == domain.PaymentMethodOnline {
		order.Payment = domain.OrderPayment{IntentID: "pi_123", Status: "succeeded"}
	}
	fixture.orders[order.ID] = order
	fixture.stock["prod-a"] = 3
	return order
}

func TestTransitionHappyPath(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	seedOrder(fixture, domain.OrderStatusPending, domain.PaymentMethodCOD)
	ctx := context.Background()

	accepted, err := fixture.service.Transition(ctx, TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusAccepted, ActorID: "staff-1",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.PreparedAt == nil {
		t.Fatal("accepted order must stamp preparedAt")
	}

	picked, err := fixture.service.Transition(ctx, TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusPicked, ActorID: "staff-1",
	})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if picked.PickedAt == nil {
		t.Fatal("picked order must stamp pickedAt")
	}

	delivered, err := fixture.service.Transition(ctx, TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusDelivered, ActorID: "staff-1",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.DeliveredAt == nil {
		t.Fatal("delivered order must stamp deliveredAt")
	}
	if fixture.stock["prod-a"] != 3 {
		t.Fatal("delivery must not touch stock")
	}
	if len(fixture.events) != 3 {
		t.Fatalf("events = %d, want one per transition", len(fixture.events))
	}
}

func TestTransitionFromTerminalState(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	seedOrder(fixture, domain.OrderStatusDelivered, domain.PaymentMethodCOD)

	_, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusCancelled, ActorID: "customer-1",
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransitionPickedCannotBeCancelled(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	seedOrder(fixture, domain.OrderStatusPicked, domain.PaymentMethodCOD)

	_, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusCancelled, ActorID: "customer-1",
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelRestoresStockCODWithoutRefund(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	seedOrder(fixture, domain.OrderStatusPending, domain.PaymentMethodCOD)

	cancelled, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusCancelled, ActorID: "customer-1", Reason: "changed my mind",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if fixture.stock["prod-a"] != 5 {
		t.Fatalf("stock = %d, want 5 after restore", fixture.stock["prod-a"])
	}
	if cancelled.Refund == nil || cancelled.Refund.Outcome != domain.RefundOutcomeNotRequired {
		t.Fatalf("refund = %+v, want not_required", cancelled.Refund)
	}
	if cancelled.CancelReason != "changed my mind" {
		t.Fatalf("cancel reason = %q", cancelled.CancelReason)
	}
}

func TestCancelOnlineCapturedRefundsFullTotal(t *testing.T) {
	var refundReq payments.RefundRequest
	fixture := newOrderFixture(t, OrderServiceDeps{
		Gateway: &stubGateway{
			getFn: func(_ context.Context, intentID string) (payments.Payment, error) {
				return payments.Payment{IntentID: intentID, Status: payments.StatusSucceeded, Captured: true}, nil
			},
			refundFn: func(_ context.Context, req payments.RefundRequest) (payments.Payment, error) {
				refundReq = req
				return payments.Payment{IntentID: req.IntentID, Status: payments.StatusRefunded}, nil
			},
		},
	})
	seedOrder(fixture, domain.OrderStatusAccepted, domain.PaymentMethodOnline)

	cancelled, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusCancelled, ActorID: "customer-1",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Refund == nil || !cancelled.Refund.Refunded {
		t.Fatalf("refund = %+v, want refunded", cancelled.Refund)
	}
	if cancelled.Refund.Amount != 425 {
		t.Fatalf("refund amount = %v, want order total 425", cancelled.Refund.Amount)
	}
	if cancelled.Refund.Outcome != domain.RefundOutcomeRefunded {
		t.Fatalf("outcome = %q", cancelled.Refund.Outcome)
	}
	if refundReq.IntentID != "pi_123" {
		t.Fatalf("refund request = %+v", refundReq)
	}
	if fixture.stock["prod-a"] != 5 {
		t.Fatal("stock must be restored")
	}
}

func TestCancelOnlineNotCaptured(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{
		Gateway: &stubGateway{
			getFn: func(_ context.Context, intentID string) (payments.Payment, error) {
				return payments.Payment{IntentID: intentID, Status: payments.StatusPending, Captured: false}, nil
			},
		},
	})
	seedOrder(fixture, domain.OrderStatusPending, domain.PaymentMethodOnline)

	cancelled, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusCancelled, ActorID: "customer-1",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %q, cancellation must stand", cancelled.Status)
	}
	if cancelled.Refund == nil || cancelled.Refund.Outcome != domain.RefundOutcomeNotCaptured {
		t.Fatalf("refund = %+v, want not_captured", cancelled.Refund)
	}
	if cancelled.Refund.Refunded {
		t.Fatal("refund must not be recorded")
	}
}

func TestCancelGatewayFailureStillCancels(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{
		Gateway: &stubGateway{
			getFn: func(context.Context, string) (payments.Payment, error) {
				return payments.Payment{}, payments.ErrGatewayUnavailable
			},
		},
	})
	seedOrder(fixture, domain.OrderStatusPending, domain.PaymentMethodOnline)

	cancelled, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusRejected, ActorID: "staff-1", Reason: "out of stock",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if cancelled.Status != domain.OrderStatusRejected {
		t.Fatalf("status = %q", cancelled.Status)
	}
	if cancelled.Refund == nil || cancelled.Refund.Outcome != domain.RefundOutcomeFailed {
		t.Fatalf("refund = %+v, want failed outcome", cancelled.Refund)
	}
	if fixture.stock["prod-a"] != 5 {
		t.Fatal("stock must be restored regardless of the gateway")
	}
}

func TestCancelRestoresStockExactlyOnce(t *testing.T) {
	restores := 0
	fixture := newOrderFixture(t, OrderServiceDeps{
		Stock: &stubStockRepo{
			restoreFn: func(context.Context, []domain.StockLine) error {
				restores++
				return nil
			},
		},
	})
	order := seedOrder(fixture, domain.OrderStatusPending, domain.PaymentMethodCOD)
	order.StockRestored = true
	fixture.orders[order.ID] = order

	cancelled, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusCancelled, ActorID: "customer-1",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if restores != 0 {
		t.Fatalf("restores = %d, stock already credited must not be credited again", restores)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %q", cancelled.Status)
	}
	if !cancelled.StockRestored {
		t.Fatal("restore marker must persist through the cancellation")
	}
}

func TestCancelPersistsStockRestoredMarker(t *testing.T) {
	fixture := newOrderFixture(t, OrderServiceDeps{})
	seedOrder(fixture, domain.OrderStatusPending, domain.PaymentMethodCOD)

	cancelled, err := fixture.service.Transition(context.Background(), TransitionCommand{
		OrderID: "order-1", Target: domain.OrderStatusCancelled, ActorID: "customer-1",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if fixture.stock["prod-a"] != 5 {
		t.Fatalf("stock = %d, want 5 after restore", fixture.stock["prod-a"])
	}
	if !cancelled.StockRestored {
		t.Fatal("first cancellation must record the restore")
	}
	if stored := fixture.orders["order-1"]; !stored.StockRestored {
		t.Fatal("restore marker must be written with the terminal status")
	}
}

func TestOrderNumberSequence(t *testing.T) {
	seq := int64(0)
	fixture := newOrderFixture(t, OrderServiceDeps{
		Counters: &stubCounterRepo{
			nextFn: func(_ context.Context, counterID string) (int64, error) {
				if !strings.HasPrefix(counterID, "orders-") {
					return 0, errors.New("unexpected counter id " + counterID)
				}
				seq++
				return seq, nil
			},
		},
	})
	seedCart(fixture, "customer-1")

	first, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("first conversion: %v", err)
	}

	seedCart(fixture, "customer-1")
	second, err := fixture.service.ConvertCart(context.Background(), ConvertCartCommand{
		ActorID: "customer-1", PaymentMethod: domain.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("second conversion: %v", err)
	}

	if first.Order.Number != "SB-20240501-000001" || second.Order.Number != "SB-20240501-000002" {
		t.Fatalf("numbers = %q, %q", first.Order.Number, second.Order.Number)
	}
}
