package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/swiftbasket/api/internal/domain"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
	"github.com/swiftbasket/api/internal/repositories"
)

const ordersCollection = "orders"

type orderLineDocument struct {
	ProductID       string  `firestore:"productId"`
	Name            string  `firestore:"name"`
	Quantity        int64   `firestore:"quantity"`
	UnitPrice       float64 `firestore:"unitPrice"`
	TaxRatePct      float64 `firestore:"taxRatePct"`
	LineTotal       float64 `firestore:"lineTotal"`
	ComplementaryOf string  `firestore:"complementaryOf,omitempty"`
}

type orderAddressDocument struct {
	ID    string  `firestore:"id"`
	Label string  `firestore:"label,omitempty"`
	Line1 string  `firestore:"line1,omitempty"`
	City  string  `firestore:"city,omitempty"`
	Lat   float64 `firestore:"lat"`
	Lng   float64 `firestore:"lng"`
}

type orderPaymentDocument struct {
	IntentID   string     `firestore:"intentId,omitempty"`
	Status     string     `firestore:"status,omitempty"`
	Captured   bool       `firestore:"captured"`
	CapturedAt *time.Time `firestore:"capturedAt,omitempty"`
}

type orderRefundDocument struct {
	Refunded bool       `firestore:"refunded"`
	Outcome  string     `firestore:"outcome"`
	Amount   float64    `firestore:"amount"`
	At       *time.Time `firestore:"at,omitempty"`
}

type orderDocument struct {
	Number        string                `firestore:"number"`
	ActorID       string                `firestore:"actorId"`
	PlacedBy      string                `firestore:"placedBy,omitempty"`
	Lines         []orderLineDocument   `firestore:"lines"`
	Address       orderAddressDocument  `firestore:"address"`
	Summary       cartSummaryDocument   `firestore:"summary"`
	Coupon        *cartCouponDocument   `firestore:"coupon,omitempty"`
	DistanceKm    float64               `firestore:"distanceKm"`
	Status        string                `firestore:"status"`
	PaymentMethod string                `firestore:"paymentMethod"`
	Payment       orderPaymentDocument  `firestore:"payment"`
	Refund        *orderRefundDocument  `firestore:"refund,omitempty"`
	CancelReason  string                `firestore:"cancelReason,omitempty"`
	StockRestored bool                  `firestore:"stockRestored,omitempty"`
	CreatedAt     time.Time             `firestore:"createdAt"`
	PreparedAt    *time.Time            `firestore:"preparedAt,omitempty"`
	PickedAt      *time.Time            `firestore:"pickedAt,omitempty"`
	DeliveredAt   *time.Time            `firestore:"deliveredAt,omitempty"`
	CancelledAt   *time.Time            `firestore:"cancelledAt,omitempty"`
	UpdatedAt     time.Time             `firestore:"updatedAt"`
}

func orderToDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		Number:   order.Number,
		ActorID:  order.ActorID,
		PlacedBy: order.PlacedBy,
		Address: orderAddressDocument{
			ID:    order.Address.ID,
			Label: order.Address.Label,
			Line1: order.Address.Line1,
			City:  order.Address.City,
			Lat:   order.Address.Lat,
			Lng:   order.Address.Lng,
		},
		Summary: cartSummaryDocument{
			Subtotal:    order.Summary.Subtotal,
			Discount:    order.Summary.Discount,
			Tax:         order.Summary.Tax,
			DeliveryFee: order.Summary.DeliveryFee,
			PlatformFee: order.Summary.PlatformFee,
			Total:       order.Summary.Total,
		},
		DistanceKm:    order.DistanceKm,
		Status:        string(order.Status),
		PaymentMethod: string(order.PaymentMethod),
		Payment: orderPaymentDocument{
			IntentID:   order.Payment.IntentID,
			Status:     order.Payment.Status,
			Captured:   order.Payment.Captured,
			CapturedAt: order.Payment.CapturedAt,
		},
		CancelReason:  order.CancelReason,
		StockRestored: order.StockRestored,
		CreatedAt:     order.CreatedAt,
		PreparedAt:    order.PreparedAt,
		PickedAt:      order.PickedAt,
		DeliveredAt:   order.DeliveredAt,
		CancelledAt:   order.CancelledAt,
		UpdatedAt:     order.UpdatedAt,
	}
	if order.Coupon != nil {
		doc.Coupon = &cartCouponDocument{
			Code:     order.Coupon.Code,
			Pct:      order.Coupon.Pct,
			MinPrice: order.Coupon.MinPrice,
			MaxPrice: order.Coupon.MaxPrice,
			Discount: order.Coupon.Discount,
			Applied:  order.Coupon.Applied,
			Reason:   order.Coupon.Reason,
		}
	}
	if order.Refund != nil {
		doc.Refund = &orderRefundDocument{
			Refunded: order.Refund.Refunded,
			Outcome:  string(order.Refund.Outcome),
			Amount:   order.Refund.Amount,
			At:       order.Refund.At,
		}
	}
	for _, line := range order.Lines {
		doc.Lines = append(doc.Lines, orderLineDocument(line))
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	order := domain.Order{
		ID:       id,
		Number:   d.Number,
		ActorID:  d.ActorID,
		PlacedBy: d.PlacedBy,
		Address: domain.OrderAddress{
			ID:    d.Address.ID,
			Label: d.Address.Label,
			Line1: d.Address.Line1,
			City:  d.Address.City,
			Lat:   d.Address.Lat,
			Lng:   d.Address.Lng,
		},
		Summary: domain.CartSummary{
			Subtotal:    d.Summary.Subtotal,
			Discount:    d.Summary.Discount,
			Tax:         d.Summary.Tax,
			DeliveryFee: d.Summary.DeliveryFee,
			PlatformFee: d.Summary.PlatformFee,
			Total:       d.Summary.Total,
		},
		DistanceKm:    d.DistanceKm,
		Status:        domain.OrderStatus(d.Status),
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		Payment: domain.OrderPayment{
			IntentID:   d.Payment.IntentID,
			Status:     d.Payment.Status,
			Captured:   d.Payment.Captured,
			CapturedAt: d.Payment.CapturedAt,
		},
		CancelReason:  d.CancelReason,
		StockRestored: d.StockRestored,
		CreatedAt:     d.CreatedAt,
		PreparedAt:    d.PreparedAt,
		PickedAt:      d.PickedAt,
		DeliveredAt:   d.DeliveredAt,
		CancelledAt:   d.CancelledAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.Coupon != nil {
		order.Coupon = &domain.CartCoupon{
			Code:     d.Coupon.Code,
			Pct:      d.Coupon.Pct,
			MinPrice: d.Coupon.MinPrice,
			MaxPrice: d.Coupon.MaxPrice,
			Discount: d.Coupon.Discount,
			Applied:  d.Coupon.Applied,
			Reason:   d.Coupon.Reason,
		}
	}
	if d.Refund != nil {
		order.Refund = &domain.OrderRefund{
			Refunded: d.Refund.Refunded,
			Outcome:  domain.RefundOutcome(d.Refund.Outcome),
			Amount:   d.Refund.Amount,
			At:       d.Refund.At,
		}
	}
	for _, line := range d.Lines {
		order.Lines = append(order.Lines, domain.OrderLine(line))
	}
	return order
}

// OrderRepository implements repositories.OrderRepository.
type OrderRepository struct {
	orders *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		orders: pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection),
	}, nil
}

// Insert writes a new order document.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order: id is required")
	}
	_, err := r.orders.Set(ctx, order.ID, orderToDocument(order))
	return err
}

// Update overwrites the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order: id is required")
	}
	_, err := r.orders.Set(ctx, order.ID, orderToDocument(order))
	return err
}

// Delete removes the order document. Used by conversion rollback.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	return r.orders.Delete(ctx, orderID)
}

// FindByID loads an order by id.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListByActor returns the actor's orders, most recent first.
func (r *OrderRepository) ListByActor(ctx context.Context, actorID string, filter repositories.OrderListFilter) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("actorId", "==", actorID).OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs), nil
}

// ListByStatus returns orders in the given lifecycle state, oldest first.
func (r *OrderRepository) ListByStatus(ctx context.Context, orderStatus domain.OrderStatus, filter repositories.OrderListFilter) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("status", "==", string(orderStatus)).OrderBy("createdAt", firestore.Asc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs), nil
}

func decodeOrders(docs []pfirestore.Document[orderDocument]) []domain.Order {
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders
}
