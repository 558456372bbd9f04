package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/swiftbasket/api/internal/domain"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
)

const cartsCollection = "carts"

type cartAddOnDocument struct {
	ID    string  `firestore:"id"`
	Name  string  `firestore:"name"`
	Price float64 `firestore:"price"`
}

type cartOfferDocument struct {
	Type string `firestore:"type"`
	Mode string `firestore:"mode,omitempty"`
}

type cartLineDocument struct {
	ProductID       string              `firestore:"productId"`
	Name            string              `firestore:"name"`
	Quantity        int64               `firestore:"quantity"`
	BasePrice       float64             `firestore:"basePrice"`
	UnitPrice       float64             `firestore:"unitPrice"`
	TaxRatePct      float64             `firestore:"taxRatePct"`
	LineTotal       float64             `firestore:"lineTotal"`
	Offer           *cartOfferDocument  `firestore:"offer,omitempty"`
	ComplementaryOf string              `firestore:"complementaryOf,omitempty"`
	AddOns          []cartAddOnDocument `firestore:"addOns,omitempty"`
}

type cartCouponDocument struct {
	Code     string  `firestore:"code"`
	Pct      float64 `firestore:"pct"`
	MinPrice float64 `firestore:"minPrice,omitempty"`
	MaxPrice float64 `firestore:"maxPrice,omitempty"`
	Discount float64 `firestore:"discount"`
	Applied  bool    `firestore:"applied"`
	Reason   string  `firestore:"reason,omitempty"`
}

type cartSummaryDocument struct {
	Subtotal    float64 `firestore:"subtotal"`
	Discount    float64 `firestore:"discount"`
	Tax         float64 `firestore:"tax"`
	DeliveryFee float64 `firestore:"deliveryFee"`
	PlatformFee float64 `firestore:"platformFee"`
	Total       float64 `firestore:"total"`
}

type cartDocument struct {
	ActorID           string              `firestore:"actorId"`
	Status            string              `firestore:"status"`
	Lines             []cartLineDocument  `firestore:"lines"`
	AddressID         string              `firestore:"addressId,omitempty"`
	Coupon            *cartCouponDocument `firestore:"coupon,omitempty"`
	Summary           cartSummaryDocument `firestore:"summary"`
	DistanceKm        float64             `firestore:"distanceKm"`
	DurationMin       float64             `firestore:"durationMin"`
	DeliveryEstimated bool                `firestore:"deliveryEstimated"`
	CreatedAt         time.Time           `firestore:"createdAt"`
	UpdatedAt         time.Time           `firestore:"updatedAt"`
}

func cartToDocument(cart domain.Cart) cartDocument {
	doc := cartDocument{
		ActorID:           cart.ActorID,
		Status:            string(cart.Status),
		AddressID:         cart.AddressID,
		DistanceKm:        cart.DistanceKm,
		DurationMin:       cart.DurationMin,
		DeliveryEstimated: cart.DeliveryEstimated,
		CreatedAt:         cart.CreatedAt,
		UpdatedAt:         cart.UpdatedAt,
		Summary: cartSummaryDocument{
			Subtotal:    cart.Summary.Subtotal,
			Discount:    cart.Summary.Discount,
			Tax:         cart.Summary.Tax,
			DeliveryFee: cart.Summary.DeliveryFee,
			PlatformFee: cart.Summary.PlatformFee,
			Total:       cart.Summary.Total,
		},
	}
	if cart.Coupon != nil {
		doc.Coupon = &cartCouponDocument{
			Code:     cart.Coupon.Code,
			Pct:      cart.Coupon.Pct,
			MinPrice: cart.Coupon.MinPrice,
			MaxPrice: cart.Coupon.MaxPrice,
			Discount: cart.Coupon.Discount,
			Applied:  cart.Coupon.Applied,
			Reason:   cart.Coupon.Reason,
		}
	}
	for _, line := range cart.Lines {
		lineDoc := cartLineDocument{
			ProductID:       line.ProductID,
			Name:            line.Name,
			Quantity:        line.Quantity,
			BasePrice:       line.BasePrice,
			UnitPrice:       line.UnitPrice,
			TaxRatePct:      line.TaxRatePct,
			LineTotal:       line.LineTotal,
			ComplementaryOf: line.ComplementaryOf,
		}
		if line.Offer != nil {
			lineDoc.Offer = &cartOfferDocument{
				Type: string(line.Offer.Type),
				Mode: string(line.Offer.Mode),
			}
		}
		for _, addOn := range line.AddOns {
			lineDoc.AddOns = append(lineDoc.AddOns, cartAddOnDocument(addOn))
		}
		doc.Lines = append(doc.Lines, lineDoc)
	}
	return doc
}

func (d cartDocument) toDomain(id string) domain.Cart {
	cart := domain.Cart{
		ID:                id,
		ActorID:           d.ActorID,
		Status:            domain.CartStatus(d.Status),
		AddressID:         d.AddressID,
		DistanceKm:        d.DistanceKm,
		DurationMin:       d.DurationMin,
		DeliveryEstimated: d.DeliveryEstimated,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Summary: domain.CartSummary{
			Subtotal:    d.Summary.Subtotal,
			Discount:    d.Summary.Discount,
			Tax:         d.Summary.Tax,
			DeliveryFee: d.Summary.DeliveryFee,
			PlatformFee: d.Summary.PlatformFee,
			Total:       d.Summary.Total,
		},
	}
	if d.Coupon != nil {
		cart.Coupon = &domain.CartCoupon{
			Code:     d.Coupon.Code,
			Pct:      d.Coupon.Pct,
			MinPrice: d.Coupon.MinPrice,
			MaxPrice: d.Coupon.MaxPrice,
			Discount: d.Coupon.Discount,
			Applied:  d.Coupon.Applied,
			Reason:   d.Coupon.Reason,
		}
	}
	for _, lineDoc := range d.Lines {
		line := domain.CartLine{
			ProductID:       lineDoc.ProductID,
			Name:            lineDoc.Name,
			Quantity:        lineDoc.Quantity,
			BasePrice:       lineDoc.BasePrice,
			UnitPrice:       lineDoc.UnitPrice,
			TaxRatePct:      lineDoc.TaxRatePct,
			LineTotal:       lineDoc.LineTotal,
			ComplementaryOf: lineDoc.ComplementaryOf,
		}
		if lineDoc.Offer != nil {
			line.Offer = &domain.SelectedOffer{
				Type: domain.OfferType(lineDoc.Offer.Type),
				Mode: domain.OnMRPMode(lineDoc.Offer.Mode),
			}
		}
		for _, addOnDoc := range lineDoc.AddOns {
			line.AddOns = append(line.AddOns, domain.CartAddOn(addOnDoc))
		}
		cart.Lines = append(cart.Lines, line)
	}
	return cart
}

// CartRepository stores one cart document per actor, keyed by actor id.
// Concurrent mutations are serialised per actor at the service layer.
type CartRepository struct {
	carts *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		carts: pfirestore.NewBaseRepository[cartDocument](provider, cartsCollection),
	}, nil
}

// Get loads the actor's cart.
func (r *CartRepository) Get(ctx context.Context, actorID string) (domain.Cart, error) {
	doc, err := r.carts.Get(ctx, actorID)
	if err != nil {
		return domain.Cart{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Save writes the full cart document under the actor id.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	actorID := strings.TrimSpace(cart.ActorID)
	if actorID == "" {
		return domain.Cart{}, errors.New("cart: actor id is required")
	}
	cart.ID = actorID
	if _, err := r.carts.Set(ctx, actorID, cartToDocument(cart)); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

// Clear resets the actor's cart to an empty active cart, preserving creation time.
func (r *CartRepository) Clear(ctx context.Context, actorID string, clearedAt time.Time) error {
	existing, err := r.Get(ctx, actorID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	fresh := domain.Cart{
		ID:        actorID,
		ActorID:   actorID,
		Status:    domain.CartStatusActive,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: clearedAt,
	}
	_, err = r.Save(ctx, fresh)
	return err
}
