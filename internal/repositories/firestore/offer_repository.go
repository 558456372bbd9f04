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

const offersCollection = "offers"

type offerBindingDocument struct {
	ProductID string `firestore:"productId"`
	Active    bool   `firestore:"active"`

	FlatPct float64 `firestore:"flatPct,omitempty"`

	DiscountAmount float64 `firestore:"discountAmount,omitempty"`

	Mode                   string  `firestore:"mode,omitempty"`
	ReductionValue         float64 `firestore:"reductionValue,omitempty"`
	ComplementaryProductID string  `firestore:"complementaryProductId,omitempty"`

	FloorPrice  float64 `firestore:"floorPrice,omitempty"`
	SuccessPct  float64 `firestore:"successPct,omitempty"`
	FailurePct  float64 `firestore:"failurePct,omitempty"`
	MaxAttempts int     `firestore:"maxAttempts,omitempty"`
}

type offerDocument struct {
	Name   string                 `firestore:"name"`
	Type   string                 `firestore:"type"`
	Active bool                   `firestore:"active"`
	Items  []offerBindingDocument `firestore:"items"`

	// ProductIDs duplicates the binding product ids so active-offer lookups
	// can use an array-contains query.
	ProductIDs []string  `firestore:"productIds"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func offerToDocument(offer domain.Offer) offerDocument {
	doc := offerDocument{
		Name:      offer.Name,
		Type:      string(offer.Type),
		Active:    offer.Active,
		CreatedAt: offer.CreatedAt,
		UpdatedAt: offer.UpdatedAt,
	}
	for _, item := range offer.Items {
		doc.Items = append(doc.Items, offerBindingDocument{
			ProductID:              item.ProductID,
			Active:                 item.Active,
			FlatPct:                item.FlatPct,
			DiscountAmount:         item.DiscountAmount,
			Mode:                   string(item.Mode),
			ReductionValue:         item.ReductionValue,
			ComplementaryProductID: item.ComplementaryProductID,
			FloorPrice:             item.FloorPrice,
			SuccessPct:             item.SuccessPct,
			FailurePct:             item.FailurePct,
			MaxAttempts:            item.MaxAttempts,
		})
		doc.ProductIDs = append(doc.ProductIDs, item.ProductID)
	}
	return doc
}

func (d offerDocument) toDomain(id string) domain.Offer {
	offer := domain.Offer{
		ID:        id,
		Name:      d.Name,
		Type:      domain.OfferType(d.Type),
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, item := range d.Items {
		offer.Items = append(offer.Items, domain.OfferBinding{
			ProductID:              item.ProductID,
			Active:                 item.Active,
			FlatPct:                item.FlatPct,
			DiscountAmount:         item.DiscountAmount,
			Mode:                   domain.OnMRPMode(item.Mode),
			ReductionValue:         item.ReductionValue,
			ComplementaryProductID: item.ComplementaryProductID,
			FloorPrice:             item.FloorPrice,
			SuccessPct:             item.SuccessPct,
			FailurePct:             item.FailurePct,
			MaxAttempts:            item.MaxAttempts,
		})
	}
	return offer
}

// OfferRepository implements repositories.OfferRepository.
type OfferRepository struct {
	offers *pfirestore.BaseRepository[offerDocument]
}

// NewOfferRepository constructs a Firestore-backed offer repository.
func NewOfferRepository(provider *pfirestore.Provider) (*OfferRepository, error) {
	if provider == nil {
		return nil, errors.New("offer repository requires firestore provider")
	}
	return &OfferRepository{
		offers: pfirestore.NewBaseRepository[offerDocument](provider, offersCollection),
	}, nil
}

// Insert writes a new offer document.
func (r *OfferRepository) Insert(ctx context.Context, offer domain.Offer) error {
	if strings.TrimSpace(offer.ID) == "" {
		return errors.New("offer: id is required")
	}
	_, err := r.offers.Set(ctx, offer.ID, offerToDocument(offer))
	return err
}

// Update overwrites an existing offer document.
func (r *OfferRepository) Update(ctx context.Context, offer domain.Offer) error {
	if strings.TrimSpace(offer.ID) == "" {
		return errors.New("offer: id is required")
	}
	if _, err := r.offers.Get(ctx, offer.ID); err != nil {
		return err
	}
	_, err := r.offers.Set(ctx, offer.ID, offerToDocument(offer))
	return err
}

// Delete removes the offer document.
func (r *OfferRepository) Delete(ctx context.Context, offerID string) error {
	return r.offers.Delete(ctx, offerID)
}

// FindByID loads an offer by id.
func (r *OfferRepository) FindByID(ctx context.Context, offerID string) (domain.Offer, error) {
	doc, err := r.offers.Get(ctx, offerID)
	if err != nil {
		return domain.Offer{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns offers matching the filter.
func (r *OfferRepository) List(ctx context.Context, filter repositories.OfferListFilter) ([]domain.Offer, error) {
	docs, err := r.offers.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Type != "" {
			q = q.Where("type", "==", string(filter.Type))
		}
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	offers := make([]domain.Offer, 0, len(docs))
	for _, doc := range docs {
		offers = append(offers, doc.Data.toDomain(doc.ID))
	}
	return offers, nil
}

// FindActiveForProduct returns active offers with an active binding for the product.
func (r *OfferRepository) FindActiveForProduct(ctx context.Context, productID string) ([]domain.Offer, error) {
	docs, err := r.offers.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.
			Where("active", "==", true).
			Where("productIds", "array-contains", productID)
	})
	if err != nil {
		return nil, err
	}

	var offers []domain.Offer
	for _, doc := range docs {
		offer := doc.Data.toDomain(doc.ID)
		binding, ok := offer.BindingFor(productID)
		if !ok || !binding.Active {
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}
