package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/repositories"
)

var (
	errPromotionOffersRequired  = errors.New("promotion service: offer repository is required")
	errPromotionCouponsRequired = errors.New("promotion service: coupon repository is required")
	errPromotionCatalogRequired = errors.New("promotion service: catalog repository is required")
	errPromotionClockRequired   = errors.New("promotion service: clock is required")
)

// PromotionServiceDeps wires persistence for offer and coupon maintenance.
type PromotionServiceDeps struct {
	Offers      repositories.OfferRepository
	Coupons     repositories.CouponRepository
	Catalog     repositories.CatalogRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type promotionService struct {
	offers  repositories.OfferRepository
	coupons repositories.CouponRepository
	catalog repositories.CatalogRepository
	now     func() time.Time
	newID   func() string
	logger  func(context.Context, string, map[string]any)
}

// NewPromotionService constructs a PromotionService enforcing dependency validation.
func NewPromotionService(deps PromotionServiceDeps) (PromotionService, error) {
	if deps.Offers == nil {
		return nil, errPromotionOffersRequired
	}
	if deps.Coupons == nil {
		return nil, errPromotionCouponsRequired
	}
	if deps.Catalog == nil {
		return nil, errPromotionCatalogRequired
	}
	if deps.Clock == nil {
		return nil, errPromotionClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &promotionService{
		offers:  deps.Offers,
		coupons: deps.Coupons,
		catalog: deps.Catalog,
		now:     func() time.Time { return deps.Clock().UTC() },
		newID:   idGen,
		logger:  logger,
	}, nil
}

func (s *promotionService) CreateOffer(ctx context.Context, cmd UpsertOfferCommand) (Offer, error) {
	offer, err := s.offerFromCommand(cmd)
	if err != nil {
		return Offer{}, err
	}
	if err := s.checkBindingConflicts(ctx, offer); err != nil {
		return Offer{}, err
	}

	now := s.now()
	offer.ID = strings.TrimSpace(cmd.OfferID)
	if offer.ID == "" {
		offer.ID = s.newID()
	}
	offer.CreatedAt = now
	offer.UpdatedAt = now

	if err := s.offers.Insert(ctx, offer); err != nil {
		return Offer{}, translateRepoError("promotion service: insert offer", err)
	}

	s.syncFlatDiscounts(ctx, flatProductIDs(offer))
	s.logger(ctx, "promotion.offer.created", map[string]any{"offerId": offer.ID, "type": offer.Type})
	return offer, nil
}

func (s *promotionService) UpdateOffer(ctx context.Context, cmd UpsertOfferCommand) (Offer, error) {
	offerID := strings.TrimSpace(cmd.OfferID)
	if offerID == "" {
		return Offer{}, fmt.Errorf("promotion service: offer id: %w", ErrInvalidInput)
	}

	existing, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return Offer{}, translateRepoError("promotion service: offer "+offerID, err)
	}

	offer, err := s.offerFromCommand(cmd)
	if err != nil {
		return Offer{}, err
	}
	offer.ID = offerID
	offer.CreatedAt = existing.CreatedAt
	offer.UpdatedAt = s.now()

	if err := s.checkBindingConflicts(ctx, offer); err != nil {
		return Offer{}, err
	}
	if err := s.offers.Update(ctx, offer); err != nil {
		return Offer{}, translateRepoError("promotion service: update offer "+offerID, err)
	}

	// Products dropped from a flat offer need their cached discount reset too.
	s.syncFlatDiscounts(ctx, unionProductIDs(flatProductIDs(existing), flatProductIDs(offer)))
	s.logger(ctx, "promotion.offer.updated", map[string]any{"offerId": offerID})
	return offer, nil
}

func (s *promotionService) DeleteOffer(ctx context.Context, offerID string) error {
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return fmt.Errorf("promotion service: offer id: %w", ErrInvalidInput)
	}

	existing, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return translateRepoError("promotion service: offer "+offerID, err)
	}
	if err := s.offers.Delete(ctx, offerID); err != nil {
		return translateRepoError("promotion service: delete offer "+offerID, err)
	}

	s.syncFlatDiscounts(ctx, flatProductIDs(existing))
	s.logger(ctx, "promotion.offer.deleted", map[string]any{"offerId": offerID})
	return nil
}

func (s *promotionService) GetOffer(ctx context.Context, offerID string) (Offer, error) {
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return Offer{}, fmt.Errorf("promotion service: offer id: %w", ErrInvalidInput)
	}
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return Offer{}, translateRepoError("promotion service: offer "+offerID, err)
	}
	return offer, nil
}

func (s *promotionService) ListOffers(ctx context.Context, filter repositories.OfferListFilter) ([]Offer, error) {
	offers, err := s.offers.List(ctx, filter)
	if err != nil {
		return nil, translateRepoError("promotion service: list offers", err)
	}
	return offers, nil
}

func (s *promotionService) SetOfferActive(ctx context.Context, offerID string, active bool) (Offer, error) {
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return Offer{}, fmt.Errorf("promotion service: offer id: %w", ErrInvalidInput)
	}

	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return Offer{}, translateRepoError("promotion service: offer "+offerID, err)
	}
	offer.Active = active
	offer.UpdatedAt = s.now()

	if active {
		if err := s.checkBindingConflicts(ctx, offer); err != nil {
			return Offer{}, err
		}
	}
	if err := s.offers.Update(ctx, offer); err != nil {
		return Offer{}, translateRepoError("promotion service: update offer "+offerID, err)
	}

	s.syncFlatDiscounts(ctx, flatProductIDs(offer))
	s.logger(ctx, "promotion.offer.toggled", map[string]any{"offerId": offerID, "active": active})
	return offer, nil
}

func (s *promotionService) SetItemActive(ctx context.Context, offerID, productID string, active bool) (Offer, error) {
	offerID = strings.TrimSpace(offerID)
	productID = strings.TrimSpace(productID)
	if offerID == "" || productID == "" {
		return Offer{}, fmt.Errorf("promotion service: offer and product ids: %w", ErrInvalidInput)
	}

	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return Offer{}, translateRepoError("promotion service: offer "+offerID, err)
	}

	found := false
	for i := range offer.Items {
		if offer.Items[i].ProductID == productID {
			offer.Items[i].Active = active
			found = true
			break
		}
	}
	if !found {
		return Offer{}, fmt.Errorf("promotion service: product %s on offer %s: %w", productID, offerID, ErrNotFound)
	}
	offer.UpdatedAt = s.now()

	if active {
		if err := s.checkBindingConflicts(ctx, offer); err != nil {
			return Offer{}, err
		}
	}
	if err := s.offers.Update(ctx, offer); err != nil {
		return Offer{}, translateRepoError("promotion service: update offer "+offerID, err)
	}

	if offer.Type == domain.OfferTypeFlat {
		s.syncFlatDiscounts(ctx, []string{productID})
	}
	s.logger(ctx, "promotion.item.toggled", map[string]any{
		"offerId":   offerID,
		"productId": productID,
		"active":    active,
	})
	return offer, nil
}

func (s *promotionService) UpsertCoupon(ctx context.Context, coupon Coupon) (Coupon, error) {
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	switch {
	case coupon.Code == "":
		return Coupon{}, fmt.Errorf("promotion service: coupon code: %w", ErrInvalidInput)
	case coupon.Pct <= 0 || coupon.Pct > 100:
		return Coupon{}, fmt.Errorf("promotion service: coupon pct: %w", ErrInvalidInput)
	case coupon.MinPrice < 0 || coupon.MaxPrice < coupon.MinPrice:
		return Coupon{}, fmt.Errorf("promotion service: coupon bounds: %w", ErrInvalidInput)
	}

	if err := s.coupons.Upsert(ctx, coupon); err != nil {
		return Coupon{}, translateRepoError("promotion service: upsert coupon "+coupon.Code, err)
	}
	s.logger(ctx, "promotion.coupon.upserted", map[string]any{"code": coupon.Code})
	return coupon, nil
}

func (s *promotionService) DeleteCoupon(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("promotion service: coupon code: %w", ErrInvalidInput)
	}
	if err := s.coupons.Delete(ctx, code); err != nil {
		return translateRepoError("promotion service: delete coupon "+code, err)
	}
	s.logger(ctx, "promotion.coupon.deleted", map[string]any{"code": code})
	return nil
}

func (s *promotionService) ListCoupons(ctx context.Context, activeOnly bool) ([]Coupon, error) {
	coupons, err := s.coupons.List(ctx, activeOnly)
	if err != nil {
		return nil, translateRepoError("promotion service: list coupons", err)
	}
	return coupons, nil
}

func (s *promotionService) offerFromCommand(cmd UpsertOfferCommand) (Offer, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Offer{}, fmt.Errorf("promotion service: offer name: %w", ErrInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return Offer{}, fmt.Errorf("promotion service: offer needs at least one item: %w", ErrInvalidInput)
	}

	for _, item := range cmd.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return Offer{}, fmt.Errorf("promotion service: item product id: %w", ErrInvalidInput)
		}
		if err := validateBinding(cmd.Type, item); err != nil {
			return Offer{}, err
		}
	}

	return Offer{
		Name:   name,
		Type:   cmd.Type,
		Active: cmd.Active,
		Items:  cmd.Items,
	}, nil
}

// checkBindingConflicts enforces at most one active offer per (product, type).
func (s *promotionService) checkBindingConflicts(ctx context.Context, offer Offer) error {
	if !offer.Active {
		return nil
	}
	for _, item := range offer.Items {
		if !item.Active {
			continue
		}
		existing, err := s.offers.FindActiveForProduct(ctx, item.ProductID)
		if err != nil {
			return translateRepoError("promotion service: offers for "+item.ProductID, err)
		}
		for _, other := range existing {
			if other.ID != offer.ID && other.Type == offer.Type {
				return fmt.Errorf("promotion service: product %s already bound to an active %s offer: %w",
					item.ProductID, offer.Type, ErrInvalidInput)
			}
		}
	}
	return nil
}

// syncFlatDiscounts recomputes each product's cached baseline discount from
// its surviving active flat binding, before the triggering request returns.
func (s *promotionService) syncFlatDiscounts(ctx context.Context, productIDs []string) {
	now := s.now()
	for _, productID := range productIDs {
		var pct float64
		offers, err := s.offers.FindActiveForProduct(ctx, productID)
		if err != nil {
			s.logger(ctx, "promotion.discount_sync_failed", map[string]any{
				"productId": productID,
				"error":     err.Error(),
			})
			continue
		}
		for _, offer := range offers {
			if offer.Type != domain.OfferTypeFlat {
				continue
			}
			if binding, ok := offer.BindingFor(productID); ok && binding.Active {
				pct = binding.FlatPct
				break
			}
		}

		if err := s.catalog.SetDiscountPct(ctx, productID, pct, now); err != nil && !isRepoNotFound(err) {
			s.logger(ctx, "promotion.discount_sync_failed", map[string]any{
				"productId": productID,
				"error":     err.Error(),
			})
		}
	}
}

func validateBinding(offerType OfferType, item OfferBinding) error {
	switch offerType {
	case domain.OfferTypeFlat:
		if item.FlatPct <= 0 || item.FlatPct > 100 {
			return fmt.Errorf("promotion service: flat pct for %s: %w", item.ProductID, ErrInvalidInput)
		}
	case domain.OfferTypeDiscount:
		if item.DiscountAmount <= 0 {
			return fmt.Errorf("promotion service: discount amount for %s: %w", item.ProductID, ErrInvalidInput)
		}
	case domain.OfferTypeOnMRP:
		switch item.Mode {
		case domain.OnMRPModeNeed:
			if item.ReductionValue <= 0 {
				return fmt.Errorf("promotion service: reduction value for %s: %w", item.ProductID, ErrInvalidInput)
			}
		case domain.OnMRPModeComplementary:
			if strings.TrimSpace(item.ComplementaryProductID) == "" {
				return fmt.Errorf("promotion service: complementary product for %s: %w", item.ProductID, ErrInvalidInput)
			}
		default:
			return fmt.Errorf("promotion service: on_mrp mode for %s: %w", item.ProductID, ErrInvalidInput)
		}
	case domain.OfferTypeNegotiate:
		switch {
		case item.FloorPrice <= 0:
			return fmt.Errorf("promotion service: floor price for %s: %w", item.ProductID, ErrInvalidInput)
		case item.SuccessPct < 0 || item.SuccessPct > 100 || item.FailurePct < 0 || item.FailurePct > 100:
			return fmt.Errorf("promotion service: negotiation pcts for %s: %w", item.ProductID, ErrInvalidInput)
		case item.MaxAttempts < 1:
			return fmt.Errorf("promotion service: max attempts for %s: %w", item.ProductID, ErrInvalidInput)
		}
	default:
		return fmt.Errorf("promotion service: offer type %q: %w", offerType, ErrInvalidInput)
	}
	return nil
}

func flatProductIDs(offer Offer) []string {
	if offer.Type != domain.OfferTypeFlat {
		return nil
	}
	ids := make([]string, 0, len(offer.Items))
	for _, item := range offer.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func unionProductIDs(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range groups {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
