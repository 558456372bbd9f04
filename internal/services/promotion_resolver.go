package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/repositories"
)

var (
	errResolverCatalogRequired = errors.New("promotion resolver: catalog is required")
	errResolverOffersRequired  = errors.New("promotion resolver: offer repository is required")
)

type priceableFinder interface {
	GetPriceable(ctx context.Context, id string) (Priceable, error)
}

type negotiationReader interface {
	Status(ctx context.Context, actorID, productID string) (NegotiationStatus, error)
}

// PromotionResolverDeps wires the lookups the resolver prices against.
type PromotionResolverDeps struct {
	Priceables   priceableFinder
	Offers       repositories.OfferRepository
	Negotiations negotiationReader
	Logger       func(context.Context, string, map[string]any)
}

type promotionResolver struct {
	priceables   priceableFinder
	offers       repositories.OfferRepository
	negotiations negotiationReader
	logger       func(context.Context, string, map[string]any)
}

// NewPromotionResolver constructs a PromotionResolver enforcing dependency validation.
func NewPromotionResolver(deps PromotionResolverDeps) (PromotionResolver, error) {
	if deps.Priceables == nil {
		return nil, errResolverCatalogRequired
	}
	if deps.Offers == nil {
		return nil, errResolverOffersRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &promotionResolver{
		priceables:   deps.Priceables,
		offers:       deps.Offers,
		negotiations: deps.Negotiations,
		logger:       logger,
	}, nil
}

// ResolveLine prices one line candidate. The selected offer variant wins when
// an active binding exists; otherwise the product's standing discount applies.
func (r *promotionResolver) ResolveLine(ctx context.Context, cmd ResolveLineCommand) (ResolvedLine, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return ResolvedLine{}, fmt.Errorf("promotion resolver: product id: %w", ErrInvalidInput)
	}
	if cmd.Quantity < 1 {
		return ResolvedLine{}, fmt.Errorf("promotion resolver: quantity for %s: %w", productID, ErrInvalidInput)
	}

	priceable, err := r.priceables.GetPriceable(ctx, productID)
	if err != nil {
		return ResolvedLine{}, err
	}

	base := priceable.UnitPrice
	line := CartLine{
		ProductID:  productID,
		Name:       priceable.Name,
		Quantity:   cmd.Quantity,
		BasePrice:  base,
		TaxRatePct: priceable.TaxRatePct,
		Offer:      cmd.Offer,
		AddOns:     cmd.AddOns,
	}

	effective := base * (1 - priceable.DiscountPct/100)
	var complementary *CartLine

	if cmd.Offer != nil {
		binding, found, err := r.activeBinding(ctx, productID, *cmd.Offer)
		if err != nil {
			return ResolvedLine{}, err
		}

		switch {
		case !found && cmd.Offer.Type == domain.OfferTypeFlat:
			// An inactive flat selection contributes nothing over the base price.
			effective = base
		case !found:
			// Other inactive selections fall through to the standing discount.
		case cmd.Offer.Type == domain.OfferTypeFlat:
			effective = base * (1 - binding.FlatPct/100)
		case cmd.Offer.Type == domain.OfferTypeDiscount:
			effective = domain.NonNegative(base - binding.DiscountAmount)
		case cmd.Offer.Type == domain.OfferTypeOnMRP && binding.Mode == domain.OnMRPModeNeed:
			effective = domain.NonNegative(base - binding.ReductionValue)
		case cmd.Offer.Type == domain.OfferTypeOnMRP && binding.Mode == domain.OnMRPModeComplementary:
			effective = base
			complementary = r.complementaryLine(ctx, productID, binding)
		case cmd.Offer.Type == domain.OfferTypeNegotiate:
			negotiated, err := r.negotiatedPrice(ctx, cmd.ActorID, productID)
			if err != nil {
				return ResolvedLine{}, err
			}
			effective = negotiated
		default:
			return ResolvedLine{}, fmt.Errorf("promotion resolver: offer type %q: %w", cmd.Offer.Type, ErrInvalidInput)
		}
	}

	line.UnitPrice = domain.NonNegative(effective)
	line.LineTotal = float64(line.Quantity)*line.UnitPrice + addOnsTotal(cmd.AddOns)

	return ResolvedLine{Line: line, Complementary: complementary}, nil
}

// activeBinding locates the active binding for the selected variant, matching
// on_mrp selections by mode as well as type.
func (r *promotionResolver) activeBinding(ctx context.Context, productID string, selected SelectedOffer) (OfferBinding, bool, error) {
	offers, err := r.offers.FindActiveForProduct(ctx, productID)
	if err != nil {
		return OfferBinding{}, false, translateRepoError("promotion resolver: offers for "+productID, err)
	}

	for _, offer := range offers {
		if offer.Type != selected.Type {
			continue
		}
		binding, ok := offer.BindingFor(productID)
		if !ok || !binding.Active {
			continue
		}
		if selected.Type == domain.OfferTypeOnMRP && binding.Mode != selected.Mode {
			continue
		}
		return binding, true, nil
	}
	return OfferBinding{}, false, nil
}

// complementaryLine builds the zero-priced side line a complementary offer
// attaches. A missing complementary product degrades to no side line.
func (r *promotionResolver) complementaryLine(ctx context.Context, triggerID string, binding OfferBinding) *CartLine {
	compID := strings.TrimSpace(binding.ComplementaryProductID)
	if compID == "" {
		return nil
	}

	priceable, err := r.priceables.GetPriceable(context.WithoutCancel(ctx), compID)
	if err != nil {
		r.logger(ctx, "promotion.complementary.skipped", map[string]any{
			"productId":       triggerID,
			"complementaryId": compID,
			"error":           err.Error(),
		})
		return nil
	}

	return &CartLine{
		ProductID:       compID,
		Name:            priceable.Name,
		Quantity:        1,
		BasePrice:       priceable.UnitPrice,
		UnitPrice:       0,
		TaxRatePct:      priceable.TaxRatePct,
		LineTotal:       0,
		ComplementaryOf: triggerID,
	}
}

func (r *promotionResolver) negotiatedPrice(ctx context.Context, actorID, productID string) (float64, error) {
	if r.negotiations == nil {
		return 0, fmt.Errorf("promotion resolver: negotiation history for %s: %w", productID, ErrInvalidInput)
	}
	status, err := r.negotiations.Status(ctx, actorID, productID)
	if err != nil {
		return 0, err
	}
	if status.CurrentPrice == nil {
		return 0, fmt.Errorf("promotion resolver: no negotiation history for %s: %w", productID, ErrInvalidInput)
	}
	return *status.CurrentPrice, nil
}

func addOnsTotal(addOns []CartAddOn) float64 {
	var total float64
	for _, addOn := range addOns {
		total += addOn.Price
	}
	return total
}
