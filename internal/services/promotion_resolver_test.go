package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/swiftbasket/api/internal/domain"
)

func newTestResolver(t *testing.T, priceables map[string]domain.Priceable, offers []domain.Offer, history *stubNegotiationReader) PromotionResolver {
	t.Helper()

	deps := PromotionResolverDeps{
		Priceables: &stubPriceables{
			getFn: func(_ context.Context, id string) (domain.Priceable, error) {
				if p, ok := priceables[id]; ok {
					return p, nil
				}
				return domain.Priceable{}, repoNotFound()
			},
		},
		Offers: &stubOfferRepo{
			findForProductFn: func(_ context.Context, productID string) ([]domain.Offer, error) {
				var matched []domain.Offer
				for _, offer := range offers {
					if !offer.Active {
						continue
					}
					if binding, ok := offer.BindingFor(productID); ok && binding.Active {
						matched = append(matched, offer)
					}
				}
				return matched, nil
			},
		},
		Negotiations: history,
	}

	resolver, err := NewPromotionResolver(deps)
	if err != nil {
		t.Fatalf("NewPromotionResolver: %v", err)
	}
	return resolver
}

func TestResolveLineNoOfferUsesStandingDiscount(t *testing.T) {
	resolver := newTestResolver(t, map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", Name: "Basmati Rice", UnitPrice: 200, TaxRatePct: 5, DiscountPct: 10, Active: true},
	}, nil, nil)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 2,
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Line.UnitPrice != 180 {
		t.Fatalf("unit price = %v, want 180", resolved.Line.UnitPrice)
	}
	if resolved.Line.BasePrice != 200 {
		t.Fatalf("base price = %v, want 200", resolved.Line.BasePrice)
	}
	if resolved.Line.LineTotal != 360 {
		t.Fatalf("line total = %v, want 360", resolved.Line.LineTotal)
	}
}

func TestResolveLineUnknownProduct(t *testing.T) {
	resolver := newTestResolver(t, nil, nil, nil)

	_, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "missing", Quantity: 1,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveLineInvalidQuantity(t *testing.T) {
	resolver := newTestResolver(t, nil, nil, nil)

	_, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 0,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestResolveLineFlatOffer(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", UnitPrice: 100, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeFlat, Active: true,
		Items: []domain.OfferBinding{{ProductID: "prod-a", Active: true, FlatPct: 25}},
	}}
	resolver := newTestResolver(t, priceables, offers, nil)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 1,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeFlat},
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Line.UnitPrice != 75 {
		t.Fatalf("unit price = %v, want 75", resolved.Line.UnitPrice)
	}
}

func TestResolveLineFlatOfferInactiveRevertsToBase(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", UnitPrice: 100, DiscountPct: 10, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeFlat, Active: true,
		Items: []domain.OfferBinding{{ProductID: "prod-a", Active: false, FlatPct: 25}},
	}}
	resolver := newTestResolver(t, priceables, offers, nil)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 1,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeFlat},
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Line.UnitPrice != 100 {
		t.Fatalf("unit price = %v, want base 100", resolved.Line.UnitPrice)
	}
}

func TestResolveLineDiscountOfferFloorsAtZero(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", UnitPrice: 30, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeDiscount, Active: true,
		Items: []domain.OfferBinding{{ProductID: "prod-a", Active: true, DiscountAmount: 50}},
	}}
	resolver := newTestResolver(t, priceables, offers, nil)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 1,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeDiscount},
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Line.UnitPrice != 0 {
		t.Fatalf("unit price = %v, want 0", resolved.Line.UnitPrice)
	}
}

func TestResolveLineOnMRPNeed(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", UnitPrice: 120, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeOnMRP, Active: true,
		Items: []domain.OfferBinding{{
			ProductID: "prod-a", Active: true,
			Mode: domain.OnMRPModeNeed, ReductionValue: 20,
		}},
	}}
	resolver := newTestResolver(t, priceables, offers, nil)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 1,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeOnMRP, Mode: domain.OnMRPModeNeed},
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Line.UnitPrice != 100 {
		t.Fatalf("unit price = %v, want 100", resolved.Line.UnitPrice)
	}
}

func TestResolveLineComplementaryAttachesSideLine(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", Name: "Trigger", UnitPrice: 150, TaxRatePct: 5, Active: true},
		"prod-b": {ID: "prod-b", Name: "Freebie", UnitPrice: 40, TaxRatePct: 12, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeOnMRP, Active: true,
		Items: []domain.OfferBinding{{
			ProductID: "prod-a", Active: true,
			Mode: domain.OnMRPModeComplementary, ComplementaryProductID: "prod-b",
		}},
	}}
	resolver := newTestResolver(t, priceables, offers, nil)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 3,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeOnMRP, Mode: domain.OnMRPModeComplementary},
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Line.UnitPrice != 150 {
		t.Fatalf("trigger unit price = %v, want base 150", resolved.Line.UnitPrice)
	}
	comp := resolved.Complementary
	if comp == nil {
		t.Fatal("expected complementary line")
	}
	if comp.ProductID != "prod-b" || comp.UnitPrice != 0 || comp.Quantity != 1 {
		t.Fatalf("complementary = %+v", comp)
	}
	if comp.ComplementaryOf != "prod-a" {
		t.Fatalf("complementaryOf = %q, want prod-a", comp.ComplementaryOf)
	}
}

func TestResolveLineComplementaryMissingProductDegrades(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", UnitPrice: 150, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeOnMRP, Active: true,
		Items: []domain.OfferBinding{{
			ProductID: "prod-a", Active: true,
			Mode: domain.OnMRPModeComplementary, ComplementaryProductID: "gone",
		}},
	}}
	resolver := newTestResolver(t, priceables, offers, nil)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 1,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeOnMRP, Mode: domain.OnMRPModeComplementary},
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Complementary != nil {
		t.Fatalf("expected no complementary line, got %+v", resolved.Complementary)
	}
}

func TestResolveLineNegotiatedPrice(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", UnitPrice: 100, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeNegotiate, Active: true,
		Items: []domain.OfferBinding{{
			ProductID: "prod-a", Active: true,
			FloorPrice: 80, SuccessPct: 10, FailurePct: 20, MaxAttempts: 3,
		}},
	}}
	price := 81.0
	history := &stubNegotiationReader{
		statusFn: func(_ context.Context, actorID, productID string) (NegotiationStatus, error) {
			return NegotiationStatus{ProductID: productID, AttemptsCount: 2, CurrentPrice: &price}, nil
		},
	}
	resolver := newTestResolver(t, priceables, offers, history)

	resolved, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 1,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeNegotiate},
	})
	if err != nil {
		t.Fatalf("ResolveLine: %v", err)
	}
	if resolved.Line.UnitPrice != 81 {
		t.Fatalf("unit price = %v, want negotiated 81", resolved.Line.UnitPrice)
	}
}

func TestResolveLineNegotiateWithoutHistory(t *testing.T) {
	priceables := map[string]domain.Priceable{
		"prod-a": {ID: "prod-a", UnitPrice: 100, Active: true},
	}
	offers := []domain.Offer{{
		ID: "offer-1", Type: domain.OfferTypeNegotiate, Active: true,
		Items: []domain.OfferBinding{{ProductID: "prod-a", Active: true, FloorPrice: 80, MaxAttempts: 3}},
	}}
	resolver := newTestResolver(t, priceables, offers, &stubNegotiationReader{})

	_, err := resolver.ResolveLine(context.Background(), ResolveLineCommand{
		ActorID: "customer-1", ProductID: "prod-a", Quantity: 1,
		Offer: &domain.SelectedOffer{Type: domain.OfferTypeNegotiate},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
