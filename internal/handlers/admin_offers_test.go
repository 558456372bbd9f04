package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/services"
)

func adminOfferRoutes(h *AdminOfferHandlers) func(chi.Router) {
	return func(r chi.Router) { r.Route("/admin", h.Routes) }
}

func TestAdminOfferHandlersCreateOffer(t *testing.T) {
	service := &stubPromotionService{
		createOfferFn: func(_ context.Context, cmd services.UpsertOfferCommand) (services.Offer, error) {
			if cmd.Type != domain.OfferTypeNegotiate || len(cmd.Items) != 1 {
				t.Fatalf("cmd = %+v", cmd)
			}
			item := cmd.Items[0]
			if item.FloorPrice != 80 || item.MaxAttempts != 3 {
				t.Fatalf("item = %+v", item)
			}
			return services.Offer{ID: "offer-1", Name: cmd.Name, Type: cmd.Type, Active: cmd.Active, Items: cmd.Items}, nil
		},
	}
	handler := NewAdminOfferHandlers(service)

	body := `{
		"name": "Haggle",
		"type": "negotiate",
		"active": true,
		"items": [{"product_id":"prod-a","active":true,"floor_price":80,"success_pct":10,"failure_pct":20,"max_attempts":3}]
	}`
	rr := serve(t, adminOfferRoutes(handler), authedRequest(http.MethodPost, "/admin/offers", body, "admin-1"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Offer domain.Offer `json:"offer"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Offer.ID != "offer-1" {
		t.Fatalf("offer = %+v", resp.Offer)
	}
}

func TestAdminOfferHandlersCreateOfferValidation(t *testing.T) {
	service := &stubPromotionService{
		createOfferFn: func(context.Context, services.UpsertOfferCommand) (services.Offer, error) {
			return services.Offer{}, services.ErrInvalidInput
		},
	}
	handler := NewAdminOfferHandlers(service)

	body := `{"name":"Bad","type":"flat","active":true,"items":[{"product_id":"p","active":true,"flat_pct":500}]}`
	rr := serve(t, adminOfferRoutes(handler), authedRequest(http.MethodPost, "/admin/offers", body, "admin-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAdminOfferHandlersToggleItem(t *testing.T) {
	service := &stubPromotionService{
		setItemActiveFn: func(_ context.Context, offerID, productID string, active bool) (services.Offer, error) {
			if offerID != "offer-1" || productID != "prod-a" || active {
				t.Fatalf("args = %q %q %v", offerID, productID, active)
			}
			return services.Offer{ID: offerID}, nil
		},
	}
	handler := NewAdminOfferHandlers(service)

	rr := serve(t, adminOfferRoutes(handler),
		authedRequest(http.MethodPost, "/admin/offers/offer-1/items/prod-a/deactivate", "", "admin-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestAdminOfferHandlersDeleteOffer(t *testing.T) {
	service := &stubPromotionService{
		deleteOfferFn: func(_ context.Context, offerID string) error {
			if offerID != "offer-1" {
				t.Fatalf("offer id = %q", offerID)
			}
			return nil
		},
	}
	handler := NewAdminOfferHandlers(service)

	rr := serve(t, adminOfferRoutes(handler), authedRequest(http.MethodDelete, "/admin/offers/offer-1", "", "admin-1"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
}

func TestAdminOfferHandlersUpsertCoupon(t *testing.T) {
	service := &stubPromotionService{
		upsertCouponFn: func(_ context.Context, coupon services.Coupon) (services.Coupon, error) {
			coupon.Code = "SAVE10"
			return coupon, nil
		},
	}
	handler := NewAdminOfferHandlers(service)

	body := `{"code":"save10","pct":10,"min_price":100,"max_price":1000,"active":true}`
	rr := serve(t, adminOfferRoutes(handler), authedRequest(http.MethodPut, "/admin/coupons", body, "admin-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Coupon domain.Coupon `json:"coupon"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Coupon.Code != "SAVE10" {
		t.Fatalf("coupon = %+v", resp.Coupon)
	}
}
