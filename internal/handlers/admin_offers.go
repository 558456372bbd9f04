package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/repositories"
	"github.com/swiftbasket/api/internal/services"
)

// AdminOfferHandlers exposes offer and coupon maintenance for the admin console.
type AdminOfferHandlers struct {
	promotions services.PromotionService
}

// NewAdminOfferHandlers constructs the admin promotion handlers.
func NewAdminOfferHandlers(promotions services.PromotionService) *AdminOfferHandlers {
	return &AdminOfferHandlers{promotions: promotions}
}

// Routes wires the offer and coupon endpoints onto the provided router.
func (h *AdminOfferHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/offers", h.listOffers)
	r.Post("/offers", h.createOffer)
	r.Get("/offers/{offerID}", h.getOffer)
	r.Put("/offers/{offerID}", h.updateOffer)
	r.Delete("/offers/{offerID}", h.deleteOffer)
	r.Post("/offers/{offerID}/activate", h.setOfferActive(true))
	r.Post("/offers/{offerID}/deactivate", h.setOfferActive(false))
	r.Post("/offers/{offerID}/items/{productID}/activate", h.setItemActive(true))
	r.Post("/offers/{offerID}/items/{productID}/deactivate", h.setItemActive(false))

	r.Get("/coupons", h.listCoupons)
	r.Put("/coupons", h.upsertCoupon)
	r.Delete("/coupons/{code}", h.deleteCoupon)
}

type offerRequest struct {
	Name   string                `json:"name"`
	Type   string                `json:"type"`
	Active bool                  `json:"active"`
	Items  []domain.OfferBinding `json:"items"`
}

func (h *AdminOfferHandlers) listOffers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repositories.OfferListFilter{}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		filter.Type = domain.OfferType(raw)
	}
	if strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("active")), "true") {
		filter.ActiveOnly = true
	}

	offers, err := h.promotions.ListOffers(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if offers == nil {
		offers = []services.Offer{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func (h *AdminOfferHandlers) createOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req offerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	offer, err := h.promotions.CreateOffer(ctx, services.UpsertOfferCommand{
		Name:   strings.TrimSpace(req.Name),
		Type:   domain.OfferType(strings.TrimSpace(req.Type)),
		Active: req.Active,
		Items:  req.Items,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"offer": offer})
}

func (h *AdminOfferHandlers) getOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offer, err := h.promotions.GetOffer(ctx, trimPathParam(chi.URLParam(r, "offerID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"offer": offer})
}

func (h *AdminOfferHandlers) updateOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req offerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	offer, err := h.promotions.UpdateOffer(ctx, services.UpsertOfferCommand{
		OfferID: trimPathParam(chi.URLParam(r, "offerID")),
		Name:    strings.TrimSpace(req.Name),
		Type:    domain.OfferType(strings.TrimSpace(req.Type)),
		Active:  req.Active,
		Items:   req.Items,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"offer": offer})
}

func (h *AdminOfferHandlers) deleteOffer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.promotions.DeleteOffer(ctx, trimPathParam(chi.URLParam(r, "offerID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminOfferHandlers) setOfferActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offer, err := h.promotions.SetOfferActive(ctx, trimPathParam(chi.URLParam(r, "offerID")), active)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"offer": offer})
	}
}

func (h *AdminOfferHandlers) setItemActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offer, err := h.promotions.SetItemActive(ctx,
			trimPathParam(chi.URLParam(r, "offerID")),
			trimPathParam(chi.URLParam(r, "productID")),
			active)
		if err != nil {
			writeServiceError(ctx, w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"offer": offer})
	}
}

func (h *AdminOfferHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activeOnly := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("active")), "true")
	coupons, err := h.promotions.ListCoupons(ctx, activeOnly)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if coupons == nil {
		coupons = []services.Coupon{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"coupons": coupons})
}

func (h *AdminOfferHandlers) upsertCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var coupon domain.Coupon
	if err := decodeJSON(w, r, &coupon); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	saved, err := h.promotions.UpsertCoupon(ctx, coupon)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"coupon": saved})
}

func (h *AdminOfferHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.promotions.DeleteCoupon(ctx, trimPathParam(chi.URLParam(r, "code"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
