package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/services"
)

// CartHandlers exposes the authenticated cart endpoints for the current actor.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs the cart handlers.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Post("/lines", h.addOrUpdateLines)
	r.Patch("/lines/{productID}", h.setQuantity)
	r.Delete("/lines/{productID}", h.removeLine)
	r.Post("/address", h.priceForDestination)
	r.Post("/coupon", h.applyCoupon)
	r.Delete("/coupon", h.removeCoupon)
}

type cartLineRequest struct {
	ProductID string                `json:"product_id"`
	Quantity  int64                 `json:"quantity"`
	Offer     *domain.SelectedOffer `json:"offer,omitempty"`
	AddOns    []domain.CartAddOn    `json:"add_ons,omitempty"`
}

type addLinesRequest struct {
	Lines []cartLineRequest `json:"lines"`
}

type setQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

type cartAddressRequest struct {
	AddressID string `json:"address_id"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetCart(ctx, actorID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func (h *CartHandlers) addOrUpdateLines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req addLinesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if len(req.Lines) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lines must not be empty", http.StatusBadRequest))
		return
	}

	lines := make([]services.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, services.LineInput{
			ProductID: strings.TrimSpace(line.ProductID),
			Quantity:  line.Quantity,
			Offer:     line.Offer,
			AddOns:    line.AddOns,
		})
	}

	cart, err := h.carts.AddOrUpdateLines(ctx, actorID, lines)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func (h *CartHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.SetQuantity(ctx, actorID, trimPathParam(chi.URLParam(r, "productID")), req.Quantity)
	if err != nil {
		if errors.Is(err, services.ErrProductNotInCart) {
			httpx.WriteError(ctx, w, httpx.NewError("product_not_in_cart", "product is not in the cart", http.StatusNotFound))
			return
		}
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func (h *CartHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveLine(ctx, actorID, trimPathParam(chi.URLParam(r, "productID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func (h *CartHandlers) priceForDestination(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req cartAddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.PriceForDestination(ctx, actorID, strings.TrimSpace(req.AddressID))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req applyCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cart, err := h.carts.ApplyCoupon(ctx, actorID, strings.TrimSpace(req.Code))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveCoupon(ctx, actorID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCart(w, cart)
}

func writeCart(w http.ResponseWriter, cart services.Cart) {
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": cart})
}
