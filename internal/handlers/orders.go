package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/repositories"
	"github.com/swiftbasket/api/internal/services"
)

// OrderHandlers exposes the customer-facing order endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs the customer order handlers.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.convertCart)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
}

type convertCartRequest struct {
	AddressID     string `json:"address_id,omitempty"`
	CouponCode    string `json:"coupon_code,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type conversionResponse struct {
	Order           services.Order `json:"order"`
	PaymentRequired bool           `json:"payment_required"`
	ClientSecret    string         `json:"client_secret,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *OrderHandlers) convertCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req convertCartRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
	}

	result, err := h.orders.ConvertCart(ctx, services.ConvertCartCommand{
		ActorID:       actorID,
		AddressID:     strings.TrimSpace(req.AddressID),
		CouponCode:    strings.TrimSpace(req.CouponCode),
		PaymentMethod: domain.PaymentMethod(strings.TrimSpace(req.PaymentMethod)),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, conversionResponse{
		Order:           result.Order,
		PaymentRequired: result.PaymentRequired,
		ClientSecret:    result.ClientSecret,
	})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	filter, ok := orderListFilter(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListByActor(ctx, actorID, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if orders == nil {
		orders = []services.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, trimPathParam(chi.URLParam(r, "orderID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	// Customers only see their own orders.
	if order.ActorID != actorID {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
	}

	orderID := trimPathParam(chi.URLParam(r, "orderID"))
	existing, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if existing.ActorID != actorID {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
		return
	}

	order, err := h.orders.Transition(ctx, services.TransitionCommand{
		OrderID: orderID,
		Target:  domain.OrderStatusCancelled,
		ActorID: actorID,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

// StaffOrderHandlers exposes the fulfillment-side order endpoints.
type StaffOrderHandlers struct {
	orders services.OrderService
}

// NewStaffOrderHandlers constructs the staff order handlers.
func NewStaffOrderHandlers(orders services.OrderService) *StaffOrderHandlers {
	return &StaffOrderHandlers{orders: orders}
}

// Routes wires the staff order endpoints onto the provided router.
func (h *StaffOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listByStatus)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/status", h.transition)
}

type transitionRequest struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

func (h *StaffOrderHandlers) listByStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := domain.OrderStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		status = domain.OrderStatusPending
	}

	filter, ok := orderListFilter(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListByStatus(ctx, status, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if orders == nil {
		orders = []services.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *StaffOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.orders.GetOrder(ctx, trimPathParam(chi.URLParam(r, "orderID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *StaffOrderHandlers) transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, _ := identityUID(ctx)

	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.Transition(ctx, services.TransitionCommand{
		OrderID: trimPathParam(chi.URLParam(r, "orderID")),
		Target:  domain.OrderStatus(strings.TrimSpace(req.Target)),
		ActorID: actorID,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

func orderListFilter(w http.ResponseWriter, r *http.Request) (repositories.OrderListFilter, bool) {
	var filter repositories.OrderListFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
			return filter, false
		}
		filter.Limit = limit
	}
	return filter, true
}
