package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/services"
)

// NegotiationHandlers exposes per-product price negotiation for the current actor.
type NegotiationHandlers struct {
	negotiations services.NegotiationService
}

// NewNegotiationHandlers constructs the negotiation handlers.
func NewNegotiationHandlers(negotiations services.NegotiationService) *NegotiationHandlers {
	return &NegotiationHandlers{negotiations: negotiations}
}

// Routes wires the /negotiations endpoints onto the provided router.
func (h *NegotiationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{productID}", h.status)
	r.Post("/{productID}", h.negotiate)
}

type negotiateRequest struct {
	Offered float64 `json:"offered"`
}

type negotiationStatusResponse struct {
	ProductID     string   `json:"product_id"`
	AttemptsCount int      `json:"attempts_count"`
	MaxAttempts   int      `json:"max_attempts"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
}

type negotiateResponse struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	NextPrice     float64 `json:"next_price"`
	AttemptsCount int     `json:"attempts_count"`
	MaxAttempts   int     `json:"max_attempts"`
}

func (h *NegotiationHandlers) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	status, err := h.negotiations.Status(ctx, actorID, trimPathParam(chi.URLParam(r, "productID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, negotiationStatusResponse{
		ProductID:     status.ProductID,
		AttemptsCount: status.AttemptsCount,
		MaxAttempts:   status.MaxAttempts,
		CurrentPrice:  status.CurrentPrice,
	})
}

func (h *NegotiationHandlers) negotiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req negotiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.negotiations.Negotiate(ctx, actorID, trimPathParam(chi.URLParam(r, "productID")), req.Offered)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, negotiateResponse{
		Success:       result.Success,
		Message:       result.Message,
		NextPrice:     result.NextPrice,
		AttemptsCount: result.AttemptsCount,
		MaxAttempts:   result.MaxAttempts,
	})
}
