package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/services"
)

// AddressHandlers manages the current actor's delivery destinations.
type AddressHandlers struct {
	addresses services.AddressService
}

// NewAddressHandlers constructs the address handlers.
func NewAddressHandlers(addresses services.AddressService) *AddressHandlers {
	return &AddressHandlers{addresses: addresses}
}

// Routes wires the /me/addresses endpoints onto the provided router.
func (h *AddressHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/addresses", h.listAddresses)
	r.Post("/addresses", h.upsertAddress)
	r.Put("/addresses/{addressID}", h.upsertAddress)
	r.Delete("/addresses/{addressID}", h.deleteAddress)
}

type upsertAddressRequest struct {
	Label string  `json:"label,omitempty"`
	Line1 string  `json:"line1"`
	City  string  `json:"city,omitempty"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

func (h *AddressHandlers) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	addresses, err := h.addresses.ListAddresses(ctx, actorID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if addresses == nil {
		addresses = []services.Address{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"addresses": addresses})
}

func (h *AddressHandlers) upsertAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req upsertAddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	address, err := h.addresses.UpsertAddress(ctx, services.UpsertAddressCommand{
		ActorID:   actorID,
		AddressID: trimPathParam(chi.URLParam(r, "addressID")),
		Label:     strings.TrimSpace(req.Label),
		Line1:     strings.TrimSpace(req.Line1),
		City:      strings.TrimSpace(req.City),
		Lat:       req.Lat,
		Lng:       req.Lng,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"address": address})
}

func (h *AddressHandlers) deleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.addresses.DeleteAddress(ctx, actorID, trimPathParam(chi.URLParam(r, "addressID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
