package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/repositories"
	"github.com/swiftbasket/api/internal/services"
)

// AdminCatalogHandlers exposes product maintenance for the admin console.
type AdminCatalogHandlers struct {
	catalog services.CatalogService
}

// NewAdminCatalogHandlers constructs the admin catalog handlers.
func NewAdminCatalogHandlers(catalog services.CatalogService) *AdminCatalogHandlers {
	return &AdminCatalogHandlers{catalog: catalog}
}

// Routes wires the admin product endpoints onto the provided router.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Post("/products", h.upsertProduct)
	r.Put("/products/{productID}", h.upsertProduct)
	r.Delete("/products/{productID}", h.deleteProduct)
}

type upsertProductRequest struct {
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRatePct  float64 `json:"tax_rate_pct"`
	DiscountPct float64 `json:"discount_pct"`
	Stock       int64   `json:"stock"`
	Active      bool    `json:"active"`
	IsBundle    bool    `json:"is_bundle,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

func (h *AdminCatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Admins see inactive products too.
	products, err := h.catalog.ListProducts(ctx, repositories.CatalogListFilter{})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if products == nil {
		products = []services.Product{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *AdminCatalogHandlers) upsertProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	product, err := h.catalog.UpsertProduct(ctx, services.UpsertProductCommand{
		ProductID:   trimPathParam(chi.URLParam(r, "productID")),
		Name:        strings.TrimSpace(req.Name),
		UnitPrice:   req.UnitPrice,
		TaxRatePct:  req.TaxRatePct,
		DiscountPct: req.DiscountPct,
		Stock:       req.Stock,
		Active:      req.Active,
		IsBundle:    req.IsBundle,
		ImageURL:    strings.TrimSpace(req.ImageURL),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (h *AdminCatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.catalog.DeleteProduct(ctx, trimPathParam(chi.URLParam(r, "productID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
