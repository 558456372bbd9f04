package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftbasket/api/internal/platform/httpx"
	"github.com/swiftbasket/api/internal/repositories"
	"github.com/swiftbasket/api/internal/services"
)

// CatalogHandlers exposes public product browsing.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs the public catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the public product endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := repositories.CatalogListFilter{ActiveOnly: true}
	if raw := strings.TrimSpace(r.URL.Query().Get("bundles")); raw != "" {
		bundles, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "bundles must be a boolean", http.StatusBadRequest))
			return
		}
		filter.BundlesOnly = bundles
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
			return
		}
		filter.Limit = limit
	}

	products, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if products == nil {
		products = []services.Product{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	product, err := h.catalog.GetProduct(ctx, trimPathParam(chi.URLParam(r, "productID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	if !product.Active {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "product not found", http.StatusNotFound))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": product})
}
