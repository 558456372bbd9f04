package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/repositories"
	"github.com/swiftbasket/api/internal/services"
)

func catalogRoutes(h *CatalogHandlers) func(chi.Router) {
	return func(r chi.Router) { r.Route("/catalog", h.Routes) }
}

func TestCatalogHandlersListProducts(t *testing.T) {
	service := &stubCatalogService{
		listFn: func(_ context.Context, filter repositories.CatalogListFilter) ([]services.Product, error) {
			if !filter.ActiveOnly {
				t.Fatal("public listing must filter to active products")
			}
			return []services.Product{{ID: "prod-a", Name: "Basmati Rice", UnitPrice: 200, Active: true}}, nil
		},
	}
	handler := NewCatalogHandlers(service)

	rr := serve(t, catalogRoutes(handler), authedRequest(http.MethodGet, "/catalog/products", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != "prod-a" {
		t.Fatalf("products = %+v", resp.Products)
	}
}

func TestCatalogHandlersGetProductHidesInactive(t *testing.T) {
	service := &stubCatalogService{
		getProductFn: func(_ context.Context, productID string) (services.Product, error) {
			return services.Product{ID: productID, Active: false}, nil
		},
	}
	handler := NewCatalogHandlers(service)

	rr := serve(t, catalogRoutes(handler), authedRequest(http.MethodGet, "/catalog/products/prod-a", "", ""))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for inactive product", rr.Code)
	}
}

func TestCatalogHandlersInvalidLimit(t *testing.T) {
	handler := NewCatalogHandlers(&stubCatalogService{})

	rr := serve(t, catalogRoutes(handler), authedRequest(http.MethodGet, "/catalog/products?limit=abc", "", ""))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
