package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/swiftbasket/api/internal/domain"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
	"github.com/swiftbasket/api/internal/repositories"
)

const (
	productsCollection = "products"
	bundlesCollection  = "bundles"
)

type productDocument struct {
	Name        string    `firestore:"name"`
	UnitPrice   float64   `firestore:"unitPrice"`
	TaxRatePct  float64   `firestore:"taxRatePct"`
	DiscountPct float64   `firestore:"discountPct"`
	Stock       int64     `firestore:"stock"`
	Active      bool      `firestore:"active"`
	IsBundle    bool      `firestore:"isBundle"`
	ImageURL    string    `firestore:"imageUrl,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:          id,
		Name:        d.Name,
		UnitPrice:   d.UnitPrice,
		TaxRatePct:  d.TaxRatePct,
		DiscountPct: d.DiscountPct,
		Stock:       d.Stock,
		Active:      d.Active,
		IsBundle:    d.IsBundle,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func productToDocument(p domain.Product) productDocument {
	return productDocument{
		Name:        p.Name,
		UnitPrice:   p.UnitPrice,
		TaxRatePct:  p.TaxRatePct,
		DiscountPct: p.DiscountPct,
		Stock:       p.Stock,
		Active:      p.Active,
		IsBundle:    p.IsBundle,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// CatalogRepository implements repositories.CatalogRepository over the
// products and bundles collections.
type CatalogRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
	bundles  *pfirestore.BaseRepository[productDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		provider: provider,
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection),
		bundles:  pfirestore.NewBaseRepository[productDocument](provider, bundlesCollection),
	}, nil
}

func (r *CatalogRepository) repoFor(isBundle bool) *pfirestore.BaseRepository[productDocument] {
	if isBundle {
		return r.bundles
	}
	return r.products
}

// UpsertProduct writes the product under its id in the matching namespace.
func (r *CatalogRepository) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" {
		return domain.Product{}, errors.New("catalog: product id is required")
	}
	if _, err := r.repoFor(product.IsBundle).Set(ctx, product.ID, productToDocument(product)); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// FindProduct loads a product by id, checking bundles when no product matches.
func (r *CatalogRepository) FindProduct(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.products.Get(ctx, productID)
	if err == nil {
		return doc.Data.toDomain(doc.ID), nil
	}
	if !isNotFound(err) {
		return domain.Product{}, err
	}

	doc, err = r.bundles.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	product := doc.Data.toDomain(doc.ID)
	product.IsBundle = true
	return product, nil
}

// ListProducts returns catalog entries matching the filter.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter repositories.CatalogListFilter) ([]domain.Product, error) {
	repo := r.repoFor(filter.BundlesOnly)

	docs, err := repo.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		q = q.OrderBy("name", firestore.Asc)
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		product := doc.Data.toDomain(doc.ID)
		product.IsBundle = filter.BundlesOnly
		products = append(products, product)
	}
	return products, nil
}

// DeleteProduct removes the product from whichever namespace holds it.
func (r *CatalogRepository) DeleteProduct(ctx context.Context, productID string) error {
	if err := r.products.Delete(ctx, productID); err != nil {
		return err
	}
	return r.bundles.Delete(ctx, productID)
}

// FindPriceable resolves a product or bundle into the pricing read model.
func (r *CatalogRepository) FindPriceable(ctx context.Context, id string) (domain.Priceable, error) {
	product, err := r.FindProduct(ctx, id)
	if err != nil {
		return domain.Priceable{}, err
	}
	return domain.Priceable{
		ID:          product.ID,
		Name:        product.Name,
		UnitPrice:   product.UnitPrice,
		TaxRatePct:  product.TaxRatePct,
		DiscountPct: product.DiscountPct,
		Stock:       product.Stock,
		Active:      product.Active,
	}, nil
}

// SetDiscountPct updates the standing no-offer discount on a product.
func (r *CatalogRepository) SetDiscountPct(ctx context.Context, productID string, pct float64, updatedAt time.Time) error {
	updates := []firestore.Update{
		{Path: "discountPct", Value: pct},
		{Path: "updatedAt", Value: updatedAt},
	}
	_, err := r.products.Update(ctx, productID, updates)
	if err != nil && isNotFound(err) {
		_, err = r.bundles.Update(ctx, productID, updates)
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
