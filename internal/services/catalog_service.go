package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/swiftbasket/api/internal/repositories"
)

var (
	errCatalogRepositoryRequired = errors.New("catalog service: repository is required")
	errCatalogClockRequired      = errors.New("catalog service: clock is required")
)

// CatalogServiceDeps wires persistence and ambient dependencies for catalog operations.
type CatalogServiceDeps struct {
	Repository  repositories.CatalogRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type catalogService struct {
	repo   repositories.CatalogRepository
	now    func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errCatalogRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCatalogClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &catalogService{
		repo:   deps.Repository,
		now:    func() time.Time { return deps.Clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

// GetPriceable resolves a product or bundle into the pricing read model.
// Inactive entries are invisible to pricing.
func (s *catalogService) GetPriceable(ctx context.Context, id string) (Priceable, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Priceable{}, fmt.Errorf("catalog service: priceable id: %w", ErrInvalidInput)
	}

	priceable, err := s.repo.FindPriceable(ctx, id)
	if err != nil {
		return Priceable{}, translateRepoError("catalog service: priceable "+id, err)
	}
	if !priceable.Active {
		return Priceable{}, fmt.Errorf("catalog service: priceable %s: %w", id, ErrNotFound)
	}
	return priceable, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("catalog service: product id: %w", ErrInvalidInput)
	}

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return Product{}, translateRepoError("catalog service: product "+productID, err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter repositories.CatalogListFilter) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, translateRepoError("catalog service: list products", err)
	}
	return products, nil
}

func (s *catalogService) UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	switch {
	case name == "":
		return Product{}, fmt.Errorf("catalog service: product name: %w", ErrInvalidInput)
	case cmd.UnitPrice < 0:
		return Product{}, fmt.Errorf("catalog service: unit price: %w", ErrInvalidInput)
	case cmd.TaxRatePct < 0 || cmd.TaxRatePct > 100:
		return Product{}, fmt.Errorf("catalog service: tax rate: %w", ErrInvalidInput)
	case cmd.DiscountPct < 0 || cmd.DiscountPct > 100:
		return Product{}, fmt.Errorf("catalog service: discount pct: %w", ErrInvalidInput)
	case cmd.Stock < 0:
		return Product{}, fmt.Errorf("catalog service: stock: %w", ErrInvalidInput)
	}

	now := s.now()
	product := Product{
		ID:          strings.TrimSpace(cmd.ProductID),
		Name:        name,
		UnitPrice:   cmd.UnitPrice,
		TaxRatePct:  cmd.TaxRatePct,
		DiscountPct: cmd.DiscountPct,
		Stock:       cmd.Stock,
		Active:      cmd.Active,
		IsBundle:    cmd.IsBundle,
		ImageURL:    strings.TrimSpace(cmd.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if product.ID == "" {
		product.ID = s.newID()
	} else if existing, err := s.repo.FindProduct(ctx, product.ID); err == nil {
		product.CreatedAt = existing.CreatedAt
	} else if !isRepoNotFound(err) {
		return Product{}, translateRepoError("catalog service: product "+product.ID, err)
	}

	saved, err := s.repo.UpsertProduct(ctx, product)
	if err != nil {
		return Product{}, translateRepoError("catalog service: upsert product "+product.ID, err)
	}

	s.logger(ctx, "catalog.product.upserted", map[string]any{
		"productId": saved.ID,
		"active":    saved.Active,
	})
	return saved, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("catalog service: product id: %w", ErrInvalidInput)
	}

	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return translateRepoError("catalog service: delete product "+productID, err)
	}

	s.logger(ctx, "catalog.product.deleted", map[string]any{"productId": productID})
	return nil
}
