package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/swiftbasket/api/internal/domain"
	pfirestore "github.com/swiftbasket/api/internal/platform/firestore"
)

// StockRepository mutates the stock field of product documents transactionally.
type StockRepository struct {
	provider *pfirestore.Provider
	products *pfirestore.BaseRepository[productDocument]
}

// NewStockRepository constructs a Firestore-backed stock repository.
func NewStockRepository(provider *pfirestore.Provider) (*StockRepository, error) {
	if provider == nil {
		return nil, errors.New("stock repository requires firestore provider")
	}
	return &StockRepository{
		provider: provider,
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection),
	}, nil
}

// Check reads current stock for every line, returning all violations.
func (r *StockRepository) Check(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error) {
	var violations []domain.StockViolation
	for _, line := range lines {
		doc, err := r.products.Get(ctx, line.ProductID)
		if err != nil {
			if isNotFound(err) {
				violations = append(violations, domain.StockViolation{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: 0,
				})
				continue
			}
			return nil, err
		}
		if doc.Data.Stock < line.Quantity {
			violations = append(violations, domain.StockViolation{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: doc.Data.Stock,
			})
		}
	}
	return violations, nil
}

// DecrementAll decrements stock for every line inside one transaction. All
// reads happen before any write; when any line is short no decrement is
// applied and the full violation list is returned.
func (r *StockRepository) DecrementAll(ctx context.Context, lines []domain.StockLine) ([]domain.StockViolation, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	var violations []domain.StockViolation
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		violations = violations[:0]

		type pending struct {
			ref       *firestore.DocumentRef
			remaining int64
		}
		updates := make([]pending, 0, len(lines))

		for _, line := range lines {
			ref, err := r.products.DocumentRef(ctx, line.ProductID)
			if err != nil {
				return err
			}

			snapshot, err := tx.Get(ref)
			if status.Code(err) == codes.NotFound {
				violations = append(violations, domain.StockViolation{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: 0,
				})
				continue
			}
			if err != nil {
				return err
			}

			var doc productDocument
			if err := snapshot.DataTo(&doc); err != nil {
				return fmt.Errorf("firestore products decode %s: %w", line.ProductID, err)
			}

			if doc.Stock < line.Quantity {
				violations = append(violations, domain.StockViolation{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Available: doc.Stock,
				})
				continue
			}

			updates = append(updates, pending{ref: ref, remaining: doc.Stock - line.Quantity})
		}

		if len(violations) > 0 {
			return nil
		}

		now := time.Now().UTC()
		for _, u := range updates {
			if err := tx.Update(u.ref, []firestore.Update{
				{Path: "stock", Value: u.remaining},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return violations, nil
}

// RestoreAll adds quantities back unconditionally, recreating documents for
// products deleted since the order was placed so the stock record survives.
func (r *StockRepository) RestoreAll(ctx context.Context, lines []domain.StockLine) error {
	if len(lines) == 0 {
		return nil
	}

	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		type pending struct {
			ref    *firestore.DocumentRef
			exists bool
			stock  int64
		}
		restores := make([]pending, 0, len(lines))

		for _, line := range lines {
			ref, err := r.products.DocumentRef(ctx, line.ProductID)
			if err != nil {
				return err
			}

			snapshot, err := tx.Get(ref)
			if status.Code(err) == codes.NotFound {
				restores = append(restores, pending{ref: ref, stock: line.Quantity})
				continue
			}
			if err != nil {
				return err
			}

			var doc productDocument
			if err := snapshot.DataTo(&doc); err != nil {
				return fmt.Errorf("firestore products decode %s: %w", line.ProductID, err)
			}
			restores = append(restores, pending{ref: ref, exists: true, stock: doc.Stock + line.Quantity})
		}

		now := time.Now().UTC()
		for _, p := range restores {
			if p.exists {
				if err := tx.Update(p.ref, []firestore.Update{
					{Path: "stock", Value: p.stock},
					{Path: "updatedAt", Value: now},
				}); err != nil {
					return err
				}
				continue
			}
			if err := tx.Set(p.ref, map[string]any{
				"stock":     p.stock,
				"active":    false,
				"updatedAt": now,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}
		return nil
	})
}
