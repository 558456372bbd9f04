package services

import (
	"errors"
	"fmt"
	"strings"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/repositories"
)

// Business error taxonomy. Services wrap these with context so callers match
// with errors.Is while logs keep the failing detail.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrAttemptLimitExceeded = errors.New("negotiation attempt limit exceeded")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
)

// Cart-specific refinements of the NotFound family.
var (
	ErrNoActiveCart     = fmt.Errorf("no active cart: %w", ErrNotFound)
	ErrProductNotInCart = fmt.Errorf("product not in cart: %w", ErrNotFound)
)

// InsufficientStockError enumerates every line that cannot be fulfilled.
type InsufficientStockError struct {
	Violations []domain.StockViolation
}

func (e *InsufficientStockError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "insufficient stock"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s requested %d available %d", v.ProductID, v.Requested, v.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// AsInsufficientStock unwraps err into an InsufficientStockError when present.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var target *InsufficientStockError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepoUnavailable(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

// translateRepoError maps repository classifications onto the business
// taxonomy; unclassified failures pass through wrapped.
func translateRepoError(scope string, err error) error {
	switch {
	case err == nil:
		return nil
	case isRepoNotFound(err):
		return fmt.Errorf("%s: %w", scope, ErrNotFound)
	case isRepoUnavailable(err):
		return fmt.Errorf("%s: %w", scope, ErrUpstreamUnavailable)
	default:
		return fmt.Errorf("%s: %w", scope, err)
	}
}
