package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/platform/keyedmutex"
	"github.com/swiftbasket/api/internal/repositories"
)

var (
	errNegotiationRepositoryRequired = errors.New("negotiation service: repository is required")
	errNegotiationOffersRequired     = errors.New("negotiation service: offer repository is required")
	errNegotiationCatalogRequired    = errors.New("negotiation service: catalog is required")
	errNegotiationClockRequired      = errors.New("negotiation service: clock is required")
)

const (
	negotiationAcceptedMessage = "Offer accepted. Add the item at the agreed price."
	negotiationDeclinedMessage = "Offer too low. This is the best price we can counter with."
)

// NegotiationServiceDeps wires persistence and lookups for negotiation flows.
type NegotiationServiceDeps struct {
	Repository repositories.NegotiationRepository
	Offers     repositories.OfferRepository
	Priceables priceableFinder
	Locks      *keyedmutex.KeyedMutex
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type negotiationService struct {
	repo       repositories.NegotiationRepository
	offers     repositories.OfferRepository
	priceables priceableFinder
	locks      *keyedmutex.KeyedMutex
	now        func() time.Time
	logger     func(context.Context, string, map[string]any)
}

// NewNegotiationService constructs a NegotiationService enforcing dependency validation.
func NewNegotiationService(deps NegotiationServiceDeps) (NegotiationService, error) {
	if deps.Repository == nil {
		return nil, errNegotiationRepositoryRequired
	}
	if deps.Offers == nil {
		return nil, errNegotiationOffersRequired
	}
	if deps.Priceables == nil {
		return nil, errNegotiationCatalogRequired
	}
	if deps.Clock == nil {
		return nil, errNegotiationClockRequired
	}

	locks := deps.Locks
	if locks == nil {
		locks = keyedmutex.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &negotiationService{
		repo:       deps.Repository,
		offers:     deps.Offers,
		priceables: deps.Priceables,
		locks:      locks,
		now:        func() time.Time { return deps.Clock().UTC() },
		logger:     logger,
	}, nil
}

// Status reports the attempt history for (actor, product). An absent record
// reads as an empty history, never an error.
func (s *negotiationService) Status(ctx context.Context, actorID, productID string) (NegotiationStatus, error) {
	actorID = strings.TrimSpace(actorID)
	productID = strings.TrimSpace(productID)
	if actorID == "" || productID == "" {
		return NegotiationStatus{}, fmt.Errorf("negotiation service: actor and product ids: %w", ErrInvalidInput)
	}

	record, err := s.repo.Find(ctx, actorID, productID)
	if err != nil {
		if !isRepoNotFound(err) {
			return NegotiationStatus{}, translateRepoError("negotiation service: record "+productID, err)
		}
		record = domain.NegotiationRecord{ActorID: actorID, ProductID: productID}
	}

	status := NegotiationStatus{
		ProductID:     productID,
		Attempts:      record.Attempts,
		AttemptsCount: len(record.Attempts),
	}
	if price, ok := record.CurrentPrice(); ok {
		status.CurrentPrice = &price
	}
	if binding, found, err := s.activeNegotiateBinding(ctx, productID); err == nil && found {
		status.MaxAttempts = binding.MaxAttempts
	}
	return status, nil
}

// Negotiate evaluates one offered price and appends the derived counter price
// to the history. Appends are serialised per (actor, product).
func (s *negotiationService) Negotiate(ctx context.Context, actorID, productID string, offered float64) (NegotiationResult, error) {
	actorID = strings.TrimSpace(actorID)
	productID = strings.TrimSpace(productID)
	if actorID == "" || productID == "" {
		return NegotiationResult{}, fmt.Errorf("negotiation service: actor and product ids: %w", ErrInvalidInput)
	}
	if offered <= 0 {
		return NegotiationResult{}, fmt.Errorf("negotiation service: offered price: %w", ErrInvalidInput)
	}

	key := actorID + "/" + productID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	binding, found, err := s.activeNegotiateBinding(ctx, productID)
	if err != nil {
		return NegotiationResult{}, err
	}
	if !found {
		return NegotiationResult{}, fmt.Errorf("negotiation service: no active negotiation for %s: %w", productID, ErrNotFound)
	}

	priceable, err := s.priceables.GetPriceable(ctx, productID)
	if err != nil {
		return NegotiationResult{}, err
	}

	record, err := s.repo.Find(ctx, actorID, productID)
	if err != nil {
		if !isRepoNotFound(err) {
			return NegotiationResult{}, translateRepoError("negotiation service: record "+productID, err)
		}
		record = domain.NegotiationRecord{ActorID: actorID, ProductID: productID}
	}

	if binding.MaxAttempts > 0 && len(record.Attempts) >= binding.MaxAttempts {
		return NegotiationResult{}, fmt.Errorf("negotiation service: product %s: %w", productID, ErrAttemptLimitExceeded)
	}

	reference := priceable.UnitPrice
	if price, ok := record.CurrentPrice(); ok {
		reference = price
	}
	floor := binding.FloorPrice

	success := offered >= floor
	pct := binding.FailurePct
	message := negotiationDeclinedMessage
	if success {
		pct = binding.SuccessPct
		message = negotiationAcceptedMessage
	}

	next := reference - reference*pct/100
	if next < floor {
		next = floor
	}
	next = domain.Round2(next)

	now := s.now()
	record.Attempts = append(record.Attempts, domain.NegotiationAttempt{
		Amount:        next,
		AttemptNumber: len(record.Attempts) + 1,
		Success:       success,
		At:            now,
	})
	record.UpdatedAt = now

	if err := s.repo.Save(ctx, record); err != nil {
		return NegotiationResult{}, translateRepoError("negotiation service: save record "+productID, err)
	}

	s.logger(ctx, "negotiation.attempt", map[string]any{
		"actor_id":  actorID,
		"productId": productID,
		"attempt":   len(record.Attempts),
		"success":   success,
		"nextPrice": next,
	})

	return NegotiationResult{
		Success:       success,
		Message:       message,
		NextPrice:     next,
		AttemptsCount: len(record.Attempts),
		MaxAttempts:   binding.MaxAttempts,
	}, nil
}

func (s *negotiationService) activeNegotiateBinding(ctx context.Context, productID string) (OfferBinding, bool, error) {
	offers, err := s.offers.FindActiveForProduct(ctx, productID)
	if err != nil {
		return OfferBinding{}, false, translateRepoError("negotiation service: offers for "+productID, err)
	}
	for _, offer := range offers {
		if offer.Type != domain.OfferTypeNegotiate {
			continue
		}
		if binding, ok := offer.BindingFor(productID); ok && binding.Active {
			return binding, true, nil
		}
	}
	return OfferBinding{}, false, nil
}
