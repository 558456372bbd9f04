package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/swiftbasket/api/internal/domain"
	"github.com/swiftbasket/api/internal/repositories"
)

var errAddressRepositoryRequired = errors.New("address service: repository is required")

// AddressServiceDeps wires persistence for address maintenance.
type AddressServiceDeps struct {
	Repository repositories.AddressRepository
	Logger     func(context.Context, string, map[string]any)
}

type addressService struct {
	repo   repositories.AddressRepository
	logger func(context.Context, string, map[string]any)
}

// NewAddressService constructs an AddressService enforcing dependency validation.
func NewAddressService(deps AddressServiceDeps) (AddressService, error) {
	if deps.Repository == nil {
		return nil, errAddressRepositoryRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &addressService{repo: deps.Repository, logger: logger}, nil
}

func (s *addressService) ListAddresses(ctx context.Context, actorID string) ([]Address, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, fmt.Errorf("address service: actor id: %w", ErrInvalidInput)
	}
	addresses, err := s.repo.ListByActor(ctx, actorID)
	if err != nil {
		return nil, translateRepoError("address service: list addresses", err)
	}
	return addresses, nil
}

func (s *addressService) UpsertAddress(ctx context.Context, cmd UpsertAddressCommand) (Address, error) {
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return Address{}, fmt.Errorf("address service: actor id: %w", ErrInvalidInput)
	}
	if cmd.Lat < -90 || cmd.Lat > 90 || cmd.Lng < -180 || cmd.Lng > 180 {
		return Address{}, fmt.Errorf("address service: coordinates: %w", ErrInvalidInput)
	}

	saved, err := s.repo.Upsert(ctx, domain.Address{
		ID:      strings.TrimSpace(cmd.AddressID),
		ActorID: actorID,
		Label:   strings.TrimSpace(cmd.Label),
		Line1:   strings.TrimSpace(cmd.Line1),
		City:    strings.TrimSpace(cmd.City),
		Lat:     cmd.Lat,
		Lng:     cmd.Lng,
	})
	if err != nil {
		return Address{}, translateRepoError("address service: upsert address", err)
	}

	s.logger(ctx, "address.upserted", map[string]any{
		"actor_id":  actorID,
		"addressId": saved.ID,
	})
	return saved, nil
}

func (s *addressService) DeleteAddress(ctx context.Context, actorID, addressID string) error {
	actorID = strings.TrimSpace(actorID)
	addressID = strings.TrimSpace(addressID)
	if actorID == "" || addressID == "" {
		return fmt.Errorf("address service: actor and address ids: %w", ErrInvalidInput)
	}
	if err := s.repo.Delete(ctx, actorID, addressID); err != nil {
		return translateRepoError("address service: delete address "+addressID, err)
	}
	return nil
}
