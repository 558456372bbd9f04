package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/swiftbasket/api/internal/repositories"
)

var errSystemHealthRequired = errors.New("system service: health repository is required")

// SystemServiceDeps wires the readiness probes.
type SystemServiceDeps struct {
	Health repositories.HealthRepository
}

type systemService struct {
	health repositories.HealthRepository
}

// NewSystemService constructs a SystemService enforcing dependency validation.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.Health == nil {
		return nil, errSystemHealthRequired
	}
	return &systemService{health: deps.Health}, nil
}

// Health reports readiness of the persistence backend.
func (s *systemService) Health(ctx context.Context) error {
	if err := s.health.Ping(ctx); err != nil {
		return fmt.Errorf("system service: firestore: %w", ErrUpstreamUnavailable)
	}
	return nil
}
