package service

import (
	"context"
	"errors"
	"time"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"
	"webhook-tester/pkg/apperror"

	"github.com/rs/zerolog"
)

// endpointIDMaxAttempts bounds the retry loop on ID collisions. With a
// 36^10 ID space a collision is already improbable; hitting the bound means
// something is badly wrong with the generator or the table.
const endpointIDMaxAttempts = 5

// EndpointServiceImpl implements ports.EndpointService.
type EndpointServiceImpl struct {
	repo ports.EndpointRepository
	ttl  time.Duration
	log  zerolog.Logger
}

// NewEndpointService creates a new EndpointServiceImpl. ttl is the lifetime
// granted to every minted endpoint.
func NewEndpointService(repo ports.EndpointRepository, ttl time.Duration, log zerolog.Logger) *EndpointServiceImpl {
	return &EndpointServiceImpl{repo: repo, ttl: ttl, log: log}
}

// Create mints a new disposable endpoint, retrying with a fresh ID on the
// rare collision.
func (s *EndpointServiceImpl) Create(ctx context.Context) (*domain.Endpoint, error) {
	for attempt := 0; attempt < endpointIDMaxAttempts; attempt++ {
		now := time.Now().UTC()
		ep := &domain.Endpoint{
			ID:        domain.NewEndpointID(),
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}

		err := s.repo.Create(ctx, ep)
		if err == nil {
			s.log.Debug().Str("endpoint_id", ep.ID).Time("expires_at", ep.ExpiresAt).Msg("endpoint created")
			return ep, nil
		}
		if errors.Is(err, ports.ErrDuplicateEndpointID) {
			s.log.Warn().Str("endpoint_id", ep.ID).Msg("endpoint ID collision, retrying")
			continue
		}
		return nil, apperror.ErrStorageUnavailable(err)
	}
	return nil, apperror.ErrEndpointIDExhausted()
}

// EnsureActive resolves an endpoint that exists and is unexpired. Absent and
// expired endpoints are deliberately indistinguishable to the caller.
func (s *EndpointServiceImpl) EnsureActive(ctx context.Context, id string) (*domain.Endpoint, error) {
	ep, err := s.repo.GetActive(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if ep == nil {
		return nil, apperror.ErrEndpointNotFound()
	}
	return ep, nil
}
