package ports

import (
	"context"
	"errors"
	"time"

	"webhook-tester/internal/core/domain"

	"github.com/google/uuid"
)

// ErrDuplicateEndpointID is returned by EndpointRepository.Create when the
// generated ID is already taken. The issuance service retries with a fresh ID.
var ErrDuplicateEndpointID = errors.New("endpoint id already exists")

// CursorKey is a position in the reverse-chronological request ordering:
// the (capture timestamp, request id) pair of the last item seen.
type CursorKey struct {
	ReceivedAt time.Time
	ID         uuid.UUID
}

// RequestPageParams drives one keyset page fetch. FetchLimit already includes
// the extra look-ahead row used to detect whether more data exists.
type RequestPageParams struct {
	FetchLimit int
	Before     *CursorKey // nil = from the top
}

// EndpointRepository defines persistence operations for endpoints.
// All reads treat rows past their expiry as absent.
type EndpointRepository interface {
	Create(ctx context.Context, endpoint *domain.Endpoint) error
	// GetActive returns (nil, nil) when the endpoint is absent or expired.
	GetActive(ctx context.Context, id string) (*domain.Endpoint, error)
	// DeleteExpiredBatch removes up to limit expired endpoints, returning the
	// number deleted. Deleting an already-gone row is not an error.
	DeleteExpiredBatch(ctx context.Context, limit int) (int64, error)
}

// RequestRepository defines persistence operations for captured requests.
type RequestRepository interface {
	// InsertIfEndpointActive persists req if and only if its endpoint exists
	// and is unexpired at write time, as a single atomic statement. Returns
	// false when the endpoint condition fails (zero rows inserted). On
	// success the server-assigned capture timestamp is written back to req.
	InsertIfEndpointActive(ctx context.Context, req *domain.WebhookRequest) (bool, error)
	// GetByID returns (nil, nil) when no such request exists for the endpoint.
	GetByID(ctx context.Context, endpointID string, id uuid.UUID) (*domain.WebhookRequest, error)
	// ListPage fetches up to FetchLimit rows in (received_at DESC, id DESC)
	// order, keyset-filtered by Before when present.
	ListPage(ctx context.Context, endpointID string, params RequestPageParams) ([]domain.WebhookRequest, error)
	// DeleteOlderThanBatch removes up to limit requests captured before
	// now minus ttl, returning the number deleted.
	DeleteOlderThanBatch(ctx context.Context, ttl time.Duration, limit int) (int64, error)
}
