package service

import (
	"context"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"
	"webhook-tester/pkg/apperror"

	"github.com/google/uuid"
)

// RequestServiceImpl implements ports.RequestService: keyset-paginated reads
// over the append-only request log.
type RequestServiceImpl struct {
	requests ports.RequestRepository
}

// NewRequestService creates a new RequestServiceImpl.
func NewRequestService(requests ports.RequestRepository) *RequestServiceImpl {
	return &RequestServiceImpl{requests: requests}
}

// List returns one page of requests in (received_at, id) descending order.
// It fetches limit+1 rows: a full fetch means more data exists, and the next
// cursor is derived from the last visible row while the look-ahead row is
// discarded. An empty NextCursor signals end of data.
func (s *RequestServiceImpl) List(ctx context.Context, endpointID string, limit int, cursor string) (*ports.RequestPage, error) {
	params := ports.RequestPageParams{FetchLimit: limit + 1}

	if cursor != "" {
		key, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		params.Before = &key
	}

	rows, err := s.requests.ListPage(ctx, endpointID, params)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}

	page := &ports.RequestPage{Items: rows}
	if len(rows) > limit {
		lastVisible := rows[limit-1]
		page.NextCursor = EncodeCursor(lastVisible.ReceivedAt, lastVisible.ID)
		page.Items = rows[:limit]
	}
	return page, nil
}

// Get fetches a single captured request scoped to its endpoint.
func (s *RequestServiceImpl) Get(ctx context.Context, endpointID string, requestID uuid.UUID) (*domain.WebhookRequest, error) {
	req, err := s.requests.GetByID(ctx, endpointID, requestID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if req == nil {
		return nil, apperror.ErrRequestNotFound()
	}
	return req, nil
}
