package integration

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"

	"github.com/google/uuid"
)

// --- In-Memory Endpoint Repo ---

type inMemoryEndpointRepo struct {
	mu        sync.RWMutex
	endpoints map[string]*domain.Endpoint
}

func newInMemoryEndpointRepo() *inMemoryEndpointRepo {
	return &inMemoryEndpointRepo{endpoints: make(map[string]*domain.Endpoint)}
}

func (r *inMemoryEndpointRepo) Create(ctx context.Context, ep *domain.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.endpoints[ep.ID]; ok {
		return ports.ErrDuplicateEndpointID
	}
	cp := *ep
	r.endpoints[ep.ID] = &cp
	return nil
}

func (r *inMemoryEndpointRepo) GetActive(ctx context.Context, id string) (*domain.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[id]
	if !ok || ep.IsExpired(time.Now().UTC()) {
		return nil, nil
	}
	cp := *ep
	return &cp, nil
}

func (r *inMemoryEndpointRepo) DeleteExpiredBatch(ctx context.Context, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var deleted int64
	for id, ep := range r.endpoints {
		if deleted >= int64(limit) {
			break
		}
		if ep.IsExpired(now) {
			delete(r.endpoints, id)
			deleted++
		}
	}
	return deleted, nil
}

// seed installs an endpoint directly, bypassing minting. Tests use it to
// plant expired endpoints.
func (r *inMemoryEndpointRepo) seed(ep *domain.Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ep
	r.endpoints[ep.ID] = &cp
}

// --- In-Memory Request Repo ---

type inMemoryRequestRepo struct {
	mu        sync.RWMutex
	endpoints *inMemoryEndpointRepo
	requests  []domain.WebhookRequest
}

func newInMemoryRequestRepo(endpoints *inMemoryEndpointRepo) *inMemoryRequestRepo {
	return &inMemoryRequestRepo{endpoints: endpoints}
}

func (r *inMemoryRequestRepo) InsertIfEndpointActive(ctx context.Context, req *domain.WebhookRequest) (bool, error) {
	ep, err := r.endpoints.GetActive(ctx, req.EndpointID)
	if err != nil {
		return false, err
	}
	if ep == nil {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	req.ReceivedAt = time.Now().UTC()
	r.requests = append(r.requests, *req)
	return true, nil
}

func (r *inMemoryRequestRepo) GetByID(ctx context.Context, endpointID string, id uuid.UUID) (*domain.WebhookRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.requests {
		if r.requests[i].EndpointID == endpointID && r.requests[i].ID == id {
			cp := r.requests[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryRequestRepo) ListPage(ctx context.Context, endpointID string, params ports.RequestPageParams) ([]domain.WebhookRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.WebhookRequest
	for i := range r.requests {
		req := r.requests[i]
		if req.EndpointID != endpointID {
			continue
		}
		if params.Before != nil && !beforeKey(req, *params.Before) {
			continue
		}
		matched = append(matched, req)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ReceivedAt.Equal(matched[j].ReceivedAt) {
			return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
		}
		return bytes.Compare(matched[i].ID[:], matched[j].ID[:]) > 0
	})

	if len(matched) > params.FetchLimit {
		matched = matched[:params.FetchLimit]
	}
	return matched, nil
}

func (r *inMemoryRequestRepo) DeleteOlderThanBatch(ctx context.Context, ttl time.Duration, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().UTC().Add(-ttl)
	var kept []domain.WebhookRequest
	var deleted int64
	for i := range r.requests {
		if deleted < int64(limit) && r.requests[i].ReceivedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r.requests[i])
	}
	r.requests = kept
	return deleted, nil
}

// beforeKey reports whether req sorts strictly after the cursor position in
// (received_at DESC, id DESC) order, i.e. belongs to a later page.
func beforeKey(req domain.WebhookRequest, key ports.CursorKey) bool {
	if req.ReceivedAt.Before(key.ReceivedAt) {
		return true
	}
	if req.ReceivedAt.Equal(key.ReceivedAt) {
		return bytes.Compare(req.ID[:], key.ID[:]) < 0
	}
	return false
}
