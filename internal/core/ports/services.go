package ports

import (
	"context"

	"webhook-tester/internal/core/domain"

	"github.com/google/uuid"
)

// EndpointService mints disposable endpoints and resolves active ones.
type EndpointService interface {
	Create(ctx context.Context) (*domain.Endpoint, error)
	// EnsureActive returns the endpoint when it exists and is unexpired,
	// otherwise an endpoint-not-found error.
	EnsureActive(ctx context.Context, id string) (*domain.Endpoint, error)
}

// CaptureInput carries one inbound request into the capture pipeline.
// Headers must already be normalized: keys lowercased, last value wins.
// The transport boundary reads and bounds the body before building this.
type CaptureInput struct {
	EndpointID    string
	Method        string
	Path          string
	QueryString   *string
	IP            string
	Headers       map[string]string
	RawBody       string
	BodySizeBytes int
}

// CaptureService validates an inbound request against an active endpoint and
// persists it atomically. It does not publish to the stream hub; the
// transport boundary composes capture and publication.
type CaptureService interface {
	Capture(ctx context.Context, in CaptureInput) (*domain.WebhookRequest, error)
}

// RequestPage is one page of a reverse-chronological request listing.
// NextCursor is empty at end of data.
type RequestPage struct {
	Items      []domain.WebhookRequest
	NextCursor string
}

// RequestService reads the persisted request log.
type RequestService interface {
	// List returns up to limit requests, resuming after cursor when non-empty.
	// limit must already be bounded (1..100) by the caller.
	List(ctx context.Context, endpointID string, limit int, cursor string) (*RequestPage, error)
	Get(ctx context.Context, endpointID string, requestID uuid.UUID) (*domain.WebhookRequest, error)
}
