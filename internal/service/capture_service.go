package service

import (
	"context"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"
	"webhook-tester/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CaptureServiceImpl implements ports.CaptureService: it validates an inbound
// request against an active endpoint and persists it as one atomic operation.
// Publication to the stream hub is composed by the transport boundary, which
// keeps this pipeline testable in isolation.
type CaptureServiceImpl struct {
	requests ports.RequestRepository
	log      zerolog.Logger
}

// NewCaptureService creates a new CaptureServiceImpl.
func NewCaptureService(requests ports.RequestRepository, log zerolog.Logger) *CaptureServiceImpl {
	return &CaptureServiceImpl{requests: requests, log: log}
}

// Capture persists one inbound request. The insert is conditioned on the
// endpoint's existence and non-expiry at write time, so there is no
// check-then-act window against a concurrent expiry or reap. Storage errors
// propagate once as unavailable; retry policy belongs to the caller.
func (s *CaptureServiceImpl) Capture(ctx context.Context, in ports.CaptureInput) (*domain.WebhookRequest, error) {
	headers := in.Headers
	if headers == nil {
		headers = map[string]string{}
	}

	contentType := domain.ContentTypeFrom(headers)

	req := &domain.WebhookRequest{
		ID:            uuid.New(),
		EndpointID:    in.EndpointID,
		Method:        in.Method,
		Path:          in.Path,
		QueryString:   in.QueryString,
		StatusCode:    domain.AcceptedStatus,
		IP:            in.IP,
		Headers:       headers,
		ContentType:   contentType,
		BodySizeBytes: in.BodySizeBytes,
		RawBody:       in.RawBody,
		ParsedJSON:    domain.ParseJSONIfApplicable(contentType, in.RawBody),
	}

	inserted, err := s.requests.InsertIfEndpointActive(ctx, req)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if !inserted {
		return nil, apperror.ErrEndpointNotFound()
	}

	s.log.Debug().
		Str("endpoint_id", req.EndpointID).
		Str("request_id", req.ID.String()).
		Str("method", req.Method).
		Int("body_size", req.BodySizeBytes).
		Msg("request captured")

	return req, nil
}
