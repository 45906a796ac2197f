package dto

import (
	"encoding/json"
	"time"

	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"
)

// formatTime renders timestamps in UTC with nanosecond precision, which
// round-trips exactly through pagination cursors.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// EndpointResponse is the response body for a minted endpoint. HookURL is the
// fully-qualified ingestion URL clients point their webhook producers at.
type EndpointResponse struct {
	EndpointID string `json:"endpointId"`
	HookURL    string `json:"hookUrl"`
	CreatedAt  string `json:"createdAt"`
	ExpiresAt  string `json:"expiresAt"`
}

// CaptureAckResponse acknowledges an ingested request.
type CaptureAckResponse struct {
	Accepted  bool   `json:"accepted"`
	RequestID string `json:"requestId"`
}

// RequestResponse is the wire shape of one captured request.
type RequestResponse struct {
	ID            string            `json:"id"`
	EndpointID    string            `json:"endpointId"`
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	QueryString   *string           `json:"queryString"`
	ReceivedAt    string            `json:"receivedAt"`
	StatusCode    int               `json:"statusCode"`
	IP            string            `json:"ip"`
	Headers       map[string]string `json:"headers"`
	ContentType   string            `json:"contentType"`
	BodySizeBytes int               `json:"bodySizeBytes"`
	RawBody       string            `json:"rawBody"`
	ParsedJSON    json.RawMessage   `json:"parsedJson,omitempty"`
}

// RequestPageResponse is one page of captured requests, newest first.
// NextCursor is omitted on the final page.
type RequestPageResponse struct {
	Items      []RequestResponse `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// FromEndpoint maps a domain endpoint onto the wire, deriving the ingestion
// URL from the service's public base URL.
func FromEndpoint(ep *domain.Endpoint, publicBaseURL string) EndpointResponse {
	return EndpointResponse{
		EndpointID: ep.ID,
		HookURL:    publicBaseURL + "/hook/" + ep.ID,
		CreatedAt:  formatTime(ep.CreatedAt),
		ExpiresAt:  formatTime(ep.ExpiresAt),
	}
}

// FromRequest maps a captured request onto the wire.
func FromRequest(req *domain.WebhookRequest) RequestResponse {
	return RequestResponse{
		ID:            req.ID.String(),
		EndpointID:    req.EndpointID,
		Method:        req.Method,
		Path:          req.Path,
		QueryString:   req.QueryString,
		ReceivedAt:    formatTime(req.ReceivedAt),
		StatusCode:    req.StatusCode,
		IP:            req.IP,
		Headers:       req.Headers,
		ContentType:   req.ContentType,
		BodySizeBytes: req.BodySizeBytes,
		RawBody:       req.RawBody,
		ParsedJSON:    req.ParsedJSON,
	}
}

// FromRequestPage maps a service page onto the wire.
func FromRequestPage(page *ports.RequestPage) RequestPageResponse {
	items := make([]RequestResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, FromRequest(&page.Items[i]))
	}
	return RequestPageResponse{Items: items, NextCursor: page.NextCursor}
}
