package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AcceptedStatus is the fixed acknowledgment status baked into every
// captured request.
const AcceptedStatus = 202

// DefaultContentType applies when the inbound request carries no
// content-type header.
const DefaultContentType = "application/octet-stream"

// WebhookRequest is one captured inbound request. Immutable once persisted;
// owned by its Endpoint and removed only by the reaper or the endpoint's
// expiry cascade.
type WebhookRequest struct {
	ID            uuid.UUID         `json:"id"`
	EndpointID    string            `json:"endpoint_id"`
	Method        string            `json:"method"`
	Path          string            `json:"path"`
	QueryString   *string           `json:"query_string,omitempty"`
	ReceivedAt    time.Time         `json:"received_at"`
	StatusCode    int               `json:"status_code"`
	IP            string            `json:"ip"`
	Headers       map[string]string `json:"headers"`
	ContentType   string            `json:"content_type"`
	BodySizeBytes int               `json:"body_size_bytes"`
	RawBody       string            `json:"raw_body"`
	ParsedJSON    json.RawMessage   `json:"parsed_json,omitempty"` // nil unless body parsed as JSON
}

// ContentTypeFrom reads the content type from a normalized (lowercase-keyed)
// header map, defaulting when absent.
func ContentTypeFrom(headers map[string]string) string {
	if ct, ok := headers["content-type"]; ok && ct != "" {
		return ct
	}
	return DefaultContentType
}

// ParseJSONIfApplicable returns the raw body as a JSON value when the content
// type indicates JSON and the body parses. Parsing is advisory: any failure
// yields nil, never an error.
func ParseJSONIfApplicable(contentType, rawBody string) json.RawMessage {
	if !strings.Contains(strings.ToLower(contentType), "json") {
		return nil
	}
	trimmed := strings.TrimSpace(rawBody)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return nil
	}
	return json.RawMessage(trimmed)
}
