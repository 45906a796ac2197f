package service

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"webhook-tester/internal/core/ports"
	"webhook-tester/pkg/apperror"

	"github.com/google/uuid"
)

// cursorPayload is the wire shape inside a continuation token.
type cursorPayload struct {
	ReceivedAt string `json:"receivedAt"`
	ID         string `json:"id"`
}

// EncodeCursor produces an opaque continuation token for the position after
// the given (capture timestamp, request id) pair. Unpadded URL-safe base64,
// so the token needs no escaping in a query parameter.
func EncodeCursor(receivedAt time.Time, id uuid.UUID) string {
	payload, _ := json.Marshal(cursorPayload{
		ReceivedAt: receivedAt.UTC().Format(time.RFC3339Nano),
		ID:         id.String(),
	})
	return base64.RawURLEncoding.EncodeToString(payload)
}

// DecodeCursor parses a continuation token back into its keyset position.
// Cursors are never partially trusted: any malformed input — bad encoding,
// bad JSON, missing fields, malformed timestamp or id — is an invalid-cursor
// error, surfaced to the caller as a client error.
func DecodeCursor(token string) (ports.CursorKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ports.CursorKey{}, apperror.ErrInvalidCursor()
	}

	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ports.CursorKey{}, apperror.ErrInvalidCursor()
	}
	if payload.ReceivedAt == "" || payload.ID == "" {
		return ports.CursorKey{}, apperror.ErrInvalidCursor()
	}

	receivedAt, err := time.Parse(time.RFC3339Nano, payload.ReceivedAt)
	if err != nil {
		return ports.CursorKey{}, apperror.ErrInvalidCursor()
	}

	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return ports.CursorKey{}, apperror.ErrInvalidCursor()
	}

	return ports.CursorKey{ReceivedAt: receivedAt, ID: id}, nil
}
