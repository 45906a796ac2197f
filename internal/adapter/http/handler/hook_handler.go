package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"webhook-tester/internal/adapter/http/dto"
	"webhook-tester/internal/core/domain"
	"webhook-tester/internal/core/ports"
	"webhook-tester/internal/stream"
	"webhook-tester/pkg/apperror"
	"webhook-tester/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EventRequestCreated is the stream event emitted for every captured request.
const EventRequestCreated = "request.created"

// HookHandler ingests arbitrary HTTP traffic aimed at a disposable endpoint.
type HookHandler struct {
	captureSvc ports.CaptureService
	hub        *stream.Hub
	log        zerolog.Logger
}

// NewHookHandler creates a new HookHandler.
func NewHookHandler(captureSvc ports.CaptureService, hub *stream.Hub, log zerolog.Logger) *HookHandler {
	return &HookHandler{captureSvc: captureSvc, hub: hub, log: log}
}

// Capture handles any method on /hook/:endpointID. The whole request — method,
// query, headers, body — is the payload; nothing about it is validated beyond
// the endpoint ID shape and the body size cap.
func (h *HookHandler) Capture(c *gin.Context) {
	endpointID := c.Param("endpointID")
	if !domain.IsValidEndpointID(endpointID) {
		response.Error(c, apperror.ErrEndpointNotFound())
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.Error(c, apperror.ErrPayloadTooLarge())
			return
		}
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	var queryString *string
	if raw := c.Request.URL.RawQuery; raw != "" {
		queryString = &raw
	}

	req, err := h.captureSvc.Capture(c.Request.Context(), ports.CaptureInput{
		EndpointID:    endpointID,
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		QueryString:   queryString,
		IP:            clientIP(c),
		Headers:       flattenHeaders(c.Request.Header),
		RawBody:       string(body),
		BodySizeBytes: len(body),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.publish(req)

	response.Accepted(c, dto.CaptureAckResponse{
		Accepted:  true,
		RequestID: req.ID.String(),
	})
}

// publish pushes the captured request to live stream subscribers. Marshal
// failure is logged and swallowed: the capture is already durable and the
// producer got its acknowledgment.
func (h *HookHandler) publish(req *domain.WebhookRequest) {
	payload, err := json.Marshal(dto.FromRequest(req))
	if err != nil {
		h.log.Error().Err(err).Str("request_id", req.ID.String()).Msg("failed to marshal stream event")
		return
	}
	h.hub.Publish(req.EndpointID, EventRequestCreated, payload)
}

// flattenHeaders lowercases header names and keeps the last value of any
// repeated header, giving captures a stable shape regardless of producer
// casing quirks.
func flattenHeaders(src http.Header) map[string]string {
	out := make(map[string]string, len(src))
	for name, values := range src {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(name)] = values[len(values)-1]
	}
	return out
}

// clientIP prefers the first hop of X-Forwarded-For, falling back to gin's
// resolution of the remote address.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}
