package handler

import (
	"fmt"
	"net/http"
	"time"

	"webhook-tester/internal/core/ports"
	"webhook-tester/internal/stream"
	"webhook-tester/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EventStreamReady is the first event on every stream session, confirming
// the subscription is live before any captures flow.
const EventStreamReady = "stream.ready"

// StreamHandler serves live capture notifications over Server-Sent Events.
type StreamHandler struct {
	endpointSvc ports.EndpointService
	hub         *stream.Hub
	heartbeat   time.Duration
	log         zerolog.Logger
}

// NewStreamHandler creates a new StreamHandler. heartbeat is the keepalive
// comment interval that holds idle connections open through proxies.
func NewStreamHandler(endpointSvc ports.EndpointService, hub *stream.Hub, heartbeat time.Duration, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{endpointSvc: endpointSvc, hub: hub, heartbeat: heartbeat, log: log}
}

// Stream handles GET /api/v1/endpoints/:endpointID/stream. The endpoint must
// be active at subscription time; expiry mid-session is not policed here, the
// session simply stops receiving events once captures start 404ing.
func (h *StreamHandler) Stream(c *gin.Context) {
	endpointID := c.Param("endpointID")
	if _, err := h.endpointSvc.EnsureActive(c.Request.Context(), endpointID); err != nil {
		response.Error(c, err)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	sub := h.hub.Subscribe(endpointID)
	defer h.hub.Unsubscribe(endpointID, sub.ID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: %s\ndata: {\"endpointId\":%q}\n\n", EventStreamReady, endpointID)
	flusher.Flush()

	h.log.Debug().Str("endpoint_id", endpointID).Int64("subscriber_id", sub.ID).Msg("stream session opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug().Str("endpoint_id", endpointID).Int64("subscriber_id", sub.ID).Msg("stream session closed")
			return
		case msg := <-sub.C:
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
