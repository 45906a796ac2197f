package handler

import (
	"strconv"

	"webhook-tester/internal/adapter/http/dto"
	"webhook-tester/internal/core/ports"
	"webhook-tester/pkg/apperror"
	"webhook-tester/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// RequestHandler serves reads over the captured request log.
type RequestHandler struct {
	endpointSvc ports.EndpointService
	requestSvc  ports.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(endpointSvc ports.EndpointService, requestSvc ports.RequestService) *RequestHandler {
	return &RequestHandler{endpointSvc: endpointSvc, requestSvc: requestSvc}
}

// List handles GET /api/v1/endpoints/:endpointID/requests. The endpoint's
// liveness gates the read: an expired endpoint 404s even while its rows await
// the reaper.
func (h *RequestHandler) List(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		response.Error(c, err)
		return
	}

	endpointID := c.Param("endpointID")
	if _, err := h.endpointSvc.EnsureActive(c.Request.Context(), endpointID); err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.requestSvc.List(c.Request.Context(), endpointID, limit, c.Query("cursor"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequestPage(page))
}

// Get handles GET /api/v1/endpoints/:endpointID/requests/:requestID.
func (h *RequestHandler) Get(c *gin.Context) {
	endpointID := c.Param("endpointID")
	if _, err := h.endpointSvc.EnsureActive(c.Request.Context(), endpointID); err != nil {
		response.Error(c, err)
		return
	}

	requestID, err := uuid.Parse(c.Param("requestID"))
	if err != nil {
		response.Error(c, apperror.ErrRequestNotFound())
		return
	}

	req, err := h.requestSvc.Get(c.Request.Context(), endpointID, requestID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromRequest(req))
}

// parseLimit bounds the page size to 1..100, defaulting when absent.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultPageLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxPageLimit {
		return 0, apperror.ErrInvalidLimit()
	}
	return limit, nil
}
