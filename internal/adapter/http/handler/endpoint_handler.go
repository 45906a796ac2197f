package handler

import (
	"net/http"

	"webhook-tester/internal/adapter/http/dto"
	"webhook-tester/internal/core/ports"
	"webhook-tester/pkg/response"

	"github.com/gin-gonic/gin"
)

// EndpointHandler serves the endpoint lifecycle API.
type EndpointHandler struct {
	endpointSvc   ports.EndpointService
	publicBaseURL string
}

// NewEndpointHandler creates a new EndpointHandler. publicBaseURL is the
// externally reachable origin used to derive hook URLs.
func NewEndpointHandler(endpointSvc ports.EndpointService, publicBaseURL string) *EndpointHandler {
	return &EndpointHandler{endpointSvc: endpointSvc, publicBaseURL: publicBaseURL}
}

// Create handles POST /api/v1/endpoints.
func (h *EndpointHandler) Create(c *gin.Context) {
	ep, err := h.endpointSvc.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.FromEndpoint(ep, h.publicBaseURL))
}

// Get handles GET /api/v1/endpoints/:endpointID, confirming an endpoint is
// still active and reporting its expiry.
func (h *EndpointHandler) Get(c *gin.Context) {
	ep, err := h.endpointSvc.EnsureActive(c.Request.Context(), c.Param("endpointID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.FromEndpoint(ep, h.publicBaseURL))
}

// HealthCheck pings every registered dependency and reports aggregate health.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
