package handler

import (
	"time"

	"webhook-tester/internal/adapter/http/middleware"
	redisStore "webhook-tester/internal/adapter/storage/redis"
	"webhook-tester/internal/core/ports"
	"webhook-tester/internal/stream"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	EndpointSvc     ports.EndpointService
	CaptureSvc      ports.CaptureService
	RequestSvc      ports.RequestService
	Hub             *stream.Hub
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	PublicBaseURL   string
	MaxBodyBytes    int64
	StreamHeartbeat time.Duration
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(deps.MaxBodyBytes))

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// --- Hook ingestion (any method, no auth, no rate limit) ---
	hookHandler := NewHookHandler(deps.CaptureSvc, deps.Hub, deps.Logger)
	r.Any("/hook/:endpointID", hookHandler.Capture)

	// --- Management API ---
	v1 := r.Group("/api/v1")

	endpointHandler := NewEndpointHandler(deps.EndpointSvc, deps.PublicBaseURL)
	requestHandler := NewRequestHandler(deps.EndpointSvc, deps.RequestSvc)
	streamHandler := NewStreamHandler(deps.EndpointSvc, deps.Hub, deps.StreamHeartbeat, deps.Logger)

	endpoints := v1.Group("/endpoints")
	{
		endpoints.POST("", rl("endpoints_create"), endpointHandler.Create)
		endpoints.GET("/:endpointID", rl("requests_read"), endpointHandler.Get)
		endpoints.GET("/:endpointID/requests", rl("requests_read"), requestHandler.List)
		endpoints.GET("/:endpointID/requests/:requestID", rl("requests_read"), requestHandler.Get)
		endpoints.GET("/:endpointID/stream", streamHandler.Stream)
	}

	return r
}
