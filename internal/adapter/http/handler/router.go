package handler

import (
	"payhula-webhooks/internal/adapter/http/middleware"
	"payhula-webhooks/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IngestSvc      ports.IngestService
	DispatchSvc    ports.DispatchService
	TokenSvc       ports.TokenService
	HealthCheckers []ports.HealthChecker
	CORSOrigin     string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	ingestHandler := NewIngestHandler(deps.IngestSvc, deps.Logger)
	dispatchHandler := NewDispatchHandler(deps.DispatchSvc, deps.Logger)

	webhooks := r.Group("/api/v1/webhooks")
	webhooks.Use(middleware.CORS(deps.CORSOrigin))
	{
		// Inbound gateway callbacks. Gateways authenticate by knowing the
		// provider token; unknown tokens are acknowledged and dropped.
		webhooks.POST("/payment/:provider", ingestHandler.Ingest)
		webhooks.OPTIONS("/payment/:provider", func(c *gin.Context) {})

		// Internal dispatch trigger, service JWT only.
		dispatch := webhooks.Group("")
		dispatch.Use(middleware.ServiceAuth(deps.TokenSvc, deps.Logger))
		{
			dispatch.POST("/dispatch", dispatchHandler.Dispatch)
		}
		webhooks.OPTIONS("/dispatch", func(c *gin.Context) {})
	}

	return r
}
