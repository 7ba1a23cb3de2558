package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kosarica/import-wizard/internal/middleware"
)

// NewRouter wires the sandbox routes. Import routes require a bearer token
// and are rate limited per user.
func NewRouter(api *API, limiter *middleware.ClientRateLimiter, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.GET("/health", api.HealthCheck)

	authGroup := router.Group("/auth")
	authGroup.Use(middleware.RateLimit(limiter))
	{
		authGroup.POST("/login", api.Login)
		authGroup.POST("/refresh", api.Refresh)
	}

	imports := router.Group("/imports")
	imports.Use(middleware.BearerAuth(api.issuer))
	imports.Use(middleware.RateLimit(limiter))
	{
		imports.POST("/parse", api.ParseFile)
		imports.POST("/preview", api.Preview)
		imports.POST("/confirm", api.Confirm)
		imports.GET("", api.ListImports)
		imports.GET("/:id", api.GetImport)
		imports.DELETE("/:id", api.DiscardImport)
	}

	return router
}
