package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Storage       string `json:"storage"`
	Uptime        string `json:"uptime"`
	RefreshTokens int    `json:"refreshTokens"`
}

// HealthCheck reports whether the sandbox can reach its record storage
// GET /health
func (a *API) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:        "ok",
		Storage:       "ok",
		Uptime:        time.Since(a.started).Round(time.Second).String(),
		RefreshTokens: a.issuer.Outstanding(),
	}
	if _, err := a.imports.List(c.Request.Context()); err != nil {
		response.Status = "degraded"
		response.Storage = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
