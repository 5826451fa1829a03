package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	redisClient redis.UniversalClient
	version     string
}

// NewHealthHandler creates a new health handler; redisClient may be nil
// when no component uses Redis.
func NewHealthHandler(redisClient redis.UniversalClient) *HealthHandler {
	return &HealthHandler{
		redisClient: redisClient,
		version:     "1.0.0",
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dependencies := make(map[string]string)
	overallStatus := "healthy"

	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			dependencies["redis"] = "unhealthy"
			overallStatus = "unhealthy"
		} else {
			dependencies["redis"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:       overallStatus,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: dependencies,
	})
}
