package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the handlers into a gin engine
func NewRouter(executionHandler *ExecutionHandler, healthHandler *HealthHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Logger(logger))

	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		executions := v1.Group("/executions")
		{
			executions.POST("", executionHandler.Run)
			executions.GET("/:id/variables", executionHandler.Variables)
			executions.DELETE("/:id", executionHandler.Delete)
		}
	}

	return router
}
