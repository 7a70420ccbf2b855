// Package api implements the HTTP surface for triggering processor batches
// and reading queue state. The API carries no submission logic of its own;
// every endpoint delegates to the same components the CLI commands use.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/formreach/formreach/internal/logger"
)

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(log logger.Logger, queue *QueueHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.POST("/queue/process", queue.Process)
	v1.GET("/queue/stats", queue.Stats)
	v1.GET("/queue/schedule", queue.Schedule)
	v1.GET("/campaigns/:id/activity", queue.Activity)

	return router
}

// loggingMiddleware logs each request with method, path, status, and latency.
func loggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}
