package httpapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"NewsPulse/internal/usecase"
)

// NewRouter exposes the admin surface of the aggregation job: a health probe
// and the manual trigger the scheduler also drives.
func NewRouter(pipeline *usecase.Pipeline, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	admin := router.Group("/api/admin")
	admin.POST("/sync/news", func(c *gin.Context) {
		report, err := pipeline.Run(c.Request.Context())
		if errors.Is(err, usecase.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		if err != nil {
			if logger != nil {
				logger.Warn("manual aggregation failed", "error", err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     fmt.Sprintf("Aggregated %d new articles", report.NewArticles),
			"newArticles": report.NewArticles,
			"processed":   report.Processed,
			"errors":      report.Errors,
		})
	})

	return router
}
