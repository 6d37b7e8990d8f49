package handler

import (
	"net/http"
	"time"

	"github.com/faawibowo/pakta/backend/pkg/logger"
	"github.com/faawibowo/pakta/backend/service"
	"github.com/gin-gonic/gin"
)

// Health reports liveness and the number of stored contracts. A store that
// cannot be counted makes the service unhealthy.
func Health(store service.ContractRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := store.Count(c.Request.Context())
		if err != nil {
			logger.Error(c.Request.Context(), "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unavailable",
				"timestamp": time.Now().Format(time.RFC3339),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"contracts": n,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
