package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MakeHealthHandler reports liveness plus the event publisher's health
// (e.g. whether the Kafka producer's observed error rate is acceptable).
func MakeHealthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		healthy := deps.Publisher.IsHealthy()
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status":           "ok",
			"event_publisher":  healthy,
			"active_accounts":  deps.Registry.Count(),
		})
	}
}
