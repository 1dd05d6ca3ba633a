package handlers

import (
	"net/http"

	"bank-api/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MakeMetricsHandler returns a small JSON summary of live process state,
// independent of the Prometheus exposition format below.
func MakeMetricsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"active_actors": deps.Registry.Count(),
		})
	}
}

// PrometheusMetrics exposes metrics in Prometheus exposition format.
func PrometheusMetrics(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.SetActiveActors(deps.Registry.Count())
		metrics.UpdateSystemMetrics()
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	}
}
