package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MakeRatesHandler exposes the current exchange-rate snapshot, polled by
// perf-test's /ws/rates websocket to drive live dashboards.
func MakeRatesHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Rates.Snapshot())
	}
}
