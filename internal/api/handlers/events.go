package handlers

import (
	"io"

	"bank-api/internal/infrastructure/events"

	"github.com/gin-gonic/gin"
)

// Events streams every completed operation (including cross-account
// transfers) to the caller over SSE.
func Events(c *gin.Context) {
	broker := events.GetBroker()
	ch := broker.Subscribe()
	defer broker.Unsubscribe(ch)

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("operation", evt)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
