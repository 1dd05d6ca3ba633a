package handlers

import (
	"bank-api/internal/actor"
	"bank-api/internal/registry"

	"github.com/gin-gonic/gin"
)

// MakeGetBalanceHandler returns the account's balance in one currency
// (?currency=), or every currency balance when no currency is given.
func MakeGetBalanceHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseAccountID(c)
		if !ok {
			return
		}
		currency := c.DefaultQuery("currency", "")

		reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
			if currency == "" {
				return h.Balances(c.Request.Context())
			}
			return h.Balance(c.Request.Context(), currency)
		})

		respondResult(c, reply, err, func(reply actor.Reply) {
			if currency == "" {
				jsonOK(c, gin.H{"id": id, "balances": reply.Balances})
				return
			}
			jsonOK(c, gin.H{"id": id, "currency": currency, "balance": reply.Balance})
		})
	}
}
