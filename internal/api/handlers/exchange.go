package handlers

import (
	"bank-api/internal/actor"
	apierrors "bank-api/internal/pkg/errors"
	"bank-api/internal/pkg/validation"
	"bank-api/internal/registry"

	"github.com/gin-gonic/gin"
)

// MakeExchangeHandler converts between two of the account's own currency
// balances using the live rates table.
func MakeExchangeHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseAccountID(c)
		if !ok {
			return
		}
		body, ok := bindJSONMap(c)
		if !ok {
			return
		}

		amount, _ := asInt(body["amount"])
		currency, _ := asString(body["currency"])
		newCurrency, _ := asString(body["new_currency"])
		if err := validation.ValidateAmount(amount); err != nil {
			respond(c, apierrors.NewInvalidAmountError(err.Error()))
			return
		}
		if err := validation.ValidateCurrency(currency); err != nil {
			respond(c, apierrors.NewValidationError("currency: "+err.Error()))
			return
		}
		if err := validation.ValidateCurrency(newCurrency); err != nil {
			respond(c, apierrors.NewValidationError("new_currency: "+err.Error()))
			return
		}

		reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
			return h.Exchange(c.Request.Context(), amount, currency, newCurrency)
		})

		respondResult(c, reply, err, func(reply actor.Reply) {
			jsonOK(c, gin.H{"id": id, "operation": toOperationView(reply.Operation)})
		})
	}
}
