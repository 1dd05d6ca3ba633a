package handlers

import (
	"bank-api/internal/actor"
	apierrors "bank-api/internal/pkg/errors"
	"bank-api/internal/pkg/validation"
	"bank-api/internal/registry"

	"github.com/gin-gonic/gin"
)

// MakeCardTransactionHandler debits the account like a withdraw but tags
// the ledger entry with a card id, making it eligible for a later refund.
func MakeCardTransactionHandler(deps Dependencies) gin.HandlerFunc {
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
		cardID, _ := asString(body["card_id"])
		if err := validation.ValidateAmount(amount); err != nil {
			respond(c, apierrors.NewInvalidAmountError(err.Error()))
			return
		}
		if err := validation.ValidateCurrency(currency); err != nil {
			respond(c, apierrors.NewValidationError(err.Error()))
			return
		}
		if cardID == "" {
			respond(c, apierrors.NewValidationError("card_id is required"))
			return
		}
		extra := extraFields(body, "amount", "currency", "card_id")

		reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
			return h.CardTransaction(c.Request.Context(), amount, currency, cardID, extra)
		})

		respondResult(c, reply, err, func(reply actor.Reply) {
			jsonOK(c, gin.H{"id": id, "operation": toOperationView(reply.Operation)})
		})
	}
}

// MakeRefundHandler reverses a prior done card_transaction.
func MakeRefundHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseAccountID(c)
		if !ok {
			return
		}
		body, ok := bindJSONMap(c)
		if !ok {
			return
		}

		operationID, valid := asInt(body["operation_id"])
		if !valid {
			respond(c, apierrors.NewValidationError("operation_id is required"))
			return
		}

		reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
			return h.Refund(c.Request.Context(), operationID)
		})

		respondResult(c, reply, err, func(reply actor.Reply) {
			jsonOK(c, gin.H{"id": id, "operation": toOperationView(reply.Operation)})
		})
	}
}
