package handlers

import (
	"bank-api/internal/actor"
	"bank-api/internal/domain/money"
	apierrors "bank-api/internal/pkg/errors"
	"bank-api/internal/pkg/validation"
	"bank-api/internal/registry"

	"github.com/gin-gonic/gin"
)

// MakeTransferHandler debits the account and credits one or more
// recipients. A `recipients` array selects the split form; a bare
// `recipient_account_id` selects the single-recipient form.
func MakeTransferHandler(deps Dependencies) gin.HandlerFunc {
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
		if err := validation.ValidateAmount(amount); err != nil {
			respond(c, apierrors.NewInvalidAmountError(err.Error()))
			return
		}
		if err := validation.ValidateCurrency(currency); err != nil {
			respond(c, apierrors.NewValidationError(err.Error()))
			return
		}

		if rawRecipients, isSplit := body["recipients"].([]interface{}); isSplit {
			handleSplitTransfer(c, deps, id, amount, currency, body, rawRecipients)
			return
		}
		handleSingleTransfer(c, deps, id, amount, currency, body)
	}
}

func handleSingleTransfer(c *gin.Context, deps Dependencies, id, amount int, currency string, body map[string]interface{}) {
	recipientID, valid := asInt(body["recipient_account_id"])
	if !valid {
		respond(c, apierrors.NewValidationError("recipient_account_id is required"))
		return
	}
	if err := validation.ValidateAccountID(recipientID); err != nil {
		respond(c, apierrors.NewValidationError("recipient_account_id: "+err.Error()))
		return
	}
	if recipientID == id {
		respond(c, apierrors.NewValidationError("cannot transfer to the same account"))
		return
	}
	extra := extraFields(body, "amount", "currency", "recipient_account_id", "recipients")

	reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
		return h.TransferOut(c.Request.Context(), amount, currency, recipientID, extra)
	})

	respondResult(c, reply, err, func(reply actor.Reply) {
		jsonOK(c, gin.H{
			"id":                 id,
			"operation":          toOperationView(reply.Operation),
			"recipient_operation": toOperationView(reply.RecipientOperation),
		})
	})
}

func handleSplitTransfer(c *gin.Context, deps Dependencies, id, total int, currency string, body map[string]interface{}, raw []interface{}) {
	recipients := make([]money.SplitRecipient, 0, len(raw))
	for _, item := range raw {
		entry, isMap := item.(map[string]interface{})
		if !isMap {
			respond(c, apierrors.NewValidationError("each recipient must be an object"))
			return
		}
		pct, _ := asFloat(entry["percentage"])
		if err := validation.ValidatePercentage(pct); err != nil {
			respond(c, apierrors.NewValidationError(err.Error()))
			return
		}
		recipientID, valid := asInt(entry["recipient_account_id"])
		if !valid {
			respond(c, apierrors.NewValidationError("recipient_account_id is required for every recipient"))
			return
		}
		if err := validation.ValidateAccountID(recipientID); err != nil {
			respond(c, apierrors.NewValidationError("recipient_account_id: "+err.Error()))
			return
		}
		recipients = append(recipients, money.SplitRecipient{
			Percentage:         pct,
			RecipientAccountID: recipientID,
			Extra:              extraFields(entry, "percentage", "recipient_account_id"),
		})
	}
	if len(recipients) == 0 {
		respond(c, apierrors.NewValidationError("recipients must not be empty"))
		return
	}
	extra := extraFields(body, "amount", "currency", "recipients")

	reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
		return h.TransferOutSplit(c.Request.Context(), total, currency, recipients, extra)
	})

	respondResult(c, reply, err, func(reply actor.Reply) {
		jsonOK(c, gin.H{
			"id":                   id,
			"operations":           toOperationViews(reply.Operations),
			"recipient_operations": toOperationViews(reply.RecipientOperations),
		})
	})
}
