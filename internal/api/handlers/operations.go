package handlers

import (
	"strconv"
	"time"

	"bank-api/internal/actor"
	apierrors "bank-api/internal/pkg/errors"
	"bank-api/internal/registry"

	"github.com/gin-gonic/gin"
)

// MakeGetOperationHandler returns a single operation by id.
func MakeGetOperationHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseAccountID(c)
		if !ok {
			return
		}
		operationID, err := strconv.Atoi(c.Param("operationID"))
		if err != nil {
			respond(c, apierrors.NewValidationError("operation id must be a number"))
			return
		}

		reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
			return h.Operation(c.Request.Context(), operationID)
		})

		respondResult(c, reply, err, func(reply actor.Reply) {
			jsonOK(c, gin.H{"id": id, "operation": toOperationView(reply.Operation)})
		})
	}
}

// MakeListOperationsHandler returns an account's operations, filtered by
// ?date=YYYY-MM-DD (a single calendar day) or ?from=&to= (an inclusive
// date-time range), mutually exclusive.
func MakeListOperationsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseAccountID(c)
		if !ok {
			return
		}

		if dateStr := c.Query("date"); dateStr != "" {
			date, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				respond(c, apierrors.NewValidationError("date must be formatted as YYYY-MM-DD"))
				return
			}
			reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
				return h.OperationsOnDate(c.Request.Context(), date)
			})
			respondResult(c, reply, err, func(reply actor.Reply) {
				jsonOK(c, gin.H{"id": id, "operations": toOperationViews(reply.Operations)})
			})
			return
		}

		fromStr, toStr := c.Query("from"), c.Query("to")
		if fromStr == "" || toStr == "" {
			respond(c, apierrors.NewValidationError("either date or both from and to are required"))
			return
		}
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			respond(c, apierrors.NewValidationError("from must be an RFC3339 timestamp"))
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			respond(c, apierrors.NewValidationError("to must be an RFC3339 timestamp"))
			return
		}

		reply, err := registry.ServeProcess(c.Request.Context(), deps.Registry, id, func(h *actor.Handle) (actor.Reply, error) {
			return h.OperationsInRange(c.Request.Context(), from, to)
		})
		respondResult(c, reply, err, func(reply actor.Reply) {
			jsonOK(c, gin.H{"id": id, "operations": toOperationViews(reply.Operations)})
		})
	}
}
