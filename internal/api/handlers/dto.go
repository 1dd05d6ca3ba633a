package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"bank-api/internal/actor"
	"bank-api/internal/domain/money"
	apierrors "bank-api/internal/pkg/errors"
	"bank-api/internal/pkg/validation"

	"github.com/gin-gonic/gin"
)

// bindJSONMap decodes the request body into a generic map, preserving
// numbers as json.Number so amounts survive round-tripping as exact
// integers instead of losing precision through float64.
func bindJSONMap(c *gin.Context) (map[string]interface{}, bool) {
	var body map[string]interface{}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		respond(c, apierrors.NewValidationError("invalid request body"))
		return nil, false
	}
	return body, true
}

// asInt reads v (expected to be a json.Number from bindJSONMap) as an int.
func asInt(v interface{}) (int, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	n, err := num.Int64()
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asFloat reads v as a float64, accepting either a json.Number or a
// plain float64 (percentages arrive as fractional numbers).
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// operationView is the JSON shape of an Operation. Kept separate from
// money.Operation so the domain model stays free of encoding concerns.
type operationView struct {
	ID       int                    `json:"id"`
	DateTime time.Time              `json:"date_time"`
	Type     money.OperationType    `json:"type"`
	Status   money.OperationStatus  `json:"status"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

func toOperationView(op money.Operation) operationView {
	return operationView{ID: op.ID, DateTime: op.DateTime, Type: op.Type, Status: op.Status, Data: op.Data}
}

func toOperationViews(ops []money.Operation) []operationView {
	out := make([]operationView, len(ops))
	for i, op := range ops {
		out[i] = toOperationView(op)
	}
	return out
}

// parseAccountID extracts and validates the :id path parameter, writing
// a response and returning ok=false on failure.
func parseAccountID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respond(c, apierrors.NewValidationError("account id must be a number"))
		return 0, false
	}
	if err := validation.ValidateAccountID(id); err != nil {
		respond(c, apierrors.NewValidationError(err.Error()))
		return 0, false
	}
	return id, true
}

func respond(c *gin.Context, apiErr apierrors.APIError) {
	c.JSON(apiErr.Status, apiErr)
}

// apiErrorForReply translates a non-ok actor.Reply into the HTTP error it
// maps to. Callers should only reach this when reply.Kind != money.KindOk.
func apiErrorForReply(reply actor.Reply) apierrors.APIError {
	switch reply.Kind {
	case money.KindDenied:
		return apierrors.NewInsufficientFundsError(reply.Reason)
	case money.KindError:
		switch reply.Reason {
		case "operation does not exist":
			return apierrors.NewOperationNotFoundError()
		case "unrefundable operation":
			return apierrors.NewUnrefundableError()
		default:
			return apierrors.NewValidationError(reply.Reason)
		}
	default:
		return apierrors.NewInternalServerError("unexpected result")
	}
}

// apiErrorForCallErr translates a transport-level failure from the actor
// call itself (as opposed to a business-rule outcome): the actor
// couldn't be reached or the call timed out.
func apiErrorForCallErr(err error) apierrors.APIError {
	if err == actor.ErrActorStopped {
		return apierrors.NewActorUnavailableError("account actor is restarting, please retry")
	}
	return apierrors.NewInternalServerError(err.Error())
}

// respondResult writes reply/err as the handler's final response: a
// non-nil err always short-circuits (it means the call itself failed,
// not that the business rule declined), then reply.Kind selects between
// the error mapping above and the success payload built by onOK.
func respondResult(c *gin.Context, reply actor.Reply, err error, onOK func(actor.Reply)) {
	if err != nil {
		respond(c, apiErrorForCallErr(err))
		return
	}
	if reply.Kind != money.KindOk {
		respond(c, apiErrorForReply(reply))
		return
	}
	onOK(reply)
}

func jsonOK(c *gin.Context, body gin.H) {
	c.JSON(http.StatusOK, body)
}

// extraFields returns body stripped of every key in known, for requests
// that accept caller-supplied metadata alongside their recognized
// fields. The copy is what the domain layer's `extra` parameter expects:
// anything not a well-known Operation.Data key, carried through verbatim.
func extraFields(body map[string]interface{}, known ...string) map[string]interface{} {
	if len(body) == 0 {
		return nil
	}
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	out := make(map[string]interface{})
	for k, v := range body {
		if !skip[k] {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
