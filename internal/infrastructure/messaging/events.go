package messaging

import (
	"time"

	"bank-api/internal/domain/money"
)

// OperationCompletedEvent is the single event shape published for every
// ledger mutation an actor persists, regardless of operation type — the
// generalized replacement for the teacher's per-operation event structs
// (AccountCreatedEvent/DepositCompletedEvent/WithdrawalCompletedEvent/
// TransferCompletedEvent/...), which no longer map onto this domain's
// unified Operation model.
type OperationCompletedEvent struct {
	AccountID int                    `json:"account_id"`
	Type      money.OperationType    `json:"type"`
	Status    money.OperationStatus  `json:"status"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
