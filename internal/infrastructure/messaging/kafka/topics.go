package kafka

// TopicOperations is the single topic every completed ledger mutation
// is published to, keyed by account id. The teacher fanned events out
// across a topic per operation type (deposit/withdrawal/transfer/...);
// this domain's unified Operation model collapses that back down to one
// topic carrying a `type` field, same as the SSE broker's OperationEvent.
const TopicOperations = "banking.operations"

// GetAllTopics returns the list of topics this service owns.
func GetAllTopics() []string {
	return []string{TopicOperations}
}
