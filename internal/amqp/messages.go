package amqp

import (
	"encoding/json"
	"time"
)

// Event actions carried by transaction messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionEventMessage notifies downstream consumers that a transaction
// changed. It carries only identifiers; consumers fetch the current row from
// storage so a stale message can never overwrite fresher data.
type TransactionEventMessage struct {
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Action        string    `json:"action"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(txID, userID int64, action string) *TransactionEventMessage {
	return &TransactionEventMessage{
		TransactionID: txID,
		UserID:        userID,
		Action:        action,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
