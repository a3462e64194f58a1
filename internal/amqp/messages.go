package amqp

import (
	"encoding/json"
	"time"
)

// Sync actions carried by queue messages.
const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

// TransactionSyncMessage is a lightweight queue message: it carries only
// the transaction ID and the action. The worker fetches the full row from
// the local database before pushing to the spreadsheet.
type TransactionSyncMessage struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSyncMessage creates a sync message for the given action.
func NewTransactionSyncMessage(id, action string) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Action:    action,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON creates a message from JSON bytes
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
