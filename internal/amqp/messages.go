package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"farmprofit/internal/ledger"
)

// LedgerChangedMessage announces a persisted ledger mutation. It carries ids
// only; consumers read the current ledger state themselves.
type LedgerChangedMessage struct {
	Op            ledger.Op `json:"op"`
	AccountID     string    `json:"account_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewLedgerChangedMessage builds a message from a ledger change, stamping it
// with the current time when the change has none.
func NewLedgerChangedMessage(c ledger.Change) *LedgerChangedMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &LedgerChangedMessage{
		Op:            c.Op,
		AccountID:     c.AccountID,
		TransactionID: c.TransactionID,
		Timestamp:     ts,
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Op == "" || msg.AccountID == "" {
		return nil, errors.New("message missing op or account_id")
	}
	return &msg, nil
}
