package ledger

import (
	"context"
	"time"
)

// Op names a kind of ledger mutation.
type Op string

const (
	OpAccountCreated     Op = "account.created"
	OpAccountRemoved     Op = "account.removed"
	OpTransactionAdded   Op = "transaction.added"
	OpTransactionUpdated Op = "transaction.updated"
	OpTransactionRemoved Op = "transaction.removed"
)

// Change describes a mutation that has been persisted.
type Change struct {
	Op            Op        `json:"op"`
	AccountID     string    `json:"account_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier is told about every persisted change.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, c Change) error

func (f NotifierFunc) Notify(ctx context.Context, c Change) error {
	return f(ctx, c)
}
