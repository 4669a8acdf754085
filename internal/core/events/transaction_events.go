package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

const (
	TransactionPaidEventType     = "transaction.paid"
	TransactionCanceledEventType = "transaction.canceled"
)

// TransactionPaidEvent is published synchronously by the ledger when a
// transaction transitions to PAID. The period allocator subscribes so
// contract-linked payments are allocated inside the same webhook call.
type TransactionPaidEvent struct {
	ID          string
	Timestamp   time.Time
	Transaction *transaction.Transaction
}

func NewTransactionPaidEvent(tx *transaction.Transaction) TransactionPaidEvent {
	return TransactionPaidEvent{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Transaction: tx,
	}
}

func (e TransactionPaidEvent) EventType() string { return TransactionPaidEventType }

func (e TransactionPaidEvent) EventID() string { return e.ID }

func (e TransactionPaidEvent) OccurredAt() time.Time { return e.Timestamp }

func (e TransactionPaidEvent) Payload() interface{} { return e.Transaction }

type TransactionCanceledEvent struct {
	ID          string
	Timestamp   time.Time
	Transaction *transaction.Transaction
	Reason      *int
}

func NewTransactionCanceledEvent(tx *transaction.Transaction, reason *int) TransactionCanceledEvent {
	return TransactionCanceledEvent{
		ID:          uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Transaction: tx,
		Reason:      reason,
	}
}

func (e TransactionCanceledEvent) EventType() string { return TransactionCanceledEventType }

func (e TransactionCanceledEvent) EventID() string { return e.ID }

func (e TransactionCanceledEvent) OccurredAt() time.Time { return e.Timestamp }

func (e TransactionCanceledEvent) Payload() interface{} { return e.Transaction }
