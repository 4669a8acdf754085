package periods

import (
	"time"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

// MaxMonthsPerPayment caps how many calendar months a single payment
// can cover. Amounts far above the monthly fee are clamped, not
// rejected; the gateway already accepted the money.
const MaxMonthsPerPayment = 24

// Repository persists contract payment periods. The
// (contract_id, period_start) unique index is the idempotency anchor:
// UpsertRange must insert missing months and update existing ones in
// one database transaction, never duplicate a month.
type Repository interface {
	HasAny(contractID int64) (bool, error)
	List(contractID int64) ([]*billing.ContractPaymentPeriod, error)
	LatestPaid(contractID int64) (*billing.ContractPaymentPeriod, error)
	GetByStart(contractID int64, periodStart time.Time) (*billing.ContractPaymentPeriod, error)
	GetByTransactionID(transactionID int64) ([]*billing.ContractPaymentPeriod, error)
	UpsertRange(periods []*billing.ContractPaymentPeriod) error
}

// ContractSource reads contracts; (nil, nil) means not found.
type ContractSource interface {
	GetContract(contractID int64) (*billing.Contract, error)
}

// TransactionSource gives the allocator the ledger rows it replays
// during backfill and lets manual cash entries land in the ledger.
type TransactionSource interface {
	PaidByContract(contractID int64) ([]*transaction.Transaction, error)
	CreatePaid(tx *transaction.Transaction) error
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func addMonths(monthStart time.Time, n int) time.Time {
	return monthStart.AddDate(0, n, 0)
}

// endOfMonth is exclusive: the stored boundary is the first instant of
// the following month.
func endOfMonth(monthStart time.Time) time.Time {
	return monthStart.AddDate(0, 1, 0)
}

func clampMonths(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxMonthsPerPayment {
		return MaxMonthsPerPayment
	}
	return n
}
