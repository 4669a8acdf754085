package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

// Entity scopes for the read-side queries. Stall rows come from
// attendance-funded transactions, store rows from contract-funded ones.
const (
	ScopeAll   = "all"
	ScopeStall = "stall"
	ScopeStore = "store"
)

// Filter narrows a ledger query. Zero From/To default to the current
// day. Method and Status are exact matches when set; ContractID pins
// the query to one contract.
type Filter struct {
	From       time.Time
	To         time.Time
	Scope      string
	Method     string
	Status     string
	ContractID *int64
}

// ContractAccount is a contract joined with its store number, the
// shape the summary report works over.
type ContractAccount struct {
	ContractID  int64
	StoreNumber string
	MonthlyFee  decimal.Decimal
	IsActive    bool
}

// Repository is the read-only persistence surface. Implementations
// never mutate anything.
type Repository interface {
	TransactionsBetween(filter Filter) ([]*transaction.Transaction, error)
	// ManualPaidAttendances returns PAID attendances that have no
	// funding transaction: cash collected at the stall and entered by
	// hand. They are reported as CASH.
	ManualPaidAttendances(from, to time.Time) ([]*billing.Attendance, error)
	ContractAccounts() ([]ContractAccount, error)
}
