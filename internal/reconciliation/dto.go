package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket is one count-plus-revenue aggregate cell.
type Bucket struct {
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

func (b *Bucket) add(amount decimal.Decimal) {
	b.Count++
	b.Revenue = b.Revenue.Add(amount)
}

// LedgerEntry is one row of the reconciliation ledger. Stall rows carry
// the attendance reference, store rows the contract reference.
type LedgerEntry struct {
	Type          string          `json:"type"`
	TransactionID *int64          `json:"transaction_id,omitempty"`
	ExternalID    string          `json:"external_id,omitempty"`
	ContractID    *int64          `json:"contract_id,omitempty"`
	AttendanceID  *int64          `json:"attendance_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Method        string          `json:"method"`
	Source        string          `json:"source"`
	PaidAt        time.Time       `json:"paid_at"`
}

type LedgerReport struct {
	From  time.Time     `json:"from"`
	To    time.Time     `json:"to"`
	Count int           `json:"count"`
	Rows  []LedgerEntry `json:"rows"`
}

// DailyReport splits one day's income between stalls and stores.
type DailyReport struct {
	Date  string `json:"date"`
	Stall Bucket `json:"stall"`
	Store Bucket `json:"store"`
	Total Bucket `json:"total"`
}

// MonthlyReport is the per-method rollup for one calendar month.
type MonthlyReport struct {
	Month   string            `json:"month"`
	Stall   Bucket            `json:"stall"`
	Store   Bucket            `json:"store"`
	Total   Bucket            `json:"total"`
	Methods map[string]Bucket `json:"methods"`
}

// ContractSummaryRow compares one contract's expected monthly fee with
// what actually arrived in the selected range.
type ContractSummaryRow struct {
	ContractID        int64                      `json:"contract_id"`
	StoreNumber       string                     `json:"store_number"`
	Expected          decimal.Decimal            `json:"expected"`
	Paid              decimal.Decimal            `json:"paid"`
	Unpaid            decimal.Decimal            `json:"unpaid"`
	Overpaid          bool                       `json:"overpaid"`
	PaymentsCount     int                        `json:"payments_count"`
	PaidCount         int                        `json:"paid_count"`
	PendingCount      int                        `json:"pending_count"`
	CanceledCount     int                        `json:"canceled_count"`
	LastPaymentAt     *time.Time                 `json:"last_payment_at,omitempty"`
	LastPaymentMethod string                     `json:"last_payment_method,omitempty"`
	Methods           map[string]decimal.Decimal `json:"methods"`
}

type ContractSummaryReport struct {
	From      time.Time            `json:"from"`
	To        time.Time            `json:"to"`
	Contracts []ContractSummaryRow `json:"contracts"`
}
