package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses. PAID may still move to CANCELED (reversal),
// never back to PENDING.
const (
	StatusPending  = "PENDING"
	StatusPaid     = "PAID"
	StatusCanceled = "CANCELED"
	StatusFailed   = "FAILED"
)

const (
	MethodCash  = "CASH"
	MethodClick = "CLICK"
	MethodPayme = "PAYME"
)

// Gateway state vocabulary shared by both gateways.
const (
	StatePending         = 1
	StatePaid            = 2
	StatePendingCanceled = -1
	StatePaidCanceled    = -2
)

// Transaction is one payment attempt. ExternalID is the gateway's
// idempotency key (or a manually issued transfer number) and is unique;
// re-delivery of the same webhook always resolves to the same row.
type Transaction struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	ExternalID    string          `json:"external_id" gorm:"column:external_id;not null;uniqueIndex"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Status        string          `json:"status" gorm:"column:status;default:PENDING"`
	PaymentMethod string          `json:"payment_method" gorm:"column:payment_method;not null"`
	ContractID    *int64          `json:"contract_id,omitempty" gorm:"column:contract_id"`
	AttendanceID  *int64          `json:"attendance_id,omitempty" gorm:"column:attendance_id"`
	State         int             `json:"state" gorm:"column:state;default:1"`
	CancelReason  *int            `json:"cancel_reason,omitempty" gorm:"column:cancel_reason"`
	PerformedAt   *time.Time      `json:"performed_at,omitempty" gorm:"column:performed_at"`
	CanceledAt    *time.Time      `json:"canceled_at,omitempty" gorm:"column:canceled_at"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) IsPending() bool {
	return t.Status == StatusPending
}

func (t *Transaction) IsPaid() bool {
	return t.Status == StatusPaid
}

func (t *Transaction) IsCanceled() bool {
	return t.Status == StatusCanceled
}

// ClickTransaction statuses: 0 open, 1 paid, -1 canceled.
const (
	ClickStatusOpen     = 0
	ClickStatusPaid     = 1
	ClickStatusCanceled = -1
)

const (
	ClickActionPrepare  = 0
	ClickActionComplete = 1
)

// ClickTransaction shadows one Click "prepare" call. Click's protocol
// needs a prepare-scoped identifier (merchant_prepare_id) distinct from
// the internal transaction id, so prepare rows live in their own table.
// Rows are never deleted.
type ClickTransaction struct {
	ID              int64           `json:"id" gorm:"primaryKey"`
	ClickTransID    string          `json:"click_trans_id" gorm:"column:click_trans_id;not null;uniqueIndex"`
	ClickPaydocID   *string         `json:"click_paydoc_id,omitempty" gorm:"column:click_paydoc_id"`
	MerchantTransID string          `json:"merchant_trans_id" gorm:"column:merchant_trans_id;not null"`
	Amount          decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	Action          int             `json:"action" gorm:"column:action"`
	SignTime        time.Time       `json:"sign_time" gorm:"column:sign_time"`
	Status          int             `json:"status" gorm:"column:status;default:0"`
	ErrorCode       int             `json:"error_code" gorm:"column:error_code;default:0"`
	ErrorNote       *string         `json:"error_note,omitempty" gorm:"column:error_note"`
	CreatedAt       time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (ClickTransaction) TableName() string {
	return "click_transactions"
}
