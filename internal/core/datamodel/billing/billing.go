package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store is the unit a recurring contract is attached to. The store
// number is what gateways send as the contract account reference.
type Store struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	StoreNumber string    `json:"store_number" gorm:"column:store_number;not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"column:name"`
	SectionID   *int64    `json:"section_id,omitempty" gorm:"column:section_id"`
	CreatedAt   time.Time `json:"created_at" gorm:"column:created_at"`
}

func (Store) TableName() string {
	return "stores"
}

type Contract struct {
	ID             int64           `json:"id" gorm:"primaryKey"`
	StoreID        int64           `json:"store_id" gorm:"column:store_id;not null"`
	IsActive       bool            `json:"is_active" gorm:"column:is_active;default:true"`
	ShopMonthlyFee decimal.Decimal `json:"shop_monthly_fee" gorm:"column:shop_monthly_fee;type:numeric(14,2)"`
	IssueDate      *time.Time      `json:"issue_date,omitempty" gorm:"column:issue_date"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (Contract) TableName() string {
	return "contracts"
}

const (
	AttendanceStatusPending = "PENDING"
	AttendanceStatusPaid    = "PAID"
)

// Attendance is a single-day stall fee. This subsystem only flips its
// status to PAID and links the funding transaction.
type Attendance struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	StallID       *int64          `json:"stall_id,omitempty" gorm:"column:stall_id"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2)"`
	Status        string          `json:"status" gorm:"column:status;default:PENDING"`
	Date          time.Time       `json:"date" gorm:"column:date"`
	TransactionID *int64          `json:"transaction_id,omitempty" gorm:"column:transaction_id"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (Attendance) TableName() string {
	return "attendances"
}

const (
	PeriodStatusPaid    = "PAID"
	PeriodStatusPending = "PENDING"
	PeriodStatusSkipped = "SKIPPED"
)

// ContractPaymentPeriod is one calendar month of rent accounted for.
/// (contract_id, period_start) is unique: a month exists at most once,
// which is what makes allocation replays idempotent.
type ContractPaymentPeriod struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	ContractID    int64           `json:"contract_id" gorm:"column:contract_id;not null;uniqueIndex:idx_contract_period_start"`
	PeriodStart   time.Time       `json:"period_start" gorm:"column:period_start;not null;uniqueIndex:idx_contract_period_start"`
	PeriodEnd     time.Time       `json:"period_end" gorm:"column:period_end;not null"`
	Status        string          `json:"status" gorm:"column:status;default:PENDING"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2)"`
	TransactionID *int64          `json:"transaction_id,omitempty" gorm:"column:transaction_id"`
	Notes         *string         `json:"notes,omitempty" gorm:"column:notes"`
	CreatedByID   *int64          `json:"created_by_id,omitempty" gorm:"column:created_by_id"`
	CreatedAt     time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (ContractPaymentPeriod) TableName() string {
	return "contract_payment_periods"
}
