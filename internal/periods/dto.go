package periods

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/common/validation"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ManualPaymentInput is an operator-entered cash payment. Exactly one
// of Amount or Months sizes the payment; when both are present they
// must agree.
type ManualPaymentInput struct {
	TransferNumber string           `json:"transfer_number"`
	TransferDate   time.Time        `json:"transfer_date"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Months         *int             `json:"months,omitempty"`
	StartMonth     string           `json:"start_month,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

func (dto ManualPaymentInput) Validate() error {
	v := validation.NewValidator()
	v.Field("transfer_number", dto.TransferNumber).Required().MaxLength(64)
	v.Field("start_month", dto.StartMonth).
		Matches(monthPattern, "start_month must be in YYYY-MM format", errors.ErrCodeInvalidMonth)
	v.Field("transfer_date", dto.TransferDate).NotFuture()
	v.Field("sizing", dto).Custom(func(interface{}) *errors.AppError {
		if dto.Amount == nil && dto.Months == nil {
			return errors.NewValidationFieldError("amount", "either amount or months is required", errors.ErrCodeValidationFailed)
		}
		if dto.Amount != nil && !dto.Amount.IsPositive() {
			return errors.NewValidationFieldError("amount", "amount must be positive", errors.ErrCodeInvalidAmount)
		}
		if dto.Months != nil && (*dto.Months < 1 || *dto.Months > MaxMonthsPerPayment) {
			return errors.NewValidationFieldError("months", "months must be between 1 and 24", errors.ErrCodeInvalidMonth)
		}
		return nil
	})
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// StartMonthTime parses StartMonth; zero time when not set.
func (dto ManualPaymentInput) StartMonthTime() time.Time {
	if dto.StartMonth == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01", dto.StartMonth)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// PeriodView is one accounted month in the contract's payment history.
type PeriodView struct {
	ID            int64           `json:"id"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID *int64          `json:"transaction_id,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Snapshot summarizes where a contract stands.
type Snapshot struct {
	ContractID      int64      `json:"contract_id"`
	PaidThrough     *time.Time `json:"paid_through,omitempty"`
	NextPeriodStart time.Time  `json:"next_period_start"`
	MonthsAhead     int        `json:"months_ahead"`
	CurrentPaid     bool       `json:"current_paid"`
}
