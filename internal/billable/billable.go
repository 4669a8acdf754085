package billable

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
)

type Kind string

const (
	KindContract   Kind = "CONTRACT"
	KindAttendance Kind = "ATTENDANCE"
)

// Billable is what a payment attempt pays for: a recurring store
// contract or a one-off stall attendance. Payable=false means the
// caller should surface "already paid" rather than creating anything.
type Billable struct {
	Kind           Kind
	Contract       *billing.Contract
	Attendance     *billing.Attendance
	ExpectedAmount decimal.Decimal
	Payable        bool
}

// Ref returns the mutually exclusive transaction back-references.
func (b *Billable) Ref() (contractID, attendanceID *int64) {
	if b.Contract != nil {
		return &b.Contract.ID, nil
	}
	if b.Attendance != nil {
		return nil, &b.Attendance.ID
	}
	return nil, nil
}

// Repository reads billable entities. Implementations return
// (nil, nil) when the entity does not exist; errors are reserved for
// store failures.
type Repository interface {
	FindStoreContract(storeNumber string) (*billing.Store, *billing.Contract, error)
	GetAttendance(attendanceID int64) (*billing.Attendance, error)
	HasPaidTransactionForAttendance(attendanceID int64, from, to time.Time) (bool, error)
}

// PeriodChecker answers "is the current calendar month already paid"
// from the period table, the single source of truth for that question.
type PeriodChecker interface {
	HasCurrentPeriodPaid(contract *billing.Contract) (bool, error)
}

type Resolver struct {
	repo    Repository
	periods PeriodChecker
	logger  *slog.Logger
}

func NewResolver(repo Repository, periods PeriodChecker, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:    repo,
		periods: periods,
		logger:  logger,
	}
}

// Resolve maps an opaque external reference to a billable. Numeric
// references are tried as attendance ids first, anything else (or a
// number that is not an attendance) as a store number.
func (r *Resolver) Resolve(externalRef string) (*Billable, error) {
	if attendanceID, err := strconv.ParseInt(externalRef, 10, 64); err == nil {
		b, err := r.ResolveAttendance(attendanceID)
		if err == nil {
			return b, nil
		}
		if appErr, ok := errors.IsAppError(err); !ok || appErr.Code != errors.ErrCodeAttendanceNotFound {
			return nil, err
		}
	}
	return r.ResolveContract(externalRef)
}

// ResolveContract resolves a store number to its active contract.
func (r *Resolver) ResolveContract(storeNumber string) (*Billable, error) {
	store, contract, err := r.repo.FindStoreContract(storeNumber)
	if err != nil {
		return nil, err
	}
	if store == nil || contract == nil {
		return nil, errors.ErrContractNotFound
	}

	payable := contract.IsActive
	if payable {
		paid, err := r.periods.HasCurrentPeriodPaid(contract)
		if err != nil {
			return nil, err
		}
		payable = !paid
	}

	return &Billable{
		Kind:           KindContract,
		Contract:       contract,
		ExpectedAmount: contract.ShopMonthlyFee,
		Payable:        payable,
	}, nil
}

func (r *Resolver) ResolveAttendance(attendanceID int64) (*Billable, error) {
	attendance, err := r.repo.GetAttendance(attendanceID)
	if err != nil {
		return nil, err
	}
	if attendance == nil {
		return nil, errors.ErrAttendanceNotFound
	}

	payable := attendance.Status != billing.AttendanceStatusPaid
	if payable {
		now := time.Now().UTC()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		paidToday, err := r.repo.HasPaidTransactionForAttendance(attendanceID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		payable = !paidToday
	}

	return &Billable{
		Kind:           KindAttendance,
		Attendance:     attendance,
		ExpectedAmount: attendance.Amount,
		Payable:        payable,
	}, nil
}
