package periods

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
	"github.com/muzaffarov/bozor-billing/internal/core/events"
	"github.com/muzaffarov/bozor-billing/internal/ledger"
)

// Service turns paid transactions into calendar-month payment periods.
// Allocation is replayable: the same transaction allocated twice lands
// on the same (contract_id, period_start) rows.
type Service struct {
	repo      Repository
	contracts ContractSource
	txns      TransactionSource
	logger    *slog.Logger
}

func NewService(repo Repository, contracts ContractSource, txns TransactionSource, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		contracts: contracts,
		txns:      txns,
		logger:    logger,
	}
}

// HandleTransactionPaid is the event bus subscriber for transaction.paid.
// Attendance payments carry no contract and are ignored here.
func (s *Service) HandleTransactionPaid(ctx context.Context, event events.Event) error {
	tx, ok := event.Payload().(*transaction.Transaction)
	if !ok || tx.ContractID == nil {
		return nil
	}
	if _, err := s.RecordPaidTransaction(tx); err != nil {
		s.logger.Error("period allocation failed",
			"transaction_id", tx.ID,
			"contract_id", *tx.ContractID,
			"error", err)
		return fmt.Errorf("allocate periods for transaction %d: %w", tx.ID, err)
	}
	return nil
}

// RecordPaidTransaction allocates the months a paid contract
// transaction covers. A transaction that already has periods is left
// alone, which makes at-least-once event delivery safe.
func (s *Service) RecordPaidTransaction(tx *transaction.Transaction) ([]*billing.ContractPaymentPeriod, error) {
	if tx.ContractID == nil {
		return nil, nil
	}

	existing, err := s.repo.GetByTransactionID(tx.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	contract, err := s.contracts.GetContract(*tx.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, errors.ErrContractNotFound
	}

	months, err := s.monthsCovered(contract, tx.Amount)
	if err != nil {
		return nil, err
	}

	start, err := s.allocationStart(contract, tx, months)
	if err != nil {
		return nil, err
	}

	periods := s.buildRange(contract, start, months, &tx.ID, nil, nil)
	if err := s.repo.UpsertRange(periods); err != nil {
		return nil, err
	}

	s.logger.Info("periods allocated",
		"contract_id", contract.ID,
		"transaction_id", tx.ID,
		"months", months,
		"first_period", periods[0].PeriodStart.Format("2006-01"))

	return periods, nil
}

// RecordManualPayment registers an operator-entered cash transfer and
// allocates its months. Unlike gateway payments, manual amounts must be
// an exact multiple of the monthly fee.
func (s *Service) RecordManualPayment(contractID int64, input ManualPaymentInput, createdByID int64) ([]*billing.ContractPaymentPeriod, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	contract, err := s.contracts.GetContract(contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, errors.ErrContractNotFound
	}

	fee := contract.ShopMonthlyFee
	if !fee.IsPositive() {
		return nil, errors.ErrFeeNotConfigured
	}

	// current month already settled means nothing to collect by hand
	currentPaid, err := s.HasCurrentPeriodPaid(contract)
	if err != nil {
		return nil, err
	}
	if currentPaid {
		return nil, errors.ErrPeriodAlreadyPaid
	}

	months, amount, err := manualSizing(input, fee)
	if err != nil {
		return nil, err
	}

	transferDate := input.TransferDate
	if transferDate.IsZero() {
		transferDate = time.Now().UTC()
	}

	var start time.Time
	if explicit := input.StartMonthTime(); !explicit.IsZero() {
		start = startOfMonth(explicit)
		already, err := s.repo.GetByStart(contract.ID, start)
		if err != nil {
			return nil, err
		}
		if already != nil && already.Status == billing.PeriodStatusPaid {
			return nil, errors.ErrPeriodAlreadyPaid
		}
	} else {
		start, err = s.allocationStartFrom(contract, transferDate, months)
		if err != nil {
			return nil, err
		}
	}

	tx := &transaction.Transaction{
		ExternalID:    input.TransferNumber,
		Amount:        amount,
		Status:        transaction.StatusPaid,
		PaymentMethod: transaction.MethodCash,
		ContractID:    &contract.ID,
		State:         transaction.StatePaid,
		PerformedAt:   &transferDate,
	}
	if err := s.txns.CreatePaid(tx); err != nil {
		if err == ledger.ErrDuplicateRef {
			return nil, errors.ErrDuplicateTransfer
		}
		return nil, err
	}

	var notes *string
	if input.Notes != "" {
		notes = &input.Notes
	}

	periods := s.buildRange(contract, start, months, &tx.ID, notes, &createdByID)
	if err := s.repo.UpsertRange(periods); err != nil {
		return nil, err
	}

	s.logger.Info("manual payment recorded",
		"contract_id", contract.ID,
		"transfer_number", input.TransferNumber,
		"months", months,
		"created_by", createdByID)

	return periods, nil
}

// EnsureSeeded backfills the period table for a contract that predates
// it. PAID transactions are replayed oldest first; a contract with any
// period rows is considered already seeded.
func (s *Service) EnsureSeeded(contractID int64) error {
	seeded, err := s.repo.HasAny(contractID)
	if err != nil {
		return err
	}
	if seeded {
		return nil
	}

	txs, err := s.txns.PaidByContract(contractID)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		if _, err := s.RecordPaidTransaction(tx); err != nil {
			return fmt.Errorf("replay transaction %d: %w", tx.ID, err)
		}
	}

	s.logger.Info("contract periods seeded",
		"contract_id", contractID,
		"replayed_transactions", len(txs))
	return nil
}

// ListPayments returns the contract's accounted months, oldest first.
func (s *Service) ListPayments(contractID int64) ([]PeriodView, error) {
	contract, err := s.contracts.GetContract(contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, errors.ErrContractNotFound
	}

	periods, err := s.repo.List(contractID)
	if err != nil {
		return nil, err
	}

	views := make([]PeriodView, 0, len(periods))
	for _, p := range periods {
		views = append(views, PeriodView{
			ID:            p.ID,
			PeriodStart:   p.PeriodStart.Format("2006-01"),
			PeriodEnd:     p.PeriodEnd.Format("2006-01-02"),
			Status:        p.Status,
			Amount:        p.Amount,
			TransactionID: p.TransactionID,
			Notes:         p.Notes,
			CreatedAt:     p.CreatedAt,
		})
	}
	return views, nil
}

// GetSnapshot reports how far a contract is paid relative to now.
func (s *Service) GetSnapshot(contractID int64) (*Snapshot, error) {
	contract, err := s.contracts.GetContract(contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, errors.ErrContractNotFound
	}

	currentMonth := startOfMonth(time.Now().UTC())
	snapshot := &Snapshot{
		ContractID:      contractID,
		NextPeriodStart: currentMonth,
	}

	latest, err := s.repo.LatestPaid(contractID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return snapshot, nil
	}

	paidThrough := latest.PeriodEnd
	snapshot.PaidThrough = &paidThrough
	snapshot.NextPeriodStart = addMonths(startOfMonth(latest.PeriodStart), 1)
	snapshot.CurrentPaid = !latest.PeriodStart.Before(currentMonth)
	if snapshot.CurrentPaid {
		snapshot.MonthsAhead = monthsBetween(currentMonth, startOfMonth(latest.PeriodStart)) + 1
	}
	return snapshot, nil
}

// HasCurrentPeriodPaid implements the billable resolver's period check.
func (s *Service) HasCurrentPeriodPaid(contract *billing.Contract) (bool, error) {
	period, err := s.repo.GetByStart(contract.ID, startOfMonth(time.Now().UTC()))
	if err != nil {
		return false, err
	}
	return period != nil && period.Status == billing.PeriodStatusPaid, nil
}

func (s *Service) monthsCovered(contract *billing.Contract, amount decimal.Decimal) (int, error) {
	fee := contract.ShopMonthlyFee
	if !fee.IsPositive() {
		return 0, errors.ErrFeeNotConfigured
	}
	return clampMonths(int(amount.Div(fee).Round(0).IntPart())), nil
}

// allocationStart picks the first month a payment covers. After a paid
// history the next payment continues forward. With no history the
// covered window is anchored backwards so its last month is the
// payment's own month, floored at the contract issue month.
func (s *Service) allocationStart(contract *billing.Contract, tx *transaction.Transaction, months int) (time.Time, error) {
	ref := tx.CreatedAt
	if tx.PerformedAt != nil {
		ref = *tx.PerformedAt
	}
	return s.allocationStartFrom(contract, ref, months)
}

func (s *Service) allocationStartFrom(contract *billing.Contract, ref time.Time, months int) (time.Time, error) {
	latest, err := s.repo.LatestPaid(contract.ID)
	if err != nil {
		return time.Time{}, err
	}
	if latest != nil {
		return addMonths(startOfMonth(latest.PeriodStart), 1), nil
	}

	start := addMonths(startOfMonth(ref), -(months - 1))
	if contract.IssueDate != nil {
		issueMonth := startOfMonth(*contract.IssueDate)
		if start.Before(issueMonth) {
			start = issueMonth
		}
	}
	return start, nil
}

func (s *Service) buildRange(contract *billing.Contract, start time.Time, months int, transactionID *int64, notes *string, createdByID *int64) []*billing.ContractPaymentPeriod {
	periods := make([]*billing.ContractPaymentPeriod, 0, months)
	for i := 0; i < months; i++ {
		monthStart := addMonths(start, i)
		periods = append(periods, &billing.ContractPaymentPeriod{
			ContractID:    contract.ID,
			PeriodStart:   monthStart,
			PeriodEnd:     endOfMonth(monthStart),
			Status:        billing.PeriodStatusPaid,
			Amount:        contract.ShopMonthlyFee,
			TransactionID: transactionID,
			Notes:         notes,
			CreatedByID:   createdByID,
		})
	}
	return periods
}

func manualSizing(input ManualPaymentInput, fee decimal.Decimal) (int, decimal.Decimal, error) {
	if input.Amount != nil {
		if !input.Amount.Mod(fee).IsZero() {
			return 0, decimal.Zero, errors.ErrAmountNotMultiple
		}
		months := int(input.Amount.Div(fee).IntPart())
		if months < 1 || months > MaxMonthsPerPayment {
			return 0, decimal.Zero, errors.NewValidationError("Amount must cover between 1 and 24 months", errors.ErrCodeInvalidAmount)
		}
		if input.Months != nil && *input.Months != months {
			return 0, decimal.Zero, errors.NewValidationError("Amount and months disagree", errors.ErrCodeValidationFailed)
		}
		return months, *input.Amount, nil
	}
	months := *input.Months
	return months, fee.Mul(decimal.NewFromInt(int64(months))), nil
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
}
