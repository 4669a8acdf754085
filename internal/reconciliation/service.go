package reconciliation

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

var ErrInvalidMonth = errors.NewValidationError("Month must be between 1 and 12", errors.ErrCodeInvalidMonth)

// overpaidThreshold flags contracts that paid more than one month's fee
// inside a single month's window, with a small tolerance for rounding.
var overpaidThreshold = decimal.RequireFromString("1.01")

// Service is the read side of the payment ledger. It only aggregates;
// every write in the system happens elsewhere.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Ledger returns individual payment rows in the filter's range, newest
// first. Manual cash attendances appear as CASH rows without a
// transaction reference.
func (s *Service) Ledger(filter Filter) (*LedgerReport, error) {
	filter = normalize(filter)
	rows := make([]LedgerEntry, 0)

	if filter.Scope == ScopeAll || filter.Scope == ScopeStore {
		storeFilter := filter
		storeFilter.Scope = ScopeStore
		txs, err := s.repo.TransactionsBetween(storeFilter)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			rows = append(rows, entryFromTransaction(ScopeStore, tx))
		}
	}

	if filter.Scope == ScopeAll || filter.Scope == ScopeStall {
		if filter.ContractID == nil {
			stallFilter := filter
			stallFilter.Scope = ScopeStall
			txs, err := s.repo.TransactionsBetween(stallFilter)
			if err != nil {
				return nil, err
			}
			for _, tx := range txs {
				rows = append(rows, entryFromTransaction(ScopeStall, tx))
			}

			if includesManualCash(filter) {
				manual, err := s.repo.ManualPaidAttendances(filter.From, filter.To)
				if err != nil {
					return nil, err
				}
				for _, a := range manual {
					attendanceID := a.ID
					rows = append(rows, LedgerEntry{
						Type:         ScopeStall,
						AttendanceID: &attendanceID,
						Amount:       a.Amount,
						Status:       transaction.StatusPaid,
						Method:       transaction.MethodCash,
						Source:       "attendance",
						PaidAt:       a.Date,
					})
				}
			}
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PaidAt.After(rows[j].PaidAt)
	})

	return &LedgerReport{
		From:  filter.From,
		To:    filter.To,
		Count: len(rows),
		Rows:  rows,
	}, nil
}

// Daily reports one day's paid income split stall/store.
func (s *Service) Daily(day time.Time, scope string) (*DailyReport, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Second)
	scope = normalizeScope(scope)

	report := &DailyReport{Date: dayStart.Format("2006-01-02")}
	if err := s.fillBuckets(&report.Stall, &report.Store, dayStart, dayEnd, scope, ""); err != nil {
		return nil, err
	}
	report.Total = combine(report.Stall, report.Store)
	return report, nil
}

// Monthly reports one calendar month with a per-method breakdown.
// Manual stall cash is counted under CASH.
func (s *Service) Monthly(year, month int, scope string) (*MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)
	scope = normalizeScope(scope)

	report := &MonthlyReport{
		Month:   fmt.Sprintf("%04d-%02d", year, month),
		Methods: make(map[string]Bucket, 3),
	}
	if err := s.fillBuckets(&report.Stall, &report.Store, monthStart, monthEnd, scope, ""); err != nil {
		return nil, err
	}
	report.Total = combine(report.Stall, report.Store)

	for _, method := range []string{transaction.MethodCash, transaction.MethodPayme, transaction.MethodClick} {
		var stall, store Bucket
		if err := s.fillBuckets(&stall, &store, monthStart, monthEnd, scope, method); err != nil {
			return nil, err
		}
		report.Methods[method] = combine(stall, store)
	}
	return report, nil
}

// ContractSummary compares each contract's monthly fee against the
// payments that arrived in the range.
func (s *Service) ContractSummary(filter Filter) (*ContractSummaryReport, error) {
	filter = normalize(filter)
	filter.Scope = ScopeStore

	accounts, err := s.repo.ContractAccounts()
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.TransactionsBetween(filter)
	if err != nil {
		return nil, err
	}

	byContract := make(map[int64][]*transaction.Transaction)
	for _, tx := range txs {
		if tx.ContractID == nil {
			continue
		}
		byContract[*tx.ContractID] = append(byContract[*tx.ContractID], tx)
	}

	summary := make([]ContractSummaryRow, 0, len(accounts))
	for _, account := range accounts {
		row := ContractSummaryRow{
			ContractID:  account.ContractID,
			StoreNumber: account.StoreNumber,
			Expected:    account.MonthlyFee,
			Methods:     make(map[string]decimal.Decimal),
		}

		var lastPayment *transaction.Transaction
		for _, tx := range byContract[account.ContractID] {
			row.PaymentsCount++
			row.Methods[tx.PaymentMethod] = row.Methods[tx.PaymentMethod].Add(tx.Amount)
			switch tx.Status {
			case transaction.StatusPaid:
				row.PaidCount++
				row.Paid = row.Paid.Add(tx.Amount)
			case transaction.StatusPending:
				row.PendingCount++
			default:
				row.CanceledCount++
			}
			if lastPayment == nil || tx.CreatedAt.After(lastPayment.CreatedAt) {
				lastPayment = tx
			}
		}

		row.Unpaid = decimal.Max(decimal.Zero, account.MonthlyFee.Sub(row.Paid))
		row.Overpaid = account.MonthlyFee.IsPositive() &&
			row.Paid.GreaterThan(account.MonthlyFee.Mul(overpaidThreshold))
		if lastPayment != nil {
			createdAt := lastPayment.CreatedAt
			row.LastPaymentAt = &createdAt
			row.LastPaymentMethod = lastPayment.PaymentMethod
		}
		summary = append(summary, row)
	}

	return &ContractSummaryReport{
		From:      filter.From,
		To:        filter.To,
		Contracts: summary,
	}, nil
}

// fillBuckets aggregates PAID money only; the ledger listing is where
// pending and canceled rows show up.
func (s *Service) fillBuckets(stall, store *Bucket, from, to time.Time, scope, method string) error {
	if scope == ScopeAll || scope == ScopeStall {
		txs, err := s.repo.TransactionsBetween(Filter{
			From: from, To: to,
			Scope:  ScopeStall,
			Method: method,
			Status: transaction.StatusPaid,
		})
		if err != nil {
			return err
		}
		for _, tx := range txs {
			stall.add(tx.Amount)
		}
		if method == "" || method == transaction.MethodCash {
			manual, err := s.repo.ManualPaidAttendances(from, to)
			if err != nil {
				return err
			}
			for _, a := range manual {
				stall.add(a.Amount)
			}
		}
	}

	if scope == ScopeAll || scope == ScopeStore {
		txs, err := s.repo.TransactionsBetween(Filter{
			From: from, To: to,
			Scope:  ScopeStore,
			Method: method,
			Status: transaction.StatusPaid,
		})
		if err != nil {
			return err
		}
		for _, tx := range txs {
			store.add(tx.Amount)
		}
	}
	return nil
}

func entryFromTransaction(scope string, tx *transaction.Transaction) LedgerEntry {
	id := tx.ID
	paidAt := tx.CreatedAt
	if tx.PerformedAt != nil {
		paidAt = *tx.PerformedAt
	}
	return LedgerEntry{
		Type:          scope,
		TransactionID: &id,
		ExternalID:    tx.ExternalID,
		ContractID:    tx.ContractID,
		AttendanceID:  tx.AttendanceID,
		Amount:        tx.Amount,
		Status:        tx.Status,
		Method:        tx.PaymentMethod,
		Source:        "transaction",
		PaidAt:        paidAt,
	}
}

func includesManualCash(filter Filter) bool {
	if filter.Method != "" && filter.Method != transaction.MethodCash {
		return false
	}
	return filter.Status == "" || filter.Status == transaction.StatusPaid
}

func combine(a, b Bucket) Bucket {
	return Bucket{
		Count:   a.Count + b.Count,
		Revenue: a.Revenue.Add(b.Revenue),
	}
}

func normalize(filter Filter) Filter {
	now := time.Now().UTC()
	if filter.From.IsZero() {
		filter.From = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if filter.To.IsZero() {
		filter.To = time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	}
	filter.Scope = normalizeScope(filter.Scope)
	return filter
}

func normalizeScope(scope string) string {
	if scope == ScopeStall || scope == ScopeStore {
		return scope
	}
	return ScopeAll
}
