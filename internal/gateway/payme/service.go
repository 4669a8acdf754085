package payme

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/billable"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
	"github.com/muzaffarov/bozor-billing/internal/ledger"
)

// Ledger is the slice of the transaction state machine Payme needs.
type Ledger interface {
	CreateOrGetPending(externalID string, amount decimal.Decimal, method string, b *billable.Billable) (*transaction.Transaction, error)
	Perform(externalID string) (*transaction.Transaction, error)
	Cancel(externalID string, reason int) (*transaction.Transaction, error)
	Get(externalID string) (*transaction.Transaction, error)
	Statement(method string, from, to time.Time) ([]*transaction.Transaction, error)
	ActiveForAttendance(attendanceID int64) (*transaction.Transaction, error)
}

type Resolver interface {
	ResolveContract(storeNumber string) (*billable.Billable, error)
	ResolveAttendance(attendanceID int64) (*billable.Billable, error)
}

// Service dispatches the Payme merchant JSON-RPC methods. Every refusal
// is an RPCError in the body; the transport always answers 200.
type Service struct {
	ledger   Ledger
	resolver Resolver
	logger   *slog.Logger
}

func NewService(ledgerSvc Ledger, resolver Resolver, logger *slog.Logger) *Service {
	return &Service{
		ledger:   ledgerSvc,
		resolver: resolver,
		logger:   logger,
	}
}

// externalID namespaces Payme transaction ids in the ledger.
func externalID(paymeID string) string {
	return "payme-" + paymeID
}

func (s *Service) Handle(req *Request) *Response {
	resp := &Response{ID: req.ID}
	switch req.Method {
	case MethodCheckPerformTransaction:
		resp.Result, resp.Error = s.checkPerformTransaction(req.Params)
	case MethodCreateTransaction:
		resp.Result, resp.Error = s.createTransaction(req.Params)
	case MethodPerformTransaction:
		resp.Result, resp.Error = s.performTransaction(req.Params)
	case MethodCancelTransaction:
		resp.Result, resp.Error = s.cancelTransaction(req.Params)
	case MethodCheckTransaction:
		resp.Result, resp.Error = s.checkTransaction(req.Params)
	case MethodGetStatement:
		resp.Result, resp.Error = s.getStatement(req.Params)
	default:
		s.logger.Warn("unknown payme method", "method", req.Method)
		resp.Error = ErrMethodNotFound.ref()
	}
	return resp
}

func (s *Service) checkPerformTransaction(params Params) (interface{}, *RPCError) {
	b, rpcErr := s.resolveAccount(params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if !b.Payable {
		return nil, ErrAlreadyDone.ref()
	}
	if params.Amount != 0 && params.Amount != tiyin(b.ExpectedAmount) {
		s.logger.Warn("payme amount mismatch",
			"amount", params.Amount,
			"expected", tiyin(b.ExpectedAmount))
		return nil, ErrInvalidAmount.ref()
	}
	return CheckPerformResult{Allow: true}, nil
}

func (s *Service) createTransaction(params Params) (interface{}, *RPCError) {
	b, rpcErr := s.resolveAccount(params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if !b.Payable {
		return nil, ErrAlreadyDone.ref()
	}
	if params.Amount != tiyin(b.ExpectedAmount) {
		return nil, ErrInvalidAmount.ref()
	}

	// one active transaction per attendance at a time
	if b.Kind == billable.KindAttendance {
		active, err := s.ledger.ActiveForAttendance(b.Attendance.ID)
		if err != nil {
			return nil, s.internal("attendance dedup lookup failed", err)
		}
		if active != nil && active.ExternalID != externalID(params.ID) {
			return nil, ErrActiveTransactionExists.ref()
		}
	}

	tx, err := s.ledger.CreateOrGetPending(externalID(params.ID), b.ExpectedAmount, transaction.MethodPayme, b)
	if err != nil {
		switch err {
		case ledger.ErrExpired:
			return nil, ErrCantDoOperation.WithState(transaction.StatePendingCanceled, ledger.CancelReasonExpired)
		case ledger.ErrAlreadyPaid, ledger.ErrNotFound:
			return nil, ErrAlreadyDone.ref()
		case ledger.ErrAmountMismatch:
			return nil, ErrInvalidAmount.ref()
		default:
			return nil, s.internal("create transaction failed", err)
		}
	}
	if !tx.IsPending() {
		return nil, ErrCantDoOperation.ref()
	}

	return CreateResult{
		Transaction: params.ID,
		State:       tx.State,
		CreateTime:  tx.CreatedAt.UnixMilli(),
	}, nil
}

func (s *Service) performTransaction(params Params) (interface{}, *RPCError) {
	tx, err := s.ledger.Perform(externalID(params.ID))
	if err != nil {
		switch err {
		case ledger.ErrNotFound:
			return nil, ErrTransactionNotFound.ref()
		case ledger.ErrExpired:
			return nil, ErrCantDoOperation.WithState(transaction.StatePendingCanceled, ledger.CancelReasonExpired)
		case ledger.ErrNotPending:
			return nil, ErrCantDoOperation.ref()
		default:
			return nil, s.internal("perform transaction failed", err)
		}
	}

	return PerformResult{
		Transaction: params.ID,
		PerformTime: millis(tx.PerformedAt),
		State:       tx.State,
	}, nil
}

func (s *Service) cancelTransaction(params Params) (interface{}, *RPCError) {
	reason := 0
	if params.Reason != nil {
		reason = *params.Reason
	}
	tx, err := s.ledger.Cancel(externalID(params.ID), reason)
	if err != nil {
		if err == ledger.ErrNotFound {
			return nil, ErrTransactionNotFound.ref()
		}
		return nil, s.internal("cancel transaction failed", err)
	}

	return CancelResult{
		Transaction: params.ID,
		CancelTime:  millis(tx.CanceledAt),
		State:       tx.State,
	}, nil
}

func (s *Service) checkTransaction(params Params) (interface{}, *RPCError) {
	tx, err := s.ledger.Get(externalID(params.ID))
	if err != nil {
		if err == ledger.ErrNotFound {
			return nil, ErrTransactionNotFound.ref()
		}
		return nil, s.internal("check transaction failed", err)
	}

	return CheckResult{
		Transaction: params.ID,
		CreateTime:  tx.CreatedAt.UnixMilli(),
		PerformTime: millis(tx.PerformedAt),
		CancelTime:  millis(tx.CanceledAt),
		State:       tx.State,
		Reason:      tx.CancelReason,
	}, nil
}

func (s *Service) getStatement(params Params) (interface{}, *RPCError) {
	from := time.UnixMilli(params.From).UTC()
	to := time.UnixMilli(params.To).UTC()
	txs, err := s.ledger.Statement(transaction.MethodPayme, from, to)
	if err != nil {
		return nil, s.internal("get statement failed", err)
	}

	entries := make([]StatementEntry, 0, len(txs))
	for _, tx := range txs {
		paymeID := paymeIDOf(tx.ExternalID)
		entries = append(entries, StatementEntry{
			ID:          paymeID,
			Time:        tx.CreatedAt.UnixMilli(),
			Amount:      tiyin(tx.Amount),
			Account:     StatementAccount{ContractID: tx.ContractID, AttendanceID: tx.AttendanceID},
			CreateTime:  tx.CreatedAt.UnixMilli(),
			PerformTime: millis(tx.PerformedAt),
			CancelTime:  millis(tx.CanceledAt),
			Transaction: paymeID,
			State:       tx.State,
			Reason:      tx.CancelReason,
		})
	}
	return StatementResult{Transactions: entries}, nil
}

func (s *Service) resolveAccount(account Account) (*billable.Billable, *RPCError) {
	contractID := account.ContractID
	if contractID == "null" {
		contractID = ""
	}

	if contractID != "" {
		b, err := s.resolver.ResolveContract(contractID)
		if err != nil {
			if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
				return nil, ErrAlreadyDone.ref()
			}
			return nil, s.internal("contract resolve failed", err)
		}
		return b, nil
	}

	if attendanceID, err := account.AttendanceID.Int64(); err == nil && attendanceID > 0 {
		b, err := s.resolver.ResolveAttendance(attendanceID)
		if err != nil {
			if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
				return nil, ErrAlreadyDone.ref()
			}
			return nil, s.internal("attendance resolve failed", err)
		}
		return b, nil
	}

	return nil, ErrAccountMissing.ref()
}

func (s *Service) internal(msg string, err error) *RPCError {
	s.logger.Error(msg, "error", err)
	return ErrInternal.ref()
}

// tiyin converts a sum amount to Payme's wire unit.
func tiyin(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

func millis(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

func paymeIDOf(externalID string) string {
	const prefix = "payme-"
	if len(externalID) > len(prefix) && externalID[:len(prefix)] == prefix {
		return externalID[len(prefix):]
	}
	return externalID
}
