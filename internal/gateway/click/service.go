package click

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/billable"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
	"github.com/muzaffarov/bozor-billing/internal/ledger"
)

const signTimeLayout = "2006-01-02 15:04:05"

// Repository persists Click prepare shadow rows. Getters return
// (nil, nil) for a missing row.
type Repository interface {
	Create(record *transaction.ClickTransaction) error
	GetByClickTransID(clickTransID string) (*transaction.ClickTransaction, error)
	GetByID(id int64) (*transaction.ClickTransaction, error)
	MarkPaid(id int64, clickPaydocID string) error
	MarkCanceled(id int64, errorCode int, errorNote string) error
}

// Ledger is the slice of the transaction state machine Click needs.
type Ledger interface {
	CreateOrGetPending(externalID string, amount decimal.Decimal, method string, b *billable.Billable) (*transaction.Transaction, error)
	Perform(externalID string) (*transaction.Transaction, error)
	Cancel(externalID string, reason int) (*transaction.Transaction, error)
}

type Resolver interface {
	Resolve(externalRef string) (*billable.Billable, error)
}

// Service implements the Click prepare/complete merchant API. Every
// outcome is an envelope code; the only HTTP status Click ever sees
// is 200.
type Service struct {
	repo     Repository
	ledger   Ledger
	resolver Resolver
	verifier *Verifier
	logger   *slog.Logger
}

func NewService(repo Repository, ledgerSvc Ledger, resolver Resolver, verifier *Verifier, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledgerSvc,
		resolver: resolver,
		verifier: verifier,
		logger:   logger,
	}
}

// externalID namespaces Click payment attempts in the ledger.
// click_trans_id is unique per attempt on Click's side.
func externalID(clickTransID string) string {
	return "click-" + clickTransID
}

// Prepare handles action=0. On success the shadow row's id goes back as
// merchant_prepare_id and is echoed by Click in the complete call.
func (s *Service) Prepare(req *ClickRequest) *ClickResponse {
	resp := &ClickResponse{
		ClickTransID:    req.ClickTransID,
		MerchantTransID: req.MerchantTransID,
	}

	if !s.verifier.Verify(req) {
		resp.Error = CodeSignCheckFailed
		resp.ErrorNote = "SIGN CHECK FAILED"
		return resp
	}

	b, err := s.resolver.Resolve(req.MerchantTransID)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
			resp.Error = CodeTransactionNotFound
			resp.ErrorNote = "Not found"
			return resp
		}
		return s.systemError(resp, "prepare resolve failed", req, err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		resp.Error = CodeInvalidAmount
		resp.ErrorNote = "Incorrect amount"
		return resp
	}

	tx, err := s.ledger.CreateOrGetPending(externalID(req.ClickTransID), amount, transaction.MethodClick, b)
	if err != nil {
		switch err {
		case ledger.ErrAmountMismatch:
			resp.Error = CodeInvalidAmount
			resp.ErrorNote = "Incorrect amount"
		case ledger.ErrAlreadyPaid:
			resp.Error = CodeUserNotFound
			resp.ErrorNote = "Already paid"
		case ledger.ErrExpired:
			resp.Error = CodeTransactionCanceled
			resp.ErrorNote = "Transaction canceled"
		default:
			return s.systemError(resp, "prepare ledger failed", req, err)
		}
		return resp
	}

	existing, err := s.repo.GetByClickTransID(req.ClickTransID)
	if err != nil {
		return s.systemError(resp, "prepare dedup lookup failed", req, err)
	}
	if existing != nil {
		resp.Error = CodeAlreadyPaid
		resp.ErrorNote = "Duplicate transaction"
		return resp
	}

	record := &transaction.ClickTransaction{
		ClickTransID:    req.ClickTransID,
		MerchantTransID: req.MerchantTransID,
		Amount:          amount,
		Action:          req.Action,
		SignTime:        parseSignTime(req.SignTime),
		Status:          transaction.ClickStatusOpen,
	}
	if req.ClickPaydocID != "" {
		record.ClickPaydocID = &req.ClickPaydocID
	}
	if err := s.repo.Create(record); err != nil {
		return s.systemError(resp, "prepare record create failed", req, err)
	}

	prepareID := strconv.FormatInt(record.ID, 10)
	s.logger.Info("click prepare accepted",
		"click_trans_id", req.ClickTransID,
		"merchant_trans_id", req.MerchantTransID,
		"transaction_id", tx.ID,
		"merchant_prepare_id", prepareID)

	resp.MerchantPrepareID = prepareID
	resp.Error = CodeSuccess
	resp.ErrorNote = "Success"
	resp.SignString = s.verifier.Sign(req, prepareID)
	return resp
}

// Complete handles action=1. A negative inbound error means Click
// aborted the payment on its side; the abort is acknowledged with
// success after the local state is canceled.
func (s *Service) Complete(req *ClickRequest) *ClickResponse {
	resp := &ClickResponse{
		ClickTransID:      req.ClickTransID,
		MerchantTransID:   req.MerchantTransID,
		MerchantPrepareID: req.MerchantPrepareID,
	}

	if !s.verifier.Verify(req) {
		resp.Error = CodeSignCheckFailed
		resp.ErrorNote = "SIGN CHECK FAILED"
		return resp
	}

	prepareID, err := strconv.ParseInt(req.MerchantPrepareID, 10, 64)
	if err != nil {
		resp.Error = CodeTransactionNotFound
		resp.ErrorNote = "Transaction not found"
		return resp
	}
	record, err := s.repo.GetByID(prepareID)
	if err != nil {
		return s.systemError(resp, "complete prepare lookup failed", req, err)
	}
	if record == nil {
		resp.Error = CodeTransactionNotFound
		resp.ErrorNote = "Transaction not found"
		return resp
	}

	if req.ErrorCode < 0 {
		if err := s.repo.MarkCanceled(record.ID, req.ErrorCode, "Cancelled by Click"); err != nil {
			return s.systemError(resp, "complete cancel record failed", req, err)
		}
		if _, err := s.ledger.Cancel(externalID(record.ClickTransID), req.ErrorCode); err != nil && err != ledger.ErrNotFound {
			return s.systemError(resp, "complete cancel ledger failed", req, err)
		}
		s.logger.Info("click payment cancelled by gateway",
			"click_trans_id", record.ClickTransID,
			"error", req.ErrorCode)
		resp.Error = CodeSuccess
		resp.ErrorNote = "Success"
		return resp
	}

	if record.Status == transaction.ClickStatusPaid {
		resp.Error = CodeAlreadyPaid
		resp.ErrorNote = "Already paid"
		return resp
	}
	if record.Status == transaction.ClickStatusCanceled {
		resp.Error = CodeTransactionCanceled
		resp.ErrorNote = "Transaction canceled"
		return resp
	}

	tx, err := s.ledger.Perform(externalID(record.ClickTransID))
	if err != nil {
		switch err {
		case ledger.ErrExpired, ledger.ErrNotPending:
			if markErr := s.repo.MarkCanceled(record.ID, CodeTransactionCanceled, "Transaction canceled"); markErr != nil {
				return s.systemError(resp, "complete expire record failed", req, markErr)
			}
			resp.Error = CodeTransactionCanceled
			resp.ErrorNote = "Transaction canceled"
		case ledger.ErrNotFound:
			resp.Error = CodeTransactionNotFound
			resp.ErrorNote = "Transaction not found"
		default:
			return s.systemError(resp, "complete perform failed", req, err)
		}
		return resp
	}

	if err := s.repo.MarkPaid(record.ID, req.ClickPaydocID); err != nil {
		return s.systemError(resp, "complete record update failed", req, err)
	}

	s.logger.Info("click payment completed",
		"click_trans_id", record.ClickTransID,
		"merchant_trans_id", record.MerchantTransID,
		"transaction_id", tx.ID)

	resp.MerchantConfirmID = strconv.FormatInt(record.ID, 10)
	resp.Error = CodeSuccess
	resp.ErrorNote = "Success"
	resp.SignString = s.verifier.Sign(req, req.MerchantPrepareID)
	return resp
}

func (s *Service) systemError(resp *ClickResponse, msg string, req *ClickRequest, err error) *ClickResponse {
	s.logger.Error(msg,
		"click_trans_id", req.ClickTransID,
		"merchant_trans_id", req.MerchantTransID,
		"error", err)
	resp.Error = CodeSystemError
	resp.ErrorNote = "System error"
	return resp
}

func parseSignTime(s string) time.Time {
	t, err := time.Parse(signTimeLayout, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
