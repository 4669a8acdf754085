package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/muzaffarov/bozor-billing/internal/billable"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
	"github.com/muzaffarov/bozor-billing/internal/core/events"
)

// Service owns the canonical transaction state machine shared by both
// gateway adapters and manual cash entry. All decisions re-read
// persisted state: webhook delivery is at-least-once and may arrive
// out of order.
type Service struct {
	repo     Repository
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo Repository, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateOrGetPending is the idempotent entry point for both gateways.
// An existing transaction is returned unchanged, except a stale PENDING
// one, which is first expired; the caller then sees the cancellation,
// never a fresh row reusing the reference. A new transaction is only
// created when the amount matches the billable's expected amount.
func (s *Service) CreateOrGetPending(externalID string, amount decimal.Decimal, method string, b *billable.Billable) (*transaction.Transaction, error) {
	existing, err := s.repo.GetByExternalID(externalID)
	if err == nil {
		if existing.IsPending() && s.isExpired(existing) {
			return s.expire(existing)
		}
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	if b == nil {
		return nil, ErrNotFound
	}
	if !b.Payable {
		return nil, ErrAlreadyPaid
	}
	if !amount.Equal(b.ExpectedAmount) {
		s.logger.Warn("amount mismatch on create",
			"external_id", externalID,
			"amount", amount.String(),
			"expected", b.ExpectedAmount.String())
		return nil, ErrAmountMismatch
	}

	contractID, attendanceID := b.Ref()
	tx := &transaction.Transaction{
		ExternalID:    externalID,
		Amount:        amount,
		Status:        transaction.StatusPending,
		PaymentMethod: method,
		ContractID:    contractID,
		AttendanceID:  attendanceID,
		State:         transaction.StatePending,
	}

	if err := s.repo.Create(tx); err != nil {
		if err == ErrDuplicateRef {
			// lost the race; the winner's row is the transaction
			return s.repo.GetByExternalID(externalID)
		}
		return nil, err
	}

	s.logger.Info("transaction created",
		"external_id", externalID,
		"method", method,
		"amount", amount.String())
	return tx, nil
}

// Perform transitions PENDING to PAID. Re-delivery of the confirm call
// is answered with the already-paid row and the original performed_at.
func (s *Service) Perform(externalID string) (*transaction.Transaction, error) {
	tx, err := s.repo.GetByExternalID(externalID)
	if err != nil {
		return nil, err
	}

	if tx.IsPaid() {
		return tx, nil
	}
	if tx.IsCanceled() {
		return tx, ErrNotPending
	}
	if s.isExpired(tx) {
		return s.expire(tx)
	}

	performedAt := time.Now().UTC()
	if err := s.repo.MarkPaid(tx.ID, performedAt); err != nil {
		return nil, err
	}
	tx.Status = transaction.StatusPaid
	tx.State = transaction.StatePaid
	tx.PerformedAt = &performedAt

	if tx.AttendanceID != nil {
		if err := s.repo.MarkAttendancePaid(*tx.AttendanceID, tx.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("transaction performed",
		"external_id", externalID,
		"transaction_id", tx.ID)

	if s.eventBus != nil {
		event := events.NewTransactionPaidEvent(tx)
		if err := s.eventBus.PublishSync(context.Background(), event); err != nil {
			// allocation replays are idempotent; surface for the operator
			s.logger.Error("paid event handling failed",
				"external_id", externalID,
				"event_id", event.EventID(),
				"error", err)
		}
	}

	return tx, nil
}

// Cancel moves PENDING to pending-canceled or PAID to paid-canceled
// (reversal). Cancelling a canceled transaction returns the existing
// record and timestamps.
func (s *Service) Cancel(externalID string, reason int) (*transaction.Transaction, error) {
	tx, err := s.repo.GetByExternalID(externalID)
	if err != nil {
		return nil, err
	}

	if tx.IsCanceled() {
		return tx, nil
	}

	state := transaction.StatePendingCanceled
	if tx.IsPaid() {
		state = transaction.StatePaidCanceled
	}

	canceledAt := time.Now().UTC()
	if err := s.repo.MarkCanceled(tx.ID, state, reason, canceledAt); err != nil {
		return nil, err
	}
	tx.Status = transaction.StatusCanceled
	tx.State = state
	tx.CancelReason = &reason
	tx.CanceledAt = &canceledAt

	s.logger.Info("transaction canceled",
		"external_id", externalID,
		"state", state,
		"reason", reason)

	if s.eventBus != nil {
		s.eventBus.Publish(context.Background(), events.NewTransactionCanceledEvent(tx, &reason))
	}

	return tx, nil
}

func (s *Service) Get(externalID string) (*transaction.Transaction, error) {
	return s.repo.GetByExternalID(externalID)
}

// Statement returns transactions of one payment method between two
// instants, oldest first.
func (s *Service) Statement(method string, from, to time.Time) ([]*transaction.Transaction, error) {
	return s.repo.ListByMethodBetween(method, from, to)
}

// ActiveForAttendance returns the newest non-canceled transaction
// targeting an attendance, or nil. A stale pending one is expired
// first so it stops blocking new payment attempts.
func (s *Service) ActiveForAttendance(attendanceID int64) (*transaction.Transaction, error) {
	tx, err := s.repo.ActiveByAttendance(attendanceID)
	if err != nil || tx == nil {
		return nil, err
	}
	if tx.IsPending() && s.isExpired(tx) {
		if _, err := s.expire(tx); err != nil && err != ErrExpired {
			return nil, err
		}
		return nil, nil
	}
	return tx, nil
}

func (s *Service) isExpired(tx *transaction.Transaction) bool {
	return time.Since(tx.CreatedAt) > ExpiryWindow
}

// expire converts a stale pending transaction to CANCELED and hands the
// cancellation back with ErrExpired so adapters can surface the state
// and reason.
func (s *Service) expire(tx *transaction.Transaction) (*transaction.Transaction, error) {
	reason := CancelReasonExpired
	canceledAt := time.Now().UTC()
	if err := s.repo.MarkCanceled(tx.ID, transaction.StatePendingCanceled, reason, canceledAt); err != nil {
		return nil, err
	}
	tx.Status = transaction.StatusCanceled
	tx.State = transaction.StatePendingCanceled
	tx.CancelReason = &reason
	tx.CanceledAt = &canceledAt

	s.logger.Info("stale pending transaction expired",
		"external_id", tx.ExternalID,
		"created_at", tx.CreatedAt)

	if s.eventBus != nil {
		s.eventBus.Publish(context.Background(), events.NewTransactionCanceledEvent(tx, &reason))
	}

	return tx, ErrExpired
}
