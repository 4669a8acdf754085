package postgres

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
	"github.com/muzaffarov/bozor-billing/internal/ledger"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(tx *transaction.Transaction) error {
	err := r.db.Create(tx).Error
	if err != nil && isDuplicateErr(err) {
		return ledger.ErrDuplicateRef
	}
	return err
}

func (r *TransactionRepository) GetByExternalID(externalID string) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := r.db.Where("external_id = ?", externalID).First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ledger.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) MarkPaid(id int64, performedAt time.Time) error {
	return r.db.Model(&transaction.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       transaction.StatusPaid,
			"state":        transaction.StatePaid,
			"performed_at": performedAt,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *TransactionRepository) MarkCanceled(id int64, state int, reason int, canceledAt time.Time) error {
	return r.db.Model(&transaction.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        transaction.StatusCanceled,
			"state":         state,
			"cancel_reason": reason,
			"canceled_at":   canceledAt,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *TransactionRepository) MarkAttendancePaid(attendanceID, transactionID int64) error {
	return r.db.Model(&billing.Attendance{}).
		Where("id = ?", attendanceID).
		Updates(map[string]interface{}{
			"status":         billing.AttendanceStatusPaid,
			"transaction_id": transactionID,
		}).Error
}

func (r *TransactionRepository) ListByMethodBetween(method string, from, to time.Time) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction
	err := r.db.Where("payment_method = ? AND created_at >= ? AND created_at <= ?", method, from, to).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}

func (r *TransactionRepository) ActiveByAttendance(attendanceID int64) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := r.db.Where("attendance_id = ? AND status <> ?", attendanceID, transaction.StatusCanceled).
		Order("created_at DESC").
		First(&tx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// PaidByContract returns PAID transactions oldest first; the period
// allocator replays them in this order during backfill.
func (r *TransactionRepository) PaidByContract(contractID int64) ([]*transaction.Transaction, error) {
	var txs []*transaction.Transaction
	err := r.db.Where("contract_id = ? AND status = ?", contractID, transaction.StatusPaid).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}

// CreatePaid inserts an already-paid transaction (manual cash entry).
func (r *TransactionRepository) CreatePaid(tx *transaction.Transaction) error {
	return r.Create(tx)
}

func isDuplicateErr(err error) bool {
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
