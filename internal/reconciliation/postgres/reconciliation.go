package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
	"github.com/muzaffarov/bozor-billing/internal/reconciliation"
)

type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) TransactionsBetween(filter reconciliation.Filter) ([]*transaction.Transaction, error) {
	query := r.db.Where("created_at >= ? AND created_at <= ?", filter.From, filter.To)

	switch filter.Scope {
	case reconciliation.ScopeStall:
		query = query.Where("attendance_id IS NOT NULL")
	case reconciliation.ScopeStore:
		query = query.Where("contract_id IS NOT NULL")
	}
	if filter.Method != "" {
		query = query.Where("payment_method = ?", filter.Method)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ContractID != nil {
		query = query.Where("contract_id = ?", *filter.ContractID)
	}

	var txs []*transaction.Transaction
	err := query.Order("created_at DESC").Find(&txs).Error
	return txs, err
}

func (r *ReconciliationRepository) ManualPaidAttendances(from, to time.Time) ([]*billing.Attendance, error) {
	var attendances []*billing.Attendance
	err := r.db.Where("date >= ? AND date <= ? AND status = ? AND transaction_id IS NULL",
		from, to, billing.AttendanceStatusPaid).
		Order("date DESC").
		Find(&attendances).Error
	return attendances, err
}

func (r *ReconciliationRepository) ContractAccounts() ([]reconciliation.ContractAccount, error) {
	var accounts []reconciliation.ContractAccount
	err := r.db.Table("contracts").
		Select("contracts.id AS contract_id, stores.store_number, contracts.shop_monthly_fee AS monthly_fee, contracts.is_active").
		Joins("JOIN stores ON stores.id = contracts.store_id").
		Order("stores.store_number ASC").
		Scan(&accounts).Error
	return accounts, err
}
