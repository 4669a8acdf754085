package postgres

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
)

type PeriodRepository struct {
	db *gorm.DB
}

func NewPeriodRepository(db *gorm.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

func (r *PeriodRepository) HasAny(contractID int64) (bool, error) {
	var count int64
	err := r.db.Model(&billing.ContractPaymentPeriod{}).
		Where("contract_id = ?", contractID).
		Count(&count).Error
	return count > 0, err
}

func (r *PeriodRepository) List(contractID int64) ([]*billing.ContractPaymentPeriod, error) {
	var periods []*billing.ContractPaymentPeriod
	err := r.db.Where("contract_id = ?", contractID).
		Order("period_start ASC").
		Find(&periods).Error
	return periods, err
}

func (r *PeriodRepository) LatestPaid(contractID int64) (*billing.ContractPaymentPeriod, error) {
	var period billing.ContractPaymentPeriod
	err := r.db.Where("contract_id = ? AND status = ?", contractID, billing.PeriodStatusPaid).
		Order("period_start DESC").
		First(&period).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

func (r *PeriodRepository) GetByStart(contractID int64, periodStart time.Time) (*billing.ContractPaymentPeriod, error) {
	var period billing.ContractPaymentPeriod
	err := r.db.Where("contract_id = ? AND period_start = ?", contractID, periodStart).
		First(&period).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

func (r *PeriodRepository) GetByTransactionID(transactionID int64) ([]*billing.ContractPaymentPeriod, error) {
	var periods []*billing.ContractPaymentPeriod
	err := r.db.Where("transaction_id = ?", transactionID).
		Order("period_start ASC").
		Find(&periods).Error
	return periods, err
}

// UpsertRange writes all months of one allocation atomically. Conflicts
// on (contract_id, period_start) update the existing row instead of
// duplicating the month.
func (r *PeriodRepository) UpsertRange(periods []*billing.ContractPaymentPeriod) error {
	if len(periods) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "contract_id"}, {Name: "period_start"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"period_end", "status", "amount", "transaction_id", "notes", "created_by_id", "updated_at",
			}),
		}).Create(&periods).Error
	})
}
