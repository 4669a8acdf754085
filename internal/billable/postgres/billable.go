package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/muzaffarov/bozor-billing/internal/billable"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/billing"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

type BillableRepository struct {
	db *gorm.DB
}

func NewBillableRepository(db *gorm.DB) *BillableRepository {
	return &BillableRepository{db: db}
}

var _ billable.Repository = (*BillableRepository)(nil)

// FindStoreContract prefers the active contract; when none is active
// the newest contract is returned so the resolver can report the store
// as not payable instead of not found.
func (r *BillableRepository) FindStoreContract(storeNumber string) (*billing.Store, *billing.Contract, error) {
	var store billing.Store
	err := r.db.Where("store_number = ?", storeNumber).First(&store).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var contract billing.Contract
	err = r.db.Where("store_id = ? AND is_active = ?", store.ID, true).
		Order("created_at DESC").
		First(&contract).Error
	if err == gorm.ErrRecordNotFound {
		err = r.db.Where("store_id = ?", store.ID).
			Order("created_at DESC").
			First(&contract).Error
		if err == gorm.ErrRecordNotFound {
			return &store, nil, nil
		}
	}
	if err != nil {
		return nil, nil, err
	}
	return &store, &contract, nil
}

func (r *BillableRepository) GetAttendance(attendanceID int64) (*billing.Attendance, error) {
	var attendance billing.Attendance
	err := r.db.Where("id = ?", attendanceID).First(&attendance).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &attendance, nil
}

func (r *BillableRepository) HasPaidTransactionForAttendance(attendanceID int64, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&transaction.Transaction{}).
		Where("attendance_id = ? AND status = ? AND created_at >= ? AND created_at < ?",
			attendanceID, transaction.StatusPaid, from, to).
		Count(&count).Error
	return count > 0, err
}

// GetContract is used by the period allocator as its contract source.
func (r *BillableRepository) GetContract(contractID int64) (*billing.Contract, error) {
	var contract billing.Contract
	err := r.db.Where("id = ?", contractID).First(&contract).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contract, nil
}
