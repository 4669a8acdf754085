package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

type ClickRepository struct {
	db *gorm.DB
}

func NewClickRepository(db *gorm.DB) *ClickRepository {
	return &ClickRepository{db: db}
}

func (r *ClickRepository) Create(record *transaction.ClickTransaction) error {
	return r.db.Create(record).Error
}

func (r *ClickRepository) GetByClickTransID(clickTransID string) (*transaction.ClickTransaction, error) {
	var record transaction.ClickTransaction
	err := r.db.Where("click_trans_id = ?", clickTransID).First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *ClickRepository) GetByID(id int64) (*transaction.ClickTransaction, error) {
	var record transaction.ClickTransaction
	err := r.db.First(&record, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *ClickRepository) MarkPaid(id int64, clickPaydocID string) error {
	updates := map[string]interface{}{
		"status":     transaction.ClickStatusPaid,
		"updated_at": time.Now().UTC(),
	}
	if clickPaydocID != "" {
		updates["click_paydoc_id"] = clickPaydocID
	}
	return r.db.Model(&transaction.ClickTransaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ClickRepository) MarkCanceled(id int64, errorCode int, errorNote string) error {
	return r.db.Model(&transaction.ClickTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     transaction.ClickStatusCanceled,
			"error_code": errorCode,
			"error_note": errorNote,
			"updated_at": time.Now().UTC(),
		}).Error
}
