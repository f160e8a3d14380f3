package repository

import (
	"context"

	"bankcore/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	return conn(r.db, tx).WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Transaction, error) {
	var trans model.Transaction
	err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&trans).Error
	if err != nil {
		return nil, notFound(err, ErrTransactionNotFound)
	}
	return &trans, nil
}

// ListForBalance 汇总余额需要的字段
func (r *TransactionRepository) ListForBalance(ctx context.Context, tx *gorm.DB, accountID int64) ([]model.Transaction, error) {
	var transactions []model.Transaction
	err := conn(r.db, tx).WithContext(ctx).
		Select("id", "type", "amount", "date").
		Where("account_id = ?", accountID).
		Find(&transactions).Error
	return transactions, err
}

// ListByAccountID 按日期倒序分页
func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("account_id = ?", accountID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := pageOffset(page, pageSize)
	err := query.
		Order("date DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error

	return transactions, total, err
}

// UpdateStatus 条件更新流水状态，流水的其他字段创建后不再修改
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if !model.CanTransactionTransitionTo(fromStatus, toStatus) {
		return model.ErrInvalidStateTransition
	}
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrInvalidStateTransition
	}
	return nil
}
