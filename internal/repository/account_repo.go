package repository

import (
	"context"

	"bankcore/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	return conn(r.db, tx).WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

// GetByIDForUpdate 在事务中锁定账户行（SELECT ... FOR UPDATE）
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &account, nil
}

func (r *AccountRepository) ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID int64) ([]*model.Account, error) {
	var accounts []*model.Account
	err := conn(r.db, tx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}

// UpdateBalance 写回重新汇总后的余额，version 用于检测并发写入
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *gorm.DB, id int64, version int, balance, available decimal.Decimal) error {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"balance":           balance,
			"available_balance": available,
			"version":           gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

// UpdateStatus 条件更新，当前状态不是 fromStatus 时返回 model.ErrInvalidStateTransition
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if !model.CanAccountTransitionTo(fromStatus, toStatus) {
		return model.ErrInvalidStateTransition
	}
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Account{}).
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

func (r *AccountRepository) UpdateLimits(ctx context.Context, tx *gorm.DB, id int64, minimumBalance, overdraftLimit, available decimal.Decimal) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"minimum_balance":   minimumBalance,
			"overdraft_limit":   overdraftLimit,
			"available_balance": available,
			"version":           gorm.Expr("version + 1"),
		}).Error
}

// Delete 删除账户及其全部流水
func (r *AccountRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	db := conn(r.db, tx).WithContext(ctx)
	if err := db.Where("account_id = ?", id).Delete(&model.Transaction{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", id).Delete(&model.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SumBalances 全部账户余额合计
func (r *AccountRepository) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Select("SUM(balance)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
