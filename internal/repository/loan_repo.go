package repository

import (
	"context"

	"bankcore/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) Create(ctx context.Context, tx *gorm.DB, loan *model.Loan) error {
	return conn(r.db, tx).WithContext(ctx).Create(loan).Error
}

func (r *LoanRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Loan, error) {
	var loan model.Loan
	err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&loan).Error
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}
	return &loan, nil
}

// GetByIDForUpdate 记录还款时锁定贷款行，避免并发还款重复推进还款日
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Loan, error) {
	var loan model.Loan
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&loan).Error
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}
	return &loan, nil
}

func (r *LoanRepository) ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID int64) ([]*model.Loan, error) {
	var loans []*model.Loan
	err := conn(r.db, tx).WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id ASC").
		Find(&loans).Error
	return loans, err
}

// UpdateStatus 条件更新贷款状态，extra 为同时写入的字段（审批日期、放款日期等）
//
// 并发的两次放款只有一次能匹配 status = approved，另一次影响行数为 0。
func (r *LoanRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string, extra map[string]interface{}) error {
	if !model.CanLoanTransitionTo(fromStatus, toStatus) {
		return model.ErrInvalidStateTransition
	}

	updates := map[string]interface{}{"status": toStatus}
	for k, v := range extra {
		updates[k] = v
	}

	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Loan{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrInvalidStateTransition
	}
	return nil
}

func (r *LoanRepository) Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]interface{}) error {
	return conn(r.db, tx).WithContext(ctx).
		Model(&model.Loan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ReplaceSchedule 删除旧计划并写入新计划，必须在事务中调用
func (r *LoanRepository) ReplaceSchedule(ctx context.Context, tx *gorm.DB, loanID int64, entries []model.RepaymentScheduleEntry) error {
	db := tx.WithContext(ctx)
	if err := db.Where("loan_id = ?", loanID).Delete(&model.RepaymentScheduleEntry{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return db.CreateInBatches(&entries, 100).Error
}

func (r *LoanRepository) GetSchedule(ctx context.Context, tx *gorm.DB, loanID int64) ([]model.RepaymentScheduleEntry, error) {
	var entries []model.RepaymentScheduleEntry
	err := conn(r.db, tx).WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("installment_number ASC").
		Find(&entries).Error
	return entries, err
}

func (r *LoanRepository) CreatePayment(ctx context.Context, tx *gorm.DB, payment *model.LoanPayment) error {
	return conn(r.db, tx).WithContext(ctx).Create(payment).Error
}

func (r *LoanRepository) ListPayments(ctx context.Context, tx *gorm.DB, loanID int64) ([]model.LoanPayment, error) {
	var payments []model.LoanPayment
	err := conn(r.db, tx).WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}

// ListPaymentsByCustomerID 客户名下全部贷款的还款记录
func (r *LoanRepository) ListPaymentsByCustomerID(ctx context.Context, tx *gorm.DB, customerID int64) ([]model.LoanPayment, error) {
	var payments []model.LoanPayment
	err := conn(r.db, tx).WithContext(ctx).
		Joins("JOIN loan ON loan.id = loan_payment.loan_id").
		Where("loan.customer_id = ?", customerID).
		Order("loan_payment.id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *LoanRepository) CreateCollateral(ctx context.Context, tx *gorm.DB, collateral *model.LoanCollateral) error {
	return conn(r.db, tx).WithContext(ctx).Create(collateral).Error
}

func (r *LoanRepository) ListCollateral(ctx context.Context, tx *gorm.DB, loanID int64) ([]model.LoanCollateral, error) {
	var collateral []model.LoanCollateral
	err := conn(r.db, tx).WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("id ASC").
		Find(&collateral).Error
	return collateral, err
}

func (r *LoanRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).
		Model(&model.Loan{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}

// PortfolioOutstanding 指定状态贷款的本金合计减去已完成还款合计
func (r *LoanRepository) PortfolioOutstanding(ctx context.Context, statuses []string) (decimal.Decimal, error) {
	var principal, paid decimal.NullDecimal

	err := r.db.WithContext(ctx).
		Model(&model.Loan{}).
		Select("SUM(principal)").
		Where("status IN ?", statuses).
		Row().Scan(&principal)
	if err != nil {
		return decimal.Zero, err
	}

	err = r.db.WithContext(ctx).
		Model(&model.LoanPayment{}).
		Select("SUM(loan_payment.amount)").
		Joins("JOIN loan ON loan.id = loan_payment.loan_id").
		Where("loan.status IN ? AND loan_payment.status = ?", statuses, model.PaymentStatusCompleted).
		Row().Scan(&paid)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	if principal.Valid {
		total = principal.Decimal
	}
	if paid.Valid {
		total = total.Sub(paid.Decimal)
	}
	return total, nil
}
