package repository

import (
	"context"

	"bankcore/internal/model"

	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, tx *gorm.DB, customer *model.Customer) error {
	return conn(r.db, tx).WithContext(ctx).Create(customer).Error
}

func (r *CustomerRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Customer, error) {
	var customer model.Customer
	err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, notFound(err, ErrCustomerNotFound)
	}
	return &customer, nil
}

func (r *CustomerRepository) Updates(ctx context.Context, tx *gorm.DB, id int64, updates map[string]interface{}) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepository) List(ctx context.Context, page, pageSize int) ([]*model.Customer, int64, error) {
	var customers []*model.Customer
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Customer{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := pageOffset(page, pageSize)
	err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&customers).Error
	return customers, total, err
}

// CountByKYCStatus 按 KYC 状态分组计数
func (r *CustomerRepository) CountByKYCStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		KYCStatus string `gorm:"column:kyc_status"`
		Count     int64  `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).
		Model(&model.Customer{}).
		Select("kyc_status, COUNT(*) AS count").
		Group("kyc_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.KYCStatus] = row.Count
	}
	return result, nil
}
