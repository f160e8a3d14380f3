package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrCustomerNotFound    = errors.New("客户不存在")
	ErrAccountNotFound     = errors.New("账户不存在")
	ErrTransactionNotFound = errors.New("流水不存在")
	ErrLoanNotFound        = errors.New("贷款不存在")
	ErrOptimisticLock      = errors.New("乐观锁冲突，请重试")
)

// conn 事务内使用 tx，否则使用默认连接
func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

func pageOffset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
