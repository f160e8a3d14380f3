package service

import (
	"context"
	"errors"
	"time"

	"bankcore/internal/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrBusy 获取账户锁超时，调用方可以稍后重试
var ErrBusy = errors.New("系统繁忙，请稍后重试")

// SequenceGenerator 生成客户号、账号、流水号等业务编号
type SequenceGenerator interface {
	Next(ctx context.Context, series string) (string, error)
}

// AuditLog 记录实体的审计备注，tx 非空时与业务数据在同一事务中写入
type AuditLog interface {
	Append(ctx context.Context, tx *gorm.DB, entityType string, entityID int64, message string) error
}

// AccountLocker 按账户串行化记账，返回的函数用于释放锁
type AccountLocker interface {
	LockAccount(ctx context.Context, accountID int64, token string) (func(context.Context) error, error)
}

// clock 各服务共用的取时和金额舍入
type clock struct {
	now       func() time.Time
	precision int32
}

func newClock(precision int32) clock {
	return clock{
		now:       func() time.Time { return time.Now().UTC() },
		precision: precision,
	}
}

func (c clock) today() time.Time {
	t := c.now()
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c clock) round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.precision)
}

// assignNumber 编号生成失败时返回 nil，记录照常创建，编号保持未分配状态
func assignNumber(ctx context.Context, seq SequenceGenerator, series string) *string {
	if seq == nil {
		return nil
	}
	no, err := seq.Next(ctx, series)
	if err != nil {
		l := logger.FromContext(ctx)
		l.Warn().Err(err).Str("series", series).Msg("生成业务编号失败，编号暂不分配")
		return nil
	}
	return &no
}
