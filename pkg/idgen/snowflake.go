package idgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ============================================================================
// 雪花算法 ID 生成器
// ============================================================================
//
//   0 - 41位时间戳 - 10位机器ID - 12位序列号
//
// 业务编号（客户号、账号、流水号、贷款号）= 前缀 + 年月日时分秒 + 雪花ID后8位
// ============================================================================

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// 编号序列
const (
	SeriesCustomer    = "customer"
	SeriesAccount     = "account"
	SeriesTransaction = "transaction"
	SeriesLoan        = "loan"
	SeriesLoanPayment = "loan_payment"
)

var seriesPrefix = map[string]string{
	SeriesCustomer:    "CUS",
	SeriesAccount:     "ACC",
	SeriesTransaction: "TXN",
	SeriesLoan:        "LN",
	SeriesLoanPayment: "LPY",
}

var (
	ErrInvalidWorkerID = errors.New("workerID 超出范围")
	ErrUnknownSeries   = errors.New("未知的编号序列")
)

// Snowflake 雪花算法ID生成器
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
	now       func() time.Time
}

// NewSnowflake 创建生成器，workerID 范围 0-1023
func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("%w: %d 必须在 0-%d 之间", ErrInvalidWorkerID, workerID, maxWorkerID)
	}
	return &Snowflake{workerID: workerID, now: time.Now}, nil
}

// Generate 生成ID
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()

	if now == s.timestamp {
		// 同一毫秒内，序列号递增
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= s.timestamp {
				now = s.now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// Next 按序列生成业务编号，例如 ACC2026011514305212345678
func (s *Snowflake) Next(_ context.Context, series string) (string, error) {
	prefix, ok := seriesPrefix[series]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSeries, series)
	}
	id := s.Generate()
	timestamp := s.now().Format("20060102150405")
	return fmt.Sprintf("%s%s%08d", prefix, timestamp, id%100000000), nil
}
