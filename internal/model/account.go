package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountTypeSavings      = "savings"
	AccountTypeChecking     = "checking"
	AccountTypeCurrent      = "current"
	AccountTypeFixedDeposit = "fixed_deposit"
	AccountTypeInvestment   = "investment"
	AccountTypeLoan         = "loan"
)

const (
	AccountStatusActive    = "active"
	AccountStatusFrozen    = "frozen"
	AccountStatusDormant   = "dormant"
	AccountStatusSuspended = "suspended"
	AccountStatusClosed    = "closed"
)

var AccountTypes = []string{
	AccountTypeSavings, AccountTypeChecking, AccountTypeCurrent,
	AccountTypeFixedDeposit, AccountTypeInvestment, AccountTypeLoan,
}

// 冻结/解冻只允许以下流转
var AccountStatusTransitions = map[string][]string{
	AccountStatusActive:    {AccountStatusFrozen},
	AccountStatusDormant:   {AccountStatusFrozen},
	AccountStatusSuspended: {AccountStatusFrozen},
	AccountStatusFrozen:    {AccountStatusActive},
}

func CanAccountTransitionTo(currentStatus, targetStatus string) bool {
	return containsStatus(AccountStatusTransitions[currentStatus], targetStatus)
}

// AcceptsPostings 冻结、暂停、销户的账户不能再记账
func AcceptsPostings(status string) bool {
	return status == AccountStatusActive || status == AccountStatusDormant
}

// Account 银行账户表
//
// Balance 和 AvailableBalance 都是派生值：每次记账后由全部流水重新汇总得出，
// 不做增量更新。
type Account struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountNo        *string         `gorm:"type:varchar(64);uniqueIndex" json:"account_no"` // nil 表示编号尚未分配
	CustomerID       int64           `gorm:"index;not null" json:"customer_id"`
	AccountType      string          `gorm:"type:varchar(20);not null" json:"account_type"`
	Currency         string          `gorm:"type:varchar(3);not null" json:"currency"`
	Balance          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	AvailableBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"available_balance"`
	MinimumBalance   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"minimum_balance"`
	OverdraftLimit   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"overdraft_limit"`
	Status           string          `gorm:"type:varchar(20);index;not null;default:active" json:"status"`
	OpeningDate      time.Time       `gorm:"type:date;not null" json:"opening_date"`
	Version          int             `gorm:"not null;default:0" json:"version"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

func containsStatus(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
