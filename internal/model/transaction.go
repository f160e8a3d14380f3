package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

const (
	CategoryDeposit          = "deposit"
	CategoryWithdrawal       = "withdrawal"
	CategoryTransferIn       = "transfer_in"
	CategoryTransferOut      = "transfer_out"
	CategoryFee              = "fee"
	CategoryInterest         = "interest"
	CategoryLoanDisbursement = "loan_disbursement"
	CategoryLoanRepayment    = "loan_repayment"
	CategoryCardPayment      = "card_payment"
	CategoryOther            = "other"
)

const (
	TransactionStatusPending    = "pending"
	TransactionStatusProcessing = "processing"
	TransactionStatusCompleted  = "completed"
	TransactionStatusFailed     = "failed"
	TransactionStatusCancelled  = "cancelled"
)

const (
	ChannelBranch = "branch"
	ChannelATM    = "atm"
	ChannelOnline = "online"
	ChannelMobile = "mobile"
	ChannelPOS    = "pos"
	ChannelSystem = "system"
)

var (
	TransactionTypes    = []string{TransactionTypeCredit, TransactionTypeDebit}
	TransactionStatuses = []string{
		TransactionStatusPending, TransactionStatusProcessing, TransactionStatusCompleted,
		TransactionStatusFailed, TransactionStatusCancelled,
	}
	TransactionCategories = []string{
		CategoryDeposit, CategoryWithdrawal, CategoryTransferIn, CategoryTransferOut, CategoryFee,
		CategoryInterest, CategoryLoanDisbursement, CategoryLoanRepayment, CategoryCardPayment, CategoryOther,
	}
	Channels = []string{ChannelBranch, ChannelATM, ChannelOnline, ChannelMobile, ChannelPOS, ChannelSystem}
)

var TransactionStatusTransitions = map[string][]string{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusCancelled, TransactionStatusFailed},
	TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusCancelled, TransactionStatusFailed},
}

func CanTransactionTransitionTo(currentStatus, targetStatus string) bool {
	return containsStatus(TransactionStatusTransitions[currentStatus], targetStatus)
}

// Transaction 账户流水表
//
// 流水创建后除状态外不可修改。BalanceAfter 是创建时刻的快照：
// 以入账前的账户余额加减本笔金额得出，之后不随其他流水变化。
type Transaction struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference           *string         `gorm:"type:varchar(64);uniqueIndex" json:"reference"` // nil 表示流水号尚未分配
	AccountID           int64           `gorm:"index;not null" json:"account_id"`
	CustomerID          int64           `gorm:"index;not null" json:"customer_id"`
	Date                time.Time       `gorm:"index;not null" json:"date"`
	ValueDate           time.Time       `gorm:"type:date;not null" json:"value_date"`
	Type                string          `gorm:"type:varchar(10);not null" json:"type"`
	Category            string          `gorm:"type:varchar(32);not null" json:"category"`
	Amount              decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	BalanceAfter        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	Currency            string          `gorm:"type:varchar(3);not null" json:"currency"`
	Description         string          `gorm:"type:varchar(256);not null" json:"description"`
	Narration           string          `gorm:"type:text" json:"narration"`
	Status              string          `gorm:"type:varchar(20);index;not null;default:completed" json:"status"`
	Channel             string          `gorm:"type:varchar(20)" json:"channel"`
	ExternalReference   string          `gorm:"type:varchar(64)" json:"external_reference"`
	CounterpartyAccount string          `gorm:"type:varchar(64)" json:"counterparty_account"`
	CounterpartyName    string          `gorm:"type:varchar(128)" json:"counterparty_name"`
	CounterpartyBank    string          `gorm:"type:varchar(128)" json:"counterparty_bank"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "account_transaction"
}
