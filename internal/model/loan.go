package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LoanStatusDraft        = "draft"
	LoanStatusApproved     = "approved"
	LoanStatusDisbursed    = "disbursed"
	LoanStatusActive       = "active"
	LoanStatusOverdue      = "overdue"
	LoanStatusRestructured = "restructured"
	LoanStatusPaidOff      = "paid_off"
	LoanStatusWrittenOff   = "written_off"
	LoanStatusClosed       = "closed"
)

const (
	// MaxTermMonths 贷款期数上限，放款时按期数生成还款计划
	MaxTermMonths = 600
	// RatePrecision 年利率的存储精度，对应 decimal(9,4)
	RatePrecision = 4
)

const (
	LoanTypePersonal  = "personal"
	LoanTypeHome      = "home"
	LoanTypeAuto      = "auto"
	LoanTypeBusiness  = "business"
	LoanTypeEducation = "education"
)

const (
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencySemiAnnual = "semi_annual"
	FrequencyAnnual     = "annual"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

var (
	LoanStatuses = []string{
		LoanStatusDraft, LoanStatusApproved, LoanStatusDisbursed, LoanStatusActive, LoanStatusOverdue,
		LoanStatusRestructured, LoanStatusPaidOff, LoanStatusWrittenOff, LoanStatusClosed,
	}
	LoanTypes            = []string{LoanTypePersonal, LoanTypeHome, LoanTypeAuto, LoanTypeBusiness, LoanTypeEducation}
	RepaymentFrequencies = []string{FrequencyMonthly, FrequencyQuarterly, FrequencySemiAnnual, FrequencyAnnual}
	PaymentStatuses      = []string{PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed}
)

// 贷款生命周期：
//
//	draft -> approved -> disbursed -> active/overdue/restructured/paid_off/written_off -> closed
var LoanStatusTransitions = map[string][]string{
	LoanStatusDraft:        {LoanStatusApproved},
	LoanStatusApproved:     {LoanStatusDisbursed},
	LoanStatusDisbursed:    {LoanStatusActive, LoanStatusOverdue, LoanStatusRestructured, LoanStatusPaidOff, LoanStatusWrittenOff},
	LoanStatusActive:       {LoanStatusOverdue, LoanStatusRestructured, LoanStatusPaidOff, LoanStatusWrittenOff},
	LoanStatusOverdue:      {LoanStatusActive, LoanStatusRestructured, LoanStatusPaidOff, LoanStatusWrittenOff},
	LoanStatusRestructured: {LoanStatusActive, LoanStatusOverdue, LoanStatusPaidOff, LoanStatusWrittenOff},
	LoanStatusPaidOff:      {LoanStatusClosed},
	LoanStatusWrittenOff:   {LoanStatusClosed},
}

func CanLoanTransitionTo(currentStatus, targetStatus string) bool {
	return containsStatus(LoanStatusTransitions[currentStatus], targetStatus)
}

// AcceptsRepayments 放款后到结清前的贷款可以接收还款
func AcceptsRepayments(status string) bool {
	switch status {
	case LoanStatusDisbursed, LoanStatusActive, LoanStatusOverdue, LoanStatusRestructured:
		return true
	}
	return false
}

// Loan 贷款表
type Loan struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanNo             *string         `gorm:"type:varchar(64);uniqueIndex" json:"loan_no"` // nil 表示编号尚未分配
	CustomerID         int64           `gorm:"index;not null" json:"customer_id"`
	LoanType           string          `gorm:"type:varchar(20);not null" json:"loan_type"`
	Principal          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"principal"`
	InterestRate       decimal.Decimal `gorm:"type:decimal(9,4);not null" json:"interest_rate"` // 年利率（百分比）
	TermMonths         int             `gorm:"not null" json:"term_months"`
	RepaymentFrequency string          `gorm:"type:varchar(20);not null;default:monthly" json:"repayment_frequency"`
	EMIAmount          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"emi_amount"`
	DisbursedAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"disbursed_amount"`
	Currency           string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status             string          `gorm:"type:varchar(20);index;not null;default:draft" json:"status"`
	ApplicationDate    time.Time       `gorm:"type:date;not null" json:"application_date"`
	ApprovalDate       *time.Time      `gorm:"type:date" json:"approval_date"`
	DisbursementDate   *time.Time      `gorm:"type:date" json:"disbursement_date"`
	FirstPaymentDate   *time.Time      `gorm:"type:date" json:"first_payment_date"`
	NextPaymentDate    *time.Time      `gorm:"type:date" json:"next_payment_date"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string {
	return "loan"
}

// RepaymentScheduleEntry 还款计划，放款时整体生成并替换旧计划
type RepaymentScheduleEntry struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID             int64           `gorm:"uniqueIndex:idx_loan_installment;not null" json:"loan_id"`
	InstallmentNumber  int             `gorm:"uniqueIndex:idx_loan_installment;not null" json:"installment_number"`
	DueDate            time.Time       `gorm:"type:date;not null" json:"due_date"`
	PrincipalAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"principal_amount"`
	InterestAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"interest_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"outstanding_balance"`
}

func (RepaymentScheduleEntry) TableName() string {
	return "loan_schedule"
}

type LoanPayment struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference   *string         `gorm:"type:varchar(64);uniqueIndex" json:"reference"`
	LoanID      int64           `gorm:"index;not null" json:"loan_id"`
	PaymentDate time.Time       `gorm:"type:date;not null" json:"payment_date"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Status      string          `gorm:"type:varchar(20);not null;default:completed" json:"status"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LoanPayment) TableName() string {
	return "loan_payment"
}

type LoanCollateral struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	LoanID         int64           `gorm:"index;not null" json:"loan_id"`
	Description    string          `gorm:"type:varchar(256);not null" json:"description"`
	CollateralType string          `gorm:"type:varchar(32)" json:"collateral_type"`
	Value          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"value"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (LoanCollateral) TableName() string {
	return "loan_collateral"
}
