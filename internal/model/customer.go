package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KYCStatusPending    = "pending"
	KYCStatusInProgress = "in_progress"
	KYCStatusVerified   = "verified"
	KYCStatusRejected   = "rejected"
	KYCStatusExpired    = "expired"
)

const (
	RiskRatingLow      = "low"
	RiskRatingMedium   = "medium"
	RiskRatingHigh     = "high"
	RiskRatingVeryHigh = "very_high"
)

const (
	SegmentRetail    = "retail"
	SegmentPremium   = "premium"
	SegmentPrivate   = "private"
	SegmentCorporate = "corporate"
	SegmentSME       = "sme"
)

const (
	CustomerStatusActive    = "active"
	CustomerStatusInactive  = "inactive"
	CustomerStatusSuspended = "suspended"
	CustomerStatusClosed    = "closed"
)

const (
	MinCreditScore = 300
	MaxCreditScore = 850
)

var (
	KYCStatuses = []string{KYCStatusPending, KYCStatusInProgress, KYCStatusVerified, KYCStatusRejected, KYCStatusExpired}
	RiskRatings = []string{RiskRatingLow, RiskRatingMedium, RiskRatingHigh, RiskRatingVeryHigh}
	Segments    = []string{SegmentRetail, SegmentPremium, SegmentPrivate, SegmentCorporate, SegmentSME}
)

// Customer 客户表，账户和贷款的聚合根（不负责它们的生命周期）
type Customer struct {
	ID                      int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerNo              *string         `gorm:"type:varchar(64);uniqueIndex" json:"customer_no"` // nil 表示编号尚未分配
	Name                    string          `gorm:"type:varchar(128);not null" json:"name"`
	Email                   string          `gorm:"type:varchar(128)" json:"email"`
	Phone                   string          `gorm:"type:varchar(32)" json:"phone"`
	CIFNumber               string          `gorm:"type:varchar(64)" json:"cif_number"`
	KYCStatus               string          `gorm:"type:varchar(20);not null;default:pending" json:"kyc_status"`
	KYCCompletionDate       *time.Time      `gorm:"type:date" json:"kyc_completion_date"`
	KYCExpiryDate           *time.Time      `gorm:"type:date" json:"kyc_expiry_date"`
	RiskRating              string          `gorm:"type:varchar(20)" json:"risk_rating"`
	CreditScore             *int            `json:"credit_score"`
	CreditLimit             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_limit"`
	MonthlyIncome           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"monthly_income"`
	Segment                 string          `gorm:"type:varchar(20)" json:"segment"`
	Status                  string          `gorm:"type:varchar(20);not null;default:active" json:"status"`
	CommunicationPreference string          `gorm:"type:varchar(20)" json:"communication_preference"`
	OnboardingDate          time.Time       `gorm:"type:date;not null" json:"onboarding_date"`
	LastContactDate         *time.Time      `gorm:"type:date" json:"last_contact_date"`
	CreatedAt               time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customer"
}

// DisplayName 形如 "张三 (CUS2026...)"，编号未分配时只显示姓名
func (c *Customer) DisplayName() string {
	if c.CustomerNo == nil {
		if c.Name == "" {
			return "New Customer"
		}
		return c.Name
	}
	if c.Name == "" {
		return *c.CustomerNo
	}
	return fmt.Sprintf("%s (%s)", c.Name, *c.CustomerNo)
}

// CustomerSince 开户至今的整年数
func (c *Customer) CustomerSince(today time.Time) int {
	if c.OnboardingDate.IsZero() {
		return 0
	}
	days := int(today.Sub(c.OnboardingDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 365
}

// ValidateCreditScore 信用分必须落在 300-850 之间
func ValidateCreditScore(score int) error {
	if score < MinCreditScore || score > MaxCreditScore {
		return fmt.Errorf("%w: 信用分 %d 不在 %d-%d 之间", ErrOutOfRangeValue, score, MinCreditScore, MaxCreditScore)
	}
	return nil
}

// ValidateEnum 校验字段取值，空字符串视为未填写
func ValidateEnum(field, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if a == value {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q", ErrInvalidEnum, field, value)
}
