package service

import (
	"context"
	"fmt"
	"time"

	"bankcore/internal/ledger"
	"bankcore/internal/logger"
	"bankcore/internal/model"
	"bankcore/internal/repository"
	"bankcore/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerService struct {
	db           *gorm.DB
	customerRepo *repository.CustomerRepository
	accountRepo  *repository.AccountRepository
	loanRepo     *repository.LoanRepository
	seq          SequenceGenerator
	audit        AuditLog
	clock
}

func NewCustomerService(db *gorm.DB, seq SequenceGenerator, audit AuditLog, precision int32) *CustomerService {
	return &CustomerService{
		db:           db,
		customerRepo: repository.NewCustomerRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
		loanRepo:     repository.NewLoanRepository(db),
		seq:          seq,
		audit:        audit,
		clock:        newClock(precision),
	}
}

type CreateCustomerRequest struct {
	Name                    string          `json:"name" binding:"required"`
	Email                   string          `json:"email"`
	Phone                   string          `json:"phone"`
	CIFNumber               string          `json:"cif_number"`
	Segment                 string          `json:"segment"`
	RiskRating              string          `json:"risk_rating"`
	CreditScore             *int            `json:"credit_score"` // 0 视为未填写
	CreditLimit             decimal.Decimal `json:"credit_limit"`
	MonthlyIncome           decimal.Decimal `json:"monthly_income"`
	CommunicationPreference string          `json:"communication_preference"`
}

type UpdateKYCRequest struct {
	Status         string     `json:"status" binding:"required"`
	CompletionDate *time.Time `json:"completion_date"`
	ExpiryDate     *time.Time `json:"expiry_date"`
}

// CustomerDetail 客户信息及名下账户、贷款的汇总
// TotalLoans 为各笔贷款未偿金额之和，Active* 只统计状态为 active 的记录
type CustomerDetail struct {
	*model.Customer
	DisplayName    string          `json:"display_name"`
	CustomerSince  int             `json:"customer_since"`
	TotalAccounts  int             `json:"total_accounts"`
	ActiveAccounts int             `json:"active_accounts_count"`
	TotalBalance   decimal.Decimal `json:"total_balance"`
	TotalLoans     decimal.Decimal `json:"total_loans"`
	ActiveLoans    int             `json:"active_loans_count"`
}

func (s *CustomerService) Create(ctx context.Context, req *CreateCustomerRequest) (*model.Customer, error) {
	if err := model.ValidateEnum("segment", req.Segment, model.Segments); err != nil {
		return nil, err
	}
	if err := model.ValidateEnum("risk_rating", req.RiskRating, model.RiskRatings); err != nil {
		return nil, err
	}
	creditScore := req.CreditScore
	if creditScore != nil && *creditScore == 0 {
		creditScore = nil
	}
	if creditScore != nil {
		if err := model.ValidateCreditScore(*creditScore); err != nil {
			return nil, err
		}
	}
	if req.CreditLimit.IsNegative() || req.MonthlyIncome.IsNegative() {
		return nil, fmt.Errorf("%w: 授信额度和月收入不能为负", model.ErrOutOfRangeValue)
	}

	customer := &model.Customer{
		CustomerNo:              assignNumber(ctx, s.seq, idgen.SeriesCustomer),
		Name:                    req.Name,
		Email:                   req.Email,
		Phone:                   req.Phone,
		CIFNumber:               req.CIFNumber,
		KYCStatus:               model.KYCStatusPending,
		RiskRating:              req.RiskRating,
		CreditScore:             creditScore,
		CreditLimit:             s.round(req.CreditLimit),
		MonthlyIncome:           s.round(req.MonthlyIncome),
		Segment:                 req.Segment,
		Status:                  model.CustomerStatusActive,
		CommunicationPreference: req.CommunicationPreference,
		OnboardingDate:          s.today(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.customerRepo.Create(ctx, tx, customer); err != nil {
			return fmt.Errorf("创建客户失败: %w", err)
		}
		return s.audit.Append(ctx, tx, model.EntityCustomer, customer.ID, "客户建档")
	})
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Info().Int64("customer_id", customer.ID).Str("customer_no", deref(customer.CustomerNo)).Msg("客户建档")
	return customer, nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*CustomerDetail, error) {
	customer, err := s.customerRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountRepo.ListByCustomerID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("查询账户失败: %w", err)
	}
	loans, err := s.loanRepo.ListByCustomerID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("查询贷款失败: %w", err)
	}

	payments, err := s.loanRepo.ListPaymentsByCustomerID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("查询还款记录失败: %w", err)
	}
	paymentsByLoan := make(map[int64][]model.LoanPayment, len(loans))
	for _, p := range payments {
		paymentsByLoan[p.LoanID] = append(paymentsByLoan[p.LoanID], p)
	}

	detail := &CustomerDetail{
		Customer:      customer,
		DisplayName:   customer.DisplayName(),
		CustomerSince: customer.CustomerSince(s.today()),
		TotalAccounts: len(accounts),
		TotalBalance:  decimal.Zero,
		TotalLoans:    decimal.Zero,
	}
	for _, a := range accounts {
		detail.TotalBalance = detail.TotalBalance.Add(a.Balance)
		if a.Status == model.AccountStatusActive {
			detail.ActiveAccounts++
		}
	}
	for _, loan := range loans {
		detail.TotalLoans = detail.TotalLoans.Add(ledger.OutstandingAmount(loan.Principal, paymentsByLoan[loan.ID]))
		if loan.Status == model.LoanStatusActive {
			detail.ActiveLoans++
		}
	}
	return detail, nil
}

func (s *CustomerService) List(ctx context.Context, page, pageSize int) ([]*model.Customer, int64, error) {
	return s.customerRepo.List(ctx, page, pageSize)
}

// UpdateKYC 变更 KYC 状态，置为 verified 且未给出完成日期时取今天
func (s *CustomerService) UpdateKYC(ctx context.Context, id int64, req *UpdateKYCRequest) (*model.Customer, error) {
	if err := model.ValidateEnum("kyc_status", req.Status, model.KYCStatuses); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"kyc_status": req.Status}
		completion := req.CompletionDate
		if completion == nil && req.Status == model.KYCStatusVerified && customer.KYCCompletionDate == nil {
			today := s.today()
			completion = &today
		}
		if completion != nil {
			updates["kyc_completion_date"] = *completion
		}
		if req.ExpiryDate != nil {
			updates["kyc_expiry_date"] = *req.ExpiryDate
		}

		if err := s.customerRepo.Updates(ctx, tx, id, updates); err != nil {
			return fmt.Errorf("更新 KYC 状态失败: %w", err)
		}
		return s.audit.Append(ctx, tx, model.EntityCustomer, id,
			fmt.Sprintf("KYC 状态变更: %s -> %s", customer.KYCStatus, req.Status))
	})
	if err != nil {
		return nil, err
	}
	return s.customerRepo.GetByID(ctx, nil, id)
}

func (s *CustomerService) UpdateCreditScore(ctx context.Context, id int64, score int) (*model.Customer, error) {
	if err := model.ValidateCreditScore(score); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.customerRepo.Updates(ctx, tx, id, map[string]interface{}{"credit_score": score}); err != nil {
			return err
		}
		return s.audit.Append(ctx, tx, model.EntityCustomer, id, fmt.Sprintf("信用分更新为 %d", score))
	})
	if err != nil {
		return nil, err
	}
	return s.customerRepo.GetByID(ctx, nil, id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
