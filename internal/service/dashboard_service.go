package service

import (
	"context"
	"fmt"

	"bankcore/internal/model"
	"bankcore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 计入贷款余额的状态
var outstandingLoanStatuses = []string{
	model.LoanStatusDisbursed,
	model.LoanStatusActive,
	model.LoanStatusOverdue,
	model.LoanStatusRestructured,
}

type DashboardService struct {
	customerRepo *repository.CustomerRepository
	accountRepo  *repository.AccountRepository
	loanRepo     *repository.LoanRepository
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{
		customerRepo: repository.NewCustomerRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
		loanRepo:     repository.NewLoanRepository(db),
	}
}

type Summary struct {
	CustomerCount     int64            `json:"customer_count"`
	KYCBreakdown      map[string]int64 `json:"kyc_breakdown"`
	TotalDeposits     decimal.Decimal  `json:"total_deposits"`
	LoanPortfolio     decimal.Decimal  `json:"loan_portfolio_outstanding"`
	LoanCountByStatus map[string]int64 `json:"loan_count_by_status"`
}

func (s *DashboardService) Summary(ctx context.Context) (*Summary, error) {
	kyc, err := s.customerRepo.CountByKYCStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计客户失败: %w", err)
	}
	deposits, err := s.accountRepo.SumBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计存款失败: %w", err)
	}
	portfolio, err := s.loanRepo.PortfolioOutstanding(ctx, outstandingLoanStatuses)
	if err != nil {
		return nil, fmt.Errorf("统计贷款余额失败: %w", err)
	}
	loans, err := s.loanRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("统计贷款失败: %w", err)
	}

	summary := &Summary{
		KYCBreakdown:      kyc,
		TotalDeposits:     deposits,
		LoanPortfolio:     portfolio,
		LoanCountByStatus: loans,
	}
	for _, n := range kyc {
		summary.CustomerCount += n
	}
	return summary, nil
}
