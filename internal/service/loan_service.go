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

type LoanService struct {
	db              *gorm.DB
	loanRepo        *repository.LoanRepository
	customerRepo    *repository.CustomerRepository
	seq             SequenceGenerator
	audit           AuditLog
	defaultCurrency string
	clock
}

func NewLoanService(db *gorm.DB, seq SequenceGenerator, audit AuditLog, defaultCurrency string, precision int32) *LoanService {
	return &LoanService{
		db:              db,
		loanRepo:        repository.NewLoanRepository(db),
		customerRepo:    repository.NewCustomerRepository(db),
		seq:             seq,
		audit:           audit,
		defaultCurrency: defaultCurrency,
		clock:           newClock(precision),
	}
}

type CreateLoanRequest struct {
	CustomerID         int64           `json:"customer_id" binding:"required"`
	LoanType           string          `json:"loan_type" binding:"required"`
	Principal          decimal.Decimal `json:"principal"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	TermMonths         int             `json:"term_months"`
	RepaymentFrequency string          `json:"repayment_frequency"`
	Currency           string          `json:"currency"`
	FirstPaymentDate   *time.Time      `json:"first_payment_date"`
}

type AddCollateralRequest struct {
	Description    string          `json:"description" binding:"required"`
	CollateralType string          `json:"collateral_type"`
	Value          decimal.Decimal `json:"value"`
}

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	PaymentDate *time.Time      `json:"payment_date"`
}

// LoanDetail 贷款及派生指标
type LoanDetail struct {
	*model.Loan
	MaturityDate         *time.Time             `json:"maturity_date"`
	TotalCollateralValue decimal.Decimal        `json:"total_collateral_value"`
	LTVRatio             decimal.Decimal        `json:"ltv_ratio"`
	DaysOverdue          int                    `json:"days_overdue"`
	TotalPaid            decimal.Decimal        `json:"total_paid"`
	OutstandingAmount    decimal.Decimal        `json:"outstanding_amount"`
	RemainingPayments    int                    `json:"remaining_payments"`
	Collateral           []model.LoanCollateral `json:"collateral"`
	Payments             []model.LoanPayment    `json:"payments"`
}

// Create 贷款申请，计算并保存 EMI，状态为 draft
func (s *LoanService) Create(ctx context.Context, req *CreateLoanRequest) (*model.Loan, error) {
	if req.LoanType == "" {
		return nil, fmt.Errorf("%w: loan_type 不能为空", model.ErrInvalidEnum)
	}
	if err := model.ValidateEnum("loan_type", req.LoanType, model.LoanTypes); err != nil {
		return nil, err
	}
	if err := model.ValidateEnum("repayment_frequency", req.RepaymentFrequency, model.RepaymentFrequencies); err != nil {
		return nil, err
	}
	if !req.Principal.IsPositive() {
		return nil, fmt.Errorf("%w: 本金 %s", model.ErrInvalidAmount, req.Principal.String())
	}
	if req.InterestRate.IsNegative() {
		return nil, fmt.Errorf("%w: 年利率不能为负", model.ErrOutOfRangeValue)
	}
	if req.TermMonths <= 0 || req.TermMonths > model.MaxTermMonths {
		return nil, fmt.Errorf("%w: 期数必须在 1-%d 之间", model.ErrOutOfRangeValue, model.MaxTermMonths)
	}
	if _, err := s.customerRepo.GetByID(ctx, nil, req.CustomerID); err != nil {
		return nil, err
	}

	frequency := req.RepaymentFrequency
	if frequency == "" {
		frequency = model.FrequencyMonthly
	}
	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	var firstPayment *time.Time
	if req.FirstPaymentDate != nil {
		d := ledger.DateOf(*req.FirstPaymentDate)
		firstPayment = &d
	}

	principal := s.round(req.Principal)
	rate := req.InterestRate.Round(model.RatePrecision)
	loan := &model.Loan{
		LoanNo:             assignNumber(ctx, s.seq, idgen.SeriesLoan),
		CustomerID:         req.CustomerID,
		LoanType:           req.LoanType,
		Principal:          principal,
		InterestRate:       rate,
		TermMonths:         req.TermMonths,
		RepaymentFrequency: frequency,
		EMIAmount:          s.round(ledger.EMI(principal, rate, req.TermMonths)),
		Currency:           currency,
		Status:             model.LoanStatusDraft,
		ApplicationDate:    s.today(),
		FirstPaymentDate:   firstPayment,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.loanRepo.Create(ctx, tx, loan); err != nil {
			return fmt.Errorf("创建贷款失败: %w", err)
		}
		return s.audit.Append(ctx, tx, model.EntityLoan, loan.ID,
			fmt.Sprintf("贷款申请: 本金 %s, 期数 %d, EMI %s", loan.Principal.String(), loan.TermMonths, loan.EMIAmount.String()))
	})
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Info().Int64("loan_id", loan.ID).Str("emi", loan.EMIAmount.String()).Msg("贷款申请")
	return loan, nil
}

// Approve draft -> approved，记录审批日期
func (s *LoanService) Approve(ctx context.Context, id int64) (*model.Loan, error) {
	today := s.today()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.loanRepo.GetByID(ctx, tx, id); err != nil {
			return err
		}
		extra := map[string]interface{}{"approval_date": today}
		if err := s.loanRepo.UpdateStatus(ctx, tx, id, model.LoanStatusDraft, model.LoanStatusApproved, extra); err != nil {
			return fmt.Errorf("贷款审批失败: %w", err)
		}
		return s.audit.Append(ctx, tx, model.EntityLoan, id, "贷款审批通过")
	})
	if err != nil {
		return nil, err
	}
	return s.loanRepo.GetByID(ctx, nil, id)
}

// Disburse approved -> disbursed，同一事务内重新生成还款计划
//
// 状态更新带 status = approved 条件，重复放款影响行数为 0，整体回滚，
// 已有的还款计划不会被改动。
func (s *LoanService) Disburse(ctx context.Context, id int64) (*model.Loan, error) {
	today := s.today()
	var schedule []model.RepaymentScheduleEntry

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		schedule = ledger.GenerateSchedule(ledger.ScheduleInput{
			LoanID:            loan.ID,
			Principal:         loan.Principal,
			AnnualRatePercent: loan.InterestRate,
			TermMonths:        loan.TermMonths,
			EMI:               loan.EMIAmount,
			StartDate:         ledger.ScheduleStartDate(loan.FirstPaymentDate, &today),
			Precision:         s.precision,
		})

		extra := map[string]interface{}{
			"disbursement_date": today,
			"disbursed_amount":  loan.Principal,
		}
		if len(schedule) > 0 {
			extra["next_payment_date"] = schedule[0].DueDate
		}
		if err := s.loanRepo.UpdateStatus(ctx, tx, id, model.LoanStatusApproved, model.LoanStatusDisbursed, extra); err != nil {
			return fmt.Errorf("贷款放款失败，当前状态 %s: %w", loan.Status, err)
		}

		if err := s.loanRepo.ReplaceSchedule(ctx, tx, id, schedule); err != nil {
			return fmt.Errorf("生成还款计划失败: %w", err)
		}
		return s.audit.Append(ctx, tx, model.EntityLoan, id,
			fmt.Sprintf("贷款放款: %s, 还款计划 %d 期", loan.Principal.String(), len(schedule)))
	})
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Info().Int64("loan_id", id).Int("installments", len(schedule)).Msg("贷款放款")
	return s.loanRepo.GetByID(ctx, nil, id)
}

// Transition 其余生命周期流转；审批和放款走各自的流程
func (s *LoanService) Transition(ctx context.Context, id int64, target, reason string) (*model.Loan, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: status 不能为空", model.ErrInvalidEnum)
	}
	if err := model.ValidateEnum("status", target, model.LoanStatuses); err != nil {
		return nil, err
	}
	switch target {
	case model.LoanStatusApproved:
		return s.Approve(ctx, id)
	case model.LoanStatusDisbursed:
		return s.Disburse(ctx, id)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		from := loan.Status
		if err := s.loanRepo.UpdateStatus(ctx, tx, id, from, target, nil); err != nil {
			return fmt.Errorf("%s -> %s: %w", from, target, err)
		}

		note := fmt.Sprintf("贷款状态变更: %s -> %s", from, target)
		if reason != "" {
			note = note + ": " + reason
		}
		return s.audit.Append(ctx, tx, model.EntityLoan, id, note)
	})
	if err != nil {
		return nil, err
	}
	return s.loanRepo.GetByID(ctx, nil, id)
}

func (s *LoanService) AddCollateral(ctx context.Context, loanID int64, req *AddCollateralRequest) (*model.LoanCollateral, error) {
	if req.Value.IsNegative() {
		return nil, fmt.Errorf("%w: 抵押物价值不能为负", model.ErrOutOfRangeValue)
	}
	collateral := &model.LoanCollateral{
		LoanID:         loanID,
		Description:    req.Description,
		CollateralType: req.CollateralType,
		Value:          s.round(req.Value),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.loanRepo.GetByID(ctx, tx, loanID); err != nil {
			return err
		}
		if err := s.loanRepo.CreateCollateral(ctx, tx, collateral); err != nil {
			return fmt.Errorf("登记抵押物失败: %w", err)
		}
		return s.audit.Append(ctx, tx, model.EntityLoan, loanID,
			fmt.Sprintf("登记抵押物: %s %s", collateral.Description, collateral.Value.String()))
	})
	if err != nil {
		return nil, err
	}
	return collateral, nil
}

// RecordPayment 登记还款，推进下次还款日；剩余期数为 0 时贷款结清
func (s *LoanService) RecordPayment(ctx context.Context, loanID int64, req *RecordPaymentRequest) (*model.LoanPayment, error) {
	status := req.Status
	if status == "" {
		status = model.PaymentStatusCompleted
	}
	if err := model.ValidateEnum("status", status, model.PaymentStatuses); err != nil {
		return nil, err
	}
	amount := s.round(req.Amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidAmount, req.Amount.String())
	}
	paymentDate := s.today()
	if req.PaymentDate != nil {
		paymentDate = ledger.DateOf(*req.PaymentDate)
	}

	payment := &model.LoanPayment{
		Reference:   assignNumber(ctx, s.seq, idgen.SeriesLoanPayment),
		LoanID:      loanID,
		PaymentDate: paymentDate,
		Amount:      amount,
		Status:      status,
	}

	var paidOff bool
	err := s.db.Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanRepo.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			return err
		}
		if !model.AcceptsRepayments(loan.Status) {
			return fmt.Errorf("%w: 贷款状态 %s 不能还款", model.ErrInvalidStateTransition, loan.Status)
		}
		if err := s.loanRepo.CreatePayment(ctx, tx, payment); err != nil {
			return fmt.Errorf("登记还款失败: %w", err)
		}

		payments, err := s.loanRepo.ListPayments(ctx, tx, loanID)
		if err != nil {
			return err
		}
		schedule, err := s.loanRepo.GetSchedule(ctx, tx, loanID)
		if err != nil {
			return err
		}
		next := ledger.NextDueDate(schedule, ledger.CompletedPayments(payments))
		if err := s.loanRepo.Updates(ctx, tx, loanID, map[string]interface{}{"next_payment_date": next}); err != nil {
			return fmt.Errorf("更新下次还款日失败: %w", err)
		}

		if ledger.RemainingPayments(loan.TermMonths, payments) == 0 {
			if err := s.loanRepo.UpdateStatus(ctx, tx, loanID, loan.Status, model.LoanStatusPaidOff, nil); err != nil {
				return err
			}
			paidOff = true
		}

		note := fmt.Sprintf("还款 %s (%s)", payment.Amount.String(), payment.Status)
		if paidOff {
			note += "，贷款结清"
		}
		return s.audit.Append(ctx, tx, model.EntityLoan, loanID, note)
	})
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Info().Int64("loan_id", loanID).Str("amount", amount.String()).Bool("paid_off", paidOff).Msg("登记还款")
	return payment, nil
}

func (s *LoanService) Get(ctx context.Context, id int64) (*LoanDetail, error) {
	loan, err := s.loanRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	collateral, err := s.loanRepo.ListCollateral(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("查询抵押物失败: %w", err)
	}
	payments, err := s.loanRepo.ListPayments(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("查询还款记录失败: %w", err)
	}

	collateralValue := ledger.TotalCollateralValue(collateral)
	return &LoanDetail{
		Loan:                 loan,
		MaturityDate:         ledger.MaturityDate(loan.DisbursementDate, loan.TermMonths),
		TotalCollateralValue: collateralValue,
		LTVRatio:             ledger.LTVRatio(loan.Principal, collateralValue).Round(2),
		DaysOverdue:          ledger.DaysOverdue(loan.NextPaymentDate, s.today()),
		TotalPaid:            ledger.TotalPaid(payments),
		OutstandingAmount:    ledger.OutstandingAmount(loan.Principal, payments),
		RemainingPayments:    ledger.RemainingPayments(loan.TermMonths, payments),
		Collateral:           collateral,
		Payments:             payments,
	}, nil
}

func (s *LoanService) GetSchedule(ctx context.Context, id int64) ([]model.RepaymentScheduleEntry, error) {
	if _, err := s.loanRepo.GetByID(ctx, nil, id); err != nil {
		return nil, err
	}
	return s.loanRepo.GetSchedule(ctx, nil, id)
}

func (s *LoanService) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Loan, error) {
	if _, err := s.customerRepo.GetByID(ctx, nil, customerID); err != nil {
		return nil, err
	}
	return s.loanRepo.ListByCustomerID(ctx, nil, customerID)
}
