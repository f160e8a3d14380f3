package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bankcore/internal/ledger"
	"bankcore/internal/model"
	"bankcore/internal/repository"
)

func (e *testEnv) loan(t *testing.T, principal, rate string, term int) *model.Loan {
	t.Helper()
	c := e.customer(t)
	loan, err := e.loans.Create(context.Background(), &CreateLoanRequest{
		CustomerID:   c.ID,
		LoanType:     model.LoanTypePersonal,
		Principal:    dec(principal),
		InterestRate: dec(rate),
		TermMonths:   term,
	})
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	return loan
}

func (e *testEnv) disbursedLoan(t *testing.T, principal, rate string, term int) *model.Loan {
	t.Helper()
	ctx := context.Background()
	loan := e.loan(t, principal, rate, term)
	if _, err := e.loans.Approve(ctx, loan.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	disbursed, err := e.loans.Disburse(ctx, loan.ID)
	if err != nil {
		t.Fatalf("disburse: %v", err)
	}
	return disbursed
}

func day(t *time.Time) string {
	if t == nil {
		return "<nil>"
	}
	return t.Format("2006-01-02")
}

func TestCreateLoan_EMI(t *testing.T) {
	env := newTestEnv(t)

	zero := env.loan(t, "12000", "0", 12)
	if !zero.EMIAmount.Equal(dec("1000")) {
		t.Errorf("zero-rate EMI=%s want 1000", zero.EMIAmount)
	}
	if zero.Status != model.LoanStatusDraft || zero.RepaymentFrequency != model.FrequencyMonthly {
		t.Errorf("status=%s frequency=%s", zero.Status, zero.RepaymentFrequency)
	}

	amortizing := env.loan(t, "100000", "12", 12)
	if !amortizing.EMIAmount.Equal(dec("8884.88")) {
		t.Errorf("EMI=%s want 8884.88", amortizing.EMIAmount)
	}
}

func TestCreateLoan_RateStoredAtFourPlaces(t *testing.T) {
	env := newTestEnv(t)

	loan := env.loan(t, "100000", "12.12345", 12)
	if !loan.InterestRate.Equal(dec("12.1235")) {
		t.Fatalf("rate=%s want 12.1235", loan.InterestRate)
	}
	if want := env.loans.round(ledger.EMI(dec("100000"), dec("12.1235"), 12)); !loan.EMIAmount.Equal(want) {
		t.Fatalf("EMI=%s want %s", loan.EMIAmount, want)
	}

	stored, err := env.loans.Get(context.Background(), loan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.InterestRate.Equal(loan.InterestRate) || !stored.EMIAmount.Equal(loan.EMIAmount) {
		t.Fatalf("stored rate=%s emi=%s", stored.InterestRate, stored.EMIAmount)
	}
}

func TestCreateLoan_MaxTermAccepted(t *testing.T) {
	env := newTestEnv(t)
	loan := env.loan(t, "600", "0", model.MaxTermMonths)
	if !loan.EMIAmount.Equal(dec("1")) {
		t.Fatalf("EMI=%s want 1", loan.EMIAmount)
	}
}

func TestCreateLoan_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.customer(t)

	tests := []struct {
		name string
		req  CreateLoanRequest
		want error
	}{
		{"zero principal", CreateLoanRequest{CustomerID: c.ID, LoanType: model.LoanTypeAuto, Principal: dec("0"), TermMonths: 12}, model.ErrInvalidAmount},
		{"negative rate", CreateLoanRequest{CustomerID: c.ID, LoanType: model.LoanTypeAuto, Principal: dec("10"), InterestRate: dec("-1"), TermMonths: 12}, model.ErrOutOfRangeValue},
		{"zero term", CreateLoanRequest{CustomerID: c.ID, LoanType: model.LoanTypeAuto, Principal: dec("10")}, model.ErrOutOfRangeValue},
		{"term above cap", CreateLoanRequest{CustomerID: c.ID, LoanType: model.LoanTypeAuto, Principal: dec("10"), TermMonths: model.MaxTermMonths + 1}, model.ErrOutOfRangeValue},
		{"unknown type", CreateLoanRequest{CustomerID: c.ID, LoanType: "payday", Principal: dec("10"), TermMonths: 1}, model.ErrInvalidEnum},
		{"missing customer", CreateLoanRequest{CustomerID: 999, LoanType: model.LoanTypeAuto, Principal: dec("10"), TermMonths: 1}, repository.ErrCustomerNotFound},
	}
	for _, tt := range tests {
		req := tt.req
		if _, err := env.loans.Create(ctx, &req); !errors.Is(err, tt.want) {
			t.Errorf("%s: want %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestLoanLifecycle_ApproveOnlyFromDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.loan(t, "1000", "10", 6)

	approved, err := env.loans.Approve(ctx, loan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != model.LoanStatusApproved || day(approved.ApprovalDate) != "2026-01-01" {
		t.Fatalf("status=%s approval_date=%s", approved.Status, day(approved.ApprovalDate))
	}
	if _, err := env.loans.Approve(ctx, loan.ID); !errors.Is(err, model.ErrInvalidStateTransition) {
		t.Fatalf("second approve: %v", err)
	}
}

func TestDisburse_GeneratesScheduleOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.disbursedLoan(t, "12000", "0", 12)

	if loan.Status != model.LoanStatusDisbursed {
		t.Fatalf("status=%s", loan.Status)
	}
	if !loan.DisbursedAmount.Equal(dec("12000")) || day(loan.DisbursementDate) != "2026-01-01" {
		t.Fatalf("disbursed_amount=%s date=%s", loan.DisbursedAmount, day(loan.DisbursementDate))
	}

	schedule, err := env.loans.GetSchedule(ctx, loan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(schedule) != 12 {
		t.Fatalf("schedule len=%d want 12", len(schedule))
	}
	if day(loan.NextPaymentDate) != schedule[0].DueDate.Format("2006-01-02") {
		t.Fatalf("next_payment_date=%s want first due date", day(loan.NextPaymentDate))
	}
	if got := schedule[1].DueDate.Format("2006-01-02"); got != "2026-01-31" {
		t.Fatalf("second due date=%s want 2026-01-31", got)
	}
	if !schedule[11].OutstandingBalance.IsZero() {
		t.Fatalf("final outstanding=%s", schedule[11].OutstandingBalance)
	}

	if _, err := env.loans.Disburse(ctx, loan.ID); !errors.Is(err, model.ErrInvalidStateTransition) {
		t.Fatalf("second disburse: %v", err)
	}
	again, err := env.loans.GetSchedule(ctx, loan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != len(schedule) || again[0].ID != schedule[0].ID {
		t.Fatal("schedule was touched by the rejected disburse")
	}
}

func TestDisburse_DraftRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.loan(t, "1000", "5", 3)

	if _, err := env.loans.Disburse(ctx, loan.ID); !errors.Is(err, model.ErrInvalidStateTransition) {
		t.Fatalf("want ErrInvalidStateTransition, got %v", err)
	}
	schedule, _ := env.loans.GetSchedule(ctx, loan.ID)
	if len(schedule) != 0 {
		t.Fatalf("draft loan got %d schedule entries", len(schedule))
	}
}

func TestDisburse_UsesFirstPaymentDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.customer(t)
	first := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	loan, err := env.loans.Create(ctx, &CreateLoanRequest{
		CustomerID: c.ID, LoanType: model.LoanTypeHome, Principal: dec("3000"),
		InterestRate: dec("0"), TermMonths: 3, FirstPaymentDate: &first,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.loans.Transition(ctx, loan.ID, model.LoanStatusApproved, ""); err != nil {
		t.Fatal(err)
	}
	disbursed, err := env.loans.Transition(ctx, loan.ID, model.LoanStatusDisbursed, "")
	if err != nil {
		t.Fatal(err)
	}
	if day(disbursed.NextPaymentDate) != "2026-02-15" {
		t.Fatalf("next_payment_date=%s want 2026-02-15", day(disbursed.NextPaymentDate))
	}
}

func TestRecordPayment_AdvancesAndPaysOff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.disbursedLoan(t, "3000", "0", 3)

	wantNext := []string{"2026-01-31", "2026-03-02", "<nil>"}
	for i, want := range wantNext {
		if _, err := env.loans.RecordPayment(ctx, loan.ID, &RecordPaymentRequest{Amount: dec("1000")}); err != nil {
			t.Fatalf("payment %d: %v", i+1, err)
		}
		detail, err := env.loans.Get(ctx, loan.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got := day(detail.NextPaymentDate); got != want {
			t.Fatalf("after payment %d next_payment_date=%s want %s", i+1, got, want)
		}
		if detail.RemainingPayments != 2-i {
			t.Fatalf("after payment %d remaining=%d", i+1, detail.RemainingPayments)
		}
	}

	detail, err := env.loans.Get(ctx, loan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Status != model.LoanStatusPaidOff {
		t.Fatalf("status=%s want paid_off", detail.Status)
	}
	if !detail.OutstandingAmount.IsZero() || !detail.TotalPaid.Equal(dec("3000")) {
		t.Fatalf("outstanding=%s total_paid=%s", detail.OutstandingAmount, detail.TotalPaid)
	}

	_, err = env.loans.RecordPayment(ctx, loan.ID, &RecordPaymentRequest{Amount: dec("1")})
	if !errors.Is(err, model.ErrInvalidStateTransition) {
		t.Fatalf("payment on paid_off loan: %v", err)
	}
}

func TestRecordPayment_FailedPaymentsDoNotCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.disbursedLoan(t, "2000", "0", 2)

	if _, err := env.loans.RecordPayment(ctx, loan.ID, &RecordPaymentRequest{Amount: dec("1000"), Status: model.PaymentStatusFailed}); err != nil {
		t.Fatal(err)
	}
	detail, _ := env.loans.Get(ctx, loan.ID)
	if detail.RemainingPayments != 2 || !detail.OutstandingAmount.Equal(dec("2000")) {
		t.Fatalf("remaining=%d outstanding=%s", detail.RemainingPayments, detail.OutstandingAmount)
	}
	if len(detail.Payments) != 1 {
		t.Fatalf("payments=%d want 1", len(detail.Payments))
	}
}

func TestRecordPayment_RejectedBeforeDisbursement(t *testing.T) {
	env := newTestEnv(t)
	loan := env.loan(t, "1000", "5", 3)
	_, err := env.loans.RecordPayment(context.Background(), loan.ID, &RecordPaymentRequest{Amount: dec("10")})
	if !errors.Is(err, model.ErrInvalidStateTransition) {
		t.Fatalf("want ErrInvalidStateTransition, got %v", err)
	}
}

func TestTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.disbursedLoan(t, "1000", "5", 3)

	steps := []struct {
		to   string
		want error
	}{
		{model.LoanStatusActive, nil},
		{model.LoanStatusOverdue, nil},
		{model.LoanStatusActive, nil},
		{model.LoanStatusClosed, model.ErrInvalidStateTransition},
		{model.LoanStatusWrittenOff, nil},
		{model.LoanStatusActive, model.ErrInvalidStateTransition},
		{model.LoanStatusClosed, nil},
		{"bogus", model.ErrInvalidEnum},
	}
	for _, s := range steps {
		_, err := env.loans.Transition(ctx, loan.ID, s.to, "")
		if s.want == nil && err != nil {
			t.Fatalf("-> %s: %v", s.to, err)
		}
		if s.want != nil && !errors.Is(err, s.want) {
			t.Fatalf("-> %s: want %v, got %v", s.to, s.want, err)
		}
	}
}

func TestLoanDetail_Metrics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	loan := env.disbursedLoan(t, "150000", "6", 12)

	detail, err := env.loans.Get(ctx, loan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !detail.LTVRatio.IsZero() {
		t.Fatalf("LTV without collateral=%s want 0", detail.LTVRatio)
	}
	if day(detail.MaturityDate) != "2026-12-27" {
		t.Fatalf("maturity=%s want 2026-12-27", day(detail.MaturityDate))
	}

	for _, v := range []string{"120000", "80000"} {
		if _, err := env.loans.AddCollateral(ctx, loan.ID, &AddCollateralRequest{Description: "property", Value: dec(v)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.loans.AddCollateral(ctx, loan.ID, &AddCollateralRequest{Description: "x", Value: dec("-1")}); !errors.Is(err, model.ErrOutOfRangeValue) {
		t.Fatalf("negative collateral: %v", err)
	}

	detail, _ = env.loans.Get(ctx, loan.ID)
	if !detail.TotalCollateralValue.Equal(dec("200000")) || !detail.LTVRatio.Equal(dec("75")) {
		t.Fatalf("collateral=%s ltv=%s", detail.TotalCollateralValue, detail.LTVRatio)
	}

	// 下次还款日是放款当天，一天后逾期 1 天
	env.loans.now = func() time.Time { return fixedNow.AddDate(0, 0, 1) }
	detail, _ = env.loans.Get(ctx, loan.ID)
	if detail.DaysOverdue != 1 {
		t.Fatalf("days_overdue=%d want 1", detail.DaysOverdue)
	}
}
