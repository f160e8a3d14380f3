package ledger

import (
	"time"

	"bankcore/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaturityDate = 放款日 + 期数 * 30 天，未放款时为 nil
func MaturityDate(disbursementDate *time.Time, termMonths int) *time.Time {
	if disbursementDate == nil || termMonths <= 0 {
		return nil
	}
	d := DateOf(*disbursementDate).AddDate(0, 0, termMonths*daysPerPeriod)
	return &d
}

func TotalCollateralValue(collateral []model.LoanCollateral) decimal.Decimal {
	total := decimal.Zero
	for _, c := range collateral {
		total = total.Add(c.Value)
	}
	return total
}

// LTVRatio 贷款价值比（百分比），没有抵押物时为 0
func LTVRatio(principal, collateralValue decimal.Decimal) decimal.Decimal {
	if !collateralValue.IsPositive() {
		return decimal.Zero
	}
	return principal.Div(collateralValue).Mul(hundred)
}

// DaysOverdue 下次还款日早于今天时返回逾期天数
func DaysOverdue(nextPaymentDate *time.Time, today time.Time) int {
	if nextPaymentDate == nil {
		return 0
	}
	next := DateOf(*nextPaymentDate)
	t := DateOf(today)
	if !next.Before(t) {
		return 0
	}
	return int(t.Sub(next).Hours() / 24)
}

// TotalPaid 只统计已完成的还款
func TotalPaid(payments []model.LoanPayment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == model.PaymentStatusCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total
}

func OutstandingAmount(principal decimal.Decimal, payments []model.LoanPayment) decimal.Decimal {
	return principal.Sub(TotalPaid(payments))
}

func CompletedPayments(payments []model.LoanPayment) int {
	n := 0
	for _, p := range payments {
		if p.Status == model.PaymentStatusCompleted {
			n++
		}
	}
	return n
}

func RemainingPayments(termMonths int, payments []model.LoanPayment) int {
	remaining := termMonths - CompletedPayments(payments)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextDueDate 下一期未还的应还日期；全部还清后返回 nil
func NextDueDate(schedule []model.RepaymentScheduleEntry, completedPayments int) *time.Time {
	for i := range schedule {
		if schedule[i].InstallmentNumber == completedPayments+1 {
			d := schedule[i].DueDate
			return &d
		}
	}
	return nil
}
