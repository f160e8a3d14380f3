package ledger

import (
	"time"

	"bankcore/internal/model"

	"github.com/shopspring/decimal"
)

const (
	// 月度日期按固定 30 天推进，不按自然月
	daysPerPeriod = 30

	// 计划生成过程中结转的余额保留的小数位，只有写入的字段才按币种精度舍入
	carryPrecision int32 = 16
)

var (
	percentPerMonth = decimal.NewFromInt(1200)
	one             = decimal.NewFromInt(1)
)

// MonthlyRate 年利率（百分比）换算为月利率
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(percentPerMonth)
}

// EMI 计算等额本息每期还款额（未舍入）
//
//	r > 0:  P * r * (1+r)^n / ((1+r)^n - 1)
//	r == 0: P / n
//
// 本金或期数缺失时返回 0。
func EMI(principal, annualRatePercent decimal.Decimal, termMonths int) decimal.Decimal {
	if !principal.IsPositive() || termMonths <= 0 {
		return decimal.Zero
	}
	r := MonthlyRate(annualRatePercent)
	if !r.IsPositive() {
		return principal.Div(decimal.NewFromInt(int64(termMonths)))
	}
	factor := powInt(one.Add(r), termMonths)
	return principal.Mul(r).Mul(factor).Div(factor.Sub(one))
}

// powInt 平方求幂，每步截断到 carryPrecision 位防止小数位无限增长
func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(carryPrecision)
		}
		base = base.Mul(base).Round(carryPrecision)
		n >>= 1
	}
	return result
}

// ScheduleInput 生成还款计划需要的参数
type ScheduleInput struct {
	LoanID            int64
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	TermMonths        int
	EMI               decimal.Decimal // 已按币种精度舍入后保存在贷款上的每期金额
	StartDate         time.Time
	Precision         int32
}

// GenerateSchedule 逐期拆分本金和利息
//
// 剩余本金按未截断的值结转到下一期计算利息；写入计划的剩余本金才截断为不小于 0。
// 当 EMI 偏大导致剩余本金提前变为负数时，后续期次的利息会是负数，这是预期行为。
func GenerateSchedule(in ScheduleInput) []model.RepaymentScheduleEntry {
	if in.TermMonths <= 0 {
		return nil
	}
	r := MonthlyRate(in.AnnualRatePercent)
	outstanding := in.Principal
	dueDate := DateOf(in.StartDate)

	entries := make([]model.RepaymentScheduleEntry, 0, in.TermMonths)
	for i := 1; i <= in.TermMonths; i++ {
		interest := outstanding.Mul(r).Round(carryPrecision)
		principalPart := in.EMI.Sub(interest)
		outstanding = outstanding.Sub(principalPart)

		stored := outstanding
		if stored.IsNegative() {
			stored = decimal.Zero
		}

		entries = append(entries, model.RepaymentScheduleEntry{
			LoanID:             in.LoanID,
			InstallmentNumber:  i,
			DueDate:            dueDate,
			PrincipalAmount:    principalPart.Round(in.Precision),
			InterestAmount:     interest.Round(in.Precision),
			TotalAmount:        in.EMI.Round(in.Precision),
			OutstandingBalance: stored.Round(in.Precision),
		})
		dueDate = dueDate.AddDate(0, 0, daysPerPeriod)
	}
	return entries
}

// ScheduleStartDate 首次还款日优先，否则从放款日开始
func ScheduleStartDate(firstPaymentDate, disbursementDate *time.Time) time.Time {
	if firstPaymentDate != nil {
		return DateOf(*firstPaymentDate)
	}
	if disbursementDate != nil {
		return DateOf(*disbursementDate)
	}
	return time.Time{}
}

// DateOf 截取到 UTC 零点
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
