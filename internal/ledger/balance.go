// Package ledger 包含账户余额和贷款摊还的纯计算逻辑，不访问数据库。
// 服务层在每次变更后显式调用这些函数重新计算派生字段。
package ledger

import (
	"fmt"
	"time"

	"bankcore/internal/model"

	"github.com/shopspring/decimal"
)

// ComputeBalance 汇总账户全部流水：贷记加，借记减
//
// 不区分流水状态，也与流水顺序无关。
func ComputeBalance(txns []model.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, t := range txns {
		switch t.Type {
		case model.TransactionTypeCredit:
			balance = balance.Add(t.Amount)
		case model.TransactionTypeDebit:
			balance = balance.Sub(t.Amount)
		}
	}
	return balance
}

// AvailableBalance = 余额 + 透支额度
func AvailableBalance(balance, overdraftLimit decimal.Decimal) decimal.Decimal {
	return balance.Add(overdraftLimit)
}

// BalanceAfter 本笔流水入账后的余额快照
func BalanceAfter(current decimal.Decimal, txType string, amount decimal.Decimal) decimal.Decimal {
	if txType == model.TransactionTypeCredit {
		return current.Add(amount)
	}
	return current.Sub(amount)
}

// CheckSufficientFunds 只有已完成的借记流水需要校验可用余额
func CheckSufficientFunds(txType, status string, amount, available decimal.Decimal) error {
	if txType != model.TransactionTypeDebit || status != model.TransactionStatusCompleted {
		return nil
	}
	if amount.GreaterThan(available) {
		return fmt.Errorf("%w: 可用 %s, 需要 %s", model.ErrInsufficientFunds, available.String(), amount.String())
	}
	return nil
}

// CheckMinimumBalance 比较的是账面余额而不是可用余额，
// 因此最低余额大于 0 的账户实际上用不到透支额度。
func CheckMinimumBalance(balance, minimumBalance decimal.Decimal) error {
	if balance.LessThan(minimumBalance) {
		return fmt.Errorf("%w: 余额 %s 低于最低余额 %s", model.ErrBelowMinimumBalance, balance.String(), minimumBalance.String())
	}
	return nil
}

// LastTransactionDate 没有流水时返回 nil
func LastTransactionDate(txns []model.Transaction) *time.Time {
	var last *time.Time
	for i := range txns {
		d := txns[i].Date
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	return last
}

// ValidatePosting 校验一笔流水的金额和枚举字段
func ValidatePosting(txType, category, status string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", model.ErrInvalidAmount, amount.String())
	}
	if txType == "" {
		return fmt.Errorf("%w: type 不能为空", model.ErrInvalidEnum)
	}
	if err := model.ValidateEnum("type", txType, model.TransactionTypes); err != nil {
		return err
	}
	if category == "" {
		return fmt.Errorf("%w: category 不能为空", model.ErrInvalidEnum)
	}
	if err := model.ValidateEnum("category", category, model.TransactionCategories); err != nil {
		return err
	}
	return model.ValidateEnum("status", status, model.TransactionStatuses)
}
