package ledger

import (
	"errors"
	"testing"
	"time"

	"bankcore/internal/model"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func txn(typ, amount, status string) model.Transaction {
	return model.Transaction{Type: typ, Amount: d(amount), Status: status}
}

func TestComputeBalance(t *testing.T) {
	tests := []struct {
		name string
		txns []model.Transaction
		want string
	}{
		{"no transactions", nil, "0"},
		{"credits only", []model.Transaction{
			txn(model.TransactionTypeCredit, "100.50", model.TransactionStatusCompleted),
			txn(model.TransactionTypeCredit, "20", model.TransactionStatusCompleted),
		}, "120.50"},
		{"mixed, every status counts", []model.Transaction{
			txn(model.TransactionTypeCredit, "500", model.TransactionStatusCompleted),
			txn(model.TransactionTypeDebit, "120.25", model.TransactionStatusPending),
			txn(model.TransactionTypeDebit, "79.75", model.TransactionStatusCancelled),
		}, "300"},
		{"overdrawn", []model.Transaction{
			txn(model.TransactionTypeCredit, "10", model.TransactionStatusCompleted),
			txn(model.TransactionTypeDebit, "60", model.TransactionStatusCompleted),
		}, "-50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBalance(tt.txns)
			if !got.Equal(d(tt.want)) {
				t.Fatalf("balance=%s want %s", got, tt.want)
			}
		})
	}
}

func TestComputeBalance_OrderIndependent(t *testing.T) {
	a := []model.Transaction{
		txn(model.TransactionTypeCredit, "300", ""),
		txn(model.TransactionTypeDebit, "45.10", ""),
		txn(model.TransactionTypeCredit, "12.05", ""),
	}
	b := []model.Transaction{a[2], a[0], a[1]}
	if !ComputeBalance(a).Equal(ComputeBalance(b)) {
		t.Fatalf("balance depends on order: %s vs %s", ComputeBalance(a), ComputeBalance(b))
	}
}

func TestAvailableBalance(t *testing.T) {
	if got := AvailableBalance(d("-20"), d("100")); !got.Equal(d("80")) {
		t.Fatalf("available=%s want 80", got)
	}
}

func TestBalanceAfter(t *testing.T) {
	if got := BalanceAfter(d("100"), model.TransactionTypeCredit, d("25")); !got.Equal(d("125")) {
		t.Errorf("credit balance_after=%s want 125", got)
	}
	if got := BalanceAfter(d("100"), model.TransactionTypeDebit, d("125")); !got.Equal(d("-25")) {
		t.Errorf("debit balance_after=%s want -25", got)
	}
}

func TestCheckSufficientFunds(t *testing.T) {
	avail := d("100")
	if err := CheckSufficientFunds(model.TransactionTypeDebit, model.TransactionStatusCompleted, d("100"), avail); err != nil {
		t.Errorf("debit equal to available should pass: %v", err)
	}
	err := CheckSufficientFunds(model.TransactionTypeDebit, model.TransactionStatusCompleted, d("100.01"), avail)
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Errorf("want ErrInsufficientFunds, got %v", err)
	}
	if err := CheckSufficientFunds(model.TransactionTypeDebit, model.TransactionStatusPending, d("1000"), avail); err != nil {
		t.Errorf("pending debit is not checked: %v", err)
	}
	if err := CheckSufficientFunds(model.TransactionTypeCredit, model.TransactionStatusCompleted, d("1000"), avail); err != nil {
		t.Errorf("credit is not checked: %v", err)
	}
}

// 最低余额比较账面余额：有透支额度也不能低于最低余额
func TestCheckMinimumBalance_IgnoresOverdraft(t *testing.T) {
	balance := d("40")
	minimum := d("50")
	overdraft := d("1000")

	if err := CheckSufficientFunds(model.TransactionTypeDebit, model.TransactionStatusCompleted, d("60"), AvailableBalance(d("100"), overdraft)); err != nil {
		t.Fatalf("debit within overdraft should pass funds check: %v", err)
	}
	if err := CheckMinimumBalance(balance, minimum); !errors.Is(err, model.ErrBelowMinimumBalance) {
		t.Fatalf("want ErrBelowMinimumBalance, got %v", err)
	}
	if err := CheckMinimumBalance(d("-500"), decimal.Zero); !errors.Is(err, model.ErrBelowMinimumBalance) {
		t.Fatalf("negative balance below a zero floor should fail, got %v", err)
	}
	if err := CheckMinimumBalance(d("50"), minimum); err != nil {
		t.Fatalf("balance equal to minimum should pass: %v", err)
	}
}

func TestLastTransactionDate(t *testing.T) {
	if LastTransactionDate(nil) != nil {
		t.Fatal("zero-transaction account must have no last transaction date")
	}
	t1 := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	got := LastTransactionDate([]model.Transaction{{Date: t2}, {Date: t1}})
	if got == nil || !got.Equal(t2) {
		t.Fatalf("last=%v want %v", got, t2)
	}
}

func TestValidatePosting(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		category string
		status   string
		amount   string
		wantErr  error
	}{
		{"ok", model.TransactionTypeDebit, model.CategoryWithdrawal, model.TransactionStatusCompleted, "1", nil},
		{"zero amount", model.TransactionTypeDebit, model.CategoryWithdrawal, "", "0", model.ErrInvalidAmount},
		{"negative amount", model.TransactionTypeCredit, model.CategoryDeposit, "", "-3", model.ErrInvalidAmount},
		{"bad type", "refund", model.CategoryDeposit, "", "3", model.ErrInvalidEnum},
		{"missing category", model.TransactionTypeCredit, "", "", "3", model.ErrInvalidEnum},
		{"bad status", model.TransactionTypeCredit, model.CategoryDeposit, "done", "3", model.ErrInvalidEnum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePosting(tt.typ, tt.category, tt.status, d(tt.amount))
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected err %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}
