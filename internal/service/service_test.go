package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bankcore/internal/infrastructure/database"
	"bankcore/internal/infrastructure/lock"
	"bankcore/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)

// fakeSeq 按序号生成编号，fail 为 true 时模拟生成器故障
type fakeSeq struct {
	mu   sync.Mutex
	n    int
	fail bool
}

func (f *fakeSeq) Next(_ context.Context, series string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("sequence unavailable")
	}
	f.n++
	return fmt.Sprintf("%s-%04d", series, f.n), nil
}

type testEnv struct {
	db           *gorm.DB
	seq          *fakeSeq
	audit        *OutboxAuditLog
	customers    *CustomerService
	accounts     *AccountService
	transactions *TransactionService
	loans        *LoanService
	dashboard    *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenSQLiteMemory(t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := lock.NewAccountLocker(client, 5*time.Second, 2*time.Millisecond, 5000)

	seq := &fakeSeq{}
	audit := NewOutboxAuditLog(db, "bank.audit")
	env := &testEnv{
		db:           db,
		seq:          seq,
		audit:        audit,
		customers:    NewCustomerService(db, seq, audit, 2),
		accounts:     NewAccountService(db, locker, seq, audit, "USD", 2),
		transactions: NewTransactionService(db, locker, seq, audit, 2),
		loans:        NewLoanService(db, seq, audit, "USD", 2),
		dashboard:    NewDashboardService(db),
	}
	now := func() time.Time { return fixedNow }
	env.customers.now = now
	env.accounts.now = now
	env.transactions.now = now
	env.loans.now = now
	audit.now = now
	return env
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (e *testEnv) customer(t *testing.T) *model.Customer {
	t.Helper()
	c, err := e.customers.Create(context.Background(), &CreateCustomerRequest{Name: "Ada Lovelace", Segment: model.SegmentRetail})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return c
}

func (e *testEnv) account(t *testing.T, minimum, overdraft string) *model.Account {
	t.Helper()
	c := e.customer(t)
	a, err := e.accounts.Create(context.Background(), &CreateAccountRequest{
		CustomerID:     c.ID,
		AccountType:    model.AccountTypeSavings,
		MinimumBalance: dec(minimum),
		OverdraftLimit: dec(overdraft),
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func (e *testEnv) post(accountID int64, txType, amount, status string) (*model.Transaction, error) {
	category := model.CategoryDeposit
	if txType == model.TransactionTypeDebit {
		category = model.CategoryWithdrawal
	}
	return e.transactions.Create(context.Background(), &CreateTransactionRequest{
		AccountID:   accountID,
		Type:        txType,
		Category:    category,
		Amount:      dec(amount),
		Description: "test posting",
		Status:      status,
	})
}

func (e *testEnv) mustPost(t *testing.T, accountID int64, txType, amount string) *model.Transaction {
	t.Helper()
	trans, err := e.post(accountID, txType, amount, "")
	if err != nil {
		t.Fatalf("post %s %s: %v", txType, amount, err)
	}
	return trans
}

func (e *testEnv) balance(t *testing.T, accountID int64) (decimal.Decimal, decimal.Decimal) {
	t.Helper()
	a, err := e.accounts.Get(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance, a.AvailableBalance
}
