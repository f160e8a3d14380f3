package model

import (
	"errors"
	"testing"
	"time"
)

func TestCanLoanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{LoanStatusDraft, LoanStatusApproved, true},
		{LoanStatusDraft, LoanStatusDisbursed, false},
		{LoanStatusApproved, LoanStatusDisbursed, true},
		{LoanStatusDisbursed, LoanStatusDisbursed, false},
		{LoanStatusDisbursed, LoanStatusActive, true},
		{LoanStatusOverdue, LoanStatusActive, true},
		{LoanStatusPaidOff, LoanStatusClosed, true},
		{LoanStatusActive, LoanStatusClosed, false},
		{LoanStatusClosed, LoanStatusActive, false},
	}
	for _, tt := range tests {
		if got := CanLoanTransitionTo(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAccountTransitions(t *testing.T) {
	if !CanAccountTransitionTo(AccountStatusActive, AccountStatusFrozen) {
		t.Error("active accounts can be frozen")
	}
	if CanAccountTransitionTo(AccountStatusClosed, AccountStatusFrozen) {
		t.Error("closed accounts cannot be frozen")
	}
	if CanAccountTransitionTo(AccountStatusActive, AccountStatusActive) {
		t.Error("unfreeze requires a frozen account")
	}
	if AcceptsPostings(AccountStatusFrozen) || !AcceptsPostings(AccountStatusDormant) {
		t.Error("unexpected postings policy")
	}
}

func TestTransactionTransitions(t *testing.T) {
	if CanTransactionTransitionTo(TransactionStatusCompleted, TransactionStatusCancelled) {
		t.Error("completed transactions cannot be cancelled")
	}
	if !CanTransactionTransitionTo(TransactionStatusPending, TransactionStatusCancelled) {
		t.Error("pending transactions can be cancelled")
	}
}

func TestValidateCreditScore(t *testing.T) {
	for _, s := range []int{300, 640, 850} {
		if err := ValidateCreditScore(s); err != nil {
			t.Errorf("score %d: %v", s, err)
		}
	}
	for _, s := range []int{0, 299, 851} {
		if err := ValidateCreditScore(s); !errors.Is(err, ErrOutOfRangeValue) {
			t.Errorf("score %d: want ErrOutOfRangeValue, got %v", s, err)
		}
	}
}

func TestCustomerDisplayName(t *testing.T) {
	no := "CUS001"
	tests := []struct {
		c    Customer
		want string
	}{
		{Customer{}, "New Customer"},
		{Customer{Name: "Ada"}, "Ada"},
		{Customer{Name: "Ada", CustomerNo: &no}, "Ada (CUS001)"},
		{Customer{CustomerNo: &no}, "CUS001"},
	}
	for _, tt := range tests {
		if got := tt.c.DisplayName(); got != tt.want {
			t.Errorf("display=%q want %q", got, tt.want)
		}
	}
}

func TestCustomerSince(t *testing.T) {
	c := Customer{OnboardingDate: time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)}
	if got := c.CustomerSince(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)); got != 6 {
		t.Errorf("customer since=%d want 6", got)
	}
	if got := (&Customer{}).CustomerSince(time.Now()); got != 0 {
		t.Errorf("no onboarding date => %d", got)
	}
}

func TestValidateEnum(t *testing.T) {
	if err := ValidateEnum("segment", "", Segments); err != nil {
		t.Errorf("empty is allowed: %v", err)
	}
	if err := ValidateEnum("segment", "vip", Segments); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("want ErrInvalidEnum, got %v", err)
	}
}
