package database

import (
	"testing"

	"bankcore/internal/model"

	"gorm.io/gorm/logger"
)

func TestOpenSQLiteMemory_Migrates(t *testing.T) {
	db, err := OpenSQLiteMemory(t.Name())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for _, m := range []interface{}{
		&model.Customer{}, &model.Account{}, &model.Transaction{}, &model.Loan{},
		&model.RepaymentScheduleEntry{}, &model.LoanPayment{}, &model.LoanCollateral{}, &model.OutboxMessage{},
	} {
		if !db.Migrator().HasTable(m) {
			t.Errorf("table for %T missing", m)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"ERROR":  logger.Error,
		"info":   logger.Info,
		"":       logger.Warn,
		"warn":   logger.Warn,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q)=%v want %v", in, got, want)
		}
	}
}
