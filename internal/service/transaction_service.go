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

type TransactionService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	locker          AccountLocker
	seq             SequenceGenerator
	audit           AuditLog
	clock
}

func NewTransactionService(db *gorm.DB, locker AccountLocker, seq SequenceGenerator, audit AuditLog, precision int32) *TransactionService {
	return &TransactionService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		locker:          locker,
		seq:             seq,
		audit:           audit,
		clock:           newClock(precision),
	}
}

type CreateTransactionRequest struct {
	AccountID           int64           `json:"account_id" binding:"required"`
	Type                string          `json:"type" binding:"required"`
	Category            string          `json:"category" binding:"required"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description" binding:"required"`
	Narration           string          `json:"narration"`
	Status              string          `json:"status"`
	Channel             string          `json:"channel"`
	ValueDate           *time.Time      `json:"value_date"`
	ExternalReference   string          `json:"external_reference"`
	CounterpartyAccount string          `json:"counterparty_account"`
	CounterpartyName    string          `json:"counterparty_name"`
	CounterpartyBank    string          `json:"counterparty_bank"`
}

// Create 记一笔流水
//
// 在账户锁内完成：读取当前余额 -> 可用余额校验 -> 计算 balance_after -> 写入流水
// -> 由全部流水重新汇总余额 -> 最低余额校验 -> 写回账户。任何一步失败整体回滚。
func (s *TransactionService) Create(ctx context.Context, req *CreateTransactionRequest) (*model.Transaction, error) {
	status := req.Status
	if status == "" {
		status = model.TransactionStatusCompleted
	}
	amount := s.round(req.Amount)
	if err := ledger.ValidatePosting(req.Type, req.Category, status, amount); err != nil {
		return nil, err
	}
	if err := model.ValidateEnum("channel", req.Channel, model.Channels); err != nil {
		return nil, err
	}

	unlock, err := lockAccount(ctx, s.locker, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	valueDate := ledger.DateOf(now)
	if req.ValueDate != nil {
		valueDate = ledger.DateOf(*req.ValueDate)
	}

	trans := &model.Transaction{
		Reference:           assignNumber(ctx, s.seq, idgen.SeriesTransaction),
		AccountID:           req.AccountID,
		Date:                now,
		ValueDate:           valueDate,
		Type:                req.Type,
		Category:            req.Category,
		Amount:              amount,
		Description:         req.Description,
		Narration:           req.Narration,
		Status:              status,
		Channel:             req.Channel,
		ExternalReference:   req.ExternalReference,
		CounterpartyAccount: req.CounterpartyAccount,
		CounterpartyName:    req.CounterpartyName,
		CounterpartyBank:    req.CounterpartyBank,
	}

	var balance decimal.Decimal
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if !model.AcceptsPostings(account.Status) {
			return fmt.Errorf("%w: 账户状态 %s", model.ErrAccountNotOperational, account.Status)
		}

		available := ledger.AvailableBalance(account.Balance, account.OverdraftLimit)
		if err := ledger.CheckSufficientFunds(trans.Type, trans.Status, trans.Amount, available); err != nil {
			return err
		}

		trans.CustomerID = account.CustomerID
		trans.Currency = account.Currency
		trans.BalanceAfter = ledger.BalanceAfter(account.Balance, trans.Type, trans.Amount)
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("写入流水失败: %w", err)
		}

		txns, err := s.transactionRepo.ListForBalance(ctx, tx, account.ID)
		if err != nil {
			return fmt.Errorf("汇总余额失败: %w", err)
		}
		balance = ledger.ComputeBalance(txns)
		if err := ledger.CheckMinimumBalance(balance, account.MinimumBalance); err != nil {
			return err
		}

		available = ledger.AvailableBalance(balance, account.OverdraftLimit)
		if err := s.accountRepo.UpdateBalance(ctx, tx, account.ID, account.Version, balance, available); err != nil {
			return fmt.Errorf("更新账户余额失败: %w", err)
		}

		return s.audit.Append(ctx, tx, model.EntityTransaction, trans.ID,
			fmt.Sprintf("%s %s %s，余额 %s", trans.Type, trans.Category, trans.Amount.String(), trans.BalanceAfter.String()))
	})
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Info().
		Int64("account_id", trans.AccountID).
		Int64("transaction_id", trans.ID).
		Str("type", trans.Type).
		Str("amount", trans.Amount.String()).
		Str("balance", balance.String()).
		Msg("记账成功")
	return trans, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*model.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, nil, id)
}

// Process 推进流水处理：pending 先进入 processing，processing 再完成
func (s *TransactionService) Process(ctx context.Context, id int64) (*model.Transaction, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		from := trans.Status
		switch from {
		case model.TransactionStatusPending:
			if err := s.transactionRepo.UpdateStatus(ctx, tx, id, model.TransactionStatusPending, model.TransactionStatusProcessing); err != nil {
				return err
			}
			if err := s.transactionRepo.UpdateStatus(ctx, tx, id, model.TransactionStatusProcessing, model.TransactionStatusCompleted); err != nil {
				return err
			}
		case model.TransactionStatusProcessing:
			if err := s.transactionRepo.UpdateStatus(ctx, tx, id, model.TransactionStatusProcessing, model.TransactionStatusCompleted); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: 流水状态 %s 不能处理", model.ErrInvalidStateTransition, from)
		}

		return s.audit.Append(ctx, tx, model.EntityTransaction, id,
			fmt.Sprintf("流水处理完成: %s -> %s", from, model.TransactionStatusCompleted))
	})
	if err != nil {
		return nil, err
	}
	return s.transactionRepo.GetByID(ctx, nil, id)
}

// Cancel 已完成、已取消、已失败的流水不能取消
func (s *TransactionService) Cancel(ctx context.Context, id int64, reason string) (*model.Transaction, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		trans, err := s.transactionRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.transactionRepo.UpdateStatus(ctx, tx, id, trans.Status, model.TransactionStatusCancelled); err != nil {
			return fmt.Errorf("流水状态 %s 不能取消: %w", trans.Status, err)
		}

		note := "流水取消"
		if reason != "" {
			note = fmt.Sprintf("流水取消: %s", reason)
		}
		return s.audit.Append(ctx, tx, model.EntityTransaction, id, note)
	})
	if err != nil {
		return nil, err
	}
	return s.transactionRepo.GetByID(ctx, nil, id)
}
