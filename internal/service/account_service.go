package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankcore/internal/ledger"
	"bankcore/internal/logger"
	"bankcore/internal/model"
	"bankcore/internal/repository"
	"bankcore/pkg/idgen"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AccountService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	customerRepo    *repository.CustomerRepository
	transactionRepo *repository.TransactionRepository
	locker          AccountLocker
	seq             SequenceGenerator
	audit           AuditLog
	defaultCurrency string
	clock
}

func NewAccountService(db *gorm.DB, locker AccountLocker, seq SequenceGenerator, audit AuditLog, defaultCurrency string, precision int32) *AccountService {
	return &AccountService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		customerRepo:    repository.NewCustomerRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		locker:          locker,
		seq:             seq,
		audit:           audit,
		defaultCurrency: defaultCurrency,
		clock:           newClock(precision),
	}
}

type CreateAccountRequest struct {
	CustomerID     int64           `json:"customer_id" binding:"required"`
	AccountType    string          `json:"account_type" binding:"required"`
	Currency       string          `json:"currency"`
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
}

type UpdateLimitsRequest struct {
	MinimumBalance decimal.Decimal `json:"minimum_balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
}

// AccountDetail 账户及派生字段
type AccountDetail struct {
	*model.Account
	TransactionCount    int        `json:"transaction_count"`
	LastTransactionDate *time.Time `json:"last_transaction_date"`
}

func validateLimits(minimumBalance, overdraftLimit decimal.Decimal) error {
	if minimumBalance.IsNegative() {
		return fmt.Errorf("%w: 最低余额不能为负", model.ErrOutOfRangeValue)
	}
	if overdraftLimit.IsNegative() {
		return fmt.Errorf("%w: 透支额度不能为负", model.ErrOutOfRangeValue)
	}
	return nil
}

// Create 开户。开户时余额为 0，不校验最低余额，第一笔记账后才开始校验
func (s *AccountService) Create(ctx context.Context, req *CreateAccountRequest) (*model.Account, error) {
	if req.AccountType == "" {
		return nil, fmt.Errorf("%w: account_type 不能为空", model.ErrInvalidEnum)
	}
	if err := model.ValidateEnum("account_type", req.AccountType, model.AccountTypes); err != nil {
		return nil, err
	}
	if err := validateLimits(req.MinimumBalance, req.OverdraftLimit); err != nil {
		return nil, err
	}
	if _, err := s.customerRepo.GetByID(ctx, nil, req.CustomerID); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	overdraft := s.round(req.OverdraftLimit)

	account := &model.Account{
		AccountNo:        assignNumber(ctx, s.seq, idgen.SeriesAccount),
		CustomerID:       req.CustomerID,
		AccountType:      req.AccountType,
		Currency:         currency,
		Balance:          decimal.Zero,
		AvailableBalance: ledger.AvailableBalance(decimal.Zero, overdraft),
		MinimumBalance:   s.round(req.MinimumBalance),
		OverdraftLimit:   overdraft,
		Status:           model.AccountStatusActive,
		OpeningDate:      s.today(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Create(ctx, tx, account); err != nil {
			return fmt.Errorf("创建账户失败: %w", err)
		}
		return s.audit.Append(ctx, tx, model.EntityAccount, account.ID, "账户开立")
	})
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Info().Int64("account_id", account.ID).Int64("customer_id", account.CustomerID).
		Str("account_no", deref(account.AccountNo)).Msg("账户开立")
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (*AccountDetail, error) {
	account, err := s.accountRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	txns, err := s.transactionRepo.ListForBalance(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	return &AccountDetail{
		Account:             account,
		TransactionCount:    len(txns),
		LastTransactionDate: ledger.LastTransactionDate(txns),
	}, nil
}

func (s *AccountService) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Account, error) {
	if _, err := s.customerRepo.GetByID(ctx, nil, customerID); err != nil {
		return nil, err
	}
	return s.accountRepo.ListByCustomerID(ctx, nil, customerID)
}

func (s *AccountService) ListTransactions(ctx context.Context, accountID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	if _, err := s.accountRepo.GetByID(ctx, nil, accountID); err != nil {
		return nil, 0, err
	}
	return s.transactionRepo.ListByAccountID(ctx, accountID, page, pageSize)
}

func (s *AccountService) Freeze(ctx context.Context, id int64, reason string) (*model.Account, error) {
	return s.changeStatus(ctx, id, model.AccountStatusFrozen, "账户冻结", reason)
}

// Unfreeze 只有冻结状态的账户可以解冻
func (s *AccountService) Unfreeze(ctx context.Context, id int64, reason string) (*model.Account, error) {
	return s.changeStatus(ctx, id, model.AccountStatusActive, "账户解冻", reason)
}

func (s *AccountService) changeStatus(ctx context.Context, id int64, target, action, reason string) (*model.Account, error) {
	var account *model.Account
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		from := account.Status
		if !model.CanAccountTransitionTo(from, target) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidStateTransition, from, target)
		}
		if err := s.accountRepo.UpdateStatus(ctx, tx, id, from, target); err != nil {
			return err
		}
		account.Status = target

		note := action
		if reason != "" {
			note = fmt.Sprintf("%s: %s", action, reason)
		}
		return s.audit.Append(ctx, tx, model.EntityAccount, id, note)
	})
	if err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Info().Int64("account_id", id).Str("status", target).Msg(action)
	return account, nil
}

// UpdateLimits 调整最低余额和透支额度，新的最低余额必须不高于当前余额
func (s *AccountService) UpdateLimits(ctx context.Context, id int64, req *UpdateLimitsRequest) (*model.Account, error) {
	if err := validateLimits(req.MinimumBalance, req.OverdraftLimit); err != nil {
		return nil, err
	}
	minimum := s.round(req.MinimumBalance)
	overdraft := s.round(req.OverdraftLimit)

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var account *model.Account
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.accountRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ledger.CheckMinimumBalance(account.Balance, minimum); err != nil {
			return err
		}
		available := ledger.AvailableBalance(account.Balance, overdraft)
		if err := s.accountRepo.UpdateLimits(ctx, tx, id, minimum, overdraft, available); err != nil {
			return fmt.Errorf("更新账户额度失败: %w", err)
		}
		account.MinimumBalance = minimum
		account.OverdraftLimit = overdraft
		account.AvailableBalance = available
		account.Version++

		return s.audit.Append(ctx, tx, model.EntityAccount, id,
			fmt.Sprintf("额度调整: 最低余额 %s, 透支额度 %s", minimum.String(), overdraft.String()))
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Delete 删除账户，账户下的流水一并删除
func (s *AccountService) Delete(ctx context.Context, id int64) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.GetByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if err := s.accountRepo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.audit.Append(ctx, tx, model.EntityAccount, id, "账户删除")
	})
	if err != nil {
		return err
	}

	l := logger.FromContext(ctx)
	l.Info().Int64("account_id", id).Msg("账户删除")
	return nil
}

// lock 获取账户锁，与记账共用同一把锁
func (s *AccountService) lock(ctx context.Context, accountID int64) (func(), error) {
	return lockAccount(ctx, s.locker, accountID)
}

func lockAccount(ctx context.Context, locker AccountLocker, accountID int64) (func(), error) {
	release, err := locker.LockAccount(ctx, accountID, uuid.NewString())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return func() {
		// 请求的 ctx 可能已取消，释放锁不受影响
		if err := release(context.Background()); err != nil {
			l := logger.FromContext(ctx)
			l.Warn().Err(err).Int64("account_id", accountID).Msg("释放账户锁失败")
		}
	}, nil
}
