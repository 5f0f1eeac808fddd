package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"bankledger/internal/config"
	"bankledger/internal/model"
	"bankledger/internal/repository"
	"bankledger/internal/security"
	"bankledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z ]{2,100}$`)
	emailPattern = regexp.MustCompile(`^[\w.%+-]+@[\w.-]+\.[A-Za-z]{2,}$`)
)

const initialDepositRemark = "Initial deposit"

// AccountStore 账户仓储
type AccountStore interface {
	Exists(ctx context.Context, tx *gorm.DB, accountNo string) (bool, error)
	Get(ctx context.Context, tx *gorm.DB, accountNo string) (*model.Account, error)
	GetForUpdate(ctx context.Context, tx *gorm.DB, accountNo string) (*model.Account, error)
	GetBalance(ctx context.Context, tx *gorm.DB, accountNo string) (decimal.Decimal, error)
	GetProfile(ctx context.Context, accountNo string) (*model.AccountProfile, error)
	Insert(ctx context.Context, tx *gorm.DB, account *model.Account) error
	AdjustBalance(ctx context.Context, tx *gorm.DB, accountNo string, delta decimal.Decimal) error
	Delete(ctx context.Context, tx *gorm.DB, accountNo string) error
}

// TransactionLog 流水仓储
type TransactionLog interface {
	Append(ctx context.Context, tx *gorm.DB, accountNo, txType string, amount, balanceAfter decimal.Decimal, remark string) (*model.Transaction, error)
	ListByAccount(ctx context.Context, accountNo string, offset, limit int) ([]*model.Transaction, error)
}

// Dependencies LedgerService 的协作者
type Dependencies struct {
	Accounts     AccountStore
	Transactions TransactionLog
	Allocator    *AccountNumberAllocator
	Notifier     Notifier
	Logger       *zap.Logger
}

// LedgerService 账本核心
//
// 每个操作只开一个数据库事务，提交或整体回滚；并发控制交给数据库的行锁，
// 进程内不再加锁
type LedgerService struct {
	db            *gorm.DB
	accounts      AccountStore
	transactions  TransactionLog
	allocator     *AccountNumberAllocator
	notifier      Notifier
	log           *zap.Logger
	ifsc          string
	createRetries int
	pageSize      int
}

// NewLedgerService 用默认仓储装配账本服务
func NewLedgerService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, log *zap.Logger) *LedgerService {
	accounts := repository.NewAccountRepository(db)
	ttl := time.Duration(cfg.Ledger.ReservationTTLSeconds) * time.Second
	return NewLedgerServiceWith(db, Dependencies{
		Accounts:     accounts,
		Transactions: repository.NewTransactionRepository(db),
		Allocator:    NewAccountNumberAllocator(accounts, rdb, cfg.Ledger.MaxAllocationAttempts, ttl, log),
		Notifier:     NewOutboxNotifier(repository.NewOutboxRepository(db), cfg.Kafka.Topic.Notification, log),
		Logger:       log,
	}, cfg.Ledger)
}

// NewLedgerServiceWith 使用给定协作者装配账本服务
func NewLedgerServiceWith(db *gorm.DB, deps Dependencies, cfg config.LedgerConfig) *LedgerService {
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &LedgerService{
		db:            db,
		accounts:      deps.Accounts,
		transactions:  deps.Transactions,
		allocator:     deps.Allocator,
		notifier:      deps.Notifier,
		log:           deps.Logger,
		ifsc:          cfg.IFSC,
		createRetries: max(cfg.CreateRetries, 1),
		pageSize:      max(cfg.StatementPageSize, 1),
	}
}

// ============================================================================
// 参数校验
// ============================================================================

func validateAccountNo(accountNo string) error {
	if !idgen.ValidAccountNumber(accountNo) {
		return ErrInvalidAccountNo
	}
	return nil
}

func validatePin(pin string) error {
	if !security.ValidFormat(pin) {
		return ErrInvalidPinFormat
	}
	return nil
}

// validateAmount 金额必须为正，最多两位小数
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// ============================================================================
// 开户
// ============================================================================

type CreateAccountRequest struct {
	HolderName     string
	Email          string
	Pin            string
	InitialDeposit decimal.Decimal
}

func (r *CreateAccountRequest) Validate() error {
	if !namePattern.MatchString(r.HolderName) {
		return ErrInvalidName
	}
	if !emailPattern.MatchString(r.Email) {
		return ErrInvalidEmail
	}
	if err := validatePin(r.Pin); err != nil {
		return err
	}
	if r.InitialDeposit.IsNegative() || !r.InitialDeposit.Equal(r.InitialDeposit.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// CreateAccount 开户，返回新账号
//
// 分配账号在事务之外完成；插入账户与初始存款流水在同一个事务内，
// 任何一步失败都不会留下半个账户。主键冲突时重新分配账号再试
func (s *LedgerService) CreateAccount(ctx context.Context, req CreateAccountRequest) (accountNo string, err error) {
	defer func() { observe("create_account", err) }()

	if err := req.Validate(); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= s.createRetries; attempt++ {
		candidate, release, err := s.allocator.Allocate(ctx)
		if err != nil {
			return "", err
		}

		err = s.insertAccount(ctx, candidate, req)
		release()
		if err == nil {
			s.log.Info("开户成功",
				zap.String("account_no", candidate),
				zap.String("initial_deposit", req.InitialDeposit.String()))
			s.notifier.Notify(ctx, req.Email, model.NotifyAccountCreated, map[string]any{
				"account_number":  candidate,
				"holder_name":     req.HolderName,
				"ifsc":            s.ifsc,
				"initial_deposit": req.InitialDeposit,
			})
			return candidate, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return "", err
		}

		lastErr = err
		s.log.Warn("账号冲突，重新分配", zap.String("account_no", candidate), zap.Int("attempt", attempt))
	}
	return "", lastErr
}

func (s *LedgerService) insertAccount(ctx context.Context, accountNo string, req CreateAccountRequest) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account := &model.Account{
			AccountNo:  accountNo,
			HolderName: req.HolderName,
			Email:      req.Email,
			Pin:        req.Pin,
			IFSC:       s.ifsc,
			Balance:    req.InitialDeposit,
		}
		if err := s.accounts.Insert(ctx, tx, account); err != nil {
			return fmt.Errorf("创建账户失败: %w", err)
		}

		if req.InitialDeposit.IsPositive() {
			_, err := s.transactions.Append(ctx, tx, accountNo, model.TransactionTypeDeposit,
				req.InitialDeposit, req.InitialDeposit, initialDepositRemark)
			if err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}
		return nil
	})
	return mapStoreError(err)
}

// ============================================================================
// 存款 / 取款
// ============================================================================

// Deposit 存款，返回新余额；不校验 PIN
func (s *LedgerService) Deposit(ctx context.Context, accountNo string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	defer func() { observe("deposit", err) }()

	if err := validateAccountNo(accountNo); err != nil {
		return decimal.Zero, err
	}
	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var email string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountNo)
		if err != nil {
			return err
		}
		email = account.Email

		if err := s.accounts.AdjustBalance(ctx, tx, accountNo, amount); err != nil {
			return fmt.Errorf("入账失败: %w", err)
		}
		balance, err = s.accounts.GetBalance(ctx, tx, accountNo)
		if err != nil {
			return err
		}
		if _, err := s.transactions.Append(ctx, tx, accountNo, model.TransactionTypeDeposit, amount, balance, ""); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, mapStoreError(err)
	}

	s.log.Info("存款成功",
		zap.String("account_no", accountNo),
		zap.String("amount", amount.String()),
		zap.String("balance_after", balance.String()))
	s.notifier.Notify(ctx, email, model.NotifyDeposit, map[string]any{
		"account_number": accountNo,
		"amount":         amount,
		"balance":        balance,
	})
	return balance, nil
}

// Withdraw 取款，返回新余额
//
// 余额检查与扣减是同一条条件更新语句，余额不足时不做任何修改
func (s *LedgerService) Withdraw(ctx context.Context, accountNo, pin string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	defer func() { observe("withdraw", err) }()

	if err := validateAccountNo(accountNo); err != nil {
		return decimal.Zero, err
	}
	if err := validatePin(pin); err != nil {
		return decimal.Zero, err
	}
	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var email string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountNo)
		if err != nil {
			return err
		}
		if err := security.Verify(pin, account.Pin); err != nil {
			return err
		}
		email = account.Email

		if err := s.accounts.AdjustBalance(ctx, tx, accountNo, amount.Neg()); err != nil {
			return fmt.Errorf("扣款失败: %w", err)
		}
		balance, err = s.accounts.GetBalance(ctx, tx, accountNo)
		if err != nil {
			return err
		}
		if _, err := s.transactions.Append(ctx, tx, accountNo, model.TransactionTypeWithdraw, amount, balance, ""); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, mapStoreError(err)
	}

	s.log.Info("取款成功",
		zap.String("account_no", accountNo),
		zap.String("amount", amount.String()),
		zap.String("balance_after", balance.String()))
	s.notifier.Notify(ctx, email, model.NotifyWithdraw, map[string]any{
		"account_number": accountNo,
		"amount":         amount,
		"balance":        balance,
	})
	return balance, nil
}

// ============================================================================
// 转账
// ============================================================================

type TransferRequest struct {
	From   string
	Pin    string
	To     string
	Amount decimal.Decimal
}

type TransferResult struct {
	From            string          `json:"from"`
	To              string          `json:"to"`
	Amount          decimal.Decimal `json:"amount"`
	SenderBalance   decimal.Decimal `json:"sender_balance"`
	ReceiverBalance decimal.Decimal `json:"receiver_balance"`
	ReceiverName    string          `json:"receiver_name"`
	ReceiverIFSC    string          `json:"receiver_ifsc"`
}

func (r *TransferRequest) Validate() error {
	if err := validateAccountNo(r.From); err != nil {
		return err
	}
	if err := validateAccountNo(r.To); err != nil {
		return err
	}
	if err := validatePin(r.Pin); err != nil {
		return err
	}
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	if r.From == r.To {
		return fmt.Errorf("%w: 不能转给自己", ErrInvalidTarget)
	}
	return nil
}

// Transfer 转账
//
// 【关键点】四步在同一个事务里完成：
//  1. 付款方条件扣款（余额不足则失败）
//  2. 收款方入账
//  3. 付款方 TRANSFER_OUT 流水
//  4. 收款方 TRANSFER_IN 流水
//
// 任一步失败整体回滚，不会出现单边到账或孤立流水。
// 两个账户按账号升序加行锁，避免 A→B 与 B→A 并发时互相等待
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (result *TransferResult, err error) {
	defer func() { observe("transfer", err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var sender, receiver *model.Account
	result = &TransferResult{From: req.From, To: req.To, Amount: req.Amount}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var senderErr, receiverErr error
		sender, receiver, senderErr, receiverErr = s.lockPair(ctx, tx, req.From, req.To)

		if senderErr != nil {
			return fmt.Errorf("付款账户: %w", senderErr)
		}
		if err := security.Verify(req.Pin, sender.Pin); err != nil {
			return err
		}
		if receiverErr != nil {
			return fmt.Errorf("收款账户: %w", receiverErr)
		}

		if err := s.accounts.AdjustBalance(ctx, tx, req.From, req.Amount.Neg()); err != nil {
			return fmt.Errorf("付款方扣款失败: %w", err)
		}
		if err := s.accounts.AdjustBalance(ctx, tx, req.To, req.Amount); err != nil {
			return fmt.Errorf("收款方入账失败: %w", err)
		}

		senderBalance, err := s.accounts.GetBalance(ctx, tx, req.From)
		if err != nil {
			return err
		}
		receiverBalance, err := s.accounts.GetBalance(ctx, tx, req.To)
		if err != nil {
			return err
		}

		if _, err := s.transactions.Append(ctx, tx, req.From, model.TransactionTypeTransferOut,
			req.Amount, senderBalance, "To "+req.To); err != nil {
			return fmt.Errorf("记录转出流水失败: %w", err)
		}
		if _, err := s.transactions.Append(ctx, tx, req.To, model.TransactionTypeTransferIn,
			req.Amount, receiverBalance, "From "+req.From); err != nil {
			return fmt.Errorf("记录转入流水失败: %w", err)
		}

		result.SenderBalance = senderBalance
		result.ReceiverBalance = receiverBalance
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	result.ReceiverName = receiver.HolderName
	result.ReceiverIFSC = receiver.IFSC

	s.log.Info("转账成功",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.String("amount", req.Amount.String()),
		zap.String("sender_balance", result.SenderBalance.String()),
		zap.String("receiver_balance", result.ReceiverBalance.String()))
	s.notifier.Notify(ctx, sender.Email, model.NotifyTransferOut, map[string]any{
		"account_number": req.From,
		"counterparty":   req.To,
		"amount":         req.Amount,
		"balance":        result.SenderBalance,
	})
	s.notifier.Notify(ctx, receiver.Email, model.NotifyTransferIn, map[string]any{
		"account_number": req.To,
		"counterparty":   req.From,
		"amount":         req.Amount,
		"balance":        result.ReceiverBalance,
	})
	return result, nil
}

// lockPair 按账号升序锁定付款方与收款方
//
// “账户不存在”按角色分别返回，由调用方决定检查顺序；其他存储错误直接中止
func (s *LedgerService) lockPair(ctx context.Context, tx *gorm.DB, from, to string) (sender, receiver *model.Account, senderErr, receiverErr error) {
	first, second := from, to
	if second < first {
		first, second = second, first
	}

	locked := make(map[string]*model.Account, 2)
	missing := make(map[string]error, 2)
	for _, accountNo := range []string{first, second} {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountNo)
		switch {
		case err == nil:
			locked[accountNo] = account
		case errors.Is(err, repository.ErrAccountNotFound):
			missing[accountNo] = err
		default:
			return nil, nil, err, err
		}
	}
	return locked[from], locked[to], missing[from], missing[to]
}

// ============================================================================
// 查询 / 删除
// ============================================================================

// ViewAccount 查看账户详情，不需要 PIN
func (s *LedgerService) ViewAccount(ctx context.Context, accountNo string) (profile *model.AccountProfile, err error) {
	defer func() { observe("view_account", err) }()

	if err := validateAccountNo(accountNo); err != nil {
		return nil, err
	}
	profile, err = s.accounts.GetProfile(ctx, accountNo)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return profile, nil
}

// DeleteAccount 删除账户，需要 PIN 与调用方确认
//
// 只删除账户行，历史流水保留
func (s *LedgerService) DeleteAccount(ctx context.Context, accountNo, pin string, confirmed bool) (err error) {
	defer func() { observe("delete_account", err) }()

	if err := validateAccountNo(accountNo); err != nil {
		return err
	}
	if err := validatePin(pin); err != nil {
		return err
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	var email string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, accountNo)
		if err != nil {
			return err
		}
		if err := security.Verify(pin, account.Pin); err != nil {
			return err
		}
		email = account.Email
		return s.accounts.Delete(ctx, tx, accountNo)
	})
	if err != nil {
		return mapStoreError(err)
	}

	s.log.Info("账户已删除", zap.String("account_no", accountNo))
	s.notifier.Notify(ctx, email, model.NotifyAccountDeleted, map[string]any{
		"account_number": accountNo,
	})
	return nil
}

// MiniStatement 校验 PIN 后返回账户流水（时间倒序）
func (s *LedgerService) MiniStatement(ctx context.Context, accountNo, pin string) (statement *Statement, err error) {
	defer func() { observe("mini_statement", err) }()

	if err := validateAccountNo(accountNo); err != nil {
		return nil, err
	}
	if err := validatePin(pin); err != nil {
		return nil, err
	}

	account, err := s.accounts.Get(ctx, nil, accountNo)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if err := security.Verify(pin, account.Pin); err != nil {
		return nil, mapStoreError(err)
	}

	return &Statement{
		AccountNo:    accountNo,
		transactions: s.transactions,
		pageSize:     s.pageSize,
	}, nil
}
