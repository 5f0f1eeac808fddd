package service

import (
	"errors"
	"fmt"

	"bankledger/internal/repository"
	"bankledger/internal/security"
)

// 账本错误分类，调用方用 errors.Is 判断
var (
	ErrNotFound             = errors.New("账户不存在")
	ErrDuplicateKey         = errors.New("账号重复")
	ErrInvalidFormat        = errors.New("参数格式错误")
	ErrPinMismatch          = security.ErrPinMismatch
	ErrInsufficientFunds    = errors.New("余额不足")
	ErrInvalidTarget        = errors.New("收款账户不合法")
	ErrAllocationExhausted  = errors.New("账号分配失败，重试次数已用完")
	ErrTransactionAborted   = errors.New("事务冲突，请重试")
	ErrStoreUnavailable     = errors.New("存储不可用")
	ErrConfirmationRequired = errors.New("删除账户需要确认")
)

// 具体的格式错误，均可 errors.Is(err, ErrInvalidFormat)
var (
	ErrInvalidName      = fmt.Errorf("%w: 户名只能包含字母和空格，长度2-100", ErrInvalidFormat)
	ErrInvalidEmail     = fmt.Errorf("%w: 邮箱格式不正确", ErrInvalidFormat)
	ErrInvalidPinFormat = fmt.Errorf("%w: PIN 必须为4位数字", ErrInvalidFormat)
	ErrInvalidAmount    = fmt.Errorf("%w: 金额不合法", ErrInvalidFormat)
	ErrInvalidAccountNo = fmt.Errorf("%w: 账号必须为12位数字", ErrInvalidFormat)
)

// mapStoreError 把仓储层、PIN 校验的错误映射为账本错误
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrAccountNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrBalanceNotEnough):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case errors.Is(err, repository.ErrDuplicateKey):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case errors.Is(err, repository.ErrTxConflict):
		return fmt.Errorf("%w: %w", ErrTransactionAborted, err)
	case errors.Is(err, repository.ErrStoreUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case errors.Is(err, security.ErrInvalidPinFormat):
		return ErrInvalidPinFormat
	}
	return err
}
