package model

import "errors"

// 业务规则错误。上层通过 errors.Is 判断并映射为响应码，
// 这些错误是终态的，核心逻辑不会自动重试。
var (
	ErrInvalidAmount          = errors.New("金额必须大于0")
	ErrInsufficientFunds      = errors.New("可用余额不足")
	ErrBelowMinimumBalance    = errors.New("余额低于最低余额")
	ErrInvalidStateTransition = errors.New("状态流转不合法")
	ErrOutOfRangeValue        = errors.New("取值超出允许范围")
	ErrAccountNotOperational  = errors.New("账户当前状态不允许记账")
	ErrInvalidEnum            = errors.New("枚举取值不合法")
)
