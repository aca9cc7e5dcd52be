package service

import (
	"errors"

	"dc-purchase-api/internal/repo"
)

var (
	ErrOrderNotFound = repo.ErrOrderNotFound
	ErrStaleStatus   = repo.ErrStaleStatus

	ErrInvalidAmount       = errors.New("amount out of range")
	ErrBeneficiaryNotFound = errors.New("beneficiary not found")
	ErrBeneficiaryLocked   = errors.New("beneficiary is locked")
	// ErrStatusRegression 目标状态早于当前状态
	ErrStatusRegression = errors.New("order status cannot move backwards")
	// ErrStatusSkip 按列名更新只能原地或前进一步
	ErrStatusSkip = errors.New("order status cannot skip states")
	// ErrOrderBusy 其他流程持有该订单的处理租约
	ErrOrderBusy = errors.New("order is being processed")
	// ErrInsufficientTreasury 金库余额不足以执行当前步骤
	ErrInsufficientTreasury = errors.New("treasury balance insufficient")
	ErrSwapExhausted        = errors.New("swap attempts exhausted")
)
