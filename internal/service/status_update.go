package service

import (
	"github.com/shopspring/decimal"

	"dc-purchase-api/internal/constant"
	ordermodel "dc-purchase-api/internal/model/order"
)

// StatusUpdate 一次状态写入：目标状态与随之写入的列。
// 方法不导出，只有本包内的变体可以写订单。
type StatusUpdate interface {
	target(current constant.OrderStatus) constant.OrderStatus
	columns() map[string]any
}

// OnrampStarted 收银台会话已生成
type OnrampStarted struct{}

func (OnrampStarted) target(constant.OrderStatus) constant.OrderStatus {
	return constant.StatusOnrampStarted
}
func (OnrampStarted) columns() map[string]any { return nil }

// PaymentConfirmed 入金回调确认付款完成
type PaymentConfirmed struct {
	TransactionID string
	UsdcAmount    decimal.NullDecimal
}

func (PaymentConfirmed) target(constant.OrderStatus) constant.OrderStatus {
	return constant.StatusPaymentConfirmed
}

func (u PaymentConfirmed) columns() map[string]any {
	cols := map[string]any{}
	if u.TransactionID != "" {
		cols["onramp_transaction_id"] = u.TransactionID
	}
	if u.UsdcAmount.Valid {
		cols["usdc_amount_received"] = u.UsdcAmount.Decimal
	}
	return cols
}

// UsdcVerified 金库已收到 USDC。Signature 为空时不写
type UsdcVerified struct {
	UsdcAmount decimal.Decimal
	Signature  string
}

func (UsdcVerified) target(constant.OrderStatus) constant.OrderStatus {
	return constant.StatusUsdcVerified
}

func (u UsdcVerified) columns() map[string]any {
	cols := map[string]any{"usdc_amount_received": u.UsdcAmount}
	if u.Signature != "" {
		cols["usdc_signature"] = u.Signature
	}
	return cols
}

// SwapCompleted USDC -> HNT 兑换完成，HntAmount 为 HNT 最小单位
type SwapCompleted struct {
	Signature string
	QuoteJSON string
	HntAmount uint64
}

func (SwapCompleted) target(constant.OrderStatus) constant.OrderStatus {
	return constant.StatusSwapping
}

func (u SwapCompleted) columns() map[string]any {
	return map[string]any{
		"swap_tx_sig":         u.Signature,
		"swap_quote_json":     u.QuoteJSON,
		"hnt_amount_received": formatUint(u.HntAmount),
	}
}

// MintCompleted HNT 已燃烧并铸造 DC
type MintCompleted struct {
	Existing   ordermodel.SignatureList
	Signatures []string
	DcMinted   uint64
}

func (MintCompleted) target(constant.OrderStatus) constant.OrderStatus {
	return constant.StatusMintingDC
}

func (u MintCompleted) columns() map[string]any {
	return map[string]any{
		"mint_tx_sigs": u.Existing.Append(u.Signatures...),
		"dc_minted":    formatUint(u.DcMinted),
	}
}

// DelegateCompleted DC 已委托到 OUI 托管账户
type DelegateCompleted struct {
	Signature   string
	DcDelegated uint64
}

func (DelegateCompleted) target(constant.OrderStatus) constant.OrderStatus {
	return constant.StatusDelegating
}

func (u DelegateCompleted) columns() map[string]any {
	return map[string]any{
		"delegate_tx_sig": u.Signature,
		"dc_delegated":    formatUint(u.DcDelegated),
	}
}

type Completed struct{}

func (Completed) target(constant.OrderStatus) constant.OrderStatus { return constant.StatusComplete }
func (Completed) columns() map[string]any                          { return nil }

// StepFailed 原地挂起：状态不变，记录错误
type StepFailed struct {
	Code    string
	Message string
}

func (StepFailed) target(cur constant.OrderStatus) constant.OrderStatus { return cur }

func (u StepFailed) columns() map[string]any {
	code := u.Code
	if code == "" {
		code = constant.ErrCodeProcessing
	}
	return map[string]any{"error_code": code, "error_message": u.Message}
}

// ErrorCleared 人工恢复前清除错误
type ErrorCleared struct{}

func (ErrorCleared) target(cur constant.OrderStatus) constant.OrderStatus { return cur }

func (ErrorCleared) columns() map[string]any {
	return map[string]any{"error_code": nil, "error_message": nil}
}

// clearingError 挂起过的订单推进成功时一并清除错误
type clearingError struct {
	StatusUpdate
}

func (u clearingError) columns() map[string]any {
	cols := map[string]any{"error_code": nil, "error_message": nil}
	for k, v := range u.StatusUpdate.columns() {
		cols[k] = v
	}
	return cols
}
