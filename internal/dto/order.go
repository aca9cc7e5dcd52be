package dto

import (
	"encoding/json"
	"time"

	"dc-purchase-api/internal/utils"
)

// CreateOrderReq 下单请求；usd 允许数字或字符串
type CreateOrderReq struct {
	Oui   int64                `json:"oui" binding:"required,gt=0"`
	Usd   utils.StringOrNumber `json:"usd" binding:"required,usdamount"`
	Email string               `json:"email" binding:"omitempty,email,max=255"`
}

type CreateOrderResp struct {
	OrderID         string  `json:"orderId"`
	CheckoutURL     string  `json:"checkoutUrl"`
	Payer           string  `json:"payer"`
	Escrow          string  `json:"escrow"`
	EscrowDcBalance *string `json:"escrowDcBalance"`
}

// OrderView 对外订单投影
type OrderView struct {
	OrderID               string          `json:"orderId"`
	Status                string          `json:"status"`
	Oui                   int64           `json:"oui"`
	Payer                 string          `json:"payer"`
	Escrow                string          `json:"escrow"`
	UsdRequested          string          `json:"usdRequested"`
	UsdcAmountReceived    *string         `json:"usdcAmountReceived"`
	HntAmountReceived     *string         `json:"hntAmountReceived"`
	DcMinted              *string         `json:"dcMinted"`
	DcDelegated           *string         `json:"dcDelegated"`
	CoinbaseTransactionID *string         `json:"coinbaseTransactionId"`
	Txs                   OrderTxsView    `json:"txs"`
	Error                 *OrderErrorView `json:"error"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

type OrderTxsView struct {
	UsdcSig     *string  `json:"usdcSig"`
	SwapSig     *string  `json:"swapSig"`
	MintSigs    []string `json:"mintSigs"`
	DelegateSig *string  `json:"delegateSig"`
}

type OrderErrorView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResolveOuiResp 受益方解析结果，余额读取失败时为 null
type ResolveOuiResp struct {
	Oui             int64   `json:"oui"`
	Payer           string  `json:"payer"`
	Escrow          string  `json:"escrow"`
	EscrowDcBalance *string `json:"escrowDcBalance"`
	Locked          bool    `json:"locked"`
}

type ResumeOrderResp struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// OrderEventView 审计事件，仅管理接口返回
type OrderEventView struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}
