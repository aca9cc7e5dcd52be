package ordermodel

import (
	"time"

	"github.com/shopspring/decimal"

	"dc-purchase-api/internal/constant"
)

// DcPurchaseOrder represents dc_purchase_orders.
// 除 id/created_at 与意图字段外，所有列只允许通过 repo.OrderRepo.UpdateStatus 修改。
type DcPurchaseOrder struct {
	ID             string               `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	CreatedAt      time.Time            `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;not null" json:"updatedAt"`
	Oui            int64                `gorm:"column:oui;not null;index" json:"oui"`
	Payer          string               `gorm:"column:payer;type:varchar(64);not null" json:"payer"`
	Escrow         string               `gorm:"column:escrow;type:varchar(64);not null" json:"escrow"`
	UsdRequested   decimal.Decimal      `gorm:"column:usd_requested;type:decimal(18,2);not null" json:"usdRequested"`
	Email          *string              `gorm:"column:email;type:varchar(255)" json:"email,omitempty"`
	Status         constant.OrderStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	PartnerUserRef string               `gorm:"column:partner_user_ref;type:varchar(48);not null;uniqueIndex" json:"partnerUserRef"`

	OnrampTransactionID *string             `gorm:"column:onramp_transaction_id;type:varchar(128)" json:"onrampTransactionId"`
	UsdcAmountReceived  decimal.NullDecimal `gorm:"column:usdc_amount_received;type:decimal(18,6)" json:"usdcAmountReceived"`
	UsdcSignature       *string             `gorm:"column:usdc_signature;type:varchar(128)" json:"usdcSignature"`
	HntAmountReceived   *string             `gorm:"column:hnt_amount_received;type:varchar(32)" json:"hntAmountReceived"` // HNT 最小单位 (1e-8)
	SwapQuoteJSON       *string             `gorm:"column:swap_quote_json;type:text" json:"swapQuoteJson"`
	SwapTxSig           *string             `gorm:"column:swap_tx_sig;type:varchar(128)" json:"swapTxSig"`
	MintTxSigs          SignatureList       `gorm:"column:mint_tx_sigs;type:text" json:"mintTxSigs"`
	DcMinted            *string             `gorm:"column:dc_minted;type:varchar(32)" json:"dcMinted"`
	DelegateTxSig       *string             `gorm:"column:delegate_tx_sig;type:varchar(128)" json:"delegateTxSig"`
	DcDelegated         *string             `gorm:"column:dc_delegated;type:varchar(32)" json:"dcDelegated"`
	ErrorCode           *string             `gorm:"column:error_code;type:varchar(64)" json:"errorCode"`
	ErrorMessage        *string             `gorm:"column:error_message;type:text" json:"errorMessage"`
}

func (DcPurchaseOrder) TableName() string { return "dc_purchase_orders" }

// HasError 订单是否处于带错误的挂起状态
func (o *DcPurchaseOrder) HasError() bool {
	return o.ErrorCode != nil && *o.ErrorCode != ""
}

// UsdcAmount 优先使用 webhook 上报的到账金额，否则回退到下单金额
func (o *DcPurchaseOrder) UsdcAmount() decimal.Decimal {
	if o.UsdcAmountReceived.Valid && o.UsdcAmountReceived.Decimal.IsPositive() {
		return o.UsdcAmountReceived.Decimal
	}
	return o.UsdRequested
}
