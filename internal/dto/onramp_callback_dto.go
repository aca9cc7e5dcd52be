package dto

import (
	"strings"

	"dc-purchase-api/internal/utils"
)

// OnrampWebhookPayload 兼容嵌套 data 与扁平两种回调格式
type OnrampWebhookPayload struct {
	Data *OnrampWebhookData `json:"data"`

	PartnerUserRef      string               `json:"partnerUserRef"`
	PartnerUserRefSnake string               `json:"partner_user_ref"`
	Status              string               `json:"status"`
	TransactionID       string               `json:"transaction_id"`
	CryptoAmount        utils.StringOrNumber `json:"crypto_amount"`
}

type OnrampWebhookData struct {
	PartnerUserRef string `json:"partner_user_ref"`
	Status         string `json:"status"`
	TransactionID  string `json:"transaction_id"`
	Crypto         *struct {
		Amount utils.StringOrNumber `json:"amount"`
	} `json:"crypto"`
}

func (p *OnrampWebhookPayload) Ref() string {
	if p.Data != nil && p.Data.PartnerUserRef != "" {
		return p.Data.PartnerUserRef
	}
	if p.PartnerUserRef != "" {
		return p.PartnerUserRef
	}
	return p.PartnerUserRefSnake
}

func (p *OnrampWebhookPayload) EventStatus() string {
	if p.Data != nil && p.Data.Status != "" {
		return p.Data.Status
	}
	return p.Status
}

// Completed 支付完成（不区分大小写）
func (p *OnrampWebhookPayload) Completed() bool {
	return strings.EqualFold(p.EventStatus(), "completed")
}

func (p *OnrampWebhookPayload) TxID() string {
	if p.Data != nil && p.Data.TransactionID != "" {
		return p.Data.TransactionID
	}
	return p.TransactionID
}

// UsdcAmount 到账 USDC 数量（人类可读单位），缺失时为空串
func (p *OnrampWebhookPayload) UsdcAmount() string {
	if p.Data != nil && p.Data.Crypto != nil && p.Data.Crypto.Amount != "" {
		return p.Data.Crypto.Amount.String()
	}
	return p.CryptoAmount.String()
}
