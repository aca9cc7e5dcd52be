package onramp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/utils"
)

// ErrNotConfigured 缺少 CDP 凭证，调用方应回退到订单状态页
var ErrNotConfigured = errors.New("onramp: credentials not configured")

type SessionRequest struct {
	DestinationWallet string
	PartnerUserRef    string
	FiatAmount        decimal.Decimal
	ClientIP          string
	RedirectURL       string
}

// Gateway 支付入口：创建托管结账会话并校验回调签名
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (string, error)
	VerifyInboundSignature(timestamp string, body []byte, signature string) bool
}

type destinationWallet struct {
	Address     string   `json:"address"`
	Assets      []string `json:"assets"`
	Blockchains []string `json:"blockchains"`
}

type sessionBody struct {
	ProjectID          string              `json:"projectId,omitempty"`
	DestinationWallets []destinationWallet `json:"destinationWallets"`
	PartnerUserRef     string              `json:"partnerUserRef"`
	PresetFiatAmount   float64             `json:"presetFiatAmount"`
	FiatCurrency       string              `json:"fiatCurrency"`
	RedirectURL        string              `json:"redirectUrl"`
}

type sessionResp struct {
	Session struct {
		URL       string `json:"url"`
		OnrampURL string `json:"onrampUrl"`
	} `json:"session"`
}

// Client Coinbase onramp 客户端
type Client struct {
	keyID         string
	keySecret     string
	projectID     string
	sessionURL    string
	webhookSecret string
	http          *http.Client
	now           func() time.Time
}

func NewClient(c config.OnrampCfg, webhookSecret string, hc *http.Client) *Client {
	if hc == nil {
		hc = utils.DefaultHTTPClient
	}
	return &Client{
		keyID:         c.APIKeyID,
		keySecret:     c.APIKeySecret,
		projectID:     c.ProjectID,
		sessionURL:    c.SessionURL,
		webhookSecret: webhookSecret,
		http:          hc,
		now:           time.Now,
	}
}

// CreateCheckoutSession 返回托管支付页地址
func (c *Client) CreateCheckoutSession(ctx context.Context, req SessionRequest) (string, error) {
	if c.keyID == "" || c.keySecret == "" {
		return "", ErrNotConfigured
	}
	u, err := url.Parse(c.sessionURL)
	if err != nil {
		return "", fmt.Errorf("parse session url: %w", err)
	}
	token, err := BuildCDPToken(c.keyID, c.keySecret, http.MethodPost, u.Host, u.Path, c.now())
	if err != nil {
		return "", fmt.Errorf("build cdp token: %w", err)
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	if req.ClientIP != "" {
		headers["CB-CLIENT-IP"] = req.ClientIP
	}
	body := sessionBody{
		ProjectID: c.projectID,
		DestinationWallets: []destinationWallet{{
			Address:     req.DestinationWallet,
			Assets:      []string{"USDC"},
			Blockchains: []string{"solana"},
		}},
		PartnerUserRef:   req.PartnerUserRef,
		PresetFiatAmount: req.FiatAmount.InexactFloat64(),
		FiatCurrency:     "USD",
		RedirectURL:      req.RedirectURL,
	}

	var resp sessionResp
	if _, err := utils.DoJSON(ctx, c.http, http.MethodPost, c.sessionURL, headers, body, &resp); err != nil {
		return "", fmt.Errorf("create onramp session: %w", err)
	}
	if resp.Session.URL != "" {
		return resp.Session.URL, nil
	}
	if resp.Session.OnrampURL != "" {
		return resp.Session.OnrampURL, nil
	}
	return "", errors.New("create onramp session: response has no url")
}

// VerifyInboundSignature 校验 webhook 的 HMAC-SHA256 签名
func (c *Client) VerifyInboundSignature(timestamp string, body []byte, signature string) bool {
	return utils.VerifyWebhookSign(c.webhookSecret, timestamp, body, signature)
}
