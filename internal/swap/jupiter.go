package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/utils"
)

var (
	ErrQuoteFailed = errors.New("swap: quote failed")
	ErrBuildFailed = errors.New("swap: build transaction failed")
)

// Quote 聚合器报价。Raw 保留原始响应，构建交易时原样回传
type Quote struct {
	InputMint      string `json:"inputMint"`
	InAmount       string `json:"inAmount"`
	OutputMint     string `json:"outputMint"`
	OutAmount      string `json:"outAmount"`
	SlippageBps    int    `json:"slippageBps"`
	PriceImpactPct string `json:"priceImpactPct"`

	Raw json.RawMessage `json:"-"`
}

func (q Quote) MarshalJSON() ([]byte, error) {
	if len(q.Raw) == 0 {
		return []byte("null"), nil
	}
	return q.Raw, nil
}

func (q *Quote) String() string {
	return string(q.Raw)
}

type swapRequest struct {
	QuoteResponse             *Quote `json:"quoteResponse"`
	UserPublicKey             string `json:"userPublicKey"`
	WrapAndUnwrapSol          bool   `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool   `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// Client Jupiter 报价/构建交易客户端，无状态，不做内部重试
type Client struct {
	quoteURL string
	swapURL  string
	apiKey   string
	http     *http.Client
}

func NewClient(quoteURL, swapURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = utils.DefaultHTTPClient
	}
	return &Client{quoteURL: quoteURL, swapURL: swapURL, apiKey: apiKey, http: hc}
}

func NewFromConfig(c config.SwapCfg) *Client {
	return NewClient(c.QuoteURL, c.SwapURL, c.APIKey, nil)
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"x-api-key": c.apiKey}
}

func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps int) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint.String())
	q.Set("outputMint", outputMint.String())
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippageBps))

	raw, err := utils.DoJSON(ctx, c.http, http.MethodGet, c.quoteURL+"?"+q.Encode(), c.headers(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteFailed, err)
	}
	var quote Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrQuoteFailed, err)
	}
	if _, err := strconv.ParseUint(quote.OutAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: malformed outAmount %q", ErrQuoteFailed, quote.OutAmount)
	}
	quote.Raw = raw
	return &quote, nil
}

// BuildTransaction 把报价换成待签名交易，签名在调用方完成
func (c *Client) BuildTransaction(ctx context.Context, quote *Quote, user solana.PublicKey) (*solana.Transaction, error) {
	if quote == nil || len(quote.Raw) == 0 {
		return nil, fmt.Errorf("%w: empty quote", ErrBuildFailed)
	}
	req := swapRequest{
		QuoteResponse:             quote,
		UserPublicKey:             user.String(),
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	}
	var resp swapResponse
	if _, err := utils.DoJSON(ctx, c.http, http.MethodPost, c.swapURL, c.headers(), req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	if resp.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: missing swapTransaction", ErrBuildFailed)
	}
	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrBuildFailed, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrBuildFailed, err)
	}
	tx.Signatures = nil
	return tx, nil
}
