package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"dc-purchase-api/internal/chain"
	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/credits"
	"dc-purchase-api/internal/lock"
	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/metrics"
	ordermodel "dc-purchase-api/internal/model/order"
	"dc-purchase-api/internal/notify"
	"dc-purchase-api/internal/swap"
	"dc-purchase-api/internal/utils"
)

// ChainClient 由 *chain.Client 实现
type ChainClient interface {
	SubmitAndConfirm(ctx context.Context, tx *solana.Transaction, signers ...solana.PrivateKey) (solana.Signature, error)
	GetOwnerBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
}

// SwapProvider 由 *swap.Client 实现
type SwapProvider interface {
	GetQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps int) (*swap.Quote, error)
	BuildTransaction(ctx context.Context, quote *swap.Quote, user solana.PublicKey) (*solana.Transaction, error)
}

// CreditOperations 由 *credits.Operations 实现
type CreditOperations interface {
	MintCredits(ctx context.Context, treasury *chain.Treasury, hntAmount uint64) (*credits.MintResult, error)
	DelegateCredits(ctx context.Context, treasury *chain.Treasury, dcAmount uint64, routerKey string) (*credits.DelegateResult, error)
}

type ProcessorConfig struct {
	MaxIterations      int
	StepDelay          time.Duration
	LockTTL            time.Duration
	SlippageBps        int
	SwapAttempts       int
	SwapRetryDelay     time.Duration
	VerifyTreasuryUsdc bool
}

func ProcessorConfigFrom(c config.Root) ProcessorConfig {
	return ProcessorConfig{
		MaxIterations:      c.Order.MaxIterations,
		StepDelay:          time.Duration(c.Order.StepDelayMs) * time.Millisecond,
		LockTTL:            time.Duration(c.Order.LockTTLSec) * time.Second,
		SlippageBps:        c.Swap.SlippageBps,
		SwapAttempts:       c.Swap.MaxAttempts,
		SwapRetryDelay:     time.Duration(c.Swap.RetryDelayMs) * time.Millisecond,
		VerifyTreasuryUsdc: c.Solana.VerifyTreasuryUsdc,
	}
}

func (c *ProcessorConfig) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Minute
	}
	if c.SlippageBps <= 0 {
		c.SlippageBps = 100
	}
	if c.SwapAttempts <= 0 {
		c.SwapAttempts = 3
	}
}

type ProcessorDeps struct {
	Orders   *OrderService
	Chain    ChainClient
	Swap     SwapProvider
	Credits  CreditOperations
	Treasury *chain.Treasury
	Locker   lock.Locker
	Alerter  notify.Alerter
	Config   ProcessorConfig
	Log      *logrus.Logger
}

// Processor 订单状态机：payment_confirmed 之后的每一步链上操作
type Processor struct {
	orders   *OrderService
	chain    ChainClient
	swap     SwapProvider
	credits  CreditOperations
	treasury *chain.Treasury
	locker   lock.Locker
	alerter  notify.Alerter
	cfg      ProcessorConfig
	log      *logrus.Logger
}

func NewProcessor(d ProcessorDeps) *Processor {
	d.Config.applyDefaults()
	if d.Locker == nil {
		d.Locker = lock.Noop{}
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Alerter == nil {
		d.Alerter = notify.Nop{}
	}
	return &Processor{
		orders:   d.Orders,
		chain:    d.Chain,
		swap:     d.Swap,
		credits:  d.Credits,
		treasury: d.Treasury,
		locker:   d.Locker,
		alerter:  d.Alerter,
		cfg:      d.Config,
		log:      d.Log,
	}
}

// Drive 推进订单直到完成、出错挂起或没有可执行的迁移。
// 其他流程持有租约时直接返回。步骤失败会落在订单的 error 字段上，不作为返回值。
func (p *Processor) Drive(ctx context.Context, orderID string) error {
	release, ok, err := p.locker.Acquire(ctx, orderID, p.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire lease for %s: %w", orderID, err)
	}
	if !ok {
		p.log.WithField("order_id", orderID).Info("order is being processed elsewhere, skip")
		return nil
	}
	defer release()
	return p.loop(ctx, orderID)
}

// Resume 清除错误后重新驱动，返回驱动结束时的订单
func (p *Processor) Resume(ctx context.Context, orderID string) (*ordermodel.DcPurchaseOrder, error) {
	release, ok, err := p.locker.Acquire(ctx, orderID, p.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire lease for %s: %w", orderID, err)
	}
	if !ok {
		return nil, ErrOrderBusy
	}
	defer release()

	if err := p.orders.Update(ctx, orderID, ErrorCleared{}); err != nil {
		return nil, err
	}
	p.log.WithField("order_id", orderID).Info("order resumed")
	if err := p.loop(ctx, orderID); err != nil {
		return nil, err
	}
	return p.orders.GetOrder(ctx, orderID)
}

func (p *Processor) loop(ctx context.Context, orderID string) error {
	for i := 0; i < p.cfg.MaxIterations; i++ {
		o, err := p.orders.GetOrder(ctx, orderID)
		if errors.Is(err, ErrOrderNotFound) {
			p.log.WithField("order_id", orderID).Warn("order not found")
			return nil
		}
		if err != nil {
			return err
		}

		next, ok := o.Status.Next()
		if !ok {
			switch o.Status {
			case constant.StatusComplete, constant.StatusCreated, constant.StatusOnrampStarted:
			default:
				p.log.WithFields(logrus.Fields{"order_id": orderID, "status": o.Status}).Warn("unexpected status")
			}
			return nil
		}

		log := p.log.WithFields(logrus.Fields{"order_id": orderID, "status": o.Status, "next": next})
		log.Info("processing step")
		started := time.Now()
		upd, err := p.step(ctx, o)
		metrics.Default.StepDuration.WithLabelValues(string(o.Status)).Observe(time.Since(started).Seconds())
		if err != nil {
			p.hold(ctx, o, stepErrorCode(o.Status, err), err.Error())
			return nil
		}

		if o.HasError() {
			upd = clearingError{upd}
		}
		if err := p.orders.Apply(ctx, o, upd); err != nil {
			if errors.Is(err, ErrStaleStatus) {
				log.Info("order advanced concurrently, reloading")
				continue
			}
			return err
		}
		if next == constant.StatusComplete {
			log.Info("order complete")
			return nil
		}
		if err := sleepCtx(ctx, p.cfg.StepDelay); err != nil {
			return err
		}
	}

	p.log.WithFields(logrus.Fields{"order_id": orderID, "max_iterations": p.cfg.MaxIterations}).
		Error("iteration ceiling reached, a transition is not making progress")
	metrics.Default.IterationCeilingTotal.Inc()
	if o, err := p.orders.GetOrder(ctx, orderID); err == nil {
		p.hold(ctx, o, constant.ErrCodeMaxIterations,
			fmt.Sprintf("stopped after %d iterations", p.cfg.MaxIterations))
	}
	return nil
}

func (p *Processor) step(ctx context.Context, o *ordermodel.DcPurchaseOrder) (StatusUpdate, error) {
	switch o.Status {
	case constant.StatusPaymentConfirmed:
		return p.verifyUsdc(ctx, o)
	case constant.StatusUsdcVerified:
		return p.swapUsdc(ctx, o)
	case constant.StatusSwapping:
		return p.mint(ctx, o)
	case constant.StatusMintingDC:
		return p.delegate(ctx, o)
	case constant.StatusDelegating:
		return Completed{}, nil
	}
	return nil, fmt.Errorf("no step for status %s", o.Status)
}

// hold 原地挂起订单并记录 ERROR 事件；使用脱离调用方取消的 context 保证错误落库
func (p *Processor) hold(ctx context.Context, o *ordermodel.DcPurchaseOrder, code, msg string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	stage := o.Status
	metrics.Default.StepFailuresTotal.WithLabelValues(string(stage), code).Inc()
	p.log.WithFields(logrus.Fields{"order_id": o.ID, "status": stage, "code": code}).Errorf("step failed: %s", msg)

	if err := p.orders.Apply(ctx, o, StepFailed{Code: code, Message: msg}); err != nil {
		p.log.WithField("order_id", o.ID).Errorf("persist step error failed: %v", err)
	}
	if err := p.orders.RecordEvent(ctx, o.ID, constant.EventError, map[string]any{
		"stage":   stage,
		"code":    code,
		"message": msg,
	}); err != nil {
		p.log.WithField("order_id", o.ID).Errorf("record error event failed: %v", err)
	}
	notify.Async(p.alerter, "DC purchase order held", map[string]string{
		"order_id": o.ID,
		"oui":      strconv.FormatInt(o.Oui, 10),
		"stage":    string(stage),
		"code":     code,
		"message":  msg,
	})
}

func stepErrorCode(status constant.OrderStatus, err error) string {
	switch {
	case errors.Is(err, credits.ErrIntegrityCheck):
		return constant.ErrCodeIntegrityCheck
	case errors.Is(err, ErrInsufficientTreasury):
		return constant.ErrCodeTreasuryInsufficient
	}
	switch status {
	case constant.StatusUsdcVerified:
		return constant.ErrCodeSwapFailed
	case constant.StatusSwapping:
		return constant.ErrCodeMintFailed
	case constant.StatusMintingDC:
		return constant.ErrCodeDelegateFailed
	}
	return constant.ErrCodeProcessing
}

func (p *Processor) onchainEvent(ctx context.Context, orderID string, payload map[string]any) {
	if err := p.orders.RecordEvent(ctx, orderID, constant.EventOnchain, payload); err != nil {
		p.log.WithField("order_id", orderID).Warnf("record onchain event failed: %v", err)
	}
}

// payment_confirmed -> usdc_verified
func (p *Processor) verifyUsdc(ctx context.Context, o *ordermodel.DcPurchaseOrder) (StatusUpdate, error) {
	amount := o.UsdcAmount()
	if !amount.IsPositive() {
		return nil, fmt.Errorf("invalid usdc amount %s", amount)
	}
	bal, err := p.chain.GetOwnerBalance(ctx, p.treasury.PublicKey(), credits.UsdcMint)
	if err != nil {
		return nil, fmt.Errorf("read treasury usdc balance: %w", err)
	}
	if p.cfg.VerifyTreasuryUsdc {
		need, err := utils.ToBaseUnits(amount, credits.UsdcDecimals)
		if err != nil {
			return nil, err
		}
		if bal < need {
			return nil, fmt.Errorf("%w: usdc %d < %d", ErrInsufficientTreasury, bal, need)
		}
	}
	p.onchainEvent(ctx, o.ID, map[string]any{
		"stage":               "usdc_verified",
		"treasuryUsdcBalance": formatUint(bal),
	})
	return UsdcVerified{UsdcAmount: amount}, nil
}

// usdc_verified -> swapping
func (p *Processor) swapUsdc(ctx context.Context, o *ordermodel.DcPurchaseOrder) (StatusUpdate, error) {
	amount := o.UsdcAmount()
	units, err := utils.ToBaseUnits(amount, credits.UsdcDecimals)
	if err != nil {
		return nil, err
	}
	if units == 0 {
		return nil, fmt.Errorf("invalid usdc amount %s for swap", amount)
	}
	p.onchainEvent(ctx, o.ID, map[string]any{"stage": "swap_started", "usdcAmount": amount.String()})

	res, err := p.swapWithRetry(ctx, o.ID, units)
	if err != nil {
		return nil, err
	}
	p.onchainEvent(ctx, o.ID, map[string]any{
		"stage":       "swap_completed",
		"signature":   res.signature.String(),
		"hntReceived": formatUint(res.hntReceived),
	})
	return SwapCompleted{
		Signature: res.signature.String(),
		QuoteJSON: res.quote.String(),
		HntAmount: res.hntReceived,
	}, nil
}

type swapResult struct {
	quote       *swap.Quote
	signature   solana.Signature
	hntReceived uint64
}

// swapWithRetry 每次尝试都重新报价，报价会过期
func (p *Processor) swapWithRetry(ctx context.Context, orderID string, usdcUnits uint64) (*swapResult, error) {
	var lastErr error
	for attempt := 1; attempt <= p.cfg.SwapAttempts; attempt++ {
		res, err := p.swapOnce(ctx, usdcUnits)
		if err == nil {
			return res, nil
		}
		lastErr = err
		p.log.WithFields(logrus.Fields{"order_id": orderID, "attempt": attempt}).Warnf("swap attempt failed: %v", err)

		payload := map[string]any{"stage": "swap_attempt_failed", "attempt": attempt, "error": err.Error()}
		if res != nil {
			if res.quote != nil {
				payload["quote"] = res.quote
			}
			if !res.signature.IsZero() {
				payload["signature"] = res.signature.String()
			}
		}
		p.onchainEvent(ctx, orderID, payload)

		if attempt < p.cfg.SwapAttempts {
			if err := sleepCtx(ctx, p.cfg.SwapRetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrSwapExhausted, p.cfg.SwapAttempts, lastErr)
}

// swapOnce 出错时仍返回已拿到的报价与签名，用于审计
func (p *Processor) swapOnce(ctx context.Context, usdcUnits uint64) (*swapResult, error) {
	owner := p.treasury.PublicKey()
	before, err := p.chain.GetOwnerBalance(ctx, owner, credits.HntMint)
	if err != nil {
		return nil, fmt.Errorf("read hnt balance before swap: %w", err)
	}
	quote, err := p.swap.GetQuote(ctx, credits.UsdcMint, credits.HntMint, usdcUnits, p.cfg.SlippageBps)
	if err != nil {
		return nil, err
	}
	res := &swapResult{quote: quote}
	tx, err := p.swap.BuildTransaction(ctx, quote, owner)
	if err != nil {
		return res, err
	}
	sig, err := p.chain.SubmitAndConfirm(ctx, tx, p.treasury.Signer())
	res.signature = sig
	if err != nil {
		return res, err
	}
	after, err := p.chain.GetOwnerBalance(ctx, owner, credits.HntMint)
	if err != nil {
		return res, fmt.Errorf("read hnt balance after swap: %w", err)
	}
	if after <= before {
		return res, fmt.Errorf("%w: hnt balance %d -> %d after %s", credits.ErrIntegrityCheck, before, after, sig)
	}
	res.hntReceived = after - before
	return res, nil
}

// swapping -> minting_dc
func (p *Processor) mint(ctx context.Context, o *ordermodel.DcPurchaseOrder) (StatusUpdate, error) {
	hnt := parseUnits(o.HntAmountReceived)
	if hnt == 0 {
		return nil, errors.New("no HNT recorded for minting")
	}
	bal, err := p.chain.GetOwnerBalance(ctx, p.treasury.PublicKey(), credits.HntMint)
	if err != nil {
		return nil, fmt.Errorf("read treasury hnt balance: %w", err)
	}
	if bal < hnt {
		return nil, fmt.Errorf("%w: hnt %d < %d", ErrInsufficientTreasury, bal, hnt)
	}

	p.onchainEvent(ctx, o.ID, map[string]any{"stage": "mint_started", "hntAmount": formatUint(hnt)})
	res, err := p.credits.MintCredits(ctx, p.treasury, hnt)
	if err != nil {
		return nil, err
	}
	p.onchainEvent(ctx, o.ID, map[string]any{
		"stage":     "mint_completed",
		"signature": res.Signature.String(),
		"dcMinted":  formatUint(res.DcMinted),
	})
	return MintCompleted{
		Existing:   o.MintTxSigs,
		Signatures: []string{res.Signature.String()},
		DcMinted:   res.DcMinted,
	}, nil
}

// minting_dc -> delegating，router key 即 OUI 的 payer
func (p *Processor) delegate(ctx context.Context, o *ordermodel.DcPurchaseOrder) (StatusUpdate, error) {
	dc := parseUnits(o.DcMinted)
	if dc == 0 {
		return nil, errors.New("no DC recorded for delegation")
	}
	routerKey := o.Payer
	bal, err := p.chain.GetOwnerBalance(ctx, p.treasury.PublicKey(), credits.DcMint)
	if err != nil {
		return nil, fmt.Errorf("read treasury dc balance: %w", err)
	}
	if bal < dc {
		return nil, fmt.Errorf("%w: dc %d < %d", ErrInsufficientTreasury, bal, dc)
	}

	p.onchainEvent(ctx, o.ID, map[string]any{
		"stage":     "delegate_started",
		"dcAmount":  formatUint(dc),
		"routerKey": routerKey,
	})
	res, err := p.credits.DelegateCredits(ctx, p.treasury, dc, routerKey)
	if err != nil {
		return nil, err
	}
	p.onchainEvent(ctx, o.ID, map[string]any{
		"stage":         "delegate_completed",
		"signature":     res.Signature.String(),
		"escrowBalance": formatUint(res.EscrowBalance),
	})
	return DelegateCompleted{Signature: res.Signature.String(), DcDelegated: dc}, nil
}

func parseUnits(s *string) uint64 {
	if s == nil {
		return 0
	}
	v, err := strconv.ParseUint(*s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
