package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/metrics"
)

// RPC 是 Client 用到的节点方法子集，*rpc.Client 直接满足
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

type Options struct {
	Commitment     rpc.CommitmentType
	SubmitRetries  int
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	SkipPreflight  bool
}

func (o *Options) applyDefaults() {
	if o.Commitment == "" {
		o.Commitment = rpc.CommitmentConfirmed
	}
	if o.SubmitRetries <= 0 {
		o.SubmitRetries = 3
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 60 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
}

type Client struct {
	rpc  RPC
	opts Options
	log  *logrus.Logger
}

func NewClient(r RPC, opts Options, log *logrus.Logger) *Client {
	opts.applyDefaults()
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{rpc: r, opts: opts, log: log}
}

// NewFromConfig 按 solana 配置连接 RPC 节点
func NewFromConfig(c config.SolanaCfg) *Client {
	return NewClient(rpc.New(c.RPCURL), Options{
		Commitment:     rpc.CommitmentType(c.Commitment),
		SubmitRetries:  c.SubmitRetries,
		ConfirmTimeout: time.Duration(c.ConfirmTimeoutSec) * time.Second,
		PollInterval:   time.Duration(c.PollIntervalMs) * time.Millisecond,
	}, logger.NewLogger("chain"))
}

// NewTransaction 用占位 blockhash 组装交易，真正的 blockhash 在 SubmitAndConfirm 中填入
func NewTransaction(ixs []solana.Instruction, payer solana.PublicKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(ixs, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}

// SubmitAndConfirm 每次尝试前刷新 blockhash、本地签名后发送并等待确认。
// 发生可重试错误时，先查询此前产生的所有签名，已落链则直接返回该签名，不再重发。
func (c *Client) SubmitAndConfirm(ctx context.Context, tx *solana.Transaction, signers ...solana.PrivateKey) (solana.Signature, error) {
	if len(signers) == 0 {
		return solana.Signature{}, errors.New("no signers")
	}
	var (
		sent    []solana.Signature
		lastErr error
	)
	for attempt := 1; attempt <= c.opts.SubmitRetries; attempt++ {
		if len(sent) > 0 {
			sig, landed, err := c.findLanded(ctx, sent)
			if err != nil {
				return sig, err
			}
			if landed {
				c.log.WithFields(logrus.Fields{"signature": sig, "attempt": attempt}).Warn("transaction landed despite client error")
				metrics.Default.ChainSubmissionsTotal.WithLabelValues("landed_after_error").Inc()
				return sig, nil
			}
		}

		sig, err := c.signAndSend(ctx, tx, signers)
		if sig != (solana.Signature{}) {
			sent = append(sent, sig)
		}
		if err == nil {
			err = c.WaitForConfirmation(ctx, sig, c.opts.ConfirmTimeout)
			if err == nil {
				metrics.Default.ChainSubmissionsTotal.WithLabelValues("confirmed").Inc()
				return sig, nil
			}
		}

		var txErr *TxError
		if errors.As(err, &txErr) {
			metrics.Default.ChainSubmissionsTotal.WithLabelValues("tx_failed").Inc()
			return sig, err
		}
		if ctx.Err() != nil {
			return sig, fmt.Errorf("%w: %v", ErrSubmissionFailed, ctx.Err())
		}
		if !isRetryable(err) {
			metrics.Default.ChainSubmissionsTotal.WithLabelValues("failed").Inc()
			return sig, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}
		lastErr = err
		metrics.Default.ChainSubmissionsTotal.WithLabelValues("retry").Inc()
		c.log.WithFields(logrus.Fields{"signature": sig, "attempt": attempt}).Warnf("submit attempt failed: %v", err)

		if attempt < c.opts.SubmitRetries {
			select {
			case <-ctx.Done():
				return sig, fmt.Errorf("%w: %v", ErrSubmissionFailed, ctx.Err())
			case <-time.After(c.opts.PollInterval):
			}
		}
	}

	// 最后一次尝试也可能在报错后落链
	if sig, landed, err := c.findLanded(ctx, sent); err != nil || landed {
		return sig, err
	}
	metrics.Default.ChainSubmissionsTotal.WithLabelValues("failed").Inc()
	return solana.Signature{}, fmt.Errorf("%w after %d attempts: %v", ErrSubmissionFailed, c.opts.SubmitRetries, lastErr)
}

func (c *Client) signAndSend(ctx context.Context, tx *solana.Transaction, signers []solana.PrivateKey) (solana.Signature, error) {
	recent, err := c.rpc.GetLatestBlockhash(ctx, c.opts.Commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	tx.Message.RecentBlockhash = recent.Value.Blockhash
	tx.Signatures = nil
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}
	sig := tx.Signatures[0]

	_, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       c.opts.SkipPreflight,
		PreflightCommitment: c.opts.Commitment,
	})
	if err != nil {
		return sig, err
	}
	return sig, nil
}

// findLanded 查询已发出的签名：任一签名成功落链即返回它；全部未成功时才报告链上失败。
// 状态查询本身失败时在重试次数内重查，仍失败则返回 ErrSubmissionFailed，调用方不得重发。
func (c *Client) findLanded(ctx context.Context, sigs []solana.Signature) (solana.Signature, bool, error) {
	if len(sigs) == 0 {
		return solana.Signature{}, false, nil
	}
	res, err := c.lookupStatuses(ctx, sigs)
	if err != nil {
		metrics.Default.ChainSubmissionsTotal.WithLabelValues("status_unknown").Inc()
		return solana.Signature{}, false, fmt.Errorf("%w: status of %d sent signature(s) unknown: %v", ErrSubmissionFailed, len(sigs), err)
	}
	var failed *TxError
	for i, st := range res.Value {
		if st == nil || i >= len(sigs) {
			continue
		}
		if st.Err != nil {
			if failed == nil {
				failed = &TxError{Signature: sigs[i], Err: st.Err}
			}
			continue
		}
		if isConfirmed(st.ConfirmationStatus) {
			return sigs[i], true, nil
		}
	}
	if failed != nil {
		return failed.Signature, false, failed
	}
	return solana.Signature{}, false, nil
}

func (c *Client) lookupStatuses(ctx context.Context, sigs []solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.SubmitRetries; attempt++ {
		res, err := c.rpc.GetSignatureStatuses(ctx, true, sigs...)
		if err == nil && res != nil {
			return res, nil
		}
		if err == nil {
			err = errors.New("empty signature status response")
		}
		lastErr = err
		c.log.WithField("attempt", attempt).Warnf("signature status lookup failed: %v", err)
		if attempt < c.opts.SubmitRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.opts.PollInterval):
			}
		}
	}
	return nil, lastErr
}

// WaitForConfirmation 按固定间隔轮询签名状态直到 confirmed/finalized 或超时
func (c *Client) WaitForConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.opts.ConfirmTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
		case <-ticker.C:
			res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
			if err != nil {
				continue
			}
			if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
				continue
			}
			st := res.Value[0]
			if st.Err != nil {
				return &TxError{Signature: sig, Err: st.Err}
			}
			if isConfirmed(st.ConfirmationStatus) {
				return nil
			}
		}
	}
}

// GetTokenBalance 返回代币账户余额（最小单位）；账户尚未创建时返回 0
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetTokenAccountBalance(ctx, account, c.opts.Commitment)
	if err != nil {
		if isAccountMissing(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get token balance %s: %w", account, err)
	}
	if res == nil || res.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token balance %q: %w", res.Value.Amount, err)
	}
	return amount, nil
}

// GetOwnerBalance 查询 owner 在 mint 下关联代币账户的余额
func (c *Client) GetOwnerBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("derive ata: %w", err)
	}
	return c.GetTokenBalance(ctx, ata)
}

func isConfirmed(s rpc.ConfirmationStatusType) bool {
	return s == rpc.ConfirmationStatusConfirmed || s == rpc.ConfirmationStatusFinalized
}
