// Package chaintest 提供内存版 Solana RPC，供各包单测使用
package chaintest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FakeRPC 记录发送的交易并按配置回放签名状态和代币余额
type FakeRPC struct {
	mu sync.Mutex

	// SendErrs 按调用顺序依次返回，耗尽后发送成功
	SendErrs []error
	// LandOnError 为 true 时即使发送报错交易也视为已落链
	LandOnError bool
	// NeverConfirm 为 true 时发送成功但签名状态一直为空
	NeverConfirm bool
	// FailWith 非空时落链交易的状态带上该错误
	FailWith interface{}
	// StatusErrs 按调用顺序让 GetSignatureStatuses 依次返回错误，耗尽后正常返回
	StatusErrs []error
	// OnLand 在交易落链时调用，可用于修改余额
	OnLand func(tx *solana.Transaction)

	Txs      []*solana.Transaction
	Sigs     []solana.Signature
	Balances map[solana.PublicKey]uint64
	statuses map[solana.Signature]*rpc.SignatureStatusesResult
	hashSeq  byte
}

func NewFakeRPC() *FakeRPC {
	return &FakeRPC{
		Balances: map[solana.PublicKey]uint64{},
		statuses: map[solana.Signature]*rpc.SignatureStatusesResult{},
	}
}

func (f *FakeRPC) SendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sigs)
}

// MarkStatus 直接设置某个签名的链上状态，txErr 非空表示链上执行失败
func (f *FakeRPC) MarkStatus(sig solana.Signature, txErr interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[sig] = &rpc.SignatureStatusesResult{Slot: 1, Err: txErr, ConfirmationStatus: rpc.ConfirmationStatusConfirmed}
}

func (f *FakeRPC) SetBalance(account solana.PublicKey, amount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[account] = amount
}

// AddBalance 仅在 OnLand 回调中使用（调用时已持有锁）
func (f *FakeRPC) AddBalance(account solana.PublicKey, delta int64) {
	f.Balances[account] = uint64(int64(f.Balances[account]) + delta)
}

func (f *FakeRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hashSeq++
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{f.hashSeq}, LastValidBlockHeight: 100},
	}, nil
}

func (f *FakeRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("transaction not signed")
	}
	sig := tx.Signatures[0]
	f.Txs = append(f.Txs, tx)
	f.Sigs = append(f.Sigs, sig)

	var err error
	if len(f.SendErrs) > 0 {
		err = f.SendErrs[0]
		f.SendErrs = f.SendErrs[1:]
	}
	if (err == nil && !f.NeverConfirm) || (err != nil && f.LandOnError) {
		f.statuses[sig] = &rpc.SignatureStatusesResult{
			Slot:               1,
			Err:                f.FailWith,
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		}
		if f.FailWith == nil && f.OnLand != nil {
			f.OnLand(tx)
		}
	}
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (f *FakeRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.StatusErrs) > 0 {
		err := f.StatusErrs[0]
		f.StatusErrs = f.StatusErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := &rpc.GetSignatureStatusesResult{}
	for _, s := range sigs {
		out.Value = append(out.Value, f.statuses[s])
	}
	return out, nil
}

func (f *FakeRPC) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	amount, ok := f.Balances[account]
	if !ok {
		return nil, errors.New("Invalid param: could not find account")
	}
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{Amount: strconv.FormatUint(amount, 10)},
	}, nil
}
