package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"dc-purchase-api/internal/chain"
	"dc-purchase-api/internal/logger"
)

// ErrIntegrityCheck 交易已确认但链上余额没有发生预期变化
var ErrIntegrityCheck = errors.New("credits: on-chain balance did not change as expected")

// Chain 是 Operations 依赖的链客户端能力，*chain.Client 满足
type Chain interface {
	SubmitAndConfirm(ctx context.Context, tx *solana.Transaction, signers ...solana.PrivateKey) (solana.Signature, error)
	GetTokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

type MintResult struct {
	Signature solana.Signature
	DcMinted  uint64
}

type DelegateResult struct {
	Signature     solana.Signature
	EscrowBalance uint64
}

// Operations 对 data credits 程序的 mint / delegate 调用，不写本地库
type Operations struct {
	chain Chain
	log   *logrus.Logger
}

func NewOperations(c Chain, log *logrus.Logger) *Operations {
	if log == nil {
		log = logger.NewNop()
	}
	return &Operations{chain: c, log: log}
}

// MintCredits 燃烧 hntAmount 个最小单位的 HNT 铸造 DC，以金库 DC 余额差值作为铸造结果
func (o *Operations) MintCredits(ctx context.Context, treasury *chain.Treasury, hntAmount uint64) (*MintResult, error) {
	if hntAmount == 0 {
		return nil, errors.New("mint: hnt amount is zero")
	}
	owner := treasury.PublicKey()
	dcAta, _, err := solana.FindAssociatedTokenAddress(owner, DcMint)
	if err != nil {
		return nil, fmt.Errorf("derive dc ata: %w", err)
	}
	before, err := o.chain.GetTokenBalance(ctx, dcAta)
	if err != nil {
		return nil, fmt.Errorf("read dc balance before mint: %w", err)
	}

	ix, err := NewMintInstruction(owner, hntAmount)
	if err != nil {
		return nil, err
	}
	tx, err := chain.NewTransaction([]solana.Instruction{ix}, owner)
	if err != nil {
		return nil, err
	}
	o.log.WithFields(logrus.Fields{"hnt_amount": hntAmount, "price_feed": HntPythPriceFeed}).Info("minting data credits")

	sig, err := o.chain.SubmitAndConfirm(ctx, tx, treasury.Signer())
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}

	after, err := o.chain.GetTokenBalance(ctx, dcAta)
	if err != nil {
		return &MintResult{Signature: sig}, fmt.Errorf("read dc balance after mint: %w", err)
	}
	if after <= before {
		return &MintResult{Signature: sig}, fmt.Errorf("%w: dc balance %d -> %d after %s", ErrIntegrityCheck, before, after, sig)
	}
	minted := after - before
	o.log.WithFields(logrus.Fields{"signature": sig, "dc_minted": minted}).Info("data credits minted")
	return &MintResult{Signature: sig, DcMinted: minted}, nil
}

// DelegateCredits 将金库中的 DC 委托到 routerKey 对应的 OUI 托管账户，成功以托管余额增加为准
func (o *Operations) DelegateCredits(ctx context.Context, treasury *chain.Treasury, dcAmount uint64, routerKey string) (*DelegateResult, error) {
	if dcAmount == 0 {
		return nil, errors.New("delegate: dc amount is zero")
	}
	if routerKey == "" {
		return nil, errors.New("delegate: router key is empty")
	}
	owner := treasury.PublicKey()
	escrow := EscrowAccount(routerKey)
	before, err := o.chain.GetTokenBalance(ctx, escrow)
	if err != nil {
		return nil, fmt.Errorf("read escrow balance before delegate: %w", err)
	}

	ix, err := NewDelegateInstruction(owner, dcAmount, routerKey)
	if err != nil {
		return nil, err
	}
	tx, err := chain.NewTransaction([]solana.Instruction{ix}, owner)
	if err != nil {
		return nil, err
	}
	o.log.WithFields(logrus.Fields{"dc_amount": dcAmount, "router_key": routerKey, "escrow": escrow}).Info("delegating data credits")

	sig, err := o.chain.SubmitAndConfirm(ctx, tx, treasury.Signer())
	if err != nil {
		return nil, fmt.Errorf("delegate: %w", err)
	}

	after, err := o.chain.GetTokenBalance(ctx, escrow)
	if err != nil {
		return &DelegateResult{Signature: sig}, fmt.Errorf("read escrow balance after delegate: %w", err)
	}
	if after <= before {
		return &DelegateResult{Signature: sig, EscrowBalance: after}, fmt.Errorf("%w: escrow balance %d -> %d after %s", ErrIntegrityCheck, before, after, sig)
	}
	o.log.WithFields(logrus.Fields{"signature": sig, "escrow_balance": after}).Info("data credits delegated")
	return &DelegateResult{Signature: sig, EscrowBalance: after}, nil
}

// EscrowBalance 当前 OUI 托管账户的 DC 余额
func (o *Operations) EscrowBalance(ctx context.Context, routerKey string) (uint64, error) {
	return o.chain.GetTokenBalance(ctx, EscrowAccount(routerKey))
}
