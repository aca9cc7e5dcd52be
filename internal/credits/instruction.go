package credits

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// NewMintInstruction mint_data_credits_v0(hnt_amount: Some(amount), dc_amount: None)
func NewMintInstruction(treasury solana.PublicKey, hntAmount uint64) (solana.Instruction, error) {
	hntAta, _, err := solana.FindAssociatedTokenAddress(treasury, HntMint)
	if err != nil {
		return nil, fmt.Errorf("derive hnt ata: %w", err)
	}
	dcAta, _, err := solana.FindAssociatedTokenAddress(treasury, DcMint)
	if err != nil {
		return nil, fmt.Errorf("derive dc ata: %w", err)
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(mintDataCreditsDisc[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(true); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(hntAmount, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(false); err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(DataCreditsPDA(), false, false),
		solana.NewAccountMeta(HntPythPriceFeed, false, false),
		solana.NewAccountMeta(hntAta, true, false),
		solana.NewAccountMeta(dcAta, true, false),
		solana.NewAccountMeta(treasury, false, false),
		solana.NewAccountMeta(treasury, true, true),
		solana.NewAccountMeta(HntMint, true, false),
		solana.NewAccountMeta(DcMint, true, false),
		solana.NewAccountMeta(CircuitBreakerPDA(), true, false),
		solana.NewAccountMeta(CircuitBreakerProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
	}
	return solana.NewInstruction(DataCreditsProgramID, accounts, buf.Bytes()), nil
}

// NewDelegateInstruction delegate_data_credits_v0(amount, router_key)
func NewDelegateInstruction(treasury solana.PublicKey, dcAmount uint64, routerKey string) (solana.Instruction, error) {
	dcAta, _, err := solana.FindAssociatedTokenAddress(treasury, DcMint)
	if err != nil {
		return nil, fmt.Errorf("derive dc ata: %w", err)
	}
	subDao := SubDaoPDA()
	delegated := DelegatedDataCreditsPDA(subDao, routerKey)

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(delegateDataCreditsDisc[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(dcAmount, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(routerKey)), binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes([]byte(routerKey), false); err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(delegated, true, false),
		solana.NewAccountMeta(DataCreditsPDA(), false, false),
		solana.NewAccountMeta(DcMint, false, false),
		solana.NewAccountMeta(DaoPDA(), false, false),
		solana.NewAccountMeta(subDao, false, false),
		solana.NewAccountMeta(treasury, false, true),
		solana.NewAccountMeta(dcAta, true, false),
		solana.NewAccountMeta(EscrowPDA(delegated), true, false),
		solana.NewAccountMeta(treasury, true, true),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(DataCreditsProgramID, accounts, buf.Bytes()), nil
}
