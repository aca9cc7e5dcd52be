package credits

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

func findPDA(program solana.PublicKey, seeds ...[]byte) solana.PublicKey {
	pda, _, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		// 固定种子下不会失败
		panic(err)
	}
	return pda
}

func DataCreditsPDA() solana.PublicKey {
	return findPDA(DataCreditsProgramID, []byte("dc"), DcMint.Bytes())
}

func CircuitBreakerPDA() solana.PublicKey {
	return findPDA(CircuitBreakerProgramID, []byte("mint_windowed_breaker"), DcMint.Bytes())
}

func DaoPDA() solana.PublicKey {
	return findPDA(SubDaosProgramID, []byte("dao"), HntMint.Bytes())
}

// SubDaoPDA IOT 子 DAO，OUI 托管账户挂在它下面
func SubDaoPDA() solana.PublicKey {
	return findPDA(SubDaosProgramID, []byte("sub_dao"), IotMint.Bytes())
}

// DelegatedDataCreditsPDA 以 routerKey 字符串的 sha256 作为种子
func DelegatedDataCreditsPDA(subDao solana.PublicKey, routerKey string) solana.PublicKey {
	h := sha256.Sum256([]byte(routerKey))
	return findPDA(DataCreditsProgramID, []byte("delegated_data_credits"), subDao.Bytes(), h[:])
}

func EscrowPDA(delegated solana.PublicKey) solana.PublicKey {
	return findPDA(DataCreditsProgramID, []byte("escrow_dc_account"), delegated.Bytes())
}

// EscrowAccount 根据 routerKey 推导 OUI 的 DC 托管账户
func EscrowAccount(routerKey string) solana.PublicKey {
	return EscrowPDA(DelegatedDataCreditsPDA(SubDaoPDA(), routerKey))
}
