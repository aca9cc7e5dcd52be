package credits

import "github.com/gagliardetto/solana-go"

// Helium 主网程序与代币地址
var (
	DataCreditsProgramID    = solana.MustPublicKeyFromBase58("credMBJhYFzfn7NxBMdU4aUqFggAjgztaCcv2Fo6fPT")
	SubDaosProgramID        = solana.MustPublicKeyFromBase58("hdaoVTCqhfHHo75XdAMxBKdUqvq1i5bF23sisBqVgGR")
	CircuitBreakerProgramID = solana.MustPublicKeyFromBase58("circAbx64bbsscPbQzZAUvuXpHqrCe6fLMzc2uKXz9g")

	// HntPythPriceFeed Pyth push oracle HNT/USD，由 Pyth 持续更新
	HntPythPriceFeed = solana.MustPublicKeyFromBase58("4DdmDswskDxXGpwHrXUfn2CNUm9rt21ac79GHNTN3J33")

	HntMint  = solana.MustPublicKeyFromBase58("hntyVP6YFm1Hg25TN9WGLqM12b8TQmcknKrdu1oxWux")
	DcMint   = solana.MustPublicKeyFromBase58("dcuc8Amr83Wz27ZkQ2K9NS6r8zRpf1J6cvArEBDZDmm")
	IotMint  = solana.MustPublicKeyFromBase58("iotEVVZLEywoTn1QdwNPddxPWszn3zFhEot3MfL9fns")
	UsdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

const (
	HntDecimals  int32 = 8
	DcDecimals   int32 = 0
	UsdcDecimals int32 = 6
)

// anchor 指令判别符 sha256("global:<name>")[:8]
var (
	mintDataCreditsDisc     = [8]byte{0x4e, 0x6d, 0xa9, 0x84, 0x90, 0x5e, 0xdd, 0x39}
	delegateDataCreditsDisc = [8]byte{0x9a, 0x38, 0xe2, 0x80, 0xa2, 0x73, 0xe2, 0x05}
)
