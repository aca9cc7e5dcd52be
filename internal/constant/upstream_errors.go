package constant

// 上游错误码 (3xxx) - 链上 RPC、兑换聚合器、法币入金通道
const (
	// CodeUpstreamError 上游通用错误
	CodeUpstreamError = 3000

	// CodeUpstreamTimeout 上游请求或链上确认超时
	CodeUpstreamTimeout = 3001

	// CodeChainRPCError Solana RPC 调用失败
	CodeChainRPCError = 3100

	// CodeSwapQuoteFailed 兑换报价失败
	CodeSwapQuoteFailed = 3200

	// CodeOnrampSessionFailed 入金会话创建失败
	CodeOnrampSessionFailed = 3300
)
