package constant

// 订单事件类型
const (
	EventStatusChange = "STATUS_CHANGE"
	EventOnchain      = "ONCHAIN_EVENT"
	EventOnramp       = "ONRAMP_EVENT"
	EventError        = "ERROR"
)

// 订单 error_code 取值
const (
	ErrCodeProcessing           = "processing_error"
	ErrCodeSwapFailed           = "swap_failed"
	ErrCodeMintFailed           = "mint_failed"
	ErrCodeDelegateFailed       = "delegate_failed"
	ErrCodeIntegrityCheck       = "integrity_check_failed"
	ErrCodeTreasuryInsufficient = "treasury_insufficient"
	ErrCodeMaxIterations        = "max_iterations"
)
