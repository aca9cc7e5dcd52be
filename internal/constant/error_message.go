package constant

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	CN string `json:"cn"`
	EN string `json:"en"`
}

// ErrorMessages 错误信息映射
var ErrorMessages = map[int]ErrorInfo{
	CodeSuccess:            {"操作成功", "Success"},
	CodeSystemError:        {"系统错误", "System error"},
	CodeDatabaseError:      {"数据库错误", "Database error"},
	CodeRedisError:         {"缓存服务错误", "Cache error"},
	CodeServiceUnavailable: {"服务暂时不可用", "Service unavailable"},
	CodeTimeout:            {"请求超时", "Request timeout"},

	CodeInvalidParams:  {"参数格式错误", "Invalid parameters"},
	CodeMissingParams:  {"缺少必要参数", "Missing parameters"},
	CodeUnauthorized:   {"未授权访问", "Unauthorized"},
	CodeTokenInvalid:   {"令牌无效", "Invalid token"},
	CodeSignatureError: {"签名验证失败", "Signature verification failed"},

	CodeBeneficiaryNotFound: {"OUI 不存在", "OUI not found"},
	CodeBeneficiaryInvalid:  {"OUI 格式错误", "Invalid OUI"},
	CodeBeneficiaryLocked:   {"OUI 已锁定", "OUI is locked"},

	CodeOrderNotFound:      {"订单不存在", "Order not found"},
	CodeOrderAlreadyExist:  {"订单已存在", "Order already exists"},
	CodeOrderStatusInvalid: {"订单状态无效", "Order status invalid"},
	CodeOrderAmountInvalid: {"订单金额无效", "Order amount invalid"},
	CodeOrderStale:         {"订单状态已变更", "Order status changed concurrently"},
	CodeOrderBusy:          {"订单处理中", "Order is being processed"},

	CodeNotifySignError:   {"通知签名验证失败", "Webhook signature invalid"},
	CodeNotifyExpired:     {"通知时间戳过期", "Webhook timestamp outside tolerance"},
	CodeNotifyFormatError: {"通知格式错误", "Webhook payload malformed"},
	CodeNotifyRefMissing:  {"通知缺少关联单号", "Webhook missing partner reference"},

	CodeUpstreamError:       {"上游错误", "Upstream error"},
	CodeUpstreamTimeout:     {"上游超时", "Upstream timeout"},
	CodeChainRPCError:       {"链上 RPC 错误", "Chain RPC error"},
	CodeSwapQuoteFailed:     {"兑换报价失败", "Swap quote failed"},
	CodeOnrampSessionFailed: {"入金会话创建失败", "Onramp session failed"},
}
