package constant

// 业务级错误码 (2xxx)

// 收款方 (OUI) 相关错误码
const (
	CodeBeneficiaryNotFound = 2000 // OUI 不存在或目录中没有对应的 payer/escrow
	CodeBeneficiaryInvalid  = 2001 // OUI 编号格式错误
	CodeBeneficiaryLocked   = 2002 // OUI 已锁定，不接受委托
)

// 订单相关错误码
const (
	CodeOrderNotFound      = 2100 // 订单不存在
	CodeOrderAlreadyExist  = 2101 // 关联单号重复
	CodeOrderStatusInvalid = 2102 // 订单状态不允许当前操作
	CodeOrderAmountInvalid = 2103 // 金额不在允许范围内
	CodeOrderStale         = 2108 // 订单已被并发流程推进
	CodeOrderBusy          = 2109 // 订单正在被其他流程处理
)

// 通知相关错误码
const (
	CodeNotifySignError   = 2702 // webhook 签名验证失败
	CodeNotifyExpired     = 2705 // webhook 时间戳超出容忍窗口
	CodeNotifyFormatError = 2703 // webhook 内容格式错误
	CodeNotifyRefMissing  = 2706 // webhook 缺少关联单号
)
