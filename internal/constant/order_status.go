package constant

// OrderStatus 订单生命周期状态
type OrderStatus string

const (
	StatusCreated          OrderStatus = "created"
	StatusOnrampStarted    OrderStatus = "onramp_started"
	StatusPaymentConfirmed OrderStatus = "payment_confirmed"
	StatusUsdcVerified     OrderStatus = "usdc_verified"
	StatusSwapping         OrderStatus = "swapping"
	StatusMintingDC        OrderStatus = "minting_dc"
	StatusDelegating       OrderStatus = "delegating"
	StatusComplete         OrderStatus = "complete"
)

var statusOrder = []OrderStatus{
	StatusCreated,
	StatusOnrampStarted,
	StatusPaymentConfirmed,
	StatusUsdcVerified,
	StatusSwapping,
	StatusMintingDC,
	StatusDelegating,
	StatusComplete,
}

// processorTransitions 处理器负责的状态迁移；created/onramp_started 在下单时同步进入
var processorTransitions = map[OrderStatus]OrderStatus{
	StatusPaymentConfirmed: StatusUsdcVerified,
	StatusUsdcVerified:     StatusSwapping,
	StatusSwapping:         StatusMintingDC,
	StatusMintingDC:        StatusDelegating,
	StatusDelegating:       StatusComplete,
}

// NonTerminalStatuses 对账任务需要重新驱动的在途状态
var NonTerminalStatuses = []OrderStatus{
	StatusOnrampStarted,
	StatusPaymentConfirmed,
	StatusUsdcVerified,
	StatusSwapping,
	StatusMintingDC,
	StatusDelegating,
}

// Rank returns the position of s in the lifecycle, or -1 for an unknown status.
func (s OrderStatus) Rank() int {
	for i, v := range statusOrder {
		if v == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool { return s.Rank() >= 0 }

func (s OrderStatus) IsTerminal() bool { return s == StatusComplete }

// Next returns the processor's target status for s.
func (s OrderStatus) Next() (OrderStatus, bool) {
	n, ok := processorTransitions[s]
	return n, ok
}

// Before reports whether s sits strictly earlier in the lifecycle than other.
func (s OrderStatus) Before(other OrderStatus) bool {
	return s.Rank() < other.Rank()
}

func (s OrderStatus) String() string { return string(s) }
