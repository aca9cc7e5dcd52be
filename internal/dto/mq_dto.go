package dto

import "encoding/json"

// OrderEventMQ 订单事件广播消息，与 dc_purchase_events 一一对应
type OrderEventMQ struct {
	EventID   uint64          `json:"event_id"`
	OrderID   string          `json:"order_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

// ProcessOrderMQ 驱动订单状态机的任务消息
type ProcessOrderMQ struct {
	OrderID    string `json:"order_id"`
	Reason     string `json:"reason"`
	RetryCount int    `json:"retry_count"`
	Ts         int64  `json:"ts"`
}
