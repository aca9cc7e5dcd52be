package event

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"dc-purchase-api/internal/dto"
	ordermodel "dc-purchase-api/internal/model/order"
)

// ToMessage 把落库的事件转成广播消息
func ToMessage(e *ordermodel.OrderEvent) dto.OrderEventMQ {
	payload := json.RawMessage(e.Payload)
	if !json.Valid(payload) {
		payload, _ = json.Marshal(e.Payload)
	}
	return dto.OrderEventMQ{
		EventID:   e.ID,
		OrderID:   e.OrderID,
		Type:      e.Type,
		Payload:   payload,
		CreatedAt: e.CreatedAt.UnixMilli(),
	}
}

// PublishAsync 事务提交后异步广播，失败只记日志
func PublishAsync(pub Publisher, events ...*ordermodel.OrderEvent) {
	if pub == nil || len(events) == 0 {
		return
	}
	msgs := make([]dto.OrderEventMQ, 0, len(events))
	for _, e := range events {
		if e != nil {
			msgs = append(msgs, ToMessage(e))
		}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, m := range msgs {
			if err := pub.Publish(ctx, m); err != nil {
				log.Printf("[EVENT] publish %s for order %s failed: %v", m.Type, m.OrderID, err)
			}
		}
	}()
}
