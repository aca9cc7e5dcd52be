package event

import (
	"context"

	"dc-purchase-api/internal/dto"
)

// Publisher 订单事件的对外广播。实现见 internal/mq
type Publisher interface {
	Publish(ctx context.Context, msg dto.OrderEventMQ) error
}

// Nop 不广播
type Nop struct{}

func (Nop) Publish(context.Context, dto.OrderEventMQ) error { return nil }
