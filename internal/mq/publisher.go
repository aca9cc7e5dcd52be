package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/event"
)

// NewPublisher 按配置选择事件广播通道：amqp | kafka | none
func NewPublisher() event.Publisher {
	switch config.C.MQ.Publisher {
	case "amqp":
		if dal.RabbitEnabled() {
			return &AMQPPublisher{Exchange: config.C.RabbitMQ.Exchange}
		}
	case "kafka":
		if dal.KafkaWriter != nil {
			return &KafkaPublisher{Writer: dal.KafkaWriter}
		}
	}
	return event.Nop{}
}

// AMQPPublisher 发布到 topic 交换机，routing key 为 order.<type>
type AMQPPublisher struct {
	Exchange string
}

func RoutingKey(eventType string) string {
	return "order." + strings.ToLower(eventType)
}

func (p *AMQPPublisher) Publish(_ context.Context, msg dto.OrderEventMQ) error {
	ch := dal.GetChannel()
	if ch == nil {
		return errors.New("rabbitmq channel not ready")
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ch.Publish(
		p.Exchange,
		RoutingKey(msg.Type),
		false, false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    msg.OrderID,
			Timestamp:    time.UnixMilli(msg.CreatedAt),
			Body:         b,
		},
	)
}

// KafkaWriter 便于测试替换 *kafka.Writer
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher 以订单号为 key，保证同一订单的事件落在同一分区
type KafkaPublisher struct {
	Writer KafkaWriter
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg dto.OrderEventMQ) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.OrderID),
		Value: b,
		Time:  time.UnixMilli(msg.CreatedAt),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Type)},
		},
	})
}
