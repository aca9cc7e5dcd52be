package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/logger"
)

const maxRetry = 3

// StartProcessConsumer 消费处理队列并驱动订单，ctx 取消后退出
func StartProcessConsumer(ctx context.Context, queue string, driver Driver, timeout time.Duration) {
	log := logger.NewLogger("process")
	ch := dal.GetChannel()
	if ch == nil {
		log.Warn("RabbitMQ channel not initialized")
		return
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		log.Errorf("consume %s failed: %v", queue, err)
		return
	}
	log.Infof("process consumer started on %s", queue)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				log.Warn("process delivery channel closed")
				return
			}
			handleProcess(ctx, log, queue, driver, timeout, d)
		}
	}
}

func handleProcess(ctx context.Context, log *logrus.Logger, queue string, driver Driver, timeout time.Duration, d amqp.Delivery) {
	var msg dto.ProcessOrderMQ
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.OrderID == "" {
		log.Errorf("process message unmarshal err: %v", err)
		_ = d.Nack(false, false)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.Drive(runCtx, msg.OrderID); err != nil {
		log.WithField("order_id", msg.OrderID).Errorf("drive failed: %v", err)
		if msg.RetryCount < maxRetry {
			msg.RetryCount++
			if perr := publishProcess(queue, msg); perr != nil {
				log.Errorf("requeue order %s failed: %v", msg.OrderID, perr)
			} else {
				log.Infof("retrying order %s (attempt %d)", msg.OrderID, msg.RetryCount)
			}
		} else {
			// 对账任务兜底
			log.Warnf("max retry reached for order %s", msg.OrderID)
		}
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
