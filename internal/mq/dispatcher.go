package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/logger"
)

// Driver 推进单个订单的状态机，由 service.Processor 实现
type Driver interface {
	Drive(ctx context.Context, orderID string) error
}

// Dispatcher 异步触发订单处理，调用方不等待结果
type Dispatcher interface {
	Dispatch(orderID, reason string) error
}

// NewDispatcher 按配置选择 goroutine 或 amqp 队列
func NewDispatcher(driver Driver) Dispatcher {
	timeout := time.Duration(config.C.Order.ProcessTimeout) * time.Second
	if config.C.MQ.Dispatcher == "amqp" && dal.RabbitEnabled() {
		return &AMQPDispatcher{Queue: config.C.RabbitMQ.ProcessQueue}
	}
	return NewGoroutineDispatcher(driver, timeout, logger.NewLogger("process"))
}

// GoroutineDispatcher 进程内后台执行，使用独立 context 与超时
type GoroutineDispatcher struct {
	driver  Driver
	timeout time.Duration
	log     *logrus.Logger
	wg      sync.WaitGroup
}

func NewGoroutineDispatcher(driver Driver, timeout time.Duration, log *logrus.Logger) *GoroutineDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &GoroutineDispatcher{driver: driver, timeout: timeout, log: log}
}

func (d *GoroutineDispatcher) Dispatch(orderID, reason string) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.WithField("order_id", orderID).Errorf("process panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.driver.Drive(ctx, orderID); err != nil {
			d.log.WithFields(logrus.Fields{"order_id": orderID, "reason": reason}).Errorf("drive failed: %v", err)
		}
	}()
	return nil
}

// Wait 等待所有已派发的任务结束，用于优雅退出和测试
func (d *GoroutineDispatcher) Wait() {
	d.wg.Wait()
}

// AMQPDispatcher 投递到处理队列，由 StartProcessConsumer 消费
type AMQPDispatcher struct {
	Queue string
}

func (d *AMQPDispatcher) Dispatch(orderID, reason string) error {
	return publishProcess(d.Queue, dto.ProcessOrderMQ{OrderID: orderID, Reason: reason, Ts: time.Now().Unix()})
}

func publishProcess(queue string, msg dto.ProcessOrderMQ) error {
	ch := dal.GetChannel()
	if ch == nil {
		return errors.New("rabbitmq channel not ready")
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ch.Publish("", queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         b,
	})
}
