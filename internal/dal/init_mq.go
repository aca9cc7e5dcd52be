package dal

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"dc-purchase-api/internal/config"
)

var (
	mqConn    *amqp.Connection
	mqChannel *amqp.Channel

	mu sync.Mutex

	// 用 NotifyClose 判断是否已关闭
	connClosedCh chan *amqp.Error
	chClosedCh   chan *amqp.Error

	reconnecting bool
)

// InitRabbitMQ 首次连接，并声明事件交换机与处理队列
func InitRabbitMQ() error {
	if !config.C.RabbitMQ.Enabled {
		log.Println("[RabbitMQ] disabled")
		return nil
	}
	return connect()
}

// RabbitEnabled 是否已建立过连接
func RabbitEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return mqConn != nil
}

func connect() error {
	mu.Lock()
	defer mu.Unlock()

	// 若已连通则直接返回（用 isAlive 判断）
	if isConnAlive() && isChanAlive() {
		return nil
	}

	url := config.C.RabbitMQ.URL
	log.Printf("[RabbitMQ] connecting")

	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	mqConn = conn
	connClosedCh = conn.NotifyClose(make(chan *amqp.Error, 1))

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		mqConn = nil
		connClosedCh = nil
		return fmt.Errorf("open channel failed: %w", err)
	}
	mqChannel = ch
	chClosedCh = ch.NotifyClose(make(chan *amqp.Error, 1))

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		mqConn, mqChannel = nil, nil
		connClosedCh, chClosedCh = nil, nil
		return err
	}
	// 每次只投递一条，订单处理耗时较长
	if err := ch.Qos(1, 0, false); err != nil {
		log.Printf("[RabbitMQ] set QoS failed: %v", err)
	}

	log.Printf("[RabbitMQ] ready → exchange=%s queue=%s", config.C.RabbitMQ.Exchange, config.C.RabbitMQ.ProcessQueue)

	// 后台监听关闭事件
	go watchClose()

	return nil
}

func declareTopology(ch *amqp.Channel) error {
	c := config.C.RabbitMQ
	if err := ch.ExchangeDeclare(c.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}
	if _, err := ch.QueueDeclare(c.ProcessQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s failed: %w", c.ProcessQueue, err)
	}
	return nil
}

// 监听关闭事件，触发重连
func watchClose() {
	for {
		select {
		case err, ok := <-connClosedCh:
			if ok {
				log.Printf("[RabbitMQ] connection closed: %v", err)
				reconnect()
				return
			}
		case err, ok := <-chClosedCh:
			if ok {
				log.Printf("[RabbitMQ] channel closed: %v", err)
				reconnect()
				return
			}
		}
	}
}

// 自愈重连（阻塞重试直至成功）
func reconnect() {
	mu.Lock()
	if reconnecting {
		mu.Unlock()
		return
	}
	reconnecting = true
	mu.Unlock()

	defer func() {
		mu.Lock()
		reconnecting = false
		mu.Unlock()
	}()

	for {
		log.Println("[RabbitMQ] reconnecting...")
		if err := connect(); err == nil {
			log.Println("[RabbitMQ] reconnected")
			return
		}
		time.Sleep(5 * time.Second)
	}
}

func isConnAlive() bool {
	if mqConn == nil || connClosedCh == nil {
		return false
	}
	select {
	case <-connClosedCh: // 一旦能读到，说明已关闭
		return false
	default:
		return true
	}
}

func isChanAlive() bool {
	if mqChannel == nil || chClosedCh == nil {
		return false
	}
	select {
	case <-chClosedCh:
		return false
	default:
		return true
	}
}

func GetConnection() *amqp.Connection {
	if !isConnAlive() {
		reconnect()
	}
	return mqConn
}

func GetChannel() *amqp.Channel {
	if !isChanAlive() {
		reconnect()
	}
	return mqChannel
}
