package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/chain"
	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/credits"
	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/directory"
	"dc-purchase-api/internal/handler"
	"dc-purchase-api/internal/lock"
	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/mq"
	"dc-purchase-api/internal/notify"
	"dc-purchase-api/internal/onramp"
	"dc-purchase-api/internal/repo"
	"dc-purchase-api/internal/service"
	"dc-purchase-api/internal/swap"
)

// App 进程内共享的服务实例，server 与 dcctl 共用
type App struct {
	Orders     *service.OrderService
	Processor  *service.Processor
	Webhooks   *service.WebhookService
	Reconcile  *service.ReconcileService
	Directory  *directory.Directory
	Onramp     *onramp.Client
	Dispatcher mq.Dispatcher
	Treasury   *chain.Treasury
}

// InitInfra 连接数据库、缓存与消息通道，并按驱动建表
func InitInfra() error {
	dal.InitOrderDB()
	if err := dal.PrepareSchema(dal.OrderDB, config.C.Database.Driver, config.C.Database.MigrationsPath); err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}
	dal.InitRedis()
	dal.InitKafka()
	if err := dal.InitRabbitMQ(); err != nil {
		return fmt.Errorf("init rabbitmq: %w", err)
	}
	return nil
}

// NewDirectory 仅需要数据库与缓存，供 sync-ouis 单独使用
func NewDirectory() *directory.Directory {
	return directory.New(repo.NewOuiRepo(), dal.RedisClient, config.C.Directory, nil, logger.NewLogger("directory"))
}

// Build 组装全部服务，调用前需已完成 InitInfra
func Build() (*App, error) {
	c := config.C
	treasury, err := chain.LoadTreasury(c.Treasury.PrivateKey, c.Treasury.KeypairPath)
	if err != nil {
		return nil, err
	}

	chainClient := chain.NewFromConfig(c.Solana)
	creditOps := credits.NewOperations(chainClient, logger.NewLogger("credits"))
	dir := NewDirectory()
	gateway := onramp.NewClient(c.Onramp, c.Security.WebhookSecret, nil)

	orders := service.NewOrderService(service.OrderServiceDeps{
		Orders:    repo.NewOrderRepo(),
		Directory: dir,
		Escrow:    creditOps,
		Onramp:    gateway,
		Treasury:  treasury.PublicKey().String(),
		Publisher: mq.NewPublisher(),
		Redis:     dal.RedisClient,
		Config:    c.Order,
		Log:       logger.NewLogger("order"),
	})
	proc := service.NewProcessor(service.ProcessorDeps{
		Orders:   orders,
		Chain:    chainClient,
		Swap:     swap.NewFromConfig(c.Swap),
		Credits:  creditOps,
		Treasury: treasury,
		Locker:   lock.New(dal.RedisClient),
		Alerter:  notify.New(c.Alert),
		Config:   service.ProcessorConfigFrom(c),
		Log:      logger.NewLogger("process"),
	})
	dispatcher := mq.NewDispatcher(proc)

	return &App{
		Orders:     orders,
		Processor:  proc,
		Webhooks:   service.NewWebhookService(orders, dispatcher, logger.NewLogger("webhook")),
		Reconcile:  service.NewReconcileService(orders, proc, logger.NewLogger("reconcile")),
		Directory:  dir,
		Onramp:     gateway,
		Dispatcher: dispatcher,
		Treasury:   treasury,
	}, nil
}

// Router HTTP 路由
func (a *App) Router() *gin.Engine {
	return handler.NewRouter(handler.RouterDeps{
		Orders:           a.Orders,
		Webhooks:         a.Webhooks,
		Processor:        a.Processor,
		Verifier:         a.Onramp,
		WebhookTolerance: time.Duration(config.C.Security.WebhookToleranceSec) * time.Second,
		AdminToken:       config.C.Security.AdminToken,
		TrustedProxies:   []string{"127.0.0.1", "192.168.0.0/16", "10.0.0.0/8"},
	})
}

// Background 对账与目录同步定时任务
func (a *App) Background() *service.BackgroundTasks {
	return &service.BackgroundTasks{
		Reconcile:         a.Reconcile,
		Directory:         a.Directory,
		ReconcileInterval: time.Duration(config.C.Reconcile.IntervalMin) * time.Minute,
		SyncInterval:      time.Duration(config.C.Directory.SyncIntervalMin) * time.Minute,
	}
}

// StartConsumers amqp 派发模式下启动处理队列消费者
func (a *App) StartConsumers(ctx context.Context) {
	if _, ok := a.Dispatcher.(*mq.AMQPDispatcher); !ok {
		return
	}
	timeout := time.Duration(config.C.Order.ProcessTimeout) * time.Second
	go mq.StartProcessConsumer(ctx, config.C.RabbitMQ.ProcessQueue, a.Processor, timeout)
}

// Wait 等待进程内派发的订单处理结束
func (a *App) Wait() {
	if d, ok := a.Dispatcher.(*mq.GoroutineDispatcher); ok {
		d.Wait()
	}
}
