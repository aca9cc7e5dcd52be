package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/metrics"
	"dc-purchase-api/internal/mq"
)

// ReconcileService 兜底：定期重新驱动所有在途订单，弥补丢失的回调与中途崩溃
type ReconcileService struct {
	orders *OrderService
	driver mq.Driver
	log    *logrus.Logger
}

func NewReconcileService(orders *OrderService, driver mq.Driver, log *logrus.Logger) *ReconcileService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ReconcileService{orders: orders, driver: driver, log: log}
}

// Sweep 顺序驱动每个在途订单，返回处理的订单数
func (s *ReconcileService) Sweep(ctx context.Context) (int, error) {
	orders, err := s.orders.ListNonTerminalOrders(ctx)
	if err != nil {
		return 0, err
	}
	s.log.WithField("count", len(orders)).Info("reconcile sweep started")

	n := 0
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := s.driver.Drive(ctx, o.ID); err != nil {
			s.log.WithFields(logrus.Fields{"order_id": o.ID, "status": o.Status}).Errorf("reconcile drive failed: %v", err)
		}
		metrics.Default.ReconcileOrdersTotal.Inc()
		n++
	}
	s.log.WithField("count", n).Info("reconcile sweep finished")
	return n, nil
}
