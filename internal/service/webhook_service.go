package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/metrics"
	"dc-purchase-api/internal/mq"
)

var (
	ErrWebhookPayload    = errors.New("malformed webhook payload")
	ErrWebhookRefMissing = errors.New("webhook has no partner reference")
)

// 回调处理结果
const (
	WebhookRecorded   = "recorded"   // 非完成事件，仅落库
	WebhookConfirmed  = "confirmed"  // 推进到 payment_confirmed 并派发
	WebhookDispatched = "dispatched" // 已是 payment_confirmed，重新派发
	WebhookIgnored    = "ignored"    // 订单已越过 payment_confirmed
)

type WebhookResult struct {
	OrderID string               `json:"orderId"`
	Status  constant.OrderStatus `json:"status"`
	Action  string               `json:"action"`
}

// WebhookService 入金回调：签名已在中间件校验
type WebhookService struct {
	orders     *OrderService
	dispatcher mq.Dispatcher
	log        *logrus.Logger
}

func NewWebhookService(orders *OrderService, dispatcher mq.Dispatcher, log *logrus.Logger) *WebhookService {
	if log == nil {
		log = logger.NewNop()
	}
	return &WebhookService{orders: orders, dispatcher: dispatcher, log: log}
}

// HandleOnramp 处理一次已验签的回调；raw 原样写入 ONRAMP_EVENT
func (s *WebhookService) HandleOnramp(ctx context.Context, raw []byte) (*WebhookResult, error) {
	var payload dto.OnrampWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		metrics.Default.WebhookRequestsTotal.WithLabelValues("bad_payload").Inc()
		return nil, fmt.Errorf("%w: %v", ErrWebhookPayload, err)
	}
	ref := payload.Ref()
	if ref == "" {
		metrics.Default.WebhookRequestsTotal.WithLabelValues("missing_ref").Inc()
		return nil, ErrWebhookRefMissing
	}
	o, err := s.orders.GetOrderByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			metrics.Default.WebhookRequestsTotal.WithLabelValues("unknown_ref").Inc()
		}
		return nil, err
	}
	log := s.log.WithFields(logrus.Fields{"order_id": o.ID, "ref": ref, "event_status": payload.EventStatus()})

	if err := s.orders.RecordEvent(ctx, o.ID, constant.EventOnramp, raw); err != nil {
		return nil, err
	}

	res := &WebhookResult{OrderID: o.ID, Status: o.Status, Action: WebhookRecorded}
	if !payload.Completed() {
		log.Info("non-terminal onramp event recorded")
		metrics.Default.WebhookRequestsTotal.WithLabelValues(res.Action).Inc()
		return res, nil
	}

	switch o.Status {
	case constant.StatusCreated, constant.StatusOnrampStarted:
		upd := PaymentConfirmed{TransactionID: payload.TxID(), UsdcAmount: parseNullDecimal(payload.UsdcAmount())}
		err := s.orders.Apply(ctx, o, upd)
		switch {
		case errors.Is(err, ErrStaleStatus):
			// 并发回调已推进，交给派发后的状态机判断
			log.Info("order advanced concurrently")
		case err != nil:
			return nil, err
		}
		res.Action = WebhookConfirmed
		s.dispatch(log, o.ID)
	case constant.StatusPaymentConfirmed:
		res.Action = WebhookDispatched
		s.dispatch(log, o.ID)
	default:
		res.Action = WebhookIgnored
		log.Info("order already past payment_confirmed")
	}
	res.Status = o.Status
	metrics.Default.WebhookRequestsTotal.WithLabelValues(res.Action).Inc()
	return res, nil
}

// dispatch 失败由对账任务兜底，不影响回调应答
func (s *WebhookService) dispatch(log *logrus.Entry, orderID string) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(orderID, "webhook"); err != nil {
		log.Errorf("dispatch failed, left for reconciliation: %v", err)
	}
}

func parseNullDecimal(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
