package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/directory"
	"dc-purchase-api/internal/dto"
	"dc-purchase-api/internal/event"
	"dc-purchase-api/internal/idgen"
	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/metrics"
	ordermodel "dc-purchase-api/internal/model/order"
	"dc-purchase-api/internal/onramp"
	"dc-purchase-api/internal/repo"
	rediskey "dc-purchase-api/internal/types/redis-key"
	"dc-purchase-api/internal/utils"
)

const maxPartnerRefLen = 48

// BeneficiaryResolver 由 directory.Directory 实现
type BeneficiaryResolver interface {
	Resolve(ctx context.Context, oui int64) (*directory.Beneficiary, error)
}

// EscrowReader 由 credits.Operations 实现
type EscrowReader interface {
	EscrowBalance(ctx context.Context, routerKey string) (uint64, error)
}

type OrderServiceDeps struct {
	Orders    *repo.OrderRepo
	Directory BeneficiaryResolver
	Escrow    EscrowReader   // 可为 nil，余额字段返回 null
	Onramp    onramp.Gateway // 可为 nil，直接使用回退地址
	Treasury  string         // 入金目标钱包
	Publisher event.Publisher
	Redis     *redis.Client
	Config    config.OrderCfg
	Log       *logrus.Logger
}

// OrderService 订单的唯一写入方
type OrderService struct {
	orders    *repo.OrderRepo
	directory BeneficiaryResolver
	escrow    EscrowReader
	onramp    onramp.Gateway
	treasury  string
	publisher event.Publisher
	rdb       *redis.Client
	minUsd    decimal.Decimal
	maxUsd    decimal.Decimal
	redirect  string
	cacheTTL  time.Duration
	log       *logrus.Logger
}

func NewOrderService(d OrderServiceDeps) *OrderService {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Publisher == nil {
		d.Publisher = event.Nop{}
	}
	minUsd, err := decimal.NewFromString(d.Config.MinUsd)
	if err != nil {
		minUsd = decimal.NewFromInt(5)
	}
	maxUsd, err := decimal.NewFromString(d.Config.MaxUsd)
	if err != nil {
		maxUsd = decimal.NewFromInt(1000)
	}
	return &OrderService{
		orders:    d.Orders,
		directory: d.Directory,
		escrow:    d.Escrow,
		onramp:    d.Onramp,
		treasury:  d.Treasury,
		publisher: d.Publisher,
		rdb:       d.Redis,
		minUsd:    minUsd,
		maxUsd:    maxUsd,
		redirect:  strings.TrimRight(d.Config.RedirectBaseURL, "/"),
		cacheTTL:  time.Duration(d.Config.CacheTTLSec) * time.Second,
		log:       d.Log,
	}
}

// ResolveBeneficiary 查询 OUI 受益方及其托管账户当前 DC 余额
func (s *OrderService) ResolveBeneficiary(ctx context.Context, oui int64) (*dto.ResolveOuiResp, error) {
	b, err := s.resolve(ctx, oui)
	if err != nil {
		return nil, err
	}
	return &dto.ResolveOuiResp{
		Oui:             b.Oui,
		Payer:           b.Payer,
		Escrow:          b.Escrow,
		EscrowDcBalance: s.escrowBalance(ctx, b.Payer),
		Locked:          b.Locked,
	}, nil
}

func (s *OrderService) resolve(ctx context.Context, oui int64) (*directory.Beneficiary, error) {
	b, err := s.directory.Resolve(ctx, oui)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, fmt.Errorf("%w: oui %d", ErrBeneficiaryNotFound, oui)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// escrowBalance RPC 失败时返回 nil，不影响主流程
func (s *OrderService) escrowBalance(ctx context.Context, routerKey string) *string {
	if s.escrow == nil {
		return nil
	}
	bal, err := s.escrow.EscrowBalance(ctx, routerKey)
	if err != nil {
		s.log.WithField("router_key", routerKey).Warnf("escrow balance lookup failed: %v", err)
		return nil
	}
	v := formatUint(bal)
	return &v
}

type CreateOrderInput struct {
	Oui      int64
	Usd      decimal.Decimal
	Email    string
	ClientIP string
}

// CreateOrder 校验金额与受益方，落库后申请收银台会话并进入 onramp_started
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*dto.CreateOrderResp, error) {
	// 1) 金额
	if !utils.InRange(in.Usd, s.minUsd, s.maxUsd) {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidAmount, in.Usd, s.minUsd, s.maxUsd)
	}
	// 2) 受益方
	b, err := s.resolve(ctx, in.Oui)
	if err != nil {
		return nil, err
	}
	if b.Locked {
		return nil, fmt.Errorf("%w: oui %d", ErrBeneficiaryLocked, in.Oui)
	}

	// 3) 插入
	o := &ordermodel.DcPurchaseOrder{
		ID:             idgen.NewOrderID(),
		Oui:            b.Oui,
		Payer:          b.Payer,
		Escrow:         b.Escrow,
		UsdRequested:   in.Usd.Round(2),
		Status:         constant.StatusCreated,
		PartnerUserRef: partnerRef(b.Oui),
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		o.Email = &email
	}
	evt, err := s.orders.Create(ctx, o)
	if err != nil {
		return nil, err
	}
	metrics.Default.OrdersCreatedTotal.Inc()
	event.PublishAsync(s.publisher, evt)

	// 4) 收银台
	checkoutURL := s.checkoutURL(ctx, o, in.ClientIP)
	if err := s.Apply(ctx, o, OnrampStarted{}); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"order_id": o.ID, "oui": o.Oui, "usd": o.UsdRequested.StringFixed(2)}).Info("order created")
	return &dto.CreateOrderResp{
		OrderID:         o.ID,
		CheckoutURL:     checkoutURL,
		Payer:           o.Payer,
		Escrow:          o.Escrow,
		EscrowDcBalance: s.escrowBalance(ctx, o.Payer),
	}, nil
}

func (s *OrderService) statusPageURL(orderID string) string {
	return s.redirect + "/" + orderID
}

// checkoutURL 会话申请失败时回退到订单状态页
func (s *OrderService) checkoutURL(ctx context.Context, o *ordermodel.DcPurchaseOrder, clientIP string) string {
	fallback := s.statusPageURL(o.ID)
	if s.onramp == nil {
		return fallback
	}
	url, err := s.onramp.CreateCheckoutSession(ctx, onramp.SessionRequest{
		DestinationWallet: s.treasury,
		PartnerUserRef:    o.PartnerUserRef,
		FiatAmount:        o.UsdRequested,
		ClientIP:          clientIP,
		RedirectURL:       fallback,
	})
	if err != nil {
		metrics.Default.OnrampSessionFailsTotal.Inc()
		s.log.WithField("order_id", o.ID).Warnf("onramp session failed, using status page: %v", err)
		return fallback
	}
	return url
}

func partnerRef(oui int64) string {
	ref := "dc_" + strconv.FormatInt(oui, 10) + "_" + idgen.NewRefToken()
	if len(ref) > maxPartnerRefLen {
		ref = ref[:maxPartnerRefLen]
	}
	return ref
}

// Update 读取当前订单后写入一次类型化更新
func (s *OrderService) Update(ctx context.Context, orderID string, upd StatusUpdate) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrOrderNotFound
	}
	return s.Apply(ctx, o, upd)
}

// Apply 以 o.Status 为条件写入更新；成功后 o 反映新状态
func (s *OrderService) Apply(ctx context.Context, o *ordermodel.DcPurchaseOrder, upd StatusUpdate) error {
	return s.transition(ctx, o, upd.target(o.Status), upd.columns())
}

// UpdateStatus 按列名写入，未在白名单中的列由 repo 丢弃。
// 目标状态只能是当前状态或生命周期中的下一个状态
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, to constant.OrderStatus, fields map[string]any) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o == nil {
		return ErrOrderNotFound
	}
	if to.Valid() && to.Rank()-o.Status.Rank() > 1 {
		return fmt.Errorf("%w: %s -> %s", ErrStatusSkip, o.Status, to)
	}
	return s.transition(ctx, o, to, fields)
}

func (s *OrderService) transition(ctx context.Context, o *ordermodel.DcPurchaseOrder, to constant.OrderStatus, fields map[string]any) error {
	from := o.Status
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", to)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, from, to)
	}
	evt, err := s.orders.UpdateStatus(ctx, o.ID, from, to, fields)
	if err != nil {
		return err
	}
	if from != to {
		metrics.Default.OrderTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	}
	o.Status = to
	s.invalidate(ctx, o.ID)
	event.PublishAsync(s.publisher, evt)
	return nil
}

// RecordEvent 追加非状态事件并广播
func (s *OrderService) RecordEvent(ctx context.Context, orderID, typ string, payload any) error {
	evt, err := s.orders.AppendEvent(ctx, orderID, typ, payload)
	if err != nil {
		return err
	}
	event.PublishAsync(s.publisher, evt)
	return nil
}

// GetOrder 不存在返回 ErrOrderNotFound
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*ordermodel.DcPurchaseOrder, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// GetOrderByRef 按入金关联单号查询
func (s *OrderService) GetOrderByRef(ctx context.Context, ref string) (*ordermodel.DcPurchaseOrder, error) {
	o, err := s.orders.GetByPartnerRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// GetOrderView 对外投影，优先读 redis
func (s *OrderService) GetOrderView(ctx context.Context, orderID string) (*dto.OrderView, error) {
	if v := s.cachedView(ctx, orderID); v != nil {
		return v, nil
	}
	gen := s.viewGen(ctx, orderID)
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	v, err := ToOrderView(o)
	if err != nil {
		return nil, err
	}
	s.cacheView(ctx, v, gen)
	return v, nil
}

// ListNonTerminalOrders 对账任务需要重新驱动的在途订单
func (s *OrderService) ListNonTerminalOrders(ctx context.Context) ([]ordermodel.DcPurchaseOrder, error) {
	return s.orders.ListByStatuses(ctx, constant.NonTerminalStatuses)
}

func (s *OrderService) ListEvents(ctx context.Context, orderID string) ([]ordermodel.OrderEvent, error) {
	return s.orders.ListEvents(ctx, orderID)
}

var viewCopyOption = copier.Option{
	Converters: []copier.TypeConverter{
		{
			SrcType: decimal.Decimal{},
			DstType: copier.String,
			Fn: func(src interface{}) (interface{}, error) {
				return src.(decimal.Decimal).String(), nil
			},
		},
		{
			SrcType: decimal.NullDecimal{},
			DstType: (*string)(nil),
			Fn: func(src interface{}) (interface{}, error) {
				d := src.(decimal.NullDecimal)
				if !d.Valid {
					return (*string)(nil), nil
				}
				v := d.Decimal.String()
				return &v, nil
			},
		},
	},
	FieldNameMapping: []copier.FieldNameMapping{
		{
			SrcType: ordermodel.DcPurchaseOrder{},
			DstType: dto.OrderView{},
			Mapping: map[string]string{
				"ID":                  "OrderID",
				"OnrampTransactionID": "CoinbaseTransactionID",
			},
		},
	},
}

// ToOrderView 订单模型转对外投影
func ToOrderView(o *ordermodel.DcPurchaseOrder) (*dto.OrderView, error) {
	var v dto.OrderView
	if err := copier.CopyWithOption(&v, o, viewCopyOption); err != nil {
		return nil, fmt.Errorf("project order %s: %w", o.ID, err)
	}
	v.UsdRequested = o.UsdRequested.StringFixed(2)
	v.Txs = dto.OrderTxsView{
		UsdcSig:     o.UsdcSignature,
		SwapSig:     o.SwapTxSig,
		MintSigs:    []string(o.MintTxSigs),
		DelegateSig: o.DelegateTxSig,
	}
	if v.Txs.MintSigs == nil {
		v.Txs.MintSigs = []string{}
	}
	if o.HasError() {
		v.Error = &dto.OrderErrorView{Code: *o.ErrorCode}
		if o.ErrorMessage != nil {
			v.Error.Message = *o.ErrorMessage
		}
	}
	return &v, nil
}

func (s *OrderService) cachedView(ctx context.Context, orderID string) *dto.OrderView {
	if s.rdb == nil {
		return nil
	}
	raw, err := s.rdb.Get(ctx, rediskey.OrderViewKey(orderID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warnf("order cache get failed: %v", err)
		}
		return nil
	}
	var v dto.OrderView
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// 读库前后版本号不变才写缓存，避免并发迁移后写回旧投影
var cacheViewScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[2] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1`)

const viewGenTTL = 24 * time.Hour

// viewGen 读库前的投影版本号；redis 不可用时返回空串，cacheView 随之跳过
func (s *OrderService) viewGen(ctx context.Context, orderID string) string {
	if s.rdb == nil {
		return ""
	}
	gen, err := s.rdb.Get(ctx, rediskey.OrderViewGenKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0"
	}
	if err != nil {
		s.log.Warnf("order cache gen get failed: %v", err)
		return ""
	}
	return gen
}

func (s *OrderService) cacheView(ctx context.Context, v *dto.OrderView, gen string) {
	if s.rdb == nil || s.cacheTTL <= 0 || gen == "" {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.WithField("order_id", v.OrderID).Warnf("order cache encode failed: %v", err)
		return
	}
	keys := []string{rediskey.OrderViewKey(v.OrderID), rediskey.OrderViewGenKey(v.OrderID)}
	if err := cacheViewScript.Run(ctx, s.rdb, keys, raw, gen, s.cacheTTL.Milliseconds()).Err(); err != nil {
		s.log.Warnf("order cache set failed: %v", err)
	}
}

func (s *OrderService) invalidate(ctx context.Context, orderID string) {
	if s.rdb == nil {
		return
	}
	genKey := rediskey.OrderViewGenKey(orderID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, viewGenTTL)
		pipe.Del(ctx, rediskey.OrderViewKey(orderID))
		return nil
	})
	if err != nil {
		s.log.WithField("order_id", orderID).Warnf("order cache invalidate failed: %v", err)
	}
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// ToEventViews 事件原文不是合法 JSON 时按字符串输出
func ToEventViews(events []ordermodel.OrderEvent) []dto.OrderEventView {
	out := make([]dto.OrderEventView, 0, len(events))
	for _, e := range events {
		payload := json.RawMessage(e.Payload)
		if !json.Valid(payload) {
			payload, _ = json.Marshal(e.Payload)
		}
		out = append(out, dto.OrderEventView{
			ID:        strconv.FormatUint(e.ID, 10),
			Type:      e.Type,
			Payload:   payload,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
