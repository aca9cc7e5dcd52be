package repo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/idgen"
	ordermodel "dc-purchase-api/internal/model/order"
	"dc-purchase-api/internal/utils"
	"dc-purchase-api/internal/utils/timeutil"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrStaleStatus 条件更新未命中：订单已被并发流程推进
	ErrStaleStatus = errors.New("order status changed concurrently")
)

// AllowedUpdateColumns UpdateStatus 允许写入的附加列，其余一律丢弃
var AllowedUpdateColumns = map[string]struct{}{
	"onramp_transaction_id": {},
	"usdc_amount_received":  {},
	"usdc_signature":        {},
	"hnt_amount_received":   {},
	"swap_quote_json":       {},
	"swap_tx_sig":           {},
	"mint_tx_sigs":          {},
	"dc_minted":             {},
	"delegate_tx_sig":       {},
	"dc_delegated":          {},
	"error_code":            {},
	"error_message":         {},
}

type OrderRepo struct {
	DB *gorm.DB
}

// 工厂方法：默认使用 dal.OrderDB
func NewOrderRepo() *OrderRepo {
	if dal.OrderDB == nil {
		log.Panic("[FATAL] dal.OrderDB is nil - database not initialized")
	}
	return &OrderRepo{DB: dal.OrderDB}
}

func NewOrderRepoWithDB(db *gorm.DB) *OrderRepo {
	if db == nil {
		log.Panic("[FATAL] db cannot be nil")
	}
	return &OrderRepo{DB: db}
}

func (r *OrderRepo) checkDB() error {
	if r == nil || r.DB == nil {
		return errors.New("OrderRepo DB connection is nil")
	}
	return nil
}

// Create 插入订单并在同一事务中追加 STATUS_CHANGE 事件
func (r *OrderRepo) Create(ctx context.Context, o *ordermodel.DcPurchaseOrder) (*ordermodel.OrderEvent, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("create order failed: %w", err)
	}
	now := timeutil.NowUTC()
	o.CreatedAt, o.UpdatedAt = now, now
	evt := newEvent(o.ID, constant.EventStatusChange, map[string]any{"status": o.Status}, now)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		return tx.Create(evt).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create order failed: %w", err)
	}
	return evt, nil
}

// GetByID 不存在时返回 nil, nil
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*ordermodel.DcPurchaseOrder, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("get by id failed: %w", err)
	}
	var m ordermodel.DcPurchaseOrder
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByPartnerRef 按入金关联单号查询，不存在时返回 nil, nil
func (r *OrderRepo) GetByPartnerRef(ctx context.Context, ref string) (*ordermodel.DcPurchaseOrder, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("get by partner ref failed: %w", err)
	}
	var m ordermodel.DcPurchaseOrder
	err := r.DB.WithContext(ctx).Where("partner_user_ref = ?", ref).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByStatuses 按创建时间升序返回指定状态的订单
func (r *OrderRepo) ListByStatuses(ctx context.Context, statuses []constant.OrderStatus) ([]ordermodel.DcPurchaseOrder, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list by statuses failed: %w", err)
	}
	var out []ordermodel.DcPurchaseOrder
	err := r.DB.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// FilterColumns 按白名单过滤附加列，返回保留的列与被丢弃的列名
func FilterColumns(fields map[string]any) (kept map[string]any, dropped []string) {
	kept = make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := AllowedUpdateColumns[k]; !ok {
			dropped = append(dropped, k)
			continue
		}
		kept[k] = v
	}
	sort.Strings(dropped)
	return kept, dropped
}

// UpdateStatus 唯一的订单状态写入口：
// 过滤附加列，条件更新 WHERE id = ? AND status = from，并在同一事务中追加 STATUS_CHANGE 事件。
// 条件未命中返回 ErrStaleStatus，订单不存在返回 ErrOrderNotFound。
func (r *OrderRepo) UpdateStatus(ctx context.Context, id string, from, to constant.OrderStatus, fields map[string]any) (*ordermodel.OrderEvent, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("update status failed: %w", err)
	}
	kept, dropped := FilterColumns(fields)
	for _, k := range dropped {
		log.Printf("[OrderRepo] UpdateStatus ignoring unknown column %q, order_id=%s", k, id)
	}

	now := timeutil.NowUTC()
	updates := make(map[string]any, len(kept)+2)
	for k, v := range kept {
		updates[k] = v
	}
	updates["status"] = to
	updates["updated_at"] = now

	payload := map[string]any{"from": from, "status": to}
	if len(kept) > 0 {
		payload["extra"] = kept
	}
	evt := newEvent(id, constant.EventStatusChange, payload, now)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&ordermodel.DcPurchaseOrder{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// mysql 在值未变化时也返回 0，需要再确认当前状态
			var cur ordermodel.DcPurchaseOrder
			err := tx.Select("status").Where("id = ?", id).First(&cur).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			if err != nil {
				return err
			}
			if cur.Status != from {
				return ErrStaleStatus
			}
		}
		return tx.Create(evt).Error
	})
	if err != nil {
		return nil, err
	}
	return evt, nil
}

// AppendEvent 追加非状态类事件（链上里程碑、入金回调原文、错误）
func (r *OrderRepo) AppendEvent(ctx context.Context, orderID, typ string, payload any) (*ordermodel.OrderEvent, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("append event failed: %w", err)
	}
	evt := newEvent(orderID, typ, payload, timeutil.NowUTC())
	if err := r.DB.WithContext(ctx).Create(evt).Error; err != nil {
		return nil, fmt.Errorf("append event failed: %w", err)
	}
	return evt, nil
}

// ListEvents 按写入顺序返回订单事件
func (r *OrderRepo) ListEvents(ctx context.Context, orderID string) ([]ordermodel.OrderEvent, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list events failed: %w", err)
	}
	var out []ordermodel.OrderEvent
	err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&out).Error
	return out, err
}

func newEvent(orderID, typ string, payload any, at time.Time) *ordermodel.OrderEvent {
	evt := &ordermodel.OrderEvent{
		ID:        idgen.New(),
		OrderID:   orderID,
		CreatedAt: at,
		Type:      typ,
	}
	switch p := payload.(type) {
	case nil:
		evt.Payload = "{}"
	case string:
		evt.Payload = p
	case []byte:
		evt.Payload = string(p)
	default:
		evt.Payload = utils.MapToJSON(p)
	}
	return evt
}
