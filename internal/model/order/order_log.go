package ordermodel

import "time"

// OrderEvent represents dc_purchase_events: 只追加，不修改不删除
type OrderEvent struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	OrderID   string    `gorm:"column:order_id;type:varchar(36);not null;index" json:"orderId"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	Type      string    `gorm:"column:type;type:varchar(32);not null" json:"type"`
	Payload   string    `gorm:"column:payload;type:text" json:"payload"`
}

func (OrderEvent) TableName() string { return "dc_purchase_events" }
