package mainmodel

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList 以 JSON 数组存储的字符串列表
type StringList []string

func (l *StringList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("StringList scan failed: %v", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

// Oui Helium 路由组织 (OUI) 目录缓存，来源为 entity API
type Oui struct {
	Oui          int64      `gorm:"column:oui;primaryKey;autoIncrement:false" json:"oui"`
	Owner        string     `gorm:"column:owner;type:varchar(64)" json:"owner"`
	Payer        string     `gorm:"column:payer;type:varchar(64)" json:"payer"`
	Escrow       string     `gorm:"column:escrow;type:varchar(64);not null" json:"escrow"`
	DelegateKeys StringList `gorm:"column:delegate_keys;type:text" json:"delegateKeys"`
	Locked       bool       `gorm:"column:locked;not null;default:false" json:"locked"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"createdAt"`
	LastSyncedAt time.Time  `gorm:"column:last_synced_at" json:"lastSyncedAt"`
}

func (Oui) TableName() string { return "ouis" }
