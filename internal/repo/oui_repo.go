package repo

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dc-purchase-api/internal/dal"
	mainmodel "dc-purchase-api/internal/model/main"
	"dc-purchase-api/internal/utils/timeutil"
)

// OuiRepo OUI 目录表
type OuiRepo struct {
	DB *gorm.DB
}

func NewOuiRepo() *OuiRepo {
	if dal.OrderDB == nil {
		log.Panic("[FATAL] dal.OrderDB is nil - database not initialized")
	}
	return &OuiRepo{DB: dal.OrderDB}
}

func NewOuiRepoWithDB(db *gorm.DB) *OuiRepo {
	return &OuiRepo{DB: db}
}

// GetByOui 不存在时返回 nil, nil
func (r *OuiRepo) GetByOui(ctx context.Context, oui int64) (*mainmodel.Oui, error) {
	var m mainmodel.Oui
	err := r.DB.WithContext(ctx).Where("oui = ?", oui).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Upsert 批量写入，冲突时更新除 created_at 以外的字段
func (r *OuiRepo) Upsert(ctx context.Context, orgs []mainmodel.Oui) (int, error) {
	if len(orgs) == 0 {
		return 0, nil
	}
	now := timeutil.NowUTC()
	for i := range orgs {
		if orgs[i].CreatedAt.IsZero() {
			orgs[i].CreatedAt = now
		}
		orgs[i].LastSyncedAt = now
	}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "oui"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner", "payer", "escrow", "delegate_keys", "locked", "last_synced_at"}),
	}).CreateInBatches(orgs, 200).Error
	if err != nil {
		return 0, fmt.Errorf("upsert ouis failed: %w", err)
	}
	return len(orgs), nil
}

func (r *OuiRepo) List(ctx context.Context) ([]mainmodel.Oui, error) {
	var out []mainmodel.Oui
	err := r.DB.WithContext(ctx).Order("oui ASC").Find(&out).Error
	return out, err
}
