package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/metrics"
	mainmodel "dc-purchase-api/internal/model/main"
	rediskey "dc-purchase-api/internal/types/redis-key"
	"dc-purchase-api/internal/utils"
)

// ErrNotFound OUI 不存在或缺少 payer/escrow
var ErrNotFound = errors.New("directory: oui not found")

// Beneficiary DC 委托的受益方
type Beneficiary struct {
	Oui    int64  `json:"oui"`
	Owner  string `json:"owner"`
	Payer  string `json:"payer"`
	Escrow string `json:"escrow"`
	Locked bool   `json:"locked"`
}

type Store interface {
	GetByOui(ctx context.Context, oui int64) (*mainmodel.Oui, error)
	Upsert(ctx context.Context, orgs []mainmodel.Oui) (int, error)
}

type Directory struct {
	store    Store
	rdb      *redis.Client
	apiURL   string
	cacheTTL time.Duration
	http     *http.Client
	log      *logrus.Logger
}

// New rdb 为 nil 时不使用缓存
func New(store Store, rdb *redis.Client, c config.DirectoryCfg, hc *http.Client, log *logrus.Logger) *Directory {
	if hc == nil {
		hc = utils.DefaultHTTPClient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Directory{
		store:    store,
		rdb:      rdb,
		apiURL:   c.APIURL,
		cacheTTL: time.Duration(c.CacheTTLSec) * time.Second,
		http:     hc,
		log:      log,
	}
}

// Resolve 查询 OUI 的 payer 与托管账户
func (d *Directory) Resolve(ctx context.Context, oui int64) (*Beneficiary, error) {
	if b := d.fromCache(ctx, oui); b != nil {
		return b, nil
	}
	rec, err := d.store.GetByOui(ctx, oui)
	if err != nil {
		return nil, fmt.Errorf("load oui %d: %w", oui, err)
	}
	if rec == nil || rec.Payer == "" || rec.Escrow == "" {
		return nil, ErrNotFound
	}
	b := &Beneficiary{Oui: rec.Oui, Owner: rec.Owner, Payer: rec.Payer, Escrow: rec.Escrow, Locked: rec.Locked}
	d.toCache(ctx, b)
	return b, nil
}

func (d *Directory) fromCache(ctx context.Context, oui int64) *Beneficiary {
	if d.rdb == nil {
		return nil
	}
	raw, err := d.rdb.Get(ctx, rediskey.OuiKey(oui)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			d.log.Warnf("oui cache get failed: %v", err)
		}
		return nil
	}
	var b Beneficiary
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	return &b
}

func (d *Directory) toCache(ctx context.Context, b *Beneficiary) {
	if d.rdb == nil || d.cacheTTL <= 0 {
		return
	}
	raw, _ := json.Marshal(b)
	if err := d.rdb.Set(ctx, rediskey.OuiKey(b.Oui), raw, d.cacheTTL).Err(); err != nil {
		d.log.Warnf("oui cache set failed: %v", err)
	}
}

type apiOrg struct {
	Oui          json.Number `json:"oui"`
	Owner        string      `json:"owner"`
	Payer        string      `json:"payer"`
	Escrow       string      `json:"escrow"`
	DelegateKeys []string    `json:"delegate_keys"`
	Locked       bool        `json:"locked"`
}

// entity API 偶发 5xx，客户端错误不重试
const (
	fetchAttempts      = 3
	fetchRetryInterval = 500 * time.Millisecond
)

type apiResp struct {
	Orgs []apiOrg `json:"orgs"`
}

// FetchAll 拉取 Helium entity API 全量 OUI，丢弃非整数编号或无托管账户的记录
func (d *Directory) FetchAll(ctx context.Context) ([]mainmodel.Oui, error) {
	var resp apiResp
	err := utils.DoWithRetry(ctx, fetchAttempts, fetchRetryInterval, func(int) error {
		_, err := utils.DoJSON(ctx, d.http, http.MethodGet, d.apiURL, nil, nil, &resp)
		var se *utils.HTTPStatusError
		if errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError {
			return utils.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch ouis: %w", err)
	}
	if resp.Orgs == nil {
		return nil, errors.New("fetch ouis: unexpected payload shape")
	}
	now := time.Now().UTC()
	out := make([]mainmodel.Oui, 0, len(resp.Orgs))
	for _, org := range resp.Orgs {
		n, err := org.Oui.Int64()
		if err != nil || strings.TrimSpace(org.Escrow) == "" {
			continue
		}
		keys := org.DelegateKeys
		if keys == nil {
			keys = []string{}
		}
		out = append(out, mainmodel.Oui{
			Oui:          n,
			Owner:        org.Owner,
			Payer:        org.Payer,
			Escrow:       org.Escrow,
			DelegateKeys: keys,
			Locked:       org.Locked,
			CreatedAt:    now,
			LastSyncedAt: now,
		})
	}
	return out, nil
}

// Sync 拉取并写入本地目录表，同时清理对应缓存
func (d *Directory) Sync(ctx context.Context) (int, error) {
	orgs, err := d.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	n, err := d.store.Upsert(ctx, orgs)
	if err != nil {
		return n, fmt.Errorf("upsert ouis: %w", err)
	}
	if d.rdb != nil && len(orgs) > 0 {
		keys := make([]string, 0, len(orgs))
		for _, o := range orgs {
			keys = append(keys, rediskey.OuiKey(o.Oui))
		}
		if err := d.rdb.Del(ctx, keys...).Err(); err != nil {
			d.log.Warnf("oui cache invalidate failed: %v", err)
		}
	}
	metrics.Default.DirectorySyncOuisGauge.Set(float64(n))
	d.log.WithField("count", n).Info("oui directory synced")
	return n, nil
}
