package service

import (
	"context"
	"log"
	"time"
)

// DirectorySyncer 由 directory.Directory 实现
type DirectorySyncer interface {
	Sync(ctx context.Context) (int, error)
}

// BackgroundTasks 服务进程内的定时任务
type BackgroundTasks struct {
	Reconcile         *ReconcileService
	Directory         DirectorySyncer
	ReconcileInterval time.Duration
	SyncInterval      time.Duration
}

// StartAll 非正数间隔的任务不启动；ctx 取消后退出
func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	if bt.Reconcile != nil && bt.ReconcileInterval > 0 {
		go bt.every(ctx, "reconcile", bt.ReconcileInterval, func(ctx context.Context) error {
			_, err := bt.Reconcile.Sweep(ctx)
			return err
		})
	}
	if bt.Directory != nil && bt.SyncInterval > 0 {
		go bt.every(ctx, "directory-sync", bt.SyncInterval, func(ctx context.Context) error {
			n, err := bt.Directory.Sync(ctx)
			if err == nil {
				log.Printf("[Task] directory-sync upserted %d ouis", n)
			}
			return err
		})
	}
}

func (bt *BackgroundTasks) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("[Task] %s every %s", name, interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Task] %s stopped", name)
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				log.Printf("[Task] %s error: %v", name, err)
			}
		}
	}
}
