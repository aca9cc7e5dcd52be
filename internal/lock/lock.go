package lock

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	rediskey "dc-purchase-api/internal/types/redis-key"
)

// Locker 订单级处理租约。ok 为 false 表示其他流程正在处理该订单
type Locker interface {
	Acquire(ctx context.Context, orderID string, ttl time.Duration) (release func(), ok bool, err error)
}

// New redis 可用时使用分布式租约，否则退化为进程内互斥
func New(rdb *redis.Client) Locker {
	if rdb == nil {
		return NewLocal()
	}
	return NewRedis(rdb)
}

// 只有持有者才能释放
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// 仍由持有者持有时才续期
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

// RedisLocker 持有期间每 ttl/3 续期一次，处理时长不受 ttl 限制；
// 进程崩溃后租约在 ttl 内自动过期
type RedisLocker struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, orderID string, ttl time.Duration) (func(), bool, error) {
	key := rediskey.OrderLockKey(orderID)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, ttl, stop, done)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
		})
	}
	return release, true, nil
}

func (l *RedisLocker) keepAlive(key, token string, ttl time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := extendScript.Run(ctx, l.rdb, []string{key}, token, ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				log.Printf("[Lock] renew %s failed: %v", key, err)
				continue
			}
			if n == 0 {
				log.Printf("[Lock] lease %s lost before release", key)
				return
			}
		}
	}
}

// LocalLocker 单进程部署使用；ttl 被忽略，租约在 release 时释放
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *LocalLocker {
	return &LocalLocker{held: map[string]struct{}{}}
}

func (l *LocalLocker) Acquire(_ context.Context, orderID string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[orderID]; busy {
		return func() {}, false, nil
	}
	l.held[orderID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, orderID)
			l.mu.Unlock()
		})
	}, true, nil
}

// Noop 不做任何互斥
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
