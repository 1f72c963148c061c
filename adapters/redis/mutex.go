// Package redis 提供交易核心周邊使用的 Redis 配件：
// 以實體為鍵的分散式互斥鎖，以及出價事件的 stream 發佈器
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// IEntityMutex 定義了 EntityMutex 的操作介面
type IEntityMutex interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
}

// EntityMutex 是以單一實體（如一場拍賣）為鍵的分散式互斥鎖。
// 持有期間會自動續期，讓跨實例的同實體寫入在進資料庫前先被排隊；
// 正確性仍由資料庫交易保證，這把鎖只負責降低衝突重試
type EntityMutex struct {
	*redsync.Mutex
	cancel  context.CancelFunc
	mu      sync.Mutex
	wg      sync.WaitGroup
	options entityMutexOptions
}

type entityMutexOptions struct {
	expiry        time.Duration
	renewInterval time.Duration
	retryDelay    time.Duration
}

type EntityMutexOption func(*entityMutexOptions)

// WithEntityMutexExpiry 設定鎖的過期時間
func WithEntityMutexExpiry(d time.Duration) EntityMutexOption {
	return func(o *entityMutexOptions) {
		o.expiry = d
	}
}

// WithEntityMutexRenewInterval 設定自動續期間隔
func WithEntityMutexRenewInterval(d time.Duration) EntityMutexOption {
	return func(o *entityMutexOptions) {
		o.renewInterval = d
	}
}

// WithEntityMutexRetryDelay 設定搶鎖失敗後的重試延遲
func WithEntityMutexRetryDelay(d time.Duration) EntityMutexOption {
	return func(o *entityMutexOptions) {
		o.retryDelay = d
	}
}

// NewEntityMutex 建立一把以 key 為鍵的自動續期互斥鎖
func NewEntityMutex(client *redis.Client, key string, opts ...EntityMutexOption) IEntityMutex {
	options := entityMutexOptions{
		expiry:     8 * time.Second,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}
	// 未指定續期間隔時使用過期時間的1/3
	if options.renewInterval <= 0 {
		options.renewInterval = options.expiry / 3
	}

	pool := goredis.NewPool(client)
	rs := redsync.New(pool)
	mutex := rs.NewMutex(
		key,
		redsync.WithExpiry(options.expiry),
		redsync.WithTries(1),
		redsync.WithRetryDelay(options.retryDelay),
	)
	return &EntityMutex{
		Mutex:   mutex,
		options: options,
	}
}

// Lock 取得鎖並啟動自動續期，回傳的 context 會在鎖失效時被取消
func (m *EntityMutex) Lock(ctx context.Context) (context.Context, error) {
	timer := time.NewTimer(1)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			err := m.Mutex.LockContext(ctx)
			if err == nil {
				lockCtx, cancel := context.WithCancel(ctx)
				m.cancel = cancel
				m.startAutoRenew(lockCtx)
				return lockCtx, nil
			}
			// 與 Redis 的溝通錯誤直接回報，其餘情況（鎖被別人持有）延遲後重試
			var commErr *redsync.RedisError
			if errors.As(err, &commErr) {
				return nil, fmt.Errorf("failed to acquire entity lock: %w", err)
			}
			timer.Reset(m.options.retryDelay)
		}
	}
}

// Unlock 停止自動續期並釋放鎖
func (m *EntityMutex) Unlock() (bool, error) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
	m.wg.Wait()
	return m.Mutex.Unlock()
}

func (m *EntityMutex) startAutoRenew(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.options.renewInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				success, err := m.Mutex.Extend()
				if err != nil || !success {
					return
				}
			}
		}
	}()
}
