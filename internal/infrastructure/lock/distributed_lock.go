package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 同一账户的两笔借记如果并发执行，都会基于同一个旧余额通过可用余额校验。
// 记账前按账户加锁，把"读余额-校验-写流水"串行化：
//
//   请求1: 获取锁 -> 余额=100 -> 借记100 -> 余额=0 -> 释放锁
//   请求2: 等待... -> 获取锁 -> 余额=0 -> 可用余额不足，拒绝
//
// 加锁：SET key token NX EX ttl
// 释放：Lua 脚本比较 token 后删除，避免误删过期后被别人拿到的锁
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 持有者标识
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 非阻塞获取锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return fmt.Errorf("%w: %s", ErrLockFailed, l.key)
}

// Unlock 释放锁，只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	return unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Err()
}

func (l *DistributedLock) Key() string {
	return l.key
}

// AccountLocker 按账户维度加锁，不同账户可以并发记账
type AccountLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
}

func NewAccountLocker(client *redis.Client, ttl, retryInterval time.Duration, maxRetries int) *AccountLocker {
	return &AccountLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
	}
}

// LockAccount 获取账户锁，返回的函数用于释放
func (a *AccountLocker) LockAccount(ctx context.Context, accountID int64, token string) (func(context.Context) error, error) {
	l := NewDistributedLock(a.client, AccountLockKey(accountID), token, a.ttl)
	if err := l.Lock(ctx, a.retryInterval, a.maxRetries); err != nil {
		return nil, err
	}
	return l.Unlock, nil
}

func AccountLockKey(accountID int64) string {
	return fmt.Sprintf("bank:lock:account:%d", accountID)
}
