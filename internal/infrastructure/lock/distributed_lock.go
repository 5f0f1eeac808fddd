package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 账本本身的串行化交给数据库事务与行锁，这里的锁只用于“预占”：
// 多个实例同时开户时，生成的候选账号可能相同，先在 Redis 里占住，
// 占不到就换一个号，避免两个请求带着同一个账号去抢插入。
//
// 加锁：SET key value NX EX timeout
// 释放锁：Lua 脚本，value 匹配才删除
//
// ============================================================================

const unlockScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// Key 返回锁的 key
func (l *DistributedLock) Key() string {
	return l.key
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Unlock 释放锁，只删除自己持有的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	_, err := l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Result()
	return err
}

// NewAccountNumberReservation 创建账号预占锁
//
// owner 用请求级别的唯一标识，释放时只会删除自己的预占
func NewAccountNumberReservation(client *redis.Client, accountNo, owner string, ttl time.Duration) *DistributedLock {
	key := fmt.Sprintf("ledger:reserve:account:%s", accountNo)
	return NewDistributedLock(client, key, owner, ttl)
}
