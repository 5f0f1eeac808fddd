package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"bankledger/internal/infrastructure/lock"
	"bankledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type accountChecker interface {
	Exists(ctx context.Context, tx *gorm.DB, accountNo string) (bool, error)
}

// AccountNumberAllocator 分配不重复的 12 位账号
//
// 在事务之外运行：先查库确认账号未被使用，再在 Redis 中预占，
// 两步都通过才返回。redis 为 nil 时只查库
type AccountNumberAllocator struct {
	accounts    accountChecker
	redis       *redis.Client
	maxAttempts int
	ttl         time.Duration
	log         *zap.Logger

	mu  sync.Mutex
	rng idgen.Int63n
}

func NewAccountNumberAllocator(accounts accountChecker, rdb *redis.Client, maxAttempts int, ttl time.Duration, log *zap.Logger) *AccountNumberAllocator {
	return &AccountNumberAllocator{
		accounts:    accounts,
		redis:       rdb,
		maxAttempts: maxAttempts,
		ttl:         ttl,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand 替换随机源
func (a *AccountNumberAllocator) WithRand(rng idgen.Int63n) *AccountNumberAllocator {
	a.mu.Lock()
	a.rng = rng
	a.mu.Unlock()
	return a
}

func (a *AccountNumberAllocator) next() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return idgen.RandomAccountNumber(a.rng)
}

// Allocate 返回可用账号与释放预占的函数
//
// 超过 maxAttempts 次仍未找到可用账号时返回 ErrAllocationExhausted
func (a *AccountNumberAllocator) Allocate(ctx context.Context) (string, func(), error) {
	owner := uuid.NewString()

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		candidate := a.next()

		exists, err := a.accounts.Exists(ctx, nil, candidate)
		if err != nil {
			return "", nil, mapStoreError(err)
		}
		if exists {
			continue
		}

		release, ok := a.reserve(ctx, candidate, owner)
		if !ok {
			continue
		}
		return candidate, release, nil
	}

	return "", nil, fmt.Errorf("%w: attempts=%d", ErrAllocationExhausted, a.maxAttempts)
}

// reserve 在 Redis 中预占账号；Redis 出错时放弃预占，唯一性由主键兜底
func (a *AccountNumberAllocator) reserve(ctx context.Context, accountNo, owner string) (func(), bool) {
	noop := func() {}
	if a.redis == nil {
		return noop, true
	}

	reservation := lock.NewAccountNumberReservation(a.redis, accountNo, owner, a.ttl)
	ok, err := reservation.TryLock(ctx)
	if err != nil {
		a.log.Warn("账号预占失败，仅依赖主键唯一约束", zap.String("account_no", accountNo), zap.Error(err))
		return noop, true
	}
	if !ok {
		return nil, false
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := reservation.Unlock(releaseCtx); err != nil {
			a.log.Warn("释放账号预占失败", zap.String("account_no", accountNo), zap.Error(err))
		}
	}, true
}
