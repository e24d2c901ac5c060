package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"pbsacct/pkg/logger"
)

const (
	// DefaultAggregateLockKey guards the full aggregation rebuild
	DefaultAggregateLockKey = "pbsacct:aggregate-lock"
	// DefaultIngestLockKey guards directory ingestion
	DefaultIngestLockKey = "pbsacct:ingest-lock"

	defaultLockTTL     = 10 * time.Minute
	lockAcquireTimeout = 5 * time.Second
)

// DistributedLock serializes runs across processes
type DistributedLock interface {
	// TryLock attempts to take the lock without waiting
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock if this instance holds it
	Unlock(ctx context.Context) error

	// IsHeld reports whether this instance holds the lock
	IsHeld() bool
}

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

const renewScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// RedisDistributedLock SET NX lock with background renewal.
// A nil client runs in single-instance mode: TryLock always succeeds.
type RedisDistributedLock struct {
	client    *redis.Client
	lockKey   string
	lockValue string
	ttl       time.Duration

	mu           sync.Mutex
	isHeld       bool
	stopRenew    chan struct{}
	renewStopped bool
}

// NewRedisDistributedLock creates a lock on lockKey. A zero ttl uses the default.
func NewRedisDistributedLock(client *redis.Client, lockKey string, ttl time.Duration) *RedisDistributedLock {
	if lockKey == "" {
		lockKey = DefaultAggregateLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisDistributedLock{
		client:    client,
		lockKey:   lockKey,
		lockValue: fmt.Sprintf("%s-%s", lockKey, uuid.New().String()),
		ttl:       ttl,
		stopRenew: make(chan struct{}),
	}
}

// Key returns the redis key
func (l *RedisDistributedLock) Key() string {
	return l.lockKey
}

// TryLock implements DistributedLock
func (l *RedisDistributedLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		logger.WarnCtx(ctx, "redis client is nil, skipping distributed lock %s (single-instance mode)", l.lockKey)
		l.mu.Lock()
		l.isHeld = true
		l.mu.Unlock()
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.lockKey, l.lockValue, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.lockKey, err)
	}
	if !acquired {
		logger.DebugCtx(ctx, "lock %s already held by another instance", l.lockKey)
		return false, nil
	}

	l.mu.Lock()
	l.isHeld = true
	// fresh channel per acquisition so TryLock/Unlock can cycle
	l.stopRenew = make(chan struct{})
	l.renewStopped = false
	stop := l.stopRenew
	l.mu.Unlock()

	go l.renewLock(ctx, stop)

	logger.DebugCtx(ctx, "lock %s acquired", l.lockKey)
	return true, nil
}

// Unlock implements DistributedLock
func (l *RedisDistributedLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.isHeld {
		l.mu.Unlock()
		return nil
	}
	if l.client == nil {
		l.isHeld = false
		l.mu.Unlock()
		return nil
	}
	if !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	l.mu.Unlock()

	result, err := l.client.Eval(ctx, unlockScript, []string{l.lockKey}, l.lockValue).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.lockKey, err)
	}

	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()

	if n, ok := result.(int64); ok && n == 1 {
		logger.DebugCtx(ctx, "lock %s released", l.lockKey)
	} else {
		logger.WarnCtx(ctx, "lock %s was already released or held by another instance", l.lockKey)
	}
	return nil
}

// IsHeld implements DistributedLock
func (l *RedisDistributedLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

// renewLock extends the TTL every ttl/3 until stopped or the lock is lost
func (l *RedisDistributedLock) renewLock(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := l.client.Eval(ctx, renewScript,
				[]string{l.lockKey},
				l.lockValue,
				l.ttl.Milliseconds()).Result()
			if err != nil {
				logger.WarnCtx(ctx, "failed to renew lock %s: %v", l.lockKey, err)
				l.markLost()
				return
			}
			if n, ok := result.(int64); !ok || n == 0 {
				logger.WarnCtx(ctx, "lock %s renewal failed, lock lost", l.lockKey)
				l.markLost()
				return
			}
			logger.DebugCtx(ctx, "lock %s renewed", l.lockKey)
		}
	}
}

func (l *RedisDistributedLock) markLost() {
	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()
}
