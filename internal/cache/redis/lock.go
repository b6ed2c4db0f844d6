package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/polyarb/arbot/internal/domain"
)

// unlockTimeout bounds the release round-trip, which runs on a background
// context because the holder's context is often already cancelled by then.
const unlockTimeout = 5 * time.Second

// unlockScript deletes the lock key only when it still holds the caller's
// token: a scan that outlives its TTL must not release a lock some other
// instance has since acquired.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// LockManager keeps market scans single-flight across bot instances sharing
// one Redis: SETNX with a TTL to acquire, token-checked Lua delete to release.
type LockManager struct {
	rdb *redis.Client
}

// NewLockManager creates a LockManager backed by the given Client.
func NewLockManager(c *Client) *LockManager {
	return &LockManager{rdb: c.rdb}
}

var _ domain.LockManager = (*LockManager)(nil)

// Acquire takes the lock for name with the given TTL and returns its release
// function. The release is idempotent and only ever removes this holder's
// token. Returns domain.ErrLockHeld when another party holds the lock.
func (lm *LockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	lockKey := key("lock", name)

	ok, err := lm.rdb.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, domain.ErrLockHeld
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
			defer cancel()
			_ = unlockScript.Run(unlockCtx, lm.rdb, []string{lockKey}, token).Err()
		})
	}

	return release, nil
}
