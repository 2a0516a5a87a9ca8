package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"partner-sync/internal/common/errors"
)

// releaseScript deletes the lock only when the stored token still belongs
// to this holder, so a run that overstays its TTL cannot free a successor's
// lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RunLock serializes batch runs per (task, trading partner) through a redis
// SETNX lease. The TTL bounds how long a crashed run can block the next one.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

// Acquire takes the lease for the given task and partner. The returned
// release func is safe to call after the TTL has lapsed.
func (l *RunLock) Acquire(ctx context.Context, taskType, tradingPartner string) (func(context.Context), error) {
	key := fmt.Sprintf("partner-sync:lock:%s:%s", taskType, tradingPartner)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.NewExternalServiceError("redis", err)
	}
	if !ok {
		return nil, errors.NewLockNotAcquiredError(key)
	}

	release := func(ctx context.Context) {
		releaseScript.Run(ctx, l.client, []string{key}, token)
	}
	return release, nil
}
