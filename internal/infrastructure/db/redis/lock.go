package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	leaseKeyPrefix   = "lease:"
	leaseTTL         = 10 * time.Second
	leaseRetryDelay  = 50 * time.Millisecond
	leaseAcquireWait = 5 * time.Second
)

// releaseScript deletes the lease only when the caller still owns it, so a
// lease that expired and was re-acquired by someone else is never clobbered.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// LeaseLocker serializes read-modify-write cycles per key using SET NX with a
// TTL. The durable table has no locking primitive of its own; every writer
// that mutates a contended key (a month's counter, a user's session set)
// takes the lease first.
type LeaseLocker struct {
	client *redis.Client
}

func NewLeaseLocker(client *redis.Client) *LeaseLocker {
	return &LeaseLocker{client: client}
}

// Acquire blocks until the lease for key is held, the wait budget runs out,
// or ctx is done. The returned unlock releases only the caller's own lease.
func (l *LeaseLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	leaseKey := leaseKeyPrefix + key
	deadline := time.Now().Add(leaseAcquireWait)

	for {
		ok, err := l.client.SetNX(ctx, leaseKey, token, leaseTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lease acquire: %w", err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{leaseKey}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lease acquire: timed out waiting for %s", key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(leaseRetryDelay):
		}
	}
}
