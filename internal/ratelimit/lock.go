package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentgate/internal/config"
)

const defaultCustomerLockTTL = 10 * time.Second

// unlockScript deletes the key only while it still carries the owner's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// CustomerLock serialises provider-customer creation per local user.
type CustomerLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCustomerLock(cfg config.Config, client *redis.Client) *CustomerLock {
	if client == nil {
		return nil
	}
	ttl := cfg.RateLimit.CustomerLockTTL
	if ttl <= 0 {
		ttl = defaultCustomerLockTTL
	}
	return &CustomerLock{client: client, ttl: ttl}
}

// Acquire returns a release func. Contention is reported through ok=false;
// callers proceed either way and let the database constraint decide.
func (c *CustomerLock) Acquire(ctx context.Context, localUserID string) (release func(), ok bool, err error) {
	noop := func() {}
	if c == nil || c.client == nil {
		return noop, true, nil
	}
	key := fmt.Sprintf(keyCheckoutCustomer, strings.TrimSpace(localUserID))
	owner := uuid.NewString()
	ok, err = c.client.SetNX(ctx, key, owner, c.ttl).Result()
	if err != nil || !ok {
		return noop, false, err
	}
	return func() {
		_ = unlockScript.Run(context.WithoutCancel(ctx), c.client, []string{key}, owner).Err()
	}, true, nil
}
