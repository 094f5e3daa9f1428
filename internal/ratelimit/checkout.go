package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentgate/internal/config"
	"go.uber.org/zap"
)

const (
	keyCheckoutClient   = "checkout:client:%s"
	keyCheckoutCustomer = "checkout:customer:%s"
)

// CheckoutLimiter throttles checkout creation per client address. A nil or
// disabled limiter allows everything.
type CheckoutLimiter struct {
	bucket *bucket
	log    *zap.Logger
}

func NewCheckoutLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*CheckoutLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.CheckoutEnabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("checkout rate limit requires REDIS_ADDR")
	}
	if limitCfg.CheckoutRate <= 0 || limitCfg.CheckoutBurst <= 0 {
		return nil, errors.New("checkout rate limit must be positive")
	}
	return &CheckoutLimiter{
		bucket: newBucket(client, limitCfg.CheckoutRate, limitCfg.CheckoutBurst),
		log:    log.Named("ratelimit.checkout"),
	}, nil
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for clientKey. Redis failures fail open.
func (l *CheckoutLimiter) Allow(ctx context.Context, clientKey string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyCheckoutClient, strings.TrimSpace(clientKey))
	res, err := l.bucket.take(ctx, key)
	if err != nil {
		l.log.Warn("checkout rate limit unavailable", zap.Error(err))
		return Decision{Allowed: true}, nil
	}
	return res, nil
}
