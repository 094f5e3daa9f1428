package signup

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentgate/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("signup.flow",
	fx.Provide(newStores),
	fx.Provide(NewLocalVerifier),
	fx.Provide(NewLocalBackend),
	fx.Provide(NewService),
)

func newStores(client *redis.Client, clk clock.Clock, log *zap.Logger) Stores {
	if client == nil {
		log.Named("signup.store").Info("pending signups kept in memory")
		return NewMemoryStores(clk, DefaultPendingTTL)
	}
	return NewRedisStores(client, DefaultPendingTTL)
}
