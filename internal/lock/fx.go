package lock

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/punchcard/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	log.Info("redis locking enabled", zap.String("addr", cfg.RedisAddr))
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

var Module = fx.Module("lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)
