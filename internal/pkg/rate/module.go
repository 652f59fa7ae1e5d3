package rate

import (
	"time"

	"taskflow/internal/pkg/config"
	"taskflow/internal/pkg/logger"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module exports the rate limiter module for FX
var Module = fx.Module("rate",
	fx.Provide(NewLimiterFromConfig),
)

// NewLimiterFromConfig builds the limiter with the configured counter store.
func NewLimiterFromConfig(cfg *config.Config, rdb *redisv9.Client, log *logger.Logger) (*Limiter, error) {
	var storage Storage
	switch cfg.Rate.Backend {
	case "redis":
		storage = NewRedisStorage(rdb, cfg.Rate.KeyPrefix)
	default:
		storage = NewMemoryStorage()
	}

	return New(Config{
		Limit:  cfg.Rate.Limit,
		Window: time.Duration(cfg.Rate.WindowMs) * time.Millisecond,
	}, storage, log)
}
