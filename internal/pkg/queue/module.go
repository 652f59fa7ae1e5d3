package queue

import (
	"time"

	"taskflow/internal/pkg/config"
	"taskflow/internal/pkg/logger"

	redisv9 "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// Module exports the queue module for FX. Both the producer and consumer
// sides resolve to the same backend instance.
var Module = fx.Module("queue",
	fx.Provide(
		NewFromConfig,
		func(b Backend) Enqueuer { return b },
		func(b Backend) Provider { return b },
	),
)

// Backend is a queue implementation serving both sides of the contract
type Backend interface {
	Enqueuer
	Provider
}

// NewFromConfig builds the configured queue backend
func NewFromConfig(cfg *config.Config, rdb *redisv9.Client, log *logger.Logger) Backend {
	visibility := time.Duration(cfg.Queue.VisibilitySec) * time.Second
	switch cfg.Queue.Backend {
	case "redis":
		return NewRedisQueue(rdb, cfg.Queue.Name, visibility, log)
	default:
		return NewMemoryQueue(visibility)
	}
}
