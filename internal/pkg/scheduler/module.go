package scheduler

import (
	"context"
	"time"

	"taskflow/internal/pkg/config"
	"taskflow/internal/pkg/logger"
	"taskflow/internal/pkg/redis"

	"go.uber.org/fx"
)

// Module exports the scheduler module for FX
var Module = fx.Module("scheduler",
	fx.Provide(NewFromConfig),
	fx.Invoke(registerLifecycle),
)

// NewFromConfig builds the scheduler, guarded by a redis lock so only one
// instance fires an entry at a time.
func NewFromConfig(cfg *config.Config, locker *redis.Locker, log *logger.Logger) *Scheduler {
	lockTTL := time.Duration(cfg.Sweeper.LockTTLSec) * time.Second
	return New(log, WithLock(locker, lockTTL))
}

func registerLifecycle(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
