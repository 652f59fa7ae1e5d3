package health

import (
	"context"

	"taskflow/internal/pkg/database"

	redisv9 "github.com/redis/go-redis/v9"
)

// PostgresChecker pings the task store.
type PostgresChecker struct {
	db *database.Database
}

func NewPostgresChecker(db *database.Database) *PostgresChecker {
	return &PostgresChecker{db: db}
}

func (c *PostgresChecker) Name() string { return "postgres" }

func (c *PostgresChecker) Check(ctx context.Context) error {
	sqlDB, err := c.db.SQLDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RedisChecker pings the queue and rate-limit store.
type RedisChecker struct {
	rdb *redisv9.Client
}

func NewRedisChecker(rdb *redisv9.Client) *RedisChecker {
	return &RedisChecker{rdb: rdb}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
