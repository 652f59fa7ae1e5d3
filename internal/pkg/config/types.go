package config

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logger   LoggerConfig   `mapstructure:"logger" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Rate     RateConfig     `mapstructure:"rate"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"required,gt=0,lte=65535"`
	ReadTimeout     int    `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    int    `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port" validate:"required,gt=0,lte=65535"`
	User            string `mapstructure:"user" validate:"required"`
	Password        string `mapstructure:"password" validate:"required"`
	DBName          string `mapstructure:"dbname" validate:"required"`
	SSLMode         string `mapstructure:"sslmode" validate:"required,oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr            string `mapstructure:"addr"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db" validate:"gte=0"`
	PoolSize        int    `mapstructure:"pool_size" validate:"gte=1"`
	MinIdleConns    int    `mapstructure:"min_idle_conns" validate:"gte=0"`
	DialTimeoutSec  int    `mapstructure:"dial_timeout_sec" validate:"gte=0"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec" validate:"gte=0"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec" validate:"gte=0"`
	TLS             bool   `mapstructure:"tls"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"required,oneof=json console"`
	OutputPath string `mapstructure:"output_path" validate:"required"`
}

// QueueConfig holds job queue and worker pool configuration
type QueueConfig struct {
	// Name is the logical queue the task service produces to and consumes from
	Name string `mapstructure:"name" validate:"required"`
	// Backend selects the queue implementation: "memory" or "redis"
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis"`
	// Concurrency is the number of worker goroutines
	Concurrency int `mapstructure:"concurrency" validate:"gte=1"`
	// PollIntervalMs is the idle delay between fetch attempts
	PollIntervalMs int `mapstructure:"poll_interval_ms" validate:"gte=1"`
	// VisibilitySec is the in-flight lease before a job is considered abandoned
	VisibilitySec int `mapstructure:"visibility_sec" validate:"gte=1"`
	// ShutdownTimeoutSec bounds graceful worker shutdown
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec" validate:"gte=1"`
}

// SweeperConfig holds overdue sweeper configuration
type SweeperConfig struct {
	// Enabled toggles the periodic sweep
	Enabled bool `mapstructure:"enabled"`
	// Cron is the sweep schedule expression
	Cron string `mapstructure:"cron" validate:"required"`
	// LockTTLSec is how long the distributed sweep lock is held
	LockTTLSec int `mapstructure:"lock_ttl_sec" validate:"gte=1"`
}

// RateConfig holds rate limiter configuration for the task endpoints
type RateConfig struct {
	// Backend selects the counter store: "memory" or "redis"
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis"`
	// Limit is the number of requests allowed per window
	Limit int `mapstructure:"limit" validate:"gte=1"`
	// WindowMs is the fixed window length in milliseconds
	WindowMs int `mapstructure:"window_ms" validate:"gte=1"`
	// KeyPrefix namespaces counter keys in the shared store
	KeyPrefix string `mapstructure:"key_prefix"`
}
