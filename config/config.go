package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Timeline  TimelineConfig  `mapstructure:"timeline"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN          string `mapstructure:"dsn" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"min=0"`
	LogLevel     string `mapstructure:"log_level" validate:"oneof=silent error warn info"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	PoolSize int    `mapstructure:"pool_size" validate:"min=1"`
}

// TimelineConfig 时间线缓存参数
type TimelineConfig struct {
	MaxItems               int           `mapstructure:"max_items" validate:"min=1"`
	ReblogRankThreshold    int64         `mapstructure:"reblog_rank_threshold" validate:"min=0"`
	MergeWindow            int           `mapstructure:"merge_window" validate:"min=1"`
	MinItems               int           `mapstructure:"min_items" validate:"min=1"`
	MinIDRange             int64         `mapstructure:"min_id_range" validate:"min=1"`
	RangeSpan              int64         `mapstructure:"range_span" validate:"min=1"`
	DefaultLimit           int           `mapstructure:"default_limit" validate:"min=1"`
	MaxLimit               int           `mapstructure:"max_limit" validate:"min=1,gtefield=DefaultLimit"`
	SubscribedTTL          time.Duration `mapstructure:"subscribed_ttl"`
	RegenerationTTL        time.Duration `mapstructure:"regeneration_ttl"`
	UpdateSignInDuration   time.Duration `mapstructure:"update_sign_in_duration"`
	FeedUpdatedDuration    time.Duration `mapstructure:"feed_updated_duration"`
	FeedPersistentDuration time.Duration `mapstructure:"feed_persistent_duration" validate:"gtefield=FeedUpdatedDuration"`
}

// WorkerConfig 异步任务执行参数
type WorkerConfig struct {
	Workers      int           `mapstructure:"workers" validate:"min=1"`
	QueueSize    int           `mapstructure:"queue_size" validate:"min=1"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ClaimLimit   int           `mapstructure:"claim_limit" validate:"min=1"`
	BatchSize    int           `mapstructure:"batch_size" validate:"min=1"`
	ClaimLease   time.Duration `mapstructure:"claim_lease"`
}

type SchedulerConfig struct {
	CleanupSpec string `mapstructure:"cleanup_spec" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"min=0,max=1"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps" validate:"min=0"`
	Burst int     `mapstructure:"burst" validate:"min=0"`
}

// Load 读取配置：config.yaml + 环境变量（TIMELINE_ 前缀）
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("TIMELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=timeline port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 50)

	v.SetDefault("timeline.max_items", 400)
	v.SetDefault("timeline.reblog_rank_threshold", 40)
	v.SetDefault("timeline.merge_window", 100)
	v.SetDefault("timeline.min_items", 100)
	v.SetDefault("timeline.min_id_range", 262144)
	v.SetDefault("timeline.range_span", 262144)
	v.SetDefault("timeline.default_limit", 20)
	v.SetDefault("timeline.max_limit", 40)
	v.SetDefault("timeline.subscribed_ttl", 24*time.Hour)
	v.SetDefault("timeline.regeneration_ttl", 24*time.Hour)
	v.SetDefault("timeline.update_sign_in_duration", 24*time.Hour)
	v.SetDefault("timeline.feed_updated_duration", 48*time.Hour)
	v.SetDefault("timeline.feed_persistent_duration", 14*24*time.Hour)

	v.SetDefault("worker.workers", 8)
	v.SetDefault("worker.queue_size", 10000)
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.job_timeout", 30*time.Second)
	v.SetDefault("worker.poll_interval", 50*time.Millisecond)
	v.SetDefault("worker.claim_limit", 64)
	v.SetDefault("worker.batch_size", 1000)
	v.SetDefault("worker.claim_lease", 5*time.Minute)

	v.SetDefault("scheduler.cleanup_spec", "@every 1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.service_name", "home-timeline")
	v.SetDefault("tracing.sample_ratio", 0.1)

	v.SetDefault("ratelimit.rps", 50)
	v.SetDefault("ratelimit.burst", 100)
}
