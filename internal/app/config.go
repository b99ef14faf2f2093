package app

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the ledger service and worker.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// PGDSN selects the PostgreSQL gateway. Empty runs on the in-memory store.
	PGDSN          string `envconfig:"PG_DSN"`
	PGMaxConns     int32  `envconfig:"PG_MAX_CONNS" default:"10"`
	MigrateOnStart bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// RedisAddr enables the budget actual cache and the worker queue.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	BudgetCacheTTL time.Duration `envconfig:"BUDGET_CACHE_TTL" default:"10m"`

	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS"`
	KafkaAuditTopic string   `envconfig:"KAFKA_AUDIT_TOPIC" default:"ledger.audit"`

	PostingMaxRetries  int `envconfig:"POSTING_MAX_RETRIES" default:"3"`
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	IntegritySchedule string `envconfig:"INTEGRITY_SCHEDULE" default:"@every 1h"`
	WarmupSchedule    string `envconfig:"BUDGET_WARMUP_SCHEDULE" default:"@every 15m"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PostingMaxRetries < 0 {
		return errors.New("posting max retries must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("rate limit per minute must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaAuditTopic == "" {
		return errors.New("kafka audit topic must be provided with brokers")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
