// Package config binds the environment variables enumerated in
// spec.md §6 into a single struct via struct tags. This is env-var
// binding, not file loading — the spec excludes configuration-FILE
// loading from scope, not environment configuration.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full set of service tunables.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	UpstreamEndpoint string `env:"UPSTREAM_ENDPOINT"`
	UpstreamAPIKey   string `env:"UPSTREAM_API_KEY"`
	SkipUpstream     bool   `env:"SKIP_UPSTREAM" envDefault:"false"`

	AllowedOrigins     []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	AnonymizationSalt  string   `env:"ANONYMIZATION_SALT"`
	MonitoringWebhook  string   `env:"MONITORING_WEBHOOK"`
	APIAuthToken       string   `env:"API_AUTH_TOKEN"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"./sleuth.db"`

	MaxCollectAddresses    int `env:"MAX_COLLECT_ADDRESSES" envDefault:"10000"`
	MaxCollectPages        int `env:"MAX_COLLECT_PAGES" envDefault:"100"`
	MaxTransfersPerAddress int `env:"MAX_TRANSFERS_PER_ADDRESS" envDefault:"5000"`

	// Token bucket (4.1)
	BucketCapacity   int           `env:"BUCKET_CAPACITY" envDefault:"5"`
	BucketRefill     int           `env:"BUCKET_REFILL" envDefault:"5"`
	BucketPeriod     time.Duration `env:"BUCKET_PERIOD" envDefault:"1s"`

	// Circuit breaker (4.2)
	BreakerFailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerRecoveryTimeout  time.Duration `env:"BREAKER_RECOVERY_TIMEOUT" envDefault:"30s"`

	// Priority queue backpressure (4.3/§5): beyond QueueMaxDepth, LOW
	// items are shed first; a MEDIUM item still queued past
	// QueueMediumHoldTimeout is dropped. HIGH/CRITICAL are never shed.
	QueueMaxDepth          int           `env:"QUEUE_MAX_DEPTH" envDefault:"200"`
	QueueMediumHoldTimeout time.Duration `env:"QUEUE_MEDIUM_HOLD_TIMEOUT" envDefault:"10s"`

	// Cost rate limiter (4.7)
	CostWindow time.Duration `env:"COST_WINDOW" envDefault:"60s"`
	CostBudget int           `env:"COST_BUDGET" envDefault:"100"`

	// Recursive-query guard (4.6)
	GuardTimeout      time.Duration `env:"GUARD_TIMEOUT" envDefault:"5s"`
	GuardMaxRows      int           `env:"GUARD_MAX_ROWS" envDefault:"10000"`
	GuardMaxMemoryMiB int64         `env:"GUARD_MAX_MEMORY_MIB" envDefault:"100"`

	// Staleness threshold for account data (spec.md §3)
	StalenessThreshold time.Duration `env:"STALENESS_THRESHOLD" envDefault:"24h"`

	// Complexity cap (4.5)
	ComplexityCap float64 `env:"COMPLEXITY_CAP" envDefault:"10"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
