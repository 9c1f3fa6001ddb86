package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/Tausif706/FreshMart/pkg/config"
	"github.com/Tausif706/FreshMart/pkg/database"
)

// Config holds all configuration for the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"CART_HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Persistence backend
	Postgres database.PostgresConfig

	// Redis (rate limiting)
	Redis database.RedisConfig

	// Rate limiting
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"60"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Auth backend
	AuthBaseURL string `env:"AUTH_BASE_URL" envDefault:"http://localhost:9999"`

	// Gateway call deadline. Bounds every backend round trip so a hung
	// call cannot hold a cart's mutation guard indefinitely.
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`

	// Kafka
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	SessionConsumerGroup string   `env:"SESSION_CONSUMER_GROUP" envDefault:"cart-service"`

	// Tracing
	TracingEnabled bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSample    float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cart config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive, got %s", c.GatewayTimeout)
	}
	if c.TraceSample < 0 || c.TraceSample > 1 {
		return fmt.Errorf("trace sample rate must be in [0,1], got %f", c.TraceSample)
	}
	return nil
}
