package config

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL        string        `envconfig:"DATABASE_URL"         required:"true"`
	HTTPPort           string        `envconfig:"HTTP_PORT"            default:":8080"`
	GrpcPort           string        `envconfig:"GRPC_PORT"            default:":50051"`
	LogLevel           string        `envconfig:"LOG_LEVEL"            default:"info"`
	TaxRate            string        `envconfig:"TAX_RATE"             default:"0.10"`
	CartTTL            time.Duration `envconfig:"CART_TTL"             default:"720h"`
	AuthMode           string        `envconfig:"AUTH_MODE"            default:"jwt"`
	JWTSecret          string        `envconfig:"JWT_SECRET"`
	TrustedProxies     []string      `envconfig:"TRUSTED_PROXIES"`
	RedisURL           string        `envconfig:"REDIS_URL"`
	EventsChannel      string        `envconfig:"EVENTS_CHANNEL"       default:"order-events"`
	RateLimitRPS       float64       `envconfig:"RATE_LIMIT_RPS"       default:"10"`
	RateLimitBurst     int           `envconfig:"RATE_LIMIT_BURST"     default:"20"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT"     default:"10s"`
	RunMigrations      bool          `envconfig:"RUN_MIGRATIONS"       default:"true"`

	taxRate decimal.Decimal
}

var (
	config Config
	once   sync.Once
)

// Load reads the environment into a fresh Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration from environment variables: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	rate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE %q: %w", cfg.TaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("invalid TAX_RATE %q: must be between 0 and 1", cfg.TaxRate)
	}
	cfg.taxRate = rate

	if cfg.CartTTL <= 0 {
		return nil, fmt.Errorf("invalid CART_TTL %s: must be positive", cfg.CartTTL)
	}
	switch cfg.AuthMode {
	case "jwt":
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
		}
	case "gateway":
	default:
		return nil, fmt.Errorf("invalid AUTH_MODE %q: must be jwt or gateway", cfg.AuthMode)
	}
	for _, proxy := range cfg.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: must be an IP or CIDR", proxy)
			}
		}
	}

	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("invalid rate limit: rps=%v burst=%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return &cfg, nil
}

// LoadConfig loads .env (if present) and the environment once per process.
func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		cfg, err := Load()
		if err != nil {
			logger.Fatalf("Configuration error: %v", err)
		}
		config = *cfg

		logger.Infof("Configuration loaded: HTTP Port=%s, GRPC Port=%s, LogLevel=%s, TaxRate=%s",
			config.HTTPPort, config.GrpcPort, config.LogLevel, config.taxRate.String())
		if config.RedisURL == "" {
			logger.Warn("Configuration: REDIS_URL is not set, order events will only be logged")
		}
		if config.AuthMode == "gateway" {
			logger.Warn("Configuration: AUTH_MODE=gateway, trusting X-User-ID and X-User-Role headers")
		}
		if len(config.TrustedProxies) == 0 {
			logger.Info("Configuration: TRUSTED_PROXIES is empty, client IP is the connection address")
		}
	})
	return &config
}

func (c *Config) TaxRateDecimal() decimal.Decimal {
	return c.taxRate
}
