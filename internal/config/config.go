// Package config loads the service configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/database"
	"github.com/caarlos0/env/v11"
)

// Supported values of STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full service configuration.
type Config struct {
	Port        string          `env:"PORT" envDefault:"8080"`
	StoreDriver string          `env:"STORE_DRIVER" envDefault:"postgres"`
	SQLitePath  string          `env:"SQLITE_PATH" envDefault:"data/events.db"`
	DB          database.Config `envPrefix:"DB_"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"2h"`
	AdminEmails []string      `env:"ADMIN_EMAILS" envSeparator:","`

	RedisAddr string        `env:"REDIS_ADDR"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	ImageDir string `env:"IMAGE_DIR" envDefault:"./img"`
	WebDir   string `env:"WEB_DIR" envDefault:"./web"`

	TxTimeout time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the parser cannot.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	for i, email := range c.AdminEmails {
		c.AdminEmails[i] = strings.ToLower(strings.TrimSpace(email))
	}
	return nil
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if admin != "" && admin == email {
			return true
		}
	}
	return false
}
