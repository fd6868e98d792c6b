// Package config loads the ledger configuration from the environment, an
// optional .env file and an optional YAML file of currency definitions.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Storage string

const (
	StorageMemory   Storage = "memory"
	StorageSQLite   Storage = "sqlite"
	StoragePostgres Storage = "postgres"
	StorageRedis    Storage = "redis"
)

type Config struct {
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`
	Storage     Storage       `env:"STORAGE" envDefault:"memory"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"ledger.db"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"` // DBHost represents the database host
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`      // DBPort is the database port
	DBName     string `env:"DB_NAME" envDefault:"ledger"`    // DBName is the database name
	DBUser     string `env:"DB_USER" envDefault:"postgres"`  // DBUser is the database user used to connect
	DBPassword string `env:"DB_PASSWORD"`                    // DBPassword is the database password
	DBSchema   string `env:"DB_SCHEMA" envDefault:"public"`  // DBSchema represents the database schema

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"ledger:"`

	// CurrenciesFile points at a YAML list of currencies. A single primary
	// "dollars" currency is used when empty.
	CurrenciesFile string `env:"CURRENCIES_FILE"`
	// ResetOverrides maps currency keys to the balance reset moves accounts to,
	// e.g. "dollars:100,tokens:0".
	ResetOverrides map[string]string `env:"RESET_OVERRIDES"`

	MetricsAddr string `env:"METRICS_ADDR"`
}

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "LEDGER_"

// Load reads .env when present, then parses the LEDGER_ variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("lock timeout must be positive, got %s", c.LockTimeout)
	}
	if _, err := c.ParsedResetOverrides(); err != nil {
		return err
	}
	return nil
}

// ParsedResetOverrides returns the reset overrides keyed by lower-cased currency key.
func (c *Config) ParsedResetOverrides() (map[string]decimal.Decimal, error) {
	overrides := make(map[string]decimal.Decimal, len(c.ResetOverrides))
	for key, raw := range c.ResetOverrides {
		amount, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid reset override for %s: %w", key, err)
		}
		overrides[strings.ToLower(strings.TrimSpace(key))] = amount
	}
	return overrides, nil
}

// Currencies loads the configured currency definitions.
func (c *Config) Currencies() ([]CurrencyDefinition, error) {
	if c.CurrenciesFile == "" {
		return []CurrencyDefinition{DefaultCurrency()}, nil
	}
	data, err := os.ReadFile(c.CurrenciesFile)
	if err != nil {
		return nil, fmt.Errorf("read currencies file: %w", err)
	}
	return ParseCurrencies(data)
}
