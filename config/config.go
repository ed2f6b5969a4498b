package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Idempotency    IdempotencyConfig    `mapstructure:"idempotency"`
	LockRetry      LockRetryConfig      `mapstructure:"lockretry"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	FX             FXConfig             `mapstructure:"fx"`
	Log            LogConfig            `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IdempotencyConfig governs the idempotency controller. Retention must
// cover realistic retry storms; callers are expected to use unique keys
// per logical operation beyond that window.
type IdempotencyConfig struct {
	Retention    time.Duration `mapstructure:"retention"`
	InflightTTL  time.Duration `mapstructure:"inflight_ttl"`
	InflightWait time.Duration `mapstructure:"inflight_wait"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LockRetryConfig bounds the internal retry loop around per-account lock
// conflicts before a transient failure is surfaced.
type LockRetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// ReconciliationConfig holds the matching tolerances. Deliberately
// configurable: exact thresholds are a product decision.
type ReconciliationConfig struct {
	AmountToleranceMinor int64         `mapstructure:"amount_tolerance_minor"`
	DateTolerance        time.Duration `mapstructure:"date_tolerance"`
}

// FXConfig maps each source currency to the account id absorbing FX
// gain/loss for conversions out of that currency, and carries the
// static rate table used when no live rate feed is configured. Rate
// keys are "FROM/TO" pairs, values decimal strings.
type FXConfig struct {
	GainLossAccounts map[string]string `mapstructure:"gainloss_accounts"`
	Rates            map[string]string `mapstructure:"rates"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: LEDGER_.
// Nested keys use underscore: LEDGER_DATABASE_HOST, LEDGER_LOG_LEVEL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ledger_core")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("idempotency.retention", "24h")
	v.SetDefault("idempotency.inflight_ttl", "30s")
	v.SetDefault("idempotency.inflight_wait", "2s")
	v.SetDefault("idempotency.poll_interval", "50ms")
	v.SetDefault("lockretry.max_attempts", 3)
	v.SetDefault("lockretry.backoff", "25ms")
	v.SetDefault("reconciliation.amount_tolerance_minor", 0)
	v.SetDefault("reconciliation.date_tolerance", "24h")
	v.SetDefault("fx.gainloss_accounts", map[string]string{})
	v.SetDefault("fx.rates", map[string]string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: LEDGER_DATABASE_HOST -> database.host
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file; env vars alone can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
